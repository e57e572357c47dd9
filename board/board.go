// Package board implements the bitboard chess position: twelve piece
// occupancy boards plus side to move, castling rights, en-passant target
// and the move clocks, with make/unmake and O(1) attack queries.
package board

import (
	"strings"

	"github.com/kestrelchess/kestrel/bitboard"
)

// Piece indices. Each side's pieces form a contiguous block of 6.
const (
	WhitePawn = iota
	WhiteKnight
	WhiteBishop
	WhiteRook
	WhiteQueen
	WhiteKing
	BlackPawn
	BlackKnight
	BlackBishop
	BlackRook
	BlackQueen
	BlackKing
	NoPiece = -1
)

// Sides.
const (
	White = 0
	Black = 1
)

// Castling right bits.
const (
	CastleWhiteKingside = 1 << iota
	CastleWhiteQueenside
	CastleBlackKingside
	CastleBlackQueenside
)

const pieceChars = "PNBRQKpnbrqk"

// Board is a chess position. It is a plain value: copying it copies the
// whole position, which is what Undo relies on.
type Board struct {
	Pieces        [12]bitboard.Bitboard
	WhiteToMove   bool
	Castling      uint8
	EpSq          int8 // -1 when no en-passant target
	HalfmoveClock uint8
	Fullmove      uint16
}

// SideToMove returns White or Black.
func (b *Board) SideToMove() int {
	if b.WhiteToMove {
		return White
	}
	return Black
}

// PieceBase returns the first piece index for a side (WhitePawn or BlackPawn).
func PieceBase(side int) int { return side * 6 }

// Occupancy returns the union of one side's piece boards.
func (b *Board) Occupancy(side int) bitboard.Bitboard {
	base := PieceBase(side)
	var occ bitboard.Bitboard
	for p := base; p < base+6; p++ {
		occ |= b.Pieces[p]
	}
	return occ
}

// OccupancyAll returns the union of all twelve piece boards.
func (b *Board) OccupancyAll() bitboard.Bitboard {
	return b.Occupancy(White) | b.Occupancy(Black)
}

// PieceAt returns the piece index on sq, or NoPiece.
func (b *Board) PieceAt(sq int) int {
	mask := bitboard.Bit(sq)
	for p := range b.Pieces {
		if b.Pieces[p]&mask != 0 {
			return p
		}
	}
	return NoPiece
}

// pieceAtFor scans only one side's boards.
func (b *Board) pieceAtFor(side, sq int) int {
	mask := bitboard.Bit(sq)
	base := PieceBase(side)
	for p := base; p < base+6; p++ {
		if b.Pieces[p]&mask != 0 {
			return p
		}
	}
	return NoPiece
}

// KingSquare returns the square of side's king, or -1 if the king board
// is empty (only reachable transiently inside the legality filter).
func (b *Board) KingSquare(side int) int {
	kings := b.Pieces[PieceBase(side)+WhiteKing]
	if kings == 0 {
		return -1
	}
	return kings.Lsb()
}

// SquareAttacked reports whether sq is attacked by any piece of bySide,
// given the current occupancy. Pawn coverage uses the mirrored pattern:
// a white pawn attacks sq iff a black pawn placed on sq would attack it.
func (b *Board) SquareAttacked(sq, bySide int) bool {
	base := PieceBase(bySide)
	var pawnPattern bitboard.Bitboard
	if bySide == White {
		pawnPattern = bitboard.PawnAttacksBlack[sq]
	} else {
		pawnPattern = bitboard.PawnAttacksWhite[sq]
	}
	if pawnPattern&b.Pieces[base+WhitePawn] != 0 {
		return true
	}
	if bitboard.KnightAttacks[sq]&b.Pieces[base+WhiteKnight] != 0 {
		return true
	}
	if bitboard.KingAttacks[sq]&b.Pieces[base+WhiteKing] != 0 {
		return true
	}
	occ := b.OccupancyAll()
	diag := b.Pieces[base+WhiteBishop] | b.Pieces[base+WhiteQueen]
	if bitboard.BishopAttacks(sq, occ)&diag != 0 {
		return true
	}
	orth := b.Pieces[base+WhiteRook] | b.Pieces[base+WhiteQueen]
	return bitboard.RookAttacks(sq, occ)&orth != 0
}

// InCheck reports whether side's king is attacked by the opponent.
func (b *Board) InCheck(side int) bool {
	ksq := b.KingSquare(side)
	if ksq < 0 {
		return false
	}
	return b.SquareAttacked(ksq, 1-side)
}

// String renders the position rank 8 down to rank 1, for debugging.
func (b *Board) String() string {
	var sb strings.Builder
	for r := 7; r >= 0; r-- {
		for f := 0; f < 8; f++ {
			p := b.PieceAt(bitboard.Square(f, r))
			if p == NoPiece {
				sb.WriteByte('.')
			} else {
				sb.WriteByte(pieceChars[p])
			}
			if f < 7 {
				sb.WriteByte(' ')
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
