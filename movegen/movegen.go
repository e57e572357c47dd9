// Package movegen generates pseudo-legal chess moves with classical
// ray-scan sliders and filters them for legality.
package movegen

import (
	"github.com/kestrelchess/kestrel/bitboard"
	"github.com/kestrelchess/kestrel/board"
)

// Generate returns every pseudo-legal move for the side to move.
// Castling is emitted when the right is present and the squares between
// king and rook are empty; attack safety is the legality filter's job.
func Generate(b *board.Board) []board.Move {
	moves := make([]board.Move, 0, 48)
	us := b.SideToMove()
	ownOcc := b.Occupancy(us)
	enemyOcc := b.Occupancy(1 - us)
	allOcc := ownOcc | enemyOcc
	base := board.PieceBase(us)

	moves = appendPawnMoves(moves, b, us, enemyOcc, allOcc, false)

	knights := b.Pieces[base+board.WhiteKnight]
	for knights != 0 {
		from := knights.PopLsb()
		moves = appendFromTargets(moves, from, bitboard.KnightAttacks[from]&^ownOcc)
	}

	bishops := b.Pieces[base+board.WhiteBishop]
	for bishops != 0 {
		from := bishops.PopLsb()
		moves = appendFromTargets(moves, from, bitboard.BishopAttacks(from, allOcc)&^ownOcc)
	}

	rooks := b.Pieces[base+board.WhiteRook]
	for rooks != 0 {
		from := rooks.PopLsb()
		moves = appendFromTargets(moves, from, bitboard.RookAttacks(from, allOcc)&^ownOcc)
	}

	queens := b.Pieces[base+board.WhiteQueen]
	for queens != 0 {
		from := queens.PopLsb()
		moves = appendFromTargets(moves, from, bitboard.QueenAttacks(from, allOcc)&^ownOcc)
	}

	kings := b.Pieces[base+board.WhiteKing]
	for kings != 0 {
		from := kings.PopLsb()
		moves = appendFromTargets(moves, from, bitboard.KingAttacks[from]&^ownOcc)
	}

	moves = appendCastles(moves, b, us, allOcc)
	return moves
}

// GenerateCaptures returns the pseudo-legal moves that capture, including
// en-passant and promotion captures.
func GenerateCaptures(b *board.Board) []board.Move {
	moves := make([]board.Move, 0, 16)
	us := b.SideToMove()
	ownOcc := b.Occupancy(us)
	enemyOcc := b.Occupancy(1 - us)
	allOcc := ownOcc | enemyOcc
	base := board.PieceBase(us)

	moves = appendPawnMoves(moves, b, us, enemyOcc, allOcc, true)

	knights := b.Pieces[base+board.WhiteKnight]
	for knights != 0 {
		from := knights.PopLsb()
		moves = appendFromTargets(moves, from, bitboard.KnightAttacks[from]&enemyOcc)
	}
	bishops := b.Pieces[base+board.WhiteBishop]
	for bishops != 0 {
		from := bishops.PopLsb()
		moves = appendFromTargets(moves, from, bitboard.BishopAttacks(from, allOcc)&enemyOcc)
	}
	rooks := b.Pieces[base+board.WhiteRook]
	for rooks != 0 {
		from := rooks.PopLsb()
		moves = appendFromTargets(moves, from, bitboard.RookAttacks(from, allOcc)&enemyOcc)
	}
	queens := b.Pieces[base+board.WhiteQueen]
	for queens != 0 {
		from := queens.PopLsb()
		moves = appendFromTargets(moves, from, bitboard.QueenAttacks(from, allOcc)&enemyOcc)
	}
	kings := b.Pieces[base+board.WhiteKing]
	for kings != 0 {
		from := kings.PopLsb()
		moves = appendFromTargets(moves, from, bitboard.KingAttacks[from]&enemyOcc)
	}
	return moves
}

func appendFromTargets(moves []board.Move, from int, targets bitboard.Bitboard) []board.Move {
	for targets != 0 {
		moves = append(moves, board.NewMove(from, targets.PopLsb(), board.PromoNone, board.FlagNone))
	}
	return moves
}

// appendPromotions expands a pawn move onto the back rank into the four
// promotion moves.
func appendPromotions(moves []board.Move, from, to int) []board.Move {
	for _, promo := range []int{board.PromoQueen, board.PromoRook, board.PromoBishop, board.PromoKnight} {
		moves = append(moves, board.NewMove(from, to, promo, board.FlagNone))
	}
	return moves
}

func appendPawnMoves(moves []board.Move, b *board.Board, us int,
	enemyOcc, allOcc bitboard.Bitboard, capturesOnly bool) []board.Move {

	var push, startRank, promoRank int
	var attacks *[64]bitboard.Bitboard
	if us == board.White {
		push, startRank, promoRank = 8, 1, 6
		attacks = &bitboard.PawnAttacksWhite
	} else {
		push, startRank, promoRank = -8, 6, 1
		attacks = &bitboard.PawnAttacksBlack
	}

	pawns := b.Pieces[board.PieceBase(us)+board.WhitePawn]
	for pawns != 0 {
		from := pawns.PopLsb()
		rank := bitboard.RankOf(from)

		if !capturesOnly {
			to := from + push
			if !allOcc.Has(to) {
				if rank == promoRank {
					moves = appendPromotions(moves, from, to)
				} else {
					moves = append(moves, board.NewMove(from, to, board.PromoNone, board.FlagNone))
					if rank == startRank && !allOcc.Has(to+push) {
						moves = append(moves, board.NewMove(from, to+push, board.PromoNone, board.FlagDoublePush))
					}
				}
			}
		}

		caps := attacks[from] & enemyOcc
		for caps != 0 {
			to := caps.PopLsb()
			if rank == promoRank {
				moves = appendPromotions(moves, from, to)
			} else {
				moves = append(moves, board.NewMove(from, to, board.PromoNone, board.FlagNone))
			}
		}

		if b.EpSq >= 0 && attacks[from].Has(int(b.EpSq)) {
			moves = append(moves, board.NewMove(from, int(b.EpSq), board.PromoNone, board.FlagEnPassant))
		}
	}
	return moves
}

func appendCastles(moves []board.Move, b *board.Board, us int, allOcc bitboard.Bitboard) []board.Move {
	if us == board.White {
		if b.Castling&board.CastleWhiteKingside != 0 &&
			allOcc&(bitboard.Bit(5)|bitboard.Bit(6)) == 0 { // f1, g1
			moves = append(moves, board.NewMove(4, 6, board.PromoNone, board.FlagCastle))
		}
		if b.Castling&board.CastleWhiteQueenside != 0 &&
			allOcc&(bitboard.Bit(1)|bitboard.Bit(2)|bitboard.Bit(3)) == 0 { // b1, c1, d1
			moves = append(moves, board.NewMove(4, 2, board.PromoNone, board.FlagCastle))
		}
	} else {
		if b.Castling&board.CastleBlackKingside != 0 &&
			allOcc&(bitboard.Bit(61)|bitboard.Bit(62)) == 0 { // f8, g8
			moves = append(moves, board.NewMove(60, 62, board.PromoNone, board.FlagCastle))
		}
		if b.Castling&board.CastleBlackQueenside != 0 &&
			allOcc&(bitboard.Bit(57)|bitboard.Bit(58)|bitboard.Bit(59)) == 0 { // b8, c8, d8
			moves = append(moves, board.NewMove(60, 58, board.PromoNone, board.FlagCastle))
		}
	}
	return moves
}
