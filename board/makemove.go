package board

import "github.com/kestrelchess/kestrel/bitboard"

// Undo captures the entire pre-move position. Restoring it is a single
// struct assignment, which makes the unmake(make(m)) == identity property
// hold by construction.
type Undo struct {
	prev Board
}

// castleRightsMask[sq] has the rights cleared when a move touches sq,
// either as origin (king/rook move) or destination (rook capture).
var castleRightsMask [64]uint8

func init() {
	for sq := range castleRightsMask {
		castleRightsMask[sq] = 0xFF
	}
	castleRightsMask[bitboard.Square(4, 0)] &^= CastleWhiteKingside | CastleWhiteQueenside // e1
	castleRightsMask[bitboard.Square(0, 0)] &^= CastleWhiteQueenside                      // a1
	castleRightsMask[bitboard.Square(7, 0)] &^= CastleWhiteKingside                       // h1
	castleRightsMask[bitboard.Square(4, 7)] &^= CastleBlackKingside | CastleBlackQueenside // e8
	castleRightsMask[bitboard.Square(0, 7)] &^= CastleBlackQueenside                      // a8
	castleRightsMask[bitboard.Square(7, 7)] &^= CastleBlackKingside                       // h8
}

// Make applies m to the board and returns the undo record. The move must
// be pseudo-legal for the current side to move.
func (b *Board) Make(m Move) Undo {
	u := Undo{prev: *b}

	us := b.SideToMove()
	them := 1 - us
	from, to := m.From(), m.To()
	fromBit, toBit := bitboard.Bit(from), bitboard.Bit(to)

	mover := b.pieceAtFor(us, from)
	captured := b.pieceAtFor(them, to)
	capSq := to

	if m.Flag() == FlagEnPassant {
		// The captured pawn sits behind the target square.
		if us == White {
			capSq = to - 8
		} else {
			capSq = to + 8
		}
		captured = PieceBase(them) + WhitePawn
	}

	if captured != NoPiece {
		b.Pieces[captured] &^= bitboard.Bit(capSq)
	}

	b.Pieces[mover] &^= fromBit
	if m.IsPromotion() {
		b.Pieces[PieceBase(us)+m.Promotion()] |= toBit
	} else {
		b.Pieces[mover] |= toBit
	}

	if m.Flag() == FlagCastle {
		rook := PieceBase(us) + WhiteRook
		switch to {
		case bitboard.Square(6, 0): // g1
			b.Pieces[rook] = b.Pieces[rook]&^bitboard.Bit(bitboard.Square(7, 0)) | bitboard.Bit(bitboard.Square(5, 0))
		case bitboard.Square(2, 0): // c1
			b.Pieces[rook] = b.Pieces[rook]&^bitboard.Bit(bitboard.Square(0, 0)) | bitboard.Bit(bitboard.Square(3, 0))
		case bitboard.Square(6, 7): // g8
			b.Pieces[rook] = b.Pieces[rook]&^bitboard.Bit(bitboard.Square(7, 7)) | bitboard.Bit(bitboard.Square(5, 7))
		case bitboard.Square(2, 7): // c8
			b.Pieces[rook] = b.Pieces[rook]&^bitboard.Bit(bitboard.Square(0, 7)) | bitboard.Bit(bitboard.Square(3, 7))
		}
	}

	b.Castling &= castleRightsMask[from] & castleRightsMask[to]

	if m.Flag() == FlagDoublePush {
		if us == White {
			b.EpSq = int8(from + 8)
		} else {
			b.EpSq = int8(from - 8)
		}
	} else {
		b.EpSq = -1
	}

	isPawn := mover == PieceBase(us)+WhitePawn
	if isPawn || captured != NoPiece {
		b.HalfmoveClock = 0
	} else {
		b.HalfmoveClock++
	}

	b.WhiteToMove = !b.WhiteToMove
	if b.WhiteToMove {
		b.Fullmove++
	}
	return u
}

// Unmake restores the board to its exact pre-move state.
func (b *Board) Unmake(u Undo) {
	*b = u.prev
}
