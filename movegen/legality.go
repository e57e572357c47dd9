package movegen

import "github.com/kestrelchess/kestrel/board"

// IsLegal reports whether the pseudo-legal move m leaves the mover's king
// safe. Castling additionally requires the king not to be in check and
// its transit square to be unattacked.
func IsLegal(b *board.Board, m board.Move) bool {
	us := b.SideToMove()
	them := 1 - us

	if m.Flag() == board.FlagCastle {
		if b.InCheck(us) {
			return false
		}
		// The square the king passes through: f1/d1 or f8/d8.
		transit := (m.From() + m.To()) / 2
		if b.SquareAttacked(transit, them) {
			return false
		}
	}

	u := b.Make(m)
	safe := !b.InCheck(us)
	b.Unmake(u)
	return safe
}

// GenerateLegal returns every legal move for the side to move.
func GenerateLegal(b *board.Board) []board.Move {
	pseudo := Generate(b)
	legal := pseudo[:0]
	for _, m := range pseudo {
		if IsLegal(b, m) {
			legal = append(legal, m)
		}
	}
	return legal
}

// HasLegalMoves reports whether any legal move exists, stopping at the
// first one found.
func HasLegalMoves(b *board.Board) bool {
	for _, m := range Generate(b) {
		if IsLegal(b, m) {
			return true
		}
	}
	return false
}

// FindMove matches a parsed UCI move (from/to/promotion) against the
// legal moves of the position, recovering the correct flag bits. Returns
// NullMove and false when the move is not legal here.
func FindMove(b *board.Board, parsed board.Move) (board.Move, bool) {
	for _, m := range GenerateLegal(b) {
		if m.Matches(parsed) {
			return m, true
		}
	}
	return board.NullMove, false
}
