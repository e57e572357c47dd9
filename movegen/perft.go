package movegen

import "github.com/kestrelchess/kestrel/board"

// Perft counts the legal-move tree leaves at the given depth. It is the
// move generator's correctness oracle.
func Perft(b *board.Board, depth int) uint64 {
	if depth == 0 {
		return 1
	}
	var nodes uint64
	for _, m := range Generate(b) {
		if !IsLegal(b, m) {
			continue
		}
		if depth == 1 {
			nodes++
			continue
		}
		u := b.Make(m)
		nodes += Perft(b, depth-1)
		b.Unmake(u)
	}
	return nodes
}

// PerftDivide returns per-root-move subtree counts, keyed by UCI move
// string. Used by the shell's perft command for debugging.
func PerftDivide(b *board.Board, depth int) map[string]uint64 {
	counts := make(map[string]uint64)
	for _, m := range GenerateLegal(b) {
		u := b.Make(m)
		counts[m.String()] = Perft(b, depth-1)
		b.Unmake(u)
	}
	return counts
}
