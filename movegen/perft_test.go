package movegen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelchess/kestrel/board"
)

var perftCases = []struct {
	fen    string
	counts []uint64 // depth 1..n
}{
	{
		fen:    board.FENStartPos,
		counts: []uint64{20, 400, 8902, 197281},
	},
	{
		// Kiwipete
		fen:    "r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
		counts: []uint64{48, 2039, 97862, 4085603},
	},
	{
		fen:    "8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1",
		counts: []uint64{14, 191, 2812, 43238},
	},
	{
		fen:    "rnbqkbnr/ppp1p1pp/8/3pPp2/8/8/PPPP1PPP/RNBQKBNR w KQkq d6 0 3",
		counts: []uint64{31, 868, 27336, 788456},
	},
}

func TestPerft(t *testing.T) {
	for _, tc := range perftCases {
		b, err := board.ParseFEN(tc.fen)
		require.NoError(t, err)
		maxDepth := len(tc.counts)
		if testing.Short() {
			maxDepth = 3
		}
		for d := 1; d <= maxDepth; d++ {
			got := Perft(&b, d)
			assert.Equal(t, tc.counts[d-1], got, "perft(%d) of %s", d, tc.fen)
		}
	}
}

func TestPerftDivideSumsToPerft(t *testing.T) {
	b, err := board.ParseFEN(board.FENStartPos)
	require.NoError(t, err)
	div := PerftDivide(&b, 3)
	var sum uint64
	for _, n := range div {
		sum += n
	}
	assert.Equal(t, Perft(&b, 3), sum)
	assert.Len(t, div, 20)
}
