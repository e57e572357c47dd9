package game

import (
	"testing"

	"github.com/matryer/is"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelchess/kestrel/board"
	"github.com/kestrelchess/kestrel/movegen"
)

func startState(t *testing.T) *State {
	t.Helper()
	b, err := board.ParseFEN(board.FENStartPos)
	require.NoError(t, err)
	return NewState(b)
}

func apply(t *testing.T, s *State, uci string) {
	t.Helper()
	parsed, ok := board.ParseMove(uci)
	require.True(t, ok)
	m, ok := movegen.FindMove(&s.Board, parsed)
	require.True(t, ok, "move %s not legal", uci)
	s.ApplyMove(m)
}

func TestHistoryGet(t *testing.T) {
	is := is.New(t)
	s := startState(t)
	startHash := s.Board.Hash()

	apply(t, s, "e2e4")
	apply(t, s, "e7e5")

	cur := s.History.Current()
	is.Equal(cur.Hash, s.Board.Hash())

	snap, ok := s.History.Get(2)
	is.True(ok)
	is.Equal(snap.Hash, startHash)

	_, ok = s.History.Get(3)
	is.True(!ok) // before the game started

	_, ok = s.History.Get(8)
	is.True(!ok) // ring only holds 8
}

func TestHistoryRingWraps(t *testing.T) {
	s := startState(t)
	moves := []string{"g1f3", "g8f6", "f3g1", "f6g8", "g1f3", "g8f6", "f3g1", "f6g8", "g1f3"}
	for _, m := range moves {
		apply(t, s, m)
	}
	// 10 positions seen, only 8 retained.
	for t8 := 0; t8 < 8; t8++ {
		_, ok := s.History.Get(t8)
		assert.True(t, ok, "slot %d", t8)
	}
	_, ok := s.History.Get(8)
	assert.False(t, ok)
}

func TestCountRepetitions(t *testing.T) {
	is := is.New(t)
	s := startState(t)
	is.Equal(s.Repetitions(), 0)

	// Knight shuffle: the start position recurs, but with a different
	// fullmove counter; Zobrist ignores the clocks, so it counts.
	for _, m := range []string{"g1f3", "g8f6", "f3g1", "f6g8"} {
		apply(t, s, m)
	}
	is.Equal(s.Repetitions(), 1)

	for _, m := range []string{"g1f3", "g8f6", "f3g1", "f6g8"} {
		apply(t, s, m)
	}
	// The position occurred twice before, but the eldest occurrence has
	// fallen out of the 7-slot window.
	is.Equal(s.Repetitions(), 1)
}

func TestHistoryHashSeparatesHistories(t *testing.T) {
	// Two states reaching the same position through different move
	// orders: same board hash, different history hash.
	a := startState(t)
	apply(t, a, "g1f3")
	apply(t, a, "g8f6")
	apply(t, a, "b1c3")
	apply(t, a, "b8c6")

	b := startState(t)
	apply(t, b, "b1c3")
	apply(t, b, "b8c6")
	apply(t, b, "g1f3")
	apply(t, b, "g8f6")

	assert.Equal(t, a.Board.Hash(), b.Board.Hash())
	assert.NotEqual(t, a.HistoryHash(), b.HistoryHash())
}

func TestSnapshotRestoreHistory(t *testing.T) {
	is := is.New(t)
	s := startState(t)
	apply(t, s, "e2e4")

	snap := s.SnapshotHistory()
	hashBefore := s.HistoryHash()

	u1 := s.ApplyMoveForTest(t, "e7e5")
	u2 := s.ApplyMoveForTest(t, "g1f3")
	s.Board.Unmake(u2)
	s.Board.Unmake(u1)
	s.RestoreHistory(snap)

	is.Equal(s.HistoryHash(), hashBefore)
	is.Equal(s.History.Current().Hash, s.Board.Hash())
}

// ApplyMoveForTest resolves a UCI move against the current board and
// applies it, for rewind tests.
func (s *State) ApplyMoveForTest(t *testing.T, uci string) board.Undo {
	t.Helper()
	parsed, ok := board.ParseMove(uci)
	require.True(t, ok)
	m, ok := movegen.FindMove(&s.Board, parsed)
	require.True(t, ok)
	return s.ApplyMove(m)
}

func TestCloneIsIndependent(t *testing.T) {
	s := startState(t)
	c := s.Clone()
	apply(t, s, "e2e4")
	assert.NotEqual(t, s.Board.Hash(), c.Board.Hash())
	assert.NotEqual(t, s.HistoryHash(), c.HistoryHash())
}
