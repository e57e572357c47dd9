// Package game ties a board to its recent position history and produces
// the input feature planes for the neural network.
package game

import "github.com/kestrelchess/kestrel/board"

// State is a board plus the history the network and the transposition
// table care about. It is a plain value; Clone is a copy.
type State struct {
	Board   board.Board
	History PositionHistory
}

// NewState starts a state at b with a one-entry history.
func NewState(b board.Board) *State {
	s := &State{Board: b}
	s.History.Add(&s.Board)
	return s
}

// NewStartState returns a state at the standard initial position.
func NewStartState() (*State, error) {
	b, err := board.ParseFEN(board.FENStartPos)
	if err != nil {
		return nil, err
	}
	return NewState(b), nil
}

// ApplyMove makes m on the board and records the resulting position in
// the history. The undo record restores the board only; callers that
// rewind also need to restore the history (see SnapshotHistory).
func (s *State) ApplyMove(m board.Move) board.Undo {
	u := s.Board.Make(m)
	s.History.Add(&s.Board)
	return u
}

// Clone returns an independent copy of the state.
func (s *State) Clone() *State {
	c := *s
	return &c
}

// SnapshotHistory captures the history ring so a search descent can be
// rewound with RestoreHistory after unmaking its board moves.
func (s *State) SnapshotHistory() PositionHistory {
	return s.History
}

// RestoreHistory reinstates a history captured by SnapshotHistory.
func (s *State) RestoreHistory(h PositionHistory) {
	s.History = h
}

// HistoryHash is the history-aware transposition key for the current
// position.
func (s *State) HistoryHash() uint64 {
	return s.History.Hash()
}

// Repetitions counts how often the current position already occurred in
// the retained history.
func (s *State) Repetitions() int {
	return s.History.CountRepetitions(&s.Board)
}
