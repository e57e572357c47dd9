package game

import "github.com/kestrelchess/kestrel/board"

// historySize is the number of retained position snapshots; it matches
// the eight history frames of the network input.
const historySize = 8

// historyHashDepth is how many recent positions feed the history-aware
// hash.
const historyHashDepth = 4

// Snapshot is one remembered position with its Zobrist hash.
type Snapshot struct {
	Board board.Board
	Hash  uint64
}

// PositionHistory is a circular buffer of the last eight positions.
// Slot T-0 is the current position.
type PositionHistory struct {
	slots        [historySize]Snapshot
	currentIndex int
	totalMoves   int
}

// Add snapshots b into the next slot.
func (h *PositionHistory) Add(b *board.Board) {
	if h.totalMoves > 0 {
		h.currentIndex = (h.currentIndex + 1) % historySize
	}
	h.slots[h.currentIndex] = Snapshot{Board: *b, Hash: b.Hash()}
	h.totalMoves++
}

// Current returns the T-0 snapshot.
func (h *PositionHistory) Current() *Snapshot {
	return &h.slots[h.currentIndex]
}

// Get returns the snapshot t moves ago, or ok=false when that slot
// predates the game or has been overwritten.
func (h *PositionHistory) Get(t int) (*Snapshot, bool) {
	if t >= historySize || t >= h.totalMoves {
		return nil, false
	}
	idx := (h.currentIndex - t + historySize) % historySize
	return &h.slots[idx], true
}

// CountRepetitions returns how many of the last seven snapshots share
// b's Zobrist hash.
func (h *PositionHistory) CountRepetitions(b *board.Board) int {
	target := b.Hash()
	reps := 0
	for t := 1; t < historySize; t++ {
		if snap, ok := h.Get(t); ok && snap.Hash == target {
			reps++
		}
	}
	return reps
}

// Hash mixes the last four snapshot hashes, each multiplied by its
// recency weight, into a key that separates same-board positions with
// different recent histories in the transposition table.
func (h *PositionHistory) Hash() uint64 {
	var mixed uint64
	for t := 0; t < historyHashDepth; t++ {
		if snap, ok := h.Get(t); ok {
			mixed ^= snap.Hash * uint64(t+1)
		}
	}
	return mixed
}
