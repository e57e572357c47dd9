package game

import (
	"fmt"

	"github.com/kestrelchess/kestrel/bitboard"
	"github.com/kestrelchess/kestrel/board"
)

// Supported input plane counts.
const (
	PlanesLegacy = 112
	PlanesFull   = 119

	planesPerHistory = 13
	historyPlanes    = historySize * planesPerHistory // 104
	planeSize        = 64
)

// PlaneVectorLen returns the flat vector length for one position.
func PlaneVectorLen(numPlanes int) int { return numPlanes * planeSize }

// EncodePlanes writes the feature volume for the current state into dst,
// which must hold numPlanes*64 float32s. Layout: eight 13-plane history
// blocks (T-0 first), then castling rights (mover-first), the rule-50
// plane, the side-to-move plane and a final all-ones plane. Piece planes
// are rotated 180 degrees when black is the mover so the mover's pieces
// always start at the bottom of the grid.
func (s *State) EncodePlanes(dst []float32, numPlanes int) error {
	if numPlanes != PlanesLegacy && numPlanes != PlanesFull {
		return fmt.Errorf("encode: unsupported plane count %d", numPlanes)
	}
	if len(dst) < numPlanes*planeSize {
		return fmt.Errorf("encode: buffer too small: %d < %d", len(dst), numPlanes*planeSize)
	}
	dst = dst[:numPlanes*planeSize]
	for i := range dst {
		dst[i] = 0
	}

	mover := s.Board.SideToMove()
	rotate := mover == board.Black

	for t := 0; t < historySize; t++ {
		snap, ok := s.History.Get(t)
		if !ok {
			continue // pre-start slots stay all zero
		}
		base := t * planesPerHistory * planeSize
		for p := 0; p < 6; p++ {
			fillPieces(dst[base+p*planeSize:], snap.Board.Pieces[board.PieceBase(mover)+p], rotate)
			fillPieces(dst[base+(6+p)*planeSize:], snap.Board.Pieces[board.PieceBase(1-mover)+p], rotate)
		}
		if t == 0 {
			if reps := s.Repetitions(); reps > 0 {
				if reps > 3 {
					reps = 3
				}
				fillAll(dst[base+12*planeSize:], float32(reps)/3)
			}
		}
	}

	aux := historyPlanes * planeSize
	rights := []uint8{
		kingsideRight(mover), queensideRight(mover),
		kingsideRight(1 - mover), queensideRight(1 - mover),
	}
	for i, right := range rights {
		if s.Board.Castling&right != 0 {
			fillAll(dst[aux+i*planeSize:], 1)
		}
	}

	rule50 := int(s.Board.HalfmoveClock)
	if rule50 > 99 {
		rule50 = 99
	}
	fillAll(dst[aux+4*planeSize:], float32(rule50)/99)

	if s.Board.WhiteToMove {
		fillAll(dst[aux+5*planeSize:], 1)
	}

	fillAll(dst[(numPlanes-1)*planeSize:], 1)
	return nil
}

func kingsideRight(side int) uint8 {
	if side == board.White {
		return board.CastleWhiteKingside
	}
	return board.CastleBlackKingside
}

func queensideRight(side int) uint8 {
	if side == board.White {
		return board.CastleWhiteQueenside
	}
	return board.CastleBlackQueenside
}

func fillPieces(plane []float32, bb bitboard.Bitboard, rotate bool) {
	for bb != 0 {
		sq := bb.PopLsb()
		if rotate {
			sq = 63 - sq
		}
		plane[sq] = 1
	}
}

func fillAll(plane []float32, v float32) {
	for i := 0; i < planeSize; i++ {
		plane[i] = v
	}
}
