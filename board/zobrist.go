package board

import (
	"math/rand"

	"github.com/kestrelchess/kestrel/bitboard"
)

// Zobrist key tables. The fixed seed is part of the engine's external
// contract: hashes are stable across runs and processes.
var (
	zobristPiece  [12][64]uint64
	zobristSide   uint64
	zobristCastle [4]uint64
	zobristEpFile [8]uint64
)

var zobristSeed uint64 = 0x9E3779B97F4A7C15

func init() {
	rnd := rand.New(rand.NewSource(int64(zobristSeed)))
	for p := 0; p < 12; p++ {
		for sq := 0; sq < 64; sq++ {
			zobristPiece[p][sq] = rnd.Uint64()
		}
	}
	zobristSide = rnd.Uint64()
	for i := range zobristCastle {
		zobristCastle[i] = rnd.Uint64()
	}
	for f := range zobristEpFile {
		zobristEpFile[f] = rnd.Uint64()
	}
}

// Hash computes the Zobrist key of the position from scratch.
func (b *Board) Hash() uint64 {
	var h uint64
	for p := 0; p < 12; p++ {
		bb := b.Pieces[p]
		for bb != 0 {
			h ^= zobristPiece[p][bb.PopLsb()]
		}
	}
	if !b.WhiteToMove {
		h ^= zobristSide
	}
	for i := 0; i < 4; i++ {
		if b.Castling&(1<<uint(i)) != 0 {
			h ^= zobristCastle[i]
		}
	}
	if b.EpSq >= 0 {
		h ^= zobristEpFile[bitboard.FileOf(int(b.EpSq))]
	}
	return h
}
