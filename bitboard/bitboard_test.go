package bitboard

import (
	"testing"

	"github.com/matryer/is"
)

func TestSquareGeometry(t *testing.T) {
	is := is.New(t)
	is.Equal(Square(4, 1), 12)    // e2
	is.Equal(FileOf(12), 4)       // e
	is.Equal(RankOf(12), 1)       // rank 2
	is.Equal(SquareName(12), "e2")
	is.Equal(SquareName(63), "h8")
	is.Equal(ParseSquare("a1"), 0)
	is.Equal(ParseSquare("h8"), 63)
	is.Equal(ParseSquare("i9"), -1)
	is.Equal(ParseSquare("e"), -1)
}

func TestPopLsb(t *testing.T) {
	is := is.New(t)
	b := Bit(3) | Bit(17) | Bit(60)
	is.Equal(b.Count(), 3)
	is.Equal(b.PopLsb(), 3)
	is.Equal(b.PopLsb(), 17)
	is.Equal(b.PopLsb(), 60)
	is.Equal(b, Bitboard(0))
}

func TestLsbMsb(t *testing.T) {
	is := is.New(t)
	b := Bit(5) | Bit(42)
	is.Equal(b.Lsb(), 5)
	is.Equal(b.Msb(), 42)
}

func TestFileRankMasks(t *testing.T) {
	is := is.New(t)
	is.Equal((FileE & Rank2).Lsb(), 12)
	is.Equal(FileA.Count(), 8)
	is.Equal(Rank8.Count(), 8)
	is.True(FileA&FileH == 0)
}
