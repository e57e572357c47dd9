// Package bitboard provides 64-bit board occupancy primitives and the
// precomputed attack tables used by move generation and attack queries.
package bitboard

import "math/bits"

// A Bitboard has bit k set iff square k is occupied. Square 0 is a1,
// square 7 is h1, square 56 is a8, square 63 is h8.
type Bitboard uint64

const (
	FileA Bitboard = 0x0101010101010101 << iota
	FileB
	FileC
	FileD
	FileE
	FileF
	FileG
	FileH
)

const (
	Rank1 Bitboard = 0x00000000000000FF << (8 * iota)
	Rank2
	Rank3
	Rank4
	Rank5
	Rank6
	Rank7
	Rank8
)

// FileOf returns the file (0=a .. 7=h) of a square.
func FileOf(sq int) int { return sq & 7 }

// RankOf returns the rank (0=rank 1 .. 7=rank 8) of a square.
func RankOf(sq int) int { return sq >> 3 }

// Square builds a square index from file and rank.
func Square(file, rank int) int { return rank*8 + file }

// Bit returns a bitboard with only sq set.
func Bit(sq int) Bitboard { return 1 << uint(sq) }

// Lsb returns the index of the lowest set bit. b must be nonzero.
func (b Bitboard) Lsb() int { return bits.TrailingZeros64(uint64(b)) }

// Msb returns the index of the highest set bit. b must be nonzero.
func (b Bitboard) Msb() int { return 63 - bits.LeadingZeros64(uint64(b)) }

// Count returns the number of set bits.
func (b Bitboard) Count() int { return bits.OnesCount64(uint64(b)) }

// PopLsb clears and returns the index of the lowest set bit.
func (b *Bitboard) PopLsb() int {
	sq := b.Lsb()
	*b &= *b - 1
	return sq
}

// Has reports whether sq is set.
func (b Bitboard) Has(sq int) bool { return b&Bit(sq) != 0 }

// SquareName returns the algebraic name ("e4") of a square.
func SquareName(sq int) string {
	return string([]byte{byte('a' + FileOf(sq)), byte('1' + RankOf(sq))})
}

// ParseSquare converts an algebraic square name back to its index, or -1
// if the name is malformed.
func ParseSquare(s string) int {
	if len(s) != 2 || s[0] < 'a' || s[0] > 'h' || s[1] < '1' || s[1] > '8' {
		return -1
	}
	return Square(int(s[0]-'a'), int(s[1]-'1'))
}
