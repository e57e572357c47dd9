package bitboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKnightAttacks(t *testing.T) {
	// Knight on d4 reaches 8 squares, on a1 only 2.
	assert.Equal(t, 8, KnightAttacks[ParseSquare("d4")].Count())
	assert.Equal(t, 2, KnightAttacks[ParseSquare("a1")].Count())
	assert.True(t, KnightAttacks[ParseSquare("a1")].Has(ParseSquare("b3")))
	assert.True(t, KnightAttacks[ParseSquare("a1")].Has(ParseSquare("c2")))
}

func TestKingAttacks(t *testing.T) {
	assert.Equal(t, 8, KingAttacks[ParseSquare("e4")].Count())
	assert.Equal(t, 3, KingAttacks[ParseSquare("a1")].Count())
	assert.Equal(t, 5, KingAttacks[ParseSquare("e1")].Count())
}

func TestPawnAttacks(t *testing.T) {
	e4 := ParseSquare("e4")
	assert.True(t, PawnAttacksWhite[e4].Has(ParseSquare("d5")))
	assert.True(t, PawnAttacksWhite[e4].Has(ParseSquare("f5")))
	assert.Equal(t, 2, PawnAttacksWhite[e4].Count())
	assert.True(t, PawnAttacksBlack[e4].Has(ParseSquare("d3")))
	assert.True(t, PawnAttacksBlack[e4].Has(ParseSquare("f3")))
	// Edge files have a single capture target.
	assert.Equal(t, 1, PawnAttacksWhite[ParseSquare("a2")].Count())
	assert.Equal(t, 1, PawnAttacksBlack[ParseSquare("h7")].Count())
}

func TestRayTables(t *testing.T) {
	e4 := ParseSquare("e4")
	// North ray from e4: e5..e8.
	north := RayAttacks[DirN][e4]
	assert.Equal(t, 4, north.Count())
	assert.True(t, north.Has(ParseSquare("e8")))
	assert.False(t, north.Has(e4))
	// Rays never wrap around files.
	assert.Equal(t, Bitboard(0), RayAttacks[DirW][ParseSquare("a4")])
	assert.Equal(t, Bitboard(0), RayAttacks[DirNE][ParseSquare("h5")])
}

func TestSliderAttacksEmptyBoard(t *testing.T) {
	d4 := ParseSquare("d4")
	assert.Equal(t, 14, RookAttacks(d4, 0).Count())
	assert.Equal(t, 13, BishopAttacks(d4, 0).Count())
	assert.Equal(t, 27, QueenAttacks(d4, 0).Count())
}

func TestSliderAttacksBlockers(t *testing.T) {
	d4 := ParseSquare("d4")
	occ := Bit(ParseSquare("d6")) | Bit(ParseSquare("f4"))
	r := RookAttacks(d4, occ)
	// Blockers stay in the attack set; squares past them do not.
	assert.True(t, r.Has(ParseSquare("d6")))
	assert.False(t, r.Has(ParseSquare("d7")))
	assert.True(t, r.Has(ParseSquare("f4")))
	assert.False(t, r.Has(ParseSquare("g4")))
	assert.True(t, r.Has(ParseSquare("d1")))
	assert.True(t, r.Has(ParseSquare("a4")))

	occ = Bit(ParseSquare("b2"))
	b := BishopAttacks(d4, occ)
	assert.True(t, b.Has(ParseSquare("b2")))
	assert.False(t, b.Has(ParseSquare("a1")))
	assert.True(t, b.Has(ParseSquare("h8")))
}
