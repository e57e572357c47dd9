package board

import (
	"testing"

	"github.com/matryer/is"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelchess/kestrel/bitboard"
)

func mustParse(t *testing.T, fen string) Board {
	t.Helper()
	b, err := ParseFEN(fen)
	require.NoError(t, err)
	return b
}

func TestParseStartPos(t *testing.T) {
	is := is.New(t)
	b := mustParse(t, FENStartPos)
	is.True(b.WhiteToMove)
	is.Equal(b.Castling, uint8(CastleWhiteKingside|CastleWhiteQueenside|CastleBlackKingside|CastleBlackQueenside))
	is.Equal(b.EpSq, int8(-1))
	is.Equal(b.Pieces[WhitePawn].Count(), 8)
	is.Equal(b.Pieces[BlackPawn].Count(), 8)
	is.Equal(b.KingSquare(White), bitboard.ParseSquare("e1"))
	is.Equal(b.KingSquare(Black), bitboard.ParseSquare("e8"))
	is.Equal(b.OccupancyAll().Count(), 32)
}

func TestParseFENErrors(t *testing.T) {
	for _, fen := range []string{
		"",
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq", // 3 fields
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNX w KQkq - 0 1", // bad piece
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR x KQkq - 0 1", // bad side
		"rnbqkbnr/pppppppp/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1",   // 7 ranks
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq z9 0 1", // bad ep
	} {
		_, err := ParseFEN(fen)
		assert.Error(t, err, "fen: %s", fen)
	}
}

func TestFENRoundTrip(t *testing.T) {
	fens := []string{
		FENStartPos,
		"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
		"8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1",
		"rnbqkbnr/ppp1p1pp/8/3pPp2/8/8/PPPP1PPP/RNBQKBNR w KQkq d6 0 3",
		"4k3/8/8/8/8/8/8/4K3 b - - 37 102",
	}
	for _, fen := range fens {
		b := mustParse(t, fen)
		assert.Equal(t, fen, b.FEN())
	}
}

func TestFENOptionalClockFields(t *testing.T) {
	is := is.New(t)
	b := mustParse(t, "4k3/8/8/8/8/8/8/4K3 w - -")
	is.Equal(b.HalfmoveClock, uint8(0))
	is.Equal(b.Fullmove, uint16(1))
}

func TestZobristStability(t *testing.T) {
	// hash(parse(fen(B))) == hash(B) for a handful of positions, and the
	// keys are stable values across runs because the seed is fixed.
	fens := []string{
		FENStartPos,
		"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
		"rnbqkbnr/ppp1p1pp/8/3pPp2/8/8/PPPP1PPP/RNBQKBNR w KQkq d6 0 3",
	}
	for _, fen := range fens {
		b := mustParse(t, fen)
		b2 := mustParse(t, b.FEN())
		assert.Equal(t, b.Hash(), b2.Hash())
	}

	w := mustParse(t, "4k3/8/8/8/8/8/8/4K3 w - - 0 1")
	bl := mustParse(t, "4k3/8/8/8/8/8/8/4K3 b - - 0 1")
	assert.NotEqual(t, w.Hash(), bl.Hash())
}

func TestMakeUnmakeRoundTrip(t *testing.T) {
	b := mustParse(t, FENStartPos)
	before := b

	m := NewMove(bitboard.ParseSquare("e2"), bitboard.ParseSquare("e4"), PromoNone, FlagDoublePush)
	u := b.Make(m)
	assert.Equal(t, int8(bitboard.ParseSquare("e3")), b.EpSq)
	assert.False(t, b.WhiteToMove)
	b.Unmake(u)
	assert.Equal(t, before, b)
}

func TestMakeEnPassant(t *testing.T) {
	is := is.New(t)
	b := mustParse(t, "rnbqkbnr/ppp1p1pp/8/3pPp2/8/8/PPPP1PPP/RNBQKBNR w KQkq d6 0 3")
	before := b
	m := NewMove(bitboard.ParseSquare("e5"), bitboard.ParseSquare("d6"), PromoNone, FlagEnPassant)
	u := b.Make(m)
	// The d5 pawn is gone, the capturing pawn landed on d6.
	is.True(!b.Pieces[BlackPawn].Has(bitboard.ParseSquare("d5")))
	is.True(b.Pieces[WhitePawn].Has(bitboard.ParseSquare("d6")))
	is.Equal(b.HalfmoveClock, uint8(0))
	b.Unmake(u)
	is.Equal(b, before)
}

func TestMakeCastle(t *testing.T) {
	is := is.New(t)
	b := mustParse(t, "r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1")
	before := b
	m := NewMove(bitboard.ParseSquare("e1"), bitboard.ParseSquare("g1"), PromoNone, FlagCastle)
	u := b.Make(m)
	is.True(b.Pieces[WhiteKing].Has(bitboard.ParseSquare("g1")))
	is.True(b.Pieces[WhiteRook].Has(bitboard.ParseSquare("f1")))
	is.True(!b.Pieces[WhiteRook].Has(bitboard.ParseSquare("h1")))
	is.Equal(b.Castling&(CastleWhiteKingside|CastleWhiteQueenside), uint8(0))
	is.Equal(b.Castling&(CastleBlackKingside|CastleBlackQueenside), uint8(CastleBlackKingside|CastleBlackQueenside))
	b.Unmake(u)
	is.Equal(b, before)

	m = NewMove(bitboard.ParseSquare("e8"), bitboard.ParseSquare("c8"), PromoNone, FlagCastle)
	b2 := mustParse(t, "r3k2r/8/8/8/8/8/8/R3K2R b KQkq - 0 1")
	b2.Make(m)
	is.True(b2.Pieces[BlackKing].Has(bitboard.ParseSquare("c8")))
	is.True(b2.Pieces[BlackRook].Has(bitboard.ParseSquare("d8")))
}

func TestMakePromotion(t *testing.T) {
	is := is.New(t)
	b := mustParse(t, "4k3/P7/8/8/8/8/8/4K3 w - - 0 1")
	before := b
	m := NewMove(bitboard.ParseSquare("a7"), bitboard.ParseSquare("a8"), PromoQueen, FlagNone)
	u := b.Make(m)
	is.True(b.Pieces[WhiteQueen].Has(bitboard.ParseSquare("a8")))
	is.Equal(b.Pieces[WhitePawn], bitboard.Bitboard(0))
	b.Unmake(u)
	is.Equal(b, before)
}

func TestCastlingRightsDecayOnRookCapture(t *testing.T) {
	// Capturing the a8 rook clears black's queenside right.
	b := mustParse(t, "r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1")
	m := NewMove(bitboard.ParseSquare("a1"), bitboard.ParseSquare("a8"), PromoNone, FlagNone)
	b.Make(m)
	assert.Equal(t, uint8(0), b.Castling&CastleBlackQueenside)
	assert.NotEqual(t, uint8(0), b.Castling&CastleBlackKingside)
	// Moving the a1 rook also cleared white's queenside right.
	assert.Equal(t, uint8(0), b.Castling&CastleWhiteQueenside)
}

func TestHalfmoveAndFullmoveClocks(t *testing.T) {
	is := is.New(t)
	b := mustParse(t, "4k3/8/8/8/8/8/8/R3K3 w - - 10 20")
	b.Make(NewMove(bitboard.ParseSquare("a1"), bitboard.ParseSquare("a2"), PromoNone, FlagNone))
	is.Equal(b.HalfmoveClock, uint8(11))
	is.Equal(b.Fullmove, uint16(20))
	b.Make(NewMove(bitboard.ParseSquare("e8"), bitboard.ParseSquare("e7"), PromoNone, FlagNone))
	is.Equal(b.Fullmove, uint16(21))
}

func TestSquareAttacked(t *testing.T) {
	b := mustParse(t, "4k3/8/8/3r4/8/8/3P4/4K3 w - - 0 1")
	// The black rook on d5 attacks d2's file up to the pawn.
	assert.True(t, b.SquareAttacked(bitboard.ParseSquare("d2"), Black))
	assert.False(t, b.SquareAttacked(bitboard.ParseSquare("e2"), Black))
	// The white pawn on d2 attacks c3 and e3.
	assert.True(t, b.SquareAttacked(bitboard.ParseSquare("c3"), White))
	assert.True(t, b.SquareAttacked(bitboard.ParseSquare("e3"), White))
	assert.False(t, b.SquareAttacked(bitboard.ParseSquare("d3"), White))
}

func TestPieceBitboardsDisjoint(t *testing.T) {
	for _, fen := range []string{FENStartPos,
		"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1"} {
		b := mustParse(t, fen)
		var union bitboard.Bitboard
		total := 0
		for p := range b.Pieces {
			union |= b.Pieces[p]
			total += b.Pieces[p].Count()
		}
		assert.Equal(t, total, union.Count(), "piece boards overlap in %s", fen)
		assert.Equal(t, union, b.OccupancyAll())
	}
}

func TestMoveStringAndParse(t *testing.T) {
	is := is.New(t)
	m := NewMove(bitboard.ParseSquare("e2"), bitboard.ParseSquare("e4"), PromoNone, FlagDoublePush)
	is.Equal(m.String(), "e2e4")
	p := NewMove(bitboard.ParseSquare("e7"), bitboard.ParseSquare("e8"), PromoQueen, FlagNone)
	is.Equal(p.String(), "e7e8q")

	parsed, ok := ParseMove("e7e8q")
	is.True(ok)
	is.True(parsed.Matches(p))

	_, ok = ParseMove("e9e8")
	is.True(!ok)
	_, ok = ParseMove("e7e8x")
	is.True(!ok)
	is.Equal(NullMove.String(), "0000")
}
