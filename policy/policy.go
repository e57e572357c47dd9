// Package policy maps chess moves to the 1,858-slot output index of the
// neural policy head and back.
//
// The slot table is generated at startup from move geometry: for every
// origin square, each queen-ray or knight destination claims one slot
// (1,792 in all), and each pawn step from the seventh to the eighth rank
// claims three more for the knight, bishop and rook under-promotions
// (66 in all). A queen promotion shares the slot of the plain from/to
// move; decoding disambiguates it from the board, since a pawn arriving
// on the back rank must promote. The codec always works in the mover's
// frame: black moves are rank-mirrored (sq ^ 56) before lookup.
package policy

import (
	"github.com/kestrelchess/kestrel/bitboard"
	"github.com/kestrelchess/kestrel/board"
)

// NumMoveSlots is the size of the policy head output.
const NumMoveSlots = 1858

// NoIndex is returned for a move without a policy slot.
const NoIndex = -1

type slotMove struct {
	from, to int8
	promo    int8 // PromoNone for queen-geometry slots
}

var (
	slotTable [NumMoveSlots]slotMove
	plainIdx  [64][64]int16
	underIdx  [64][64][3]int16 // promo index - PromoKnight
)

func init() {
	for from := range plainIdx {
		for to := range plainIdx[from] {
			plainIdx[from][to] = NoIndex
			for p := range underIdx[from][to] {
				underIdx[from][to][p] = NoIndex
			}
		}
	}

	idx := int16(0)
	for from := 0; from < 64; from++ {
		dests := bitboard.QueenAttacks(from, 0) | bitboard.KnightAttacks[from]
		for dests != 0 {
			to := dests.PopLsb()
			plainIdx[from][to] = idx
			slotTable[idx] = slotMove{from: int8(from), to: int8(to), promo: board.PromoNone}
			idx++
		}
	}
	for fromFile := 0; fromFile < 8; fromFile++ {
		from := bitboard.Square(fromFile, 6)
		for delta := -1; delta <= 1; delta++ {
			toFile := fromFile + delta
			if toFile < 0 || toFile > 7 {
				continue
			}
			to := bitboard.Square(toFile, 7)
			for p := 0; p < 3; p++ {
				underIdx[from][to][p] = idx
				slotTable[idx] = slotMove{from: int8(from), to: int8(to), promo: int8(board.PromoKnight + p)}
				idx++
			}
		}
	}
	if idx != NumMoveSlots {
		panic("policy: slot table does not cover exactly 1858 moves")
	}
}

func mirrorSq(sq int) int { return sq ^ 56 }

// Index returns the policy slot for a move made by the given side, or
// NoIndex if the move has no slot. All standard chess moves have one.
func Index(m board.Move, whiteToMove bool) int {
	from, to := m.From(), m.To()
	if !whiteToMove {
		from, to = mirrorSq(from), mirrorSq(to)
	}
	switch m.Promotion() {
	case board.PromoNone, board.PromoQueen:
		return int(plainIdx[from][to])
	default:
		return int(underIdx[from][to][m.Promotion()-board.PromoKnight])
	}
}

// Decode converts a policy slot back to the move it denotes on b,
// reconstructing the promotion and flag bits from the position. It does
// not check legality. Returns false for an out-of-range index.
func Decode(b *board.Board, idx int) (board.Move, bool) {
	if idx < 0 || idx >= NumMoveSlots {
		return board.NullMove, false
	}
	s := slotTable[idx]
	from, to, promo := int(s.from), int(s.to), int(s.promo)
	if !b.WhiteToMove {
		from, to = mirrorSq(from), mirrorSq(to)
	}

	us := b.SideToMove()
	isPawn := b.Pieces[board.PieceBase(us)+board.WhitePawn].Has(from)
	flag := board.FlagNone

	if isPawn {
		toRank := bitboard.RankOf(to)
		if promo == board.PromoNone && (toRank == 0 || toRank == 7) {
			promo = board.PromoQueen
		}
		switch {
		case to-from == 16 || from-to == 16:
			flag = board.FlagDoublePush
		case int(b.EpSq) == to && bitboard.FileOf(from) != bitboard.FileOf(to):
			flag = board.FlagEnPassant
		}
	} else if b.Pieces[board.PieceBase(us)+board.WhiteKing].Has(from) {
		df := bitboard.FileOf(to) - bitboard.FileOf(from)
		if df == 2 || df == -2 {
			flag = board.FlagCastle
		}
	}
	return board.NewMove(from, to, promo, flag), true
}
