package board

import "github.com/kestrelchess/kestrel/bitboard"

// Move packs from, to, promotion and a flag tag into one word.
// Bits 0-5 from, 6-11 to, 12-14 promotion code, 15-16 flag.
type Move uint32

// Promotion codes.
const (
	PromoNone = iota
	PromoKnight
	PromoBishop
	PromoRook
	PromoQueen
)

// MoveFlag tags. The tags are mutually exclusive.
type MoveFlag uint32

const (
	FlagNone MoveFlag = iota
	FlagDoublePush
	FlagEnPassant
	FlagCastle
)

// NullMove is the sentinel returned when no legal move exists.
const NullMove Move = 0

// NewMove builds a move.
func NewMove(from, to, promo int, flag MoveFlag) Move {
	return Move(from) | Move(to)<<6 | Move(promo)<<12 | Move(flag)<<15
}

func (m Move) From() int         { return int(m & 0x3F) }
func (m Move) To() int           { return int(m>>6) & 0x3F }
func (m Move) Promotion() int    { return int(m>>12) & 0x7 }
func (m Move) Flag() MoveFlag    { return MoveFlag(m>>15) & 0x3 }
func (m Move) IsPromotion() bool { return m.Promotion() != PromoNone }

var promoLetters = [5]byte{0, 'n', 'b', 'r', 'q'}

// String returns the UCI long-algebraic form, e.g. "e2e4" or "e7e8q".
// Castling is the king's two-square move.
func (m Move) String() string {
	if m == NullMove {
		return "0000"
	}
	s := bitboard.SquareName(m.From()) + bitboard.SquareName(m.To())
	if m.IsPromotion() {
		s += string(promoLetters[m.Promotion()])
	}
	return s
}

// ParseMove parses UCI long algebraic ("e2e4", "e7e8q") into a move with
// no flag bits; the caller matches it against generated moves to recover
// the flag. Returns NullMove and false on malformed input.
func ParseMove(s string) (Move, bool) {
	if len(s) != 4 && len(s) != 5 {
		return NullMove, false
	}
	from := bitboard.ParseSquare(s[:2])
	to := bitboard.ParseSquare(s[2:4])
	if from < 0 || to < 0 {
		return NullMove, false
	}
	promo := PromoNone
	if len(s) == 5 {
		switch s[4] {
		case 'n':
			promo = PromoKnight
		case 'b':
			promo = PromoBishop
		case 'r':
			promo = PromoRook
		case 'q':
			promo = PromoQueen
		default:
			return NullMove, false
		}
	}
	return NewMove(from, to, promo, FlagNone), true
}

// Matches reports whether two moves agree on from, to and promotion,
// ignoring flags. Used to match parsed UCI moves against generated ones.
func (m Move) Matches(o Move) bool {
	return m.From() == o.From() && m.To() == o.To() && m.Promotion() == o.Promotion()
}
