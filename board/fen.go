package board

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kestrelchess/kestrel/bitboard"
)

// FENStartPos is the standard initial position.
const FENStartPos = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// ParseFEN parses a six-field FEN string. The halfmove clock and fullmove
// number fields are optional and default to 0 and 1.
func ParseFEN(fen string) (Board, error) {
	var b Board
	b.EpSq = -1
	b.Fullmove = 1

	fields := strings.Fields(fen)
	if len(fields) < 4 {
		return b, fmt.Errorf("fen %q: expected at least 4 fields, got %d", fen, len(fields))
	}

	ranks := strings.Split(fields[0], "/")
	if len(ranks) != 8 {
		return b, fmt.Errorf("fen %q: expected 8 ranks, got %d", fen, len(ranks))
	}
	for ri, rankStr := range ranks {
		r := 7 - ri
		f := 0
		for _, c := range rankStr {
			if c >= '1' && c <= '8' {
				f += int(c - '0')
				continue
			}
			p := strings.IndexRune(pieceChars, c)
			if p < 0 || f > 7 {
				return b, fmt.Errorf("fen %q: bad piece placement %q", fen, rankStr)
			}
			b.Pieces[p] |= bitboard.Bit(bitboard.Square(f, r))
			f++
		}
		if f != 8 {
			return b, fmt.Errorf("fen %q: rank %q does not span 8 files", fen, rankStr)
		}
	}

	switch fields[1] {
	case "w":
		b.WhiteToMove = true
	case "b":
		b.WhiteToMove = false
	default:
		return b, fmt.Errorf("fen %q: bad side to move %q", fen, fields[1])
	}

	if fields[2] != "-" {
		for _, c := range fields[2] {
			switch c {
			case 'K':
				b.Castling |= CastleWhiteKingside
			case 'Q':
				b.Castling |= CastleWhiteQueenside
			case 'k':
				b.Castling |= CastleBlackKingside
			case 'q':
				b.Castling |= CastleBlackQueenside
			default:
				return b, fmt.Errorf("fen %q: bad castling field %q", fen, fields[2])
			}
		}
	}

	if fields[3] != "-" {
		sq := bitboard.ParseSquare(fields[3])
		if sq < 0 {
			return b, fmt.Errorf("fen %q: bad en-passant square %q", fen, fields[3])
		}
		b.EpSq = int8(sq)
	}

	if len(fields) > 4 {
		hm, err := strconv.Atoi(fields[4])
		if err != nil || hm < 0 {
			return b, fmt.Errorf("fen %q: bad halfmove clock %q", fen, fields[4])
		}
		b.HalfmoveClock = uint8(hm)
	}
	if len(fields) > 5 {
		fm, err := strconv.Atoi(fields[5])
		if err != nil || fm < 1 {
			return b, fmt.Errorf("fen %q: bad fullmove number %q", fen, fields[5])
		}
		b.Fullmove = uint16(fm)
	}
	return b, nil
}

// FEN serializes the position.
func (b *Board) FEN() string {
	var sb strings.Builder
	for r := 7; r >= 0; r-- {
		empty := 0
		for f := 0; f < 8; f++ {
			p := b.PieceAt(bitboard.Square(f, r))
			if p == NoPiece {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteByte(byte('0' + empty))
				empty = 0
			}
			sb.WriteByte(pieceChars[p])
		}
		if empty > 0 {
			sb.WriteByte(byte('0' + empty))
		}
		if r > 0 {
			sb.WriteByte('/')
		}
	}

	if b.WhiteToMove {
		sb.WriteString(" w ")
	} else {
		sb.WriteString(" b ")
	}

	if b.Castling == 0 {
		sb.WriteByte('-')
	} else {
		for i, c := range []byte("KQkq") {
			if b.Castling&(1<<uint(i)) != 0 {
				sb.WriteByte(c)
			}
		}
	}

	sb.WriteByte(' ')
	if b.EpSq < 0 {
		sb.WriteByte('-')
	} else {
		sb.WriteString(bitboard.SquareName(int(b.EpSq)))
	}

	fmt.Fprintf(&sb, " %d %d", b.HalfmoveClock, b.Fullmove)
	return sb.String()
}
