// Package shell provides an interactive analysis console on top of the
// engine: set positions, run searches, inspect perft counts.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/kballard/go-shellquote"
	"github.com/rs/zerolog/log"

	"github.com/kestrelchess/kestrel/board"
	"github.com/kestrelchess/kestrel/config"
	"github.com/kestrelchess/kestrel/game"
	"github.com/kestrelchess/kestrel/mcts"
	"github.com/kestrelchess/kestrel/movegen"
)

func filterInput(r rune) (rune, bool) {
	switch r {
	// block CtrlZ feature
	case readline.CharCtrlZ:
		return r, false
	}
	return r, true
}

func showMessage(msg string, w io.Writer) {
	io.WriteString(w, msg)
	io.WriteString(w, "\n")
}

func usage(w io.Writer) {
	io.WriteString(w, "commands:\n")
	io.WriteString(w, "position startpos [moves ...] | position fen <FEN> [moves ...]\n")
	io.WriteString(w, "go [visits n | movetime ms] - search the current position\n")
	io.WriteString(w, "perft <depth> - count legal move tree leaves, per root move\n")
	io.WriteString(w, "show - print the current position\n")
	io.WriteString(w, "set <option> <value> - set threads, cpuct, visit-limit\n")
	io.WriteString(w, "exit\n")
}

// Controller drives the interactive analysis loop.
type Controller struct {
	l *readline.Instance

	cfg      *config.Config
	searcher *mcts.Searcher
	state    *game.State
}

// NewController builds a shell around an evaluator-backed searcher.
func NewController(cfg *config.Config, evaluator mcts.Evaluator) *Controller {
	l, err := readline.NewEx(&readline.Config{
		Prompt:          "\033[31mkestrel>\033[0m ",
		HistoryFile:     "/tmp/kestrel-readline.tmp",
		EOFPrompt:       "exit",
		InterruptPrompt: "^C",

		HistorySearchFold:   true,
		FuncFilterInputRune: filterInput,
	})
	if err != nil {
		panic(err)
	}
	st, err := game.NewStartState()
	if err != nil {
		panic(err)
	}
	return &Controller{
		l:        l,
		cfg:      cfg,
		searcher: mcts.NewSearcher(cfg, evaluator),
		state:    st,
	}
}

// Loop reads and executes commands until exit or EOF.
func (c *Controller) Loop() {
	defer c.l.Close()
	for {
		line, err := c.l.Readline()
		if err == readline.ErrInterrupt {
			continue
		} else if err == io.EOF {
			break
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}
		if err := c.execute(line); err != nil {
			showMessage("error: "+err.Error(), c.l.Stderr())
		}
	}
}

func (c *Controller) execute(line string) error {
	fields, err := shellquote.Split(line)
	if err != nil {
		return err
	}
	if len(fields) == 0 {
		return nil
	}
	switch fields[0] {
	case "help":
		usage(c.l.Stderr())
		return nil
	case "position":
		return c.handlePosition(fields[1:])
	case "go":
		return c.handleGo(fields[1:])
	case "perft":
		return c.handlePerft(fields[1:])
	case "show":
		showMessage(c.state.Board.String(), c.l.Stdout())
		showMessage("fen: "+c.state.Board.FEN(), c.l.Stdout())
		return nil
	case "set":
		return c.handleSet(fields[1:])
	default:
		return fmt.Errorf("unknown command %q; try help", fields[0])
	}
}

func (c *Controller) handlePosition(args []string) error {
	if len(args) == 0 {
		return errors.New("position needs startpos or fen")
	}
	var b board.Board
	var err error
	rest := args[1:]

	switch args[0] {
	case "startpos":
		b, _ = board.ParseFEN(board.FENStartPos)
	case "fen":
		fenFields := rest
		for i, tok := range rest {
			if tok == "moves" {
				fenFields = rest[:i]
				break
			}
		}
		b, err = board.ParseFEN(strings.Join(fenFields, " "))
		if err != nil {
			return err
		}
		rest = rest[len(fenFields):]
	default:
		return fmt.Errorf("bad position subcommand %q", args[0])
	}

	st := game.NewState(b)
	if len(rest) > 0 && rest[0] == "moves" {
		for _, moveStr := range rest[1:] {
			parsed, ok := board.ParseMove(strings.ToLower(moveStr))
			if !ok {
				return fmt.Errorf("unparseable move %q", moveStr)
			}
			m, ok := movegen.FindMove(&st.Board, parsed)
			if !ok {
				return fmt.Errorf("illegal move %q", moveStr)
			}
			st.ApplyMove(m)
		}
	}
	c.state = st
	c.searcher.Clear()
	return nil
}

func (c *Controller) handleGo(args []string) error {
	visits := c.cfg.GetInt(config.ConfigVisitLimit)
	var budget time.Duration
	for i := 0; i+1 < len(args); i += 2 {
		n, err := strconv.Atoi(args[i+1])
		if err != nil {
			return fmt.Errorf("bad %s value %q", args[i], args[i+1])
		}
		switch args[i] {
		case "visits":
			visits = n
		case "movetime":
			budget = time.Duration(n) * time.Millisecond
		default:
			return fmt.Errorf("unknown go option %q", args[i])
		}
	}

	start := time.Now()
	var best board.Move
	var err error
	if budget > 0 {
		best, err = c.searcher.SearchTimed(context.Background(), c.state.Clone(), budget)
	} else {
		best, err = c.searcher.SearchVisits(context.Background(), c.state.Clone(), visits)
	}
	if err != nil {
		return err
	}

	info := c.searcher.CurrentInfo()
	pv := make([]string, len(info.PV))
	for i, m := range info.PV {
		pv[i] = m.String()
	}
	showMessage(fmt.Sprintf("best %s  value %.3f±%.3f  sims %d  nps %.0f  pv %s",
		best, info.Value, info.ValueStdev, info.Simulations,
		float64(info.Simulations)/time.Since(start).Seconds(),
		strings.Join(pv, " ")), c.l.Stdout())
	return nil
}

func (c *Controller) handlePerft(args []string) error {
	if len(args) != 1 {
		return errors.New("perft needs a depth")
	}
	depth, err := strconv.Atoi(args[0])
	if err != nil || depth < 1 {
		return fmt.Errorf("bad perft depth %q", args[0])
	}

	start := time.Now()
	divide := movegen.PerftDivide(&c.state.Board, depth)
	elapsed := time.Since(start)

	moves := make([]string, 0, len(divide))
	for m := range divide {
		moves = append(moves, m)
	}
	sort.Strings(moves)
	var total uint64
	for _, m := range moves {
		showMessage(fmt.Sprintf("%s: %d", m, divide[m]), c.l.Stdout())
		total += divide[m]
	}
	showMessage(fmt.Sprintf("total %d in %v (%.0f nps)", total, elapsed,
		float64(total)/elapsed.Seconds()), c.l.Stdout())
	return nil
}

func (c *Controller) handleSet(args []string) error {
	if len(args) != 2 {
		return errors.New("set needs an option and a value")
	}
	n, err := strconv.Atoi(args[1])
	if err != nil || n < 1 {
		return fmt.Errorf("bad value %q", args[1])
	}
	switch args[0] {
	case "threads":
		c.cfg.Set(config.ConfigThreads, n)
	case "cpuct":
		c.cfg.Set(config.ConfigCPuct, n)
	case "visit-limit":
		c.cfg.Set(config.ConfigVisitLimit, n)
	default:
		return fmt.Errorf("unknown option %q", args[0])
	}
	log.Debug().Str("option", args[0]).Int("value", n).Msg("option-set")
	return nil
}
