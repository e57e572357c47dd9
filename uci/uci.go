// Package uci speaks the UCI line protocol on stdin/stdout and drives
// the engine: position setup, search dispatch, option handling.
package uci

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/kestrelchess/kestrel/board"
	"github.com/kestrelchess/kestrel/config"
	"github.com/kestrelchess/kestrel/game"
	"github.com/kestrelchess/kestrel/mcts"
	"github.com/kestrelchess/kestrel/movegen"
	"github.com/kestrelchess/kestrel/nneval"
)

const (
	engineName   = "Kestrel"
	engineAuthor = "the Kestrel authors"

	// Budget slack for wtime/btime searches: part of the increment is
	// banked and a fixed overhead is reserved for move transmission.
	incrementFactor  = 0.8
	moveOverheadMs   = 50
	defaultMovesToGo = 30
)

// EvaluatorFactory builds the evaluator for a fresh engine. Separated so
// tests can avoid loading a real network.
type EvaluatorFactory func(*config.Config) (mcts.Evaluator, error)

// Shell runs the UCI loop.
type Shell struct {
	cfg        *config.Config
	newEval    EvaluatorFactory
	in         io.Reader
	outMu      sync.Mutex
	out        io.Writer
	evaluator  mcts.Evaluator
	searcher   *mcts.Searcher
	state      *game.State
	searchWG   sync.WaitGroup
	searchStop context.CancelFunc
}

// NewShell wires a shell over the given streams. The evaluator is built
// lazily on the first search or "isready", so a bad network path fails
// loudly but does not break protocol startup.
func NewShell(cfg *config.Config, factory EvaluatorFactory, in io.Reader, out io.Writer) *Shell {
	s := &Shell{
		cfg:     cfg,
		newEval: factory,
		in:      in,
		out:     out,
	}
	st, err := game.NewStartState()
	if err != nil {
		panic(err) // the startpos FEN is a constant
	}
	s.state = st
	return s
}

func (s *Shell) println(args ...interface{}) {
	s.outMu.Lock()
	fmt.Fprintln(s.out, args...)
	s.outMu.Unlock()
}

func (s *Shell) printf(format string, args ...interface{}) {
	s.outMu.Lock()
	fmt.Fprintf(s.out, format, args...)
	s.outMu.Unlock()
}

// ensureEngine builds the evaluator and searcher on first use.
func (s *Shell) ensureEngine() error {
	if s.searcher != nil {
		return nil
	}
	ev, err := s.newEval(s.cfg)
	if err != nil {
		return err
	}
	s.evaluator = ev
	s.searcher = mcts.NewSearcher(s.cfg, ev)
	return nil
}

// Run processes commands until "quit" or EOF. The exit error is nil on a
// clean shutdown.
func (s *Shell) Run() error {
	scanner := bufio.NewScanner(s.in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		tokens := strings.Fields(line)
		if len(tokens) == 0 {
			continue
		}
		switch strings.ToLower(tokens[0]) {
		case "uci":
			s.println("id name " + engineName)
			s.println("id author " + engineAuthor)
			s.printf("option name Threads type spin default %d min 1 max 256\n", s.cfg.GetInt(config.ConfigThreads))
			s.printf("option name UseGPU type check default %v\n", s.cfg.GetBool(config.ConfigUseGPU))
			s.printf("option name CPuct type spin default %d min 1 max 100\n", s.cfg.GetInt(config.ConfigCPuct))
			s.printf("option name VisitLimit type spin default %d min 1 max 10000000\n", s.cfg.GetInt(config.ConfigVisitLimit))
			s.println("uciok")
		case "isready":
			if err := s.ensureEngine(); err != nil {
				log.Err(err).Msg("engine-construction-failed")
				return err
			}
			s.println("readyok")
		case "ucinewgame":
			s.stopSearch()
			// A new game gets a fresh engine, built on the next isready or
			// go; the network template stays in the process-wide cache.
			if ev, ok := s.evaluator.(*nneval.Evaluator); ok {
				ev.Close()
			}
			s.evaluator = nil
			s.searcher = nil
			st, _ := game.NewStartState()
			s.state = st
		case "position":
			s.stopSearch()
			s.handlePosition(tokens[1:])
		case "go":
			if err := s.ensureEngine(); err != nil {
				log.Err(err).Msg("engine-construction-failed")
				return err
			}
			s.stopSearch()
			s.handleGo(tokens[1:])
		case "stop", "ponderhit":
			s.stopSearch()
		case "setoption":
			s.handleSetOption(tokens[1:])
		case "quit":
			s.stopSearch()
			return nil
		default:
			// Unknown commands are ignored, per UCI convention.
			log.Debug().Str("line", line).Msg("ignoring unknown command")
		}
	}
	s.stopSearch()
	return scanner.Err()
}

// handlePosition parses "startpos | fen <FEN>" plus an optional move
// list. A malformed FEN leaves the current state untouched; an illegal
// move in the list is skipped and replay continues.
func (s *Shell) handlePosition(tokens []string) {
	if len(tokens) == 0 {
		return
	}

	var b board.Board
	var err error
	movesAt := -1

	switch strings.ToLower(tokens[0]) {
	case "startpos":
		b, _ = board.ParseFEN(board.FENStartPos)
		for i, tok := range tokens {
			if strings.ToLower(tok) == "moves" {
				movesAt = i
				break
			}
		}
	case "fen":
		fenEnd := len(tokens)
		for i, tok := range tokens[1:] {
			if strings.ToLower(tok) == "moves" {
				fenEnd = i + 1
				movesAt = i + 1
				break
			}
		}
		b, err = board.ParseFEN(strings.Join(tokens[1:fenEnd], " "))
		if err != nil {
			log.Err(err).Msg("ignoring position command")
			return
		}
	default:
		log.Debug().Str("subcommand", tokens[0]).Msg("invalid position subcommand")
		return
	}

	st := game.NewState(b)
	if movesAt >= 0 {
		for _, moveStr := range tokens[movesAt+1:] {
			parsed, ok := board.ParseMove(strings.ToLower(moveStr))
			if !ok {
				log.Debug().Str("move", moveStr).Msg("skipping unparseable move")
				continue
			}
			m, ok := movegen.FindMove(&st.Board, parsed)
			if !ok {
				log.Debug().Str("move", moveStr).Msg("skipping illegal move")
				continue
			}
			st.ApplyMove(m)
		}
	}
	s.state = st
	if s.searcher != nil {
		s.searcher.Clear()
	}
}

type goParams struct {
	movetime  int
	wtime     int
	btime     int
	winc      int
	binc      int
	movestogo int
	visits    int
	perft     int
	infinite  bool
}

func parseGoParams(tokens []string) goParams {
	var p goParams
	for i := 0; i < len(tokens); i++ {
		readInt := func() int {
			if i+1 < len(tokens) {
				i++
				n, err := strconv.Atoi(tokens[i])
				if err == nil {
					return n
				}
			}
			return 0
		}
		switch strings.ToLower(tokens[i]) {
		case "movetime":
			p.movetime = readInt()
		case "wtime":
			p.wtime = readInt()
		case "btime":
			p.btime = readInt()
		case "winc":
			p.winc = readInt()
		case "binc":
			p.binc = readInt()
		case "movestogo":
			p.movestogo = readInt()
		case "visits", "nodes":
			p.visits = readInt()
		case "perft":
			p.perft = readInt()
		case "infinite":
			p.infinite = true
		}
	}
	return p
}

// clockBudget converts remaining clock time into a per-move budget.
func clockBudget(remaining, inc, movestogo int) time.Duration {
	if movestogo <= 0 {
		movestogo = defaultMovesToGo
	}
	ms := float64(remaining)/(float64(movestogo)+2.5) + float64(inc)*incrementFactor - moveOverheadMs
	if ms < 10 {
		ms = 10
	}
	return time.Duration(ms) * time.Millisecond
}

func (s *Shell) handleGo(tokens []string) {
	p := parseGoParams(tokens)

	if p.perft > 0 {
		start := time.Now()
		nodes := movegen.Perft(&s.state.Board, p.perft)
		elapsed := time.Since(start)
		s.printf("info string perft(%d) = %d (%.0f nps)\n", p.perft, nodes,
			float64(nodes)/elapsed.Seconds())
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.searchStop = cancel
	root := s.state.Clone()

	s.searchWG.Add(1)
	go func() {
		defer s.searchWG.Done()
		defer cancel()

		// Periodic progress lines while the search runs.
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		tickerDone := make(chan struct{})
		defer close(tickerDone)
		go func() {
			for {
				select {
				case <-ticker.C:
					s.emitInfo()
				case <-tickerDone:
					return
				}
			}
		}()

		var best board.Move
		var err error
		switch {
		case p.movetime > 0:
			best, err = s.searcher.SearchTimed(ctx, root, time.Duration(p.movetime)*time.Millisecond)
		case p.wtime > 0 || p.btime > 0:
			remaining, inc := p.wtime, p.winc
			if !root.Board.WhiteToMove {
				remaining, inc = p.btime, p.binc
			}
			best, err = s.searcher.SearchTimed(ctx, root, clockBudget(remaining, inc, p.movestogo))
		case p.infinite:
			best, err = s.searcher.SearchTimed(ctx, root, 24*time.Hour)
		default:
			visits := p.visits
			limit := s.cfg.GetInt(config.ConfigVisitLimit)
			if visits <= 0 || visits > limit {
				visits = limit
			}
			best, err = s.searcher.SearchVisits(ctx, root, visits)
		}
		if err != nil {
			log.Err(err).Msg("search-failed")
			s.println("bestmove 0000")
			return
		}
		s.emitInfo()
		s.println("bestmove " + best.String())
	}()
}

func (s *Shell) emitInfo() {
	info := s.searcher.CurrentInfo()
	pv := make([]string, len(info.PV))
	for i, m := range info.PV {
		pv[i] = m.String()
	}
	s.printf("info nodes %d nps %.0f score cp %d time %d pv %s\n",
		info.Simulations, info.NPS, int(info.Value*100),
		info.Elapsed.Milliseconds(), strings.Join(pv, " "))
}

// stopSearch cancels any running search and waits for its bestmove.
func (s *Shell) stopSearch() {
	if s.searchStop != nil {
		s.searchStop()
	}
	s.searchWG.Wait()
	s.searchStop = nil
}

func (s *Shell) handleSetOption(tokens []string) {
	// setoption name <id> [value <x>]
	var name, value string
	for i := 0; i < len(tokens); i++ {
		switch strings.ToLower(tokens[i]) {
		case "name":
			if i+1 < len(tokens) {
				name = tokens[i+1]
			}
		case "value":
			if i+1 < len(tokens) {
				value = tokens[i+1]
			}
		}
	}
	switch strings.ToLower(name) {
	case "threads":
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			s.cfg.Set(config.ConfigThreads, n)
		}
	case "usegpu":
		s.cfg.Set(config.ConfigUseGPU, strings.EqualFold(value, "true"))
	case "cpuct":
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			s.cfg.Set(config.ConfigCPuct, n)
		}
	case "visitlimit":
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			s.cfg.Set(config.ConfigVisitLimit, n)
		}
	default:
		log.Debug().Str("option", name).Msg("ignoring unknown option")
	}
}
