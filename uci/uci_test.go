package uci

import (
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelchess/kestrel/config"
	"github.com/kestrelchess/kestrel/game"
	"github.com/kestrelchess/kestrel/mcts"
	"github.com/kestrelchess/kestrel/nneval"
	"github.com/kestrelchess/kestrel/policy"
)

type uniformEvaluator struct{}

func (uniformEvaluator) Evaluate(*game.State) (nneval.Evaluation, error) {
	pol := make([]float32, policy.NumMoveSlots)
	for i := range pol {
		pol[i] = 1.0 / float32(policy.NumMoveSlots)
	}
	return nneval.Evaluation{Value: 0, Policy: pol}, nil
}

func stubFactory(*config.Config) (mcts.Evaluator, error) {
	return uniformEvaluator{}, nil
}

func runScript(t *testing.T, script string) string {
	t.Helper()
	cfg := config.New()
	cfg.Set(config.ConfigThreads, 1)
	cfg.Set(config.ConfigVisitLimit, 64)

	var out strings.Builder
	sh := NewShell(cfg, stubFactory, strings.NewReader(script), &syncWriter{sb: &out})
	require.NoError(t, sh.Run())
	return out.String()
}

// syncWriter serializes writes from the search goroutine and the main
// loop for test inspection.
type syncWriter struct {
	mu sync.Mutex
	sb *strings.Builder
}

func (w *syncWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.sb.Write(p)
}

func TestUciHandshake(t *testing.T) {
	out := runScript(t, "uci\nquit\n")
	assert.Contains(t, out, "id name Kestrel")
	assert.Contains(t, out, "id author")
	assert.Contains(t, out, "option name Threads")
	assert.Contains(t, out, "option name UseGPU")
	assert.Contains(t, out, "option name CPuct")
	assert.Contains(t, out, "option name VisitLimit")
	assert.Contains(t, out, "uciok")
}

func TestIsReady(t *testing.T) {
	out := runScript(t, "isready\nquit\n")
	assert.Contains(t, out, "readyok")
}

func TestGoVisitsEmitsBestmove(t *testing.T) {
	out := runScript(t, "position startpos\ngo visits 32\nquit\n")
	assert.Contains(t, out, "bestmove ")
	assert.Contains(t, out, "info ")
	// The bestmove must be a plausible UCI move, not the null sentinel.
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "bestmove ") {
			mv := strings.TrimPrefix(line, "bestmove ")
			assert.NotEqual(t, "0000", mv)
			assert.GreaterOrEqual(t, len(mv), 4)
		}
	}
}

func TestPositionWithMoves(t *testing.T) {
	out := runScript(t, "position startpos moves e2e4 e7e5\ngo visits 16\nquit\n")
	assert.Contains(t, out, "bestmove ")
}

func TestPositionFEN(t *testing.T) {
	out := runScript(t,
		"position fen 8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1\ngo visits 16\nquit\n")
	assert.Contains(t, out, "bestmove ")
}

func TestMalformedFENIgnored(t *testing.T) {
	// The bogus FEN is dropped; the earlier position remains in force
	// and the search still yields a move.
	out := runScript(t,
		"position startpos\nposition fen banana w\ngo visits 16\nquit\n")
	assert.Contains(t, out, "bestmove ")
}

func TestIllegalMovesSkipped(t *testing.T) {
	// e2e5 is illegal and skipped; e7e5 applies against the position
	// after e2e4.
	out := runScript(t, "position startpos moves e2e4 e2e5 e7e5\ngo visits 16\nquit\n")
	assert.Contains(t, out, "bestmove ")
}

func TestUnknownCommandIgnored(t *testing.T) {
	out := runScript(t, "flarble\nisready\nquit\n")
	assert.Contains(t, out, "readyok")
}

func TestSetOption(t *testing.T) {
	cfg := config.New()
	cfg.Set(config.ConfigThreads, 1)
	var out strings.Builder
	sh := NewShell(cfg, stubFactory, strings.NewReader(
		"setoption name Threads value 3\n"+
			"setoption name CPuct value 25\n"+
			"setoption name VisitLimit value 512\n"+
			"setoption name UseGPU value true\nquit\n"), &syncWriter{sb: &out})
	require.NoError(t, sh.Run())
	assert.Equal(t, 3, cfg.GetInt(config.ConfigThreads))
	assert.Equal(t, 2.5, cfg.CPuctValue())
	assert.Equal(t, 512, cfg.GetInt(config.ConfigVisitLimit))
	assert.True(t, cfg.GetBool(config.ConfigUseGPU))
}

func TestGoMovetime(t *testing.T) {
	start := time.Now()
	out := runScript(t, "position startpos\ngo movetime 100\nquit\n")
	assert.Contains(t, out, "bestmove ")
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestGoPerft(t *testing.T) {
	out := runScript(t, "position startpos\ngo perft 3\nquit\n")
	assert.Contains(t, out, "perft(3) = 8902")
}

func TestUciNewGame(t *testing.T) {
	out := runScript(t, "isready\nucinewgame\nisready\ngo visits 16\nquit\n")
	assert.Equal(t, 2, strings.Count(out, "readyok"))
	assert.Contains(t, out, "bestmove ")
}

func TestClockBudget(t *testing.T) {
	// 60s remaining, 1s increment, 20 moves to go:
	// 60000/22.5 + 1000*0.8 - 50 ms.
	b := clockBudget(60000, 1000, 20)
	assert.InDelta(t, 60000.0/22.5+800-50, float64(b.Milliseconds()), 1.0)
	// Tiny clocks never go below the floor.
	assert.Equal(t, 10*time.Millisecond, clockBudget(5, 0, 1))
}

func TestStopDuringInfiniteSearch(t *testing.T) {
	cfg := config.New()
	cfg.Set(config.ConfigThreads, 1)

	pr, pw := io.Pipe()
	var out strings.Builder
	sh := NewShell(cfg, stubFactory, pr, &syncWriter{sb: &out})

	done := make(chan error, 1)
	go func() { done <- sh.Run() }()

	pw.Write([]byte("position startpos\ngo infinite\n"))
	time.Sleep(200 * time.Millisecond)
	pw.Write([]byte("stop\nquit\n"))
	pw.Close()

	require.NoError(t, <-done)
	assert.Contains(t, out.String(), "bestmove ")
}
