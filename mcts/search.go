// Package mcts implements the PUCT tree search: transposition-shared
// nodes, virtual loss for parallel descents, Dirichlet root noise and
// fixed-visit or timed search budgets.
package mcts

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
	"lukechampine.com/frand"

	"github.com/kestrelchess/kestrel/board"
	"github.com/kestrelchess/kestrel/config"
	"github.com/kestrelchess/kestrel/game"
	"github.com/kestrelchess/kestrel/movegen"
	"github.com/kestrelchess/kestrel/nneval"
	"github.com/kestrelchess/kestrel/policy"
	"github.com/kestrelchess/kestrel/stats"
)

const (
	virtualLoss  = 0.3
	priorEpsilon = 1e-9
	// maxDescentDepth bounds a single selection pass. Transpositions can
	// in principle close a cycle through the history-aware hash; a
	// descent that deep is scored as a draw.
	maxDescentDepth = 512
)

// Evaluator is the network contract the search depends on.
type Evaluator interface {
	Evaluate(*game.State) (nneval.Evaluation, error)
}

// SearchInfo is a progress snapshot for UCI info lines.
type SearchInfo struct {
	Simulations uint64
	Nodes       int
	Elapsed     time.Duration
	NPS         float64
	Value       float64 // mean root value, mover's perspective
	ValueStdev  float64
	Best        board.Move
	PV          []board.Move
}

// Searcher owns the node pool and runs simulations against a root state.
type Searcher struct {
	cfg       *config.Config
	evaluator Evaluator

	nodesMu sync.RWMutex
	nodes   map[uint64]*node

	simCount atomic.Uint64

	statsMu   sync.Mutex
	rootStats stats.Statistic

	logger *searchLogger

	rootKey   atomic.Uint64
	startTime atomic.Int64 // unix nanos of current search start
}

// NewSearcher creates a searcher bound to an evaluator.
func NewSearcher(cfg *config.Config, evaluator Evaluator) *Searcher {
	return &Searcher{
		cfg:       cfg,
		evaluator: evaluator,
		nodes:     make(map[uint64]*node),
	}
}

// Clear empties the node pool. Called on ucinewgame and position resets.
func (s *Searcher) Clear() {
	s.nodesMu.Lock()
	s.nodes = make(map[uint64]*node)
	s.nodesMu.Unlock()
}

// NodeCount returns the number of interned nodes.
func (s *Searcher) NodeCount() int {
	s.nodesMu.RLock()
	defer s.nodesMu.RUnlock()
	return len(s.nodes)
}

func (s *Searcher) getOrCreate(key uint64) *node {
	s.nodesMu.RLock()
	n := s.nodes[key]
	s.nodesMu.RUnlock()
	if n != nil {
		return n
	}
	s.nodesMu.Lock()
	defer s.nodesMu.Unlock()
	if n = s.nodes[key]; n == nil {
		n = &node{}
		s.nodes[key] = n
	}
	return n
}

// SearchVisits runs a fixed-visit search: T workers each run their share
// of maxVisits simulations on a thread-local clone of root.
func (s *Searcher) SearchVisits(ctx context.Context, root *game.State, maxVisits int) (board.Move, error) {
	return s.search(ctx, root, maxVisits, 0)
}

// SearchTimed runs simulations until the wall clock exceeds budget or
// ctx is cancelled. Cancellation is polled between simulations.
func (s *Searcher) SearchTimed(ctx context.Context, root *game.State, budget time.Duration) (board.Move, error) {
	return s.search(ctx, root, 0, budget)
}

func (s *Searcher) search(ctx context.Context, root *game.State, maxVisits int, budget time.Duration) (board.Move, error) {
	rootLegal := movegen.GenerateLegal(&root.Board)
	if len(rootLegal) == 0 {
		return board.NullMove, nil
	}
	fixedMode := maxVisits > 0

	threads := s.cfg.GetInt(config.ConfigThreads)
	if threads < 1 {
		threads = 1
	}

	s.simCount.Store(0)
	s.statsMu.Lock()
	s.rootStats = stats.Statistic{}
	s.statsMu.Unlock()
	s.rootKey.Store(root.HistoryHash())
	start := time.Now()
	s.startTime.Store(start.UnixNano())

	s.logger = newSearchLogger(s.cfg)
	defer s.logger.close()

	// Expand the root inline so noise has priors to perturb and workers
	// start from a populated node.
	rootNode := s.getOrCreate(root.HistoryHash())
	if !rootNode.hasChildren() {
		v, err := s.simulate(root.Clone(), 0)
		if err != nil {
			return board.NullMove, err
		}
		s.recordSimulation(0, v)
		if maxVisits > 0 {
			maxVisits--
		}
	}
	injectRootNoise(rootNode)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if budget > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeout(ctx, budget)
		defer cancelTimeout()
	}

	perThread := 0
	if fixedMode {
		perThread = maxVisits / threads
	}

	g := errgroup.Group{}
	for t := 0; t < threads; t++ {
		g.Go(func() error {
			local := root.Clone()
			for i := 0; !fixedMode || i < perThread; i++ {
				if !fixedMode {
					select {
					case <-ctx.Done():
						return nil
					default:
					}
				}
				v, err := s.simulate(local, t)
				if err != nil {
					cancel()
					return err
				}
				s.recordSimulation(t, v)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return board.NullMove, err
	}

	elapsed := time.Since(start)
	sims := s.simCount.Load()
	log.Info().Uint64("sims", sims).
		Int("nodes", s.NodeCount()).
		Float64("nps", float64(sims)/elapsed.Seconds()).
		Msg("search-ended")

	return s.bestRootMove(rootNode), nil
}

func (s *Searcher) recordSimulation(thread int, rootValue float64) {
	sim := s.simCount.Add(1)
	s.statsMu.Lock()
	s.rootStats.Push(rootValue)
	s.statsMu.Unlock()
	s.logger.record(logIteration{Sim: sim, Thread: thread, Value: rootValue})
}

// bestRootMove picks the child with the most visits; exact ties are
// broken at random.
func (s *Searcher) bestRootMove(root *node) board.Move {
	edges := root.snapshotChildren()
	if len(edges) == 0 {
		return board.NullMove
	}
	best := lo.MaxBy(edges, func(a, b childStat) bool {
		return a.visits > b.visits
	})
	tied := lo.Filter(edges, func(e childStat, _ int) bool {
		return e.visits == best.visits
	})
	return tied[frand.Intn(len(tied))].move
}

// simulate runs one descent-expand-backprop pass on the worker-local
// state. The board is unwound move by move during back-propagation and
// the history ring is restored from the snapshot taken here, so the
// state is exactly as given when the function returns. The returned
// value is the simulation result from the root mover's perspective.
func (s *Searcher) simulate(st *game.State, thread int) (float64, error) {
	histSnap := st.SnapshotHistory()
	defer st.RestoreHistory(histSnap)

	cur := s.getOrCreate(st.HistoryHash())
	path := []*node{cur}
	undos := make([]board.Undo, 0, 32)

	freshLeaf := cur.applyVirtualLoss() == 1
	for !freshLeaf {
		if len(path) > maxDescentDepth {
			break
		}
		if term, _ := cur.terminalState(); term {
			break
		}
		edges := cur.snapshotChildren()
		if len(edges) == 0 {
			break
		}
		bestEdge := selectPUCT(edges, cur.visitCount(), s.cfg.CPuctValue())
		undos = append(undos, st.ApplyMove(bestEdge.move))
		cur = bestEdge.child
		path = append(path, cur)
		freshLeaf = cur.applyVirtualLoss() == 1
	}

	var leafValue float64
	if len(path) > maxDescentDepth {
		leafValue = 0
	} else if freshLeaf {
		v, err := s.expand(st, cur)
		if err != nil {
			// The descent must still be unwound so the worker state
			// stays usable; refund the virtual losses with a null value.
			s.unwind(st, path, undos, 0)
			return 0, err
		}
		leafValue = float64(v)
	} else {
		leafValue = float64(s.terminalValue(st, cur))
	}

	return s.unwind(st, path, undos, leafValue), nil
}

// unwind back-propagates leafValue along the path, unmaking the board
// moves as it pops. Returns the value from the root mover's perspective.
func (s *Searcher) unwind(st *game.State, path []*node, undos []board.Undo, leafValue float64) float64 {
	v := leafValue
	for i := len(path) - 1; i >= 0; i-- {
		// Stored values are from the perspective of the player who moved
		// into the node.
		v = -v
		path[i].backprop(v)
		if i > 0 {
			st.Board.Unmake(undos[i-1])
		}
	}
	return -v // flip back to the root mover
}

// selectPUCT scores the snapshot edges and returns the best one. Ties
// keep the first encountered.
func selectPUCT(edges []childStat, parentVisits uint32, cPuct float64) childStat {
	sqrtParent := math.Sqrt(float64(parentVisits))
	best := edges[0]
	bestScore := math.Inf(-1)
	for _, e := range edges {
		u := cPuct * e.prior * sqrtParent / (1 + float64(e.visits))
		score := e.q + u
		if score > bestScore {
			bestScore = score
			best = e
		}
	}
	return best
}

// terminalValue scores a leaf that cannot or should not be expanded,
// from the leaf mover's perspective.
func (s *Searcher) terminalValue(st *game.State, n *node) float32 {
	if term, v := n.terminalState(); term {
		return v
	}
	if st.Board.HalfmoveClock >= 100 || st.Repetitions() >= 2 {
		return 0
	}
	if !movegen.HasLegalMoves(&st.Board) {
		if st.Board.InCheck(st.Board.SideToMove()) {
			return -1
		}
		return 0
	}
	// A racing thread beat us to the expansion; score neutrally.
	return 0
}

// expand evaluates the leaf with the network and interns one child node
// per legal move, with priors looked up through the policy codec and
// normalized to sum to 1. Terminal leaves are marked and scored without
// a network call. Returns the leaf value from the leaf mover's
// perspective.
func (s *Searcher) expand(st *game.State, n *node) (float32, error) {
	if st.Board.HalfmoveClock >= 100 || st.Repetitions() >= 2 {
		n.setTerminal(0)
		return 0, nil
	}
	legal := movegen.GenerateLegal(&st.Board)
	if len(legal) == 0 {
		var v float32
		if st.Board.InCheck(st.Board.SideToMove()) {
			v = -1
		}
		n.setTerminal(v)
		return v, nil
	}

	ev, err := s.evaluator.Evaluate(st)
	if err != nil {
		return 0, err
	}

	priors := make([]float64, len(legal))
	sum := priorEpsilon
	for i, m := range legal {
		if idx := policy.Index(m, st.Board.WhiteToMove); idx != policy.NoIndex {
			priors[i] = float64(ev.Policy[idx])
		}
		sum += priors[i]
	}

	children := make(map[board.Move]*node, len(legal))
	hist := st.SnapshotHistory()
	for i, m := range legal {
		u := st.ApplyMove(m)
		child := s.getOrCreate(st.HistoryHash())
		st.Board.Unmake(u)
		st.RestoreHistory(hist)

		child.mu.Lock()
		child.prior = priors[i] / sum
		child.mu.Unlock()
		children[m] = child
	}
	n.adoptChildren(children)
	return ev.Value, nil
}

// CurrentInfo snapshots search progress for periodic UCI info output.
func (s *Searcher) CurrentInfo() SearchInfo {
	info := SearchInfo{
		Simulations: s.simCount.Load(),
		Nodes:       s.NodeCount(),
	}
	if startNanos := s.startTime.Load(); startNanos > 0 {
		info.Elapsed = time.Since(time.Unix(0, startNanos))
		if secs := info.Elapsed.Seconds(); secs > 0 {
			info.NPS = float64(info.Simulations) / secs
		}
	}
	s.statsMu.Lock()
	info.Value = s.rootStats.Mean()
	info.ValueStdev = s.rootStats.Stdev()
	s.statsMu.Unlock()

	s.nodesMu.RLock()
	root := s.nodes[s.rootKey.Load()]
	s.nodesMu.RUnlock()
	if root != nil {
		info.PV = s.principalVariation(root, 6)
		if len(info.PV) > 0 {
			info.Best = info.PV[0]
		}
	}
	return info
}

// principalVariation follows max-visit children from n.
func (s *Searcher) principalVariation(n *node, maxLen int) []board.Move {
	pv := make([]board.Move, 0, maxLen)
	seen := map[*node]bool{n: true}
	for len(pv) < maxLen {
		edges := n.snapshotChildren()
		if len(edges) == 0 {
			break
		}
		best := lo.MaxBy(edges, func(a, b childStat) bool {
			return a.visits > b.visits
		})
		if best.visits == 0 || seen[best.child] {
			break
		}
		pv = append(pv, best.move)
		seen[best.child] = true
		n = best.child
	}
	return pv
}
