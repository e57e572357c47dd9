// Package nneval evaluates positions with the neural network, coalescing
// concurrent leaf evaluations into small tensor batches on a dedicated
// worker goroutine.
package nneval

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/kestrelchess/kestrel/config"
	"github.com/kestrelchess/kestrel/game"
	"github.com/kestrelchess/kestrel/policy"
)

// Evaluation is the network's answer for one position: a value in
// [-1, 1] from the mover's perspective and a softmaxed policy over the
// 1858 move slots.
type Evaluation struct {
	Value  float32
	Policy []float32
}

const requestQueueDepth = 256

var errEvaluatorClosed = errors.New("evaluator is closed")

type request struct {
	state  *game.State
	key    uint64
	result Evaluation
	err    error
	done   chan struct{}
}

// Evaluator owns the batch worker, the request queue and the evaluation
// cache. One instance serves all search threads of an engine.
type Evaluator struct {
	runner     batchRunner
	cache      *EvalCache
	numPlanes  int
	maxBatch   int
	maxDelay   time.Duration
	requests   chan *request
	quit       chan struct{}
	workerDone sync.WaitGroup

	mu     sync.Mutex
	broken error // set after a network execution error; the evaluator is dead
}

var planeVectorPool = sync.Pool{
	New: func() interface{} {
		v := make([]float32, 0)
		return &v
	},
}

// NewEvaluator loads the network named in cfg and verifies its output
// heads with a probe inference. Load or shape failures are fatal here,
// at construction, rather than surfacing mid-search.
func NewEvaluator(cfg *config.Config) (*Evaluator, error) {
	tmpl, err := LoadModelTemplate(cfg)
	if err != nil {
		return nil, err
	}
	e := newEvaluatorWithRunner(cfg, &onnxRunner{template: tmpl})

	probe, err := game.NewStartState()
	if err != nil {
		return nil, err
	}
	if _, err := e.Evaluate(probe); err != nil {
		e.Close()
		return nil, fmt.Errorf("network probe inference failed: %w", err)
	}
	e.cache.Clear()
	return e, nil
}

func newEvaluatorWithRunner(cfg *config.Config, runner batchRunner) *Evaluator {
	e := &Evaluator{
		runner:    runner,
		cache:     NewEvalCache(cfg.GetInt(config.ConfigCacheSize)),
		numPlanes: cfg.GetInt(config.ConfigPlanes),
		maxBatch:  cfg.GetInt(config.ConfigBatchSize),
		maxDelay:  cfg.GetDuration(config.ConfigBatchDelay),
		requests:  make(chan *request, requestQueueDepth),
		quit:      make(chan struct{}),
	}
	e.workerDone.Add(1)
	go e.worker()
	return e
}

// Evaluate blocks until the network has scored the state. Results are
// served from the cache when the history-aware key has been seen before.
func (e *Evaluator) Evaluate(s *game.State) (Evaluation, error) {
	key := s.HistoryHash()
	if ev, ok := e.cache.Get(key); ok {
		return ev, nil
	}
	if err := e.brokenErr(); err != nil {
		return Evaluation{}, err
	}
	select {
	case <-e.quit:
		return Evaluation{}, errEvaluatorClosed
	default:
	}

	req := &request{state: s, key: key, done: make(chan struct{})}
	select {
	case e.requests <- req:
	case <-e.quit:
		return Evaluation{}, errEvaluatorClosed
	}
	<-req.done
	return req.result, req.err
}

// Cache exposes the evaluation cache (for clearing on new games).
func (e *Evaluator) Cache() *EvalCache { return e.cache }

// Close stops the batch worker. Pending requests complete with an error.
func (e *Evaluator) Close() {
	close(e.quit)
	e.workerDone.Wait()
}

func (e *Evaluator) brokenErr() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.broken
}

func (e *Evaluator) markBroken(err error) {
	e.mu.Lock()
	if e.broken == nil {
		e.broken = err
	}
	e.mu.Unlock()
}

func (e *Evaluator) worker() {
	defer e.workerDone.Done()
	for {
		var first *request
		select {
		case first = <-e.requests:
		case <-e.quit:
			e.drain(errEvaluatorClosed)
			return
		}

		batch := []*request{first}
		timer := time.NewTimer(e.maxDelay)
	fill:
		for len(batch) < e.maxBatch {
			select {
			case r := <-e.requests:
				batch = append(batch, r)
			case <-timer.C:
				break fill
			case <-e.quit:
				timer.Stop()
				e.fail(batch, errEvaluatorClosed)
				e.drain(errEvaluatorClosed)
				return
			}
		}
		timer.Stop()

		if err := e.runBatch(batch); err != nil {
			// The graph is in an unknown state: kill this batch, poison
			// the evaluator and bounce everything queued from now on.
			log.Err(err).Int("batch", len(batch)).Msg("network-execution-error")
			e.markBroken(err)
			e.fail(batch, err)
			e.bounceUntilClosed(err)
			return
		}
	}
}

func (e *Evaluator) runBatch(batch []*request) error {
	planeLen := game.PlaneVectorLen(e.numPlanes)

	vecPtr := planeVectorPool.Get().(*[]float32)
	vec := *vecPtr
	if cap(vec) < len(batch)*planeLen {
		vec = make([]float32, len(batch)*planeLen)
	}
	vec = vec[:len(batch)*planeLen]
	defer func() {
		*vecPtr = vec
		planeVectorPool.Put(vecPtr)
	}()

	start := time.Now()
	for i, req := range batch {
		if err := req.state.EncodePlanes(vec[i*planeLen:(i+1)*planeLen], e.numPlanes); err != nil {
			return err
		}
	}

	out, err := e.runner.run(vec, len(batch), e.numPlanes)
	if err != nil {
		return err
	}

	for i, req := range batch {
		pol := make([]float32, policy.NumMoveSlots)
		copy(pol, out.policy[i*policy.NumMoveSlots:(i+1)*policy.NumMoveSlots])
		softmaxInPlace(pol)

		var v float32
		if out.wdl != nil {
			wdl := make([]float32, 3)
			copy(wdl, out.wdl[i*3:(i+1)*3])
			softmaxInPlace(wdl)
			v = valueFromWDL(wdl)
		} else {
			v = valueFromScalar(out.value[i])
		}

		ev := Evaluation{Value: v, Policy: pol}
		e.cache.Put(req.key, ev)
		req.result = ev
		close(req.done)
	}

	log.Debug().Int("batch", len(batch)).
		Int64("infer_ms", time.Since(start).Milliseconds()).
		Msg("evaluated batch")
	return nil
}

func (e *Evaluator) fail(batch []*request, err error) {
	for _, req := range batch {
		req.err = err
		close(req.done)
	}
}

// drain bounces every request still in the queue with err.
func (e *Evaluator) drain(err error) {
	for {
		select {
		case req := <-e.requests:
			req.err = err
			close(req.done)
		default:
			return
		}
	}
}

// bounceUntilClosed keeps rejecting requests after a fatal network
// error, so callers that raced past the broken check still complete.
func (e *Evaluator) bounceUntilClosed(err error) {
	for {
		select {
		case req := <-e.requests:
			req.err = err
			close(req.done)
		case <-e.quit:
			e.drain(err)
			return
		}
	}
}
