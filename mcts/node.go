package mcts

import (
	"sync"

	"github.com/kestrelchess/kestrel/board"
)

// node is one transposition-shared search tree entry. Its own mutex
// covers every mutable field; PUCT snapshots child statistics under the
// locks and scores outside them.
//
// Value convention: totalValue/meanValue are from the perspective of the
// player who moved INTO this node, so a parent selecting among children
// maximizes child Q directly.
type node struct {
	mu         sync.Mutex
	visits     uint32
	totalValue float64
	meanValue  float64
	prior      float64
	children   map[board.Move]*node

	terminal      bool
	terminalValue float32 // mover-at-node perspective
}

// childStat is a snapshot of one child edge for lock-free scoring.
type childStat struct {
	move   board.Move
	child  *node
	visits uint32
	q      float64
	prior  float64
}

// snapshotChildren copies the child map and each child's statistics.
func (n *node) snapshotChildren() []childStat {
	n.mu.Lock()
	edges := make([]childStat, 0, len(n.children))
	for m, c := range n.children {
		edges = append(edges, childStat{move: m, child: c})
	}
	n.mu.Unlock()

	for i := range edges {
		c := edges[i].child
		c.mu.Lock()
		edges[i].visits = c.visits
		edges[i].q = c.meanValue
		edges[i].prior = c.prior
		c.mu.Unlock()
	}
	return edges
}

// applyVirtualLoss counts the in-flight visit and temporarily lowers the
// node's value so concurrent descents fan out. Returns the visit count
// after the increment.
func (n *node) applyVirtualLoss() uint32 {
	n.mu.Lock()
	n.visits++
	n.totalValue -= virtualLoss
	v := n.visits
	n.mu.Unlock()
	return v
}

// backprop credits v (plus the virtual-loss refund) to the node.
func (n *node) backprop(v float64) {
	n.mu.Lock()
	n.totalValue += v + virtualLoss
	n.meanValue = n.totalValue / float64(n.visits)
	n.mu.Unlock()
}

func (n *node) setTerminal(v float32) {
	n.mu.Lock()
	n.terminal = true
	n.terminalValue = v
	n.mu.Unlock()
}

func (n *node) terminalState() (bool, float32) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.terminal, n.terminalValue
}

func (n *node) hasChildren() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.children) > 0
}

// adoptChildren installs the expansion result unless another thread got
// there first.
func (n *node) adoptChildren(children map[board.Move]*node) {
	n.mu.Lock()
	if n.children == nil {
		n.children = children
	}
	n.mu.Unlock()
}

// visitCount reads the visit counter.
func (n *node) visitCount() uint32 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.visits
}
