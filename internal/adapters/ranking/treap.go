// Package ranking keeps the rating leaderboard in an order-statistic treap so
// top-N and per-player rank lookups do not need a full sort.
package ranking

import (
	"math/rand/v2"
	"sync"

	"github.com/okian/wordleboard/internal/domain/model"
)

// Ordering: exposure DESC, then player id ASC. "less" means ranks earlier, so
// an in-order walk yields the leaderboard from best to worst.

type node struct {
	id       string
	exposure float64
	prio     uint64
	left     *node
	right    *node
	size     int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

func less(aExp float64, aID string, bExp float64, bID string) bool {
	if aExp != bExp {
		return aExp > bExp
	}
	return aID < bID
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	fix(x)
	fix(y)
	return y
}

func insert(n *node, id string, exposure float64, prio uint64) *node {
	if n == nil {
		return &node{id: id, exposure: exposure, prio: prio, size: 1}
	}
	if less(exposure, id, n.exposure, n.id) {
		n.left = insert(n.left, id, exposure, prio)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, id, exposure, prio)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, id string, exposure float64) *node {
	if n == nil {
		return nil
	}
	switch {
	case exposure == n.exposure && id == n.id:
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, id, exposure)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, id, exposure)
		}
	case less(exposure, id, n.exposure, n.id):
		n.left = deleteNode(n.left, id, exposure)
	default:
		n.right = deleteNode(n.right, id, exposure)
	}
	fix(n)
	return n
}

// countAbove returns how many nodes have exposure strictly greater than e.
func countAbove(n *node, e float64) int {
	count := 0
	for n != nil {
		if n.exposure > e {
			count += 1 + nsize(n.left)
			n = n.right
		} else {
			n = n.left
		}
	}
	return count
}

// collect appends up to limit nodes in rank order.
func collect(n *node, limit int, out *[]*node) {
	if n == nil || len(*out) >= limit {
		return
	}
	collect(n.left, limit, out)
	if len(*out) < limit {
		*out = append(*out, n)
	}
	collect(n.right, limit, out)
}

// Index is a concurrency-safe rating leaderboard.
type Index struct {
	mu   sync.RWMutex
	root *node
	byID map[string]model.RatedPlayer
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{byID: make(map[string]model.RatedPlayer)}
}

// Upsert inserts p or moves it to its new position. p.Exposure must be set.
func (x *Index) Upsert(p model.RatedPlayer) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.upsertLocked(p)
}

func (x *Index) upsertLocked(p model.RatedPlayer) {
	if old, ok := x.byID[p.PlayerID]; ok {
		x.root = deleteNode(x.root, old.PlayerID, old.Exposure)
	}
	p.Rank = 0
	x.byID[p.PlayerID] = p
	x.root = insert(x.root, p.PlayerID, p.Exposure, rand.Uint64()) //nolint:gosec // treap priority
}

// Replace discards the index contents and loads players.
func (x *Index) Replace(players []model.RatedPlayer) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.root = nil
	x.byID = make(map[string]model.RatedPlayer, len(players))
	for _, p := range players {
		x.upsertLocked(p)
	}
}

// Rank returns the player's row with a competition rank: equal exposures
// share a rank and the next distinct exposure skips ahead.
func (x *Index) Rank(playerID string) (model.RatedPlayer, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	p, ok := x.byID[playerID]
	if !ok {
		return model.RatedPlayer{}, ErrNotFound
	}
	p.Rank = 1 + countAbove(x.root, p.Exposure)
	return p, nil
}

// Top returns up to n rows best first.
func (x *Index) Top(n int) ([]model.RatedPlayer, error) {
	if n < 1 {
		return nil, ErrInvalidLimit
	}
	x.mu.RLock()
	defer x.mu.RUnlock()

	nodes := make([]*node, 0, min(n, len(x.byID)))
	collect(x.root, n, &nodes)

	out := make([]model.RatedPlayer, len(nodes))
	for i, nd := range nodes {
		p := x.byID[nd.id]
		if i > 0 && nd.exposure == out[i-1].Exposure {
			p.Rank = out[i-1].Rank
		} else {
			p.Rank = i + 1
		}
		out[i] = p
	}
	return out, nil
}

// Len returns the number of ranked players.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.byID)
}
