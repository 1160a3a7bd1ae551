package app

import (
	"math"
	"sort"

	"github.com/bsundman/nodle/internal/geom"
	"github.com/bsundman/nodle/internal/graph"
)

// Tracker is the set of nodes whose scene data is displayed, and polled,
// every frame. One of them may hold focus for paging.
type Tracker struct {
	nodes   map[graph.NodeID]struct{}
	sorted  []graph.NodeID // nil when stale
	focus   graph.NodeID
	focused bool
}

func NewTracker() *Tracker {
	return &Tracker{nodes: make(map[graph.NodeID]struct{})}
}

// Track adds id. It reports whether id was new.
func (t *Tracker) Track(id graph.NodeID) bool {
	if _, ok := t.nodes[id]; ok {
		return false
	}
	t.nodes[id] = struct{}{}
	t.sorted = nil
	return true
}

// Untrack removes id, dropping focus if it held it.
func (t *Tracker) Untrack(id graph.NodeID) bool {
	if _, ok := t.nodes[id]; !ok {
		return false
	}
	delete(t.nodes, id)
	t.sorted = nil
	if t.focused && t.focus == id {
		t.focused = false
	}
	return true
}

func (t *Tracker) Tracked(id graph.NodeID) bool {
	_, ok := t.nodes[id]
	return ok
}

func (t *Tracker) Len() int { return len(t.nodes) }

// IDs returns the tracked nodes sorted by ID (ascending). The slice is
// shared and must not be modified.
func (t *Tracker) IDs() []graph.NodeID {
	if t.sorted == nil {
		t.sorted = make([]graph.NodeID, 0, len(t.nodes))
		for id := range t.nodes {
			t.sorted = append(t.sorted, id)
		}
		sort.Slice(t.sorted, func(i, j int) bool { return t.sorted[i] < t.sorted[j] })
	}
	return t.sorted
}

func (t *Tracker) Focus() (graph.NodeID, bool) { return t.focus, t.focused }

// SetFocus focuses id if it is tracked.
func (t *Tracker) SetFocus(id graph.NodeID) bool {
	if !t.Tracked(id) {
		return false
	}
	t.focus, t.focused = id, true
	return true
}

// FindClosest returns the tracked nodes of g sorted by distance from p to
// their centers (closest first). For nodes at equal distance, sorts by ID
// (highest first).
func (t *Tracker) FindClosest(g *graph.Graph, p geom.Point) []graph.NodeID {
	type sortKey struct {
		distance float64
		ID       graph.NodeID
	}

	var sortKeys []sortKey
	for id := range t.nodes {
		n, ok := g.Node(id)
		if !ok {
			continue
		}
		sortKeys = append(sortKeys, sortKey{geom.Dist(n.Bounds.Center(), p), id})
	}

	sort.Slice(sortKeys, func(i, j int) bool {
		if math.Abs(sortKeys[i].distance-sortKeys[j].distance) < 1e-4 {
			return sortKeys[i].ID > sortKeys[j].ID
		}
		return sortKeys[i].distance < sortKeys[j].distance
	})

	result := make([]graph.NodeID, len(sortKeys))
	for i, k := range sortKeys {
		result[i] = k.ID
	}
	return result
}

// Cycle moves focus to the next or previous tracked node in ID order,
// wrapping around.
func (t *Tracker) Cycle(next bool) (graph.NodeID, bool) {
	ids := t.IDs()
	if len(ids) == 0 {
		t.focused = false
		return 0, false
	}

	direction := 1
	if !next {
		direction = -1
	}

	pos := -1
	if t.focused {
		pos = sort.Search(len(ids), func(i int) bool { return ids[i] >= t.focus })
		if pos == len(ids) || ids[pos] != t.focus {
			pos = -1
		}
	}
	var newPos int
	switch {
	case pos >= 0:
		newPos = (pos + direction + len(ids)) % len(ids)
	case next:
		newPos = 0
	default:
		newPos = len(ids) - 1
	}
	t.focus, t.focused = ids[newPos], true
	return t.focus, true
}
