package graph

// Selection is the set of selected nodes and connections. Every change bumps
// Version.
type Selection struct {
	nodes       map[NodeID]struct{}
	connections map[ConnectionID]struct{}
	version     uint64
}

func NewSelection() *Selection {
	return &Selection{
		nodes:       make(map[NodeID]struct{}),
		connections: make(map[ConnectionID]struct{}),
	}
}

func (s *Selection) Version() uint64 { return s.version }

// Contains reports whether a node is selected.
func (s *Selection) Contains(id NodeID) bool {
	_, ok := s.nodes[id]
	return ok
}

// ContainsConnection reports whether a connection is selected.
func (s *Selection) ContainsConnection(id ConnectionID) bool {
	_, ok := s.connections[id]
	return ok
}

// Select replaces the selection with a single node.
func (s *Selection) Select(id NodeID) {
	clear(s.nodes)
	clear(s.connections)
	s.nodes[id] = struct{}{}
	s.version++
}

// Toggle adds or removes a node, keeping the rest of the selection.
func (s *Selection) Toggle(id NodeID) {
	if _, ok := s.nodes[id]; ok {
		delete(s.nodes, id)
	} else {
		s.nodes[id] = struct{}{}
	}
	s.version++
}

// SelectConnection replaces the selection with a single connection.
func (s *Selection) SelectConnection(id ConnectionID) {
	clear(s.nodes)
	clear(s.connections)
	s.connections[id] = struct{}{}
	s.version++
}

// Remove drops a node from the selection, e.g. after it was deleted.
func (s *Selection) Remove(id NodeID) {
	if _, ok := s.nodes[id]; ok {
		delete(s.nodes, id)
		s.version++
	}
}

// Clear empties the selection.
func (s *Selection) Clear() {
	if len(s.nodes) == 0 && len(s.connections) == 0 {
		return
	}
	clear(s.nodes)
	clear(s.connections)
	s.version++
}

// Len returns the number of selected nodes.
func (s *Selection) Len() int { return len(s.nodes) }

// Nodes returns the selected node ids in no particular order.
func (s *Selection) Nodes() []NodeID {
	out := make([]NodeID, 0, len(s.nodes))
	for id := range s.nodes {
		out = append(out, id)
	}
	return out
}
