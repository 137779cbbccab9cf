package state

import (
	"fmt"
	"maps"
	"slices"
)

// NodeId identifies a router. Ids are dense, from 0 to N-1, and double as
// the row and column index of every distance table.
type NodeId int

// RouterState is everything a single router knows. It must only be touched
// from the goroutine that owns the router.
type RouterState struct {
	Id NodeId
	// Links holds the configured cost of every direct link, including a zero
	// cost link to ourselves. The key set is fixed for the lifetime of the
	// router; only the costs change.
	Links map[NodeId]uint32
	Table *DistanceTable
}

func NewRouterState(id NodeId, nodes int, links map[NodeId]uint32) (*RouterState, error) {
	if nodes <= 0 {
		return nil, fmt.Errorf("%w: router count must be positive", ErrInvalidTopology)
	}
	if id < 0 || int(id) >= nodes {
		return nil, fmt.Errorf("%w: router id %d out of range [0, %d)", ErrInvalidTopology, id, nodes)
	}
	l := make(map[NodeId]uint32, len(links)+1)
	for n, cost := range links {
		if n < 0 || int(n) >= nodes {
			return nil, fmt.Errorf("%w: neighbour id %d out of range [0, %d)", ErrInvalidTopology, n, nodes)
		}
		l[n] = min(cost, INF)
	}
	l[id] = 0
	return &RouterState{
		Id:    id,
		Links: l,
		Table: NewDistanceTable(nodes),
	}, nil
}

// Neighbours returns the directly connected routers in ascending order,
// excluding ourselves.
func (s *RouterState) Neighbours() []NodeId {
	neighs := make([]NodeId, 0, len(s.Links))
	for _, n := range slices.Sorted(maps.Keys(s.Links)) {
		if n != s.Id {
			neighs = append(neighs, n)
		}
	}
	return neighs
}

func (s *RouterState) IsNeighbour(id NodeId) bool {
	if id == s.Id {
		return false
	}
	_, ok := s.Links[id]
	return ok
}

func (s *RouterState) Nodes() int {
	return s.Table.Size()
}
