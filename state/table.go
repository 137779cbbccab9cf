package state

import (
	"fmt"
	"slices"
	"strings"
)

// DistanceTable is a router's cost[dest][via] matrix.
//
// The diagonal is overloaded: cost[d][d] starts out as the direct link cost
// to d and, once the router recomputes its vector, holds the best known cost
// to d over every via column.
type DistanceTable struct {
	costs [][]uint32
}

func NewDistanceTable(n int) *DistanceTable {
	costs := make([][]uint32, n)
	for i := range costs {
		costs[i] = make([]uint32, n)
		for j := range costs[i] {
			costs[i][j] = INF
		}
	}
	return &DistanceTable{costs: costs}
}

func (t *DistanceTable) Size() int {
	return len(t.costs)
}

func (t *DistanceTable) Get(dest, via NodeId) uint32 {
	return t.costs[dest][via]
}

func (t *DistanceTable) Set(dest, via NodeId, cost uint32) {
	t.costs[dest][via] = min(cost, INF)
}

// Row returns a copy of every via column for dest.
func (t *DistanceTable) Row(dest NodeId) []uint32 {
	return slices.Clone(t.costs[dest])
}

// Diagonal returns cost[d][d] for every d, which is the vector the router
// currently advertises.
func (t *DistanceTable) Diagonal() []uint32 {
	vec := make([]uint32, len(t.costs))
	for i := range t.costs {
		vec[i] = t.costs[i][i]
	}
	return vec
}

func (t *DistanceTable) Clone() *DistanceTable {
	costs := make([][]uint32, len(t.costs))
	for i := range t.costs {
		costs[i] = slices.Clone(t.costs[i])
	}
	return &DistanceTable{costs: costs}
}

// Matrix returns a deep copy of the cost matrix.
func (t *DistanceTable) Matrix() [][]uint32 {
	return t.Clone().costs
}

func (t *DistanceTable) String() string {
	sb := strings.Builder{}
	for d, row := range t.costs {
		sb.WriteString(fmt.Sprintf("%d:", d))
		for _, c := range row {
			sb.WriteString(fmt.Sprintf(" %3d", c))
		}
		if d != len(t.costs)-1 {
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// TableSnapshot is an immutable copy of a router's table, handed to trace
// sinks.
type TableSnapshot struct {
	Router     NodeId
	Event      string
	At         float64
	Neighbours []NodeId
	Costs      [][]uint32
}

func (s *RouterState) Snapshot(event string) TableSnapshot {
	return TableSnapshot{
		Router:     s.Id,
		Event:      event,
		Neighbours: s.Neighbours(),
		Costs:      s.Table.Matrix(),
	}
}

// TraceSink receives table snapshots. Implementations must not block for
// long, as they are called on the router goroutine.
type TraceSink interface {
	Submit(snap TableSnapshot)
}
