package core

// Distributed Bellman-Ford. Each router keeps cost[dest][via] and only ever
// talks to its direct neighbours:
//
//	D_x(y) = min_v { c(x,v) + D_v(y) }

import (
	"fmt"
	"slices"

	"github.com/encodeous/dvsim/state"
)

type RouterEvent int

// trace events

const (
	RouterInitialized RouterEvent = iota
	ColumnRelaxed
	VectorChanged
	LinkCostChanged
)

// warn events

const (
	MalformedPacket RouterEvent = iota + 1000
	UnknownNeighbour
)

func (e RouterEvent) String() string {
	switch e {
	case RouterInitialized:
		return "RouterInitialized"
	case ColumnRelaxed:
		return "ColumnRelaxed"
	case VectorChanged:
		return "VectorChanged"
	case LinkCostChanged:
		return "LinkCostChanged"
	case MalformedPacket:
		return "MalformedPacket"
	case UnknownNeighbour:
		return "UnknownNeighbour"
	}
	return fmt.Sprintf("RouterEvent(%d)", int(e))
}

// Router is an interface that defines the operations the algorithm needs
// from whoever hosts it
type Router interface {
	// SendUpdate hands a packet to the network. The packet must not be
	// modified afterwards.
	SendUpdate(pkt state.RoutingPacket)
	// Trace receives a copy of the table after it changed.
	Trace(snap state.TableSnapshot)
	Log(event RouterEvent, desc string, args ...any)
}

// Init resets the table to the configured link costs and advertises the
// resulting vector to every neighbour.
func Init(s *state.RouterState, r Router) {
	n := s.Nodes()
	for d := range n {
		for v := range n {
			s.Table.Set(state.NodeId(d), state.NodeId(v), state.INF)
		}
	}
	for neigh, cost := range s.Links {
		s.Table.Set(neigh, neigh, cost)
	}
	vec := s.Table.Diagonal()
	r.Log(RouterInitialized, "initialized distance table", "vector", vec)
	broadcastVector(s, r, vec)
	r.Trace(s.Snapshot("init"))
}

// ValidatePacket checks that pkt can be applied to s without corrupting it.
func ValidatePacket(s *state.RouterState, pkt state.RoutingPacket) error {
	if pkt.Dest != s.Id {
		return fmt.Errorf("%w: addressed to %d, not %d", state.ErrMalformedPacket, pkt.Dest, s.Id)
	}
	if !s.IsNeighbour(pkt.Source) {
		return fmt.Errorf("%w: %d is not a direct neighbour of %d", state.ErrMalformedPacket, pkt.Source, s.Id)
	}
	if len(pkt.MinCost) != s.Nodes() {
		return fmt.Errorf("%w: vector has %d entries, expected %d", state.ErrMalformedPacket, len(pkt.MinCost), s.Nodes())
	}
	for d, c := range pkt.MinCost {
		if c > state.INF {
			return fmt.Errorf("%w: cost %d to %d exceeds %d", state.ErrMalformedPacket, c, d, state.INF)
		}
	}
	return nil
}

// HandleNeighbourUpdate relaxes the sender's column against its advertised
// vector. Only cost[*][sender] is touched. Neighbours are told about the new
// vector only if it differs from the one advertised before the packet
// arrived.
func HandleNeighbourUpdate(s *state.RouterState, r Router, pkt state.RoutingPacket) error {
	if err := ValidatePacket(s, pkt); err != nil {
		r.Log(MalformedPacket, "rejected routing packet", "pkt", pkt, "err", err)
		return err
	}
	neigh := pkt.Source
	prev := s.Table.Diagonal()

	// c(x, v), read from the diagonal
	cxv := s.Table.Get(neigh, neigh)
	relaxed := false
	for d, dv := range pkt.MinCost {
		dest := state.NodeId(d)
		candidate := AddMetric(cxv, dv)
		if candidate < s.Table.Get(dest, neigh) {
			s.Table.Set(dest, neigh, candidate)
			relaxed = true
		}
	}
	if !relaxed {
		return nil
	}
	r.Log(ColumnRelaxed, "relaxed column", "via", neigh, "pkt", pkt)

	vec := ComputeVector(s)
	if slices.Equal(prev, vec) {
		return nil
	}
	r.Log(VectorChanged, "advertised vector changed", "from", prev, "to", vec)
	broadcastVector(s, r, vec)
	r.Trace(s.Snapshot("update"))
	return nil
}

// HandleLinkChange overwrites the direct cost to neigh and recomputes the
// vector with the same minimization used for neighbour updates.
func HandleLinkChange(s *state.RouterState, r Router, neigh state.NodeId, cost uint32) error {
	if !s.IsNeighbour(neigh) {
		r.Log(UnknownNeighbour, "rejected link change", "neigh", neigh, "cost", cost)
		return fmt.Errorf("%w: %d is not a direct neighbour of %d", state.ErrUnknownNeighbour, neigh, s.Id)
	}
	cost = min(cost, state.INF)
	old := s.Links[neigh]
	s.Links[neigh] = cost

	prev := s.Table.Diagonal()
	s.Table.Set(neigh, neigh, cost)
	vec := ComputeVector(s)
	r.Log(LinkCostChanged, "link cost changed", "neigh", neigh, "from", old, "to", cost)

	if !slices.Equal(prev, vec) {
		r.Log(VectorChanged, "advertised vector changed", "from", prev, "to", vec)
		broadcastVector(s, r, vec)
	}
	r.Trace(s.Snapshot("link"))
	return nil
}

// ComputeVector takes the minimum over every via column of each row, writes
// it back to the diagonal and returns it.
func ComputeVector(s *state.RouterState) []uint32 {
	n := s.Nodes()
	vec := make([]uint32, n)
	for d := range n {
		dest := state.NodeId(d)
		best := state.INF
		for _, c := range s.Table.Row(dest) {
			best = min(best, c)
		}
		s.Table.Set(dest, dest, best)
		vec[d] = best
	}
	return vec
}

func broadcastVector(s *state.RouterState, r Router, vec []uint32) {
	for _, neigh := range s.Neighbours() {
		r.SendUpdate(state.NewRoutingPacket(s.Id, neigh, vec))
	}
}
