package state

import (
	"fmt"
	"slices"
	"strings"
)

// RoutingPacket carries a router's advertised vector to one direct neighbour.
type RoutingPacket struct {
	Source  NodeId
	Dest    NodeId
	MinCost []uint32
}

func NewRoutingPacket(src, dst NodeId, vec []uint32) RoutingPacket {
	return RoutingPacket{
		Source:  src,
		Dest:    dst,
		MinCost: slices.Clone(vec),
	}
}

func (p RoutingPacket) String() string {
	costs := make([]string, 0, len(p.MinCost))
	for _, c := range p.MinCost {
		costs = append(costs, fmt.Sprint(c))
	}
	return fmt.Sprintf("(%d -> %d: {%s})", p.Source, p.Dest, strings.Join(costs, ","))
}

// Transport hands encoded packets to the network. It is implemented by
// whatever simulates the links between routers.
type Transport interface {
	Transmit(from, to NodeId, data []byte) error
}
