package state

import (
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/goccy/go-yaml"
)

// RouterCfg names a router. Ids must be dense, starting at 0.
type RouterCfg struct {
	Id   NodeId `yaml:"id"`
	Name string `yaml:"name"`
}

// LinkCfg is an undirected link between two routers.
type LinkCfg struct {
	A    NodeId `yaml:"a"`
	B    NodeId `yaml:"b"`
	Cost uint32 `yaml:"cost"`
}

// LinkEventCfg changes the cost of an existing link at a point in time.
// For the discrete-event engine At is in simulation time units; for the
// live network it is in milliseconds after start.
type LinkEventCfg struct {
	At   float64 `yaml:"at"`
	A    NodeId  `yaml:"a"`
	B    NodeId  `yaml:"b"`
	Cost uint32  `yaml:"cost"`
}

// SimCfg tunes the discrete-event engine. Delivery delay is drawn uniformly
// from [MinDelay, MaxDelay].
type SimCfg struct {
	Stream   string  `yaml:"stream,omitempty"`
	MinDelay float64 `yaml:"min_delay,omitempty"`
	MaxDelay float64 `yaml:"max_delay,omitempty"`
	Loss     float64 `yaml:"loss,omitempty"`    // probability a packet is dropped
	Corrupt  float64 `yaml:"corrupt,omitempty"` // probability a byte of a packet is flipped
	Until    float64 `yaml:"until,omitempty"`   // simulation time limit
}

// LiveCfg tunes the goroutine-per-router network.
type LiveCfg struct {
	Latency time.Duration `yaml:"latency,omitempty"`
	Jitter  time.Duration `yaml:"jitter,omitempty"`
	Loss    float64       `yaml:"loss,omitempty"`
	Corrupt float64       `yaml:"corrupt,omitempty"`
}

type TopologyCfg struct {
	Routers []RouterCfg    `yaml:"routers"`
	Links   []LinkCfg      `yaml:"links"`
	Events  []LinkEventCfg `yaml:"events,omitempty"`
	Sim     SimCfg         `yaml:"sim,omitempty"`
	Live    LiveCfg        `yaml:"live,omitempty"`
}

func (c *TopologyCfg) Nodes() int {
	return len(c.Routers)
}

func (c *TopologyCfg) Name(id NodeId) string {
	idx := slices.IndexFunc(c.Routers, func(r RouterCfg) bool {
		return r.Id == id
	})
	if idx == -1 {
		return fmt.Sprintf("#%d", id)
	}
	return c.Routers[idx].Name
}

// NeighbourCosts returns the initial cost of every link touching id.
func (c *TopologyCfg) NeighbourCosts(id NodeId) map[NodeId]uint32 {
	costs := make(map[NodeId]uint32)
	for _, l := range c.Links {
		if l.A == id {
			costs[l.B] = l.Cost
		} else if l.B == id {
			costs[l.A] = l.Cost
		}
	}
	return costs
}

func (c *TopologyCfg) LinkCost(a, b NodeId) (uint32, bool) {
	for _, l := range c.Links {
		if MakeEdge(l.A, l.B) == MakeEdge(a, b) {
			return l.Cost, true
		}
	}
	return INF, false
}

// WithCost returns a copy of the topology with the cost of link a-b replaced.
func (c *TopologyCfg) WithCost(a, b NodeId, cost uint32) TopologyCfg {
	out := *c
	out.Links = slices.Clone(c.Links)
	for i, l := range out.Links {
		if MakeEdge(l.A, l.B) == MakeEdge(a, b) {
			out.Links[i].Cost = cost
		}
	}
	return out
}

// AfterEvents returns the topology as it stands once every link event has
// been applied.
func (c *TopologyCfg) AfterEvents() TopologyCfg {
	out := *c
	out.Links = slices.Clone(c.Links)
	for _, ev := range c.Events {
		out = out.WithCost(ev.A, ev.B, ev.Cost)
	}
	return out
}

// ExpandTopologyConfig fills in defaults for every unset tunable.
func ExpandTopologyConfig(c *TopologyCfg) {
	if c.Sim.Stream == "" {
		c.Sim.Stream = DefaultRngStream
	}
	if c.Sim.MinDelay == 0 && c.Sim.MaxDelay == 0 {
		c.Sim.MinDelay = DefaultMinDelay
		c.Sim.MaxDelay = DefaultMaxDelay
	}
	if c.Sim.Until == 0 {
		c.Sim.Until = DefaultSimLimit
	}
	if c.Live.Latency == 0 {
		c.Live.Latency = DefaultLatency
	}
	if c.Live.Jitter == 0 {
		c.Live.Jitter = DefaultJitter
	}
	slices.SortStableFunc(c.Events, func(a, b LinkEventCfg) int {
		switch {
		case a.At < b.At:
			return -1
		case a.At > b.At:
			return 1
		}
		return 0
	})
}

// DefaultTopology is the classic four router network, with link 0-1
// degrading to 20 and recovering later:
//
//	    1 --1-- 2
//	    |     / |
//	    1   3   2
//	    | /     |
//	    0 --7-- 3
func DefaultTopology() TopologyCfg {
	return TopologyCfg{
		Routers: []RouterCfg{
			{Id: 0, Name: "node0"},
			{Id: 1, Name: "node1"},
			{Id: 2, Name: "node2"},
			{Id: 3, Name: "node3"},
		},
		Links: []LinkCfg{
			{A: 0, B: 1, Cost: 1},
			{A: 0, B: 2, Cost: 3},
			{A: 0, B: 3, Cost: 7},
			{A: 1, B: 2, Cost: 1},
			{A: 2, B: 3, Cost: 2},
		},
		Events: []LinkEventCfg{
			{At: 10000, A: 0, B: 1, Cost: 20},
			{At: 20000, A: 0, B: 1, Cost: 1},
		},
	}
}

func ReadTopology(path string) (*TopologyCfg, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg TopologyCfg
	err = yaml.Unmarshal(file, &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	ExpandTopologyConfig(&cfg)
	err = TopologyConfigValidator(&cfg)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func WriteTopology(path string, cfg *TopologyCfg) error {
	bytes, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, bytes, 0644)
}
