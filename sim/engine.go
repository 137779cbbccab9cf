// Package sim runs every router of a topology inside a single discrete-event
// simulation. Delivery delay, loss and corruption are drawn from an rngstream
// so a run is reproducible for a given stream name.
package sim

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/encodeous/dvsim/core"
	"github.com/encodeous/dvsim/state"
	"github.com/iti/evt/evtm"
	"github.com/iti/evt/vrtime"
	"github.com/iti/rngstream"
)

type Stats struct {
	Sent        int
	Delivered   int
	Lost        int
	Corrupted   int
	Rejected    int
	LinkChanges int
	SentBy      []int
	// LastUpdate is the simulation time of the last transmitted update.
	LastUpdate float64
	EndTime    float64
}

type Engine struct {
	Topology *state.TopologyCfg
	Routers  []*state.RouterState
	Stats    Stats
	mgr      *evtm.EventManager
	rng      *rngstream.RngStream
	log      *slog.Logger
	trace    state.TraceSink
	hosts    []*simRouter
}

type delivery struct {
	to   state.NodeId
	data []byte
}

// simRouter adapts the engine to core.Router for one router.
type simRouter struct {
	e   *Engine
	id  state.NodeId
	log *slog.Logger
}

func (h *simRouter) SendUpdate(pkt state.RoutingPacket) {
	h.e.transmit(pkt)
}

func (h *simRouter) Trace(snap state.TableSnapshot) {
	if h.e.trace == nil {
		return
	}
	snap.At = h.e.mgr.CurrentSeconds()
	h.e.trace.Submit(snap)
}

func (h *simRouter) Log(event core.RouterEvent, desc string, args ...any) {
	level := slog.LevelDebug
	if event >= core.MalformedPacket {
		level = slog.LevelWarn
	}
	args = append(args, "t", h.e.mgr.CurrentSeconds())
	h.log.Log(context.Background(), level, fmt.Sprintf("%s %s", event.String(), desc), args...)
}

// New builds an engine for topo. trace may be nil.
func New(topo *state.TopologyCfg, logger *slog.Logger, trace state.TraceSink) (*Engine, error) {
	e := &Engine{
		Topology: topo,
		mgr:      evtm.New(),
		rng:      rngstream.New(topo.Sim.Stream),
		log:      logger,
		trace:    trace,
	}
	e.Stats.SentBy = make([]int, topo.Nodes())
	e.Routers = make([]*state.RouterState, topo.Nodes())
	e.hosts = make([]*simRouter, topo.Nodes())
	for _, r := range topo.Routers {
		rs, err := state.NewRouterState(r.Id, topo.Nodes(), topo.NeighbourCosts(r.Id))
		if err != nil {
			return nil, err
		}
		e.Routers[r.Id] = rs
		e.hosts[r.Id] = &simRouter{
			e:   e,
			id:  r.Id,
			log: logger.With("router", r.Name),
		}
	}
	return e, nil
}

// Run initializes every router at time zero, schedules the configured link
// changes and runs until no events remain or the time limit is reached.
func (e *Engine) Run() Stats {
	for i, rs := range e.Routers {
		core.Init(rs, e.hosts[i])
	}
	for _, ev := range e.Topology.Events {
		e.mgr.Schedule(e, ev, linkChange, vrtime.SecondsToTime(ev.At))
	}
	e.mgr.Run(e.Topology.Sim.Until)
	e.Stats.EndTime = e.mgr.CurrentSeconds()
	e.log.Info("simulation finished", "t", e.Stats.EndTime, "sent", e.Stats.Sent, "delivered", e.Stats.Delivered, "last_update", e.Stats.LastUpdate)
	return e.Stats
}

// Vectors returns the vector every router currently advertises.
func (e *Engine) Vectors() [][]uint32 {
	vecs := make([][]uint32, len(e.Routers))
	for i, rs := range e.Routers {
		vecs[i] = rs.Table.Diagonal()
	}
	return vecs
}

func (e *Engine) Now() float64 {
	return e.mgr.CurrentSeconds()
}

func (e *Engine) transmit(pkt state.RoutingPacket) {
	cfg := e.Topology.Sim
	e.Stats.Sent++
	e.Stats.SentBy[pkt.Source]++
	e.Stats.LastUpdate = e.mgr.CurrentSeconds()

	if cfg.Loss > 0 && e.rng.RandU01() < cfg.Loss {
		e.Stats.Lost++
		e.log.Debug("packet lost", "pkt", pkt, "t", e.mgr.CurrentSeconds())
		return
	}
	data := state.MarshalPacket(pkt)
	if cfg.Corrupt > 0 && e.rng.RandU01() < cfg.Corrupt {
		e.Stats.Corrupted++
		idx := e.rng.RandInt(0, len(data)-1)
		data[idx] ^= byte(e.rng.RandInt(1, 255))
		e.log.Debug("packet corrupted", "pkt", pkt, "byte", idx, "t", e.mgr.CurrentSeconds())
	}
	delay := cfg.MinDelay + (cfg.MaxDelay-cfg.MinDelay)*e.rng.RandU01()
	e.mgr.Schedule(e, delivery{to: pkt.Dest, data: data}, deliver, vrtime.SecondsToTime(delay))
}

func deliver(mgr *evtm.EventManager, context any, data any) any {
	e := context.(*Engine)
	d := data.(delivery)
	pkt, err := state.UnmarshalPacket(d.data)
	if err != nil {
		e.Stats.Rejected++
		e.log.Warn("dropped undecodable packet", "to", e.Topology.Name(d.to), "err", err, "t", mgr.CurrentSeconds())
		return nil
	}
	e.Stats.Delivered++
	err = core.HandleNeighbourUpdate(e.Routers[d.to], e.hosts[d.to], pkt)
	if err != nil {
		e.Stats.Rejected++
	}
	return nil
}

func linkChange(mgr *evtm.EventManager, context any, data any) any {
	e := context.(*Engine)
	ev := data.(state.LinkEventCfg)
	e.Stats.LinkChanges++
	e.log.Info("link cost changed",
		"a", e.Topology.Name(ev.A), "b", e.Topology.Name(ev.B), "cost", ev.Cost, "t", mgr.CurrentSeconds())
	// both ends observe the change at the same instant
	for _, end := range []state.Pair[state.NodeId, state.NodeId]{{V1: ev.A, V2: ev.B}, {V1: ev.B, V2: ev.A}} {
		err := core.HandleLinkChange(e.Routers[end.V1], e.hosts[end.V1], end.V2, ev.Cost)
		if err != nil {
			e.log.Error("failed to apply link change", "err", err)
		}
	}
	return nil
}
