package core

import (
	"fmt"
	"log/slog"

	"github.com/encodeous/dvsim/perf"
	"github.com/encodeous/dvsim/state"
)

// DvRouter hosts the distance-vector algorithm for a single router on the
// router's own goroutine, and connects it to the network through the
// environment's Transport.
type DvRouter struct {
	*state.State
}

func (r *DvRouter) Init(s *state.State) error {
	s.Log.Debug("init router", "neighbours", s.Neighbours())
	r.State = s
	Init(s.RouterState, r)
	return nil
}

func (r *DvRouter) Cleanup(s *state.State) error {
	r.State = nil
	return nil
}

func (r *DvRouter) SendUpdate(pkt state.RoutingPacket) {
	data := state.MarshalPacket(pkt)
	perf.UpdatesSentPerSecond.Add(1)
	perf.PacketBytes.Add(float64(len(data)))
	if r.Transport == nil {
		return
	}
	err := r.Transport.Transmit(pkt.Source, pkt.Dest, data)
	if err != nil {
		r.Env.Log.Warn("failed to transmit update", "to", r.Name(pkt.Dest), "err", err)
	}
}

func (r *DvRouter) Trace(snap state.TableSnapshot) {
	if r.Env.Trace == nil {
		return
	}
	snap.At = r.Since()
	r.Env.Trace.Submit(snap)
}

func (r *DvRouter) Log(event RouterEvent, desc string, args ...any) {
	level := slog.LevelDebug
	if event >= MalformedPacket {
		level = slog.LevelWarn
	}
	r.Env.Log.Log(r.Context, level, fmt.Sprintf("%s %s", event.String(), desc), args...)
}

// DeliverPacket queues an encoded routing packet for the router owning env.
// done, if not nil, runs on the router goroutine once the packet has been
// fully processed, including any updates it triggered.
func DeliverPacket(env *state.Env, data []byte, done func()) {
	env.Dispatch(func(s *state.State) error {
		if done != nil {
			defer done()
		}
		return HandlePacket(s, data)
	})
}

// ChangeLinkCost queues a local link cost change for the router owning env.
// done, if not nil, receives the outcome on the router goroutine. A rejected
// change leaves the router untouched and running.
func ChangeLinkCost(env *state.Env, neigh state.NodeId, cost uint32, done func(error)) {
	env.Dispatch(func(s *state.State) error {
		err := routerHandleLinkChange(s, neigh, cost)
		if done != nil {
			done(err)
		}
		return nil
	})
}

// Snapshot copies the router's table from any goroutine.
func Snapshot(env *state.Env) (state.TableSnapshot, error) {
	res, err := env.DispatchWait(func(s *state.State) (any, error) {
		snap := s.RouterState.Snapshot("inspect")
		snap.At = s.Since()
		return snap, nil
	})
	if err != nil {
		return state.TableSnapshot{}, err
	}
	return res.(state.TableSnapshot), nil
}

// packet handlers

// HandlePacket decodes and applies a routing packet. It must run on the router
// goroutine. Rejected packets are logged and counted, never fatal.
func HandlePacket(s *state.State, data []byte) error {
	r := Get[*DvRouter](s)
	perf.UpdatesRecvPerSecond.Add(1)
	pkt, err := state.UnmarshalPacket(data)
	if err != nil {
		perf.RejectedPerSecond.Add(1)
		s.Log.Warn("received undecodable update", "len", len(data), "err", err)
		return nil
	}
	err = HandleNeighbourUpdate(s.RouterState, r, pkt)
	if err != nil {
		perf.RejectedPerSecond.Add(1)
	}
	return nil
}

func routerHandleLinkChange(s *state.State, neigh state.NodeId, cost uint32) error {
	r := Get[*DvRouter](s)
	err := HandleLinkChange(s.RouterState, r, neigh, cost)
	if err != nil {
		perf.RejectedPerSecond.Add(1)
		s.Log.Error("link change rejected", "neigh", neigh, "cost", cost, "err", err)
		return err
	}
	perf.LinkChangesPerSecond.Add(1)
	s.Log.Info("link cost changed", "neigh", s.Name(neigh), "cost", cost)
	return nil
}
