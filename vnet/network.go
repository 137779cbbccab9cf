// Package vnet runs each router of a topology on its own goroutine and
// connects them with in-memory links that add latency, jitter, loss and
// corruption.
package vnet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/pprof"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/encodeous/dvsim/core"
	"github.com/encodeous/dvsim/state"
	"github.com/iti/rngstream"
	"github.com/jellydator/ttlcache/v3"
)

type VirtualLink struct {
	Hop        state.Pair[state.NodeId, state.NodeId]
	Latency    time.Duration
	Jitter     time.Duration
	PacketLoss float64
	Corruption float64
}

func (v *VirtualLink) WithLatency(lat, jitter time.Duration) *VirtualLink {
	v.Latency = lat
	v.Jitter = jitter
	return v
}

func (v *VirtualLink) WithPacketLoss(loss float64) *VirtualLink {
	v.PacketLoss = loss
	return v
}

func (v *VirtualLink) WithCorruption(p float64) *VirtualLink {
	v.Corruption = p
	return v
}

type Network struct {
	Topology *state.TopologyCfg
	States   []*state.State
	Links    map[state.Pair[state.NodeId, state.NodeId]]*VirtualLink
	Context  context.Context
	Cancel   context.CancelCauseFunc

	// activity remembers routers that transmitted within the quiet window
	activity *ttlcache.Cache[state.NodeId, uint64]
	sent     atomic.Uint64
	inflight atomic.Int64
	rngMu    sync.Mutex
	rng      *rngstream.RngStream
	wg       sync.WaitGroup
	rejected atomic.Uint64
	errs     chan error
}

// New builds a network for topo. newLogger is called once per router.
func New(topo *state.TopologyCfg, newLogger func(r state.RouterCfg) *slog.Logger, trace state.TraceSink) (*Network, error) {
	ctx, cancel := context.WithCancelCause(context.Background())
	n := &Network{
		Topology: topo,
		States:   make([]*state.State, topo.Nodes()),
		Links:    make(map[state.Pair[state.NodeId, state.NodeId]]*VirtualLink),
		Context:  ctx,
		Cancel:   cancel,
		activity: ttlcache.New[state.NodeId, uint64](
			ttlcache.WithTTL[state.NodeId, uint64](state.QuietWindow),
			ttlcache.WithDisableTouchOnHit[state.NodeId, uint64]()),
		rng:  rngstream.New(topo.Sim.Stream + "-vnet"),
		errs: make(chan error, topo.Nodes()),
	}
	for _, l := range topo.Links {
		n.AddLink(l.A, l.B).
			WithLatency(topo.Live.Latency, topo.Live.Jitter).
			WithPacketLoss(topo.Live.Loss).
			WithCorruption(topo.Live.Corrupt)
		n.AddLink(l.B, l.A).
			WithLatency(topo.Live.Latency, topo.Live.Jitter).
			WithPacketLoss(topo.Live.Loss).
			WithCorruption(topo.Live.Corrupt)
	}
	for _, r := range topo.Routers {
		s, err := core.NewState(ctx, topo, r.Id, newLogger(r), n, trace)
		if err != nil {
			cancel(err)
			return nil, err
		}
		n.States[r.Id] = s
	}
	return n, nil
}

func (n *Network) AddLink(from, to state.NodeId) *VirtualLink {
	link := &VirtualLink{
		Hop: state.Pair[state.NodeId, state.NodeId]{V1: from, V2: to},
	}
	n.Links[link.Hop] = link
	return link
}

// Start runs every router. Errors that stop a router are reported on the
// returned channel.
func (n *Network) Start() <-chan error {
	for _, s := range n.States {
		n.wg.Add(1)
		go func() {
			defer n.wg.Done()
			labels := pprof.Labels("dv router", s.Name(s.Id))
			pprof.Do(context.Background(), labels, func(_ context.Context) {
				err := core.Run(s)
				if err != nil {
					n.errs <- fmt.Errorf("router %s: %w", s.Name(s.Id), err)
				}
			})
		}()
	}
	return n.errs
}

// Transmit implements state.Transport.
func (n *Network) Transmit(from, to state.NodeId, data []byte) error {
	link, ok := n.Links[state.Pair[state.NodeId, state.NodeId]{V1: from, V2: to}]
	if !ok {
		return fmt.Errorf("no link from %d to %d", from, to)
	}
	n.activity.Set(from, n.sent.Add(1), ttlcache.DefaultTTL)

	n.rngMu.Lock()
	lost := link.PacketLoss > 0 && n.rng.RandU01() < link.PacketLoss
	corruptAt := -1
	var corruptWith byte
	if !lost && link.Corruption > 0 && n.rng.RandU01() < link.Corruption {
		corruptAt = n.rng.RandInt(0, len(data)-1)
		corruptWith = byte(n.rng.RandInt(1, 255))
	}
	delay := link.Latency + time.Duration(n.rng.RandU01()*float64(link.Jitter))
	n.rngMu.Unlock()

	if lost {
		return nil
	}
	if corruptAt >= 0 {
		data = slices.Clone(data)
		data[corruptAt] ^= corruptWith
	}
	n.inflight.Add(1)
	n.States[to].ScheduleTask(func(s *state.State) error {
		defer n.inflight.Add(-1)
		return core.HandlePacket(s, data)
	}, delay)
	return nil
}

// ChangeLinkCost changes the cost of link a-b at both ends.
func (n *Network) ChangeLinkCost(a, b state.NodeId, cost uint32) error {
	if _, ok := n.Links[state.Pair[state.NodeId, state.NodeId]{V1: a, V2: b}]; !ok {
		return fmt.Errorf("%w: %d-%d", state.ErrUnknownNeighbour, a, b)
	}
	n.inflight.Add(2)
	done := func(err error) {
		defer n.inflight.Add(-1)
		if err != nil {
			n.rejected.Add(1)
		}
	}
	core.ChangeLinkCost(n.States[a].Env, b, cost, done)
	core.ChangeLinkCost(n.States[b].Env, a, cost, done)
	return nil
}

// Rejected counts link changes a router refused to apply.
func (n *Network) Rejected() uint64 {
	return n.rejected.Load()
}

// Quiet reports whether every router has started, nothing is in flight and
// no router transmitted within the quiet window.
func (n *Network) Quiet() bool {
	for _, s := range n.States {
		if !s.Started.Load() {
			return false
		}
	}
	n.activity.DeleteExpired()
	return n.inflight.Load() == 0 && n.activity.Len() == 0
}

// WaitConverged blocks until the network is quiet.
func (n *Network) WaitConverged(ctx context.Context) error {
	ticker := time.NewTicker(state.ConvergencePoll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-n.Context.Done():
			return context.Cause(n.Context)
		case <-ticker.C:
			if n.Quiet() {
				return nil
			}
		}
	}
}

// RunEvents replays link changes at their configured offset (in
// milliseconds) from now, waiting for convergence after each.
func (n *Network) RunEvents(ctx context.Context, events []state.LinkEventCfg, onConverged func(ev state.LinkEventCfg)) error {
	start := time.Now()
	for _, ev := range events {
		wait := time.Until(start.Add(time.Duration(ev.At * float64(time.Millisecond))))
		if wait > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
		err := n.ChangeLinkCost(ev.A, ev.B, ev.Cost)
		if err != nil {
			return err
		}
		err = n.WaitConverged(ctx)
		if err != nil {
			return err
		}
		if onConverged != nil {
			onConverged(ev)
		}
	}
	return nil
}

// Vectors collects the vector every router currently advertises.
func (n *Network) Vectors() ([][]uint32, error) {
	snaps, err := n.Snapshots()
	if err != nil {
		return nil, err
	}
	vecs := make([][]uint32, len(snaps))
	for i, snap := range snaps {
		vecs[i] = make([]uint32, len(snap.Costs))
		for d := range snap.Costs {
			vecs[i][d] = snap.Costs[d][d]
		}
	}
	return vecs, nil
}

func (n *Network) Snapshots() ([]state.TableSnapshot, error) {
	snaps := make([]state.TableSnapshot, 0, len(n.States))
	for _, s := range n.States {
		snap, err := core.Snapshot(s.Env)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	return snaps, nil
}

// Stop stops every router and waits for their goroutines to exit.
func (n *Network) Stop() {
	for _, s := range n.States {
		core.Stop(s)
	}
	n.wg.Wait()
	n.Cancel(errors.New("network stopped"))
}
