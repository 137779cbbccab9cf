package core

import (
	"math"
	"testing"

	"github.com/encodeous/dvsim/oracle"
	"github.com/encodeous/dvsim/state"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

//	    1 --1-- 2
//	    |     / |
//	    1   3   2
//	    | /     |
//	    0 --7-- 3

func TestAddMetric(t *testing.T) {
	assert.Equal(t, uint32(5), AddMetric(2, 3))
	assert.Equal(t, uint32(998), AddMetric(997, 1))
	assert.Equal(t, state.INF, AddMetric(998, 1))
	assert.Equal(t, state.INF, AddMetric(500, 600))
	assert.Equal(t, state.INF, AddMetric(state.INF, 0))
	assert.Equal(t, state.INF, AddMetric(0, state.INF))
	assert.Equal(t, state.INF, AddMetric(math.MaxUint32, math.MaxUint32))
}

func TestInitSendsOnePacketPerNeighbour(t *testing.T) {
	topo := state.DefaultTopology()
	rs, err := state.NewRouterState(1, topo.Nodes(), topo.NeighbourCosts(1))
	require.NoError(t, err)
	h := &RouterHarness{}
	Init(rs, h)

	sent := h.TakeSent()
	require.Len(t, sent, 2)
	assert.Equal(t, state.NewRoutingPacket(1, 0, Vec(1, 0, 1, state.INF)), sent[0])
	assert.Equal(t, state.NewRoutingPacket(1, 2, Vec(1, 0, 1, state.INF)), sent[1])

	a := h.GetActions()
	a.AssertContains(t, "TRACE", "init")
	assert.Equal(t, Vec(1, 0, 1, state.INF), rs.Table.Diagonal())
	AssertDiagonalConsistent(t, rs)
}

func TestInitPacketsDoNotShareVector(t *testing.T) {
	topo := state.DefaultTopology()
	rs, err := state.NewRouterState(0, topo.Nodes(), topo.NeighbourCosts(0))
	require.NoError(t, err)
	h := &RouterHarness{}
	Init(rs, h)

	sent := h.TakeSent()
	require.Len(t, sent, 3)
	sent[0].MinCost[3] = 1
	assert.Equal(t, uint32(7), sent[1].MinCost[3])
	assert.Equal(t, uint32(7), rs.Table.Get(3, 3))
}

func TestLearnViaNeighbour(t *testing.T) {
	// B (1) hears C's (2) initial vector and learns D (3) via C at cost 3
	rs, h := MakeRouter(t, state.DefaultTopology(), 1)

	require.NoError(t, h.NeighUpdate(rs, 2, 3, 1, 0, 2))
	assert.Equal(t, uint32(3), rs.Table.Get(3, 2))
	assert.Equal(t, uint32(4), rs.Table.Get(0, 2))
	assert.Equal(t, Vec(1, 0, 1, 3), rs.Table.Diagonal())
	AssertDiagonalConsistent(t, rs)

	a := h.GetActions()
	assert.Equal(t, `SEND 0 [1 0 1 3]
SEND 2 [1 0 1 3]
TRACE update`, a.String())
}

func TestRelaxationOnlyTouchesSenderColumn(t *testing.T) {
	rs, h := MakeRouter(t, state.DefaultTopology(), 0)
	before := rs.Table.Matrix()

	require.NoError(t, h.NeighUpdate(rs, 1, 1, 0, 1, 3))
	after := rs.Table.Matrix()
	for d := range after {
		for v := range after[d] {
			if v == 1 || v == d {
				continue
			}
			assert.Equal(t, before[d][v], after[d][v], "cost[%d][%d] changed", d, v)
		}
	}
	// cost[d][1] = c(0,1) + D1(d)
	assert.Equal(t, uint32(2), rs.Table.Get(0, 1))
	assert.Equal(t, uint32(2), rs.Table.Get(2, 1))
	assert.Equal(t, uint32(4), rs.Table.Get(3, 1))
}

func TestNoTransmissionWithoutChange(t *testing.T) {
	rs, h := MakeRouter(t, state.DefaultTopology(), 1)

	require.NoError(t, h.NeighUpdate(rs, 2, 3, 1, 0, 2))
	h.GetActions()
	before := rs.Table.Matrix()

	// the same vector again relaxes nothing
	require.NoError(t, h.NeighUpdate(rs, 2, 3, 1, 0, 2))
	a := h.GetActions()
	assert.Equal(t, 0, a.Count("SEND"))
	assert.Equal(t, 0, a.Count("TRACE"))
	assert.Empty(t, cmp.Diff(before, rs.Table.Matrix()))

	// a worse vector relaxes nothing either, costs never increase here
	require.NoError(t, h.NeighUpdate(rs, 2, 9, 9, 0, 9))
	a = h.GetActions()
	assert.Equal(t, 0, a.Count("SEND"))
	assert.Empty(t, cmp.Diff(before, rs.Table.Matrix()))
}

func TestRelaxedColumnWithoutVectorChange(t *testing.T) {
	rs, h := MakeRouter(t, state.DefaultTopology(), 0)

	require.NoError(t, h.NeighUpdate(rs, 1, 1, 0, 1, 3))
	a := h.GetActions()
	assert.Equal(t, 3, a.Count("SEND"))
	assert.Equal(t, Vec(0, 1, 2, 4), rs.Table.Diagonal())

	// C's column gets better entries but none beats what we already have
	require.NoError(t, h.NeighUpdate(rs, 2, 2, 1, 0, 2))
	logs := h.GetLogs()
	a = h.GetActions()
	assert.Contains(t, logs, ColumnRelaxed)
	assert.NotContains(t, logs, VectorChanged)
	assert.Equal(t, 0, a.Count("SEND"))
	assert.Equal(t, uint32(4), rs.Table.Get(3, 2))
	AssertDiagonalConsistent(t, rs)
}

// converge feeds router 0 the converged vectors of its neighbours.
func converge(t *testing.T, rs *state.RouterState, h *RouterHarness) {
	require.NoError(t, h.NeighUpdate(rs, 1, 1, 0, 1, 3))
	require.NoError(t, h.NeighUpdate(rs, 2, 2, 1, 0, 2))
	require.NoError(t, h.NeighUpdate(rs, 3, 4, 3, 2, 0))
	require.Equal(t, Vec(0, 1, 2, 4), rs.Table.Diagonal())
	h.GetActions()
}

func TestDominatedLinkIncrease(t *testing.T) {
	rs, h := MakeRouter(t, state.DefaultTopology(), 0)
	converge(t, rs, h)

	// 0-3 becomes worse, but 0-1-2-3 still costs 4
	require.NoError(t, HandleLinkChange(rs, h, 3, 10))
	a := h.GetActions()
	assert.Equal(t, 0, a.Count("SEND"))
	a.AssertContains(t, "TRACE", "link")
	assert.Equal(t, Vec(0, 1, 2, 4), rs.Table.Diagonal())
	assert.Equal(t, uint32(10), rs.Links[3])
	AssertDiagonalConsistent(t, rs)
}

func TestLinkIncreaseChangesVector(t *testing.T) {
	rs, h := MakeRouter(t, state.DefaultTopology(), 0)
	converge(t, rs, h)

	require.NoError(t, HandleLinkChange(rs, h, 1, 20))
	a := h.GetActions()
	assert.Equal(t, `SEND 1 [0 3 2 4]
SEND 2 [0 3 2 4]
SEND 3 [0 3 2 4]
TRACE link`, a.String())
	AssertDiagonalConsistent(t, rs)

	// restoring the link advertises the direct cost again
	require.NoError(t, HandleLinkChange(rs, h, 1, 1))
	a = h.GetActions()
	a.AssertContains(t, "SEND", state.NodeId(1), Vec(0, 1, 2, 4))
	assert.Equal(t, 3, a.Count("SEND"))
}

func TestLinkDecreaseIsAdvertised(t *testing.T) {
	rs, h := MakeRouter(t, state.DefaultTopology(), 0)
	converge(t, rs, h)

	require.NoError(t, HandleLinkChange(rs, h, 3, 1))
	a := h.GetActions()
	a.AssertContains(t, "SEND", state.NodeId(1), Vec(0, 1, 2, 1))
	assert.Equal(t, 3, a.Count("SEND"))
}

func TestLinkChangeUnknownNeighbour(t *testing.T) {
	rs, h := MakeRouter(t, state.DefaultTopology(), 1)
	before := rs.Table.Matrix()

	err := HandleLinkChange(rs, h, 3, 5)
	assert.ErrorIs(t, err, state.ErrUnknownNeighbour)
	err = HandleLinkChange(rs, h, 1, 5)
	assert.ErrorIs(t, err, state.ErrUnknownNeighbour)

	assert.Contains(t, h.GetLogs(), UnknownNeighbour)
	assert.Empty(t, h.GetActions())
	assert.Empty(t, cmp.Diff(before, rs.Table.Matrix()))
	assert.NotContains(t, rs.Links, state.NodeId(3))
}

func TestRejectMalformedPacket(t *testing.T) {
	tests := []struct {
		name string
		pkt  state.RoutingPacket
	}{
		{"short vector", state.NewRoutingPacket(2, 1, Vec(3, 1, 0))},
		{"long vector", state.NewRoutingPacket(2, 1, Vec(3, 1, 0, 2, 0))},
		{"wrong destination", state.NewRoutingPacket(2, 0, Vec(3, 1, 0, 2))},
		{"not a neighbour", state.NewRoutingPacket(3, 1, Vec(7, 3, 2, 0))},
		{"from ourselves", state.NewRoutingPacket(1, 1, Vec(1, 0, 1, 3))},
		{"cost above infinity", state.NewRoutingPacket(2, 1, Vec(3, 1, 0, state.INF+1))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rs, h := MakeRouter(t, state.DefaultTopology(), 1)
			before := rs.Table.Matrix()

			err := HandleNeighbourUpdate(rs, h, tt.pkt)
			assert.ErrorIs(t, err, state.ErrMalformedPacket)
			assert.Contains(t, h.GetLogs(), MalformedPacket)
			assert.Empty(t, h.GetActions())
			assert.Empty(t, cmp.Diff(before, rs.Table.Matrix()))
		})
	}
}

func TestUnreachableStaysInfinite(t *testing.T) {
	topo := state.TopologyCfg{
		Routers: []state.RouterCfg{{Id: 0, Name: "a"}, {Id: 1, Name: "b"}, {Id: 2, Name: "c"}},
		Links:   []state.LinkCfg{{A: 0, B: 1, Cost: 4}},
	}
	rs, h := MakeRouter(t, topo, 0)
	require.NoError(t, h.NeighUpdate(rs, 1, 4, 0, state.INF))
	assert.Equal(t, Vec(0, 4, state.INF), rs.Table.Diagonal())
	assert.Equal(t, state.INF, rs.Table.Get(2, 1))
}

type queued struct {
	pkt state.RoutingPacket
}

// simulate runs every router of topo to quiescence, delivering packets in
// the order picked by next. It checks that no vector entry ever increases.
func simulate(t *testing.T, topo state.TopologyCfg, next func(queue []queued) int) ([]*state.RouterState, int) {
	t.Helper()
	routers := make([]*state.RouterState, topo.Nodes())
	harnesses := make([]*RouterHarness, topo.Nodes())
	var queue []queued
	for _, r := range topo.Routers {
		rs, err := state.NewRouterState(r.Id, topo.Nodes(), topo.NeighbourCosts(r.Id))
		require.NoError(t, err)
		routers[r.Id] = rs
		harnesses[r.Id] = &RouterHarness{}
		Init(rs, harnesses[r.Id])
		for _, pkt := range harnesses[r.Id].TakeSent() {
			queue = append(queue, queued{pkt})
		}
	}
	sent := len(queue)
	for len(queue) > 0 {
		i := next(queue)
		q := queue[i]
		queue = append(queue[:i], queue[i+1:]...)

		rs := routers[q.pkt.Dest]
		prev := rs.Table.Diagonal()
		require.NoError(t, HandleNeighbourUpdate(rs, harnesses[rs.Id], q.pkt))
		AssertDiagonalConsistent(t, rs)
		for d, c := range rs.Table.Diagonal() {
			require.LessOrEqual(t, c, prev[d], "router %d cost to %d increased", rs.Id, d)
		}
		out := harnesses[rs.Id].TakeSent()
		sent += len(out)
		for _, pkt := range out {
			require.NotEqual(t, pkt.Source, pkt.Dest)
			queue = append(queue, queued{pkt})
		}
		require.Less(t, sent, 10000, "routers did not converge")
	}
	return routers, sent
}

func diagonals(routers []*state.RouterState) [][]uint32 {
	out := make([][]uint32, len(routers))
	for i, rs := range routers {
		out[i] = rs.Table.Diagonal()
	}
	return out
}

func TestConvergesInOrder(t *testing.T) {
	topo := state.DefaultTopology()
	routers, _ := simulate(t, topo, func(queue []queued) int { return 0 })
	assert.Empty(t, oracle.Compare(&topo, diagonals(routers)))
	assert.Equal(t, Vec(0, 1, 2, 4), routers[0].Table.Diagonal())
	assert.Equal(t, Vec(4, 3, 2, 0), routers[3].Table.Diagonal())
}

func TestConvergesOutOfOrder(t *testing.T) {
	topo := state.DefaultTopology()
	routers, _ := simulate(t, topo, func(queue []queued) int { return len(queue) - 1 })
	assert.Empty(t, oracle.Compare(&topo, diagonals(routers)))
}

func TestConvergesOnLine(t *testing.T) {
	topo := state.TopologyCfg{
		Routers: []state.RouterCfg{{Id: 0, Name: "a"}, {Id: 1, Name: "b"}, {Id: 2, Name: "c"}, {Id: 3, Name: "d"}, {Id: 4, Name: "e"}},
		Links: []state.LinkCfg{
			{A: 0, B: 1, Cost: 2},
			{A: 1, B: 2, Cost: 3},
			{A: 2, B: 3, Cost: 4},
			{A: 3, B: 4, Cost: 5},
		},
	}
	routers, _ := simulate(t, topo, func(queue []queued) int { return len(queue) / 2 })
	assert.Empty(t, oracle.Compare(&topo, diagonals(routers)))
	assert.Equal(t, Vec(0, 2, 5, 9, 14), routers[0].Table.Diagonal())
}

func TestRouterEventString(t *testing.T) {
	assert.Equal(t, "ColumnRelaxed", ColumnRelaxed.String())
	assert.Equal(t, "MalformedPacket", MalformedPacket.String())
	assert.Equal(t, "RouterEvent(42)", RouterEvent(42).String())
}
