package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDistanceTable(t *testing.T) {
	tbl := NewDistanceTable(3)
	assert.Equal(t, 3, tbl.Size())
	for d := range 3 {
		for v := range 3 {
			assert.Equal(t, INF, tbl.Get(NodeId(d), NodeId(v)))
		}
	}
	assert.Equal(t, []uint32{INF, INF, INF}, tbl.Diagonal())
}

func TestDistanceTableSetClamps(t *testing.T) {
	tbl := NewDistanceTable(2)
	tbl.Set(0, 1, 5000)
	assert.Equal(t, INF, tbl.Get(0, 1))
	tbl.Set(0, 1, 4)
	assert.Equal(t, uint32(4), tbl.Get(0, 1))
}

func TestDistanceTableCopies(t *testing.T) {
	tbl := NewDistanceTable(2)
	tbl.Set(1, 1, 3)

	row := tbl.Row(1)
	row[1] = 0
	assert.Equal(t, uint32(3), tbl.Get(1, 1))

	m := tbl.Matrix()
	m[1][1] = 0
	assert.Equal(t, uint32(3), tbl.Get(1, 1))

	c := tbl.Clone()
	c.Set(1, 1, 1)
	assert.Equal(t, uint32(3), tbl.Get(1, 1))
	assert.Equal(t, uint32(1), c.Get(1, 1))
}

func TestDistanceTableString(t *testing.T) {
	tbl := NewDistanceTable(2)
	tbl.Set(0, 0, 0)
	tbl.Set(1, 0, 12)
	assert.Equal(t, "0:   0 999\n1:  12 999", tbl.String())
}

func TestRouterStateSnapshot(t *testing.T) {
	rs, err := NewRouterState(1, 3, map[NodeId]uint32{0: 2, 2: 5})
	require.NoError(t, err)
	rs.Table.Set(0, 0, 2)

	snap := rs.Snapshot("init")
	assert.Equal(t, NodeId(1), snap.Router)
	assert.Equal(t, "init", snap.Event)
	assert.Equal(t, []NodeId{0, 2}, snap.Neighbours)
	assert.Equal(t, uint32(2), snap.Costs[0][0])

	rs.Table.Set(0, 0, 1)
	assert.Equal(t, uint32(2), snap.Costs[0][0])
}

func TestNewRouterState(t *testing.T) {
	rs, err := NewRouterState(2, 4, map[NodeId]uint32{3: 2, 0: 3, 1: 5000})
	require.NoError(t, err)
	assert.Equal(t, []NodeId{0, 1, 3}, rs.Neighbours())
	assert.Equal(t, uint32(0), rs.Links[2])
	assert.Equal(t, INF, rs.Links[1])
	assert.True(t, rs.IsNeighbour(3))
	assert.False(t, rs.IsNeighbour(2))
	assert.Equal(t, 4, rs.Nodes())

	_, err = NewRouterState(4, 4, nil)
	assert.ErrorIs(t, err, ErrInvalidTopology)
	_, err = NewRouterState(0, 4, map[NodeId]uint32{4: 1})
	assert.ErrorIs(t, err, ErrInvalidTopology)
	_, err = NewRouterState(0, 0, nil)
	assert.ErrorIs(t, err, ErrInvalidTopology)
}
