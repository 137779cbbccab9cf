// Package oracle computes the least-cost paths of a topology centrally, so
// the vectors the routers converge to can be checked against them.
package oracle

import (
	"fmt"
	"math"

	"github.com/encodeous/dvsim/state"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
)

// Mismatch is a destination whose converged cost differs from the true
// least cost.
type Mismatch struct {
	Router state.NodeId
	Dest   state.NodeId
	Got    uint32
	Want   uint32
}

func (m Mismatch) String() string {
	return fmt.Sprintf("%d -> %d: got %d, want %d", m.Router, m.Dest, m.Got, m.Want)
}

// ShortestCosts returns the least cost between every pair of routers,
// indexed [from][to]. Unreachable pairs are state.INF.
func ShortestCosts(topo *state.TopologyCfg) [][]uint32 {
	g := simple.NewWeightedUndirectedGraph(0, math.Inf(1))
	for _, r := range topo.Routers {
		g.AddNode(simple.Node(r.Id))
	}
	for _, l := range topo.Links {
		g.SetWeightedEdge(simple.WeightedEdge{
			F: simple.Node(l.A),
			T: simple.Node(l.B),
			W: float64(l.Cost),
		})
	}
	all := path.DijkstraAllPaths(g)

	n := topo.Nodes()
	costs := make([][]uint32, n)
	for i := range n {
		costs[i] = make([]uint32, n)
		for j := range n {
			w := all.Weight(int64(i), int64(j))
			if math.IsInf(w, 1) || w >= float64(state.INF) {
				costs[i][j] = state.INF
			} else {
				costs[i][j] = uint32(w)
			}
		}
	}
	return costs
}

// Compare checks converged vectors against the least costs of topo.
func Compare(topo *state.TopologyCfg, vectors [][]uint32) []Mismatch {
	want := ShortestCosts(topo)
	var out []Mismatch
	for r, vec := range vectors {
		for d, got := range vec {
			if got != want[r][d] {
				out = append(out, Mismatch{
					Router: state.NodeId(r),
					Dest:   state.NodeId(d),
					Got:    got,
					Want:   want[r][d],
				})
			}
		}
	}
	return out
}
