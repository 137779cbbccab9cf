package state

type Pair[Ty1, Ty2 any] struct {
	V1 Ty1
	V2 Ty2
}

// Edge is an undirected link, with the lower id in V1.
type Edge = Pair[NodeId, NodeId]

func MakeEdge(a, b NodeId) Edge {
	if b < a {
		a, b = b, a
	}
	return Edge{V1: a, V2: b}
}
