package core

import (
	"reflect"

	"github.com/encodeous/dvsim/state"
)

// AddMetric adds two costs, saturating at state.INF.
func AddMetric(a, b uint32) uint32 {
	if a >= state.INF || b >= state.INF {
		return state.INF
	}
	return min(state.INF, a+b)
}

func Get[T state.DvModule](s *state.State) T {
	t := reflect.TypeFor[T]()
	return s.Modules[t.String()].(T)
}
