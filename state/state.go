package state

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

type DvModule interface {
	Init(s *State) error
	Cleanup(s *State) error
}

// State access must be done only on the router's own goroutine
type State struct {
	*Env
	*RouterState
	Modules map[string]DvModule
}

// Env can be read from any Goroutine
type Env struct {
	DispatchChannel chan func(s *State) error
	Topology        *TopologyCfg
	Transport       Transport
	Trace           TraceSink
	Context         context.Context
	Cancel          context.CancelCauseFunc
	Log             *slog.Logger
	StartedAt       time.Time
	Started         atomic.Bool
	Stopping        atomic.Bool
}

func (e *Env) Name(id NodeId) string {
	return e.Topology.Name(id)
}

// Since returns the seconds elapsed since the router started, used to stamp
// trace snapshots.
func (e *Env) Since() float64 {
	if e.StartedAt.IsZero() {
		return 0
	}
	return time.Since(e.StartedAt).Seconds()
}
