package core

import (
	"context"
	"errors"
	"log/slog"
	"reflect"
	"runtime"
	"time"

	"github.com/encodeous/dvsim/perf"
	"github.com/encodeous/dvsim/state"
)

// NewState builds the state for router id without starting it. Packets may
// be dispatched to it straight away; they are processed once Run is called.
func NewState(ctx context.Context, topo *state.TopologyCfg, id state.NodeId, logger *slog.Logger, transport state.Transport, trace state.TraceSink) (*state.State, error) {
	rs, err := state.NewRouterState(id, topo.Nodes(), topo.NeighbourCosts(id))
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancelCause(ctx)
	return &state.State{
		Modules:     make(map[string]state.DvModule),
		RouterState: rs,
		Env: &state.Env{
			DispatchChannel: make(chan func(s *state.State) error, state.DispatchBuffer),
			Topology:        topo,
			Transport:       transport,
			Trace:           trace,
			Context:         ctx,
			Cancel:          cancel,
			Log:             logger,
			StartedAt:       time.Now(),
		},
	}, nil
}

// Run initializes the router and processes its events until Stop is called
// or its context is cancelled.
func Run(s *state.State) error {
	s.Log.Debug("init modules")
	err := initModules(s)
	if err != nil {
		s.Cancel(err)
		return err
	}
	s.Log.Debug("init modules complete")
	return MainLoop(s)
}

func initModules(s *state.State) error {
	var modules []state.DvModule
	modules = append(modules, &DvRouter{})

	for _, module := range modules {
		s.Modules[reflect.TypeOf(module).String()] = module
		if err := module.Init(s); err != nil {
			return err
		}
	}
	return nil
}

func MainLoop(s *state.State) error {
	s.Log.Debug("started main loop")
	s.Started.Store(true)
	for {
		select {
		case fun := <-s.DispatchChannel:
			start := time.Now()
			err := fun(s)
			if err != nil {
				s.Log.Error("error occurred during dispatch: ", "error", err)
				s.Cancel(err)
			}
			elapsed := time.Since(start)
			perf.DispatchLatency.Add(float64(elapsed.Microseconds()))
			if elapsed > state.SlowDispatch {
				s.Log.Warn("dispatch took a long time!", "fun", runtime.FuncForPC(reflect.ValueOf(fun).Pointer()).Name(), "elapsed", elapsed, "len", len(s.DispatchChannel))
			}
		case <-s.Context.Done():
			goto endLoop
		}
	}
endLoop:
	cause := context.Cause(s.Context)
	s.Log.Debug("stopped main loop", "reason", cause.Error())
	cleanup(s)
	if errors.Is(cause, context.Canceled) {
		return nil
	}
	return cause
}

// Stop asks the router to exit its main loop. It is safe to call from any
// goroutine and more than once.
func Stop(s *state.State) {
	if s.Stopping.Swap(true) {
		return
	}
	s.Cancel(context.Canceled)
}

func cleanup(s *state.State) {
	s.Stopping.Store(true)
	for moduleName, module := range s.Modules {
		err := module.Cleanup(s)
		if err != nil {
			s.Log.Error("error occurred during cleanup: ", "module", moduleName, "error", err)
		}
	}
}
