package core

import (
	"fmt"
	"slices"
	"strings"
	"testing"

	"github.com/encodeous/dvsim/state"
	"github.com/google/go-cmp/cmp"
)

type HarnessEvent struct {
	Message string
	Args    []any
}

func MakeEvent(msg string, args ...any) HarnessEvent {
	return HarnessEvent{
		Message: msg,
		Args:    args,
	}
}

// RouterHarness records everything the algorithm asks of its host.
type RouterHarness struct {
	actions []HarnessEvent
	sent    []state.RoutingPacket
	traces  []state.TableSnapshot
}

func (h *RouterHarness) SendUpdate(pkt state.RoutingPacket) {
	h.sent = append(h.sent, pkt)
	h.actions = append(h.actions, MakeEvent("SEND", pkt.Dest, pkt.MinCost))
}

func (h *RouterHarness) Trace(snap state.TableSnapshot) {
	h.traces = append(h.traces, snap)
	h.actions = append(h.actions, MakeEvent("TRACE", snap.Event))
}

func (h *RouterHarness) Log(event RouterEvent, desc string, args ...any) {
	x := make([]any, 0)
	x = append(x, event)
	x = append(x, desc)
	x = append(x, args...)
	h.actions = append(h.actions, MakeEvent("LOG", x...))
}

// TakeSent returns and forgets every packet sent so far.
func (h *RouterHarness) TakeSent() []state.RoutingPacket {
	out := h.sent
	h.sent = nil
	return out
}

type HarnessEvents []HarnessEvent

func (h HarnessEvents) String() string {
	out := make([]string, 0)
	for _, action := range h {
		cur := action.Message
		for _, arg := range action.Args {
			cur += " " + fmt.Sprint(arg)
		}
		out = append(out, cur)
	}
	slices.Sort(out)
	return strings.Join(out, "\n")
}

// GetActions returns every non-log action since the last call.
func (h *RouterHarness) GetActions() HarnessEvents {
	x := make([]HarnessEvent, 0)
	for _, action := range h.actions {
		if action.Message != "LOG" {
			x = append(x, action)
		}
	}
	h.actions = make([]HarnessEvent, 0)
	h.sent = nil
	return x
}

// GetLogs returns the events of every log action since the last call to
// GetActions.
func (h *RouterHarness) GetLogs() []RouterEvent {
	x := make([]RouterEvent, 0)
	for _, action := range h.actions {
		if action.Message == "LOG" {
			x = append(x, action.Args[0].(RouterEvent))
		}
	}
	return x
}

func (e HarnessEvents) contains(msg string, args ...any) bool {
	for _, event := range e {
		if event.Message == msg {
			if len(event.Args) >= len(args) {
				match := true
				for i, arg := range args {
					if !cmp.Equal(event.Args[i], arg) {
						match = false
						break
					}
				}
				if match {
					return true
				}
			}
		}
	}
	return false
}

func (e HarnessEvents) AssertContains(t *testing.T, msg string, args ...any) {
	t.Helper()
	if e.contains(msg, args...) {
		return
	}
	t.Fatal("Expected event not found: ", msg, " with args: ", args, " in ", e)
}

func (e HarnessEvents) AssertNotContains(t *testing.T, msg string, args ...any) {
	t.Helper()
	if e.contains(msg, args...) {
		t.Fatal("Unexpected event found: ", msg, " with args: ", args, " in ", e)
	}
}

func (e HarnessEvents) Count(msg string) int {
	n := 0
	for _, event := range e {
		if event.Message == msg {
			n++
		}
	}
	return n
}

// MakeRouter builds router id of topo with its table initialized. The
// packets sent during initialization are discarded.
func MakeRouter(t *testing.T, topo state.TopologyCfg, id state.NodeId) (*state.RouterState, *RouterHarness) {
	t.Helper()
	rs, err := state.NewRouterState(id, topo.Nodes(), topo.NeighbourCosts(id))
	if err != nil {
		t.Fatal(err)
	}
	h := &RouterHarness{}
	Init(rs, h)
	h.GetActions()
	return rs, h
}

// Vec is shorthand for writing vectors in tests.
func Vec(costs ...uint32) []uint32 {
	return costs
}

func (h *RouterHarness) NeighUpdate(rs *state.RouterState, from state.NodeId, costs ...uint32) error {
	return HandleNeighbourUpdate(rs, h, state.NewRoutingPacket(from, rs.Id, costs))
}

// AssertDiagonalConsistent checks that every diagonal entry is the row
// minimum.
func AssertDiagonalConsistent(t *testing.T, rs *state.RouterState) {
	t.Helper()
	for d := range rs.Nodes() {
		dest := state.NodeId(d)
		if got, want := rs.Table.Get(dest, dest), slices.Min(rs.Table.Row(dest)); got != want {
			t.Fatalf("router %d: cost[%d][%d] = %d, row minimum is %d\n%s", rs.Id, d, d, got, want, rs.Table)
		}
	}
}
