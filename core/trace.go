package core

import (
	"fmt"
	"strings"
	"sync"

	"github.com/dustin/go-broadcast"
	"github.com/encodeous/dvsim/state"
)

// Tracer fans table snapshots out to any number of listeners.
type Tracer struct {
	b      broadcast.Broadcaster
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
	stops  []func()
}

func NewTracer() *Tracer {
	return &Tracer{
		b: broadcast.NewBroadcaster(state.TraceBuffer),
	}
}

func (t *Tracer) Submit(snap state.TableSnapshot) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		return
	}
	t.b.Submit(snap)
}

// Listen calls fn for every snapshot on its own goroutine until the returned
// stop function is called.
func (t *Tracer) Listen(fn func(snap state.TableSnapshot)) (stop func()) {
	ch := make(chan interface{}, state.TraceBuffer)
	done := make(chan struct{})
	t.b.Register(ch)
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		for {
			select {
			case v := <-ch:
				if snap, ok := v.(state.TableSnapshot); ok {
					fn(snap)
				}
			case <-done:
				// drain whatever was delivered before we unregistered
				for {
					select {
					case v := <-ch:
						if snap, ok := v.(state.TableSnapshot); ok {
							fn(snap)
						}
					default:
						return
					}
				}
			}
		}
	}()
	var once sync.Once
	stop = func() {
		once.Do(func() {
			t.b.Unregister(ch)
			close(done)
		})
	}
	t.mu.Lock()
	t.stops = append(t.stops, stop)
	t.mu.Unlock()
	return stop
}

// Close stops every listener and shuts the broadcaster down. Snapshots
// submitted afterwards are dropped.
func (t *Tracer) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	for _, stop := range t.stops {
		stop()
	}
	t.wg.Wait()
	return t.b.Close()
}

// FormatTable renders a snapshot as a dest x via grid. Only neighbour
// columns are shown and our own row is omitted, as it carries no routing
// decision.
func FormatTable(snap state.TableSnapshot) string {
	sb := strings.Builder{}
	label := fmt.Sprintf("D%d", snap.Router)

	sb.WriteString(fmt.Sprintf("%s|%s\n", strings.Repeat(" ", 6), centre("via", 6*len(snap.Neighbours))))
	sb.WriteString(fmt.Sprintf("%5s |", label))
	for _, v := range snap.Neighbours {
		sb.WriteString(fmt.Sprintf("%6d", v))
	}
	sb.WriteString("\n")
	sb.WriteString("  ----|" + strings.Repeat("-", 6*len(snap.Neighbours)) + "\n")

	first := true
	for d := range snap.Costs {
		if state.NodeId(d) == snap.Router {
			continue
		}
		prefix := "     "
		if first {
			prefix = "dest "
			first = false
		}
		sb.WriteString(fmt.Sprintf("%s%d|", prefix, d))
		for _, v := range snap.Neighbours {
			sb.WriteString(fmt.Sprintf("%6d", snap.Costs[d][v]))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func centre(s string, width int) string {
	if width <= len(s) {
		return s
	}
	pad := (width - len(s)) / 2
	return strings.Repeat(" ", pad) + s + strings.Repeat(" ", width-len(s)-pad)
}
