package state

import "time"

const (
	// INF is the sentinel cost for an unreachable destination. Any cost at or
	// above INF is treated as INF.
	INF = uint32(999)
)

var (
	DispatchBuffer   = 128
	SlowDispatch     = time.Millisecond * 4
	QuietWindow      = time.Millisecond * 250
	ConvergencePoll  = time.Millisecond * 10
	TraceBuffer      = 1024
	DefaultSimLimit  = 100000.0
	DefaultMinDelay  = 1.0
	DefaultMaxDelay  = 10.0
	DefaultLatency   = time.Millisecond * 5
	DefaultJitter    = time.Millisecond * 5
	DefaultTopoPath  = "topology.yaml"
	DefaultRngStream = "dvsim"
)
