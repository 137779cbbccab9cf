package perf

import (
	"expvar"
	"net/http"

	"github.com/encodeous/metric"
)

var (
	DispatchLatency      = metric.NewHistogram("1m1s")
	UpdatesSentPerSecond = metric.NewCounter("10s1s")
	UpdatesRecvPerSecond = metric.NewCounter("10s1s")
	RejectedPerSecond    = metric.NewCounter("10s1s")
	LinkChangesPerSecond = metric.NewCounter("10s1s")
	PacketBytes          = metric.NewHistogram("10s1s")
)

func init() {
	http.Handle("/debug/metrics", metric.Handler(metric.Exposed))
	expvar.Publish("dvsim:UpdatesSent/s", UpdatesSentPerSecond)
	expvar.Publish("dvsim:UpdatesRecv/s", UpdatesRecvPerSecond)
	expvar.Publish("dvsim:Rejected/s", RejectedPerSecond)
	expvar.Publish("dvsim:LinkChanges/s", LinkChangesPerSecond)
	expvar.Publish("dvsim:PacketBytes", PacketBytes)
	expvar.Publish("dvsim:DispatchLatency (µs)", DispatchLatency)
}
