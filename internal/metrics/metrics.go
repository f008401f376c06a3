package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TicksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "ticks_total", Help: "Count of market ticks ingested"},
		[]string{"symbol"},
	)
	PacketsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "packets_published_total", Help: "Audio packets published to the distribution hub"},
		[]string{"symbol"},
	)
	RenderFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "render_failures_total", Help: "Render attempts that failed and dropped the packet"},
		[]string{"symbol"},
	)
	SubscriberLagTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "subscriber_lag_total", Help: "Packets skipped by lagging subscribers"},
		[]string{"symbol"},
	)
)

func init() {
	prometheus.MustRegister(TicksTotal, PacketsTotal, RenderFailuresTotal, SubscriberLagTotal)
}

func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
