package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	ChatRequests    prometheus.Counter
	ChatStreams     prometheus.Counter
	StreamChunks    prometheus.Counter
	UpstreamErrors  prometheus.Counter
	RateLimited     prometheus.Counter
	FavoritesWrites prometheus.Counter
}

var (
	once   sync.Once
	global *Metrics
)

func Global() *Metrics {
	once.Do(func() {
		global = &Metrics{
			ChatRequests: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "toolhub",
				Name:      "chat_requests_total",
				Help:      "Total chat relay requests accepted",
			}),
			ChatStreams: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "toolhub",
				Name:      "chat_streams_total",
				Help:      "Total chat requests served over SSE",
			}),
			StreamChunks: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "toolhub",
				Name:      "stream_chunks_total",
				Help:      "Total stream chunks relayed downstream",
			}),
			UpstreamErrors: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "toolhub",
				Name:      "upstream_errors_total",
				Help:      "Total failed upstream gateway calls",
			}),
			RateLimited: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "toolhub",
				Name:      "rate_limited_total",
				Help:      "Total chat requests rejected by the rate limiter",
			}),
			FavoritesWrites: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "toolhub",
				Name:      "favorites_writes_total",
				Help:      "Total mutating favorites operations",
			}),
		}
		prometheus.MustRegister(
			global.ChatRequests,
			global.ChatStreams,
			global.StreamChunks,
			global.UpstreamErrors,
			global.RateLimited,
			global.FavoritesWrites,
		)
	})
	return global
}
