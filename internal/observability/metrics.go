// Package observability provides metrics and tracing.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SignupsTotal counts signup attempts by outcome.
	SignupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warbler_signups_total",
		Help: "Total number of signup attempts by outcome",
	}, []string{"result"})

	// LoginsTotal counts authentication attempts by outcome.
	LoginsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warbler_logins_total",
		Help: "Total number of authentication attempts by outcome",
	}, []string{"result"})

	// MessagesPostedTotal counts messages created.
	MessagesPostedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "warbler_messages_posted_total",
		Help: "Total number of messages posted",
	})

	// FollowEventsTotal counts follow graph mutations by action.
	FollowEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warbler_follow_events_total",
		Help: "Total number of follow and unfollow actions",
	}, []string{"action"})

	// RedisErrors counts Redis errors by command.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warbler_redis_errors_total",
		Help: "Total number of Redis errors by command",
	}, []string{"command"})

	// FeedConnections is the gauge of open WebSocket feed connections.
	FeedConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "warbler_feed_connections",
		Help: "Number of open WebSocket feed connections",
	})
)

// FeedDrops counts feed events dropped because a socket's buffer was full.
var FeedDrops = promauto.NewCounter(prometheus.CounterOpts{
	Name: "warbler_feed_dropped_total",
	Help: "Total number of feed events dropped due to slow consumers",
})
