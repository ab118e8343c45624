package middleware

import (
	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// RedisErrors counts failed Redis commands by command name.
var RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "irtzalink_redis_errors_total",
	Help: "Number of Redis command errors.",
}, []string{"command"})

// FollowMutations counts follow/unfollow calls by action and outcome.
var FollowMutations = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "irtzalink_follow_mutations_total",
	Help: "Number of follow and unfollow mutations.",
}, []string{"action", "outcome"})

// CacheHits counts relationship cache hits by entry kind and layer.
var CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "irtzalink_follow_cache_hits_total",
	Help: "Number of relationship cache hits.",
}, []string{"kind", "layer"})

// CacheMisses counts relationship cache misses by entry kind.
var CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "irtzalink_follow_cache_misses_total",
	Help: "Number of relationship cache misses.",
}, []string{"kind"})

// InitMetrics creates the Prometheus middleware for HTTP metrics.
func InitMetrics(serviceName string) *fiberprometheus.FiberPrometheus {
	return fiberprometheus.New(serviceName)
}

// MetricsMiddleware wires the Prometheus middleware into the request chain.
func MetricsMiddleware(prom *fiberprometheus.FiberPrometheus) fiber.Handler {
	return prom.Middleware
}
