package middleware

import (
	"sync"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsResolved counts resolved requests by category and action.
	RequestsResolved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gatepass_requests_resolved_total",
		Help: "Total number of resolved gate-pass requests",
	}, []string{"category", "action"})

	// RequestsSubmitted counts submitted requests by type.
	RequestsSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gatepass_requests_submitted_total",
		Help: "Total number of submitted requests",
	}, []string{"type"})

	// OffencesIncremented counts offence increments applied by alert sweeps.
	OffencesIncremented = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gatepass_offences_incremented_total",
		Help: "Total number of offence counter increments",
	})

	// SMSDispatches counts SMS sends by outcome.
	SMSDispatches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gatepass_sms_dispatch_total",
		Help: "Total number of SMS dispatch attempts by outcome",
	}, []string{"outcome"})

	// RedisErrors counts Redis command errors by command name.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gatepass_redis_errors_total",
		Help: "Total number of Redis errors by command",
	}, []string{"command"})
)

var (
	promOnce sync.Once
	prom     *fiberprometheus.FiberPrometheus
)

// InitMetrics returns the process-wide HTTP metrics middleware, creating it on first use.
func InitMetrics(serviceName string) *fiberprometheus.FiberPrometheus {
	promOnce.Do(func() {
		prom = fiberprometheus.New(serviceName)
	})
	return prom
}
