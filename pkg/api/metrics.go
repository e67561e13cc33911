// CLAUDE:SUMMARY Prometheus collectors for the lookup API and the kit middleware that feeds them.
package api

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hazyhaar/causa-registry/pkg/kit"
	"github.com/hazyhaar/causa-registry/pkg/lookup"
)

const metricsPrefix = "causa_"

// Metrics holds the API collectors.
type Metrics struct {
	requests    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	resolutions *prometheus.CounterVec
}

// NewMetrics registers the API collectors with registerer
// (prometheus.DefaultRegisterer when nil).
func NewMetrics(registerer prometheus.Registerer) (*Metrics, error) {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metricsPrefix + "requests_total",
			Help: "Endpoint calls by endpoint, transport and status.",
		}, []string{"endpoint", "transport", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    metricsPrefix + "request_duration_seconds",
			Help:    "Endpoint latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metricsPrefix + "resolutions_total",
			Help: "Resolved labels by origin and correction type.",
		}, []string{"origin", "kind"}),
	}
	for _, c := range []prometheus.Collector{m.requests, m.duration, m.resolutions} {
		if err := registerer.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Middleware counts calls and observes latency for the endpoint named name,
// and counts every lookup.Result it returns.
func (m *Metrics) Middleware(name string) kit.Middleware {
	return func(next kit.Endpoint) kit.Endpoint {
		return func(ctx context.Context, request any) (any, error) {
			start := time.Now()
			resp, err := next(ctx, request)
			m.duration.WithLabelValues(name).Observe(time.Since(start).Seconds())

			status := "ok"
			if err != nil {
				status = "error"
			}
			m.requests.WithLabelValues(name, kit.GetTransport(ctx), status).Inc()
			if err != nil {
				return resp, err
			}

			switch v := resp.(type) {
			case lookup.Result:
				m.observe(v)
			case batchResponse:
				for _, r := range v.Results {
					m.observe(r)
				}
			}
			return resp, nil
		}
	}
}

func (m *Metrics) observe(r lookup.Result) {
	origin := string(r.Origin)
	if r.Cached {
		origin = "cache"
	}
	m.resolutions.WithLabelValues(origin, string(r.Kind)).Inc()
}
