// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package callback

import (
	"fmt"
	"time"

	"github.com/hashicorp/auth0callback/auth0"
	"github.com/prometheus/client_golang/prometheus"
)

// Results recorded by Metrics.
const (
	ResultSuccess        = "success"
	ResultProviderDenied = "provider_denied"
	ResultInvalidState   = "invalid_state"
	ResultInvalidRequest = "invalid_request"
	ResultTokenExchange  = "token_exchange_error"
	ResultProfileFetch   = "profile_fetch_error"
	ResultStore          = "store_error"
	ResultInternal       = "internal_error"
)

// Metrics counts callback outcomes and times each callback.
type Metrics struct {
	results  *prometheus.CounterVec
	duration prometheus.Histogram
}

// NewMetrics creates the callback collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	const op = "callback.NewMetrics"
	if reg == nil {
		return nil, fmt.Errorf("%s: registerer is nil: %w", op, auth0.ErrNilParameter)
	}
	m := &Metrics{
		results: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "auth0",
			Subsystem: "callback",
			Name:      "results_total",
			Help:      "Number of authorization code callbacks handled, by result.",
		}, []string{"result"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "auth0",
			Subsystem: "callback",
			Name:      "duration_seconds",
			Help:      "Time spent handling an authorization code callback.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	for _, c := range []prometheus.Collector{m.results, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("%s: unable to register collector: %w", op, err)
		}
	}
	return m, nil
}

// observe records a callback's result. A nil Metrics records nothing.
func (m *Metrics) observe(result string, start time.Time) {
	if m == nil {
		return
	}
	m.results.WithLabelValues(result).Inc()
	m.duration.Observe(time.Since(start).Seconds())
}
