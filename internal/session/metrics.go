// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tempo Contributors

package session

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains Prometheus metrics for the session lifecycle.
type Metrics struct {
	ActiveSessions       prometheus.Gauge
	SessionsCreated      *prometheus.CounterVec
	VerificationAttempts *prometheus.CounterVec
	DispatchFailures     prometheus.Counter
	SweptSessions        prometheus.Counter
	RecordWriteFailures  prometheus.Counter
}

// NewMetrics creates and registers session metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tempo_sessions_active",
			Help: "Number of live sessions in the store",
		}),
		SessionsCreated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tempo_sessions_created_total",
				Help: "Total sessions created by initial state",
			},
			[]string{"state"},
		),
		VerificationAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tempo_verification_attempts_total",
				Help: "Total verification submissions by result",
			},
			[]string{"result"},
		),
		DispatchFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tempo_verification_dispatch_failures_total",
			Help: "Total verification code delivery failures",
		}),
		SweptSessions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tempo_sessions_swept_total",
			Help: "Total stale sessions removed by the sweeper",
		}),
		RecordWriteFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tempo_login_record_write_failures_total",
			Help: "Total durable login-record writes that failed after retries",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.ActiveSessions,
			m.SessionsCreated,
			m.VerificationAttempts,
			m.DispatchFailures,
			m.SweptSessions,
			m.RecordWriteFailures,
		)
	}
	return m
}
