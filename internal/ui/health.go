package ui

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/signalrefinery/refinery/internal/client"
	"github.com/signalrefinery/refinery/internal/report"
)

// HealthSink receives each health probe outcome.
type HealthSink interface {
	SetHealth(report.HealthSection)
}

// HealthMonitor probes the backend's liveness endpoint on a fixed interval.
type HealthMonitor struct {
	api      client.API
	sink     HealthSink
	interval time.Duration
	log      *zap.Logger
}

// NewHealthMonitor returns a monitor reporting into sink every interval.
func NewHealthMonitor(api client.API, sink HealthSink, interval time.Duration, log *zap.Logger) *HealthMonitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &HealthMonitor{api: api, sink: sink, interval: interval, log: log}
}

// Probe runs one health check and reports it.
func (m *HealthMonitor) Probe(ctx context.Context) report.HealthSection {
	res := m.api.Health(ctx)
	var h report.HealthSection
	if res.Ok() {
		h = report.NewHealthSection(&res.Data, "")
	} else {
		h = report.NewHealthSection(nil, res.Message())
	}
	if !h.Healthy {
		m.log.Debug("backend unhealthy", zap.String("message", h.Message), zap.String("error", h.Error))
	}
	m.sink.SetHealth(h)
	return h
}

// Run probes immediately and then every interval until ctx is cancelled.
func (m *HealthMonitor) Run(ctx context.Context) error {
	m.Probe(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.Probe(ctx)
		}
	}
}
