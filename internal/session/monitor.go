package session

import (
	"authsession/internal/store"
	"context"
	"fmt"
	"log/slog"
	"time"
)

type Decision int

const (
	DecisionFresh Decision = iota
	DecisionRenew
	DecisionLogin
)

func (d Decision) String() string {
	switch d {
	case DecisionFresh:
		return "fresh"
	case DecisionRenew:
		return "renew"
	case DecisionLogin:
		return "login"
	default:
		return "unknown"
	}
}

// Evaluate decides what a monitor tick should do with bundle. Renewal is due
// once expiresIn minus the bundle's age in seconds is at or below threshold.
func Evaluate(bundle *store.Bundle, now time.Time, threshold time.Duration) Decision {
	if bundle == nil {
		return DecisionLogin
	}

	ageSeconds := float64(now.UnixMilli()-bundle.CreatedAt) / 1000
	remaining := float64(bundle.ExpiresIn) - ageSeconds

	if remaining <= threshold.Seconds() {
		return DecisionRenew
	}
	return DecisionFresh
}

// Ticker is the part of the controller the monitor drives.
type Ticker interface {
	Tick(ctx context.Context) error
}

// Monitor periodically asks the controller to evaluate expiry.
type Monitor struct {
	ticker   Ticker
	interval time.Duration
	logger   *slog.Logger
}

func NewMonitor(ticker Ticker, interval time.Duration, logger *slog.Logger) *Monitor {
	return &Monitor{
		ticker:   ticker,
		interval: interval,
		logger:   logger,
	}
}

func (m *Monitor) Name() string {
	return "expiration_monitor"
}

func (m *Monitor) Interval() time.Duration {
	return m.interval
}

func (m *Monitor) Run(ctx context.Context) error {
	if m.interval <= 0 {
		return fmt.Errorf("non-positive ticker interval: %s", m.interval)
	}

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.logger.Debug("Starting expiration monitor", "interval", m.interval)

	for {
		select {
		case <-ctx.Done():
			m.logger.Debug("Expiration monitor canceled")
			return ctx.Err()
		case <-ticker.C:
			if err := m.ticker.Tick(ctx); err != nil && ctx.Err() == nil {
				m.logger.Warn("expiration check failed", "error", err)
			}
		}
	}
}
