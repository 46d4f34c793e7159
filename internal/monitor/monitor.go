package monitor

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Pinger is anything whose availability can be probed
type Pinger interface {
	Ping(ctx context.Context) error
}

// Status is the last observed storage health
type Status struct {
	Healthy   bool      `json:"healthy"`
	LastCheck time.Time `json:"lastCheck"`
	LastError string    `json:"lastError,omitempty"`
	Failures  int       `json:"consecutiveFailures"`
}

// Monitor periodically pings the storage backend and logs health transitions
type Monitor struct {
	pinger   Pinger
	interval time.Duration
	timeout  time.Duration

	mu     sync.RWMutex
	status Status

	done chan struct{}
}

// New creates a health monitor. The backend is assumed healthy until the
// first check says otherwise.
func New(pinger Pinger, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}

	timeout := 5 * time.Second
	if interval < timeout {
		timeout = interval
	}

	return &Monitor{
		pinger:   pinger,
		interval: interval,
		timeout:  timeout,
		status:   Status{Healthy: true},
		done:     make(chan struct{}),
	}
}

// Start begins the health worker in a goroutine
func (m *Monitor) Start(ctx context.Context) {
	go m.run(ctx)
}

// Done is closed once the worker has stopped
func (m *Monitor) Done() <-chan struct{} {
	return m.done
}

// run is the main loop for the health worker
func (m *Monitor) run(ctx context.Context) {
	defer close(m.done)
	slog.Info("storage monitor started", "interval", m.interval)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	// Run immediately on start
	m.Check(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("storage monitor stopped")
			return
		case <-ticker.C:
			m.Check(ctx)
		}
	}
}

// Check pings the backend once and records the result
func (m *Monitor) Check(ctx context.Context) Status {
	pingCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	err := m.pinger.Ping(pingCtx)

	m.mu.Lock()
	defer m.mu.Unlock()

	wasHealthy := m.status.Healthy
	m.status.LastCheck = time.Now().UTC()
	if err != nil {
		m.status.Healthy = false
		m.status.LastError = err.Error()
		m.status.Failures++
	} else {
		m.status.Healthy = true
		m.status.LastError = ""
		m.status.Failures = 0
	}

	switch {
	case wasHealthy && err != nil:
		slog.Error("storage backend unhealthy", "error", err)
	case !wasHealthy && err == nil:
		slog.Info("storage backend recovered")
	case err != nil:
		slog.Debug("storage backend still unhealthy", "error", err, "failures", m.status.Failures)
	}

	return m.status
}

// Healthy reports the result of the last check
func (m *Monitor) Healthy() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status.Healthy
}

// Status returns the last observed status
func (m *Monitor) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}
