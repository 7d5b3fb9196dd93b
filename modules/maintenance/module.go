// Package maintenance runs the periodic message retention job.
package maintenance

import (
	"context"
	"sync"
	"time"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
)

// jobTimeout bounds a single retention pass.
const jobTimeout = 5 * time.Minute

// Store is the storage the retention job works on.
type Store interface {
	PurgeMessages(ctx context.Context, days int) (int64, error)
	Optimize(ctx context.Context) error
}

// Result describes one retention pass.
type Result struct {
	Deleted  int64         `json:"deleted"`
	Duration time.Duration `json:"duration"`
	At       time.Time     `json:"at"`
	Err      string        `json:"error,omitempty"`
}

// MaintenanceModule deletes old messages and compacts the database on a ticker.
type MaintenanceModule struct {
	store    Store
	days     int
	interval time.Duration
	logger   types.Logger

	mu   sync.RWMutex
	last *Result

	stopChan chan struct{}
	doneChan chan struct{}
	stopOnce sync.Once
}

// Compile-time interface checks
var (
	_ mono.Module                = (*MaintenanceModule)(nil)
	_ mono.HealthCheckableModule = (*MaintenanceModule)(nil)
)

// NewModule creates a retention job keeping days of history, run every interval.
func NewModule(store Store, days int, interval time.Duration, logger types.Logger) *MaintenanceModule {
	return &MaintenanceModule{
		store:    store,
		days:     days,
		interval: interval,
		logger:   logger,
	}
}

// Name returns the module name.
func (m *MaintenanceModule) Name() string {
	return "maintenance"
}

// Start runs one pass immediately and then one per interval.
func (m *MaintenanceModule) Start(_ context.Context) error {
	m.stopChan = make(chan struct{})
	m.doneChan = make(chan struct{})

	go m.run()

	m.logger.Info("Retention job started", "retention_days", m.days, "interval", m.interval)
	return nil
}

func (m *MaintenanceModule) run() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	defer close(m.doneChan)

	m.runOnce()
	for {
		select {
		case <-m.stopChan:
			return
		case <-ticker.C:
			m.runOnce()
		}
	}
}

// runOnce is cancelled early when the module stops.
func (m *MaintenanceModule) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	go func() {
		select {
		case <-m.stopChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	m.Run(ctx)
}

// Run executes a single retention pass and records its result.
func (m *MaintenanceModule) Run(ctx context.Context) Result {
	start := time.Now()
	res := Result{At: start}

	deleted, err := m.store.PurgeMessages(ctx, m.days)
	if err != nil {
		res.Err = err.Error()
		m.logger.Error("Retention purge failed", "retention_days", m.days, "error", err)
	} else {
		res.Deleted = deleted
		if err := m.store.Optimize(ctx); err != nil {
			m.logger.Warn("Database optimize failed", "error", err)
		}
		m.logger.Info("Retention purge completed", "deleted", deleted, "retention_days", m.days)
	}
	res.Duration = time.Since(start)

	m.mu.Lock()
	m.last = &res
	m.mu.Unlock()
	return res
}

// LastRun returns the most recent pass, if any.
func (m *MaintenanceModule) LastRun() (Result, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.last == nil {
		return Result{}, false
	}
	return *m.last, true
}

// Health reports the last pass.
func (m *MaintenanceModule) Health(_ context.Context) mono.HealthStatus {
	details := map[string]any{
		"retention_days": m.days,
		"interval":       m.interval.String(),
	}
	last, ok := m.LastRun()
	if ok {
		details["last_run"] = last.At
		details["last_deleted"] = last.Deleted
	}
	if ok && last.Err != "" {
		return mono.HealthStatus{Healthy: false, Message: "last purge failed: " + last.Err, Details: details}
	}
	return mono.HealthStatus{Healthy: true, Message: "operational", Details: details}
}

// Stop signals the job and waits for the running pass to return.
func (m *MaintenanceModule) Stop(ctx context.Context) error {
	if m.stopChan == nil {
		return nil
	}

	m.stopOnce.Do(func() {
		close(m.stopChan)
	})

	select {
	case <-m.doneChan:
		m.logger.Info("Retention job stopped")
	case <-ctx.Done():
		m.logger.Warn("Retention job shutdown timeout exceeded")
		return ctx.Err()
	}
	return nil
}
