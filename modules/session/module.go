package session

import (
	"context"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"

	"github.com/example/collab-template-demo/events"
)

// SessionModule runs the room session engine inside the mono application.
type SessionModule struct {
	engine    *Engine
	logger    types.Logger
	cancel    context.CancelFunc
	sweepDone chan struct{}
}

// Compile-time interface checks
var (
	_ mono.Module                = (*SessionModule)(nil)
	_ mono.EventBusAwareModule   = (*SessionModule)(nil)
	_ mono.EventEmitterModule    = (*SessionModule)(nil)
	_ mono.HealthCheckableModule = (*SessionModule)(nil)
)

// NewModule creates a new session module.
func NewModule(cfg Config, deps Deps, logger types.Logger) *SessionModule {
	return &SessionModule{
		engine: NewEngine(cfg, deps, logger),
		logger: logger,
	}
}

// Name returns the module name.
func (m *SessionModule) Name() string {
	return "session"
}

// SetEventBus receives the EventBus from the framework.
func (m *SessionModule) SetEventBus(bus mono.EventBus) {
	m.engine.SetEventBus(bus)
}

// EmitEvents declares the events this module can emit.
func (m *SessionModule) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.MemberJoinedV1.ToBase(),
		events.MemberLeftV1.ToBase(),
		events.MemberRenamedV1.ToBase(),
		events.DocumentUpdatedV1.ToBase(),
		events.EditFailedV1.ToBase(),
		events.RoomEvictedV1.ToBase(),
	}
}

// Start launches the eviction sweep.
func (m *SessionModule) Start(_ context.Context) error {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.sweepDone = make(chan struct{})

	go func() {
		defer close(m.sweepDone)
		m.engine.Run(ctx)
	}()

	m.logger.Info("Session module started",
		"eviction_grace", m.engine.cfg.EvictionGrace,
		"eviction_sweep", m.engine.cfg.EvictionSweep)
	return nil
}

// Stop cancels in-flight AI edits, waits for them and stops the sweep.
func (m *SessionModule) Stop(ctx context.Context) error {
	err := m.engine.Shutdown(ctx)
	if m.cancel != nil {
		m.cancel()
		<-m.sweepDone
	}
	if err != nil {
		m.logger.Warn("Session module stopped with pending edits", "error", err)
		return err
	}
	m.logger.Info("Session module stopped")
	return nil
}

// Health reports live rooms and sessions.
func (m *SessionModule) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"active_rooms":    m.engine.Registry().Len(),
			"active_sessions": m.engine.ActiveSessions(),
		},
	}
}

// Engine returns the session engine.
func (m *SessionModule) Engine() *Engine {
	return m.engine
}
