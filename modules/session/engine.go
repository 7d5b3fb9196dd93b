// Package session is the room session engine: room registry, member sessions,
// command routing and the AI edit pipeline.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"

	domainratelimit "github.com/example/collab-template-demo/domain/ratelimit"
	"github.com/example/collab-template-demo/domain/room"
	"github.com/example/collab-template-demo/events"
	"github.com/example/collab-template-demo/modules/broadcast"
)

const (
	// DefaultRoomID is used when a connection names no room.
	DefaultRoomID = "default"
	// DefaultTemplateFile is used when a connection names no template.
	DefaultTemplateFile = "default.md"

	storeTimeout = 5 * time.Second
	attachTries  = 3
)

// Config tunes the engine.
type Config struct {
	HistoryLimit       int
	EvictionGrace      time.Duration
	EvictionSweep      time.Duration
	EditTimeout        time.Duration
	DefaultTemperature float64
	QueueSize          int
}

// DefaultConfig returns the stock engine settings.
func DefaultConfig() Config {
	return Config{
		HistoryLimit:       50,
		EvictionGrace:      60 * time.Second,
		EvictionSweep:      10 * time.Second,
		EditTimeout:        45 * time.Second,
		DefaultTemperature: 0.3,
		QueueSize:          broadcast.DefaultQueueSize,
	}
}

// Deps are the collaborators of the engine. Limiter may be nil.
type Deps struct {
	Store     Store
	Generator Generator
	Templates Templates
	Hub       *broadcast.Hub
	Limiter   domainratelimit.Limiter
}

// Engine coordinates rooms, sessions and edits.
type Engine struct {
	cfg       Config
	registry  *Registry
	hub       *broadcast.Hub
	store     Store
	generator Generator
	templates Templates
	limiter   domainratelimit.Limiter
	logger    types.Logger

	busMu sync.RWMutex
	bus   mono.EventBus

	now      func() time.Time
	counter  atomic.Uint64
	sessions atomic.Int64

	baseCtx context.Context
	cancel  context.CancelFunc
	edits   sync.WaitGroup
}

// NewEngine creates an engine.
func NewEngine(cfg Config, deps Deps, logger types.Logger) *Engine {
	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		cfg:       cfg,
		registry:  NewRegistry(deps.Store, deps.Templates, cfg.EvictionGrace, logger),
		hub:       deps.Hub,
		store:     deps.Store,
		generator: deps.Generator,
		templates: deps.Templates,
		limiter:   deps.Limiter,
		logger:    logger,
		now:       time.Now,
		baseCtx:   ctx,
		cancel:    cancel,
	}
}

// SetEventBus sets the bus domain events are published on. Nil disables publishing.
func (e *Engine) SetEventBus(bus mono.EventBus) {
	e.busMu.Lock()
	defer e.busMu.Unlock()
	e.bus = bus
}

func (e *Engine) eventBus() mono.EventBus {
	e.busMu.RLock()
	defer e.busMu.RUnlock()
	return e.bus
}

// Registry returns the room registry.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// Rooms lists live rooms ordered by id.
func (e *Engine) Rooms() []Info {
	return e.registry.Snapshot()
}

// Room returns the live state of one room.
func (e *Engine) Room(id string) (Detail, bool) {
	r, ok := e.registry.Get(id)
	if !ok {
		return Detail{}, false
	}
	return r.Detail(), true
}

// ActiveSessions returns the number of attached sessions.
func (e *Engine) ActiveSessions() int {
	return int(e.sessions.Load())
}

// Run sweeps idle rooms until ctx or the engine ends.
func (e *Engine) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-e.baseCtx.Done():
			cancel()
		case <-ctx.Done():
		}
	}()

	e.registry.Run(ctx, e.cfg.EvictionSweep, e.publishEviction)
}

// Shutdown cancels in-flight edits and waits for them to settle or for ctx to end.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.cancel()

	done := make(chan struct{})
	go func() {
		e.edits.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("timed out waiting for AI edits: %w", ctx.Err())
	}
}

// Evict drops an empty room from memory. See Registry.Evict.
func (e *Engine) Evict(id string) (bool, error) {
	return e.registry.Evict(id)
}

func (e *Engine) nextMemberID(now time.Time) string {
	return fmt.Sprintf("user-%d-%d", now.UnixMilli(), e.counter.Add(1))
}

func (e *Engine) storeCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), storeTimeout)
}

// The helpers below require the room mutex.

func (e *Engine) logPresence(r *Room, member room.Member, action room.PresenceAction) {
	ctx, cancel := e.storeCtx()
	defer cancel()

	ev := room.PresenceEvent{
		RoomID:    r.ID,
		UserID:    member.ID,
		UserName:  member.Name,
		Action:    action,
		CreatedAt: e.now(),
	}
	if err := e.store.LogPresence(ctx, ev); err != nil {
		e.logger.Error("Failed to log presence", "room", r.ID, "member", member.ID, "action", action, "error", err)
	}
}

// appendMessage persists msg and broadcasts it. A storage failure is logged
// and the message is still delivered.
func (e *Engine) appendMessage(r *Room, msg room.Message) {
	ctx, cancel := e.storeCtx()
	defer cancel()

	saved, err := e.store.SaveMessage(ctx, msg)
	if err != nil {
		e.logger.Error("Failed to save message", "room", r.ID, "error", err)
		saved = msg
	}
	e.hub.Broadcast(r.ID, NewMessageFrame{Kind: KindNewMessage, Message: saved}, "")
}

func (e *Engine) systemMessage(r *Room, text string) {
	e.appendMessage(r, room.NewSystemMessage(r.ID, text, e.now()))
}

func (e *Engine) persistDocument(r *Room) {
	ctx, cancel := e.storeCtx()
	defer cancel()

	if err := e.store.UpdateDocument(ctx, r.ID, r.document); err != nil {
		e.logger.Error("Failed to persist document", "room", r.ID, "error", err)
	}
}

// Event publishing happens outside the room mutex.

func (e *Engine) published(event string, err error) {
	if err != nil {
		e.logger.Warn("Failed to publish event", "event", event, "error", err)
	}
}

func (e *Engine) publishEviction(ev Eviction) {
	bus := e.eventBus()
	if bus == nil {
		return
	}
	e.published("RoomEvicted", events.RoomEvictedV1.Publish(bus, events.RoomEvictedEvent{
		RoomID:    ev.RoomID,
		IdleFor:   ev.IdleFor.Round(time.Second).String(),
		Timestamp: e.now(),
	}, nil))
}

// failureReason renders an edit failure for the room. The underlying error
// may carry hosts and transport details, so it only goes to the log.
func failureReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "the AI service timed out"
	case errors.Is(err, context.Canceled):
		return "the server is shutting down"
	default:
		return "the AI service is unavailable"
	}
}
