package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/redis/go-redis/v9"

	"github.com/example/collab-template-demo/domain/ratelimit"
)

const purgeInterval = time.Minute

// Options selects the limiter backend and limits.
type Options struct {
	HTTP          ratelimit.Config
	Commands      ratelimit.Config
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// Module owns the HTTP and WebSocket command limiters.
type Module struct {
	opts     Options
	client   *redis.Client
	http     ratelimit.Limiter
	commands ratelimit.Limiter
	memory   []*MemoryLimiter
	cancel   context.CancelFunc
	logger   types.Logger
}

// Compile-time interface checks.
var _ mono.Module = (*Module)(nil)
var _ mono.HealthCheckableModule = (*Module)(nil)

// NewModule builds the limiters. With a Redis address both limiters share Redis;
// otherwise they live in memory.
func NewModule(opts Options, logger types.Logger) *Module {
	m := &Module{opts: opts, logger: logger}
	if opts.RedisAddr != "" {
		m.client = redis.NewClient(&redis.Options{
			Addr:     opts.RedisAddr,
			Password: opts.RedisPassword,
			DB:       opts.RedisDB,
		})
		m.http = NewRedisLimiter(m.client, opts.HTTP, "ratelimit:http:")
		m.commands = NewRedisLimiter(m.client, opts.Commands, "ratelimit:ws:")
		return m
	}

	httpLimiter := NewMemoryLimiter(opts.HTTP)
	cmdLimiter := NewMemoryLimiter(opts.Commands)
	m.http, m.commands = httpLimiter, cmdLimiter
	m.memory = []*MemoryLimiter{httpLimiter, cmdLimiter}
	return m
}

// Name returns the module name.
func (m *Module) Name() string {
	return "ratelimit"
}

// Start verifies Redis connectivity or starts the in-memory purge loops.
func (m *Module) Start(ctx context.Context) error {
	if m.client != nil {
		if err := m.client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		m.logger.Info("Rate limiter using Redis", "addr", m.opts.RedisAddr)
		return nil
	}

	runCtx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	for _, l := range m.memory {
		go l.Run(runCtx, purgeInterval)
	}
	m.logger.Info("Rate limiter using process memory",
		"http_limit", m.opts.HTTP.RequestsPerWindow,
		"command_limit", m.opts.Commands.RequestsPerWindow)
	return nil
}

// Stop ends the purge loops and closes the Redis client.
func (m *Module) Stop(_ context.Context) error {
	if m.cancel != nil {
		m.cancel()
	}
	if m.client != nil {
		if err := m.client.Close(); err != nil {
			m.logger.Warn("Error closing Redis connection", "error", err)
		}
	}
	m.logger.Info("Rate limiter stopped")
	return nil
}

// Health pings Redis when configured.
func (m *Module) Health(ctx context.Context) mono.HealthStatus {
	if m.client == nil {
		return mono.HealthStatus{
			Healthy: true,
			Message: "operational",
			Details: map[string]any{"backend": "memory"},
		}
	}
	if err := m.client.Ping(ctx).Err(); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("redis ping failed: %v", err),
		}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{"backend": "redis", "addr": m.opts.RedisAddr},
	}
}

// HTTPLimiter returns the per-IP request limiter.
func (m *Module) HTTPLimiter() ratelimit.Limiter {
	return m.http
}

// CommandLimiter returns the per-member WebSocket command limiter.
func (m *Module) CommandLimiter() ratelimit.Limiter {
	return m.commands
}

// Options returns the configured limits.
func (m *Module) Options() Options {
	return m.opts
}
