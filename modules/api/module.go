package api

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	domainratelimit "github.com/example/collab-template-demo/domain/ratelimit"
	"github.com/example/collab-template-demo/modules/activity"
	"github.com/example/collab-template-demo/modules/broadcast"
	"github.com/example/collab-template-demo/modules/generator"
	"github.com/example/collab-template-demo/modules/ratelimit"
	"github.com/example/collab-template-demo/modules/session"
	"github.com/example/collab-template-demo/modules/storage"
	"github.com/example/collab-template-demo/modules/templates"
)

// Sessions is the part of the session engine the API drives.
type Sessions interface {
	Attach(ctx context.Context, req session.AttachRequest) (*session.Session, error)
	Evict(id string) (bool, error)
	Rooms() []session.Info
	Room(id string) (session.Detail, bool)
	ActiveSessions() int
}

// ModelSource reports the generative model in use.
type ModelSource interface {
	Model() string
	Models(ctx context.Context) (generator.Models, error)
}

// TemplateSource lists and reads catalog templates.
type TemplateSource interface {
	List() ([]templates.Info, error)
	Read(name string) (string, error)
}

// ActivitySource exposes activity counters.
type ActivitySource interface {
	Snapshot() activity.Snapshot
}

// Options configures the HTTP server.
type Options struct {
	Addr               string
	CORSAllowedOrigins string
	RateLimit          domainratelimit.Config
	DefaultTemperature float64
	RetentionDays      int
}

// APIModule is the HTTP API module with WebSocket support.
type APIModule struct {
	opts   Options
	app    *fiber.App
	logger types.Logger

	store     storage.StoragePort
	sessions  Sessions
	hub       *broadcast.Hub
	models    ModelSource
	templates TemplateSource
	activity  ActivitySource
	limiter   domainratelimit.Limiter
}

// Compile-time interface checks.
var _ mono.Module = (*APIModule)(nil)
var _ mono.DependentModule = (*APIModule)(nil)
var _ mono.HealthCheckableModule = (*APIModule)(nil)

// NewModule creates a new APIModule.
func NewModule(opts Options, logger types.Logger) *APIModule {
	if opts.Addr == "" {
		opts.Addr = ":3000"
	}
	if opts.CORSAllowedOrigins == "" {
		opts.CORSAllowedOrigins = "*"
	}
	return &APIModule{
		opts:   opts,
		logger: logger,
	}
}

// Name returns the module name.
func (m *APIModule) Name() string {
	return "api"
}

// Dependencies returns the list of module dependencies.
func (m *APIModule) Dependencies() []string {
	return []string{"storage"}
}

// SetDependencyServiceContainer receives service containers from dependencies.
func (m *APIModule) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	switch dependency {
	case "storage":
		m.store = storage.NewAdapter(container)
	}
}

// SetSessions sets the session engine (called from main.go).
func (m *APIModule) SetSessions(sessions Sessions) {
	m.sessions = sessions
}

// SetHub sets the broadcast hub (called from main.go).
func (m *APIModule) SetHub(hub *broadcast.Hub) {
	m.hub = hub
}

// SetModels sets the model source (called from main.go).
func (m *APIModule) SetModels(models ModelSource) {
	m.models = models
}

// SetTemplates sets the template catalog (called from main.go).
func (m *APIModule) SetTemplates(t TemplateSource) {
	m.templates = t
}

// SetActivity sets the activity counters (called from main.go).
func (m *APIModule) SetActivity(a ActivitySource) {
	m.activity = a
}

// SetLimiter sets the per-IP HTTP limiter (called from main.go).
func (m *APIModule) SetLimiter(limiter domainratelimit.Limiter) {
	m.limiter = limiter
}

func (m *APIModule) checkDependencies() error {
	switch {
	case m.store == nil:
		return fmt.Errorf("storage adapter dependency not set")
	case m.sessions == nil:
		return fmt.Errorf("session engine dependency not set")
	case m.hub == nil:
		return fmt.Errorf("broadcast hub dependency not set")
	case m.models == nil:
		return fmt.Errorf("model source dependency not set")
	case m.templates == nil:
		return fmt.Errorf("template catalog dependency not set")
	}
	return nil
}

// newApp builds the Fiber app with middleware and routes.
func (m *APIModule) newApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "Collaborative Template Editor",
		DisableStartupMessage: true,
		ErrorHandler:          m.errorHandler,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          60 * time.Second,
		IdleTimeout:           120 * time.Second,
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
		Next: func(c *fiber.Ctx) bool {
			return c.Get("Upgrade") == "websocket"
		},
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: m.opts.CORSAllowedOrigins,
	}))
	if m.limiter != nil {
		app.Use(ratelimit.Middleware(m.limiter, m.opts.RateLimit, ratelimit.ByIP, m.logger))
	}

	m.setupRoutes(app)
	return app
}

// Start initializes the Fiber HTTP server.
func (m *APIModule) Start(_ context.Context) error {
	if err := m.checkDependencies(); err != nil {
		return err
	}

	m.app = m.newApp()

	errCh := make(chan error, 1)
	go func() {
		if err := m.app.Listen(m.opts.Addr); err != nil {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("failed to start HTTP server: %w", err)
	case <-time.After(100 * time.Millisecond):
	}

	m.logger.Info("HTTP server started", "addr", m.opts.Addr)
	return nil
}

// Stop shuts down the Fiber HTTP server.
func (m *APIModule) Stop(ctx context.Context) error {
	if m.app == nil {
		return nil
	}
	m.logger.Info("Shutting down HTTP server")
	return m.app.ShutdownWithContext(ctx)
}

// Health returns the health status.
func (m *APIModule) Health(_ context.Context) mono.HealthStatus {
	details := map[string]any{"addr": m.opts.Addr}
	if m.hub != nil {
		details["connected_clients"] = m.hub.ClientCount()
	}
	return mono.HealthStatus{
		Healthy: m.app != nil,
		Message: "operational",
		Details: details,
	}
}

// errorHandler handles Fiber errors.
func (m *APIModule) errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		message = e.Message
	} else {
		m.logger.Error("Unhandled request error", "method", c.Method(), "path", c.Path(), "error", err)
	}

	return c.Status(code).JSON(ErrorResponse{
		Error:   "server_error",
		Message: message,
	})
}
