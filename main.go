package main

import (
	"context"
	"log"
	"os"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"

	"github.com/example/collab-template-demo/config"
	domainratelimit "github.com/example/collab-template-demo/domain/ratelimit"
	"github.com/example/collab-template-demo/modules/activity"
	"github.com/example/collab-template-demo/modules/api"
	"github.com/example/collab-template-demo/modules/broadcast"
	"github.com/example/collab-template-demo/modules/generator"
	"github.com/example/collab-template-demo/modules/maintenance"
	"github.com/example/collab-template-demo/modules/ratelimit"
	"github.com/example/collab-template-demo/modules/session"
	"github.com/example/collab-template-demo/modules/storage"
	"github.com/example/collab-template-demo/modules/templates"
)

func main() {
	log.Println("=== Collaborative Template Editor - Fiber + Ollama + SQLite ===")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Debug output is additionally routed to the SQL logger of the storage module
	level := mono.LogLevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = mono.LogLevelDebug
	case "warn":
		level = mono.LogLevelWarn
	case "error":
		level = mono.LogLevelError
	}

	// Create mono application
	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(cfg.ShutdownTimeout),
		mono.WithLogLevel(level),
		mono.WithLogFormat(mono.LogFormatText),
		mono.WithJetStreamStorageDir(cfg.JetStreamDir),
		mono.WithNATSPort(cfg.NATSPort),
	)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}
	logger := app.Logger()

	// Create modules
	storageModule := storage.NewModule(cfg.DBPath, cfg.LogLevel == "debug", logger.WithModule("storage"))
	ratelimitModule := ratelimit.NewModule(ratelimit.Options{
		HTTP: domainratelimit.Config{
			RequestsPerWindow: cfg.RateLimitRequests,
			WindowSize:        cfg.RateLimitWindow,
		},
		Commands: domainratelimit.Config{
			RequestsPerWindow: cfg.WSRateLimitMessages,
			WindowSize:        cfg.WSRateLimitWindow,
		},
		RedisAddr:     cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
		RedisDB:       cfg.RedisDB,
	}, logger.WithModule("ratelimit"))
	generatorModule := generator.NewModule(generator.Config{
		Host:          cfg.OllamaHost,
		PrimaryModel:  cfg.OllamaModelPrimary,
		FallbackModel: cfg.OllamaModelFallback,
		Timeout:       cfg.OllamaTimeout,
		NumPredict:    cfg.OllamaNumPredict,
	}, logger.WithModule("generator"))
	broadcastModule := broadcast.NewModule(logger.WithModule("broadcast"))
	activityModule := activity.NewModule(logger.WithModule("activity"))
	catalog := templates.NewCatalog(cfg.TemplatesDir)

	sessionCfg := session.DefaultConfig()
	sessionCfg.HistoryLimit = cfg.HistoryLimit
	sessionCfg.EvictionGrace = cfg.EvictionGrace
	sessionCfg.EvictionSweep = cfg.EvictionSweep
	sessionCfg.EditTimeout = cfg.OllamaTimeout
	sessionCfg.DefaultTemperature = cfg.DefaultTemperature
	sessionModule := session.NewModule(sessionCfg, session.Deps{
		Store:     storageModule,
		Generator: generatorModule.Client(),
		Templates: catalog,
		Hub:       broadcastModule.Hub(),
		Limiter:   ratelimitModule.CommandLimiter(),
	}, logger.WithModule("session"))

	maintenanceModule := maintenance.NewModule(storageModule, cfg.RetentionDays, cfg.RetentionInterval, logger.WithModule("maintenance"))

	apiModule := api.NewModule(api.Options{
		Addr:               cfg.Addr(),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimit: domainratelimit.Config{
			RequestsPerWindow: cfg.RateLimitRequests,
			WindowSize:        cfg.RateLimitWindow,
		},
		DefaultTemperature: cfg.DefaultTemperature,
		RetentionDays:      cfg.RetentionDays,
	}, logger.WithModule("api"))

	// Inject in-process collaborators into the API module
	// (these are not exposed via ServiceContainer)
	apiModule.SetSessions(sessionModule.Engine())
	apiModule.SetHub(broadcastModule.Hub())
	apiModule.SetModels(generatorModule)
	apiModule.SetTemplates(catalog)
	apiModule.SetActivity(activityModule)
	apiModule.SetLimiter(ratelimitModule.HTTPLimiter())

	// Register modules with the framework.
	// Order: independent modules first, then modules with dependencies
	// - storage: SQLite persistence (ServiceProviderModule)
	// - ratelimit: HTTP and command limiters
	// - generator: Ollama client, fails start-up without a usable model
	// - broadcast: WebSocket fan-out hub
	// - activity: event consumer for session events
	// - session: room engine (EventEmitterModule)
	// - maintenance: message retention job
	// - api: Fiber HTTP/WebSocket server, depends on storage
	app.Register(storageModule)
	app.Register(ratelimitModule)
	app.Register(generatorModule)
	app.Register(broadcastModule)
	app.Register(activityModule)
	app.Register(sessionModule)
	app.Register(maintenanceModule)
	app.Register(apiModule)

	// Start application
	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	printStartupInfo(cfg, generatorModule.Model())

	// Graceful shutdown
	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}

func printStartupInfo(cfg config.Config, model string) {
	limiter := "in-memory"
	if cfg.UseRedis() {
		limiter = "redis (" + cfg.RedisAddr + ")"
	}

	log.Println("")
	log.Println("Application started successfully!")
	log.Println("")
	log.Println("Configuration:")
	log.Printf("  - Ollama: %s (model %s)", cfg.OllamaHost, model)
	log.Printf("  - Database: %s", cfg.DBPath)
	log.Printf("  - Templates: %s", cfg.TemplatesDir)
	log.Printf("  - Default temperature: %.1f", cfg.DefaultTemperature)
	log.Printf("  - Rate limiter: %s", limiter)
	log.Println("")
	log.Printf("REST API Endpoints (http://localhost:%s):", cfg.Port)
	log.Println("  GET    /health                     - Health check")
	log.Println("  GET    /api/stats                  - Database and activity stats")
	log.Println("  GET    /api/rooms                  - Stored and live rooms")
	log.Println("  GET    /api/rooms/:id              - Room document and members")
	log.Println("  GET    /api/rooms/:id/logs         - Presence log")
	log.Println("  GET    /api/rooms/:id/messages     - Message history")
	log.Println("  DELETE /api/rooms/:id/messages     - Clear message history")
	log.Println("  DELETE /api/rooms/:id              - Delete an idle room")
	log.Println("  GET    /api/models                 - Installed Ollama models")
	log.Println("  GET    /api/templates              - Template catalog")
	log.Println("  GET    /api/templates/:filename    - Template content")
	log.Println("  POST   /api/maintenance/purge      - Purge old messages (?days=N)")
	log.Println("")
	log.Printf("WebSocket Endpoint (ws://localhost:%s/ws):", cfg.Port)
	log.Printf("  Connect with: ws://localhost:%s/ws?room=default&name=alice&template=default.md", cfg.Port)
	log.Println("  Commands: plain text chat, '@name <new name>', '@ai <instruction>'")
	log.Println("")
	log.Println("Press Ctrl+C to shutdown gracefully")
}
