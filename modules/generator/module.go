package generator

import (
	"context"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
)

// Models is the model overview served on the admin surface.
type Models struct {
	Current   string      `json:"current"`
	Available []ModelInfo `json:"available"`
	Primary   string      `json:"primary"`
	Fallback  string      `json:"fallback"`
}

// GeneratorModule owns the Ollama client and selects the model on start.
type GeneratorModule struct {
	client *Client
	logger types.Logger
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*GeneratorModule)(nil)
	_ mono.HealthCheckableModule = (*GeneratorModule)(nil)
)

// NewModule creates a new GeneratorModule.
func NewModule(cfg Config, logger types.Logger) *GeneratorModule {
	return &GeneratorModule{
		client: NewClient(cfg),
		logger: logger,
	}
}

// Name returns the module name.
func (m *GeneratorModule) Name() string {
	return "generator"
}

// Start checks the server and selects a model. Failure aborts application start.
func (m *GeneratorModule) Start(ctx context.Context) error {
	cfg := m.client.Config()
	m.logger.Info("Connecting to Ollama", "host", cfg.Host)

	model, err := m.client.SelectModel(ctx)
	if err != nil {
		m.logger.Error("No usable model",
			"primary", cfg.PrimaryModel,
			"fallback", cfg.FallbackModel,
			"error", err)
		return fmt.Errorf("failed to select model (run `ollama pull %s`): %w", cfg.PrimaryModel, err)
	}

	if model != cfg.PrimaryModel {
		m.logger.Warn("Primary model not installed, using another model",
			"primary", cfg.PrimaryModel, "model", model)
	}
	m.logger.Info("Generator module started", "model", model)
	return nil
}

// Stop is a no-op; requests in flight are bounded by their own timeouts.
func (m *GeneratorModule) Stop(_ context.Context) error {
	m.logger.Info("Generator module stopped")
	return nil
}

// Health reports the selected model.
func (m *GeneratorModule) Health(_ context.Context) mono.HealthStatus {
	model := m.client.Model()
	if model == "" {
		return mono.HealthStatus{
			Healthy: false,
			Message: "no model selected",
		}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"host":  m.client.Config().Host,
			"model": model,
		},
	}
}

// Client returns the Ollama client.
func (m *GeneratorModule) Client() *Client {
	return m.client
}

// Model returns the selected model.
func (m *GeneratorModule) Model() string {
	return m.client.Model()
}

// Models lists installed models alongside the configured preferences.
func (m *GeneratorModule) Models(ctx context.Context) (Models, error) {
	available, err := m.client.ListModels(ctx)
	if err != nil {
		return Models{}, err
	}
	cfg := m.client.Config()
	return Models{
		Current:   m.client.Model(),
		Available: available,
		Primary:   cfg.PrimaryModel,
		Fallback:  cfg.FallbackModel,
	}, nil
}
