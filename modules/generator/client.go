// Package generator talks to an Ollama server to rewrite documents from natural-language instructions.
package generator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"

	"github.com/example/collab-template-demo/domain/room"
)

var (
	// ErrNoModels is returned when the server has no model installed.
	ErrNoModels = errors.New("no models available")
	// ErrEmptyResponse is returned when the model produced no text.
	ErrEmptyResponse = errors.New("empty response from model")
	// ErrNoModelSelected is returned by Rewrite before SelectModel succeeded.
	ErrNoModelSelected = errors.New("no model selected")
)

// Config configures the Ollama client.
type Config struct {
	Host          string
	PrimaryModel  string
	FallbackModel string
	Timeout       time.Duration
	NumPredict    int
}

// ModelInfo describes an installed model.
type ModelInfo struct {
	Name     string    `json:"name"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

type tagModel struct {
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modified_at"`
}

type tagsResponse struct {
	Models []tagModel `json:"models"`
}

type generateOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict"`
}

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// Client is an Ollama HTTP client. Safe for concurrent use.
type Client struct {
	cfg Config

	mu    sync.RWMutex
	model string
}

// NewClient creates a new Client.
func NewClient(cfg Config) *Client {
	cfg.Host = strings.TrimRight(cfg.Host, "/")
	return &Client{cfg: cfg}
}

// Config returns the client configuration.
func (c *Client) Config() Config {
	return c.cfg
}

// Model returns the selected model, empty until SelectModel succeeds.
func (c *Client) Model() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.model
}

// ListModels returns the models installed on the server.
func (c *Client) ListModels(ctx context.Context) ([]ModelInfo, error) {
	body, err := c.do(ctx, "list models", fiber.Get(c.cfg.Host+"/api/tags").Timeout(c.cfg.Timeout))
	if err != nil {
		return nil, err
	}

	var tags tagsResponse
	if err := json.Unmarshal(body, &tags); err != nil {
		return nil, &room.ExternalCallError{Op: "list models", Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	return lo.Map(tags.Models, func(m tagModel, _ int) ModelInfo {
		return ModelInfo{Name: m.Name, Size: m.Size, Modified: m.ModifiedAt}
	}), nil
}

// SelectModel picks the primary model, then the fallback, then the first
// installed model, and remembers the choice.
func (c *Client) SelectModel(ctx context.Context) (string, error) {
	models, err := c.ListModels(ctx)
	if err != nil {
		return "", err
	}

	names := lo.Map(models, func(m ModelInfo, _ int) string { return m.Name })
	chosen, ok := chooseModel(names, c.cfg.PrimaryModel, c.cfg.FallbackModel)
	if !ok {
		return "", ErrNoModels
	}

	c.mu.Lock()
	c.model = chosen
	c.mu.Unlock()
	return chosen, nil
}

func chooseModel(installed []string, primary, fallback string) (string, bool) {
	if lo.Contains(installed, primary) {
		return primary, true
	}
	if lo.Contains(installed, fallback) {
		return fallback, true
	}
	if len(installed) == 0 {
		return "", false
	}
	return installed[0], true
}

// Rewrite asks the selected model to apply instruction to document and returns the new document.
func (c *Client) Rewrite(ctx context.Context, document, instruction string, temperature float64) (string, error) {
	model := c.Model()
	if model == "" {
		return "", &room.ExternalCallError{Op: "generate", Err: ErrNoModelSelected}
	}

	req := generateRequest{
		Model:  model,
		Prompt: BuildPrompt(document, instruction),
		Stream: false,
		Options: generateOptions{
			Temperature: temperature,
			NumPredict:  c.cfg.NumPredict,
		},
	}

	body, err := c.do(ctx, "generate", fiber.Post(c.cfg.Host+"/api/generate").JSON(req).Timeout(c.cfg.Timeout))
	if err != nil {
		return "", err
	}

	var resp generateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", &room.ExternalCallError{Op: "generate", Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	text := strings.TrimSpace(resp.Response)
	if text == "" {
		return "", &room.ExternalCallError{Op: "generate", Err: ErrEmptyResponse}
	}
	return text, nil
}

type agentResult struct {
	code int
	body []byte
	err  error
}

// do runs the agent and gives up when ctx ends. The agent's own timeout bounds
// the abandoned request.
func (c *Client) do(ctx context.Context, op string, a *fiber.Agent) ([]byte, error) {
	done := make(chan agentResult, 1)
	go func() {
		code, body, errs := a.Bytes()
		if len(errs) > 0 {
			done <- agentResult{err: errors.Join(errs...)}
			return
		}
		done <- agentResult{code: code, body: body}
	}()

	select {
	case <-ctx.Done():
		return nil, &room.ExternalCallError{Op: op, Err: ctx.Err()}
	case r := <-done:
		if r.err != nil {
			return nil, &room.ExternalCallError{Op: op, Err: r.err}
		}
		if r.code < fiber.StatusOK || r.code >= fiber.StatusMultipleChoices {
			return nil, &room.ExternalCallError{Op: op, Err: fmt.Errorf("unexpected status %d", r.code)}
		}
		return r.body, nil
	}
}
