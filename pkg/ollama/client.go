package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/garnizeh/crackedclub/internal/config"
)

var ErrCircuitOpen = errors.New("ollama circuit open")

// package-level logger for pkg/ollama; can be replaced by callers
var logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))

// SetLogger sets the logger used by pkg/ollama. Passing nil is a no-op.
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger = l
	}
}

// Client wraps the Ollama API client with per-call timeouts, retries and a
// circuit breaker. It is safe for concurrent use by screening workers.
type Client struct {
	api    *api.Client
	cfg    config.OllamaConfig
	http   *http.Client
	br     *breaker
	closed atomic.Bool
}

// GenerateResult is what the model produced for one prompt.
type GenerateResult struct {
	Text string          `json:"text"`
	Raw  json.RawMessage `json:"raw"`
	Meta map[string]any  `json:"meta,omitempty"`
}

// ModelInfo describes a model pulled on the Ollama instance.
type ModelInfo struct {
	Name       string          `json:"name"`
	Size       int64           `json:"size"`
	ModifiedAt time.Time       `json:"modified_at"`
	Raw        json.RawMessage `json:"-"`
}

func NewClient(cfg config.OllamaConfig, httpClient *http.Client) (*Client, error) {
	u, err := url.ParseRequestURI(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama base url: %w", err)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	logger.Debug("ollama client created", slog.String("base_url", cfg.BaseURL), slog.Duration("timeout", cfg.Timeout))
	return &Client{
		api:  api.NewClient(u, httpClient),
		cfg:  cfg,
		http: httpClient,
		br:   newBreaker(cfg.CircuitFailureThreshold, cfg.CircuitReset),
	}, nil
}

// NewDefaultClient builds a client on a dedicated transport so Close can
// drop its idle connections without touching http.DefaultTransport.
func NewDefaultClient(cfg config.OllamaConfig) (*Client, error) {
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 15 * time.Second,
		}).DialContext,
		MaxIdleConns:          16,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
	return NewClient(cfg, &http.Client{Transport: tr})
}

// Close releases idle connections of the underlying transport. It is
// idempotent and safe on a nil client.
func (c *Client) Close() error {
	if c == nil || !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	if c.http == nil || c.http.Transport == nil {
		return nil
	}
	if tr, ok := c.http.Transport.(interface{ CloseIdleConnections() }); ok {
		tr.CloseIdleConnections()
	}
	return nil
}

// Health reports whether the instance answers and has at least one model.
func (c *Client) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	models, err := c.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if len(models) == 0 {
		c.br.fail(time.Now())
		return errors.New("health check failed: no models pulled")
	}
	return nil
}

func (c *Client) ListModels(ctx context.Context) ([]ModelInfo, error) {
	if c.br.open(time.Now()) {
		return nil, ErrCircuitOpen
	}

	resp, err := c.api.List(ctx)
	if err != nil {
		c.br.fail(time.Now())
		return nil, fmt.Errorf("list models: %w", err)
	}
	c.br.succeed()

	out := make([]ModelInfo, 0, len(resp.Models))
	for _, m := range resp.Models {
		raw, _ := json.Marshal(m)
		out = append(out, ModelInfo{Name: m.Name, Size: m.Size, ModifiedAt: m.ModifiedAt, Raw: raw})
	}
	return out, nil
}

// Generate runs prompt against model and returns the concatenated streamed
// text. Failed attempts are retried with linear backoff until Retries is
// exhausted, the context ends or the breaker opens.
func (c *Client) Generate(ctx context.Context, model, prompt string) (GenerateResult, error) {
	var lastErr error
	for attempt := 1; attempt <= c.cfg.Retries+1; attempt++ {
		if c.br.open(time.Now()) {
			return GenerateResult{}, ErrCircuitOpen
		}

		res, err := c.generate(ctx, model, prompt)
		if err == nil {
			c.br.succeed()
			res.Meta["attempt"] = attempt
			return res, nil
		}

		lastErr = err
		c.br.fail(time.Now())
		logger.Warn("ollama generate failed", slog.String("model", model), slog.Int("attempt", attempt), slog.Any("err", err))

		if attempt > c.cfg.Retries {
			break
		}
		select {
		case <-ctx.Done():
			return GenerateResult{}, ctx.Err()
		case <-time.After(c.cfg.Backoff * time.Duration(attempt)):
		}
	}
	return GenerateResult{}, fmt.Errorf("generate failed after %d attempts: %w", c.cfg.Retries+1, lastErr)
}

func (c *Client) generate(ctx context.Context, model, prompt string) (GenerateResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	var (
		text strings.Builder
		last api.GenerateResponse
	)
	start := time.Now()
	err := c.api.Generate(ctx, &api.GenerateRequest{Model: model, Prompt: prompt}, func(r api.GenerateResponse) error {
		text.WriteString(r.Response)
		last = r
		return nil
	})
	if err != nil {
		return GenerateResult{}, err
	}

	raw, _ := json.Marshal(last)
	return GenerateResult{
		Text: text.String(),
		Raw:  raw,
		Meta: map[string]any{"model": model, "latency_ms": time.Since(start).Milliseconds()},
	}, nil
}
