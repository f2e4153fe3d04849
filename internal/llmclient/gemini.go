// File: internal/llmclient/gemini.go
package llmclient

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/xkilldash9x/wayfarer-cli/internal/config"
)

// GeminiClient implements Client on the Gemini API.
type GeminiClient struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	genCfg  *genai.GenerateContentConfig
	limiter *rate.Limiter
	logger  *zap.Logger
}

var _ Client = (*GeminiClient)(nil)

// NewGeminiClient creates a Gemini-backed client. The API key comes from the
// config or, when unset, the GEMINI_API_KEY environment variable.
func NewGeminiClient(ctx context.Context, cfg config.LLMConfig, logger *zap.Logger) (*GeminiClient, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key not configured (llm.api_key or GEMINI_API_KEY)")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("initialize genai client: %w", err)
	}

	genCfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(cfg.Temperature),
	}
	if cfg.MaxTokens > 0 {
		genCfg.MaxOutputTokens = int32(cfg.MaxTokens)
	}

	// A nil limiter means unbounded; rate.Inf keeps the call sites uniform.
	limit := rate.Inf
	if cfg.RequestsPerMinute > 0 {
		limit = rate.Limit(float64(cfg.RequestsPerMinute) / 60.0)
	}

	return &GeminiClient{
		client:  client,
		model:   cfg.Model,
		timeout: cfg.APITimeout,
		genCfg:  genCfg,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger.Named("gemini"),
	}, nil
}

// Generate sends one prompt and returns the model's text output.
func (g *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	opCtx := ctx
	if g.timeout > 0 {
		var cancel context.CancelFunc
		opCtx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := g.client.Models.GenerateContent(opCtx, g.model, genai.Text(prompt), g.genCfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate (%s): %w", g.model, err)
	}

	text := resp.Text()
	g.logger.Debug("Model call completed.",
		zap.String("model", g.model),
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("prompt_bytes", len(prompt)),
		zap.Int("response_bytes", len(text)),
	)
	if text == "" {
		return "", fmt.Errorf("gemini returned an empty response")
	}
	return text, nil
}
