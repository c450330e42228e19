package oracle

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/townwire/townwire/internal/config"
)

// Client is the OpenAI-backed Oracle implementation. A shared rate limiter
// spaces calls out; 429 responses are retried with exponential backoff and
// jitter. Any other failure is returned to the caller unretried.
type Client struct {
	api      *openai.Client
	cfg      config.OracleConfig
	limiter  *rate.Limiter
	logger   *slog.Logger
	recorder Recorder
}

// SetRecorder enables the call audit trail.
func (c *Client) SetRecorder(rec Recorder) {
	c.recorder = rec
}

// NewClient builds an oracle client from configuration.
func NewClient(cfg config.OracleConfig, logger *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("oracle api key is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("oracle model is required")
	}

	// One call per second sustained, small burst for batch starts.
	limiter := rate.NewLimiter(rate.Every(time.Second), 3)

	return &Client{
		api:     openai.NewClient(cfg.APIKey),
		cfg:     cfg,
		limiter: limiter,
		logger:  logger,
	}, nil
}

// Complete sends one prompt and returns the raw response text.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("oracle rate limiter: %w", err)
	}

	request := openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		Temperature: req.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
	}
	if req.MaxTokens > 0 {
		request.MaxCompletionTokens = req.MaxTokens
	} else if c.cfg.MaxTokens > 0 {
		request.MaxCompletionTokens = c.cfg.MaxTokens
	}
	if req.Temperature == 0 {
		request.Temperature = c.cfg.Temperature
	}
	if req.JSONMode {
		request.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	baseDelay := time.Second
	callStart := time.Now()
	var resp openai.ChatCompletionResponse
	var err error

	for attempt := 0; attempt < c.cfg.MaxRetries; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
		start := time.Now()
		resp, err = c.api.CreateChatCompletion(callCtx, request)
		cancel()

		c.logger.Debug("oracle call",
			"stage", req.Stage,
			"attempt", attempt+1,
			"duration_ms", time.Since(start).Milliseconds(),
			"success", err == nil)

		if err == nil {
			break
		}

		if !isRateLimited(err) || attempt == c.cfg.MaxRetries-1 {
			break
		}

		delay := baseDelay * time.Duration(1<<uint(attempt))
		delay += time.Duration(rand.Intn(500)) * time.Millisecond
		c.logger.Warn("oracle rate limited, backing off",
			"stage", req.Stage,
			"attempt", attempt+1,
			"delay_ms", delay.Milliseconds())

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}
	}

	c.record(ctx, req, resp, time.Since(callStart), err)

	if err != nil {
		return "", fmt.Errorf("oracle call failed for stage %s: %w", req.Stage, err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no completion choices returned from model %s", c.cfg.Model)
	}

	content := resp.Choices[0].Message.Content
	if content == "" {
		return "", fmt.Errorf("empty response from model %s (finish_reason: %s)",
			c.cfg.Model, resp.Choices[0].FinishReason)
	}

	return content, nil
}

// record hands the completed call to the audit recorder, if configured.
func (c *Client) record(ctx context.Context, req Request, resp openai.ChatCompletionResponse, latency time.Duration, err error) {
	if c.recorder == nil {
		return
	}

	rec := CallRecord{
		Stage:     req.Stage,
		Model:     c.cfg.Model,
		LatencyMs: latency.Milliseconds(),
		Status:    "success",
	}
	if err != nil {
		rec.Status = "error"
		rec.ErrorMessage = err.Error()
	} else {
		rec.PromptTokens = resp.Usage.PromptTokens
		rec.CompletionTokens = resp.Usage.CompletionTokens
		rec.TotalTokens = resp.Usage.TotalTokens
		rec.CostUSD = estimateCost(c.cfg.Model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	}
	c.recorder.Record(ctx, rec)
}

// estimateCost gives a rough USD cost per call from published per-1M-token
// pricing. Estimates only; reconcile against the provider invoice.
func estimateCost(model string, promptTokens, completionTokens int) float64 {
	var inputPer1M, outputPer1M float64
	switch model {
	case "gpt-4o":
		inputPer1M, outputPer1M = 2.50, 10.00
	case "gpt-4o-mini":
		inputPer1M, outputPer1M = 0.15, 0.60
	case "gpt-4-turbo", "gpt-4-turbo-preview":
		inputPer1M, outputPer1M = 10.00, 30.00
	default:
		inputPer1M, outputPer1M = 5.00, 15.00
	}

	return (float64(promptTokens)/1_000_000)*inputPer1M +
		(float64(completionTokens)/1_000_000)*outputPer1M
}

func isRateLimited(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "Too Many Requests") ||
		strings.Contains(msg, "Rate limit")
}
