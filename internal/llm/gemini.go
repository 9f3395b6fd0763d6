package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/Meet-BS/form-scanner-poc/internal/domain"
)

// Per-1000-token rates used for cost estimation. Generation pricing is
// asymmetric: output tokens cost more than input tokens.
const (
	inputRatePer1K  = 0.00125
	outputRatePer1K = 0.005
)

// GeminiClient sends prompts to a Gemini-style generateContent endpoint.
// Each client carries its own credential and model configuration; there is
// no ambient global instance.
type GeminiClient struct {
	apiKey     string
	baseURL    string
	model      string
	maxTokens  int
	httpClient *http.Client

	// Rate limiting
	rateLimiter *rate.Limiter

	// Metrics
	metrics *Metrics
	mu      sync.RWMutex
}

// Config for Gemini client
type Config struct {
	APIKey       string
	BaseURL      string
	Model        string
	MaxTokens    int
	Timeout      time.Duration
	RateLimitRPM int // Requests per minute
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{
		BaseURL:      "https://generativelanguage.googleapis.com",
		Model:        "gemini-2.0-flash",
		MaxTokens:    8192,
		Timeout:      120 * time.Second,
		RateLimitRPM: 60,
	}
}

// Metrics tracks API usage
type Metrics struct {
	TotalRequests   int64
	SuccessRequests int64
	FailedRequests  int64
	TotalTokensIn   int64
	TotalTokensOut  int64
	TotalCost       float64
	TotalLatencyMs  int64
}

// Usage contains token counts and derived cost for one model call.
type Usage struct {
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	TotalTokens  int     `json:"total_tokens"`
	InputCost    float64 `json:"input_cost"`
	OutputCost   float64 `json:"output_cost"`
	TotalCost    float64 `json:"total_cost"`
}

// Add accumulates another usage record into this one.
func (u *Usage) Add(other Usage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.TotalTokens += other.TotalTokens
	u.InputCost += other.InputCost
	u.OutputCost += other.OutputCost
	u.TotalCost += other.TotalCost
}

// ModelReply is the raw outcome of one model invocation.
type ModelReply struct {
	Text      string    `json:"text"`
	ElapsedMs int64     `json:"elapsed_ms"`
	Timestamp time.Time `json:"timestamp"`
	Usage     Usage     `json:"usage"`
}

// NewGeminiClient creates a new Gemini API client
func NewGeminiClient(cfg Config) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	// Merge with defaults
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultConfig().BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultConfig().Model
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = DefaultConfig().MaxTokens
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	if cfg.RateLimitRPM == 0 {
		cfg.RateLimitRPM = DefaultConfig().RateLimitRPM
	}

	limiter := rate.NewLimiter(rate.Limit(float64(cfg.RateLimitRPM)/60.0), 1)

	return &GeminiClient{
		apiKey:    cfg.APIKey,
		baseURL:   cfg.BaseURL,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		rateLimiter: limiter,
		metrics:     &Metrics{},
	}, nil
}

// request is the generateContent wire format.
type request struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopP            float64 `json:"topP"`
	TopK            int     `json:"topK"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

// response is the generateContent reply shape.
type response struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	UsageMetadata *usageMetadata `json:"usageMetadata"`
}

type usageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

// Generate sends a prompt to the model and returns the raw text reply plus
// usage and cost metadata. A single failed call is a single failed call;
// any retry policy is a caller responsibility.
func (c *GeminiClient) Generate(ctx context.Context, prompt string) (*ModelReply, error) {
	atomic.AddInt64(&c.metrics.TotalRequests, 1)

	if err := c.rateLimiter.Wait(ctx); err != nil {
		atomic.AddInt64(&c.metrics.FailedRequests, 1)
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	start := time.Now()

	req := request{
		Contents: []content{
			{Parts: []part{{Text: prompt}}},
		},
		// Deterministic-leaning sampling with a bounded output length.
		GenerationConfig: generationConfig{
			Temperature:     0.1,
			TopP:            0.8,
			TopK:            40,
			MaxOutputTokens: c.maxTokens,
		},
	}

	resp, err := c.doRequest(ctx, req)
	if err != nil {
		atomic.AddInt64(&c.metrics.FailedRequests, 1)
		return nil, err
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		atomic.AddInt64(&c.metrics.FailedRequests, 1)
		return nil, domain.ErrMalformedReply("no candidate text")
	}
	if resp.UsageMetadata == nil {
		atomic.AddInt64(&c.metrics.FailedRequests, 1)
		return nil, domain.ErrMalformedReply("no usage metadata")
	}

	elapsed := time.Since(start)
	usage := calculateUsage(*resp.UsageMetadata)

	atomic.AddInt64(&c.metrics.SuccessRequests, 1)
	atomic.AddInt64(&c.metrics.TotalTokensIn, int64(usage.InputTokens))
	atomic.AddInt64(&c.metrics.TotalTokensOut, int64(usage.OutputTokens))
	atomic.AddInt64(&c.metrics.TotalLatencyMs, elapsed.Milliseconds())

	c.mu.Lock()
	c.metrics.TotalCost += usage.TotalCost
	c.mu.Unlock()

	return &ModelReply{
		Text:      resp.Candidates[0].Content.Parts[0].Text,
		ElapsedMs: elapsed.Milliseconds(),
		Timestamp: time.Now().UTC(),
		Usage:     usage,
	}, nil
}

// doRequest performs the HTTP request
func (c *GeminiClient) doRequest(ctx context.Context, req request) (*response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, domain.ErrUpstream(resp.StatusCode, string(respBody))
	}

	var apiResp response
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, domain.ErrMalformedReply("invalid JSON body").WithCause(err)
	}

	return &apiResp, nil
}

// calculateUsage derives a cost estimate as a pure function of reported
// token counts using the fixed per-1000-token rates.
func calculateUsage(meta usageMetadata) Usage {
	inputCost := float64(meta.PromptTokenCount) / 1000 * inputRatePer1K
	outputCost := float64(meta.CandidatesTokenCount) / 1000 * outputRatePer1K
	return Usage{
		InputTokens:  meta.PromptTokenCount,
		OutputTokens: meta.CandidatesTokenCount,
		TotalTokens:  meta.TotalTokenCount,
		InputCost:    inputCost,
		OutputCost:   outputCost,
		TotalCost:    inputCost + outputCost,
	}
}

// GetMetrics returns current metrics
func (c *GeminiClient) GetMetrics() Metrics {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return Metrics{
		TotalRequests:   atomic.LoadInt64(&c.metrics.TotalRequests),
		SuccessRequests: atomic.LoadInt64(&c.metrics.SuccessRequests),
		FailedRequests:  atomic.LoadInt64(&c.metrics.FailedRequests),
		TotalTokensIn:   atomic.LoadInt64(&c.metrics.TotalTokensIn),
		TotalTokensOut:  atomic.LoadInt64(&c.metrics.TotalTokensOut),
		TotalCost:       c.metrics.TotalCost,
		TotalLatencyMs:  atomic.LoadInt64(&c.metrics.TotalLatencyMs),
	}
}

// GetModel returns the model being used
func (c *GeminiClient) GetModel() string {
	return c.model
}
