package llm

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Meet-BS/form-scanner-poc/internal/domain"
	"github.com/Meet-BS/form-scanner-poc/internal/observability"
	"github.com/Meet-BS/form-scanner-poc/internal/resilience"
)

type generator interface {
	Generate(ctx context.Context, prompt string) (*ModelReply, error)
}

// GuardedClient wraps a model client with a circuit breaker and records
// per-call Prometheus metrics. Only endpoint-level failures trip the
// breaker: an endpoint that answers with unusable text is alive, so
// reply-quality errors pass through without counting against it, and a
// caller-side cancellation counts neither way.
type GuardedClient struct {
	inner   generator
	breaker *resilience.Breaker
	metrics *observability.Metrics
	model   string
}

// NewGuardedClient wraps inner with the given breaker. metrics may be nil
// when no Prometheus registry is in play.
func NewGuardedClient(inner generator, breaker *resilience.Breaker, metrics *observability.Metrics) *GuardedClient {
	model := "unknown"
	if named, ok := inner.(interface{ GetModel() string }); ok {
		model = named.GetModel()
	}
	return &GuardedClient{inner: inner, breaker: breaker, metrics: metrics, model: model}
}

// Generate forwards to the inner client unless the circuit is open.
func (g *GuardedClient) Generate(ctx context.Context, prompt string) (*ModelReply, error) {
	if err := g.breaker.Allow(); err != nil {
		if g.metrics != nil {
			g.metrics.ModelRequestsTotal.WithLabelValues(g.model, "rejected").Inc()
		}
		return nil, domain.NewError(domain.ErrCodeUpstream,
			"model endpoint unavailable: circuit open", http.StatusServiceUnavailable)
	}

	start := time.Now()
	reply, err := g.inner.Generate(ctx, prompt)
	elapsed := time.Since(start)

	switch {
	case err == nil:
		g.breaker.ReportSuccess()
	case errors.Is(err, context.Canceled) || ctx.Err() != nil:
		// Caller aborted; says nothing about endpoint health.
	case endpointFailure(err):
		g.breaker.ReportFailure()
	default:
		// The endpoint answered; a reply-quality failure resets the streak.
		g.breaker.ReportSuccess()
	}

	g.record(reply, err, elapsed)
	return reply, err
}

func (g *GuardedClient) record(reply *ModelReply, err error, elapsed time.Duration) {
	if g.metrics == nil {
		return
	}

	status := "success"
	var usage Usage
	if err != nil {
		status = "error"
	} else {
		usage = reply.Usage
	}
	g.metrics.RecordModelRequest(g.model, status, elapsed,
		usage.InputTokens, usage.OutputTokens, usage.TotalCost)
}

// endpointFailure reports whether err indicates the endpoint itself is
// failing rather than returning unusable content.
func endpointFailure(err error) bool {
	if appErr, ok := domain.AsAppError(err); ok {
		switch appErr.Code {
		case domain.ErrCodeMalformedReply, domain.ErrCodeUnparsableReply:
			return false
		}
		return true
	}
	// Transport errors arrive unwrapped.
	return true
}
