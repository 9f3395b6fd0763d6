package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Meet-BS/form-scanner-poc/internal/analyzer"
	"github.com/Meet-BS/form-scanner-poc/internal/config"
	"github.com/Meet-BS/form-scanner-poc/internal/llm"
	"github.com/Meet-BS/form-scanner-poc/internal/observability"
	"github.com/Meet-BS/form-scanner-poc/internal/scanner"
	"github.com/Meet-BS/form-scanner-poc/pkg/httputil"
)

// Prometheus collectors register into the default registry, so the test
// binary shares one instance.
var testMetrics = observability.NewMetrics("handlertest")

// stubInvoker answers extraction prompts with one canned form and value
// prompts with one canned value set.
type stubInvoker struct {
	err error
}

func (s *stubInvoker) Generate(_ context.Context, prompt string) (*llm.ModelReply, error) {
	if s.err != nil {
		return nil, s.err
	}
	usage := llm.Usage{InputTokens: 100, OutputTokens: 40, TotalTokens: 140}
	if strings.Contains(prompt, "## HTML Document") {
		return &llm.ModelReply{
			Text: "```json\n" + `{
				"summary": {"totalFunctionalForms": 1, "totalFields": 1, "formsIgnored": 0, "confidence": "high"},
				"forms": [{
					"formId": "contact",
					"formType": "traditional",
					"selector": "#contact",
					"fields": [{"fieldName": "email", "fieldType": "email", "selector": "#email", "required": true}]
				}]
			}` + "\n```",
			Usage: usage,
		}, nil
	}
	return &llm.ModelReply{
		Text:  "```json\n{\"values\": {\"email\": \"qa@test.example\"}}\n```",
		Usage: usage,
	}, nil
}

func newTestHandler(invoker analyzer.ModelInvoker) *ScanHandler {
	logger := zap.NewNop()
	fetcher := scanner.NewFetcher(config.FetcherConfig{})
	return NewScanHandler(
		scanner.NewAggregator(fetcher, logger),
		analyzer.New(invoker, logger),
		testMetrics,
		logger,
	)
}

func doJSON(t *testing.T, handler http.HandlerFunc, body string) (*httptest.ResponseRecorder, httputil.Response) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)

	var envelope httputil.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return rec, envelope
}

func TestAnalyzeHTML_Success(t *testing.T) {
	h := newTestHandler(&stubInvoker{})

	rec, envelope := doJSON(t, h.AnalyzeHTML, `{"htmlContent": "<form id=\"contact\"></form>"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, envelope.Success)

	data, err := json.Marshal(envelope.Data)
	require.NoError(t, err)

	var result analyzer.CompleteAnalysisResult
	require.NoError(t, json.Unmarshal(data, &result))

	assert.NotEmpty(t, result.AnalysisID)
	require.Len(t, result.Forms, 1)
	assert.Equal(t, "contact", result.Forms[0].FormID)
	assert.True(t, result.Forms[0].ValidationStatus.Ready)
	assert.Equal(t, "qa@test.example", result.Forms[0].SuggestedValues["email"])
	// Extraction plus one generation call.
	assert.Equal(t, 200, result.TotalUsage.InputTokens)
}

func TestAnalyzeHTML_MissingContent(t *testing.T) {
	h := newTestHandler(&stubInvoker{})

	rec, envelope := doJSON(t, h.AnalyzeHTML, `{}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, envelope.Success)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "VALIDATION_ERROR", envelope.Error.Code)
}

func TestAnalyzeHTML_InvalidJSONBody(t *testing.T) {
	h := newTestHandler(&stubInvoker{})

	rec, envelope := doJSON(t, h.AnalyzeHTML, `{"htmlContent": `)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "VALIDATION_ERROR", envelope.Error.Code)
}

func TestAnalyzeHTML_UnknownFieldRejected(t *testing.T) {
	h := newTestHandler(&stubInvoker{})

	rec, envelope := doJSON(t, h.AnalyzeHTML, `{"htmlContent": "<p></p>", "bogus": true}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "VALIDATION_ERROR", envelope.Error.Code)
}

func TestAnalyzeURL_Success(t *testing.T) {
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<form id="contact"><input id="email"></form>`)
	}))
	defer page.Close()

	h := newTestHandler(&stubInvoker{})

	rec, envelope := doJSON(t, h.AnalyzeURL, fmt.Sprintf(`{"url": %q}`, page.URL))

	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, envelope.Success)

	data, ok := envelope.Data.(map[string]any)
	require.True(t, ok)
	assert.Contains(t, data, "analysis")
	assert.Contains(t, data, "aggregation")
}

func TestAnalyzeURL_FetchFailure(t *testing.T) {
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer page.Close()

	h := newTestHandler(&stubInvoker{})

	rec, envelope := doJSON(t, h.AnalyzeURL, fmt.Sprintf(`{"url": %q}`, page.URL))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "FETCH_ERROR", envelope.Error.Code)
	assert.Equal(t, float64(503), envelope.Error.Details["status"])
}

func TestGenerateValues_Success(t *testing.T) {
	h := newTestHandler(&stubInvoker{})

	rec, envelope := doJSON(t, h.GenerateValues, `{
		"formData": {
			"formId": "contact",
			"formType": "traditional",
			"selector": "#contact",
			"fields": [{"fieldName": "email", "fieldType": "email", "selector": "#email", "required": true}]
		}
	}`)

	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, envelope.Success)

	data, ok := envelope.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "contact", data["formId"])

	values, ok := data["values"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "qa@test.example", values["email"])
}

func TestGenerateValues_MissingForm(t *testing.T) {
	h := newTestHandler(&stubInvoker{})

	rec, envelope := doJSON(t, h.GenerateValues, `{}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "VALIDATION_ERROR", envelope.Error.Code)
}

func TestFetchAggregate_Success(t *testing.T) {
	mux := http.NewServeMux()
	page := httptest.NewServer(mux)
	defer page.Close()

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<iframe src="/child"></iframe>`)
	})
	mux.HandleFunc("/child", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<form id=\"embedded\"></form>")
	})

	h := newTestHandler(&stubInvoker{})

	rec, envelope := doJSON(t, h.FetchAggregate, fmt.Sprintf(`{"url": %q}`, page.URL))

	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, envelope.Success)

	data, ok := envelope.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, page.URL, data["mainUrl"])
	assert.Contains(t, data["combinedText"], "embedded")

	stats, ok := data["stats"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(1), stats["total"])
	assert.Equal(t, float64(1), stats["successful"])
}

func TestAnalyzeHTML_UpstreamFailureMapped(t *testing.T) {
	h := newTestHandler(&stubInvoker{err: fmt.Errorf("dial tcp: connection refused")})

	rec, envelope := doJSON(t, h.AnalyzeHTML, `{"htmlContent": "<form></form>"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.False(t, envelope.Success)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "INTERNAL_ERROR", envelope.Error.Code)
}
