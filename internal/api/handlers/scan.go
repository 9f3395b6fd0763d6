package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/Meet-BS/form-scanner-poc/internal/analyzer"
	"github.com/Meet-BS/form-scanner-poc/internal/domain"
	"github.com/Meet-BS/form-scanner-poc/internal/observability"
	"github.com/Meet-BS/form-scanner-poc/internal/scanner"
	"github.com/Meet-BS/form-scanner-poc/pkg/httputil"
)

// ScanHandler serves the form-analysis endpoints.
type ScanHandler struct {
	aggregator *scanner.Aggregator
	analyzer   *analyzer.Analyzer
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewScanHandler creates a new scan handler
func NewScanHandler(agg *scanner.Aggregator, an *analyzer.Analyzer, metrics *observability.Metrics, logger *zap.Logger) *ScanHandler {
	return &ScanHandler{
		aggregator: agg,
		analyzer:   an,
		metrics:    metrics,
		logger:     logger,
	}
}

type analyzeHTMLRequest struct {
	HTMLContent string `json:"htmlContent"`
}

type analyzeURLRequest struct {
	URL string `json:"url"`
}

type generateValuesRequest struct {
	FormData *analyzer.FormDescriptor `json:"formData"`
}

// AnalyzeHTML runs the two-phase analysis over HTML supplied in the
// request body, without any fetching.
func (h *ScanHandler) AnalyzeHTML(w http.ResponseWriter, r *http.Request) {
	var req analyzeHTMLRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.ErrorFromDomain(w, err)
		return
	}
	if req.HTMLContent == "" {
		httputil.ErrorFromDomain(w, domain.ErrValidation("htmlContent", "htmlContent is required"))
		return
	}

	result, err := h.analyzer.Analyze(r.Context(), req.HTMLContent)
	if err != nil {
		h.recordFailure(err)
		httputil.ErrorFromDomain(w, err)
		return
	}

	h.metrics.RecordAnalysis("success", len(result.Forms))
	httputil.JSON(w, http.StatusOK, result)
}

// AnalyzeURL fetches the URL (aggregating iframe content) and runs the
// two-phase analysis over the combined document.
func (h *ScanHandler) AnalyzeURL(w http.ResponseWriter, r *http.Request) {
	var req analyzeURLRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.ErrorFromDomain(w, err)
		return
	}
	if req.URL == "" {
		httputil.ErrorFromDomain(w, domain.ErrValidation("url", "url is required"))
		return
	}

	doc, err := h.aggregator.Aggregate(r.Context(), req.URL)
	if err != nil {
		h.recordFailure(err)
		httputil.ErrorFromDomain(w, err)
		return
	}
	h.recordIframes(doc)

	result, err := h.analyzer.Analyze(r.Context(), doc.CombinedText)
	if err != nil {
		h.recordFailure(err)
		httputil.ErrorFromDomain(w, err)
		return
	}

	h.metrics.RecordAnalysis("success", len(result.Forms))
	httputil.JSON(w, http.StatusOK, map[string]any{
		"analysis":    result,
		"aggregation": doc.Stats,
	})
}

// GenerateValues runs value generation for a single form descriptor.
func (h *ScanHandler) GenerateValues(w http.ResponseWriter, r *http.Request) {
	var req generateValuesRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.ErrorFromDomain(w, err)
		return
	}
	if req.FormData == nil {
		httputil.ErrorFromDomain(w, domain.ErrValidation("formData", "formData is required"))
		return
	}

	values, usage, err := h.analyzer.GenerateValues(r.Context(), *req.FormData)
	if err != nil {
		httputil.ErrorFromDomain(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]any{
		"formId": req.FormData.FormID,
		"values": values,
		"usage":  usage,
	})
}

// FetchAggregate runs aggregation only and returns the combined text and
// stats. Useful for debugging what the analyzer would see.
func (h *ScanHandler) FetchAggregate(w http.ResponseWriter, r *http.Request) {
	var req analyzeURLRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.ErrorFromDomain(w, err)
		return
	}
	if req.URL == "" {
		httputil.ErrorFromDomain(w, domain.ErrValidation("url", "url is required"))
		return
	}

	doc, err := h.aggregator.Aggregate(r.Context(), req.URL)
	if err != nil {
		httputil.ErrorFromDomain(w, err)
		return
	}
	h.recordIframes(doc)

	httputil.JSON(w, http.StatusOK, map[string]any{
		"mainUrl":       doc.MainURL,
		"combinedText":  doc.CombinedText,
		"iframeResults": doc.IframeResults,
		"stats":         doc.Stats,
	})
}

func (h *ScanHandler) recordFailure(err error) {
	h.metrics.RecordAnalysis("failure", 0)
	h.logger.Error("Analysis failed", zap.String("code", domain.GetErrorCode(err)), zap.Error(err))
}

func (h *ScanHandler) recordIframes(doc *scanner.AggregatedDocument) {
	for _, res := range doc.IframeResults {
		h.metrics.RecordIframeFetch(res.Succeeded)
	}
}
