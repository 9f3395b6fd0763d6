package analyzer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Meet-BS/form-scanner-poc/internal/llm"
)

// Phase names used to tag terminal failures.
const (
	PhaseExtraction = "extraction"
	PhaseGeneration = "generation"
)

// PhaseError tags a fatal analysis failure with the phase it occurred in.
type PhaseError struct {
	Phase string
	Err   error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("%s phase: %v", e.Phase, e.Err)
}

func (e *PhaseError) Unwrap() error {
	return e.Err
}

// ModelInvoker sends a rendered prompt to the model endpoint.
type ModelInvoker interface {
	Generate(ctx context.Context, prompt string) (*llm.ModelReply, error)
}

// Analyzer orchestrates the two model phases: extract form descriptors
// from HTML, then generate suggested values per form.
type Analyzer struct {
	invoker ModelInvoker
	logger  *zap.Logger
}

// New creates an Analyzer.
func New(invoker ModelInvoker, logger *zap.Logger) *Analyzer {
	return &Analyzer{invoker: invoker, logger: logger}
}

// Analyze runs the full two-phase analysis over combined HTML text.
// Extraction failure is fatal; per-form value-generation failures are
// isolated to their form and recorded inline.
func (a *Analyzer) Analyze(ctx context.Context, combinedHTML string) (*CompleteAnalysisResult, error) {
	analysisID := uuid.NewString()
	start := time.Now()

	summary, forms, extractUsage, err := a.ExtractForms(ctx, combinedHTML)
	if err != nil {
		return nil, &PhaseError{Phase: PhaseExtraction, Err: err}
	}
	extractionMs := time.Since(start).Milliseconds()

	a.logger.Info("Extraction phase complete",
		zap.String("analysis_id", analysisID),
		zap.Int("forms", len(forms)),
		zap.String("confidence", summary.Confidence),
		zap.Int64("elapsed_ms", extractionMs),
	)

	genStart := time.Now()
	analyzed, genUsage := a.generateAllValues(ctx, forms)
	generationMs := time.Since(genStart).Milliseconds()

	totalUsage := extractUsage
	totalUsage.Add(genUsage)

	timing := TimingBreakdown{
		ExtractionMs: extractionMs,
		GenerationMs: generationMs,
		TotalMs:      time.Since(start).Milliseconds(),
	}
	if len(forms) > 0 {
		timing.AvgPerFormMs = generationMs / int64(len(forms))
	}

	a.logger.Info("Analysis complete",
		zap.String("analysis_id", analysisID),
		zap.Int("forms", len(analyzed)),
		zap.Float64("total_cost", totalUsage.TotalCost),
		zap.Int64("total_ms", timing.TotalMs),
	)

	return &CompleteAnalysisResult{
		AnalysisID: analysisID,
		Summary:    summary,
		Forms:      analyzed,
		TotalUsage: totalUsage,
		Timing:     timing,
	}, nil
}

// ExtractForms runs the extraction phase: one model call producing the
// analysis summary and the ordered form descriptors.
func (a *Analyzer) ExtractForms(ctx context.Context, combinedHTML string) (AnalysisSummary, []FormDescriptor, llm.Usage, error) {
	reply, err := a.invoker.Generate(ctx, ExtractionPrompt(combinedHTML))
	if err != nil {
		return AnalysisSummary{}, nil, llm.Usage{}, err
	}

	var payload extractionPayload
	if err := llm.ExtractJSON(reply.Text, &payload); err != nil {
		// Usage was reported before the reply proved unparsable; the
		// caller still accounts for it when summing totals.
		return AnalysisSummary{}, nil, reply.Usage, err
	}

	return payload.Summary, payload.Forms, reply.Usage, nil
}

// GenerateValues runs one value-generation call for a single form.
func (a *Analyzer) GenerateValues(ctx context.Context, form FormDescriptor) (map[string]interface{}, llm.Usage, error) {
	reply, err := a.invoker.Generate(ctx, ValueGenerationPrompt(form))
	if err != nil {
		return nil, llm.Usage{}, err
	}

	var payload valuesPayload
	if err := llm.ExtractJSON(reply.Text, &payload); err != nil {
		return nil, reply.Usage, err
	}

	return payload.Values, reply.Usage, nil
}

// generateAllValues fans out one value-generation call per form. Results
// land in a slice indexed by extraction order, so the final sequence
// preserves that order regardless of completion order. A failure for one
// form is recorded on that form only.
func (a *Analyzer) generateAllValues(ctx context.Context, forms []FormDescriptor) ([]AnalyzedForm, llm.Usage) {
	analyzed := make([]AnalyzedForm, len(forms))
	usages := make([]llm.Usage, len(forms))

	var wg sync.WaitGroup
	for i, form := range forms {
		wg.Add(1)
		go func(i int, form FormDescriptor) {
			defer wg.Done()

			values, usage, err := a.GenerateValues(ctx, form)
			usages[i] = usage
			if err != nil {
				a.logger.Warn("Value generation failed for form",
					zap.String("form_id", form.FormID),
					zap.Error(err),
				)
				analyzed[i] = AnalyzedForm{
					FormDescriptor:   form,
					ValidationStatus: ValidationStatus{Ready: false, Error: err.Error()},
				}
				return
			}

			analyzed[i] = AnalyzedForm{
				FormDescriptor:   form,
				SuggestedValues:  values,
				ValidationStatus: ValidationStatus{Ready: true},
			}
		}(i, form)
	}
	wg.Wait()

	var total llm.Usage
	for _, u := range usages {
		total.Add(u)
	}
	return analyzed, total
}
