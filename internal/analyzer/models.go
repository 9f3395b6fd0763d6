package analyzer

import (
	"github.com/Meet-BS/form-scanner-poc/internal/llm"
)

// FormType enumerates the form archetypes the model is asked to classify.
const (
	FormTypeTraditional    = "traditional"
	FormTypeFormless       = "formless"
	FormTypeAjax           = "ajax"
	FormTypeMultiStep      = "multi-step"
	FormTypeModal          = "modal"
	FormTypeTable          = "table"
	FormTypeInlineEdit     = "inline-edit"
	FormTypeHidden         = "hidden"
	FormTypeDynamic        = "dynamic"
	FormTypeAutoSubmit     = "auto-submit"
	FormTypeDataAttributes = "data-attributes"
)

// FieldDescriptor describes one fillable field of a detected form.
type FieldDescriptor struct {
	FieldName    string                 `json:"fieldName"`
	FieldType    string                 `json:"fieldType"`
	Selector     string                 `json:"selector"`
	Required     bool                   `json:"required"`
	Validation   map[string]interface{} `json:"validation,omitempty"`
	Placeholder  string                 `json:"placeholder,omitempty"`
	DefaultValue string                 `json:"defaultValue,omitempty"`
	Options      []string               `json:"options,omitempty"`
}

// FormDescriptor is the structured representation of one detected fillable
// form, as extracted from HTML by the remote model.
type FormDescriptor struct {
	FormID          string            `json:"formId"`
	FormType        string            `json:"formType"`
	Selector        string            `json:"selector"`
	SubmitSelector  string            `json:"submitSelector"`
	SubmitType      string            `json:"submitType"`
	Fields          []FieldDescriptor `json:"fields"`
	SpecialFeatures []string          `json:"specialFeatures,omitempty"`
}

// AnalysisSummary is the model's top-level verdict for one document.
type AnalysisSummary struct {
	TotalFunctionalForms int    `json:"totalFunctionalForms"`
	TotalFields          int    `json:"totalFields"`
	FormsIgnored         int    `json:"formsIgnored"`
	Confidence           string `json:"confidence"` // high|medium|low
}

// extractionPayload is the strict shape of the extraction-phase reply.
type extractionPayload struct {
	Summary AnalysisSummary  `json:"summary"`
	Forms   []FormDescriptor `json:"forms"`
}

// valuesPayload is the strict shape of a value-generation reply.
type valuesPayload struct {
	Values map[string]interface{} `json:"values"`
}

// ValidationStatus records whether value generation succeeded for a form.
type ValidationStatus struct {
	Ready bool   `json:"ready"`
	Error string `json:"error,omitempty"`
}

// AnalyzedForm is a form descriptor together with its generated test values.
type AnalyzedForm struct {
	FormDescriptor
	SuggestedValues  map[string]interface{} `json:"suggestedValues,omitempty"`
	ValidationStatus ValidationStatus       `json:"validationStatus"`
}

// TimingBreakdown reports per-phase elapsed wall-clock time.
type TimingBreakdown struct {
	ExtractionMs int64 `json:"extraction_ms"`
	GenerationMs int64 `json:"generation_ms"`
	TotalMs      int64 `json:"total_ms"`
	AvgPerFormMs int64 `json:"avg_per_form_ms"`
}

// CompleteAnalysisResult is the terminal output of a two-phase analysis.
type CompleteAnalysisResult struct {
	AnalysisID string          `json:"analysis_id"`
	Summary    AnalysisSummary `json:"summary"`
	Forms      []AnalyzedForm  `json:"forms"`
	TotalUsage llm.Usage       `json:"total_usage"`
	Timing     TimingBreakdown `json:"timing"`
}
