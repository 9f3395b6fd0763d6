package analyzer

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractionPrompt builds the form-extraction prompt embedding the full
// aggregated HTML text.
func ExtractionPrompt(combinedHTML string) string {
	var sb strings.Builder

	sb.WriteString(`You are an expert web QA engineer analyzing HTML for functional, fillable forms.

Identify every functional form in the HTML below. Forms may be traditional <form> elements or formless groups of inputs submitted via JavaScript. Classify each form as one of:
traditional, formless, ajax, multi-step, modal, table, inline-edit, hidden, dynamic, auto-submit, data-attributes

Ignore decorative or non-functional input groups, but count them in formsIgnored.

## Output Format
Return ONLY a JSON object with this structure:
{
  "summary": {
    "totalFunctionalForms": 2,
    "totalFields": 7,
    "formsIgnored": 1,
    "confidence": "high|medium|low"
  },
  "forms": [
    {
      "formId": "login-form",
      "formType": "traditional",
      "selector": "#login-form",
      "submitSelector": "#login-form button[type='submit']",
      "submitType": "button",
      "fields": [
        {
          "fieldName": "email",
          "fieldType": "email",
          "selector": "#email",
          "required": true,
          "validation": {"format": "email", "maxLength": 254},
          "placeholder": "you@example.com",
          "defaultValue": "",
          "options": null
        }
      ],
      "specialFeatures": ["client-side-validation"]
    }
  ]
}

## HTML Document
`)
	sb.WriteString(combinedHTML)

	return sb.String()
}

// ValueGenerationPrompt builds the value-generation prompt embedding a
// single form's descriptor as structured data.
func ValueGenerationPrompt(form FormDescriptor) string {
	var sb strings.Builder

	sb.WriteString("You are generating realistic test data for one web form.\n\n")
	sb.WriteString("## Form Descriptor\n")

	descriptor, err := json.MarshalIndent(form, "", "  ")
	if err != nil {
		// Fall back to a minimal rendering; the descriptor came from
		// json.Unmarshal so this should not happen.
		sb.WriteString(fmt.Sprintf("formId: %s (%s), %d fields\n", form.FormID, form.FormType, len(form.Fields)))
	} else {
		sb.Write(descriptor)
		sb.WriteString("\n")
	}

	sb.WriteString(`
## Instructions
1. Produce one plausible, valid value for every field.
2. Respect each field's validation constraints (format, length, pattern).
3. For fields with options, pick one of the listed options.
4. Use realistic but clearly synthetic data (no real personal information).

Return ONLY a JSON object with this structure:
{
  "values": {
    "fieldName": "value"
  }
}`)

	return sb.String()
}
