package llm

import (
	"encoding/json"
	"reflect"
	"regexp"
	"strings"

	"github.com/Meet-BS/form-scanner-poc/internal/domain"
)

// The model is instructed to return pure JSON but is not contractually
// guaranteed to; replies routinely arrive wrapped in code fences or
// surrounded by commentary.
var (
	jsonFencePattern = regexp.MustCompile("(?s)```json\\s*(.*?)```")
	anyFencePattern  = regexp.MustCompile("(?s)```\\s*(.*?)```")
)

// ExtractJSON locates a JSON object embedded in free-form model text and
// decodes it into v, which must be a non-nil pointer. Strategies are tried
// in order: a fenced block labeled json, any fenced block, then the whole
// text. The first strategy that yields syntactically valid JSON wins; if
// all fail the error is an UNPARSABLE_REPLY carrying the raw text.
func ExtractJSON(text string, v interface{}) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return domain.ErrInternal("ExtractJSON requires a non-nil pointer")
	}

	// Each candidate decodes into a fresh value so a partially matching
	// candidate leaves no residue behind when a later one succeeds.
	for _, candidate := range jsonCandidates(text) {
		fresh := reflect.New(rv.Elem().Type())
		if json.Unmarshal([]byte(candidate), fresh.Interface()) == nil {
			rv.Elem().Set(fresh.Elem())
			return nil
		}
	}
	return domain.ErrUnparsableReply(text)
}

func jsonCandidates(text string) []string {
	var candidates []string

	if m := jsonFencePattern.FindStringSubmatch(text); len(m) > 1 {
		candidates = append(candidates, strings.TrimSpace(m[1]))
	}
	if m := anyFencePattern.FindStringSubmatch(text); len(m) > 1 {
		candidates = append(candidates, strings.TrimSpace(m[1]))
	}
	candidates = append(candidates, strings.TrimSpace(text))

	return candidates
}
