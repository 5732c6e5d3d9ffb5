package schema

import (
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/CEOYulinZhu/rewise-backend-sub000/internal/model"
)

// strategy attempts to locate and decode a JSON object inside raw text.
type strategy struct {
	name string
	fn   func(string) (map[string]any, bool)
}

// strategies are tried in order; the first successful decode wins.
var strategies = []strategy{
	{"whole_text", parseWhole},
	{"fenced_block", parseFenced},
	{"brace_span", parseBraces},
}

// Extract parses raw model output into a record matching spec. It never
// retries; callers decide whether to fall back to a deterministic default.
func Extract(raw string, spec FieldSpec) (map[string]any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, model.NewKindError(model.KindExtraction, spec.Name+": empty input", nil)
	}

	for _, st := range strategies {
		record, ok := st.fn(raw)
		if !ok {
			continue
		}
		if err := spec.Validate(record); err != nil {
			return nil, err
		}
		zap.L().Debug("schema: extraction strategy succeeded",
			zap.String("spec", spec.Name),
			zap.String("strategy", st.name),
		)
		return record, nil
	}

	return nil, model.NewKindError(model.KindExtraction, spec.Name+": no strategy produced a JSON object", nil)
}

// Decode extracts and unmarshals raw text directly into out, applying the
// same strategy order and validation as Extract.
func Decode(raw string, spec FieldSpec, out any) error {
	record, err := Extract(raw, spec)
	if err != nil {
		return err
	}
	buf, err := json.Marshal(record)
	if err != nil {
		return model.NewKindError(model.KindExtraction, spec.Name+": re-encode record", err)
	}
	if err := json.Unmarshal(buf, out); err != nil {
		return model.NewKindError(model.KindExtraction, spec.Name+": decode record", err)
	}
	return nil
}

func parseWhole(raw string) (map[string]any, bool) {
	return tryDecode(raw)
}

// parseFenced extracts the interior of a ```json fenced block (or a bare
// ``` fence whose body starts with a brace).
func parseFenced(raw string) (map[string]any, bool) {
	idx := strings.Index(raw, "```")
	if idx < 0 {
		return nil, false
	}
	rest := raw[idx+3:]
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		tag := strings.TrimSpace(rest[:nl])
		if tag != "" && !strings.EqualFold(tag, "json") {
			return nil, false
		}
		rest = rest[nl+1:]
	}
	end := strings.Index(rest, "```")
	if end < 0 {
		return nil, false
	}
	return tryDecode(strings.TrimSpace(rest[:end]))
}

// parseBraces takes the span from the first '{' to the last '}' inclusive.
// Inputs with no brace pair fail fast without decoding.
func parseBraces(raw string) (map[string]any, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return nil, false
	}
	return tryDecode(raw[start : end+1])
}

func tryDecode(text string) (map[string]any, bool) {
	var record map[string]any
	if err := json.Unmarshal([]byte(text), &record); err != nil {
		return nil, false
	}
	if record == nil {
		return nil, false
	}
	return record, true
}
