package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// guardrailActionField is set by Bedrock on the response body when a
// guardrail is attached to the call.
const guardrailActionField = "amazon-bedrock-guardrailAction"

const guardrailIntervened = "INTERVENED"

var responseSchemas = compileSchemas(families)

func compileSchemas(fs []*ModelFamily) map[string]*gojsonschema.Schema {
	out := make(map[string]*gojsonschema.Schema, len(fs))
	for _, f := range fs {
		s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(f.schema))
		if err != nil {
			panic(fmt.Sprintf("invalid %s response schema: %v", f.Name, err))
		}
		out[f.Name] = s
	}
	return out
}

// ParseError reports a response payload that does not match the family schema.
type ParseError struct {
	Family   string
	TextPath string
	Issues   []string
	Err      error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s response (text at %s): %v", e.Family, e.TextPath, e.Err)
	}
	return fmt.Sprintf("%s response (text at %s) does not match schema: %s", e.Family, e.TextPath, strings.Join(e.Issues, "; "))
}

func parseFailure(family *ModelFamily, issues []string, err error) Outcome {
	return Failed(FailureParse, &ParseError{Family: family.Name, TextPath: family.TextPath, Issues: issues, Err: err})
}

func (e *ParseError) Unwrap() error { return e.Err }

// Interpret classifies a raw model response. A response is Blocked when the
// generated text contains marker or Bedrock reports a guardrail intervention.
// Payloads that do not carry the family's text field yield a ParseError failure.
func Interpret(family *ModelFamily, raw []byte, marker string) Outcome {
	if !json.Valid(raw) {
		return parseFailure(family, nil, fmt.Errorf("payload is not valid JSON"))
	}

	result, err := responseSchemas[family.Name].Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return parseFailure(family, nil, err)
	}
	if !result.Valid() {
		issues := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			issues = append(issues, e.String())
		}
		return parseFailure(family, issues, nil)
	}

	text, err := family.extract(raw)
	if err != nil {
		return parseFailure(family, nil, err)
	}

	if (marker != "" && strings.Contains(text, marker)) || guardrailIntervenedIn(raw) {
		return Blocked(text)
	}
	return Success(text)
}

func guardrailIntervenedIn(raw []byte) bool {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return false
	}
	action, ok := envelope[guardrailActionField]
	if !ok {
		return false
	}
	var s string
	if err := json.Unmarshal(action, &s); err != nil {
		return false
	}
	return s == guardrailIntervened
}
