package llm

import "strings"

// Well-known Bedrock model IDs for convenience.
// Use "us." prefix for US region on-demand inference profiles.
const (
	ModelMistral7B    = "mistral.mistral-7b-instruct-v0:2"
	ModelMistralLarge = "mistral.mistral-large-2402-v1:0"
	ModelHaiku45      = "us.anthropic.claude-haiku-4-5-20251001-v1:0"
	ModelSonnet45     = "us.anthropic.claude-sonnet-4-5-20250929-v1:0"
	ModelTitanExpress = "amazon.titan-text-express-v1"
)

// DefaultBlockMarker is the message Bedrock guardrails return in place of a
// model response when they intervene with the default blocked-output text.
const DefaultBlockMarker = "Sorry, the model cannot answer this question."

// Sampling parameters sent with every request.
const (
	defaultMaxTokens   = 1024
	defaultTemperature = 0.5
	defaultTopP        = 0.7
	defaultTopK        = 50
)

var families = []*ModelFamily{mistralFamily, anthropicFamily, titanFamily}

// familyPrefixes maps the provider segment of a model ID to its family.
var familyPrefixes = []struct {
	prefix string
	family *ModelFamily
}{
	{"anthropic.", anthropicFamily},
	{"mistral.", mistralFamily},
	{"amazon.titan", titanFamily},
}

// FamilyFor selects the model family for a Bedrock model or inference profile ID.
// Unknown IDs use the mistral family.
func FamilyFor(modelID string) *ModelFamily {
	id := stripProfilePrefix(modelID)
	for _, fp := range familyPrefixes {
		if strings.HasPrefix(id, fp.prefix) {
			return fp.family
		}
	}
	return mistralFamily
}

// FamilyByName returns the family with the given name, if any.
func FamilyByName(name string) (*ModelFamily, bool) {
	for _, f := range families {
		if f.Name == name {
			return f, true
		}
	}
	return nil, false
}

// stripProfilePrefix removes a cross-region inference profile prefix
// such as "us." or "eu." from a model ID.
func stripProfilePrefix(modelID string) string {
	if i := strings.IndexByte(modelID, '.'); i == 2 || i == 4 {
		rest := modelID[i+1:]
		if strings.Contains(rest, ".") {
			return rest
		}
	}
	return modelID
}
