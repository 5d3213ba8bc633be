package llm

import (
	"encoding/json"
	"fmt"
)

// ModelFamily describes the request and response schema shared by a group
// of Bedrock models.
type ModelFamily struct {
	Name string

	// TextPath is where the generated text lives in a response. It is
	// reported in parse errors.
	TextPath string

	build   func(prompt, system string) any
	extract func(raw []byte) (string, error)
	schema  string
}

// BuildRequest produces the JSON body for prompt. The prompt is not validated.
func (f *ModelFamily) BuildRequest(prompt, system string) ([]byte, error) {
	body, err := json.Marshal(f.build(prompt, system))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s request: %w", f.Name, err)
	}
	return body, nil
}

// WrapPrompt returns the instruction-wrapped prompt used by the mistral family.
func WrapPrompt(system, prompt string) string {
	return fmt.Sprintf("<s>[INST] %s [/INST] %s </s>", system, prompt)
}

// Mistral text completion.

type mistralRequest struct {
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
	TopK        int     `json:"top_k"`
}

type mistralResponse struct {
	Outputs []struct {
		Text       string `json:"text"`
		StopReason string `json:"stop_reason"`
	} `json:"outputs"`
}

var mistralFamily = &ModelFamily{
	Name:     "mistral",
	TextPath: "outputs[0].text",
	build: func(prompt, system string) any {
		return mistralRequest{
			Prompt:      WrapPrompt(system, prompt),
			MaxTokens:   defaultMaxTokens,
			Temperature: defaultTemperature,
			TopP:        defaultTopP,
			TopK:        defaultTopK,
		}
	},
	extract: func(raw []byte) (string, error) {
		var resp mistralResponse
		if err := json.Unmarshal(raw, &resp); err != nil {
			return "", err
		}
		if len(resp.Outputs) == 0 {
			return "", fmt.Errorf("response has no outputs")
		}
		return resp.Outputs[0].Text, nil
	},
	schema: `{
		"type": "object",
		"required": ["outputs"],
		"properties": {
			"outputs": {
				"type": "array",
				"minItems": 1,
				"items": {
					"type": "object",
					"required": ["text"],
					"properties": {"text": {"type": "string"}}
				}
			}
		}
	}`,
}

// Anthropic Messages API on Bedrock. Recent Claude models reject requests
// that set both temperature and top_p, so top_p is not sent.

const anthropicBedrockVersion = "bedrock-2023-05-31"

type anthropicRequest struct {
	AnthropicVersion string    `json:"anthropic_version"`
	MaxTokens        int       `json:"max_tokens"`
	System           string    `json:"system,omitempty"`
	Temperature      float64   `json:"temperature"`
	TopK             int       `json:"top_k"`
	Messages         []Message `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

var anthropicFamily = &ModelFamily{
	Name:     "anthropic",
	TextPath: "content[0].text",
	build: func(prompt, system string) any {
		return anthropicRequest{
			AnthropicVersion: anthropicBedrockVersion,
			MaxTokens:        defaultMaxTokens,
			System:           system,
			Temperature:      defaultTemperature,
			TopK:             defaultTopK,
			Messages:         []Message{UserMessage(TextBlock(prompt))},
		}
	},
	extract: func(raw []byte) (string, error) {
		var resp anthropicResponse
		if err := json.Unmarshal(raw, &resp); err != nil {
			return "", err
		}
		if len(resp.Content) == 0 {
			return "", fmt.Errorf("response has no content blocks")
		}
		return resp.Content[0].Text, nil
	},
	schema: `{
		"type": "object",
		"required": ["content"],
		"properties": {
			"content": {
				"type": "array",
				"minItems": 1,
				"items": {
					"type": "object",
					"required": ["text"],
					"properties": {"text": {"type": "string"}}
				}
			}
		}
	}`,
}

// Amazon Titan text. The system prompt is not sent.

type titanRequest struct {
	InputText            string          `json:"inputText"`
	TextGenerationConfig titanGeneration `json:"textGenerationConfig"`
}

type titanGeneration struct {
	MaxTokenCount int     `json:"maxTokenCount"`
	Temperature   float64 `json:"temperature"`
	TopP          float64 `json:"topP"`
}

type titanResponse struct {
	Results []struct {
		OutputText       string `json:"outputText"`
		CompletionReason string `json:"completionReason"`
	} `json:"results"`
}

var titanFamily = &ModelFamily{
	Name:     "titan",
	TextPath: "results[0].outputText",
	build: func(prompt, _ string) any {
		return titanRequest{
			InputText: prompt,
			TextGenerationConfig: titanGeneration{
				MaxTokenCount: defaultMaxTokens,
				Temperature:   defaultTemperature,
				TopP:          defaultTopP,
			},
		}
	},
	extract: func(raw []byte) (string, error) {
		var resp titanResponse
		if err := json.Unmarshal(raw, &resp); err != nil {
			return "", err
		}
		if len(resp.Results) == 0 {
			return "", fmt.Errorf("response has no results")
		}
		return resp.Results[0].OutputText, nil
	},
	schema: `{
		"type": "object",
		"required": ["results"],
		"properties": {
			"results": {
				"type": "array",
				"minItems": 1,
				"items": {
					"type": "object",
					"required": ["outputText"],
					"properties": {"outputText": {"type": "string"}}
				}
			}
		}
	}`,
}

// Message represents a single-turn message in the anthropic request.
type Message struct {
	Role    string         `json:"role"`
	Content []ContentBlock `json:"content"`
}

// ContentBlock is a text block within a message.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// TextBlock creates a text content block.
func TextBlock(text string) ContentBlock {
	return ContentBlock{Type: "text", Text: text}
}

// UserMessage creates a user message with the given content blocks.
func UserMessage(blocks ...ContentBlock) Message {
	return Message{Role: "user", Content: blocks}
}
