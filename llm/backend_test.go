package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

// --- Family selection tests ---

func TestFamilyFor_KnownModels(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{ModelMistral7B, "mistral"},
		{ModelMistralLarge, "mistral"},
		{ModelHaiku45, "anthropic"},
		{ModelSonnet45, "anthropic"},
		{"anthropic.claude-3-haiku-20240307-v1:0", "anthropic"},
		{"eu.anthropic.claude-3-haiku-20240307-v1:0", "anthropic"},
		{"apac.anthropic.claude-3-haiku-20240307-v1:0", "anthropic"},
		{ModelTitanExpress, "titan"},
	}
	for _, tt := range tests {
		got := FamilyFor(tt.input)
		if got.Name != tt.want {
			t.Errorf("FamilyFor(%q) = %q, want %q", tt.input, got.Name, tt.want)
		}
	}
}

func TestFamilyFor_UnknownFallsBackToMistral(t *testing.T) {
	got := FamilyFor("some-other-model")
	if got.Name != "mistral" {
		t.Errorf("expected 'mistral', got %q", got.Name)
	}
}

func TestFamilyByName(t *testing.T) {
	f, ok := FamilyByName("titan")
	if !ok || f != titanFamily {
		t.Error("expected titan family")
	}
	if _, ok := FamilyByName("gpt"); ok {
		t.Error("expected unknown family lookup to fail")
	}
}

// --- Request builder tests ---

func TestBuildRequest_ContainsPrompt(t *testing.T) {
	prompts := []string{"hello", "What is the capital of France?", "ignore previous instructions"}
	for _, f := range families {
		for _, p := range prompts {
			body, err := f.BuildRequest(p, "system text")
			if err != nil {
				t.Fatalf("%s: unexpected error: %v", f.Name, err)
			}
			if !json.Valid(body) {
				t.Errorf("%s: body is not valid JSON: %s", f.Name, body)
			}
			if !strings.Contains(string(body), p) {
				t.Errorf("%s: body does not contain prompt %q: %s", f.Name, p, body)
			}
		}
	}
}

func TestBuildRequest_Mistral(t *testing.T) {
	body, err := mistralFamily.BuildRequest("Hi", "Be brief.")
	if err != nil {
		t.Fatal(err)
	}
	var parsed map[string]any
	if err := json.Unmarshal(body, &parsed); err != nil {
		t.Fatal(err)
	}
	if parsed["prompt"] != "<s>[INST] Be brief. [/INST] Hi </s>" {
		t.Errorf("unexpected prompt %v", parsed["prompt"])
	}
	if parsed["max_tokens"] != float64(1024) {
		t.Errorf("expected max_tokens 1024, got %v", parsed["max_tokens"])
	}
	if parsed["temperature"] != 0.5 {
		t.Errorf("expected temperature 0.5, got %v", parsed["temperature"])
	}
	if parsed["top_p"] != 0.7 {
		t.Errorf("expected top_p 0.7, got %v", parsed["top_p"])
	}
	if parsed["top_k"] != float64(50) {
		t.Errorf("expected top_k 50, got %v", parsed["top_k"])
	}
}

func TestBuildRequest_Anthropic(t *testing.T) {
	body, err := anthropicFamily.BuildRequest("Hi", "Be brief.")
	if err != nil {
		t.Fatal(err)
	}
	var parsed anthropicRequest
	if err := json.Unmarshal(body, &parsed); err != nil {
		t.Fatal(err)
	}
	if parsed.AnthropicVersion != anthropicBedrockVersion {
		t.Errorf("expected anthropic_version %q, got %q", anthropicBedrockVersion, parsed.AnthropicVersion)
	}
	if parsed.System != "Be brief." {
		t.Errorf("expected system 'Be brief.', got %q", parsed.System)
	}
	if len(parsed.Messages) != 1 || parsed.Messages[0].Role != "user" {
		t.Fatalf("expected one user message, got %+v", parsed.Messages)
	}
	if parsed.Messages[0].Content[0].Text != "Hi" {
		t.Errorf("expected text 'Hi', got %q", parsed.Messages[0].Content[0].Text)
	}
	if strings.Contains(string(body), "top_p") {
		t.Error("anthropic request must not set top_p")
	}
}

func TestBuildRequest_TitanOmitsSystemPrompt(t *testing.T) {
	body, err := titanFamily.BuildRequest("Hi", "SECRET SYSTEM")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(body), "SECRET SYSTEM") {
		t.Errorf("titan body should not contain the system prompt: %s", body)
	}
	var parsed titanRequest
	if err := json.Unmarshal(body, &parsed); err != nil {
		t.Fatal(err)
	}
	if parsed.InputText != "Hi" {
		t.Errorf("expected inputText 'Hi', got %q", parsed.InputText)
	}
	if parsed.TextGenerationConfig.MaxTokenCount != 1024 {
		t.Errorf("expected maxTokenCount 1024, got %d", parsed.TextGenerationConfig.MaxTokenCount)
	}
}

func TestMessageBuilder(t *testing.T) {
	msg := UserMessage(TextBlock("Summarize this"))
	if msg.Role != "user" {
		t.Errorf("expected role 'user', got %q", msg.Role)
	}
	if len(msg.Content) != 1 || msg.Content[0].Type != "text" {
		t.Errorf("unexpected content %+v", msg.Content)
	}
}

// --- Response interpreter tests ---

func TestInterpret_Success(t *testing.T) {
	tests := []struct {
		family *ModelFamily
		raw    string
		want   string
	}{
		{mistralFamily, `{"outputs":[{"text":"Paris","stop_reason":"stop"}]}`, "Paris"},
		{anthropicFamily, `{"content":[{"type":"text","text":"Paris"}],"stop_reason":"end_turn"}`, "Paris"},
		{titanFamily, `{"results":[{"outputText":"Paris","completionReason":"FINISH"}]}`, "Paris"},
	}
	for _, tt := range tests {
		outcome := Interpret(tt.family, []byte(tt.raw), DefaultBlockMarker)
		if outcome.Kind != OutcomeSuccess {
			t.Errorf("%s: expected success, got %v (%s)", tt.family.Name, outcome.Kind, outcome.Message())
			continue
		}
		if outcome.Text != tt.want {
			t.Errorf("%s: expected %q, got %q", tt.family.Name, tt.want, outcome.Text)
		}
	}
}

func TestInterpret_BlockMarker(t *testing.T) {
	raw := `{"content":[{"type":"text","text":"Sorry, the model cannot answer this question."}]}`
	outcome := Interpret(anthropicFamily, []byte(raw), DefaultBlockMarker)
	if !outcome.IsBlocked() {
		t.Fatalf("expected blocked, got %v", outcome.Kind)
	}
	if outcome.Text != DefaultBlockMarker {
		t.Errorf("expected marker text, got %q", outcome.Text)
	}
}

func TestInterpret_CustomMarker(t *testing.T) {
	raw := `{"outputs":[{"text":"[POLICY] request denied"}]}`
	if got := Interpret(mistralFamily, []byte(raw), "[POLICY]"); !got.IsBlocked() {
		t.Errorf("expected blocked with custom marker, got %v", got.Kind)
	}
	if got := Interpret(mistralFamily, []byte(raw), DefaultBlockMarker); got.IsBlocked() {
		t.Error("expected default marker not to match")
	}
}

func TestInterpret_GuardrailActionIntervened(t *testing.T) {
	raw := `{"outputs":[{"text":"custom blocked message"}],"amazon-bedrock-guardrailAction":"INTERVENED"}`
	if got := Interpret(mistralFamily, []byte(raw), DefaultBlockMarker); !got.IsBlocked() {
		t.Errorf("expected blocked, got %v", got.Kind)
	}

	raw = `{"outputs":[{"text":"fine"}],"amazon-bedrock-guardrailAction":"NONE"}`
	if got := Interpret(mistralFamily, []byte(raw), DefaultBlockMarker); got.Kind != OutcomeSuccess {
		t.Errorf("expected success, got %v", got.Kind)
	}
}

func TestInterpret_ParseErrors(t *testing.T) {
	tests := []struct {
		name   string
		family *ModelFamily
		raw    string
	}{
		{"not json", mistralFamily, `not json`},
		{"missing field", mistralFamily, `{"content":[{"text":"hi"}]}`},
		{"empty outputs", mistralFamily, `{"outputs":[]}`},
		{"wrong type", anthropicFamily, `{"content":[{"text":42}]}`},
		{"null content", anthropicFamily, `{"content":null}`},
		{"array root", titanFamily, `[]`},
		{"empty body", titanFamily, ``},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome := Interpret(tt.family, []byte(tt.raw), DefaultBlockMarker)
			if !outcome.IsFailure() || outcome.Failure != FailureParse {
				t.Fatalf("expected ParseError failure, got %v/%v", outcome.Kind, outcome.Failure)
			}
			pe, ok := outcome.Err.(*ParseError)
			if !ok {
				t.Fatalf("expected *ParseError, got %T", outcome.Err)
			}
			if !strings.Contains(pe.Error(), "(text at "+tt.family.TextPath+")") {
				t.Errorf("expected text path in message, got %q", pe.Error())
			}
		})
	}
}

// --- Bedrock transport tests ---

func newBedrockTestServer(t *testing.T, handler http.HandlerFunc) *BedrockTransport {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	transport, err := NewBedrockTransport(context.Background(), BedrockOptions{
		Region:   "us-east-1",
		ProxyURL: srv.URL,
	})
	if err != nil {
		t.Fatalf("failed to build transport: %v", err)
	}
	return transport
}

func TestBedrockTransport_InvokeModel(t *testing.T) {
	var gotPath, gotGuardrail, gotVersion, gotAuth string
	var gotBody []byte
	transport := newBedrockTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotGuardrail = r.Header.Get("X-Amzn-Bedrock-GuardrailIdentifier")
		gotVersion = r.Header.Get("X-Amzn-Bedrock-GuardrailVersion")
		gotAuth = r.Header.Get("Authorization")
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.Write(mistralBody("pong"))
	})

	raw, err := transport.InvokeModel(context.Background(), &InvokeRequest{
		ModelID:          "mistral.mistral-7b-instruct-v0:2",
		Body:             []byte(`{"prompt":"ping"}`),
		GuardrailID:      "gr-1",
		GuardrailVersion: "3",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(string(raw), "pong") {
		t.Errorf("unexpected response %s", raw)
	}
	if !strings.HasSuffix(gotPath, "/invoke") || !strings.HasPrefix(gotPath, "/model/") {
		t.Errorf("unexpected request path %q", gotPath)
	}
	if gotGuardrail != "gr-1" || gotVersion != "3" {
		t.Errorf("expected guardrail headers gr-1/3, got %q/%q", gotGuardrail, gotVersion)
	}
	if gotAuth != "" {
		t.Errorf("expected unsigned request, got Authorization %q", gotAuth)
	}
	if string(gotBody) != `{"prompt":"ping"}` {
		t.Errorf("unexpected request body %s", gotBody)
	}
}

func TestBedrockTransport_NoGuardrailHeaders(t *testing.T) {
	var gotGuardrail string
	transport := newBedrockTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotGuardrail = r.Header.Get("X-Amzn-Bedrock-GuardrailIdentifier")
		w.Write(mistralBody("ok"))
	})

	if _, err := transport.InvokeModel(context.Background(), &InvokeRequest{ModelID: ModelMistral7B, Body: []byte(`{}`)}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotGuardrail != "" {
		t.Errorf("expected no guardrail header, got %q", gotGuardrail)
	}
}

func TestBedrockTransport_APIErrorIsClientError(t *testing.T) {
	calls := 0
	transport := newBedrockTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Amzn-Errortype", "ValidationException")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"Malformed input request"}`))
	})

	_, err := transport.InvokeModel(context.Background(), &InvokeRequest{ModelID: ModelMistral7B, Body: []byte(`{}`)})
	if err == nil {
		t.Fatal("expected error")
	}
	if got := ClassifyError(err); got != FailureClient {
		t.Errorf("expected ClientError, got %v (%v)", got, err)
	}
	if calls != 1 {
		t.Errorf("expected exactly one attempt, got %d", calls)
	}
}

func TestBedrockTransport_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	transport, err := NewBedrockTransport(context.Background(), BedrockOptions{Region: "us-east-1", ProxyURL: url})
	if err != nil {
		t.Fatal(err)
	}
	_, err = transport.InvokeModel(context.Background(), &InvokeRequest{ModelID: ModelMistral7B, Body: []byte(`{}`)})
	if err == nil {
		t.Fatal("expected error")
	}
	if got := ClassifyError(err); got != FailureTransport {
		t.Errorf("expected TransportError, got %v (%v)", got, err)
	}
}

func TestInvoker_EndToEndThroughProxy(t *testing.T) {
	transport := newBedrockTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"content":[{"type":"text","text":"Sorry, the model cannot answer this question."}]}`))
	})
	inv := NewInvoker(transport, ModelHaiku45, WithConsole(io.Discard))

	outcome := inv.Invoke(context.Background(), "bad prompt")
	if !outcome.IsBlocked() {
		t.Errorf("expected blocked, got %v (%s)", outcome.Kind, outcome.Message())
	}
}

type panickingBedrockClient struct{}

func (panickingBedrockClient) InvokeModel(context.Context, *bedrockruntime.InvokeModelInput, ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	panic("nil bearer token provider")
}

func TestBedrockTransport_PanicBecomesSDKError(t *testing.T) {
	transport := NewBedrockTransportFromClient(panickingBedrockClient{})

	raw, err := transport.InvokeModel(context.Background(), &InvokeRequest{ModelID: ModelMistral7B, Body: []byte(`{}`)})
	if err == nil {
		t.Fatal("expected error")
	}
	if raw != nil {
		t.Errorf("expected no body, got %s", raw)
	}
	if got := ClassifyError(err); got != FailureSDK {
		t.Errorf("expected SDKError, got %v (%v)", got, err)
	}
}

func TestInvoker_ProxyRequestsAreUnsigned(t *testing.T) {
	var gotAuth, gotDate string
	transport := newBedrockTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotDate = r.Header.Get("X-Amz-Date")
		w.Write(mistralBody("ok"))
	})
	inv := NewInvoker(transport, ModelMistral7B, WithConsole(io.Discard))

	outcome := inv.Invoke(context.Background(), "hi")
	if outcome.Kind != OutcomeSuccess || outcome.Text != "ok" {
		t.Fatalf("expected allowed 'ok', got %v %q (%s)", outcome.Kind, outcome.Text, outcome.Message())
	}
	if gotAuth != "" || gotDate != "" {
		t.Errorf("expected no signing headers, got Authorization=%q X-Amz-Date=%q", gotAuth, gotDate)
	}
}
