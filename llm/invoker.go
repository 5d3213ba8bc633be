package llm

import (
	"context"
	"fmt"
	"io"
	"os"
)

// Recorder receives the prompt and generated text of every call that
// produced a response.
type Recorder interface {
	Exchange(prompt, response string)
}

// Invoker sends prompts to one model through a Transport and classifies the
// responses.
type Invoker struct {
	transport        Transport
	modelID          string
	family           *ModelFamily
	systemPrompt     string
	guardrailID      string
	guardrailVersion string
	blockMarker      string
	recorder         Recorder
	console          io.Writer
}

// InvokerOption configures an Invoker instance.
type InvokerOption func(*Invoker)

// WithSystemPrompt sets the system prompt sent with every request.
func WithSystemPrompt(prompt string) InvokerOption {
	return func(i *Invoker) {
		i.systemPrompt = prompt
	}
}

// WithGuardrail attaches a guardrail identifier and version to every request.
func WithGuardrail(id, version string) InvokerOption {
	return func(i *Invoker) {
		i.guardrailID = id
		i.guardrailVersion = version
	}
}

// WithBlockMarker overrides DefaultBlockMarker.
func WithBlockMarker(marker string) InvokerOption {
	return func(i *Invoker) {
		i.blockMarker = marker
	}
}

// WithFamily forces a model family instead of selecting it from the model ID.
func WithFamily(f *ModelFamily) InvokerOption {
	return func(i *Invoker) {
		i.family = f
	}
}

// WithRecorder logs every answered prompt.
func WithRecorder(r Recorder) InvokerOption {
	return func(i *Invoker) {
		i.recorder = r
	}
}

// WithConsole sets where failure messages are printed. Defaults to stdout.
func WithConsole(w io.Writer) InvokerOption {
	return func(i *Invoker) {
		i.console = w
	}
}

// NewInvoker creates an Invoker for modelID.
func NewInvoker(transport Transport, modelID string, opts ...InvokerOption) *Invoker {
	i := &Invoker{
		transport:   transport,
		modelID:     modelID,
		blockMarker: DefaultBlockMarker,
		console:     os.Stdout,
	}
	for _, opt := range opts {
		opt(i)
	}
	if i.family == nil {
		i.family = FamilyFor(modelID)
	}
	return i
}

// Family returns the model family used to shape requests.
func (i *Invoker) Family() *ModelFamily {
	return i.family
}

// Invoke performs exactly one model call for prompt. Failures are printed to
// the console and returned as a Failure outcome; Invoke never panics on a
// malformed response. Empty prompts must be rejected by the caller.
func (i *Invoker) Invoke(ctx context.Context, prompt string) Outcome {
	body, err := i.family.BuildRequest(prompt, i.systemPrompt)
	if err != nil {
		return i.fail(FailureSDK, err)
	}

	req := &InvokeRequest{ModelID: i.modelID, Body: body}
	if i.guardrailID != "" {
		req.GuardrailID = i.guardrailID
		req.GuardrailVersion = i.guardrailVersion
	}

	raw, err := i.send(ctx, req)
	if err != nil {
		return i.fail(ClassifyError(err), err)
	}

	outcome := Interpret(i.family, raw, i.blockMarker)
	if outcome.IsFailure() {
		return i.fail(outcome.Failure, outcome.Err)
	}

	if i.recorder != nil {
		i.recorder.Exchange(prompt, outcome.Text)
	}
	return outcome
}

// send calls the transport. A panic is returned as an error, which
// ClassifyError reports as an SDKError.
func (i *Invoker) send(ctx context.Context, req *InvokeRequest) (raw []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			raw, err = nil, fmt.Errorf("transport panicked: %v", r)
		}
	}()
	return i.transport.InvokeModel(ctx, req)
}

func (i *Invoker) fail(kind FailureKind, err error) Outcome {
	fmt.Fprintf(i.console, "%s: %v\n", kind, err)
	if _, ok := IsInvokeError(err); !ok {
		err = &InvokeError{Kind: kind, Err: err}
	}
	return Failed(kind, err)
}
