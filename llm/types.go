package llm

// InvokeRequest is the payload handed to a Transport for a single model call.
type InvokeRequest struct {
	ModelID string `json:"modelId"`

	// Body is the model-family-specific JSON document built by a ModelFamily.
	Body []byte `json:"body"`

	// GuardrailID and GuardrailVersion are sent only when a guardrail is configured.
	GuardrailID      string `json:"guardrailIdentifier,omitempty"`
	GuardrailVersion string `json:"guardrailVersion,omitempty"`
}

// OutcomeKind classifies the result of an invocation.
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeBlocked
	OutcomeFailure
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "allowed"
	case OutcomeBlocked:
		return "blocked"
	default:
		return "error"
	}
}

// FailureKind distinguishes the reasons an invocation can fail.
type FailureKind int

const (
	FailureNone FailureKind = iota
	FailureClient
	FailureParamValidation
	FailureTransport
	FailureSDK
	FailureParse
)

func (k FailureKind) String() string {
	switch k {
	case FailureClient:
		return "ClientError"
	case FailureParamValidation:
		return "ParamValidationError"
	case FailureTransport:
		return "TransportError"
	case FailureSDK:
		return "SDKError"
	case FailureParse:
		return "ParseError"
	default:
		return "None"
	}
}

// Outcome is the result of one prompt invocation.
type Outcome struct {
	Kind OutcomeKind

	// Text is the generated text for Success and Blocked outcomes.
	Text string

	// Failure and Err are set only when Kind is OutcomeFailure.
	Failure FailureKind
	Err     error
}

// Success builds an allowed outcome.
func Success(text string) Outcome {
	return Outcome{Kind: OutcomeSuccess, Text: text}
}

// Blocked builds an outcome for a response the guardrail intervened on.
func Blocked(text string) Outcome {
	return Outcome{Kind: OutcomeBlocked, Text: text}
}

// Failed builds a failure outcome of the given kind.
func Failed(kind FailureKind, err error) Outcome {
	return Outcome{Kind: OutcomeFailure, Failure: kind, Err: err}
}

func (o Outcome) IsBlocked() bool { return o.Kind == OutcomeBlocked }
func (o Outcome) IsFailure() bool { return o.Kind == OutcomeFailure }

// Message returns the failure message, or an empty string for non-failures.
func (o Outcome) Message() string {
	if o.Err == nil {
		return ""
	}
	return o.Err.Error()
}
