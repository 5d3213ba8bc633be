package llm

import (
	"errors"
	"fmt"

	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
)

// InvokeError wraps a failed model call with its classified kind.
type InvokeError struct {
	Kind FailureKind
	Err  error
}

func (e *InvokeError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *InvokeError) Unwrap() error { return e.Err }

// IsInvokeError checks whether an error is an InvokeError and returns it.
func IsInvokeError(err error) (*InvokeError, bool) {
	var ie *InvokeError
	if errors.As(err, &ie) {
		return ie, true
	}
	return nil, false
}

// ClassifyError maps an error returned by a Transport to a FailureKind.
// Parameter validation is checked before API errors because the SDK reports
// both through the same operation error wrapper.
func ClassifyError(err error) FailureKind {
	if err == nil {
		return FailureNone
	}
	if ie, ok := IsInvokeError(err); ok {
		return ie.Kind
	}

	var invalidParams smithy.InvalidParamsError
	var invalidParamsPtr *smithy.InvalidParamsError
	if errors.As(err, &invalidParams) || errors.As(err, &invalidParamsPtr) {
		return FailureParamValidation
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return FailureClient
	}
	var sendErr *smithyhttp.RequestSendError
	if errors.As(err, &sendErr) {
		return FailureTransport
	}
	var canceled *smithy.CanceledError
	if errors.As(err, &canceled) {
		return FailureTransport
	}
	return FailureSDK
}
