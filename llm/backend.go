package llm

import "context"

// Transport is the interface that model endpoints must satisfy. It sends one
// request and returns the raw response body.
type Transport interface {
	InvokeModel(ctx context.Context, req *InvokeRequest) ([]byte, error)
}
