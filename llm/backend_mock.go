package llm

import (
	"context"
	"fmt"
	"sync"
)

// MockTransport returns canned responses for local testing.
//
// Register responses with SetResponse or SetResponses.
// Unmatched calls return a mistral-shaped echo of the request body.
type MockTransport struct {
	mu        sync.Mutex
	responses [][]byte
	err       error
	callLog   []*InvokeRequest
}

// NewMockTransport creates a new mock transport.
func NewMockTransport() *MockTransport {
	return &MockTransport{}
}

// SetResponse sets a single canned response returned for every call.
func (t *MockTransport) SetResponse(body []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.responses = [][]byte{body}
}

// SetResponses sets a sequence of responses consumed in order; the last one repeats.
func (t *MockTransport) SetResponses(bodies [][]byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.responses = make([][]byte, len(bodies))
	copy(t.responses, bodies)
}

// SetError makes every subsequent call fail with err.
func (t *MockTransport) SetError(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.err = err
}

// Calls returns all InvokeRequests received, for test assertions.
func (t *MockTransport) Calls() []*InvokeRequest {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*InvokeRequest, len(t.callLog))
	copy(out, t.callLog)
	return out
}

func (t *MockTransport) InvokeModel(_ context.Context, req *InvokeRequest) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.callLog = append(t.callLog, req)

	if t.err != nil {
		return nil, t.err
	}

	if len(t.responses) > 0 {
		if len(t.responses) > 1 {
			body := t.responses[0]
			t.responses = t.responses[1:]
			return body, nil
		}
		return t.responses[0], nil
	}

	return []byte(fmt.Sprintf(`{"outputs":[{"text":%q,"stop_reason":"stop"}]}`, "[mock] "+req.ModelID)), nil
}
