// Package session drives the interactive prompt loop and batch corpus runs.
package session

import (
	"context"
	"io"

	"github.com/pennsieve/promptcheck/internal/logsink"
	"github.com/pennsieve/promptcheck/llm"
)

// Invoker sends one prompt to the model.
type Invoker interface {
	Invoke(ctx context.Context, prompt string) llm.Outcome
}

// Runner owns the console and the log sink for one session.
type Runner struct {
	invoker Invoker
	modelID string
	in      io.Reader
	out     io.Writer
	log     *logsink.Sink
}

// Option configures a Runner.
type Option func(*Runner)

// WithInput sets the console input. Defaults to an empty reader.
func WithInput(r io.Reader) Option {
	return func(s *Runner) {
		s.in = r
	}
}

// WithOutput sets the console output. Defaults to io.Discard.
func WithOutput(w io.Writer) Option {
	return func(s *Runner) {
		s.out = w
	}
}

// WithLog sets the log sink used for run-level entries.
func WithLog(l *logsink.Sink) Option {
	return func(s *Runner) {
		s.log = l
	}
}

func New(invoker Invoker, modelID string, opts ...Option) *Runner {
	s := &Runner{
		invoker: invoker,
		modelID: modelID,
		in:      eofReader{},
		out:     io.Discard,
		log:     logsink.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type eofReader struct{}

func (eofReader) Read([]byte) (int, error) { return 0, io.EOF }
