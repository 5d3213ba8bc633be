package session

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/pennsieve/promptcheck/llm"
)

// RunInteractive reads prompts from the console until ctx is cancelled or
// input ends. Empty prompts are rejected before reaching the invoker and a
// failed invocation never ends the loop.
func (s *Runner) RunInteractive(ctx context.Context) error {
	fmt.Fprintf(s.out, "Starting conversation with model %s\n", s.modelID)
	fmt.Fprintln(s.out, "Press Ctrl+C to exit")

	lines, readErr := s.readLines(ctx)

	for {
		fmt.Fprint(s.out, "Prompt: ")

		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(s.out, "\nCtrl+C detected. Exiting...")
			return nil
		case l, ok := <-lines:
			if !ok {
				if ctx.Err() != nil {
					fmt.Fprintln(s.out, "\nCtrl+C detected. Exiting...")
					return nil
				}
				fmt.Fprintln(s.out)
				return <-readErr
			}
			line = l
		}

		prompt := strings.TrimSpace(line)
		if prompt == "" {
			fmt.Fprint(s.out, "Prompt cannot be empty.\n\n")
			continue
		}

		outcome := s.invoker.Invoke(ctx, prompt)
		s.printOutcome(outcome)
	}
}

func (s *Runner) printOutcome(o llm.Outcome) {
	switch o.Kind {
	case llm.OutcomeFailure:
		fmt.Fprintf(s.out, "\nModel response: None (%s)\n\n", o.Failure)
	case llm.OutcomeBlocked:
		fmt.Fprintf(s.out, "\nModel response: %s\n[blocked by guardrail]\n\n", o.Text)
	default:
		fmt.Fprintf(s.out, "\nModel response: %s\n\n", o.Text)
	}
}

// readLines feeds console lines to the loop so that a blocked read does not
// delay the interrupt. The error channel receives the scanner error once the
// lines channel is closed.
func (s *Runner) readLines(ctx context.Context) (<-chan string, <-chan error) {
	lines := make(chan string)
	errc := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(s.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				errc <- nil
				return
			}
		}
		errc <- scanner.Err()
	}()
	return lines, errc
}
