// Package corpus reads labeled prompt files used for batch evaluation.
//
// Each line holds "<prompt>,<label>". The prompt ends at the first comma;
// prompts containing commas cannot be expressed in this format.
package corpus

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
)

// ErrNotFound is returned when the corpus file does not exist.
var ErrNotFound = errors.New("prompts file not found")

// Record is one labeled prompt.
type Record struct {
	Line   int
	Prompt string
	Label  string
}

// ParseLine splits a corpus line on its first comma. Lines without a comma or
// with an empty prompt are rejected.
func ParseLine(line string) (Record, bool) {
	prompt, label, ok := strings.Cut(line, ",")
	if !ok {
		return Record{}, false
	}
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return Record{}, false
	}
	return Record{Prompt: prompt, Label: strings.TrimSpace(label)}, true
}

// Parse reads every valid record from r in order. Blank and malformed
// lines are skipped without error.
func Parse(r io.Reader) ([]Record, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	records := make([]Record, 0)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		rec, ok := ParseLine(strings.TrimRight(scanner.Text(), "\r"))
		if !ok {
			continue
		}
		rec.Line = lineNo
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read prompts: %w", err)
	}
	return records, nil
}

// Load reads the corpus file at path.
func Load(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("open prompts %s: %w", path, err)
	}
	defer f.Close()
	return Parse(f)
}
