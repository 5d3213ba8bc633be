// Package logsink appends timestamped conversation entries to a log file.
package logsink

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// TimeFormat is the timestamp layout at the start of every line.
const TimeFormat = "2006-01-02 15:04:05"

// Options configures the log file.
type Options struct {
	Path string

	// MaxSizeMB rotates the file once it grows past this size.
	// Zero uses lumberjack's default of 100 megabytes.
	MaxSizeMB int
}

// Sink writes "<time> - <LEVEL> - <message>" lines.
type Sink struct {
	logger zerolog.Logger
	closer io.Closer
}

// SessionInfo is written once when a session starts.
type SessionInfo struct {
	SessionID        string
	ModelID          string
	SystemPrompt     string
	GuardrailID      string
	GuardrailVersion string
	ProxyURL         string
	PromptsFile      string
}

// Open creates the log file if needed and returns a sink appending to it.
func Open(opts Options) (*Sink, error) {
	if dir := filepath.Dir(opts.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
	}
	// lumberjack opens lazily; fail here instead of on the first entry.
	f, err := os.OpenFile(opts.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	f.Close()

	roller := &lumberjack.Logger{
		Filename: opts.Path,
		MaxSize:  opts.MaxSizeMB,
	}
	return &Sink{logger: newLogger(roller), closer: roller}, nil
}

// New returns a sink writing to w. The caller owns w.
func New(w io.Writer) *Sink {
	return &Sink{logger: newLogger(w)}
}

// Nop returns a sink that discards everything.
func Nop() *Sink {
	return &Sink{logger: zerolog.Nop()}
}

func newLogger(w io.Writer) zerolog.Logger {
	out := zerolog.ConsoleWriter{
		Out:        w,
		NoColor:    true,
		TimeFormat: TimeFormat,
		PartsOrder: []string{
			zerolog.TimestampFieldName,
			zerolog.LevelFieldName,
			zerolog.MessageFieldName,
		},
		FormatLevel: func(i any) string {
			return fmt.Sprintf("- %s -", strings.ToUpper(fmt.Sprint(i)))
		},
	}
	return zerolog.New(out).Level(zerolog.InfoLevel).With().Timestamp().Logger()
}

func (s *Sink) Info(format string, args ...any) {
	s.logger.Info().Msgf(format, args...)
}

func (s *Sink) Error(format string, args ...any) {
	s.logger.Error().Msgf(format, args...)
}

// Exchange records one prompt and the model's answer.
func (s *Sink) Exchange(prompt, response string) {
	s.Info("User prompt: %s", prompt)
	s.Info("Model response: %s", response)
}

// SessionStart records the session metadata.
func (s *Sink) SessionStart(info SessionInfo) {
	s.Info("Starting conversation model")
	s.Info("Session: %s", info.SessionID)
	s.Info("Model: %s", info.ModelID)
	s.Info("System prompt: %s", info.SystemPrompt)
	if info.GuardrailID != "" {
		s.Info("Guardrail ID: %s", info.GuardrailID)
		s.Info("Guardrail version: %s", info.GuardrailVersion)
	}
	if info.ProxyURL != "" {
		s.Info("Proxy URL: %s", info.ProxyURL)
	}
	if info.PromptsFile != "" {
		s.Info("Prompts file: %s", info.PromptsFile)
	}
}

// Close releases the log file.
func (s *Sink) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
