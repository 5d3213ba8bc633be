package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the immutable invocation configuration assembled from the
// command line and an optional YAML file.
type Config struct {
	Region           string `yaml:"region"`
	ModelID          string `yaml:"model_id"`
	SystemPromptFile string `yaml:"system_prompt_file"`
	ProxyURL         string `yaml:"proxy_url"`
	GuardrailID      string `yaml:"guardrail_id"`
	GuardrailVersion string `yaml:"guardrail_version"`
	LogFile          string `yaml:"log_file"`
	LogMaxSizeMB     int    `yaml:"log_max_size_mb"`
	PromptsFile      string `yaml:"prompts_file"`
	SummaryReport    bool   `yaml:"summary_report"`
	SummaryFormat    string `yaml:"summary_format"`
	BlockMarker      string `yaml:"block_marker"`
	Profile          string `yaml:"profile"`

	// ModelFamily forces the request schema for model IDs that do not name
	// their provider, such as application inference profile ARNs.
	ModelFamily string `yaml:"model_family"`
}

// Summary output formats.
const (
	FormatText     = "text"
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
)

// Error reports an invalid combination of settings. It is always fatal.
type Error struct {
	Msg string
}

func (e *Error) Error() string { return e.Msg }

// IsConfigError checks whether err is a configuration error.
func IsConfigError(err error) bool {
	var ce *Error
	return errors.As(err, &ce)
}

// Load reads a YAML config file into a Config.
func Load(path string) (Config, error) {
	var cfg Config
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Flag names of the settings that can come from the command line.
const (
	FlagProxyURL         = "proxy-url"
	FlagGuardrailID      = "guardrail-id"
	FlagGuardrailVersion = "guardrail-version"
	FlagLogFile          = "log-file"
	FlagLogMaxSize       = "log-max-size"
	FlagPromptsFile      = "prompts-file"
	FlagSummaryReport    = "summary-report"
	FlagSummaryFormat    = "summary-format"
	FlagBlockMarker      = "block-marker"
	FlagProfile          = "profile"
	FlagModelFamily      = "model-family"
)

var flagFields = map[string]func(dst *Config, src Config){
	FlagProxyURL:         func(dst *Config, src Config) { dst.ProxyURL = src.ProxyURL },
	FlagGuardrailID:      func(dst *Config, src Config) { dst.GuardrailID = src.GuardrailID },
	FlagGuardrailVersion: func(dst *Config, src Config) { dst.GuardrailVersion = src.GuardrailVersion },
	FlagLogFile:          func(dst *Config, src Config) { dst.LogFile = src.LogFile },
	FlagLogMaxSize:       func(dst *Config, src Config) { dst.LogMaxSizeMB = src.LogMaxSizeMB },
	FlagPromptsFile:      func(dst *Config, src Config) { dst.PromptsFile = src.PromptsFile },
	FlagSummaryReport:    func(dst *Config, src Config) { dst.SummaryReport = src.SummaryReport },
	FlagSummaryFormat:    func(dst *Config, src Config) { dst.SummaryFormat = src.SummaryFormat },
	FlagBlockMarker:      func(dst *Config, src Config) { dst.BlockMarker = src.BlockMarker },
	FlagProfile:          func(dst *Config, src Config) { dst.Profile = src.Profile },
	FlagModelFamily:      func(dst *Config, src Config) { dst.ModelFamily = src.ModelFamily },
}

// Overlay returns c with the command-line values in flags applied on top.
// A flag field is taken from flags only when changed reports the flag as set,
// so an explicit zero value still overrides the file. Non-empty positional
// arguments always win.
func (c Config) Overlay(flags Config, changed func(flag string) bool) Config {
	out := c
	for _, p := range []struct {
		dst *string
		src string
	}{
		{&out.Region, flags.Region},
		{&out.ModelID, flags.ModelID},
		{&out.SystemPromptFile, flags.SystemPromptFile},
	} {
		if p.src != "" {
			*p.dst = p.src
		}
	}
	for name, apply := range flagFields {
		if changed(name) {
			apply(&out, flags)
		}
	}
	return out
}

// BatchMode reports whether a prompts file switches the run to batch mode.
func (c Config) BatchMode() bool {
	return c.PromptsFile != ""
}

// Validate checks the settings before any client is built.
func (c Config) Validate() error {
	switch {
	case c.Region == "":
		return &Error{"Region is required."}
	case c.ModelID == "":
		return &Error{"Model ID is required."}
	case c.SystemPromptFile == "":
		return &Error{"System prompt file is required."}
	case c.GuardrailID != "" && c.GuardrailVersion == "":
		return &Error{"Guardrail version is required if guardrail ID is provided."}
	case c.GuardrailID == "" && c.GuardrailVersion != "":
		return &Error{"Guardrail ID is required if guardrail version is provided."}
	case c.ProxyURL == "" && c.GuardrailID == "":
		return &Error{"Proxy URL or guardrail ID is required."}
	case c.ProxyURL != "" && c.GuardrailID != "":
		return &Error{"Both proxy URL and guardrail ID cannot be provided together."}
	case c.BatchMode() && c.LogFile == "":
		return &Error{"Log file is required when a prompts file is provided."}
	case c.SummaryReport && !c.BatchMode():
		return &Error{"Summary report is only available with a prompts file."}
	case c.LogMaxSizeMB < 0:
		return &Error{"Log max size cannot be negative."}
	}
	switch c.SummaryFormat {
	case "", FormatText, FormatMarkdown, FormatJSON:
	default:
		return &Error{fmt.Sprintf("Unsupported summary format %q.", c.SummaryFormat)}
	}
	return nil
}

// ReadSystemPrompt reads the whole system prompt file.
func (c Config) ReadSystemPrompt() (string, error) {
	raw, err := os.ReadFile(c.SystemPromptFile)
	if err != nil {
		return "", fmt.Errorf("read system prompt %s: %w", c.SystemPromptFile, err)
	}
	return string(raw), nil
}
