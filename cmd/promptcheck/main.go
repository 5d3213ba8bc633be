package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/pennsieve/promptcheck/internal/config"
	"github.com/pennsieve/promptcheck/internal/corpus"
	"github.com/pennsieve/promptcheck/internal/logsink"
	"github.com/pennsieve/promptcheck/internal/session"
	"github.com/pennsieve/promptcheck/llm"
)

const exitFailure = 1

type cliError struct {
	code int
	err  error
}

func (e cliError) Error() string { return e.err.Error() }

func (e cliError) Unwrap() error { return e.err }

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		var ce cliError
		if errors.As(err, &ce) {
			fmt.Fprintln(os.Stderr, ce.err)
			os.Exit(ce.code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitFailure)
	}
}

var newTransport = func(ctx context.Context, opts llm.BedrockOptions) (llm.Transport, error) {
	return llm.NewBedrockTransport(ctx, opts)
}

func newRootCommand() *cobra.Command {
	var flags config.Config
	var configPath string

	cmd := &cobra.Command{
		Use:   "promptcheck <region> <model-id> <system-prompt-file>",
		Short: "Send prompts to a Bedrock model through a guardrail or proxy",
		Long: `promptcheck sends prompts to an Amazon Bedrock model and reports whether
each one was answered or blocked. Without --prompts-file it starts an
interactive prompt; with it, every "<prompt>,<label>" line of the file is
sent in order and the results are tallied per label.`,
		Args:          cobra.MaximumNArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			positional := []*string{&flags.Region, &flags.ModelID, &flags.SystemPromptFile}
			for i, a := range args {
				*positional[i] = a
			}

			var base config.Config
			if configPath != "" {
				fileCfg, err := config.Load(configPath)
				if err != nil {
					return cliError{code: exitFailure, err: err}
				}
				base = fileCfg
			}
			cfg := base.Overlay(flags, cmd.Flags().Changed)
			if err := cfg.Validate(); err != nil {
				return cliError{code: exitFailure, err: err}
			}
			return run(cmd, cfg)
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.ProxyURL, config.FlagProxyURL, "", "send unsigned requests to this endpoint")
	f.StringVar(&flags.GuardrailID, config.FlagGuardrailID, "", "guardrail identifier")
	f.StringVar(&flags.GuardrailVersion, config.FlagGuardrailVersion, "", "guardrail version")
	f.StringVar(&flags.LogFile, config.FlagLogFile, "", "append the conversation to this file")
	f.IntVar(&flags.LogMaxSizeMB, config.FlagLogMaxSize, 0, "rotate the log file after this many megabytes (0 = 100)")
	f.StringVar(&flags.PromptsFile, config.FlagPromptsFile, "", "run every <prompt>,<label> line of this file")
	f.BoolVar(&flags.SummaryReport, config.FlagSummaryReport, false, "print per-label totals after a batch run")
	f.StringVar(&flags.SummaryFormat, config.FlagSummaryFormat, "", "summary format (text|markdown|json)")
	f.StringVar(&flags.BlockMarker, config.FlagBlockMarker, "", "text that marks a guardrail-blocked response")
	f.StringVar(&flags.Profile, config.FlagProfile, "", "AWS shared config profile")
	f.StringVar(&flags.ModelFamily, config.FlagModelFamily, "", "request schema when the model ID does not name it (mistral|anthropic|titan)")
	f.StringVar(&configPath, "config", "", "YAML file with default settings")
	return cmd
}

func run(cmd *cobra.Command, cfg config.Config) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	var family *llm.ModelFamily
	if cfg.ModelFamily != "" {
		var ok bool
		if family, ok = llm.FamilyByName(cfg.ModelFamily); !ok {
			return cliError{code: exitFailure, err: &config.Error{Msg: fmt.Sprintf("Unknown model family %q.", cfg.ModelFamily)}}
		}
	}

	systemPrompt, err := cfg.ReadSystemPrompt()
	if err != nil {
		return cliError{code: exitFailure, err: err}
	}

	sink := logsink.Nop()
	if cfg.LogFile != "" {
		sink, err = logsink.Open(logsink.Options{Path: cfg.LogFile, MaxSizeMB: cfg.LogMaxSizeMB})
		if err != nil {
			return cliError{code: exitFailure, err: err}
		}
		defer sink.Close()
	}

	sessionID := uuid.NewString()
	sink.SessionStart(logsink.SessionInfo{
		SessionID:        sessionID,
		ModelID:          cfg.ModelID,
		SystemPrompt:     systemPrompt,
		GuardrailID:      cfg.GuardrailID,
		GuardrailVersion: cfg.GuardrailVersion,
		ProxyURL:         cfg.ProxyURL,
		PromptsFile:      cfg.PromptsFile,
	})

	transport, err := newTransport(ctx, llm.BedrockOptions{
		Region:   cfg.Region,
		ProxyURL: cfg.ProxyURL,
		Profile:  cfg.Profile,
	})
	if err != nil {
		return cliError{code: exitFailure, err: err}
	}

	opts := []llm.InvokerOption{
		llm.WithSystemPrompt(systemPrompt),
		llm.WithConsole(out),
	}
	if cfg.GuardrailID != "" {
		opts = append(opts, llm.WithGuardrail(cfg.GuardrailID, cfg.GuardrailVersion))
	}
	if family != nil {
		opts = append(opts, llm.WithFamily(family))
	}
	if cfg.BlockMarker != "" {
		opts = append(opts, llm.WithBlockMarker(cfg.BlockMarker))
	}
	if cfg.LogFile != "" {
		opts = append(opts, llm.WithRecorder(sink))
	}
	invoker := llm.NewInvoker(transport, cfg.ModelID, opts...)

	runner := session.New(invoker, cfg.ModelID,
		session.WithInput(cmd.InOrStdin()),
		session.WithOutput(out),
		session.WithLog(sink),
	)

	if !cfg.BatchMode() {
		return runner.RunInteractive(ctx)
	}

	_, err = runner.RunBatch(ctx, session.BatchOptions{
		PromptsFile:   cfg.PromptsFile,
		RunID:         sessionID,
		SummaryReport: cfg.SummaryReport,
		SummaryFormat: cfg.SummaryFormat,
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, corpus.ErrNotFound):
		return cliError{code: exitFailure, err: &config.Error{Msg: fmt.Sprintf("Prompts file %s not found.", cfg.PromptsFile)}}
	case errors.Is(err, context.Canceled):
		fmt.Fprintln(out, "\nCtrl+C detected. Exiting...")
		return nil
	default:
		sink.Error("Batch run %s failed: %v", sessionID, err)
		return cliError{code: exitFailure, err: fmt.Errorf("batch run failed: %w", err)}
	}
}
