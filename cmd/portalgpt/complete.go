package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kbukum/portalgpt/bootstrap"
	"github.com/kbukum/portalgpt/llm"
)

type completeOptions struct {
	prompt      string
	schemaFile  string
	backend     string
	model       string
	temperature float64
	maxTokens   int
	timeout     time.Duration
}

func newCompleteCmd(flags *rootFlags) *cobra.Command {
	opts := &completeOptions{}

	cmd := &cobra.Command{
		Use:   "complete",
		Short: "Request one structured completion and print the JSON result",
		Long: `Send a prompt to the configured backends and print the JSON object found
in the model's answer. With --backend only that backend is called; otherwise
the preferred backend is tried first, then the fallbacks.

Use --prompt - to read the prompt from stdin.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := opts.request(cmd.InOrStdin())
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("temperature") {
				req.Temperature = llm.Float(opts.temperature)
			}
			return runComplete(cmd.Context(), flags, opts.backend, req, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVar(&opts.prompt, "prompt", "", "Prompt text, or - for stdin")
	cmd.Flags().StringVar(&opts.schemaFile, "schema-file", "", "JSON file describing the expected response shape")
	cmd.Flags().StringVar(&opts.backend, "backend", "", "Call only this backend")
	cmd.Flags().StringVar(&opts.model, "model", "", "Model override")
	cmd.Flags().Float64Var(&opts.temperature, "temperature", llm.DefaultTemperature, "Sampling temperature")
	cmd.Flags().IntVar(&opts.maxTokens, "max-tokens", 0, "Maximum tokens to generate (default: provider default)")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "Per-call timeout (default: provider default)")
	_ = cmd.MarkFlagRequired("prompt")

	return cmd
}

func (o *completeOptions) request(stdin io.Reader) (llm.CompletionRequest, error) {
	prompt := o.prompt
	if prompt == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return llm.CompletionRequest{}, fmt.Errorf("read prompt: %w", err)
		}
		prompt = string(data)
	}

	req := llm.CompletionRequest{
		Prompt:    prompt,
		Model:     o.model,
		MaxTokens: o.maxTokens,
		Timeout:   o.timeout,
	}
	if o.schemaFile != "" {
		schema, err := readSchema(o.schemaFile)
		if err != nil {
			return llm.CompletionRequest{}, err
		}
		req.Schema = schema
	}
	return req, nil
}

func readSchema(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	var schema map[string]any
	if err := json.Unmarshal(data, &schema); err != nil {
		return nil, fmt.Errorf("parse schema %s: %w", path, err)
	}
	return schema, nil
}

func runComplete(ctx context.Context, flags *rootFlags, backend string, req llm.CompletionRequest, out, errOut io.Writer) error {
	rt, err := loadRuntime(flags, false)
	if err != nil {
		return err
	}
	app, err := bootstrap.NewApp(rt.cfg)
	if err != nil {
		return err
	}
	if err := rt.initMetrics(); err != nil {
		return err
	}
	orch, err := rt.buildOrchestrator()
	if err != nil {
		return err
	}

	return app.RunTask(ctx, func(ctx context.Context) error {
		var (
			result llm.Result
			err    error
		)
		if backend != "" {
			result, err = orch.CompleteWith(ctx, backend, req)
		} else {
			result, err = orch.Complete(ctx, req)
		}
		if err != nil {
			var f *llm.Failure
			if errors.As(err, &f) && f.Raw != "" {
				fmt.Fprintf(errOut, "raw output:\n%s\n", f.Raw)
			}
			return err
		}

		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	})
}
