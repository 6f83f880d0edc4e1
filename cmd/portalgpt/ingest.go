package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/kbukum/portalgpt/bootstrap"
	"github.com/kbukum/portalgpt/ingest"
	"github.com/kbukum/portalgpt/logger"
	"github.com/kbukum/portalgpt/storage"
	_ "github.com/kbukum/portalgpt/storage/local"
	_ "github.com/kbukum/portalgpt/storage/s3"
)

type ingestOptions struct {
	output   string
	baseURL  string
	interval time.Duration
}

func newIngestCmd(flags *rootFlags) *cobra.Command {
	opts := &ingestOptions{}

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Export CKAN dataset metadata as JSON lines",
		Long: `Fetch every dataset listed by the CKAN portal, reduce its metadata to the
fields used for retrieval and write one JSON object per line.

Use --output - to write to stdout.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd.Context(), flags, opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.output, "output", "", "Output file (default: ingest.output from config)")
	cmd.Flags().StringVar(&opts.baseURL, "base-url", "", "CKAN API base URL (default: ingest.base_url from config)")
	cmd.Flags().DurationVar(&opts.interval, "interval", 0, "Minimum spacing between metadata requests")

	return cmd
}

func runIngest(ctx context.Context, flags *rootFlags, opts *ingestOptions, stdout io.Writer) error {
	rt, err := loadRuntime(flags, false)
	if err != nil {
		return err
	}
	if opts.baseURL != "" {
		rt.cfg.Ingest.BaseURL = opts.baseURL
	}
	if opts.output != "" {
		rt.cfg.Ingest.Output = opts.output
	}
	if opts.interval > 0 {
		rt.cfg.Ingest.Interval = opts.interval
	}

	app, err := bootstrap.NewApp(rt.cfg)
	if err != nil {
		return err
	}
	cfg := app.Cfg.Ingest

	if err := rt.initMetrics(); err != nil {
		return err
	}
	client, err := ingest.NewClient(cfg.ClientConfig)
	if err != nil {
		return err
	}

	var (
		out  io.Writer = stdout
		file *os.File
	)
	if cfg.Output != "-" {
		file, err = createOutput(cfg.Output)
		if err != nil {
			return err
		}
		app.OnStop(func(context.Context) error { return closeOutput(file) })
		out = file
	}

	var store storage.Storage
	if cfg.Upload.Enabled() {
		store, err = storage.New(ctx, cfg.Upload, logger.Get("storage"))
		if err != nil {
			return err
		}
	}

	log := logger.Get("ingest")
	pipeline := ingest.NewPipeline(client, out,
		ingest.WithInterval(cfg.Interval),
		ingest.WithLogger(log),
		ingest.WithMetrics(rt.metrics),
	)

	app.Summary.Set("portal", cfg.BaseURL)
	app.Summary.Set("output", cfg.Output)

	return app.RunTask(ctx, func(ctx context.Context) error {
		stats, err := pipeline.Run(ctx)
		log.Info("Ingestion finished", logger.Fields(
			"listed", stats.Listed,
			"written", stats.Written,
			"failed", stats.Failed,
			"output", cfg.Output,
		))
		if err != nil || store == nil {
			return err
		}

		if err := closeOutput(file); err != nil {
			return err
		}
		key := cfg.Upload.Key(filepath.Base(cfg.Output))
		if err := ingest.Publish(ctx, store, key, cfg.Output); err != nil {
			return err
		}
		log.Info("Export published", logger.Fields("url", store.URL(key)))
		return nil
	})
}

// closeOutput tolerates a second close from the stop hook.
func closeOutput(f *os.File) error {
	if err := f.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		return fmt.Errorf("close output: %w", err)
	}
	return nil
}

func createOutput(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create output dir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create output: %w", err)
	}
	return f, nil
}
