package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/kbukum/portalgpt/logger"
	"github.com/kbukum/portalgpt/observability"
	"github.com/kbukum/portalgpt/resilience"
)

// ErrNoDatasets is returned when the portal lists no datasets.
var ErrNoDatasets = errors.New("ingest: no datasets found")

// DefaultInterval spaces metadata requests to stay under portal rate limits.
const DefaultInterval = 100 * time.Millisecond

// Stats summarizes a run.
type Stats struct {
	Listed  int
	Written int
	Failed  int
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithInterval sets the minimum spacing between metadata requests.
func WithInterval(d time.Duration) Option {
	return func(p *Pipeline) { p.interval = d }
}

func WithLogger(l *logger.Logger) Option {
	return func(p *Pipeline) { p.log = l }
}

func WithMetrics(m *observability.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// Pipeline fetches every listed dataset, preprocesses it, and writes it out.
type Pipeline struct {
	source   Source
	out      *Writer
	interval time.Duration
	log      *logger.Logger
	metrics  *observability.Metrics
}

func NewPipeline(source Source, w io.Writer, opts ...Option) *Pipeline {
	p := &Pipeline{
		source:   source,
		out:      NewWriter(w),
		interval: DefaultInterval,
		log:      logger.Get("ingest"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run processes datasets sequentially. Fetch failures and empty metadata
// are logged and counted, not returned; write failures and cancellation
// stop the run.
func (p *Pipeline) Run(ctx context.Context) (Stats, error) {
	var stats Stats

	ids, err := p.source.ListDatasets(ctx)
	if err != nil {
		return stats, err
	}
	if len(ids) == 0 {
		return stats, ErrNoDatasets
	}
	stats.Listed = len(ids)

	var limiter *resilience.RateLimiter
	if p.interval > 0 {
		limiter = resilience.NewRateLimiter(resilience.RateLimiterForInterval("ingest", p.interval))
	}

	for i, id := range ids {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return stats, err
			}
		}
		p.log.Info(fmt.Sprintf("[%d/%d] Fetching: %s", i+1, len(ids), id), logger.Fields(logger.FieldDataset, id))

		raw, err := p.source.FetchMetadata(ctx, id)
		if err != nil {
			if ctx.Err() != nil {
				return stats, ctx.Err()
			}
			p.log.Error("error fetching metadata", logger.Fields(logger.FieldDataset, id, logger.FieldError, err.Error()))
			p.record(ctx, &stats, "failed")
			continue
		}

		d := Preprocess(raw)
		if d.IsZero() {
			p.log.Warn("empty metadata, skipping", logger.Fields(logger.FieldDataset, id))
			p.record(ctx, &stats, "failed")
			continue
		}
		if err := p.out.Write(d); err != nil {
			return stats, err
		}
		p.record(ctx, &stats, "written")
	}
	return stats, nil
}

func (p *Pipeline) record(ctx context.Context, stats *Stats, outcome string) {
	if outcome == "written" {
		stats.Written++
	} else {
		stats.Failed++
	}
	if p.metrics != nil {
		p.metrics.RecordDataset(ctx, outcome)
	}
}
