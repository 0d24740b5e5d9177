package pricehistory

import (
	"context"
	"log/slog"
	"pricemonitor/lib/snapshot"
	"pricemonitor/lib/timezone"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Source produces the snapshots of one catalog fetch.
type Source interface {
	Fetch(ctx context.Context) ([]snapshot.ProductSnapshot, error)
}

type Options struct {
	// when nil no run ledger is written
	Ledger *Ledger
	// recorded in the ledger next to each run
	BaseUrl string
	// defaults to timezone.Now
	Now func() time.Time
	// defaults to uuid.NewString
	NewRunID func() string
}

// Result describes a completed run. Merged is the full history that
// was persisted.
type Result struct {
	RunID      string
	Fetched    []snapshot.ProductSnapshot
	Existing   []snapshot.ProductSnapshot
	Merged     []snapshot.ProductSnapshot
	StartedAt  time.Time
	FinishedAt time.Time
}

// Added is the number of records the run appended to the history.
func (r Result) Added() int {
	return len(r.Merged) - len(r.Existing)
}

type Pipeline struct {
	source Source
	store  Store
	opts   Options
}

func NewPipeline(source Source, store Store, opts Options) Pipeline {
	if opts.Now == nil {
		opts.Now = timezone.Now
	}
	if opts.NewRunID == nil {
		opts.NewRunID = uuid.NewString
	}
	return Pipeline{
		source: source,
		store:  store,
		opts:   opts,
	}
}

// Run fetches the catalog, merges it into the persisted history and
// writes the result back. Nothing is written when fetching or loading
// fails.
func (p Pipeline) Run(ctx context.Context) (Result, error) {
	ctx, span := tracer.Start(ctx, "pipeline:Run")
	defer span.End()

	res := Result{
		RunID:     p.opts.NewRunID(),
		StartedAt: p.opts.Now(),
	}
	span.SetAttributes(attribute.String("run_id", res.RunID))

	if p.opts.Ledger != nil {
		err := p.opts.Ledger.Start(ctx, res.RunID, p.opts.BaseUrl, res.StartedAt)
		if err != nil {
			slog.WarnContext(ctx, "failed to record run start", "run_id", res.RunID, "err", err)
		}
	}

	err := p.run(ctx, &res)
	res.FinishedAt = p.opts.Now()

	if p.opts.Ledger != nil {
		ledgerErr := p.opts.Ledger.Finish(ctx, res, err)
		if ledgerErr != nil {
			slog.WarnContext(ctx, "failed to record run outcome", "run_id", res.RunID, "err", ledgerErr)
		}
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		slog.ErrorContext(ctx, "pipeline run failed", "run_id", res.RunID, "err", err)
		return res, err
	}

	span.SetAttributes(
		attribute.Int("fetched", len(res.Fetched)),
		attribute.Int("existing", len(res.Existing)),
		attribute.Int("merged", len(res.Merged)),
	)
	slog.InfoContext(
		ctx, "pipeline run finished",
		"run_id", res.RunID,
		"fetched", len(res.Fetched),
		"existing", len(res.Existing),
		"merged", len(res.Merged),
		"added", res.Added(),
		"duration", res.FinishedAt.Sub(res.StartedAt),
	)
	return res, nil
}

func (p Pipeline) run(ctx context.Context, res *Result) error {
	fetched, err := p.source.Fetch(ctx)
	if err != nil {
		return err
	}
	res.Fetched = fetched

	existing, err := p.store.Load(ctx)
	if err != nil {
		return err
	}
	res.Existing = existing

	combined := make([]snapshot.ProductSnapshot, 0, len(existing)+len(fetched))
	combined = append(combined, existing...)
	combined = append(combined, fetched...)
	merged := Dedupe(combined)

	slog.DebugContext(
		ctx, "merged history",
		"combined", len(combined),
		"dropped", len(combined)-len(merged),
	)

	err = p.store.Persist(ctx, merged)
	if err != nil {
		return err
	}
	res.Merged = merged
	return nil
}
