package pricehistory

import (
	"context"
	"database/sql"
	"pricemonitor/services/pricehistory/db"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Ledger records the outcome of every pipeline run in a sqlite or
// libsql database.
type Ledger struct {
	db  *sql.DB
	qry *db.Queries
}

func NewLedger(database *sql.DB) *Ledger {
	return &Ledger{
		db:  database,
		qry: db.New(database),
	}
}

// Run is a row of the ledger.
type Run struct {
	ID         string
	BaseUrl    string
	StartedAt  time.Time
	FinishedAt time.Time
	Fetched    int
	Existing   int
	Merged     int
	Status     string
	Error      string
}

func (l *Ledger) Start(ctx context.Context, id, baseUrl string, startedAt time.Time) error {
	ctx, span := tracer.Start(ctx, "ledger:Start")
	defer span.End()

	span.SetAttributes(attribute.String("run_id", id))

	err := l.qry.CreateRun(ctx, db.CreateRunParams{
		ID:        id,
		BaseUrl:   baseUrl,
		StartedAt: startedAt.UnixMilli(),
		Status:    db.StatusRunning,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// Finish closes a run started with Start, `runErr` decides the status.
func (l *Ledger) Finish(ctx context.Context, res Result, runErr error) error {
	ctx, span := tracer.Start(ctx, "ledger:Finish")
	defer span.End()

	span.SetAttributes(attribute.String("run_id", res.RunID))

	status := db.StatusSucceeded
	message := ""
	if runErr != nil {
		status = db.StatusFailed
		message = runErr.Error()
	}

	err := l.qry.FinishRun(ctx, db.FinishRunParams{
		ID:         res.RunID,
		FinishedAt: res.FinishedAt.UnixMilli(),
		Fetched:    int64(len(res.Fetched)),
		Existing:   int64(len(res.Existing)),
		Merged:     int64(len(res.Merged)),
		Status:     status,
		Error:      message,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// Recent returns up to `limit` runs, most recent first.
func (l *Ledger) Recent(ctx context.Context, limit int) ([]Run, error) {
	ctx, span := tracer.Start(ctx, "ledger:Recent")
	defer span.End()

	rows, err := l.qry.ListRecentRuns(ctx, int64(limit))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	runs := make([]Run, len(rows))
	for i, r := range rows {
		runs[i] = toRun(r)
	}
	return runs, nil
}

func (l *Ledger) Get(ctx context.Context, id string) (Run, error) {
	ctx, span := tracer.Start(ctx, "ledger:Get")
	defer span.End()

	row, err := l.qry.GetRun(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Run{}, err
	}
	return toRun(row), nil
}

func toRun(r db.PipelineRun) Run {
	run := Run{
		ID:        r.ID,
		BaseUrl:   r.BaseUrl,
		StartedAt: time.UnixMilli(r.StartedAt).UTC(),
		Fetched:   int(r.Fetched),
		Existing:  int(r.Existing),
		Merged:    int(r.Merged),
		Status:    r.Status,
		Error:     r.Error,
	}
	if r.FinishedAt.Valid {
		run.FinishedAt = time.UnixMilli(r.FinishedAt.Int64).UTC()
	}
	return run
}

func (l *Ledger) Close() error {
	return l.db.Close()
}
