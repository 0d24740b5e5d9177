package pricehistory

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"pricemonitor/lib/snapshot"
	"pricemonitor/lib/timezone"

	"github.com/gocarina/gocsv"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// CorruptStateError means the persisted history exists but is not a
// readable array of snapshots.
type CorruptStateError struct {
	Path string
	// index of the offending record, -1 if the file as a whole is bad
	Index int
	Err   error
}

func (e *CorruptStateError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("corrupt history %s: record %d: %s", e.Path, e.Index, e.Err)
	}
	return fmt.Sprintf("corrupt history %s: %s", e.Path, e.Err)
}

func (e *CorruptStateError) Unwrap() error {
	return e.Err
}

// IOError wraps a failure to read or write one of the store's files.
type IOError struct {
	Path string
	Op   string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// writeFunc replaces the contents of path with whatever the callback
// writes. It is a field on Store so tests can make writes fail.
type writeFunc func(path string, write func(io.Writer) error) error

// Store persists the snapshot history as a JSON array (the source of
// truth) and a CSV projection of the same records.
type Store struct {
	JsonPath string
	CsvPath  string

	write writeFunc
}

func NewStore(jsonPath, csvPath string) Store {
	return Store{
		JsonPath: jsonPath,
		CsvPath:  csvPath,
		write:    writeAtomic,
	}
}

func (s Store) writer() writeFunc {
	if s.write == nil {
		return writeAtomic
	}
	return s.write
}

// Load returns the persisted history, or an empty slice when nothing
// has been persisted yet.
func (s Store) Load(ctx context.Context) ([]snapshot.ProductSnapshot, error) {
	_, span := tracer.Start(ctx, "store:Load")
	defer span.End()

	span.SetAttributes(attribute.String("path", s.JsonPath))

	contents, err := os.ReadFile(s.JsonPath)
	if errors.Is(err, os.ErrNotExist) {
		return []snapshot.ProductSnapshot{}, nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read history")
		return nil, &IOError{Path: s.JsonPath, Op: "read", Err: err}
	}

	snapshots, err := decodeHistory(s.JsonPath, contents)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "corrupt history")
		return nil, err
	}
	span.SetAttributes(attribute.Int("records", len(snapshots)))
	return snapshots, nil
}

func decodeHistory(path string, contents []byte) ([]snapshot.ProductSnapshot, error) {
	dec := json.NewDecoder(bytes.NewReader(contents))
	dec.UseNumber()

	var raw any
	err := dec.Decode(&raw)
	if err != nil {
		return nil, &CorruptStateError{Path: path, Index: -1, Err: err}
	}
	if dec.More() {
		return nil, &CorruptStateError{Path: path, Index: -1, Err: fmt.Errorf("trailing data after the history array")}
	}
	records, ok := raw.([]any)
	if !ok {
		return nil, &CorruptStateError{Path: path, Index: -1, Err: fmt.Errorf("expected a json array, got %T", raw)}
	}

	snapshots := make([]snapshot.ProductSnapshot, len(records))
	for i, record := range records {
		fields, ok := record.(map[string]any)
		if !ok {
			return nil, &CorruptStateError{Path: path, Index: i, Err: fmt.Errorf("expected a json object, got %T", record)}
		}
		snapshots[i], err = snapshot.FromMap(fields)
		if err != nil {
			return nil, &CorruptStateError{Path: path, Index: i, Err: err}
		}
	}
	return snapshots, nil
}

func (s Store) SaveJSON(ctx context.Context, snapshots []snapshot.ProductSnapshot) error {
	_, span := tracer.Start(ctx, "store:SaveJSON")
	defer span.End()

	span.SetAttributes(attribute.String("path", s.JsonPath), attribute.Int("records", len(snapshots)))

	if snapshots == nil {
		snapshots = []snapshot.ProductSnapshot{}
	}
	err := s.writer()(s.JsonPath, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(snapshots)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to write json")
		return err
	}
	return nil
}

// csvRow is the flat projection written to the csv file, the header
// names match the json keys.
type csvRow struct {
	ProductKey   string `csv:"product_key"`
	Title        string `csv:"title"`
	Price        string `csv:"price"`
	Currency     string `csv:"currency"`
	Url          string `csv:"url"`
	ScrapedAt    string `csv:"scraped_at"`
	Availability string `csv:"availability"`
	Condition    string `csv:"condition"`
}

func toCsvRow(s snapshot.ProductSnapshot) csvRow {
	return csvRow{
		ProductKey:   s.ProductKey,
		Title:        s.Title,
		Price:        s.PriceText(),
		Currency:     s.Currency,
		Url:          s.Url,
		ScrapedAt:    timezone.Format(s.ScrapedAt),
		Availability: s.Availability,
		Condition:    s.Condition,
	}
}

func (r csvRow) toMap() map[string]any {
	return map[string]any{
		snapshot.FieldProductKey:   r.ProductKey,
		snapshot.FieldTitle:        r.Title,
		snapshot.FieldPrice:        r.Price,
		snapshot.FieldCurrency:     r.Currency,
		snapshot.FieldUrl:          r.Url,
		snapshot.FieldScrapedAt:    r.ScrapedAt,
		snapshot.FieldAvailability: r.Availability,
		snapshot.FieldCondition:    r.Condition,
	}
}

func (s Store) SaveCSV(ctx context.Context, snapshots []snapshot.ProductSnapshot) error {
	_, span := tracer.Start(ctx, "store:SaveCSV")
	defer span.End()

	span.SetAttributes(attribute.String("path", s.CsvPath), attribute.Int("records", len(snapshots)))

	rows := make([]csvRow, len(snapshots))
	for i, snap := range snapshots {
		rows[i] = toCsvRow(snap)
	}
	err := s.writer()(s.CsvPath, func(w io.Writer) error {
		return gocsv.Marshal(rows, w)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to write csv")
		return err
	}
	return nil
}

// LoadCSV reads the csv projection back into snapshots.
func (s Store) LoadCSV(ctx context.Context) ([]snapshot.ProductSnapshot, error) {
	_, span := tracer.Start(ctx, "store:LoadCSV")
	defer span.End()

	contents, err := os.ReadFile(s.CsvPath)
	if errors.Is(err, os.ErrNotExist) {
		return []snapshot.ProductSnapshot{}, nil
	}
	if err != nil {
		return nil, &IOError{Path: s.CsvPath, Op: "read", Err: err}
	}

	var rows []csvRow
	err = gocsv.UnmarshalBytes(contents, &rows)
	if err != nil {
		return nil, &CorruptStateError{Path: s.CsvPath, Index: -1, Err: err}
	}
	snapshots := make([]snapshot.ProductSnapshot, len(rows))
	for i, row := range rows {
		snapshots[i], err = snapshot.FromMap(row.toMap())
		if err != nil {
			return nil, &CorruptStateError{Path: s.CsvPath, Index: i, Err: err}
		}
	}
	return snapshots, nil
}

// Persist writes the json and then the csv file as one unit. If the csv
// write fails the json file is put back to the bytes it held before, or
// removed if it did not exist, so neither format moves ahead alone.
func (s Store) Persist(ctx context.Context, snapshots []snapshot.ProductSnapshot) error {
	ctx, span := tracer.Start(ctx, "store:Persist")
	defer span.End()

	prior, err := os.ReadFile(s.JsonPath)
	existed := err == nil
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to snapshot prior json")
		return &IOError{Path: s.JsonPath, Op: "read", Err: err}
	}

	err = s.SaveJSON(ctx, snapshots)
	if err != nil {
		return err
	}

	err = s.SaveCSV(ctx, snapshots)
	if err == nil {
		return nil
	}

	var rollbackErr error
	if existed {
		rollbackErr = writeAtomic(s.JsonPath, func(w io.Writer) error {
			_, err := w.Write(prior)
			return err
		})
	} else {
		rollbackErr = os.Remove(s.JsonPath)
		if rollbackErr != nil {
			rollbackErr = &IOError{Path: s.JsonPath, Op: "remove", Err: rollbackErr}
		}
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, "csv write failed, json rolled back")
	if rollbackErr != nil {
		return errors.Join(err, fmt.Errorf("rollback json: %w", rollbackErr))
	}
	return err
}

// Verify reports an error when the csv projection does not describe
// exactly the records held by the json file.
func (s Store) Verify(ctx context.Context) error {
	fromJson, err := s.Load(ctx)
	if err != nil {
		return err
	}
	fromCsv, err := s.LoadCSV(ctx)
	if err != nil {
		return err
	}
	if len(fromJson) != len(fromCsv) {
		return fmt.Errorf("csv has %d records, json has %d", len(fromCsv), len(fromJson))
	}
	for i := range fromJson {
		if !fromJson[i].Equal(fromCsv[i]) {
			return fmt.Errorf("record %d differs between json and csv (product_key %q)", i, fromJson[i].ProductKey)
		}
	}
	return nil
}

// writeAtomic writes into a temporary file next to path and renames it
// over path once everything is flushed to disk. Readers see either the
// old file or the new one, never a partial write.
func writeAtomic(path string, write func(io.Writer) error) (err error) {
	dir := filepath.Dir(path)
	err = os.MkdirAll(dir, 0777)
	if err != nil {
		return &IOError{Path: dir, Op: "mkdir", Err: err}
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return &IOError{Path: path, Op: "create", Err: err}
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	buffered := bufio.NewWriter(tmp)
	err = write(buffered)
	if err != nil {
		return &IOError{Path: path, Op: "encode", Err: err}
	}
	err = buffered.Flush()
	if err != nil {
		return &IOError{Path: path, Op: "write", Err: err}
	}
	err = tmp.Sync()
	if err != nil {
		return &IOError{Path: path, Op: "sync", Err: err}
	}
	err = tmp.Chmod(0644)
	if err != nil {
		return &IOError{Path: path, Op: "chmod", Err: err}
	}
	err = tmp.Close()
	if err != nil {
		return &IOError{Path: path, Op: "close", Err: err}
	}
	err = os.Rename(tmpName, path)
	if err != nil {
		return &IOError{Path: path, Op: "rename", Err: err}
	}
	return nil
}
