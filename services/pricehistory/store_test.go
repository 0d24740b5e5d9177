package pricehistory

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"pricemonitor/lib/snapshot"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

var errInjected = errors.New("injected failure")

func tempStore(t *testing.T) Store {
	dir := t.TempDir()
	return NewStore(filepath.Join(dir, "data", "snapshots.json"), filepath.Join(dir, "data", "snapshots.csv"))
}

// failWritesTo makes every write to `target` fail while other paths are
// written normally.
func failWritesTo(target string) writeFunc {
	return func(path string, write func(io.Writer) error) error {
		if path == target {
			return &IOError{Path: path, Op: "write", Err: errInjected}
		}
		return writeAtomic(path, write)
	}
}

func readFile(t *testing.T, path string) string {
	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(contents)
}

func TestLoadMissing(t *testing.T) {
	store := tempStore(t)
	history, err := store.Load(context.Background())
	require.NoError(t, err)
	require.NotNil(t, history)
	require.Empty(t, history)

	fromCsv, err := store.LoadCSV(context.Background())
	require.NoError(t, err)
	require.Empty(t, fromCsv)
}

func TestPersistRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := tempStore(t)

	history := []snapshot.ProductSnapshot{
		snap("iphone-15-128", "799", t1),
		withTitle(snap("iphone-15-pro-256", "1099.5", t1), `iPhone 15 Pro, 256 "GB"`),
		snap("iphone-15-128", "749.00", t2),
	}
	history[1].Url = "https://example.com/catalog/pro?ref=a&b=c"
	history[1].Availability = "Only 2 left"
	history[1].Condition = "Refurbished"

	err := store.Persist(ctx, history)
	require.NoError(t, err)

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	require.Empty(t, cmp.Diff(history, loaded))

	fromCsv, err := store.LoadCSV(ctx)
	require.NoError(t, err)
	require.Empty(t, cmp.Diff(history, fromCsv))

	require.NoError(t, store.Verify(ctx))
}

func TestSaveJSONFormat(t *testing.T) {
	ctx := context.Background()
	store := tempStore(t)

	err := store.SaveJSON(ctx, []snapshot.ProductSnapshot{snap("a", "799", t1)})
	require.NoError(t, err)

	expect := `[
  {
    "product_key": "a",
    "title": "a",
    "price": 799.00,
    "currency": "USD",
    "url": "",
    "scraped_at": "2024-01-01T00:00:00Z",
    "availability": "",
    "condition": ""
  }
]
`
	require.Equal(t, expect, readFile(t, store.JsonPath))

	err = store.SaveJSON(ctx, nil)
	require.NoError(t, err)
	require.Equal(t, "[]\n", readFile(t, store.JsonPath))
}

func TestSaveCSVFormat(t *testing.T) {
	ctx := context.Background()
	store := tempStore(t)

	err := store.SaveCSV(ctx, []snapshot.ProductSnapshot{
		snap("a", "799", t1),
		withTitle(snap("b", "5.5", t2), "Case, clear"),
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(readFile(t, store.CsvPath)), "\n")
	require.Equal(t, []string{
		"product_key,title,price,currency,url,scraped_at,availability,condition",
		"a,a,799.00,USD,,2024-01-01T00:00:00Z,,",
		`b,"Case, clear",5.50,USD,,2024-01-02T00:00:00Z,,`,
	}, lines)
}

func TestLoadCorrupt(t *testing.T) {
	testCases := []struct {
		name     string
		contents string
		index    int
	}{
		{name: "empty file", contents: "", index: -1},
		{name: "null", contents: "null", index: -1},
		{name: "object", contents: `{"product_key": "a"}`, index: -1},
		{name: "truncated", contents: `[{"product_key": "a"`, index: -1},
		{name: "trailing data", contents: `[] []`, index: -1},
		{name: "not an object", contents: `[1]`, index: 0},
		{
			name:     "missing key",
			contents: `[{"product_key": "a", "price": 1, "scraped_at": "2024-01-01T00:00:00Z"}, {"price": 1, "scraped_at": "2024-01-01T00:00:00Z"}]`,
			index:    1,
		},
		{
			name:     "bad timestamp",
			contents: `[{"product_key": "a", "price": 1, "scraped_at": "yesterday"}]`,
			index:    0,
		},
		{
			name:     "negative price",
			contents: `[{"product_key": "a", "price": -1, "scraped_at": "2024-01-01T00:00:00Z"}]`,
			index:    0,
		},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			store := tempStore(t)
			require.NoError(t, os.MkdirAll(filepath.Dir(store.JsonPath), 0777))
			require.NoError(t, os.WriteFile(store.JsonPath, []byte(test.contents), 0644))

			_, err := store.Load(context.Background())
			var corrupt *CorruptStateError
			require.ErrorAs(t, err, &corrupt)
			require.Equal(t, store.JsonPath, corrupt.Path)
			require.Equal(t, test.index, corrupt.Index)
		})
	}
}

func TestLoadValidationErrorIsReachable(t *testing.T) {
	store := tempStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(store.JsonPath), 0777))
	require.NoError(t, os.WriteFile(store.JsonPath, []byte(`[{"product_key": "a", "price": 1}]`), 0644))

	_, err := store.Load(context.Background())
	var validation *snapshot.ValidationError
	require.ErrorAs(t, err, &validation)
	require.Equal(t, snapshot.FieldScrapedAt, validation.Field)
}

func TestWriteAtomicFailureLeavesTarget(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "snapshots.json")
	require.NoError(t, os.WriteFile(path, []byte("previous"), 0644))

	err := writeAtomic(path, func(w io.Writer) error {
		_, err := w.Write([]byte("partial"))
		if err != nil {
			return err
		}
		return errInjected
	})
	var ioErr *IOError
	require.ErrorAs(t, err, &ioErr)
	require.ErrorIs(t, err, errInjected)
	require.Equal(t, "previous", readFile(t, path))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temporary file should have been removed")
}

func TestSavePermissionDenied(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("file permissions are not enforced for root")
	}

	dir := t.TempDir()
	require.NoError(t, os.Chmod(dir, 0555))
	t.Cleanup(func() { os.Chmod(dir, 0777) })

	store := NewStore(filepath.Join(dir, "snapshots.json"), filepath.Join(dir, "snapshots.csv"))
	err := store.SaveJSON(context.Background(), []snapshot.ProductSnapshot{snap("a", "1", t1)})

	var ioErr *IOError
	require.ErrorAs(t, err, &ioErr)
	require.ErrorIs(t, err, fs.ErrPermission)
}

func TestPersistRollsBackJsonOnCsvFailure(t *testing.T) {
	ctx := context.Background()
	store := tempStore(t)

	err := store.Persist(ctx, []snapshot.ProductSnapshot{snap("a", "799", t1)})
	require.NoError(t, err)
	priorJson := readFile(t, store.JsonPath)
	priorCsv := readFile(t, store.CsvPath)

	store.write = failWritesTo(store.CsvPath)
	err = store.Persist(ctx, []snapshot.ProductSnapshot{
		snap("a", "799", t1),
		snap("a", "749", t2),
	})
	require.ErrorIs(t, err, errInjected)

	require.Equal(t, priorJson, readFile(t, store.JsonPath))
	require.Equal(t, priorCsv, readFile(t, store.CsvPath))
}

func TestPersistRemovesNewJsonOnCsvFailure(t *testing.T) {
	store := tempStore(t)
	store.write = failWritesTo(store.CsvPath)

	err := store.Persist(context.Background(), []snapshot.ProductSnapshot{snap("a", "799", t1)})
	require.ErrorIs(t, err, errInjected)

	_, err = os.Stat(store.JsonPath)
	require.ErrorIs(t, err, os.ErrNotExist)
	_, err = os.Stat(store.CsvPath)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestPersistJsonFailureWritesNothing(t *testing.T) {
	store := tempStore(t)
	store.write = failWritesTo(store.JsonPath)

	err := store.Persist(context.Background(), []snapshot.ProductSnapshot{snap("a", "799", t1)})
	require.ErrorIs(t, err, errInjected)

	_, err = os.Stat(store.CsvPath)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestVerifyMismatch(t *testing.T) {
	ctx := context.Background()
	store := tempStore(t)

	err := store.Persist(ctx, []snapshot.ProductSnapshot{snap("a", "799", t1)})
	require.NoError(t, err)
	require.NoError(t, store.Verify(ctx))

	err = store.SaveCSV(ctx, []snapshot.ProductSnapshot{snap("a", "749", t1)})
	require.NoError(t, err)
	require.Error(t, store.Verify(ctx))

	err = store.SaveCSV(ctx, nil)
	require.NoError(t, err)
	require.Error(t, store.Verify(ctx))
}
