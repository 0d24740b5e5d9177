package testutil

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	configlibsql "pricemonitor/lib/configutil/libsql"
	"pricemonitor/lib/telemetry"
	"testing"
)

type ServiceParams struct {
	Name string
	// if unspecified, it will skip setting up a db
	DbSchema string
	// if unspecified, it will use `:memory:`
	DbPath string
}

type ServiceResult struct {
	DB *sql.DB
	// scratch directory removed when the test ends
	Dir string
}

func SetupService(t testing.TB, params ServiceParams) (ServiceResult, func()) {
	cleanup := telemetry.SetupForTesting(t, fmt.Sprintf("test:%s", params.Name))

	result := ServiceResult{Dir: t.TempDir()}
	if params.DbSchema == "" {
		return result, cleanup
	}

	dbpath := ":memory:"
	if params.DbPath != "" && params.DbPath != ":memory:" {
		dbpath = filepath.Join(result.Dir, params.DbPath)
	}
	db, err := configlibsql.Struct{File: dbpath}.OpenDB(params.DbSchema)
	if err != nil {
		t.Fatal(err)
	}
	result.DB = db

	return result, func() {
		db.Close()
		cleanup()
	}
}

// WriteFile creates `name` under `dir` with `contents` and returns its
// path.
func WriteFile(t testing.TB, dir, name, contents string) string {
	path := filepath.Join(dir, name)
	err := os.MkdirAll(filepath.Dir(path), 0777)
	if err != nil {
		t.Fatal(err)
	}
	err = os.WriteFile(path, []byte(contents), 0644)
	if err != nil {
		t.Fatal(err)
	}
	return path
}
