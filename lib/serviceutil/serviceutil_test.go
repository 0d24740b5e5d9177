package serviceutil

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFatal(t *testing.T) {
	var logs bytes.Buffer
	previous := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&logs, nil)))
	defer slog.SetDefault(previous)

	code := -1
	exit = func(c int) { code = c }
	defer func() { exit = os.Exit }()

	Fatal("failed to fetch catalog", errors.New("http 503"))
	require.Equal(t, 1, code)
	require.Contains(t, logs.String(), "failed to fetch catalog")
	require.Contains(t, logs.String(), "http 503")
}
