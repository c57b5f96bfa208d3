package services

import (
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"moviesync/internal/engine"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

type fakeSave struct {
	table string
	rows  []map[string]any
}

// fakeEngine records saves and views and answers queries from a canned map.
type fakeEngine struct {
	saves   []fakeSave
	views   map[string]string
	queries map[string]engine.QueryResult
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		views:   make(map[string]string),
		queries: make(map[string]engine.QueryResult),
	}
}

func (f *fakeEngine) Save(_ context.Context, schema engine.Schema, rows []map[string]any) (engine.SaveResult, error) {
	f.saves = append(f.saves, fakeSave{table: schema.Table, rows: rows})
	return engine.SaveResult{Rows: len(rows)}, nil
}

func (f *fakeEngine) CreateView(_ context.Context, name string, src engine.Source) error {
	f.views[name] = src.Table
	return nil
}

func (f *fakeEngine) Query(_ context.Context, query string) (engine.QueryResult, error) {
	return f.queries[query], nil
}

func (f *fakeEngine) savedRows(table string) []map[string]any {
	var rows []map[string]any
	for _, save := range f.saves {
		if save.table == table {
			rows = append(rows, save.rows...)
		}
	}
	return rows
}

func gzipLines(t *testing.T, lines ...string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	for _, line := range lines {
		_, err := gz.Write([]byte(line + "\n"))
		require.NoError(t, err)
	}
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

// brokenServer accepts connections and drops them mid-request, producing
// transport errors rather than HTTP status errors.
func brokenServer(t *testing.T, attempts *atomic.Int32) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		hj, ok := w.(http.Hijacker)
		require.True(t, ok)
		conn, _, err := hj.Hijack()
		require.NoError(t, err)
		conn.Close()
	}))
	t.Cleanup(ts.Close)
	return ts
}

func countingStatusServer(t *testing.T, status int, attempts *atomic.Int32) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(status)
	}))
	t.Cleanup(ts.Close)
	return ts
}
