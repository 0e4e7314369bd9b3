package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/christopherklint97/otlog/internal/entry"
	"github.com/christopherklint97/otlog/internal/report"
)

type memStore struct {
	mu   sync.Mutex
	rows []report.Row
	err  error
}

func (s *memStore) Append(_ context.Context, e entry.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.rows = append(s.rows, e.Row())
	return nil
}

func (s *memStore) Rows(context.Context) ([]report.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows, s.err
}

func (s *memStore) Close() error { return nil }

func newTestServer(t *testing.T, store *memStore) *Server {
	t.Helper()
	period, err := report.ParsePeriod("Oct 06 - Nov 02", "2025-10-06", "2025-11-02")
	require.NoError(t, err)

	s := New(store, []string{"Eliecid", "David"}, []report.Period{period}, nil)
	s.now = func() time.Time { return time.Date(2025, 10, 17, 12, 0, 0, 0, time.UTC) }
	return s
}

func do(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func TestPreview(t *testing.T) {
	s := newTestServer(t, &memStore{})

	tests := []struct {
		name       string
		query      string
		wantStatus int
		want       previewResponse
	}{
		{"same day", "from=1400&to=16:30", http.StatusOK, previewResponse{Complete: true, From: "14:00", To: "16:30", Minutes: 150, Label: "2h 30m"}},
		{"wraps", "from=22:00&to=06:00", http.StatusOK, previewResponse{Complete: true, From: "22:00", To: "06:00", Minutes: 480, Label: "8h 0m"}},
		{"overnight", "from=22:00&to=06:00&overnight=true", http.StatusOK, previewResponse{Complete: true, From: "22:00", To: "06:00", Minutes: 480, Label: "8h 0m"}},
		{"incomplete", "from=14&to=", http.StatusOK, previewResponse{}},
		{"out of range", "from=2460&to=1000", http.StatusBadRequest, previewResponse{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodGet, "/api/preview?"+tt.query, "")
			require.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus != http.StatusOK {
				return
			}
			var got previewResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCreateEntryAndReport(t *testing.T) {
	store := &memStore{}
	s := newTestServer(t, store)

	var stored []entry.Entry
	s.OnEntry = func(e entry.Entry) { stored = append(stored, e) }

	rec := do(t, s, http.MethodPost, "/api/entries",
		`{"agent":"Eliecid","date":"2025-10-10","from":"1400","to":"1530","bonus":true}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var e entry.Entry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
	assert.Equal(t, "1 hr 30 min", e.TotalTime)
	assert.Equal(t, "Yes", e.Bonus)
	require.Len(t, stored, 1)

	rec = do(t, s, http.MethodPost, "/api/entries",
		`{"agent":"Eliecid","date":"2025-11-10","from":"0900","to":"1100"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/report?agent=eliecid&period=oct%2006%20-%20nov%2002", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var summary report.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, 90, summary.TotalMinutes)
	assert.Equal(t, "1h 30m", summary.Total)
	assert.Equal(t, "Oct 06 - Nov 02", summary.Period)
	assert.Len(t, summary.Entries, 1)

	rec = do(t, s, http.MethodGet, "/api/report?agent=Eliecid&start=2025-10-01&end=2025-12-31", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, 210, summary.TotalMinutes)
}

func TestCreateEntry_Invalid(t *testing.T) {
	s := newTestServer(t, &memStore{})

	for _, body := range []string{
		`{"from":"0900","to":"1000"}`,
		`{"agent":"David","from":"2500","to":"1000"}`,
		`not json`,
	} {
		rec := do(t, s, http.MethodPost, "/api/entries", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestCreateEntry_StoreFailure(t *testing.T) {
	s := newTestServer(t, &memStore{err: errors.New("quota exceeded")})
	rec := do(t, s, http.MethodPost, "/api/entries", `{"agent":"David","from":"0900","to":"1000"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestReport_BadQueries(t *testing.T) {
	s := newTestServer(t, &memStore{})

	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodGet, "/api/report?start=2025-10-01&end=2025-10-02", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodGet, "/api/report?agent=David&start=2025-12-01&end=2025-10-01", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodGet, "/api/report?agent=David&start=10/01/2025&end=2025-10-02", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, "/api/report?agent=David&period=Q9", "").Code)
}

func TestAgentsAndPeriods(t *testing.T) {
	store := &memStore{rows: []report.Row{
		{report.FieldAgent: "Luis", report.FieldDate: "2025-10-10"},
	}}
	s := newTestServer(t, store)

	rec := do(t, s, http.MethodGet, "/api/agents", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var agents agentsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &agents))
	assert.Equal(t, []string{"Eliecid", "David"}, agents.Agents)
	assert.Equal(t, []string{"Luis"}, agents.Recorded)

	rec = do(t, s, http.MethodGet, "/api/periods", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var periods []periodResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &periods))
	require.Len(t, periods, 1)
	assert.Equal(t, periodResponse{Name: "Oct 06 - Nov 02", Start: "2025-10-06", End: "2025-11-02"}, periods[0])
}
