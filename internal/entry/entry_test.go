package entry_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/christopherklint97/otlog/internal/duration"
	"github.com/christopherklint97/otlog/internal/entry"
	"github.com/christopherklint97/otlog/internal/report"
)

var now = time.Date(2025, 10, 17, 12, 0, 0, 0, time.UTC)

func TestNew(t *testing.T) {
	e, err := entry.New(entry.Form{
		Agent:  " Eliecid ",
		Date:   "2025-10-10",
		From:   "1400",
		To:     "16:30",
		Reason: "",
		Bonus:  true,
	}, now)
	require.NoError(t, err)

	_, err = uuid.Parse(e.ID)
	require.NoError(t, err)
	assert.Equal(t, "Eliecid", e.Agent)
	assert.Equal(t, "2025-10-10", e.Date)
	assert.Equal(t, "14:00", e.From)
	assert.Equal(t, "16:30", e.To)
	assert.Equal(t, entry.DefaultReason, e.Reason)
	assert.Equal(t, "Yes", e.Bonus)
	assert.Equal(t, "FALSE", e.Holiday)
	assert.Equal(t, "FALSE", e.Overnight)
	assert.Equal(t, "2 hr 30 min", e.TotalTime)
}

func TestNew_Overnight(t *testing.T) {
	e, err := entry.New(entry.Form{Agent: "David", From: "22:00", To: "0600", Overnight: true}, now)
	require.NoError(t, err)
	assert.Equal(t, "2025-10-17", e.Date)
	assert.True(t, e.IsOvernight())

	minutes, err := duration.ParseLabel(e.TotalTime)
	require.NoError(t, err)
	assert.Equal(t, 480, minutes)
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name    string
		form    entry.Form
		wantErr error
	}{
		{"missing agent", entry.Form{From: "0900", To: "1000"}, entry.ErrMissingFields},
		{"missing from", entry.Form{Agent: "Luis", To: "1000"}, entry.ErrMissingFields},
		{"half typed to", entry.Form{Agent: "Luis", From: "0900", To: "10"}, entry.ErrMissingFields},
		{"invalid from", entry.Form{Agent: "Luis", From: "2460", To: "1000"}, duration.ErrInvalidTime},
		{"invalid to", entry.Form{Agent: "Luis", From: "0900", To: "99:99"}, duration.ErrInvalidTime},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := entry.New(tt.form, now)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestParseDate(t *testing.T) {
	d, err := entry.ParseDate("2025-10-06", now)
	require.NoError(t, err)
	assert.Equal(t, "2025-10-06", d.Format("2006-01-02"))

	d, err = entry.ParseDate("yesterday", now)
	require.NoError(t, err)
	assert.Equal(t, "2025-10-16", d.Format("2006-01-02"))

	d, err = entry.ParseDate(" Today ", now)
	require.NoError(t, err)
	assert.Equal(t, "2025-10-17", d.Format("2006-01-02"))
}

func TestParseDate_Unrecognized(t *testing.T) {
	for _, input := range []string{"garbage", "tomorow"} {
		t.Run(input, func(t *testing.T) {
			_, err := entry.ParseDate(input, now)
			assert.Error(t, err)
		})
	}

	_, err := entry.New(entry.Form{Agent: "Luis", Date: "garbage", From: "0900", To: "1000"}, now)
	assert.ErrorIs(t, err, entry.ErrUnknownDate)
}

func TestRowRoundTrip(t *testing.T) {
	e, err := entry.New(entry.Form{Agent: "Julio", Date: "2025-11-04", From: "0700", To: "0815", Holiday: true}, now)
	require.NoError(t, err)

	row := e.Row()
	assert.Equal(t, "Julio", row[report.FieldAgent])
	assert.Equal(t, "1 hr 15 min", row[report.FieldTotal])
	assert.Len(t, row, len(entry.Headers))
	assert.Equal(t, e, entry.FromRow(row))
	assert.Len(t, e.Values(), len(entry.Headers))

	partial := entry.FromRow(report.Row{entry.ColAgent: "Julio"})
	assert.Equal(t, "Julio", partial.Agent)
	assert.Empty(t, partial.TotalTime)
}
