// Package report filters stored overtime rows by agent and date range and
// sums their durations.
package report

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/christopherklint97/otlog/internal/duration"
)

// Header names shared by every store.
const (
	FieldAgent      = "Agent Name"
	FieldAgentShort = "Agent"
	FieldDate       = "Date"
	FieldTotal      = "Total Time"
	FieldTotalShort = "Total"
)

const dateLayout = "2006-01-02"

var (
	ErrInvalidQuery = errors.New("invalid report query")
	ErrMalformedRow = errors.New("malformed row")
)

// Row is one stored row keyed by column header. Values are strings, except
// that a date may already be a time.Time.
type Row map[string]any

// Query selects the rows of one agent within an inclusive date range.
type Query struct {
	Agent string
	Start time.Time
	End   time.Time
}

func (q Query) Validate() error {
	if civil(q.Start).After(civil(q.End)) {
		return fmt.Errorf("%w: start %s is after end %s", ErrInvalidQuery,
			q.Start.Format(dateLayout), q.End.Format(dateLayout))
	}
	return nil
}

// Record is a row that matched a query.
type Record struct {
	Agent       string    `json:"agent"`
	Date        time.Time `json:"date"`
	Minutes     int       `json:"minutes"`
	HasDuration bool      `json:"has_duration"`
	Raw         Row       `json:"raw"`
}

// Result holds the matched records in input order and their summed
// duration. Skipped counts rows of the selected agent that were dropped
// because their date could not be read.
type Result struct {
	TotalMinutes int      `json:"total_minutes"`
	Records      []Record `json:"records"`
	Skipped      int      `json:"skipped"`
}

// Label renders the total as "3h 20m".
func (r Result) Label() string {
	return duration.FormatLabel(r.TotalMinutes)
}

type Aggregator struct {
	logger *slog.Logger
}

func NewAggregator(logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Aggregator{logger: logger}
}

// Aggregate returns an error only for an invalid query. Rows with bad or
// missing data are skipped or counted as zero minutes.
func Aggregate(rows []Row, q Query) (Result, error) {
	return NewAggregator(nil).Aggregate(rows, q)
}

func (a *Aggregator) Aggregate(rows []Row, q Query) (Result, error) {
	if err := q.Validate(); err != nil {
		return Result{}, err
	}

	agent := strings.ToLower(strings.TrimSpace(q.Agent))
	start, end := civil(q.Start), civil(q.End)
	result := Result{Records: []Record{}}

	for i, row := range rows {
		name := stringField(row, FieldAgent, FieldAgentShort)
		if name == "" || strings.ToLower(name) != agent {
			continue
		}

		date, err := rowDate(row)
		if err != nil {
			result.Skipped++
			a.logger.Debug("skipping row", "index", i, "agent", name, "error", err)
			continue
		}
		if date.Before(start) || date.After(end) {
			continue
		}

		rec := Record{Agent: name, Date: date, Raw: row}
		label := stringField(row, FieldTotal, FieldTotalShort)
		if label != "" {
			if minutes, err := duration.ParseLabel(label); err == nil {
				rec.Minutes = minutes
				rec.HasDuration = true
			} else {
				a.logger.Debug("row has no usable duration", "index", i, "label", label, "error", err)
			}
		}

		result.TotalMinutes += rec.Minutes
		result.Records = append(result.Records, rec)
	}

	a.logger.Debug("aggregated rows",
		"agent", q.Agent,
		"start", start.Format(dateLayout),
		"end", end.Format(dateLayout),
		"rows", len(rows),
		"matched", len(result.Records),
		"skipped", result.Skipped,
		"total_minutes", result.TotalMinutes,
	)

	return result, nil
}

// Agents lists the distinct agent names present in rows, sorted.
func Agents(rows []Row) []string {
	seen := make(map[string]bool)
	var agents []string
	for _, row := range rows {
		name := stringField(row, FieldAgent, FieldAgentShort)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		agents = append(agents, name)
	}
	sort.Strings(agents)
	return agents
}

// stringField returns the first non-empty trimmed value among keys.
func stringField(row Row, keys ...string) string {
	for _, k := range keys {
		v, ok := row[k]
		if !ok || v == nil {
			continue
		}
		var s string
		switch val := v.(type) {
		case string:
			s = val
		case fmt.Stringer:
			s = val.String()
		default:
			s = fmt.Sprint(val)
		}
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}

func rowDate(row Row) (time.Time, error) {
	switch v := row[FieldDate].(type) {
	case time.Time:
		if v.IsZero() {
			return time.Time{}, fmt.Errorf("%w: zero date", ErrMalformedRow)
		}
		return civil(v), nil
	case *time.Time:
		if v == nil || v.IsZero() {
			return time.Time{}, fmt.Errorf("%w: zero date", ErrMalformedRow)
		}
		return civil(*v), nil
	}

	s := stringField(row, FieldDate)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty date", ErrMalformedRow)
	}
	prefix, _, _ := strings.Cut(s, " ")
	d, err := time.Parse(dateLayout, prefix)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q: %v", ErrMalformedRow, s, err)
	}
	return d, nil
}

// civil drops the clock and zone, keeping the calendar date as UTC midnight.
func civil(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing date %q: %w", s, err)
	}
	return d, nil
}
