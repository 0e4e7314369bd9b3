// Package entry turns a submitted overtime form into the raw row that is
// appended to the record store, and defines the store boundary.
package entry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tj/go-naturaldate"

	"github.com/christopherklint97/otlog/internal/duration"
	"github.com/christopherklint97/otlog/internal/report"
)

// Column headers, in stored order.
const (
	ColID        = "ID"
	ColAgent     = report.FieldAgent
	ColDate      = report.FieldDate
	ColFrom      = "From"
	ColTo        = "To"
	ColReason    = "Reason"
	ColBonus     = "+20K Bonus"
	ColHoliday   = "Holiday"
	ColOvernight = "Overnight"
	ColTotal     = report.FieldTotal
)

var Headers = []string{
	ColID, ColAgent, ColDate, ColFrom, ColTo, ColReason, ColBonus, ColHoliday, ColOvernight, ColTotal,
}

const DefaultReason = "Scheduled OT"

var (
	ErrMissingFields = errors.New("all fields are required")
	ErrUnknownDate   = errors.New("unrecognized date")
)

// Store persists entries and reads back every stored row.
type Store interface {
	Append(ctx context.Context, e Entry) error
	Rows(ctx context.Context) ([]report.Row, error)
	Close() error
}

// Form is the raw input collected by the entry form or the add command.
type Form struct {
	Agent     string `json:"agent"`
	Date      string `json:"date"`
	From      string `json:"from"`
	To        string `json:"to"`
	Reason    string `json:"reason"`
	Bonus     bool   `json:"bonus"`
	Holiday   bool   `json:"holiday"`
	Overnight bool   `json:"overnight"`
}

// Entry is one stored overtime row. All values are kept as display strings.
type Entry struct {
	ID        string `json:"id"`
	Agent     string `json:"agent"`
	Date      string `json:"date"`
	From      string `json:"from"`
	To        string `json:"to"`
	Reason    string `json:"reason"`
	Bonus     string `json:"bonus"`
	Holiday   string `json:"holiday"`
	Overnight string `json:"overnight"`
	TotalTime string `json:"total_time"`
}

// New validates a form and builds the entry to store. now resolves
// relative dates such as "yesterday"; an empty date means today.
func New(f Form, now time.Time) (Entry, error) {
	agent := strings.TrimSpace(f.Agent)
	if agent == "" {
		return Entry{}, fmt.Errorf("%w: agent", ErrMissingFields)
	}

	from, ok, err := duration.ParseTimeOfDay(f.From)
	if err != nil {
		return Entry{}, fmt.Errorf("from: %w", err)
	}
	if !ok {
		return Entry{}, fmt.Errorf("%w: from", ErrMissingFields)
	}
	to, ok, err := duration.ParseTimeOfDay(f.To)
	if err != nil {
		return Entry{}, fmt.Errorf("to: %w", err)
	}
	if !ok {
		return Entry{}, fmt.Errorf("%w: to", ErrMissingFields)
	}

	date := now
	if strings.TrimSpace(f.Date) != "" {
		date, err = ParseDate(f.Date, now)
		if err != nil {
			return Entry{}, err
		}
	}

	reason := strings.TrimSpace(f.Reason)
	if reason == "" {
		reason = DefaultReason
	}

	return Entry{
		ID:        uuid.NewString(),
		Agent:     agent,
		Date:      date.Format("2006-01-02"),
		From:      from.String(),
		To:        to.String(),
		Reason:    reason,
		Bonus:     yesNo(f.Bonus),
		Holiday:   boolString(f.Holiday),
		Overnight: boolString(f.Overnight),
		TotalTime: duration.FormatLegacyLabel(duration.Preview(from, to, f.Overnight)),
	}, nil
}

// ParseDate accepts YYYY-MM-DD or a natural-language date such as
// "yesterday" or "last friday", resolved against ref.
func ParseDate(s string, ref time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if d, err := time.ParseInLocation("2006-01-02", s, ref.Location()); err == nil {
		return d, nil
	}
	d, err := naturaldate.Parse(s, ref, naturaldate.WithDirection(naturaldate.Past))
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing date %q: %w", s, err)
	}
	// naturaldate hands back ref untouched for input it cannot read.
	if d.Equal(ref) && !isNow(s) {
		return time.Time{}, fmt.Errorf("parsing date %q: %w", s, ErrUnknownDate)
	}
	return d, nil
}

func isNow(s string) bool {
	switch strings.ToLower(strings.Join(strings.Fields(s), " ")) {
	case "today", "now", "right now":
		return true
	}
	return false
}

// Values returns the entry in Headers order.
func (e Entry) Values() []string {
	return []string{
		e.ID, e.Agent, e.Date, e.From, e.To, e.Reason, e.Bonus, e.Holiday, e.Overnight, e.TotalTime,
	}
}

// Row keys the entry by header.
func (e Entry) Row() report.Row {
	values := e.Values()
	row := make(report.Row, len(Headers))
	for i, h := range Headers {
		row[h] = values[i]
	}
	return row
}

// FromRow is the inverse of Row; missing columns become empty strings.
func FromRow(row report.Row) Entry {
	get := func(key string) string {
		if v, ok := row[key]; ok && v != nil {
			if s, ok := v.(string); ok {
				return s
			}
			if t, ok := v.(time.Time); ok {
				return t.Format("2006-01-02")
			}
			return fmt.Sprint(v)
		}
		return ""
	}
	return Entry{
		ID:        get(ColID),
		Agent:     get(ColAgent),
		Date:      get(ColDate),
		From:      get(ColFrom),
		To:        get(ColTo),
		Reason:    get(ColReason),
		Bonus:     get(ColBonus),
		Holiday:   get(ColHoliday),
		Overnight: get(ColOvernight),
		TotalTime: get(ColTotal),
	}
}

// IsOvernight reports whether the stored overnight flag is set.
func (e Entry) IsOvernight() bool {
	return parseFlag(e.Overnight)
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func boolString(b bool) string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}

func parseFlag(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "1":
		return true
	}
	return false
}
