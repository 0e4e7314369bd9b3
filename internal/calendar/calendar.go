package calendar

import (
	"fmt"
	"io"
	"time"

	ical "github.com/emersion/go-ical"

	"github.com/christopherklint97/otlog/internal/duration"
	"github.com/christopherklint97/otlog/internal/entry"
	"github.com/christopherklint97/otlog/internal/report"
)

const productID = "-//otlog//overtime export//EN"

// Event is one overtime shift placed on the calendar.
type Event struct {
	UID       string
	Summary   string
	StartTime time.Time
	EndTime   time.Time
}

// Events places report records on the calendar in loc. Records without a
// readable From/To pair are left out.
func Events(records []report.Record, loc *time.Location) []Event {
	if loc == nil {
		loc = time.Local
	}

	var events []Event
	for _, rec := range records {
		e := entry.FromRow(rec.Raw)
		from, ok, err := duration.ParseTimeOfDay(e.From)
		if err != nil || !ok {
			continue
		}
		to, ok, err := duration.ParseTimeOfDay(e.To)
		if err != nil || !ok {
			continue
		}

		y, m, d := rec.Date.Date()
		start := time.Date(y, m, d, from.Hour, from.Minute, 0, 0, loc)
		end := start.Add(time.Duration(duration.Preview(from, to, e.IsOvernight())) * time.Minute)

		summary := fmt.Sprintf("Overtime: %s", rec.Agent)
		if e.Reason != "" {
			summary += " (" + e.Reason + ")"
		}

		uid := e.ID
		if uid == "" {
			uid = fmt.Sprintf("%s-%s@otlog", start.UTC().Format("20060102T150405Z"), rec.Agent)
		}

		events = append(events, Event{UID: uid, Summary: summary, StartTime: start, EndTime: end})
	}
	return events
}

// Export writes events as an iCalendar document.
func Export(w io.Writer, events []Event, stamp time.Time) error {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)

	for _, ev := range events {
		event := ical.NewEvent()
		event.Props.SetText(ical.PropUID, ev.UID)
		event.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())
		event.Props.SetDateTime(ical.PropDateTimeStart, ev.StartTime)
		event.Props.SetDateTime(ical.PropDateTimeEnd, ev.EndTime)
		event.Props.SetText(ical.PropSummary, ev.Summary)
		cal.Children = append(cal.Children, event.Component)
	}

	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("encoding calendar: %w", err)
	}
	return nil
}

// Parse reads back events written by Export.
func Parse(r io.Reader) ([]Event, error) {
	dec := ical.NewDecoder(r)
	var events []Event

	for {
		cal, err := dec.Decode()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing calendar: %w", err)
		}

		for _, component := range cal.Children {
			if component.Name != ical.CompEvent {
				continue
			}
			event := ical.Event{Component: component}

			start, err := event.DateTimeStart(nil)
			if err != nil {
				continue // skip malformed events
			}
			end, err := event.DateTimeEnd(nil)
			if err != nil {
				continue
			}
			uid, _ := event.Props.Text(ical.PropUID)
			summary, _ := event.Props.Text(ical.PropSummary)

			events = append(events, Event{UID: uid, Summary: summary, StartTime: start, EndTime: end})
		}
	}

	return events, nil
}
