package report

import (
	"fmt"
	"strings"
)

// Period is a named, inclusive report date range such as a pay period.
type Period struct {
	Name  string
	Query Query
}

// ParsePeriod builds a period from YYYY-MM-DD bounds.
func ParsePeriod(name, start, end string) (Period, error) {
	s, err := ParseDate(start)
	if err != nil {
		return Period{}, fmt.Errorf("period %q: %w", name, err)
	}
	e, err := ParseDate(end)
	if err != nil {
		return Period{}, fmt.Errorf("period %q: %w", name, err)
	}
	q := Query{Start: s, End: e}
	if err := q.Validate(); err != nil {
		return Period{}, fmt.Errorf("period %q: %w", name, err)
	}
	return Period{Name: name, Query: q}, nil
}

// For returns the period's query for one agent.
func (p Period) For(agent string) Query {
	q := p.Query
	q.Agent = agent
	return q
}

func (p Period) String() string {
	return fmt.Sprintf("%s (%s – %s)", p.Name, p.Query.Start.Format(dateLayout), p.Query.End.Format(dateLayout))
}

// FindPeriod looks a period up by name, ignoring case.
func FindPeriod(periods []Period, name string) (Period, bool) {
	for _, p := range periods {
		if strings.EqualFold(p.Name, strings.TrimSpace(name)) {
			return p, true
		}
	}
	return Period{}, false
}
