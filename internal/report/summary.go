package report

import "github.com/christopherklint97/otlog/internal/duration"

// Summary is the serialized form of a report, shared by the CLI's JSON
// output and the HTTP API.
type Summary struct {
	Agent        string         `json:"agent" jsonschema:"description=Agent name as queried"`
	Period       string         `json:"period,omitempty" jsonschema:"description=Configured period name when the range came from one"`
	Start        string         `json:"start" jsonschema:"format=date"`
	End          string         `json:"end" jsonschema:"format=date"`
	TotalMinutes int            `json:"total_minutes" jsonschema:"minimum=0"`
	Total        string         `json:"total" jsonschema:"example=3h 20m"`
	Skipped      int            `json:"skipped" jsonschema:"description=Rows of the agent dropped because their date was unreadable"`
	Entries      []SummaryEntry `json:"entries"`
}

type SummaryEntry struct {
	Date        string `json:"date" jsonschema:"format=date"`
	Minutes     int    `json:"minutes"`
	HasDuration bool   `json:"has_duration" jsonschema:"description=False when the stored total could not be parsed and counted as zero"`
	Label       string `json:"label,omitempty" jsonschema:"description=Total Time as stored"`
}

func Summarize(q Query, period string, res Result) Summary {
	s := Summary{
		Agent:        q.Agent,
		Period:       period,
		Start:        q.Start.Format(dateLayout),
		End:          q.End.Format(dateLayout),
		TotalMinutes: res.TotalMinutes,
		Total:        duration.FormatLabel(res.TotalMinutes),
		Skipped:      res.Skipped,
		Entries:      make([]SummaryEntry, 0, len(res.Records)),
	}
	for _, rec := range res.Records {
		s.Entries = append(s.Entries, SummaryEntry{
			Date:        rec.Date.Format(dateLayout),
			Minutes:     rec.Minutes,
			HasDuration: rec.HasDuration,
			Label:       stringField(rec.Raw, FieldTotal, FieldTotalShort),
		})
	}
	return s
}
