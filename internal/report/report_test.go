package report_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/christopherklint97/otlog/internal/report"
)

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := report.ParseDate(s)
	require.NoError(t, err)
	return d
}

func row(agent, date, total string) report.Row {
	return report.Row{
		report.FieldAgent: agent,
		report.FieldDate:  date,
		report.FieldTotal: total,
	}
}

func TestAggregate_EndToEnd(t *testing.T) {
	rows := []report.Row{
		row("Eliecid", "2025-10-10", "1h 30m"),
		row("Eliecid", "2025-11-10", "2h"),
		row("David", "2025-10-15", "5h"),
	}
	q := report.Query{Agent: "Eliecid", Start: day(t, "2025-10-06"), End: day(t, "2025-11-02")}

	res, err := report.Aggregate(rows, q)
	require.NoError(t, err)
	assert.Equal(t, 90, res.TotalMinutes)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "Eliecid", res.Records[0].Agent)
	assert.Equal(t, day(t, "2025-10-10"), res.Records[0].Date)
	assert.Equal(t, "1h 30m", res.Label())
}

func TestAggregate_CaseInsensitiveAgent(t *testing.T) {
	rows := []report.Row{
		row("eliecid", "2025-10-10", "1h"),
		row("  ELIECID ", "2025-10-11", "1 hr 15 min"),
	}
	q := report.Query{Agent: "Eliecid", Start: day(t, "2025-10-01"), End: day(t, "2025-10-31")}

	res, err := report.Aggregate(rows, q)
	require.NoError(t, err)
	assert.Equal(t, 135, res.TotalMinutes)
	assert.Len(t, res.Records, 2)
}

func TestAggregate_MalformedRowIsolation(t *testing.T) {
	rows := []report.Row{
		row("Luis", "2025-10-07", "1h"),
		row("Luis", "10/08/2025", "9h"),
		row("Luis", "", "9h"),
		{report.FieldAgent: "Luis"},
		row("Luis", "2025-10-09 00:00:00", "2h 15m"),
	}
	q := report.Query{Agent: "Luis", Start: day(t, "2025-10-06"), End: day(t, "2025-11-02")}

	res, err := report.Aggregate(rows, q)
	require.NoError(t, err)
	assert.Equal(t, 195, res.TotalMinutes)
	assert.Len(t, res.Records, 2)
	assert.Equal(t, 3, res.Skipped)
}

func TestAggregate_BadDurationStillMatched(t *testing.T) {
	rows := []report.Row{
		row("Julio", "2025-10-07", ""),
		row("Julio", "2025-10-08", "soon"),
		row("Julio", "2025-10-09", "45m"),
		row("Julio", "2025-10-10", "1h 5m"),
	}
	q := report.Query{Agent: "Julio", Start: day(t, "2025-10-06"), End: day(t, "2025-11-02")}

	res, err := report.Aggregate(rows, q)
	require.NoError(t, err)
	assert.Equal(t, 65, res.TotalMinutes)
	require.Len(t, res.Records, 4)
	assert.False(t, res.Records[0].HasDuration)
	assert.False(t, res.Records[1].HasDuration)
	assert.False(t, res.Records[2].HasDuration)
	assert.True(t, res.Records[3].HasDuration)
	assert.Equal(t, "2025-10-07", res.Records[0].Raw[report.FieldDate])
}

func TestAggregate_InclusiveBoundsAndOrder(t *testing.T) {
	rows := []report.Row{
		row("Brayan", "2025-11-02", "1h"),
		row("Brayan", "2025-10-05", "1h"),
		row("Brayan", "2025-10-06", "2h"),
		row("Brayan", "2025-11-03", "1h"),
	}
	q := report.Query{Agent: "Brayan", Start: day(t, "2025-10-06"), End: day(t, "2025-11-02")}

	res, err := report.Aggregate(rows, q)
	require.NoError(t, err)
	assert.Equal(t, 180, res.TotalMinutes)
	require.Len(t, res.Records, 2)
	assert.Equal(t, day(t, "2025-11-02"), res.Records[0].Date)
	assert.Equal(t, day(t, "2025-10-06"), res.Records[1].Date)
}

func TestAggregate_StructuredDateAndShortKeys(t *testing.T) {
	loc := time.FixedZone("COT", -5*60*60)
	rows := []report.Row{
		{
			report.FieldAgentShort: "Andrés",
			report.FieldDate:       time.Date(2025, 10, 20, 23, 30, 0, 0, loc),
			report.FieldTotalShort: "3h",
		},
	}
	q := report.Query{Agent: "andrés", Start: day(t, "2025-10-20"), End: day(t, "2025-10-20")}

	res, err := report.Aggregate(rows, q)
	require.NoError(t, err)
	assert.Equal(t, 180, res.TotalMinutes)
	require.Len(t, res.Records, 1)
	assert.Equal(t, day(t, "2025-10-20"), res.Records[0].Date)
}

func TestAggregate_InvalidQuery(t *testing.T) {
	q := report.Query{Agent: "David", Start: day(t, "2025-11-03"), End: day(t, "2025-11-02")}
	_, err := report.Aggregate([]report.Row{row("David", "2025-11-02", "1h")}, q)
	assert.ErrorIs(t, err, report.ErrInvalidQuery)
}

func TestAggregate_RowsWithoutAgentNeverMatch(t *testing.T) {
	rows := []report.Row{
		{report.FieldDate: "2025-10-10", report.FieldTotal: "5h"},
		row("  ", "2025-10-11", "2h"),
		row("Luis", "2025-10-12", "1h"),
	}

	res, err := report.Aggregate(rows, report.Query{Start: day(t, "2025-10-01"), End: day(t, "2025-10-31")})
	require.NoError(t, err)
	assert.Equal(t, 0, res.TotalMinutes)
	assert.Empty(t, res.Records)
}

func TestAggregate_NoRows(t *testing.T) {
	q := report.Query{Agent: "David", Start: day(t, "2025-11-03"), End: day(t, "2025-12-07")}
	res, err := report.Aggregate(nil, q)
	require.NoError(t, err)
	assert.Zero(t, res.TotalMinutes)
	assert.Empty(t, res.Records)
}

func TestAgents(t *testing.T) {
	rows := []report.Row{
		row("David", "", ""),
		row(" Eliecid ", "", ""),
		row("David", "", ""),
		row("", "", ""),
		{report.FieldAgentShort: "Luis"},
	}
	assert.Equal(t, []string{"David", "Eliecid", "Luis"}, report.Agents(rows))
}

func TestParsePeriod(t *testing.T) {
	p, err := report.ParsePeriod("October", "2025-10-06", "2025-11-02")
	require.NoError(t, err)
	q := p.For("Julio")
	assert.Equal(t, "Julio", q.Agent)
	assert.Equal(t, day(t, "2025-10-06"), q.Start)

	_, err = report.ParsePeriod("Backwards", "2025-11-02", "2025-10-06")
	assert.ErrorIs(t, err, report.ErrInvalidQuery)

	_, err = report.ParsePeriod("Broken", "06/10/2025", "2025-11-02")
	assert.Error(t, err)

	found, ok := report.FindPeriod([]report.Period{p}, "october")
	assert.True(t, ok)
	assert.Equal(t, p, found)
	_, ok = report.FindPeriod([]report.Period{p}, "November")
	assert.False(t, ok)
}

func TestSummarize(t *testing.T) {
	rows := []report.Row{
		row("Luis", "2025-11-04", "1 hr 15 min"),
		row("Luis", "2025-11-05", "soon"),
		row("Luis", "", "3h"),
	}
	q := report.Query{Agent: "luis", Start: day(t, "2025-11-03"), End: day(t, "2025-12-07")}

	res, err := report.Aggregate(rows, q)
	require.NoError(t, err)

	s := report.Summarize(q, "Nov 03 - Dec 07", res)
	assert.Equal(t, "luis", s.Agent)
	assert.Equal(t, "2025-11-03", s.Start)
	assert.Equal(t, "2025-12-07", s.End)
	assert.Equal(t, 75, s.TotalMinutes)
	assert.Equal(t, "1h 15m", s.Total)
	assert.Equal(t, 1, s.Skipped)
	require.Len(t, s.Entries, 2)
	assert.Equal(t, "1 hr 15 min", s.Entries[0].Label)
	assert.False(t, s.Entries[1].HasDuration)
}
