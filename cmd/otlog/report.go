package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/christopherklint97/otlog/internal/calendar"
	"github.com/christopherklint97/otlog/internal/config"
	"github.com/christopherklint97/otlog/internal/entry"
	"github.com/christopherklint97/otlog/internal/report"
	"github.com/christopherklint97/otlog/internal/tui"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Total an agent's overtime for a period",
	Long: `Totals the overtime of one agent between two dates, inclusive.

The range comes from --period (a configured [[periods]] name), from
--start/--end, or defaults to the configured period containing today.
Without --agent an agent picker is shown.`,
	RunE: runReport,
}

func init() {
	reportCmd.Flags().String("agent", "", "Agent name (case-insensitive)")
	reportCmd.Flags().String("period", "", "Configured period name")
	reportCmd.Flags().String("start", "", "First day, YYYY-MM-DD or e.g. 'last monday'")
	reportCmd.Flags().String("end", "", "Last day, YYYY-MM-DD or e.g. 'today'")
	reportCmd.Flags().StringP("format", "f", "text", "Output format: text, csv, json or ics")
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	flags := cmd.Flags()

	agent, _ := flags.GetString("agent")
	periodName, _ := flags.GetString("period")
	start, _ := flags.GetString("start")
	end, _ := flags.GetString("end")
	format, _ := flags.GetString("format")

	switch format {
	case "text", "csv", "json", "ics":
	default:
		return fmt.Errorf("unknown format %q (want text, csv, json or ics)", format)
	}

	q, label, err := resolveQuery(cfg, periodName, start, end, time.Now())
	if err != nil {
		return err
	}

	st, err := openStore(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	rows, err := st.Rows(cmd.Context())
	if err != nil {
		return fmt.Errorf("reading records: %w", err)
	}

	if agent == "" {
		agent, err = pickAgent(mergeAgents(cfg.Form.Agents, report.Agents(rows)))
		if err != nil {
			return err
		}
		if agent == "" {
			return nil
		}
	}
	q.Agent = agent

	res, err := report.NewAggregator(logger).Aggregate(rows, q)
	if err != nil {
		return err
	}
	summary := report.Summarize(q, label, res)

	out := os.Stdout
	switch format {
	case "csv":
		return writeCSV(out, summary)
	case "json":
		return writeJSON(out, summary)
	case "ics":
		return calendar.Export(out, calendar.Events(res.Records, time.Local), time.Now())
	default:
		return writeText(out, summary)
	}
}

// resolveQuery picks the report range from flags, falling back to the
// configured period containing now. The returned label names the period
// when one was used.
func resolveQuery(cfg *config.Config, periodName, start, end string, now time.Time) (report.Query, string, error) {
	periods, err := cfg.ReportPeriods()
	if err != nil {
		return report.Query{}, "", err
	}

	if periodName != "" {
		p, ok := report.FindPeriod(periods, periodName)
		if !ok {
			names := make([]string, len(periods))
			for i, p := range periods {
				names[i] = strconv.Quote(p.Name)
			}
			return report.Query{}, "", fmt.Errorf("unknown period %q (configured: %s)", periodName, strings.Join(names, ", "))
		}
		return p.Query, p.Name, nil
	}

	if start != "" || end != "" {
		if start == "" || end == "" {
			return report.Query{}, "", fmt.Errorf("--start and --end must be given together")
		}
		s, err := entry.ParseDate(start, now)
		if err != nil {
			return report.Query{}, "", fmt.Errorf("--start: %w", err)
		}
		e, err := entry.ParseDate(end, now)
		if err != nil {
			return report.Query{}, "", fmt.Errorf("--end: %w", err)
		}
		q := report.Query{Start: s, End: e}
		return q, "", q.Validate()
	}

	today := now.Format("2006-01-02")
	for _, p := range periods {
		if p.Query.Start.Format("2006-01-02") <= today && today <= p.Query.End.Format("2006-01-02") {
			return p.Query, p.Name, nil
		}
	}
	return report.Query{}, "", fmt.Errorf("no configured period contains %s — pass --period or --start/--end", today)
}

// mergeAgents returns the roster followed by any other recorded names.
func mergeAgents(configured, recorded []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, a := range configured {
		seen[strings.ToLower(a)] = true
		out = append(out, a)
	}
	var extra []string
	for _, a := range recorded {
		if !seen[strings.ToLower(a)] {
			seen[strings.ToLower(a)] = true
			extra = append(extra, a)
		}
	}
	sort.Strings(extra)
	return append(out, extra...)
}

func pickAgent(agents []string) (string, error) {
	if len(agents) == 0 {
		return "", fmt.Errorf("no agents configured or recorded — pass --agent")
	}

	app := tui.NewPickerApp(agents)
	if _, err := tea.NewProgram(app).Run(); err != nil {
		return "", fmt.Errorf("running agent picker: %w", err)
	}
	res := app.GetResult()
	if res == nil || res.Canceled {
		return "", nil
	}
	return res.Agent, nil
}

func writeText(w io.Writer, s report.Summary) error {
	title := s.Agent
	if s.Period != "" {
		title += " — " + s.Period
	}
	fmt.Fprintf(w, "%s (%s to %s)\n\n", title, s.Start, s.End)

	if len(s.Entries) == 0 {
		fmt.Fprintln(w, "  No overtime recorded.")
	}
	for _, e := range s.Entries {
		note := ""
		if !e.HasDuration {
			note = fmt.Sprintf("  (unreadable total %q)", e.Label)
		}
		fmt.Fprintf(w, "  %s  %7s%s\n", e.Date, fmt.Sprintf("%dh %02dm", e.Minutes/60, e.Minutes%60), note)
	}

	fmt.Fprintf(w, "\nTotal: %s (%d entries)\n", s.Total, len(s.Entries))
	if s.Skipped > 0 {
		fmt.Fprintf(w, "Skipped %d rows with unreadable dates.\n", s.Skipped)
	}
	return nil
}

func writeCSV(w io.Writer, s report.Summary) error {
	cw := csv.NewWriter(w)
	cw.Write([]string{"agent", "date", "minutes", "total_time"})
	for _, e := range s.Entries {
		cw.Write([]string{s.Agent, e.Date, strconv.Itoa(e.Minutes), e.Label})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("writing csv: %w", err)
	}
	return nil
}

func writeJSON(w io.Writer, s report.Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	return nil
}
