package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"

	"github.com/christopherklint97/otlog/internal/config"
	"github.com/christopherklint97/otlog/internal/duration"
	"github.com/christopherklint97/otlog/internal/entry"
	"github.com/christopherklint97/otlog/internal/notify"
	"github.com/christopherklint97/otlog/internal/report"
	"github.com/christopherklint97/otlog/internal/scheduler"
	"github.com/christopherklint97/otlog/internal/server"
	"github.com/christopherklint97/otlog/internal/sheets"
	"github.com/christopherklint97/otlog/internal/store"
	"github.com/christopherklint97/otlog/internal/tui"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:          "otlog",
	Short:        "Overtime log and report",
	Long:         "otlog records overtime shifts to SQLite or a Google Sheet and totals them per agent and pay period.",
	SilenceUsage: true,
}

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Log overtime interactively",
	RunE:  runLog,
}

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Log overtime from flags",
	Example: `  otlog add --agent Luis --from 18:00 --to 20:30
  otlog add --agent David --date yesterday --from 2200 --to 0600 --overnight`,
	RunE: runAdd,
}

var previewCmd = &cobra.Command{
	Use:   "preview <from> <to>",
	Short: "Show the duration between two times of day",
	Args:  cobra.ExactArgs(2),
	RunE:  runPreview,
}

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "List configured and recorded agents",
	RunE:  runAgents,
}

var agentsAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add an agent to the form roster",
	Args:  cobra.ExactArgs(1),
	RunE:  runAgentsAdd,
}

var periodsCmd = &cobra.Command{
	Use:   "periods",
	Short: "List configured report periods",
	RunE:  runPeriods,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the entry and report API over HTTP",
	RunE:  runServe,
}

var remindCmd = &cobra.Command{
	Use:   "remind",
	Short: "Send a daily desktop reminder to log overtime",
	RunE:  runRemind,
}

var remindStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running reminder",
	RunE:  runRemindStop,
}

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON Schema of 'report --format json' output",
	RunE:  runSchema,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Open config file in your editor",
	RunE:  runConfig,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")

	addCmd.Flags().String("agent", "", "Agent name (default: last agent used)")
	addCmd.Flags().String("date", "", "Date as YYYY-MM-DD or e.g. 'yesterday' (default: today)")
	addCmd.Flags().String("from", "", "Start time, HH:MM or HHMM")
	addCmd.Flags().String("to", "", "End time, HH:MM or HHMM")
	addCmd.Flags().String("reason", "", "Reason (default from config)")
	addCmd.Flags().Bool("bonus", false, "+20K bonus applies")
	addCmd.Flags().Bool("holiday", false, "Shift was on a holiday")
	addCmd.Flags().Bool("overnight", false, "Shift ends the next day")
	addCmd.MarkFlagRequired("from")
	addCmd.MarkFlagRequired("to")

	previewCmd.Flags().Bool("overnight", false, "End time is on the next day")

	serveCmd.Flags().String("addr", "", "Listen address (default from config)")

	agentsCmd.AddCommand(agentsAddCmd)
	remindCmd.AddCommand(remindStopCmd)

	rootCmd.AddCommand(logCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(agentsCmd)
	rootCmd.AddCommand(periodsCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(remindCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	level := cfg.LogLevel()
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// openStore returns the configured record store.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (entry.Store, error) {
	switch cfg.Store.Driver {
	case config.DriverSheets:
		client, err := sheets.NewClientFromCredentials(ctx, cfg.Sheets.CredentialsFile, sheets.Options{
			SpreadsheetID: cfg.Sheets.SpreadsheetID,
			Sheet:         cfg.Sheets.Sheet,
			BaseURL:       cfg.Sheets.BaseURL,
			TotalFormula:  cfg.Sheets.TotalFormula,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("connecting to Google Sheets: %w", err)
		}
		return client, nil
	default:
		db, err := store.Open(cfg.Store.Path)
		if err != nil {
			return nil, fmt.Errorf("opening database: %w", err)
		}
		return db, nil
	}
}

// openState opens the local database that remembers form state. It is the
// record store itself when the sqlite driver is used.
func openState(cfg *config.Config) (*store.DB, error) {
	path := ""
	if cfg.Store.Driver == config.DriverSQLite {
		path = cfg.Store.Path
	}
	db, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}

func lastAgent(db *store.DB, logger *slog.Logger) string {
	agent, err := db.GetState(store.StateLastAgent)
	if err != nil {
		logger.Warn("reading last agent failed", "error", err)
	}
	return agent
}

func afterStore(cfg *config.Config, db *store.DB, logger *slog.Logger, e entry.Entry) {
	if err := db.SetState(store.StateLastAgent, e.Agent); err != nil {
		logger.Warn("saving last agent failed", "error", err)
	}
	if cfg.Notifications.Enabled {
		msg := fmt.Sprintf("%s: %s on %s", e.Agent, e.TotalTime, e.Date)
		if err := notify.Send("Overtime logged", msg); err != nil {
			logger.Debug("notification failed", "error", err)
		}
	}
}

func runLog(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	st, err := openStore(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	state, err := openState(cfg)
	if err != nil {
		return err
	}
	defer state.Close()

	// The TUI owns the terminal; only errors reach stderr meanwhile.
	tuiLogger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	app := tui.NewApp(st, cfg.Form.Agents, lastAgent(state, logger), cfg.Form.DefaultReason, tuiLogger)
	p := tea.NewProgram(app)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running TUI: %w", err)
	}

	result := app.GetResult()
	if result == nil || result.Canceled {
		fmt.Println("Nothing logged.")
		return nil
	}

	for _, e := range result.Entries {
		afterStore(cfg, state, logger, e)
		fmt.Printf("Logged: %s  %s  %s–%s  %s\n", e.Agent, e.Date, e.From, e.To, e.TotalTime)
	}
	return nil
}

func runAdd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	flags := cmd.Flags()

	state, err := openState(cfg)
	if err != nil {
		return err
	}
	defer state.Close()

	form := entry.Form{}
	form.Agent, _ = flags.GetString("agent")
	form.Date, _ = flags.GetString("date")
	form.From, _ = flags.GetString("from")
	form.To, _ = flags.GetString("to")
	form.Reason, _ = flags.GetString("reason")
	form.Bonus, _ = flags.GetBool("bonus")
	form.Holiday, _ = flags.GetBool("holiday")
	form.Overnight, _ = flags.GetBool("overnight")

	if form.Agent == "" {
		form.Agent = lastAgent(state, logger)
	}
	if form.Reason == "" {
		form.Reason = cfg.Form.DefaultReason
	}

	e, err := entry.New(form, time.Now())
	if err != nil {
		return err
	}

	st, err := openStore(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.Append(cmd.Context(), e); err != nil {
		return fmt.Errorf("storing entry: %w", err)
	}
	afterStore(cfg, state, logger, e)

	fmt.Printf("Logged: %s  %s  %s–%s  %s\n", e.Agent, e.Date, e.From, e.To, e.TotalTime)
	return nil
}

func runPreview(cmd *cobra.Command, args []string) error {
	overnight, _ := cmd.Flags().GetBool("overnight")

	from, ok, err := duration.ParseTimeOfDay(args[0])
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("from: expected HH:MM or HHMM, got %q", args[0])
	}
	to, ok, err := duration.ParseTimeOfDay(args[1])
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("to: expected HH:MM or HHMM, got %q", args[1])
	}

	fmt.Println(duration.FormatLabel(duration.Preview(from, to, overnight)))
	return nil
}

func runAgents(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	fmt.Println("Configured:")
	for _, a := range cfg.Form.Agents {
		fmt.Printf("  %s\n", a)
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

	recorded := report.Agents(rows)
	fmt.Printf("\nRecorded (%d):\n", len(recorded))
	for _, a := range recorded {
		fmt.Printf("  %s\n", a)
	}
	return nil
}

func runAgentsAdd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	name := strings.TrimSpace(args[0])
	if name == "" {
		return fmt.Errorf("agent name is empty")
	}
	for _, a := range cfg.Form.Agents {
		if strings.EqualFold(a, name) {
			fmt.Printf("%s is already on the roster.\n", a)
			return nil
		}
	}

	path, err := config.ConfigPath()
	if err != nil {
		return err
	}
	agents := append(cfg.Form.Agents, name)
	if err := config.SaveAgents(path, agents); err != nil {
		return fmt.Errorf("saving agents: %w", err)
	}

	fmt.Printf("Added %s (%d agents).\n", name, len(agents))
	return nil
}

func runPeriods(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	periods, err := cfg.ReportPeriods()
	if err != nil {
		return err
	}
	if len(periods) == 0 {
		fmt.Println("No periods configured. Add [[periods]] tables to the config file.")
		return nil
	}
	for _, p := range periods {
		fmt.Printf("  %s\n", p)
	}
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	addr, _ := cmd.Flags().GetString("addr")
	if addr == "" {
		addr = cfg.Server.Addr
	}

	periods, err := cfg.ReportPeriods()
	if err != nil {
		return err
	}

	st, err := openStore(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	srv := server.New(st, cfg.Form.Agents, periods, logger)
	if cfg.Notifications.Enabled {
		srv.OnEntry = func(e entry.Entry) {
			msg := fmt.Sprintf("%s: %s on %s", e.Agent, e.TotalTime, e.Date)
			if err := notify.Send("Overtime logged", msg); err != nil {
				logger.Debug("notification failed", "error", err)
			}
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return srv.Run(ctx, addr)
}

func runRemind(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	at, err := cfg.ReminderTime()
	if err != nil {
		return err
	}
	periods, err := cfg.ReportPeriods()
	if err != nil {
		return err
	}

	if err := config.EnsureConfigDir(); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	r := scheduler.New(at, cfg.Notifications.WorkDays, periods, notify.Send, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return r.Run(ctx)
}

func runRemindStop(cmd *cobra.Command, args []string) error {
	pid, err := scheduler.ReadPID()
	if err != nil {
		return err
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("finding process %d: %w", pid, err)
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("sending stop signal: %w", err)
	}

	fmt.Printf("Sent stop signal to otlog reminder (PID %d)\n", pid)
	return nil
}

func runSchema(cmd *cobra.Command, args []string) error {
	r := &jsonschema.Reflector{}
	schema := r.Reflect(&report.Summary{})

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding schema: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func runConfig(cmd *cobra.Command, args []string) error {
	if err := config.EnsureConfigDir(); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	configPath, err := config.ConfigPath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := os.WriteFile(configPath, []byte(config.Template()), 0644); err != nil {
			return fmt.Errorf("writing default config: %w", err)
		}
	}

	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "vi"
	}

	fmt.Printf("Opening %s with %s...\n", configPath, editor)

	proc := os.ProcAttr{
		Files: []*os.File{os.Stdin, os.Stdout, os.Stderr},
	}
	editorPath, err := exec.LookPath(editor)
	if err != nil {
		fmt.Printf("Could not find %s. Config file is at: %s\n", editor, configPath)
		return nil
	}
	process, err := os.StartProcess(editorPath, []string{editor, configPath}, &proc)
	if err != nil {
		// If editor fails, just print the path
		fmt.Printf("Could not open editor. Config file is at: %s\n", configPath)
		return nil
	}
	_, err = process.Wait()
	return err
}
