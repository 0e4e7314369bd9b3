// Package scheduler runs the daily reminder to log overtime.
package scheduler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/christopherklint97/otlog/internal/config"
	"github.com/christopherklint97/otlog/internal/duration"
	"github.com/christopherklint97/otlog/internal/report"
)

// NotifyFunc delivers a reminder, usually notify.Send.
type NotifyFunc func(title, message string) error

type Reminder struct {
	at       duration.TimeOfDay
	workDays []int
	periods  []report.Period
	notify   NotifyFunc
	logger   *slog.Logger
	now      func() time.Time
}

// New builds a reminder firing at the given time of day on workDays, where
// Monday is 1 and Sunday is 7.
func New(at duration.TimeOfDay, workDays []int, periods []report.Period, notify NotifyFunc, logger *slog.Logger) *Reminder {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Reminder{
		at:       at,
		workDays: workDays,
		periods:  periods,
		notify:   notify,
		logger:   logger,
		now:      time.Now,
	}
}

func (r *Reminder) Run(ctx context.Context) error {
	if err := writePID(); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePID()

	r.logger.Info("reminder started", "at", r.at.String(), "work_days", r.workDays)

	for {
		next := r.nextTick(r.now())
		r.logger.Info("next reminder", "at", next.Format("2006-01-02 15:04"))

		select {
		case <-ctx.Done():
			r.logger.Info("reminder stopped")
			return nil
		case <-time.After(time.Until(next)):
		}

		if !r.isWorkDay(next) {
			continue
		}

		title, msg := r.message(next)
		if err := r.notify(title, msg); err != nil {
			r.logger.Warn("sending reminder failed", "error", err)
		}
	}
}

// nextTick is the first reminder time strictly after now.
func (r *Reminder) nextTick(now time.Time) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), r.at.Hour, r.at.Minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

func (r *Reminder) isWorkDay(t time.Time) bool {
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday = 7
	}
	for _, d := range r.workDays {
		if d == weekday {
			return true
		}
	}
	return false
}

// message names any configured period that closes on t's date.
func (r *Reminder) message(t time.Time) (string, string) {
	day := t.Format("2006-01-02")
	var closing []string
	for _, p := range r.periods {
		if p.Query.End.Format("2006-01-02") == day {
			closing = append(closing, p.Name)
		}
	}
	if len(closing) > 0 {
		return "Period ends today",
			fmt.Sprintf("%s closes today. Log any remaining overtime before the report.", strings.Join(closing, ", "))
	}
	return "Overtime", "Did you work overtime today? Run 'otlog log' to record it."
}

func pidPath() (string, error) {
	dir, err := config.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "otlog-remind.pid"), nil
}

func writePID() error {
	path, err := pidPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0644)
}

func removePID() {
	if path, err := pidPath(); err == nil {
		os.Remove(path)
	}
}

func ReadPID() (int, error) {
	path, err := pidPath()
	if err != nil {
		return 0, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("no running reminder found")
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid PID file")
	}

	return pid, nil
}
