// Package rollover migrates overdue incomplete tasks to the current
// day. The scan runs at most once per calendar day, gated by a
// persisted marker, and is deliberately not transactional: a crash
// mid-scan just leaves fewer stale tasks for the next day's run.
package rollover

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/natefinch/atomic"

	"github.com/kitchenhire/booking-engine/internal/caldate"
	"github.com/kitchenhire/booking-engine/internal/optimistic"
	"github.com/kitchenhire/booking-engine/internal/task"
)

// Report lists what a run did. Failed patches stay moved locally; the
// next session's scan will no longer see them as overdue, so retrying
// is up to the user.
type Report struct {
	Ran    bool     `json:"ran"`
	Moved  []string `json:"moved"`
	Failed []string `json:"failed"`
}

type Scheduler struct {
	tasks      *optimistic.Engine[task.Record]
	markerPath string
	now        func() time.Time
	log        *slog.Logger

	mu sync.Mutex // one run at a time; cron and manual trigger share it
}

type Options struct {
	Tasks      *optimistic.Engine[task.Record]
	MarkerPath string
	Now        func() time.Time
	Logger     *slog.Logger
}

func New(opts Options) *Scheduler {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{tasks: opts.Tasks, markerPath: opts.MarkerPath, now: now, log: logger}
}

// Run performs the daily scan unless it already ran today. Overdue
// incomplete tasks move to today; each move is patched to the store
// best-effort, with failures logged rather than rolled back.
func (s *Scheduler) Run(ctx context.Context) Report {
	s.mu.Lock()
	defer s.mu.Unlock()

	today := caldate.DateOf(s.now())
	if s.lastRun() == today.String() {
		return Report{}
	}

	report := Report{Ran: true}
	todayPatch := map[string]any{"date": today.String()}
	for _, t := range s.tasks.Items() {
		if t.Completed || t.Date == nil || !t.Date.Before(today) {
			continue
		}
		if err := s.tasks.UpdateBestEffort(ctx, t.ID, todayPatch); err != nil {
			report.Failed = append(report.Failed, t.ID)
			continue
		}
		report.Moved = append(report.Moved, t.ID)
	}

	// The marker advances even when nothing matched, so the scan does
	// not repeat until the calendar day changes.
	if err := s.writeMarker(today.String()); err != nil {
		s.log.Warn("rollover marker write failed", "err", err)
	}
	if len(report.Moved) > 0 || len(report.Failed) > 0 {
		s.log.Info("rollover complete", "moved", len(report.Moved), "failed", len(report.Failed))
	}
	return report
}

func (s *Scheduler) lastRun() string {
	if s.markerPath == "" {
		return ""
	}
	raw, err := os.ReadFile(s.markerPath)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(raw))
}

func (s *Scheduler) writeMarker(day string) error {
	if s.markerPath == "" {
		return nil
	}
	return atomic.WriteFile(s.markerPath, bytes.NewReader([]byte(day+"\n")))
}
