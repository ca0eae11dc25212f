// Package availability holds the blocked-out calendar ranges that make
// dates unbookable. Ranges are admin-curated and small; the store keeps
// them as a plain slice with inclusive containment checks and an
// explicit persist step.
package availability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/natefinch/atomic"

	"github.com/kitchenhire/booking-engine/internal/caldate"
)

var ErrInvalidRange = errors.New("range end precedes start")

// InvalidRangeError reports an addRange call with end < start. The
// store is left untouched.
type InvalidRangeError struct {
	Start caldate.Date
	End   caldate.Date
}

func (e InvalidRangeError) Error() string {
	return fmt.Sprintf("%s..%s: %v", e.Start, e.End, ErrInvalidRange)
}

func (e InvalidRangeError) Unwrap() error {
	return ErrInvalidRange
}

// document is the wire shape of the availability file. A missing or
// malformed document means nothing is blocked.
type document struct {
	Unavailable []caldate.Interval `json:"unavailable"`
}

type Store struct {
	source      Source
	persistPath string
	log         *slog.Logger

	mu     sync.RWMutex
	ranges []caldate.Interval
}

type Options struct {
	// Source supplies the availability document on Load. May be nil
	// when the store starts empty (fresh install).
	Source Source
	// PersistPath is where Persist writes the document.
	PersistPath string
	Logger      *slog.Logger
}

func New(opts Options) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{source: opts.Source, persistPath: opts.PersistPath, log: logger}
}

// Load replaces the in-memory ranges from the source document. Fetch or
// parse failures degrade to an empty set: under-blocking keeps the
// calendar usable, a hard failure would not.
func (s *Store) Load(ctx context.Context) error {
	if s.source == nil {
		return nil
	}
	raw, err := s.source.Fetch(ctx)
	if err != nil {
		s.log.Warn("availability document unavailable, treating all dates as open", "err", err)
		s.setRanges(nil)
		return nil
	}
	doc, err := parseDocument(raw)
	if err != nil {
		s.log.Warn("availability document malformed, treating all dates as open", "err", err)
		s.setRanges(nil)
		return nil
	}
	s.setRanges(doc.Unavailable)
	return nil
}

// parseDocument accepts the hand-edited document with JSONC niceties
// (comments, trailing commas) tolerated.
func parseDocument(raw []byte) (document, error) {
	standardized, err := standardize(raw)
	if err != nil {
		return document{}, err
	}
	var doc document
	if err := json.Unmarshal(standardized, &doc); err != nil {
		return document{}, err
	}
	for _, iv := range doc.Unavailable {
		if !iv.Valid() {
			return document{}, InvalidRangeError{Start: iv.Start, End: iv.End}
		}
	}
	return doc, nil
}

func (s *Store) setRanges(ranges []caldate.Interval) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ranges = ranges
}

// IsBlocked reports whether the date falls inside any stored interval,
// inclusive on both ends. Ranges may overlap; only membership matters.
func (s *Store) IsBlocked(d caldate.Date) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, iv := range s.ranges {
		if iv.Contains(d) {
			return true
		}
	}
	return false
}

// AddRange appends a blocked interval. Overlapping or adjacent ranges
// are not merged. The caller persists when its batch of edits is done.
func (s *Store) AddRange(start, end caldate.Date) error {
	if end.Before(start) {
		return InvalidRangeError{Start: start, End: end}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ranges = append(s.ranges, caldate.Interval{Start: start, End: end})
	return nil
}

// RemoveRange deletes by position. Out-of-bounds indexes are a no-op.
func (s *Store) RemoveRange(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.ranges) {
		return
	}
	s.ranges = append(s.ranges[:index], s.ranges[index+1:]...)
}

// Ranges returns a copy of the stored intervals in insertion order.
func (s *Store) Ranges() []caldate.Interval {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]caldate.Interval, len(s.ranges))
	copy(out, s.ranges)
	return out
}

// Persist flushes the current ranges to the persist path atomically.
// Mutations never auto-persist; admin handlers batch edits then flush.
func (s *Store) Persist() error {
	if s.persistPath == "" {
		return errors.New("no persist path configured")
	}
	doc := document{Unavailable: s.Ranges()}
	if doc.Unavailable == nil {
		doc.Unavailable = []caldate.Interval{}
	}
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode availability document: %w", err)
	}
	raw = append(raw, '\n')
	if err := atomic.WriteFile(s.persistPath, bytes.NewReader(raw)); err != nil {
		return fmt.Errorf("write availability document: %w", err)
	}
	return nil
}
