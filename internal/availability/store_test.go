package availability

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kitchenhire/booking-engine/internal/caldate"
)

type staticSource struct {
	raw []byte
	err error
}

func (s staticSource) Fetch(context.Context) ([]byte, error) { return s.raw, s.err }

func day(t *testing.T, s string) caldate.Date {
	t.Helper()
	d, err := caldate.Parse(s)
	require.NoError(t, err)
	return d
}

func TestLoadAndIsBlockedInclusive(t *testing.T) {
	doc := `{"unavailable":[{"start":"2025-12-24","end":"2025-12-26"}]}`
	s := New(Options{Source: staticSource{raw: []byte(doc)}})
	require.NoError(t, s.Load(context.Background()))

	assert.True(t, s.IsBlocked(day(t, "2025-12-24")))
	assert.True(t, s.IsBlocked(day(t, "2025-12-25")))
	assert.True(t, s.IsBlocked(day(t, "2025-12-26")))
	assert.False(t, s.IsBlocked(day(t, "2025-12-23")))
	assert.False(t, s.IsBlocked(day(t, "2025-12-27")))
}

func TestLoadToleratesJSONC(t *testing.T) {
	doc := `{
		// christmas shutdown
		"unavailable": [
			{"start": "2025-12-24", "end": "2025-12-26"},
		],
	}`
	s := New(Options{Source: staticSource{raw: []byte(doc)}})
	require.NoError(t, s.Load(context.Background()))
	assert.Len(t, s.Ranges(), 1)
}

func TestLoadFailsSoft(t *testing.T) {
	for name, src := range map[string]Source{
		"fetch error": staticSource{err: errors.New("boom")},
		"not json":    staticSource{raw: []byte("<html>")},
		"bad dates":   staticSource{raw: []byte(`{"unavailable":[{"start":"2025-12-26","end":"2025-12-24"}]}`)},
	} {
		t.Run(name, func(t *testing.T) {
			s := New(Options{Source: src})
			require.NoError(t, s.Load(context.Background()))
			assert.Empty(t, s.Ranges())
			assert.False(t, s.IsBlocked(day(t, "2025-12-25")))
		})
	}
}

func TestAddRangeRejectsInverted(t *testing.T) {
	s := New(Options{})
	err := s.AddRange(day(t, "2025-06-10"), day(t, "2025-06-09"))
	assert.ErrorIs(t, err, ErrInvalidRange)
	assert.Empty(t, s.Ranges())

	require.NoError(t, s.AddRange(day(t, "2025-06-10"), day(t, "2025-06-10")))
	assert.Len(t, s.Ranges(), 1)
}

func TestAddRangeKeepsOverlaps(t *testing.T) {
	s := New(Options{})
	require.NoError(t, s.AddRange(day(t, "2025-06-01"), day(t, "2025-06-10")))
	require.NoError(t, s.AddRange(day(t, "2025-06-05"), day(t, "2025-06-07")))
	assert.Len(t, s.Ranges(), 2)
	assert.True(t, s.IsBlocked(day(t, "2025-06-06")))
}

func TestRemoveRange(t *testing.T) {
	s := New(Options{})
	require.NoError(t, s.AddRange(day(t, "2025-06-01"), day(t, "2025-06-02")))
	require.NoError(t, s.AddRange(day(t, "2025-07-01"), day(t, "2025-07-02")))

	s.RemoveRange(5) // out of bounds: no-op
	s.RemoveRange(-1)
	assert.Len(t, s.Ranges(), 2)

	s.RemoveRange(0)
	ranges := s.Ranges()
	require.Len(t, ranges, 1)
	assert.Equal(t, day(t, "2025-07-01"), ranges[0].Start)
}

func TestPersistRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "availability.json")
	s := New(Options{PersistPath: path})
	require.NoError(t, s.AddRange(day(t, "2025-12-24"), day(t, "2025-12-26")))
	require.NoError(t, s.Persist())

	reloaded := New(Options{Source: FileSource{Path: path}})
	require.NoError(t, reloaded.Load(context.Background()))
	assert.Equal(t, s.Ranges(), reloaded.Ranges())
}

func TestPersistEmptyWritesEmptyList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "availability.json")
	s := New(Options{PersistPath: path})
	require.NoError(t, s.Persist())
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"unavailable": []`)
}

func TestICSFeed(t *testing.T) {
	s := New(Options{})
	require.NoError(t, s.AddRange(day(t, "2025-12-24"), day(t, "2025-12-26")))
	feed := s.ICS("Kitchen Hire Availability")
	assert.True(t, strings.Contains(feed, "BEGIN:VCALENDAR"))
	assert.True(t, strings.Contains(feed, "SUMMARY:Unavailable"))
	assert.True(t, strings.Contains(feed, "DTSTART;VALUE=DATE:20251224"))
	// All-day DTEND is exclusive.
	assert.True(t, strings.Contains(feed, "DTEND;VALUE=DATE:20251227"))
}
