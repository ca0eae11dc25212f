// Package selection turns click events on the booking calendar into a
// validated date selection and a live price quote.
package selection

import (
	"sort"
	"sync"

	"github.com/kitchenhire/booking-engine/internal/caldate"
	"github.com/kitchenhire/booking-engine/internal/pricing"
)

// AvailabilityChecker answers whether a date is blocked out.
type AvailabilityChecker interface {
	IsBlocked(d caldate.Date) bool
}

// Pricer computes a quote for a hire length and delivery postcode.
type Pricer interface {
	Quote(days int, postcode string) (pricing.Quote, error)
}

// Controller holds one session's in-progress selection. Membership is
// toggled per click and kept sorted ascending; month navigation is pure
// view state and never touches the selection.
type Controller struct {
	availability AvailabilityChecker
	pricer       Pricer
	earliest     caldate.Date

	mu        sync.Mutex
	selected  []caldate.Date
	postcode  string
	viewMonth caldate.Date
	quote     pricing.Quote
	hasQuote  bool
}

type Options struct {
	Availability AvailabilityChecker
	Pricer       Pricer
	// EarliestBookable is the hard service-launch floor. Dates before
	// it are never selectable regardless of blocked ranges.
	EarliestBookable caldate.Date
	Postcode         string
}

func New(opts Options) *Controller {
	return &Controller{
		availability: opts.Availability,
		pricer:       opts.Pricer,
		earliest:     opts.EarliestBookable,
		postcode:     opts.Postcode,
		viewMonth:    opts.EarliestBookable.FirstOfMonth(),
	}
}

// Toggle flips membership of d in the selection. Clicks on blocked
// dates or dates before the booking floor are ignored; the UI should
// never deliver them, but the controller re-validates anyway.
func (c *Controller) Toggle(d caldate.Date) {
	if d.Before(c.earliest) {
		return
	}
	if c.availability != nil && c.availability.IsBlocked(d) {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, existing := range c.selected {
		if existing.Equal(d) {
			c.selected = append(c.selected[:i], c.selected[i+1:]...)
			c.recomputeQuote()
			return
		}
	}
	c.selected = append(c.selected, d)
	sort.Slice(c.selected, func(i, j int) bool { return c.selected[i].Before(c.selected[j]) })
	c.recomputeQuote()
}

// SetPostcode re-prices the current selection without touching it.
func (c *Controller) SetPostcode(postcode string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.postcode = postcode
	c.recomputeQuote()
}

func (c *Controller) Postcode() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.postcode
}

// recomputeQuote rebuilds the quote snapshot from scratch. Called with
// c.mu held.
func (c *Controller) recomputeQuote() {
	c.hasQuote = false
	c.quote = pricing.Quote{}
	if len(c.selected) == 0 || c.pricer == nil {
		return
	}
	q, err := c.pricer.Quote(len(c.selected), c.postcode)
	if err != nil {
		return
	}
	c.quote = q
	c.hasQuote = true
}

// Quote returns the current price snapshot. ok is false when the
// selection is empty: the quote panel hides rather than showing zeros.
func (c *Controller) Quote() (pricing.Quote, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.quote, c.hasQuote
}

// Selected returns the selection in ascending order.
func (c *Controller) Selected() []caldate.Date {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]caldate.Date, len(c.selected))
	copy(out, c.selected)
	return out
}

// Clear empties the selection, e.g. after a booking request is
// submitted.
func (c *Controller) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selected = nil
	c.recomputeQuote()
}

// ViewMonth is the first day of the month currently displayed.
func (c *Controller) ViewMonth() caldate.Date {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewMonth
}

// NextMonth advances the view by one month. Selection is untouched.
func (c *Controller) NextMonth() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.viewMonth = caldate.New(c.viewMonth.Year(), c.viewMonth.Month()+1, 1)
}

// PrevMonth steps the view back one month, stopping at the month that
// contains the booking floor.
func (c *Controller) PrevMonth() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.viewMonth.SameMonth(c.earliest) {
		return
	}
	c.viewMonth = caldate.New(c.viewMonth.Year(), c.viewMonth.Month()-1, 1)
}

// Cell describes one day of the view month for rendering.
type Cell struct {
	Date       caldate.Date `json:"date"`
	Blocked    bool         `json:"blocked"`
	Selectable bool         `json:"selectable"`
	Selected   bool         `json:"selected"`
}

// MonthCells renders the view month as day cells.
func (c *Controller) MonthCells() []Cell {
	c.mu.Lock()
	first := c.viewMonth
	selected := make(map[caldate.Date]bool, len(c.selected))
	for _, d := range c.selected {
		selected[d] = true
	}
	c.mu.Unlock()

	cells := make([]Cell, 0, 31)
	for d := first; d.SameMonth(first); d = d.AddDays(1) {
		blocked := c.availability != nil && c.availability.IsBlocked(d)
		cells = append(cells, Cell{
			Date:       d,
			Blocked:    blocked,
			Selectable: !blocked && !d.Before(c.earliest),
			Selected:   selected[d],
		})
	}
	return cells
}
