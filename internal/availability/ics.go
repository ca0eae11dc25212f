package availability

import (
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
)

// ICS renders the blocked ranges as an all-day event feed so the team
// can overlay unavailability onto their own calendars.
func (s *Store) ICS(calendarName string) string {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//kitchenhire//booking-engine//EN")
	if calendarName != "" {
		cal.SetName(calendarName)
		cal.SetXWRCalName(calendarName)
	}

	now := time.Now().UTC()
	for i, iv := range s.Ranges() {
		event := cal.AddEvent(fmt.Sprintf("blocked-%d-%s@kitchenhire", i, iv.Start))
		event.SetDtStampTime(now)
		event.SetSummary("Unavailable")
		event.SetAllDayStartAt(iv.Start.Time())
		// DTEND is exclusive for all-day events.
		event.SetAllDayEndAt(iv.End.AddDays(1).Time())
	}
	return cal.Serialize()
}
