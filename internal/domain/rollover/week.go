package rollover

import "time"

// WeekSignal numbers calendar weeks. A change in the number between two
// rollovers means a new week has started.
type WeekSignal interface {
	Week(now time.Time) int
}

// WeekFunc adapts a function to WeekSignal.
type WeekFunc func(now time.Time) int

// Week implements WeekSignal.
func (f WeekFunc) Week(now time.Time) int { return f(now) }

// CalendarWeeks counts weeks since the Unix epoch, each starting at midnight
// of Start in Location.
type CalendarWeeks struct {
	Start    time.Weekday
	Location *time.Location
}

// Week implements WeekSignal.
func (c CalendarWeeks) Week(now time.Time) int {
	loc := c.Location
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := now.In(loc).Date()
	days := int(time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400)
	// 1970-01-01 was a Thursday.
	offset := (int(time.Thursday) - int(c.Start) + 7) % 7
	return (days + offset) / 7
}
