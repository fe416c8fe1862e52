package model

// Window is an aggregation scope.
type Window string

const (
	WindowDaily   Window = "daily"
	WindowWeekly  Window = "weekly"
	WindowAllTime Window = "alltime"
)

// Windows lists every window in display order.
var Windows = []Window{WindowDaily, WindowWeekly, WindowAllTime} //nolint:gochecknoglobals // read-only table

// Valid reports whether w is one of the known windows.
func (w Window) Valid() bool {
	switch w {
	case WindowDaily, WindowWeekly, WindowAllTime:
		return true
	}
	return false
}

// Resettable reports whether rollover may clear the window.
func (w Window) Resettable() bool { return w == WindowDaily || w == WindowWeekly }

// ParseWindow accepts the window names used by the chat and HTTP surfaces.
func ParseWindow(s string) (Window, bool) {
	switch s {
	case "daily", "day":
		return WindowDaily, true
	case "weekly", "week":
		return WindowWeekly, true
	case "all", "alltime", "all-time":
		return WindowAllTime, true
	}
	return "", false
}

// Aggregate is a player's running totals in one window.
type Aggregate struct {
	Games     int
	Total     int
	Average   float64
	Histogram [HistogramBuckets]int
}

// Record folds one score into the aggregate. Average is recomputed from the
// integer totals every time so it never drifts.
func (a *Aggregate) Record(score int) {
	a.Games++
	a.Total += score
	a.Average = float64(a.Total) / float64(a.Games)
	if ValidScore(score) {
		a.Histogram[score-1]++
	}
}

// Empty reports whether no game has been recorded.
func (a Aggregate) Empty() bool { return a.Games == 0 }

// Standing is one row of a window leaderboard.
type Standing struct {
	PlayerID string
	Name     string
	Aggregate
}

// RatedPlayer is one row of the rating leaderboard.
type RatedPlayer struct {
	PlayerID string
	Name     string
	Rating
	Exposure float64
	Rank     int
}

// PlayerStats is everything known about one player.
type PlayerStats struct {
	Player
	Daily   Aggregate
	Weekly  Aggregate
	AllTime Aggregate
	Rating  Rating
}

// Window returns the aggregate for w.
func (s PlayerStats) Window(w Window) Aggregate {
	switch w {
	case WindowDaily:
		return s.Daily
	case WindowWeekly:
		return s.Weekly
	default:
		return s.AllTime
	}
}
