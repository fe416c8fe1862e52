// Package types contains the JSON shapes served by the HTTP API.
package types

import (
	"strconv"

	"github.com/okian/wordleboard/internal/domain/model"
)

// Entry is one row of a daily, weekly or all-time leaderboard.
type Entry struct {
	Rank     int     `json:"rank"`
	PlayerID string  `json:"player_id"`
	Name     string  `json:"name"`
	Games    int     `json:"games"`
	Average  float64 `json:"average"`
}

// RatingEntry is one row of the skill leaderboard.
type RatingEntry struct {
	Rank     int     `json:"rank"`
	PlayerID string  `json:"player_id"`
	Name     string  `json:"name"`
	Mu       float64 `json:"mu"`
	Sigma    float64 `json:"sigma"`
	Exposure float64 `json:"exposure"`
}

// WindowStats is a player's aggregate in one window. Histogram keys are
// "1".."6" and "X".
type WindowStats struct {
	Games     int            `json:"games"`
	Total     int            `json:"total"`
	Average   float64        `json:"average"`
	Histogram map[string]int `json:"histogram"`
}

// Player is everything the API exposes about one player.
type Player struct {
	PlayerID string       `json:"player_id"`
	Name     string       `json:"name"`
	Daily    WindowStats  `json:"daily"`
	Weekly   WindowStats  `json:"weekly"`
	AllTime  WindowStats  `json:"all_time"`
	Rating   *RatingEntry `json:"rating,omitempty"`
}

// FromStanding converts a ranked standing.
func FromStanding(rank int, s model.Standing) Entry {
	return Entry{Rank: rank, PlayerID: s.PlayerID, Name: s.Name, Games: s.Games, Average: s.Average}
}

// FromRated converts a rated player; p.Rank and p.Exposure must be set.
func FromRated(p model.RatedPlayer) RatingEntry {
	return RatingEntry{Rank: p.Rank, PlayerID: p.PlayerID, Name: p.Name, Mu: p.Mu, Sigma: p.Sigma, Exposure: p.Exposure}
}

// FromAggregate converts a window aggregate.
func FromAggregate(a model.Aggregate) WindowStats {
	h := make(map[string]int, model.HistogramBuckets)
	for i, c := range a.Histogram {
		h[label(i+1)] = c
	}
	return WindowStats{Games: a.Games, Total: a.Total, Average: a.Average, Histogram: h}
}

// FromStats converts a player's stats. rank may be nil.
func FromStats(st model.PlayerStats, rank *model.RatedPlayer) Player {
	p := Player{
		PlayerID: st.ID,
		Name:     st.Name,
		Daily:    FromAggregate(st.Daily),
		Weekly:   FromAggregate(st.Weekly),
		AllTime:  FromAggregate(st.AllTime),
	}
	if rank != nil {
		r := FromRated(*rank)
		p.Rating = &r
	}
	return p
}

func label(score int) string {
	if score == model.FailedScore {
		return "X"
	}
	return strconv.Itoa(score)
}
