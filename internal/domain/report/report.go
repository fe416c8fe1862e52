// Package report renders standings, ratings and rollover summaries as chat text.
package report

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/okian/wordleboard/internal/domain/model"
)

// Texts shared with callers that need to recognise them.
const (
	NoData       = "No data yet. Post a Wordle result to get started!"
	NoStatsFmt   = "No stats available for %s."
	noScoresFmt  = "No scores for the %s yet."
	duplicateFmt = "%s, you already submitted Wordle %d."
)

// ScoreLabel renders a stored score, showing the failed sentinel as X.
func ScoreLabel(score int) string {
	if score == model.FailedScore {
		return "X"
	}
	return strconv.Itoa(score)
}

func windowTitle(w model.Window) (title, scope string) {
	switch w {
	case model.WindowDaily:
		return "Today's standings", "day"
	case model.WindowWeekly:
		return "This week's standings", "week"
	default:
		return "All-time standings", "all-time board"
	}
}

func rankMarker(rank int) string {
	switch rank {
	case 1:
		return "🥇"
	case 2:
		return "🥈"
	case 3:
		return "🥉"
	default:
		return strconv.Itoa(rank) + "."
	}
}

// Standings renders rows already ordered best first. registered is the number
// of known players; zero renders NoData instead of an empty window.
func Standings(w model.Window, rows []model.Standing, registered int) string {
	if registered == 0 {
		return NoData
	}
	title, scope := windowTitle(w)
	if len(rows) == 0 {
		return fmt.Sprintf(noScoresFmt, scope)
	}

	var sb strings.Builder
	sb.WriteString(title)
	sb.WriteString("\n")
	rank := 0
	for i, r := range rows {
		if i == 0 || r.Average != rows[i-1].Average {
			rank = i + 1
		}
		sb.WriteString(rankMarker(rank))
		sb.WriteString(" ")
		sb.WriteString(r.Name)
		if w == model.WindowDaily && r.Games == 1 {
			fmt.Fprintf(&sb, " %s/6", ScoreLabel(r.Total))
		} else {
			fmt.Fprintf(&sb, " %.2f (%d %s)", r.Average, r.Games, plural(r.Games, "game", "games"))
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// Ratings renders the rating leaderboard. rows carry Exposure and Rank.
func Ratings(rows []model.RatedPlayer, registered int) string {
	if registered == 0 || len(rows) == 0 {
		return NoData
	}
	var sb strings.Builder
	sb.WriteString("Skill leaderboard")
	for _, r := range rows {
		fmt.Fprintf(&sb, "\n%s %s %.1f (μ %.1f, σ %.1f)", rankMarker(r.Rank), r.Name, r.Exposure, r.Mu, r.Sigma)
	}
	return sb.String()
}

// Player renders one player's stats. rank may be nil when the player is not
// on the rating leaderboard.
func Player(st model.PlayerStats, rank *model.RatedPlayer) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Stats for %s", st.Name)
	for _, w := range model.Windows {
		agg := st.Window(w)
		_, scope := windowTitle(w)
		if agg.Empty() {
			fmt.Fprintf(&sb, "\n%s: no games", capitalize(scope))
			continue
		}
		fmt.Fprintf(&sb, "\n%s: %.2f avg over %d %s", capitalize(scope), agg.Average, agg.Games, plural(agg.Games, "game", "games"))
	}
	if rank != nil {
		fmt.Fprintf(&sb, "\nSkill: %.1f (rank %d)", rank.Exposure, rank.Rank)
	}
	if !st.AllTime.Empty() {
		sb.WriteString("\n")
		sb.WriteString(Histogram(st.AllTime))
	}
	return sb.String()
}

// Histogram renders the per-score distribution as "1:0 2:3 ... X:1".
func Histogram(agg model.Aggregate) string {
	parts := make([]string, 0, model.HistogramBuckets)
	for i, c := range agg.Histogram {
		parts = append(parts, fmt.Sprintf("%s:%d", ScoreLabel(i+1), c))
	}
	return strings.Join(parts, " ")
}

// NoStats is the reply for a player the bot has never seen.
func NoStats(name string) string {
	if name == "" {
		name = "you"
	}
	return fmt.Sprintf(NoStatsFmt, name)
}

// Help lists the commands.
func Help(marker string, commands []string) string {
	var sb strings.Builder
	sb.WriteString("Wordle bot commands:")
	for _, c := range commands {
		fmt.Fprintf(&sb, "\n%s %s", marker, c)
	}
	sb.WriteString("\nPost your Wordle result to join in.")
	return sb.String()
}

// Duplicate tells a player their score for game is already recorded.
func Duplicate(name string, game int) string {
	return fmt.Sprintf(duplicateFmt, name, game)
}

// DailyWinners announces the best score of the closed game. rated is the
// number of players whose rating changed; zero omits the line.
func DailyWinners(game, best int, names []string, rated int) string {
	var sb strings.Builder
	if len(names) == 1 {
		fmt.Fprintf(&sb, "Yesterday's winner of Wordle %d: %s with %s/6!", game, names[0], ScoreLabel(best))
	} else {
		fmt.Fprintf(&sb, "Yesterday's winners of Wordle %d: %s with %s/6!", game, joinNames(names), ScoreLabel(best))
	}
	if rated > 0 {
		fmt.Fprintf(&sb, "\nSkill ratings updated for %d %s.", rated, plural(rated, "player", "players"))
	}
	return sb.String()
}

// WeeklyWinners announces the best weekly average.
func WeeklyWinners(average float64, names []string) string {
	noun := "winner"
	if len(names) > 1 {
		noun = "winners"
	}
	return fmt.Sprintf("This week's %s: %s with an average of %.2f!", noun, joinNames(names), average)
}

func joinNames(names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	case 2:
		return names[0] + " and " + names[1]
	default:
		return strings.Join(names[:len(names)-1], ", ") + " and " + names[len(names)-1]
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
