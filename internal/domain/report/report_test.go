package report_test

import (
	"strings"
	"testing"

	"github.com/okian/wordleboard/internal/domain/model"
	"github.com/okian/wordleboard/internal/domain/report"
	"github.com/smartystreets/goconvey/convey"
)

func standing(id, name string, scores ...int) model.Standing {
	s := model.Standing{PlayerID: id, Name: name}
	for _, sc := range scores {
		s.Record(sc)
	}
	return s
}

func TestStandings(t *testing.T) {
	convey.Convey("Given standings output", t, func() {
		convey.Convey("When no player is registered", func() {
			out := report.Standings(model.WindowDaily, nil, 0)
			convey.So(out, convey.ShouldEqual, report.NoData)
		})

		convey.Convey("When players exist but the window is empty", func() {
			out := report.Standings(model.WindowWeekly, nil, 3)
			convey.So(out, convey.ShouldEqual, "No scores for the week yet.")
			convey.So(out, convey.ShouldNotEqual, report.NoData)
		})

		convey.Convey("When the daily window has scores", func() {
			out := report.Standings(model.WindowDaily, []model.Standing{
				standing("u2", "Bob", 2),
				standing("u3", "Cat", 2),
				standing("u1", "Alice", model.FailedScore),
			}, 3)
			lines := strings.Split(out, "\n")

			convey.Convey("Then rows keep their order, ties share a medal and X is shown", func() {
				convey.So(lines[0], convey.ShouldEqual, "Today's standings")
				convey.So(lines[1], convey.ShouldEqual, "🥇 Bob 2/6")
				convey.So(lines[2], convey.ShouldEqual, "🥇 Cat 2/6")
				convey.So(lines[3], convey.ShouldEqual, "🥉 Alice X/6")
			})
		})

		convey.Convey("When the all-time window has averages", func() {
			out := report.Standings(model.WindowAllTime, []model.Standing{
				standing("u1", "Alice", 3, 4),
				standing("u2", "Bob", 4),
			}, 2)
			convey.So(out, convey.ShouldContainSubstring, "🥇 Alice 3.50 (2 games)")
			convey.So(out, convey.ShouldContainSubstring, "🥈 Bob 4.00 (1 game)")
		})
	})
}

func TestRatings(t *testing.T) {
	convey.Convey("Given a rating board", t, func() {
		convey.So(report.Ratings(nil, 0), convey.ShouldEqual, report.NoData)

		out := report.Ratings([]model.RatedPlayer{
			{PlayerID: "A", Name: "Ann", Rating: model.Rating{Mu: 30, Sigma: 2}, Exposure: 24, Rank: 1},
			{PlayerID: "B", Name: "Ben", Rating: model.Rating{Mu: 28, Sigma: 8}, Exposure: 4, Rank: 2},
		}, 2)
		convey.So(out, convey.ShouldStartWith, "Skill leaderboard")
		convey.So(strings.Index(out, "Ann"), convey.ShouldBeLessThan, strings.Index(out, "Ben"))
		convey.So(out, convey.ShouldContainSubstring, "🥇 Ann 24.0")
	})
}

func TestPlayer(t *testing.T) {
	convey.Convey("Given player stats", t, func() {
		st := model.PlayerStats{Player: model.Player{ID: "u1", Name: "Alice"}}
		st.AllTime.Record(3)
		st.AllTime.Record(model.FailedScore)
		st.Weekly.Record(3)

		out := report.Player(st, &model.RatedPlayer{Exposure: 1.5, Rank: 2})
		convey.So(out, convey.ShouldContainSubstring, "Stats for Alice")
		convey.So(out, convey.ShouldContainSubstring, "Day: no games")
		convey.So(out, convey.ShouldContainSubstring, "Week: 3.00 avg over 1 game")
		convey.So(out, convey.ShouldContainSubstring, "All-time board: 5.00 avg over 2 games")
		convey.So(out, convey.ShouldContainSubstring, "Skill: 1.5 (rank 2)")
		convey.So(out, convey.ShouldContainSubstring, "1:0 2:0 3:1 4:0 5:0 6:0 X:1")

		convey.So(report.NoStats("Bob"), convey.ShouldEqual, "No stats available for Bob.")
		convey.So(report.NoStats(""), convey.ShouldEqual, "No stats available for you.")
	})
}

func TestNotices(t *testing.T) {
	convey.Convey("Given rollover notices", t, func() {
		convey.So(report.DailyWinners(900, 2, []string{"Bob"}, 2), convey.ShouldEqual,
			"Yesterday's winner of Wordle 900: Bob with 2/6!\nSkill ratings updated for 2 players.")
		convey.So(report.DailyWinners(900, model.FailedScore, []string{"A", "B", "C"}, 0), convey.ShouldEqual,
			"Yesterday's winners of Wordle 900: A, B and C with X/6!")
		convey.So(report.WeeklyWinners(3.25, []string{"Ann", "Ben"}), convey.ShouldEqual,
			"This week's winners: Ann and Ben with an average of 3.25!")
		convey.So(report.Duplicate("Alice", 900), convey.ShouldEqual, "Alice, you already submitted Wordle 900.")

		help := report.Help("!wordle", []string{"daily", "my"})
		convey.So(help, convey.ShouldContainSubstring, "!wordle daily")
		convey.So(help, convey.ShouldContainSubstring, "!wordle my")
	})
}
