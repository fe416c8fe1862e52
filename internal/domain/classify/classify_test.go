package classify_test

import (
	"errors"
	"testing"

	"github.com/okian/wordleboard/internal/domain/classify"
	"github.com/okian/wordleboard/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestScore(t *testing.T) {
	Convey("Given score report texts", t, func() {
		Convey("When every score token 1-6 is parsed", func() {
			for s := 1; s <= 6; s++ {
				r, err := classify.Score("Wordle 900 " + string(rune('0'+s)) + "/6")
				So(err, ShouldBeNil)
				So(r, ShouldResemble, classify.Result{Game: 900, Score: s})
			}
		})

		Convey("When the puzzle was failed", func() {
			r, err := classify.Score("Wordle 1234 X/6\n\n⬛⬛🟨⬛⬛")

			Convey("Then X maps to the failed sentinel", func() {
				So(err, ShouldBeNil)
				So(r.Game, ShouldEqual, 1234)
				So(r.Score, ShouldEqual, model.FailedScore)
			})
		})

		Convey("When the text does not start with the report", func() {
			for _, text := range []string{
				"I got Wordle 900 3/6",
				"wordle 900 3/6",
				"Wordle 900 7/6",
				"Wordle 900 0/6",
				"Wordle abc 3/6",
				"Wordle  900 3/6",
				"",
			} {
				_, err := classify.Score(text)
				So(err, ShouldEqual, classify.ErrNotScore)
			}
		})

		Convey("When the game id overflows an int", func() {
			_, err := classify.Score("Wordle 99999999999999999999999 3/6")

			Convey("Then it is a hard failure", func() {
				So(errors.Is(err, classify.ErrMalformedScore), ShouldBeTrue)
			})
		})
	})
}

func TestParseCommand(t *testing.T) {
	Convey("Given the default marker", t, func() {
		const marker = "!wordle"

		Convey("Then known commands are recognised", func() {
			for _, c := range classify.Commands {
				got, ok := classify.ParseCommand(marker+" "+string(c), marker)
				So(ok, ShouldBeTrue)
				So(got, ShouldEqual, c)
			}
		})

		Convey("Then extra tokens are ignored", func() {
			got, ok := classify.ParseCommand("!wordle   daily please", marker)
			So(ok, ShouldBeTrue)
			So(got, ShouldEqual, classify.CommandDaily)
		})

		Convey("Then unknown or missing tokens fall back to help", func() {
			for _, text := range []string{"!wordle", "!wordle ", "!wordle Daily", "!wordle stats"} {
				got, ok := classify.ParseCommand(text, marker)
				So(ok, ShouldBeTrue)
				So(got, ShouldEqual, classify.CommandHelp)
			}
		})

		Convey("Then text without the marker is not a command", func() {
			for _, text := range []string{"hello", "!wordles daily", "daily !wordle"} {
				_, ok := classify.ParseCommand(text, marker)
				So(ok, ShouldBeFalse)
			}
		})
	})
}

func TestClassify(t *testing.T) {
	Convey("Given mixed texts", t, func() {
		c, err := classify.Classify("Wordle 900 3/6", "!wordle")
		So(err, ShouldBeNil)
		So(c.Kind, ShouldEqual, classify.KindScore)
		So(c.Score.Score, ShouldEqual, 3)

		c, err = classify.Classify("!wordle my", "!wordle")
		So(err, ShouldBeNil)
		So(c.Kind, ShouldEqual, classify.KindCommand)
		So(c.Command, ShouldEqual, classify.CommandMy)

		c, err = classify.Classify("good morning", "!wordle")
		So(err, ShouldBeNil)
		So(c.Kind, ShouldEqual, classify.KindIgnored)
		So(c.Kind.String(), ShouldEqual, "ignored")

		Convey("A score report is never read as a command even with a matching marker", func() {
			c, err := classify.Classify("Wordle 900 2/6", "Wordle")
			So(err, ShouldBeNil)
			So(c.Kind, ShouldEqual, classify.KindScore)
		})

		Convey("A malformed report is an error", func() {
			_, err := classify.Classify("Wordle 99999999999999999999999 3/6", "!wordle")
			So(errors.Is(err, classify.ErrMalformedScore), ShouldBeTrue)
		})
	})
}
