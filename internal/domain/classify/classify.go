// Package classify recognises score reports and chat commands.
package classify

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/okian/wordleboard/internal/domain/model"
)

// scorePattern matches "Wordle 900 3/6" and "Wordle 900 X/6" at the start of text.
var scorePattern = regexp.MustCompile(`^Wordle\s(\d+)\s([1-6X])/\d`) //nolint:gochecknoglobals // compiled once

// Result is a parsed score report.
type Result struct {
	Game  int
	Score int
}

// Command is a recognised chat command.
type Command string

const (
	CommandDaily       Command = "daily"
	CommandWeekly      Command = "weekly"
	CommandAll         Command = "all"
	CommandLeaderboard Command = "leaderboard"
	CommandMy          Command = "my"
	CommandHelp        Command = "help"
)

// Commands lists the commands shown in help output.
var Commands = []Command{CommandDaily, CommandWeekly, CommandAll, CommandLeaderboard, CommandMy} //nolint:gochecknoglobals // read-only table

// Kind is the outcome of Classify.
type Kind int

const (
	KindIgnored Kind = iota
	KindScore
	KindCommand
)

func (k Kind) String() string {
	switch k {
	case KindScore:
		return "score"
	case KindCommand:
		return "command"
	default:
		return "ignored"
	}
}

// Classification is what a message turned out to be.
type Classification struct {
	Kind    Kind
	Score   Result
	Command Command
}

// Score extracts the game id and score from a score report.
func Score(text string) (Result, error) {
	m := scorePattern.FindStringSubmatch(text)
	if m == nil {
		return Result{}, ErrNotScore
	}
	game, err := strconv.Atoi(m[1])
	if err != nil {
		return Result{}, fmt.Errorf("%w: game id %q: %w", ErrMalformedScore, m[1], err)
	}
	if m[2] == "X" {
		return Result{Game: game, Score: model.FailedScore}, nil
	}
	score, err := strconv.Atoi(m[2])
	if err != nil {
		return Result{}, fmt.Errorf("%w: score %q: %w", ErrMalformedScore, m[2], err)
	}
	return Result{Game: game, Score: score}, nil
}

// ParseCommand reports whether text starts with marker and, if so, which
// command the following token names. Unknown or missing tokens yield CommandHelp.
func ParseCommand(text, marker string) (Command, bool) {
	if marker == "" || !strings.HasPrefix(text, marker) {
		return "", false
	}
	rest := text[len(marker):]
	// "!wordlex" is not the marker followed by a command.
	if rest != "" && !startsWithSpace(rest) {
		return "", false
	}
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return CommandHelp, true
	}
	for _, c := range Commands {
		if fields[0] == string(c) {
			return c, true
		}
	}
	return CommandHelp, true
}

func startsWithSpace(s string) bool {
	switch s[0] {
	case ' ', '\t', '\n', '\r':
		return true
	}
	return false
}

// Classify checks the score grammar first, then the command grammar.
// Malformed score reports are returned as errors and must be rejected.
func Classify(text, marker string) (Classification, error) {
	r, err := Score(text)
	switch {
	case err == nil:
		return Classification{Kind: KindScore, Score: r}, nil
	case !errors.Is(err, ErrNotScore):
		return Classification{}, err
	}
	if c, ok := ParseCommand(text, marker); ok {
		return Classification{Kind: KindCommand, Command: c}, nil
	}
	return Classification{Kind: KindIgnored}, nil
}
