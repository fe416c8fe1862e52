package simulate

import (
	"fmt"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
)

// Chance of the less common message shapes in a day.
const (
	resubmitRate = 0.05
	replayRate   = 0.03
	commandRate  = 0.04
	failRate     = 0.08
)

const (
	wordLength = 5
	maxGuesses = 6
)

var tiles = []string{"⬛", "🟨", "🟩"} //nolint:gochecknoglobals // emoji palette

// Generator produces a deterministic group chat for a seed.
type Generator struct {
	faker *gofakeit.Faker
	seed  int64
	epoch time.Time
}

// NewGenerator creates a generator. A zero seed is replaced by the clock.
func NewGenerator(seed int64) *Generator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Generator{
		faker: gofakeit.New(uint64(seed)), //nolint:gosec // seed sign does not matter
		seed:  seed,
		epoch: time.Date(2024, 1, 1, 14, 0, 0, 0, time.UTC),
	}
}

// Seed returns the seed in use so a run can be repeated.
func (g *Generator) Seed() int64 { return g.seed }

// Players creates n group members with distinct ids.
func (g *Generator) Players(n int) []Player {
	players := make([]Player, n)
	for i := range players {
		players[i] = Player{
			ID:    g.faker.Numerify("########"),
			Name:  g.faker.FirstName() + " " + g.faker.LastName()[:1] + ".",
			Skill: g.faker.Float64Range(0, 1),
		}
	}
	return players
}

// Day builds every callback posted while game is the current puzzle.
// dayIndex offsets the message timestamps from the first simulated day.
func (g *Generator) Day(cfg *Config, players []Player, game, dayIndex int) []Callback {
	at := g.epoch.AddDate(0, 0, dayIndex)
	var out []Callback

	for _, p := range players {
		if g.faker.Float64Range(0, 1) >= cfg.Turnout {
			continue
		}
		cb := g.callback(p, g.ScoreText(game, g.guesses(p)), at)
		out = append(out, cb)

		if g.faker.Float64Range(0, 1) < replayRate {
			// webhook retry of the same message
			out = append(out, cb)
		}
		if g.faker.Float64Range(0, 1) < resubmitRate {
			out = append(out, g.callback(p, g.ScoreText(game, g.guesses(p)), at.Add(time.Minute)))
		}
		if g.faker.Float64Range(0, 1) < commandRate {
			out = append(out, g.callback(p, g.command(), at.Add(2*time.Minute)))
		}
	}

	for i := 0; i < cfg.Chatter && len(players) > 0; i++ {
		p := players[g.faker.Number(0, len(players)-1)]
		out = append(out, g.callback(p, g.faker.Sentence(g.faker.Number(3, 12)), at))
	}

	g.faker.ShuffleAnySlice(out)
	return out
}

// guesses returns 1..6, or 0 for a failed puzzle.
func (g *Generator) guesses(p Player) int {
	if g.faker.Float64Range(0, 1) < failRate*(1-p.Skill) {
		return 0
	}
	r := g.faker.Float64Range(0, 1) + p.Skill // 0..2
	n := maxGuesses - int(r*2.5)
	switch {
	case n < 1:
		return 1
	case n > maxGuesses:
		return maxGuesses
	}
	return n
}

// ScoreText renders a share message the way the game does. guesses of 0
// renders as X.
func (g *Generator) ScoreText(game, guesses int) string {
	result := "X"
	rows := maxGuesses
	if guesses > 0 {
		result = fmt.Sprint(guesses)
		rows = guesses
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Wordle %d %s/%d\n", game, result, maxGuesses)
	for r := 0; r < rows; r++ {
		b.WriteByte('\n')
		solved := guesses > 0 && r == rows-1
		for c := 0; c < wordLength; c++ {
			if solved {
				b.WriteString(tiles[2])
				continue
			}
			b.WriteString(g.faker.RandomString(tiles))
		}
	}
	return b.String()
}

func (g *Generator) command() string {
	return "!wordle " + g.faker.RandomString([]string{"daily", "weekly", "all", "leaderboard", "my", "help"})
}

func (g *Generator) callback(p Player, text string, at time.Time) Callback {
	return Callback{
		ID:         g.faker.UUID(),
		SenderID:   p.ID,
		UserID:     p.ID,
		Name:       p.Name,
		Text:       text,
		SenderType: "user",
		CreatedAt:  at.Add(time.Duration(g.faker.Number(0, 3600)) * time.Second).Unix(),
	}
}
