// Package rating implements the Weng-Lin Bayesian rating update with the
// Bradley-Terry full-pairing model for one-player teams.
package rating

import (
	"math"
	"sort"

	"github.com/okian/wordleboard/internal/domain/model"
)

// Default engine configuration constants.
const (
	defaultMu    = 25.0
	defaultSigma = defaultMu / 3
	defaultK     = 3.0
	defaultKappa = 0.0001
)

// Participant is one player's entry in a finished game.
type Participant struct {
	PlayerID string
	Score    int
	Rating   model.Rating
}

// Engine rates games and orders rating leaderboards.
type Engine struct {
	mu0    float64
	sigma0 float64
	beta   float64
	kappa  float64
	k      float64
}

// NewEngine creates an engine with the standard 25 / 25/3 prior.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		mu0:    defaultMu,
		sigma0: defaultSigma,
		beta:   defaultSigma / 2,
		kappa:  defaultKappa,
		k:      defaultK,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Prior returns the rating new players start with.
func (e *Engine) Prior() model.Rating {
	return model.Rating{Mu: e.mu0, Sigma: e.sigma0}
}

// Ranks maps scores to ranks where rank is the number of distinct scores
// strictly better (lower) than the player's own. Ties share a rank.
func Ranks(scores []int) []int {
	distinct := make([]int, 0, len(scores))
	seen := make(map[int]struct{}, len(scores))
	for _, s := range scores {
		if _, ok := seen[s]; !ok {
			seen[s] = struct{}{}
			distinct = append(distinct, s)
		}
	}
	sort.Ints(distinct)

	ranks := make([]int, len(scores))
	for i, s := range scores {
		ranks[i] = sort.SearchInts(distinct, s)
	}
	return ranks
}

// Rate computes new ratings for every participant of one game. The result is
// index-aligned with ps. With fewer than two participants the input ratings
// are returned unchanged together with ErrTooFewPlayers.
func (e *Engine) Rate(ps []Participant) ([]model.Rating, error) {
	out := make([]model.Rating, len(ps))
	for i, p := range ps {
		out[i] = p.Rating
	}
	if len(ps) < 2 {
		return out, ErrTooFewPlayers
	}

	scores := make([]int, len(ps))
	for i, p := range ps {
		scores[i] = p.Score
	}
	ranks := Ranks(scores)
	betaSq := e.beta * e.beta

	for i, pi := range ps {
		mui, sigi := pi.Rating.Mu, pi.Rating.Sigma
		sigiSq := sigi * sigi

		var omega, delta float64
		for q, pq := range ps {
			if q == i {
				continue
			}
			muq, sigq := pq.Rating.Mu, pq.Rating.Sigma
			c := math.Sqrt(sigiSq + sigq*sigq + 2*betaSq)

			// Shift by the larger exponent so exp never overflows.
			m := math.Max(mui, muq) / c
			ei := math.Exp(mui/c - m)
			eq := math.Exp(muq/c - m)
			pIQ := ei / (ei + eq)
			pQI := 1 - pIQ

			s := outcome(ranks[i], ranks[q])
			omega += sigiSq / c * (s - pIQ)

			gamma := sigi / c
			delta += gamma * sigiSq / (c * c) * pIQ * pQI
		}

		out[i] = model.Rating{
			Mu:    mui + omega,
			Sigma: sigi * math.Sqrt(math.Max(1-delta, e.kappa)),
		}
	}
	return out, nil
}

// outcome is 1 when rank a beats rank b, 0.5 on a tie and 0 otherwise.
func outcome(a, b int) float64 {
	switch {
	case a < b:
		return 1
	case a == b:
		return 0.5
	default:
		return 0
	}
}

// Exposure is the conservative skill estimate mu - k*sigma.
func (e *Engine) Exposure(r model.Rating) float64 {
	return r.Mu - e.k*r.Sigma
}

// Leaderboard fills Exposure and Rank and orders players by descending
// exposure, breaking ties by player id. Equal exposures share a rank.
func (e *Engine) Leaderboard(players []model.RatedPlayer) []model.RatedPlayer {
	out := make([]model.RatedPlayer, len(players))
	copy(out, players)
	for i := range out {
		out[i].Exposure = e.Exposure(out[i].Rating)
	}
	sort.SliceStable(out, func(a, b int) bool {
		if out[a].Exposure != out[b].Exposure {
			return out[a].Exposure > out[b].Exposure
		}
		return out[a].PlayerID < out[b].PlayerID
	})
	for i := range out {
		if i > 0 && out[i].Exposure == out[i-1].Exposure {
			out[i].Rank = out[i-1].Rank
			continue
		}
		out[i].Rank = i + 1
	}
	return out
}
