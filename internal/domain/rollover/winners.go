package rollover

import (
	"sort"

	"github.com/okian/wordleboard/internal/domain/model"
)

// DailyWinners returns the lowest score and every player id that reached it,
// sorted by id. Empty input yields no winners.
func DailyWinners(records []model.ScoreRecord) (int, []string) {
	if len(records) == 0 {
		return 0, nil
	}
	best := records[0].Score
	for _, r := range records[1:] {
		best = min(best, r.Score)
	}
	var ids []string
	for _, r := range records {
		if r.Score == best {
			ids = append(ids, r.PlayerID)
		}
	}
	sort.Strings(ids)
	return best, ids
}

// WeeklyWinners returns the lowest average among rows with games and the
// names of everyone tied at it, in row order.
func WeeklyWinners(rows []model.Standing) (float64, []string) {
	var (
		best  float64
		names []string
	)
	for _, r := range rows {
		if r.Empty() {
			continue
		}
		switch {
		case names == nil || r.Average < best:
			best = r.Average
			names = []string{r.Name}
		case r.Average == best:
			names = append(names, r.Name)
		}
	}
	return best, names
}
