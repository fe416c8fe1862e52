package simulate

import (
	"errors"
	"fmt"
)

// verify checks the ordering and ranking rules of every fetched board.
func verify(rep *Report) error {
	var errs []error
	if rep.Stats.Failed > 0 {
		errs = append(errs, fmt.Errorf("%d callbacks failed", rep.Stats.Failed))
	}
	for name, rows := range map[string][]Entry{
		"daily":  rep.Daily,
		"weekly": rep.Weekly,
		"all":    rep.AllTime,
	} {
		if err := verifyStandings(rows); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	if err := verifyRatings(rep.Ratings); err != nil {
		errs = append(errs, fmt.Errorf("rating: %w", err))
	}
	if rep.Stats.Scores > 0 && len(rep.AllTime) == 0 {
		errs = append(errs, errors.New("scores were accepted but the all-time board is empty"))
	}
	return errors.Join(errs...)
}

// verifyStandings expects ascending averages with competition ranks.
func verifyStandings(rows []Entry) error {
	for i, r := range rows {
		if r.Games < 1 {
			return fmt.Errorf("row %d (%s) has no games", i, r.PlayerID)
		}
		if i == 0 {
			if r.Rank != 1 {
				return fmt.Errorf("first row has rank %d", r.Rank)
			}
			continue
		}
		prev := rows[i-1]
		switch {
		case r.Average < prev.Average:
			return fmt.Errorf("row %d average %.3f is below row %d average %.3f", i, r.Average, i-1, prev.Average)
		case r.Average == prev.Average && r.Rank != prev.Rank:
			return fmt.Errorf("tied rows %d and %d have ranks %d and %d", i-1, i, prev.Rank, r.Rank)
		case r.Average != prev.Average && r.Rank != i+1:
			return fmt.Errorf("row %d has rank %d, want %d", i, r.Rank, i+1)
		}
	}
	return nil
}

// verifyRatings expects descending exposure with competition ranks.
func verifyRatings(rows []RatingEntry) error {
	for i, r := range rows {
		if r.Sigma <= 0 {
			return fmt.Errorf("row %d (%s) has sigma %.3f", i, r.PlayerID, r.Sigma)
		}
		want := i + 1
		if i > 0 {
			prev := rows[i-1]
			if r.Exposure > prev.Exposure {
				return fmt.Errorf("row %d exposure %.3f exceeds row %d exposure %.3f", i, r.Exposure, i-1, prev.Exposure)
			}
			if r.Exposure == prev.Exposure {
				want = prev.Rank
			}
		}
		if r.Rank != want {
			return fmt.Errorf("row %d has rank %d, want %d", i, r.Rank, want)
		}
	}
	return nil
}
