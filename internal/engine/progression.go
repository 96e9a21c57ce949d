package engine

import (
	"slices"
)

// themeWinner picks the identity with the higher scoreGained total within the
// theme's rounds. Ties fall back to the last round's winner.
func themeWinner(s State, themeID string) string {
	totals := map[string]int{}
	var last RoundResult
	found := false
	for _, r := range s.History {
		if r.ThemeID != themeID {
			continue
		}
		totals[r.WinnerUserID] += r.ScoreGained
		last = r
		found = true
	}
	if !found {
		return ""
	}
	best, tie := argmax(totals)
	if tie {
		return last.WinnerUserID
	}
	return best
}

// globalWinner returns the highest cumulative scorer, or draw=true when the
// top scores are equal. No hidden tie-break rule.
func globalWinner(scores map[string]int) (winner string, draw bool) {
	if len(scores) == 0 {
		return "", true
	}
	best, tie := argmax(scores)
	if tie {
		return "", true
	}
	return best, false
}

// argmax iterates ids in sorted order so results are deterministic.
func argmax(totals map[string]int) (best string, tie bool) {
	var bestScore int
	first := true
	ids := make([]string, 0, len(totals))
	for id := range totals {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		score := totals[id]
		switch {
		case first || score > bestScore:
			best, bestScore, tie, first = id, score, false, false
		case score == bestScore:
			tie = true
		}
	}
	return best, tie
}
