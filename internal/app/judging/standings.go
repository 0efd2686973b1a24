package judging

import (
	"math"
	"sort"
	"time"

	"codeduel/internal/domain/model"
)

type RankingMode string

const (
	// RankBySolved counts distinct problems with a fully passing attempt.
	RankBySolved RankingMode = "solved"
	// RankByScore sums each problem's best attempt score.
	RankByScore RankingMode = "score"
)

func ParseRankingMode(s string) RankingMode {
	if RankingMode(s) == RankByScore {
		return RankByScore
	}
	return RankBySolved
}

type problemProgress struct {
	firstAccepted time.Time
	bestScore     float64
	bestAt        time.Time
}

type userProgress struct {
	attempts int
	problems map[string]*problemProgress
}

// Rank recomputes contest standings from the attempt log. Users whose
// primary metric is zero are left out. Ties on the metric go to whoever
// reached it first: for solved counts that is the latest of the first
// fully passing attempt per problem, so a later redundant solve never
// moves a user.
func Rank(subs []model.ContestSubmission, mode RankingMode) []model.RankedEntry {
	users := make(map[string]*userProgress)
	for _, s := range subs {
		u, ok := users[s.UserID]
		if !ok {
			u = &userProgress{problems: make(map[string]*problemProgress)}
			users[s.UserID] = u
		}
		u.attempts++

		p, ok := u.problems[s.ProblemID]
		if !ok {
			p = &problemProgress{}
			u.problems[s.ProblemID] = p
		}
		if s.PassedAll && (p.firstAccepted.IsZero() || s.CreatedAt.Before(p.firstAccepted)) {
			p.firstAccepted = s.CreatedAt
		}
		if s.Score > p.bestScore || (s.Score == p.bestScore && s.Score > 0 && s.CreatedAt.Before(p.bestAt)) {
			p.bestScore = s.Score
			p.bestAt = s.CreatedAt
		}
	}

	entries := make([]model.RankedEntry, 0, len(users))
	for userID, u := range users {
		e := model.RankedEntry{UserID: userID, Attempts: u.attempts}
		var solvedAt, scoredAt time.Time
		for _, p := range u.problems {
			if !p.firstAccepted.IsZero() {
				e.Solved++
				if p.firstAccepted.After(solvedAt) {
					solvedAt = p.firstAccepted
				}
			}
			if p.bestScore > 0 {
				e.Score += p.bestScore
				if p.bestAt.After(scoredAt) {
					scoredAt = p.bestAt
				}
			}
		}
		e.Score = math.Round(e.Score*100) / 100

		if mode == RankByScore {
			if e.Score <= 0 {
				continue
			}
			e.ReachedAt = scoredAt
		} else {
			if e.Solved == 0 {
				continue
			}
			e.ReachedAt = solvedAt
		}
		entries = append(entries, e)
	}

	metric := func(e model.RankedEntry) float64 {
		if mode == RankByScore {
			return e.Score
		}
		return float64(e.Solved)
	}

	sort.Slice(entries, func(i, j int) bool {
		mi, mj := metric(entries[i]), metric(entries[j])
		if mi != mj {
			return mi > mj
		}
		if !entries[i].ReachedAt.Equal(entries[j].ReachedAt) {
			return entries[i].ReachedAt.Before(entries[j].ReachedAt)
		}
		return entries[i].UserID < entries[j].UserID
	})

	for i := range entries {
		if i > 0 && metric(entries[i]) == metric(entries[i-1]) && entries[i].ReachedAt.Equal(entries[i-1].ReachedAt) {
			entries[i].Rank = entries[i-1].Rank
		} else {
			entries[i].Rank = i + 1
		}
	}
	return entries
}
