package model

import "time"

type LeaderboardEntry struct {
	Rank           int    `json:"rank"`
	UserID         string `json:"userId"`
	Username       string `json:"username"`
	ProblemsSolved int    `json:"problemsSolved"`
}

// RankedEntry is one row of a contest leaderboard. ReachedAt is the time the
// user reached their current Solved/Score and breaks ties, earlier first.
type RankedEntry struct {
	Rank      int       `json:"rank"`
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	Solved    int       `json:"solvedCount"`
	Score     float64   `json:"score"`
	Attempts  int       `json:"attempts"`
	ReachedAt time.Time `json:"reachedAt"`
}
