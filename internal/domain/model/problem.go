package model

import (
	"time"
)

type ProblemDifficulty string

const (
	DifficultyEasy   ProblemDifficulty = "EASY"
	DifficultyMedium ProblemDifficulty = "MEDIUM"
	DifficultyHard   ProblemDifficulty = "HARD"
)

func (d ProblemDifficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

type Problem struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Slug        string            `json:"slug"`
	Description string            `json:"description"`
	Difficulty  ProblemDifficulty `json:"difficulty"`
	Tags        []string          `json:"tags"`
	Constraints string            `json:"constraints,omitempty"`
	CreatedByID *string           `json:"createdBy,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
	TestCases   []TestCase        `json:"testcases,omitempty"` // ordered by SortOrder
}

// TestCase output is compared after trimming surrounding whitespace, nothing more.
type TestCase struct {
	ID             string    `json:"id"`
	ProblemID      string    `json:"problemId"`
	Input          string    `json:"input"`
	ExpectedOutput string    `json:"expectedOutput"`
	IsHidden       bool      `json:"isHidden"`
	SortOrder      int       `json:"sortOrder"`
	CreatedAt      time.Time `json:"createdAt"`
}

// VisibleTestCases returns the non-hidden testcases in source order.
func (p *Problem) VisibleTestCases() []TestCase {
	visible := make([]TestCase, 0, len(p.TestCases))
	for _, tc := range p.TestCases {
		if !tc.IsHidden {
			visible = append(visible, tc)
		}
	}
	return visible
}
