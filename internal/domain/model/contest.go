package model

import "time"

type ContestStatus string

const (
	ContestUpcoming ContestStatus = "upcoming"
	ContestActive   ContestStatus = "active"
	ContestEnded    ContestStatus = "ended"
)

type Contest struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	ProblemIDs  []string  `json:"problemIds"`
	StartTime   time.Time `json:"startTime"`
	EndTime     time.Time `json:"endTime"`
	CreatedBy   string    `json:"createdBy"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// StatusAt derives the status from the half-open window [StartTime, EndTime).
func (c *Contest) StatusAt(now time.Time) ContestStatus {
	if now.Before(c.StartTime) {
		return ContestUpcoming
	}
	if now.Before(c.EndTime) {
		return ContestActive
	}
	return ContestEnded
}

func (c *Contest) IsActiveAt(now time.Time) bool {
	return c.StatusAt(now) == ContestActive
}

func (c *Contest) HasProblem(problemID string) bool {
	for _, id := range c.ProblemIDs {
		if id == problemID {
			return true
		}
	}
	return false
}

// ContestSubmission is one attempt; a user may attempt a problem many times.
type ContestSubmission struct {
	ID          string       `json:"submissionId"`
	ContestID   string       `json:"contestId"`
	UserID      string       `json:"userId"`
	ProblemID   string       `json:"problemId"`
	LanguageID  int          `json:"languageId"`
	SourceCode  string       `json:"sourceCode"`
	Score       float64      `json:"score"`
	PassedAll   bool         `json:"passedAll"`
	PassedCount int          `json:"passedTestCases"`
	TotalCount  int          `json:"totalTestCases"`
	Incomplete  bool         `json:"incomplete"`
	TestResults []TestResult `json:"testResults"`
	CreatedAt   time.Time    `json:"createdAt"`
}

func (s ContestSubmission) Redacted() ContestSubmission {
	s.TestResults = RedactResults(s.TestResults)
	return s
}
