package model

import "time"

// SubmissionStatus moves Created -> Judging -> one terminal verdict.
type SubmissionStatus string

const (
	StatusCreated          SubmissionStatus = "Created"
	StatusJudging          SubmissionStatus = "Judging"
	StatusAccepted         SubmissionStatus = "Accepted"
	StatusWrongAnswer      SubmissionStatus = "Wrong Answer"
	StatusRuntimeError     SubmissionStatus = "Runtime Error"
	StatusCompilationError SubmissionStatus = "Compilation Error"
	StatusJudgeFailed      SubmissionStatus = "Judge Failed"
)

func (s SubmissionStatus) IsTerminal() bool {
	switch s {
	case StatusAccepted, StatusWrongAnswer, StatusRuntimeError, StatusCompilationError, StatusJudgeFailed:
		return true
	}
	return false
}

func (s SubmissionStatus) CanTransitionTo(next SubmissionStatus) bool {
	switch s {
	case StatusCreated:
		return next == StatusJudging
	case StatusJudging:
		return next.IsTerminal()
	}
	return false
}

type Submission struct {
	ID          string           `json:"submissionId"`
	UserID      string           `json:"userId"`
	ProblemID   string           `json:"problemId"`
	LanguageID  int              `json:"languageId"`
	SourceCode  string           `json:"sourceCode"`
	Status      SubmissionStatus `json:"verdict"`
	IsCorrect   bool             `json:"isCorrect"`
	PassedCount int              `json:"passedTestCases"`
	TotalCount  int              `json:"totalTestCases"`
	Incomplete  bool             `json:"incomplete"`
	TestResults []TestResult     `json:"testResults"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

// TestResult is the judged outcome of one testcase.
type TestResult struct {
	TestCaseID     string `json:"testcaseId,omitempty"`
	Input          string `json:"input"`
	ExpectedOutput string `json:"expectedOutput"`
	ActualOutput   string `json:"actualOutput"`
	Passed         bool   `json:"passed"`
	Hidden         bool   `json:"hidden"`
	Time           string `json:"time,omitempty"`
	Memory         int    `json:"memory,omitempty"`
	StatusID       int    `json:"statusId,omitempty"`
	Status         string `json:"status,omitempty"`
	Stderr         string `json:"stderr,omitempty"`
	CompileOutput  string `json:"compileOutput,omitempty"`
	TimedOut       bool   `json:"timedOut,omitempty"`
	Error          string `json:"error,omitempty"`
}

// Redacted blanks the testcase content of hidden results, including judge
// output that could echo the input back.
func (r TestResult) Redacted() TestResult {
	if !r.Hidden {
		return r
	}
	r.Input = ""
	r.ExpectedOutput = ""
	r.ActualOutput = ""
	r.Stderr = ""
	return r
}

func RedactResults(results []TestResult) []TestResult {
	out := make([]TestResult, len(results))
	for i, r := range results {
		out[i] = r.Redacted()
	}
	return out
}

// Redacted returns a copy safe to show to the submitting user.
func (s Submission) Redacted() Submission {
	s.TestResults = RedactResults(s.TestResults)
	return s
}
