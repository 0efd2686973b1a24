package judging

import (
	"math"
	"strings"

	"codeduel/internal/domain/model"
	"codeduel/internal/platform/judge0"
)

type Mode string

const (
	ModePractice Mode = "practice"
	ModeContest  Mode = "contest"
)

type Outcome struct {
	Verdict   model.SubmissionStatus
	IsCorrect bool
	PassedAll bool
	Score     float64 // contest mode only
	Passed    int
	Total     int
}

// Aggregate folds per-testcase results into one verdict. A submission is
// correct only when it has testcases and passes all of them.
func Aggregate(results []model.TestResult, mode Mode) Outcome {
	o := Outcome{Total: len(results)}
	for _, r := range results {
		if r.Passed {
			o.Passed++
		}
	}
	o.PassedAll = o.Total > 0 && o.Passed == o.Total
	o.IsCorrect = o.PassedAll
	if mode == ModeContest {
		o.Score = Score(o.Passed, o.Total)
	}

	switch {
	case o.IsCorrect:
		o.Verdict = model.StatusAccepted
	case anyResult(results, isCompilationError):
		o.Verdict = model.StatusCompilationError
	case anyResult(results, isRuntimeError):
		o.Verdict = model.StatusRuntimeError
	default:
		o.Verdict = model.StatusWrongAnswer
	}
	return o
}

// Score is 100 * passed / total rounded to two decimals, and 0 without testcases.
func Score(passed, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(passed)*10000/float64(total)) / 100
}

func anyResult(results []model.TestResult, pred func(model.TestResult) bool) bool {
	for _, r := range results {
		if pred(r) {
			return true
		}
	}
	return false
}

func isCompilationError(r model.TestResult) bool {
	if r.StatusID != 0 {
		return judge0.Status{ID: r.StatusID}.IsCompilationError()
	}
	return strings.HasPrefix(r.Status, string(model.StatusCompilationError))
}

func isRuntimeError(r model.TestResult) bool {
	if r.StatusID != 0 {
		return judge0.Status{ID: r.StatusID}.IsRuntimeError()
	}
	return strings.HasPrefix(r.Status, string(model.StatusRuntimeError))
}
