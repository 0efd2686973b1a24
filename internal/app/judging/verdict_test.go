package judging

import (
	"math"
	"testing"

	"codeduel/internal/domain/model"

	"github.com/stretchr/testify/assert"
)

func results(passed ...bool) []model.TestResult {
	out := make([]model.TestResult, len(passed))
	for i, p := range passed {
		out[i] = model.TestResult{Passed: p, StatusID: 3, Status: "Accepted"}
	}
	return out
}

func TestAggregateCorrectnessRequiresAllPass(t *testing.T) {
	cases := []struct {
		name    string
		results []model.TestResult
		correct bool
	}{
		{"all pass", results(true, true, true), true},
		{"one fails", results(true, false, true), false},
		{"none", results(), false},
		{"single pass", results(true), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			o := Aggregate(tc.results, ModePractice)
			assert.Equal(t, tc.correct, o.IsCorrect)
			assert.LessOrEqual(t, o.Passed, o.Total)
			assert.Equal(t, o.IsCorrect, o.Total > 0 && o.Passed == o.Total)
			if tc.correct {
				assert.Equal(t, model.StatusAccepted, o.Verdict)
			} else {
				assert.Equal(t, model.StatusWrongAnswer, o.Verdict)
			}
		})
	}
}

func TestAggregateSurfacesJudgeErrors(t *testing.T) {
	rs := results(true, false)
	rs[1].StatusID = 11
	rs[1].Status = "Runtime Error (NZEC)"
	assert.Equal(t, model.StatusRuntimeError, Aggregate(rs, ModePractice).Verdict)

	rs = results(false, false)
	rs[0].StatusID = 6
	rs[0].Status = "Compilation Error"
	rs[1].StatusID = 11
	assert.Equal(t, model.StatusCompilationError, Aggregate(rs, ModePractice).Verdict)

	rs = results(false)
	rs[0].StatusID = 5
	rs[0].Status = "Time Limit Exceeded"
	assert.Equal(t, model.StatusWrongAnswer, Aggregate(rs, ModePractice).Verdict)

	rs = []model.TestResult{{Status: "Runtime Error (SIGSEGV)"}}
	assert.Equal(t, model.StatusRuntimeError, Aggregate(rs, ModePractice).Verdict)
}

func TestAggregateContestScore(t *testing.T) {
	o := Aggregate(results(true, true, false), ModeContest)
	assert.Equal(t, 66.67, o.Score)
	assert.False(t, o.PassedAll)

	o = Aggregate(results(true, true), ModeContest)
	assert.Equal(t, 100.0, o.Score)
	assert.True(t, o.PassedAll)

	assert.Zero(t, Aggregate(results(true), ModePractice).Score, "practice carries no score")
}

func TestScoreWithoutTestcases(t *testing.T) {
	s := Score(0, 0)
	assert.Equal(t, 0.0, s)
	assert.False(t, math.IsNaN(s) || math.IsInf(s, 0))

	o := Aggregate(nil, ModeContest)
	assert.Equal(t, 0.0, o.Score)
	assert.False(t, o.IsCorrect)
	assert.False(t, o.PassedAll)
}
