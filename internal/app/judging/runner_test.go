package judging

import (
	"context"
	"fmt"
	"testing"
	"time"

	"codeduel/internal/domain/model"
	"codeduel/internal/platform/judge0"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func threeCases() []model.TestCase {
	return []model.TestCase{
		{ID: "t1", Input: "1", ExpectedOutput: "1"},
		{ID: "t2", Input: "2", ExpectedOutput: "3"},
		{ID: "t3", Input: "3", ExpectedOutput: "3", IsHidden: true},
	}
}

func TestRunPartialPass(t *testing.T) {
	judge := &fakeJudge{outputs: map[string]string{"1": "1\n", "2": "3", "3": "4"}}
	r := NewRunner(judge, RunnerConfig{})

	report, err := r.Run(context.Background(), threeCases(), 71, "src", Options{IncludeHidden: true})
	require.NoError(t, err)

	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 2, report.Passed)
	assert.Equal(t, []bool{true, true, false}, []bool{report.Results[0].Passed, report.Results[1].Passed, report.Results[2].Passed})

	o := Aggregate(report.Results, ModePractice)
	assert.False(t, o.IsCorrect)
	assert.Equal(t, model.StatusWrongAnswer, o.Verdict)
}

func TestRunExcludesHiddenUnlessAsked(t *testing.T) {
	judge := &fakeJudge{outputs: map[string]string{"1": "1", "2": "3", "3": "3"}}
	r := NewRunner(judge, RunnerConfig{})

	run, err := r.Run(context.Background(), threeCases(), 71, "src", Options{IncludeHidden: false})
	require.NoError(t, err)
	assert.Len(t, run.Results, 2)
	assert.Equal(t, 2, judge.callCount())

	submit, err := r.Run(context.Background(), threeCases(), 71, "src", Options{IncludeHidden: true})
	require.NoError(t, err)
	assert.Len(t, submit.Results, 3)
	assert.True(t, submit.Results[2].Hidden)
}

func TestRunTrimsButComparesStrictly(t *testing.T) {
	assert.True(t, OutputsMatch("  42\n\n", "42"))
	assert.False(t, OutputsMatch("1  2", "1 2"), "internal whitespace is significant")
	assert.False(t, OutputsMatch("0.50", "0.5"), "no numeric tolerance")
}

func TestRunRecordsPerTestcaseErrors(t *testing.T) {
	judge := &fakeJudge{
		outputs: map[string]string{"1": "1", "3": "3"},
		errs: map[string]error{
			"2": fmt.Errorf("%w: status 422", judge0.ErrJudgeRejected),
		},
	}
	r := NewRunner(judge, RunnerConfig{})

	report, err := r.Run(context.Background(), threeCases(), 71, "src", Options{IncludeHidden: true})
	require.NoError(t, err)

	failed := report.Results[1]
	assert.False(t, failed.Passed)
	assert.Empty(t, failed.ActualOutput)
	assert.Contains(t, failed.Error, "422")
	assert.True(t, report.Results[2].Passed, "judging continues after a failure")
	assert.Equal(t, 3, judge.callCount())
}

func TestRunTimeoutsMarkIncomplete(t *testing.T) {
	judge := &fakeJudge{
		outputs: map[string]string{"1": "1"},
		errs:    map[string]error{"2": judge0.ErrJudgeTimeout, "3": judge0.ErrJudgeTimeout},
	}

	report, err := NewRunner(judge, RunnerConfig{MaxTimeouts: 1}).Run(context.Background(), threeCases(), 71, "src", Options{IncludeHidden: true})
	require.NoError(t, err)
	assert.Equal(t, 2, report.TimedOut)
	assert.True(t, report.Incomplete)
	assert.Equal(t, 1, report.Passed)

	report, err = NewRunner(judge, RunnerConfig{MaxTimeouts: 2}).Run(context.Background(), threeCases(), 71, "src", Options{IncludeHidden: true})
	require.NoError(t, err)
	assert.False(t, report.Incomplete)
}

func TestRunPerTestcaseDeadline(t *testing.T) {
	judge := &fakeJudge{block: make(chan struct{})}
	defer close(judge.block)

	cases := []model.TestCase{{ID: "t1", Input: "1", ExpectedOutput: "1"}}
	report, err := NewRunner(judge, RunnerConfig{TestcaseTimeout: 20 * time.Millisecond}).Run(context.Background(), cases, 71, "src", Options{})
	require.NoError(t, err)
	assert.True(t, report.Results[0].TimedOut)
	assert.False(t, report.Results[0].Passed)
}

func TestRunAbortsWhenJudgeUnavailable(t *testing.T) {
	judge := &fakeJudge{
		outputs: map[string]string{"1": "1", "3": "3"},
		errs:    map[string]error{"2": judge0.ErrJudgeUnavailable},
	}

	report, err := NewRunner(judge, RunnerConfig{}).Run(context.Background(), threeCases(), 71, "src", Options{IncludeHidden: true})
	assert.ErrorIs(t, err, judge0.ErrJudgeUnavailable)
	assert.Nil(t, report)
	assert.Equal(t, 2, judge.callCount(), "sequential run stops at the unavailable testcase")
}

func TestRunParallelKeepsSourceOrder(t *testing.T) {
	var cases []model.TestCase
	outputs := map[string]string{}
	for i := 0; i < 20; i++ {
		in := fmt.Sprint(i)
		cases = append(cases, model.TestCase{ID: "t" + in, Input: in, ExpectedOutput: in})
		if i%2 == 0 {
			outputs[in] = in
		}
	}
	judge := &fakeJudge{outputs: outputs}

	report, err := NewRunner(judge, RunnerConfig{Parallelism: 4}).Run(context.Background(), cases, 71, "src", Options{})
	require.NoError(t, err)

	require.Len(t, report.Results, 20)
	for i, res := range report.Results {
		assert.Equal(t, fmt.Sprint(i), res.Input)
		assert.Equal(t, i%2 == 0, res.Passed)
	}
	assert.Equal(t, 10, report.Passed)
	assert.LessOrEqual(t, judge.maxSeen, int32(4))
}

func TestRunEmptyTestcases(t *testing.T) {
	report, err := NewRunner(&fakeJudge{}, RunnerConfig{}).Run(context.Background(), nil, 71, "src", Options{IncludeHidden: true})
	require.NoError(t, err)
	assert.Equal(t, 0, report.Total)
	assert.Empty(t, report.Results)
}

func TestRunCallerCancellationReturnsNoReport(t *testing.T) {
	judge := &fakeJudge{outputs: map[string]string{"1": "1"}, block: make(chan struct{})}
	r := NewRunner(judge, RunnerConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)
	report, err := r.Run(ctx, threeCases(), 71, "src", Options{IncludeHidden: true})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, report)
}
