package judging

import (
	"context"
	"errors"
	"strings"
	"time"

	"codeduel/internal/domain/model"
	"codeduel/internal/platform/judge0"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Judge executes one program against one stdin. *judge0.Client implements it.
type Judge interface {
	Execute(ctx context.Context, req judge0.Request) (*judge0.Result, error)
}

type RunnerConfig struct {
	Parallelism     int
	TestcaseTimeout time.Duration
	MaxTimeouts     int // more timed-out testcases than this marks a report incomplete
}

type Options struct {
	IncludeHidden bool
}

// Report holds per-testcase results in testcase order.
type Report struct {
	Results    []model.TestResult
	Passed     int
	Total      int
	TimedOut   int
	Incomplete bool
}

type Runner struct {
	judge Judge
	cfg   RunnerConfig
	log   *log.Entry
}

func NewRunner(judge Judge, cfg RunnerConfig) *Runner {
	if cfg.Parallelism < 1 {
		cfg.Parallelism = 1
	}
	if cfg.TestcaseTimeout <= 0 {
		cfg.TestcaseTimeout = 20 * time.Second
	}
	return &Runner{judge: judge, cfg: cfg, log: log.WithFields(log.Fields{"from": "runner"})}
}

// SelectTestCases keeps source order and drops hidden testcases unless includeHidden.
func SelectTestCases(testcases []model.TestCase, includeHidden bool) []model.TestCase {
	selected := make([]model.TestCase, 0, len(testcases))
	for _, tc := range testcases {
		if tc.IsHidden && !includeHidden {
			continue
		}
		selected = append(selected, tc)
	}
	return selected
}

// OutputsMatch is exact equality after trimming surrounding whitespace.
func OutputsMatch(actual, expected string) bool {
	return strings.TrimSpace(actual) == strings.TrimSpace(expected)
}

// Run judges every selected testcase, even after a failure. Only
// judge0.ErrJudgeUnavailable aborts the run; other judge errors fail
// that testcase alone.
func (r *Runner) Run(ctx context.Context, testcases []model.TestCase, languageID int, source string, opts Options) (*Report, error) {
	selected := SelectTestCases(testcases, opts.IncludeHidden)
	results := make([]model.TestResult, len(selected))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Parallelism)
	for i, tc := range selected {
		i, tc := i, tc
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			res, err := r.judgeOne(gctx, tc, languageID, source)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	// a caller that gave up gets no partial report
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report := &Report{Results: results, Total: len(results)}
	for _, res := range results {
		if res.Passed {
			report.Passed++
		}
		if res.TimedOut {
			report.TimedOut++
		}
	}
	report.Incomplete = report.TimedOut > r.cfg.MaxTimeouts
	return report, nil
}

func (r *Runner) judgeOne(ctx context.Context, tc model.TestCase, languageID int, source string) (model.TestResult, error) {
	result := model.TestResult{
		TestCaseID:     tc.ID,
		Input:          tc.Input,
		ExpectedOutput: tc.ExpectedOutput,
		Hidden:         tc.IsHidden,
	}

	tctx, cancel := context.WithTimeout(ctx, r.cfg.TestcaseTimeout)
	defer cancel()

	out, err := r.judge.Execute(tctx, judge0.Request{LanguageID: languageID, SourceCode: source, Stdin: tc.Input})
	if err != nil {
		if errors.Is(err, judge0.ErrJudgeUnavailable) {
			return result, err
		}
		if errors.Is(err, judge0.ErrJudgeTimeout) || (errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil) {
			result.TimedOut = true
		}
		r.log.WithFields(log.Fields{"testcase": tc.ID, "timed_out": result.TimedOut}).WithError(err).Warn("testcase failed to judge")
		result.Error = err.Error()
		return result, nil
	}

	result.ActualOutput = out.StdoutString()
	result.Time = out.TimeString()
	result.Memory = out.MemoryKB()
	result.StatusID = out.Status.ID
	result.Status = out.Status.Description
	result.Stderr = out.StderrString()
	result.CompileOutput = out.CompileOutputString()
	result.Passed = OutputsMatch(result.ActualOutput, tc.ExpectedOutput)
	return result, nil
}
