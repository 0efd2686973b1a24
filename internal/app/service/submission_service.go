package service

import (
	"context"
	"errors"
	"fmt"

	"codeduel/internal/app/judging"
	"codeduel/internal/common"
	"codeduel/internal/domain/model"
	"codeduel/internal/domain/repository"
	"codeduel/internal/platform/logging"
	"codeduel/internal/platform/metrics"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// SubmissionQueue hands submission ids to the background judging worker.
type SubmissionQueue interface {
	Enqueue(ctx context.Context, submissionID string) error
}

type SubmissionService struct {
	submissionRepo repository.SubmissionRepository
	problemRepo    repository.ProblemRepository
	runner         *judging.Runner
	languages      LanguageCatalog
	streaks        *StreakService
	queue          SubmissionQueue
	log            *log.Entry
}

func NewSubmissionService(
	subRepo repository.SubmissionRepository,
	probRepo repository.ProblemRepository,
	runner *judging.Runner,
	languages LanguageCatalog,
	streaks *StreakService,
	queue SubmissionQueue,
) *SubmissionService {
	return &SubmissionService{
		submissionRepo: subRepo,
		problemRepo:    probRepo,
		runner:         runner,
		languages:      languages,
		streaks:        streaks,
		queue:          queue,
		log:            logging.Component("submission"),
	}
}

type CodeRequest struct {
	ProblemID  string `json:"problemId" validate:"required"`
	LanguageID int    `json:"languageId" validate:"required,gt=0"`
	SourceCode string `json:"sourceCode" validate:"required,max=65536"`
}

type RunResponse struct {
	TotalTestcases  int                `json:"totalTestcases"`
	PassedTestcases int                `json:"passedTestcases"`
	Incomplete      bool               `json:"incomplete"`
	TestResults     []model.TestResult `json:"testResults"`
}

func runResponse(report *judging.Report) *RunResponse {
	return &RunResponse{
		TotalTestcases:  report.Total,
		PassedTestcases: report.Passed,
		Incomplete:      report.Incomplete,
		TestResults:     report.Results,
	}
}

func (s *SubmissionService) loadProblem(ctx context.Context, req CodeRequest) (*model.Problem, error) {
	if err := checkLanguage(s.languages, req.LanguageID); err != nil {
		return nil, err
	}
	return s.problemRepo.FindProblemByID(ctx, req.ProblemID)
}

// Run judges the visible testcases only and persists nothing.
func (s *SubmissionService) Run(ctx context.Context, userID string, req CodeRequest) (*RunResponse, error) {
	problem, err := s.loadProblem(ctx, req)
	if err != nil {
		return nil, err
	}
	report, err := s.runner.Run(ctx, problem.TestCases, req.LanguageID, req.SourceCode, judging.Options{IncludeHidden: false})
	if err != nil {
		return nil, fmt.Errorf("running code on problem %s: %w", problem.ID, err)
	}
	s.log.WithFields(log.Fields{"user_id": userID, "problem_id": problem.ID, "passed": report.Passed, "total": report.Total}).Info("code run")
	return runResponse(report), nil
}

// Submit judges every testcase and persists a single terminal submission.
// When the judge is unreachable nothing is stored.
func (s *SubmissionService) Submit(ctx context.Context, userID string, req CodeRequest) (*model.Submission, error) {
	problem, err := s.loadProblem(ctx, req)
	if err != nil {
		return nil, err
	}
	report, err := s.runner.Run(ctx, problem.TestCases, req.LanguageID, req.SourceCode, judging.Options{IncludeHidden: true})
	if err != nil {
		return nil, fmt.Errorf("judging submission for problem %s: %w", problem.ID, err)
	}

	sub := &model.Submission{
		ID:         uuid.NewString(),
		UserID:     userID,
		ProblemID:  problem.ID,
		LanguageID: req.LanguageID,
		SourceCode: req.SourceCode,
	}
	applyReport(sub, report)

	if err := s.submissionRepo.CreateSubmission(ctx, sub); err != nil {
		return nil, fmt.Errorf("saving submission: %w", err)
	}
	s.afterVerdict(ctx, sub)

	redacted := sub.Redacted()
	return &redacted, nil
}

func applyReport(sub *model.Submission, report *judging.Report) {
	outcome := judging.Aggregate(report.Results, judging.ModePractice)
	sub.Status = outcome.Verdict
	sub.IsCorrect = outcome.IsCorrect
	sub.PassedCount = outcome.Passed
	sub.TotalCount = outcome.Total
	sub.Incomplete = report.Incomplete
	sub.TestResults = report.Results
}

// afterVerdict runs once per terminal submission. A streak failure is logged;
// the verdict itself already stands.
func (s *SubmissionService) afterVerdict(ctx context.Context, sub *model.Submission) {
	metrics.SubmissionsTotal.WithLabelValues(string(judging.ModePractice), string(sub.Status)).Inc()
	entry := s.log.WithFields(log.Fields{
		"submission_id": sub.ID, "user_id": sub.UserID, "problem_id": sub.ProblemID,
		"verdict": sub.Status, "passed": sub.PassedCount, "total": sub.TotalCount,
	})
	entry.Info("submission judged")

	if !sub.IsCorrect || s.streaks == nil {
		return
	}
	if _, err := s.streaks.RecordSolve(ctx, sub.UserID, sub.CreatedAt); err != nil {
		entry.WithError(err).Error("failed to update streak")
	}
}

// SubmitAsync stores a Created submission and queues it for the worker.
func (s *SubmissionService) SubmitAsync(ctx context.Context, userID string, req CodeRequest) (*model.Submission, error) {
	if s.queue == nil {
		return nil, common.Errorf("%w: async judging is disabled", common.ErrServiceUnavailable)
	}
	problem, err := s.loadProblem(ctx, req)
	if err != nil {
		return nil, err
	}

	sub := &model.Submission{
		ID:          uuid.NewString(),
		UserID:      userID,
		ProblemID:   problem.ID,
		LanguageID:  req.LanguageID,
		SourceCode:  req.SourceCode,
		Status:      model.StatusCreated,
		TestResults: []model.TestResult{},
	}
	if err := s.submissionRepo.CreateSubmission(ctx, sub); err != nil {
		return nil, fmt.Errorf("saving submission: %w", err)
	}
	if err := s.queue.Enqueue(ctx, sub.ID); err != nil {
		s.log.WithError(err).WithField("submission_id", sub.ID).Error("failed to enqueue submission")
		s.markFailed(ctx, sub, model.StatusCreated)
		return nil, common.Errorf("%w: could not queue submission: %v", common.ErrServiceUnavailable, err)
	}
	return sub, nil
}

// JudgeQueued drives a queued submission from Created through Judging to its
// verdict. A submission that is no longer Created is left alone.
func (s *SubmissionService) JudgeQueued(ctx context.Context, submissionID string) error {
	sub, err := s.submissionRepo.GetSubmissionByID(ctx, submissionID)
	if err != nil {
		return err
	}
	if sub.Status != model.StatusCreated {
		s.log.WithFields(log.Fields{"submission_id": sub.ID, "status": sub.Status}).Warn("skipping submission that is not queued")
		return nil
	}
	if err := s.submissionRepo.TransitionStatus(ctx, sub.ID, model.StatusCreated, model.StatusJudging); err != nil {
		if errors.Is(err, common.ErrConflict) {
			return nil
		}
		return err
	}
	sub.Status = model.StatusJudging

	problem, err := s.problemRepo.FindProblemByID(ctx, sub.ProblemID)
	if err != nil {
		s.markFailed(ctx, sub, model.StatusJudging)
		return fmt.Errorf("loading problem %s: %w", sub.ProblemID, err)
	}
	report, err := s.runner.Run(ctx, problem.TestCases, sub.LanguageID, sub.SourceCode, judging.Options{IncludeHidden: true})
	if err != nil {
		s.markFailed(ctx, sub, model.StatusJudging)
		return fmt.Errorf("judging submission %s: %w", sub.ID, err)
	}

	applyReport(sub, report)
	if err := s.submissionRepo.CompleteSubmission(ctx, sub); err != nil {
		return fmt.Errorf("completing submission %s: %w", sub.ID, err)
	}
	s.afterVerdict(ctx, sub)
	return nil
}

// markFailed records Judge Failed with no partial results.
func (s *SubmissionService) markFailed(ctx context.Context, sub *model.Submission, from model.SubmissionStatus) {
	ctx = context.WithoutCancel(ctx)
	if from == model.StatusCreated {
		if err := s.submissionRepo.TransitionStatus(ctx, sub.ID, model.StatusCreated, model.StatusJudging); err != nil {
			s.log.WithError(err).WithField("submission_id", sub.ID).Error("failed to move submission to judging")
			return
		}
	}
	sub.Status = model.StatusJudgeFailed
	sub.IsCorrect = false
	sub.PassedCount = 0
	sub.TotalCount = 0
	sub.TestResults = []model.TestResult{}
	if err := s.submissionRepo.CompleteSubmission(ctx, sub); err != nil {
		s.log.WithError(err).WithField("submission_id", sub.ID).Error("failed to mark submission as judge failed")
		return
	}
	metrics.SubmissionsTotal.WithLabelValues(string(judging.ModePractice), string(sub.Status)).Inc()
}

// GetSubmission returns a submission to its owner, or to an admin. Other
// users get ErrNotFound so ids cannot be probed.
func (s *SubmissionService) GetSubmission(ctx context.Context, userID, role, submissionID string) (*model.Submission, error) {
	sub, err := s.submissionRepo.GetSubmissionByID(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if role == model.RoleAdmin {
		return sub, nil
	}
	if sub.UserID != userID {
		return nil, fmt.Errorf("submission: %w", common.ErrNotFound)
	}
	redacted := sub.Redacted()
	return &redacted, nil
}

func (s *SubmissionService) ListMySubmissions(ctx context.Context, userID, problemID string, page, pageSize int) ([]model.Submission, int, error) {
	limit, offset := paginate(page, pageSize)
	return s.submissionRepo.ListSubmissionsByUser(ctx, userID, problemID, limit, offset)
}

const maxPageSize = 100

func paginate(page, pageSize int) (limit, offset int) {
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	if page < 1 {
		page = 1
	}
	return pageSize, (page - 1) * pageSize
}
