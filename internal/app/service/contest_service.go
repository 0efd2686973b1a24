package service

import (
	"context"
	"fmt"
	"time"

	"codeduel/internal/app/judging"
	"codeduel/internal/common"
	"codeduel/internal/domain/model"
	"codeduel/internal/domain/repository"
	"codeduel/internal/platform/logging"
	"codeduel/internal/platform/metrics"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

type ContestService struct {
	contestRepo repository.ContestRepository
	problemRepo repository.ProblemRepository
	userRepo    repository.UserRepository
	runner      *judging.Runner
	languages   LanguageCatalog
	boards      BoardCache
	ranking     judging.RankingMode
	group       singleflight.Group
	now         func() time.Time
	log         *log.Entry
}

func NewContestService(
	contestRepo repository.ContestRepository,
	problemRepo repository.ProblemRepository,
	userRepo repository.UserRepository,
	runner *judging.Runner,
	languages LanguageCatalog,
	boards BoardCache,
	ranking judging.RankingMode,
) *ContestService {
	return &ContestService{
		contestRepo: contestRepo,
		problemRepo: problemRepo,
		userRepo:    userRepo,
		runner:      runner,
		languages:   languages,
		boards:      boards,
		ranking:     ranking,
		now:         time.Now,
		log:         logging.Component("contest"),
	}
}

type CreateContestRequest struct {
	Title       string    `json:"title" validate:"required,max=200"`
	Description string    `json:"description" validate:"max=10000"`
	ProblemIDs  []string  `json:"problemIds" validate:"required,min=1,max=26,dive,required"`
	StartTime   time.Time `json:"startTime" validate:"required"`
	EndTime     time.Time `json:"endTime" validate:"required,gtfield=StartTime"`
}

// ContestView is a contest with its status derived at request time.
type ContestView struct {
	model.Contest
	Status           model.ContestStatus `json:"status"`
	SecondsToStart   int64               `json:"secondsToStart,omitempty"`
	SecondsRemaining int64               `json:"secondsRemaining,omitempty"`
}

type ContestDetail struct {
	ContestView
	Problems []model.Problem `json:"problems"`
}

func (s *ContestService) view(c *model.Contest) ContestView {
	now := s.now()
	v := ContestView{Contest: *c, Status: c.StatusAt(now)}
	switch v.Status {
	case model.ContestUpcoming:
		v.SecondsToStart = int64(c.StartTime.Sub(now).Seconds())
	case model.ContestActive:
		v.SecondsRemaining = int64(c.EndTime.Sub(now).Seconds())
	}
	return v
}

func (s *ContestService) CreateContest(ctx context.Context, adminID string, req CreateContestRequest) (*ContestView, error) {
	if req.StartTime.Before(s.now()) {
		return nil, common.Errorf("%w: startTime must not be in the past", common.ErrValidation)
	}

	seen := make(map[string]bool, len(req.ProblemIDs))
	for _, id := range req.ProblemIDs {
		if seen[id] {
			return nil, common.Errorf("%w: problem %s listed twice", common.ErrValidation, id)
		}
		seen[id] = true
	}
	problems, err := s.problemRepo.FindProblemsByIDs(ctx, req.ProblemIDs)
	if err != nil {
		return nil, err
	}
	if len(problems) != len(req.ProblemIDs) {
		return nil, common.Errorf("%w: one or more problems do not exist", common.ErrValidation)
	}

	contest := &model.Contest{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Description: req.Description,
		ProblemIDs:  req.ProblemIDs,
		StartTime:   req.StartTime.UTC(),
		EndTime:     req.EndTime.UTC(),
		CreatedBy:   adminID,
	}
	if err := s.contestRepo.CreateContest(ctx, contest); err != nil {
		return nil, fmt.Errorf("creating contest: %w", err)
	}
	s.log.WithFields(log.Fields{"contest_id": contest.ID, "problems": len(contest.ProblemIDs)}).Info("contest created")
	v := s.view(contest)
	return &v, nil
}

func (s *ContestService) ListContests(ctx context.Context, status model.ContestStatus, page, pageSize int) ([]ContestView, int, error) {
	switch status {
	case "", model.ContestUpcoming, model.ContestActive, model.ContestEnded:
	default:
		return nil, 0, common.Errorf("%w: unknown contest status %q", common.ErrBadRequest, status)
	}
	limit, offset := paginate(page, pageSize)
	contests, total, err := s.contestRepo.ListContests(ctx, status, s.now(), limit, offset)
	if err != nil {
		return nil, 0, err
	}
	views := make([]ContestView, 0, len(contests))
	for i := range contests {
		views = append(views, s.view(&contests[i]))
	}
	return views, total, nil
}

// GetContest shows the problems of a started contest with visible testcases
// only. Problems of an upcoming contest stay hidden.
func (s *ContestService) GetContest(ctx context.Context, contestID string) (*ContestDetail, error) {
	contest, err := s.contestRepo.FindContestByID(ctx, contestID)
	if err != nil {
		return nil, err
	}
	detail := &ContestDetail{ContestView: s.view(contest), Problems: []model.Problem{}}
	if detail.Status == model.ContestUpcoming {
		return detail, nil
	}
	for _, id := range contest.ProblemIDs {
		p, err := s.problemRepo.FindProblemByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("loading contest problem %s: %w", id, err)
		}
		p.TestCases = p.VisibleTestCases()
		detail.Problems = append(detail.Problems, *p)
	}
	return detail, nil
}

// activeProblem rejects requests outside the contest window before any
// judge call is made.
func (s *ContestService) activeProblem(ctx context.Context, contestID string, req CodeRequest) (*model.Contest, *model.Problem, error) {
	contest, err := s.contestRepo.FindContestByID(ctx, contestID)
	if err != nil {
		return nil, nil, err
	}
	if !contest.IsActiveAt(s.now()) {
		return nil, nil, fmt.Errorf("contest %s: %w", contest.ID, common.ErrContestInactive)
	}
	if !contest.HasProblem(req.ProblemID) {
		return nil, nil, common.Errorf("%w: problem %s is not part of this contest", common.ErrBadRequest, req.ProblemID)
	}
	if err := checkLanguage(s.languages, req.LanguageID); err != nil {
		return nil, nil, err
	}
	problem, err := s.problemRepo.FindProblemByID(ctx, req.ProblemID)
	if err != nil {
		return nil, nil, err
	}
	return contest, problem, nil
}

func (s *ContestService) Run(ctx context.Context, userID, contestID string, req CodeRequest) (*RunResponse, error) {
	_, problem, err := s.activeProblem(ctx, contestID, req)
	if err != nil {
		return nil, err
	}
	report, err := s.runner.Run(ctx, problem.TestCases, req.LanguageID, req.SourceCode, judging.Options{IncludeHidden: false})
	if err != nil {
		return nil, fmt.Errorf("running contest code: %w", err)
	}
	return runResponse(report), nil
}

// Submit judges one attempt against every testcase and appends it to the
// contest log.
func (s *ContestService) Submit(ctx context.Context, userID, contestID string, req CodeRequest) (*model.ContestSubmission, error) {
	contest, problem, err := s.activeProblem(ctx, contestID, req)
	if err != nil {
		return nil, err
	}
	report, err := s.runner.Run(ctx, problem.TestCases, req.LanguageID, req.SourceCode, judging.Options{IncludeHidden: true})
	if err != nil {
		return nil, fmt.Errorf("judging contest submission: %w", err)
	}
	outcome := judging.Aggregate(report.Results, judging.ModeContest)

	sub := &model.ContestSubmission{
		ID:          uuid.NewString(),
		ContestID:   contest.ID,
		UserID:      userID,
		ProblemID:   problem.ID,
		LanguageID:  req.LanguageID,
		SourceCode:  req.SourceCode,
		Score:       outcome.Score,
		PassedAll:   outcome.PassedAll,
		PassedCount: outcome.Passed,
		TotalCount:  outcome.Total,
		Incomplete:  report.Incomplete,
		TestResults: report.Results,
	}
	if err := s.contestRepo.CreateContestSubmission(ctx, sub); err != nil {
		return nil, fmt.Errorf("saving contest submission: %w", err)
	}

	if s.boards != nil {
		if err := s.boards.Delete(ctx, contest.ID); err != nil {
			s.log.WithError(err).WithField("contest_id", contest.ID).Warn("failed to invalidate leaderboard")
		}
	}
	metrics.SubmissionsTotal.WithLabelValues(string(judging.ModeContest), string(outcome.Verdict)).Inc()
	s.log.WithFields(log.Fields{
		"contest_id": contest.ID, "user_id": userID, "problem_id": problem.ID,
		"score": sub.Score, "passed_all": sub.PassedAll,
	}).Info("contest submission judged")

	redacted := sub.Redacted()
	return &redacted, nil
}

// Leaderboard recomputes standings from the attempt log. Concurrent misses
// for the same contest share one computation.
func (s *ContestService) Leaderboard(ctx context.Context, contestID string) ([]model.RankedEntry, error) {
	var board []model.RankedEntry
	if s.boards != nil {
		hit, err := s.boards.Get(ctx, contestID, &board)
		if err != nil {
			s.log.WithError(err).Warn("leaderboard cache read failed")
		} else if hit {
			return board, nil
		}
	}

	// the computation is shared, so one caller going away must not fail the rest
	shared := context.WithoutCancel(ctx)
	v, err, _ := s.group.Do(contestID, func() (any, error) {
		return s.computeLeaderboard(shared, contestID)
	})
	if err != nil {
		return nil, err
	}
	return v.([]model.RankedEntry), nil
}

func (s *ContestService) computeLeaderboard(ctx context.Context, contestID string) ([]model.RankedEntry, error) {
	contest, err := s.contestRepo.FindContestByID(ctx, contestID)
	if err != nil {
		return nil, err
	}
	subs, err := s.contestRepo.ListContestSubmissions(ctx, contest.ID)
	if err != nil {
		return nil, err
	}
	board := judging.Rank(subs, s.ranking)

	ids := make([]string, 0, len(board))
	for _, e := range board {
		ids = append(ids, e.UserID)
	}
	names, err := s.userRepo.FindUsernames(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range board {
		board[i].Username = names[board[i].UserID]
	}

	if s.boards != nil {
		if err := s.boards.Set(ctx, contest.ID, board); err != nil {
			s.log.WithError(err).Warn("leaderboard cache write failed")
		}
	}
	return board, nil
}

func (s *ContestService) MySubmissions(ctx context.Context, userID, contestID string) ([]model.ContestSubmission, error) {
	if _, err := s.contestRepo.FindContestByID(ctx, contestID); err != nil {
		return nil, err
	}
	subs, err := s.contestRepo.ListUserContestSubmissions(ctx, contestID, userID)
	if err != nil {
		return nil, err
	}
	for i := range subs {
		subs[i] = subs[i].Redacted()
	}
	return subs, nil
}
