package service

import (
	"context"
	"fmt"
	"strings"

	"codeduel/internal/app/judging"
	"codeduel/internal/common"
	"codeduel/internal/domain/model"
	"codeduel/internal/domain/repository"
	"codeduel/internal/platform/judge0"
	"codeduel/internal/platform/logging"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	log "github.com/sirupsen/logrus"
)

type ProblemService struct {
	problemRepo repository.ProblemRepository
	runner      *judging.Runner
	languages   LanguageCatalog
	log         *log.Entry
}

func NewProblemService(problemRepo repository.ProblemRepository, runner *judging.Runner, languages LanguageCatalog) *ProblemService {
	return &ProblemService{
		problemRepo: problemRepo,
		runner:      runner,
		languages:   languages,
		log:         logging.Component("problem"),
	}
}

type TestCaseInput struct {
	Input          string `json:"input"`
	ExpectedOutput string `json:"expectedOutput"`
	IsHidden       bool   `json:"isHidden"`
}

type ReferenceSolution struct {
	LanguageID int    `json:"languageId" validate:"required,gt=0"`
	SourceCode string `json:"sourceCode" validate:"required"`
}

type CreateProblemRequest struct {
	Title             string                  `json:"title" validate:"required,max=200"`
	Description       string                  `json:"description" validate:"required"`
	Difficulty        model.ProblemDifficulty `json:"difficulty" validate:"required,oneof=EASY MEDIUM HARD"`
	Tags              []string                `json:"tags" validate:"max=10,dive,required,max=40"`
	Constraints       string                  `json:"constraints"`
	TestCases         []TestCaseInput         `json:"testcases" validate:"required,min=1,dive"`
	ReferenceSolution *ReferenceSolution      `json:"referenceSolution,omitempty" validate:"omitempty"`
}

// CreateProblem stores a problem with its ordered testcases. A reference
// solution, when given, must pass every testcase before anything is stored.
func (s *ProblemService) CreateProblem(ctx context.Context, userID string, req CreateProblemRequest) (*model.Problem, error) {
	problem := &model.Problem{
		ID:          uuid.NewString(),
		Title:       strings.TrimSpace(req.Title),
		Slug:        slug.Make(req.Title),
		Description: req.Description,
		Difficulty:  req.Difficulty,
		Tags:        normalizeTags(req.Tags),
		Constraints: req.Constraints,
		CreatedByID: &userID,
	}
	if problem.Slug == "" {
		return nil, common.Errorf("%w: title must contain letters or digits", common.ErrValidation)
	}
	for _, tc := range req.TestCases {
		problem.TestCases = append(problem.TestCases, model.TestCase{
			ID:             uuid.NewString(),
			ProblemID:      problem.ID,
			Input:          tc.Input,
			ExpectedOutput: tc.ExpectedOutput,
			IsHidden:       tc.IsHidden,
		})
	}

	if ref := req.ReferenceSolution; ref != nil {
		if err := s.validateReference(ctx, problem, ref); err != nil {
			return nil, err
		}
	}

	if err := s.problemRepo.CreateProblem(ctx, problem); err != nil {
		return nil, common.Errorf("failed to create problem: %w", err)
	}
	s.log.WithFields(log.Fields{"problem_id": problem.ID, "slug": problem.Slug, "testcases": len(problem.TestCases)}).Info("problem created")
	return problem, nil
}

func (s *ProblemService) validateReference(ctx context.Context, problem *model.Problem, ref *ReferenceSolution) error {
	if err := checkLanguage(s.languages, ref.LanguageID); err != nil {
		return err
	}
	report, err := s.runner.Run(ctx, problem.TestCases, ref.LanguageID, ref.SourceCode, judging.Options{IncludeHidden: true})
	if err != nil {
		return fmt.Errorf("validating reference solution: %w", err)
	}
	for i, r := range report.Results {
		if !r.Passed {
			return common.Errorf("%w: reference solution fails testcase %d (%s)", common.ErrValidation, i+1, describeFailure(r))
		}
	}
	return nil
}

func describeFailure(r model.TestResult) string {
	switch {
	case r.Error != "":
		return r.Error
	case r.StatusID != 0 && r.StatusID != judge0.StatusAccepted:
		return r.Status
	default:
		return "wrong answer"
	}
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = slug.Make(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// GetProblem looks a problem up by id or slug. Only admins see hidden testcases.
func (s *ProblemService) GetProblem(ctx context.Context, idOrSlug, userRole string) (*model.Problem, error) {
	var problem *model.Problem
	var err error
	if _, parseErr := uuid.Parse(idOrSlug); parseErr == nil {
		problem, err = s.problemRepo.FindProblemByID(ctx, idOrSlug)
	} else {
		problem, err = s.problemRepo.FindProblemBySlug(ctx, idOrSlug)
	}
	if err != nil {
		return nil, err
	}
	if userRole != model.RoleAdmin {
		problem.TestCases = problem.VisibleTestCases()
	}
	return problem, nil
}

func (s *ProblemService) ListProblems(ctx context.Context, page, pageSize int, difficulty model.ProblemDifficulty, tags []string) ([]model.Problem, int, error) {
	if difficulty != "" && !difficulty.Valid() {
		return nil, 0, common.Errorf("%w: unknown difficulty %q", common.ErrBadRequest, difficulty)
	}
	limit, offset := paginate(page, pageSize)
	return s.problemRepo.ListProblems(ctx, limit, offset, difficulty, normalizeTags(tags))
}
