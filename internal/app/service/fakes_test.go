package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"codeduel/internal/app/judging"
	"codeduel/internal/common"
	"codeduel/internal/domain/model"
	"codeduel/internal/platform/judge0"
)

// stdinJudge echoes a fixed answer per stdin; err, when set, fails every call.
type stdinJudge struct {
	mu      sync.Mutex
	answers map[string]string
	status  map[string]judge0.Status
	err     error
	calls   int
}

func (j *stdinJudge) Execute(ctx context.Context, req judge0.Request) (*judge0.Result, error) {
	j.mu.Lock()
	j.calls++
	j.mu.Unlock()
	if j.err != nil {
		return nil, j.err
	}
	out := j.answers[req.Stdin]
	st, ok := j.status[req.Stdin]
	if !ok {
		st = judge0.Status{ID: judge0.StatusAccepted, Description: "Accepted"}
	}
	return &judge0.Result{Stdout: &out, Status: st}, nil
}

func (j *stdinJudge) callCount() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.calls
}

func newRunner(j judging.Judge) *judging.Runner {
	return judging.NewRunner(j, judging.RunnerConfig{Parallelism: 1, TestcaseTimeout: time.Second})
}

type fakeCatalog struct{ allowed map[int]bool }

func (c fakeCatalog) Languages(ctx context.Context) ([]judge0.Language, error) {
	var out []judge0.Language
	for id := range c.allowed {
		out = append(out, judge0.Language{ID: id, Name: "lang"})
	}
	sort.Slice(out, func(i, k int) bool { return out[i].ID < out[k].ID })
	return out, nil
}

func (c fakeCatalog) LanguageAllowed(id int) bool { return c.allowed[id] }

var python = fakeCatalog{allowed: map[int]bool{71: true}}

type memProblems struct {
	mu       sync.Mutex
	problems map[string]*model.Problem
}

func newMemProblems(ps ...*model.Problem) *memProblems {
	m := &memProblems{problems: map[string]*model.Problem{}}
	for _, p := range ps {
		m.problems[p.ID] = p
	}
	return m
}

func clone(p *model.Problem) *model.Problem {
	c := *p
	c.TestCases = append([]model.TestCase(nil), p.TestCases...)
	return &c
}

func (m *memProblems) CreateProblem(ctx context.Context, p *model.Problem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.problems {
		if existing.Slug == p.Slug {
			return common.ErrConflict
		}
	}
	m.problems[p.ID] = clone(p)
	return nil
}

func (m *memProblems) FindProblemByID(ctx context.Context, id string) (*model.Problem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.problems[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return clone(p), nil
}

func (m *memProblems) FindProblemBySlug(ctx context.Context, slug string) (*model.Problem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.problems {
		if p.Slug == slug {
			return clone(p), nil
		}
	}
	return nil, common.ErrNotFound
}

func (m *memProblems) FindProblemsByIDs(ctx context.Context, ids []string) ([]model.Problem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Problem
	for _, id := range ids {
		if p, ok := m.problems[id]; ok {
			out = append(out, *clone(p))
		}
	}
	return out, nil
}

func (m *memProblems) ListProblems(ctx context.Context, limit, offset int, difficulty model.ProblemDifficulty, tags []string) ([]model.Problem, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Problem
	for _, p := range m.problems {
		if difficulty == "" || p.Difficulty == difficulty {
			out = append(out, *clone(p))
		}
	}
	return out, len(out), nil
}

func (m *memProblems) GetTestCasesByProblemID(ctx context.Context, problemID string) ([]model.TestCase, error) {
	p, err := m.FindProblemByID(ctx, problemID)
	if err != nil {
		return nil, err
	}
	return p.TestCases, nil
}

type memSubmissions struct {
	mu   sync.Mutex
	subs map[string]*model.Submission
	now  func() time.Time
}

func newMemSubmissions() *memSubmissions {
	return &memSubmissions{subs: map[string]*model.Submission{}, now: time.Now}
}

func (m *memSubmissions) CreateSubmission(ctx context.Context, sub *model.Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub.CreatedAt = m.now()
	sub.UpdatedAt = sub.CreatedAt
	c := *sub
	m.subs[sub.ID] = &c
	return nil
}

func (m *memSubmissions) GetSubmissionByID(ctx context.Context, id string) (*model.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subs[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	c := *s
	return &c, nil
}

func (m *memSubmissions) TransitionStatus(ctx context.Context, id string, from, to model.SubmissionStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subs[id]
	if !ok {
		return common.ErrNotFound
	}
	if !from.CanTransitionTo(to) {
		return common.ErrBadRequest
	}
	if s.Status != from {
		return common.ErrConflict
	}
	s.Status = to
	return nil
}

func (m *memSubmissions) CompleteSubmission(ctx context.Context, sub *model.Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subs[sub.ID]
	if !ok {
		return common.ErrNotFound
	}
	if s.Status != model.StatusJudging || !model.StatusJudging.CanTransitionTo(sub.Status) {
		return common.ErrConflict
	}
	c := *sub
	m.subs[sub.ID] = &c
	return nil
}

func (m *memSubmissions) ListSubmissionsByUser(ctx context.Context, userID, problemID string, limit, offset int) ([]model.Submission, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Submission
	for _, s := range m.subs {
		if s.UserID == userID && (problemID == "" || s.ProblemID == problemID) {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, k int) bool { return out[i].CreatedAt.After(out[k].CreatedAt) })
	return out, len(out), nil
}

func (m *memSubmissions) CountAcceptedByDay(ctx context.Context, userID, timezone string) (map[string]int, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	days := map[string]int{}
	for _, s := range m.subs {
		if s.UserID == userID && s.Status == model.StatusAccepted {
			days[model.DayKey(s.CreatedAt, loc)]++
		}
	}
	return days, nil
}

func (m *memSubmissions) GetLeaderboard(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	return []model.LeaderboardEntry{}, nil
}

func (m *memSubmissions) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs)
}

// memUsers enforces the version check the way the database does.
type memUsers struct {
	mu        sync.Mutex
	users     map[string]model.User
	conflicts int // UpdateStreak fails this many times first
}

func newMemUsers(users ...model.User) *memUsers {
	m := &memUsers{users: map[string]model.User{}}
	for _, u := range users {
		if u.Calendar == nil {
			u.Calendar = map[string]bool{}
		}
		m.users[u.ID] = u
	}
	return m
}

func copyUser(u model.User) *model.User {
	cal := make(map[string]bool, len(u.Calendar))
	for k, v := range u.Calendar {
		cal[k] = v
	}
	u.Calendar = cal
	return &u
}

func (m *memUsers) Create(ctx context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == user.Username || u.Email == user.Email {
			return common.ErrConflict
		}
	}
	m.users[user.ID] = *copyUser(*user)
	return nil
}

func (m *memUsers) find(pred func(model.User) bool) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if pred(u) {
			return copyUser(u), nil
		}
	}
	return nil, common.ErrNotFound
}

func (m *memUsers) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return m.find(func(u model.User) bool { return u.Email == email })
}

func (m *memUsers) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return m.find(func(u model.User) bool { return u.Username == username })
}

func (m *memUsers) FindByID(ctx context.Context, id string) (*model.User, error) {
	return m.find(func(u model.User) bool { return u.ID == id })
}

func (m *memUsers) FindUsernames(ctx context.Context, ids []string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]string{}
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			out[id] = u.Username
		}
	}
	return out, nil
}

func (m *memUsers) UpdateStreak(ctx context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conflicts > 0 {
		m.conflicts--
		stored := m.users[user.ID]
		stored.Version++
		m.users[user.ID] = stored
		return common.ErrConflict
	}
	stored, ok := m.users[user.ID]
	if !ok {
		return common.ErrNotFound
	}
	if stored.Version != user.Version {
		return common.ErrConflict
	}
	user.Version++
	m.users[user.ID] = *copyUser(*user)
	return nil
}

func (m *memUsers) get(id string) model.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *copyUser(m.users[id])
}

type memContests struct {
	mu       sync.Mutex
	contests map[string]*model.Contest
	subs     []model.ContestSubmission
	now      func() time.Time
}

func newMemContests(cs ...*model.Contest) *memContests {
	m := &memContests{contests: map[string]*model.Contest{}, now: time.Now}
	for _, c := range cs {
		m.contests[c.ID] = c
	}
	return m
}

func (m *memContests) CreateContest(ctx context.Context, c *model.Contest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.contests[c.ID] = &cp
	return nil
}

func (m *memContests) FindContestByID(ctx context.Context, id string) (*model.Contest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.contests[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memContests) ListContests(ctx context.Context, status model.ContestStatus, now time.Time, limit, offset int) ([]model.Contest, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Contest
	for _, c := range m.contests {
		if status == "" || c.StatusAt(now) == status {
			out = append(out, *c)
		}
	}
	return out, len(out), nil
}

func (m *memContests) CreateContestSubmission(ctx context.Context, s *model.ContestSubmission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.CreatedAt = m.now()
	m.subs = append(m.subs, *s)
	return nil
}

func (m *memContests) ListContestSubmissions(ctx context.Context, contestID string) ([]model.ContestSubmission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.ContestSubmission
	for _, s := range m.subs {
		if s.ContestID == contestID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memContests) ListUserContestSubmissions(ctx context.Context, contestID, userID string) ([]model.ContestSubmission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.ContestSubmission
	for _, s := range m.subs {
		if s.ContestID == contestID && s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memContests) submissionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs)
}

type memQueue struct {
	ids []string
	err error
}

func (q *memQueue) Enqueue(ctx context.Context, id string) error {
	if q.err != nil {
		return q.err
	}
	q.ids = append(q.ids, id)
	return nil
}

// threeCaseProblem has two visible testcases and one hidden one.
func threeCaseProblem() *model.Problem {
	return &model.Problem{
		ID:    "p1",
		Title: "Echo",
		Slug:  "echo",
		TestCases: []model.TestCase{
			{ID: "t1", Input: "1", ExpectedOutput: "1"},
			{ID: "t2", Input: "2", ExpectedOutput: "3"},
			{ID: "t3", Input: "3", ExpectedOutput: "3", IsHidden: true},
		},
	}
}
