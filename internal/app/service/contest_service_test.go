package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"codeduel/internal/app/judging"
	"codeduel/internal/common"
	"codeduel/internal/domain/model"
	"codeduel/internal/platform/cache"
	"codeduel/internal/platform/judge0"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var contestStart = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

type contestFixture struct {
	judge    *stdinJudge
	contests *memContests
	clock    time.Time
	mu       sync.Mutex
	svc      *ContestService
	mr       *miniredis.Miniredis
}

func (f *contestFixture) now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.clock
}

func (f *contestFixture) advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clock = f.clock.Add(d)
}

func newContestFixture(t *testing.T, ranking judging.RankingMode) *contestFixture {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	second := &model.Problem{ID: "p2", Slug: "second", TestCases: []model.TestCase{{ID: "x1", Input: "a", ExpectedOutput: "A"}}}
	contest := &model.Contest{
		ID:         "c1",
		Title:      "Weekly",
		ProblemIDs: []string{"p1", "p2"},
		StartTime:  contestStart,
		EndTime:    contestStart.Add(2 * time.Hour),
	}

	f := &contestFixture{
		judge:    &stdinJudge{answers: map[string]string{"1": "1", "2": "3", "3": "3", "a": "A"}},
		contests: newMemContests(contest),
		clock:    contestStart.Add(time.Minute),
		mr:       mr,
	}
	f.contests.now = f.now
	users := newMemUsers(
		model.User{ID: "alice", Username: "alice"},
		model.User{ID: "bob", Username: "bob"},
	)
	f.svc = NewContestService(f.contests, newMemProblems(threeCaseProblem(), second), users,
		newRunner(f.judge), python, cache.NewJSONCache(rdb, "board:", 10*time.Second), ranking)
	f.svc.now = f.now
	return f
}

func TestContestSubmitScoresAttempt(t *testing.T) {
	f := newContestFixture(t, judging.RankBySolved)
	f.judge.answers["3"] = "4"

	sub, err := f.svc.Submit(context.Background(), "alice", "c1", echoReq)
	require.NoError(t, err)
	assert.InDelta(t, 66.67, sub.Score, 0.001)
	assert.False(t, sub.PassedAll)
	assert.Equal(t, 2, sub.PassedCount)
	assert.Empty(t, sub.TestResults[2].Input, "hidden testcase is redacted")
}

func TestContestInactiveRejectsBeforeJudging(t *testing.T) {
	f := newContestFixture(t, judging.RankBySolved)

	f.clock = contestStart.Add(-time.Second)
	_, err := f.svc.Submit(context.Background(), "alice", "c1", echoReq)
	assert.ErrorIs(t, err, common.ErrContestInactive)

	f.clock = contestStart.Add(2 * time.Hour) // end is exclusive
	_, err = f.svc.Submit(context.Background(), "alice", "c1", echoReq)
	assert.ErrorIs(t, err, common.ErrContestInactive)

	_, err = f.svc.Run(context.Background(), "alice", "c1", echoReq)
	assert.ErrorIs(t, err, common.ErrContestInactive)

	assert.Equal(t, 0, f.judge.callCount())
	assert.Equal(t, 0, f.contests.submissionCount())
}

func TestContestSubmitRejectsForeignProblem(t *testing.T) {
	f := newContestFixture(t, judging.RankBySolved)
	_, err := f.svc.Submit(context.Background(), "alice", "c1", CodeRequest{ProblemID: "p9", LanguageID: 71, SourceCode: "x"})
	assert.ErrorIs(t, err, common.ErrBadRequest)
	assert.Equal(t, 0, f.judge.callCount())
}

func TestContestSubmitJudgeUnavailableWritesNothing(t *testing.T) {
	f := newContestFixture(t, judging.RankBySolved)
	f.judge.err = judge0.ErrJudgeUnavailable

	_, err := f.svc.Submit(context.Background(), "alice", "c1", echoReq)
	assert.ErrorIs(t, err, common.ErrServiceUnavailable)
	assert.Equal(t, 0, f.contests.submissionCount())
}

func TestContestRunVisibleOnly(t *testing.T) {
	f := newContestFixture(t, judging.RankBySolved)
	res, err := f.svc.Run(context.Background(), "alice", "c1", echoReq)
	require.NoError(t, err)
	assert.Equal(t, 2, res.TotalTestcases)
	assert.Equal(t, 0, f.contests.submissionCount())
}

func TestLeaderboardFirstAcceptedWins(t *testing.T) {
	f := newContestFixture(t, judging.RankBySolved)
	ctx := context.Background()

	// alice solves p1 at t1, bob at t1+5m, alice again (redundantly) at t1+10m
	_, err := f.svc.Submit(ctx, "alice", "c1", echoReq)
	require.NoError(t, err)
	f.advance(5 * time.Minute)
	_, err = f.svc.Submit(ctx, "bob", "c1", echoReq)
	require.NoError(t, err)
	f.advance(5 * time.Minute)
	_, err = f.svc.Submit(ctx, "alice", "c1", echoReq)
	require.NoError(t, err)

	board, err := f.svc.Leaderboard(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, board, 2)
	assert.Equal(t, "alice", board[0].UserID)
	assert.Equal(t, "alice", board[0].Username)
	assert.Equal(t, 1, board[0].Rank)
	assert.Equal(t, 2, board[0].Attempts)
	assert.Equal(t, "bob", board[1].UserID)
	assert.Equal(t, 2, board[1].Rank)
}

func TestLeaderboardCacheInvalidatedByNewAttempt(t *testing.T) {
	f := newContestFixture(t, judging.RankBySolved)
	ctx := context.Background()

	_, err := f.svc.Submit(ctx, "alice", "c1", echoReq)
	require.NoError(t, err)
	board, err := f.svc.Leaderboard(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, board, 1)
	assert.True(t, f.mr.Exists("board:c1"))

	f.advance(time.Minute)
	_, err = f.svc.Submit(ctx, "bob", "c1", CodeRequest{ProblemID: "p2", LanguageID: 71, SourceCode: "x"})
	require.NoError(t, err)
	assert.False(t, f.mr.Exists("board:c1"))

	board, err = f.svc.Leaderboard(ctx, "c1")
	require.NoError(t, err)
	assert.Len(t, board, 2)
}

func TestLeaderboardByScore(t *testing.T) {
	f := newContestFixture(t, judging.RankByScore)
	ctx := context.Background()
	f.judge.answers["3"] = "wrong"

	_, err := f.svc.Submit(ctx, "alice", "c1", echoReq) // 66.67
	require.NoError(t, err)
	f.advance(time.Minute)
	_, err = f.svc.Submit(ctx, "bob", "c1", CodeRequest{ProblemID: "p2", LanguageID: 71, SourceCode: "x"}) // 100
	require.NoError(t, err)

	board, err := f.svc.Leaderboard(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, board, 2)
	assert.Equal(t, "bob", board[0].UserID)
	assert.InDelta(t, 100, board[0].Score, 0.001)
	assert.InDelta(t, 66.67, board[1].Score, 0.001)
}

// cancellableContests fails log reads on a cancelled context like the pg repository does.
type cancellableContests struct{ *memContests }

func (c cancellableContests) ListContestSubmissions(ctx context.Context, contestID string) ([]model.ContestSubmission, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.memContests.ListContestSubmissions(ctx, contestID)
}

func TestLeaderboardSurvivesCallerCancellation(t *testing.T) {
	f := newContestFixture(t, judging.RankBySolved)
	_, err := f.svc.Submit(context.Background(), "alice", "c1", echoReq)
	require.NoError(t, err)

	users := newMemUsers(model.User{ID: "alice", Username: "alice"})
	svc := NewContestService(cancellableContests{f.contests}, newMemProblems(threeCaseProblem()), users,
		newRunner(f.judge), python, nil, judging.RankBySolved)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	board, err := svc.Leaderboard(ctx, "c1")
	require.NoError(t, err, "a shared computation must not inherit one caller's cancellation")
	require.Len(t, board, 1)
	assert.Equal(t, "alice", board[0].Username)
}

func TestLeaderboardUnknownContest(t *testing.T) {
	f := newContestFixture(t, judging.RankBySolved)
	_, err := f.svc.Leaderboard(context.Background(), "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestCreateContestValidation(t *testing.T) {
	f := newContestFixture(t, judging.RankBySolved)
	ctx := context.Background()
	base := CreateContestRequest{
		Title:      "Monthly",
		ProblemIDs: []string{"p1", "p2"},
		StartTime:  f.now().Add(time.Hour),
		EndTime:    f.now().Add(3 * time.Hour),
	}

	v, err := f.svc.CreateContest(ctx, "admin", base)
	require.NoError(t, err)
	assert.Equal(t, model.ContestUpcoming, v.Status)
	assert.Equal(t, int64(3600), v.SecondsToStart)

	past := base
	past.StartTime = f.now().Add(-time.Minute)
	_, err = f.svc.CreateContest(ctx, "admin", past)
	assert.ErrorIs(t, err, common.ErrValidation)

	unknown := base
	unknown.ProblemIDs = []string{"p1", "ghost"}
	_, err = f.svc.CreateContest(ctx, "admin", unknown)
	assert.ErrorIs(t, err, common.ErrValidation)

	dup := base
	dup.ProblemIDs = []string{"p1", "p1"}
	_, err = f.svc.CreateContest(ctx, "admin", dup)
	assert.ErrorIs(t, err, common.ErrValidation)

	reversed := base
	reversed.EndTime = base.StartTime.Add(-time.Minute)
	assert.ErrorIs(t, common.ValidateInput(reversed), common.ErrValidation)
}

func TestGetContestHidesHiddenTestcases(t *testing.T) {
	f := newContestFixture(t, judging.RankBySolved)

	detail, err := f.svc.GetContest(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, model.ContestActive, detail.Status)
	assert.Equal(t, int64(119*60), detail.SecondsRemaining)
	require.Len(t, detail.Problems, 2)
	assert.Len(t, detail.Problems[0].TestCases, 2)

	f.clock = contestStart.Add(-time.Hour)
	detail, err = f.svc.GetContest(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, model.ContestUpcoming, detail.Status)
	assert.Empty(t, detail.Problems)
}

func TestListContestsByStatus(t *testing.T) {
	f := newContestFixture(t, judging.RankBySolved)

	active, total, err := f.svc.ListContests(context.Background(), model.ContestActive, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, model.ContestActive, active[0].Status)

	_, _, err = f.svc.ListContests(context.Background(), "someday", 1, 10)
	assert.ErrorIs(t, err, common.ErrBadRequest)
}

func TestMyContestSubmissionsRedacted(t *testing.T) {
	f := newContestFixture(t, judging.RankBySolved)
	_, err := f.svc.Submit(context.Background(), "alice", "c1", echoReq)
	require.NoError(t, err)

	mine, err := f.svc.MySubmissions(context.Background(), "alice", "c1")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Empty(t, mine[0].TestResults[2].ExpectedOutput)

	others, err := f.svc.MySubmissions(context.Background(), "bob", "c1")
	require.NoError(t, err)
	assert.Empty(t, others)
}
