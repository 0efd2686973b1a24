// Package bootstrap builds the process-wide object graph shared by the API
// server and the standalone judging worker.
package bootstrap

import (
	"context"
	"database/sql"
	"fmt"

	"codeduel/internal/app/judging"
	"codeduel/internal/app/service"
	"codeduel/internal/app/worker"
	"codeduel/internal/common/security"
	"codeduel/internal/domain/repository"
	"codeduel/internal/platform/cache"
	"codeduel/internal/platform/config"
	"codeduel/internal/platform/database"
	"codeduel/internal/platform/judge0"
	"codeduel/internal/platform/logging"
	"codeduel/internal/platform/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

type App struct {
	Config *config.Config
	DB     *sql.DB
	Redis  *redis.Client

	Judge   *judge0.Client
	Runner  *judging.Runner
	Queue   *worker.Queue
	Limiter *cache.RateLimiter

	Auth        *service.AuthService
	Problems    *service.ProblemService
	Submissions *service.SubmissionService
	Contests    *service.ContestService
	Streaks     *service.StreakService
	Leaderboard *service.LeaderboardService
	Languages   *service.LanguageService
}

// New connects to Postgres and Redis, applies the schema when enabled and
// wires every service. reg may be nil to skip metric registration.
func New(ctx context.Context, cfg *config.Config, reg prometheus.Registerer) (*App, error) {
	logging.Setup(cfg.LogLevel, cfg.LogFormat)
	security.InitJWT(cfg.JWTKey, cfg.JWTExp)
	if reg != nil {
		metrics.Register(reg)
	}

	db, err := database.Connect(ctx, cfg.DBConnStr)
	if err != nil {
		return nil, err
	}
	if cfg.DBMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			database.Close(db)
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}

	rdb, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		database.Close(db)
		return nil, err
	}

	a := &App{Config: cfg, DB: db, Redis: rdb}
	a.wire()
	return a, nil
}

func (a *App) wire() {
	cfg := a.Config

	a.Judge = judge0.NewClient(JudgeClientConfig(cfg.Judge), nil)
	a.Runner = judging.NewRunner(a.Judge, judging.RunnerConfig{
		Parallelism:     cfg.Judge.Parallelism,
		TestcaseTimeout: cfg.Judge.TestcaseTimeout,
		MaxTimeouts:     cfg.Judge.MaxTimeouts,
	})

	userRepo := repository.NewPgUserRepository(a.DB)
	problemRepo := repository.NewPgProblemRepository(a.DB)
	submissionRepo := repository.NewPgSubmissionRepository(a.DB)
	contestRepo := repository.NewPgContestRepository(a.DB)

	locker := cache.NewLocker(a.Redis, "lock:user:", cfg.StreakLockTTL, cfg.StreakLockTTL)
	boards := cache.NewJSONCache(a.Redis, "leaderboard:", cfg.LeaderboardCacheTTL)
	a.Queue = worker.NewQueue(a.Redis, cfg.SubmissionQueueName)
	a.Limiter = cache.NewRateLimiter(a.Redis, cfg.RateLimitRequests, cfg.RateLimitWindow)

	a.Auth = service.NewAuthService(userRepo)
	a.Languages = service.NewLanguageService(a.Judge)
	a.Streaks = service.NewStreakService(userRepo, submissionRepo, locker, cfg.StreakLocation())
	a.Problems = service.NewProblemService(problemRepo, a.Runner, a.Judge)
	a.Submissions = service.NewSubmissionService(submissionRepo, problemRepo, a.Runner, a.Judge, a.Streaks, a.Queue)
	a.Contests = service.NewContestService(contestRepo, problemRepo, userRepo, a.Runner, a.Judge, boards,
		judging.ParseRankingMode(cfg.ContestRanking))
	a.Leaderboard = service.NewLeaderboardService(submissionRepo, boards)
}

// NewWorker returns a submission worker draining this app's queue.
func (a *App) NewWorker() *worker.SubmissionWorker {
	return worker.NewSubmissionWorker(a.Queue, a.Submissions, a.Config.WorkerConcurrency)
}

func (a *App) Close() {
	cache.Close(a.Redis)
	database.Close(a.DB)
}

// JudgeClientConfig maps the JUDGE_* settings onto the client's options.
func JudgeClientConfig(c config.JudgeConfig) judge0.Config {
	return judge0.Config{
		BaseURL:          c.BaseURL,
		APIKey:           c.APIKey,
		APIHost:          c.APIHost,
		Wait:             c.Wait,
		RequestTimeout:   c.RequestTimeout,
		MaxRetries:       c.MaxRetries,
		PollInterval:     c.PollInterval,
		MaxPollInterval:  c.MaxPollInterval,
		MaxPollAttempts:  c.MaxPollAttempts,
		Deadline:         c.Deadline,
		AllowedLanguages: c.AllowedLanguages,
		LanguageCacheTTL: c.LanguageCacheTTL,
	}
}
