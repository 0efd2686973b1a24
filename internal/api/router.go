package api

import (
	"net/http"
	"time"

	"codeduel/internal/api/handler"
	"codeduel/internal/api/middleware"
	"codeduel/internal/app/service"
	"codeduel/internal/common/security"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/jwtauth/v5"
)

// Deps carries everything the HTTP layer needs.
type Deps struct {
	Auth        *service.AuthService
	Problems    *service.ProblemService
	Submissions *service.SubmissionService
	Contests    *service.ContestService
	Streaks     *service.StreakService
	Leaderboard *service.LeaderboardService
	Languages   *service.LanguageService

	// Limiter throttles run and submit. Nil disables rate limiting.
	Limiter middleware.Limiter
	// Metrics is served on /metrics when set.
	Metrics http.Handler

	CORSOrigins    []string
	RequestTimeout time.Duration
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	timeout := d.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	r.Use(chiMiddleware.Timeout(timeout))

	origins := d.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Searches "Authorization: Bearer T" and leaves the result in the context
	// for Authenticator / OptionalAuth.
	r.Use(jwtauth.Verifier(security.TokenAuth))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics)
	}

	judge := func(next http.Handler) http.Handler { return next }
	if d.Limiter != nil {
		judge = middleware.RateLimit(d.Limiter, "judge")
	}

	r.Route("/api/v1", func(v1 chi.Router) {
		v1.Route("/auth", handler.NewAuthHandler(d.Auth).RegisterRoutes)

		v1.Route("/problems", handler.NewProblemHandler(d.Problems).RegisterRoutes)

		submissionHandler := handler.NewSubmissionHandler(d.Submissions)
		v1.Route("/submissions", func(sr chi.Router) {
			sr.Use(middleware.Authenticator)
			sr.Group(func(jr chi.Router) {
				jr.Use(judge)
				submissionHandler.RegisterJudgeRoutes(jr)
			})
			submissionHandler.RegisterRoutes(sr)
		})

		contestHandler := handler.NewContestHandler(d.Contests)
		v1.Route("/contests", func(cr chi.Router) {
			contestHandler.RegisterRoutes(cr, judge)
		})

		v1.Route("/users", func(ur chi.Router) {
			ur.Use(middleware.Authenticator)
			handler.NewUserHandler(d.Streaks).RegisterRoutes(ur)
		})

		v1.Get("/leaderboard", handler.NewLeaderboardHandler(d.Leaderboard).Global)
		v1.Get("/languages", handler.NewLanguageHandler(d.Languages).List)
	})

	return r
}
