package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codeduel/internal/api"
	"codeduel/internal/app/bootstrap"
	"codeduel/internal/app/worker"
	"codeduel/internal/platform/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

func main() {
	cfg := config.Load()

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 30*time.Second)
	app, err := bootstrap.New(startupCtx, cfg, prometheus.DefaultRegisterer)
	cancelStartup()
	if err != nil {
		log.WithError(err).Fatal("startup failed")
	}
	defer app.Close()

	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()
	var submissionWorker *worker.SubmissionWorker
	if cfg.EmbeddedWorker {
		submissionWorker = app.NewWorker()
		submissionWorker.Start(workerCtx)
	}

	router := api.NewRouter(api.Deps{
		Auth:           app.Auth,
		Problems:       app.Problems,
		Submissions:    app.Submissions,
		Contests:       app.Contests,
		Streaks:        app.Streaks,
		Leaderboard:    app.Leaderboard,
		Languages:      app.Languages,
		Limiter:        app.Limiter,
		Metrics:        promhttp.Handler(),
		CORSOrigins:    cfg.CORSOrigins,
		RequestTimeout: cfg.RequestTimeout,
	})

	// Submit judges inline, so a response may take as long as a full judging run.
	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 10*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Infof("Server starting on port %s", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatalf("could not listen on %s", cfg.APIPort)
		}
	}()

	<-stop
	log.Info("Shutting down server...")
	stopWorker()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server shutdown failed")
	}
	if submissionWorker != nil {
		submissionWorker.Wait()
	}
	log.Info("Server and worker stopped gracefully.")
}
