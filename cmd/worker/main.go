// Command worker judges submissions queued by POST /submissions/submit/async
// without serving HTTP. Run it with WORKER_EMBEDDED=false on the API servers.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codeduel/internal/app/bootstrap"
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	w := app.NewWorker()
	w.Start(ctx)

	// metrics only; the worker has no API
	metricsServer := &http.Server{Addr: ":" + cfg.APIPort, Handler: promhttp.Handler()}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("metrics listener stopped")
		}
	}()

	<-sigs
	log.Info("Shutdown signal received.")
	cancel()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	metricsServer.Shutdown(shutdownCtx)

	w.Wait()
	log.Info("Worker exited cleanly.")
}
