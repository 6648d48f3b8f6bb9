// Command tvdemo runs the TV demo recorder/admin process: it loads
// configuration, opens the recorder and retention sweep against the
// configured demo directory, and serves the read-only ops HTTP surface.
// It does not itself speak the game server's network protocol — that
// belongs to the host process that calls into the Recorder/Decoder/
// ViewerSession APIs directly from its own frame loop and console command
// dispatch. This binary is the standalone demo/ops half: useful on its own
// for inspecting and serving an existing demos directory, and the shape a
// host process's admin surface would embed.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"trinity/tvdemo/internal/catalog"
	"trinity/tvdemo/internal/config"
	"trinity/tvdemo/internal/logging"
	"trinity/tvdemo/internal/replay"
	httpapi "trinity/tvdemo/internal/tvdemoadmin"
)

type readiness struct {
	startedAt  time.Time
	mu         sync.RWMutex
	startupErr error
}

func (r *readiness) Uptime() time.Duration { return time.Since(r.startedAt) }

func (r *readiness) StartupError() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.startupErr
}

func (r *readiness) setStartupError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.startupErr = err
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.L().Fatal("invalid configuration", logging.Error(err))
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		logging.L().Fatal("failed to configure logging", logging.Error(err))
	}
	logging.ReplaceGlobals(logger)

	if err := os.MkdirAll(cfg.TVPath, 0o755); err != nil {
		logger.Fatal("failed to prepare demo directory", logging.Error(err), logging.String("path", cfg.TVPath))
	}

	recorder, err := replay.NewRecorder(cfg.TVPath, cfg.SVFPS, cfg.MaxClients, time.Now)
	if err != nil {
		logger.Fatal("failed to construct recorder", logging.Error(err))
	}
	if cfg.TVAuto {
		recorder.ArmAutoStart()
	}

	cleaner := replay.NewCleaner(cfg.TVPath, replay.RetentionPolicy{
		MaxFiles: cfg.Retention.MaxFiles,
		MaxAge:   cfg.Retention.MaxAge,
	}, logger)

	cleanerCtx, cancelCleaner := context.WithCancel(context.Background())
	defer cancelCleaner()
	go cleaner.Run(cleanerCtx, cfg.Retention.Interval)

	ready := &readiness{startedAt: time.Now()}
	demos := catalog.New(cfg.TVPath)

	mux := http.NewServeMux()
	ops := httpapi.NewHandlerSet(httpapi.Options{
		Logger:          logger,
		Readiness:       ready,
		RecorderStats:   recorder.Snapshot,
		Storage:         cleaner.Stats,
		Demos:           demos,
		DemosRateWindow: 10 * time.Second,
		DemosRateBurst:  5,
	})
	ops.Register(mux)

	server := &http.Server{
		Addr:    cfg.AdminAddr,
		Handler: logging.HTTPTraceMiddleware(logger)(mux),
	}

	go func() {
		logger.Info("tvdemo admin surface listening", logging.String("address", cfg.AdminAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			ready.setStartupError(err)
			logger.Fatal("admin server terminated", logging.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down tvdemo")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("admin server shutdown error", logging.Error(err))
	}
	if recorder.IsRecording() {
		if _, err := recorder.StopRecord(); err != nil {
			logger.Warn("failed to finalize active recording on shutdown", logging.Error(err))
		}
	}
}
