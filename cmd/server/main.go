package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"video-dedup/internal/dedup"
	"video-dedup/internal/fingerprint"
	"video-dedup/internal/platform/config"
	"video-dedup/internal/platform/logger"
	"video-dedup/internal/platform/metrics"
	"video-dedup/internal/sender"
	"video-dedup/internal/submission"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const shutdownTimeout = 10 * time.Second

func main() {
	_ = config.Load()
	cfg := config.FromEnv()

	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	store, err := dedup.OpenStore(cfg.StoreBackend, cfg.StorePath)
	if err != nil {
		log.Error("open store", "backend", cfg.StoreBackend, "path", cfg.StorePath, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	index := dedup.NewIndex(store, log)
	index.Load(context.Background())

	opts := []fingerprint.Option{fingerprint.WithFrameSize(cfg.FrameSize)}
	if dec, err := fingerprint.LookupFFmpeg(cfg.FFmpegPath, cfg.TempDir); err != nil {
		log.Warn("ffmpeg not available, only GIF submissions can be decoded", "error", err)
	} else {
		opts = append(opts, fingerprint.WithVideoDecoder(dec))
	}
	norm := fingerprint.NewNormalizer(opts...)

	tracker := sender.NewTracker()
	svc := submission.NewService(norm, index, tracker, cfg.DecodeConcurrency, log)
	met := metrics.New()
	h := submission.NewHandler(svc, log, met,
		submission.WithMaxVideoBytes(cfg.MaxVideoBytes),
		submission.WithDecodeTimeout(cfg.DecodeTimeout),
	)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(logger.RequestLogger(log))
	r.Use(metrics.RequestMiddleware(met, "/metrics"))
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		met.Handler(func() {
			met.SetStoredDigests(svc.StoredDigests())
			met.SetUnsafeSenders(svc.UnsafeCount())
		}).ServeHTTP(w, r)
	})
	h.Routes(r)

	addr := ":" + cfg.Port
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	log.Info("server starting",
		"port", cfg.Port,
		"store_backend", cfg.StoreBackend,
		"store_path", cfg.StorePath,
		"frame_size", norm.FrameSize(),
		"decode_concurrency", cfg.DecodeConcurrency,
		"log_level", cfg.LogLevel,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, draining connections")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("shutdown error", "error", err)
		store.Close()
		os.Exit(1)
	}

	log.Info("server stopped")
}
