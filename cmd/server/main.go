package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/marginalia-app/marginalia/internal/annotate"
	"github.com/marginalia-app/marginalia/internal/config"
	"github.com/marginalia-app/marginalia/internal/gcp"
	"github.com/marginalia-app/marginalia/internal/server"
	"github.com/marginalia-app/marginalia/internal/service"
	"github.com/marginalia-app/marginalia/internal/store"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	if err := run(log); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	fsClient, err := gcp.NewFirestoreClient(ctx, cfg.ProjectID)
	if err != nil {
		return err
	}
	defer fsClient.Close()

	blobs, err := gcp.NewBlobStore(ctx, cfg.Bucket)
	if err != nil {
		return err
	}
	defer blobs.Close()

	vertex, err := gcp.NewVertexClient(ctx, cfg.ProjectID, cfg.VertexRegion, cfg.SummaryModel)
	if err != nil {
		return err
	}
	defer vertex.Close()

	docs := store.NewDocuments(fsClient, cfg.FirestoreCollection)
	pipeline := annotate.NewPipeline(log)
	svc := service.NewPDFService(blobs, docs, vertex, pipeline, log)

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: server.New(svc, log).Routes(),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
