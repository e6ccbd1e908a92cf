package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/z-canvas/backend/internal/config"
	"github.com/zhouzirui/z-canvas/backend/internal/export"
	"github.com/zhouzirui/z-canvas/backend/internal/handler"
	canvasService "github.com/zhouzirui/z-canvas/backend/internal/service/canvas"
	"github.com/zhouzirui/z-canvas/backend/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		log.Fatal().Err(err).Msg("failed to initialize logger")
	}
	if envErr != nil {
		log.Debug().Err(envErr).Msg("no .env file loaded, continuing with system environment variables only")
	}

	svc := canvasService.NewService(canvasService.Options{
		MaxDimension: cfg.Canvas.MaxDimension,
		MirrorBuffer: cfg.Canvas.MirrorBuffer,
		PDF: export.Options{
			Compress: cfg.Canvas.PDFCompress,
			Title:    cfg.Canvas.PDFTitle,
			Creator:  "z-canvas",
		},
	})

	router := handler.NewRouter(svc, cfg.CORS.AllowedOrigins)

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: serverCfg.ReadHeaderTimeout,
		WriteTimeout:      serverCfg.WriteTimeout,
		IdleTimeout:       serverCfg.IdleTimeout,
	}

	log.Info().Str("addr", serverCfg.Addr).Msg("Z Canvas backend listening")
	if err := runServer(ctx, srv, serverCfg); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
	log.Info().Msg("server stopped")
}

func runServer(ctx context.Context, srv *http.Server, serverCfg config.ServerConfig) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), serverCfg.ShutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
