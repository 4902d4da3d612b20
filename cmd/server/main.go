package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	app "github.com/agnik04dastidar/Real-Time-Code-Editor/internal/app"
	execsvc "github.com/agnik04dastidar/Real-Time-Code-Editor/internal/exec"
	httpx "github.com/agnik04dastidar/Real-Time-Code-Editor/internal/http"
	room "github.com/agnik04dastidar/Real-Time-Code-Editor/internal/room"
	ws "github.com/agnik04dastidar/Real-Time-Code-Editor/internal/ws"
	"github.com/agnik04dastidar/Real-Time-Code-Editor/pkg/metrics"
)

func main() {
	// Load local .env (dev only)
	_ = godotenv.Load()

	cfg := app.LoadConfig()
	logger := app.NewLogger(cfg.Env)

	// Cancel on SIGINT/SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Room registry: all room state lives here, in memory only
	reg := room.NewRegistry(logger, cfg.RoomTTL)
	go reg.Run(ctx)
	metrics.RegisterRoomCount(func() float64 { return float64(len(reg.List())) })

	// External code-execution service client
	ex := execsvc.New(cfg.ExecURL, cfg.ExecTimeout, logger)

	// WebSocket hub
	hub := ws.NewHub(logger, reg, ex)

	// HTTP + WS router
	router := httpx.NewRouter(cfg, hub, reg)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server
	go func() {
		logger.Info("server.listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server.crash", "err", err)
			cancel()
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	logger.Info("server.shutdown.start")

	// shutdown
	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	_ = srv.Shutdown(shutdownCtx)

	logger.Info("server.shutdown.complete")
	_ = os.Stdout.Sync()
}
