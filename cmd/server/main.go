package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/gorilla/mux"
	"github.com/lmittmann/tint"

	"marsh-chat/internal/config"
	"marsh-chat/internal/engine"
	"marsh-chat/internal/engine/actors"
	"marsh-chat/internal/gateway"
	"marsh-chat/internal/handlers"
	"marsh-chat/internal/storage"
	"marsh-chat/internal/utils"
	"marsh-chat/internal/websocket"
)

func main() {
	cfg := config.LoadConfig()

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: level}))
	slog.SetDefault(logger)

	store, err := storage.NewFileStore(cfg.Storage.DataDir, cfg.Storage.PublicDir, logger)
	if err != nil {
		logger.Error("failed to prepare storage directories", "error", err)
		os.Exit(1)
	}

	metrics := utils.NewMetricsCollector()
	system := actor.NewActorSystem()
	eng := engine.NewEngine(system, store, cfg.Retention.MessageTTL, metrics, logger)

	hub := websocket.NewHub(logger)
	gw := gateway.New(system.Root, eng, hub, cfg.Server.RequestTimeout, logger)
	server := handlers.NewServer(system, eng, gw, hub, metrics, cfg, logger)

	// Expired messages are purged once before serving and then on a fixed
	// cadence. The conversation actor serializes the sweep against every
	// other conversation mutation.
	runSweep(system.Root, eng, cfg.Server.RequestTimeout, logger)
	go func() {
		ticker := time.NewTicker(cfg.Retention.SweepInterval)
		defer ticker.Stop()
		for range ticker.C {
			runSweep(system.Root, eng, cfg.Server.RequestTimeout, logger)
		}
	}()

	router := mux.NewRouter()
	router.HandleFunc("/api/signup", server.HandleSignup()).Methods(http.MethodPost)
	router.HandleFunc("/api/login", server.HandleLogin()).Methods(http.MethodPost)
	router.HandleFunc("/api/users", server.HandleUsers()).Methods(http.MethodGet)
	router.HandleFunc("/upload", server.HandleUpload(store.UploadDir())).Methods(http.MethodPost)
	router.HandleFunc("/health", server.HandleHealth()).Methods(http.MethodGet)
	router.HandleFunc("/ws", server.HandleWebSocket())
	router.PathPrefix("/").Handler(http.FileServer(http.Dir(cfg.Storage.PublicDir)))

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{Addr: addr, Handler: router}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("server running", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown incomplete", "error", err)
	}

	// Flush the three durable collections before exit.
	flush(system.Root, eng.GetIdentityActor(), &actors.FlushUsersMsg{}, cfg.Server.RequestTimeout, logger)
	flush(system.Root, eng.GetConversationActor(), &actors.FlushConversationsMsg{}, cfg.Server.RequestTimeout, logger)
	flush(system.Root, eng.GetPresenceActor(), &actors.FlushLastSeenMsg{}, cfg.Server.RequestTimeout, logger)
	logger.Info("state flushed, bye")
}

func runSweep(root *actor.RootContext, eng *engine.Engine, timeout time.Duration, logger *slog.Logger) {
	future := root.RequestFuture(eng.GetConversationActor(), &actors.SweepExpiredMsg{Now: time.Now()}, timeout)
	result, err := future.Result()
	if err != nil {
		logger.Error("expiry sweep failed", "error", err)
		return
	}
	if sweep, ok := result.(*actors.SweepResult); ok && sweep.Removed > 0 {
		logger.Info("expiry sweep done", "removed", sweep.Removed)
	}
}

func flush(root *actor.RootContext, pid *actor.PID, msg interface{}, timeout time.Duration, logger *slog.Logger) {
	future := root.RequestFuture(pid, msg, timeout)
	if _, err := future.Result(); err != nil {
		logger.Warn("flush failed", "error", err)
	}
}
