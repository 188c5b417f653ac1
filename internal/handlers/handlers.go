package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/go-playground/validator/v10"

	"marsh-chat/internal/config"
	"marsh-chat/internal/engine"
	"marsh-chat/internal/gateway"
	"marsh-chat/internal/utils"
	"marsh-chat/internal/websocket"
)

// Server holds all HTTP-layer dependencies, including the actor system and
// the realtime gateway.
type Server struct {
	System         *actor.ActorSystem
	Context        *actor.RootContext
	Engine         *engine.Engine
	Gateway        *gateway.Gateway
	Hub            *websocket.Hub
	Metrics        *utils.MetricsCollector
	Config         *config.Config
	Logger         *slog.Logger
	RequestTimeout time.Duration

	validate *validator.Validate
}

// NewServer creates a new Server instance with the given components
func NewServer(
	system *actor.ActorSystem,
	eng *engine.Engine,
	gw *gateway.Gateway,
	hub *websocket.Hub,
	metrics *utils.MetricsCollector,
	cfg *config.Config,
	logger *slog.Logger,
) *Server {
	return &Server{
		System:         system,
		Context:        system.Root,
		Engine:         eng,
		Gateway:        gw,
		Hub:            hub,
		Metrics:        metrics,
		Config:         cfg,
		Logger:         logger,
		RequestTimeout: cfg.Server.RequestTimeout,
		validate:       validator.New(),
	}
}

// request performs an actor round-trip with the server's default timeout.
func (s *Server) request(pid *actor.PID, msg interface{}) (interface{}, error) {
	future := s.Context.RequestFuture(pid, msg, s.RequestTimeout)
	return future.Result()
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
