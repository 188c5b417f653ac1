package engine

import (
	"log/slog"
	"time"

	"github.com/asynkron/protoactor-go/actor"

	"marsh-chat/internal/engine/actors"
	"marsh-chat/internal/storage"
	"marsh-chat/internal/utils"
)

// Engine coordinates communication between actors. Each durable collection
// is owned by exactly one actor, so every read-modify-persist sequence for a
// collection runs to completion before the next begins.
type Engine struct {
	identityActor     *actor.PID
	conversationActor *actor.PID
	presenceActor     *actor.PID
}

func NewEngine(system *actor.ActorSystem, store *storage.FileStore, messageTTL time.Duration, metrics *utils.MetricsCollector, logger *slog.Logger) *Engine {
	context := system.Root

	identityProps := actor.PropsFromProducer(func() actor.Actor {
		return actors.NewIdentityActor(store, metrics, logger)
	})
	identityPID := context.Spawn(identityProps)

	conversationProps := actor.PropsFromProducer(func() actor.Actor {
		return actors.NewConversationActor(store, messageTTL, metrics, logger)
	})
	conversationPID := context.Spawn(conversationProps)

	presenceProps := actor.PropsFromProducer(func() actor.Actor {
		return actors.NewPresenceActor(store, metrics, logger)
	})
	presencePID := context.Spawn(presenceProps)

	return &Engine{
		identityActor:     identityPID,
		conversationActor: conversationPID,
		presenceActor:     presencePID,
	}
}

// GetIdentityActor returns the PID of the identity actor
func (e *Engine) GetIdentityActor() *actor.PID {
	return e.identityActor
}

// GetConversationActor returns the PID of the conversation actor
func (e *Engine) GetConversationActor() *actor.PID {
	return e.conversationActor
}

// GetPresenceActor returns the PID of the presence actor
func (e *Engine) GetPresenceActor() *actor.PID {
	return e.presenceActor
}
