package actors

import (
	"log/slog"
	"strings"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/samber/lo"
	"golang.org/x/crypto/bcrypt"

	"marsh-chat/internal/models"
	"marsh-chat/internal/storage"
	"marsh-chat/internal/utils"
)

const bcryptCost = 10

// Message types for IdentityActor
type (
	RegisterUserMsg struct {
		Username    string
		Password    string
		DisplayName string
	}

	LoginMsg struct {
		Username string
		Password string
	}

	FindUserMsg struct {
		Username string
	}

	// ListUsersMsg returns every registered user except Exclude (empty
	// Exclude returns all).
	ListUsersMsg struct {
		Exclude string
	}

	GetUserCountMsg struct{}

	FlushUsersMsg struct{}
)

// IdentityActor owns the registered-user collection. Every mutation rewrites
// the durable users file before the actor responds, so the write cost scales
// with total user count; acceptable at this system's intended scale.
type IdentityActor struct {
	users   []*models.User
	store   *storage.FileStore
	metrics *utils.MetricsCollector
	logger  *slog.Logger
}

func NewIdentityActor(store *storage.FileStore, metrics *utils.MetricsCollector, logger *slog.Logger) actor.Actor {
	users := store.LoadUsers()
	logger.Info("loaded users", "count", len(users))
	return &IdentityActor{
		users:   users,
		store:   store,
		metrics: metrics,
		logger:  logger,
	}
}

func (a *IdentityActor) Receive(context actor.Context) {
	switch msg := context.Message().(type) {
	case *RegisterUserMsg:
		a.handleRegister(context, msg)
	case *LoginMsg:
		a.handleLogin(context, msg)
	case *FindUserMsg:
		context.Respond(a.find(msg.Username))
	case *ListUsersMsg:
		context.Respond(lo.Filter(a.users, func(u *models.User, _ int) bool {
			return u.Username != msg.Exclude
		}))
	case *GetUserCountMsg:
		context.Respond(len(a.users))
	case *FlushUsersMsg:
		context.Respond(a.store.SaveUsers(a.users) == nil)
	}
}

func (a *IdentityActor) handleRegister(context actor.Context, msg *RegisterUserMsg) {
	startTime := time.Now()

	if len(msg.Username) < 3 || len(msg.Password) < 6 {
		context.Respond(utils.NewValidationError(
			"username must be at least 3 characters and password at least 6"))
		return
	}

	if a.find(msg.Username) != nil {
		context.Respond(utils.NewDuplicateUserError(msg.Username))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(msg.Password), bcryptCost)
	if err != nil {
		context.Respond(utils.NewAppError(utils.ErrValidation, "failed to hash password", err))
		return
	}

	displayName := msg.DisplayName
	if displayName == "" {
		displayName = msg.Username
	}

	user := &models.User{
		Username:     msg.Username,
		PasswordHash: string(hash),
		DisplayName:  displayName,
		CreatedAt:    time.Now(),
	}
	a.users = append(a.users, user)

	if err := a.store.SaveUsers(a.users); err != nil {
		// Logged by the store; keep serving from memory.
		a.metrics.IncrementErrors()
	}

	a.logger.Info("new user registered", "username", user.Username)
	a.metrics.AddOperationLatency("register_user", time.Since(startTime))
	context.Respond(user)
}

func (a *IdentityActor) handleLogin(context actor.Context, msg *LoginMsg) {
	startTime := time.Now()

	user := a.find(msg.Username)
	if user == nil {
		context.Respond(utils.NewInvalidCredentialsError())
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(msg.Password)); err != nil {
		context.Respond(utils.NewInvalidCredentialsError())
		return
	}

	a.logger.Info("user logged in", "username", user.Username)
	a.metrics.AddOperationLatency("login", time.Since(startTime))
	context.Respond(user)
}

// find is the case-insensitive lookup every identity operation goes through.
func (a *IdentityActor) find(username string) *models.User {
	for _, u := range a.users {
		if strings.EqualFold(u.Username, username) {
			return u
		}
	}
	return nil
}
