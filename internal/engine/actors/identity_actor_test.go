package actors

import (
	"log/slog"
	"testing"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marsh-chat/internal/models"
	"marsh-chat/internal/storage"
	"marsh-chat/internal/utils"
)

func newTestStore(t *testing.T) *storage.FileStore {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFileStore(dir+"/data", dir+"/public", slog.Default())
	require.NoError(t, err)
	return store
}

func spawnIdentity(t *testing.T) (*actor.ActorSystem, *actor.PID) {
	t.Helper()
	system := actor.NewActorSystem()
	store := newTestStore(t)
	props := actor.PropsFromProducer(func() actor.Actor {
		return NewIdentityActor(store, utils.NewMetricsCollector(), slog.Default())
	})
	return system, system.Root.Spawn(props)
}

func request(t *testing.T, system *actor.ActorSystem, pid *actor.PID, msg interface{}) interface{} {
	t.Helper()
	future := system.Root.RequestFuture(pid, msg, 5*time.Second)
	result, err := future.Result()
	require.NoError(t, err)
	return result
}

func TestRegisterAndLogin(t *testing.T) {
	system, pid := spawnIdentity(t)

	result := request(t, system, pid, &RegisterUserMsg{
		Username:    "alice",
		Password:    "secret123",
		DisplayName: "Alice",
	})
	user, ok := result.(*models.User)
	require.True(t, ok, "registration should return a user, got %T", result)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "Alice", user.DisplayName)
	assert.NotEqual(t, "secret123", user.PasswordHash)

	result = request(t, system, pid, &LoginMsg{Username: "alice", Password: "secret123"})
	user, ok = result.(*models.User)
	require.True(t, ok)
	assert.Equal(t, "alice", user.Username)
}

func TestRegisterValidation(t *testing.T) {
	system, pid := spawnIdentity(t)

	result := request(t, system, pid, &RegisterUserMsg{Username: "al", Password: "secret123"})
	appErr, ok := result.(*utils.AppError)
	require.True(t, ok)
	assert.Equal(t, utils.ErrValidation, appErr.Code)

	result = request(t, system, pid, &RegisterUserMsg{Username: "alice", Password: "short"})
	appErr, ok = result.(*utils.AppError)
	require.True(t, ok)
	assert.Equal(t, utils.ErrValidation, appErr.Code)
}

func TestRegisterDuplicateIsCaseInsensitive(t *testing.T) {
	system, pid := spawnIdentity(t)

	result := request(t, system, pid, &RegisterUserMsg{Username: "Alice", Password: "secret123"})
	require.IsType(t, &models.User{}, result)

	result = request(t, system, pid, &RegisterUserMsg{Username: "alice", Password: "different1"})
	appErr, ok := result.(*utils.AppError)
	require.True(t, ok)
	assert.Equal(t, utils.ErrDuplicateUser, appErr.Code)
}

func TestRegisterDefaultsDisplayName(t *testing.T) {
	system, pid := spawnIdentity(t)

	result := request(t, system, pid, &RegisterUserMsg{Username: "bob", Password: "secret123"})
	user := result.(*models.User)
	assert.Equal(t, "bob", user.DisplayName)
}

func TestLoginErrorDoesNotLeakWhichFieldFailed(t *testing.T) {
	system, pid := spawnIdentity(t)

	request(t, system, pid, &RegisterUserMsg{Username: "alice", Password: "secret123"})

	wrongPassword := request(t, system, pid, &LoginMsg{Username: "alice", Password: "wrongpass"})
	unknownUser := request(t, system, pid, &LoginMsg{Username: "nobody", Password: "secret123"})

	errA, ok := wrongPassword.(*utils.AppError)
	require.True(t, ok)
	errB, ok := unknownUser.(*utils.AppError)
	require.True(t, ok)

	assert.Equal(t, errA.Code, errB.Code)
	assert.Equal(t, errA.Message, errB.Message)
}

func TestFindIsCaseInsensitive(t *testing.T) {
	system, pid := spawnIdentity(t)

	request(t, system, pid, &RegisterUserMsg{Username: "Alice", Password: "secret123"})

	result := request(t, system, pid, &FindUserMsg{Username: "ALICE"})
	user, ok := result.(*models.User)
	require.True(t, ok)
	require.NotNil(t, user)
	assert.Equal(t, "Alice", user.Username)

	result = request(t, system, pid, &FindUserMsg{Username: "nobody"})
	user, _ = result.(*models.User)
	assert.Nil(t, user)
}

func TestListUsersExcludesSelf(t *testing.T) {
	system, pid := spawnIdentity(t)

	request(t, system, pid, &RegisterUserMsg{Username: "alice", Password: "secret123"})
	request(t, system, pid, &RegisterUserMsg{Username: "bob", Password: "secret123"})

	result := request(t, system, pid, &ListUsersMsg{Exclude: "alice"})
	users := result.([]*models.User)
	require.Len(t, users, 1)
	assert.Equal(t, "bob", users[0].Username)

	result = request(t, system, pid, &ListUsersMsg{})
	assert.Len(t, result.([]*models.User), 2)
}
