package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marsh-chat/internal/config"
	"marsh-chat/internal/engine"
	"marsh-chat/internal/engine/actors"
	"marsh-chat/internal/gateway"
	"marsh-chat/internal/models"
	"marsh-chat/internal/storage"
	"marsh-chat/internal/utils"
	"marsh-chat/internal/websocket"
)

func newTestServer(t *testing.T) (*Server, *storage.FileStore) {
	t.Helper()
	dir := t.TempDir()
	logger := slog.Default()
	store, err := storage.NewFileStore(dir+"/data", dir+"/public", logger)
	require.NoError(t, err)

	cfg := config.DefaultConfig()
	system := actor.NewActorSystem()
	metrics := utils.NewMetricsCollector()
	eng := engine.NewEngine(system, store, cfg.Retention.MessageTTL, metrics, logger)
	hub := websocket.NewHub(logger)
	gw := gateway.New(system.Root, eng, hub, 5*time.Second, logger)

	return NewServer(system, eng, gw, hub, metrics, cfg, logger), store
}

func postJSON(t *testing.T, handler http.HandlerFunc, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(data))
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestSignupAndLogin(t *testing.T) {
	s, _ := newTestServer(t)

	rec := postJSON(t, s.HandleSignup(), &SignupRequest{
		Username:    "alice",
		Password:    "secret123",
		DisplayName: "Alice",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var signup authResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &signup))
	assert.True(t, signup.Success)
	assert.Equal(t, "Alice", signup.DisplayName)

	rec = postJSON(t, s.HandleLogin(), &LoginRequest{Username: "alice", Password: "secret123"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSignupValidation(t *testing.T) {
	s, _ := newTestServer(t)

	rec := postJSON(t, s.HandleSignup(), &SignupRequest{Username: "al", Password: "secret123"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postJSON(t, s.HandleSignup(), &SignupRequest{Username: "alice", Password: "short"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSignupDuplicate(t *testing.T) {
	s, _ := newTestServer(t)

	postJSON(t, s.HandleSignup(), &SignupRequest{Username: "alice", Password: "secret123"})
	rec := postJSON(t, s.HandleSignup(), &SignupRequest{Username: "ALICE", Password: "secret456"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginFailureShapeIsUniform(t *testing.T) {
	s, _ := newTestServer(t)
	postJSON(t, s.HandleSignup(), &SignupRequest{Username: "alice", Password: "secret123"})

	wrongPassword := postJSON(t, s.HandleLogin(), &LoginRequest{Username: "alice", Password: "wrong1"})
	unknownUser := postJSON(t, s.HandleLogin(), &LoginRequest{Username: "nobody", Password: "secret123"})

	assert.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	assert.Equal(t, http.StatusUnauthorized, unknownUser.Code)
	assert.JSONEq(t, wrongPassword.Body.String(), unknownUser.Body.String())
}

func TestUserList(t *testing.T) {
	s, _ := newTestServer(t)
	postJSON(t, s.HandleSignup(), &SignupRequest{Username: "alice", Password: "secret123"})
	postJSON(t, s.HandleSignup(), &SignupRequest{Username: "bob", Password: "secret123"})

	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	rec := httptest.NewRecorder()
	s.HandleUsers()(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var list []models.UserSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 2)
	assert.False(t, list[0].Online)
}

func multipartBody(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)
	part, err := writer.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = io.Copy(part, bytes.NewReader(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return buf, writer.FormDataContentType()
}

func TestUploadStoresBlob(t *testing.T) {
	s, store := newTestServer(t)

	// Minimal valid PNG header so content sniffing agrees with the extension.
	png := append([]byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}, make([]byte, 64)...)
	body, contentType := multipartBody(t, "media", "cat.png", png)

	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.HandleUpload(store.UploadDir())(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp uploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "cat.png", resp.OriginalName)
	assert.Equal(t, int64(len(png)), resp.Size)
	assert.Contains(t, resp.Path, "/uploads/")
}

func TestUploadRejectsDisallowedExtension(t *testing.T) {
	s, store := newTestServer(t)

	body, contentType := multipartBody(t, "media", "payload.exe", []byte("MZ..."))
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.HandleUpload(store.UploadDir())(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadRequiresFile(t *testing.T) {
	s, store := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/upload", bytes.NewReader(nil))
	rec := httptest.NewRecorder()
	s.HandleUpload(store.UploadDir())(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)
	postJSON(t, s.HandleSignup(), &SignupRequest{Username: "alice", Password: "secret123"})
	postJSON(t, s.HandleSignup(), &SignupRequest{Username: "bob", Password: "secret123"})
	_, err := s.request(s.Engine.GetConversationActor(), &actors.AppendMessageMsg{
		Sender:    "alice",
		Recipient: "bob",
		Text:      "hi",
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.HandleHealth()(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var health healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, 2, health.Users)
	assert.Equal(t, 1, health.Conversations)
	assert.Equal(t, 1, health.MessagesSent)
}
