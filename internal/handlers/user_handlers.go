package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/samber/lo"

	"marsh-chat/internal/engine/actors"
	"marsh-chat/internal/gateway"
	"marsh-chat/internal/models"
	"marsh-chat/internal/utils"
)

// SignupRequest represents a request to create an account
type SignupRequest struct {
	Username    string `json:"username" validate:"required,min=3"`
	Password    string `json:"password" validate:"required,min=6"`
	DisplayName string `json:"displayName"`
}

// LoginRequest represents a credential check
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type authResponse struct {
	Success     bool   `json:"success"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
}

// HandleSignup registers a new account.
func (s *Server) HandleSignup() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.Metrics.IncrementRequests()

		var req SignupRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := s.validate.Struct(&req); err != nil {
			writeError(w, http.StatusBadRequest,
				"username must be at least 3 characters and password at least 6")
			return
		}

		result, err := s.request(s.Engine.GetIdentityActor(), &actors.RegisterUserMsg{
			Username:    req.Username,
			Password:    req.Password,
			DisplayName: req.DisplayName,
		})
		if err != nil {
			s.Metrics.IncrementErrors()
			writeError(w, http.StatusInternalServerError, "failed to register user")
			return
		}

		if appErr, ok := result.(*utils.AppError); ok {
			writeError(w, utils.AppErrorToHTTPStatus(appErr.Code), appErr.Message)
			return
		}

		user := result.(*models.User)
		writeJSON(w, http.StatusOK, &authResponse{
			Success:     true,
			Username:    user.Username,
			DisplayName: user.DisplayName,
		})
	}
}

// HandleLogin verifies credentials. The failure response never distinguishes
// an unknown username from a wrong password.
func (s *Server) HandleLogin() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.Metrics.IncrementRequests()

		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := s.validate.Struct(&req); err != nil {
			writeError(w, http.StatusBadRequest, "username and password are required")
			return
		}

		result, err := s.request(s.Engine.GetIdentityActor(), &actors.LoginMsg{
			Username: req.Username,
			Password: req.Password,
		})
		if err != nil {
			s.Metrics.IncrementErrors()
			writeError(w, http.StatusInternalServerError, "login failed")
			return
		}

		if appErr, ok := result.(*utils.AppError); ok {
			writeError(w, utils.AppErrorToHTTPStatus(appErr.Code), appErr.Message)
			return
		}

		user := result.(*models.User)
		writeJSON(w, http.StatusOK, &authResponse{
			Success:     true,
			Username:    user.Username,
			DisplayName: user.DisplayName,
		})
	}
}

// HandleUsers returns every registered user with presence derived from the
// live connection map and the durable last-seen collection.
func (s *Server) HandleUsers() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.Metrics.IncrementRequests()

		usersResult, err := s.request(s.Engine.GetIdentityActor(), &actors.ListUsersMsg{})
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to list users")
			return
		}
		snapResult, err := s.request(s.Engine.GetPresenceActor(), &actors.PresenceSnapshotMsg{})
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to read presence")
			return
		}

		users := usersResult.([]*models.User)
		snap := snapResult.(*actors.PresenceSnapshot)
		now := time.Now()

		summaries := lo.Map(users, func(u *models.User, _ int) models.UserSummary {
			return gateway.BuildUserSummary(u, snap, now)
		})
		writeJSON(w, http.StatusOK, summaries)
	}
}
