package handlers

import (
	"net/http"

	"marsh-chat/internal/engine/actors"
)

type healthResponse struct {
	Status        string `json:"status"`
	Users         int    `json:"users"`
	Conversations int    `json:"conversations"`
	MessagesSent  int    `json:"messagesSent"`
	UptimeSeconds int64  `json:"uptimeSeconds"`
}

// HandleHealth reports collection totals via the owning actors.
func (s *Server) HandleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		usersResult, err := s.request(s.Engine.GetIdentityActor(), &actors.GetUserCountMsg{})
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to get user count")
			return
		}
		convResult, err := s.request(s.Engine.GetConversationActor(), &actors.GetConversationCountMsg{})
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to get conversation count")
			return
		}

		writeJSON(w, http.StatusOK, &healthResponse{
			Status:        "ok",
			Users:         usersResult.(int),
			Conversations: convResult.(int),
			MessagesSent:  s.Metrics.OperationCount("send_message"),
			UptimeSeconds: int64(s.Metrics.Uptime().Seconds()),
		})
	}
}
