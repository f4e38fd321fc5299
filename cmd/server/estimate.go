package main

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Simplici0/costeo3d/internal/metrics"
	"github.com/Simplici0/costeo3d/internal/quoting"
)

const (
	socketReadLimit = 64 << 10
	socketIdle      = 2 * time.Minute
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// socketReply is sent once per request message on the live estimate socket.
type socketReply struct {
	Estimate *quoting.Estimate `json:"estimate,omitempty"`
	Error    string            `json:"error,omitempty"`
	Field    string            `json:"field,omitempty"`
}

func (s *server) handleEstimate(w http.ResponseWriter, r *http.Request) {
	var req quoting.Request
	if !decodeJSON(w, r, &req) {
		return
	}

	est, err := s.estimator.Estimate(r.Context(), metrics.SourceHTTP, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, est)
}

// handleEstimateSocket answers each JSON request message with one estimate, letting a
// form recompute prices as the user types.
func (s *server) handleEstimateSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WarnContext(r.Context(), "websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	conn.SetReadLimit(socketReadLimit)
	ctx := r.Context()
	for {
		_ = conn.SetReadDeadline(time.Now().Add(socketIdle))

		var req quoting.Request
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.DebugContext(ctx, "websocket closed", "error", err)
			}
			return
		}

		// Every message is an estimate and spends from the same per-client budget as the HTTP endpoint.
		reply := socketReply{Error: rateLimitedMessage}
		if s.limiter.allow(clientIP(r)) {
			reply = s.socketEstimate(r, req)
		}
		if err := conn.WriteJSON(reply); err != nil {
			s.logger.WarnContext(ctx, "websocket write failed", "error", err)
			return
		}
	}
}

func (s *server) socketEstimate(r *http.Request, req quoting.Request) socketReply {
	est, err := s.estimator.Estimate(r.Context(), metrics.SourceWS, req)
	if err == nil {
		return socketReply{Estimate: &est}
	}

	var inputErr *quoting.InputError
	if errors.As(err, &inputErr) {
		return socketReply{Error: inputErr.Message, Field: inputErr.Field}
	}
	s.logger.ErrorContext(r.Context(), "websocket estimate failed", "error", err)
	return socketReply{Error: "Error interno"}
}
