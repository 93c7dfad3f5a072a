package chat

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/harvestcrest/gatehouse/internal/captcha"
	"github.com/harvestcrest/gatehouse/internal/platform/middleware"
)

// wsClientMessage is the JSON shape clients send over the WebSocket.
type wsClientMessage struct {
	Content string `json:"content"`
}

// wsServerMessage is the JSON shape the server sends to clients.
type wsServerMessage struct {
	Type              string   `json:"type"`
	IsValid           bool     `json:"isValid"`
	Message           string   `json:"message"`
	Violations        []string `json:"violations,omitempty"`
	Sanitized         string   `json:"sanitized,omitempty"`
	RemainingMessages int      `json:"remainingMessages"`
	Blocked           bool     `json:"blocked"`
}

// wsIdleTimeout is the maximum time the server waits for a client message
// before closing an idle connection. Resets on each received message.
const wsIdleTimeout = 10 * time.Minute

// HandleWebSocket upgrades to a WebSocket connection for the chat widget.
// Callers that look like bots must present a verified CAPTCHA token via the
// captcha_token query parameter (browsers cannot set headers on WS upgrade).
// Every inbound frame runs through the full defense pipeline and the
// decision is written back.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ip := middleware.GetClientIP(r.Context())
	identity := r.URL.Query().Get("identity")

	assessment := captcha.AssessBot(r.UserAgent(), ip)
	if assessment.IsBot {
		token := r.URL.Query().Get("captcha_token")
		if token == "" || !h.captcha.IsVerified(token) {
			slog.Info("ws upgrade refused",
				"confidence", assessment.Confidence,
				"reasons", assessment.Reasons,
			)
			http.Error(w, `{"error":"captcha verification required"}`, http.StatusForbidden)
			return
		}
		// Verified tokens are single-use: consume on successful upgrade.
		defer h.captcha.Invalidate(token)
	}

	if ip != "" && h.defender.Reputation().IsBlocked(ip) {
		http.Error(w, `{"error":"ip temporarily blocked"}`, http.StatusForbidden)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.Warn("ws accept failed", "error", err)
		return
	}
	defer conn.Close(websocket.StatusInternalError, "closing")

	for {
		ctx, cancel := context.WithTimeout(r.Context(), wsIdleTimeout)
		var msg wsClientMessage
		err := wsjson.Read(ctx, conn, &msg)
		cancel()
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				conn.Close(websocket.StatusNormalClosure, "")
				return
			}
			if errors.Is(err, context.DeadlineExceeded) {
				conn.Close(websocket.StatusPolicyViolation, "idle timeout")
				return
			}
			return
		}

		dec := h.defender.ValidateMessage(msg.Content, identity, ip)
		reply := wsServerMessage{
			Type:              "decision",
			IsValid:           dec.Valid,
			Message:           dec.Message,
			Violations:        dec.Violations,
			Sanitized:         dec.Sanitized,
			RemainingMessages: dec.RemainingMessages,
			Blocked:           dec.Blocked,
		}

		writeCtx, writeCancel := context.WithTimeout(r.Context(), 10*time.Second)
		err = wsjson.Write(writeCtx, conn, reply)
		writeCancel()
		if err != nil {
			return
		}

		// A block decision ends the session; further frames are pointless.
		if dec.Blocked {
			conn.Close(websocket.StatusPolicyViolation, "ip blocked")
			return
		}
	}
}
