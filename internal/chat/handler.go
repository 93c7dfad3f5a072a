// Package chat exposes the defense pipeline over HTTP: message validation,
// URL inspection, CAPTCHA lifecycle, and the admin IP surface.
package chat

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/harvestcrest/gatehouse/internal/captcha"
	"github.com/harvestcrest/gatehouse/internal/guard"
	"github.com/harvestcrest/gatehouse/internal/platform/middleware"
)

// Handler handles chat-defense endpoints.
type Handler struct {
	defender *guard.Defender
	captcha  *captcha.Store
}

func NewHandler(defender *guard.Defender, captchaStore *captcha.Store) *Handler {
	return &Handler{defender: defender, captcha: captchaStore}
}

// RegisterRoutes attaches all chat-defense routes to the mux. Admin routes
// are registered too; authentication for them is the outer system's job.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/chat/validate", h.HandleValidateMessage)
	mux.HandleFunc("GET /api/v1/chat/ws", h.HandleWebSocket)
	mux.HandleFunc("POST /api/v1/urls/validate", h.HandleValidateURL)
	mux.HandleFunc("POST /api/v1/captcha/challenge", h.HandleIssueChallenge)
	mux.HandleFunc("POST /api/v1/captcha/verify", h.HandleVerifyCaptcha)
	mux.HandleFunc("GET /api/v1/captcha/sessions/{token}", h.HandleCaptchaStatus)
	mux.HandleFunc("POST /api/v1/admin/ips/{ip}/block", h.HandleBlockIP)
	mux.HandleFunc("DELETE /api/v1/admin/ips/{ip}/block", h.HandleUnblockIP)
	mux.HandleFunc("GET /api/v1/admin/ips/{ip}", h.HandleGetIPReputation)
}

type validateMessageRequest struct {
	Content   string `json:"content"`
	Identity  string `json:"identity"`
	IPAddress string `json:"ipAddress"`
}

type validateMessageResponse struct {
	IsValid           bool     `json:"isValid"`
	Message           string   `json:"message"`
	Violations        []string `json:"violations"`
	Sanitized         string   `json:"sanitized"`
	RemainingMessages int      `json:"remainingMessages"`
	Blocked           bool     `json:"blocked"`
}

func (h *Handler) HandleValidateMessage(w http.ResponseWriter, r *http.Request) {
	var req validateMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	ip := req.IPAddress
	if ip == "" {
		ip = middleware.GetClientIP(r.Context())
	}

	dec := h.defender.ValidateMessage(req.Content, req.Identity, ip)
	writeJSON(w, http.StatusOK, validateMessageResponse{
		IsValid:           dec.Valid,
		Message:           dec.Message,
		Violations:        dec.Violations,
		Sanitized:         dec.Sanitized,
		RemainingMessages: dec.RemainingMessages,
		Blocked:           dec.Blocked,
	})
}

type validateURLRequest struct {
	URL string `json:"url"`
}

type validateURLResponse struct {
	IsValid bool   `json:"isValid"`
	IsSafe  bool   `json:"isSafe"`
	Reason  string `json:"reason,omitempty"`
}

func (h *Handler) HandleValidateURL(w http.ResponseWriter, r *http.Request) {
	var req validateURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "url is required"})
		return
	}

	d := guard.InspectURL(req.URL)
	writeJSON(w, http.StatusOK, validateURLResponse{
		IsValid: d.WellFormed,
		IsSafe:  d.Safe,
		Reason:  d.Reason,
	})
}

type challengeResponse struct {
	Token    string   `json:"token"`
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

func (h *Handler) HandleIssueChallenge(w http.ResponseWriter, r *http.Request) {
	ch, err := h.captcha.Issue()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "challenge generation failed"})
		return
	}
	writeJSON(w, http.StatusOK, challengeResponse{
		Token:    ch.Token,
		Question: ch.Question,
		Options:  ch.Options,
	})
}

type verifyCaptchaRequest struct {
	Token  string `json:"token"`
	Answer string `json:"answer"`
}

type verifyCaptchaResponse struct {
	Verified          bool   `json:"verified"`
	Message           string `json:"message"`
	RemainingAttempts int    `json:"remainingAttempts"`
}

func (h *Handler) HandleVerifyCaptcha(w http.ResponseWriter, r *http.Request) {
	var req verifyCaptchaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "token is required"})
		return
	}

	res := h.captcha.Verify(req.Token, req.Answer)
	writeJSON(w, http.StatusOK, verifyCaptchaResponse{
		Verified:          res.Verified,
		Message:           res.Message,
		RemainingAttempts: res.RemainingAttempts,
	})
}

func (h *Handler) HandleCaptchaStatus(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	writeJSON(w, http.StatusOK, map[string]bool{"verified": h.captcha.IsVerified(token)})
}

type blockIPRequest struct {
	DurationMs int64 `json:"durationMs"`
}

func (h *Handler) HandleBlockIP(w http.ResponseWriter, r *http.Request) {
	ip := r.PathValue("ip")
	if ip == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "ip is required"})
		return
	}

	var req blockIPRequest
	if r.Body != nil {
		// Body is optional; a missing or empty body means the default duration.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	h.defender.Reputation().Block(ip, time.Duration(req.DurationMs)*time.Millisecond)
	writeJSON(w, http.StatusOK, map[string]string{"status": "blocked"})
}

func (h *Handler) HandleUnblockIP(w http.ResponseWriter, r *http.Request) {
	ip := r.PathValue("ip")
	if ip == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "ip is required"})
		return
	}

	h.defender.Reputation().Unblock(ip)
	writeJSON(w, http.StatusOK, map[string]string{"status": "unblocked"})
}

type ipReputationResponse struct {
	Violations      int   `json:"violations"`
	LastViolationMs int64 `json:"lastViolationMs"`
	Blocked         bool  `json:"blocked"`
}

func (h *Handler) HandleGetIPReputation(w http.ResponseWriter, r *http.Request) {
	ip := r.PathValue("ip")
	rep, found := h.defender.Reputation().Lookup(ip)
	if !found {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no reputation record"})
		return
	}
	writeJSON(w, http.StatusOK, ipReputationResponse{
		Violations:      rep.Violations,
		LastViolationMs: rep.LastViolation.UnixMilli(),
		Blocked:         rep.Blocked,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
