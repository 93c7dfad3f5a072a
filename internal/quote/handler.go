package quote

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/harvestcrest/gatehouse/internal/guard"
)

// Handler serves quote-request intake.
type Handler struct {
	store    Store
	notifier Notifier
	defender *guard.Defender
	logger   *slog.Logger

	now func() time.Time
}

func NewHandler(store Store, notifier Notifier, defender *guard.Defender, logger *slog.Logger) *Handler {
	return &Handler{
		store:    store,
		notifier: notifier,
		defender: defender,
		logger:   logger,
		now:      time.Now,
	}
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/quotes", h.HandleSubmit)
	mux.HandleFunc("GET /api/v1/admin/quotes", h.HandleList)
}

type submitResponse struct {
	Success         bool   `json:"success"`
	Message         string `json:"message"`
	ReferenceNumber string `json:"referenceNumber,omitempty"`
}

func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "quote intake is not configured",
		})
		return
	}

	var sub Submission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if errs := sub.ValidateShape(); errs != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":  "validation failed",
			"fields": errs,
		})
		return
	}

	if errs := h.screenContent(sub); errs != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":  "content rejected",
			"fields": errs,
		})
		return
	}

	now := h.now()
	reference, err := NewReferenceNumber(now)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to generate reference number", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	q := &Quote{
		ReferenceNumber:  reference,
		Name:             strings.TrimSpace(sub.Name),
		Email:            strings.TrimSpace(sub.Email),
		Phone:            strings.TrimSpace(sub.Phone),
		Company:          strings.TrimSpace(sub.Company),
		CommodityType:    sub.CommodityType,
		Quantity:         sub.Quantity,
		Unit:             sub.Unit,
		DeliveryTimeline: sub.DeliveryTimeline,
		Notes:            strings.TrimSpace(sub.Notes),
		Status:           StatusNew,
		CreatedAt:        now,
	}
	if err := h.store.Create(r.Context(), q); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to store quote request", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	if err := h.notifier.NotifyNewQuote(r.Context(), q); err != nil {
		h.logger.WarnContext(r.Context(), "failed to notify about quote request",
			"reference", q.ReferenceNumber, "error", err)
	}

	writeJSON(w, http.StatusCreated, submitResponse{
		Success:         true,
		Message:         "Quote request submitted successfully",
		ReferenceNumber: q.ReferenceNumber,
	})
}

// screenContent runs the chat content rules over the free-text fields.
// Structured fields (email, phone, commodity) are covered by shape checks.
func (h *Handler) screenContent(sub Submission) FieldErrors {
	errs := FieldErrors{}
	for field, value := range map[string]string{
		"name":    sub.Name,
		"company": sub.Company,
		"notes":   sub.Notes,
	} {
		if strings.TrimSpace(value) == "" {
			continue
		}
		res := h.defender.ValidateFreeText(value)
		if !res.Valid {
			errs[field] = "Field contains disallowed content: " + strings.Join(res.Violations, "; ")
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "quote intake is not configured",
		})
		return
	}

	quotes, err := h.store.List(r.Context(), 100)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list quote requests", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	out := make([]map[string]any, 0, len(quotes))
	for _, q := range quotes {
		out = append(out, map[string]any{
			"id":               q.ID,
			"referenceNumber":  q.ReferenceNumber,
			"name":             q.Name,
			"email":            q.Email,
			"phone":            q.Phone,
			"company":          q.Company,
			"commodityType":    q.CommodityType,
			"quantity":         q.Quantity,
			"unit":             q.Unit,
			"deliveryTimeline": q.DeliveryTimeline,
			"notes":            q.Notes,
			"status":           q.Status,
			"createdAtMs":      q.CreatedAt.UnixMilli(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"quotes": out})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
