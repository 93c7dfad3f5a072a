package quote

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harvestcrest/gatehouse/internal/guard"
)

func newTestDefender() *guard.Defender {
	reputation := guard.NewReputationStore(3, time.Hour)
	limiter := guard.NewRateLimiter(time.Minute, 10, reputation)
	return guard.NewDefender(guard.NewClassifier(guard.DefaultMaxMessageLength), limiter, reputation)
}

func newTestHandler(store Store) (*Handler, *http.ServeMux) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(store, NewLogNotifier(logger), newTestDefender(), logger)
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	return h, mux
}

func submit(t *testing.T, mux *http.ServeMux, sub Submission) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(sub)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/quotes", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestSubmit_Success(t *testing.T) {
	store := NewMemoryStore()
	_, mux := newTestHandler(store)

	rec := submit(t, mux, validSubmission())
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp submitResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Regexp(t, `^HC-\d+-[A-Z0-9]{6}$`, resp.ReferenceNumber)

	stored, err := store.GetByReference(context.Background(), resp.ReferenceNumber)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "Amina Tesfaye", stored.Name)
	assert.Equal(t, StatusNew, stored.Status)
}

func TestSubmit_NoStoreConfigured(t *testing.T) {
	_, mux := newTestHandler(nil)

	rec := submit(t, mux, validSubmission())
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSubmit_BadBody(t *testing.T) {
	_, mux := newTestHandler(NewMemoryStore())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/quotes", strings.NewReader("{no"))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmit_ShapeErrors(t *testing.T) {
	store := NewMemoryStore()
	_, mux := newTestHandler(store)

	sub := validSubmission()
	sub.Email = "broken"
	rec := submit(t, mux, sub)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "validation failed", resp.Error)
	assert.Contains(t, resp.Fields, "email")

	quotes, err := store.List(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, quotes, "rejected submissions must not be stored")
}

func TestSubmit_ContentScreening(t *testing.T) {
	store := NewMemoryStore()
	_, mux := newTestHandler(store)

	sub := validSubmission()
	sub.Notes = "BUY NOW!!! Visit http://phishing-site.tk for FREE MONEY limited time offer"
	rec := submit(t, mux, sub)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "content rejected", resp.Error)
	assert.Contains(t, resp.Fields, "notes")

	quotes, err := store.List(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, quotes)
}

func TestSubmit_EmptyOptionalFieldsSkipScreening(t *testing.T) {
	_, mux := newTestHandler(NewMemoryStore())

	sub := validSubmission()
	sub.Company = ""
	sub.Notes = ""
	rec := submit(t, mux, sub)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestList_ReturnsNewestFirst(t *testing.T) {
	store := NewMemoryStore()
	h, mux := newTestHandler(store)

	base := time.UnixMilli(1700000000000)
	step := 0
	h.now = func() time.Time {
		step++
		return base.Add(time.Duration(step) * time.Minute)
	}

	first := validSubmission()
	first.Name = "First Sender"
	require.Equal(t, http.StatusCreated, submit(t, mux, first).Code)

	second := validSubmission()
	second.Name = "Second Sender"
	require.Equal(t, http.StatusCreated, submit(t, mux, second).Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/quotes", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Quotes []struct {
			Name string `json:"name"`
		} `json:"quotes"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Quotes, 2)
	assert.Equal(t, "Second Sender", resp.Quotes[0].Name)
	assert.Equal(t, "First Sender", resp.Quotes[1].Name)
}
