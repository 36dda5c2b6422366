package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"tailwise-insights/internal/genai"
	"tailwise-insights/internal/insights"
	"tailwise-insights/internal/petdir"
	"tailwise-insights/internal/queue"
	"tailwise-insights/pkg/logging/logging"
)

// InsightsHandler serves GET /v1/pets/{petID}/insights/*.
type InsightsHandler struct {
	Service *insights.Service
}

func NewInsightsHandler(svc *insights.Service) *InsightsHandler {
	return &InsightsHandler{Service: svc}
}

func (h *InsightsHandler) Tips(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(ctx context.Context, petID string) (any, error) {
		return h.Service.GetTips(ctx, petID)
	})
}

func (h *InsightsHandler) Recommendations(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(ctx context.Context, petID string) (any, error) {
		return h.Service.GetRecommendations(ctx, petID)
	})
}

func (h *InsightsHandler) Reminders(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(ctx context.Context, petID string) (any, error) {
		return h.Service.GetReminders(ctx, petID)
	})
}

func (h *InsightsHandler) Status(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(ctx context.Context, petID string) (any, error) {
		return h.Service.GetStatus(ctx, petID)
	})
}

func (h *InsightsHandler) serve(
	w http.ResponseWriter,
	r *http.Request,
	get func(ctx context.Context, petID string) (any, error),
) {
	ctx := r.Context()
	logger := logging.L(ctx)
	start := time.Now()

	petID := chi.URLParam(r, "petID")
	if petID == "" {
		writeErrorJSON(w, http.StatusBadRequest, "pet_id_required", "", 0)
		return
	}

	res, err := get(ctx, petID)
	if err != nil {
		logger.Warn("insight request failed",
			zap.String("pet_id", petID),
			zap.Error(err),
			zap.Duration("duration", time.Since(start)),
		)
		writeError(w, err)
		return
	}

	logger.Info("insight request served",
		zap.String("pet_id", petID),
		zap.Duration("duration", time.Since(start)),
	)
	writeJSON(w, http.StatusOK, res)
}

type errorBody struct {
	Error      string `json:"error"`
	Code       string `json:"code,omitempty"`
	RetryAfter int64  `json:"retry_after,omitempty"` // seconds
}

// writeError maps the typed taxonomy onto HTTP statuses:
// not-found → 404, config/quota/rate-limit → 503 with Retry-After,
// remaining upstream failures → 502.
func writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, petdir.ErrNotFound) {
		writeErrorJSON(w, http.StatusNotFound, "pet_not_found", "", 0)
		return
	}
	if errors.Is(err, queue.ErrClosed) {
		writeErrorJSON(w, http.StatusServiceUnavailable, "shutting_down", "", 0)
		return
	}

	var ae *genai.APIError
	if errors.As(err, &ae) {
		retryAfter := int64(ae.RetryAfter / time.Second)
		switch ae.Code {
		case genai.CodeNotConfigured:
			writeErrorJSON(w, http.StatusServiceUnavailable, "ai_service_unavailable", string(ae.Code), 0)
		case genai.CodeDailyQuotaExceeded, genai.CodeRateLimited:
			writeErrorJSON(w, http.StatusServiceUnavailable, "ai_service_unavailable", string(ae.Code), retryAfter)
		default:
			writeErrorJSON(w, http.StatusBadGateway, "upstream_error", string(ae.Code), 0)
		}
		return
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		writeErrorJSON(w, http.StatusGatewayTimeout, "request_timeout", "", 0)
		return
	}

	writeErrorJSON(w, http.StatusInternalServerError, "internal_error", "", 0)
}

func writeErrorJSON(w http.ResponseWriter, status int, msg, code string, retryAfter int64) {
	if retryAfter > 0 {
		w.Header().Set("Retry-After", strconv.FormatInt(retryAfter, 10))
	}
	writeJSON(w, status, errorBody{
		Error:      msg,
		Code:       code,
		RetryAfter: retryAfter,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
