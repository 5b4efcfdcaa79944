// Package api exposes HTTP handlers for the snapshot service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"example.com/snapshot/internal/auth"
	"example.com/snapshot/internal/domain"
	"example.com/snapshot/internal/observability"
)

// SnapshotBuilder is the slice of the aggregator the handlers need.
type SnapshotBuilder interface {
	RequestAccess(ctx context.Context) error
	Aggregate(ctx context.Context) (*domain.Snapshot, error)
}

// Handler coordinates HTTP requests with the aggregator.
type Handler struct {
	aggregator SnapshotBuilder
	logger     zerolog.Logger
}

// NewHandler builds a Handler.
func NewHandler(aggregator SnapshotBuilder, logger zerolog.Logger) *Handler {
	return &Handler{
		aggregator: aggregator,
		logger:     logger.With().Str("component", "api").Logger(),
	}
}

// RegisterRoutes wires endpoints to the router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/v1/snapshot", h.getSnapshot)
	r.Get("/healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) getSnapshot(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	if !claims.HasScope(auth.ScopeSnapshotRead) {
		writeError(w, http.StatusForbidden, "forbidden", "scope snapshot:read required")
		return
	}

	if err := h.aggregator.RequestAccess(r.Context()); err != nil {
		var authErr *domain.AuthorizationError
		if errors.As(err, &authErr) {
			writeError(w, http.StatusBadGateway, "store_authorization_failed", authErr.Reason)
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	snapshot, err := h.aggregator.Aggregate(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("aggregation failed")
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	generatedAt := time.Now().UTC()
	observability.RecordSnapshotBuilt(generatedAt)

	writeJSON(w, http.StatusOK, SnapshotResponse{
		SnapshotID:  uuid.NewString(),
		GeneratedAt: generatedAt,
		Days:        snapshot.Days,
	})
}

// SnapshotResponse is the serialized contract consumed by the
// summarization layer.
type SnapshotResponse struct {
	SnapshotID  string               `json:"snapshot_id"`
	GeneratedAt time.Time            `json:"generated_at"`
	Days        []domain.DailyRecord `json:"days"`
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
