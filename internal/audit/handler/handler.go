// Package handler exposes the per-record audit trail over HTTP.
package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/CliftonVon/ConfidentialDigitalPassport/internal/audit"
	"github.com/CliftonVon/ConfidentialDigitalPassport/pkg/domain"
	dErrors "github.com/CliftonVon/ConfidentialDigitalPassport/pkg/domain-errors"
	"github.com/CliftonVon/ConfidentialDigitalPassport/pkg/platform/httputil"
)

// Handler serves read access to the audit store.
type Handler struct {
	store  audit.Store
	logger *slog.Logger
}

// New constructs an audit handler with its dependencies.
func New(store audit.Store, logger *slog.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

// Register mounts audit endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/records/{id}/audit", h.handleList)
}

type listResponse struct {
	RecordID domain.RecordID `json:"record_id"`
	Events   []audit.Event   `json:"events"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := domain.ParseRecordID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid record id"))
		return
	}

	events, err := h.store.ListByRecord(ctx, id)
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(dErrors.CodeInternal, "list audit events", err))
		return
	}
	if events == nil {
		events = []audit.Event{}
	}
	httputil.WriteJSON(w, http.StatusOK, listResponse{RecordID: id, Events: events})
}
