// Package handler exposes the access controller over HTTP: owner decisions
// on verification requests and predicate queries.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/CliftonVon/ConfidentialDigitalPassport/internal/confidential"
	"github.com/CliftonVon/ConfidentialDigitalPassport/pkg/domain"
	dErrors "github.com/CliftonVon/ConfidentialDigitalPassport/pkg/domain-errors"
	"github.com/CliftonVon/ConfidentialDigitalPassport/pkg/platform/httputil"
	"github.com/CliftonVon/ConfidentialDigitalPassport/pkg/requestcontext"
)

// Service defines the interface for access control operations.
type Service interface {
	Approve(ctx context.Context, caller domain.Principal, recordID domain.RecordID, index int) error
	Deny(ctx context.Context, caller domain.Principal, recordID domain.RecordID, index int) error
	VerifyPredicate(ctx context.Context, caller domain.Principal, recordID domain.RecordID, kind domain.PredicateKind, value uint64) (confidential.Handle, error)
}

// Handler wires access control endpoints to the access service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs an access handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts access control endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/records/{id}/requests/{index}/approve", h.handleApprove)
	r.Post("/records/{id}/requests/{index}/deny", h.handleDeny)
	r.Post("/records/{id}/predicates", h.handleVerifyPredicate)
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, true)
}

func (h *Handler) handleDeny(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, false)
}

func (h *Handler) decide(w http.ResponseWriter, r *http.Request, approve bool) {
	ctx := r.Context()
	caller := requestcontext.Principal(ctx)

	recordID, index, err := requestParams(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if approve {
		err = h.service.Approve(ctx, caller, recordID, index)
	} else {
		err = h.service.Deny(ctx, caller, recordID, index)
	}
	if err != nil {
		h.logger.WarnContext(ctx, "request decision rejected",
			"request_id", requestcontext.RequestID(ctx),
			"record_id", recordID.String(),
			"index", index,
			"approve", approve,
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type predicateRequest struct {
	Kind  string `json:"kind"`
	Value uint64 `json:"value"`
}

type predicateResponse struct {
	RecordID domain.RecordID     `json:"record_id"`
	Kind     string              `json:"kind"`
	Result   confidential.Handle `json:"result_handle"`
}

func (h *Handler) handleVerifyPredicate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	caller := requestcontext.Principal(ctx)

	recordID, err := domain.ParseRecordID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid record id"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[predicateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	kind, err := domain.ParsePredicateKind(req.Kind)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "unknown predicate kind"))
		return
	}

	result, err := h.service.VerifyPredicate(ctx, caller, recordID, kind, req.Value)
	if err != nil {
		h.logger.WarnContext(ctx, "predicate query rejected",
			"request_id", requestID,
			"record_id", recordID.String(),
			"kind", req.Kind,
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, predicateResponse{
		RecordID: recordID,
		Kind:     kind.String(),
		Result:   result,
	})
}

func requestParams(r *http.Request) (domain.RecordID, int, error) {
	recordID, err := domain.ParseRecordID(chi.URLParam(r, "id"))
	if err != nil {
		return 0, 0, dErrors.New(dErrors.CodeBadRequest, "invalid record id")
	}
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || index < 0 {
		return 0, 0, dErrors.New(dErrors.CodeBadRequest, "invalid request index")
	}
	return recordID, index, nil
}
