// Package handler exposes the verification request ledger over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/CliftonVon/ConfidentialDigitalPassport/internal/verification/models"
	"github.com/CliftonVon/ConfidentialDigitalPassport/pkg/domain"
	dErrors "github.com/CliftonVon/ConfidentialDigitalPassport/pkg/domain-errors"
	"github.com/CliftonVon/ConfidentialDigitalPassport/pkg/platform/httputil"
	"github.com/CliftonVon/ConfidentialDigitalPassport/pkg/requestcontext"
)

// Service defines the interface for ledger operations.
type Service interface {
	Submit(ctx context.Context, caller domain.Principal, recordID domain.RecordID, purpose string, checks domain.CheckFlags) (int, error)
	Get(ctx context.Context, recordID domain.RecordID, index int) (models.VerificationRequest, error)
	Count(ctx context.Context, recordID domain.RecordID) (int, error)
}

// Handler wires ledger endpoints to the verification service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a verification handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts ledger endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/records/{id}/requests", h.handleSubmit)
	r.Get("/records/{id}/requests", h.handleCount)
	r.Get("/records/{id}/requests/{index}", h.handleGet)
}

type submitRequest struct {
	Purpose          string `json:"purpose"`
	AgeCheck         bool   `json:"age_check"`
	NationalityCheck bool   `json:"nationality_check"`
	IdentityCheck    bool   `json:"identity_check"`
}

type submitResponse struct {
	Index int `json:"index"`
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	caller := requestcontext.Principal(ctx)

	recordID, err := recordIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[submitRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	index, err := h.service.Submit(ctx, caller, recordID, req.Purpose, domain.CheckFlags{
		Age:         req.AgeCheck,
		Nationality: req.NationalityCheck,
		Identity:    req.IdentityCheck,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "verification request rejected",
			"request_id", requestID,
			"record_id", recordID.String(),
			"caller", caller.String(),
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, submitResponse{Index: index})
}

type requestResponse struct {
	RecordID    domain.RecordID   `json:"record_id"`
	Index       int               `json:"index"`
	Requester   string            `json:"requester"`
	Purpose     string            `json:"purpose"`
	Checks      domain.CheckFlags `json:"checks"`
	Approved    bool              `json:"approved"`
	Processed   bool              `json:"processed"`
	RequestedAt time.Time         `json:"requested_at"`
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	recordID, err := recordIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	index, err := indexParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, err := h.service.Get(ctx, recordID, index)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, requestResponse{
		RecordID:    req.RecordID,
		Index:       req.Index,
		Requester:   req.Requester.String(),
		Purpose:     req.Purpose,
		Checks:      req.Checks,
		Approved:    req.Approved,
		Processed:   req.Processed,
		RequestedAt: req.RequestedAt,
	})
}

type countResponse struct {
	RecordID domain.RecordID `json:"record_id"`
	Count    int             `json:"count"`
}

func (h *Handler) handleCount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	recordID, err := recordIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	n, err := h.service.Count(ctx, recordID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, countResponse{RecordID: recordID, Count: n})
}

func recordIDParam(r *http.Request) (domain.RecordID, error) {
	id, err := domain.ParseRecordID(chi.URLParam(r, "id"))
	if err != nil {
		return 0, dErrors.New(dErrors.CodeBadRequest, "invalid record id")
	}
	return id, nil
}

func indexParam(r *http.Request) (int, error) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || index < 0 {
		return 0, dErrors.New(dErrors.CodeBadRequest, "invalid request index")
	}
	return index, nil
}
