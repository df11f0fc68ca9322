// Package handler exposes the record store over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/CliftonVon/ConfidentialDigitalPassport/internal/record/models"
	"github.com/CliftonVon/ConfidentialDigitalPassport/internal/record/service"
	"github.com/CliftonVon/ConfidentialDigitalPassport/pkg/domain"
	dErrors "github.com/CliftonVon/ConfidentialDigitalPassport/pkg/domain-errors"
	"github.com/CliftonVon/ConfidentialDigitalPassport/pkg/platform/httputil"
	"github.com/CliftonVon/ConfidentialDigitalPassport/pkg/requestcontext"
)

// Service defines the interface for record operations.
type Service interface {
	Issue(ctx context.Context, caller domain.Principal, params service.IssueParams) (domain.RecordID, error)
	Revoke(ctx context.Context, caller domain.Principal, id domain.RecordID) error
	IsValid(ctx context.Context, id domain.RecordID) bool
	Get(ctx context.Context, id domain.RecordID) (models.PublicRecord, error)
	RecordIDOf(ctx context.Context, owner domain.Principal) (domain.RecordID, error)
}

// Handler wires record endpoints to the record service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a record handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts record endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/records", h.handleIssue)
	r.Get("/records/{id}", h.handleGet)
	r.Get("/records/{id}/validity", h.handleValidity)
	r.Post("/records/{id}/revoke", h.handleRevoke)
	r.Get("/owners/{principal}/record", h.handleRecordOf)
}

type issueRequest struct {
	Owner           string `json:"owner"`
	Age             uint64 `json:"age"`
	NationalID      uint64 `json:"national_id"`
	CitizenshipCode uint64 `json:"citizenship_code"`
	Name            string `json:"name"`
	Country         string `json:"country"`
	ValidityYears   int    `json:"validity_years"`
}

type issueResponse struct {
	RecordID domain.RecordID `json:"record_id"`
}

func (h *Handler) handleIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	caller := requestcontext.Principal(ctx)

	req, ok := httputil.DecodeAndPrepare[issueRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	id, err := h.service.Issue(ctx, caller, service.IssueParams{
		Owner:           domain.Principal(req.Owner),
		Age:             req.Age,
		NationalID:      req.NationalID,
		CitizenshipCode: req.CitizenshipCode,
		NameBlob:        []byte(req.Name),
		CountryBlob:     []byte(req.Country),
		ValidityYears:   req.ValidityYears,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "record issue rejected",
			"request_id", requestID,
			"caller", caller.String(),
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, issueResponse{RecordID: id})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := recordIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	record, err := h.service.Get(ctx, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, record)
}

type validityResponse struct {
	RecordID domain.RecordID `json:"record_id"`
	Valid    bool            `json:"valid"`
}

func (h *Handler) handleValidity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := recordIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, validityResponse{
		RecordID: id,
		Valid:    h.service.IsValid(ctx, id),
	})
}

func (h *Handler) handleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := requestcontext.Principal(ctx)

	id, err := recordIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.service.Revoke(ctx, caller, id); err != nil {
		h.logger.WarnContext(ctx, "record revoke rejected",
			"request_id", requestcontext.RequestID(ctx),
			"record_id", id.String(),
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type recordOfResponse struct {
	Owner    string          `json:"owner"`
	RecordID domain.RecordID `json:"record_id"`
}

func (h *Handler) handleRecordOf(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	owner, err := domain.ParsePrincipal(chi.URLParam(r, "principal"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid principal"))
		return
	}

	id, err := h.service.RecordIDOf(ctx, owner)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if id.IsZero() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "owner has no active record"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, recordOfResponse{Owner: owner.String(), RecordID: id})
}

func recordIDParam(r *http.Request) (domain.RecordID, error) {
	id, err := domain.ParseRecordID(chi.URLParam(r, "id"))
	if err != nil {
		return 0, dErrors.New(dErrors.CodeBadRequest, "invalid record id")
	}
	return id, nil
}
