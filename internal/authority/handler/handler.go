// Package handler exposes authority administration over HTTP: the authority
// singleton and the verifier set.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/CliftonVon/ConfidentialDigitalPassport/pkg/domain"
	dErrors "github.com/CliftonVon/ConfidentialDigitalPassport/pkg/domain-errors"
	"github.com/CliftonVon/ConfidentialDigitalPassport/pkg/platform/httputil"
	"github.com/CliftonVon/ConfidentialDigitalPassport/pkg/requestcontext"
)

// Service defines the interface for authority administration.
type Service interface {
	Authority(ctx context.Context) (domain.Principal, error)
	IsVerifier(ctx context.Context, p domain.Principal) (bool, error)
	Transfer(ctx context.Context, caller, successor domain.Principal) error
	AuthorizeVerifier(ctx context.Context, caller, verifier domain.Principal) error
	RevokeVerifier(ctx context.Context, caller, verifier domain.Principal) error
}

// Handler wires authority endpoints to the authority service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs an authority handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts authority endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/authority", h.handleAuthority)
	r.Post("/authority/transfer", h.handleTransfer)
	r.Put("/verifiers/{principal}", h.handleAuthorize)
	r.Delete("/verifiers/{principal}", h.handleRevoke)
	r.Get("/verifiers/{principal}", h.handleStatus)
}

type authorityResponse struct {
	Principal string `json:"principal"`
}

func (h *Handler) handleAuthority(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	authority, err := h.service.Authority(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, authorityResponse{Principal: authority.String()})
}

type transferRequest struct {
	Principal string `json:"principal"`
}

func (h *Handler) handleTransfer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	caller := requestcontext.Principal(ctx)

	req, ok := httputil.DecodeAndPrepare[transferRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	successor, err := domain.ParsePrincipal(req.Principal)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "successor cannot be empty"))
		return
	}

	if err := h.service.Transfer(ctx, caller, successor); err != nil {
		h.logger.WarnContext(ctx, "authority transfer rejected",
			"request_id", requestID,
			"caller", caller.String(),
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, true)
}

func (h *Handler) handleRevoke(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, false)
}

func (h *Handler) toggle(w http.ResponseWriter, r *http.Request, authorize bool) {
	ctx := r.Context()
	caller := requestcontext.Principal(ctx)

	verifier, err := domain.ParsePrincipal(chi.URLParam(r, "principal"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid principal"))
		return
	}

	if authorize {
		err = h.service.AuthorizeVerifier(ctx, caller, verifier)
	} else {
		err = h.service.RevokeVerifier(ctx, caller, verifier)
	}
	if err != nil {
		h.logger.WarnContext(ctx, "verifier change rejected",
			"request_id", requestcontext.RequestID(ctx),
			"caller", caller.String(),
			"verifier", verifier.String(),
			"authorize", authorize,
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type verifierStatusResponse struct {
	Principal  string `json:"principal"`
	Authorized bool   `json:"authorized"`
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	verifier, err := domain.ParsePrincipal(chi.URLParam(r, "principal"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid principal"))
		return
	}

	authorized, err := h.service.IsVerifier(ctx, verifier)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, verifierStatusResponse{
		Principal:  verifier.String(),
		Authorized: authorized,
	})
}
