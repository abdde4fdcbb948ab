package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/quayretail/orderdesk-backend/api/middleware"
	"github.com/quayretail/orderdesk-backend/api/responses"
	"github.com/quayretail/orderdesk-backend/api/validators"
	"github.com/quayretail/orderdesk-backend/internal/returns"
	"github.com/quayretail/orderdesk-backend/pkg/enums"
	pkgerrors "github.com/quayretail/orderdesk-backend/pkg/errors"
	"github.com/quayretail/orderdesk-backend/pkg/logger"
)

type fileReturnRequest struct {
	OrderHash   string `json:"order_hash" validate:"required,len=64"`
	Reason      string `json:"reason" validate:"required"`
	Description string `json:"description" validate:"omitempty,max=512"`
}

type reviewReturnRequest struct {
	Decision string `json:"decision" validate:"required,oneof=approved rejected complete"`
	Comment  string `json:"comment" validate:"omitempty,max=512"`
}

// ReturnFile opens a return request against an order line.
func ReturnFile(svc returns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.IdentityFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing identity"))
			return
		}

		var body fileReturnRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		request, err := svc.File(r.Context(), actor, returns.FileReturnInput{
			OrderHash:   body.OrderHash,
			Reason:      enums.ReturnReason(body.Reason),
			Description: body.Description,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, request)
	}
}

// ReturnReview records the operator decision on a pending request.
func ReturnReview(svc returns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.IdentityFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing identity"))
			return
		}

		var body reviewReturnRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		request, err := svc.Review(r.Context(), actor, returns.ReviewInput{
			RequestID: chi.URLParam(r, "requestId"),
			Decision:  enums.ReturnStatus(body.Decision),
			Comment:   body.Comment,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, request)
	}
}

// ReturnReset clears the return flag on an order line so a fresh request can
// be filed after a rejection.
func ReturnReset(svc returns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.IdentityFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing identity"))
			return
		}

		if err := svc.ResetReturnFlag(r.Context(), actor, chi.URLParam(r, "hash")); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "reset"})
	}
}

func ReturnGet(svc returns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		request, err := svc.Get(r.Context(), chi.URLParam(r, "requestId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, request)
	}
}

func ReturnList(svc returns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if orderID := validators.QueryString(r, "order_id"); orderID != "" {
			requests, err := svc.ListByOrderID(r.Context(), orderID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccess(w, requests)
			return
		}

		var status *enums.ReturnStatus
		if raw := validators.QueryString(r, "status"); raw != "" {
			parsed := enums.ReturnStatus(raw)
			if !parsed.IsValid() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unknown status filter"))
				return
			}
			status = &parsed
		}

		requests, err := svc.List(r.Context(), status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, requests)
	}
}
