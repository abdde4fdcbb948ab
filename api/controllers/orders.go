package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/quayretail/orderdesk-backend/api/middleware"
	"github.com/quayretail/orderdesk-backend/api/responses"
	"github.com/quayretail/orderdesk-backend/api/validators"
	"github.com/quayretail/orderdesk-backend/internal/orders"
	"github.com/quayretail/orderdesk-backend/internal/payments"
	"github.com/quayretail/orderdesk-backend/pkg/enums"
	pkgerrors "github.com/quayretail/orderdesk-backend/pkg/errors"
	"github.com/quayretail/orderdesk-backend/pkg/logger"
)

type orderLineRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

type placeOrderRequest struct {
	OrderID        string             `json:"order_id" validate:"omitempty,max=64"`
	CustomerType   string             `json:"customer_type" validate:"required,oneof=online_retail offline_retail"`
	CustomerName   string             `json:"customer_name" validate:"required,max=128"`
	Sales          string             `json:"sales" validate:"omitempty,max=64"`
	TrackingNumber string             `json:"tracking_number" validate:"omitempty,max=64"`
	ShipDeadline   *string            `json:"ship_deadline" validate:"omitempty"`
	Lines          []orderLineRequest `json:"lines" validate:"required,min=1,dive"`
}

type setStatusRequest struct {
	Status         string  `json:"status" validate:"required"`
	TrackingNumber *string `json:"tracking_number" validate:"omitempty,max=64"`
}

// OrderPlace creates a new order. Online orders come back with a live
// payment hold attached when a hold manager is wired in.
func OrderPlace(svc orders.Service, holds *payments.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.IdentityFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing identity"))
			return
		}

		var body placeOrderRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := orders.PlaceOrderInput{
			OrderID:        body.OrderID,
			CustomerType:   enums.CustomerType(body.CustomerType),
			CustomerName:   body.CustomerName,
			Sales:          body.Sales,
			TrackingNumber: body.TrackingNumber,
		}
		if body.ShipDeadline != nil {
			deadline, err := time.Parse("2006-01-02", *body.ShipDeadline)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "ship_deadline must be a yyyy-mm-dd date"))
				return
			}
			input.ShipDeadline = &deadline
		}
		for _, line := range body.Lines {
			input.Lines = append(input.Lines, orders.OrderLineInput{
				ProductID: line.ProductID,
				Quantity:  line.Quantity,
			})
		}

		result, err := svc.PlaceOrder(r.Context(), actor, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payload := map[string]any{
			"order_id": result.OrderID,
			"lines":    result.Lines,
			"warnings": result.Warnings,
		}
		if holds != nil && input.CustomerType == enums.CustomerTypeOnlineRetail {
			state, err := holds.Start(r.Context(), result.OrderID)
			if err != nil {
				logg.Warn(r.Context(), "payment hold not started: "+err.Error())
			} else {
				payload["payment_hold"] = state
			}
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, payload)
	}
}

func OrderGet(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.IdentityFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing identity"))
			return
		}

		line, err := svc.GetOrder(r.Context(), actor, chi.URLParam(r, "hash"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, line)
	}
}

func OrderList(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.IdentityFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing identity"))
			return
		}

		input := orders.ListInput{
			OrderID:      validators.QueryString(r, "order_id"),
			CustomerName: validators.QueryString(r, "customer_name"),
			Sales:        validators.QueryString(r, "sales"),
		}
		if raw := validators.QueryString(r, "status"); raw != "" {
			status, err := enums.ParseOrderStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unknown status filter"))
				return
			}
			input.Status = &status
		}
		if raw := validators.QueryString(r, "customer_type"); raw != "" {
			customerType, err := enums.ParseCustomerType(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unknown customer_type filter"))
				return
			}
			input.CustomerType = &customerType
		}
		deadline, err := validators.ParseQueryDate(r, "ship_deadline")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input.ShipDeadline = deadline

		lines, err := svc.ListOrders(r.Context(), actor, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, lines)
	}
}

func OrderSetStatus(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.IdentityFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing identity"))
			return
		}

		var body setStatusRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParseOrderStatus(body.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unknown order status"))
			return
		}

		line, err := svc.SetStatus(r.Context(), actor, chi.URLParam(r, "hash"), status, body.TrackingNumber)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, line)
	}
}

func OrderDelete(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.IdentityFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing identity"))
			return
		}

		if err := svc.DeleteOrder(r.Context(), actor, chi.URLParam(r, "hash")); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

func OrdersNearingDeadline(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.IdentityFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing identity"))
			return
		}

		days, err := validators.ParseQueryInt(r, "days", 3, 1, 30)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		lines, err := svc.OrdersNearingDeadline(r.Context(), actor, days)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, lines)
	}
}

func OrderDashboard(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.IdentityFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing identity"))
			return
		}

		counts, err := svc.Dashboard(r.Context(), actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, counts)
	}
}

func OrderDeadlineStats(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.IdentityFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing identity"))
			return
		}

		stats, err := svc.DeadlineStats(r.Context(), actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}

func OrderStatistics(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.IdentityFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing identity"))
			return
		}

		stats, err := svc.Statistics(r.Context(), actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}
