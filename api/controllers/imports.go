package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/quayretail/orderdesk-backend/api/middleware"
	"github.com/quayretail/orderdesk-backend/api/responses"
	"github.com/quayretail/orderdesk-backend/api/validators"
	"github.com/quayretail/orderdesk-backend/internal/importer"
	"github.com/quayretail/orderdesk-backend/pkg/config"
	"github.com/quayretail/orderdesk-backend/pkg/enums"
	pkgerrors "github.com/quayretail/orderdesk-backend/pkg/errors"
	"github.com/quayretail/orderdesk-backend/pkg/logger"
)

type importOrderRow struct {
	OrderID         string     `json:"order_id" validate:"required,max=64"`
	ProductID       string     `json:"product_id" validate:"required,max=64"`
	CustomerType    string     `json:"customer_type" validate:"omitempty,oneof=online_retail offline_retail unknown"`
	CustomerName    string     `json:"customer_name" validate:"required,max=128"`
	Sales           string     `json:"sales" validate:"omitempty,max=64"`
	TrackingNumber  string     `json:"tracking_number" validate:"omitempty,max=64"`
	Status          string     `json:"status" validate:"required"`
	OrderTime       time.Time  `json:"order_time" validate:"required"`
	PaymentTime     *time.Time `json:"payment_time"`
	ShipDeadline    *time.Time `json:"ship_deadline"`
	Quantity        int        `json:"quantity" validate:"omitempty,min=1"`
	ReturnRequestID string     `json:"return_request_id" validate:"omitempty,max=64"`
}

type importOrdersRequest struct {
	Rows []importOrderRow `json:"rows" validate:"required,min=1,dive"`
}

type importProductRow struct {
	ProductName     string     `json:"product_name" validate:"required,max=128"`
	ProductType     string     `json:"product_type" validate:"required,max=64"`
	Manufacturer    string     `json:"manufacturer" validate:"required,max=128"`
	ProductModel    string     `json:"product_model" validate:"omitempty,max=64"`
	StockQuantity   int        `json:"stock_quantity" validate:"omitempty,min=0"`
	SoldQuantity    int        `json:"sold_quantity" validate:"omitempty,min=0"`
	ExpectedArrival *time.Time `json:"expected_arrival"`
}

type importInventoryRequest struct {
	Rows []importProductRow `json:"rows" validate:"required,min=1,dive"`
}

// ImportOrders ingests a mapped order feed in one request. The batch runs
// under the configured import timeout instead of the default request budget.
func ImportOrders(engine *importer.Engine, cfg config.ImportConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.IdentityFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing identity"))
			return
		}

		var body importOrdersRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows := make([]importer.RowRecord, 0, len(body.Rows))
		for _, row := range body.Rows {
			rows = append(rows, importer.RowRecord{
				OrderID:         row.OrderID,
				ProductID:       row.ProductID,
				CustomerType:    enums.CustomerType(row.CustomerType),
				CustomerName:    row.CustomerName,
				Sales:           row.Sales,
				TrackingNumber:  row.TrackingNumber,
				Status:          enums.OrderStatus(row.Status),
				OrderTime:       row.OrderTime,
				PaymentTime:     row.PaymentTime,
				ShipDeadline:    row.ShipDeadline,
				Quantity:        row.Quantity,
				ReturnRequestID: row.ReturnRequestID,
			})
		}

		ctx, cancel := context.WithTimeout(r.Context(), cfg.Timeout)
		defer cancel()

		result, err := engine.ImportOrders(ctx, actor, rows)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"result":        result,
			"error_preview": result.ErrorPreview(cfg.ErrorPreviewN),
		})
	}
}

// ImportInventory ingests a mapped inventory feed in one request.
func ImportInventory(engine *importer.Engine, cfg config.ImportConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.IdentityFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing identity"))
			return
		}

		var body importInventoryRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		records := make([]importer.ProductRecord, 0, len(body.Rows))
		for _, row := range body.Rows {
			records = append(records, importer.ProductRecord{
				ProductName:     row.ProductName,
				ProductType:     row.ProductType,
				Manufacturer:    row.Manufacturer,
				ProductModel:    row.ProductModel,
				StockQuantity:   row.StockQuantity,
				SoldQuantity:    row.SoldQuantity,
				ExpectedArrival: row.ExpectedArrival,
			})
		}

		ctx, cancel := context.WithTimeout(r.Context(), cfg.Timeout)
		defer cancel()

		result, err := engine.ImportInventory(ctx, actor, records)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
