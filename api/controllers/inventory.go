package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/quayretail/orderdesk-backend/api/middleware"
	"github.com/quayretail/orderdesk-backend/api/responses"
	"github.com/quayretail/orderdesk-backend/api/validators"
	"github.com/quayretail/orderdesk-backend/internal/inventory"
	"github.com/quayretail/orderdesk-backend/pkg/enums"
	pkgerrors "github.com/quayretail/orderdesk-backend/pkg/errors"
	"github.com/quayretail/orderdesk-backend/pkg/logger"
)

type createProductRequest struct {
	ProductID       string     `json:"product_id" validate:"omitempty,max=64"`
	ProductType     string     `json:"product_type" validate:"required,max=64"`
	Manufacturer    string     `json:"manufacturer" validate:"required,max=128"`
	ProductName     string     `json:"product_name" validate:"required,max=128"`
	ProductModel    string     `json:"product_model" validate:"omitempty,max=64"`
	StockQuantity   int        `json:"stock_quantity" validate:"omitempty,min=0"`
	ExpectedArrival *time.Time `json:"expected_arrival"`
}

type updateProductRequest struct {
	ProductType     *string    `json:"product_type" validate:"omitempty,max=64"`
	Manufacturer    *string    `json:"manufacturer" validate:"omitempty,max=128"`
	ProductName     *string    `json:"product_name" validate:"omitempty,max=128"`
	ProductModel    *string    `json:"product_model" validate:"omitempty,max=64"`
	StockQuantity   *int       `json:"stock_quantity" validate:"omitempty,min=0"`
	Status          *string    `json:"status" validate:"omitempty,oneof=purchasing transporting inspecting normal out_of_stock off_shelf"`
	ExpectedArrival *time.Time `json:"expected_arrival"`
}

type adjustStockRequest struct {
	Delta int `json:"delta" validate:"required"`
}

// requireWriter gates mutations on the caller's role; the inventory service
// itself carries no actor.
func requireWriter(r *http.Request) error {
	actor, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "missing identity")
	}
	if !actor.Role.CanCreate() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "role cannot modify inventory")
	}
	return nil
}

func ProductCreate(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := requireWriter(r); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body createProductRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.CreateProduct(r.Context(), inventory.CreateProductInput{
			ProductID:       body.ProductID,
			ProductType:     body.ProductType,
			Manufacturer:    body.Manufacturer,
			ProductName:     body.ProductName,
			ProductModel:    body.ProductModel,
			StockQuantity:   body.StockQuantity,
			ExpectedArrival: body.ExpectedArrival,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

func ProductUpdate(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := requireWriter(r); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body updateProductRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := inventory.UpdateProductInput{
			ProductType:     body.ProductType,
			Manufacturer:    body.Manufacturer,
			ProductName:     body.ProductName,
			ProductModel:    body.ProductModel,
			StockQuantity:   body.StockQuantity,
			ExpectedArrival: body.ExpectedArrival,
		}
		if body.Status != nil {
			status := enums.InventoryStatus(*body.Status)
			input.Status = &status
		}

		product, err := svc.UpdateProduct(r.Context(), chi.URLParam(r, "productId"), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

func ProductDelete(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.IdentityFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing identity"))
			return
		}
		if !actor.Role.CanDelete() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "role cannot delete inventory"))
			return
		}

		if err := svc.DeleteProduct(r.Context(), chi.URLParam(r, "productId")); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

func ProductGet(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		product, err := svc.GetProduct(r.Context(), chi.URLParam(r, "productId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

func ProductList(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := inventory.ListFilter{
			ProductType: validators.QueryString(r, "product_type"),
			Keyword:     validators.QueryString(r, "keyword"),
		}
		if raw := validators.QueryString(r, "status"); raw != "" {
			status := enums.InventoryStatus(raw)
			if !status.IsValid() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unknown status filter"))
				return
			}
			filter.Status = &status
		}

		products, err := svc.ListProducts(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, products)
	}
}

func ProductAdjustStock(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := requireWriter(r); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body adjustStockRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.AdjustStock(r.Context(), chi.URLParam(r, "productId"), body.Delta)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

func ProductSalesByType(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := svc.SalesByType(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}
