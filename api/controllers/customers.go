package controllers

import (
	"net/http"

	"github.com/quayretail/orderdesk-backend/api/middleware"
	"github.com/quayretail/orderdesk-backend/api/responses"
	"github.com/quayretail/orderdesk-backend/api/validators"
	"github.com/quayretail/orderdesk-backend/internal/customers"
	"github.com/quayretail/orderdesk-backend/pkg/enums"
	pkgerrors "github.com/quayretail/orderdesk-backend/pkg/errors"
	"github.com/quayretail/orderdesk-backend/pkg/logger"
)

type createCustomerRequest struct {
	CompanyName   string `json:"company_name" validate:"required,min=2,max=128"`
	CustomerType  string `json:"customer_type" validate:"omitempty,oneof=online_retail offline_retail unknown"`
	ContactPerson string `json:"contact_person" validate:"omitempty,max=64"`
	ContactPhone  string `json:"contact_phone" validate:"omitempty,max=32"`
	ContactEmail  string `json:"contact_email" validate:"omitempty,email"`
	Address       string `json:"address" validate:"omitempty,max=256"`
	City          string `json:"city" validate:"omitempty,max=64"`
	Province      string `json:"province" validate:"omitempty,max=64"`
	PostalCode    string `json:"postal_code" validate:"omitempty,max=16"`
	TaxID         string `json:"tax_id" validate:"omitempty,max=64"`
	CreditLevel   int    `json:"credit_level" validate:"omitempty,min=1,max=5"`
	Notes         string `json:"notes" validate:"omitempty,max=512"`
}

type updateCustomerRequest struct {
	CompanyName   *string `json:"company_name" validate:"omitempty,min=2,max=128"`
	CustomerType  *string `json:"customer_type" validate:"omitempty,oneof=online_retail offline_retail unknown"`
	ContactPerson *string `json:"contact_person" validate:"omitempty,max=64"`
	ContactPhone  *string `json:"contact_phone" validate:"omitempty,max=32"`
	ContactEmail  *string `json:"contact_email" validate:"omitempty,email"`
	Address       *string `json:"address" validate:"omitempty,max=256"`
	City          *string `json:"city" validate:"omitempty,max=64"`
	Province      *string `json:"province" validate:"omitempty,max=64"`
	PostalCode    *string `json:"postal_code" validate:"omitempty,max=16"`
	TaxID         *string `json:"tax_id" validate:"omitempty,max=64"`
	CreditLevel   *int    `json:"credit_level" validate:"omitempty,min=1,max=5"`
	IsActive      *bool   `json:"is_active"`
	Notes         *string `json:"notes" validate:"omitempty,max=512"`
}

func CustomerCreate(svc customers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.IdentityFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing identity"))
			return
		}

		var body createCustomerRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		customer, err := svc.CreateCustomer(r.Context(), actor, customers.CreateCustomerInput{
			CompanyName:   body.CompanyName,
			CustomerType:  enums.CustomerType(body.CustomerType),
			ContactPerson: body.ContactPerson,
			ContactPhone:  body.ContactPhone,
			ContactEmail:  body.ContactEmail,
			Address:       body.Address,
			City:          body.City,
			Province:      body.Province,
			PostalCode:    body.PostalCode,
			TaxID:         body.TaxID,
			CreditLevel:   body.CreditLevel,
			Notes:         body.Notes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, customer)
	}
}

func CustomerUpdate(svc customers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.IdentityFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing identity"))
			return
		}
		customerID, err := pathUUID(r, "customerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body updateCustomerRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := customers.UpdateCustomerInput{
			CompanyName:   body.CompanyName,
			ContactPerson: body.ContactPerson,
			ContactPhone:  body.ContactPhone,
			ContactEmail:  body.ContactEmail,
			Address:       body.Address,
			City:          body.City,
			Province:      body.Province,
			PostalCode:    body.PostalCode,
			TaxID:         body.TaxID,
			CreditLevel:   body.CreditLevel,
			IsActive:      body.IsActive,
			Notes:         body.Notes,
		}
		if body.CustomerType != nil {
			customerType := enums.CustomerType(*body.CustomerType)
			input.CustomerType = &customerType
		}

		customer, err := svc.UpdateCustomer(r.Context(), actor, customerID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, customer)
	}
}

func CustomerDelete(svc customers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.IdentityFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing identity"))
			return
		}
		customerID, err := pathUUID(r, "customerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteCustomer(r.Context(), actor, customerID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

func CustomerGet(svc customers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := pathUUID(r, "customerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		customer, err := svc.GetCustomer(r.Context(), customerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, customer)
	}
}

func CustomerList(svc customers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := customers.ListFilter{
			Search:     validators.QueryString(r, "search"),
			ActiveOnly: validators.QueryBool(r, "active_only"),
		}
		if raw := validators.QueryString(r, "customer_type"); raw != "" {
			customerType, err := enums.ParseCustomerType(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unknown customer_type filter"))
				return
			}
			filter.CustomerType = &customerType
		}

		list, err := svc.ListCustomers(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}
