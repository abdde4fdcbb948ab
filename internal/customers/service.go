package customers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/quayretail/orderdesk-backend/pkg/auth"
	"github.com/quayretail/orderdesk-backend/pkg/db"
	"github.com/quayretail/orderdesk-backend/pkg/db/models"
	"github.com/quayretail/orderdesk-backend/pkg/enums"
	pkgerrors "github.com/quayretail/orderdesk-backend/pkg/errors"
)

// CreateCustomerInput carries the fields accepted when registering a customer.
type CreateCustomerInput struct {
	CompanyName   string
	CustomerType  enums.CustomerType
	ContactPerson string
	ContactPhone  string
	ContactEmail  string
	Address       string
	City          string
	Province      string
	PostalCode    string
	TaxID         string
	CreditLevel   int
	Notes         string
}

// UpdateCustomerInput patches an existing customer. Nil fields are untouched.
type UpdateCustomerInput struct {
	CompanyName   *string
	CustomerType  *enums.CustomerType
	ContactPerson *string
	ContactPhone  *string
	ContactEmail  *string
	Address       *string
	City          *string
	Province      *string
	PostalCode    *string
	TaxID         *string
	CreditLevel   *int
	Notes         *string
	IsActive      *bool
}

// Service defines the customer account operations.
type Service interface {
	CreateCustomer(ctx context.Context, actor auth.Identity, input CreateCustomerInput) (*models.Customer, error)
	UpdateCustomer(ctx context.Context, actor auth.Identity, customerID uuid.UUID, input UpdateCustomerInput) (*models.Customer, error)
	DeleteCustomer(ctx context.Context, actor auth.Identity, customerID uuid.UUID) error
	GetCustomer(ctx context.Context, customerID uuid.UUID) (*models.Customer, error)
	GetByName(ctx context.Context, companyName string) (*models.Customer, error)
	ListCustomers(ctx context.Context, filter ListFilter) ([]models.Customer, error)
}

type service struct {
	repo *Repository
}

// NewService constructs a customer service instance.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("customer repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) CreateCustomer(ctx context.Context, actor auth.Identity, input CreateCustomerInput) (*models.Customer, error) {
	if !actor.Role.CanCreate() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "role cannot create customers")
	}

	customer := &models.Customer{
		CompanyName:   strings.TrimSpace(input.CompanyName),
		CustomerType:  input.CustomerType,
		ContactPerson: input.ContactPerson,
		ContactPhone:  input.ContactPhone,
		ContactEmail:  input.ContactEmail,
		Address:       input.Address,
		City:          input.City,
		Province:      input.Province,
		PostalCode:    input.PostalCode,
		TaxID:         input.TaxID,
		CreditLevel:   input.CreditLevel,
		Notes:         input.Notes,
		IsActive:      true,
	}
	if customer.CustomerType == "" {
		customer.CustomerType = enums.CustomerTypeUnknown
	}
	if customer.CreditLevel == 0 {
		customer.CreditLevel = 3
	}
	if !customer.Validate() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "company name must be at least 2 characters")
	}

	if err := s.repo.Create(ctx, customer); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeAlreadyExists,
				fmt.Sprintf("customer %q already exists", customer.CompanyName))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: create customer")
	}
	return customer, nil
}

func (s *service) UpdateCustomer(ctx context.Context, actor auth.Identity, customerID uuid.UUID, input UpdateCustomerInput) (*models.Customer, error) {
	if !actor.Role.CanUpdate() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "role cannot update customers")
	}

	customer, err := s.repo.Get(ctx, customerID)
	if err != nil {
		return nil, mapLookupError(err)
	}

	if input.CompanyName != nil {
		customer.CompanyName = strings.TrimSpace(*input.CompanyName)
	}
	if input.CustomerType != nil {
		customer.CustomerType = *input.CustomerType
	}
	if input.ContactPerson != nil {
		customer.ContactPerson = *input.ContactPerson
	}
	if input.ContactPhone != nil {
		customer.ContactPhone = *input.ContactPhone
	}
	if input.ContactEmail != nil {
		customer.ContactEmail = *input.ContactEmail
	}
	if input.Address != nil {
		customer.Address = *input.Address
	}
	if input.City != nil {
		customer.City = *input.City
	}
	if input.Province != nil {
		customer.Province = *input.Province
	}
	if input.PostalCode != nil {
		customer.PostalCode = *input.PostalCode
	}
	if input.TaxID != nil {
		customer.TaxID = *input.TaxID
	}
	if input.CreditLevel != nil {
		customer.CreditLevel = *input.CreditLevel
	}
	if input.Notes != nil {
		customer.Notes = *input.Notes
	}
	if input.IsActive != nil {
		customer.IsActive = *input.IsActive
	}
	if !customer.Validate() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "company name must be at least 2 characters")
	}

	if err := s.repo.Update(ctx, customer); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeAlreadyExists,
				fmt.Sprintf("customer %q already exists", customer.CompanyName))
		}
		return nil, mapLookupError(err)
	}
	return customer, nil
}

func (s *service) DeleteCustomer(ctx context.Context, actor auth.Identity, customerID uuid.UUID) error {
	if !actor.Role.CanDelete() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "role cannot delete customers")
	}
	if err := s.repo.Delete(ctx, customerID); err != nil {
		return mapLookupError(err)
	}
	return nil
}

func (s *service) GetCustomer(ctx context.Context, customerID uuid.UUID) (*models.Customer, error) {
	customer, err := s.repo.Get(ctx, customerID)
	if err != nil {
		return nil, mapLookupError(err)
	}
	return customer, nil
}

func (s *service) GetByName(ctx context.Context, companyName string) (*models.Customer, error) {
	customer, err := s.repo.GetByName(ctx, companyName)
	if err != nil {
		return nil, mapLookupError(err)
	}
	return customer, nil
}

func (s *service) ListCustomers(ctx context.Context, filter ListFilter) ([]models.Customer, error) {
	customers, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list customers")
	}
	return customers, nil
}

func mapLookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: customer")
}
