package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/quayretail/orderdesk-backend/pkg/db"
	"github.com/quayretail/orderdesk-backend/pkg/db/models"
	"github.com/quayretail/orderdesk-backend/pkg/enums"
	pkgerrors "github.com/quayretail/orderdesk-backend/pkg/errors"
)

// Service exposes inventory ledger management operations.
type Service interface {
	CreateProduct(ctx context.Context, input CreateProductInput) (*models.Product, error)
	UpdateProduct(ctx context.Context, productID string, input UpdateProductInput) (*models.Product, error)
	DeleteProduct(ctx context.Context, productID string) error
	GetProduct(ctx context.Context, productID string) (*models.Product, error)
	ListProducts(ctx context.Context, filter ListFilter) ([]models.Product, error)
	AdjustStock(ctx context.Context, productID string, delta int) (*models.Product, error)
	SalesByType(ctx context.Context) ([]TypeSales, error)
}

// CreateProductInput holds the validated payload to create a ledger row.
type CreateProductInput struct {
	ProductID       string
	ProductType     string
	Manufacturer    string
	ProductName     string
	ProductModel    string
	StockQuantity   int
	Status          enums.InventoryStatus
	ExpectedArrival *time.Time
}

// UpdateProductInput holds optional mutation values for a ledger row.
type UpdateProductInput struct {
	ProductType     *string
	Manufacturer    *string
	ProductName     *string
	ProductModel    *string
	StockQuantity   *int
	Status          *enums.InventoryStatus
	ExpectedArrival *time.Time
}

// ListFilter narrows ListProducts output.
type ListFilter struct {
	ProductType string
	Status      *enums.InventoryStatus
	Keyword     string
}

type service struct {
	repo *Repository
}

// NewService constructs an inventory service instance.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) CreateProduct(ctx context.Context, input CreateProductInput) (*models.Product, error) {
	status := input.Status
	if status == "" {
		status = enums.InventoryStatusNormal
	}
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid inventory status %q", status))
	}

	product := &models.Product{
		ProductID:       strings.TrimSpace(input.ProductID),
		ProductType:     strings.TrimSpace(input.ProductType),
		Manufacturer:    strings.TrimSpace(input.Manufacturer),
		ProductName:     strings.TrimSpace(input.ProductName),
		ProductModel:    strings.TrimSpace(input.ProductModel),
		StockQuantity:   input.StockQuantity,
		Status:          status,
		ExpectedArrival: input.ExpectedArrival,
	}
	if !product.Validate() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name, type, and manufacturer are required")
	}

	created, err := s.repo.Create(ctx, product)
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeAlreadyExists, "product already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert inventory")
	}
	return created, nil
}

func (s *service) UpdateProduct(ctx context.Context, productID string, input UpdateProductInput) (*models.Product, error) {
	if productID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}

	existing, err := s.repo.Get(ctx, productID)
	if err != nil {
		return nil, mapLookupError(err, "product")
	}

	if input.ProductType != nil {
		existing.ProductType = *input.ProductType
	}
	if input.Manufacturer != nil {
		existing.Manufacturer = *input.Manufacturer
	}
	if input.ProductName != nil {
		existing.ProductName = *input.ProductName
	}
	if input.ProductModel != nil {
		existing.ProductModel = *input.ProductModel
	}
	if input.StockQuantity != nil {
		existing.StockQuantity = *input.StockQuantity
	}
	if input.Status != nil {
		if !input.Status.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid inventory status %q", *input.Status))
		}
		existing.Status = *input.Status
	}
	if input.ExpectedArrival != nil {
		existing.ExpectedArrival = input.ExpectedArrival
	}

	if !existing.Validate() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name, type, and manufacturer are required")
	}

	updated, err := s.repo.Update(ctx, existing)
	if err != nil {
		return nil, mapLookupError(err, "product")
	}
	return updated, nil
}

func (s *service) DeleteProduct(ctx context.Context, productID string) error {
	if productID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if err := s.repo.Delete(ctx, productID); err != nil {
		return mapLookupError(err, "product")
	}
	return nil
}

func (s *service) GetProduct(ctx context.Context, productID string) (*models.Product, error) {
	product, err := s.repo.Get(ctx, productID)
	if err != nil {
		return nil, mapLookupError(err, "product")
	}
	return product, nil
}

func (s *service) ListProducts(ctx context.Context, filter ListFilter) ([]models.Product, error) {
	var (
		products []models.Product
		err      error
	)
	switch {
	case filter.Keyword != "":
		products, err = s.repo.Search(ctx, filter.Keyword)
	case filter.ProductType != "":
		products, err = s.repo.ListByType(ctx, filter.ProductType)
	case filter.Status != nil:
		if !filter.Status.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid inventory status %q", *filter.Status))
		}
		products, err = s.repo.ListByStatus(ctx, *filter.Status)
	default:
		products, err = s.repo.List(ctx)
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list inventory")
	}
	return products, nil
}

func (s *service) AdjustStock(ctx context.Context, productID string, delta int) (*models.Product, error) {
	if productID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if delta == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock delta must be non-zero")
	}
	if err := s.repo.UpdateStock(ctx, productID, delta); err != nil {
		return nil, mapLookupError(err, "product")
	}
	product, err := s.repo.Get(ctx, productID)
	if err != nil {
		return nil, mapLookupError(err, "product")
	}
	return product, nil
}

func (s *service) SalesByType(ctx context.Context) ([]TypeSales, error) {
	rows, err := s.repo.SalesByType(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: aggregate sales by type")
	}
	return rows, nil
}

func mapLookupError(err error, entity string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, entity+" not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: "+entity)
}

