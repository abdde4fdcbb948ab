package customers

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/quayretail/orderdesk-backend/pkg/db"
	"github.com/quayretail/orderdesk-backend/pkg/db/models"
	"github.com/quayretail/orderdesk-backend/pkg/enums"
)

// mutableColumns is the closed set of fields Update may touch.
var mutableColumns = []string{
	"company_name", "customer_type", "contact_person", "contact_phone",
	"contact_email", "address", "city", "province", "postal_code",
	"tax_id", "credit_level", "is_active", "notes",
}

// ListFilter narrows customer queries. Zero values are ignored.
type ListFilter struct {
	Search       string
	CustomerType *enums.CustomerType
	ActiveOnly   bool
}

// Repository wires together customer persistence helpers.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Create inserts the customer, minting an id when absent.
func (r *Repository) Create(ctx context.Context, customer *models.Customer) error {
	if customer.CustomerID == uuid.Nil {
		customer.CustomerID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(customer).Error
}

// Get loads one customer by id.
func (r *Repository) Get(ctx context.Context, customerID uuid.UUID) (*models.Customer, error) {
	var customer models.Customer
	if err := r.db.WithContext(ctx).First(&customer, "customer_id = ?", customerID).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

// GetByName loads one customer by their unique company name.
func (r *Repository) GetByName(ctx context.Context, companyName string) (*models.Customer, error) {
	var customer models.Customer
	if err := r.db.WithContext(ctx).First(&customer, "company_name = ?", companyName).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

// GetOrCreate resolves a customer by company name, creating the record when
// missing. A create that loses a uniqueness race falls back to re-fetching,
// so concurrent callers converge on the same row.
func (r *Repository) GetOrCreate(ctx context.Context, companyName string, customerType enums.CustomerType) (*models.Customer, bool, error) {
	existing, err := r.GetByName(ctx, companyName)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	customer := &models.Customer{
		CustomerID:   uuid.New(),
		CompanyName:  companyName,
		CustomerType: customerType,
		IsActive:     true,
	}
	if err := r.db.WithContext(ctx).Create(customer).Error; err != nil {
		if db.IsUniqueViolation(err, "") {
			raced, ferr := r.GetByName(ctx, companyName)
			if ferr != nil {
				return nil, false, ferr
			}
			return raced, false, nil
		}
		return nil, false, err
	}
	return customer, true, nil
}

// Update overwrites the mutable fields of an existing customer.
func (r *Repository) Update(ctx context.Context, customer *models.Customer) error {
	res := r.db.WithContext(ctx).
		Model(&models.Customer{}).
		Where("customer_id = ?", customer.CustomerID).
		Select(mutableColumns).
		Updates(customer)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete removes the customer record.
func (r *Repository) Delete(ctx context.Context, customerID uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&models.Customer{}, "customer_id = ?", customerID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// List applies the filter and returns matching customers by name.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]models.Customer, error) {
	query := r.db.WithContext(ctx).Model(&models.Customer{}).Order("company_name")
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where(
			"company_name LIKE ? OR contact_person LIKE ? OR contact_phone LIKE ?",
			pattern, pattern, pattern,
		)
	}
	if filter.CustomerType != nil && *filter.CustomerType != enums.CustomerTypeUnknown {
		query = query.Where("customer_type = ?", *filter.CustomerType)
	}
	if filter.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}

	var customers []models.Customer
	if err := query.Find(&customers).Error; err != nil {
		return nil, err
	}
	return customers, nil
}

// Count returns the number of customer records.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Customer{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
