package inventory

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/quayretail/orderdesk-backend/pkg/db/models"
	"github.com/quayretail/orderdesk-backend/pkg/enums"
)

// TypeSales aggregates sold and remaining stock per product type.
type TypeSales struct {
	ProductType string `gorm:"column:product_type"`
	TotalSold   int    `gorm:"column:total_sold"`
	TotalStock  int    `gorm:"column:total_stock"`
}

// Repository wires together inventory persistence helpers.
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

// Create inserts a new ledger row, minting a product id when absent.
func (r *Repository) Create(ctx context.Context, product *models.Product) (*models.Product, error) {
	if product.ProductID == "" {
		product.ProductID = uuid.NewString()
	}
	product.RefreshStatus()
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// Get loads the ledger row by product id.
func (r *Repository) Get(ctx context.Context, productID string) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "product_id = ?", productID).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// GetByName loads the first ledger row matching the product name.
func (r *Repository) GetByName(ctx context.Context, productName string) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "product_name = ?", productName).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// mutableColumns is the closed set of fields Update is allowed to touch.
var mutableColumns = []string{
	"product_type", "manufacturer", "product_name", "product_model",
	"stock_quantity", "sold_quantity", "status", "expected_arrival",
}

// Update overwrites the mutable fields of an existing row.
func (r *Repository) Update(ctx context.Context, product *models.Product) (*models.Product, error) {
	product.RefreshStatus()
	res := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("product_id = ?", product.ProductID).
		Select(mutableColumns).
		Updates(product)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return r.Get(ctx, product.ProductID)
}

// Delete removes the ledger row.
func (r *Repository) Delete(ctx context.Context, productID string) error {
	res := r.db.WithContext(ctx).Delete(&models.Product{}, "product_id = ?", productID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// List returns all ledger rows.
func (r *Repository) List(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if err := r.db.WithContext(ctx).Order("product_name").Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// ListByType returns all rows for one product type.
func (r *Repository) ListByType(ctx context.Context, productType string) ([]models.Product, error) {
	var products []models.Product
	if err := r.db.WithContext(ctx).Where("product_type = ?", productType).Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// ListByStatus returns all rows in the given ledger status.
func (r *Repository) ListByStatus(ctx context.Context, status enums.InventoryStatus) ([]models.Product, error) {
	var products []models.Product
	if err := r.db.WithContext(ctx).Where("status = ?", status).Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// Search matches the keyword against name, type, and manufacturer.
func (r *Repository) Search(ctx context.Context, keyword string) ([]models.Product, error) {
	pattern := "%" + keyword + "%"
	var products []models.Product
	err := r.db.WithContext(ctx).
		Where("product_name LIKE ? OR product_type LIKE ? OR manufacturer LIKE ?", pattern, pattern, pattern).
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}

// Count returns the number of ledger rows.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Product{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// UpdateStock applies a stock delta in a single statement. A negative delta
// (reservation) also raises sold_quantity by the reserved amount; a positive
// delta (restore) leaves sold_quantity untouched. Stock going negative forces
// the row to out_of_stock.
func (r *Repository) UpdateStock(ctx context.Context, productID string, delta int) error {
	updates := map[string]any{
		"stock_quantity": gorm.Expr("stock_quantity + ?", delta),
		"status": gorm.Expr(
			"CASE WHEN stock_quantity + ? < 0 THEN ? ELSE status END",
			delta, enums.InventoryStatusOutOfStock,
		),
	}
	if delta < 0 {
		updates["sold_quantity"] = gorm.Expr("sold_quantity - ?", delta)
	}

	res := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("product_id = ?", productID).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// GetOrCreate resolves a ledger row by product name, creating an empty one
// when the name has never been seen.
func (r *Repository) GetOrCreate(ctx context.Context, productName, productType, manufacturer, productModel string) (*models.Product, error) {
	existing, err := r.GetByName(ctx, productName)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	product := &models.Product{
		ProductID:     uuid.NewString(),
		ProductName:   productName,
		ProductType:   productType,
		Manufacturer:  manufacturer,
		ProductModel:  productModel,
		StockQuantity: 0,
		SoldQuantity:  0,
		Status:        enums.InventoryStatusNormal,
	}
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// SalesByType aggregates cumulative sales and remaining stock per product
// type, most sold first.
func (r *Repository) SalesByType(ctx context.Context) ([]TypeSales, error) {
	var rows []TypeSales
	err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Select("product_type, SUM(sold_quantity) AS total_sold, SUM(stock_quantity) AS total_stock").
		Group("product_type").
		Order("total_sold DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
