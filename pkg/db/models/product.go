package models

import (
	"time"

	"github.com/quayretail/orderdesk-backend/pkg/enums"
)

// Product is an inventory ledger row. StockQuantity may go negative to signal
// a backorder; SoldQuantity is a cumulative counter that never decreases.
type Product struct {
	ProductID       string                `gorm:"column:product_id;primaryKey;size:64"`
	ProductType     string                `gorm:"column:product_type;not null"`
	Manufacturer    string                `gorm:"column:manufacturer;not null"`
	ProductName     string                `gorm:"column:product_name;not null;index"`
	ProductModel    string                `gorm:"column:product_model;not null;default:''"`
	StockQuantity   int                   `gorm:"column:stock_quantity;not null;default:0"`
	SoldQuantity    int                   `gorm:"column:sold_quantity;not null;default:0"`
	Status          enums.InventoryStatus `gorm:"column:status;not null;default:normal"`
	ExpectedArrival *time.Time            `gorm:"column:expected_arrival"`
	CreatedAt       time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

func (Product) TableName() string { return "inventory" }

// Validate reports whether the row carries the required descriptive fields.
func (p *Product) Validate() bool {
	return p.ProductName != "" && p.ProductType != "" && p.Manufacturer != ""
}

// RefreshStatus forces out_of_stock when stock has gone negative. A
// non-negative stock leaves the last explicit status untouched.
func (p *Product) RefreshStatus() {
	if p.StockQuantity < 0 {
		p.Status = enums.InventoryStatusOutOfStock
	}
}
