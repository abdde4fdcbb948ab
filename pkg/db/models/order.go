package models

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"

	"github.com/quayretail/orderdesk-backend/pkg/enums"
)

const deadlineHashLayout = "2006-01-02"

// Order is a single product line of a customer order. All lines sharing an
// OrderID belong to one logical order; the row identity is the content hash
// of the key fields, so re-ingesting the same line updates rather than
// duplicates it.
type Order struct {
	Hash            string            `gorm:"column:hash;primaryKey;size:64"`
	OrderID         string            `gorm:"column:order_id;not null;index"`
	ProductID       string            `gorm:"column:product_id;not null;index"`
	CustomerType    enums.CustomerType `gorm:"column:customer_type;not null;default:unknown"`
	CustomerName    string            `gorm:"column:customer_name;not null"`
	Sales           string            `gorm:"column:sales;not null"`
	TrackingNumber  string            `gorm:"column:tracking_number;not null;default:''"`
	Status          enums.OrderStatus `gorm:"column:status;not null"`
	OrderTime       time.Time         `gorm:"column:order_time;not null"`
	PaymentTime     *time.Time        `gorm:"column:payment_time"`
	ShipDeadline    *time.Time        `gorm:"column:ship_deadline"`
	Quantity        int               `gorm:"column:quantity;not null;default:1"`
	ReturnRequestID *string           `gorm:"column:return_request_id;index"`
	ReturnApplied   bool              `gorm:"column:return_applied;not null;default:false"`
	CustomerID      *uuid.UUID        `gorm:"column:customer_id;type:uuid;index"`
	CreatedByID     *uuid.UUID        `gorm:"column:created_by_id;type:uuid;index"`
	CreatedAt       time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (Order) TableName() string { return "orders" }

// ComputeHash derives the content hash identifying this line. Two lines with
// the same order id, product, customer type, sales rep, customer name, and
// ship deadline date are the same row.
func (o *Order) ComputeHash() string {
	deadline := ""
	if o.ShipDeadline != nil {
		deadline = o.ShipDeadline.Format(deadlineHashLayout)
	}

	sum := sha256.Sum256([]byte(
		o.OrderID + o.ProductID + o.CustomerType.String() + o.Sales + o.CustomerName + deadline,
	))
	return hex.EncodeToString(sum[:])
}

// EnsureHash fills Hash when it has not been assigned yet.
func (o *Order) EnsureHash() {
	if o.Hash == "" {
		o.Hash = o.ComputeHash()
	}
}

// CheckEntity reports whether the line carries the minimum identifying fields.
func (o *Order) CheckEntity() bool {
	return o.OrderID != "" && o.ProductID != "" && o.CustomerName != ""
}
