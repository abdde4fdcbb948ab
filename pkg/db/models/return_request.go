package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/quayretail/orderdesk-backend/pkg/enums"
)

// ReturnRequest tracks a filed return for one order line.
type ReturnRequest struct {
	ReturnRequestID string             `gorm:"column:return_request_id;primaryKey;size:64"`
	OrderID         string             `gorm:"column:order_id;not null;index"`
	ProductID       string             `gorm:"column:product_id;not null"`
	Quantity        int                `gorm:"column:quantity;not null"`
	Reason          enums.ReturnReason `gorm:"column:reason;not null"`
	Description     string             `gorm:"column:description;not null;default:''"`
	Status          enums.ReturnStatus `gorm:"column:status;not null;default:pending"`
	CustomerName    string             `gorm:"column:customer_name;not null"`
	ReviewerID      *uuid.UUID         `gorm:"column:reviewer_id;type:uuid"`
	ReviewComment   string             `gorm:"column:review_comment;not null;default:''"`
	ReviewedAt      *time.Time         `gorm:"column:reviewed_at"`
	CreatedAt       time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

func (ReturnRequest) TableName() string { return "return_requests" }

// NewReturnRequestID mints a short human-facing identifier.
func NewReturnRequestID() string {
	return fmt.Sprintf("RET-%s", uuid.New().String()[:8])
}

// EnsureID fills ReturnRequestID when it has not been assigned yet.
func (r *ReturnRequest) EnsureID() {
	if r.ReturnRequestID == "" {
		r.ReturnRequestID = NewReturnRequestID()
	}
}

// Validate reports whether the request carries the required fields.
func (r *ReturnRequest) Validate() bool {
	return r.OrderID != "" && r.ProductID != "" && r.Quantity > 0 && r.CustomerName != ""
}
