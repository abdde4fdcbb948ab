package orders

import (
	"time"

	"github.com/quayretail/orderdesk-backend/pkg/db/models"
	"github.com/quayretail/orderdesk-backend/pkg/enums"
)

// OrderLineInput is one product line of a new order.
type OrderLineInput struct {
	ProductID string
	Quantity  int
}

// PlaceOrderInput captures a new customer order across one or more lines.
type PlaceOrderInput struct {
	OrderID        string
	CustomerType   enums.CustomerType
	CustomerName   string
	Sales          string
	TrackingNumber string
	ShipDeadline   *time.Time
	Lines          []OrderLineInput
}

// PlaceOrderResult reports the persisted lines plus non-fatal stock warnings.
type PlaceOrderResult struct {
	OrderID  string
	Lines    []models.Order
	Warnings []string
}

// CancelReport summarizes a cancellation: every line transitions, but
// individual stock restores may fail and are reported instead of aborting.
type CancelReport struct {
	OrderID            string
	CancelledLines     int
	StockRestoreErrors []string
}

// Statistics bundles the aggregate views used by reporting screens.
type Statistics struct {
	ByStatus       []StatusCount `json:"by_status"`
	ByCustomerType []TypeCount   `json:"by_customer_type"`
	BySales        []SalesCount  `json:"by_sales"`
}

// ListInput mirrors ListFilter for the service surface.
type ListInput struct {
	OrderID      string
	CustomerName string
	Sales        string
	Status       *enums.OrderStatus
	CustomerType *enums.CustomerType
	ShipDeadline *time.Time
}
