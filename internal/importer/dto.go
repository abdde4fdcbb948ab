package importer

import (
	"time"

	"github.com/quayretail/orderdesk-backend/pkg/enums"
)

// RowRecord is one already-mapped order line from a bulk feed. Field mapping
// from the source file happens upstream; the engine only sees typed values.
type RowRecord struct {
	OrderID         string
	ProductID       string
	CustomerType    enums.CustomerType
	CustomerName    string
	Sales           string
	TrackingNumber  string
	Status          enums.OrderStatus
	OrderTime       time.Time
	PaymentTime     *time.Time
	ShipDeadline    *time.Time
	Quantity        int
	ReturnRequestID string
}

// ProductRecord is one inventory row from a bulk feed, keyed by product name.
type ProductRecord struct {
	ProductName     string
	ProductType     string
	Manufacturer    string
	ProductModel    string
	StockQuantity   int
	SoldQuantity    int
	ExpectedArrival *time.Time
}

// AccountCredential carries a freshly minted operator login so the caller can
// hand it to the sales rep. The plaintext password exists only in this value.
type AccountCredential struct {
	Sales    string `json:"sales"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// Result summarizes one batch. Row-level failures land in Errors; the batch
// itself only fails on infrastructure errors.
type Result struct {
	OrdersUpserted   int                 `json:"orders_upserted"`
	CustomersCreated int                 `json:"customers_created"`
	UsersCreated     int                 `json:"users_created"`
	ReturnsCreated   int                 `json:"returns_created"`
	ReturnsSkipped   int                 `json:"returns_skipped"`
	Credentials      []AccountCredential `json:"credentials,omitempty"`
	Warnings         []string            `json:"warnings,omitempty"`
	Errors           []string            `json:"errors,omitempty"`
}

// ErrorPreview returns at most n row errors for display.
func (r *Result) ErrorPreview(n int) []string {
	if n <= 0 || len(r.Errors) <= n {
		return r.Errors
	}
	return r.Errors[:n]
}

// InventoryResult summarizes one inventory batch.
type InventoryResult struct {
	Created int      `json:"created"`
	Updated int      `json:"updated"`
	Errors  []string `json:"errors,omitempty"`
}
