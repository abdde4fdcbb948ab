package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/quayretail/orderdesk-backend/pkg/db/models"
	"github.com/quayretail/orderdesk-backend/pkg/enums"
)

// ListFilter narrows order queries. Zero values are ignored.
type ListFilter struct {
	OrderID      string
	CustomerName string
	Sales        string
	Status       *enums.OrderStatus
	CustomerType *enums.CustomerType
	ShipDeadline *time.Time
	CustomerID   *uuid.UUID
}

// StatusCount is one row of a per-status aggregate.
type StatusCount struct {
	Status enums.OrderStatus `gorm:"column:status"`
	Count  int64             `gorm:"column:count"`
}

// TypeCount is one row of a per-customer-type aggregate.
type TypeCount struct {
	CustomerType enums.CustomerType `gorm:"column:customer_type"`
	Count        int64              `gorm:"column:count"`
}

// SalesCount is one row of a per-salesperson aggregate.
type SalesCount struct {
	Sales string `gorm:"column:sales"`
	Count int64  `gorm:"column:count"`
}

// DashboardCounts summarizes the order book for the landing view.
type DashboardCounts struct {
	TotalOrders        int64 `json:"total_orders"`
	PendingOrders      int64 `json:"pending_orders"`
	CompletedOrders    int64 `json:"completed_orders"`
	NearDeadlineOrders int64 `json:"near_deadline_orders"`
}

// DeadlineStats buckets unfulfilled lines by how close their ship deadline is.
type DeadlineStats struct {
	Overdue     int64 `json:"overdue"`
	DueToday    int64 `json:"due_today"`
	DueTomorrow int64 `json:"due_tomorrow"`
	DueIn3Days  int64 `json:"due_in_3_days"`
	DueIn7Days  int64 `json:"due_in_7_days"`
	DueLater    int64 `json:"due_later"`
}

// upsertColumns is the closed set of fields a re-import may overwrite. The
// hash key fields are identical by construction and stay untouched.
var upsertColumns = []string{
	"tracking_number", "status", "order_time", "payment_time", "quantity",
	"return_request_id", "return_applied", "customer_id", "created_by_id", "updated_at",
}

// updateColumns is the closed set of fields Update is allowed to touch.
var updateColumns = []string{
	"tracking_number", "status", "payment_time", "quantity",
	"return_request_id", "return_applied", "customer_id",
}

// Repository wires together order persistence helpers.
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

// Upsert writes the line keyed by its content hash. An existing row keeps its
// identity and has only the mutable columns overwritten.
func (r *Repository) Upsert(ctx context.Context, order *models.Order) error {
	order.EnsureHash()
	order.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "hash"}},
			DoUpdates: clause.AssignmentColumns(upsertColumns),
		}).
		Create(order).Error
}

// FindByHash loads one line by its content hash.
func (r *Repository) FindByHash(ctx context.Context, hash string) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).First(&order, "hash = ?", hash).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// FindByOrderID returns every line of one logical order.
func (r *Repository) FindByOrderID(ctx context.Context, orderID string) ([]models.Order, error) {
	var lines []models.Order
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Find(&lines).Error; err != nil {
		return nil, err
	}
	return lines, nil
}

// FindByProductID returns every line referencing the product.
func (r *Repository) FindByProductID(ctx context.Context, productID string) ([]models.Order, error) {
	var lines []models.Order
	if err := r.db.WithContext(ctx).Where("product_id = ?", productID).Find(&lines).Error; err != nil {
		return nil, err
	}
	return lines, nil
}

// List applies the filter and returns matching lines.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]models.Order, error) {
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.Order{}), filter)

	var lines []models.Order
	if err := query.Order("order_time DESC").Find(&lines).Error; err != nil {
		return nil, err
	}
	return lines, nil
}

func (r *Repository) applyFilter(query *gorm.DB, filter ListFilter) *gorm.DB {
	if filter.OrderID != "" {
		query = query.Where("order_id LIKE ?", "%"+filter.OrderID+"%")
	}
	if filter.CustomerName != "" {
		query = query.Where("customer_name LIKE ?", "%"+filter.CustomerName+"%")
	}
	if filter.Sales != "" {
		query = query.Where("sales = ?", filter.Sales)
	}
	if filter.Status != nil && *filter.Status != enums.OrderStatusUnknown {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.CustomerType != nil && *filter.CustomerType != enums.CustomerTypeUnknown {
		query = query.Where("customer_type = ?", *filter.CustomerType)
	}
	if filter.ShipDeadline != nil {
		query = query.Where("ship_deadline = ?", *filter.ShipDeadline)
	}
	if filter.CustomerID != nil {
		query = query.Where("customer_id = ?", *filter.CustomerID)
	}
	return query
}

// Update overwrites the mutable fields of an existing line.
func (r *Repository) Update(ctx context.Context, order *models.Order) error {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("hash = ?", order.Hash).
		Select(updateColumns).
		Updates(order)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete removes the line. Deleting an absent line is not an error.
func (r *Repository) Delete(ctx context.Context, hash string) error {
	return r.db.WithContext(ctx).Delete(&models.Order{}, "hash = ?", hash).Error
}

// Count returns the number of stored lines.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Order{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountByStatus aggregates line counts per status.
func (r *Repository) CountByStatus(ctx context.Context, customerID *uuid.UUID) ([]StatusCount, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Select("status, COUNT(hash) AS count").
		Group("status")
	if customerID != nil {
		query = query.Where("customer_id = ?", *customerID)
	}

	var rows []StatusCount
	if err := query.Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// CountByCustomerType aggregates line counts per customer type.
func (r *Repository) CountByCustomerType(ctx context.Context, customerID *uuid.UUID) ([]TypeCount, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Select("customer_type, COUNT(hash) AS count").
		Group("customer_type")
	if customerID != nil {
		query = query.Where("customer_id = ?", *customerID)
	}

	var rows []TypeCount
	if err := query.Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// CountBySales aggregates line counts per salesperson, skipping blank names.
func (r *Repository) CountBySales(ctx context.Context, customerID *uuid.UUID) ([]SalesCount, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Select("sales, COUNT(hash) AS count").
		Where("sales <> ''").
		Group("sales")
	if customerID != nil {
		query = query.Where("customer_id = ?", *customerID)
	}

	var rows []SalesCount
	if err := query.Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// FindNearingDeadline returns unfinished lines whose deadline falls within the
// next N days, soonest first.
func (r *Repository) FindNearingDeadline(ctx context.Context, now time.Time, days int, customerID *uuid.UUID) ([]models.Order, error) {
	start := startOfDay(now)
	end := start.AddDate(0, 0, days)

	query := r.db.WithContext(ctx).
		Where("status NOT IN ?", []enums.OrderStatus{enums.OrderStatusCompleted, enums.OrderStatusPaused}).
		Where("ship_deadline >= ? AND ship_deadline < ?", start, end).
		Order("ship_deadline")
	if customerID != nil {
		query = query.Where("customer_id = ?", *customerID)
	}

	var lines []models.Order
	if err := query.Find(&lines).Error; err != nil {
		return nil, err
	}
	return lines, nil
}

// FindPendingSorted returns all unfulfilled lines ordered by ship deadline.
func (r *Repository) FindPendingSorted(ctx context.Context, customerID *uuid.UUID) ([]models.Order, error) {
	query := r.db.WithContext(ctx).
		Where("status NOT IN ?", []enums.OrderStatus{enums.OrderStatusCompleted, enums.OrderStatusPaused}).
		Order("ship_deadline")
	if customerID != nil {
		query = query.Where("customer_id = ?", *customerID)
	}

	var lines []models.Order
	if err := query.Find(&lines).Error; err != nil {
		return nil, err
	}
	return lines, nil
}

// FindPaymentPendingBefore returns order ids still awaiting payment whose
// order time predates the cutoff. Used by the payment timeout sweeper.
func (r *Repository) FindPaymentPendingBefore(ctx context.Context, cutoff time.Time) ([]string, error) {
	var orderIDs []string
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("status = ? AND order_time < ?", enums.OrderStatusPendingPayment, cutoff).
		Distinct().
		Pluck("order_id", &orderIDs)
	if res.Error != nil {
		return nil, res.Error
	}
	return orderIDs, nil
}

// GetDashboardCounts summarizes the order book.
func (r *Repository) GetDashboardCounts(ctx context.Context, now time.Time, customerID *uuid.UUID) (*DashboardCounts, error) {
	today := startOfDay(now)
	threeDaysLater := today.AddDate(0, 0, 3)

	scoped := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&models.Order{})
		if customerID != nil {
			q = q.Where("customer_id = ?", *customerID)
		}
		return q
	}

	var counts DashboardCounts
	if err := scoped().Count(&counts.TotalOrders).Error; err != nil {
		return nil, err
	}
	if err := scoped().
		Where("status IN ?", enums.PendingOrderStatuses()).
		Count(&counts.PendingOrders).Error; err != nil {
		return nil, err
	}
	if err := scoped().
		Where("status = ?", enums.OrderStatusCompleted).
		Count(&counts.CompletedOrders).Error; err != nil {
		return nil, err
	}
	if err := scoped().
		Where("status NOT IN ?", []enums.OrderStatus{enums.OrderStatusCompleted, enums.OrderStatusPaused}).
		Where("ship_deadline >= ? AND ship_deadline < ?", today, threeDaysLater).
		Count(&counts.NearDeadlineOrders).Error; err != nil {
		return nil, err
	}
	return &counts, nil
}

// GetDeadlineStats buckets unfulfilled lines by deadline proximity.
func (r *Repository) GetDeadlineStats(ctx context.Context, now time.Time, customerID *uuid.UUID) (*DeadlineStats, error) {
	today := startOfDay(now)
	tomorrow := today.AddDate(0, 0, 1)
	dayAfter := today.AddDate(0, 0, 2)
	in4Days := today.AddDate(0, 0, 4)
	in8Days := today.AddDate(0, 0, 8)

	base := func() *gorm.DB {
		q := r.db.WithContext(ctx).
			Model(&models.Order{}).
			Where("status NOT IN ?", []enums.OrderStatus{enums.OrderStatusCompleted, enums.OrderStatusPaused})
		if customerID != nil {
			q = q.Where("customer_id = ?", *customerID)
		}
		return q
	}

	count := func(q *gorm.DB) (int64, error) {
		var n int64
		err := q.Count(&n).Error
		return n, err
	}

	var (
		stats DeadlineStats
		err   error
	)
	if stats.Overdue, err = count(base().Where("ship_deadline < ?", today)); err != nil {
		return nil, err
	}
	if stats.DueToday, err = count(base().Where("ship_deadline >= ? AND ship_deadline < ?", today, tomorrow)); err != nil {
		return nil, err
	}
	if stats.DueTomorrow, err = count(base().Where("ship_deadline >= ? AND ship_deadline < ?", tomorrow, dayAfter)); err != nil {
		return nil, err
	}
	if stats.DueIn3Days, err = count(base().Where("ship_deadline >= ? AND ship_deadline < ?", dayAfter, in4Days)); err != nil {
		return nil, err
	}
	if stats.DueIn7Days, err = count(base().Where("ship_deadline >= ? AND ship_deadline < ?", in4Days, in8Days)); err != nil {
		return nil, err
	}
	if stats.DueLater, err = count(base().Where("ship_deadline >= ?", in8Days)); err != nil {
		return nil, err
	}
	return &stats, nil
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
