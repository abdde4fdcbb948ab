package orders

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/quayretail/orderdesk-backend/internal/inventory"
	"github.com/quayretail/orderdesk-backend/pkg/auth"
	"github.com/quayretail/orderdesk-backend/pkg/db/models"
	"github.com/quayretail/orderdesk-backend/pkg/enums"
	pkgerrors "github.com/quayretail/orderdesk-backend/pkg/errors"
)

const (
	offlineMaxLines   = 7
	offlineMaxPerLine = 3
	onlineMaxLines    = 5
	onlineMaxPerLine  = 5

	onlineDeadlineMinDays     = 2
	onlineDeadlineMaxDays     = 5
	onlineDeadlineDefaultDays = 3
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// InventoryAdjuster applies stock deltas within the caller's transaction.
type InventoryAdjuster interface {
	AdjustStock(ctx context.Context, tx *gorm.DB, productID string, delta int) error
}

type customerReader interface {
	GetByName(ctx context.Context, companyName string) (*models.Customer, error)
}

// Service defines the order lifecycle operations.
type Service interface {
	PlaceOrder(ctx context.Context, actor auth.Identity, input PlaceOrderInput) (*PlaceOrderResult, error)
	CompletePayment(ctx context.Context, orderID string) ([]models.Order, error)
	CancelOrder(ctx context.Context, orderID string) (*CancelReport, error)
	SetStatus(ctx context.Context, actor auth.Identity, hash string, status enums.OrderStatus, trackingNumber *string) (*models.Order, error)
	DeleteOrder(ctx context.Context, actor auth.Identity, hash string) error
	GetOrder(ctx context.Context, actor auth.Identity, hash string) (*models.Order, error)
	ListOrders(ctx context.Context, actor auth.Identity, input ListInput) ([]models.Order, error)
	OrdersNearingDeadline(ctx context.Context, actor auth.Identity, days int) ([]models.Order, error)
	Dashboard(ctx context.Context, actor auth.Identity) (*DashboardCounts, error)
	DeadlineStats(ctx context.Context, actor auth.Identity) (*DeadlineStats, error)
	Statistics(ctx context.Context, actor auth.Identity) (*Statistics, error)
}

type service struct {
	repo      *Repository
	tx        txRunner
	inventory InventoryAdjuster
	customers customerReader
	now       func() time.Time
}

// NewService constructs an order service instance.
func NewService(repo *Repository, tx txRunner, inv InventoryAdjuster, customers customerReader, now func() time.Time) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if inv == nil {
		return nil, fmt.Errorf("inventory adjuster required")
	}
	if customers == nil {
		return nil, fmt.Errorf("customer reader required")
	}
	if now == nil {
		now = time.Now
	}
	return &service{repo: repo, tx: tx, inventory: inv, customers: customers, now: now}, nil
}

// PlaceOrder validates channel constraints, persists every line, and reserves
// stock. Stock failures do not unwind the order; they come back as warnings.
func (s *service) PlaceOrder(ctx context.Context, actor auth.Identity, input PlaceOrderInput) (*PlaceOrderResult, error) {
	if !actor.Role.CanCreate() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "role cannot create orders")
	}
	if err := s.validatePlaceOrder(&input); err != nil {
		return nil, err
	}

	orderTime := s.now()
	if input.OrderID == "" {
		input.OrderID = newOrderID(input.CustomerType, orderTime)
	}

	// Offline orders are paid at the counter: they are born pending_ship with
	// payment_time equal to order_time. Online orders start the payment hold.
	status := enums.OrderStatusPendingPayment
	var paymentTime *time.Time
	if input.CustomerType == enums.CustomerTypeOfflineRetail {
		status = enums.OrderStatusPendingShip
		t := orderTime
		paymentTime = &t
	} else if input.ShipDeadline == nil {
		deadline := orderTime.AddDate(0, 0, onlineDeadlineDefaultDays)
		input.ShipDeadline = &deadline
	}

	result := &PlaceOrderResult{OrderID: input.OrderID}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		for _, line := range input.Lines {
			order := models.Order{
				OrderID:        input.OrderID,
				ProductID:      line.ProductID,
				CustomerType:   input.CustomerType,
				CustomerName:   input.CustomerName,
				Sales:          input.Sales,
				TrackingNumber: input.TrackingNumber,
				Status:         status,
				OrderTime:      orderTime,
				PaymentTime:    paymentTime,
				ShipDeadline:   input.ShipDeadline,
				Quantity:       line.Quantity,
				CreatedByID:    &actor.UserID,
			}
			if !order.CheckEntity() {
				return pkgerrors.New(pkgerrors.CodeValidation, "order id, product id, and customer name are required")
			}
			if err := txRepo.Upsert(ctx, &order); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: upsert order line")
			}
			result.Lines = append(result.Lines, order)

			if err := s.inventory.AdjustStock(ctx, tx, line.ProductID, -line.Quantity); err != nil {
				result.Warnings = append(result.Warnings,
					fmt.Sprintf("product %s: %v", line.ProductID, err))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) validatePlaceOrder(input *PlaceOrderInput) error {
	if strings.TrimSpace(input.CustomerName) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer name is required")
	}
	if len(input.Lines) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one order line is required")
	}

	switch input.CustomerType {
	case enums.CustomerTypeOfflineRetail:
		if len(input.Lines) > offlineMaxLines {
			return pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("offline orders allow at most %d lines", offlineMaxLines))
		}
		if input.TrackingNumber != "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "offline orders carry no tracking number")
		}
		if input.ShipDeadline != nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "offline orders carry no ship deadline")
		}
		for _, line := range input.Lines {
			if line.Quantity < 1 || line.Quantity > offlineMaxPerLine {
				return pkgerrors.New(pkgerrors.CodeValidation,
					fmt.Sprintf("offline line quantity must be between 1 and %d", offlineMaxPerLine))
			}
		}
	case enums.CustomerTypeOnlineRetail:
		if len(input.Lines) > onlineMaxLines {
			return pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("online orders allow at most %d lines", onlineMaxLines))
		}
		for _, line := range input.Lines {
			if line.Quantity < 1 || line.Quantity > onlineMaxPerLine {
				return pkgerrors.New(pkgerrors.CodeValidation,
					fmt.Sprintf("online line quantity must be between 1 and %d", onlineMaxPerLine))
			}
		}
		if input.ShipDeadline != nil {
			min := s.now().AddDate(0, 0, onlineDeadlineMinDays)
			max := s.now().AddDate(0, 0, onlineDeadlineMaxDays)
			if input.ShipDeadline.Before(startOfDay(min)) || input.ShipDeadline.After(max.Add(24*time.Hour)) {
				return pkgerrors.New(pkgerrors.CodeValidation,
					fmt.Sprintf("ship deadline must fall %d to %d days out", onlineDeadlineMinDays, onlineDeadlineMaxDays))
			}
		}
	default:
		return pkgerrors.New(pkgerrors.CodeValidation, "customer type must be online_retail or offline_retail")
	}
	return nil
}

// CompletePayment stamps the payment time and moves every line of the order
// to pending_ship. Re-completing an already paid order is a no-op.
func (s *service) CompletePayment(ctx context.Context, orderID string) ([]models.Order, error) {
	lines, err := s.repo.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load order lines")
	}
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}

	paidAt := s.now()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		for i := range lines {
			if lines[i].Status == enums.OrderStatusPendingShip && lines[i].PaymentTime != nil {
				continue
			}
			lines[i].Status = enums.OrderStatusPendingShip
			lines[i].PaymentTime = &paidAt
			if err := txRepo.Update(ctx, &lines[i]); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update order line")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return lines, nil
}

// CancelOrder restores stock for every line and marks them cancelled. A failed
// stock restore is collected, not fatal: the line still transitions.
func (s *service) CancelOrder(ctx context.Context, orderID string) (*CancelReport, error) {
	lines, err := s.repo.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load order lines")
	}
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}

	report := &CancelReport{OrderID: orderID}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		for i := range lines {
			if err := s.inventory.AdjustStock(ctx, tx, lines[i].ProductID, lines[i].Quantity); err != nil {
				report.StockRestoreErrors = append(report.StockRestoreErrors,
					fmt.Sprintf("product %s: %v", lines[i].ProductID, err))
			}
			lines[i].Status = enums.OrderStatusCancelled
			if err := txRepo.Update(ctx, &lines[i]); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update order line")
			}
			report.CancelledLines++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// SetStatus force-writes a line's status, optionally updating the tracking
// number in the same write. Any transition is allowed here; the payment and
// return flows own their own gated transitions.
func (s *service) SetStatus(ctx context.Context, actor auth.Identity, hash string, status enums.OrderStatus, trackingNumber *string) (*models.Order, error) {
	if !actor.Role.CanUpdate() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "role cannot update orders")
	}
	if !status.IsValid() || status == enums.OrderStatusUnknown {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid order status %q", status))
	}

	order, err := s.repo.FindByHash(ctx, hash)
	if err != nil {
		return nil, mapLookupError(err, "order")
	}
	order.Status = status
	if trackingNumber != nil {
		order.TrackingNumber = *trackingNumber
	}
	if err := s.repo.Update(ctx, order); err != nil {
		return nil, mapLookupError(err, "order")
	}
	return order, nil
}

// DeleteOrder removes a single line. Deleting an absent line succeeds.
func (s *service) DeleteOrder(ctx context.Context, actor auth.Identity, hash string) error {
	if !actor.Role.CanDelete() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "role cannot delete orders")
	}
	if err := s.repo.Delete(ctx, hash); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete order line")
	}
	return nil
}

func (s *service) GetOrder(ctx context.Context, actor auth.Identity, hash string) (*models.Order, error) {
	order, err := s.repo.FindByHash(ctx, hash)
	if err != nil {
		return nil, mapLookupError(err, "order")
	}
	if actor.Role == enums.UserRoleCustomer && order.CustomerName != actor.DisplayName {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func (s *service) ListOrders(ctx context.Context, actor auth.Identity, input ListInput) ([]models.Order, error) {
	filter := ListFilter{
		OrderID:      input.OrderID,
		CustomerName: input.CustomerName,
		Sales:        input.Sales,
		Status:       input.Status,
		CustomerType: input.CustomerType,
		ShipDeadline: input.ShipDeadline,
	}

	scope, empty, err := s.customerScope(ctx, actor)
	if err != nil {
		return nil, err
	}
	if empty {
		return []models.Order{}, nil
	}
	filter.CustomerID = scope

	lines, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list orders")
	}
	return lines, nil
}

func (s *service) OrdersNearingDeadline(ctx context.Context, actor auth.Identity, days int) ([]models.Order, error) {
	if days <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "days must be positive")
	}
	scope, empty, err := s.customerScope(ctx, actor)
	if err != nil {
		return nil, err
	}
	if empty {
		return []models.Order{}, nil
	}
	lines, err := s.repo.FindNearingDeadline(ctx, s.now(), days, scope)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: nearing deadline")
	}
	return lines, nil
}

func (s *service) Dashboard(ctx context.Context, actor auth.Identity) (*DashboardCounts, error) {
	scope, empty, err := s.customerScope(ctx, actor)
	if err != nil {
		return nil, err
	}
	if empty {
		return &DashboardCounts{}, nil
	}
	counts, err := s.repo.GetDashboardCounts(ctx, s.now(), scope)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: dashboard counts")
	}
	return counts, nil
}

func (s *service) DeadlineStats(ctx context.Context, actor auth.Identity) (*DeadlineStats, error) {
	scope, empty, err := s.customerScope(ctx, actor)
	if err != nil {
		return nil, err
	}
	if empty {
		return &DeadlineStats{}, nil
	}
	stats, err := s.repo.GetDeadlineStats(ctx, s.now(), scope)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: deadline stats")
	}
	return stats, nil
}

func (s *service) Statistics(ctx context.Context, actor auth.Identity) (*Statistics, error) {
	scope, empty, err := s.customerScope(ctx, actor)
	if err != nil {
		return nil, err
	}
	if empty {
		return &Statistics{}, nil
	}

	byStatus, err := s.repo.CountByStatus(ctx, scope)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: count by status")
	}
	byType, err := s.repo.CountByCustomerType(ctx, scope)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: count by customer type")
	}
	bySales, err := s.repo.CountBySales(ctx, scope)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: count by sales")
	}
	return &Statistics{ByStatus: byStatus, ByCustomerType: byType, BySales: bySales}, nil
}

// customerScope resolves the customer account for customer-role actors. The
// empty flag is set when the actor maps to no customer record, meaning every
// scoped read comes back empty rather than leaking other customers' data.
func (s *service) customerScope(ctx context.Context, actor auth.Identity) (*uuid.UUID, bool, error) {
	if actor.Role != enums.UserRoleCustomer {
		return nil, false, nil
	}
	customer, err := s.customers.GetByName(ctx, actor.DisplayName)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, true, nil
		}
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: resolve customer")
	}
	return &customer.CustomerID, false, nil
}

func mapLookupError(err error, entity string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, entity+" not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: "+entity)
}

func newOrderID(customerType enums.CustomerType, orderTime time.Time) string {
	prefix := "ONL"
	if customerType == enums.CustomerTypeOfflineRetail {
		prefix = "OFF"
	}
	var buf [4]byte
	_, _ = rand.Read(buf[:])
	return fmt.Sprintf("%s-%s-%04d", prefix, orderTime.Format("20060102150405"), binary.BigEndian.Uint32(buf[:])%10000)
}

// inventoryAdjusterImpl applies stock deltas through the inventory repository.
type inventoryAdjusterImpl struct{}

// NewInventoryAdjuster builds the production stock adjuster.
func NewInventoryAdjuster() InventoryAdjuster {
	return inventoryAdjusterImpl{}
}

func (inventoryAdjusterImpl) AdjustStock(ctx context.Context, tx *gorm.DB, productID string, delta int) error {
	return inventory.NewRepository(tx).UpdateStock(ctx, productID, delta)
}
