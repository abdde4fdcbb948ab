package importer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/quayretail/orderdesk-backend/internal/customers"
	"github.com/quayretail/orderdesk-backend/internal/inventory"
	"github.com/quayretail/orderdesk-backend/internal/orders"
	"github.com/quayretail/orderdesk-backend/internal/returns"
	"github.com/quayretail/orderdesk-backend/internal/users"
	"github.com/quayretail/orderdesk-backend/pkg/auth"
	"github.com/quayretail/orderdesk-backend/pkg/config"
	"github.com/quayretail/orderdesk-backend/pkg/db"
	"github.com/quayretail/orderdesk-backend/pkg/db/models"
	"github.com/quayretail/orderdesk-backend/pkg/enums"
	pkgerrors "github.com/quayretail/orderdesk-backend/pkg/errors"
	"github.com/quayretail/orderdesk-backend/pkg/logger"
	"github.com/quayretail/orderdesk-backend/pkg/metrics"
	"github.com/quayretail/orderdesk-backend/pkg/security"
)

const (
	kindOrders    = "orders"
	kindInventory = "inventory"
)

// EngineParams carries the dependencies for NewEngine.
type EngineParams struct {
	Orders      *orders.Repository
	Inventory   *inventory.Repository
	Customers   *customers.Repository
	Returns     *returns.Repository
	Users       *users.Repository
	PasswordCfg config.PasswordConfig
	Config      config.ImportConfig
	Metrics     *metrics.ImportMetrics
	Logger      *logger.Logger
	Now         func() time.Time
}

// Engine ingests bulk order and inventory feeds. Batches are best effort: a
// bad row is reported and skipped, never aborts the rest of the batch.
type Engine struct {
	orders      *orders.Repository
	inventory   *inventory.Repository
	customers   *customers.Repository
	returns     *returns.Repository
	users       *users.Repository
	passwordCfg config.PasswordConfig
	cfg         config.ImportConfig
	metrics     *metrics.ImportMetrics
	log         *logger.Logger
	now         func() time.Time
}

// NewEngine validates dependencies and builds the import engine.
func NewEngine(params EngineParams) (*Engine, error) {
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Inventory == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if params.Customers == nil {
		return nil, fmt.Errorf("customers repository required")
	}
	if params.Returns == nil {
		return nil, fmt.Errorf("returns repository required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	return &Engine{
		orders:      params.Orders,
		inventory:   params.Inventory,
		customers:   params.Customers,
		returns:     params.Returns,
		users:       params.Users,
		passwordCfg: params.PasswordCfg,
		cfg:         params.Config,
		metrics:     params.Metrics,
		log:         params.Logger,
		now:         params.Now,
	}, nil
}

// ImportOrders ingests a mapped order feed. The pass is two-phase: first the
// rows are screened and the referenced customers and sales accounts are
// resolved, then the surviving rows are applied in input order.
func (e *Engine) ImportOrders(ctx context.Context, actor auth.Identity, rows []RowRecord) (*Result, error) {
	if !actor.Role.CanCreate() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "role cannot import orders")
	}

	start := e.now()
	defer func() {
		e.metrics.ObserveDuration(kindOrders, e.now().Sub(start))
	}()

	result := &Result{}
	accepted := e.screenRows(ctx, rows, result)

	customerByName, err := e.resolveCustomers(ctx, accepted, result)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolve customers")
	}
	if err := e.provisionSalesAccounts(ctx, accepted, result); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "provision sales accounts")
	}

	for _, row := range accepted {
		e.applyRow(ctx, actor, row, customerByName, result)
	}

	e.metrics.AddRows(kindOrders, "upserted", result.OrdersUpserted)
	e.metrics.AddRows(kindOrders, "rejected", len(result.Errors))
	e.log.Info(e.log.WithUserID(ctx, actor.UserID.String()), fmt.Sprintf(
		"order import finished: %d upserted, %d customers, %d accounts, %d returns (%d skipped), %d errors",
		result.OrdersUpserted, result.CustomersCreated, result.UsersCreated,
		result.ReturnsCreated, result.ReturnsSkipped, len(result.Errors)))
	return result, nil
}

// screenRows drops rows that cannot be applied and normalizes the rest.
func (e *Engine) screenRows(ctx context.Context, rows []RowRecord, result *Result) []RowRecord {
	accepted := make([]RowRecord, 0, len(rows))
	for i, row := range rows {
		if row.Quantity <= 0 {
			row.Quantity = 1
		}
		if !row.CustomerType.IsValid() {
			row.CustomerType = enums.CustomerTypeUnknown
		}
		if row.Status == "" {
			row.Status = enums.OrderStatusUnknown
		}
		line := models.Order{
			OrderID:      row.OrderID,
			ProductID:    row.ProductID,
			CustomerName: row.CustomerName,
		}
		if !line.CheckEntity() {
			result.Errors = append(result.Errors, fmt.Sprintf(
				"row %d: missing order id, product id, or customer name", i+1))
			continue
		}
		if !row.Status.IsValid() {
			result.Errors = append(result.Errors, fmt.Sprintf(
				"row %d (%s): unknown status %q", i+1, row.OrderID, row.Status))
			continue
		}
		if _, err := e.inventory.Get(ctx, row.ProductID); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf(
				"row %d (%s): product %s not in inventory", i+1, row.OrderID, row.ProductID))
			continue
		}
		accepted = append(accepted, row)
	}
	return accepted
}

// resolveCustomers get-or-creates every company named by the batch. The first
// row mentioning a company decides the customer type stored for it.
func (e *Engine) resolveCustomers(ctx context.Context, rows []RowRecord, result *Result) (map[string]*models.Customer, error) {
	types := make(map[string]enums.CustomerType)
	names := make([]string, 0)
	for _, row := range rows {
		if _, seen := types[row.CustomerName]; !seen {
			types[row.CustomerName] = row.CustomerType
			names = append(names, row.CustomerName)
		}
	}

	byName := make(map[string]*models.Customer, len(names))
	for _, name := range names {
		customer, created, err := e.customers.GetOrCreate(ctx, name, types[name])
		if err != nil {
			return nil, fmt.Errorf("get or create customer %q: %w", name, err)
		}
		if created {
			result.CustomersCreated++
		}
		byName[name] = customer
	}
	return byName, nil
}

// provisionSalesAccounts mints an operator login for every sales rep the
// batch names that does not already have one. Plaintext temp passwords are
// returned once through the result and never stored.
func (e *Engine) provisionSalesAccounts(ctx context.Context, rows []RowRecord, result *Result) error {
	seen := make(map[string]bool)
	for _, row := range rows {
		name := row.Sales
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		exists, err := e.users.DisplayNameExists(ctx, name, enums.UserRoleOperator)
		if err != nil {
			return fmt.Errorf("check sales account %q: %w", name, err)
		}
		if exists {
			continue
		}

		username, err := security.GenerateUsername(name)
		if err != nil {
			return fmt.Errorf("generate username for %q: %w", name, err)
		}
		if taken, err := e.users.UsernameExists(ctx, username); err != nil {
			return fmt.Errorf("check username %q: %w", username, err)
		} else if taken {
			continue
		}
		password, err := security.GenerateTempPassword(e.cfg.TempPasswordLen)
		if err != nil {
			return fmt.Errorf("generate password for %q: %w", name, err)
		}
		hash, err := security.HashPassword(password, e.passwordCfg)
		if err != nil {
			return fmt.Errorf("hash password for %q: %w", name, err)
		}

		user := &models.User{
			Username:     username,
			PasswordHash: hash,
			DisplayName:  name,
			Role:         enums.UserRoleOperator,
			IsActive:     true,
		}
		if err := e.users.Create(ctx, user); err != nil {
			if db.IsUniqueViolation(err, "") {
				continue
			}
			return fmt.Errorf("create sales account %q: %w", name, err)
		}
		result.UsersCreated++
		result.Credentials = append(result.Credentials, AccountCredential{
			Sales:    name,
			Username: username,
			Password: password,
		})
	}
	return nil
}

// applyRow upserts one order line, reserves its stock, and files the return
// request when the line arrived with a return already underway.
func (e *Engine) applyRow(ctx context.Context, actor auth.Identity, row RowRecord, customerByName map[string]*models.Customer, result *Result) {
	line := &models.Order{
		OrderID:        row.OrderID,
		ProductID:      row.ProductID,
		CustomerType:   row.CustomerType,
		CustomerName:   row.CustomerName,
		Sales:          row.Sales,
		TrackingNumber: row.TrackingNumber,
		Status:         row.Status,
		OrderTime:      row.OrderTime,
		PaymentTime:    row.PaymentTime,
		ShipDeadline:   row.ShipDeadline,
		Quantity:       row.Quantity,
		CreatedByID:    &actor.UserID,
	}
	if customer, ok := customerByName[row.CustomerName]; ok {
		id := customer.CustomerID
		line.CustomerID = &id
	}
	line.EnsureHash()

	returnInProgress := false
	for _, status := range enums.ReturnInProgressStatuses() {
		if row.Status == status {
			returnInProgress = true
			break
		}
	}
	if returnInProgress {
		requestID := row.ReturnRequestID
		if requestID == "" {
			// Derive from the content hash so re-importing the same feed
			// does not mint a second request for the same line.
			requestID = "RET-" + line.Hash[:8]
		}
		line.ReturnRequestID = &requestID
		line.ReturnApplied = true
	}

	if err := e.orders.Upsert(ctx, line); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf(
			"order %s product %s: %v", row.OrderID, row.ProductID, err))
		return
	}
	result.OrdersUpserted++

	if err := e.inventory.UpdateStock(ctx, row.ProductID, -row.Quantity); err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"order %s: stock not reserved for product %s: %v", row.OrderID, row.ProductID, err))
	}

	if returnInProgress {
		request := &models.ReturnRequest{
			ReturnRequestID: *line.ReturnRequestID,
			OrderID:         row.OrderID,
			ProductID:       row.ProductID,
			Quantity:        row.Quantity,
			Reason:          enums.ReturnReasonOther,
			Description:     "imported with return in progress",
			Status:          enums.ReturnStatusPending,
			CustomerName:    row.CustomerName,
		}
		if err := e.returns.Create(ctx, request); err != nil {
			if db.IsUniqueViolation(err, "") {
				result.ReturnsSkipped++
			} else {
				result.Errors = append(result.Errors, fmt.Sprintf(
					"order %s: file return %s: %v", row.OrderID, request.ReturnRequestID, err))
			}
			return
		}
		result.ReturnsCreated++
	}
}

// ImportInventory ingests a mapped inventory feed, upserting rows by product
// name. Quantities in the feed replace the stored quantities.
func (e *Engine) ImportInventory(ctx context.Context, actor auth.Identity, records []ProductRecord) (*InventoryResult, error) {
	if !actor.Role.CanCreate() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "role cannot import inventory")
	}

	start := e.now()
	defer func() {
		e.metrics.ObserveDuration(kindInventory, e.now().Sub(start))
	}()

	result := &InventoryResult{}
	for i, record := range records {
		product := &models.Product{
			ProductName:     record.ProductName,
			ProductType:     record.ProductType,
			Manufacturer:    record.Manufacturer,
			ProductModel:    record.ProductModel,
			StockQuantity:   record.StockQuantity,
			SoldQuantity:    record.SoldQuantity,
			ExpectedArrival: record.ExpectedArrival,
		}
		if !product.Validate() {
			result.Errors = append(result.Errors, fmt.Sprintf(
				"row %d: missing product name, type, or manufacturer", i+1))
			continue
		}

		existing, err := e.inventory.GetByName(ctx, record.ProductName)
		switch {
		case err == nil:
			product.ProductID = existing.ProductID
			if _, err := e.inventory.Update(ctx, product); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf(
					"row %d (%s): %v", i+1, record.ProductName, err))
				continue
			}
			result.Updated++
		case errors.Is(err, gorm.ErrRecordNotFound):
			if _, err := e.inventory.Create(ctx, product); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf(
					"row %d (%s): %v", i+1, record.ProductName, err))
				continue
			}
			result.Created++
		default:
			result.Errors = append(result.Errors, fmt.Sprintf(
				"row %d (%s): %v", i+1, record.ProductName, err))
		}
	}

	e.metrics.AddRows(kindInventory, "created", result.Created)
	e.metrics.AddRows(kindInventory, "updated", result.Updated)
	e.metrics.AddRows(kindInventory, "rejected", len(result.Errors))
	return result, nil
}
