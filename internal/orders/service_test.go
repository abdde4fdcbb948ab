package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/quayretail/orderdesk-backend/pkg/auth"
	"github.com/quayretail/orderdesk-backend/pkg/db/models"
	"github.com/quayretail/orderdesk-backend/pkg/enums"
	pkgerrors "github.com/quayretail/orderdesk-backend/pkg/errors"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type fakeCustomerReader struct {
	byName map[string]*models.Customer
}

func (f fakeCustomerReader) GetByName(_ context.Context, companyName string) (*models.Customer, error) {
	customer, ok := f.byName[companyName]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return customer, nil
}

func setupOrderService(t *testing.T, now time.Time, customers map[string]*models.Customer) (Service, *Repository, *gorm.DB) {
	t.Helper()

	conn := setupOrdersTestDB(t)
	require.NoError(t, conn.AutoMigrate(&models.Product{}))

	repo := NewRepository(conn)
	svc, err := NewService(repo, gormTxRunner{db: conn}, NewInventoryAdjuster(),
		fakeCustomerReader{byName: customers}, func() time.Time { return now })
	require.NoError(t, err)
	return svc, repo, conn
}

func seedTestProduct(t *testing.T, conn *gorm.DB, id string, stock int) {
	t.Helper()
	require.NoError(t, conn.Create(&models.Product{
		ProductID:     id,
		ProductType:   "laptop",
		Manufacturer:  "Contoso",
		ProductName:   "Contoso Book " + id,
		StockQuantity: stock,
		Status:        enums.InventoryStatusNormal,
	}).Error)
}

func operator() auth.Identity {
	return auth.Identity{UserID: uuid.New(), Username: "op", DisplayName: "Operator", Role: enums.UserRoleOperator}
}

func TestPlaceOrder_OfflineSetsPaymentTimeAndReservesStock(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	svc, repo, conn := setupOrderService(t, now, nil)
	ctx := context.Background()
	seedTestProduct(t, conn, "P-1", 10)

	result, err := svc.PlaceOrder(ctx, operator(), PlaceOrderInput{
		CustomerType: enums.CustomerTypeOfflineRetail,
		CustomerName: "Walk-in",
		Lines:        []OrderLineInput{{ProductID: "P-1", Quantity: 2}},
	})
	require.NoError(t, err)
	require.Len(t, result.Lines, 1)
	assert.Empty(t, result.Warnings)
	assert.Contains(t, result.OrderID, "OFF-")

	line := result.Lines[0]
	assert.Equal(t, enums.OrderStatusPendingShip, line.Status)
	require.NotNil(t, line.PaymentTime)
	assert.True(t, line.PaymentTime.Equal(now))
	assert.Nil(t, line.ShipDeadline)

	var product models.Product
	require.NoError(t, conn.First(&product, "product_id = ?", "P-1").Error)
	assert.Equal(t, 8, product.StockQuantity)
	assert.Equal(t, 2, product.SoldQuantity)

	stored, err := repo.FindByOrderID(ctx, result.OrderID)
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestPlaceOrder_OfflineConstraints(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	svc, _, _ := setupOrderService(t, now, nil)
	ctx := context.Background()
	deadline := now.AddDate(0, 0, 3)

	cases := []struct {
		name  string
		input PlaceOrderInput
	}{
		{"tracking number", PlaceOrderInput{
			CustomerType: enums.CustomerTypeOfflineRetail, CustomerName: "Walk-in",
			TrackingNumber: "TRK-1",
			Lines:          []OrderLineInput{{ProductID: "P-1", Quantity: 1}},
		}},
		{"ship deadline", PlaceOrderInput{
			CustomerType: enums.CustomerTypeOfflineRetail, CustomerName: "Walk-in",
			ShipDeadline: &deadline,
			Lines:        []OrderLineInput{{ProductID: "P-1", Quantity: 1}},
		}},
		{"quantity too high", PlaceOrderInput{
			CustomerType: enums.CustomerTypeOfflineRetail, CustomerName: "Walk-in",
			Lines:        []OrderLineInput{{ProductID: "P-1", Quantity: 4}},
		}},
		{"too many lines", PlaceOrderInput{
			CustomerType: enums.CustomerTypeOfflineRetail, CustomerName: "Walk-in",
			Lines: []OrderLineInput{
				{ProductID: "P-1", Quantity: 1}, {ProductID: "P-2", Quantity: 1},
				{ProductID: "P-3", Quantity: 1}, {ProductID: "P-4", Quantity: 1},
				{ProductID: "P-5", Quantity: 1}, {ProductID: "P-6", Quantity: 1},
				{ProductID: "P-7", Quantity: 1}, {ProductID: "P-8", Quantity: 1},
			},
		}},
		{"no lines", PlaceOrderInput{
			CustomerType: enums.CustomerTypeOfflineRetail, CustomerName: "Walk-in",
		}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := svc.PlaceOrder(ctx, operator(), c.input)
			require.Error(t, err)
			assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
		})
	}
}

func TestPlaceOrder_OnlineDefaultsDeadline(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	svc, _, conn := setupOrderService(t, now, nil)
	ctx := context.Background()
	seedTestProduct(t, conn, "P-1", 10)

	result, err := svc.PlaceOrder(ctx, operator(), PlaceOrderInput{
		CustomerType: enums.CustomerTypeOnlineRetail,
		CustomerName: "Acme",
		Sales:        "Jordan",
		Lines:        []OrderLineInput{{ProductID: "P-1", Quantity: 5}},
	})
	require.NoError(t, err)
	require.Len(t, result.Lines, 1)
	assert.Contains(t, result.OrderID, "ONL-")

	line := result.Lines[0]
	assert.Equal(t, enums.OrderStatusPendingPayment, line.Status)
	assert.Nil(t, line.PaymentTime)
	require.NotNil(t, line.ShipDeadline)
	assert.True(t, line.ShipDeadline.Equal(now.AddDate(0, 0, 3)))
}

func TestPlaceOrder_StockShortfallIsWarningNotError(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	svc, repo, _ := setupOrderService(t, now, nil)
	ctx := context.Background()

	// The product does not exist at all: the line is still written.
	result, err := svc.PlaceOrder(ctx, operator(), PlaceOrderInput{
		CustomerType: enums.CustomerTypeOnlineRetail,
		CustomerName: "Acme",
		Lines:        []OrderLineInput{{ProductID: "P-MISSING", Quantity: 1}},
	})
	require.NoError(t, err)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "P-MISSING")

	stored, err := repo.FindByOrderID(ctx, result.OrderID)
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestPlaceOrder_RoleGate(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	svc, _, _ := setupOrderService(t, now, nil)

	viewer := auth.Identity{UserID: uuid.New(), Username: "v", Role: enums.UserRoleViewer}
	_, err := svc.PlaceOrder(context.Background(), viewer, PlaceOrderInput{
		CustomerType: enums.CustomerTypeOnlineRetail,
		CustomerName: "Acme",
		Lines:        []OrderLineInput{{ProductID: "P-1", Quantity: 1}},
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeForbidden))
}

func TestCompletePayment_Idempotent(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	svc, repo, conn := setupOrderService(t, now, nil)
	ctx := context.Background()
	seedTestProduct(t, conn, "P-1", 10)
	seedTestProduct(t, conn, "P-2", 10)

	placed, err := svc.PlaceOrder(ctx, operator(), PlaceOrderInput{
		CustomerType: enums.CustomerTypeOnlineRetail,
		CustomerName: "Acme",
		Lines: []OrderLineInput{
			{ProductID: "P-1", Quantity: 1},
			{ProductID: "P-2", Quantity: 2},
		},
	})
	require.NoError(t, err)

	paid, err := svc.CompletePayment(ctx, placed.OrderID)
	require.NoError(t, err)
	require.Len(t, paid, 2)
	firstPaidAt := paid[0].PaymentTime
	require.NotNil(t, firstPaidAt)
	for _, line := range paid {
		assert.Equal(t, enums.OrderStatusPendingShip, line.Status)
	}

	// Completing again changes nothing.
	again, err := svc.CompletePayment(ctx, placed.OrderID)
	require.NoError(t, err)
	for _, line := range again {
		assert.Equal(t, enums.OrderStatusPendingShip, line.Status)
		require.NotNil(t, line.PaymentTime)
		assert.True(t, line.PaymentTime.Equal(*firstPaidAt))
	}

	stored, err := repo.FindByOrderID(ctx, placed.OrderID)
	require.NoError(t, err)
	for _, line := range stored {
		assert.Equal(t, enums.OrderStatusPendingShip, line.Status)
	}
}

func TestCompletePayment_UnknownOrder(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	svc, _, _ := setupOrderService(t, now, nil)

	_, err := svc.CompletePayment(context.Background(), "NO-SUCH-ORDER")
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))
}

func TestCancelOrder_RestoresStockAndCollectsErrors(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	svc, repo, conn := setupOrderService(t, now, nil)
	ctx := context.Background()
	seedTestProduct(t, conn, "P-1", 10)

	placed, err := svc.PlaceOrder(ctx, operator(), PlaceOrderInput{
		CustomerType: enums.CustomerTypeOnlineRetail,
		CustomerName: "Acme",
		Lines: []OrderLineInput{
			{ProductID: "P-1", Quantity: 3},
			{ProductID: "P-GONE", Quantity: 1},
		},
	})
	require.NoError(t, err)

	report, err := svc.CancelOrder(ctx, placed.OrderID)
	require.NoError(t, err)
	assert.Equal(t, 2, report.CancelledLines)
	require.Len(t, report.StockRestoreErrors, 1)
	assert.Contains(t, report.StockRestoreErrors[0], "P-GONE")

	// Stock back, sold counter untouched.
	var product models.Product
	require.NoError(t, conn.First(&product, "product_id = ?", "P-1").Error)
	assert.Equal(t, 10, product.StockQuantity)
	assert.Equal(t, 3, product.SoldQuantity)

	stored, err := repo.FindByOrderID(ctx, placed.OrderID)
	require.NoError(t, err)
	for _, line := range stored {
		assert.Equal(t, enums.OrderStatusCancelled, line.Status)
	}
}

func TestListOrders_CustomerRoleScoping(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	acmeID := uuid.New()
	svc, repo, _ := setupOrderService(t, now, map[string]*models.Customer{
		"Acme": {CustomerID: acmeID, CompanyName: "Acme"},
	})
	ctx := context.Background()

	seedLine(t, repo, models.Order{
		OrderID: "A-1", ProductID: "P-1",
		CustomerType: enums.CustomerTypeOnlineRetail, CustomerName: "Acme",
		CustomerID: &acmeID,
	})
	seedLine(t, repo, models.Order{
		OrderID: "G-1", ProductID: "P-1",
		CustomerType: enums.CustomerTypeOnlineRetail, CustomerName: "Globex",
	})

	acmeActor := auth.Identity{UserID: uuid.New(), Username: "acme", DisplayName: "Acme", Role: enums.UserRoleCustomer}
	lines, err := svc.ListOrders(ctx, acmeActor, ListInput{})
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "A-1", lines[0].OrderID)

	// A customer account with no customer record sees nothing.
	strayActor := auth.Identity{UserID: uuid.New(), Username: "stray", DisplayName: "Stray", Role: enums.UserRoleCustomer}
	lines, err = svc.ListOrders(ctx, strayActor, ListInput{})
	require.NoError(t, err)
	assert.Empty(t, lines)

	// Staff see everything.
	lines, err = svc.ListOrders(ctx, operator(), ListInput{})
	require.NoError(t, err)
	assert.Len(t, lines, 2)
}

func TestGetOrder_CustomerCannotSeeOthers(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	svc, repo, _ := setupOrderService(t, now, map[string]*models.Customer{
		"Acme": {CustomerID: uuid.New(), CompanyName: "Acme"},
	})
	ctx := context.Background()

	line := seedLine(t, repo, models.Order{
		OrderID: "G-1", ProductID: "P-1",
		CustomerType: enums.CustomerTypeOnlineRetail, CustomerName: "Globex",
	})

	actor := auth.Identity{UserID: uuid.New(), Username: "acme", DisplayName: "Acme", Role: enums.UserRoleCustomer}
	_, err := svc.GetOrder(ctx, actor, line.Hash)
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))
}

func TestSetStatus_UpdatesTracking(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	svc, repo, _ := setupOrderService(t, now, nil)
	ctx := context.Background()

	line := seedLine(t, repo, models.Order{
		OrderID: "S-1", ProductID: "P-1",
		CustomerType: enums.CustomerTypeOnlineRetail, CustomerName: "Acme",
		Status: enums.OrderStatusPendingShip,
	})

	tracking := "TRK-42"
	updated, err := svc.SetStatus(ctx, operator(), line.Hash, enums.OrderStatusPacking, &tracking)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPacking, updated.Status)
	assert.Equal(t, "TRK-42", updated.TrackingNumber)

	_, err = svc.SetStatus(ctx, operator(), line.Hash, enums.OrderStatus("bogus"), nil)
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}
