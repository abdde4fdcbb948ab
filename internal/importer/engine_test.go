package importer

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/quayretail/orderdesk-backend/internal/customers"
	"github.com/quayretail/orderdesk-backend/internal/inventory"
	"github.com/quayretail/orderdesk-backend/internal/orders"
	"github.com/quayretail/orderdesk-backend/internal/returns"
	"github.com/quayretail/orderdesk-backend/internal/users"
	"github.com/quayretail/orderdesk-backend/pkg/auth"
	"github.com/quayretail/orderdesk-backend/pkg/config"
	"github.com/quayretail/orderdesk-backend/pkg/db/models"
	"github.com/quayretail/orderdesk-backend/pkg/enums"
	pkgerrors "github.com/quayretail/orderdesk-backend/pkg/errors"
	"github.com/quayretail/orderdesk-backend/pkg/logger"
	"github.com/quayretail/orderdesk-backend/pkg/security"
)

var fastArgon = config.PasswordConfig{
	ArgonMemoryKB:    8 * 1024,
	ArgonTime:        1,
	ArgonParallelism: 1,
	ArgonSaltLen:     16,
	ArgonKeyLen:      32,
}

func setupEngine(t *testing.T) (*Engine, *gorm.DB) {
	t.Helper()

	dsn := "file:importer_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&models.Order{}, &models.Product{}, &models.Customer{},
		&models.User{}, &models.ReturnRequest{},
	))

	engine, err := NewEngine(EngineParams{
		Orders:      orders.NewRepository(conn),
		Inventory:   inventory.NewRepository(conn),
		Customers:   customers.NewRepository(conn),
		Returns:     returns.NewRepository(conn),
		Users:       users.NewRepository(conn),
		PasswordCfg: fastArgon,
		Config:      config.ImportConfig{Timeout: 2 * time.Minute, ErrorPreviewN: 5, TempPasswordLen: 10},
		Logger:      logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Now:         time.Now,
	})
	require.NoError(t, err)
	return engine, conn
}

func seedImportProduct(t *testing.T, conn *gorm.DB, productID string, stock int) {
	t.Helper()
	require.NoError(t, conn.Create(&models.Product{
		ProductID:     productID,
		ProductType:   "widget",
		Manufacturer:  "Quay Industrial",
		ProductName:   "product " + productID,
		StockQuantity: stock,
		Status:        enums.InventoryStatusNormal,
	}).Error)
}

func importOperator() auth.Identity {
	return auth.Identity{
		UserID:      uuid.New(),
		Username:    "ops",
		DisplayName: "Ops",
		Role:        enums.UserRoleOperator,
	}
}

func importRow(orderID, productID, customer string) RowRecord {
	return RowRecord{
		OrderID:      orderID,
		ProductID:    productID,
		CustomerType: enums.CustomerTypeOnlineRetail,
		CustomerName: customer,
		Sales:        "Dana Reyes",
		Status:       enums.OrderStatusPendingShip,
		OrderTime:    time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
		Quantity:     2,
	}
}

func TestImportOrders_BadRowDoesNotAbortBatch(t *testing.T) {
	engine, conn := setupEngine(t)
	ctx := context.Background()
	seedImportProduct(t, conn, "P-1", 10)
	seedImportProduct(t, conn, "P-2", 10)

	rows := []RowRecord{
		importRow("ORD-1", "P-1", "Acme Trading"),
		importRow("ORD-2", "P-MISSING", "Acme Trading"),
		importRow("ORD-3", "P-2", "Acme Trading"),
	}

	result, err := engine.ImportOrders(ctx, importOperator(), rows)
	require.NoError(t, err)

	assert.Equal(t, 2, result.OrdersUpserted)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "P-MISSING")

	var count int64
	require.NoError(t, conn.Model(&models.Order{}).Count(&count).Error)
	assert.EqualValues(t, 2, count)

	var product models.Product
	require.NoError(t, conn.First(&product, "product_id = ?", "P-1").Error)
	assert.Equal(t, 8, product.StockQuantity)
	assert.Equal(t, 2, product.SoldQuantity)
}

func TestImportOrders_DedupesCustomersByName(t *testing.T) {
	engine, conn := setupEngine(t)
	ctx := context.Background()
	seedImportProduct(t, conn, "P-1", 30)

	rows := []RowRecord{
		importRow("ORD-1", "P-1", "Acme Trading"),
		importRow("ORD-2", "P-1", "Acme Trading"),
		importRow("ORD-3", "P-1", "Acme Trading"),
	}

	result, err := engine.ImportOrders(ctx, importOperator(), rows)
	require.NoError(t, err)
	assert.Equal(t, 1, result.CustomersCreated)

	var customer models.Customer
	require.NoError(t, conn.First(&customer, "company_name = ?", "Acme Trading").Error)

	var lines []models.Order
	require.NoError(t, conn.Find(&lines).Error)
	require.Len(t, lines, 3)
	for _, line := range lines {
		require.NotNil(t, line.CustomerID)
		assert.Equal(t, customer.CustomerID, *line.CustomerID)
	}
}

func TestImportOrders_MintsSalesAccountOnce(t *testing.T) {
	engine, conn := setupEngine(t)
	ctx := context.Background()
	seedImportProduct(t, conn, "P-1", 30)

	result, err := engine.ImportOrders(ctx, importOperator(), []RowRecord{
		importRow("ORD-1", "P-1", "Acme Trading"),
	})
	require.NoError(t, err)
	require.Equal(t, 1, result.UsersCreated)
	require.Len(t, result.Credentials, 1)

	cred := result.Credentials[0]
	assert.Equal(t, "Dana Reyes", cred.Sales)
	assert.Len(t, cred.Password, 10)

	var account models.User
	require.NoError(t, conn.First(&account, "username = ?", cred.Username).Error)
	assert.Equal(t, enums.UserRoleOperator, account.Role)
	ok, err := security.VerifyPassword(cred.Password, account.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)

	// The same rep in a later batch must not get a second login.
	again, err := engine.ImportOrders(ctx, importOperator(), []RowRecord{
		importRow("ORD-2", "P-1", "Acme Trading"),
	})
	require.NoError(t, err)
	assert.Zero(t, again.UsersCreated)
	assert.Empty(t, again.Credentials)
}

func TestImportOrders_ReimportIsIdempotent(t *testing.T) {
	engine, conn := setupEngine(t)
	ctx := context.Background()
	seedImportProduct(t, conn, "P-1", 50)

	returning := importRow("ORD-RET", "P-1", "Globex Ltd")
	returning.Status = enums.OrderStatusReturning
	rows := []RowRecord{
		importRow("ORD-1", "P-1", "Acme Trading"),
		returning,
	}

	first, err := engine.ImportOrders(ctx, importOperator(), rows)
	require.NoError(t, err)
	assert.Equal(t, 2, first.OrdersUpserted)
	assert.Equal(t, 2, first.CustomersCreated)
	assert.Equal(t, 1, first.ReturnsCreated)
	assert.Zero(t, first.ReturnsSkipped)

	second, err := engine.ImportOrders(ctx, importOperator(), rows)
	require.NoError(t, err)
	assert.Equal(t, 2, second.OrdersUpserted)
	assert.Zero(t, second.CustomersCreated)
	assert.Zero(t, second.ReturnsCreated)
	assert.Equal(t, 1, second.ReturnsSkipped)

	var orderCount, returnCount int64
	require.NoError(t, conn.Model(&models.Order{}).Count(&orderCount).Error)
	require.NoError(t, conn.Model(&models.ReturnRequest{}).Count(&returnCount).Error)
	assert.EqualValues(t, 2, orderCount)
	assert.EqualValues(t, 1, returnCount)

	var line models.Order
	require.NoError(t, conn.First(&line, "order_id = ?", "ORD-RET").Error)
	assert.True(t, line.ReturnApplied)
	require.NotNil(t, line.ReturnRequestID)
}

func TestImportOrders_ViewerForbidden(t *testing.T) {
	engine, _ := setupEngine(t)

	viewer := importOperator()
	viewer.Role = enums.UserRoleViewer
	_, err := engine.ImportOrders(context.Background(), viewer, nil)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeForbidden))
}

func TestImportInventory_UpsertsByName(t *testing.T) {
	engine, conn := setupEngine(t)
	ctx := context.Background()

	records := []ProductRecord{
		{ProductName: "Cobalt Valve", ProductType: "valve", Manufacturer: "Quay Industrial", StockQuantity: 12},
		{ProductName: "", ProductType: "valve", Manufacturer: "Quay Industrial"},
	}

	result, err := engine.ImportInventory(ctx, importOperator(), records)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)
	assert.Zero(t, result.Updated)
	require.Len(t, result.Errors, 1)

	records[0].StockQuantity = 4
	records[0].SoldQuantity = 8
	again, err := engine.ImportInventory(ctx, importOperator(), records[:1])
	require.NoError(t, err)
	assert.Zero(t, again.Created)
	assert.Equal(t, 1, again.Updated)

	var product models.Product
	require.NoError(t, conn.First(&product, "product_name = ?", "Cobalt Valve").Error)
	assert.Equal(t, 4, product.StockQuantity)
	assert.Equal(t, 8, product.SoldQuantity)
}
