package inventory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/quayretail/orderdesk-backend/pkg/db/models"
	"github.com/quayretail/orderdesk-backend/pkg/enums"
)

func setupInventoryTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:inventory_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.Product{}))
	return conn
}

func seedProduct(t *testing.T, conn *gorm.DB, id string, stock, sold int) *models.Product {
	t.Helper()
	product := &models.Product{
		ProductID:     id,
		ProductType:   "laptop",
		Manufacturer:  "Contoso",
		ProductName:   "Contoso Book " + id,
		StockQuantity: stock,
		SoldQuantity:  sold,
		Status:        enums.InventoryStatusNormal,
	}
	require.NoError(t, conn.Create(product).Error)
	return product
}

func TestUpdateStock_ReserveAndRestoreAsymmetry(t *testing.T) {
	conn := setupInventoryTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	seedProduct(t, conn, "P-100", 10, 0)

	// Reserving 3 moves stock down and sold up.
	require.NoError(t, repo.UpdateStock(ctx, "P-100", -3))
	product, err := repo.Get(ctx, "P-100")
	require.NoError(t, err)
	assert.Equal(t, 7, product.StockQuantity)
	assert.Equal(t, 3, product.SoldQuantity)

	// Restoring 3 moves stock back but leaves the cumulative sold counter.
	require.NoError(t, repo.UpdateStock(ctx, "P-100", 3))
	product, err = repo.Get(ctx, "P-100")
	require.NoError(t, err)
	assert.Equal(t, 10, product.StockQuantity)
	assert.Equal(t, 3, product.SoldQuantity)
	assert.Equal(t, enums.InventoryStatusNormal, product.Status)
}

func TestUpdateStock_NegativeForcesOutOfStock(t *testing.T) {
	conn := setupInventoryTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	seedProduct(t, conn, "P-200", 2, 0)

	require.NoError(t, repo.UpdateStock(ctx, "P-200", -5))
	product, err := repo.Get(ctx, "P-200")
	require.NoError(t, err)
	assert.Equal(t, -3, product.StockQuantity)
	assert.Equal(t, 5, product.SoldQuantity)
	assert.Equal(t, enums.InventoryStatusOutOfStock, product.Status)
}

func TestUpdateStock_UnknownProduct(t *testing.T) {
	conn := setupInventoryTestDB(t)
	repo := NewRepository(conn)

	err := repo.UpdateStock(context.Background(), "missing", -1)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestGetOrCreate(t *testing.T) {
	conn := setupInventoryTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	created, err := repo.GetOrCreate(ctx, "Widget", "accessory", "Fabrikam", "")
	require.NoError(t, err)
	assert.NotEmpty(t, created.ProductID)
	assert.Equal(t, 0, created.StockQuantity)

	again, err := repo.GetOrCreate(ctx, "Widget", "accessory", "Fabrikam", "")
	require.NoError(t, err)
	assert.Equal(t, created.ProductID, again.ProductID)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestUpdate_ClosedFieldSet(t *testing.T) {
	conn := setupInventoryTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	original := seedProduct(t, conn, "P-300", 4, 1)

	edited := *original
	edited.ProductModel = "v2"
	edited.StockQuantity = 9

	updated, err := repo.Update(ctx, &edited)
	require.NoError(t, err)
	assert.Equal(t, "v2", updated.ProductModel)
	assert.Equal(t, 9, updated.StockQuantity)

	missing := models.Product{ProductID: "nope", ProductName: "x", ProductType: "y", Manufacturer: "z"}
	_, err = repo.Update(ctx, &missing)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestSearchAndListByStatus(t *testing.T) {
	conn := setupInventoryTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	seedProduct(t, conn, "P-1", 5, 0)
	offShelf := seedProduct(t, conn, "P-2", 0, 7)
	offShelf.Status = enums.InventoryStatusOffShelf
	_, err := repo.Update(ctx, offShelf)
	require.NoError(t, err)

	byStatus, err := repo.ListByStatus(ctx, enums.InventoryStatusOffShelf)
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, "P-2", byStatus[0].ProductID)

	found, err := repo.Search(ctx, "Contoso")
	require.NoError(t, err)
	assert.Len(t, found, 2)
}

func TestSalesByType(t *testing.T) {
	conn := setupInventoryTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	seedProduct(t, conn, "P-1", 5, 2)
	seedProduct(t, conn, "P-2", 1, 9)
	accessory := &models.Product{
		ProductID:    "P-3",
		ProductType:  "accessory",
		Manufacturer: "Fabrikam",
		ProductName:  "Dock",
		SoldQuantity: 4,
	}
	require.NoError(t, conn.Create(accessory).Error)

	rows, err := repo.SalesByType(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "laptop", rows[0].ProductType)
	assert.Equal(t, 11, rows[0].TotalSold)
	assert.Equal(t, 6, rows[0].TotalStock)
	assert.Equal(t, "accessory", rows[1].ProductType)
}
