package orders

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/quayretail/orderdesk-backend/pkg/db/models"
	"github.com/quayretail/orderdesk-backend/pkg/enums"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:orders_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.Order{}))
	return conn
}

func seedLine(t *testing.T, repo *Repository, line models.Order) models.Order {
	t.Helper()
	if line.Status == "" {
		line.Status = enums.OrderStatusPendingPayment
	}
	if line.Quantity == 0 {
		line.Quantity = 1
	}
	if line.OrderTime.IsZero() {
		line.OrderTime = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	}
	require.NoError(t, repo.Upsert(context.Background(), &line))
	return line
}

func TestUpsert_SameKeyFieldsUpdateInPlace(t *testing.T) {
	conn := setupOrdersTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	first := seedLine(t, repo, models.Order{
		OrderID:      "ONL-20260301100000-0001",
		ProductID:    "P-1",
		CustomerType: enums.CustomerTypeOnlineRetail,
		CustomerName: "Acme",
		Sales:        "Jordan",
		Quantity:     2,
	})

	// Same identity fields, different mutable fields: one row, updated.
	again := first
	again.Hash = ""
	again.Quantity = 5
	again.TrackingNumber = "TRK-99"
	again.Status = enums.OrderStatusPacking
	require.NoError(t, repo.Upsert(ctx, &again))
	assert.Equal(t, first.Hash, again.Hash)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	stored, err := repo.FindByHash(ctx, first.Hash)
	require.NoError(t, err)
	assert.Equal(t, 5, stored.Quantity)
	assert.Equal(t, "TRK-99", stored.TrackingNumber)
	assert.Equal(t, enums.OrderStatusPacking, stored.Status)
}

func TestUpsert_DifferentProductNewRow(t *testing.T) {
	conn := setupOrdersTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	seedLine(t, repo, models.Order{
		OrderID: "OFF-1", ProductID: "P-1",
		CustomerType: enums.CustomerTypeOfflineRetail, CustomerName: "Acme",
	})
	seedLine(t, repo, models.Order{
		OrderID: "OFF-1", ProductID: "P-2",
		CustomerType: enums.CustomerTypeOfflineRetail, CustomerName: "Acme",
	})

	lines, err := repo.FindByOrderID(ctx, "OFF-1")
	require.NoError(t, err)
	assert.Len(t, lines, 2)
}

func TestUpdate_MissingRow(t *testing.T) {
	conn := setupOrdersTestDB(t)
	repo := NewRepository(conn)

	err := repo.Update(context.Background(), &models.Order{Hash: "no-such-hash", Status: enums.OrderStatusPacking})
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestDelete_AbsentRowIsNoError(t *testing.T) {
	conn := setupOrdersTestDB(t)
	repo := NewRepository(conn)

	require.NoError(t, repo.Delete(context.Background(), "no-such-hash"))
}

func TestList_Filters(t *testing.T) {
	conn := setupOrdersTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	seedLine(t, repo, models.Order{
		OrderID: "ONL-100", ProductID: "P-1",
		CustomerType: enums.CustomerTypeOnlineRetail, CustomerName: "Acme", Sales: "Jordan",
		Status: enums.OrderStatusPacking,
	})
	seedLine(t, repo, models.Order{
		OrderID: "OFF-200", ProductID: "P-2",
		CustomerType: enums.CustomerTypeOfflineRetail, CustomerName: "Globex", Sales: "Sam",
	})

	byName, err := repo.List(ctx, ListFilter{CustomerName: "cme"})
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, "Acme", byName[0].CustomerName)

	packing := enums.OrderStatusPacking
	byStatus, err := repo.List(ctx, ListFilter{Status: &packing})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, "ONL-100", byStatus[0].OrderID)

	// Unknown status filter means "no status filter".
	unknown := enums.OrderStatusUnknown
	all, err := repo.List(ctx, ListFilter{Status: &unknown})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	offline := enums.CustomerTypeOfflineRetail
	byType, err := repo.List(ctx, ListFilter{CustomerType: &offline, Sales: "Sam"})
	require.NoError(t, err)
	require.Len(t, byType, 1)
	assert.Equal(t, "OFF-200", byType[0].OrderID)
}

func TestCountBySales_SkipsBlankNames(t *testing.T) {
	conn := setupOrdersTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	seedLine(t, repo, models.Order{
		OrderID: "A-1", ProductID: "P-1",
		CustomerType: enums.CustomerTypeOnlineRetail, CustomerName: "Acme", Sales: "Jordan",
	})
	seedLine(t, repo, models.Order{
		OrderID: "A-2", ProductID: "P-1",
		CustomerType: enums.CustomerTypeOnlineRetail, CustomerName: "Acme", Sales: "",
	})

	rows, err := repo.CountBySales(ctx, nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Jordan", rows[0].Sales)
	assert.Equal(t, int64(1), rows[0].Count)
}

func TestFindPaymentPendingBefore_DistinctOrderIDs(t *testing.T) {
	conn := setupOrdersTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	old := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	fresh := time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC)
	cutoff := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	// Two stale lines of the same order collapse to a single order id.
	seedLine(t, repo, models.Order{
		OrderID: "STALE-1", ProductID: "P-1",
		CustomerType: enums.CustomerTypeOnlineRetail, CustomerName: "Acme",
		OrderTime: old,
	})
	seedLine(t, repo, models.Order{
		OrderID: "STALE-1", ProductID: "P-2",
		CustomerType: enums.CustomerTypeOnlineRetail, CustomerName: "Acme",
		OrderTime: old,
	})
	seedLine(t, repo, models.Order{
		OrderID: "FRESH-1", ProductID: "P-1",
		CustomerType: enums.CustomerTypeOnlineRetail, CustomerName: "Acme",
		OrderTime: fresh,
	})
	seedLine(t, repo, models.Order{
		OrderID: "PAID-1", ProductID: "P-1",
		CustomerType: enums.CustomerTypeOnlineRetail, CustomerName: "Acme",
		OrderTime: old, Status: enums.OrderStatusPendingShip,
	})

	ids, err := repo.FindPaymentPendingBefore(ctx, cutoff)
	require.NoError(t, err)
	assert.Equal(t, []string{"STALE-1"}, ids)
}

func TestGetDeadlineStats_Buckets(t *testing.T) {
	conn := setupOrdersTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	now := time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)
	deadline := func(days int) *time.Time {
		d := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC).AddDate(0, 0, days)
		return &d
	}

	cases := []struct {
		orderID string
		days    int
		status  enums.OrderStatus
	}{
		{"OVERDUE", -1, enums.OrderStatusPendingShip},
		{"TODAY", 0, enums.OrderStatusPendingShip},
		{"TOMORROW", 1, enums.OrderStatusPacking},
		{"IN-2", 2, enums.OrderStatusPendingShip},
		{"IN-3", 3, enums.OrderStatusPendingShip},
		{"IN-5", 5, enums.OrderStatusPendingShip},
		{"IN-9", 9, enums.OrderStatusPendingShip},
		{"DONE", 0, enums.OrderStatusCompleted},
		{"PAUSED", 0, enums.OrderStatusPaused},
	}
	for _, c := range cases {
		seedLine(t, repo, models.Order{
			OrderID: c.orderID, ProductID: "P-1",
			CustomerType: enums.CustomerTypeOnlineRetail, CustomerName: "Acme",
			Status: c.status, ShipDeadline: deadline(c.days),
		})
	}

	stats, err := repo.GetDeadlineStats(ctx, now, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Overdue)
	assert.Equal(t, int64(1), stats.DueToday)
	assert.Equal(t, int64(1), stats.DueTomorrow)
	assert.Equal(t, int64(2), stats.DueIn3Days)
	assert.Equal(t, int64(1), stats.DueIn7Days)
	assert.Equal(t, int64(1), stats.DueLater)
}

func TestGetDashboardCounts(t *testing.T) {
	conn := setupOrdersTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	soon := time.Date(2026, 3, 11, 12, 0, 0, 0, time.UTC)
	far := time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)

	seedLine(t, repo, models.Order{
		OrderID: "D-1", ProductID: "P-1",
		CustomerType: enums.CustomerTypeOnlineRetail, CustomerName: "Acme",
		Status: enums.OrderStatusPendingShip, ShipDeadline: &soon,
	})
	seedLine(t, repo, models.Order{
		OrderID: "D-2", ProductID: "P-1",
		CustomerType: enums.CustomerTypeOnlineRetail, CustomerName: "Acme",
		Status: enums.OrderStatusPacking, ShipDeadline: &far,
	})
	seedLine(t, repo, models.Order{
		OrderID: "D-3", ProductID: "P-1",
		CustomerType: enums.CustomerTypeOfflineRetail, CustomerName: "Acme",
		Status: enums.OrderStatusCompleted,
	})

	counts, err := repo.GetDashboardCounts(ctx, now, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), counts.TotalOrders)
	assert.Equal(t, int64(2), counts.PendingOrders)
	assert.Equal(t, int64(1), counts.CompletedOrders)
	assert.Equal(t, int64(1), counts.NearDeadlineOrders)
}

func TestFindNearingDeadline_ScopedAndSorted(t *testing.T) {
	conn := setupOrdersTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	day1 := time.Date(2026, 3, 11, 12, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 3, 12, 12, 0, 0, 0, time.UTC)
	day9 := time.Date(2026, 3, 19, 12, 0, 0, 0, time.UTC)

	seedLine(t, repo, models.Order{
		OrderID: "N-2", ProductID: "P-1",
		CustomerType: enums.CustomerTypeOnlineRetail, CustomerName: "Acme",
		Status: enums.OrderStatusPendingShip, ShipDeadline: &day2,
	})
	seedLine(t, repo, models.Order{
		OrderID: "N-1", ProductID: "P-1",
		CustomerType: enums.CustomerTypeOnlineRetail, CustomerName: "Globex",
		Status: enums.OrderStatusPendingShip, ShipDeadline: &day1,
	})
	seedLine(t, repo, models.Order{
		OrderID: "N-FAR", ProductID: "P-1",
		CustomerType: enums.CustomerTypeOnlineRetail, CustomerName: "Acme",
		Status: enums.OrderStatusPendingShip, ShipDeadline: &day9,
	})
	seedLine(t, repo, models.Order{
		OrderID: "N-DONE", ProductID: "P-1",
		CustomerType: enums.CustomerTypeOnlineRetail, CustomerName: "Acme",
		Status: enums.OrderStatusCompleted, ShipDeadline: &day1,
	})
	// Paused lines sit outside the aging buckets, same as everywhere else.
	seedLine(t, repo, models.Order{
		OrderID: "N-HOLD", ProductID: "P-1",
		CustomerType: enums.CustomerTypeOnlineRetail, CustomerName: "Acme",
		Status: enums.OrderStatusPaused, ShipDeadline: &day1,
	})

	lines, err := repo.FindNearingDeadline(ctx, now, 3, nil)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, "N-1", lines[0].OrderID)
	assert.Equal(t, "N-2", lines[1].OrderID)
}
