package returns

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/quayretail/orderdesk-backend/internal/orders"
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

func setupReturnService(t *testing.T) (Service, *Repository, *orders.Repository, *gorm.DB) {
	t.Helper()

	dsn := "file:returns_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.Order{}, &models.ReturnRequest{}))

	repo := NewRepository(conn)
	orderRepo := orders.NewRepository(conn)
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	svc, err := NewService(repo, orderRepo, gormTxRunner{db: conn}, func() time.Time { return now })
	require.NoError(t, err)
	return svc, repo, orderRepo, conn
}

func seedOrderLine(t *testing.T, orderRepo *orders.Repository, status enums.OrderStatus, applied bool) *models.Order {
	t.Helper()
	order := &models.Order{
		OrderID:       "ONL-RET-" + uuid.NewString()[:8],
		ProductID:     "P-1",
		CustomerType:  enums.CustomerTypeOnlineRetail,
		CustomerName:  "Acme",
		Status:        status,
		OrderTime:     time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		Quantity:      2,
		ReturnApplied: applied,
	}
	require.NoError(t, orderRepo.Upsert(context.Background(), order))
	return order
}

func reviewer() auth.Identity {
	return auth.Identity{UserID: uuid.New(), Username: "op", DisplayName: "Operator", Role: enums.UserRoleOperator}
}

func TestFile_EligibleOrderOpensRequest(t *testing.T) {
	svc, _, orderRepo, _ := setupReturnService(t)
	ctx := context.Background()
	order := seedOrderLine(t, orderRepo, enums.OrderStatusCompleted, false)

	request, err := svc.File(ctx, reviewer(), FileReturnInput{
		OrderHash: order.Hash,
		Reason:    enums.ReturnReasonDamaged,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.ReturnStatusPending, request.Status)
	assert.Equal(t, order.OrderID, request.OrderID)
	assert.Equal(t, 2, request.Quantity)
	assert.NotEmpty(t, request.ReturnRequestID)

	stored, err := orderRepo.FindByHash(ctx, order.Hash)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusReturnApplying, stored.Status)
	assert.True(t, stored.ReturnApplied)
	require.NotNil(t, stored.ReturnRequestID)
	assert.Equal(t, request.ReturnRequestID, *stored.ReturnRequestID)
}

func TestFile_IneligibleStatus(t *testing.T) {
	svc, _, orderRepo, _ := setupReturnService(t)
	ctx := context.Background()

	for _, status := range []enums.OrderStatus{
		enums.OrderStatusPendingPayment,
		enums.OrderStatusPendingShip,
		enums.OrderStatusPacking,
	} {
		order := seedOrderLine(t, orderRepo, status, false)
		_, err := svc.File(ctx, reviewer(), FileReturnInput{OrderHash: order.Hash, Reason: enums.ReturnReasonQuality})
		require.Error(t, err, "status %s", status)
		assert.True(t, pkgerrors.Is(err, pkgerrors.CodeStateConflict))
	}
}

func TestFile_RejectedResubmissionBlocked(t *testing.T) {
	svc, _, orderRepo, _ := setupReturnService(t)
	ctx := context.Background()
	order := seedOrderLine(t, orderRepo, enums.OrderStatusReturnRejected, true)

	_, err := svc.File(ctx, reviewer(), FileReturnInput{OrderHash: order.Hash, Reason: enums.ReturnReasonQuality})
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeStateConflict))

	// After an operator reset the line is back to completed and may refile.
	require.NoError(t, svc.ResetReturnFlag(ctx, reviewer(), order.Hash))
	stored, err := orderRepo.FindByHash(ctx, order.Hash)
	require.NoError(t, err)
	assert.False(t, stored.ReturnApplied)
	assert.Equal(t, enums.OrderStatusCompleted, stored.Status)

	_, err = svc.File(ctx, reviewer(), FileReturnInput{OrderHash: order.Hash, Reason: enums.ReturnReasonQuality})
	require.NoError(t, err)
}

func TestFile_DuplicateRequestID(t *testing.T) {
	svc, _, orderRepo, _ := setupReturnService(t)
	ctx := context.Background()

	first := seedOrderLine(t, orderRepo, enums.OrderStatusCompleted, false)
	second := seedOrderLine(t, orderRepo, enums.OrderStatusCompleted, false)

	_, err := svc.File(ctx, reviewer(), FileReturnInput{
		OrderHash: first.Hash, Reason: enums.ReturnReasonOther, RequestID: "RET-DUP",
	})
	require.NoError(t, err)

	_, err = svc.File(ctx, reviewer(), FileReturnInput{
		OrderHash: second.Hash, Reason: enums.ReturnReasonOther, RequestID: "RET-DUP",
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeAlreadyExists))

	// The failed filing must not have flagged the order.
	stored, err := orderRepo.FindByHash(ctx, second.Hash)
	require.NoError(t, err)
	assert.False(t, stored.ReturnApplied)
	assert.Equal(t, enums.OrderStatusCompleted, stored.Status)
}

func TestFile_CustomerScoping(t *testing.T) {
	svc, _, orderRepo, _ := setupReturnService(t)
	ctx := context.Background()
	order := seedOrderLine(t, orderRepo, enums.OrderStatusCompleted, false)

	stranger := auth.Identity{UserID: uuid.New(), Username: "globex", DisplayName: "Globex", Role: enums.UserRoleCustomer}
	_, err := svc.File(ctx, stranger, FileReturnInput{OrderHash: order.Hash, Reason: enums.ReturnReasonQuality})
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))

	owner := auth.Identity{UserID: uuid.New(), Username: "acme", DisplayName: "Acme", Role: enums.UserRoleCustomer}
	_, err = svc.File(ctx, owner, FileReturnInput{OrderHash: order.Hash, Reason: enums.ReturnReasonQuality})
	require.NoError(t, err)
}

func TestReview_ApproveAndReject(t *testing.T) {
	svc, repo, orderRepo, _ := setupReturnService(t)
	ctx := context.Background()

	order := seedOrderLine(t, orderRepo, enums.OrderStatusCompleted, false)
	request, err := svc.File(ctx, reviewer(), FileReturnInput{OrderHash: order.Hash, Reason: enums.ReturnReasonDamaged})
	require.NoError(t, err)

	actor := reviewer()
	reviewed, err := svc.Review(ctx, actor, ReviewInput{
		RequestID: request.ReturnRequestID,
		Decision:  enums.ReturnStatusApproved,
		Comment:   "photos confirm damage",
	})
	require.NoError(t, err)
	assert.Equal(t, enums.ReturnStatusApproved, reviewed.Status)
	require.NotNil(t, reviewed.ReviewerID)
	assert.Equal(t, actor.UserID, *reviewed.ReviewerID)
	assert.Equal(t, "photos confirm damage", reviewed.ReviewComment)
	assert.NotNil(t, reviewed.ReviewedAt)

	stored, err := orderRepo.FindByHash(ctx, order.Hash)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusReturning, stored.Status)

	// A settled request cannot be re-reviewed with a different decision.
	_, err = svc.Review(ctx, actor, ReviewInput{RequestID: request.ReturnRequestID, Decision: enums.ReturnStatusRejected})
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeStateConflict))

	// But an approved return can be closed out as complete.
	closed, err := svc.Review(ctx, actor, ReviewInput{RequestID: request.ReturnRequestID, Decision: enums.ReturnStatusComplete})
	require.NoError(t, err)
	assert.Equal(t, enums.ReturnStatusComplete, closed.Status)

	// Rejection path marks the order line return_rejected.
	other := seedOrderLine(t, orderRepo, enums.OrderStatusPendingReceive, false)
	otherReq, err := svc.File(ctx, actor, FileReturnInput{OrderHash: other.Hash, Reason: enums.ReturnReasonNoNeed})
	require.NoError(t, err)
	_, err = svc.Review(ctx, actor, ReviewInput{RequestID: otherReq.ReturnRequestID, Decision: enums.ReturnStatusRejected})
	require.NoError(t, err)

	rejectedLine, err := orderRepo.FindByHash(ctx, other.Hash)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusReturnRejected, rejectedLine.Status)
	assert.True(t, rejectedLine.ReturnApplied)

	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[enums.ReturnStatusComplete])
	assert.Equal(t, int64(1), counts[enums.ReturnStatusRejected])
}

func TestReview_RoleGate(t *testing.T) {
	svc, _, _, _ := setupReturnService(t)

	viewer := auth.Identity{UserID: uuid.New(), Username: "v", Role: enums.UserRoleViewer}
	_, err := svc.Review(context.Background(), viewer, ReviewInput{RequestID: "RET-X", Decision: enums.ReturnStatusApproved})
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeForbidden))
}
