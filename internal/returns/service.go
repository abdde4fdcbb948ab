package returns

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/quayretail/orderdesk-backend/internal/orders"
	"github.com/quayretail/orderdesk-backend/pkg/auth"
	"github.com/quayretail/orderdesk-backend/pkg/db"
	"github.com/quayretail/orderdesk-backend/pkg/db/models"
	"github.com/quayretail/orderdesk-backend/pkg/enums"
	pkgerrors "github.com/quayretail/orderdesk-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// FileReturnInput opens a return for one order line.
type FileReturnInput struct {
	OrderHash   string
	Reason      enums.ReturnReason
	Description string
	// RequestID is optional; bulk loads may carry a pre-assigned id.
	RequestID string
}

// ReviewInput records an operator's decision on a pending request.
type ReviewInput struct {
	RequestID string
	Decision  enums.ReturnStatus
	Comment   string
}

// Service defines the return request operations.
type Service interface {
	File(ctx context.Context, actor auth.Identity, input FileReturnInput) (*models.ReturnRequest, error)
	Review(ctx context.Context, actor auth.Identity, input ReviewInput) (*models.ReturnRequest, error)
	ResetReturnFlag(ctx context.Context, actor auth.Identity, orderHash string) error
	Get(ctx context.Context, requestID string) (*models.ReturnRequest, error)
	List(ctx context.Context, status *enums.ReturnStatus) ([]models.ReturnRequest, error)
	ListByOrderID(ctx context.Context, orderID string) ([]models.ReturnRequest, error)
}

type service struct {
	repo   *Repository
	orders *orders.Repository
	tx     txRunner
	now    func() time.Time
}

// NewService constructs a return request service instance.
func NewService(repo *Repository, orderRepo *orders.Repository, tx txRunner, now func() time.Time) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("return repository required")
	}
	if orderRepo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if now == nil {
		now = time.Now
	}
	return &service{repo: repo, orders: orderRepo, tx: tx, now: now}, nil
}

// File opens a return for the order line. Only lines in a return-eligible
// status may file, and a line whose previous return was rejected cannot
// silently resubmit; an operator has to clear the flag first.
func (s *service) File(ctx context.Context, actor auth.Identity, input FileReturnInput) (*models.ReturnRequest, error) {
	if strings.TrimSpace(input.OrderHash) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order hash is required")
	}
	reason := input.Reason
	if !reason.IsValid() {
		reason = enums.ParseReturnReason(string(input.Reason))
	}

	order, err := s.orders.FindByHash(ctx, input.OrderHash)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load order")
	}
	if actor.Role == enums.UserRoleCustomer && order.CustomerName != actor.DisplayName {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if order.ReturnApplied && order.Status == enums.OrderStatusReturnRejected {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			"a previous return was rejected; an operator must reset the flag before refiling")
	}
	if !isReturnEligible(order.Status) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("returns cannot be filed from status %s", order.Status))
	}

	request := &models.ReturnRequest{
		ReturnRequestID: input.RequestID,
		OrderID:         order.OrderID,
		ProductID:       order.ProductID,
		Quantity:        order.Quantity,
		Reason:          reason,
		Description:     input.Description,
		Status:          enums.ReturnStatusPending,
		CustomerName:    order.CustomerName,
	}
	if !request.Validate() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "return request is missing required fields")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, request); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeAlreadyExists,
					fmt.Sprintf("return request %s already exists", request.ReturnRequestID))
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: create return request")
		}

		order.Status = enums.OrderStatusReturnApplying
		order.ReturnApplied = true
		order.ReturnRequestID = &request.ReturnRequestID
		if err := s.orders.WithTx(tx).Update(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: flag order for return")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return request, nil
}

// Review settles a pending request. Approval moves the order line into
// returning; rejection marks it return_rejected, which blocks refiling until
// the flag is reset. Completing an approved return leaves the line as-is.
func (s *service) Review(ctx context.Context, actor auth.Identity, input ReviewInput) (*models.ReturnRequest, error) {
	if !actor.Role.CanUpdate() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "role cannot review returns")
	}
	if input.Decision != enums.ReturnStatusApproved &&
		input.Decision != enums.ReturnStatusRejected &&
		input.Decision != enums.ReturnStatusComplete {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("invalid review decision %q", input.Decision))
	}

	request, err := s.repo.Get(ctx, input.RequestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "return request not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load return request")
	}
	if request.Status != enums.ReturnStatusPending &&
		!(request.Status == enums.ReturnStatusApproved && input.Decision == enums.ReturnStatusComplete) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("return request already reviewed as %s", request.Status))
	}

	reviewedAt := s.now()
	request.Status = input.Decision
	request.ReviewerID = &actor.UserID
	request.ReviewComment = input.Comment
	request.ReviewedAt = &reviewedAt

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).ApplyReview(ctx, request); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: apply review")
		}

		orderStatus := enums.OrderStatusUnknown
		switch input.Decision {
		case enums.ReturnStatusApproved:
			orderStatus = enums.OrderStatusReturning
		case enums.ReturnStatusRejected:
			orderStatus = enums.OrderStatusReturnRejected
		default:
			return nil
		}
		return s.updateOrderStatus(ctx, tx, request, orderStatus)
	})
	if err != nil {
		return nil, err
	}
	return request, nil
}

func (s *service) updateOrderStatus(ctx context.Context, tx *gorm.DB, request *models.ReturnRequest, status enums.OrderStatus) error {
	orderRepo := s.orders.WithTx(tx)
	lines, err := orderRepo.FindByOrderID(ctx, request.OrderID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load order lines")
	}
	for i := range lines {
		if lines[i].ProductID != request.ProductID {
			continue
		}
		if lines[i].ReturnRequestID == nil || *lines[i].ReturnRequestID != request.ReturnRequestID {
			continue
		}
		lines[i].Status = status
		if err := orderRepo.Update(ctx, &lines[i]); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update order line")
		}
	}
	return nil
}

// ResetReturnFlag clears return_applied after a rejection so the customer can
// file again. Nothing triggers this automatically.
func (s *service) ResetReturnFlag(ctx context.Context, actor auth.Identity, orderHash string) error {
	if !actor.Role.CanUpdate() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "role cannot reset return flags")
	}

	order, err := s.orders.FindByHash(ctx, orderHash)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load order")
	}
	if !order.ReturnApplied {
		return nil
	}

	order.ReturnApplied = false
	order.ReturnRequestID = nil
	if order.Status == enums.OrderStatusReturnRejected {
		order.Status = enums.OrderStatusCompleted
	}
	if err := s.orders.Update(ctx, order); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: reset return flag")
	}
	return nil
}

func (s *service) Get(ctx context.Context, requestID string) (*models.ReturnRequest, error) {
	request, err := s.repo.Get(ctx, requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "return request not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load return request")
	}
	return request, nil
}

func (s *service) List(ctx context.Context, status *enums.ReturnStatus) ([]models.ReturnRequest, error) {
	requests, err := s.repo.List(ctx, status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list return requests")
	}
	return requests, nil
}

func (s *service) ListByOrderID(ctx context.Context, orderID string) ([]models.ReturnRequest, error) {
	requests, err := s.repo.ListByOrderID(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list return requests")
	}
	return requests, nil
}

func isReturnEligible(status enums.OrderStatus) bool {
	for _, candidate := range enums.ReturnEligibleStatuses() {
		if candidate == status {
			return true
		}
	}
	return false
}
