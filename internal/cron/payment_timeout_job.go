package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/quayretail/orderdesk-backend/internal/orders"
	"github.com/quayretail/orderdesk-backend/internal/payments"
	"github.com/quayretail/orderdesk-backend/pkg/logger"
)

// staleOrderReader reads order ids stuck awaiting payment.
type staleOrderReader interface {
	FindPaymentPendingBefore(ctx context.Context, cutoff time.Time) ([]string, error)
}

// orderCanceller cancels an order and restores its stock.
type orderCanceller interface {
	CancelOrder(ctx context.Context, orderID string) (*orders.CancelReport, error)
}

// holdChecker reports in-memory payment holds. Orders with a live hold are
// left to its timer; the sweeper only picks up orders whose hold was lost to
// a restart.
type holdChecker interface {
	State(orderID string) (*payments.SessionState, error)
}

// PaymentTimeoutJobParams configure the stale payment sweeper.
type PaymentTimeoutJobParams struct {
	Logger       *logger.Logger
	Reader       staleOrderReader
	Canceller    orderCanceller
	Holds        holdChecker
	HoldDuration time.Duration
	Now          func() time.Time
}

// NewPaymentTimeoutJob builds the job that cancels orders left in
// pending_payment past the hold window.
func NewPaymentTimeoutJob(params PaymentTimeoutJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Reader == nil {
		return nil, fmt.Errorf("stale order reader required")
	}
	if params.Canceller == nil {
		return nil, fmt.Errorf("order canceller required")
	}
	if params.HoldDuration <= 0 {
		return nil, fmt.Errorf("hold duration required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &paymentTimeoutJob{
		logg:      params.Logger,
		reader:    params.Reader,
		canceller: params.Canceller,
		holds:     params.Holds,
		hold:      params.HoldDuration,
		now:       now,
	}, nil
}

type paymentTimeoutJob struct {
	logg      *logger.Logger
	reader    staleOrderReader
	canceller orderCanceller
	holds     holdChecker
	hold      time.Duration
	now       func() time.Time
}

func (j *paymentTimeoutJob) Name() string { return "payment-timeout-sweep" }

func (j *paymentTimeoutJob) Run(ctx context.Context) error {
	cutoff := j.now().Add(-j.hold)
	orderIDs, err := j.reader.FindPaymentPendingBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("find stale pending payments: %w", err)
	}
	if len(orderIDs) == 0 {
		return nil
	}

	var errs []error
	swept := 0
	for _, orderID := range orderIDs {
		if j.hasLiveHold(orderID) {
			continue
		}
		orderCtx := j.logg.WithOrderID(ctx, orderID)
		report, err := j.canceller.CancelOrder(ctx, orderID)
		if err != nil {
			errs = append(errs, fmt.Errorf("cancel order %s: %w", orderID, err))
			continue
		}
		if len(report.StockRestoreErrors) > 0 {
			j.logg.Warn(orderCtx, fmt.Sprintf(
				"payment timeout cancel left %d stock lines unrestored", len(report.StockRestoreErrors)))
		}
		j.logg.Info(orderCtx, "cancelled order after payment hold expired")
		swept++
	}
	if swept > 0 {
		j.logg.Info(ctx, fmt.Sprintf("payment timeout sweep cancelled %d orders", swept))
	}
	return multierr.Combine(errs...)
}

// hasLiveHold reports whether an unresolved in-memory session still covers
// the order.
func (j *paymentTimeoutJob) hasLiveHold(orderID string) bool {
	if j.holds == nil {
		return false
	}
	state, err := j.holds.State(orderID)
	if err != nil {
		return false
	}
	return !state.Resolved
}
