package cron

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quayretail/orderdesk-backend/internal/orders"
	"github.com/quayretail/orderdesk-backend/internal/payments"
	pkgerrors "github.com/quayretail/orderdesk-backend/pkg/errors"
	"github.com/quayretail/orderdesk-backend/pkg/logger"
)

type fakeStaleReader struct {
	orderIDs []string
	cutoff   time.Time
}

func (f *fakeStaleReader) FindPaymentPendingBefore(_ context.Context, cutoff time.Time) ([]string, error) {
	f.cutoff = cutoff
	return f.orderIDs, nil
}

type fakeCanceller struct {
	cancelled []string
	failOn    string
}

func (f *fakeCanceller) CancelOrder(_ context.Context, orderID string) (*orders.CancelReport, error) {
	if orderID == f.failOn {
		return nil, errors.New("db unavailable")
	}
	f.cancelled = append(f.cancelled, orderID)
	return &orders.CancelReport{OrderID: orderID, CancelledLines: 1}, nil
}

type fakeHolds struct {
	live map[string]bool
}

func (f *fakeHolds) State(orderID string) (*payments.SessionState, error) {
	live, ok := f.live[orderID]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no payment hold for order")
	}
	return &payments.SessionState{OrderID: orderID, Resolved: !live}, nil
}

func newTimeoutJob(t *testing.T, reader *fakeStaleReader, canceller *fakeCanceller, holds holdChecker, now time.Time) Job {
	t.Helper()
	job, err := NewPaymentTimeoutJob(PaymentTimeoutJobParams{
		Logger:       logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard}),
		Reader:       reader,
		Canceller:    canceller,
		Holds:        holds,
		HoldDuration: 30 * time.Minute,
		Now:          func() time.Time { return now },
	})
	require.NoError(t, err)
	return job
}

func TestPaymentTimeoutJobCancelsStaleOrders(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	reader := &fakeStaleReader{orderIDs: []string{"ORD-1", "ORD-2"}}
	canceller := &fakeCanceller{}
	job := newTimeoutJob(t, reader, canceller, nil, now)

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, []string{"ORD-1", "ORD-2"}, canceller.cancelled)
	assert.Equal(t, now.Add(-30*time.Minute), reader.cutoff)
}

func TestPaymentTimeoutJobSkipsLiveHolds(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	reader := &fakeStaleReader{orderIDs: []string{"ORD-LIVE", "ORD-LOST", "ORD-DONE"}}
	canceller := &fakeCanceller{}
	holds := &fakeHolds{live: map[string]bool{
		"ORD-LIVE": true,  // timer still counting, leave it alone
		"ORD-DONE": false, // resolved session, safe to sweep
	}}
	job := newTimeoutJob(t, reader, canceller, holds, now)

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, []string{"ORD-LOST", "ORD-DONE"}, canceller.cancelled)
}

func TestPaymentTimeoutJobKeepsGoingAfterCancelFailure(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	reader := &fakeStaleReader{orderIDs: []string{"ORD-1", "ORD-BAD", "ORD-3"}}
	canceller := &fakeCanceller{failOn: "ORD-BAD"}
	job := newTimeoutJob(t, reader, canceller, nil, now)

	err := job.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ORD-BAD")
	assert.Equal(t, []string{"ORD-1", "ORD-3"}, canceller.cancelled)
}
