package payments

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/quayretail/orderdesk-backend/internal/orders"
	"github.com/quayretail/orderdesk-backend/pkg/config"
	"github.com/quayretail/orderdesk-backend/pkg/db/models"
	pkgerrors "github.com/quayretail/orderdesk-backend/pkg/errors"
	"github.com/quayretail/orderdesk-backend/pkg/logger"
	"github.com/quayretail/orderdesk-backend/pkg/metrics"
)

// OrderResolver is the slice of the order service a payment hold can trigger.
type OrderResolver interface {
	CompletePayment(ctx context.Context, orderID string) ([]models.Order, error)
	CancelOrder(ctx context.Context, orderID string) (*orders.CancelReport, error)
}

// SessionState is the externally visible view of one payment hold.
type SessionState struct {
	OrderID   string        `json:"order_id"`
	Deadline  time.Time     `json:"deadline"`
	Remaining time.Duration `json:"remaining"`
	Resolved  bool          `json:"resolved"`
	Outcome   Outcome       `json:"outcome,omitempty"`
}

// Manager owns the in-memory payment holds: one per order, each with a fixed
// deadline. When a deadline passes unresolved the order is auto-cancelled.
type Manager struct {
	orders       OrderResolver
	metrics      *metrics.PaymentSessionMetrics
	log          *logger.Logger
	hold         time.Duration
	tickInterval time.Duration
	now          func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
	closed   bool
}

// NewManager constructs the payment hold manager.
func NewManager(resolver OrderResolver, cfg config.PaymentConfig, m *metrics.PaymentSessionMetrics, log *logger.Logger) (*Manager, error) {
	if resolver == nil {
		return nil, fmt.Errorf("order resolver required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cfg.HoldDuration <= 0 {
		return nil, fmt.Errorf("hold duration must be positive")
	}
	if cfg.TickInterval <= 0 {
		return nil, fmt.Errorf("tick interval must be positive")
	}
	return &Manager{
		orders:       resolver,
		metrics:      m,
		log:          log,
		hold:         cfg.HoldDuration,
		tickInterval: cfg.TickInterval,
		now:          time.Now,
		sessions:     make(map[string]*session),
	}, nil
}

// Start opens a payment hold for the order. An order has at most one live
// hold; starting a second one while the first is still counting is an error.
func (m *Manager) Start(ctx context.Context, orderID string) (*SessionState, error) {
	if orderID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "payment manager is shut down")
	}
	if existing, ok := m.sessions[orderID]; ok {
		if _, done := existing.state(); !done {
			state := m.stateOf(existing)
			m.mu.Unlock()
			return state, pkgerrors.New(pkgerrors.CodeStateConflict, "payment hold already active for order")
		}
		delete(m.sessions, orderID)
	}

	now := m.now()
	s := &session{
		orderID:  orderID,
		deadline: now.Add(m.hold),
		stop:     make(chan struct{}),
	}
	s.timer = time.AfterFunc(m.hold, func() { m.expireSession(s) })
	m.sessions[orderID] = s
	m.mu.Unlock()

	go s.tickLoop(m.tickInterval, m.now)
	m.metrics.IncActive()
	m.log.Info(m.log.WithOrderID(ctx, orderID), "payment hold started")
	return m.stateOf(s), nil
}

// Complete settles the hold as paid and moves the order to pending_ship.
// Completing an order whose hold already resolved as paid is a no-op success;
// completing a cancelled hold is a conflict.
func (m *Manager) Complete(ctx context.Context, orderID string) ([]models.Order, error) {
	s := m.get(orderID)
	if s == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no payment hold for order")
	}

	if !s.resolve(OutcomePaid) {
		outcome, _ := s.state()
		if outcome == OutcomePaid {
			return m.orders.CompletePayment(ctx, orderID)
		}
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("payment hold already resolved as %s", outcome))
	}

	m.metrics.DecActive()
	m.metrics.IncResolved(string(OutcomePaid))
	m.log.Info(m.log.WithOrderID(ctx, orderID), "payment completed")
	return m.orders.CompletePayment(ctx, orderID)
}

// CancelOrder settles the hold as user-cancelled and cancels the order,
// restoring stock.
func (m *Manager) CancelOrder(ctx context.Context, orderID string) (*orders.CancelReport, error) {
	s := m.get(orderID)
	if s == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no payment hold for order")
	}

	if !s.resolve(OutcomeCancelledByUser) {
		outcome, _ := s.state()
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("payment hold already resolved as %s", outcome))
	}

	m.metrics.DecActive()
	m.metrics.IncResolved(string(OutcomeCancelledByUser))
	m.log.Info(m.log.WithOrderID(ctx, orderID), "payment hold cancelled by user")
	return m.orders.CancelOrder(ctx, orderID)
}

// Dismiss is the soft cancel: the buyer stepped away from the payment screen.
// The order stays pending and the deadline keeps counting; nothing changes
// server-side except that the caller gets the remaining time back.
func (m *Manager) Dismiss(ctx context.Context, orderID string) (*SessionState, error) {
	s := m.get(orderID)
	if s == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no payment hold for order")
	}
	m.log.Info(m.log.WithOrderID(ctx, orderID), "payment screen dismissed, hold still counting")
	return m.stateOf(s), nil
}

// State reports the hold for one order.
func (m *Manager) State(orderID string) (*SessionState, error) {
	s := m.get(orderID)
	if s == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no payment hold for order")
	}
	return m.stateOf(s), nil
}

// Watch streams the remaining time roughly once per tick interval until the
// hold resolves, at which point the channel closes. Returns a closed channel
// for an already-terminal hold.
func (m *Manager) Watch(orderID string) (<-chan time.Duration, error) {
	s := m.get(orderID)
	if s == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no payment hold for order")
	}
	w := s.addWatcher()
	if w == nil {
		done := make(chan time.Duration)
		close(done)
		return done, nil
	}
	return w, nil
}

// Close stops every timer without resolving anything. Pending holds survive a
// restart only through the database sweeper, which re-cancels stale
// pending_payment orders.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	for _, s := range m.sessions {
		s.mu.Lock()
		if s.timer != nil {
			s.timer.Stop()
		}
		if !s.resolved {
			close(s.stop)
			s.resolved = true
			for _, w := range s.watchers {
				close(w)
			}
			s.watchers = nil
			m.metrics.DecActive()
		}
		s.mu.Unlock()
	}
}

// expireSession is the timeout path. It races the manual paths through
// resolve, so an order that was paid or cancelled moments before the deadline
// is left alone. The timer callback closes over its own session: a fired
// timer that lost the race to Stop must never touch a successor hold opened
// for the same order id, so the session must still be the registered one.
func (m *Manager) expireSession(s *session) {
	m.mu.Lock()
	current := m.sessions[s.orderID] == s
	m.mu.Unlock()
	if !current {
		return
	}
	if !s.resolve(OutcomeCancelledByTimeout) {
		return
	}
	orderID := s.orderID

	m.metrics.DecActive()
	m.metrics.IncResolved(string(OutcomeCancelledByTimeout))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	ctx = m.log.WithOrderID(ctx, orderID)
	report, err := m.orders.CancelOrder(ctx, orderID)
	if err != nil {
		m.log.Error(ctx, "auto-cancel after payment timeout failed", err)
		return
	}
	if len(report.StockRestoreErrors) > 0 {
		m.log.Warn(ctx, "payment timeout cancel left stock discrepancies")
	}
	m.log.Info(ctx, "order auto-cancelled after payment timeout")
}

func (m *Manager) get(orderID string) *session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[orderID]
}

func (m *Manager) stateOf(s *session) *SessionState {
	outcome, resolved := s.state()
	return &SessionState{
		OrderID:   s.orderID,
		Deadline:  s.deadline,
		Remaining: s.remaining(m.now()),
		Resolved:  resolved,
		Outcome:   outcome,
	}
}
