package payments

import (
	"sync"
	"time"
)

// Outcome is the terminal state of a payment hold.
type Outcome string

const (
	OutcomePaid               Outcome = "paid"
	OutcomeCancelledByUser    Outcome = "cancelled_by_user"
	OutcomeCancelledByTimeout Outcome = "cancelled_by_timeout"
)

// session is one in-flight payment hold. The deadline is fixed at creation;
// closing the payment dialog does not touch it, only a resolution does.
type session struct {
	orderID  string
	deadline time.Time

	mu       sync.Mutex
	resolved bool
	outcome  Outcome

	timer    *time.Timer
	watchers []chan time.Duration
	stop     chan struct{}
}

// resolve marks the session terminal exactly once. The second and later calls
// report false, which is how the timeout path and the manual paths exclude
// each other.
func (s *session) resolve(outcome Outcome) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.resolved {
		return false
	}
	s.resolved = true
	s.outcome = outcome
	if s.timer != nil {
		s.timer.Stop()
	}
	close(s.stop)
	for _, w := range s.watchers {
		close(w)
	}
	s.watchers = nil
	return true
}

func (s *session) state() (Outcome, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outcome, s.resolved
}

func (s *session) remaining(now time.Time) time.Duration {
	left := s.deadline.Sub(now)
	if left < 0 {
		return 0
	}
	return left
}

// addWatcher registers a countdown channel. Returns nil when the session is
// already terminal.
func (s *session) addWatcher() chan time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.resolved {
		return nil
	}
	w := make(chan time.Duration, 1)
	s.watchers = append(s.watchers, w)
	return w
}

// tickLoop pushes the remaining time to every watcher until resolution. Slow
// watchers miss ticks instead of blocking the loop.
func (s *session) tickLoop(interval time.Duration, now func() time.Time) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			left := s.remaining(now())
			s.mu.Lock()
			for _, w := range s.watchers {
				select {
				case w <- left:
				default:
				}
			}
			s.mu.Unlock()
		}
	}
}
