package enums

import "fmt"

// OrderStatus tracks the lifecycle of a single order line.
type OrderStatus string

const (
	OrderStatusNew            OrderStatus = "new"
	OrderStatusPendingPayment OrderStatus = "pending_payment"
	OrderStatusPendingShip    OrderStatus = "pending_ship"
	OrderStatusPacking        OrderStatus = "packing"
	OrderStatusPendingReceive OrderStatus = "pending_receive"
	OrderStatusCompleted      OrderStatus = "completed"
	OrderStatusPaused         OrderStatus = "paused"
	OrderStatusCancelled      OrderStatus = "cancelled"
	OrderStatusReturnApplying OrderStatus = "return_applying"
	OrderStatusReturning      OrderStatus = "returning"
	OrderStatusReturnRejected OrderStatus = "return_rejected"
	OrderStatusUnknown        OrderStatus = "unknown"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusNew,
	OrderStatusPendingPayment,
	OrderStatusPendingShip,
	OrderStatusPacking,
	OrderStatusPendingReceive,
	OrderStatusCompleted,
	OrderStatusPaused,
	OrderStatusCancelled,
	OrderStatusReturnApplying,
	OrderStatusReturning,
	OrderStatusReturnRejected,
	OrderStatusUnknown,
}

// String implements fmt.Stringer.
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderStatus.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsPending reports whether the status means "not yet fulfilled".
func (s OrderStatus) IsPending() bool {
	for _, candidate := range PendingOrderStatuses() {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}

// PendingOrderStatuses lists the statuses counted as unfulfilled by the
// dashboard and aging reports.
func PendingOrderStatuses() []OrderStatus {
	return []OrderStatus{
		OrderStatusNew,
		OrderStatusPendingPayment,
		OrderStatusPendingShip,
		OrderStatusPacking,
		OrderStatusPendingReceive,
	}
}

// ReturnInProgressStatuses lists the statuses that mean a return is
// already underway when a row arrives through bulk import.
func ReturnInProgressStatuses() []OrderStatus {
	return []OrderStatus{
		OrderStatusReturnApplying,
		OrderStatusReturning,
	}
}

// ReturnEligibleStatuses lists the only statuses a return request may be
// filed from.
func ReturnEligibleStatuses() []OrderStatus {
	return []OrderStatus{
		OrderStatusCompleted,
		OrderStatusPendingReceive,
	}
}
