package enums

import "fmt"

// InventoryStatus tracks where a product sits in the stocking pipeline.
type InventoryStatus string

const (
	InventoryStatusPurchasing   InventoryStatus = "purchasing"
	InventoryStatusTransporting InventoryStatus = "transporting"
	InventoryStatusInspecting   InventoryStatus = "inspecting"
	InventoryStatusNormal       InventoryStatus = "normal"
	InventoryStatusOutOfStock   InventoryStatus = "out_of_stock"
	InventoryStatusOffShelf     InventoryStatus = "off_shelf"
)

var validInventoryStatuses = []InventoryStatus{
	InventoryStatusPurchasing,
	InventoryStatusTransporting,
	InventoryStatusInspecting,
	InventoryStatusNormal,
	InventoryStatusOutOfStock,
	InventoryStatusOffShelf,
}

// String implements fmt.Stringer.
func (s InventoryStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known InventoryStatus.
func (s InventoryStatus) IsValid() bool {
	for _, candidate := range validInventoryStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseInventoryStatus converts raw input into an InventoryStatus.
func ParseInventoryStatus(value string) (InventoryStatus, error) {
	for _, candidate := range validInventoryStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid inventory status %q", value)
}
