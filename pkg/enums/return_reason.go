package enums

// ReturnReason is the closed set of reasons a customer may give when
// filing a return request.
type ReturnReason string

const (
	ReturnReasonQuality        ReturnReason = "quality"
	ReturnReasonDamaged        ReturnReason = "damaged"
	ReturnReasonWrongItem      ReturnReason = "wrong_item"
	ReturnReasonNotAsDescribed ReturnReason = "not_as_described"
	ReturnReasonNoNeed         ReturnReason = "no_need"
	ReturnReasonOther          ReturnReason = "other"
)

var validReturnReasons = []ReturnReason{
	ReturnReasonQuality,
	ReturnReasonDamaged,
	ReturnReasonWrongItem,
	ReturnReasonNotAsDescribed,
	ReturnReasonNoNeed,
	ReturnReasonOther,
}

// String implements fmt.Stringer.
func (r ReturnReason) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ReturnReason.
func (r ReturnReason) IsValid() bool {
	for _, candidate := range validReturnReasons {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseReturnReason converts raw input into a ReturnReason. Unrecognized
// free text maps to ReturnReasonOther rather than failing.
func ParseReturnReason(value string) ReturnReason {
	for _, candidate := range validReturnReasons {
		if string(candidate) == value {
			return candidate
		}
	}
	return ReturnReasonOther
}
