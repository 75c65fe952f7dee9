package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput covers negative targets, negative manual amounts,
	// unknown regions and unknown policies.
	ErrInvalidInput = errors.New("invalid input")
	// ErrSessionNotFound is returned for unknown session ids.
	ErrSessionNotFound = errors.New("session not found")
	// ErrAllocationMismatch is returned when an operation requires an
	// allocation that sums to its target.
	ErrAllocationMismatch = errors.New("allocation does not match target")
)

// WarningKind groups non-fatal signals
type WarningKind string

const (
	WarningDataIntegrity      WarningKind = "data_integrity"
	WarningAllocationMismatch WarningKind = "allocation_mismatch"
)

// Warning codes
const (
	CodeZeroTotalWeight     = "zero_total_weight"
	CodeRegionNoCustomers   = "region_without_customers"
	CodeCustomerNoRegion    = "customer_region_unknown"
	CodeRegionNoIncome      = "region_without_income"
	CodeRowSkipped          = "row_skipped"
	CodeAllocationMismatch  = "allocation_mismatch"
	CodeIncomeFallbackUsed  = "income_fallback_used"
	CodeAllocationNoRegions = "no_regions"
)

// Warning is a data-quality or consistency signal for the caller to display
type Warning struct {
	Kind     WarningKind `json:"kind"`
	Code     string      `json:"code"`
	RegionID string      `json:"region_id,omitempty"`
	Message  string      `json:"message"`
}

func (w Warning) String() string {
	if w.RegionID != "" {
		return fmt.Sprintf("%s[%s] %s: %s", w.Kind, w.Code, w.RegionID, w.Message)
	}
	return fmt.Sprintf("%s[%s] %s", w.Kind, w.Code, w.Message)
}

// DataWarning builds a data integrity warning.
func DataWarning(code, regionID, format string, args ...interface{}) Warning {
	return Warning{
		Kind:     WarningDataIntegrity,
		Code:     code,
		RegionID: regionID,
		Message:  fmt.Sprintf(format, args...),
	}
}

// MismatchWarning builds the warning raised when an allocation misses its target.
func MismatchWarning(a Allocation) Warning {
	return Warning{
		Kind:    WarningAllocationMismatch,
		Code:    CodeAllocationMismatch,
		Message: fmt.Sprintf("allocation total %.2f does not match target %.2f (difference %.2f)", a.Total(), a.Target, a.Difference()),
	}
}
