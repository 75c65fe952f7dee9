package domain

import (
	"fmt"
	"strings"
)

// Policy selects how the target is distributed across regions
type Policy string

const (
	PolicyManual   Policy = "manual"
	PolicyEqual    Policy = "equal"
	PolicyExposure Policy = "exposure"
	PolicyRisk     Policy = "risk"
)

var policyLabels = map[Policy]string{
	PolicyManual:   "Manual Entry",
	PolicyEqual:    "Equal Distribution",
	PolicyExposure: "Proportional to Exposure",
	PolicyRisk:     "Proportional to Risk",
}

var policyAliases = map[string]Policy{
	"manual":                   PolicyManual,
	"manual entry":             PolicyManual,
	"equal":                    PolicyEqual,
	"equal distribution":       PolicyEqual,
	"exposure":                 PolicyExposure,
	"proportional to exposure": PolicyExposure,
	"risk":                     PolicyRisk,
	"proportional to risk":     PolicyRisk,
}

// Label returns a human-readable label for a policy.
func (p Policy) Label() string {
	if label, ok := policyLabels[p]; ok {
		return label
	}

	return string(p)
}

// Valid reports whether p is one of the supported policies.
func (p Policy) Valid() bool {
	_, ok := policyLabels[p]
	return ok
}

// ParsePolicy returns the policy for a given code or label (case-insensitive).
func ParsePolicy(value string) (Policy, error) {
	key := strings.ToLower(strings.TrimSpace(value))
	key = strings.ReplaceAll(key, "_", " ")
	if p, ok := policyAliases[key]; ok {
		return p, nil
	}

	return "", fmt.Errorf("%w: unknown allocation policy %q", ErrInvalidInput, value)
}

// Policies lists the supported policies in display order.
func Policies() []Policy {
	return []Policy{PolicyManual, PolicyExposure, PolicyRisk, PolicyEqual}
}
