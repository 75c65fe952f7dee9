package session

import (
	"fmt"
	"time"

	"github.com/andresuchdata/premium-allocation/internal/allocation"
	"github.com/andresuchdata/premium-allocation/internal/domain"
	"github.com/google/uuid"
)

// Session is the explicit per-user state: target, selected policy and the
// current allocation. It starts in manual mode with every region at zero.
type Session struct {
	ID         string            `json:"id"`
	Target     float64           `json:"target"`
	Policy     domain.Policy     `json:"policy"`
	Allocation domain.Allocation `json:"allocation"`
	Warnings   []domain.Warning  `json:"warnings"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// New creates a session for the given regions.
func New(target float64, regionIDs []string) (*Session, error) {
	if err := allocation.ValidateTarget(target); err != nil {
		return nil, err
	}

	alloc := domain.NewAllocation(target, regionIDs)
	now := time.Now().UTC()
	return &Session{
		ID:         uuid.NewString(),
		Target:     target,
		Policy:     domain.PolicyManual,
		Allocation: alloc,
		Warnings:   allocation.Check(alloc),
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// SelectPolicy overwrites the allocation with the policy's result. Manual
// keeps the current amounts.
func (s *Session) SelectPolicy(policy domain.Policy, ds *domain.Dataset) error {
	res, err := allocation.Allocate(policy, s.Target, ds, allocation.WithPrevious(s.Allocation))
	if err != nil {
		return err
	}
	s.Policy = policy
	s.Allocation = res.Allocation
	s.Warnings = withMismatch(res.Warnings, res.Allocation)
	s.touch()
	return nil
}

// Edit applies manual entries atomically and switches the session to manual.
func (s *Session) Edit(edits []domain.AllocationEdit) error {
	if len(edits) == 0 {
		return fmt.Errorf("%w: no allocation edits given", domain.ErrInvalidInput)
	}
	next, err := allocation.ApplyEdits(s.Allocation, edits)
	if err != nil {
		return err
	}
	s.Policy = domain.PolicyManual
	s.Allocation = next
	s.Warnings = allocation.Check(next)
	s.touch()
	return nil
}

// SetTarget changes the target. A computed policy is re-run; manual amounts
// are kept and re-checked against the new target.
func (s *Session) SetTarget(target float64, ds *domain.Dataset) error {
	if err := allocation.ValidateTarget(target); err != nil {
		return err
	}
	prev := s.Target
	s.Target = target
	if s.Policy != domain.PolicyManual {
		if err := s.SelectPolicy(s.Policy, ds); err != nil {
			s.Target = prev
			return err
		}
		return nil
	}
	s.Allocation.Target = target
	s.Warnings = allocation.Check(s.Allocation)
	s.touch()
	return nil
}

// View returns the allocation as shown to callers.
func (s *Session) View() domain.AllocationView {
	return domain.NewAllocationView(s.Policy, s.Allocation, s.Warnings)
}

// Snapshot returns a deep copy.
func (s *Session) Snapshot() Session {
	cp := *s
	cp.Allocation = s.Allocation.Clone()
	cp.Warnings = append(make([]domain.Warning, 0, len(s.Warnings)), s.Warnings...)
	return cp
}

// withMismatch adds the mismatch warning unless the policy already reported it.
func withMismatch(warnings []domain.Warning, a domain.Allocation) []domain.Warning {
	for _, w := range warnings {
		if w.Kind == domain.WarningAllocationMismatch {
			return warnings
		}
	}
	return append(warnings, allocation.Check(a)...)
}

func (s *Session) touch() {
	s.UpdatedAt = time.Now().UTC()
}
