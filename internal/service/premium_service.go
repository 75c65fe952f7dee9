package service

import (
	"context"
	"fmt"

	"github.com/andresuchdata/premium-allocation/internal/cache"
	"github.com/andresuchdata/premium-allocation/internal/churn"
	"github.com/andresuchdata/premium-allocation/internal/domain"
	"github.com/andresuchdata/premium-allocation/internal/metrics"
	"github.com/andresuchdata/premium-allocation/internal/session"
	"github.com/rs/zerolog/log"
)

// Defaults are the deployment-wide simulation settings
type Defaults struct {
	Target       float64
	Seed         uint64
	Params       domain.ChurnParams
	BatchWorkers int
}

// PolicyInfo describes one selectable allocation policy
type PolicyInfo struct {
	Code  domain.Policy `json:"code"`
	Label string        `json:"label"`
}

// Overview is the pre-allocation view of the portfolio
type Overview struct {
	Summary  domain.PortfolioSummary `json:"summary"`
	Target   float64                 `json:"target"`
	Policies []PolicyInfo            `json:"policies"`
	Params   domain.ChurnParams      `json:"churn_params"`
	Warnings []domain.Warning        `json:"warnings"`
}

type PremiumService struct {
	dataset      *domain.Dataset
	fingerprint  string
	dataWarnings []domain.Warning
	sessions     session.Store
	cache        cache.SimulationCache
	defaults     Defaults
}

func NewPremiumService(ds *domain.Dataset, dataWarnings []domain.Warning, store session.Store, cacheImpl cache.SimulationCache, defaults Defaults) *PremiumService {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopSimulationCache()
	}
	if store == nil {
		store = session.NewMemoryStore()
	}
	if dataWarnings == nil {
		dataWarnings = make([]domain.Warning, 0)
	}
	return &PremiumService{
		dataset:      ds,
		fingerprint:  ds.Fingerprint(),
		dataWarnings: dataWarnings,
		sessions:     store,
		cache:        cacheImpl,
		defaults:     defaults,
	}
}

// Summary returns the baseline portfolio and the data warnings raised at load.
func (s *PremiumService) Summary(ctx context.Context) *Overview {
	policies := make([]PolicyInfo, 0, len(domain.Policies()))
	for _, p := range domain.Policies() {
		policies = append(policies, PolicyInfo{Code: p, Label: p.Label()})
	}
	return &Overview{
		Summary:  metrics.Baseline(s.dataset),
		Target:   s.defaults.Target,
		Policies: policies,
		Params:   s.defaults.Params,
		Warnings: s.dataWarnings,
	}
}

// Regions returns the region reference table.
func (s *PremiumService) Regions(ctx context.Context) []domain.Region {
	return s.dataset.Regions
}

// CreateSession starts a session at the given target, or the default one.
func (s *PremiumService) CreateSession(ctx context.Context, target *float64) (session.Session, error) {
	t := s.defaults.Target
	if target != nil {
		t = *target
	}

	sess, err := session.New(t, s.dataset.RegionIDs())
	if err != nil {
		return session.Session{}, err
	}
	if err := s.sessions.Create(sess); err != nil {
		return session.Session{}, err
	}

	log.Info().Str("session_id", sess.ID).Float64("target", t).Msg("session created")
	return sess.Snapshot(), nil
}

func (s *PremiumService) GetSession(ctx context.Context, id string) (session.Session, error) {
	return s.sessions.Get(id)
}

func (s *PremiumService) DeleteSession(ctx context.Context, id string) error {
	return s.sessions.Delete(id)
}

// ApplyPolicy selects a policy by code or label and recomputes the allocation.
func (s *PremiumService) ApplyPolicy(ctx context.Context, id, policy string) (domain.AllocationView, error) {
	p, err := domain.ParsePolicy(policy)
	if err != nil {
		return domain.AllocationView{}, err
	}

	sess, err := s.sessions.Update(id, func(sess *session.Session) error {
		return sess.SelectPolicy(p, s.dataset)
	})
	if err != nil {
		return domain.AllocationView{}, err
	}

	s.logWarnings(id, "allocation", sess.Warnings)
	return sess.View(), nil
}

// SetTarget changes the session target.
func (s *PremiumService) SetTarget(ctx context.Context, id string, target float64) (domain.AllocationView, error) {
	sess, err := s.sessions.Update(id, func(sess *session.Session) error {
		return sess.SetTarget(target, s.dataset)
	})
	if err != nil {
		return domain.AllocationView{}, err
	}
	s.logWarnings(id, "allocation", sess.Warnings)
	return sess.View(), nil
}

// EditAllocation applies manual entries; the whole batch is rejected on any invalid entry.
func (s *PremiumService) EditAllocation(ctx context.Context, id string, edits []domain.AllocationEdit) (domain.AllocationView, error) {
	sess, err := s.sessions.Update(id, func(sess *session.Session) error {
		return sess.Edit(edits)
	})
	if err != nil {
		return domain.AllocationView{}, err
	}
	return sess.View(), nil
}

// Metrics computes the financial outcome of the session's allocation.
func (s *PremiumService) Metrics(ctx context.Context, id string) (domain.MetricsReport, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return domain.MetricsReport{}, err
	}
	report := metrics.Compute(s.dataset, sess.Allocation)
	s.logWarnings(id, "metrics", report.Warnings)
	return report, nil
}

// Simulate runs one churn simulation. It refuses allocations that miss the target.
func (s *PremiumService) Simulate(ctx context.Context, id string, seed *uint64, includeCustomers bool) (*domain.SimulationResult, error) {
	sess, err := s.validSession(id)
	if err != nil {
		return nil, err
	}

	sd := s.defaults.Seed
	if seed != nil {
		sd = *seed
	}
	key := s.simulationKey(sess.Allocation, []uint64{sd})

	result, ok, err := s.cache.GetRun(ctx, key)
	if err != nil {
		log.Warn().Err(err).Msg("simulation: cache get failed")
	}
	if !ok {
		res, err := churn.Simulate(s.dataset, sess.Allocation, s.defaults.Params, sd)
		if err != nil {
			return nil, err
		}
		result = &res
		if err := s.cache.SetRun(ctx, key, result); err != nil {
			log.Warn().Err(err).Msg("simulation: cache set failed")
		}
	}

	s.logWarnings(id, "simulation", result.Warnings)
	log.Info().
		Str("session_id", id).
		Uint64("seed", sd).
		Float64("stay_rate", result.Portfolio.StayRate).
		Float64("realized_profit", result.Portfolio.RealizedProfit).
		Bool("cached", ok).
		Msg("simulation finished")

	if !includeCustomers {
		trimmed := *result
		trimmed.Customers = nil
		return &trimmed, nil
	}
	return result, nil
}

// SimulateBatch runs one simulation per seed. When seeds is empty, runs
// consecutive seeds starting at the default seed are used.
func (s *PremiumService) SimulateBatch(ctx context.Context, id string, seeds []uint64, runs int) (*domain.BatchResult, error) {
	sess, err := s.validSession(id)
	if err != nil {
		return nil, err
	}
	if len(seeds) == 0 {
		seeds = churn.Seeds(s.defaults.Seed, runs)
	}

	key := s.simulationKey(sess.Allocation, seeds)
	if cached, ok, err := s.cache.GetBatch(ctx, key); err == nil && ok {
		return cached, nil
	} else if err != nil {
		log.Warn().Err(err).Msg("simulation: cache get batch failed")
	}

	result, err := churn.RunBatch(ctx, s.dataset, sess.Allocation, s.defaults.Params, seeds, s.defaults.BatchWorkers)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetBatch(ctx, key, &result); err != nil {
		log.Warn().Err(err).Msg("simulation: cache set batch failed")
	}

	log.Info().
		Str("session_id", id).
		Int("runs", len(seeds)).
		Float64("stay_rate_mean", result.StayRate.Mean).
		Float64("realized_profit_mean", result.RealizedProfit.Mean).
		Msg("simulation batch finished")

	return &result, nil
}

func (s *PremiumService) simulationKey(alloc domain.Allocation, seeds []uint64) cache.SimulationKey {
	return cache.SimulationKey{Dataset: s.fingerprint, Allocation: alloc, Params: s.defaults.Params, Seeds: seeds}
}

func (s *PremiumService) validSession(id string) (session.Session, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return session.Session{}, err
	}
	if !sess.Allocation.Valid() {
		return session.Session{}, fmt.Errorf("%w: allocated %.2f of %.2f (difference %.2f)",
			domain.ErrAllocationMismatch, sess.Allocation.Total(), sess.Allocation.Target, sess.Allocation.Difference())
	}
	return sess, nil
}

func (s *PremiumService) logWarnings(sessionID, stage string, warnings []domain.Warning) {
	for _, w := range warnings {
		log.Warn().
			Str("session_id", sessionID).
			Str("stage", stage).
			Str("kind", string(w.Kind)).
			Str("code", w.Code).
			Str("region_id", w.RegionID).
			Msg(w.Message)
	}
}
