package domain

// RegionMetrics holds the financial outcome of an allocation for one region
type RegionMetrics struct {
	RegionID          string  `json:"region_id"`
	Name              string  `json:"name"`
	Customers         int     `json:"customers"`
	Allocation        float64 `json:"allocation"`
	CurrentPremium    float64 `json:"current_premium"`
	AvgCurrentPremium float64 `json:"avg_current_premium"`
	NewPremium        float64 `json:"new_premium"`
	AvgNewPremium     float64 `json:"avg_new_premium"`
	ExpectedLoss      float64 `json:"expected_loss"`
	Profit            float64 `json:"profit"`
	ProfitMargin      float64 `json:"profit_margin_pct"`
}

// PortfolioMetrics aggregates RegionMetrics over the whole portfolio
type PortfolioMetrics struct {
	Target              float64 `json:"target"`
	Allocated           float64 `json:"allocated"`
	Valid               bool    `json:"valid"`
	Customers           int     `json:"customers"`
	TotalCurrentPremium float64 `json:"total_current_premium"`
	TotalNewPremium     float64 `json:"total_new_premium"`
	TotalExpectedLoss   float64 `json:"total_expected_loss"`
	TotalProfit         float64 `json:"total_profit"`
	TotalProfitMargin   float64 `json:"total_profit_margin_pct"`
	PremiumIncrease     float64 `json:"premium_increase"`
	PremiumIncreasePct  float64 `json:"premium_increase_pct"`
	AvgCurrentPremium   float64 `json:"avg_current_premium"`
	AvgNewPremium       float64 `json:"avg_new_premium"`
}

// MetricsReport is the output of the metrics calculator
type MetricsReport struct {
	Regions   []RegionMetrics  `json:"regions"`
	Portfolio PortfolioMetrics `json:"portfolio"`
	Warnings  []Warning        `json:"warnings"`
}

// ChurnParams are the fixed churn model parameters
type ChurnParams struct {
	Sensitivity         float64 `json:"churn_sensitivity"`
	BurdenFocus         float64 `json:"burden_focus"`
	BaseChurn           float64 `json:"base_churn"`
	IncomeThreshold     float64 `json:"income_threshold"`
	ValueThreshold      float64 `json:"value_threshold"`
	ValueFallbackFactor float64 `json:"value_fallback_factor"`
	MaxProbability      float64 `json:"max_probability"`
	BurdenCap           float64 `json:"burden_cap"`
	IncomeWeight        float64 `json:"income_weight"`
	ValueWeight         float64 `json:"value_weight"`
}

// CustomerOutcome is the per-customer result of a churn run
type CustomerOutcome struct {
	Index            int     `json:"index"`
	RegionID         string  `json:"region_id"`
	AllocationShare  float64 `json:"allocation_share"`
	NewPremium       float64 `json:"new_premium"`
	IncomeRatio      float64 `json:"income_ratio"`
	ValueRatio       float64 `json:"value_ratio"`
	ChurnProbability float64 `json:"churn_probability"`
	Draw             float64 `json:"draw"`
	Stayed           bool    `json:"stayed"`
}

// RegionShift describes how a region's share of customers moves after churn
type RegionShift struct {
	RegionID   string  `json:"region_id"`
	Name       string  `json:"name"`
	Original   int     `json:"original_customers"`
	Staying    int     `json:"customers_staying"`
	Churned    int     `json:"customers_churned"`
	StayRate   float64 `json:"stay_rate_pct"`
	OldShare   float64 `json:"old_share_pct"`
	NewShare   float64 `json:"new_share_pct"`
	ShareDelta float64 `json:"share_delta_pp"`
}

// PortfolioOutcome is the portfolio-level result of a churn run
type PortfolioOutcome struct {
	Seed                  uint64  `json:"seed"`
	Customers             int     `json:"customers"`
	Staying               int     `json:"customers_staying"`
	StayRate              float64 `json:"stay_rate_pct"`
	ChurnRate             float64 `json:"churn_rate_pct"`
	PremiumCollected      float64 `json:"premium_collected"`
	ExpectedLossRemaining float64 `json:"expected_loss_remaining"`
	RealizedProfit        float64 `json:"realized_profit"`
}

// SimulationResult is the output of the churn simulator
type SimulationResult struct {
	Params    ChurnParams       `json:"params"`
	Customers []CustomerOutcome `json:"customers,omitempty"`
	Regions   []RegionShift     `json:"regions"`
	Portfolio PortfolioOutcome  `json:"portfolio"`
	Warnings  []Warning         `json:"warnings"`
}

// BatchStat summarizes one quantity across batch runs
type BatchStat struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// BatchResult holds the outcome of several independently seeded runs
type BatchResult struct {
	Params         ChurnParams        `json:"params"`
	Runs           []PortfolioOutcome `json:"runs"`
	StayRate       BatchStat          `json:"stay_rate_pct"`
	RealizedProfit BatchStat          `json:"realized_profit"`
}

// RegionOverview is the per-region reference summary shown before allocation
type RegionOverview struct {
	RegionID        string  `json:"region_id"`
	Name            string  `json:"name"`
	Customers       int     `json:"customers"`
	TotalInsured    float64 `json:"total_insured_value"`
	AvgInsured      float64 `json:"avg_insured_value"`
	AvgPremium      float64 `json:"avg_premium"`
	TotalPremium    float64 `json:"total_premium"`
	ExpectedLoss    float64 `json:"expected_loss"`
	MedianIncome    float64 `json:"median_income"`
	HasMedianIncome bool    `json:"has_median_income"`
	CensusCount     int64   `json:"census_count"`
}

// PortfolioSummary is the pre-allocation baseline of the portfolio
type PortfolioSummary struct {
	Customers          int              `json:"customers"`
	AvgInsuredValue    float64          `json:"avg_insured_value"`
	TotalInsuredValue  float64          `json:"total_insured_value"`
	AvgPremium         float64          `json:"avg_premium"`
	TotalPremium       float64          `json:"total_premium"`
	TotalExpectedLoss  float64          `json:"total_expected_loss"`
	AvgLossProbability float64          `json:"avg_loss_probability"`
	TotalCensus        int64            `json:"total_census"`
	CurrentProfit      float64          `json:"current_profit"`
	Regions            []RegionOverview `json:"regions"`
	Distribution       []RegionOverview `json:"distribution"`
}
