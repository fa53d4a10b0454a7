/*

This is a custom type set for DeFindex vaults which contains all the state
needed for parsing balance sheets and deriving risk features.

*/

package types

// RiskLevel names one of the three fixed risk tiers.
type RiskLevel string

const (
	RiskConservative RiskLevel = "Conservative"
	RiskBalanced     RiskLevel = "Balanced"
	RiskAggressive   RiskLevel = "Aggressive"
)

// IsValid reports whether the risk level is one of the three known tiers.
func (r RiskLevel) IsValid() bool {
	return r == RiskConservative || r == RiskBalanced || r == RiskAggressive
}

// RawVaultRecord is one vault as delivered by the external data source:
// the balance sheet and total supply arrive as serialized blobs and are
// only decoded by the parser.
type RawVaultRecord struct {
	Vault             string `json:"vault"`                   // Vault contract address (C...)
	TotalManagedFunds string `json:"totalManagedFundsBefore"` // Serialized balance sheet, stroop amounts
	TotalSupply       string `json:"totalSupply"`             // Serialized share supply, stroops
}

// StrategyAllocation is a sub-portion of a vault's invested funds assigned
// to one yield strategy.
type StrategyAllocation struct {
	Amount          float64 `json:"amount"` // Human units, already descaled
	Paused          bool    `json:"paused"`
	StrategyAddress string  `json:"strategy_address"`
}

// ParsedVaultData is the decoded balance sheet for one vault, with every
// amount converted from stroops to human units.
//
// Degraded marks a record whose source blob failed to decode: the vault
// address is preserved and every numeric field is zero. Degraded records
// flow through the same list shape as healthy ones so that downstream
// stages always see one entry per input vault.
type ParsedVaultData struct {
	Vault               string               `json:"vault"`
	Asset               string               `json:"asset"`
	TotalAmount         float64              `json:"total_amount"`
	IdleAmount          float64              `json:"idle_amount"`
	InvestedAmount      float64              `json:"invested_amount"`
	TotalSupply         float64              `json:"total_supply"`
	StrategyAllocations []StrategyAllocation `json:"strategy_allocations"`
	Degraded            bool                 `json:"degraded,omitempty"`
}

// VaultFeatures holds the normalized risk features for one vault. TVL and
// SharesOutstanding are min-max normalized across the batch the vault was
// extracted with, so values are only comparable within that batch.
type VaultFeatures struct {
	Vault             string  `json:"vault"`
	Asset             string  `json:"asset"`
	TVL               float64 `json:"tvl"`                // 0..1, batch min-max
	IdleRatio         float64 `json:"idle_ratio"`         // idle/total, 0 if total is 0
	Concentration     float64 `json:"concentration"`      // Herfindahl index over allocation shares
	AssetStability    float64 `json:"asset_stability"`    // 1 if asset is in the stable allow-list
	GrowthRate        float64 `json:"growth_rate"`        // Always 0, no historical series available
	SharesOutstanding float64 `json:"shares_outstanding"` // 0..1, batch min-max
}

// VaultCluster is one of the three fixed risk tiers with the vault
// addresses whose risk score landed in its band.
type VaultCluster struct {
	RiskLevel   RiskLevel `json:"risk_level"`
	Description string    `json:"description"`
	ExpectedAPY float64   `json:"expected_apy"` // Whole-number percent, static per tier
	Vaults      []string  `json:"vaults"`
}

// UserRiskProfile describes the requesting user. Immutable per request.
type UserRiskProfile struct {
	RiskTolerance   RiskLevel `json:"risk_tolerance"`
	LiquidityNeeds  string    `json:"liquidity_needs"`  // Low, Medium, High
	HorizonMonths   int       `json:"horizon_months"`   // 6, 12, 18 or 24
	ExperienceLevel string    `json:"experience_level"` // Beginner, Intermediate, Advanced
}

// VaultRecommendation is one scored vault produced by the recommender.
type VaultRecommendation struct {
	Vault         string    `json:"vault"`
	Asset         string    `json:"asset"`
	MatchScore    float64   `json:"match_score"` // Clamped to [0,1]
	Rationale     string    `json:"rationale"`
	ExpectedAPY   float64   `json:"expected_apy"`
	NormalizedTVL float64   `json:"normalized_tvl"`
	RiskLevel     RiskLevel `json:"risk_level"`
}

// ProjectionResult is one compounding checkpoint of a growth projection.
type ProjectionResult struct {
	MonthsElapsed      int     `json:"months_elapsed"`
	Balance            float64 `json:"balance"`
	TotalContributions float64 `json:"total_contributions"`
	TotalReturns       float64 `json:"total_returns"` // balance - contributions
}

// SwapQuote is the routing quote for converting the deposit into the
// chosen vault's asset. Optional; a failed quote fetch degrades to nil.
type SwapQuote struct {
	AssetIn       string  `json:"asset_in"`
	AssetOut      string  `json:"asset_out"`
	AmountIn      string  `json:"amount_in"`  // Base units (stroops)
	AmountOut     string  `json:"amount_out"` // Base units (stroops)
	PriceImpact   float64 `json:"price_impact"`
	RoutePlatform string  `json:"route_platform,omitempty"`
}
