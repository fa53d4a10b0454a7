/*

This file contains the types for recommendation snapshots which record the
full outcome of a recommendation request for auditing.

*/

package types

import (
	"time"
)

// APICallRecord is one outbound call made while serving a recommendation
// request. The full list is returned to the caller and persisted with the
// snapshot.
type APICallRecord struct {
	Name       string `json:"name"`     // e.g. "vault_universe", "swap_quote"
	Endpoint   string `json:"endpoint"` // URL or logical source name
	DurationMs int64  `json:"duration_ms"`
	Success    bool   `json:"success"`
	Message    string `json:"message,omitempty"`
}

// RecommendationSnapshot is the persisted audit record of one
// recommendation request: what was asked, what was chosen, and how.
type RecommendationSnapshot struct {
	SnapshotID int64     `json:"snapshot_id,omitempty"` // Auto-incremented by DB
	RequestID  string    `json:"request_id"`
	Timestamp  time.Time `json:"timestamp"`
	ParamsID   *int64    `json:"params_id,omitempty"` // Active analysis parameters at request time

	// The request
	Network       string    `json:"network"`
	RequestedRisk RiskLevel `json:"requested_risk"`
	HorizonMonths int       `json:"horizon_months"`
	AmountBase    string    `json:"amount_base"` // Stroops, as received

	// The outcome
	Success         bool               `json:"success"`
	VaultAddress    string             `json:"vault_address,omitempty"`
	VaultAsset      string             `json:"vault_asset,omitempty"`
	MatchScore      float64            `json:"match_score,omitempty"`
	ExpectedAPY     float64            `json:"expected_apy,omitempty"`
	RiskLevel       RiskLevel          `json:"risk_level,omitempty"`
	FallbackUsed    string             `json:"fallback_used,omitempty"`
	CandidateVaults []string           `json:"candidate_vaults,omitempty"` // Matched tier's vault list
	APICalls        []APICallRecord    `json:"api_calls,omitempty"`
	Projection      []ProjectionResult `json:"projection,omitempty"`
}
