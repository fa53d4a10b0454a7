/*

This file contains the recommendation engine: the orchestrator that runs the
full pipeline for one request — fetch vault records, parse, extract
features, cluster, recommend, project, and optionally quote the deposit
route — and persists an audit snapshot of the outcome.

*/

package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stellarwizard/vre/internal/analyzer"
	"github.com/stellarwizard/vre/internal/config"
	"github.com/stellarwizard/vre/internal/logger"
	"github.com/stellarwizard/vre/internal/projection"
	"github.com/stellarwizard/vre/internal/state"
	"github.com/stellarwizard/vre/internal/types"
	"github.com/stellarwizard/vre/internal/utils"
)

const (
	// Export constants for use in main.go
	DEFAULT_ANALYSIS_CONFIG_NAME    = "default_vre_strategy"
	DEFAULT_ANALYSIS_CONFIG_VERSION = 1
)

// Fallback labels recorded on snapshots and returned to callers.
const (
	FallbackWidenedRisk = "widened_risk"
	FallbackStableVault = "stable_vault"
)

// fallbackRationale is the fixed justification attached to a stable-vault
// fallback pick, which bypasses the normal match scoring.
const fallbackRationale = "Selected as a conservative fallback: the most liquid stable-asset vault available when no vault matched your preferences."

// ErrNoSuitableVault is returned when the full fallback cascade is exhausted
// without finding any investable vault.
var ErrNoSuitableVault = errors.New("no suitable vault found")

// ErrInvalidRequest wraps every request validation failure.
var ErrInvalidRequest = errors.New("invalid recommendation request")

// allowedHorizons are the investment horizons the projector reports
// checkpoints for.
var allowedHorizons = map[int]bool{6: true, 12: true, 18: true, 24: true}

// VaultSource provides raw vault records for a network.
type VaultSource interface {
	GetVaultRecords(ctx context.Context, network string) ([]types.RawVaultRecord, error)
}

// QuoteSource provides deposit routing quotes. Optional: a nil QuoteSource
// simply omits quotes from results.
type QuoteSource interface {
	GetSwapQuote(ctx context.Context, network, assetIn, assetOut, amountIn string) (*types.SwapQuote, error)
}

// Engine is the vault recommendation engine with all its dependencies.
type Engine struct {
	// Core dependencies
	logger zerolog.Logger
	vaults VaultSource
	quotes QuoteSource
	params *types.AnalysisParameters

	// Configuration
	configName    string
	configVersion int
}

// Config holds the configuration for creating a new Engine instance
type Config struct {
	VaultSource   VaultSource
	QuoteSource   QuoteSource
	Params        *types.AnalysisParameters
	ConfigName    string
	ConfigVersion int
}

// New creates a new Engine instance with dependency injection
func New(cfg Config) (*Engine, error) {
	if err := validateEngineConfig(cfg); err != nil {
		return nil, fmt.Errorf("engine configuration validation failed: %w", err)
	}

	e := &Engine{
		logger:        logger.GetForComponent("engine_core"),
		vaults:        cfg.VaultSource,
		quotes:        cfg.QuoteSource,
		params:        cfg.Params,
		configName:    cfg.ConfigName,
		configVersion: cfg.ConfigVersion,
	}

	e.logger.Info().
		Str("configName", e.configName).
		Int("configVersion", e.configVersion).
		Bool("quotesEnabled", e.quotes != nil).
		Msg("Engine instance created successfully with dependency injection")

	return e, nil
}

// validateEngineConfig validates the engine configuration
func validateEngineConfig(cfg Config) error {
	if cfg.VaultSource == nil {
		return fmt.Errorf("vault source cannot be nil")
	}
	if cfg.Params == nil {
		return fmt.Errorf("analysis parameters cannot be nil")
	}
	if err := analyzer.ValidateAnalysisParameters(*cfg.Params); err != nil {
		return err
	}
	if cfg.ConfigName == "" {
		return fmt.Errorf("config name cannot be empty")
	}
	if cfg.ConfigVersion <= 0 {
		return fmt.Errorf("config version must be positive")
	}
	return nil
}

// RecommendRequest is one recommendation request after JSON decoding.
// Optional fields carry defaults applied during validation.
type RecommendRequest struct {
	AmountBase          string          `json:"amount"` // Base units (stroops)
	Risk                types.RiskLevel `json:"risk"`
	HorizonMonths       int             `json:"horizon_months"`
	Network             string          `json:"network,omitempty"`
	DepositAsset        string          `json:"deposit_asset,omitempty"` // Asset the user funds the deposit with
	LiquidityNeeds      string          `json:"liquidity_needs,omitempty"`
	ExperienceLevel     string          `json:"experience_level,omitempty"`
	MonthlyContribution float64         `json:"monthly_contribution,omitempty"` // Human units
}

// RecommendResult is the full outcome of one recommendation request.
type RecommendResult struct {
	RequestID    string                    `json:"request_id"`
	Vault        types.VaultRecommendation `json:"vault"`
	Projection   []types.ProjectionResult  `json:"projection"`
	Quote        *types.SwapQuote          `json:"quote,omitempty"`
	FallbackUsed string                    `json:"fallback_used,omitempty"`
	APICalls     []types.APICallRecord     `json:"api_calls"`
}

// RecommendAndProject runs the full recommendation pipeline for one request.
// Returns ErrNoSuitableVault (possibly wrapped) when no vault can be
// recommended even after the fallback cascade, and ErrInvalidRequest for
// malformed input.
func (e *Engine) RecommendAndProject(ctx context.Context, req RecommendRequest) (*RecommendResult, error) {
	if err := e.normalizeRequest(&req); err != nil {
		return nil, errors.Join(ErrInvalidRequest, err)
	}

	// Unique request ID for tracing logs across the entire pipeline
	requestID := uuid.New().String()
	reqLogger := e.logger.With().Str("request_id", requestID).Logger()

	reqLogger.Info().
		Str("network", req.Network).
		Str("risk", string(req.Risk)).
		Int("horizonMonths", req.HorizonMonths).
		Str("amountBase", req.AmountBase).
		Msg("--- Starting recommendation pipeline ---")

	apiCalls := []types.APICallRecord{}

	// Step 1: Fetch the vault universe.
	fetchStart := time.Now()
	records, err := e.vaults.GetVaultRecords(ctx, req.Network)
	apiCalls = append(apiCalls, types.APICallRecord{
		Name:       "vault_universe",
		Endpoint:   config.DataAPI(req.Network),
		DurationMs: time.Since(fetchStart).Milliseconds(),
		Success:    err == nil,
		Message:    errMessage(err),
	})
	if err != nil {
		reqLogger.Error().Err(err).Msg("Failed to fetch vault records")
		e.persistSnapshot(reqLogger, buildFailureSnapshot(requestID, req, apiCalls))
		return nil, fmt.Errorf("failed to fetch vault universe: %w", err)
	}

	// Steps 2-4: Parse, extract features, cluster.
	parsed := analyzer.ParseVaultData(records)
	features := analyzer.ExtractFeatures(parsed)
	clusters, err := analyzer.ClusterVaults(features, *e.params)
	if err != nil {
		reqLogger.Error().Err(err).Msg("Clustering failed")
		e.persistSnapshot(reqLogger, buildFailureSnapshot(requestID, req, apiCalls))
		return nil, fmt.Errorf("failed to cluster vaults: %w", err)
	}

	// Step 5: Recommend, with the fallback cascade.
	profile := types.UserRiskProfile{
		RiskTolerance:   req.Risk,
		LiquidityNeeds:  req.LiquidityNeeds,
		HorizonMonths:   req.HorizonMonths,
		ExperienceLevel: req.ExperienceLevel,
	}

	rec, candidates, fallbackUsed, err := e.selectVault(reqLogger, features, clusters, profile)
	if err != nil {
		e.persistSnapshot(reqLogger, buildFailureSnapshot(requestID, req, apiCalls))
		return nil, err
	}

	// Step 6: Project growth over the requested horizon.
	principal, err := utils.StroopStringToFloat64(req.AmountBase)
	if err != nil {
		return nil, errors.Join(ErrInvalidRequest, err)
	}
	fullProjection, err := projection.Calculate(projection.Input{
		Principal:           principal,
		APY:                 rec.ExpectedAPY,
		MonthlyContribution: req.MonthlyContribution,
	})
	if err != nil {
		reqLogger.Error().Err(err).Msg("Projection failed")
		return nil, fmt.Errorf("failed to project growth: %w", err)
	}
	horizonProjection := projection.FilterToHorizon(fullProjection, req.HorizonMonths)

	// Step 7: Optional deposit routing quote. Failure degrades the response,
	// it never fails the recommendation.
	var quote *types.SwapQuote
	if e.quotes != nil && req.DepositAsset != "" && req.DepositAsset != rec.Asset {
		quoteStart := time.Now()
		quote, err = e.quotes.GetSwapQuote(ctx, req.Network, req.DepositAsset, rec.Asset, req.AmountBase)
		apiCalls = append(apiCalls, types.APICallRecord{
			Name:       "swap_quote",
			Endpoint:   config.QuoteAPI,
			DurationMs: time.Since(quoteStart).Milliseconds(),
			Success:    err == nil,
			Message:    errMessage(err),
		})
		if err != nil {
			reqLogger.Warn().Err(err).Msg("Swap quote unavailable, continuing without it")
			quote = nil
		}
	}

	result := &RecommendResult{
		RequestID:    requestID,
		Vault:        rec,
		Projection:   horizonProjection,
		Quote:        quote,
		FallbackUsed: fallbackUsed,
		APICalls:     apiCalls,
	}

	// Step 8: Persist the audit snapshot. Persistence failure is logged, not
	// surfaced: the recommendation is already computed.
	snapshot := types.RecommendationSnapshot{
		RequestID:       requestID,
		Timestamp:       time.Now(),
		Network:         req.Network,
		RequestedRisk:   req.Risk,
		HorizonMonths:   req.HorizonMonths,
		AmountBase:      req.AmountBase,
		Success:         true,
		VaultAddress:    rec.Vault,
		VaultAsset:      rec.Asset,
		MatchScore:      rec.MatchScore,
		ExpectedAPY:     rec.ExpectedAPY,
		RiskLevel:       rec.RiskLevel,
		FallbackUsed:    fallbackUsed,
		CandidateVaults: candidates,
		APICalls:        apiCalls,
		Projection:      horizonProjection,
	}
	e.persistSnapshot(reqLogger, snapshot)

	reqLogger.Info().
		Str("vault", rec.Vault).
		Float64("matchScore", rec.MatchScore).
		Str("fallback", fallbackUsed).
		Msg("--- Recommendation pipeline completed ---")

	return result, nil
}

// Project runs a standalone growth projection without the recommendation
// pipeline.
func (e *Engine) Project(in projection.Input, horizonMonths int) ([]types.ProjectionResult, error) {
	results, err := projection.Calculate(in)
	if err != nil {
		return nil, err
	}
	return projection.FilterToHorizon(results, horizonMonths), nil
}

// Params returns a copy of the engine's active analysis parameters.
func (e *Engine) Params() types.AnalysisParameters {
	return *e.params
}

// ConfigName returns the name of the parameter configuration in use.
func (e *Engine) ConfigName() string {
	return e.configName
}

// selectVault picks the single best vault for the profile, applying the
// fallback cascade when the requested tier yields nothing:
//  1. Widen the risk tolerance to Balanced and retry.
//  2. Take the most liquid stable-asset vault, labeled Conservative.
//  3. Give up with ErrNoSuitableVault.
func (e *Engine) selectVault(
	reqLogger zerolog.Logger,
	features []types.VaultFeatures,
	clusters []types.VaultCluster,
	profile types.UserRiskProfile,
) (types.VaultRecommendation, []string, string, error) {
	recs := analyzer.RecommendVaults(features, clusters, profile, 1, *e.params)
	if len(recs) > 0 {
		return recs[0], clusterMembers(clusters, profile.RiskTolerance), "", nil
	}

	if profile.RiskTolerance != types.RiskBalanced {
		reqLogger.Warn().
			Str("requestedRisk", string(profile.RiskTolerance)).
			Msg("No vault in requested tier, widening risk tolerance to Balanced")

		widened := profile
		widened.RiskTolerance = types.RiskBalanced
		recs = analyzer.RecommendVaults(features, clusters, widened, 1, *e.params)
		if len(recs) > 0 {
			return recs[0], clusterMembers(clusters, types.RiskBalanced), FallbackWidenedRisk, nil
		}
	}

	reqLogger.Warn().Msg("No vault in any matching tier, trying stable-asset fallback")
	if rec, ok := e.stableFallback(features, profile); ok {
		return rec, []string{rec.Vault}, FallbackStableVault, nil
	}

	reqLogger.Error().Msg("Fallback cascade exhausted, no suitable vault")
	return types.VaultRecommendation{}, nil, "", ErrNoSuitableVault
}

// stableFallback picks the stable-asset vault with the highest normalized
// TVL, regardless of cluster membership. Zero-TVL vaults are eligible here
// even though clustering excludes them: an empty stable vault is still a
// safer suggestion than nothing.
func (e *Engine) stableFallback(features []types.VaultFeatures, profile types.UserRiskProfile) (types.VaultRecommendation, bool) {
	var best *types.VaultFeatures
	for i := range features {
		f := &features[i]
		if f.AssetStability <= 0.5 {
			continue
		}
		if best == nil || f.TVL > best.TVL {
			best = f
		}
	}
	if best == nil {
		return types.VaultRecommendation{}, false
	}

	return types.VaultRecommendation{
		Vault:         best.Vault,
		Asset:         best.Asset,
		MatchScore:    e.params.BaseMatchScore,
		Rationale:     fallbackRationale,
		ExpectedAPY:   e.params.ConservativeAPY,
		NormalizedTVL: best.TVL,
		RiskLevel:     types.RiskConservative,
	}, true
}

// normalizeRequest applies defaults and validates one request in place.
func (e *Engine) normalizeRequest(req *RecommendRequest) error {
	amount, ok := sdkmath.NewIntFromString(req.AmountBase)
	if !ok {
		return fmt.Errorf("amount must be an integer in base units, got: %q", req.AmountBase)
	}
	if !amount.IsPositive() {
		return fmt.Errorf("amount must be positive, got: %s", amount.String())
	}

	if !req.Risk.IsValid() {
		return fmt.Errorf("risk must be one of Conservative, Balanced, Aggressive, got: %q", req.Risk)
	}

	if !allowedHorizons[req.HorizonMonths] {
		return fmt.Errorf("horizon_months must be 6, 12, 18 or 24, got: %d", req.HorizonMonths)
	}

	if req.Network == "" {
		req.Network = config.DefaultNetwork
	}
	if req.Network != "testnet" && req.Network != "mainnet" {
		return fmt.Errorf("network must be 'testnet' or 'mainnet', got: %q", req.Network)
	}

	if req.LiquidityNeeds == "" {
		req.LiquidityNeeds = "Medium"
	}
	if req.LiquidityNeeds != "Low" && req.LiquidityNeeds != "Medium" && req.LiquidityNeeds != "High" {
		return fmt.Errorf("liquidity_needs must be Low, Medium or High, got: %q", req.LiquidityNeeds)
	}

	if req.ExperienceLevel == "" {
		req.ExperienceLevel = "Intermediate"
	}
	if req.ExperienceLevel != "Beginner" && req.ExperienceLevel != "Intermediate" && req.ExperienceLevel != "Advanced" {
		return fmt.Errorf("experience_level must be Beginner, Intermediate or Advanced, got: %q", req.ExperienceLevel)
	}

	if req.MonthlyContribution < 0 {
		return fmt.Errorf("monthly_contribution cannot be negative, got: %f", req.MonthlyContribution)
	}

	return nil
}

// persistSnapshot saves the audit snapshot, logging and swallowing failures
// so persistence never affects the request outcome.
func (e *Engine) persistSnapshot(reqLogger zerolog.Logger, snapshot types.RecommendationSnapshot) {
	if paramsID, err := state.GetActiveAnalysisParametersID(e.configName); err == nil {
		snapshot.ParamsID = paramsID
	}

	if _, err := state.SaveRecommendationSnapshot(snapshot); err != nil {
		reqLogger.Warn().Err(err).Msg("Failed to persist recommendation snapshot")
	}
}

func buildFailureSnapshot(requestID string, req RecommendRequest, apiCalls []types.APICallRecord) types.RecommendationSnapshot {
	return types.RecommendationSnapshot{
		RequestID:     requestID,
		Timestamp:     time.Now(),
		Network:       req.Network,
		RequestedRisk: req.Risk,
		HorizonMonths: req.HorizonMonths,
		AmountBase:    req.AmountBase,
		Success:       false,
		APICalls:      apiCalls,
	}
}

func clusterMembers(clusters []types.VaultCluster, risk types.RiskLevel) []string {
	for _, cluster := range clusters {
		if cluster.RiskLevel == risk {
			return cluster.Vaults
		}
	}
	return nil
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
