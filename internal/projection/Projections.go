/*

This file contains the compound growth projector used to illustrate a
recommendation over the user's investment horizon.

*/

package projection

import (
	"errors"
	"math"

	"github.com/stellarwizard/vre/internal/logger"
	"github.com/stellarwizard/vre/internal/types"
)

var ErrInvalidProjectionInput = errors.New("invalid projection input")
var projectionLogger = logger.GetForComponent("projection")

// The projection always compounds over a fixed two-year window and reports
// quarterly-ish checkpoints; callers trim to the requested horizon with
// FilterToHorizon.
const projectionMonths = 24

var checkpointMonths = map[int]bool{6: true, 12: true, 18: true, 24: true}

// MaxAPY caps the accepted annual rate (whole-number percent).
const MaxAPY = 1000.0

// Input describes one projection request. APY is a whole-number percent
// (12 means 12% per year). MonthlyContribution may be zero.
type Input struct {
	Principal           float64 `json:"principal"`
	APY                 float64 `json:"apy"`
	MonthlyContribution float64 `json:"monthly_contribution"`
}

// Calculate compounds the principal monthly at the geometric monthly rate
// implied by the APY, adding the contribution after each month's growth,
// and returns the checkpoint rows at months 6, 12, 18, and 24.
// Inputs:
//   - in: The principal, annual rate, and optional monthly contribution.
//
// Output:
//   - The four checkpoint rows in ascending month order.
//   - An error if any input is non-finite or out of range.
func Calculate(in Input) ([]types.ProjectionResult, error) {
	if err := validateInput(in); err != nil {
		projectionLogger.Error().
			Err(err).
			Float64("principal", in.Principal).
			Float64("apy", in.APY).
			Msg("Projection input validation failed")
		return nil, errors.Join(ErrInvalidProjectionInput, err)
	}

	monthlyRate := math.Pow(1+in.APY/100, 1.0/12) - 1

	balance := in.Principal
	contributions := in.Principal
	results := make([]types.ProjectionResult, 0, len(checkpointMonths))

	for month := 1; month <= projectionMonths; month++ {
		balance *= 1 + monthlyRate
		balance += in.MonthlyContribution
		contributions += in.MonthlyContribution

		if !checkpointMonths[month] {
			continue
		}
		results = append(results, types.ProjectionResult{
			MonthsElapsed:      month,
			Balance:            balance,
			TotalContributions: contributions,
			TotalReturns:       balance - contributions,
		})
	}

	projectionLogger.Debug().
		Float64("principal", in.Principal).
		Float64("apy", in.APY).
		Float64("monthlyRate", monthlyRate).
		Float64("finalBalance", balance).
		Msg("Projection calculated")

	return results, nil
}

// FilterToHorizon keeps only the checkpoints at or before the requested
// horizon. A non-positive horizon returns the full set.
func FilterToHorizon(results []types.ProjectionResult, horizonMonths int) []types.ProjectionResult {
	if horizonMonths <= 0 {
		return results
	}
	filtered := make([]types.ProjectionResult, 0, len(results))
	for _, r := range results {
		if r.MonthsElapsed <= horizonMonths {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

func validateInput(in Input) error {
	if math.IsNaN(in.Principal) || math.IsInf(in.Principal, 0) {
		return errors.New("principal must be finite")
	}
	if in.Principal <= 0 {
		return errors.New("principal must be positive")
	}
	if math.IsNaN(in.APY) || math.IsInf(in.APY, 0) {
		return errors.New("apy must be finite")
	}
	if in.APY < 0 || in.APY > MaxAPY {
		return errors.New("apy must be between 0 and 1000")
	}
	if math.IsNaN(in.MonthlyContribution) || math.IsInf(in.MonthlyContribution, 0) {
		return errors.New("monthly contribution must be finite")
	}
	if in.MonthlyContribution < 0 {
		return errors.New("monthly contribution cannot be negative")
	}
	return nil
}
