/*
This file contains common utility functions for converting between stroop
amounts and human-readable decimal units, with strict precision handling.
*/

package utils

import (
	"errors"
	"fmt"
	"math"
	"strings"

	sdkmath "cosmossdk.io/math"
)

// StroopPrecision is the number of implied decimals on Stellar amounts:
// 10,000,000 stroops = 1 unit of the asset's human-readable amount.
const StroopPrecision = 7

// Error definitions for zero-tolerance error handling
var (
	ErrInvalidPrecision = errors.New("precision is invalid")
	ErrAmountNil        = errors.New("amount is nil")
	ErrAmountNegative   = errors.New("amount is negative")
	ErrNotFinite        = errors.New("value is not finite")
	ErrConversionFailed = errors.New("conversion failed")
)

// SDKIntToFloat64 converts an SDK Int to float64 with proper precision handling
func SDKIntToFloat64(amount sdkmath.Int, precision int) (float64, error) {
	if precision < 0 || precision > 18 {
		return 0, fmt.Errorf("%w: %d (must be between 0 and 18)", ErrInvalidPrecision, precision)
	}
	if amount.IsNil() {
		return 0, ErrAmountNil
	}
	if amount.IsNegative() {
		return 0, ErrAmountNegative
	}

	decAmount := sdkmath.LegacyNewDecFromInt(amount)
	factor := sdkmath.LegacyNewDec(1)
	for i := 0; i < precision; i++ {
		factor = factor.Mul(sdkmath.LegacyNewDec(10))
	}

	result := decAmount.Quo(factor)
	resultFloat, err := result.Float64()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrConversionFailed, err)
	}

	if math.IsNaN(resultFloat) || math.IsInf(resultFloat, 0) {
		return 0, fmt.Errorf("%w: result is %f", ErrNotFinite, resultFloat)
	}

	return resultFloat, nil
}

// Float64ToSDKInt converts a float64 to SDK Int with proper precision handling
func Float64ToSDKInt(amount float64, precision int) (sdkmath.Int, error) {
	if precision < 0 || precision > 18 {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: %d (must be between 0 and 18)", ErrInvalidPrecision, precision)
	}
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: amount is %f", ErrNotFinite, amount)
	}
	if amount < 0 {
		return sdkmath.ZeroInt(), ErrAmountNegative
	}
	if amount == 0 {
		return sdkmath.ZeroInt(), nil
	}

	// Use string conversion to avoid floating point precision issues
	formatStr := fmt.Sprintf("%%.%df", precision)
	amountStr := fmt.Sprintf(formatStr, amount)

	decAmount, err := sdkmath.LegacyNewDecFromStr(amountStr)
	if err != nil {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: failed to create decimal from string: %w", ErrConversionFailed, err)
	}

	factor := sdkmath.LegacyNewDec(1)
	for i := 0; i < precision; i++ {
		factor = factor.Mul(sdkmath.LegacyNewDec(10))
	}

	result := decAmount.Mul(factor).TruncateInt()
	if result.IsNegative() {
		return sdkmath.ZeroInt(), ErrAmountNegative
	}

	return result, nil
}

// StroopsToFloat64 converts an integer stroop amount to human units.
func StroopsToFloat64(amount sdkmath.Int) (float64, error) {
	return SDKIntToFloat64(amount, StroopPrecision)
}

// StroopStringToFloat64 parses a serialized integer stroop amount and
// converts it to human units. The source occasionally wraps amounts in
// quotes or whitespace; both are tolerated.
func StroopStringToFloat64(raw string) (float64, error) {
	trimmed := strings.TrimSpace(strings.Trim(strings.TrimSpace(raw), `"`))
	if trimmed == "" {
		return 0, fmt.Errorf("%w: empty amount string", ErrConversionFailed)
	}

	amount, ok := sdkmath.NewIntFromString(trimmed)
	if !ok {
		return 0, fmt.Errorf("%w: %q is not a valid integer amount", ErrConversionFailed, raw)
	}

	return StroopsToFloat64(amount)
}

// Float64ToStroops converts a human-unit amount to integer stroops.
func Float64ToStroops(amount float64) (sdkmath.Int, error) {
	return Float64ToSDKInt(amount, StroopPrecision)
}
