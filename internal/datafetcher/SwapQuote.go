/*

This file contains the client for fetching deposit routing quotes from the
Soroswap quote API.

Quotes are illustrative only. The recommendation flow treats a failed quote
as a degraded response, never as a hard failure.

*/

package datafetcher

import (
	"context"
	"errors"
	"fmt"

	"github.com/stellarwizard/vre/internal/config"
	"github.com/stellarwizard/vre/internal/logger"
	"github.com/stellarwizard/vre/internal/types"
)

var ErrQuoteUnavailable = errors.New("swap quote unavailable")
var quoteLogger = logger.GetForComponent("quote_client")

// QuoteClient fetches swap routing quotes from the configured quote API.
type QuoteClient struct{}

// NewQuoteClient returns a quote client backed by the endpoint configuration
// loaded at startup.
func NewQuoteClient() *QuoteClient {
	return &QuoteClient{}
}

// quoteRequest is the routing request sent to the quote API. Amounts are in
// base units (stroops).
type quoteRequest struct {
	Network   string `json:"network"`
	AssetIn   string `json:"assetIn"`
	AssetOut  string `json:"assetOut"`
	AmountIn  string `json:"amount"`
	TradeType string `json:"tradeType"`
}

// quoteResponse is the quote API's envelope.
type quoteResponse struct {
	AssetIn     string  `json:"assetIn"`
	AssetOut    string  `json:"assetOut"`
	AmountIn    string  `json:"amountIn"`
	AmountOut   string  `json:"amountOut"`
	PriceImpact float64 `json:"priceImpactPct"`
	Platform    string  `json:"platform,omitempty"`
	Error       string  `json:"error,omitempty"`
}

// GetSwapQuote fetches an exact-in routing quote for converting amountIn of
// assetIn into assetOut on the given network. amountIn is in base units.
func (c *QuoteClient) GetSwapQuote(ctx context.Context, network, assetIn, assetOut, amountIn string) (*types.SwapQuote, error) {
	if assetIn == assetOut {
		// Same-asset deposits need no routing; callers should not ask.
		return nil, fmt.Errorf("%w: asset in and out are identical", ErrQuoteUnavailable)
	}

	request := quoteRequest{
		Network:   network,
		AssetIn:   assetIn,
		AssetOut:  assetOut,
		AmountIn:  amountIn,
		TradeType: "EXACT_IN",
	}

	var response quoteResponse
	if err := postJSON(ctx, config.QuoteAPI, request, &response, quoteLogger); err != nil {
		return nil, errors.Join(ErrQuoteUnavailable, err)
	}
	if response.Error != "" {
		quoteLogger.Warn().
			Str("assetIn", assetIn).
			Str("assetOut", assetOut).
			Str("apiError", response.Error).
			Msg("Quote API reported an error")
		return nil, fmt.Errorf("%w: %s", ErrQuoteUnavailable, response.Error)
	}
	if response.AmountOut == "" {
		return nil, fmt.Errorf("%w: empty amount out", ErrQuoteUnavailable)
	}

	quoteLogger.Info().
		Str("assetIn", assetIn).
		Str("assetOut", assetOut).
		Str("amountIn", amountIn).
		Str("amountOut", response.AmountOut).
		Float64("priceImpact", response.PriceImpact).
		Msg("Swap quote fetched")

	return &types.SwapQuote{
		AssetIn:       assetIn,
		AssetOut:      assetOut,
		AmountIn:      amountIn,
		AmountOut:     response.AmountOut,
		PriceImpact:   response.PriceImpact,
		RoutePlatform: response.Platform,
	}, nil
}
