package clients

import (
	"context"

	hyperliquid "github.com/sonirico/go-hyperliquid"
)

// NewHyperliquidInfo builds a client for the Hyperliquid public Info API.
// No credentials are needed for market data; endpoint overrides the mainnet
// API URL.
func NewHyperliquidInfo(ctx context.Context, endpoint string) *hyperliquid.Info {
	if endpoint == "" {
		endpoint = hyperliquid.MainnetAPIURL
	}
	// websocket subscriptions are not used, candle snapshots come over REST
	return hyperliquid.NewInfo(ctx, endpoint, true, nil, nil)
}
