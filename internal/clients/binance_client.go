package clients

import (
	"github.com/adshao/go-binance/v2"
)

// NewBinanceClient builds a Binance REST client. Keys may be empty for
// public market data; endpoint overrides the default API base URL.
func NewBinanceClient(apiKey, apiSecret, endpoint string) *binance.Client {
	client := binance.NewClient(apiKey, apiSecret)
	if endpoint != "" {
		client.BaseURL = endpoint
	}
	return client
}
