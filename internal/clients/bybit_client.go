package clients

import (
	"github.com/hirokisan/bybit/v2"
)

// NewBybitClient builds a Bybit REST client. Keys may be empty for public
// market data; endpoint overrides the default API base URL.
func NewBybitClient(apiKey, apiSecret, endpoint string) *bybit.Client {
	client := bybit.NewClient()
	if apiKey != "" || apiSecret != "" {
		client = client.WithAuth(apiKey, apiSecret)
	}
	if endpoint != "" {
		client = client.WithBaseURL(endpoint)
	}
	return client
}
