package query

import (
	"context"
	"errors"

	"github.com/ursuslabs/ursus-realtime/internal/model"
)

// Errors
var (
	ErrNotFound         = errors.New("agent not found")
	ErrUnknownTimeframe = errors.New("unknown timeframe")
)

// Service answers client data requests. The hub only relays results; all
// aggregation happens in the store behind this interface.
type Service interface {
	// AgentStats returns the aggregate view of one agent token.
	AgentStats(ctx context.Context, mint string) (*model.AgentStats, error)

	// PriceHistory returns bucketed price points for an agent over a named
	// timeframe ("1h", "24h", "7d", "30d").
	PriceHistory(ctx context.Context, mint, timeframe string) ([]model.PricePoint, error)

	// MarketData returns the platform-wide aggregate view.
	MarketData(ctx context.Context) (*model.MarketSnapshot, error)

	// OrderBook returns resting orders for a graduated agent.
	OrderBook(ctx context.Context, mint string) (*model.OrderBook, error)
}
