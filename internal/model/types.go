package model

// -----------------------------------------------------------------------------
// Domain Events
// -----------------------------------------------------------------------------
//
// Events originate from the chain listener, which decodes agent-factory
// program activity and publishes one JSON message per event. Addresses are
// base58 Solana public keys.

// TradeEvent represents an executed buy or sell against an agent's bonding curve.
type TradeEvent struct {
	Signature   string  `json:"signature"`   // Transaction signature
	AgentMint   string  `json:"agentMint"`   // Agent token mint address
	Trader      string  `json:"trader"`      // Trader wallet address
	Side        string  `json:"side"`        // "buy" or "sell"
	SolAmount   uint64  `json:"solAmount"`   // Lamports in/out
	TokenAmount uint64  `json:"tokenAmount"` // Token base units out/in
	Price       float64 `json:"price"`       // SOL per token after the trade
	Timestamp   int64   `json:"timestamp"`   // Unix ms
}

// AgentCreatedEvent represents a new agent token launched on the factory.
type AgentCreatedEvent struct {
	AgentID     uint64 `json:"agentId"`
	AgentMint   string `json:"agentMint"`
	Creator     string `json:"creator"`
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Description string `json:"description"`
	Timestamp   int64  `json:"timestamp"`
}

// AgentGraduatedEvent represents an agent crossing its graduation threshold
// and migrating liquidity to the DEX.
type AgentGraduatedEvent struct {
	AgentMint   string `json:"agentMint"`
	SolReserves uint64 `json:"solReserves"` // Real SOL reserves at graduation
	Timestamp   int64  `json:"timestamp"`
}

// InteractionEvent represents one agent paying to call another agent's service.
type InteractionEvent struct {
	CallerAgent string `json:"callerAgent"`
	TargetAgent string `json:"targetAgent"`
	ServiceID   string `json:"serviceId"`
	Amount      uint64 `json:"amount"` // Lamports paid
	Timestamp   int64  `json:"timestamp"`
}

// PriceEvent represents a recomputed price for an agent token.
type PriceEvent struct {
	AgentMint string  `json:"agentMint"`
	Price     float64 `json:"price"`     // SOL per token
	MarketCap float64 `json:"marketCap"` // SOL
	Timestamp int64   `json:"timestamp"`
}

// -----------------------------------------------------------------------------
// Query Results
// -----------------------------------------------------------------------------
//
// Rows returned by the query service. The hub relays these to requesting
// clients verbatim; the indexer pipeline owns the underlying tables.

// AgentStats is the aggregate view of a single agent token.
type AgentStats struct {
	AgentMint   string  `json:"agentMint"`
	Name        string  `json:"name"`
	Symbol      string  `json:"symbol"`
	Price       float64 `json:"price"`
	MarketCap   float64 `json:"marketCap"`
	Volume24h   uint64  `json:"volume24h"`   // Lamports
	Trades24h   int64   `json:"trades24h"`   // Trade count
	HolderCount int64   `json:"holderCount"` // Distinct holders
	Graduated   bool    `json:"graduated"`
	UpdatedAt   int64   `json:"updatedAt"` // Unix ms
}

// PricePoint is one bucket of an agent's price history.
type PricePoint struct {
	BucketStart int64   `json:"bucketStart"` // Unix ms
	Open        float64 `json:"open"`
	High        float64 `json:"high"`
	Low         float64 `json:"low"`
	Close       float64 `json:"close"`
	Volume      uint64  `json:"volume"` // Lamports traded in bucket
}

// MarketSnapshot is the platform-wide aggregate view.
type MarketSnapshot struct {
	AgentCount     int64  `json:"agentCount"`
	GraduatedCount int64  `json:"graduatedCount"`
	Volume24h      uint64 `json:"volume24h"` // Lamports
	Trades24h      int64  `json:"trades24h"`
	UpdatedAt      int64  `json:"updatedAt"` // Unix ms
}

// OrderBookLevel is a single price level of an agent's order book.
type OrderBookLevel struct {
	Price float64 `json:"price"` // SOL per token
	Size  uint64  `json:"size"`  // Token base units
}

// OrderBook is the resting-order view for a graduated agent.
type OrderBook struct {
	AgentMint string           `json:"agentMint"`
	Bids      []OrderBookLevel `json:"bids"` // Highest price first
	Asks      []OrderBookLevel `json:"asks"` // Lowest price first
	UpdatedAt int64            `json:"updatedAt"` // Unix ms
}
