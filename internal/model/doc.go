// Package model defines the shared domain types:
//   - Domain events decoded from the chain listener (trades, agent
//     lifecycle, prices)
//   - Query result rows relayed to clients (agent stats, price history,
//     market snapshot, order book)
//
// Conventions:
//   - Amounts: lamports / token base units as uint64
//   - Prices: SOL per token as float64
//   - Timestamps: int64 milliseconds since Unix epoch
//   - Addresses: base58 Solana public keys as strings
package model
