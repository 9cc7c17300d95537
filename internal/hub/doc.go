// Package hub implements the realtime fan-out hub.
//
// The hub:
//   - Accepts WebSocket clients and assigns them ids
//   - Tracks per-client channel subscriptions with a hard cap
//   - Rate-limits inbound messages with a fixed window counter
//   - Probes liveness with ping/pong and evicts dead peers
//   - Batches high-frequency broadcasts per channel
//   - Relays data requests to the query service
//
// All shared state lives behind the Registry, Subscriptions, RateLimiter,
// and Batcher mutexes; the periodic loops (heartbeat, batch flush, stats)
// only take snapshots through those types.
package hub
