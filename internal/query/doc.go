// Package query answers client data requests (agent stats, price history,
// market snapshot, order book) from the indexer's Postgres tables. The hub
// consumes the Service interface only; it never computes aggregates itself.
package query
