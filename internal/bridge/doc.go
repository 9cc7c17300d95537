// Package bridge adapts chain-listener domain events into hub broadcasts.
//
// The chain listener publishes one JSON message per decoded program event
// on NATS subjects under a common prefix (trade, price, agent_created,
// agent_graduated, interaction). The bridge buffers deliveries, decodes
// them into model types, and maps each event to its target channels.
package bridge
