// Package metrics exposes Prometheus collectors for the hub.
//
// Key metrics:
//   - ursus_hub_connections / subscriptions / channels gauges
//   - ursus_hub_messages_* and ursus_hub_bytes_* throughput counters
//   - ursus_hub_errors_total per-connection error counter
//   - ursus_bridge_events_total dispatched domain events
package metrics
