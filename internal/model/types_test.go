package model

import (
	"encoding/json"
	"testing"
)

// The chain listener publishes camelCase JSON; decoding must match its field
// names exactly or the bridge silently drops data.
func TestTradeEventDecode(t *testing.T) {
	payload := `{
		"signature": "5KtP9vK2sYxg",
		"agentMint": "AgEnTm1nTAddressXXXXXXXXXXXXXXXXXXXXXXXXXXXX",
		"trader": "TraDerAddressXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXX",
		"side": "buy",
		"solAmount": 1500000000,
		"tokenAmount": 42000000000,
		"price": 0.0000357,
		"timestamp": 1755993600000
	}`

	var ev TradeEvent
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if ev.Side != "buy" {
		t.Errorf("Side = %q, want %q", ev.Side, "buy")
	}
	if ev.SolAmount != 1500000000 {
		t.Errorf("SolAmount = %d, want 1500000000", ev.SolAmount)
	}
	if ev.AgentMint == "" || ev.Trader == "" {
		t.Error("address fields must not be empty")
	}
	if ev.Timestamp != 1755993600000 {
		t.Errorf("Timestamp = %d, want 1755993600000", ev.Timestamp)
	}
}

func TestInteractionEventDecode(t *testing.T) {
	payload := `{
		"callerAgent": "CaLLerAgentAddressXXXXXXXXXXXXXXXXXXXXXXXXXX",
		"targetAgent": "TaRGetAgentAddressXXXXXXXXXXXXXXXXXXXXXXXXXX",
		"serviceId": "summarize-v1",
		"amount": 250000,
		"timestamp": 1755993600000
	}`

	var ev InteractionEvent
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if ev.ServiceID != "summarize-v1" {
		t.Errorf("ServiceID = %q, want %q", ev.ServiceID, "summarize-v1")
	}
	if ev.Amount != 250000 {
		t.Errorf("Amount = %d, want 250000", ev.Amount)
	}
}
