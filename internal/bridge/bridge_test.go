package bridge

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/ursuslabs/ursus-realtime/internal/hub"
)

const testMint = "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin"
const testTrader = "4Nd1mYvB7PRUmorVpbUXF5CrQUSrXF5CrQUSrXF5CrQU"

// fakeBroadcaster records broadcast calls.
type fakeBroadcaster struct {
	mu        sync.Mutex
	batched   []broadcastCall
	immediate []broadcastCall
}

type broadcastCall struct {
	event   string
	payload map[string]any
	channel string
}

func (f *fakeBroadcaster) Broadcast(event string, payload map[string]any, channel string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batched = append(f.batched, broadcastCall{event, payload, channel})
}

func (f *fakeBroadcaster) BroadcastImmediate(event string, payload map[string]any, channel string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.immediate = append(f.immediate, broadcastCall{event, payload, channel})
}

func newTestBridge(target Broadcaster) *Bridge {
	return New(Config{SubjectPrefix: "ursus.events", BufferSize: 16}, target, nil)
}

func event(t *testing.T, subject string, payload any) rawEvent {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	return rawEvent{Subject: subject, Data: data, ReceivedAt: time.Now()}
}

func TestDispatchTradeFansOutToFourChannels(t *testing.T) {
	fake := &fakeBroadcaster{}
	b := newTestBridge(fake)

	b.dispatch(event(t, "ursus.events.trade", map[string]any{
		"signature":   "sig1",
		"agentMint":   testMint,
		"trader":      testTrader,
		"side":        "buy",
		"solAmount":   1_000_000_000,
		"tokenAmount": 500_000,
		"price":       0.002,
		"timestamp":   1724500000000,
	}))

	if len(fake.batched) != 4 {
		t.Fatalf("batched calls = %d, want 4", len(fake.batched))
	}
	if len(fake.immediate) != 0 {
		t.Errorf("immediate calls = %d, want 0", len(fake.immediate))
	}

	wantChannels := map[string]bool{
		hub.AgentChannel(testMint):       false,
		hub.TradesChannel(testMint):      false,
		hub.ChannelPlatform:              false,
		hub.PortfolioChannel(testTrader): false,
	}
	for _, call := range fake.batched {
		if call.event != "trade" {
			t.Errorf("event = %q, want trade", call.event)
		}
		if _, ok := wantChannels[call.channel]; !ok {
			t.Errorf("unexpected channel %q", call.channel)
		}
		wantChannels[call.channel] = true
		if call.payload["side"] != "buy" {
			t.Errorf("payload side = %v, want buy", call.payload["side"])
		}
	}
	for ch, seen := range wantChannels {
		if !seen {
			t.Errorf("channel %q missed", ch)
		}
	}

	if got := b.Stats().Dispatched; got != 1 {
		t.Errorf("Dispatched = %d, want 1", got)
	}
}

func TestDispatchPriceUpdate(t *testing.T) {
	fake := &fakeBroadcaster{}
	b := newTestBridge(fake)

	b.dispatch(event(t, "ursus.events.price", map[string]any{
		"agentMint": testMint,
		"price":     0.0031,
		"marketCap": 3100.0,
		"timestamp": 1724500000000,
	}))

	if len(fake.batched) != 2 {
		t.Fatalf("batched calls = %d, want 2 (agent + market)", len(fake.batched))
	}
	channels := map[string]bool{}
	for _, call := range fake.batched {
		if call.event != "priceUpdate" {
			t.Errorf("event = %q, want priceUpdate", call.event)
		}
		channels[call.channel] = true
	}
	if !channels[hub.AgentChannel(testMint)] || !channels[hub.ChannelMarket] {
		t.Errorf("channels = %v, want agent and market", channels)
	}
}

func TestDispatchAgentCreatedIsImmediate(t *testing.T) {
	fake := &fakeBroadcaster{}
	b := newTestBridge(fake)

	b.dispatch(event(t, "ursus.events.agent_created", map[string]any{
		"agentId":   42,
		"agentMint": testMint,
		"creator":   testTrader,
		"name":      "Test Agent",
		"symbol":    "TEST",
		"timestamp": 1724500000000,
	}))

	if len(fake.batched) != 0 {
		t.Errorf("batched calls = %d, want 0", len(fake.batched))
	}
	if len(fake.immediate) != 1 {
		t.Fatalf("immediate calls = %d, want 1", len(fake.immediate))
	}
	call := fake.immediate[0]
	if call.event != "agentCreated" || call.channel != hub.ChannelPlatform {
		t.Errorf("call = %q on %q, want agentCreated on platform", call.event, call.channel)
	}
	if call.payload["name"] != "Test Agent" {
		t.Errorf("payload = %v", call.payload)
	}
}

func TestDispatchGraduationHitsAgentAndPlatform(t *testing.T) {
	fake := &fakeBroadcaster{}
	b := newTestBridge(fake)

	b.dispatch(event(t, "ursus.events.agent_graduated", map[string]any{
		"agentMint":   testMint,
		"solReserves": 85_000_000_000,
		"timestamp":   1724500000000,
	}))

	if len(fake.immediate) != 2 {
		t.Fatalf("immediate calls = %d, want 2", len(fake.immediate))
	}
	channels := map[string]bool{}
	for _, call := range fake.immediate {
		if call.event != "agentGraduated" {
			t.Errorf("event = %q, want agentGraduated", call.event)
		}
		channels[call.channel] = true
	}
	if !channels[hub.AgentChannel(testMint)] || !channels[hub.ChannelPlatform] {
		t.Errorf("channels = %v, want agent and platform", channels)
	}
}

func TestDispatchInteractionTargetsCalledAgent(t *testing.T) {
	fake := &fakeBroadcaster{}
	b := newTestBridge(fake)

	caller := testTrader
	b.dispatch(event(t, "ursus.events.interaction", map[string]any{
		"callerAgent": caller,
		"targetAgent": testMint,
		"serviceId":   "svc-1",
		"amount":      5_000_000,
		"timestamp":   1724500000000,
	}))

	if len(fake.immediate) != 1 {
		t.Fatalf("immediate calls = %d, want 1", len(fake.immediate))
	}
	call := fake.immediate[0]
	if call.channel != hub.AgentChannel(testMint) {
		t.Errorf("channel = %q, want target agent channel", call.channel)
	}
	if call.payload["callerAgent"] != caller {
		t.Errorf("payload = %v", call.payload)
	}
}

func TestDispatchUnknownSubject(t *testing.T) {
	fake := &fakeBroadcaster{}
	b := newTestBridge(fake)

	b.dispatch(event(t, "ursus.events.airdrop", map[string]any{"x": 1}))

	if len(fake.batched)+len(fake.immediate) != 0 {
		t.Error("unknown subject reached the broadcaster")
	}
	if got := b.Stats().Unknown; got != 1 {
		t.Errorf("Unknown = %d, want 1", got)
	}
}

func TestDispatchDecodeError(t *testing.T) {
	fake := &fakeBroadcaster{}
	b := newTestBridge(fake)

	b.dispatch(rawEvent{
		Subject: "ursus.events.trade",
		Data:    []byte("{broken"),
	})

	if len(fake.batched) != 0 {
		t.Error("undecodable event reached the broadcaster")
	}
	stats := b.Stats()
	if stats.DecodeErrors != 1 || stats.Dispatched != 0 {
		t.Errorf("stats = %+v, want 1 decode error, 0 dispatched", stats)
	}
}
