package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/ursuslabs/ursus-realtime/internal/hub"
	"github.com/ursuslabs/ursus-realtime/internal/model"
)

// Broadcaster is the slice of the hub the bridge needs.
type Broadcaster interface {
	Broadcast(event string, payload map[string]any, channel string)
	BroadcastImmediate(event string, payload map[string]any, channel string)
}

// Config holds the domain-event source settings.
type Config struct {
	URL           string
	SubjectPrefix string // e.g. "ursus.events"
	BufferSize    int
	ReconnectWait time.Duration
	MaxReconnects int
}

// Stats counts bridge activity since start.
type Stats struct {
	Received     int64
	Dispatched   int64
	DecodeErrors int64
	Unknown      int64
}

// rawEvent is one undecoded NATS message.
type rawEvent struct {
	Subject    string
	Data       []byte
	ReceivedAt time.Time
}

// Bridge subscribes to the chain listener's event subjects, decodes each
// message into a typed domain event, and fans it into hub broadcasts.
type Bridge struct {
	cfg    Config
	target Broadcaster
	logger *slog.Logger

	nc  *nats.Conn
	sub *nats.Subscription
	buf *Buffer[rawEvent]

	received     atomic.Int64
	dispatched   atomic.Int64
	decodeErrors atomic.Int64
	unknown      atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a bridge targeting the given broadcaster.
func New(cfg Config, target Broadcaster, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BufferSize < 1 {
		cfg.BufferSize = 1024
	}
	return &Bridge{
		cfg:    cfg,
		target: target,
		logger: logger,
		buf:    NewBuffer[rawEvent](cfg.BufferSize),
	}
}

// Start connects to NATS, subscribes to the event subjects, and launches
// the dispatch loop.
func (b *Bridge) Start(ctx context.Context) error {
	b.ctx, b.cancel = context.WithCancel(ctx)

	nc, err := nats.Connect(b.cfg.URL,
		nats.ReconnectWait(b.cfg.ReconnectWait),
		nats.MaxReconnects(b.cfg.MaxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			b.logger.Warn("nats disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			b.logger.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return fmt.Errorf("connect nats: %w", err)
	}
	b.nc = nc

	subject := b.cfg.SubjectPrefix + ".>"
	sub, err := nc.Subscribe(subject, func(msg *nats.Msg) {
		b.received.Add(1)
		b.buf.Push(rawEvent{
			Subject:    msg.Subject,
			Data:       msg.Data,
			ReceivedAt: time.Now(),
		})
	})
	if err != nil {
		nc.Close()
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}
	b.sub = sub

	b.wg.Add(1)
	go b.dispatchLoop()

	b.logger.Info("event bridge started",
		"url", b.cfg.URL,
		"subject", subject,
	)
	return nil
}

// Stop unsubscribes, drains the buffer, and closes the NATS connection.
func (b *Bridge) Stop(ctx context.Context) error {
	if b.sub != nil {
		b.sub.Unsubscribe()
	}
	if b.cancel != nil {
		b.cancel()
	}
	b.buf.Close()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		b.logger.Warn("bridge stop timed out")
	}

	if b.nc != nil {
		b.nc.Close()
	}

	b.logger.Info("event bridge stopped")
	return nil
}

// Connected reports the NATS connection state for health checks.
func (b *Bridge) Connected() bool {
	return b.nc != nil && b.nc.IsConnected()
}

// Stats returns counters since start.
func (b *Bridge) Stats() Stats {
	return Stats{
		Received:     b.received.Load(),
		Dispatched:   b.dispatched.Load(),
		DecodeErrors: b.decodeErrors.Load(),
		Unknown:      b.unknown.Load(),
	}
}

func (b *Bridge) dispatchLoop() {
	defer b.wg.Done()

	for {
		ev, ok := b.buf.Pop()
		if !ok {
			return
		}
		b.dispatch(ev)
	}
}

// dispatch decodes one event and fans it into broadcast calls. Trade and
// price events are high frequency and go through the batcher; lifecycle
// notices go out immediately. A client subscribed to several target
// channels gets one copy per channel.
func (b *Bridge) dispatch(ev rawEvent) {
	kind := strings.TrimPrefix(ev.Subject, b.cfg.SubjectPrefix+".")

	switch kind {
	case "trade":
		var e model.TradeEvent
		if !b.decode(ev, &e) {
			return
		}
		payload := map[string]any{
			"signature":   e.Signature,
			"agentMint":   e.AgentMint,
			"trader":      e.Trader,
			"side":        e.Side,
			"solAmount":   e.SolAmount,
			"tokenAmount": e.TokenAmount,
			"price":       e.Price,
			"tradeTime":   e.Timestamp,
		}
		b.target.Broadcast("trade", payload, hub.AgentChannel(e.AgentMint))
		b.target.Broadcast("trade", payload, hub.TradesChannel(e.AgentMint))
		b.target.Broadcast("trade", payload, hub.ChannelPlatform)
		b.target.Broadcast("trade", payload, hub.PortfolioChannel(e.Trader))

	case "price":
		var e model.PriceEvent
		if !b.decode(ev, &e) {
			return
		}
		payload := map[string]any{
			"agentMint": e.AgentMint,
			"price":     e.Price,
			"marketCap": e.MarketCap,
			"priceTime": e.Timestamp,
		}
		b.target.Broadcast("priceUpdate", payload, hub.AgentChannel(e.AgentMint))
		b.target.Broadcast("priceUpdate", payload, hub.ChannelMarket)

	case "agent_created":
		var e model.AgentCreatedEvent
		if !b.decode(ev, &e) {
			return
		}
		b.target.BroadcastImmediate("agentCreated", map[string]any{
			"agentId":     e.AgentID,
			"agentMint":   e.AgentMint,
			"creator":     e.Creator,
			"name":        e.Name,
			"symbol":      e.Symbol,
			"description": e.Description,
			"createdAt":   e.Timestamp,
		}, hub.ChannelPlatform)

	case "agent_graduated":
		var e model.AgentGraduatedEvent
		if !b.decode(ev, &e) {
			return
		}
		payload := map[string]any{
			"agentMint":   e.AgentMint,
			"solReserves": e.SolReserves,
			"graduatedAt": e.Timestamp,
		}
		b.target.BroadcastImmediate("agentGraduated", payload, hub.AgentChannel(e.AgentMint))
		b.target.BroadcastImmediate("agentGraduated", payload, hub.ChannelPlatform)

	case "interaction":
		var e model.InteractionEvent
		if !b.decode(ev, &e) {
			return
		}
		b.target.BroadcastImmediate("agentInteraction", map[string]any{
			"callerAgent": e.CallerAgent,
			"targetAgent": e.TargetAgent,
			"serviceId":   e.ServiceID,
			"amount":      e.Amount,
			"calledAt":    e.Timestamp,
		}, hub.AgentChannel(e.TargetAgent))

	default:
		b.unknown.Add(1)
		b.logger.Debug("skipping event subject", "subject", ev.Subject)
		return
	}

	b.dispatched.Add(1)
}

func (b *Bridge) decode(ev rawEvent, out any) bool {
	if err := json.Unmarshal(ev.Data, out); err != nil {
		b.decodeErrors.Add(1)
		b.logger.Warn("failed to decode event",
			"subject", ev.Subject,
			"error", err,
		)
		return false
	}
	return true
}
