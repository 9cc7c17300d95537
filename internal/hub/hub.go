package hub

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ursuslabs/ursus-realtime/internal/query"
)

// Config tunes the hub. Zero values are replaced by DefaultConfig fields.
type Config struct {
	HeartbeatInterval         time.Duration
	ClientTimeout             time.Duration
	MaxSubscriptionsPerClient int
	RateLimitWindow           time.Duration
	RateLimitMaxRequests      int
	MaxBatchSize              int
	BatchInterval             time.Duration
	StatsInterval             time.Duration
	QueryTimeout              time.Duration
	SendQueueSize             int
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		HeartbeatInterval:         30 * time.Second,
		ClientTimeout:             60 * time.Second,
		MaxSubscriptionsPerClient: 100,
		RateLimitWindow:           60 * time.Second,
		RateLimitMaxRequests:      1000,
		MaxBatchSize:              50,
		BatchInterval:             100 * time.Millisecond,
		StatsInterval:             60 * time.Second,
		QueryTimeout:              5 * time.Second,
		SendQueueSize:             256,
	}
}

func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.HeartbeatInterval == 0 {
		c.HeartbeatInterval = def.HeartbeatInterval
	}
	if c.ClientTimeout == 0 {
		c.ClientTimeout = def.ClientTimeout
	}
	if c.MaxSubscriptionsPerClient == 0 {
		c.MaxSubscriptionsPerClient = def.MaxSubscriptionsPerClient
	}
	if c.RateLimitWindow == 0 {
		c.RateLimitWindow = def.RateLimitWindow
	}
	if c.RateLimitMaxRequests == 0 {
		c.RateLimitMaxRequests = def.RateLimitMaxRequests
	}
	if c.MaxBatchSize == 0 {
		c.MaxBatchSize = def.MaxBatchSize
	}
	if c.BatchInterval == 0 {
		c.BatchInterval = def.BatchInterval
	}
	if c.StatsInterval == 0 {
		c.StatsInterval = def.StatsInterval
	}
	if c.QueryTimeout == 0 {
		c.QueryTimeout = def.QueryTimeout
	}
	if c.SendQueueSize == 0 {
		c.SendQueueSize = def.SendQueueSize
	}
}

// DisconnectHandler observes client removals after cascade cleanup.
type DisconnectHandler func(clientID string, code int, reason string)

// HubStats is a point-in-time view for health reporting.
type HubStats struct {
	Connections   int `json:"connections"`
	Channels      int `json:"channels"`
	Subscriptions int `json:"subscriptions"`
}

// Hub owns the registry, subscription index, rate limiter, batcher, and
// stats collector, and dispatches inbound client messages.
type Hub struct {
	cfg     Config
	logger  *slog.Logger
	queries query.Service

	registry *Registry
	subs     *Subscriptions
	limiter  *RateLimiter
	batcher  *Batcher
	stats    *Stats

	onDisconnect DisconnectHandler

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a hub. queries may be nil when no query backend is wired
// (data requests then fail with QUERY_FAILED).
func New(cfg Config, queries query.Service, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	cfg.applyDefaults()

	h := &Hub{
		cfg:      cfg,
		logger:   logger,
		queries:  queries,
		registry: NewRegistry(cfg.SendQueueSize, logger),
		subs:     NewSubscriptions(cfg.MaxSubscriptionsPerClient),
		limiter:  NewRateLimiter(cfg.RateLimitWindow, cfg.RateLimitMaxRequests),
	}
	h.batcher = NewBatcher(cfg.MaxBatchSize, cfg.BatchInterval, h.flushBatch, logger)
	h.stats = NewStats(cfg.StatsInterval,
		h.registry.Size,
		h.subs.Total,
		h.subs.ChannelCount,
		logger,
	)
	h.registry.SetRemoveHandler(h.cleanup)

	return h
}

// SetStatsObserver installs the stats snapshot callback. Call before Start.
func (h *Hub) SetStatsObserver(fn StatsObserver) {
	h.stats.SetObserver(fn)
}

// SetDisconnectHandler installs a removal observer. Call before Start.
func (h *Hub) SetDisconnectHandler(fn DisconnectHandler) {
	h.onDisconnect = fn
}

// Start launches the batch, stats, and heartbeat loops.
func (h *Hub) Start(ctx context.Context) error {
	h.ctx, h.cancel = context.WithCancel(ctx)

	if err := h.batcher.Start(h.ctx); err != nil {
		return err
	}
	if err := h.stats.Start(h.ctx); err != nil {
		return err
	}

	h.wg.Add(1)
	go h.heartbeatLoop()

	h.logger.Info("hub started",
		"heartbeat_interval", h.cfg.HeartbeatInterval,
		"max_subscriptions", h.cfg.MaxSubscriptionsPerClient,
		"max_batch_size", h.cfg.MaxBatchSize,
	)
	return nil
}

// Stop disconnects every client with a normal close and halts the loops.
func (h *Hub) Stop(ctx context.Context) error {
	h.logger.Info("stopping hub", "connections", h.registry.Size())

	h.registry.Each(func(c *Client) {
		h.registry.Remove(c.ID, websocket.CloseNormalClosure, "server shutting down")
	})

	if h.cancel != nil {
		h.cancel()
	}

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		h.logger.Warn("hub stop timed out")
	}

	h.batcher.Stop(ctx)
	h.stats.Stop(ctx)

	h.logger.Info("hub stopped")
	return nil
}

// Accept registers an upgraded connection and sends the connected envelope.
func (h *Hub) Accept(conn *websocket.Conn) *Client {
	c := h.registry.Register(conn)
	c.setState(StateOpen)

	h.send(c.ID, envelope("connected", map[string]any{
		"clientId":   c.ID,
		"serverTime": time.Now().UnixMilli(),
		"config": map[string]any{
			"heartbeatInterval":         h.cfg.HeartbeatInterval.Milliseconds(),
			"maxSubscriptionsPerClient": h.cfg.MaxSubscriptionsPerClient,
			"maxBatchSize":              h.cfg.MaxBatchSize,
			"batchUpdateInterval":       h.cfg.BatchInterval.Milliseconds(),
		},
	}))

	h.logger.Info("client connected", "client_id", c.ID)
	return c
}

// Remove disconnects a client. Safe to call from any goroutine, repeatedly.
func (h *Hub) Remove(id string, code int, reason string) {
	h.registry.Remove(id, code, reason)
}

// Stats returns a point-in-time view for health reporting.
func (h *Hub) Stats() HubStats {
	return HubStats{
		Connections:   h.registry.Size(),
		Channels:      h.subs.ChannelCount(),
		Subscriptions: h.subs.Total(),
	}
}

// cleanup is the registry's cascade: subscription and rate-limit state go
// with the client. Runs exactly once per removal.
func (h *Hub) cleanup(c *Client, code int, reason string) {
	channels := h.subs.RemoveAll(c.ID)
	h.limiter.Forget(c.ID)

	h.logger.Info("client disconnected",
		"client_id", c.ID,
		"code", code,
		"reason", reason,
		"channels", len(channels),
	)

	if h.onDisconnect != nil {
		h.onDisconnect(c.ID, code, reason)
	}
}

// -----------------------------------------------------------------------------
// Broadcast
// -----------------------------------------------------------------------------

// Broadcast queues an event for batched delivery to a channel's
// subscribers. A client subscribed to several target channels of one domain
// event receives one message per channel.
func (h *Hub) Broadcast(event string, payload map[string]any, channel string) {
	fields := make(map[string]any, len(payload)+1)
	for k, v := range payload {
		fields[k] = v
	}
	fields["channel"] = channel
	h.batcher.Enqueue(channel, envelope(event, fields))
}

// BroadcastImmediate sends an event to a channel's subscribers right away,
// bypassing the batch queues. Used for rare lifecycle notices.
func (h *Hub) BroadcastImmediate(event string, payload map[string]any, channel string) {
	fields := make(map[string]any, len(payload)+1)
	for k, v := range payload {
		fields[k] = v
	}
	fields["channel"] = channel
	msg := envelope(event, fields)

	for _, id := range h.subs.Subscribers(channel) {
		h.send(id, msg)
	}
}

// flushBatch delivers one drained queue as a batch envelope. Queues whose
// channel lost all subscribers are dropped silently.
func (h *Hub) flushBatch(channel string, messages []json.RawMessage) {
	subscribers := h.subs.Subscribers(channel)
	if len(subscribers) == 0 {
		h.logger.Debug("dropping batch for empty channel",
			"channel", channel,
			"messages", len(messages),
		)
		return
	}

	msg := envelope("batch", map[string]any{
		"channel":  channel,
		"messages": messages,
	})
	for _, id := range subscribers {
		h.send(id, msg)
	}
}

// send delivers one frame and keeps the throughput counters.
func (h *Hub) send(id string, msg []byte) bool {
	if !h.registry.Send(id, msg) {
		return false
	}
	h.stats.CountOut(len(msg))
	return true
}

func (h *Hub) sendError(c *Client, code, message string, extra map[string]any) {
	h.stats.CountError()
	h.send(c.ID, errorEnvelope(code, message, extra))
}

// -----------------------------------------------------------------------------
// Inbound dispatch
// -----------------------------------------------------------------------------

// HandleMessage processes one inbound frame. Called from the client's read
// pump, so per-client handling is serial.
func (h *Hub) HandleMessage(c *Client, data []byte) {
	c.countIn(len(data))
	h.stats.CountIn(len(data))

	if !h.gate(c) {
		return
	}

	var msg inbound
	if err := json.Unmarshal(data, &msg); err != nil {
		h.sendError(c, CodeInvalidMessage, "malformed message envelope", nil)
		return
	}

	h.dispatch(c, &msg)
}

// gate applies the rate limiter. Returns false when the message must not be
// processed; a banned client is disconnected here.
func (h *Hub) gate(c *Client) bool {
	switch h.limiter.Allow(c.ID) {
	case Allowed:
		return true
	case Limited:
		h.sendError(c, CodeRateLimit, "rate limit exceeded", map[string]any{
			"retryAfter": h.limiter.RetryAfter().Milliseconds(),
		})
		return false
	default: // Banned
		h.Remove(c.ID, websocket.ClosePolicyViolation, "rate limit exceeded")
		return false
	}
}

func (h *Hub) dispatch(c *Client, msg *inbound) {
	switch msg.Type {
	case msgSubscribe:
		h.handleSubscribe(c, msg.Channel)
	case msgUnsubscribe:
		h.handleUnsubscribe(c, msg.Channel)
	case msgPing:
		h.handlePing(c, msg.Timestamp)
	case msgGetAgentStats:
		h.handleGetAgentStats(c, msg.AgentAddress)
	case msgGetPriceHistory:
		h.handleGetPriceHistory(c, msg.AgentAddress, msg.Timeframe)
	case msgGetMarketData:
		h.handleGetMarketData(c)
	case msgGetOrderBook:
		h.handleGetOrderBook(c, msg.AgentAddress)
	case msgSubscribeToTrades:
		h.handleSubscribe(c, TradesChannel(msg.AgentAddress))
	case msgSubscribeToPortfolio:
		h.handleSubscribe(c, PortfolioChannel(msg.UserAddress))
	case msgBatchRequest:
		h.handleBatchRequest(c, msg.Requests)
	case msgSetClientMetadata:
		h.handleSetMetadata(c, msg.Metadata)
	case msgAgentMessage:
		h.handleAgentMessage(c, msg)
	default:
		h.sendError(c, CodeUnknownMessageType, "unknown message type: "+msg.Type, nil)
	}
}

func (h *Hub) handleSubscribe(c *Client, channel string) {
	count, err := h.subs.Subscribe(c.ID, channel)
	switch err {
	case nil:
	case ErrInvalidChannel:
		h.sendError(c, CodeInvalidChannel, "invalid channel: "+channel, nil)
		return
	case ErrSubscriptionLimit:
		h.sendError(c, CodeSubscriptionLimit, "subscription limit reached", map[string]any{
			"limit": h.cfg.MaxSubscriptionsPerClient,
		})
		return
	default:
		h.sendError(c, CodeInvalidRequest, err.Error(), nil)
		return
	}

	h.send(c.ID, envelope("subscribed", map[string]any{
		"channel":         channel,
		"subscriberCount": count,
	}))
}

func (h *Hub) handleUnsubscribe(c *Client, channel string) {
	remaining := h.subs.Unsubscribe(c.ID, channel)
	h.send(c.ID, envelope("unsubscribed", map[string]any{
		"channel":              channel,
		"remainingSubscribers": remaining,
	}))
}

func (h *Hub) handlePing(c *Client, clientTime int64) {
	c.markAlive()
	if c.conn != nil {
		c.conn.SetReadDeadline(time.Now().Add(h.cfg.ClientTimeout))
	}

	now := time.Now().UnixMilli()
	fields := map[string]any{
		"serverTime": now,
	}
	if clientTime > 0 {
		fields["clientTime"] = clientTime
		fields["latency"] = now - clientTime
	}
	h.send(c.ID, envelope("pong", fields))
}

func (h *Hub) handleSetMetadata(c *Client, meta map[string]string) {
	c.MergeMetadata(meta)
	h.send(c.ID, envelope("metadataAck", map[string]any{
		"metadata": c.Metadata(),
	}))
}

// handleAgentMessage relays a user message to the agent's channel. Delivery
// to the channel is the acknowledgement; the sender is usually a subscriber.
func (h *Hub) handleAgentMessage(c *Client, msg *inbound) {
	if !validChannelID(msg.AgentAddress) {
		h.sendError(c, CodeInvalidRequest, "invalid agentAddress", nil)
		return
	}
	h.BroadcastImmediate("agentMessage", map[string]any{
		"agentAddress": msg.AgentAddress,
		"userAddress":  msg.UserAddress,
		"message":      msg.Message,
	}, AgentChannel(msg.AgentAddress))
}

// handleBatchRequest unpacks up to maxBatchRequests sub-requests and runs
// each through the normal gate and dispatch. Nesting is rejected.
func (h *Hub) handleBatchRequest(c *Client, requests []json.RawMessage) {
	if len(requests) == 0 {
		h.sendError(c, CodeInvalidRequest, "empty batch request", nil)
		return
	}
	if len(requests) > maxBatchRequests {
		h.sendError(c, CodeBatchLimit, "too many batched requests", map[string]any{
			"limit": maxBatchRequests,
		})
		return
	}

	for _, raw := range requests {
		var sub inbound
		if err := json.Unmarshal(raw, &sub); err != nil {
			h.sendError(c, CodeInvalidMessage, "malformed batched request", nil)
			continue
		}
		if sub.Type == msgBatchRequest {
			h.sendError(c, CodeBatchLimit, "nested batch requests are not allowed", nil)
			continue
		}
		// Each sub-request spends its own rate-limit slot.
		if !h.gate(c) {
			return
		}
		h.dispatch(c, &sub)
	}
}

// -----------------------------------------------------------------------------
// Data requests
// -----------------------------------------------------------------------------

func (h *Hub) queryCtx() (context.Context, context.CancelFunc) {
	parent := h.ctx
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, h.cfg.QueryTimeout)
}

func (h *Hub) handleGetAgentStats(c *Client, mint string) {
	if !validChannelID(mint) {
		h.sendError(c, CodeInvalidRequest, "invalid agentAddress", nil)
		return
	}
	if h.queries == nil {
		h.sendError(c, CodeQueryFailed, "query service unavailable", nil)
		return
	}

	ctx, cancel := h.queryCtx()
	defer cancel()

	stats, err := h.queries.AgentStats(ctx, mint)
	if err != nil {
		h.logger.Warn("agent stats query failed", "client_id", c.ID, "error", err)
		h.sendError(c, CodeQueryFailed, "agent stats unavailable", nil)
		return
	}
	h.send(c.ID, envelope("agentStats", map[string]any{
		"agentAddress": mint,
		"stats":        stats,
	}))
}

func (h *Hub) handleGetPriceHistory(c *Client, mint, timeframe string) {
	if !validChannelID(mint) {
		h.sendError(c, CodeInvalidRequest, "invalid agentAddress", nil)
		return
	}
	if h.queries == nil {
		h.sendError(c, CodeQueryFailed, "query service unavailable", nil)
		return
	}

	ctx, cancel := h.queryCtx()
	defer cancel()

	points, err := h.queries.PriceHistory(ctx, mint, timeframe)
	if err != nil {
		h.logger.Warn("price history query failed", "client_id", c.ID, "error", err)
		h.sendError(c, CodeQueryFailed, "price history unavailable", nil)
		return
	}
	h.send(c.ID, envelope("priceHistory", map[string]any{
		"agentAddress": mint,
		"timeframe":    timeframe,
		"points":       points,
	}))
}

func (h *Hub) handleGetMarketData(c *Client) {
	if h.queries == nil {
		h.sendError(c, CodeQueryFailed, "query service unavailable", nil)
		return
	}

	ctx, cancel := h.queryCtx()
	defer cancel()

	snap, err := h.queries.MarketData(ctx)
	if err != nil {
		h.logger.Warn("market data query failed", "client_id", c.ID, "error", err)
		h.sendError(c, CodeQueryFailed, "market data unavailable", nil)
		return
	}
	h.send(c.ID, envelope("marketData", map[string]any{
		"market": snap,
	}))
}

func (h *Hub) handleGetOrderBook(c *Client, mint string) {
	if !validChannelID(mint) {
		h.sendError(c, CodeInvalidRequest, "invalid agentAddress", nil)
		return
	}
	if h.queries == nil {
		h.sendError(c, CodeQueryFailed, "query service unavailable", nil)
		return
	}

	ctx, cancel := h.queryCtx()
	defer cancel()

	book, err := h.queries.OrderBook(ctx, mint)
	if err != nil {
		h.logger.Warn("order book query failed", "client_id", c.ID, "error", err)
		h.sendError(c, CodeQueryFailed, "order book unavailable", nil)
		return
	}
	h.send(c.ID, envelope("orderBook", map[string]any{
		"agentAddress": mint,
		"book":         book,
	}))
}

// -----------------------------------------------------------------------------
// Heartbeat
// -----------------------------------------------------------------------------

// heartbeatLoop probes every client each tick. A client that failed to
// answer the previous probe is dead; everyone else gets a fresh ping. The
// net effect: a silent client is gone within two heartbeat intervals of its
// last pong.
func (h *Hub) heartbeatLoop() {
	defer h.wg.Done()

	ticker := time.NewTicker(h.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			return
		case <-ticker.C:
			h.probeAll()
		}
	}
}

func (h *Hub) probeAll() {
	now := time.Now()
	h.registry.Each(func(c *Client) {
		if c.State() == StateClosed {
			return
		}

		if !c.Alive() {
			h.Remove(c.ID, websocket.CloseGoingAway, "heartbeat timeout")
			return
		}

		c.clearAlive()

		if c.conn == nil {
			return
		}
		deadline := now.Add(h.cfg.HeartbeatInterval)
		if err := c.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
			h.logger.Debug("ping failed", "client_id", c.ID, "error", err)
			h.Remove(c.ID, websocket.CloseGoingAway, "heartbeat timeout")
		}
	})
}
