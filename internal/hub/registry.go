package hub

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// RemoveHandler runs the cascade cleanup for a removed client. Invoked
// exactly once per client, after the client is unreachable through Get.
type RemoveHandler func(c *Client, code int, reason string)

// Registry owns every connected client. All lifecycle transitions
// (register, send, remove) go through it.
type Registry struct {
	logger    *slog.Logger
	queueSize int

	mu      sync.RWMutex
	clients map[string]*Client

	onRemove RemoveHandler
}

// NewRegistry creates an empty registry. queueSize bounds each client's
// outbound send queue.
func NewRegistry(queueSize int, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	if queueSize < 1 {
		queueSize = 1
	}
	return &Registry{
		logger:    logger,
		queueSize: queueSize,
		clients:   make(map[string]*Client),
	}
}

// SetRemoveHandler installs the cascade cleanup. Must be called before the
// first Register.
func (r *Registry) SetRemoveHandler(fn RemoveHandler) {
	r.onRemove = fn
}

// Register creates a client for conn, assigns it an id, and makes it
// reachable via Get and Send.
func (r *Registry) Register(conn *websocket.Conn) *Client {
	c := newClient(uuid.NewString(), conn, r.queueSize)

	r.mu.Lock()
	r.clients[c.ID] = c
	r.mu.Unlock()

	r.logger.Debug("client registered", "client_id", c.ID)
	return c
}

// Get returns the client for id, if still connected.
func (r *Registry) Get(id string) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[id]
	return c, ok
}

// Size returns the number of connected clients.
func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// Each calls fn for a snapshot of all clients. fn may call Remove.
func (r *Registry) Each(fn func(*Client)) {
	r.mu.RLock()
	snapshot := make([]*Client, 0, len(r.clients))
	for _, c := range r.clients {
		snapshot = append(snapshot, c)
	}
	r.mu.RUnlock()

	for _, c := range snapshot {
		fn(c)
	}
}

// Send enqueues a frame for id. Returns false if the client is gone or its
// queue is unwritable; an unwritable queue removes the client.
func (r *Registry) Send(id string, msg []byte) bool {
	c, ok := r.Get(id)
	if !ok {
		return false
	}

	if !c.enqueue(msg) {
		r.logger.Warn("send queue unwritable, removing client",
			"client_id", id,
			"queued", len(c.send),
		)
		r.Remove(id, websocket.CloseAbnormalClosure, "send queue overflow")
		return false
	}

	c.countOut(len(msg))
	return true
}

// Remove disconnects a client and runs the cascade cleanup. Idempotent: the
// first caller claims the client by deleting it from the map; later calls
// (including re-entrant ones from send failures inside the cascade) are
// no-ops.
func (r *Registry) Remove(id string, code int, reason string) {
	r.mu.Lock()
	c, ok := r.clients[id]
	if ok {
		delete(r.clients, id)
	}
	r.mu.Unlock()

	if !ok {
		return
	}

	c.setState(StateClosed)
	c.close()

	if c.conn != nil {
		deadline := time.Now().Add(time.Second)
		c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(code, reason),
			deadline,
		)
		c.conn.Close()
	}

	r.logger.Debug("client removed",
		"client_id", id,
		"code", code,
		"reason", reason,
		"connected_for", time.Since(c.ConnectedAt),
		"messages_in", c.messagesIn.Load(),
		"messages_out", c.messagesOut.Load(),
	)

	if r.onRemove != nil {
		r.onRemove(c, code, reason)
	}
}
