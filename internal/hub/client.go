package hub

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// ClientState is the lifecycle state of a connection.
type ClientState int32

const (
	// StateConnecting is the window between upgrade and the connected envelope.
	StateConnecting ClientState = iota

	// StateOpen is a live connection with a recent pong.
	StateOpen

	// StateSuspect is a connection that missed one heartbeat window. A pong
	// returns it to StateOpen; another silent window kills it.
	StateSuspect

	// StateClosed is terminal. Set exactly once by Registry.Remove.
	StateClosed
)

func (s ClientState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateSuspect:
		return "suspect"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Client is one WebSocket connection. The Registry owns the lifecycle;
// other components refer to clients by id only.
type Client struct {
	ID          string
	ConnectedAt time.Time

	// conn is nil in tests that exercise dispatch without a socket.
	conn *websocket.Conn

	send chan []byte
	done chan struct{}

	state    atomic.Int32
	alive    atomic.Bool
	lastPing atomic.Int64 // Unix ms of last ping sent to the peer
	lastPong atomic.Int64 // Unix ms of last pong (or app ping) from the peer

	messagesIn  atomic.Int64
	messagesOut atomic.Int64
	bytesIn     atomic.Int64
	bytesOut    atomic.Int64

	metaMu   sync.Mutex
	metadata map[string]string

	closeOnce sync.Once
}

func newClient(id string, conn *websocket.Conn, queueSize int) *Client {
	c := &Client{
		ID:          id,
		ConnectedAt: time.Now(),
		conn:        conn,
		send:        make(chan []byte, queueSize),
		done:        make(chan struct{}),
		metadata:    make(map[string]string),
	}
	c.alive.Store(true)
	c.lastPong.Store(time.Now().UnixMilli())
	return c
}

// enqueue adds a frame to the send queue without blocking. Returns false if
// the client is closed or the queue is full; the caller treats either as a
// send failure.
func (c *Client) enqueue(msg []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// close releases the send queue. Idempotent.
func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// State returns the current lifecycle state.
func (c *Client) State() ClientState {
	return ClientState(c.state.Load())
}

func (c *Client) setState(s ClientState) {
	c.state.Store(int32(s))
}

// markAlive records peer liveness (pong control frame or app-level ping).
func (c *Client) markAlive() {
	c.alive.Store(true)
	c.lastPong.Store(time.Now().UnixMilli())
	if c.State() == StateSuspect {
		c.setState(StateOpen)
	}
}

// clearAlive flips the probe flag before a ping. The connection is suspect
// until the peer answers.
func (c *Client) clearAlive() {
	c.alive.Store(false)
	c.lastPing.Store(time.Now().UnixMilli())
	if c.State() == StateOpen {
		c.setState(StateSuspect)
	}
}

// Alive reports whether the peer answered since the last probe.
func (c *Client) Alive() bool {
	return c.alive.Load()
}

// LastPong returns the Unix ms timestamp of the last liveness signal.
func (c *Client) LastPong() int64 {
	return c.lastPong.Load()
}

func (c *Client) countIn(bytes int) {
	c.messagesIn.Add(1)
	c.bytesIn.Add(int64(bytes))
}

func (c *Client) countOut(bytes int) {
	c.messagesOut.Add(1)
	c.bytesOut.Add(int64(bytes))
}

// MergeMetadata merges client-set metadata into the existing map.
func (c *Client) MergeMetadata(meta map[string]string) {
	c.metaMu.Lock()
	defer c.metaMu.Unlock()
	for k, v := range meta {
		c.metadata[k] = v
	}
}

// Metadata returns a copy of the client-set metadata.
func (c *Client) Metadata() map[string]string {
	c.metaMu.Lock()
	defer c.metaMu.Unlock()
	out := make(map[string]string, len(c.metadata))
	for k, v := range c.metadata {
		out[k] = v
	}
	return out
}
