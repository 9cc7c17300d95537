package hub

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// ServerConfig tunes the WebSocket endpoint.
type ServerConfig struct {
	ReadBufferSize  int
	WriteBufferSize int
	MaxPayloadBytes int64
	WriteTimeout    time.Duration
	AllowedOrigins  []string
}

// Server upgrades HTTP requests and runs the per-client read/write pumps.
type Server struct {
	hub      *Hub
	cfg      ServerConfig
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewServer creates the WebSocket endpoint for a hub.
func NewServer(h *Hub, cfg ServerConfig, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Second
	}

	s := &Server{
		hub:    h,
		cfg:    cfg,
		logger: logger,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  cfg.ReadBufferSize,
		WriteBufferSize: cfg.WriteBufferSize,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// checkOrigin admits any origin when no whitelist is configured. Channel
// access control happens upstream; the hub only carries public data.
func (s *Server) checkOrigin(r *http.Request) bool {
	if len(s.cfg.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	for _, allowed := range s.cfg.AllowedOrigins {
		if origin == allowed {
			return true
		}
	}
	return false
}

// ServeHTTP upgrades the connection and hands it to the hub.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed",
			"remote", r.RemoteAddr,
			"error", err,
		)
		return
	}

	if s.cfg.MaxPayloadBytes > 0 {
		conn.SetReadLimit(s.cfg.MaxPayloadBytes)
	}

	c := s.hub.Accept(conn)

	go s.writePump(c)
	go s.readPump(c)
}

// readPump reads frames until the connection dies. Pong control frames and
// app-level pings refresh the read deadline; a silent peer times out at
// ClientTimeout and the heartbeat loop reaps it.
func (s *Server) readPump(c *Client) {
	conn := c.conn
	timeout := s.hub.cfg.ClientTimeout

	conn.SetReadDeadline(time.Now().Add(timeout))
	conn.SetPongHandler(func(string) error {
		c.markAlive()
		return conn.SetReadDeadline(time.Now().Add(timeout))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			reason := "connection closed"
			code := websocket.CloseNormalClosure
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				reason = "read error"
				code = websocket.CloseAbnormalClosure
			}
			s.hub.Remove(c.ID, code, reason)
			return
		}

		conn.SetReadDeadline(time.Now().Add(timeout))
		s.hub.HandleMessage(c, data)
	}
}

// writePump drains the client's send queue onto the socket. A write failure
// removes the client; removal closes done and ends the pump.
func (s *Server) writePump(c *Client) {
	conn := c.conn

	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				s.logger.Debug("write failed", "client_id", c.ID, "error", err)
				s.hub.Remove(c.ID, websocket.CloseAbnormalClosure, "write failed")
				return
			}
		}
	}
}
