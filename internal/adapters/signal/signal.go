package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/beacon/internal/app"
	"github.com/dkeye/beacon/internal/core"
	"github.com/dkeye/beacon/internal/domain"
)

var ErrBackpressure = errors.New("backpressure")

// Controller owns the websocket endpoint: it upgrades requests,
// registers connections with the hub and dispatches inbound events to
// the relay.
type Controller struct {
	Hub   *Hub
	Relay *app.Relay

	ReadLimit  int64
	PingPeriod time.Duration
}

func NewController(hub *Hub, relay *app.Relay, readLimit int64, pingPeriod time.Duration) *Controller {
	return &Controller{
		Hub:        hub,
		Relay:      relay,
		ReadLimit:  readLimit,
		PingPeriod: pingPeriod,
	}
}

// WsSignalConn wraps a websocket with a buffered outbound queue.
// TrySend never blocks: a full queue means the frame is dropped.
type WsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type connectedEvent struct {
	SocketID domain.ConnID `json:"socketId"`
}

// HandleSignal upgrades the request and runs the connection until the
// peer goes away. Each connection gets a fresh transport-assigned id.
func (ctl *Controller) HandleSignal(ctx context.Context, c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	sid := domain.ConnID(uuid.NewString())
	log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("new WS connection")

	conn := &WsSignalConn{
		conn: ws,
		send: make(chan core.Frame, 32),
	}
	if ctl.ReadLimit > 0 {
		ws.SetReadLimit(ctl.ReadLimit)
	}

	ctl.Hub.Register(sid, conn)
	ctx, cancel := context.WithCancel(ctx)

	go ctl.writePump(ctx, conn)
	go func() {
		defer cancel()
		ctl.readPump(ctx, sid, conn)
	}()

	// The client needs its transport id before it can be addressed.
	ctl.Hub.SendToConn(sid, "connected", connectedEvent{SocketID: sid})
}
