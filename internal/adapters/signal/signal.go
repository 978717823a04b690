package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/dkeye/Chat/internal/app/orch"
	"github.com/dkeye/Chat/internal/config"
	"github.com/dkeye/Chat/internal/core"
	"github.com/dkeye/Chat/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrClosed       = errors.New("connection closed")
)

// Options tune the per-connection transport.
type Options struct {
	ReadLimit    int64
	SendBuffer   int
	PingPeriod   time.Duration
	PongWait     time.Duration
	WriteWait    time.Duration
	MessageRate  rate.Limit
	MessageBurst int
	// CheckOrigin decides whether a browser origin may open a socket.
	// Requests without an Origin header are always accepted.
	CheckOrigin func(r *http.Request) bool
}

func OptionsFromConfig(cfg *config.Config, checkOrigin func(r *http.Request) bool) Options {
	return Options{
		ReadLimit:    cfg.ReadLimit,
		SendBuffer:   cfg.SendBuffer,
		PingPeriod:   cfg.PingPeriod,
		PongWait:     cfg.PongWait(),
		WriteWait:    cfg.WriteWait,
		MessageRate:  rate.Limit(cfg.MessageRate),
		MessageBurst: cfg.MessageBurst,
		CheckOrigin:  checkOrigin,
	}
}

type SignalWSController struct {
	Orch  *orch.Orchestrator
	Hub   *Hub
	Joins *JoinLimiter

	opts     Options
	upgrader websocket.Upgrader
}

func NewSignalWSController(o *orch.Orchestrator, hub *Hub, joins *JoinLimiter, opts Options) *SignalWSController {
	ctl := &SignalWSController{
		Orch:  o,
		Hub:   hub,
		Joins: joins,
		opts:  opts,
	}
	ctl.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			if r.Header.Get("Origin") == "" || opts.CheckOrigin == nil {
				return true
			}
			return opts.CheckOrigin(r)
		},
	}
	return ctl
}

type wsSignalConn struct {
	conn    *websocket.Conn
	send    chan core.Frame
	limiter *rate.Limiter

	mu     sync.RWMutex
	closed bool
}

func (c *wsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClosed
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *wsSignalConn) Close() {
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

// HandleSignal upgrades the request and starts the connection pumps. The
// connection lives until the peer goes away or ctx is cancelled.
func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	sid := domain.NewConnID()
	client := c.GetString(ClientTokenKey)

	ws, err := ctl.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	if ctl.opts.ReadLimit > 0 {
		ws.SetReadLimit(ctl.opts.ReadLimit)
	}

	buf := ctl.opts.SendBuffer
	if buf <= 0 {
		buf = 32
	}
	limit := ctl.opts.MessageRate
	if limit <= 0 {
		limit = rate.Inf
	}
	conn := &wsSignalConn{
		conn:    ws,
		send:    make(chan core.Frame, buf),
		limiter: rate.NewLimiter(limit, ctl.opts.MessageBurst),
	}
	ctl.Hub.Register(sid, conn)
	log.Info().Str("module", "signal").Str("conn", string(sid)).Str("client", client).Str("addr", c.Request.RemoteAddr).Msg("new WS connection")

	ctx, cancel := context.WithCancel(ctx)
	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, cancel, sid, conn)
}

// ClientTokenKey is the gin context key holding the browser's client token.
const ClientTokenKey = "client_token"
