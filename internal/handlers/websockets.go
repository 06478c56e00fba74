package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"power_windows/internal/broadcast"
	"power_windows/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Send/receive timing configuration and message size limits.
const (
	writeWait        = 10 * time.Second
	pongWait         = 60 * time.Second
	pingPeriod       = (pongWait * 9) / 10
	maxMsgSize       = 1 << 12 // 4 KB
	defaultInterval  = 1 * time.Second
	maxInterval      = 10 * time.Second
	maxIntervalMilli = 10_000 // 10s in ms
)

// Envelope used for WebSocket messages.
type wsEnvelope struct {
	Type  string      `json:"type"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsConnect streams door snapshots: one immediately, one per motion event and
// one every interval. A binary frame is the local configuration write: an
// 8-byte DoorConfig, acknowledged with a "config" envelope.
//
// @Summary      Door state stream
// @Description  WebSocket. Query interval=2s or interval_ms=2000 (max 10s). Send a binary 8-byte DoorConfig to reconfigure the door.
// @Tags         door
// @Router       /ws [get]
func (h *Handler) wsConnect(c *gin.Context) {
	interval := h.parseInterval(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Errorw("ws_upgrade_failed", "err", err)
		return
	}
	defer func() { _ = conn.Close() }()

	conn.SetReadLimit(maxMsgSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// Only this goroutine writes to conn; the reader hands results back.
	acks := make(chan wsEnvelope, 1)
	done := make(chan struct{})
	go h.startReader(ctx, conn, acks, done)

	sub := h.services.Watch()
	defer sub.Unsubscribe()
	changed := make(chan struct{}, 1)
	go h.forwardEvents(ctx, sub, changed)

	ticker := time.NewTicker(interval)
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		ping.Stop()
	}()

	if err := h.sendState(conn); err != nil {
		h.log.Infow("ws_write_failed_initial", "err", err)
		return
	}

	for {
		var err error
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			err = conn.WriteMessage(websocket.PingMessage, nil)
		case ack := <-acks:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err = conn.WriteJSON(ack); err == nil && ack.Error == "" {
				err = h.sendState(conn)
			}
		case <-changed:
			err = h.sendState(conn)
		case <-ticker.C:
			err = h.sendState(conn)
		}
		if err != nil {
			h.log.Infow("ws_write_failed", "err", err)
			return
		}
	}
}

// parseInterval reads ?interval=2s or ?interval_ms=2000 with bounds.
func (h *Handler) parseInterval(c *gin.Context) time.Duration {
	interval := defaultInterval

	if s := c.Query("interval"); s != "" {
		if d, err := time.ParseDuration(s); err == nil && d > 0 && d <= maxInterval {
			return d
		}
	}

	if ms := c.Query("interval_ms"); ms != "" {
		if v, err := strconv.Atoi(ms); err == nil && v > 0 && v <= maxIntervalMilli {
			return time.Duration(v) * time.Millisecond
		}
	}

	return interval
}

// startReader applies binary frames as configuration writes and detects closure.
func (h *Handler) startReader(ctx context.Context, conn *websocket.Conn, acks chan<- wsEnvelope, done chan<- struct{}) {
	defer close(done)
	for {
		typ, data, err := conn.ReadMessage()
		if err != nil {
			h.log.Infow("ws_read_closed", "err", err)
			return
		}
		if typ != websocket.BinaryMessage {
			continue
		}

		ack := wsEnvelope{Type: "config"}
		if err := h.services.WriteLocalConfig(ctx, data); err != nil {
			ack.Error = err.Error()
		}
		select {
		case acks <- ack:
		case <-ctx.Done():
			return
		}
	}
}

// forwardEvents coalesces motion events into a single pending "changed" signal.
func (h *Handler) forwardEvents(ctx context.Context, sub *broadcast.Subscription[models.MotionEvent], changed chan<- struct{}) {
	for {
		_, err := sub.Recv(ctx)
		var lagged *broadcast.LaggedError
		if err != nil && !errors.As(err, &lagged) {
			return
		}
		select {
		case changed <- struct{}{}:
		default:
		}
	}
}

func (h *Handler) sendState(conn *websocket.Conn) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(wsEnvelope{Type: "state", Data: h.services.Snapshot()})
}
