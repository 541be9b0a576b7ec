package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/akolanti/DocAssist/internal/adapter"
	"github.com/akolanti/DocAssist/internal/config"
	"github.com/akolanti/DocAssist/internal/notify"
	"github.com/akolanti/DocAssist/pkg/logger_i"
	"github.com/gorilla/websocket"
)

const maxClientMessage = 4 << 10

// newUpgrader keeps gorilla's same-origin check unless every request has to
// carry a token, in which case any origin may connect.
func newUpgrader(anyOrigin bool) websocket.Upgrader {
	u := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
	if anyOrigin {
		u.CheckOrigin = func(*http.Request) bool { return true }
	}
	return u
}

// eventClient forwards bus events to one websocket. The bus delivers
// synchronously, so a slow client loses events instead of blocking writers.
type eventClient struct {
	conn   *websocket.Conn
	send   chan notify.Event
	done   chan struct{}
	logger *logger_i.Logger
}

// Events upgrades to a websocket and streams every change notification.
// Clients only read; anything they send is discarded.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	log := logRH.WithTrace(r.Context())
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &eventClient{
		conn:   conn,
		send:   make(chan notify.Event, config.WebsocketSendBuffer),
		done:   make(chan struct{}),
		logger: log.With("remote", r.RemoteAddr),
	}
	unsubscribe := h.deps.Bus.SubscribeAll(c.enqueue)
	defer unsubscribe()

	c.logger.Info("event stream opened")
	go c.readPump()
	c.writePump(h.closing)
	c.logger.Info("event stream closed")
}

func (c *eventClient) enqueue(_ context.Context, e notify.Event) {
	select {
	case c.send <- e:
	default:
		c.logger.Warn("event stream buffer full, dropping event", "topic", e.Topic, "key", e.Key)
	}
}

func (c *eventClient) readPump() {
	defer close(c.done)
	c.conn.SetReadLimit(maxClientMessage)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.Warn("event stream read error", "error", err)
			}
			return
		}
	}
}

func (c *eventClient) writePump(closing <-chan struct{}) {
	defer c.conn.Close()
	for {
		select {
		case <-c.done:
			return
		case <-closing:
			_ = c.conn.SetWriteDeadline(time.Now().Add(config.WebsocketWriteTimeout))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
			return
		case e := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(config.WebsocketWriteTimeout))
			if err := c.conn.WriteJSON(adapter.ToEventMessage(e)); err != nil {
				c.logger.Warn("event stream write failed", "error", err)
				return
			}
		}
	}
}
