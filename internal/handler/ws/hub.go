package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"BuzzRadar/internal/domain/models"
	xlogger "BuzzRadar/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
	sendBuffer = 16
)

// Hub pushes alert transitions to connected dashboard clients over
// websockets. It implements the alert publisher interface, so it can be
// fanned out next to the Kafka sink.
type Hub struct {
	logger   *xlogger.Logger
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*client]struct{}
	closed  bool
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

func NewHub(logger *xlogger.Logger) *Hub {
	return &Hub{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Dashboard is same-deployment; origin checks stay with the
			// CORS middleware on the REST side.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
}

func (h *Hub) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws/alerts", h.Serve)
}

// Serve upgrades the connection and streams transitions until the client
// disconnects.
func (h *Hub) Serve(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", xlogger.Error(err))
		return nil
	}

	cl := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return nil
	}
	h.clients[cl] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("websocket client connected", xlogger.Int("clients", n))

	go h.writePump(cl)
	h.readPump(cl)
	return nil
}

// Publish broadcasts one transition to every connected client. Slow clients
// are dropped rather than allowed to block the run.
func (h *Hub) Publish(_ context.Context, tr *models.AlertTransition) error {
	payload, err := json.Marshal(tr)
	if err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for cl := range h.clients {
		select {
		case cl.send <- payload:
		default:
			go h.drop(cl)
		}
	}
	return nil
}

func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for cl := range h.clients {
		close(cl.send)
		delete(h.clients, cl)
	}
	return nil
}

func (h *Hub) drop(cl *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[cl]; !ok {
		return
	}
	delete(h.clients, cl)
	close(cl.send)
	_ = cl.conn.Close()
}

func (h *Hub) readPump(cl *client) {
	defer h.drop(cl)
	cl.conn.SetReadLimit(512)
	for {
		// Clients only listen; reads exist to detect disconnects.
		if _, _, err := cl.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(cl *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = cl.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-cl.send:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = cl.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := cl.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
