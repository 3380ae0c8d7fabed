package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"SepsisWatch/internal/domain/models"
	xlogger "SepsisWatch/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	writeWait      = 5 * time.Second
	pingInterval   = 30 * time.Second
	clientBufferSz = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// AlertHub fans high-risk assessments out to dashboard WebSocket clients.
// Implements usecase.AlertNotifier; slow clients are dropped rather than
// allowed to back-pressure the pipeline.
type AlertHub struct {
	logger *xlogger.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
}

func NewAlertHub(logger *xlogger.Logger) *AlertHub {
	return &AlertHub{
		logger:  logger,
		clients: make(map[*client]struct{}),
	}
}

func (h *AlertHub) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws/alerts", h.Serve)
}

// Serve upgrades the connection and holds it open until the client goes away.
func (h *AlertHub) Serve(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", xlogger.Error(err))
		return nil
	}

	cl := &client{conn: conn, send: make(chan []byte, clientBufferSz)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return nil
	}
	h.clients[cl] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()

	h.logger.Info("ws client connected", xlogger.Int("clients", n))

	go h.writeLoop(cl)
	h.readLoop(cl)
	return nil
}

// NotifyAlert broadcasts one alerting assessment to every connected client.
func (h *AlertHub) NotifyAlert(r *models.RiskResult) {
	b, err := json.Marshal(r)
	if err != nil {
		h.logger.Error("ws alert marshal failed", xlogger.Error(err))
		return
	}

	h.mu.Lock()
	for cl := range h.clients {
		select {
		case cl.send <- b:
		default:
			// client is not draining, cut it loose
			delete(h.clients, cl)
			close(cl.send)
		}
	}
	h.mu.Unlock()
}

// Close disconnects all clients. Called on shutdown.
func (h *AlertHub) Close() {
	h.mu.Lock()
	h.closed = true
	for cl := range h.clients {
		delete(h.clients, cl)
		close(cl.send)
	}
	h.mu.Unlock()
}

func (h *AlertHub) writeLoop(cl *client) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = cl.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-cl.send:
			if !ok {
				_ = cl.conn.WriteControl(websocket.CloseMessage, nil, time.Now().Add(writeWait))
				return
			}
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
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

// readLoop exists to detect disconnects; inbound frames are discarded.
func (h *AlertHub) readLoop(cl *client) {
	defer func() {
		h.mu.Lock()
		if _, ok := h.clients[cl]; ok {
			delete(h.clients, cl)
			close(cl.send)
		}
		h.mu.Unlock()
		_ = cl.conn.Close()
	}()

	cl.conn.SetReadLimit(512)
	for {
		if _, _, err := cl.conn.ReadMessage(); err != nil {
			return
		}
	}
}
