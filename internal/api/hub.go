package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"sats_display/internal/domain"
	"sats_display/internal/infra"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	sendBuffer = 8
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // storefront pages may live on another origin
	},
}

// RateMessage is pushed to websocket clients after every upstream fetch.
type RateMessage struct {
	Type      string    `json:"type"`
	Pair      string    `json:"pair"`
	Rate      string    `json:"rate"`
	FetchedAt time.Time `json:"fetched_at"`
}

// RateHub fans fresh rates out to connected websocket clients.
// Slow clients whose buffer is full miss updates rather than block the hub.
type RateHub struct {
	mu      sync.RWMutex
	clients map[chan []byte]struct{}
	metrics *infra.Metrics
	logger  *slog.Logger
}

// NewRateHub creates an empty hub.
func NewRateHub(logger *slog.Logger) *RateHub {
	if logger == nil {
		logger = slog.Default()
	}
	return &RateHub{
		clients: make(map[chan []byte]struct{}),
		metrics: infra.GlobalMetrics,
		logger:  logger.With("component", "rate_hub"),
	}
}

// Broadcast sends rate to every client. Suitable for RateService.OnUpdate.
func (h *RateHub) Broadcast(rate domain.ExchangeRate) {
	msg, err := json.Marshal(RateMessage{
		Type:      "rate",
		Pair:      rate.Pair.String(),
		Rate:      rate.Rate.String(),
		FetchedAt: rate.FetchedAt,
	})
	if err != nil {
		h.logger.Error("failed to encode rate message", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.clients {
		select {
		case ch <- msg:
		default:
		}
	}
}

// Clients returns the number of connected clients.
func (h *RateHub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *RateHub) register() chan []byte {
	ch := make(chan []byte, sendBuffer)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	h.metrics.IncrementClients()
	return ch
}

func (h *RateHub) unregister(ch chan []byte) {
	h.mu.Lock()
	if _, ok := h.clients[ch]; ok {
		delete(h.clients, ch)
		close(ch)
		h.metrics.DecrementClients()
	}
	h.mu.Unlock()
}

// ServeWS upgrades the request and streams rate messages until the client leaves.
// GET /ws/rates
func (h *RateHub) ServeWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("failed to upgrade to websocket", "error", err, "ip", c.ClientIP())
		return
	}

	send := h.register()
	h.logger.Debug("rate websocket connected", "ip", c.ClientIP())

	go h.writePump(conn, send)
	h.readPump(conn, send)
}

// readPump only drains control frames; clients never send data.
func (h *RateHub) readPump(conn *websocket.Conn, send chan []byte) {
	defer func() {
		h.unregister(send)
		conn.Close()
	}()

	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn("rate websocket read error", "error", err)
			}
			return
		}
	}
}

func (h *RateHub) writePump(conn *websocket.Conn, send chan []byte) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case msg, ok := <-send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
