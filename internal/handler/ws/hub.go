package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"PendlePulse/internal/domain/models"
	domrepo "PendlePulse/internal/domain/repository"
	xhttp "PendlePulse/pkg/http"
	applogger "PendlePulse/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	wsSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pendlepulse_ws_subscribers",
		Help: "Connected websocket snapshot subscribers",
	})
	wsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pendlepulse_ws_dropped_total",
		Help: "Snapshot frames dropped for slow subscribers",
	})
)

// Config holds hub settings.
type Config struct {
	SendBuffer   int           // per-subscriber queue, default 64
	PingInterval time.Duration // default 30s
	WriteTimeout time.Duration // default 10s
}

type subscriber struct {
	marketID string
	send     chan []byte
}

// Hub fans persisted snapshots out to websocket subscribers.
type Hub struct {
	cfg      Config
	upgrader websocket.Upgrader
	l        *applogger.Logger

	mu      sync.RWMutex
	subs    map[*subscriber]struct{}
	closed  bool
	dropped atomic.Int64
	wg      sync.WaitGroup
}

var _ domrepo.SnapshotNotifier = (*Hub)(nil)

func NewHub(cfg Config, l *applogger.Logger) *Hub {
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = 64
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	return &Hub{
		cfg: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		l:    l,
		subs: make(map[*subscriber]struct{}),
	}
}

func (h *Hub) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws/snapshots", h.Serve)
}

// Notify never blocks; a full subscriber queue drops the frame.
func (h *Hub) Notify(s *models.Snapshot) {
	if s == nil {
		return
	}
	frame, err := json.Marshal(models.NewMarketView(s))
	if err != nil {
		h.l.Error("ws encode snapshot", applogger.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs {
		if sub.marketID != "" && sub.marketID != s.MarketID {
			continue
		}
		select {
		case sub.send <- frame:
		default:
			h.dropped.Add(1)
			wsDropped.Inc()
		}
	}
}

// Subscribers returns the number of connected clients.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Dropped returns the number of frames dropped for slow subscribers.
func (h *Hub) Dropped() int64 { return h.dropped.Load() }

// Serve upgrades the request and streams snapshots, optionally filtered by market_id.
func (h *Hub) Serve(c echo.Context) error {
	var req models.StreamRequest
	if errs := xhttp.ReadAndValidateRequest(c, &req); errs != nil {
		return xhttp.BadRequestResponse(c, errs)
	}
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.l.Warn("ws upgrade failed", applogger.Error(err))
		return nil
	}
	sub := &subscriber{
		marketID: req.MarketID,
		send:     make(chan []byte, h.cfg.SendBuffer),
	}
	if !h.add(sub) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(time.Second))
		return conn.Close()
	}

	h.wg.Add(1)
	go h.writePump(conn, sub)
	h.readPump(conn, sub)
	return nil
}

func (h *Hub) add(sub *subscriber) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.subs[sub] = struct{}{}
	wsSubscribers.Inc()
	h.l.Debug("ws subscriber connected", applogger.String("market_id", sub.marketID))
	return true
}

func (h *Hub) remove(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[sub]; !ok {
		return
	}
	delete(h.subs, sub)
	close(sub.send)
	wsSubscribers.Dec()
}

// readPump discards client frames and detects close.
func (h *Hub) readPump(conn *websocket.Conn, sub *subscriber) {
	defer h.remove(sub)
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(2 * h.cfg.PingInterval))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(2 * h.cfg.PingInterval))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(conn *websocket.Conn, sub *subscriber) {
	defer h.wg.Done()
	ticker := time.NewTicker(h.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case frame, ok := <-sub.send:
			_ = conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(h.cfg.WriteTimeout)); err != nil {
				return
			}
		}
	}
}

// Close disconnects every subscriber and waits for their writers to exit.
func (h *Hub) Close() error {
	h.mu.Lock()
	h.closed = true
	for sub := range h.subs {
		delete(h.subs, sub)
		close(sub.send)
		wsSubscribers.Dec()
	}
	h.mu.Unlock()
	h.wg.Wait()
	return nil
}
