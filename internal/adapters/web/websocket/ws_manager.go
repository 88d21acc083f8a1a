package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	gws "github.com/gorilla/websocket"
	"github.com/lcalzada-xor/apmac/internal/core/domain"
	"github.com/lcalzada-xor/apmac/internal/core/ports"
)

// Message types sent to clients.
const (
	TypeStatus       = "status"
	TypeStationEvent = "station"
)

// WSMessage is the envelope of every message pushed to clients.
type WSMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// WSManager pushes station events and periodic BSS status to websocket
// clients. It implements ports.StationObserver; events are queued and sent
// from a separate goroutine so the MAC never waits on a slow client.
type WSManager struct {
	Service  ports.NetworkService
	Clients  map[*gws.Conn]struct{}
	Interval time.Duration

	upgrader gws.Upgrader
	events   chan domain.StationEvent
	mu       sync.Mutex
}

// NewWSManager creates a hub. With no allowed origins only same-origin
// requests are upgraded.
func NewWSManager(service ports.NetworkService, allowedOrigins ...string) *WSManager {
	m := &WSManager{
		Service:  service,
		Clients:  make(map[*gws.Conn]struct{}),
		Interval: 2 * time.Second,
		events:   make(chan domain.StationEvent, 256),
	}
	m.upgrader = gws.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || slices.Contains(allowedOrigins, origin) {
				return true
			}
			slog.Warn("WebSocket origin rejected", "origin", origin)
			return false
		},
	}
	return m
}

// Start runs the broadcaster until ctx is done.
func (m *WSManager) Start(ctx context.Context) {
	go m.processAndBroadcast(ctx)
}

// OnStationEvent implements ports.StationObserver.
func (m *WSManager) OnStationEvent(_ context.Context, ev domain.StationEvent) {
	select {
	case m.events <- ev:
	default:
		slog.Debug("WebSocket event queue full, dropping", "station", ev.Station.MAC, "type", ev.Type)
	}
}

// HandleWebSocket upgrades the request and registers the client.
func (m *WSManager) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("WebSocket upgrade failed", "error", err)
		return
	}

	m.mu.Lock()
	m.Clients[conn] = struct{}{}
	m.mu.Unlock()
	slog.Info("WebSocket connected", "remote", r.RemoteAddr)

	go func() {
		defer conn.Close()
		defer func() {
			m.mu.Lock()
			delete(m.Clients, conn)
			m.mu.Unlock()
			slog.Info("WebSocket disconnected", "remote", r.RemoteAddr)
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// ClientCount returns the number of connected clients.
func (m *WSManager) ClientCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Clients)
}

func (m *WSManager) processAndBroadcast(ctx context.Context) {
	ticker := time.NewTicker(m.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-m.events:
			m.broadcastMessage(WSMessage{Type: TypeStationEvent, Payload: ev})
		case <-ticker.C:
			m.broadcastStatus(ctx)
		}
	}
}

func (m *WSManager) broadcastStatus(ctx context.Context) {
	if m.ClientCount() == 0 {
		return
	}
	status, err := m.Service.Status(ctx)
	if err != nil {
		slog.Warn("Status snapshot failed", "error", err)
		return
	}
	m.broadcastMessage(WSMessage{Type: TypeStatus, Payload: status})
}

func (m *WSManager) broadcastMessage(msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("WebSocket marshal failed", "type", msg.Type, "error", err)
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for conn := range m.Clients {
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteMessage(gws.TextMessage, data); err != nil {
			conn.Close()
			delete(m.Clients, conn)
		}
	}
}
