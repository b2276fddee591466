package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/ayusman/lipread/internal/app"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

const (
	writeWait   = 5 * time.Second
	clientQueue = 16
)

// EventSource publishes app events. *app.App implements it.
type EventSource interface {
	Subscribe(fn func(app.Event)) func()
}

// EventsHandler broadcasts predictions and training results via WebSocket.
type EventsHandler struct {
	logger  zerolog.Logger
	clients map[*websocket.Conn]chan []byte
	mu      sync.RWMutex
}

// NewEventsHandler creates an EventsHandler fed by src.
func NewEventsHandler(src EventSource, logger zerolog.Logger) *EventsHandler {
	h := &EventsHandler{
		logger:  logger,
		clients: make(map[*websocket.Conn]chan []byte),
	}
	src.Subscribe(h.broadcast)
	return h
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade error")
		return
	}
	defer conn.Close()

	queue := make(chan []byte, clientQueue)

	h.mu.Lock()
	h.clients[conn] = queue
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
	}()

	// Reads only detect the client going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case msg := <-queue:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		}
	}
}

// Clients returns the number of connected clients.
func (h *EventsHandler) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// broadcast queues e for every client. Slow clients drop events.
func (h *EventsHandler) broadcast(e app.Event) {
	msg, err := json.Marshal(e)
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for conn, queue := range h.clients {
		select {
		case queue <- msg:
		default:
			h.logger.Debug().Str("remote", conn.RemoteAddr().String()).Msg("dropping event for slow client")
		}
	}
}
