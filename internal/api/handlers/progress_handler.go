package handlers

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// ProgressHandler streams pipeline stage transitions to WebSocket
// subscribers. It implements the orchestrator's Broadcaster interface so
// long-running vets can be watched live.
type ProgressHandler struct {
	logger      *logrus.Logger
	upgrader    websocket.Upgrader
	clients     map[string][]*websocket.Conn
	clientMutex sync.RWMutex
	broadcast   chan ProgressMessage
	done        chan struct{}
}

// ProgressMessage is one stage transition for one request.
type ProgressMessage struct {
	RequestID string `json:"request_id"`
	Stage     string `json:"stage"`
	Detail    string `json:"detail,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

func NewProgressHandler(logger *logrus.Logger) *ProgressHandler {
	return &ProgressHandler{
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		clients:   make(map[string][]*websocket.Conn),
		broadcast: make(chan ProgressMessage, 100),
		done:      make(chan struct{}),
	}
}

// Start launches the broadcast loop.
func (h *ProgressHandler) Start() {
	go h.runBroadcaster()
}

// Stop ends the broadcast loop and closes all client connections.
func (h *ProgressHandler) Stop() {
	close(h.done)

	h.clientMutex.Lock()
	defer h.clientMutex.Unlock()
	for id, conns := range h.clients {
		for _, conn := range conns {
			conn.Close()
		}
		delete(h.clients, id)
	}
}

// Publish satisfies the orchestrator's Broadcaster interface. Events are
// dropped rather than blocking the pipeline when the channel is full.
func (h *ProgressHandler) Publish(requestID, stage, detail string) {
	msg := ProgressMessage{
		RequestID: requestID,
		Stage:     stage,
		Detail:    detail,
		Timestamp: time.Now().Unix(),
	}

	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("Progress channel is full, dropping message")
	}
}

func (h *ProgressHandler) runBroadcaster() {
	for {
		select {
		case <-h.done:
			return
		case msg := <-h.broadcast:
			h.deliver(msg)
		}
	}
}

func (h *ProgressHandler) deliver(msg ProgressMessage) {
	h.clientMutex.RLock()
	var stale []*websocket.Conn
	for id, conns := range h.clients {
		// "all" subscribers see every request.
		if id != msg.RequestID && id != "all" {
			continue
		}
		for _, conn := range conns {
			if err := conn.WriteJSON(msg); err != nil {
				h.logger.WithError(err).Warn("Failed to write to WebSocket client")
				stale = append(stale, conn)
			}
		}
	}
	h.clientMutex.RUnlock()

	if len(stale) > 0 {
		h.clientMutex.Lock()
		for _, dead := range stale {
			dead.Close()
			for id, conns := range h.clients {
				h.clients[id] = removeConn(conns, dead)
				if len(h.clients[id]) == 0 {
					delete(h.clients, id)
				}
			}
		}
		h.clientMutex.Unlock()
	}
}

func removeConn(conns []*websocket.Conn, target *websocket.Conn) []*websocket.Conn {
	out := conns[:0]
	for _, c := range conns {
		if c != target {
			out = append(out, c)
		}
	}
	return out
}

// HandleWebSocket upgrades the connection and subscribes it to one
// request's progress stream.
// GET /ws/vet/:request_id
func (h *ProgressHandler) HandleWebSocket(c *gin.Context) {
	requestID := c.Param("request_id")
	if requestID == "" {
		requestID = "all"
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.WithError(err).Error("Failed to upgrade to WebSocket")
		return
	}
	defer conn.Close()

	h.clientMutex.Lock()
	h.clients[requestID] = append(h.clients[requestID], conn)
	h.clientMutex.Unlock()

	h.logger.WithField("request_id", requestID).Info("WebSocket client connected")

	// Hold the connection open until the client goes away.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.WithError(err).Warn("WebSocket error")
			}
			break
		}
	}

	h.clientMutex.Lock()
	h.clients[requestID] = removeConn(h.clients[requestID], conn)
	if len(h.clients[requestID]) == 0 {
		delete(h.clients, requestID)
	}
	h.clientMutex.Unlock()

	h.logger.WithField("request_id", requestID).Info("WebSocket client disconnected")
}
