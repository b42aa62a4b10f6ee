package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// RecomputeEvent describes websocket payloads emitted during recompute runs.
type RecomputeEvent struct {
	Type      string    `json:"type"`
	JobID     string    `json:"job_id"`
	Total     int64     `json:"total,omitempty"`
	Processed int       `json:"processed,omitempty"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// wsClient wraps a websocket connection with write locking.
type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// RecomputeNotifier keeps track of active websocket clients and broadcasts
// recompute progress events.
type RecomputeNotifier struct {
	mu         sync.Mutex
	clients    map[*wsClient]struct{}
	lastStatus *RecomputeEvent
}

// NewRecomputeNotifier constructs a notifier instance.
func NewRecomputeNotifier() *RecomputeNotifier {
	return &RecomputeNotifier{clients: make(map[*wsClient]struct{})}
}

// Register attaches a websocket connection and returns a client handle. The
// latest status event, if any, is replayed so new subscribers catch up.
func (n *RecomputeNotifier) Register(conn *websocket.Conn) *wsClient {
	client := &wsClient{conn: conn}
	n.mu.Lock()
	n.clients[client] = struct{}{}
	status := n.lastStatus
	n.mu.Unlock()

	if status != nil {
		_ = client.writeJSON(*status)
	}
	return client
}

// Unregister removes the websocket client from the notifier and closes the socket.
func (n *RecomputeNotifier) Unregister(client *wsClient) {
	if client == nil {
		return
	}
	n.mu.Lock()
	delete(n.clients, client)
	n.mu.Unlock()
	_ = client.conn.Close()
}

// Broadcast sends the supplied event to all registered websocket clients.
func (n *RecomputeNotifier) Broadcast(event RecomputeEvent) {
	event.Timestamp = time.Now().UTC()

	n.mu.Lock()
	n.lastStatus = &event
	for client := range n.clients {
		if err := client.writeJSON(event); err != nil {
			delete(n.clients, client)
			_ = client.conn.Close()
		}
	}
	n.mu.Unlock()
}

// LastStatus returns a copy of the most recent broadcast event.
func (n *RecomputeNotifier) LastStatus() *RecomputeEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.lastStatus == nil {
		return nil
	}
	copy := *n.lastStatus
	return &copy
}

func (c *wsClient) writeJSON(payload interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.conn.WriteJSON(payload)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func (s *Server) handleRecomputeStream(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Warn("upgrade recompute stream")
		return
	}
	client := s.notifier.Register(conn)
	defer s.notifier.Unregister(client)

	// Reads are discarded; the socket exists to push progress. Returning on
	// read error tears the client down.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
