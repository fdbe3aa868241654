package realtime

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/Guyuepp/go-comment-service/internal/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBufferSize = 256

	// allPosts 订阅所有帖子的事件
	allPosts = ""
)

// Client is one websocket connection subscribed to a single post, or to
// every post when postID is empty.
type Client struct {
	id     uuid.UUID
	conn   *websocket.Conn
	send   chan []byte
	postID string
	hub    *Hub
}

// Hub fans comment events out to the websocket clients of this instance
type Hub struct {
	mu       sync.Mutex
	clients  map[string]map[*Client]struct{}
	total    int
	upgrader websocket.Upgrader
	metrics  *metrics.Metrics
}

// NewHub creates a hub. allowedOrigins limits the websocket handshake; an
// empty list or "*" accepts every origin.
func NewHub(allowedOrigins []string, m *metrics.Metrics) *Hub {
	h := &Hub{
		clients: make(map[string]map[*Client]struct{}),
		metrics: m,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(allowed) == 0 {
			return true
		}
		for _, o := range allowed {
			if o == "*" || strings.EqualFold(o, origin) {
				return true
			}
		}
		return false
	}
}

// ServeWS upgrades GET /ws?postId= to a websocket subscription
func (h *Hub) ServeWS(c *gin.Context) {
	postID := strings.TrimSpace(c.Query("postId"))

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.Warnf("failed to upgrade websocket connection: %v", err)
		return
	}

	client := &Client{
		id:     uuid.New(),
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		postID: postID,
		hub:    h,
	}
	h.register(client)

	go client.writePump()
	go client.readPump()
}

// Broadcast sends frame to every client subscribed to postID and to the
// clients subscribed to all posts. Slow clients are disconnected.
func (h *Hub) Broadcast(postID string, frame any) {
	payload, err := json.Marshal(frame)
	if err != nil {
		logrus.Errorf("failed to marshal websocket frame for post %s: %v", postID, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.deliverLocked(h.clients[postID], payload)
	if postID != allPosts {
		h.deliverLocked(h.clients[allPosts], payload)
	}
}

func (h *Hub) deliverLocked(clients map[*Client]struct{}, payload []byte) {
	for client := range clients {
		select {
		case client.send <- payload:
		default:
			logrus.Warnf("websocket client %s is too slow, disconnecting", client.id)
			h.removeLocked(client)
		}
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.total
}

// Close disconnects every client
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, clients := range h.clients {
		for client := range clients {
			h.removeLocked(client)
		}
	}
}

func (h *Hub) register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[client.postID] == nil {
		h.clients[client.postID] = make(map[*Client]struct{})
	}
	h.clients[client.postID][client] = struct{}{}
	h.total++
	h.metrics.SetWebsocketClients(h.total)
	logrus.Debugf("websocket client %s subscribed to post %q", client.id, client.postID)
}

func (h *Hub) unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(client)
}

// removeLocked 关闭 send 通道，writePump 随后发送 close 帧并退出
func (h *Hub) removeLocked(client *Client) {
	clients, ok := h.clients[client.postID]
	if !ok {
		return
	}
	if _, exists := clients[client]; !exists {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.clients, client.postID)
	}
	h.total--
	h.metrics.SetWebsocketClients(h.total)
}

// readPump 只处理 pong 和关闭，客户端发来的消息直接丢弃
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logrus.Warnf("websocket client %s: %v", c.id, err)
			}
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
