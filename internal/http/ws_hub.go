package httpapi

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"mediroute-data/internal/domain"
	"mediroute-data/internal/service"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	wsSendBuffer = 256
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
)

// ErrClientBacklog 客户端发送队列已满
var ErrClientBacklog = errors.New("websocket client send buffer full")

// WSMessage 推送给司机端的消息
type WSMessage struct {
	Type         string               `json:"type"`
	Message      string               `json:"message,omitempty"`
	Notification *domain.Notification `json:"notification,omitempty"`
	Timestamp    time.Time            `json:"timestamp"`
}

type wsClient struct {
	email string
	conn  *websocket.Conn
	send  chan WSMessage
}

// Hub 按司机邮箱管理 WebSocket 连接，作为 Mailbox 的推送通道
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]map[*wsClient]struct{}
	upgrader websocket.Upgrader
	logger   *zap.Logger
	now      func() time.Time
}

var _ service.Notifier = (*Hub)(nil)

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients: map[string]map[*wsClient]struct{}{},
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger,
		now:    time.Now,
	}
}

func (h *Hub) Name() string { return "websocket" }

// Notify 非阻塞投递给该司机的所有在线连接
func (h *Hub) Notify(_ context.Context, n *domain.Notification) error {
	msg := WSMessage{Type: "notification", Notification: n, Timestamp: h.now()}

	h.mu.RLock()
	defer h.mu.RUnlock()
	var dropped int
	for c := range h.clients[domain.NormalizeEmail(n.DriverEmail)] {
		select {
		case c.send <- msg:
		default:
			dropped++
		}
	}
	if dropped > 0 {
		return ErrClientBacklog
	}
	return nil
}

// Connected 当前在线连接数
func (h *Hub) Connected(email string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[domain.NormalizeEmail(email)])
}

// ServeWS GET /ws/notifications?email=
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	email := domain.NormalizeEmail(r.URL.Query().Get("email"))
	if email == "" {
		writeJSON(w, http.StatusBadRequest, Fail("email is required"))
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	c := &wsClient{email: email, conn: conn, send: make(chan WSMessage, wsSendBuffer)}
	h.register(c)
	h.logger.Info("Driver connected", zap.String("driver_email", email))

	c.send <- WSMessage{Type: "welcome", Message: "Connected to notification stream", Timestamp: h.now()}

	go h.writePump(c)
	go h.readPump(c)
}

func (h *Hub) register(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.email]
	if !ok {
		set = map[*wsClient]struct{}{}
		h.clients[c.email] = set
	}
	set[c] = struct{}{}
}

func (h *Hub) unregister(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.clients[c.email]
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.email)
	}
	close(c.send)
}

// readPump 只处理 pong 和关闭；客户端发来的内容忽略
func (h *Hub) readPump(c *wsClient) {
	defer func() {
		h.unregister(c)
		_ = c.conn.Close()
		h.logger.Info("Driver disconnected", zap.String("driver_email", c.email))
	}()

	c.conn.SetReadLimit(4096)
	_ = c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn("WebSocket read error", zap.String("driver_email", c.email), zap.Error(err))
			}
			return
		}
	}
}

func (h *Hub) writePump(c *wsClient) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
