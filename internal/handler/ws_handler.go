package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"ecosort-server/shared/middleware"
	"ecosort-server/shared/models"
)

const (
	// Время, разрешенное для записи сообщения клиенту.
	writeWait = 10 * time.Second
	// Время, разрешенное для чтения следующего pong сообщения от клиента.
	pongWait = 60 * time.Second
	// Отправлять пинги клиенту с этим периодом. Должно быть меньше pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Максимальный размер сообщения, разрешенный от клиента.
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Проверяем origin запроса (в продакшене здесь должна быть проверка)
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketHandler обрабатывает запросы на установку WebSocket соединения.
// Клиент через это соединение только наблюдает: сервер пушит снимки
// состояния его сессий, входящие сообщения игнорируются.
type WebSocketHandler struct {
	manager  *ConnectionManager
	verifier middleware.TokenVerifier
	logger   *zap.Logger
}

// NewWebSocketHandler создает новый обработчик WebSocket.
func NewWebSocketHandler(manager *ConnectionManager, verifier middleware.TokenVerifier, logger *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		manager:  manager,
		verifier: verifier,
		logger:   logger.Named("WebSocketHandler"),
	}
}

// ServeWS обрабатывает входящий HTTP запрос для WebSocket.
// Токен передается query-параметром 'token', так как браузерный WebSocket
// API не позволяет выставить заголовок Authorization.
func (h *WebSocketHandler) ServeWS(c *gin.Context) {
	tokenString := c.Query("token")
	if tokenString == "" {
		h.logger.Warn("Missing 'token' query parameter")
		c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{Error: "Unauthorized: Missing token"})
		return
	}

	claims, err := h.verifier(c.Request.Context(), tokenString)
	if err != nil {
		h.logger.Warn("Invalid token on websocket upgrade", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{Error: "Unauthorized: Invalid token"})
		return
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		h.logger.Error("Claims UserID failed to parse", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{Error: "Unauthorized: Invalid token claims"})
		return
	}

	// Обновляем соединение до WebSocket
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Не пишем ошибку в ответ, так как upgrader уже это сделал
		h.logger.Error("Failed to upgrade connection", zap.Error(err), zap.Stringer("userID", userID))
		return
	}

	h.logger.Info("WebSocket connection established", zap.Stringer("userID", userID))

	client := &Client{
		UserID: userID,
		Conn:   conn,
		send:   make(chan []byte, 256), // Буферизованный канал для отправки
	}

	h.manager.RegisterClient(client)

	// Запускаем горутины для чтения и записи в этом соединении
	clientLogger := h.logger.With(zap.Stringer("userID", userID))
	go client.writePump(clientLogger)
	go client.readPump(h.manager, clientLogger)
}

// readPump откачивает сообщения от WebSocket соединения.
func (c *Client) readPump(manager *ConnectionManager, logger *zap.Logger) {
	defer func() {
		manager.UnregisterClient(c.UserID)
		_ = c.Conn.Close() // Закрываем соединение при выходе из readPump
		logger.Debug("readPump finished")
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("WebSocket read error", zap.Error(err))
			} else {
				logger.Debug("WebSocket connection closed")
			}
			break
		}
		logger.Warn("Received unexpected message from client (ignored)", zap.ByteString("message", message))
	}
}

// writePump откачивает сообщения из канала send в WebSocket соединение.
func (c *Client) writePump(logger *zap.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		logger.Debug("writePump finished")
	}()
	for {
		select {
		case message, ok := <-c.send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Менеджер закрыл канал - прощаемся
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logger.Error("Failed to write message", zap.Error(err))
				return
			}

			// Отправляем накопившиеся сообщения из очереди за раз
			n := len(c.send)
			for i := 0; i < n; i++ {
				queued := <-c.send
				if err := c.Conn.WriteMessage(websocket.TextMessage, queued); err != nil {
					logger.Error("Failed to write queued message", zap.Error(err))
					return
				}
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				logger.Warn("Failed to send ping", zap.Error(err))
				return
			}
		}
	}
}
