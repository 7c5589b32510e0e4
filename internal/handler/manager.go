package handler

import (
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Client представляет собой одно WebSocket соединение с идентификатором пользователя.
type Client struct {
	UserID uuid.UUID
	Conn   *websocket.Conn
	send   chan []byte // Канал для отправки сообщений этому клиенту
}

// ConnectionManager управляет активными WebSocket соединениями.
// Реализует service.ClientNotifier: сервис сессий пушит сюда каждый
// опубликованный снимок состояния.
type ConnectionManager struct {
	clients    map[uuid.UUID]*Client // Карта userID -> Client
	register   chan *Client          // Канал для регистрации нового клиента
	unregister chan uuid.UUID        // Канал для удаления клиента (по userID)
	mu         sync.RWMutex          // Мьютекс для защиты доступа к clients
	logger     *zap.Logger
}

// NewConnectionManager создает и запускает новый менеджер соединений.
func NewConnectionManager(logger *zap.Logger) *ConnectionManager {
	m := &ConnectionManager{
		clients:    make(map[uuid.UUID]*Client),
		register:   make(chan *Client),
		unregister: make(chan uuid.UUID),
		logger:     logger.Named("ConnectionManager"),
	}
	go m.run() // Запускаем цикл управления в отдельной горутине
	return m
}

// run запускает основной цикл менеджера для обработки регистрации/дерегистрации.
func (m *ConnectionManager) run() {
	m.logger.Info("ConnectionManager запущен")
	for {
		select {
		case client := <-m.register:
			m.logger.Debug("Регистрация клиента", zap.Stringer("userID", client.UserID))
			m.mu.Lock()
			// Если клиент с таким UserID уже есть, закрываем старое соединение
			if oldClient, ok := m.clients[client.UserID]; ok {
				m.logger.Debug("Закрытие старого соединения", zap.Stringer("userID", client.UserID))
				close(oldClient.send)
				_ = oldClient.Conn.Close()
			}
			m.clients[client.UserID] = client
			m.mu.Unlock()

		case userID := <-m.unregister:
			m.mu.Lock()
			if client, ok := m.clients[userID]; ok {
				m.logger.Debug("Дерегистрация клиента", zap.Stringer("userID", userID))
				delete(m.clients, userID)
				close(client.send)
				// Соединение закрывается в readPump/writePump клиента
			}
			m.mu.Unlock()
		}
	}
}

// RegisterClient регистрирует нового клиента.
func (m *ConnectionManager) RegisterClient(client *Client) {
	m.register <- client
}

// UnregisterClient удаляет клиента.
func (m *ConnectionManager) UnregisterClient(userID uuid.UUID) {
	m.unregister <- userID
}

// SendToUser отправляет сообщение конкретному пользователю. Оффлайн-пользователь
// или переполненная очередь отправки не считаются ошибкой: снимок состояния
// все равно уходит в очередь client_updates.
func (m *ConnectionManager) SendToUser(userID uuid.UUID, message []byte) {
	m.mu.RLock()
	client, ok := m.clients[userID]
	m.mu.RUnlock()

	if !ok {
		m.logger.Debug("Пользователь оффлайн, снимок не доставлен", zap.Stringer("userID", userID))
		return
	}

	select {
	case client.send <- message:
	default:
		// Канал переполнен или закрыт (клиент отключается)
		m.logger.Warn("Очередь отправки переполнена, снимок отброшен", zap.Stringer("userID", userID))
	}
}
