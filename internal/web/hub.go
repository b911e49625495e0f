package web

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Hub раздает снимки состояния всем подключенным браузерам.
// Единственный пишущий в сокеты — цикл Run; Register сериализуется с ним
// через общий мьютекс, поэтому приветственный снимок не гонится с бродкастом.
type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]string // conn -> client id
	msgCh   chan []byte
	logger  *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[*websocket.Conn]string),
		msgCh:   make(chan []byte, 64),
		logger:  logger.Named("ws-hub"),
	}
}

// Run качает сообщения из очереди в сокеты до отмены контекста.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case msg := <-h.msgCh:
			h.mu.Lock()
			for conn, id := range h.clients {
				if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					h.logger.Debug("dropping client", zap.String("client_id", id), zap.Error(err))
					conn.Close()
					delete(h.clients, conn)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast ставит сообщение в очередь рассылки.
// Если очередь забита, сообщение отбрасывается: браузеры переживут пропуск,
// а вот тормозить прием телеметрии из-за медленного клиента нельзя.
func (h *Hub) Broadcast(data any) {
	msg, err := json.Marshal(data)
	if err != nil {
		h.logger.Error("failed to marshal broadcast", zap.Error(err))
		return
	}
	select {
	case h.msgCh <- msg:
	default:
	}
}

// Register добавляет клиента и шлет ему приветственный снимок одним
// атомарным шагом. Возвращает id клиента для логов.
func (h *Hub) Register(conn *websocket.Conn, initial any) (string, error) {
	msg, err := json.Marshal(initial)
	if err != nil {
		return "", err
	}

	id := uuid.New().String()

	h.mu.Lock()
	defer h.mu.Unlock()
	if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
		return "", err
	}
	h.clients[conn] = id
	return id, nil
}

func (h *Hub) Unregister(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
}

// ClientCount — сколько браузеров подключено сейчас.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		conn.Close()
		delete(h.clients, conn)
	}
}
