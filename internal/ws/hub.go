package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/baronda/siskamling-backend/internal/logger"
)

// Subject: владелец подключения: житель или сотрудник.
// Идентификаторы жителей и сотрудников живут в разных таблицах, поэтому вид входит в ключ.
type Subject struct {
	ID   uuid.UUID
	Kind string
}

// ErrHubStopped возвращается после остановки цикла хаба.
var ErrHubStopped = errors.New("ws: hub stopped")

// Hub управляет всеми WebSocket клиентами.
type Hub struct {
	mu         sync.RWMutex
	clients    map[Subject]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan message
	done       chan struct{}
	stopOnce   sync.Once
}

// message адресуется либо одному субъекту (to), либо всем клиентам вида kind.
type message struct {
	to      *Subject
	kind    string
	role    string
	payload []byte
}

// NewHub создаёт новый хаб.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[Subject]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client, 16),
		broadcast:  make(chan message, 64),
		done:       make(chan struct{}),
	}
}

// Run запускает главный цикл хаба до отмены ctx.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.stopOnce.Do(func() { close(h.done) })
			h.closeAll()
			return
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case msg := <-h.broadcast:
			h.deliver(msg)
		}
	}
}

// Register добавляет клиента. После остановки хаба возвращает ErrHubStopped.
func (h *Hub) Register(client *Client) error {
	select {
	case h.register <- client:
		return nil
	case <-h.done:
		return ErrHubStopped
	}
}

// Unregister удаляет клиента.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// SendTo отправляет событие всем подключениям субъекта.
// Сообщение для клиента: {"type": событие, "data": полезная нагрузка}.
func (h *Hub) SendTo(to Subject, event string, data any) error {
	raw, err := encode(event, data)
	if err != nil {
		return err
	}
	return h.enqueue(message{to: &to, payload: raw})
}

// BroadcastKind отправляет событие всем подключённым субъектам вида kind.
// Непустой role дополнительно ограничивает получателей ролью.
func (h *Hub) BroadcastKind(kind, role, event string, data any) error {
	raw, err := encode(event, data)
	if err != nil {
		return err
	}
	return h.enqueue(message{kind: kind, role: role, payload: raw})
}

// enqueue не блокируется после остановки хаба, даже если буфер полон.
func (h *Hub) enqueue(msg message) error {
	select {
	case <-h.done:
		return ErrHubStopped
	default:
	}

	select {
	case h.broadcast <- msg:
		return nil
	case <-h.done:
		return ErrHubStopped
	}
}

// Online возвращает число подключений субъекта.
func (h *Hub) Online(s Subject) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[s])
}

func encode(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(map[string]any{
		"type": event,
		"data": data,
	})
	if err != nil {
		return nil, fmt.Errorf("ws: не удалось сериализовать сообщение: %w", err)
	}
	return raw, nil
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.subject]; !ok {
		h.clients[client.subject] = make(map[*Client]struct{})
	}
	h.clients[client.subject][client] = struct{}{}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.clients[client.subject]; ok {
		if _, ok := clients[client]; ok {
			delete(clients, client)
			client.closeSend()
		}
		if len(clients) == 0 {
			delete(h.clients, client.subject)
		}
	}
}

func (h *Hub) deliver(msg message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if msg.to != nil {
		for client := range h.clients[*msg.to] {
			h.push(client, msg.payload)
		}
		return
	}

	for subject, clients := range h.clients {
		if subject.Kind != msg.kind {
			continue
		}
		for client := range clients {
			if msg.role == "" || client.role == msg.role {
				h.push(client, msg.payload)
			}
		}
	}
}

// push не блокирует цикл хаба: медленный клиент отключается.
func (h *Hub) push(client *Client, payload []byte) {
	select {
	case client.send <- payload:
	default:
		go func(c *Client) {
			defer func() {
				if r := recover(); r != nil {
					logger.Entry(logrus.Fields{"panic": r, "stack": string(debug.Stack())}).Error("ws: паника при закрытии клиента")
				}
			}()
			c.Close()
		}(client)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for subject, clients := range h.clients {
		for client := range clients {
			client.closeSend()
		}
		delete(h.clients, subject)
	}
}
