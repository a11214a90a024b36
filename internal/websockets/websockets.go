package websockets

import (
	"encoding/json"
	"sync"
	"time"

	"eyeshield/config"
	recordsController "eyeshield/internal/controllers/records"
	"eyeshield/internal/events"
	"eyeshield/internal/logger"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const (
	TypeStats = "dashboard.stats"

	sendBuffer   = 16
	writeTimeout = 10 * time.Second
)

// StatsSource is what the dashboard push reads after each record.
type StatsSource interface {
	Stats(recent int) recordsController.Statistics
}

type Message struct {
	Type  string                       `json:"type"`
	Event *events.Event                `json:"event,omitempty"`
	Stats recordsController.Statistics `json:"stats"`
}

type client struct {
	id   string
	send chan []byte
}

// Manager pushes record events and fresh dashboard statistics to every
// connected websocket client. Slow clients are dropped rather than blocking
// the publisher.
type Manager struct {
	mu          sync.RWMutex
	clients     map[string]*client
	stats       StatsSource
	recent      int
	unsubscribe func()
	log         logger.Logger
}

func New(eventBus *events.EventBus, stats StatsSource, config config.Config) (*Manager, error) {
	log := logger.New("websockets")
	if eventBus == nil {
		return nil, log.Function("New").ErrMsg("event bus is nil")
	}
	if stats == nil {
		return nil, log.Function("New").ErrMsg("stats source is nil")
	}

	m := &Manager{
		clients: make(map[string]*client),
		stats:   stats,
		recent:  recordsController.DefaultRecentCount,
		log:     log,
	}
	m.unsubscribe = eventBus.Subscribe(events.ChannelRecords, m.handleEvent)

	log.Function("New").Debug("websocket manager ready", "environment", config.GeneralEnvironment)
	return m, nil
}

// HandleWebSocket serves one connection until the peer goes away.
func (m *Manager) HandleWebSocket(conn *websocket.Conn) {
	log := m.log.Function("HandleWebSocket")

	if payload, err := m.encode(Message{Type: TypeStats, Stats: m.stats.Stats(m.recent)}); err == nil {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			log.Warn("initial websocket write failed", "error", err)
			return
		}
	}

	c := m.register()
	defer m.unregister(c.id)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for payload := range c.send {
			if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
				log.Er("failed to set write deadline", err, "clientID", c.id)
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				log.Warn("websocket write failed", "clientID", c.id, "error", err)
				return
			}
		}
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	m.unregister(c.id)
	<-done
}

func (m *Manager) ClientCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

func (m *Manager) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for id, c := range m.clients {
		close(c.send)
		delete(m.clients, id)
	}
}

func (m *Manager) register() *client {
	c := &client{id: uuid.New().String(), send: make(chan []byte, sendBuffer)}

	m.mu.Lock()
	m.clients[c.id] = c
	m.mu.Unlock()

	m.log.Function("register").Debug("websocket client connected", "clientID", c.id)
	return c
}

func (m *Manager) unregister(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c, ok := m.clients[id]; ok {
		close(c.send)
		delete(m.clients, id)
	}
}

func (m *Manager) handleEvent(event events.Event) {
	payload, err := m.encode(Message{
		Type:  event.Type,
		Event: &event,
		Stats: m.stats.Stats(m.recent),
	})
	if err != nil {
		return
	}

	m.broadcast(payload)
}

func (m *Manager) broadcast(payload []byte) {
	log := m.log.Function("broadcast")

	m.mu.Lock()
	defer m.mu.Unlock()

	for id, c := range m.clients {
		select {
		case c.send <- payload:
		default:
			log.Warn("dropping slow websocket client", "clientID", id)
			close(c.send)
			delete(m.clients, id)
		}
	}
}

func (m *Manager) encode(message Message) ([]byte, error) {
	payload, err := json.Marshal(message)
	if err != nil {
		return nil, m.log.Function("encode").Err("failed to encode websocket message", err, "type", message.Type)
	}
	return payload, nil
}
