// Package broadcast fans auction events out to WebSocket clients. It
// subscribes to the Redis Pub/Sub channels the engine publishes on and
// forwards each payload to every client watching that auction.
package broadcast

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Manager manages all WebSocket connections, keyed by auction id.
type Manager struct {
	subscribers sync.Map // auctionID -> *sync.Map of *Client

	register   chan *Client
	unregister chan *Client
	broadcast  chan *Message

	log *slog.Logger
}

// Client is one WebSocket connection watching one auction.
type Client struct {
	ID        string
	AuctionID string
	Conn      *websocket.Conn
	Send      chan []byte
}

// Message is a payload addressed to everyone watching one auction.
type Message struct {
	AuctionID string
	Payload   []byte
}

func NewManager(log *slog.Logger) *Manager {
	return &Manager{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Message, 256),
		log:        log,
	}
}

// Run is the manager's main loop; run it in a goroutine.
func (m *Manager) Run() {
	for {
		select {
		case client := <-m.register:
			m.registerClient(client)
		case client := <-m.unregister:
			m.unregisterClient(client)
		case message := <-m.broadcast:
			m.broadcastToAuction(message.AuctionID, message.Payload)
		}
	}
}

func (m *Manager) RegisterClient(client *Client) {
	m.register <- client
}

func (m *Manager) UnregisterClient(client *Client) {
	m.unregister <- client
}

// Broadcast sends a payload to every client watching the auction.
func (m *Manager) Broadcast(auctionID string, payload []byte) {
	m.broadcast <- &Message{AuctionID: auctionID, Payload: payload}
}

func (m *Manager) registerClient(client *Client) {
	subscribers, _ := m.subscribers.LoadOrStore(client.AuctionID, &sync.Map{})
	subscribers.(*sync.Map).Store(client, true)

	m.log.Info("client subscribed", "client", client.ID, "auction", client.AuctionID)
	go client.writePump()
}

func (m *Manager) unregisterClient(client *Client) {
	subscribers, ok := m.subscribers.Load(client.AuctionID)
	if !ok {
		return
	}
	// LoadAndDelete makes a second unregister of the same client (read
	// pump exit racing a slow-client drop) a no-op instead of a double
	// close of Send.
	if _, present := subscribers.(*sync.Map).LoadAndDelete(client); !present {
		return
	}
	close(client.Send)
	client.Conn.Close()
	m.log.Info("client unsubscribed", "client", client.ID, "auction", client.AuctionID)
}

func (m *Manager) broadcastToAuction(auctionID string, payload []byte) {
	subscribers, ok := m.subscribers.Load(auctionID)
	if !ok {
		return
	}

	count := 0
	subscribers.(*sync.Map).Range(func(key, _ interface{}) bool {
		client := key.(*Client)
		select {
		case client.Send <- payload:
			count++
		default:
			// Full send buffer: drop the client so one slow
			// connection cannot stall the fanout. Called directly,
			// not via the channel: this already runs on the Run
			// goroutine.
			m.unregisterClient(client)
		}
		return true
	})

	m.log.Debug("broadcasted event", "auction", auctionID, "clients", count)
}

// SubscriberCount returns the number of clients watching an auction.
func (m *Manager) SubscriberCount(auctionID string) int {
	subscribers, ok := m.subscribers.Load(auctionID)
	if !ok {
		return 0
	}
	count := 0
	subscribers.(*sync.Map).Range(func(_, _ interface{}) bool {
		count++
		return true
	})
	return count
}

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

// writePump pumps messages from the Send channel to the connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump drains the connection to surface disconnects and keep pongs
// flowing; client input is otherwise ignored.
func (c *Client) readPump(unregister chan<- *Client) {
	defer func() {
		unregister <- c
	}()

	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			return
		}
	}
}

// StartReadPump starts the read pump for this client.
func (c *Client) StartReadPump(unregister chan<- *Client) {
	go c.readPump(unregister)
}
