package websocket

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/neuroaroma/api/internal/model"
)

// Client represents a WebSocket observer connection
type Client struct {
	Conn *websocket.Conn
	Send chan []byte

	// Job ids this client subscribed to; guarded by the hub mutex
	jobs   map[int64]bool
	closed bool
}

// NewClient creates a client with a buffered send queue
func NewClient(conn *websocket.Conn) *Client {
	return &Client{
		Conn: conn,
		Send: make(chan []byte, 256),
		jobs: make(map[int64]bool),
	}
}

type subscription struct {
	client *Client
	jobID  int64
}

// BroadcastMessage represents a message to broadcast
type BroadcastMessage struct {
	JobID   int64
	Message []byte
}

// Hub maintains active WebSocket connections grouped by job id
type Hub struct {
	// Clients grouped by job ID
	clients map[int64]map[*Client]bool

	// Subscribe requests
	subscribe chan *subscription

	// Unregister requests
	unregister chan *Client

	// Broadcast messages to job subscribers
	broadcast chan *BroadcastMessage

	mu sync.RWMutex
}

// NewHub creates a new Hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[int64]map[*Client]bool),
		subscribe:  make(chan *subscription),
		unregister: make(chan *Client),
		broadcast:  make(chan *BroadcastMessage, 256),
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case sub := <-h.subscribe:
			h.mu.Lock()
			if sub.client.closed {
				h.mu.Unlock()
				continue
			}
			if h.clients[sub.jobID] == nil {
				h.clients[sub.jobID] = make(map[*Client]bool)
			}
			h.clients[sub.jobID][sub.client] = true
			sub.client.jobs[sub.jobID] = true
			h.mu.Unlock()
			log.Printf("Client subscribed to job %d", sub.jobID)

		case client := <-h.unregister:
			h.mu.Lock()
			h.dropClient(client)
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.Lock()
			if clients, ok := h.clients[msg.JobID]; ok {
				for client := range clients {
					select {
					case client.Send <- msg.Message:
					default:
						// Slow consumer, drop the connection
						h.dropClient(client)
					}
				}
			}
			h.mu.Unlock()
		}
	}
}

// dropClient removes the client from every job id's subscriber list and
// closes its send queue. Safe for clients that never subscribed. Caller
// must hold h.mu.
func (h *Hub) dropClient(client *Client) {
	for jobID := range client.jobs {
		if clients, ok := h.clients[jobID]; ok {
			delete(clients, client)
			if len(clients) == 0 {
				delete(h.clients, jobID)
			}
		}
	}
	client.jobs = make(map[int64]bool)
	if !client.closed {
		client.closed = true
		close(client.Send)
	}
}

// Subscribe registers the client for events of the given job
func (h *Hub) Subscribe(client *Client, jobID int64) {
	h.subscribe <- &subscription{client: client, jobID: jobID}
}

// Unregister removes a client from all subscriptions
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// BroadcastProgress sends a progress update to all job subscribers.
// The current frequency is not reported by the worker yet, so it goes
// out as zero.
func (h *Hub) BroadcastProgress(jobID int64, processed, total int) {
	msg := model.WSProgressMessage{
		Type:              model.WSMessageTypeAudioPreview,
		JobID:             jobID,
		FrequencyProgress: processed,
		TotalFrequencies:  total,
		CurrentFrequency:  0,
	}

	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Failed to marshal progress message: %v", err)
		return
	}

	h.broadcast <- &BroadcastMessage{JobID: jobID, Message: data}
}

// BroadcastComplete sends a completion message to all job subscribers
func (h *Hub) BroadcastComplete(jobID int64, job *model.Job) {
	msg := model.WSCompleteMessage{
		Type:  model.WSMessageTypeComplete,
		JobID: jobID,
		Job:   job,
	}

	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Failed to marshal complete message: %v", err)
		return
	}

	h.broadcast <- &BroadcastMessage{JobID: jobID, Message: data}
}

// BroadcastError sends an error message to all job subscribers
func (h *Hub) BroadcastError(jobID int64, message string) {
	msg := model.WSErrorMessage{
		Type:    model.WSMessageTypeError,
		JobID:   jobID,
		Message: message,
	}

	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Failed to marshal error message: %v", err)
		return
	}

	h.broadcast <- &BroadcastMessage{JobID: jobID, Message: data}
}

// HandleConnection handles a WebSocket connection until it closes
func (h *Hub) HandleConnection(c *websocket.Conn) {
	client := NewClient(c)
	defer h.Unregister(client)

	// Start writer goroutine
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case message, ok := <-client.Send:
				if !ok {
					c.WriteMessage(websocket.CloseMessage, []byte{})
					return
				}
				if err := c.WriteMessage(websocket.TextMessage, message); err != nil {
					return
				}

			case <-ticker.C:
				// Send ping for keep-alive
				if err := c.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	// Reader loop
	for {
		_, message, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		var msg model.WSClientMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}

		if msg.Type == model.WSMessageTypeSubscribe {
			h.Subscribe(client, msg.JobID)
		}
	}
}
