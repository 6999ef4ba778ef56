package socket

import (
	"encoding/json"
	"sync"

	"growset/internal/poll/model"
	"growset/pkg/logger"
)

const (
	EntryType   = "ENTRY"   // A response was appended to the poll
	RemovedType = "REMOVED" // The poll was deleted; the room is closing
)

type WSMessage struct {
	Type    string          `json:"type"`
	PollID  string          `json:"poll_id"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Hub fans new entries out to everyone viewing a poll. Rooms are keyed by
// poll id and only mutated from Run.
type Hub struct {
	Rooms      map[string]map[*Client]bool
	Broadcast  chan WSMessage
	Register   chan *Client
	Unregister chan *Client
	remove     chan string
	done       chan struct{}
	stopOnce   sync.Once
	mu         sync.Mutex
}

func NewHub() *Hub {
	return &Hub{
		Rooms:      make(map[string]map[*Client]bool),
		Broadcast:  make(chan WSMessage),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		remove:     make(chan string),
		done:       make(chan struct{}),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.mu.Lock()
			if h.Rooms[client.PollID] == nil {
				h.Rooms[client.PollID] = make(map[*Client]bool)
			}
			h.Rooms[client.PollID][client] = true
			h.mu.Unlock()
			logger.Sugar.Debugf("Viewer joined poll %s", client.PollID)

		case client := <-h.Unregister:
			h.mu.Lock()
			h.drop(client)
			h.mu.Unlock()

		case msg := <-h.Broadcast:
			payload, err := json.Marshal(msg)
			if err != nil {
				logger.Sugar.Errorf("Error marshalling broadcast message: %v", err)
				continue
			}
			h.mu.Lock()
			for client := range h.Rooms[msg.PollID] {
				select {
				case client.Send <- payload:
				default:
					// A lagging viewer is disconnected rather than blocking the hub.
					logger.Sugar.Warnf("Viewer of poll %s is lagging, disconnecting", msg.PollID)
					h.drop(client)
				}
			}
			h.mu.Unlock()

		case pollID := <-h.remove:
			payload, _ := json.Marshal(WSMessage{Type: RemovedType, PollID: pollID})
			h.mu.Lock()
			for client := range h.Rooms[pollID] {
				select {
				case client.Send <- payload:
				default:
				}
				h.drop(client)
			}
			delete(h.Rooms, pollID)
			h.mu.Unlock()
			logger.Sugar.Infof("Closed live room for poll %s", pollID)

		case <-h.done:
			h.mu.Lock()
			for _, clients := range h.Rooms {
				for client := range clients {
					h.drop(client)
				}
			}
			h.mu.Unlock()
			return
		}
	}
}

// drop removes a client and closes its send channel. Caller holds mu.
func (h *Hub) drop(client *Client) {
	clients, ok := h.Rooms[client.PollID]
	if !ok || !clients[client] {
		return
	}
	delete(clients, client)
	close(client.Send)
	if len(clients) == 0 {
		delete(h.Rooms, client.PollID)
	}
}

// PublishEntry pushes a new entry to the poll's viewers.
func (h *Hub) PublishEntry(pollID string, entry model.Entry) {
	payload, err := json.Marshal(entry)
	if err != nil {
		logger.Sugar.Errorf("Error marshalling entry for poll %s: %v", pollID, err)
		return
	}
	select {
	case h.Broadcast <- WSMessage{Type: EntryType, PollID: pollID, Payload: payload}:
	case <-h.done:
	}
}

// ClosePoll tells viewers the poll is gone and disconnects them.
func (h *Hub) ClosePoll(pollID string) {
	select {
	case h.remove <- pollID:
	case <-h.done:
	}
}

// RoomSize is the number of viewers connected to a poll.
func (h *Hub) RoomSize(pollID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.Rooms[pollID])
}

// Stop disconnects every viewer and ends Run.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}
