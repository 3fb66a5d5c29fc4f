package server

import (
	"encoding/json"
	"sync"

	"github.com/classquest/gridquiz/internal/game"
)

// Event is the payload published to a game's subscribers. Delivery is
// fire-and-forget; clients reconcile against GET /api/play/state.
type Event struct {
	Type       string      `json:"type"`
	PlayerID   string      `json:"playerId,omitempty"`
	PlayerName string      `json:"playerName,omitempty"`
	Color      string      `json:"color,omitempty"`
	Tile       *game.Coord `json:"tile,omitempty"`
	Points     int         `json:"points,omitempty"`
	Status     string      `json:"status,omitempty"`
}

const (
	eventTileClaimed       = "tile_claimed"
	eventPlayerJoined      = "player_joined"
	eventPlayerLeft        = "player_left"
	eventGameStatusChanged = "game_status_changed"
)

// Broker is an in-process pub/sub for game events, keyed by game ID.
type Broker struct {
	mu   sync.RWMutex
	subs map[string]map[chan []byte]struct{}
}

func NewBroker() *Broker {
	return &Broker{
		subs: make(map[string]map[chan []byte]struct{}),
	}
}

// Subscribe returns a channel that receives JSON-encoded events for the given game.
func (b *Broker) Subscribe(gameID string) chan []byte {
	ch := make(chan []byte, 16)
	b.mu.Lock()
	if b.subs[gameID] == nil {
		b.subs[gameID] = make(map[chan []byte]struct{})
	}
	b.subs[gameID][ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a channel from the game's subscribers.
func (b *Broker) Unsubscribe(gameID string, ch chan []byte) {
	b.mu.Lock()
	delete(b.subs[gameID], ch)
	if len(b.subs[gameID]) == 0 {
		delete(b.subs, gameID)
	}
	b.mu.Unlock()
}

// Publish sends an event to all subscribers of the given game.
func (b *Broker) Publish(gameID string, event Event) {
	data, _ := json.Marshal(event)
	b.mu.RLock()
	for ch := range b.subs[gameID] {
		select {
		case ch <- data:
		default:
			// Drop if subscriber is slow.
		}
	}
	b.mu.RUnlock()
}
