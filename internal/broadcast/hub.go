package broadcast

import (
	"sync"

	"go.uber.org/zap"

	"github.com/chess-arena/arena-server/internal/obslog"
	"github.com/chess-arena/arena-server/pkg/arenadto"
)

const subscriberBuffer = 32

// Subscription is one observer's event feed. Events arrive on C in the order
// they were published for the game. A subscriber that stops draining is
// dropped rather than allowed to stall the game.
type Subscription struct {
	C      <-chan arenadto.Event
	ch     chan arenadto.Event
	gameID string
	hub    *Hub
}

// Close detaches the subscription from its hub.
func (s *Subscription) Close() {
	s.hub.unsubscribe(s.gameID, s.ch)
}

// Hub fans events out to per-game subscriber sets. Publish never blocks: a
// full subscriber channel marks that subscriber dead and it is pruned after
// the fan-out pass. Subscribing mid-game yields only subsequent events; the
// full-state fetch is how a late observer catches up.
type Hub struct {
	mu    sync.Mutex
	games map[string]map[chan arenadto.Event]struct{}
}

func NewHub() *Hub {
	return &Hub{games: make(map[string]map[chan arenadto.Event]struct{})}
}

// Subscribe attaches a new observer to a game's event stream.
func (h *Hub) Subscribe(gameID string) *Subscription {
	ch := make(chan arenadto.Event, subscriberBuffer)
	h.mu.Lock()
	set, ok := h.games[gameID]
	if !ok {
		set = make(map[chan arenadto.Event]struct{})
		h.games[gameID] = set
	}
	set[ch] = struct{}{}
	h.mu.Unlock()
	return &Subscription{C: ch, ch: ch, gameID: gameID, hub: h}
}

func (h *Hub) unsubscribe(gameID string, ch chan arenadto.Event) {
	h.mu.Lock()
	if set, ok := h.games[gameID]; ok {
		if _, present := set[ch]; present {
			delete(set, ch)
			close(ch)
		}
		if len(set) == 0 {
			delete(h.games, gameID)
		}
	}
	h.mu.Unlock()
}

// Publish delivers ev to every live subscriber of gameID.
func (h *Hub) Publish(gameID string, ev arenadto.Event) {
	h.mu.Lock()
	set, ok := h.games[gameID]
	if !ok {
		h.mu.Unlock()
		return
	}

	var dead []chan arenadto.Event
	for ch := range set {
		select {
		case ch <- ev:
		default:
			dead = append(dead, ch)
		}
	}
	for _, ch := range dead {
		delete(set, ch)
		close(ch)
	}
	if len(set) == 0 {
		delete(h.games, gameID)
	}
	h.mu.Unlock()

	if len(dead) > 0 {
		obslog.L().Warn("slow_subscribers_dropped",
			zap.String("game_id", gameID), zap.Int("count", len(dead)))
	}
}

// DropGame closes every subscription for a game. Used when a game is retired
// long after its terminal event went out.
func (h *Hub) DropGame(gameID string) {
	h.mu.Lock()
	if set, ok := h.games[gameID]; ok {
		for ch := range set {
			close(ch)
		}
		delete(h.games, gameID)
	}
	h.mu.Unlock()
}

// SubscriberCount reports the live observer count for a game.
func (h *Hub) SubscriberCount(gameID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.games[gameID])
}
