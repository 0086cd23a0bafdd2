package matchmaking

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/chess-arena/arena-server/internal/domain"
	"github.com/chess-arena/arena-server/internal/obslog"
	"github.com/chess-arena/arena-server/pkg/arenadto"
)

// GameStarter is the session layer seen from matchmaking.
type GameStarter interface {
	Create(ctx context.Context, a, b *domain.Player, ranked bool) arenadto.GameView
	ActiveGameFor(playerID string) (string, bool)
}

// PlayerDirectory resolves queue participants and the shared system account.
type PlayerDirectory interface {
	Get(ctx context.Context, id string) (*domain.Player, error)
	EnsureBot(ctx context.Context, name string) (*domain.Player, error)
}

type entry struct {
	playerID string
	ranked   bool
	at       time.Time
}

// Queue pairs waiting players first-come-first-served within a ranked pool
// and a casual pool. Pairing is atomic with queue membership: a popped pair
// is already a created game before the queue lock is released, so no player
// can be matched twice.
type Queue struct {
	mu      sync.Mutex
	waiting []entry
	starter GameStarter
	players PlayerDirectory
	botName string
}

func NewQueue(starter GameStarter, players PlayerDirectory, botName string) *Queue {
	return &Queue{starter: starter, players: players, botName: botName}
}

// Enqueue puts a player in the pool, or starts a game immediately when an
// opponent is available. vsSystem skips the pool entirely and pairs against
// the system account. Re-enqueueing while already waiting is a no-op that
// keeps the original queue position.
func (q *Queue) Enqueue(ctx context.Context, playerID string, ranked, vsSystem bool) (arenadto.EnqueueResponse, error) {
	player, err := q.players.Get(ctx, playerID)
	if err != nil {
		return arenadto.EnqueueResponse{}, err
	}

	if vsSystem {
		bot, err := q.players.EnsureBot(ctx, q.botName)
		if err != nil {
			return arenadto.EnqueueResponse{}, err
		}
		view := q.starter.Create(ctx, player, bot, ranked)
		return arenadto.EnqueueResponse{
			Status: "active", GameID: view.ID, Ranked: ranked, VsSystem: true,
		}, nil
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	for _, e := range q.waiting {
		if e.playerID == playerID {
			return arenadto.EnqueueResponse{Status: "waiting", Ranked: e.ranked}, nil
		}
	}

	for i, e := range q.waiting {
		if e.ranked != ranked {
			continue
		}
		opponent, err := q.players.Get(ctx, e.playerID)
		if err != nil {
			obslog.L().Error("queued_player_unresolvable",
				zap.String("player_id", e.playerID), zap.Error(err))
			q.waiting = append(q.waiting[:i], q.waiting[i+1:]...)
			break
		}
		q.waiting = append(q.waiting[:i], q.waiting[i+1:]...)
		view := q.starter.Create(ctx, opponent, player, ranked)
		obslog.L().Info("players_paired",
			zap.String("game_id", view.ID),
			zap.String("a", opponent.ID), zap.String("b", player.ID),
			zap.Bool("ranked", ranked))
		return arenadto.EnqueueResponse{
			Status: "active", GameID: view.ID, Ranked: ranked,
		}, nil
	}

	q.waiting = append(q.waiting, entry{playerID: playerID, ranked: ranked, at: time.Now().UTC()})
	obslog.L().Info("player_enqueued",
		zap.String("player_id", playerID), zap.Bool("ranked", ranked))
	return arenadto.EnqueueResponse{Status: "waiting", Ranked: ranked}, nil
}

// Cancel removes a player from the pool. It reports whether the player was
// actually waiting; cancelling an absent player is not an error.
func (q *Queue) Cancel(playerID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, e := range q.waiting {
		if e.playerID == playerID {
			q.waiting = append(q.waiting[:i], q.waiting[i+1:]...)
			obslog.L().Info("player_dequeued", zap.String("player_id", playerID))
			return true
		}
	}
	return false
}

// ListWaiting returns the current pool in queue order. A non-nil ranked
// narrows the listing to one pool.
func (q *Queue) ListWaiting(ranked *bool) []arenadto.WaitingEntry {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]arenadto.WaitingEntry, 0, len(q.waiting))
	for _, e := range q.waiting {
		if ranked != nil && e.ranked != *ranked {
			continue
		}
		out = append(out, arenadto.WaitingEntry{
			PlayerID:   e.playerID,
			Ranked:     e.ranked,
			EnqueuedAt: e.at.Unix(),
		})
	}
	return out
}

// Status probes where a player stands: waiting in the pool, playing an
// active game, or neither.
func (q *Queue) Status(playerID string) arenadto.QueueStatusResponse {
	q.mu.Lock()
	for _, e := range q.waiting {
		if e.playerID == playerID {
			q.mu.Unlock()
			return arenadto.QueueStatusResponse{Status: "waiting", Ranked: e.ranked}
		}
	}
	q.mu.Unlock()

	if id, ok := q.starter.ActiveGameFor(playerID); ok {
		return arenadto.QueueStatusResponse{Status: "active", GameID: id}
	}
	return arenadto.QueueStatusResponse{Status: "idle"}
}
