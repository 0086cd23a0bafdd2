package arena

import (
	"context"
	crand "crypto/rand"
	"math/big"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chess-arena/arena-server/internal/domain"
	"github.com/chess-arena/arena-server/internal/obslog"
	"github.com/chess-arena/arena-server/internal/rules"
	"github.com/chess-arena/arena-server/pkg/arenadto"
)

// Deps are the collaborators a session core needs. Archive, Cache, Hub and
// Selector may be nil; the session degrades to in-memory-only operation.
type Deps struct {
	Rules    *rules.Engine
	Players  PlayerStore
	Archive  Archiver
	Cache    SnapshotCache
	Hub      Publisher
	Selector MoveSelector
}

// Registry maps game IDs to live sessions. Ended games are retired
// immediately, so the map only ever holds games still accepting submissions.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	deps     *Deps
}

func NewRegistry(deps *Deps) *Registry {
	return &Registry{sessions: make(map[string]*Session), deps: deps}
}

// Create starts a new active game between a and b. Color assignment is
// random, so neither enqueue order nor argument order leaks into who plays
// white.
func (r *Registry) Create(ctx context.Context, a, b *domain.Player, ranked bool) arenadto.GameView {
	white, black := a, b
	if n, err := crand.Int(crand.Reader, big.NewInt(2)); err == nil && n.Int64() == 0 {
		white, black = b, a
	}

	s := newSession(uuid.NewString(), white, black, ranked, r.deps)

	r.mu.Lock()
	r.sessions[s.game.ID] = s
	r.mu.Unlock()

	obslog.L().Info("game_created",
		zap.String("game_id", s.game.ID),
		zap.String("white", white.ID),
		zap.String("black", black.ID),
		zap.Bool("ranked", ranked))

	g := s.Snapshot()
	if r.deps.Cache != nil {
		if err := r.deps.Cache.Save(ctx, &g); err != nil {
			obslog.L().Warn("snapshot_save_failed",
				zap.String("game_id", g.ID), zap.Error(err))
		}
	}

	go r.driveAutomated(context.WithoutCancel(ctx), s)
	return viewOf(g)
}

func (r *Registry) get(gameID string) (*Session, bool) {
	r.mu.RLock()
	s, ok := r.sessions[gameID]
	r.mu.RUnlock()
	return s, ok
}

// Retire drops an ended game from the live map and closes its observer
// subscriptions. The terminal event is published before retirement, so
// subscribers drain it from their buffers before seeing the close.
// Idempotent.
func (r *Registry) Retire(gameID string) {
	r.mu.Lock()
	delete(r.sessions, gameID)
	r.mu.Unlock()
	if r.deps.Hub != nil {
		r.deps.Hub.DropGame(gameID)
	}
}

// View returns the live state of a game, or false if it is not registered.
func (r *Registry) View(gameID string) (arenadto.GameView, bool) {
	s, ok := r.get(gameID)
	if !ok {
		return arenadto.GameView{}, false
	}
	return s.View(), true
}

// ActiveGameFor scans live sessions for one the player participates in.
func (r *Registry) ActiveGameFor(playerID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for id, s := range r.sessions {
		g := s.Snapshot()
		if g.WhiteID == playerID || g.BlackID == playerID {
			return id, true
		}
	}
	return "", false
}

// SubmitMove applies a player's move, then lets any automated opponent take
// its turns. The human's submission returns as soon as their own move is
// committed and published.
func (r *Registry) SubmitMove(ctx context.Context, gameID, playerID, input string) (arenadto.GameView, error) {
	s, ok := r.get(gameID)
	if !ok {
		return arenadto.GameView{}, ErrGameNotActive
	}
	g, err := s.ApplyMove(ctx, playerID, input)
	if err != nil {
		return arenadto.GameView{}, err
	}
	if g.Status == StatusEnded {
		r.Retire(gameID)
		return viewOf(g), nil
	}
	go r.driveAutomated(context.WithoutCancel(ctx), s)
	return viewOf(g), nil
}

// Resign ends the game in the opponent's favor and retires it.
func (r *Registry) Resign(ctx context.Context, gameID, playerID string) (arenadto.GameView, error) {
	s, ok := r.get(gameID)
	if !ok {
		return arenadto.GameView{}, ErrGameNotActive
	}
	g, err := s.Resign(ctx, playerID)
	if err != nil {
		return arenadto.GameView{}, err
	}
	r.Retire(gameID)
	return viewOf(g), nil
}

// SubmitChat relays a chat line to the game's observers.
func (r *Registry) SubmitChat(gameID, senderID, text string) error {
	s, ok := r.get(gameID)
	if !ok {
		return ErrGameNotActive
	}
	return s.Chat(senderID, text)
}

// driveAutomated plays automated turns until a non-bot is to move or the
// game ends. The session lock is released between plies, so human
// submissions and observers interleave normally against bot-vs-bot games.
func (r *Registry) driveAutomated(ctx context.Context, s *Session) {
	for {
		botID, ok := s.moverIsBot()
		if !ok {
			return
		}

		g := s.Snapshot()
		input, err := r.proposeMove(ctx, g.MovesUCI)
		if err != nil {
			obslog.L().Error("bot_move_unavailable",
				zap.String("game_id", g.ID), zap.Error(err))
			return
		}

		ng, err := s.ApplyMove(ctx, botID, input)
		if err == ErrIllegalMove {
			// Selector produced garbage; fall back to a random legal move.
			if input, err = r.deps.Rules.RandomMove(g.MovesUCI); err == nil {
				ng, err = s.ApplyMove(ctx, botID, input)
			}
		}
		if err != nil {
			if err != ErrGameNotActive && err != ErrNotYourTurn {
				obslog.L().Error("bot_move_rejected",
					zap.String("game_id", g.ID), zap.Error(err))
			}
			return
		}
		if ng.Status == StatusEnded {
			r.Retire(ng.ID)
			return
		}
	}
}

func (r *Registry) proposeMove(ctx context.Context, movesUCI []string) (string, error) {
	if r.deps.Selector != nil {
		if mv, err := r.deps.Selector.Propose(ctx, movesUCI); err == nil && mv != "" {
			return mv, nil
		}
	}
	return r.deps.Rules.RandomMove(movesUCI)
}
