package arena

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/chess-arena/arena-server/internal/domain"
	"github.com/chess-arena/arena-server/internal/obslog"
	"github.com/chess-arena/arena-server/internal/rating"
	"github.com/chess-arena/arena-server/internal/rules"
	"github.com/chess-arena/arena-server/pkg/arenadto"
)

// Session owns one game. All mutation goes through its mutex, so two
// concurrent submissions for the same game serialize and exactly one of a
// conflicting pair wins. Events are published while the lock is held, which
// keeps per-game event order identical to mutation order; the hub's hand-off
// never blocks.
type Session struct {
	mu    sync.Mutex
	game  Game
	white *domain.Player
	black *domain.Player
	deps  *Deps
}

func newSession(id string, white, black *domain.Player, ranked bool, deps *Deps) *Session {
	now := time.Now().UTC()
	s := &Session{
		game: Game{
			ID:        id,
			Ranked:    ranked,
			WhiteID:   white.ID,
			BlackID:   black.ID,
			WhiteBot:  white.IsBot,
			BlackBot:  black.IsBot,
			Status:    StatusActive,
			CreatedAt: now,
			UpdatedAt: now,
		},
		white: white,
		black: black,
		deps:  deps,
	}
	if _, fen, err := deps.Rules.Inspect(nil); err == nil {
		s.game.FEN = fen
	}
	return s
}

// Snapshot returns a copy of the game state. Slices are copied so the caller
// may hold them across later mutations.
func (s *Session) Snapshot() Game {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Game {
	g := s.game
	g.MovesUCI = append([]string(nil), s.game.MovesUCI...)
	g.MovesSAN = append([]string(nil), s.game.MovesSAN...)
	return g
}

// ApplyMove validates and applies one move submission. On any error the game
// state is unchanged.
func (s *Session) ApplyMove(ctx context.Context, playerID, input string) (Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.game.Status != StatusActive {
		return Game{}, ErrGameNotActive
	}
	if s.moverLocked().ID != playerID {
		if playerID != s.white.ID && playerID != s.black.ID {
			return Game{}, ErrNotParticipant
		}
		return Game{}, ErrNotYourTurn
	}

	res, err := s.deps.Rules.Apply(s.game.MovesUCI, input)
	if err != nil {
		return Game{}, ErrIllegalMove
	}

	s.game.MovesUCI = append(s.game.MovesUCI, res.UCI)
	s.game.MovesSAN = append(s.game.MovesSAN, res.SAN)
	s.game.FEN = res.FEN
	s.game.UpdatedAt = time.Now().UTC()

	if res.Outcome != "" {
		s.game.Status = StatusEnded
		s.game.Result = Result(res.Outcome)
		s.game.EndReason = res.EndReason
		s.finishLocked(ctx)
	}

	s.persistLocked(ctx)
	s.publishMoveLocked(res)
	return s.snapshotLocked(), nil
}

// Resign ends the game in the opponent's favor. Any participant may resign
// regardless of whose turn it is.
func (s *Session) Resign(ctx context.Context, playerID string) (Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.game.Status != StatusActive {
		return Game{}, ErrGameNotActive
	}
	switch playerID {
	case s.white.ID:
		s.game.Result = ResultBlack
	case s.black.ID:
		s.game.Result = ResultWhite
	default:
		return Game{}, ErrNotParticipant
	}
	s.game.Status = StatusEnded
	s.game.EndReason = "resignation"
	s.game.UpdatedAt = time.Now().UTC()
	s.finishLocked(ctx)
	s.persistLocked(ctx)
	s.publishMoveLocked(nil)
	return s.snapshotLocked(), nil
}

// Chat relays a message to the game's observers. Sender identity is passed
// through untouched; who may speak is the caller boundary's decision. The
// message is never inspected or stored.
func (s *Session) Chat(playerID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.deps.Hub != nil {
		s.deps.Hub.Publish(s.game.ID, arenadto.Event{
			Type:   "chat",
			GameID: s.game.ID,
			Sender: playerID,
			Text:   text,
		})
	}
	return nil
}

func (s *Session) moverLocked() *domain.Player {
	if len(s.game.MovesUCI)%2 == 0 {
		return s.white
	}
	return s.black
}

// moverIsBot reports whether an automated participant is to move.
func (s *Session) moverIsBot() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.game.Status != StatusActive {
		return "", false
	}
	m := s.moverLocked()
	return m.ID, m.IsBot
}

// finishLocked applies end-of-game effects: rating update and win counters
// for ranked games, then the archive write. Persistence failures are logged
// and never unwind the game state.
func (s *Session) finishLocked(ctx context.Context) {
	if s.game.Ranked {
		s.rateLocked(ctx)
	}
	if s.deps.Archive != nil {
		g := s.snapshotLocked()
		if err := s.deps.Archive.SaveResult(ctx, &g); err != nil {
			obslog.L().Error("archive_save_failed",
				zap.String("game_id", s.game.ID), zap.Error(err))
		}
	}
	obslog.L().Info("game_ended",
		zap.String("game_id", s.game.ID),
		zap.String("result", string(s.game.Result)),
		zap.String("reason", s.game.EndReason),
		zap.Int("plies", len(s.game.MovesUCI)))
}

func (s *Session) rateLocked(ctx context.Context) {
	score := rating.ScoreDraw
	switch s.game.Result {
	case ResultWhite:
		score = rating.ScoreWin
	case ResultBlack:
		score = rating.ScoreLoss
	}

	w := rating.Rating{R: s.white.Rating, RD: s.white.Deviation, Vol: s.white.Volatility}
	b := rating.Rating{R: s.black.Rating, RD: s.black.Deviation, Vol: s.black.Volatility}
	nw, nb := rating.Update(w, b, score)

	s.white.Rating, s.white.Deviation, s.white.Volatility = nw.R, nw.RD, nw.Vol
	s.black.Rating, s.black.Deviation, s.black.Volatility = nb.R, nb.RD, nb.Vol

	switch s.game.Result {
	case ResultWhite:
		s.white.Wins++
		s.black.Losses++
	case ResultBlack:
		s.black.Wins++
		s.white.Losses++
	default:
		s.white.Draws++
		s.black.Draws++
	}

	if s.deps.Players != nil {
		if err := s.deps.Players.SaveRatings(ctx, s.white, s.black); err != nil {
			obslog.L().Error("rating_save_failed",
				zap.String("game_id", s.game.ID), zap.Error(err))
		}
	}
}

func (s *Session) persistLocked(ctx context.Context) {
	if s.deps.Cache == nil {
		return
	}
	g := s.snapshotLocked()
	if err := s.deps.Cache.Save(ctx, &g); err != nil {
		obslog.L().Warn("snapshot_save_failed",
			zap.String("game_id", s.game.ID), zap.Error(err))
	}
}

// publishMoveLocked emits the full-state move event. res is nil for
// non-move terminations such as resignation.
func (s *Session) publishMoveLocked(res *rules.ApplyResult) {
	if s.deps.Hub == nil {
		return
	}
	ev := arenadto.Event{
		Type:     "move",
		GameID:   s.game.ID,
		FEN:      s.game.FEN,
		Movetext: s.game.Movetext(),
		MovesUCI: append([]string(nil), s.game.MovesUCI...),
		Meta:     s.metaLocked(res),
	}
	if res != nil {
		ev.UCI = res.UCI
		ev.SAN = res.SAN
	}
	s.deps.Hub.Publish(s.game.ID, ev)
}

func (s *Session) metaLocked(res *rules.ApplyResult) *arenadto.StatusMeta {
	meta := &arenadto.StatusMeta{
		Status:    string(s.game.Status),
		Result:    string(s.game.Result),
		EndReason: s.game.EndReason,
	}
	if res != nil {
		meta.Turn = res.Flags.ToMove
		meta.InCheck = res.Flags.InCheck
		meta.IsCheckmate = res.Flags.IsCheckmate
		meta.IsStalemate = res.Flags.IsStalemate
		meta.InsufficientMaterial = res.Flags.InsufficientMaterial
		meta.CanClaimThreefold = res.Flags.CanClaimThreefold
		meta.CanClaimFifty = res.Flags.CanClaimFifty
	} else if len(s.game.MovesUCI)%2 == 0 {
		meta.Turn = "white"
	} else {
		meta.Turn = "black"
	}
	return meta
}

// View renders the game as its transport representation.
func (s *Session) View() arenadto.GameView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return viewOf(s.snapshotLocked())
}

func viewOf(g Game) arenadto.GameView {
	return arenadto.GameView{
		ID:        g.ID,
		Ranked:    g.Ranked,
		WhiteID:   g.WhiteID,
		BlackID:   g.BlackID,
		FEN:       g.FEN,
		Movetext:  g.Movetext(),
		MovesUCI:  g.MovesUCI,
		Status:    string(g.Status),
		Result:    string(g.Result),
		EndReason: g.EndReason,
	}
}
