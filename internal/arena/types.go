package arena

import (
	"context"
	"strings"
	"time"

	"github.com/chess-arena/arena-server/internal/domain"
	"github.com/chess-arena/arena-server/pkg/arenadto"
)

// Status is a game's lifecycle state.
type Status string

const (
	StatusWaiting Status = "waiting"
	StatusActive  Status = "active"
	StatusEnded   Status = "ended"
)

// Result names the winning side once a game has ended. Empty while the game
// is undetermined.
type Result string

const (
	ResultUndetermined Result = ""
	ResultWhite        Result = "white"
	ResultBlack        Result = "black"
	ResultDraw         Result = "draw"
)

// Caller errors. Submissions that fail with one of these leave the game
// untouched.
var (
	ErrGameNotActive  = errf("game not active")
	ErrNotYourTurn    = errf("not your turn")
	ErrIllegalMove    = errf("illegal move")
	ErrNotParticipant = errf("player is not in this game")
)

type staticErr string

func (e staticErr) Error() string { return string(e) }
func errf(s string) error         { return staticErr(s) }

// Game is the authoritative state of one chess game. The position is the
// replay of MovesUCI from the start position; FEN is kept for presentation
// and persistence.
type Game struct {
	ID     string `json:"id"`
	Ranked bool   `json:"ranked"`

	WhiteID  string `json:"white_id"`
	BlackID  string `json:"black_id"`
	WhiteBot bool   `json:"white_bot"`
	BlackBot bool   `json:"black_bot"`

	FEN      string   `json:"fen"`
	MovesUCI []string `json:"moves_uci"`
	MovesSAN []string `json:"moves_san"`

	Status    Status `json:"status"`
	Result    Result `json:"result,omitempty"`
	EndReason string `json:"end_reason,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Movetext is the space-joined SAN log, the persisted movetext layout.
func (g *Game) Movetext() string { return strings.Join(g.MovesSAN, " ") }

// PlayerStore is the slice of the account store the session core needs:
// reading participants and writing ratings and counters back at game end.
type PlayerStore interface {
	Get(ctx context.Context, id string) (*domain.Player, error)
	SaveRatings(ctx context.Context, a, b *domain.Player) error
}

// Archiver persists finished games. Failures are logged, never surfaced to
// the mutating caller.
type Archiver interface {
	SaveResult(ctx context.Context, g *Game) error
}

// SnapshotCache mirrors live game state for full-state fetches. Best effort.
type SnapshotCache interface {
	Save(ctx context.Context, g *Game) error
}

// Publisher hands events to the broadcast layer. Publish must not block
// beyond the hand-off; DropGame releases a retired game's observers.
type Publisher interface {
	Publish(gameID string, ev arenadto.Event)
	DropGame(gameID string)
}

// MoveSelector proposes a move for an automated participant.
type MoveSelector interface {
	Propose(ctx context.Context, movesUCI []string) (string, error)
}
