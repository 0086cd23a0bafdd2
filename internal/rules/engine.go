package rules

import (
	"errors"
	"math/rand"
	"strings"
	"sync"
	"time"

	nchess "github.com/corentings/chess/v2"
)

// ErrIllegalMove is returned when a notation cannot be decoded into a legal
// move for the current position.
var ErrIllegalMove = errors.New("illegal move")

// Flags mirrors the status of a position: whose turn it is and which terminal
// or claimable conditions hold.
type Flags struct {
	ToMove               string `json:"turn"` // "white" | "black"
	InCheck              bool   `json:"in_check"`
	IsCheckmate          bool   `json:"is_checkmate"`
	IsStalemate          bool   `json:"is_stalemate"`
	InsufficientMaterial bool   `json:"insufficient"`
	CanClaimThreefold    bool   `json:"can_claim_threefold"`
	CanClaimFifty        bool   `json:"can_claim_fifty"`
}

// ApplyResult is the outcome of applying one move to a position.
type ApplyResult struct {
	FEN   string
	UCI   string
	SAN   string
	Flags Flags

	// Outcome is "", "white", "black" or "draw"; EndReason is the lowercased
	// termination method when Outcome is set.
	Outcome   string
	EndReason string
}

// Engine validates and applies moves and inspects positions. The
// authoritative position is always the replay of the UCI move log from the
// start position; FEN strings are derived output, never input. Engine is
// stateless and safe for concurrent use.
type Engine struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func NewEngine() *Engine {
	return &Engine{rnd: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// Apply replays movesUCI from the start position and applies input on top.
// Input may be UCI ("e2e4") or SAN ("Nf3"); UCI is tried first.
func (e *Engine) Apply(movesUCI []string, input string) (*ApplyResult, error) {
	game, err := replay(movesUCI)
	if err != nil {
		return nil, err
	}

	raw := strings.TrimSpace(input)
	if raw == "" {
		return nil, ErrIllegalMove
	}

	pos := game.Position()
	notationUCI := nchess.UCINotation{}
	notationSAN := nchess.AlgebraicNotation{}

	mv, derr := notationUCI.Decode(pos, strings.ToLower(raw))
	if derr != nil {
		mv, derr = notationSAN.Decode(pos, raw)
	}
	if derr != nil {
		return nil, ErrIllegalMove
	}
	if err := game.Move(mv, nil); err != nil {
		return nil, ErrIllegalMove
	}

	san := notationSAN.Encode(pos, mv)
	res := &ApplyResult{
		FEN:   game.FEN(),
		UCI:   strings.ToLower(notationUCI.Encode(pos, mv)),
		SAN:   san,
		Flags: flagsFrom(game, san),
	}
	res.Outcome, res.EndReason = outcomeFrom(game)
	return res, nil
}

// Inspect replays movesUCI and reports the resulting position's status.
func (e *Engine) Inspect(movesUCI []string) (Flags, string, error) {
	game, err := replay(movesUCI)
	if err != nil {
		return Flags{}, "", err
	}
	lastSAN := ""
	if n := len(movesUCI); n > 0 {
		moves := game.Moves()
		if len(moves) == n {
			prefix, perr := replay(movesUCI[:n-1])
			if perr == nil {
				lastSAN = nchess.AlgebraicNotation{}.Encode(prefix.Position(), moves[n-1])
			}
		}
	}
	return flagsFrom(game, lastSAN), game.FEN(), nil
}

// RandomMove returns a uniformly random legal move for the replayed position.
// It is the fallback selection strategy: a position with legal moves always
// yields one.
func (e *Engine) RandomMove(movesUCI []string) (string, error) {
	game, err := replay(movesUCI)
	if err != nil {
		return "", err
	}
	valid := game.ValidMoves()
	if len(valid) == 0 {
		return "", errors.New("no legal moves")
	}
	e.mu.Lock()
	mv := valid[e.rnd.Intn(len(valid))]
	e.mu.Unlock()
	return strings.ToLower(nchess.UCINotation{}.Encode(game.Position(), &mv)), nil
}

func replay(movesUCI []string) (*nchess.Game, error) {
	game := nchess.NewGame()
	for _, mv := range movesUCI {
		if err := game.PushNotationMove(mv, nchess.UCINotation{}, nil); err != nil {
			return nil, err
		}
	}
	return game, nil
}

// flagsFrom derives status flags from a replayed game. Check status comes
// from the SAN of the move that produced the position ("+" or "#" suffix), so
// no extra board probing is needed.
func flagsFrom(game *nchess.Game, lastSAN string) Flags {
	f := Flags{ToMove: "black"}
	if game.Position().Turn() == nchess.White {
		f.ToMove = "white"
	}
	f.InCheck = strings.HasSuffix(lastSAN, "+") || strings.HasSuffix(lastSAN, "#")

	switch game.Method() {
	case nchess.Checkmate:
		f.IsCheckmate = true
	case nchess.Stalemate:
		f.IsStalemate = true
	case nchess.InsufficientMaterial:
		f.InsufficientMaterial = true
	}
	for _, m := range game.EligibleDraws() {
		switch m {
		case nchess.ThreefoldRepetition:
			f.CanClaimThreefold = true
		case nchess.FiftyMoveRule:
			f.CanClaimFifty = true
		}
	}
	return f
}

func outcomeFrom(game *nchess.Game) (string, string) {
	switch game.Outcome() {
	case nchess.WhiteWon:
		return "white", reasonFrom(game.Method())
	case nchess.BlackWon:
		return "black", reasonFrom(game.Method())
	case nchess.Draw:
		return "draw", reasonFrom(game.Method())
	default:
		return "", ""
	}
}

func reasonFrom(m nchess.Method) string {
	switch m {
	case nchess.Checkmate:
		return "checkmate"
	case nchess.Stalemate:
		return "stalemate"
	case nchess.InsufficientMaterial:
		return "insufficient_material"
	default:
		return strings.ToLower(m.String())
	}
}
