package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/chess-arena/arena-server/internal/arena"
	"github.com/chess-arena/arena-server/internal/domain"
)

// Postgres backs both the account store and the finished-game archive.
type Postgres struct {
	db       *sql.DB
	defaults ProvisionDefaults
}

func NewPostgres(databaseURL string, d ProvisionDefaults) (*Postgres, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Postgres{db: db, defaults: d.normalized()}, nil
}

func (s *Postgres) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Postgres) Get(ctx context.Context, id string) (*domain.Player, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("empty player id")
	}
	return s.provision(ctx, id, id, false)
}

func (s *Postgres) EnsureBot(ctx context.Context, name string) (*domain.Player, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "arena-bot"
	}
	return s.provision(ctx, "bot:"+name, name, true)
}

func (s *Postgres) provision(ctx context.Context, id, name string, isBot bool) (*domain.Player, error) {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `INSERT INTO players (
	    id, name, is_bot, rating, deviation, volatility,
	    wins, losses, draws, created_at, updated_at
	  ) VALUES ($1,$2,$3,$4,$5,$6,0,0,0,$7,$7)
	  ON CONFLICT (id) DO NOTHING`,
		id, name, isBot,
		s.defaults.Rating, s.defaults.Deviation, s.defaults.Volatility, now)
	if err != nil {
		return nil, err
	}

	var p domain.Player
	row := s.db.QueryRowContext(ctx, `SELECT
	    id, name, is_bot, rating, deviation, volatility,
	    wins, losses, draws, created_at, updated_at
	  FROM players WHERE id = $1`, id)
	if err := row.Scan(&p.ID, &p.Name, &p.IsBot, &p.Rating, &p.Deviation, &p.Volatility,
		&p.Wins, &p.Losses, &p.Draws, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Postgres) SaveRatings(ctx context.Context, a, b *domain.Player) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, p := range []*domain.Player{a, b} {
		if p == nil {
			continue
		}
		_, err := tx.ExecContext(ctx, `UPDATE players SET
		    rating=$2, deviation=$3, volatility=$4,
		    wins=$5, losses=$6, draws=$7, updated_at=$8
		  WHERE id=$1`,
			p.ID, p.Rating, p.Deviation, p.Volatility,
			p.Wins, p.Losses, p.Draws, time.Now().UTC())
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// SaveResult upserts a finished game into the archive.
func (s *Postgres) SaveResult(ctx context.Context, g *arena.Game) error {
	if s == nil || s.db == nil || g == nil {
		return nil
	}

	pgnResult := mapResultToPGN(string(g.Result))
	pgn := buildPGN(g, pgnResult)

	movesUCIRaw, _ := json.Marshal(g.MovesUCI)
	movesSANRaw, _ := json.Marshal(g.MovesSAN)
	duration := g.UpdatedAt.Sub(g.CreatedAt).Milliseconds()
	if duration < 0 {
		duration = 0
	}

	q := `INSERT INTO arena_games (
	    game_id, white_id, black_id, ranked,
	    result, end_reason, moves_uci, moves_san, pgn,
	    started_at, ended_at, duration_ms
	  ) VALUES (
	    $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12
	  ) ON CONFLICT (game_id) DO UPDATE SET
	    white_id=EXCLUDED.white_id,
	    black_id=EXCLUDED.black_id,
	    ranked=EXCLUDED.ranked,
	    result=EXCLUDED.result,
	    end_reason=EXCLUDED.end_reason,
	    moves_uci=EXCLUDED.moves_uci,
	    moves_san=EXCLUDED.moves_san,
	    pgn=EXCLUDED.pgn,
	    started_at=EXCLUDED.started_at,
	    ended_at=EXCLUDED.ended_at,
	    duration_ms=EXCLUDED.duration_ms`

	_, err := s.db.ExecContext(ctx, q,
		g.ID, g.WhiteID, g.BlackID, g.Ranked,
		string(g.Result), strings.TrimSpace(g.EndReason),
		string(movesUCIRaw), string(movesSANRaw), pgn,
		g.CreatedAt, g.UpdatedAt, duration,
	)
	return err
}

func mapResultToPGN(result string) string {
	switch strings.ToLower(strings.TrimSpace(result)) {
	case "white":
		return "1-0"
	case "black":
		return "0-1"
	case "draw":
		return "1/2-1/2"
	default:
		return "*"
	}
}

func buildPGN(g *arena.Game, pgnResult string) string {
	if g == nil {
		return ""
	}
	var b strings.Builder
	date := g.UpdatedAt
	if date.IsZero() {
		date = time.Now()
	}
	b.WriteString("[Event \"Arena\"]\n")
	b.WriteString("[Site \"arena-server\"]\n")
	b.WriteString(fmt.Sprintf("[Date \"%04d.%02d.%02d\"]\n", date.Year(), int(date.Month()), date.Day()))
	b.WriteString(fmt.Sprintf("[White \"%s\"]\n", sanitizePGN(g.WhiteID)))
	b.WriteString(fmt.Sprintf("[Black \"%s\"]\n", sanitizePGN(g.BlackID)))
	if strings.TrimSpace(g.EndReason) != "" {
		b.WriteString(fmt.Sprintf("[Termination \"%s\"]\n", sanitizePGN(strings.ToLower(g.EndReason))))
	}
	b.WriteString(fmt.Sprintf("[Result \"%s\"]\n\n", pgnResult))

	for i := 0; i < len(g.MovesSAN); i += 2 {
		turn := (i / 2) + 1
		b.WriteString(fmt.Sprintf("%d. %s", turn, strings.TrimSpace(g.MovesSAN[i])))
		if i+1 < len(g.MovesSAN) {
			b.WriteString(" ")
			b.WriteString(strings.TrimSpace(g.MovesSAN[i+1]))
		}
		b.WriteString(" ")
	}
	b.WriteString(pgnResult)
	return b.String()
}

func sanitizePGN(s string) string {
	s = strings.ReplaceAll(s, "\\", " ")
	s = strings.ReplaceAll(s, "\"", "'")
	return strings.TrimSpace(s)
}
