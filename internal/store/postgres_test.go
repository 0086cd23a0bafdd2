package store

import (
	"strings"
	"testing"
	"time"

	"github.com/chess-arena/arena-server/internal/arena"
)

func TestMapResultToPGN(t *testing.T) {
	cases := map[string]string{
		"white": "1-0",
		"black": "0-1",
		"draw":  "1/2-1/2",
		"":      "*",
		" White ": "1-0",
	}
	for in, want := range cases {
		if got := mapResultToPGN(in); got != want {
			t.Fatalf("mapResultToPGN(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBuildPGN(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	g := &arena.Game{
		ID:        "g1",
		WhiteID:   `alice"x`,
		BlackID:   "bob",
		MovesSAN:  []string{"f3", "e5", "g4", "Qh4#"},
		Result:    arena.ResultBlack,
		EndReason: "checkmate",
		CreatedAt: now,
		UpdatedAt: now,
	}

	pgn := buildPGN(g, mapResultToPGN(string(g.Result)))

	for _, want := range []string{
		`[Date "2026.03.14"]`,
		`[White "alice'x"]`,
		`[Black "bob"]`,
		`[Termination "checkmate"]`,
		`[Result "0-1"]`,
		"1. f3 e5 2. g4 Qh4# 0-1",
	} {
		if !strings.Contains(pgn, want) {
			t.Fatalf("PGN missing %q:\n%s", want, pgn)
		}
	}
}
