package rules

import (
	"strings"
	"testing"
)

func TestApply_UCIAndSAN(t *testing.T) {
	e := NewEngine()

	res, err := e.Apply(nil, "e2e4")
	if err != nil {
		t.Fatalf("Apply UCI: %v", err)
	}
	if res.UCI != "e2e4" || res.SAN != "e4" {
		t.Fatalf("unexpected notations: uci=%q san=%q", res.UCI, res.SAN)
	}
	if res.Flags.ToMove != "black" {
		t.Fatalf("expected black to move, got %q", res.Flags.ToMove)
	}
	if res.Outcome != "" {
		t.Fatalf("opening move should not end the game: %q", res.Outcome)
	}

	res2, err := e.Apply([]string{"e2e4"}, "Nc6")
	if err != nil {
		t.Fatalf("Apply SAN: %v", err)
	}
	if res2.UCI != "b8c6" {
		t.Fatalf("SAN input should normalize to UCI, got %q", res2.UCI)
	}
}

func TestApply_IllegalInputs(t *testing.T) {
	e := NewEngine()
	for _, bad := range []string{"", "   ", "e2e5", "Qh5", "zzzz"} {
		if _, err := e.Apply(nil, bad); err != ErrIllegalMove {
			t.Fatalf("input %q: expected ErrIllegalMove, got %v", bad, err)
		}
	}
}

func TestApply_FoolsMate(t *testing.T) {
	e := NewEngine()

	moves := []string{}
	for _, san := range []string{"f3", "e5", "g4"} {
		res, err := e.Apply(moves, san)
		if err != nil {
			t.Fatalf("Apply %q: %v", san, err)
		}
		moves = append(moves, res.UCI)
	}

	res, err := e.Apply(moves, "Qh4#")
	if err != nil {
		t.Fatalf("Apply mate: %v", err)
	}
	if res.Outcome != "black" {
		t.Fatalf("expected black win, got %q", res.Outcome)
	}
	if res.EndReason != "checkmate" {
		t.Fatalf("expected checkmate, got %q", res.EndReason)
	}
	if !res.Flags.IsCheckmate || !res.Flags.InCheck {
		t.Fatalf("terminal flags not set: %+v", res.Flags)
	}
}

func TestInspect_StartPosition(t *testing.T) {
	e := NewEngine()
	flags, fen, err := e.Inspect(nil)
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if flags.ToMove != "white" {
		t.Fatalf("expected white to move, got %q", flags.ToMove)
	}
	if !strings.HasPrefix(fen, "rnbqkbnr/pppppppp/") {
		t.Fatalf("unexpected start FEN: %q", fen)
	}
}

func TestRandomMove_AlwaysLegal(t *testing.T) {
	e := NewEngine()
	moves := []string{"e2e4", "e7e5"}
	for i := 0; i < 20; i++ {
		mv, err := e.RandomMove(moves)
		if err != nil {
			t.Fatalf("RandomMove: %v", err)
		}
		if _, err := e.Apply(moves, mv); err != nil {
			t.Fatalf("random move %q rejected: %v", mv, err)
		}
	}
}
