package arena

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/chess-arena/arena-server/internal/broadcast"
)

// scriptedSelector answers with a fixed move per ply index.
type scriptedSelector struct {
	mu    sync.Mutex
	moves map[int]string
}

func (s *scriptedSelector) Propose(_ context.Context, movesUCI []string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.moves[len(movesUCI)], nil
}

func insertSession(r *Registry, s *Session) {
	r.mu.Lock()
	r.sessions[s.game.ID] = s
	r.mu.Unlock()
}

func TestRegistry_CreateAndRetire(t *testing.T) {
	deps, _, _ := newTestDeps(t)
	r := NewRegistry(deps)
	ctx := context.Background()

	view := r.Create(ctx, testPlayer("a", false), testPlayer("b", false), false)
	if view.Status != "active" || view.ID == "" {
		t.Fatalf("unexpected view: %+v", view)
	}
	if got := map[string]bool{view.WhiteID: true, view.BlackID: true}; !got["a"] || !got["b"] {
		t.Fatalf("both players should hold a color: %+v", view)
	}

	if _, ok := r.View(view.ID); !ok {
		t.Fatalf("created game should be visible")
	}
	r.Retire(view.ID)
	r.Retire(view.ID) // idempotent
	if _, ok := r.View(view.ID); ok {
		t.Fatalf("retired game should be gone")
	}
}

func TestRegistry_RetireClosesSubscriptions(t *testing.T) {
	deps, _, _ := newTestDeps(t)
	hub := broadcast.NewHub()
	deps.Hub = hub
	r := NewRegistry(deps)

	s := newSession("g-sub", testPlayer("w", false), testPlayer("b", false), false, deps)
	insertSession(r, s)
	sub := hub.Subscribe("g-sub")

	if _, err := r.Resign(context.Background(), "g-sub", "w"); err != nil {
		t.Fatalf("Resign: %v", err)
	}

	select {
	case ev, ok := <-sub.C:
		if !ok {
			t.Fatalf("subscription closed before delivering the terminal event")
		}
		if ev.Meta == nil || ev.Meta.Status != "ended" {
			t.Fatalf("expected terminal event first, got %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatalf("terminal event never delivered")
	}

	select {
	case _, ok := <-sub.C:
		if ok {
			t.Fatalf("expected subscription to close after retirement")
		}
	case <-time.After(time.Second):
		t.Fatalf("subscription not closed after retirement")
	}
}

func TestRegistry_SubmitMoveUnknownGame(t *testing.T) {
	deps, _, _ := newTestDeps(t)
	r := NewRegistry(deps)
	if _, err := r.SubmitMove(context.Background(), "nope", "w", "e2e4"); err != ErrGameNotActive {
		t.Fatalf("expected ErrGameNotActive, got %v", err)
	}
}

func TestRegistry_AutomatedOpponentPlays(t *testing.T) {
	deps, _, _ := newTestDeps(t)
	deps.Selector = &scriptedSelector{moves: map[int]string{
		1: "e7e5",
		3: "d8h4",
	}}
	r := NewRegistry(deps)
	ctx := context.Background()

	s := newSession("g-bot", testPlayer("human", false), testPlayer("bot", true), true, deps)
	insertSession(r, s)

	if _, err := r.SubmitMove(ctx, "g-bot", "human", "f2f3"); err != nil {
		t.Fatalf("SubmitMove: %v", err)
	}
	waitFor(t, func() bool { return len(s.Snapshot().MovesUCI) == 2 })

	if _, err := r.SubmitMove(ctx, "g-bot", "human", "g2g4"); err != nil {
		t.Fatalf("SubmitMove: %v", err)
	}
	waitFor(t, func() bool { return s.Snapshot().Status == StatusEnded })

	g := s.Snapshot()
	if g.Result != ResultBlack || g.EndReason != "checkmate" {
		t.Fatalf("bot should have delivered mate: %+v", g)
	}
	waitFor(t, func() bool {
		_, ok := r.View("g-bot")
		return !ok
	})
}

func TestRegistry_AutomatedFallsBackToRandom(t *testing.T) {
	deps, _, _ := newTestDeps(t)
	// Selector always proposes garbage, forcing the random fallback.
	deps.Selector = &scriptedSelector{moves: map[int]string{1: "zzzz"}}
	r := NewRegistry(deps)
	ctx := context.Background()

	s := newSession("g-fb", testPlayer("human", false), testPlayer("bot", true), false, deps)
	insertSession(r, s)

	if _, err := r.SubmitMove(ctx, "g-fb", "human", "e2e4"); err != nil {
		t.Fatalf("SubmitMove: %v", err)
	}
	waitFor(t, func() bool { return len(s.Snapshot().MovesUCI) == 2 })
}

func TestRegistry_ResignRetires(t *testing.T) {
	deps, _, _ := newTestDeps(t)
	r := NewRegistry(deps)

	s := newSession("g-r", testPlayer("w", false), testPlayer("b", false), false, deps)
	insertSession(r, s)

	view, err := r.Resign(context.Background(), "g-r", "b")
	if err != nil {
		t.Fatalf("Resign: %v", err)
	}
	if view.Result != "white" {
		t.Fatalf("resigner's opponent should win: %+v", view)
	}
	if _, ok := r.View("g-r"); ok {
		t.Fatalf("resigned game should be retired")
	}
}

func TestRegistry_ActiveGameFor(t *testing.T) {
	deps, _, _ := newTestDeps(t)
	r := NewRegistry(deps)

	s := newSession("g-a", testPlayer("w", false), testPlayer("b", false), false, deps)
	insertSession(r, s)

	if id, ok := r.ActiveGameFor("b"); !ok || id != "g-a" {
		t.Fatalf("expected g-a, got %q %v", id, ok)
	}
	if _, ok := r.ActiveGameFor("stranger"); ok {
		t.Fatalf("stranger should have no game")
	}
}

func TestRegistry_ChatRoutesToSession(t *testing.T) {
	deps, _, pub := newTestDeps(t)
	r := NewRegistry(deps)

	s := newSession("g-c", testPlayer("w", false), testPlayer("b", false), false, deps)
	insertSession(r, s)

	if err := r.SubmitChat("g-c", "w", "hello"); err != nil {
		t.Fatalf("SubmitChat: %v", err)
	}
	if err := r.SubmitChat("missing", "w", "hello"); err != ErrGameNotActive {
		t.Fatalf("expected ErrGameNotActive, got %v", err)
	}
	if events := pub.all(); len(events) != 1 || events[0].Type != "chat" {
		t.Fatalf("unexpected events: %+v", events)
	}
}
