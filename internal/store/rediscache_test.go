package store

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/chess-arena/arena-server/internal/arena"
)

func newTestCache(t *testing.T) *RedisCache {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(func() { mr.Close() })
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewRedisCache(rdb, time.Hour)
}

func sampleGame(status arena.Status) *arena.Game {
	now := time.Now().UTC().Truncate(time.Second)
	return &arena.Game{
		ID:        "g1",
		WhiteID:   "w",
		BlackID:   "b",
		FEN:       "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1",
		MovesUCI:  []string{"e2e4"},
		MovesSAN:  []string{"e4"},
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestRedisCache_SaveAndLoad(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	g := sampleGame(arena.StatusActive)
	if err := c.Save(ctx, g); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := c.Load(ctx, "g1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded == nil || loaded.ID != "g1" || loaded.FEN != g.FEN || len(loaded.MovesUCI) != 1 {
		t.Fatalf("round trip mismatch: %+v", loaded)
	}
}

func TestRedisCache_LoadMissing(t *testing.T) {
	c := newTestCache(t)
	loaded, err := c.Load(context.Background(), "nope")
	if err != nil || loaded != nil {
		t.Fatalf("missing snapshot should be (nil, nil), got %+v %v", loaded, err)
	}
}

func TestRedisCache_PlayerIndexLifecycle(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	if err := c.Save(ctx, sampleGame(arena.StatusActive)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	for _, pid := range []string{"w", "b"} {
		id, err := c.ActiveGameFor(ctx, pid)
		if err != nil || id != "g1" {
			t.Fatalf("ActiveGameFor(%s): %q %v", pid, id, err)
		}
	}

	if err := c.Save(ctx, sampleGame(arena.StatusEnded)); err != nil {
		t.Fatalf("Save ended: %v", err)
	}
	for _, pid := range []string{"w", "b"} {
		id, err := c.ActiveGameFor(ctx, pid)
		if err != nil || id != "" {
			t.Fatalf("ended game should clear index for %s: %q %v", pid, id, err)
		}
	}

	// snapshot itself survives for post-game fetches
	loaded, err := c.Load(ctx, "g1")
	if err != nil || loaded == nil || loaded.Status != arena.StatusEnded {
		t.Fatalf("ended snapshot should remain loadable: %+v %v", loaded, err)
	}
}

func TestRedisCache_EndedGameKeepsNewerIndex(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	if err := c.Save(ctx, sampleGame(arena.StatusActive)); err != nil {
		t.Fatalf("Save g1: %v", err)
	}

	// w is re-paired into a newer game before g1's terminal snapshot lands
	g2 := sampleGame(arena.StatusActive)
	g2.ID, g2.BlackID = "g2", "c"
	if err := c.Save(ctx, g2); err != nil {
		t.Fatalf("Save g2: %v", err)
	}

	if err := c.Save(ctx, sampleGame(arena.StatusEnded)); err != nil {
		t.Fatalf("Save ended g1: %v", err)
	}

	if id, err := c.ActiveGameFor(ctx, "w"); err != nil || id != "g2" {
		t.Fatalf("w's newer index must survive g1 ending: %q %v", id, err)
	}
	if id, err := c.ActiveGameFor(ctx, "b"); err != nil || id != "" {
		t.Fatalf("b's index should clear: %q %v", id, err)
	}
	if id, err := c.ActiveGameFor(ctx, "c"); err != nil || id != "g2" {
		t.Fatalf("c's index untouched by g1 ending: %q %v", id, err)
	}
}
