package store

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/chess-arena/arena-server/internal/arena"
)

const defaultSnapshotTTL = 24 * time.Hour

// unindexScript deletes a player's index entry only while it still points at
// the given game. A concurrent newer game may have overwritten the entry;
// that one must survive the older game's retirement.
var unindexScript = redis.NewScript(`if redis.call("get", KEYS[1]) == ARGV[1] then return redis.call("del", KEYS[1]) end return 0`)

// RedisCache mirrors live game snapshots so full-state fetches and queue
// probes survive reconnects without touching the session layer. Snapshots
// expire; the archive is the durable record.
type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = defaultSnapshotTTL
	}
	return &RedisCache{rdb: rdb, ttl: ttl}
}

func (c *RedisCache) keyGame(id string) string      { return "game:" + strings.TrimSpace(id) }
func (c *RedisCache) keyPlayerIdx(id string) string { return "game:index:player:" + strings.TrimSpace(id) }

// Save writes the snapshot and maintains the per-player active-game index.
func (c *RedisCache) Save(ctx context.Context, g *arena.Game) error {
	raw, err := json.Marshal(g)
	if err != nil {
		return err
	}
	if err := c.rdb.Set(ctx, c.keyGame(g.ID), raw, c.ttl).Err(); err != nil {
		return err
	}

	if g.Status == arena.StatusEnded {
		for _, pid := range []string{g.WhiteID, g.BlackID} {
			_ = unindexScript.Run(ctx, c.rdb, []string{c.keyPlayerIdx(pid)}, g.ID).Err()
		}
		return nil
	}
	if err := c.rdb.Set(ctx, c.keyPlayerIdx(g.WhiteID), g.ID, c.ttl).Err(); err != nil {
		return err
	}
	return c.rdb.Set(ctx, c.keyPlayerIdx(g.BlackID), g.ID, c.ttl).Err()
}

// Load returns a cached snapshot, or nil when none exists.
func (c *RedisCache) Load(ctx context.Context, gameID string) (*arena.Game, error) {
	raw, err := c.rdb.Get(ctx, c.keyGame(gameID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var g arena.Game
	if err := json.Unmarshal(raw, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// ActiveGameFor returns the game a player is currently indexed into.
func (c *RedisCache) ActiveGameFor(ctx context.Context, playerID string) (string, error) {
	id, err := c.rdb.Get(ctx, c.keyPlayerIdx(playerID)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return id, nil
}
