package arenaclient

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/chess-arena/arena-server/internal/obslog"
	"github.com/chess-arena/arena-server/pkg/arenadto"
)

const (
	dialTimeout      = 10 * time.Second
	reconnectMaxWait = 5 * time.Second
)

// EventHandler receives each event observed on a game's stream.
type EventHandler func(ev arenadto.Event)

// Watcher follows one game's websocket stream and redials on failure until
// the context ends or the game's terminal event arrives.
type Watcher struct {
	wsURL   string
	handler EventHandler
}

// NewWatcher builds a watcher for gameID against an http(s) base URL.
func NewWatcher(baseURL, gameID, playerID string, handler EventHandler) *Watcher {
	u := strings.TrimRight(baseURL, "/")
	u = strings.Replace(u, "http://", "ws://", 1)
	u = strings.Replace(u, "https://", "wss://", 1)
	u += "/games/" + gameID + "/ws"
	if strings.TrimSpace(playerID) != "" {
		u += "?player_id=" + playerID
	}
	return &Watcher{wsURL: u, handler: handler}
}

// Run consumes the stream until ctx is done or the game ends. Reconnects use
// exponential backoff capped at reconnectMaxWait.
func (w *Watcher) Run(ctx context.Context) error {
	wait := 250 * time.Millisecond
	for {
		ended, err := w.consumeOnce(ctx)
		if ended {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			obslog.L().Warn("watcher_stream_lost", zap.String("url", w.wsURL), zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		if wait *= 2; wait > reconnectMaxWait {
			wait = reconnectMaxWait
		}
	}
}

func (w *Watcher) consumeOnce(ctx context.Context) (bool, error) {
	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	conn, _, err := websocket.Dial(dialCtx, w.wsURL, &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	cancel()
	if err != nil {
		return false, err
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	for {
		var ev arenadto.Event
		if err := wsjson.Read(ctx, conn, &ev); err != nil {
			return false, err
		}
		if w.handler != nil {
			w.handler(ev)
		}
		if ev.Type == "move" && ev.Meta != nil && ev.Meta.Status == "ended" {
			return true, nil
		}
	}
}
