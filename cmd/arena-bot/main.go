package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/chess-arena/arena-server/internal/arenaclient"
	"github.com/chess-arena/arena-server/internal/obslog"
	"github.com/chess-arena/arena-server/internal/rules"
	"github.com/chess-arena/arena-server/pkg/arenadto"
)

// arena-bot is a headless participant: it enqueues, waits for a pairing and
// plays random legal moves until the game ends. Useful for smoke-testing a
// running server and for filling the casual pool.
func main() {
	_ = godotenv.Load()

	var (
		baseURL  = flag.String("url", envDefault("ARENA_URL", "http://127.0.0.1:8080"), "arena server base URL")
		playerID = flag.String("player", envDefault("ARENA_PLAYER_ID", "arena-bot-client"), "player identity")
		ranked   = flag.Bool("ranked", false, "join the ranked pool")
		vsSystem = flag.Bool("vs-system", false, "play against the system account")
	)
	flag.Parse()

	obslog.InitFromEnv()
	defer obslog.L().Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := arenaclient.NewClient(*baseURL, *playerID)
	engine := rules.NewEngine()

	resp, err := client.Enqueue(ctx, *ranked, *vsSystem)
	if err != nil {
		log.Fatalf("enqueue error: %v", err)
	}

	gameID := resp.GameID
	for gameID == "" {
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
		}
		st, err := client.QueueStatus(ctx)
		if err != nil {
			obslog.L().Warn("queue_status_error", zap.Error(err))
			continue
		}
		if st.Status == "active" {
			gameID = st.GameID
		}
	}

	obslog.L().Info("game_joined", zap.String("game_id", gameID))

	view, err := client.Game(ctx, gameID)
	if err != nil {
		log.Fatalf("game fetch error: %v", err)
	}
	playWhite := view.WhiteID == *playerID

	events := make(chan arenadto.Event, 16)
	watcher := arenaclient.NewWatcher(*baseURL, gameID, *playerID, func(ev arenadto.Event) {
		select {
		case events <- ev:
		default:
		}
	})
	go func() {
		if err := watcher.Run(ctx); err != nil && ctx.Err() == nil {
			obslog.L().Error("watcher_error", zap.Error(err))
		}
		stop()
	}()

	// Opening move when playing white.
	playIfOurTurn(ctx, client, engine, gameID, view.MovesUCI, playWhite)

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			switch ev.Type {
			case "chat":
				obslog.L().Info("chat_received",
					zap.String("from", ev.Sender), zap.String("text", ev.Text))
			case "move":
				if ev.Meta != nil && ev.Meta.Status == "ended" {
					obslog.L().Info("game_over",
						zap.String("result", ev.Meta.Result),
						zap.String("reason", ev.Meta.EndReason))
					return
				}
				playIfOurTurn(ctx, client, engine, gameID, ev.MovesUCI, playWhite)
			}
		}
	}
}

func playIfOurTurn(ctx context.Context, client *arenaclient.Client, engine *rules.Engine, gameID string, movesUCI []string, playWhite bool) {
	whiteToMove := len(movesUCI)%2 == 0
	if whiteToMove != playWhite {
		return
	}
	mv, err := engine.RandomMove(movesUCI)
	if err != nil {
		obslog.L().Warn("move_pick_failed", zap.Error(err))
		return
	}
	if _, err := client.Move(ctx, gameID, mv); err != nil {
		obslog.L().Warn("move_rejected", zap.String("uci", mv), zap.Error(err))
	}
}

func envDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
