package transport

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/chess-arena/arena-server/internal/obslog"
)

const wsWriteTimeout = 5 * time.Second

// wsCommand is an inbound websocket frame. Unrecognized types are dropped
// silently so protocol additions never break old servers.
type wsCommand struct {
	Type string `json:"type"`
	UCI  string `json:"uci,omitempty"`
	Text string `json:"text,omitempty"`
}

type wsError struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// handleWS upgrades the connection and couples it to the game's event
// stream. Observers may connect without identity; move and chat commands
// require one.
func (s *Server) handleWS(c *gin.Context) {
	gameID := c.Param("id")
	if _, ok := s.registry.View(gameID); !ok {
		c.JSON(404, gin.H{"error": "game not found"})
		return
	}

	pid := strings.TrimSpace(c.GetHeader("X-Player-Id"))
	if pid == "" {
		pid = strings.TrimSpace(c.Query("player_id"))
	}

	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		obslog.L().Warn("ws_accept_failed", zap.String("game_id", gameID), zap.Error(err))
		return
	}
	defer conn.Close(websocket.StatusInternalError, "closing")

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	sub := s.hub.Subscribe(gameID)
	defer sub.Close()

	obslog.L().Info("ws_subscribed",
		zap.String("game_id", gameID), zap.String("player_id", pid))

	go func() {
		defer cancel()
		for {
			var cmd wsCommand
			if err := wsjson.Read(ctx, conn, &cmd); err != nil {
				return
			}
			s.dispatchWS(ctx, conn, gameID, pid, cmd)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "done")
			return
		case ev, ok := <-sub.C:
			if !ok {
				conn.Close(websocket.StatusNormalClosure, "stream closed")
				return
			}
			wctx, wcancel := context.WithTimeout(ctx, wsWriteTimeout)
			err := wsjson.Write(wctx, conn, ev)
			wcancel()
			if err != nil {
				return
			}
		}
	}
}

func (s *Server) dispatchWS(ctx context.Context, conn *websocket.Conn, gameID, pid string, cmd wsCommand) {
	writeErr := func(msg string) {
		wctx, wcancel := context.WithTimeout(ctx, wsWriteTimeout)
		_ = wsjson.Write(wctx, conn, wsError{Type: "error", Error: msg})
		wcancel()
	}

	switch cmd.Type {
	case "move":
		if pid == "" {
			writeErr("identity required")
			return
		}
		if _, err := s.registry.SubmitMove(ctx, gameID, pid, cmd.UCI); err != nil {
			writeErr(err.Error())
		}
	case "chat":
		if pid == "" {
			writeErr("identity required")
			return
		}
		if strings.TrimSpace(cmd.Text) == "" {
			return
		}
		if err := s.registry.SubmitChat(gameID, pid, cmd.Text); err != nil {
			writeErr(err.Error())
		}
	default:
		// ignore unknown frame types
	}
}
