package transport

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/chess-arena/arena-server/internal/arena"
	"github.com/chess-arena/arena-server/internal/broadcast"
	"github.com/chess-arena/arena-server/internal/lobby"
	"github.com/chess-arena/arena-server/internal/matchmaking"
	"github.com/chess-arena/arena-server/internal/store"
	"github.com/chess-arena/arena-server/pkg/arenadto"
)

// Server is the thin HTTP and websocket adapter over the session core. All
// validation and game semantics live below it; the adapter only maps
// identities, payloads and error codes.
type Server struct {
	registry  *arena.Registry
	queue     *matchmaking.Queue
	hub       *broadcast.Hub
	cache     *store.RedisCache
	lobbyChat *lobby.Chat
}

func NewServer(registry *arena.Registry, queue *matchmaking.Queue, hub *broadcast.Hub, cache *store.RedisCache, lobbyChat *lobby.Chat) *Server {
	return &Server{registry: registry, queue: queue, hub: hub, cache: cache, lobbyChat: lobbyChat}
}

// Router builds the gin engine with all routes mounted.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })

	r.POST("/queue", s.handleEnqueue)
	r.DELETE("/queue", s.handleCancel)
	r.GET("/queue", s.handleQueueStatus)
	r.GET("/queue/waiting", s.handleWaiting)

	r.POST("/lobby/chat", s.handleLobbyPost)
	r.GET("/lobby/chat", s.handleLobbyFetch)

	r.GET("/games/:id", s.handleGetGame)
	r.POST("/games/:id/moves", s.handleMove)
	r.POST("/games/:id/chat", s.handleChat)
	r.POST("/games/:id/resign", s.handleResign)
	r.GET("/games/:id/ws", s.handleWS)

	return r
}

func playerID(c *gin.Context) (string, bool) {
	id := strings.TrimSpace(c.GetHeader("X-Player-Id"))
	if id == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing X-Player-Id"})
		return "", false
	}
	return id, true
}

func (s *Server) handleEnqueue(c *gin.Context) {
	pid, ok := playerID(c)
	if !ok {
		return
	}
	var req arenadto.EnqueueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	resp, err := s.queue.Enqueue(c.Request.Context(), pid, req.Ranked, req.VsSystem)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleCancel(c *gin.Context) {
	pid, ok := playerID(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, arenadto.CancelResponse{WasQueued: s.queue.Cancel(pid)})
}

func (s *Server) handleQueueStatus(c *gin.Context) {
	pid, ok := playerID(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, s.queue.Status(pid))
}

func (s *Server) handleWaiting(c *gin.Context) {
	var ranked *bool
	if v := strings.TrimSpace(c.Query("ranked")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ranked filter"})
			return
		}
		ranked = &b
	}
	c.JSON(http.StatusOK, gin.H{"waiting": s.queue.ListWaiting(ranked)})
}

func (s *Server) handleLobbyPost(c *gin.Context) {
	pid, ok := playerID(c)
	if !ok {
		return
	}
	var req arenadto.LobbyChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	m, err := s.lobbyChat.Post(pid, req.Text)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, lobbyMessageDTO(m))
}

func (s *Server) handleLobbyFetch(c *gin.Context) {
	var since int64
	if v := strings.TrimSpace(c.Query("since")); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid since cursor"})
			return
		}
		since = n
	}

	msgs := s.lobbyChat.Since(since)
	resp := arenadto.LobbyChatResponse{
		Messages: make([]arenadto.LobbyChatMessage, 0, len(msgs)),
		LastID:   s.lobbyChat.LastID(),
	}
	for _, m := range msgs {
		resp.Messages = append(resp.Messages, lobbyMessageDTO(m))
	}
	c.JSON(http.StatusOK, resp)
}

func lobbyMessageDTO(m lobby.Message) arenadto.LobbyChatMessage {
	return arenadto.LobbyChatMessage{
		ID:       m.ID,
		PlayerID: m.Sender,
		Text:     m.Text,
		SentAt:   m.At.Unix(),
	}
}

func (s *Server) handleGetGame(c *gin.Context) {
	id := c.Param("id")
	if view, ok := s.registry.View(id); ok {
		c.JSON(http.StatusOK, view)
		return
	}
	// Retired games live on in the snapshot cache until they expire.
	if s.cache != nil {
		if g, err := s.cache.Load(c.Request.Context(), id); err == nil && g != nil {
			c.JSON(http.StatusOK, arenadto.GameView{
				ID:        g.ID,
				Ranked:    g.Ranked,
				WhiteID:   g.WhiteID,
				BlackID:   g.BlackID,
				FEN:       g.FEN,
				Movetext:  g.Movetext(),
				MovesUCI:  g.MovesUCI,
				Status:    string(g.Status),
				Result:    string(g.Result),
				EndReason: g.EndReason,
			})
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "game not found"})
}

func (s *Server) handleMove(c *gin.Context) {
	pid, ok := playerID(c)
	if !ok {
		return
	}
	var req arenadto.MoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	view, err := s.registry.SubmitMove(c.Request.Context(), c.Param("id"), pid, req.UCI)
	if err != nil {
		s.writeGameError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) handleChat(c *gin.Context) {
	pid, ok := playerID(c)
	if !ok {
		return
	}
	var req arenadto.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Text) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	if err := s.registry.SubmitChat(c.Param("id"), pid, req.Text); err != nil {
		s.writeGameError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) handleResign(c *gin.Context) {
	pid, ok := playerID(c)
	if !ok {
		return
	}
	view, err := s.registry.Resign(c.Request.Context(), c.Param("id"), pid)
	if err != nil {
		s.writeGameError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) writeGameError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, arena.ErrGameNotActive):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, arena.ErrNotParticipant):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, arena.ErrNotYourTurn):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, arena.ErrIllegalMove):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
