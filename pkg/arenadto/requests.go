package arenadto

// Requests and responses for the HTTP adapter. Identity travels in the
// X-Player-Id header; token mechanics are the caller boundary's business.

type MoveRequest struct {
	UCI string `json:"uci"`
}

type ChatRequest struct {
	Text string `json:"text"`
}

type EnqueueRequest struct {
	Ranked   bool `json:"ranked"`
	VsSystem bool `json:"vs_system"`
}

type EnqueueResponse struct {
	Status   string `json:"status"` // "active" | "waiting"
	GameID   string `json:"game_id,omitempty"`
	Ranked   bool   `json:"ranked"`
	VsSystem bool   `json:"vs_system"`
}

type QueueStatusResponse struct {
	Status string `json:"status"` // "waiting" | "active" | "idle"
	GameID string `json:"game_id,omitempty"`
	Ranked bool   `json:"ranked"`
}

type CancelResponse struct {
	WasQueued bool `json:"was_queued"`
}

type WaitingEntry struct {
	PlayerID   string `json:"player_id"`
	Ranked     bool   `json:"ranked"`
	EnqueuedAt int64  `json:"enqueued_at"`
}

type LobbyChatRequest struct {
	Text string `json:"text"`
}

type LobbyChatMessage struct {
	ID       int64  `json:"id"`
	PlayerID string `json:"player_id"`
	Text     string `json:"text"`
	SentAt   int64  `json:"sent_at"`
}

type LobbyChatResponse struct {
	Messages []LobbyChatMessage `json:"messages"`
	LastID   int64              `json:"last_id"`
}

// GameView is the full-state fetch observers reconcile with after
// (re)subscribing.
type GameView struct {
	ID        string      `json:"id"`
	Ranked    bool        `json:"ranked"`
	WhiteID   string      `json:"white_id"`
	BlackID   string      `json:"black_id"`
	FEN       string      `json:"fen"`
	Movetext  string      `json:"pgn"`
	MovesUCI  []string    `json:"moves_uci"`
	Status    string      `json:"status"`
	Result    string      `json:"result,omitempty"`
	EndReason string      `json:"end_reason,omitempty"`
	Meta      *StatusMeta `json:"meta,omitempty"`
}
