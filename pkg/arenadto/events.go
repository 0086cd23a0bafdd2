package arenadto

// Event is the payload fanned out to game observers. Type is "move" or
// "chat"; move events carry full state so a client never needs a diff.
type Event struct {
	Type   string `json:"type"`
	GameID string `json:"game_id"`

	// move
	FEN      string      `json:"fen,omitempty"`
	Movetext string      `json:"pgn,omitempty"`
	MovesUCI []string    `json:"moves_uci,omitempty"`
	UCI      string      `json:"uci,omitempty"`
	SAN      string      `json:"san,omitempty"`
	Meta     *StatusMeta `json:"meta,omitempty"`

	// chat
	Sender string `json:"player_id,omitempty"`
	Text   string `json:"text,omitempty"`
}

// StatusMeta mirrors the rules engine's position flags plus terminal fields.
type StatusMeta struct {
	Turn                 string `json:"turn"`
	InCheck              bool   `json:"in_check"`
	IsCheckmate          bool   `json:"is_checkmate"`
	IsStalemate          bool   `json:"is_stalemate"`
	InsufficientMaterial bool   `json:"insufficient"`
	CanClaimThreefold    bool   `json:"can_claim_threefold"`
	CanClaimFifty        bool   `json:"can_claim_fifty"`

	Status    string `json:"status"`
	Result    string `json:"result,omitempty"`
	EndReason string `json:"end_reason,omitempty"`
}
