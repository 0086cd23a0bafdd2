package lobby

import (
	"errors"
	"strings"
	"sync"
	"time"
)

const (
	defaultCapacity = 200
	maxTextLen      = 500
)

var ErrEmptyMessage = errors.New("empty message")

// Message is one lobby chat line. IDs increase monotonically, so a client
// polls with the highest ID it has seen.
type Message struct {
	ID     int64     `json:"id"`
	Sender string    `json:"player_id"`
	Text   string    `json:"text"`
	At     time.Time `json:"at"`
}

// Chat is the waiting-room message board: a bounded in-memory buffer shared
// by everyone outside a game. Old lines fall off the front; there is no
// persistence and no per-game scoping.
type Chat struct {
	mu   sync.Mutex
	next int64
	msgs []Message
	cap  int
}

func NewChat(capacity int) *Chat {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &Chat{next: 1, cap: capacity}
}

// Post appends a line and returns it with its assigned ID. Text is trimmed
// and bounded; blank messages are rejected.
func (c *Chat) Post(sender, text string) (Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Message{}, ErrEmptyMessage
	}
	if len(text) > maxTextLen {
		text = text[:maxTextLen]
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	m := Message{ID: c.next, Sender: strings.TrimSpace(sender), Text: text, At: time.Now().UTC()}
	c.next++
	c.msgs = append(c.msgs, m)
	if len(c.msgs) > c.cap {
		c.msgs = c.msgs[len(c.msgs)-c.cap:]
	}
	return m, nil
}

// Since returns every retained message with an ID greater than id, oldest
// first. Lines that already fell off the buffer are gone; callers that were
// away too long simply resume from what remains.
func (c *Chat) Since(id int64) []Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := 0
	for i < len(c.msgs) && c.msgs[i].ID <= id {
		i++
	}
	out := make([]Message, len(c.msgs)-i)
	copy(out, c.msgs[i:])
	return out
}

// LastID reports the newest assigned ID, 0 when nothing was ever posted.
func (c *Chat) LastID() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.next - 1
}
