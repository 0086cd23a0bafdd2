package lobby

import (
	"strconv"
	"strings"
	"sync"
	"testing"
)

func TestPost_AssignsIncreasingIDs(t *testing.T) {
	c := NewChat(10)

	m1, err := c.Post("p1", "hello")
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	m2, err := c.Post("p2", "hi")
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	if m1.ID != 1 || m2.ID != 2 {
		t.Fatalf("expected sequential ids, got %d %d", m1.ID, m2.ID)
	}
	if c.LastID() != 2 {
		t.Fatalf("LastID = %d", c.LastID())
	}
}

func TestPost_RejectsBlankAndTruncatesLong(t *testing.T) {
	c := NewChat(10)

	if _, err := c.Post("p1", "   "); err != ErrEmptyMessage {
		t.Fatalf("expected ErrEmptyMessage, got %v", err)
	}

	m, err := c.Post("p1", strings.Repeat("x", maxTextLen+50))
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	if len(m.Text) != maxTextLen {
		t.Fatalf("expected truncation to %d, got %d", maxTextLen, len(m.Text))
	}
}

func TestSince_ReturnsOnlyNewer(t *testing.T) {
	c := NewChat(10)
	for i := 0; i < 5; i++ {
		if _, err := c.Post("p1", "msg"+strconv.Itoa(i)); err != nil {
			t.Fatalf("Post: %v", err)
		}
	}

	got := c.Since(3)
	if len(got) != 2 || got[0].ID != 4 || got[1].ID != 5 {
		t.Fatalf("unexpected tail: %+v", got)
	}
	if all := c.Since(0); len(all) != 5 {
		t.Fatalf("expected full history, got %d", len(all))
	}
	if none := c.Since(5); len(none) != 0 {
		t.Fatalf("expected empty tail, got %+v", none)
	}
}

func TestBufferBounded_OldLinesDrop(t *testing.T) {
	c := NewChat(3)
	for i := 1; i <= 5; i++ {
		if _, err := c.Post("p1", "msg"+strconv.Itoa(i)); err != nil {
			t.Fatalf("Post: %v", err)
		}
	}

	got := c.Since(0)
	if len(got) != 3 || got[0].ID != 3 || got[2].ID != 5 {
		t.Fatalf("buffer should keep the newest 3: %+v", got)
	}
}

func TestPost_ConcurrentSendersKeepDistinctIDs(t *testing.T) {
	c := NewChat(100)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := c.Post("p"+strconv.Itoa(i), "hi"); err != nil {
				t.Errorf("Post: %v", err)
			}
		}(i)
	}
	wg.Wait()

	msgs := c.Since(0)
	if len(msgs) != 50 {
		t.Fatalf("expected 50 messages, got %d", len(msgs))
	}
	seen := make(map[int64]bool)
	for _, m := range msgs {
		if seen[m.ID] {
			t.Fatalf("duplicate id %d", m.ID)
		}
		seen[m.ID] = true
	}
}
