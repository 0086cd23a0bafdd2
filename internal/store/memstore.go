package store

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/chess-arena/arena-server/internal/domain"
)

// MemStore is the in-process account store used when no database is
// configured, and by tests.
type MemStore struct {
	mu       sync.RWMutex
	players  map[string]*domain.Player
	defaults ProvisionDefaults
}

func NewMemStore(d ProvisionDefaults) *MemStore {
	return &MemStore{players: make(map[string]*domain.Player), defaults: d.normalized()}
}

func (s *MemStore) Get(_ context.Context, id string) (*domain.Player, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.New("empty player id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.players[id]; ok {
		cp := *p
		return &cp, nil
	}
	p := newDefaultPlayer(id, id, false, s.defaults)
	s.players[id] = p
	cp := *p
	return &cp, nil
}

func (s *MemStore) EnsureBot(_ context.Context, name string) (*domain.Player, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "arena-bot"
	}
	id := "bot:" + name

	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.players[id]; ok {
		cp := *p
		return &cp, nil
	}
	p := newDefaultPlayer(id, name, true, s.defaults)
	s.players[id] = p
	cp := *p
	return &cp, nil
}

func (s *MemStore) SaveRatings(_ context.Context, a, b *domain.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range []*domain.Player{a, b} {
		if p == nil {
			continue
		}
		cp := *p
		cp.UpdatedAt = time.Now().UTC()
		s.players[p.ID] = &cp
	}
	return nil
}

func newDefaultPlayer(id, name string, isBot bool, d ProvisionDefaults) *domain.Player {
	now := time.Now().UTC()
	return &domain.Player{
		ID:         id,
		Name:       name,
		IsBot:      isBot,
		Rating:     d.Rating,
		Deviation:  d.Deviation,
		Volatility: d.Volatility,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}
