package store

import (
	"context"

	"github.com/chess-arena/arena-server/internal/domain"
	"github.com/chess-arena/arena-server/internal/rating"
)

// PlayerStore resolves and persists accounts. Get provisions a default
// account on first sight, so an identity only needs to be presented, never
// registered up front.
type PlayerStore interface {
	Get(ctx context.Context, id string) (*domain.Player, error)
	EnsureBot(ctx context.Context, name string) (*domain.Player, error)
	SaveRatings(ctx context.Context, a, b *domain.Player) error
}

// ProvisionDefaults seeds the rating fields of accounts created on first
// sight. Non-positive fields fall back to the rating system's constants.
type ProvisionDefaults struct {
	Rating     float64
	Deviation  float64
	Volatility float64
}

func DefaultProvision() ProvisionDefaults {
	return ProvisionDefaults{
		Rating:     rating.DefaultRating,
		Deviation:  rating.DefaultDeviation,
		Volatility: rating.DefaultVolatility,
	}
}

func (d ProvisionDefaults) normalized() ProvisionDefaults {
	if d.Rating <= 0 {
		d.Rating = rating.DefaultRating
	}
	if d.Deviation <= 0 {
		d.Deviation = rating.DefaultDeviation
	}
	if d.Volatility <= 0 {
		d.Volatility = rating.DefaultVolatility
	}
	return d
}
