package userdata

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Price alert directions.
const (
	Above = "above"
	Below = "below"
)

// PriceAlert fires once when a coin's price crosses Price in Direction.
type PriceAlert struct {
	ID         string  `json:"id"`
	CoinID     string  `json:"coin_id"`
	CoinName   string  `json:"coin_name,omitempty"`
	CoinSymbol string  `json:"coin_symbol,omitempty"`
	Direction  string  `json:"direction"` // above | below
	Price      float64 `json:"price"`     // USD

	Active      bool       `json:"active"`
	Triggered   bool       `json:"triggered"`
	CreatedAt   time.Time  `json:"created_at"`
	TriggeredAt *time.Time `json:"triggered_at,omitempty"`
}

// Armed reports whether the alert can still fire.
func (a PriceAlert) Armed() bool { return a.Active && !a.Triggered }

// Crossed reports whether price satisfies the alert's condition.
func (a PriceAlert) Crossed(price float64) bool {
	switch a.Direction {
	case Above:
		return price >= a.Price
	case Below:
		return price <= a.Price
	}
	return false
}

// PriceAlerts returns every alert in creation order.
func (s *Store) PriceAlerts(ctx context.Context) ([]PriceAlert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.priceAlerts(ctx)
}

func (s *Store) priceAlerts(ctx context.Context) ([]PriceAlert, error) {
	as := []PriceAlert{}
	if err := s.load(ctx, keyPriceAlerts, &as); err != nil {
		return nil, err
	}
	return as, nil
}

// CreatePriceAlert stores a new, active, untriggered alert and returns it
// with its generated id.
func (s *Store) CreatePriceAlert(ctx context.Context, a PriceAlert) (PriceAlert, error) {
	a.CoinID = strings.TrimSpace(a.CoinID)
	if a.CoinID == "" {
		return PriceAlert{}, fmt.Errorf("%w: coin id is required", ErrInvalid)
	}
	if a.Direction != Above && a.Direction != Below {
		return PriceAlert{}, fmt.Errorf("%w: direction %q: want above|below", ErrInvalid, a.Direction)
	}
	if a.Price <= 0 {
		return PriceAlert{}, fmt.Errorf("%w: price must be positive", ErrInvalid)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	as, err := s.priceAlerts(ctx)
	if err != nil {
		return PriceAlert{}, err
	}
	a.ID = s.newID()
	a.CreatedAt = s.now().UTC()
	a.Active = true
	a.Triggered = false
	a.TriggeredAt = nil
	as = append(as, a)
	return a, s.save(ctx, keyPriceAlerts, as)
}

// RemovePriceAlert deletes the alert with id.
func (s *Store) RemovePriceAlert(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	as, err := s.priceAlerts(ctx)
	if err != nil {
		return err
	}
	out := as[:0]
	for _, a := range as {
		if a.ID != id {
			out = append(out, a)
		}
	}
	if len(out) == len(as) {
		return fmt.Errorf("price alert %q: %w", id, ErrNotFound)
	}
	return s.save(ctx, keyPriceAlerts, out)
}

// TogglePriceAlert flips Active. Re-activating a triggered alert re-arms it.
func (s *Store) TogglePriceAlert(ctx context.Context, id string) (PriceAlert, error) {
	return s.updatePriceAlert(ctx, id, func(a *PriceAlert) {
		a.Active = !a.Active
		if a.Active {
			a.Triggered = false
			a.TriggeredAt = nil
		}
	})
}

// MarkTriggered records that the alert fired.
func (s *Store) MarkTriggered(ctx context.Context, id string) (PriceAlert, error) {
	return s.updatePriceAlert(ctx, id, func(a *PriceAlert) {
		at := s.now().UTC()
		a.Triggered = true
		a.TriggeredAt = &at
	})
}

func (s *Store) updatePriceAlert(ctx context.Context, id string, fn func(*PriceAlert)) (PriceAlert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	as, err := s.priceAlerts(ctx)
	if err != nil {
		return PriceAlert{}, err
	}
	for i := range as {
		if as[i].ID == id {
			fn(&as[i])
			return as[i], s.save(ctx, keyPriceAlerts, as)
		}
	}
	return PriceAlert{}, fmt.Errorf("price alert %q: %w", id, ErrNotFound)
}
