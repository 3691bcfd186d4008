package userdata

import (
	"context"
	"fmt"
	"strings"
)

// Watchlist returns the watched coin ids in insertion order.
func (s *Store) Watchlist(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.watchlist(ctx)
}

func (s *Store) watchlist(ctx context.Context) ([]string, error) {
	ids := []string{}
	if err := s.load(ctx, keyWatchlist, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// AddToWatchlist appends coinID unless it is already present.
func (s *Store) AddToWatchlist(ctx context.Context, coinID string) ([]string, error) {
	coinID = strings.TrimSpace(coinID)
	if coinID == "" {
		return nil, fmt.Errorf("%w: coin id is required", ErrInvalid)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	ids, err := s.watchlist(ctx)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		if id == coinID {
			return ids, nil
		}
	}
	ids = append(ids, coinID)
	return ids, s.save(ctx, keyWatchlist, ids)
}

// RemoveFromWatchlist drops coinID. Removing an absent id is not an error.
func (s *Store) RemoveFromWatchlist(ctx context.Context, coinID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids, err := s.watchlist(ctx)
	if err != nil {
		return nil, err
	}
	out := ids[:0]
	for _, id := range ids {
		if id != coinID {
			out = append(out, id)
		}
	}
	return out, s.save(ctx, keyWatchlist, out)
}
