package userdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Document keys.
const (
	keyWatchlist   = "watchlist"
	keyPortfolio   = "portfolio"
	keyPriceAlerts = "price_alerts"
	keyPreferences = "preferences"
)

// Store is the user-data service on top of a Backend. Each operation is a
// read-modify-write of one JSON document; the mutex serialises them within
// this process and the last write wins across processes.
type Store struct {
	b     Backend
	mu    sync.Mutex
	now   func() time.Time
	newID func() string
}

// New returns a Store using b.
func New(b Backend) *Store {
	return &Store{
		b:     b,
		now:   time.Now,
		newID: func() string { return uuid.NewString() },
	}
}

// load decodes the document at key into out. A missing key leaves out untouched.
func (s *Store) load(ctx context.Context, key string, out any) error {
	data, err := s.b.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("userdata: decode %s: %w", key, err)
	}
	return nil
}

func (s *Store) save(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("userdata: encode %s: %w", key, err)
	}
	return s.b.Put(ctx, key, data)
}
