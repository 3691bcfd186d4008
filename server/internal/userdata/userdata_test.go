package userdata

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/coinscope/coinscope/server/internal/config"
)

var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestStore(b Backend) *Store {
	s := New(b)
	s.now = func() time.Time { return testNow }
	n := 0
	s.newID = func() string {
		n++
		return fmt.Sprintf("alert-%d", n)
	}
	return s
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// backends runs fn against Memory and against go-redis on miniredis.
func backends(t *testing.T, fn func(t *testing.T, s *Store)) {
	t.Run("memory", func(t *testing.T) {
		fn(t, newTestStore(NewMemory()))
	})
	t.Run("redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { client.Close() })
		fn(t, newTestStore(NewRedis(client, "test:")))
	})
}

// ── Watchlist ────────────────────────────────────────────────────────────────

func TestWatchlist_AddIsIdempotent(t *testing.T) {
	backends(t, func(t *testing.T, s *Store) {
		ctx := context.Background()
		for _, id := range []string{"bitcoin", "ethereum", "bitcoin"} {
			if _, err := s.AddToWatchlist(ctx, id); err != nil {
				t.Fatalf("add %s: %v", id, err)
			}
		}
		got, err := s.Watchlist(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 2 || got[0] != "bitcoin" || got[1] != "ethereum" {
			t.Errorf("watchlist: got %v, want [bitcoin ethereum]", got)
		}
	})
}

func TestWatchlist_Remove(t *testing.T) {
	backends(t, func(t *testing.T, s *Store) {
		ctx := context.Background()
		s.AddToWatchlist(ctx, "bitcoin")
		s.AddToWatchlist(ctx, "solana")

		got, err := s.RemoveFromWatchlist(ctx, "bitcoin")
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 1 || got[0] != "solana" {
			t.Errorf("after remove: got %v, want [solana]", got)
		}
		if _, err := s.RemoveFromWatchlist(ctx, "absent"); err != nil {
			t.Errorf("removing absent id: %v", err)
		}
	})
}

func TestWatchlist_EmptyByDefault(t *testing.T) {
	s := newTestStore(NewMemory())
	got, err := s.Watchlist(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("want empty non-nil slice, got %#v", got)
	}
}

func TestWatchlist_RejectsEmptyID(t *testing.T) {
	s := newTestStore(NewMemory())
	if _, err := s.AddToWatchlist(context.Background(), "  "); err == nil {
		t.Error("expected error for blank coin id")
	}
}

// ── Portfolio ────────────────────────────────────────────────────────────────

func TestPortfolio_AddMergesExisting(t *testing.T) {
	backends(t, func(t *testing.T, s *Store) {
		ctx := context.Background()
		if _, err := s.AddHolding(ctx, Holding{CoinID: "bitcoin", Amount: dec("1"), BuyPrice: dec("30000")}); err != nil {
			t.Fatal(err)
		}
		hs, err := s.AddHolding(ctx, Holding{CoinID: "bitcoin", Amount: dec("1"), BuyPrice: dec("50000")})
		if err != nil {
			t.Fatal(err)
		}
		if len(hs) != 1 {
			t.Fatalf("holdings: got %d, want 1", len(hs))
		}
		h := hs[0]
		if !h.Amount.Equal(dec("2")) {
			t.Errorf("amount: got %s, want 2", h.Amount)
		}
		if !h.TotalInvested.Equal(dec("80000")) {
			t.Errorf("total invested: got %s, want 80000", h.TotalInvested)
		}
		if !h.BuyPrice.Equal(dec("40000")) {
			t.Errorf("average buy price: got %s, want 40000", h.BuyPrice)
		}
		if !h.AddedAt.Equal(testNow) {
			t.Errorf("added_at: got %v", h.AddedAt)
		}
	})
}

func TestPortfolio_AddValidation(t *testing.T) {
	s := newTestStore(NewMemory())
	cases := []struct {
		name string
		h    Holding
	}{
		{"no coin", Holding{Amount: dec("1")}},
		{"zero amount", Holding{CoinID: "btc"}},
		{"negative price", Holding{CoinID: "btc", Amount: dec("1"), BuyPrice: dec("-1")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := s.AddHolding(context.Background(), tc.h); !errors.Is(err, ErrInvalid) {
				t.Errorf("got %v, want ErrInvalid", err)
			}
		})
	}
}

func TestPortfolio_UpdatePartial(t *testing.T) {
	backends(t, func(t *testing.T, s *Store) {
		ctx := context.Background()
		s.AddHolding(ctx, Holding{CoinID: "ethereum", Amount: dec("3"), BuyPrice: dec("2000")})

		amt := dec("5")
		h, err := s.UpdateHolding(ctx, "ethereum", HoldingUpdate{Amount: &amt})
		if err != nil {
			t.Fatal(err)
		}
		if !h.Amount.Equal(amt) {
			t.Errorf("amount: got %s, want 5", h.Amount)
		}
		if !h.BuyPrice.Equal(dec("2000")) {
			t.Errorf("buy price changed: %s", h.BuyPrice)
		}
		if !h.TotalInvested.Equal(dec("10000")) {
			t.Errorf("invested after amount change: got %s, want 10000", h.TotalInvested)
		}

		if _, err := s.UpdateHolding(ctx, "dogecoin", HoldingUpdate{Amount: &amt}); !errors.Is(err, ErrNotFound) {
			t.Errorf("update missing: got %v, want ErrNotFound", err)
		}
	})
}

func TestPortfolio_UpdateBuyPriceMovesCostBasis(t *testing.T) {
	backends(t, func(t *testing.T, s *Store) {
		ctx := context.Background()
		s.AddHolding(ctx, Holding{CoinID: "bitcoin", Amount: dec("2"), BuyPrice: dec("30000")})

		price := dec("40000")
		if _, err := s.UpdateHolding(ctx, "bitcoin", HoldingUpdate{BuyPrice: &price}); err != nil {
			t.Fatal(err)
		}
		hs, _ := s.Portfolio(ctx)
		v := Valuate(hs, map[string]float64{"bitcoin": 50000})
		if !v.TotalInvested.Equal(dec("80000")) || !v.PL.Equal(dec("20000")) {
			t.Errorf("valuation: invested %s, pl %s; want 80000, 20000", v.TotalInvested, v.PL)
		}

		invested := dec("90000")
		h, err := s.UpdateHolding(ctx, "bitcoin", HoldingUpdate{TotalInvested: &invested})
		if err != nil {
			t.Fatal(err)
		}
		if !h.BuyPrice.Equal(dec("45000")) {
			t.Errorf("buy price from invested: got %s, want 45000", h.BuyPrice)
		}
	})
}

func TestPortfolio_UpdateValidation(t *testing.T) {
	s := New(NewMemory())
	ctx := context.Background()
	s.AddHolding(ctx, Holding{CoinID: "bitcoin", Amount: dec("1"), BuyPrice: dec("100")})

	zero, neg := dec("0"), dec("-5")
	cases := []struct {
		name string
		u    HoldingUpdate
	}{
		{"zero amount", HoldingUpdate{Amount: &zero}},
		{"negative amount", HoldingUpdate{Amount: &neg}},
		{"negative buy price", HoldingUpdate{BuyPrice: &neg}},
		{"negative invested", HoldingUpdate{TotalInvested: &neg}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := s.UpdateHolding(ctx, "bitcoin", tc.u); !errors.Is(err, ErrInvalid) {
				t.Errorf("got %v, want ErrInvalid", err)
			}
		})
	}

	hs, _ := s.Portfolio(ctx)
	if !hs[0].Amount.Equal(dec("1")) || !hs[0].BuyPrice.Equal(dec("100")) {
		t.Errorf("rejected update changed the holding: %+v", hs[0])
	}
}

func TestPortfolio_Remove(t *testing.T) {
	backends(t, func(t *testing.T, s *Store) {
		ctx := context.Background()
		s.AddHolding(ctx, Holding{CoinID: "bitcoin", Amount: dec("1"), BuyPrice: dec("1")})
		if err := s.RemoveHolding(ctx, "bitcoin"); err != nil {
			t.Fatal(err)
		}
		if err := s.RemoveHolding(ctx, "bitcoin"); !errors.Is(err, ErrNotFound) {
			t.Errorf("second remove: got %v, want ErrNotFound", err)
		}
		hs, _ := s.Portfolio(ctx)
		if len(hs) != 0 {
			t.Errorf("portfolio not empty: %v", hs)
		}
	})
}

func TestValuate(t *testing.T) {
	hs := []Holding{
		{CoinID: "bitcoin", Amount: dec("0.5"), BuyPrice: dec("40000"), TotalInvested: dec("20000")},
		{CoinID: "ethereum", Amount: dec("2"), BuyPrice: dec("2500")},
		{CoinID: "unlisted", Amount: dec("10"), BuyPrice: dec("1")},
	}
	prices := map[string]float64{"bitcoin": 50000, "ethereum": 2000}

	v := Valuate(hs, prices)
	if len(v.Holdings) != 3 {
		t.Fatalf("holdings: got %d, want 3", len(v.Holdings))
	}
	btc := v.Holdings[0]
	if !btc.Value.Equal(dec("25000")) || !btc.PL.Equal(dec("5000")) || !btc.PLPct.Equal(dec("25")) {
		t.Errorf("bitcoin: value=%s pl=%s pct=%s", btc.Value, btc.PL, btc.PLPct)
	}
	eth := v.Holdings[1]
	if !eth.Value.Equal(dec("4000")) || !eth.PL.Equal(dec("-1000")) || !eth.PLPct.Equal(dec("-20")) {
		t.Errorf("ethereum: value=%s pl=%s pct=%s", eth.Value, eth.PL, eth.PLPct)
	}
	if v.Holdings[2].Priced {
		t.Error("unlisted holding should not be priced")
	}
	if !v.TotalValue.Equal(dec("29000")) {
		t.Errorf("total value: got %s, want 29000", v.TotalValue)
	}
	if !v.TotalInvested.Equal(dec("25000")) {
		t.Errorf("total invested: got %s, want 25000", v.TotalInvested)
	}
	if !v.PL.Equal(dec("4000")) || !v.PLPct.Equal(dec("16")) {
		t.Errorf("totals: pl=%s pct=%s", v.PL, v.PLPct)
	}
}

func TestValuate_EmptyPortfolio(t *testing.T) {
	v := Valuate(nil, nil)
	if !v.TotalValue.IsZero() || !v.PLPct.IsZero() || v.Holdings == nil {
		t.Errorf("unexpected %+v", v)
	}
}

// ── Price alerts ─────────────────────────────────────────────────────────────

func TestPriceAlerts_Create(t *testing.T) {
	backends(t, func(t *testing.T, s *Store) {
		ctx := context.Background()
		a, err := s.CreatePriceAlert(ctx, PriceAlert{
			CoinID: "bitcoin", CoinSymbol: "BTC", Direction: Above, Price: 70000,
			Triggered: true, // ignored on create
		})
		if err != nil {
			t.Fatal(err)
		}
		if a.ID != "alert-1" || !a.Active || a.Triggered || !a.CreatedAt.Equal(testNow) {
			t.Errorf("created alert: %+v", a)
		}
		as, _ := s.PriceAlerts(ctx)
		if len(as) != 1 || as[0].ID != a.ID {
			t.Errorf("list: %+v", as)
		}
	})
}

func TestPriceAlerts_CreateValidation(t *testing.T) {
	s := newTestStore(NewMemory())
	cases := []struct {
		name string
		a    PriceAlert
	}{
		{"no coin", PriceAlert{Direction: Above, Price: 1}},
		{"bad direction", PriceAlert{CoinID: "btc", Direction: "sideways", Price: 1}},
		{"zero price", PriceAlert{CoinID: "btc", Direction: Below}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := s.CreatePriceAlert(context.Background(), tc.a); !errors.Is(err, ErrInvalid) {
				t.Errorf("got %v, want ErrInvalid", err)
			}
		})
	}
}

func TestPriceAlerts_ToggleAndTrigger(t *testing.T) {
	backends(t, func(t *testing.T, s *Store) {
		ctx := context.Background()
		a, _ := s.CreatePriceAlert(ctx, PriceAlert{CoinID: "bitcoin", Direction: Below, Price: 20000})

		fired, err := s.MarkTriggered(ctx, a.ID)
		if err != nil {
			t.Fatal(err)
		}
		if !fired.Triggered || fired.TriggeredAt == nil || fired.Armed() {
			t.Errorf("after trigger: %+v", fired)
		}

		off, _ := s.TogglePriceAlert(ctx, a.ID)
		if off.Active {
			t.Error("toggle should deactivate")
		}
		on, _ := s.TogglePriceAlert(ctx, a.ID)
		if !on.Active || on.Triggered || !on.Armed() {
			t.Errorf("re-activation should re-arm: %+v", on)
		}

		if _, err := s.TogglePriceAlert(ctx, "nope"); !errors.Is(err, ErrNotFound) {
			t.Errorf("toggle missing: got %v", err)
		}
	})
}

func TestPriceAlerts_Remove(t *testing.T) {
	backends(t, func(t *testing.T, s *Store) {
		ctx := context.Background()
		a, _ := s.CreatePriceAlert(ctx, PriceAlert{CoinID: "bitcoin", Direction: Above, Price: 1})
		b, _ := s.CreatePriceAlert(ctx, PriceAlert{CoinID: "solana", Direction: Above, Price: 1})
		if err := s.RemovePriceAlert(ctx, a.ID); err != nil {
			t.Fatal(err)
		}
		if err := s.RemovePriceAlert(ctx, a.ID); !errors.Is(err, ErrNotFound) {
			t.Errorf("second remove: %v", err)
		}
		as, _ := s.PriceAlerts(ctx)
		if len(as) != 1 || as[0].ID != b.ID {
			t.Errorf("remaining: %+v", as)
		}
	})
}

func TestPriceAlert_Crossed(t *testing.T) {
	cases := []struct {
		dir   string
		price float64
		want  bool
	}{
		{Above, 99, false},
		{Above, 100, true},
		{Above, 101, true},
		{Below, 101, false},
		{Below, 100, true},
		{Below, 99, true},
		{"bogus", 100, false},
	}
	for _, tc := range cases {
		a := PriceAlert{Direction: tc.dir, Price: 100}
		if got := a.Crossed(tc.price); got != tc.want {
			t.Errorf("%s at %v: got %v, want %v", tc.dir, tc.price, got, tc.want)
		}
	}
}

// ── Preferences ──────────────────────────────────────────────────────────────

func TestPreferences_Defaults(t *testing.T) {
	s := newTestStore(NewMemory())
	p, err := s.Preferences(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if p != DefaultPreferences() {
		t.Errorf("got %+v, want defaults", p)
	}
}

func TestPreferences_MergeUpdate(t *testing.T) {
	backends(t, func(t *testing.T, s *Store) {
		ctx := context.Background()
		cur := "usd"
		p, err := s.UpdatePreferences(ctx, PreferencesUpdate{Currency: &cur})
		if err != nil {
			t.Fatal(err)
		}
		want := Preferences{Currency: "USD", Theme: "dark", Notifications: true}
		if p != want {
			t.Errorf("got %+v, want %+v", p, want)
		}

		off := false
		p, _ = s.UpdatePreferences(ctx, PreferencesUpdate{Notifications: &off})
		if p.Currency != "USD" || p.Notifications {
			t.Errorf("second update lost fields: %+v", p)
		}

		bad := "neon"
		if _, err := s.UpdatePreferences(ctx, PreferencesUpdate{Theme: &bad}); err == nil {
			t.Error("expected error for unknown theme")
		}
	})
}

// ── Backends ─────────────────────────────────────────────────────────────────

func TestRedis_Prefix(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	r := NewRedis(client, "cs:")
	ctx := context.Background()
	if err := r.Put(ctx, "watchlist", []byte(`["bitcoin"]`)); err != nil {
		t.Fatal(err)
	}
	got, err := mr.Get("cs:watchlist")
	if err != nil {
		t.Fatalf("miniredis get: %v", err)
	}
	if got != `["bitcoin"]` {
		t.Errorf("stored value: got %q", got)
	}
	if err := r.Delete(ctx, "watchlist"); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Get(ctx, "watchlist"); !errors.Is(err, ErrNotFound) {
		t.Errorf("after delete: got %v, want ErrNotFound", err)
	}
}

func TestNewBackend(t *testing.T) {
	ctx := context.Background()

	b, err := NewBackend(ctx, config.StorageConfig{Backend: "memory"})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := b.(*Memory); !ok {
		t.Errorf("memory backend: got %T", b)
	}

	mr := miniredis.RunT(t)
	b, err = NewBackend(ctx, config.StorageConfig{Backend: "redis", Redis: config.RedisConfig{Addr: mr.Addr(), Prefix: "x:"}})
	if err != nil {
		t.Fatal(err)
	}
	r, ok := b.(*Redis)
	if !ok {
		t.Fatalf("redis backend: got %T", b)
	}
	r.Close()

	if _, err := NewBackend(ctx, config.StorageConfig{Backend: "etcd"}); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestMemory_CopiesValues(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	buf := []byte("abc")
	m.Put(ctx, "k", buf)
	buf[0] = 'z'
	got, _ := m.Get(ctx, "k")
	if string(got) != "abc" {
		t.Errorf("stored value aliased caller buffer: %q", got)
	}
}
