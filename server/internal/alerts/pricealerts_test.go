package alerts

import (
	"context"
	"strings"
	"testing"

	"github.com/coinscope/coinscope/pkg/types"
	"github.com/coinscope/coinscope/server/internal/userdata"
)

func TestCheckPriceAlerts(t *testing.T) {
	ctx := context.Background()
	e, c, _ := newTestEngine(t)
	book := userdata.New(userdata.NewMemory())

	above, _ := book.CreatePriceAlert(ctx, userdata.PriceAlert{CoinID: "bitcoin", Direction: userdata.Above, Price: 70000})
	below, _ := book.CreatePriceAlert(ctx, userdata.PriceAlert{CoinID: "ethereum", Direction: userdata.Below, Price: 2000})
	idle, _ := book.CreatePriceAlert(ctx, userdata.PriceAlert{CoinID: "bitcoin", Direction: userdata.Below, Price: 10000})
	off, _ := book.CreatePriceAlert(ctx, userdata.PriceAlert{CoinID: "bitcoin", Direction: userdata.Above, Price: 1})
	book.TogglePriceAlert(ctx, off.ID)

	snap := &types.MarketSnapshot{SourceID: "a", VsCurrency: "usd", Coins: []types.CoinSnapshot{
		{ID: "bitcoin", Symbol: "btc", CurrentPrice: 70000},
		{ID: "ethereum", Symbol: "eth", CurrentPrice: 1999.5},
	}}
	fired, err := e.CheckPriceAlerts(ctx, snap, book)
	if err != nil {
		t.Fatal(err)
	}
	if len(fired) != 2 {
		t.Fatalf("fired: got %d, want 2 (%+v)", len(fired), fired)
	}
	ids := map[string]bool{fired[0].ID: true, fired[1].ID: true}
	if !ids[above.ID] || !ids[below.ID] || ids[idle.ID] || ids[off.ID] {
		t.Errorf("wrong alerts fired: %v", ids)
	}
	for _, f := range fired {
		if !f.Triggered || f.TriggeredAt == nil {
			t.Errorf("not marked triggered: %+v", f)
		}
	}
	if c.len() != 2 {
		t.Errorf("notifications: got %d, want 2", c.len())
	}

	// Triggered alerts fire once.
	again, _ := e.CheckPriceAlerts(ctx, snap, book)
	if len(again) != 0 {
		t.Errorf("refired: %+v", again)
	}
}

func TestCheckPriceAlerts_NotificationsOff(t *testing.T) {
	ctx := context.Background()
	e, c, _ := newTestEngine(t)
	book := userdata.New(userdata.NewMemory())
	book.CreatePriceAlert(ctx, userdata.PriceAlert{CoinID: "bitcoin", Direction: userdata.Above, Price: 1})
	off := false
	book.UpdatePreferences(ctx, userdata.PreferencesUpdate{Notifications: &off})

	snap := &types.MarketSnapshot{Coins: []types.CoinSnapshot{{ID: "bitcoin", CurrentPrice: 5}}}
	fired, err := e.CheckPriceAlerts(ctx, snap, book)
	if err != nil {
		t.Fatal(err)
	}
	if len(fired) != 0 || c.len() != 0 {
		t.Errorf("fired with notifications off: %+v", fired)
	}
	as, _ := book.PriceAlerts(ctx)
	if as[0].Triggered {
		t.Error("alert marked triggered with notifications off")
	}
}

func TestCheckPriceAlerts_ConvertsFeedCurrency(t *testing.T) {
	tests := []struct {
		name  string
		rates []types.ExchangeRate
		price float64 // INR
		want  int
	}{
		{"usd base rate", []types.ExchangeRate{{Base: "USD", Quote: "INR", Rate: 64}}, 4_480_000, 1},
		{"inr base rate", []types.ExchangeRate{{Base: "INR", Quote: "USD", Rate: 0.015625}}, 4_480_000, 1},
		{"below target in usd", []types.ExchangeRate{{Base: "USD", Quote: "INR", Rate: 64}}, 4_479_936, 0},
		{"inr price above usd target but no rate", nil, 4_480_000, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			e, c, _ := newTestEngine(t)
			book := userdata.New(userdata.NewMemory())
			book.CreatePriceAlert(ctx, userdata.PriceAlert{CoinID: "bitcoin", Direction: userdata.Above, Price: 70000})

			snap := &types.MarketSnapshot{
				SourceID:   "a",
				VsCurrency: "inr",
				Rates:      tc.rates,
				Coins:      []types.CoinSnapshot{{ID: "bitcoin", Symbol: "btc", CurrentPrice: tc.price}},
			}
			fired, err := e.CheckPriceAlerts(ctx, snap, book)
			if err != nil {
				t.Fatal(err)
			}
			if len(fired) != tc.want || c.len() != tc.want {
				t.Errorf("fired %d, notified %d; want %d", len(fired), c.len(), tc.want)
			}
		})
	}
}

func TestPriceAlertMessage(t *testing.T) {
	coin := types.CoinSnapshot{Symbol: "btc"}
	up := PriceAlertMessage(userdata.PriceAlert{Direction: userdata.Above, Price: 70000}, coin)
	if up != "BTC is now above $70000!" {
		t.Errorf("above: %q", up)
	}
	down := PriceAlertMessage(userdata.PriceAlert{Direction: userdata.Below, Price: 0.5, CoinSymbol: "doge"}, types.CoinSnapshot{})
	if !strings.HasPrefix(down, "DOGE dropped below $0.5") {
		t.Errorf("below: %q", down)
	}
}
