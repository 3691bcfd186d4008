package alerts

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/coinscope/coinscope/pkg/types"
	"github.com/coinscope/coinscope/server/internal/userdata"
)

// PriceBook is the slice of the user-data store price alerts need.
type PriceBook interface {
	Preferences(ctx context.Context) (userdata.Preferences, error)
	PriceAlerts(ctx context.Context) ([]userdata.PriceAlert, error)
	MarkTriggered(ctx context.Context, id string) (userdata.PriceAlert, error)
}

// CheckPriceAlerts fires every armed user price alert whose coin crossed its
// target in snap. Targets are USD, so feed prices in another currency are
// converted through the snapshot's rates first; without a usable rate no
// alert is checked. Fired alerts are marked triggered so they fire once, and
// delivered to the webhooks. Nothing fires while notifications are off.
func (e *Engine) CheckPriceAlerts(ctx context.Context, snap *types.MarketSnapshot, book PriceBook) ([]userdata.PriceAlert, error) {
	if snap == nil || len(snap.Coins) == 0 {
		return nil, nil
	}
	toUSD, ok := usdFactor(snap)
	if !ok {
		slog.Warn("alerts: no USD rate, price alerts skipped", "source_id", snap.SourceID, "vs_currency", snap.VsCurrency)
		return nil, nil
	}
	prefs, err := book.Preferences(ctx)
	if err != nil {
		return nil, fmt.Errorf("alerts: preferences: %w", err)
	}
	if !prefs.Notifications {
		return nil, nil
	}
	pending, err := book.PriceAlerts(ctx)
	if err != nil {
		return nil, fmt.Errorf("alerts: price alerts: %w", err)
	}

	byID := make(map[string]types.CoinSnapshot, len(snap.Coins))
	for _, c := range snap.Coins {
		byID[c.ID] = c
	}

	var fired []userdata.PriceAlert
	for _, pa := range pending {
		if !pa.Armed() {
			continue
		}
		coin, ok := byID[pa.CoinID]
		if !ok {
			continue
		}
		price := coin.CurrentPrice * toUSD
		if !pa.Crossed(price) {
			continue
		}
		marked, err := book.MarkTriggered(ctx, pa.ID)
		if err != nil {
			return fired, fmt.Errorf("alerts: mark %s: %w", pa.ID, err)
		}
		fired = append(fired, marked)

		msg := PriceAlertMessage(pa, coin)
		slog.Info("price alert fired", "id", pa.ID, "coin", pa.CoinID, "price_usd", price)
		e.dispatch(Notification{
			Title:    "coinscope price alert",
			Severity: "info",
			Message:  msg,
			Payload:  marked,
		})
	}
	return fired, nil
}

// usdFactor returns what one unit of the snapshot's quote currency is worth
// in USD.
func usdFactor(snap *types.MarketSnapshot) (float64, bool) {
	vs := strings.ToUpper(snap.VsCurrency)
	if vs == "" || vs == "USD" {
		return 1, true
	}
	if r, ok := snap.RateFor("USD", vs); ok && r.Rate > 0 {
		return 1 / r.Rate, true
	}
	if r, ok := snap.RateFor(vs, "USD"); ok && r.Rate > 0 {
		return r.Rate, true
	}
	return 0, false
}

// PriceAlertMessage renders the user-facing text for a fired price alert,
// e.g. "BTC is now above $70000!".
func PriceAlertMessage(pa userdata.PriceAlert, coin types.CoinSnapshot) string {
	sym := strings.ToUpper(coin.Symbol)
	if sym == "" {
		sym = strings.ToUpper(pa.CoinSymbol)
	}
	target := strconv.FormatFloat(pa.Price, 'f', -1, 64)
	if pa.Direction == userdata.Below {
		return fmt.Sprintf("%s dropped below $%s!", sym, target)
	}
	return fmt.Sprintf("%s is now above $%s!", sym, target)
}
