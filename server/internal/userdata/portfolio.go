package userdata

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Holding is one coin position.
type Holding struct {
	CoinID string `json:"coin_id"`
	Symbol string `json:"symbol,omitempty"`
	Name   string `json:"name,omitempty"`

	Amount decimal.Decimal `json:"amount"`

	// BuyPrice is the average purchase price per unit, in USD.
	BuyPrice decimal.Decimal `json:"buy_price"`

	// TotalInvested is the cost basis. When zero, Amount × BuyPrice is used.
	TotalInvested decimal.Decimal `json:"total_invested"`

	AddedAt time.Time `json:"added_at"`
}

// CostBasis returns what was paid for the holding.
func (h Holding) CostBasis() decimal.Decimal {
	if !h.TotalInvested.IsZero() {
		return h.TotalInvested
	}
	return h.Amount.Mul(h.BuyPrice)
}

// HoldingUpdate carries the fields to overwrite. Nil fields are left alone.
type HoldingUpdate struct {
	Amount        *decimal.Decimal `json:"amount,omitempty"`
	BuyPrice      *decimal.Decimal `json:"buy_price,omitempty"`
	TotalInvested *decimal.Decimal `json:"total_invested,omitempty"`
}

// Portfolio returns every holding in insertion order.
func (s *Store) Portfolio(ctx context.Context) ([]Holding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.portfolio(ctx)
}

func (s *Store) portfolio(ctx context.Context) ([]Holding, error) {
	hs := []Holding{}
	if err := s.load(ctx, keyPortfolio, &hs); err != nil {
		return nil, err
	}
	return hs, nil
}

// AddHolding records a purchase. Adding a coin already held merges the
// amount and invested total into the existing holding.
func (s *Store) AddHolding(ctx context.Context, h Holding) ([]Holding, error) {
	h.CoinID = strings.TrimSpace(h.CoinID)
	if h.CoinID == "" {
		return nil, fmt.Errorf("%w: coin id is required", ErrInvalid)
	}
	if !h.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalid)
	}
	if h.BuyPrice.IsNegative() || h.TotalInvested.IsNegative() {
		return nil, fmt.Errorf("%w: prices must not be negative", ErrInvalid)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	hs, err := s.portfolio(ctx)
	if err != nil {
		return nil, err
	}
	for i := range hs {
		if hs[i].CoinID != h.CoinID {
			continue
		}
		invested := hs[i].CostBasis().Add(h.CostBasis())
		hs[i].Amount = hs[i].Amount.Add(h.Amount)
		hs[i].TotalInvested = invested
		if hs[i].Amount.IsPositive() {
			hs[i].BuyPrice = invested.Div(hs[i].Amount)
		}
		return hs, s.save(ctx, keyPortfolio, hs)
	}

	if h.TotalInvested.IsZero() {
		h.TotalInvested = h.Amount.Mul(h.BuyPrice)
	}
	h.AddedAt = s.now().UTC()
	hs = append(hs, h)
	return hs, s.save(ctx, keyPortfolio, hs)
}

// UpdateHolding overwrites the non-nil fields of u on coinID's holding.
// When the amount or buy price changes without an explicit invested total,
// the cost basis is recomputed as amount × buy price. An explicit invested
// total without a buy price resets the buy price to invested / amount.
func (s *Store) UpdateHolding(ctx context.Context, coinID string, u HoldingUpdate) (Holding, error) {
	if u.Amount != nil && !u.Amount.IsPositive() {
		return Holding{}, fmt.Errorf("%w: amount must be positive", ErrInvalid)
	}
	if (u.BuyPrice != nil && u.BuyPrice.IsNegative()) || (u.TotalInvested != nil && u.TotalInvested.IsNegative()) {
		return Holding{}, fmt.Errorf("%w: prices must not be negative", ErrInvalid)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	hs, err := s.portfolio(ctx)
	if err != nil {
		return Holding{}, err
	}
	for i := range hs {
		h := &hs[i]
		if h.CoinID != coinID {
			continue
		}
		if u.Amount != nil {
			h.Amount = *u.Amount
		}
		if u.BuyPrice != nil {
			h.BuyPrice = *u.BuyPrice
		}
		switch {
		case u.TotalInvested != nil:
			h.TotalInvested = *u.TotalInvested
			if u.BuyPrice == nil {
				h.BuyPrice = h.TotalInvested.Div(h.Amount)
			}
		case u.Amount != nil || u.BuyPrice != nil:
			h.TotalInvested = h.Amount.Mul(h.BuyPrice)
		}
		return *h, s.save(ctx, keyPortfolio, hs)
	}
	return Holding{}, fmt.Errorf("holding %q: %w", coinID, ErrNotFound)
}

// RemoveHolding deletes coinID's holding.
func (s *Store) RemoveHolding(ctx context.Context, coinID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	hs, err := s.portfolio(ctx)
	if err != nil {
		return err
	}
	out := hs[:0]
	for _, h := range hs {
		if h.CoinID != coinID {
			out = append(out, h)
		}
	}
	if len(out) == len(hs) {
		return fmt.Errorf("holding %q: %w", coinID, ErrNotFound)
	}
	return s.save(ctx, keyPortfolio, out)
}

// HoldingValue is a holding marked to market.
type HoldingValue struct {
	Holding
	Priced   bool            `json:"priced"`
	Price    decimal.Decimal `json:"price"`
	Value    decimal.Decimal `json:"value"`
	Invested decimal.Decimal `json:"invested"`
	PL       decimal.Decimal `json:"pl"`
	PLPct    decimal.Decimal `json:"pl_pct"`
}

// PortfolioValue totals every priced holding.
type PortfolioValue struct {
	Holdings      []HoldingValue  `json:"holdings"`
	TotalValue    decimal.Decimal `json:"total_value"`
	TotalInvested decimal.Decimal `json:"total_invested"`
	PL            decimal.Decimal `json:"pl"`
	PLPct         decimal.Decimal `json:"pl_pct"`
}

// Value marks the portfolio to market. prices maps coin id to current price.
// Holdings without a price are listed with Priced=false and left out of
// the totals.
func (s *Store) Value(ctx context.Context, prices map[string]float64) (PortfolioValue, error) {
	hs, err := s.Portfolio(ctx)
	if err != nil {
		return PortfolioValue{}, err
	}
	return Valuate(hs, prices), nil
}

// Valuate is the pure part of Value.
func Valuate(hs []Holding, prices map[string]float64) PortfolioValue {
	out := PortfolioValue{Holdings: make([]HoldingValue, 0, len(hs))}
	for _, h := range hs {
		hv := HoldingValue{Holding: h, Invested: h.CostBasis()}
		if p, ok := prices[h.CoinID]; ok {
			hv.Priced = true
			hv.Price = decimal.NewFromFloat(p)
			hv.Value = h.Amount.Mul(hv.Price)
			hv.PL = hv.Value.Sub(hv.Invested)
			hv.PLPct = pct(hv.PL, hv.Invested)

			out.TotalValue = out.TotalValue.Add(hv.Value)
			out.TotalInvested = out.TotalInvested.Add(hv.Invested)
		}
		out.Holdings = append(out.Holdings, hv)
	}
	out.PL = out.TotalValue.Sub(out.TotalInvested)
	out.PLPct = pct(out.PL, out.TotalInvested)
	return out
}

var hundred = decimal.NewFromInt(100)

// pct returns part/whole × 100 rounded to two places, or zero when whole is zero.
func pct(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(hundred).Round(2)
}
