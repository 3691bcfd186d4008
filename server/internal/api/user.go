package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/coinscope/coinscope/pkg/types"
	"github.com/coinscope/coinscope/server/internal/userdata"
)

// --- watchlist --------------------------------------------------------------

type watchRequest struct {
	CoinID string `json:"coin_id"`
}

func (h *Handler) watchlistResponse(ids []string) WatchlistResponse {
	resp := WatchlistResponse{IDs: ids, Coins: []types.CoinSnapshot{}}
	e, ok := h.market()
	if !ok {
		return resp
	}
	byID := make(map[string]types.CoinSnapshot, len(e.Snapshot.Coins))
	for _, c := range e.Snapshot.Coins {
		byID[c.ID] = c
	}
	for _, id := range ids {
		if c, ok := byID[id]; ok {
			resp.Coins = append(resp.Coins, c)
		}
	}
	return resp
}

// watchlist returns GET /api/v1/watchlist: ids plus the market data of each
// watched coin that is in the latest snapshot.
func (h *Handler) watchlist(w http.ResponseWriter, r *http.Request) {
	ids, err := h.user.Watchlist(r.Context())
	if err != nil {
		userErr(w, err)
		return
	}
	jsonResp(w, http.StatusOK, h.watchlistResponse(ids))
}

func (h *Handler) addWatch(w http.ResponseWriter, r *http.Request) {
	var req watchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	ids, err := h.user.AddToWatchlist(r.Context(), req.CoinID)
	if err != nil {
		userErr(w, err)
		return
	}
	jsonResp(w, http.StatusCreated, h.watchlistResponse(ids))
}

func (h *Handler) removeWatch(w http.ResponseWriter, r *http.Request) {
	ids, err := h.user.RemoveFromWatchlist(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		userErr(w, err)
		return
	}
	jsonResp(w, http.StatusOK, h.watchlistResponse(ids))
}

// --- portfolio --------------------------------------------------------------

func (h *Handler) portfolio(w http.ResponseWriter, r *http.Request) {
	hs, err := h.user.Portfolio(r.Context())
	if err != nil {
		userErr(w, err)
		return
	}
	jsonResp(w, http.StatusOK, hs)
}

func (h *Handler) addHolding(w http.ResponseWriter, r *http.Request) {
	var req userdata.Holding
	if !decodeBody(w, r, &req) {
		return
	}
	hs, err := h.user.AddHolding(r.Context(), req)
	if err != nil {
		userErr(w, err)
		return
	}
	jsonResp(w, http.StatusCreated, hs)
}

func (h *Handler) updateHolding(w http.ResponseWriter, r *http.Request) {
	var req userdata.HoldingUpdate
	if !decodeBody(w, r, &req) {
		return
	}
	hd, err := h.user.UpdateHolding(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		userErr(w, err)
		return
	}
	jsonResp(w, http.StatusOK, hd)
}

func (h *Handler) removeHolding(w http.ResponseWriter, r *http.Request) {
	if err := h.user.RemoveHolding(r.Context(), chi.URLParam(r, "id")); err != nil {
		userErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// portfolioValueResponse is the payload for GET /api/v1/portfolio/value.
type portfolioValueResponse struct {
	Quote
	userdata.PortfolioValue
}

// portfolioValue marks the portfolio to the latest market prices.
func (h *Handler) portfolioValue(w http.ResponseWriter, r *http.Request) {
	snap, q, ok := h.quoted(w, r)
	if !ok {
		return
	}
	prices := make(map[string]float64, len(snap.Coins))
	for _, c := range snap.Coins {
		prices[c.ID] = c.CurrentPrice
	}
	v, err := h.user.Value(r.Context(), prices)
	if err != nil {
		userErr(w, err)
		return
	}
	jsonResp(w, http.StatusOK, portfolioValueResponse{Quote: q, PortfolioValue: scaleValue(v, q.Rate)})
}

// --- price alerts -----------------------------------------------------------

// priceAlertRequest accepts "type" as an alias of "direction".
type priceAlertRequest struct {
	CoinID     string  `json:"coin_id"`
	CoinName   string  `json:"coin_name"`
	CoinSymbol string  `json:"coin_symbol"`
	Direction  string  `json:"direction"`
	Type       string  `json:"type"`
	Price      float64 `json:"price"`
}

func (h *Handler) priceAlerts(w http.ResponseWriter, r *http.Request) {
	as, err := h.user.PriceAlerts(r.Context())
	if err != nil {
		userErr(w, err)
		return
	}
	jsonResp(w, http.StatusOK, as)
}

func (h *Handler) createPriceAlert(w http.ResponseWriter, r *http.Request) {
	var req priceAlertRequest
	if !decodeBody(w, r, &req) {
		return
	}
	dir := req.Direction
	if dir == "" {
		dir = req.Type
	}
	a, err := h.user.CreatePriceAlert(r.Context(), userdata.PriceAlert{
		CoinID:     req.CoinID,
		CoinName:   req.CoinName,
		CoinSymbol: req.CoinSymbol,
		Direction:  dir,
		Price:      req.Price,
	})
	if err != nil {
		userErr(w, err)
		return
	}
	jsonResp(w, http.StatusCreated, a)
}

func (h *Handler) removePriceAlert(w http.ResponseWriter, r *http.Request) {
	if err := h.user.RemovePriceAlert(r.Context(), chi.URLParam(r, "id")); err != nil {
		userErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) togglePriceAlert(w http.ResponseWriter, r *http.Request) {
	a, err := h.user.TogglePriceAlert(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		userErr(w, err)
		return
	}
	jsonResp(w, http.StatusOK, a)
}

// --- preferences ------------------------------------------------------------

func (h *Handler) preferences(w http.ResponseWriter, r *http.Request) {
	p, err := h.user.Preferences(r.Context())
	if err != nil {
		userErr(w, err)
		return
	}
	jsonResp(w, http.StatusOK, p)
}

func (h *Handler) updatePreferences(w http.ResponseWriter, r *http.Request) {
	var req userdata.PreferencesUpdate
	if !decodeBody(w, r, &req) {
		return
	}
	p, err := h.user.UpdatePreferences(r.Context(), req)
	if err != nil {
		userErr(w, err)
		return
	}
	jsonResp(w, http.StatusOK, p)
}
