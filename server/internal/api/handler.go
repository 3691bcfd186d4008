package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/coinscope/coinscope/pkg/types"
	"github.com/coinscope/coinscope/server/internal/alerts"
	"github.com/coinscope/coinscope/server/internal/store"
	"github.com/coinscope/coinscope/server/internal/userdata"
)

// Options wires the optional collaborators of the API.
type Options struct {
	// Alerts backs GET /api/v1/alerts. Nil serves an empty list.
	Alerts *alerts.Engine

	// User backs the watchlist, portfolio, price alert and preference
	// endpoints. Nil uses a fresh in-memory store.
	User *userdata.Store

	// Auth guards everything except /api/v1/health when set.
	Auth func(http.Handler) http.Handler

	// WS is mounted at /ws when set.
	WS http.Handler
}

// Handler is the HTTP handler for /api/v1/* and /ws.
// It reads market state from the snapshot store and returns JSON responses.
type Handler struct {
	store  *store.Store
	alerts *alerts.Engine
	user   *userdata.Store
	router chi.Router
	now    func() time.Time
}

// New creates a Handler wired to st and registers all routes.
func New(st *store.Store, opts Options) *Handler {
	h := &Handler{
		store:  st,
		alerts: opts.Alerts,
		user:   opts.User,
		now:    time.Now,
	}
	if h.user == nil {
		h.user = userdata.New(userdata.NewMemory())
	}

	guard := opts.Auth
	if guard == nil {
		guard = func(next http.Handler) http.Handler { return next }
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		jsonErr(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	if opts.WS != nil {
		r.With(guard).Handle("/ws", opts.WS)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", h.health)

		r.Group(func(r chi.Router) {
			r.Use(guard)

			r.Get("/coins", h.coins)
			r.Get("/coins/{id}", h.coin)
			r.Get("/predictions", h.predictions)
			r.Get("/booming", h.booming)
			r.Get("/safe", h.safe)
			r.Get("/rates", h.rates)
			r.Get("/upstreams", h.upstreams)
			r.Get("/alerts", h.listAlerts)
			r.Get("/snapshot", h.snapshot)

			r.Get("/watchlist", h.watchlist)
			r.Post("/watchlist", h.addWatch)
			r.Delete("/watchlist/{id}", h.removeWatch)

			r.Get("/portfolio", h.portfolio)
			r.Post("/portfolio", h.addHolding)
			r.Get("/portfolio/value", h.portfolioValue)
			r.Patch("/portfolio/{id}", h.updateHolding)
			r.Delete("/portfolio/{id}", h.removeHolding)

			r.Get("/price-alerts", h.priceAlerts)
			r.Post("/price-alerts", h.createPriceAlert)
			r.Delete("/price-alerts/{id}", h.removePriceAlert)
			r.Post("/price-alerts/{id}/toggle", h.togglePriceAlert)

			r.Get("/preferences", h.preferences)
			r.Put("/preferences", h.updatePreferences)
		})
	})

	h.router = r
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// --- market routes ----------------------------------------------------------

// health returns GET /api/v1/health: overall state, counts and diagnostics
// for the market view the other endpoints serve.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	entries := h.store.List()
	resp := HealthResponse{SourceCount: len(entries)}
	if h.alerts != nil {
		resp.AlertCount = len(h.alerts.Active())
	}

	e, ok := h.market()
	if !ok {
		resp.State = "unknown"
		resp.Diagnostics = []DiagnosticHint{noDataHint()}
		jsonResp(w, http.StatusOK, resp)
		return
	}

	now := h.now()
	resp.CoinCount = len(e.Snapshot.Coins)
	resp.PredictionCount = len(e.Snapshot.Predictions)
	resp.LastUpdate = e.UpdatedAt.UTC().Format(time.RFC3339)
	resp.AgeSeconds = now.Sub(e.UpdatedAt).Seconds()
	resp.Diagnostics = computeDiagnostics(e, now, h.store.TTL())
	resp.State = stateFromHints(resp.Diagnostics)
	jsonResp(w, http.StatusOK, resp)
}

// coins returns GET /api/v1/coins. Optional ?q= filters by id, symbol or
// name and ?limit= caps the list.
func (h *Handler) coins(w http.ResponseWriter, r *http.Request) {
	snap, q, ok := h.quoted(w, r)
	if !ok {
		return
	}
	coins := filterCoins(snap.Coins, r.URL.Query().Get("q"))
	if n, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && n >= 0 && n < len(coins) {
		coins = coins[:n]
	}
	jsonResp(w, http.StatusOK, CoinsResponse{Quote: q, Coins: convertCoins(coins, q.Rate)})
}

// coin returns GET /api/v1/coins/{id} with its prediction when ranked.
func (h *Handler) coin(w http.ResponseWriter, r *http.Request) {
	snap, q, ok := h.quoted(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	for _, c := range snap.Coins {
		if c.ID != id {
			continue
		}
		resp := CoinResponse{Quote: q, Coin: convertCoin(c, q.Rate)}
		for _, p := range snap.Predictions {
			if p.Coin.ID == id {
				sc := convertScored([]types.ScoredCoin{p}, q.Rate)[0]
				resp.Prediction = &sc
				break
			}
		}
		if ids, err := h.user.Watchlist(r.Context()); err == nil {
			for _, wid := range ids {
				if wid == id {
					resp.Watched = true
				}
			}
		}
		jsonResp(w, http.StatusOK, resp)
		return
	}
	jsonErr(w, http.StatusNotFound, "coin not found")
}

// predictions returns GET /api/v1/predictions: the ranked recommendations.
func (h *Handler) predictions(w http.ResponseWriter, r *http.Request) {
	snap, q, ok := h.quoted(w, r)
	if !ok {
		return
	}
	jsonResp(w, http.StatusOK, PredictionsResponse{Quote: q, Predictions: convertScored(snap.Predictions, q.Rate)})
}

// booming returns GET /api/v1/booming: top 24h gainers.
func (h *Handler) booming(w http.ResponseWriter, r *http.Request) {
	snap, q, ok := h.quoted(w, r)
	if !ok {
		return
	}
	jsonResp(w, http.StatusOK, CoinsResponse{Quote: q, Coins: convertCoins(snap.Booming, q.Rate)})
}

// safe returns GET /api/v1/safe: large, low-volatility coins.
func (h *Handler) safe(w http.ResponseWriter, r *http.Request) {
	snap, q, ok := h.quoted(w, r)
	if !ok {
		return
	}
	jsonResp(w, http.StatusOK, CoinsResponse{Quote: q, Coins: convertCoins(snap.Safe, q.Rate)})
}

// rates returns GET /api/v1/rates.
func (h *Handler) rates(w http.ResponseWriter, r *http.Request) {
	e, ok := h.market()
	if !ok {
		jsonErr(w, http.StatusServiceUnavailable, "no market data yet")
		return
	}
	out := e.Snapshot.Rates
	if out == nil {
		out = []types.ExchangeRate{}
	}
	jsonResp(w, http.StatusOK, out)
}

// upstreams returns GET /api/v1/upstreams: reachability and TLS status of
// every upstream, per agent.
func (h *Handler) upstreams(w http.ResponseWriter, r *http.Request) {
	out := make([]UpstreamResponse, 0)
	for _, e := range h.store.List() {
		for _, u := range e.Snapshot.Upstreams {
			out = append(out, UpstreamResponse{SourceID: e.Snapshot.SourceID, UpstreamStatus: u})
		}
	}
	jsonResp(w, http.StatusOK, out)
}

// listAlerts returns GET /api/v1/alerts: firing and recently resolved rule alerts.
func (h *Handler) listAlerts(w http.ResponseWriter, r *http.Request) {
	if h.alerts == nil {
		jsonResp(w, http.StatusOK, []*alerts.Alert{})
		return
	}
	jsonResp(w, http.StatusOK, h.alerts.Active())
}

// snapshot returns GET /api/v1/snapshot: full JSON dump of all live agents.
func (h *Handler) snapshot(w http.ResponseWriter, r *http.Request) {
	jsonResp(w, http.StatusOK, buildSnapshot(h.store, h.now()))
}

// BuildSnapshot assembles the snapshot response from the live store entries.
// It is shared by GET /api/v1/snapshot and the WebSocket broadcaster.
func BuildSnapshot(st *store.Store) SnapshotResponse {
	return buildSnapshot(st, time.Now())
}

func buildSnapshot(st *store.Store, now time.Time) SnapshotResponse {
	entries := st.List()
	sources := make([]SourceResponse, 0, len(entries))
	for _, e := range entries {
		sources = append(sources, toSourceResponse(e, now, st.TTL()))
	}
	return SnapshotResponse{
		Sources:     sources,
		GeneratedAt: now.UTC().Format(time.RFC3339),
	}
}

func toSourceResponse(e *store.Entry, now time.Time, ttl time.Duration) SourceResponse {
	s := e.Snapshot
	return SourceResponse{
		SourceID:     s.SourceID,
		VsCurrency:   s.VsCurrency,
		Timestamp:    s.Timestamp.UTC().Format(time.RFC3339),
		LastSeen:     e.UpdatedAt.UTC().Format(time.RFC3339),
		Coins:        nonNil(s.Coins),
		Predictions:  nonNilScored(s.Predictions),
		Booming:      nonNil(s.Booming),
		Safe:         nonNil(s.Safe),
		Rates:        nonNilRates(s.Rates),
		Upstreams:    nonNilUpstreams(s.Upstreams),
		ErrorMessage: s.ErrorMessage,
		Diagnostics:  computeDiagnostics(e, now, ttl),
	}
}

// --- helpers ----------------------------------------------------------------

// market picks the entry the market endpoints serve: the newest live
// snapshot that carries data, or the newest live one when all have failed.
func (h *Handler) market() (*store.Entry, bool) {
	if e, ok := h.store.LatestWhere(hasData); ok {
		return e, true
	}
	return h.store.Latest()
}

func hasData(s *types.MarketSnapshot) bool { return s.ErrorMessage == "" }

// quoted resolves the market snapshot and ?currency=. It writes the error
// response itself and returns ok=false when the request cannot proceed.
func (h *Handler) quoted(w http.ResponseWriter, r *http.Request) (*types.MarketSnapshot, Quote, bool) {
	e, ok := h.market()
	if !ok {
		jsonErr(w, http.StatusServiceUnavailable, "no market data yet")
		return nil, Quote{}, false
	}
	q, err := quoteFor(e.Snapshot, r.URL.Query().Get("currency"))
	if err != nil {
		jsonErr(w, http.StatusBadRequest, err.Error())
		return nil, Quote{}, false
	}
	return e.Snapshot, q, true
}

func filterCoins(coins []types.CoinSnapshot, q string) []types.CoinSnapshot {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return coins
	}
	out := make([]types.CoinSnapshot, 0)
	for _, c := range coins {
		if strings.Contains(strings.ToLower(c.ID), q) ||
			strings.Contains(strings.ToLower(c.Symbol), q) ||
			strings.Contains(strings.ToLower(c.Name), q) {
			out = append(out, c)
		}
	}
	return out
}

func nonNil(c []types.CoinSnapshot) []types.CoinSnapshot {
	if c == nil {
		return []types.CoinSnapshot{}
	}
	return c
}

func nonNilScored(c []types.ScoredCoin) []types.ScoredCoin {
	if c == nil {
		return []types.ScoredCoin{}
	}
	return c
}

func nonNilRates(r []types.ExchangeRate) []types.ExchangeRate {
	if r == nil {
		return []types.ExchangeRate{}
	}
	return r
}

func nonNilUpstreams(u []types.UpstreamStatus) []types.UpstreamStatus {
	if u == nil {
		return []types.UpstreamStatus{}
	}
	return u
}

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}

// userErr maps a userdata error to a status code.
func userErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, userdata.ErrNotFound):
		jsonErr(w, http.StatusNotFound, err.Error())
	case errors.Is(err, userdata.ErrInvalid):
		jsonErr(w, http.StatusBadRequest, err.Error())
	default:
		slog.Error("api: user data", "err", err)
		jsonErr(w, http.StatusInternalServerError, "internal error")
	}
}

const maxBodyBytes = 1 << 20

// decodeBody reads a JSON request body into v, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		jsonErr(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}
