package api

import (
	"fmt"
	"time"

	"github.com/coinscope/coinscope/server/internal/store"
)

// DiagnosticHint is one human-readable insight about an agent's market feed.
// The UI displays these as chips; clicking one shows Detail.
type DiagnosticHint struct {
	// Key is a stable machine-readable identifier (used for dedup/ordering).
	Key string `json:"key"`
	// Level is "ok" | "info" | "warning" | "critical"
	Level string `json:"level"`
	// Title is a short label shown on the chip (≤ 5 words).
	Title string `json:"title"`
	// Detail is the full explanation shown on click/hover.
	Detail string `json:"detail"`
	// Value is an optional numeric value associated with this hint.
	Value *float64 `json:"value,omitempty"`
}

// staleFraction of the store TTL after which data is reported as stale.
const staleFraction = 2

// computeDiagnostics derives diagnostic hints from one stored snapshot.
// Diagnostics are ordered: critical first, then warnings, then info.
func computeDiagnostics(e *store.Entry, now time.Time, ttl time.Duration) []DiagnosticHint {
	snap := e.Snapshot
	var crit, warn, info []DiagnosticHint

	// ── Feed failure ─────────────────────────────────────────────────────────
	if snap.ErrorMessage != "" {
		crit = append(crit, DiagnosticHint{
			Key:   "feed_error",
			Level: "critical",
			Title: "Market feed failing",
			Detail: fmt.Sprintf(
				"The agent could not fetch market data on its last cycle and got: %q. "+
					"Prices and recommendations are unavailable until the next successful poll. "+
					"This is usually the upstream rate limit; the agent keeps retrying on its own.",
				snap.ErrorMessage,
			),
		})
	}

	// ── Stale data ───────────────────────────────────────────────────────────
	age := now.Sub(e.UpdatedAt)
	if ttl > 0 && age > ttl/staleFraction {
		v := age.Seconds()
		warn = append(warn, DiagnosticHint{
			Key:   "stale_data",
			Level: "warning",
			Title: "Data is getting old",
			Detail: fmt.Sprintf(
				"The last update from this agent arrived %s ago. "+
					"It will be dropped entirely after %s without a new snapshot. "+
					"Check that the agent is running and can reach the server.",
				age.Truncate(time.Second), ttl,
			),
			Value: &v,
		})
	}

	// ── Fallback exchange rate ───────────────────────────────────────────────
	for _, r := range snap.Rates {
		if !r.Fallback {
			continue
		}
		v := r.Rate
		warn = append(warn, DiagnosticHint{
			Key:   "fallback_rate_" + r.Quote,
			Level: "warning",
			Title: "Using fallback rate",
			Detail: fmt.Sprintf(
				"The exchange-rate provider was unavailable, so %s→%s conversions use the fixed "+
					"fallback rate %.4f. Converted prices may be slightly off until the provider recovers.",
				r.Base, r.Quote, r.Rate,
			),
			Value: &v,
		})
	}

	// ── Upstreams and certificates ───────────────────────────────────────────
	for _, u := range snap.Upstreams {
		if !u.OK {
			warn = append(warn, DiagnosticHint{
				Key:    "upstream_" + u.Name,
				Level:  "warning",
				Title:  u.Name + " unreachable",
				Detail: fmt.Sprintf("The agent could not reach %s (%s): %s.", u.Name, u.Endpoint, u.Error),
			})
		}
		if u.Cert == nil {
			continue
		}
		days := float64(u.Cert.DaysLeft)
		switch u.Cert.Status {
		case "expired":
			crit = append(crit, DiagnosticHint{
				Key:    "cert_" + u.Name,
				Level:  "critical",
				Title:  u.Name + " cert expired",
				Detail: fmt.Sprintf("The TLS certificate for %s expired on %s.", u.Endpoint, u.Cert.NotAfter),
				Value:  &days,
			})
		case "expiring":
			warn = append(warn, DiagnosticHint{
				Key:    "cert_" + u.Name,
				Level:  "warning",
				Title:  u.Name + " cert expiring",
				Detail: fmt.Sprintf("The TLS certificate for %s expires in %d days.", u.Endpoint, u.Cert.DaysLeft),
				Value:  &days,
			})
		}
	}

	// ── No recommendations ───────────────────────────────────────────────────
	if snap.ErrorMessage == "" && len(snap.Predictions) == 0 {
		info = append(info, DiagnosticHint{
			Key:   "no_recommendations",
			Level: "info",
			Title: "No recommendations",
			Detail: "The last cycle produced no ranked coins. " +
				"Either the market list came back empty or every coin was filtered out.",
		})
	}

	hints := append(append(crit, warn...), info...)

	// ── All clear ────────────────────────────────────────────────────────────
	if len(hints) == 0 {
		n := float64(len(snap.Predictions))
		hints = append(hints, DiagnosticHint{
			Key:   "healthy",
			Level: "ok",
			Title: "All clear",
			Detail: fmt.Sprintf(
				"Market data is fresh, rates are live and %d coins were ranked on the last cycle.",
				len(snap.Predictions),
			),
			Value: &n,
		})
	}
	return hints
}

// noDataHint is reported when no agent has sent anything yet.
func noDataHint() DiagnosticHint {
	return DiagnosticHint{
		Key:   "no_data",
		Level: "info",
		Title: "Waiting for agent",
		Detail: "No agent has delivered a market snapshot yet. " +
			"Start coinscope-agent and point its server_endpoint at this server's gRPC port.",
	}
}

// stateFromHints maps the worst hint level to a health state.
func stateFromHints(hints []DiagnosticHint) string {
	state := "ok"
	for _, h := range hints {
		switch h.Level {
		case "critical":
			return "down"
		case "warning":
			state = "degraded"
		}
	}
	return state
}
