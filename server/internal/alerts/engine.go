package alerts

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/coinscope/coinscope/pkg/types"
	"github.com/coinscope/coinscope/server/internal/config"
)

const (
	maxHistoryLen     = 200
	recentWindowHours = 1
)

// Alert lifecycle states.
const (
	StateFiring   = "firing"
	StateResolved = "resolved"
)

// Alert represents a single alert event produced by the rule engine.
type Alert struct {
	ID         string     `json:"id"`
	RuleName   string     `json:"rule_name"`
	SourceID   string     `json:"source_id"`
	CoinID     string     `json:"coin_id"`
	Symbol     string     `json:"symbol"`
	Severity   string     `json:"severity"`
	Condition  string     `json:"condition"`
	Message    string     `json:"message"`
	Value      float64    `json:"value"`
	FiredAt    time.Time  `json:"fired_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	State      string     `json:"state"` // "firing" | "resolved"
}

type rule struct {
	name     string
	coin     string
	severity string
	cooldown time.Duration
	cond     Condition
}

// Engine evaluates per-coin rules against incoming MarketSnapshots and
// delivers webhook notifications when rules fire or resolve.
//
// Engine is safe for concurrent use.
type Engine struct {
	rules    []rule
	notifier *Notifier

	mu       sync.Mutex
	active   map[string]*Alert    // key: "ruleName:coinID"
	lastFire map[string]time.Time // last fire time per key (for cooldown)
	history  []*Alert             // recently resolved alerts

	now       func() time.Time
	newID     func() string
	dispatch  func(Notification)
	listeners []func(Notification)
}

// New compiles the configured rules. An Engine with no rules is valid and
// Evaluate becomes a no-op.
func New(cfg config.AlertsConfig) (*Engine, error) {
	e := &Engine{
		notifier: NewNotifier(cfg.Webhooks, nil),
		active:   make(map[string]*Alert),
		lastFire: make(map[string]time.Time),
		now:      time.Now,
		newID:    func() string { return uuid.NewString() },
	}
	e.dispatch = func(n Notification) {
		go e.notifier.Deliver(n)
		for _, fn := range e.listeners {
			fn(n)
		}
	}

	for _, r := range cfg.Rules {
		cond, err := ParseCondition(r.Condition)
		if err != nil {
			return nil, fmt.Errorf("alerts: rule %q: %w", r.Name, err)
		}
		sev := r.Severity
		if sev == "" {
			sev = "warning"
		}
		cooldown := r.Cooldown
		if cooldown <= 0 {
			cooldown = config.DefaultAlertCooldown
		}
		e.rules = append(e.rules, rule{
			name:     r.Name,
			coin:     strings.ToLower(r.Coin),
			severity: sev,
			cooldown: cooldown,
			cond:     cond,
		})
	}
	return e, nil
}

// OnNotify registers fn to receive every notification alongside the
// webhooks. fn must not block. Register listeners before the first Evaluate.
func (e *Engine) OnNotify(fn func(Notification)) {
	e.listeners = append(e.listeners, fn)
}

// Evaluate tests every rule against every coin in snap.
// Alerts that fire are stored and delivered asynchronously. Alerts that were
// firing but whose condition is now false are resolved. Coins missing from
// snap keep their current state.
func (e *Engine) Evaluate(snap *types.MarketSnapshot) {
	if len(e.rules) == 0 || snap == nil || snap.ErrorMessage != "" {
		return
	}

	now := e.now()
	var out []Notification

	e.mu.Lock()
	for _, r := range e.rules {
		for _, coin := range snap.Coins {
			if r.coin != "" && r.coin != coin.ID {
				continue
			}
			key := r.name + ":" + coin.ID
			fires, value := r.cond.Eval(coin)

			if fires {
				if _, firing := e.active[key]; firing {
					continue
				}
				if last, ok := e.lastFire[key]; ok && now.Sub(last) <= r.cooldown {
					continue
				}
				a := &Alert{
					ID:        e.newID(),
					RuleName:  r.name,
					SourceID:  snap.SourceID,
					CoinID:    coin.ID,
					Symbol:    strings.ToUpper(coin.Symbol),
					Severity:  r.severity,
					Condition: r.cond.String(),
					Value:     value,
					Message: fmt.Sprintf("[%s] %s fired on %s: %s (value %.2f)",
						r.severity, r.name, strings.ToUpper(coin.Symbol), r.cond, value),
					FiredAt: now,
					State:   StateFiring,
				}
				e.active[key] = a
				e.lastFire[key] = now

				slog.Warn("alert fired",
					"rule", r.name,
					"coin", coin.ID,
					"value", value,
					"severity", r.severity,
				)
				out = append(out, ruleNotification(a))
				continue
			}

			a, ok := e.active[key]
			if !ok {
				continue
			}
			resolved := now
			a.State = StateResolved
			a.ResolvedAt = &resolved
			delete(e.active, key)

			e.history = append(e.history, a)
			if len(e.history) > maxHistoryLen {
				e.history = e.history[len(e.history)-maxHistoryLen:]
			}

			slog.Info("alert resolved", "rule", r.name, "coin", coin.ID)
			out = append(out, ruleNotification(a))
		}
	}
	e.mu.Unlock()

	for _, n := range out {
		e.dispatch(n)
	}
}

// Active returns copies of all currently firing alerts plus any alerts
// resolved within the past hour, sorted newest first.
func (e *Engine) Active() []*Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	cutoff := e.now().Add(-recentWindowHours * time.Hour)
	out := make([]*Alert, 0, len(e.active))

	for _, a := range e.active {
		cp := *a
		out = append(out, &cp)
	}
	for _, a := range e.history {
		if a.ResolvedAt != nil && a.ResolvedAt.After(cutoff) {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return latest(out[i]).After(latest(out[j]))
	})
	return out
}

func latest(a *Alert) time.Time {
	if a.ResolvedAt != nil {
		return *a.ResolvedAt
	}
	return a.FiredAt
}
