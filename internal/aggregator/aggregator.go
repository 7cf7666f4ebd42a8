// Package aggregator merges equity reports from independent trading-pair
// feeds into one combined figure and forwards it to the capital ledger
// after a short debounce, so a burst of per-pair reports becomes a single
// update.
package aggregator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrMissingFeed rejects reports without an explicit feed identifier.
// Feed identity always comes from the caller; it is never inferred from
// status text.
var ErrMissingFeed = errors.New("report is missing the feed identifier")

// Report is one feed's latest equity figures.
type Report struct {
	Feed   string          `json:"feed"`
	Equity decimal.Decimal `json:"equity"`
	Daily  decimal.Decimal `json:"daily"`
	Live   decimal.Decimal `json:"live"`
	Status string          `json:"status"`
	At     time.Time       `json:"at"`
}

// Combined is the merged figure handed to the forwarder.
type Combined struct {
	Equity      decimal.Decimal `json:"equity"`
	Live        decimal.Decimal `json:"live"`
	Status      string          `json:"status"`
	Feeds       []string        `json:"feeds"`
	ActiveFeeds int             `json:"activeFeeds"`
}

// ForwardOutcome records how the last flush went; surfaced on the status
// endpoint and in webhook acknowledgements.
type ForwardOutcome struct {
	At        time.Time `json:"at"`
	OK        bool      `json:"ok"`
	Error     string    `json:"error,omitempty"`
	Retryable bool      `json:"retryable,omitempty"`
}

// Forwarder delivers a combined figure downstream. Implementations must
// bound their own timeouts; the aggregator never retries inline.
type Forwarder interface {
	Forward(ctx context.Context, c Combined) error
}

// Aggregator keeps the latest report per feed and debounces forwarding
// with a cancel-and-restart timer.
type Aggregator struct {
	Debounce time.Duration
	FeedTTL  time.Duration
	Forward  Forwarder
	Logger   *zap.Logger
	Now      func() time.Time

	// Schedule runs fn after d and returns a cancel func. Overridable so
	// tests drive the debounce deterministically.
	Schedule func(d time.Duration, fn func()) func() bool

	mu     sync.Mutex
	feeds  map[string]Report
	cancel func() bool
	last   *ForwardOutcome
}

func (a *Aggregator) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

func (a *Aggregator) debounce() time.Duration {
	if a.Debounce > 0 {
		return a.Debounce
	}
	return 2 * time.Second
}

func (a *Aggregator) schedule(d time.Duration, fn func()) func() bool {
	if a.Schedule != nil {
		return a.Schedule(d, fn)
	}
	t := time.AfterFunc(d, fn)
	return t.Stop
}

// Record upserts one feed's report and restarts the debounce timer.
func (a *Aggregator) Record(r Report) error {
	if strings.TrimSpace(r.Feed) == "" {
		return ErrMissingFeed
	}
	if r.At.IsZero() {
		r.At = a.now()
	}

	a.mu.Lock()
	if a.feeds == nil {
		a.feeds = map[string]Report{}
	}
	a.feeds[r.Feed] = r

	if a.cancel != nil {
		a.cancel()
	}
	a.cancel = a.schedule(a.debounce(), func() {
		a.FlushNow(context.Background())
	})
	a.mu.Unlock()

	if a.Logger != nil {
		a.Logger.Debug("feed recorded",
			zap.String("feed", r.Feed),
			zap.String("equity", r.Equity.String()))
	}
	return nil
}

// Combined merges all non-stale feeds. Returns false when nothing usable
// is present.
func (a *Aggregator) Combined() (Combined, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.combinedLocked()
}

func (a *Aggregator) combinedLocked() (Combined, bool) {
	now := a.now()

	var total, live decimal.Decimal
	var names, active []string
	for name, r := range a.feeds {
		if a.FeedTTL > 0 && now.Sub(r.At) > a.FeedTTL {
			continue
		}
		total = total.Add(r.Equity)
		live = live.Add(r.Live)
		names = append(names, name)
		if r.Status != "" && r.Status != "No positions" {
			active = append(active, name+": "+r.Status)
		}
	}
	if len(names) == 0 {
		return Combined{}, false
	}
	sort.Strings(names)
	sort.Strings(active)

	status := "No positions"
	if len(active) > 0 {
		status = strings.Join(active, ", ")
	} else if !live.IsZero() {
		sign := ""
		if live.Sign() >= 0 {
			sign = "+"
		}
		status = fmt.Sprintf("Trading (%s%s€)", sign, live.StringFixed(2))
	}

	return Combined{
		Equity:      total,
		Live:        live,
		Status:      status,
		Feeds:       names,
		ActiveFeeds: len(active),
	}, true
}

// FlushNow forwards the current combined figure immediately, bypassing the
// debounce. The outcome is retained for reporting; errors are never
// retried here.
func (a *Aggregator) FlushNow(ctx context.Context) {
	a.mu.Lock()
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	combined, ok := a.combinedLocked()
	a.mu.Unlock()

	if !ok {
		if a.Logger != nil {
			a.Logger.Debug("flush skipped, no feed data")
		}
		return
	}
	if a.Forward == nil {
		return
	}

	outcome := ForwardOutcome{At: a.now(), OK: true}
	if err := a.Forward.Forward(ctx, combined); err != nil {
		outcome.OK = false
		outcome.Error = err.Error()
		outcome.Retryable = IsRetryable(err)
		if a.Logger != nil {
			a.Logger.Warn("forward failed",
				zap.Error(err),
				zap.Bool("retryable", outcome.Retryable))
		}
	} else if a.Logger != nil {
		a.Logger.Info("combined figure forwarded",
			zap.String("equity", combined.Equity.String()),
			zap.Int("feeds", len(combined.Feeds)))
	}

	a.mu.Lock()
	a.last = &outcome
	a.mu.Unlock()
}

// LastOutcome returns the most recent forward result, nil before the
// first flush.
func (a *Aggregator) LastOutcome() *ForwardOutcome {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.last == nil {
		return nil
	}
	out := *a.last
	return &out
}

// Feeds lists the known reports, newest first.
func (a *Aggregator) Feeds() []Report {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Report, 0, len(a.feeds))
	for _, r := range a.feeds {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].At.After(out[j].At) })
	return out
}
