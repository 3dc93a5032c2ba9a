// Package worker rebuilds owner summaries from storage whenever the
// change feed announces a write, and on a periodic schedule as a backup
// in case messages are lost.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"fintrack/internal/aggregate"
	"fintrack/internal/amqp"
	"fintrack/internal/backend"
	"fintrack/internal/core"
	"fintrack/internal/period"
	"fintrack/internal/snapshot"
)

// Notifier delivers budget exceeded alerts. The worker fires each
// category's alert at most once per session; a new period window or a
// different owner starts a new session.
type Notifier interface {
	NotifyBudgetExceeded(ctx context.Context, owner string, row aggregate.BudgetProgress) error
}

// LogNotifier writes alerts to the structured log. It stands in where
// no push channel is configured.
type LogNotifier struct{}

func (LogNotifier) NotifyBudgetExceeded(ctx context.Context, owner string, row aggregate.BudgetProgress) error {
	slog.WarnContext(ctx, "Budget exceeded",
		"owner", owner,
		"category", row.Category,
		"spent_cents", row.Spent.Cents,
		"limit_cents", row.Limit.Cents)
	return nil
}

// ownerSession is the per-owner recompute state: the snapshot builder,
// the current window and the alert dedup set scoped to that window.
// Its mutex is held for an entire recompute pass so the change-feed
// consumer and the periodic backup cannot interleave builder applies or
// alert-set accesses for the same owner.
type ownerSession struct {
	mu      sync.Mutex
	builder *snapshot.Builder
	window  period.Range
	alerts  *aggregate.AlertSet
	summary *aggregate.Summary
}

// RecomputeWorker consumes change messages and recomputes summaries.
type RecomputeWorker struct {
	store    backend.Store
	notifier Notifier
	now      func() time.Time

	mu       sync.Mutex
	sessions map[string]*ownerSession
}

func NewRecomputeWorker(store backend.Store, notifier Notifier) *RecomputeWorker {
	if notifier == nil {
		notifier = LogNotifier{}
	}
	return &RecomputeWorker{
		store:    store,
		notifier: notifier,
		now:      time.Now,
		sessions: make(map[string]*ownerSession),
	}
}

// HandleChangeMessage processes one change announcement. Any change
// triggers a full recompute of the owner's summary; the message only
// tells us whose data moved.
func (w *RecomputeWorker) HandleChangeMessage(ctx context.Context, msg *amqp.ChangeMessage) error {
	slog.InfoContext(ctx, "Processing change message",
		"owner", msg.Owner,
		"collection", string(msg.Collection),
		"id", msg.ID)
	return w.Recompute(ctx, msg.Owner)
}

// Recompute loads all four collections, rebuilds the owner's snapshot
// bundle and recomputes the summary over the current monthly window.
// Exceeded-budget notifications fire here, once per category per window.
func (w *RecomputeWorker) Recompute(ctx context.Context, owner string) error {
	now := w.now()
	window := period.Month(now.Year(), now.Month(), now.Location())

	session := w.session(owner, window)
	session.mu.Lock()
	defer session.mu.Unlock()

	if !session.window.Start.Equal(window.Start) || !session.window.End.Equal(window.End) {
		session.alerts.Reset()
		session.window = window
	}

	if err := backend.LoadBundle(ctx, w.store, session.builder); err != nil {
		return err
	}
	bundle, ok := session.builder.Bundle()
	if !ok {
		return fmt.Errorf("snapshot for %s is incomplete", owner)
	}

	catalog := core.MergeCatalog(
		append(core.PredefinedExpenseCategories(), core.PredefinedIncomeCategories()...),
		bundle.Categories,
	)

	summary := aggregate.Summarize(aggregate.Inputs{
		Window:       window,
		Transactions: bundle.Transactions,
		Accounts:     bundle.Accounts,
		Catalog:      catalog,
		Budgets:      bundle.Budgets,
	}, session.alerts, func(row aggregate.BudgetProgress) {
		if err := w.notifier.NotifyBudgetExceeded(ctx, owner, row); err != nil {
			slog.ErrorContext(ctx, "Failed to deliver budget alert",
				"owner", owner, "category", row.Category, "error", err)
		}
	})

	session.summary = &summary

	slog.InfoContext(ctx, "Summary recomputed",
		"owner", owner,
		"version", bundle.Version,
		"total_expenses_cents", summary.TotalExpenses.Cents,
		"total_income_cents", summary.TotalIncome.Cents)
	return nil
}

// session returns the owner's session, creating it on first sight. The
// window-moved check and alert re-arming happen inside the recompute
// pass, under the session lock.
func (w *RecomputeWorker) session(owner string, window period.Range) *ownerSession {
	w.mu.Lock()
	defer w.mu.Unlock()

	s, ok := w.sessions[owner]
	if !ok {
		s = &ownerSession{
			builder: snapshot.NewBuilder(owner),
			alerts:  aggregate.NewAlertSet(),
			window:  window,
		}
		w.sessions[owner] = s
	}
	return s
}

// Summary returns the owner's latest computed summary, if any.
func (w *RecomputeWorker) Summary(owner string) (aggregate.Summary, bool) {
	w.mu.Lock()
	s, ok := w.sessions[owner]
	w.mu.Unlock()
	if !ok {
		return aggregate.Summary{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.summary == nil {
		return aggregate.Summary{}, false
	}
	return *s.summary, true
}

// Owners returns the owners seen so far, for the periodic backup pass.
func (w *RecomputeWorker) Owners() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	owners := make([]string, 0, len(w.sessions))
	for o := range w.sessions {
		owners = append(owners, o)
	}
	return owners
}

// RunPeriodic recomputes every known owner on a fixed interval until
// the context is done. It backs up the change feed: a lost message
// delays a summary by at most one interval.
func (w *RecomputeWorker) RunPeriodic(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping periodic recompute", "reason", ctx.Err())
			return
		case <-ticker.C:
			for _, owner := range w.Owners() {
				if err := w.Recompute(ctx, owner); err != nil {
					slog.ErrorContext(ctx, "Periodic recompute failed",
						"owner", owner, "error", err)
				}
			}
		}
	}
}
