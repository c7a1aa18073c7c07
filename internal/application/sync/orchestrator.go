package sync

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ordersync/meli-sync-backend/internal/domain/money"
	"github.com/ordersync/meli-sync-backend/internal/domain/window"
	"github.com/ordersync/meli-sync-backend/internal/infrastructure/config"
	"github.com/ordersync/meli-sync-backend/internal/infrastructure/storage"
)

// Orchestrator drives one sync run: identity check, windowed order listing,
// concurrent per-order enrichment, idempotent persistence and a scoped prune
// of stale rows inside the window.
type Orchestrator struct {
	api      MarketplaceAPI
	repo     storage.Repository
	enricher *Enricher
	taxRules []config.TaxRule
	loc      *time.Location
	logger   *slog.Logger

	// Overridable for tests
	now func() time.Time
}

// NewOrchestrator creates an orchestrator. loc is the fixed local timezone
// of the sync window.
func NewOrchestrator(api MarketplaceAPI, repo storage.Repository, taxRules []config.TaxRule, loc *time.Location, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		api:      api,
		repo:     repo,
		enricher: NewEnricher(api, loc, logger),
		taxRules: taxRules,
		loc:      loc,
		logger:   logger,
		now:      time.Now,
	}
}

// Run executes one sync run. A failed identity check or a failed search page
// aborts the run; enrichment failures are absorbed into per-order defaults
// and surfaced on the result's reports.
func (o *Orchestrator) Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.LookbackDays <= 0 {
		opts.LookbackDays = 3
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 5
	}

	o.logger.Debug("Starting sync",
		"lookback_days", opts.LookbackDays,
		"concurrency", opts.Concurrency,
	)

	// 1. Identity check. The client transport handles the single
	// refresh-and-replay on an expired token; any error here is fatal.
	user, err := o.api.Me(ctx)
	if err != nil {
		return nil, fmt.Errorf("identity check failed: %w", err)
	}
	o.logger.Debug("Authenticated seller", "seller_id", user.ID, "nickname", user.Nickname)

	// 2. Compute the window and list orders. A page failure aborts the run.
	w := window.Compute(o.now(), opts.LookbackDays, o.loc)
	o.logger.Debug("Computed sync window",
		"start", w.Start.Format("2006-01-02 15:04:05"),
		"end", w.End.Format("2006-01-02 15:04:05"),
	)

	summaries, err := o.api.SearchOrders(ctx, user.ID, w.Start, w.End)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	// 3. Re-check every summary date against the window; the upstream query
	// bounds are not exact.
	filtered := window.FilterSummaries(summaries, w)
	o.logger.Debug("Fetched orders", "listed", len(summaries), "in_window", len(filtered))

	result := &Result{OrdersFound: len(filtered)}

	runID, err := o.repo.StartSyncRun(opts.LookbackDays)
	if err != nil {
		o.logger.Warn("Failed to start sync run tracking", "error", err)
		// Continue anyway - tracking failure shouldn't block sync
	}

	// 4. Enrich and persist, bounded fan-out across orders. Sub-fetches
	// within one order stay sequential.
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)

	keep := make([]int64, 0, len(filtered))
	for _, summary := range filtered {
		summary := summary
		keep = append(keep, summary.ID)

		g.Go(func() error {
			enriched := o.enricher.Enrich(gctx, summary)
			persistErr := o.persist(enriched)

			mu.Lock()
			defer mu.Unlock()

			if persistErr != nil {
				o.logger.Error("Failed to persist order", "order_id", summary.ID, "error", persistErr)
				result.Errors = append(result.Errors, fmt.Errorf("order %d: %w", summary.ID, persistErr))
				result.Reports = append(result.Reports, enriched.Report)
				return nil
			}

			enriched.Report.Persisted = true
			result.OrdersProcessed++
			if !enriched.Report.FullyEnriched() {
				result.OrdersDefaulted++
			}
			result.Reports = append(result.Reports, enriched.Report)
			return nil
		})
	}

	_ = g.Wait()

	// 5. Prune stored orders inside the window that this run did not see.
	pruned, err := o.repo.PruneWindow(w.Start, w.End, keep)
	if err != nil {
		o.logger.Error("Failed to prune stale orders", "error", err)
		result.Errors = append(result.Errors, fmt.Errorf("prune: %w", err))
	}
	result.OrdersPruned = pruned

	if runID > 0 {
		if err := o.repo.CompleteSyncRun(runID, result.OrdersFound, result.OrdersProcessed, result.OrdersDefaulted, len(result.Errors)); err != nil {
			o.logger.Warn("Failed to complete sync run tracking", "error", err)
		}
	}

	o.logger.Info("Sync finished",
		"orders_found", result.OrdersFound,
		"orders_processed", result.OrdersProcessed,
		"orders_defaulted", result.OrdersDefaulted,
		"orders_pruned", result.OrdersPruned,
		"errors", len(result.Errors),
	)

	return result, nil
}

// persist writes one order aggregate: header, line items and computed tax
// lines, each with replace-on-write semantics keyed by the order id.
func (o *Orchestrator) persist(enriched *EnrichedOrder) error {
	if err := o.repo.SaveOrder(&enriched.Header); err != nil {
		return fmt.Errorf("save header: %w", err)
	}
	if err := o.repo.SaveItems(enriched.Header.ID, enriched.Items); err != nil {
		return fmt.Errorf("save items: %w", err)
	}

	taxes := money.ComputeTaxes(enriched.Header.ID, enriched.TotalAmount, o.taxRules)
	if err := o.repo.SaveTaxes(enriched.Header.ID, taxes); err != nil {
		return fmt.Errorf("save taxes: %w", err)
	}
	return nil
}
