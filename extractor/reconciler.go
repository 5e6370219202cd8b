package extractor

import (
	"context"
	"time"

	"watchface-scraper/internal/store"
	"watchface-scraper/internal/types"
)

// Reconciler upserts candidates into the store
type Reconciler struct {
	store  store.Store
	logger types.Logger
	now    func() time.Time
}

// NewReconciler creates a reconciler writing to s
func NewReconciler(s store.Store, logger types.Logger) *Reconciler {
	return &Reconciler{
		store:  s,
		logger: logger,
		now:    time.Now,
	}
}

// Reconcile inserts unseen candidates and merges known ones into their
// stored record. A record that cannot be persisted is counted as skipped and
// the batch continues.
func (r *Reconciler) Reconcile(ctx context.Context, candidates []*types.CandidateRecord) types.ReconcileResult {
	var result types.ReconcileResult

	for _, c := range candidates {
		if c == nil || !c.HasEssentials() {
			result.Skipped++
			continue
		}

		saved, err := r.reconcileOne(ctx, c)
		if err != nil {
			r.logger.Errorf("Error saving watch face %q: %v", c.Name, err)
			result.Skipped++
			continue
		}
		if saved {
			result.Saved++
		} else {
			result.Updated++
		}
	}

	r.logger.Infof("Reconciled %d candidates: %d saved, %d updated, %d skipped",
		len(candidates), result.Saved, result.Updated, result.Skipped)
	return result
}

// reconcileOne reports whether c was inserted (true) or merged (false)
func (r *Reconciler) reconcileOne(ctx context.Context, c *types.CandidateRecord) (bool, error) {
	existing, err := r.store.FindExisting(ctx, types.Lookup{
		Name:       c.Name,
		ImageURL:   c.ImageURL,
		OriginalID: c.Metadata.OriginalID,
	})
	if err != nil {
		return false, &types.PersistenceError{Op: "find", Name: c.Name, Err: err}
	}

	if existing == nil {
		if _, err := r.store.Insert(ctx, c); err != nil {
			return false, &types.PersistenceError{Op: "insert", Name: c.Name, Err: err}
		}
		r.logger.Debugf("Saved new watch face: %s", c.Name)
		return true, nil
	}

	existing.MergeFrom(c)
	existing.Metadata.ScrapedAt = r.now()
	if _, err := r.store.Update(ctx, existing); err != nil {
		return false, &types.PersistenceError{Op: "update", Name: c.Name, Err: err}
	}
	r.logger.Debugf("Updated existing watch face: %s", existing.Name)
	return false, nil
}
