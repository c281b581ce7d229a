package contenthub

import (
	"context"
	"sort"
)

// ReconcileReport lists the inconsistencies between an index and its file store.
type ReconcileReport struct {
	Kind string `json:"kind"`
	// Orphans are files with no index entry (left by failed uploads or failed file deletes)
	Orphans []string `json:"orphans"`
	// Dangling are record keys whose file is missing
	Dangling []string `json:"dangling"`
	// Pruned are the orphan files removed when pruning was requested
	Pruned []string `json:"pruned"`
}

// Reconcile compares the index with the file store. With prune set, orphan files are
// deleted; dangling records are only reported. Uploads hold the same lock from file write to
// index commit, so their files are never taken for orphans.
func (r *Repository[T]) Reconcile(ctx context.Context, prune bool) (ReconcileReport, error) {
	report := ReconcileReport{
		Kind:     r.kind.Name,
		Orphans:  []string{},
		Dangling: []string{},
		Pruned:   []string{},
	}

	// hold the index lock so no upload or delete lands between the two listings
	unlock, err := r.lock(ctx)
	if err != nil {
		r.logIndexError(ctx, "reconcile", err)
		return report, err
	}
	defer unlock()

	records, err := r.index.Load(ctx)
	if err != nil {
		r.logIndexError(ctx, "reconcile", err)
		return report, err
	}
	if err := r.files.EnsureRoot(ctx); err != nil {
		return report, err
	}
	names, err := r.files.List(ctx)
	if err != nil {
		return report, err
	}

	onDisk := make(map[string]bool, len(names))
	for _, name := range names {
		onDisk[name] = true
	}
	indexed := make(map[string]bool, len(records))
	for _, rec := range records {
		indexed[rec.File()] = true
		if !onDisk[rec.File()] {
			report.Dangling = append(report.Dangling, rec.Key())
		}
	}

	for _, name := range names {
		if name == IndexFilename || name == LockFilename || indexed[name] {
			continue
		}
		report.Orphans = append(report.Orphans, name)
	}
	sort.Strings(report.Orphans)
	sort.Strings(report.Dangling)

	if !prune {
		return report, nil
	}
	for _, name := range report.Orphans {
		if err := r.files.Delete(ctx, name); err != nil {
			r.opts.logger.WarnContext(ctx, "Failed to prune orphan file", "kind", r.kind.Name, "filename", name, "error", err)
			continue
		}
		report.Pruned = append(report.Pruned, name)
	}
	r.opts.logger.InfoContext(ctx, "Reconciled index", "kind", r.kind.Name,
		"orphans", len(report.Orphans), "dangling", len(report.Dangling), "pruned", len(report.Pruned))
	return report, nil
}
