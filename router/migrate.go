package router

import (
	"context"

	"go.miragespace.co/ringstore/util"

	"go.uber.org/zap"
)

// Report summarizes one membership change. Duplicated counts keys written to
// their new owner whose source-side delete failed; the stale copy is
// unreachable through the ring but still occupies memory on the source.
type Report struct {
	Tasks      int
	Moved      int
	Duplicated int
	Failed     int
}

// AddNode inserts a new member and pulls every arc it now owns from the
// previous owners. Keys are written to the destination before they are
// deleted from the source, so at every instant each key is present on at
// least one node. Per-key failures are counted, never fatal; the operator
// reissues the command if needed.
func (r *Router) AddNode(ctx context.Context, addr string) (Report, error) {
	canonical, err := util.CanonicalizeAddr(addr)
	if err != nil {
		return Report{}, err
	}

	r.ring.AddNode(canonical)
	tasks := r.ring.Plan(canonical)

	report := Report{Tasks: len(tasks)}
	defer r.releaseIdle()

	dest := r.clientFor(canonical)
	for _, task := range tasks {
		src := r.clientFor(task.Source)
		pairs, err := src.RangeExport(ctx, task.Start, task.End)
		if err != nil {
			r.logger.Warn("Error exporting range from source",
				zap.String("source", task.Source),
				zap.Uint64("start", task.Start),
				zap.Uint64("end", task.End),
				zap.Error(err))
			report.Failed++
			continue
		}

		for _, p := range pairs {
			if err := dest.Put(ctx, p.Key, p.Value); err != nil {
				// source copy stays authoritative, do not delete
				r.logger.Warn("Error writing key to destination",
					zap.String("key", p.Key),
					zap.String("destination", canonical),
					zap.Error(err))
				report.Failed++
				continue
			}
			if err := src.Delete(ctx, p.Key); err != nil {
				r.logger.Warn("Error deleting migrated key from source; key is now duplicated",
					zap.String("key", p.Key),
					zap.String("source", task.Source),
					zap.Error(err))
				report.Duplicated++
				continue
			}
			report.Moved++
		}
	}

	r.logger.Info("Rebalance after add complete",
		zap.String("node", canonical),
		zap.Int("tasks", report.Tasks),
		zap.Int("moved", report.Moved),
		zap.Int("duplicated", report.Duplicated),
		zap.Int("failed", report.Failed))
	return report, nil
}

// RemoveNode drains a member and removes it from the ring. The victim's full
// contents are exported up front because after removal its keys scatter to
// per-key successors. An unreachable victim is still removed; the operator
// has declared it gone and its keys are lost.
func (r *Router) RemoveNode(ctx context.Context, addr string) (Report, error) {
	canonical, err := util.CanonicalizeAddr(addr)
	if err != nil {
		return Report{}, err
	}

	victim := r.clientFor(canonical)
	pairs, exportErr := victim.ExportAll(ctx)

	// the ring is cleared regardless so lookups resolve to survivors
	r.ring.RemoveNode(canonical)

	if exportErr != nil {
		r.logger.Warn("Victim unreachable during drain, removed from ring anyway",
			zap.String("node", canonical),
			zap.Error(exportErr))
		return Report{}, nil
	}

	report := Report{}
	defer r.releaseIdle()

	for _, p := range pairs {
		target, err := r.Owner(p.Key)
		if err != nil {
			r.logger.Warn("No owner left for drained key", zap.String("key", p.Key))
			report.Failed++
			continue
		}
		if err := r.clientFor(target).Put(ctx, p.Key, p.Value); err != nil {
			r.logger.Warn("Error writing drained key to new owner",
				zap.String("key", p.Key),
				zap.String("target", target),
				zap.Error(err))
			report.Failed++
			continue
		}
		if err := victim.Delete(ctx, p.Key); err != nil {
			r.logger.Warn("Error deleting drained key from victim",
				zap.String("key", p.Key),
				zap.Error(err))
			report.Duplicated++
			continue
		}
		report.Moved++
	}

	r.logger.Info("Drain complete",
		zap.String("node", canonical),
		zap.Int("moved", report.Moved),
		zap.Int("duplicated", report.Duplicated),
		zap.Int("failed", report.Failed))
	return report, nil
}
