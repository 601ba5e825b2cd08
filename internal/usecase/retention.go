package usecase

import (
	"context"
	"fmt"
	"sort"

	"github.com/semmidev/dbdrive/internal/domain"
	"github.com/semmidev/dbdrive/internal/infrastructure/metrics"
)

type Logger interface {
	Infof(template string, args ...interface{})
	Errorf(template string, args ...interface{})
	Warnf(template string, args ...interface{})
}

type Retention struct {
	logger Logger
}

func NewRetention(logger Logger) *Retention {
	return &Retention{logger: logger}
}

type PruneResult struct {
	Deleted []string
	Failed  []error
}

// Prune removes the oldest entries matching identity so that one more
// upload leaves exactly keep of them. keep <= 0 disables pruning.
// Only a listing failure is returned; delete failures are collected.
func (r *Retention) Prune(ctx context.Context, store domain.RemoteStore, container string, identity Identity, keep int) (PruneResult, error) {
	var result PruneResult
	if keep <= 0 {
		return result, nil
	}

	listed, err := store.List(ctx, container, identity.Filter())
	if err != nil {
		return result, fmt.Errorf("list %s: %w", identity, err)
	}

	matches := make([]domain.RemoteEntry, 0, len(listed))
	for _, e := range listed {
		if identity.Matches(e.Name) {
			matches = append(matches, e)
		}
	}

	excess := len(matches) - keep + 1
	if excess <= 0 {
		return result, nil
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].CreatedTime.Before(matches[j].CreatedTime)
	})

	for _, e := range matches[:excess] {
		r.logger.Infof("Deleting old backup from %s: %s (%s)", store.Name(), e.Name, e.ID)
		if err := store.Delete(ctx, e.ID); err != nil {
			r.logger.Errorf("Failed to delete %s from %s: %v", e.Name, store.Name(), err)
			metrics.RetentionDeletes.WithLabelValues(store.Name(), metrics.StatusFailure).Inc()
			result.Failed = append(result.Failed, err)
			continue
		}
		metrics.RetentionDeletes.WithLabelValues(store.Name(), metrics.StatusSuccess).Inc()
		result.Deleted = append(result.Deleted, e.ID)
	}

	return result, nil
}
