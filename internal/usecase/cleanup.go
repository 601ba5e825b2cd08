package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/semmidev/dbdrive/internal/domain"
)

type CleanupReport struct {
	Leftovers int
	Bytes     int64
	Deleted   []string
}

// Cleanup audits the staging directory for artifacts left behind by
// failed uploads.
type Cleanup struct {
	staging       domain.RemoteStore
	logger        Logger
	warnThreshold int
	maxAgeDays    int
	now           func() time.Time
}

func NewCleanup(staging domain.RemoteStore, logger Logger, warnThreshold, maxAgeDays int) *Cleanup {
	return &Cleanup{
		staging:       staging,
		logger:        logger,
		warnThreshold: warnThreshold,
		maxAgeDays:    maxAgeDays,
		now:           time.Now,
	}
}

func (uc *Cleanup) Execute(ctx context.Context) (CleanupReport, error) {
	var report CleanupReport

	files, err := uc.staging.List(ctx, "", domain.RemoteFilter{})
	if err != nil {
		return report, fmt.Errorf("list staging files: %w", err)
	}

	var cutoff time.Time
	if uc.maxAgeDays > 0 {
		cutoff = uc.now().AddDate(0, 0, -uc.maxAgeDays)
	}

	for _, f := range files {
		if !cutoff.IsZero() && f.CreatedTime.Before(cutoff) {
			uc.logger.Infof("Deleting stale staging artifact: %s", f.Name)
			if err := uc.staging.Delete(ctx, f.ID); err != nil {
				uc.logger.Errorf("Failed to delete %s: %v", f.Name, err)
			} else {
				report.Deleted = append(report.Deleted, f.ID)
				continue
			}
		}
		report.Leftovers++
		report.Bytes += f.Size
	}

	if report.Leftovers > 0 {
		uc.logger.Infof("Staging holds %d leftover artifact(s), %s", report.Leftovers, humanize.Bytes(uint64(report.Bytes)))
	}
	if uc.warnThreshold > 0 && report.Leftovers > uc.warnThreshold {
		uc.logger.Warnf("Staging leftovers (%d) exceed threshold %d; uploads may be failing", report.Leftovers, uc.warnThreshold)
	}

	return report, nil
}
