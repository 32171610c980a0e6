package scheduler

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/mysqft/leadcapture/internal/digest"
)

type DigestRunner interface {
	Run(ctx context.Context) (*digest.Summary, error)
}

type Refresher interface {
	Refresh(ctx context.Context, force bool) error
}

// DigestJob runs the daily report. A run already held by another instance is
// not a failure.
func DigestJob(spec string, runner DigestRunner, logger *zap.Logger) Job {
	return Job{
		Name: "daily-digest",
		Spec: spec,
		Run: func(ctx context.Context) error {
			summary, err := runner.Run(ctx)
			if errors.Is(err, digest.ErrRunInProgress) {
				logger.Info("Digest already running elsewhere, skipping")
				return nil
			}
			if err != nil {
				return err
			}

			failed := 0
			for _, t := range summary.Tenants {
				if t.Err != nil {
					failed++
				}
			}
			logger.Info("Digest summary",
				zap.String("run_id", summary.RunID),
				zap.Int("tenants", len(summary.Tenants)),
				zap.Int("with_errors", failed))
			return nil
		},
	}
}

// RefreshJob force-reloads the tenant directory.
func RefreshJob(spec string, dir Refresher) Job {
	return Job{
		Name: "directory-refresh",
		Spec: spec,
		Run: func(ctx context.Context) error {
			return dir.Refresh(ctx, true)
		},
	}
}
