package cleanup

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Job purges expired verification codes and staged payloads orphaned by a
// crash between upload and moderation hand-off.
type Job struct {
	codes            codeLedger
	staging          stagedStorage
	codeRetention    time.Duration
	stagingRetention time.Duration
	now              func() time.Time
	logger           *zap.Logger
}

type codeLedger interface {
	DeleteStaleBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type stagedStorage interface {
	ListStagedOlderThan(ctx context.Context, cutoff time.Time) ([]string, error)
	Delete(ctx context.Context, key string) error
}

func New(codes codeLedger, staging stagedStorage, codeRetention, stagingRetention time.Duration, logger *zap.Logger) *Job {
	if codeRetention <= 0 {
		codeRetention = 24 * time.Hour
	}
	if stagingRetention <= 0 {
		stagingRetention = 12 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Job{
		codes:            codes,
		staging:          staging,
		codeRetention:    codeRetention,
		stagingRetention: stagingRetention,
		now:              time.Now,
		logger:           logger,
	}
}

func (j *Job) Run(ctx context.Context) error {
	if j.codes != nil {
		cutoff := j.now().Add(-j.codeRetention)
		rows, err := j.codes.DeleteStaleBefore(ctx, cutoff)
		if err != nil {
			return fmt.Errorf("cleanup stale verification codes: %w", err)
		}
		if rows > 0 {
			j.logger.Info("cleanup stale verification codes completed", zap.Int64("deleted", rows))
		}
	}

	if j.staging == nil {
		return nil
	}

	cutoff := j.now().Add(-j.stagingRetention)
	keys, err := j.staging.ListStagedOlderThan(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("list orphaned staged payloads: %w", err)
	}

	deleted := 0
	for _, key := range keys {
		if err := j.staging.Delete(ctx, key); err != nil {
			j.logger.Warn("failed to delete orphaned staged payload", zap.Error(err), zap.String("key", key))
			continue
		}
		deleted++
	}

	if deleted > 0 {
		j.logger.Info("cleanup orphaned staged payloads completed", zap.Int("deleted", deleted))
	}
	return nil
}
