package worker

import (
	"context"
	"time"

	"github.com/IUPAC-InChI/RInChI/internal/infrastructure/database/redis"
	"github.com/IUPAC-InChI/RInChI/internal/infrastructure/monitoring/logging"
)

type redisJobLock struct {
	locker *redis.Locker
	ttl    time.Duration
	logger logging.Logger
}

// NewRedisJobLock locks jobs with Redis. ttl should exceed the job timeout.
func NewRedisJobLock(l *redis.Locker, ttl time.Duration, logger logging.Logger) JobLock {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &redisJobLock{locker: l, ttl: ttl, logger: logger}
}

func (l *redisJobLock) TryLock(ctx context.Context, jobID string) (func(), bool, error) {
	m := l.locker.NewMutex("job:"+jobID, l.ttl)
	ok, err := m.TryLock(ctx)
	if err != nil || !ok {
		return nil, ok, err
	}
	return func() {
		// The job context may be cancelled by now.
		if err := m.Unlock(context.Background()); err != nil {
			l.logger.Warn("failed to release job lock", logging.String("job_id", jobID), logging.Error(err))
		}
	}, true, nil
}
