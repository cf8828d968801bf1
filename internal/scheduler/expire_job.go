package scheduler

import (
	"context"
	"time"

	"tempspec/internal/authz"

	"go.uber.org/zap"
)

// Expirer is the part of the spec service the expiry job needs
type Expirer interface {
	ExpireDue(ctx context.Context, actor authz.Actor) (int, error)
}

// ExpireJob moves overdue active specs to expired as the system actor
type ExpireJob struct {
	specs   Expirer
	timeout time.Duration
	log     *zap.Logger
}

func NewExpireJob(specs Expirer, timeout time.Duration, logger *zap.Logger) *ExpireJob {
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &ExpireJob{specs: specs, timeout: timeout, log: logger.Named("expire_job")}
}

func (j *ExpireJob) Name() string { return "expire_specs" }

func (j *ExpireJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	n, err := j.specs.ExpireDue(ctx, authz.System())
	if err != nil {
		j.log.Error("expiry run failed", zap.Error(err))
		return
	}
	j.log.Info("expiry run complete", zap.Int("expired", n))
}
