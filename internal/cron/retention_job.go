package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/kartly/storefront-backend/pkg/logger"
)

const (
	defaultOutboxRetentionDays = 30
	defaultDLQRetentionDays    = 90
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// purgeFunc deletes rows older than cutoff and reports how many went.
type purgeFunc func(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)

type outboxPurger interface {
	DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

type dlqPurger interface {
	DeleteFailedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

type RetentionJobParams struct {
	Logger        *logger.Logger
	DB            txRunner
	RetentionDays int
}

// NewOutboxRetentionJob drops published outbox rows once they are older than
// the retention window. Unpublished rows stay until the publisher gives up.
func NewOutboxRetentionJob(params RetentionJobParams, repo outboxPurger) (Job, error) {
	if repo == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	job, err := newRetentionJob("outbox-retention", params, defaultOutboxRetentionDays, repo.DeletePublishedBefore)
	if err != nil {
		return nil, err
	}
	return job, nil
}

// NewDLQRetentionJob drops dead-lettered events after the retention window.
func NewDLQRetentionJob(params RetentionJobParams, repo dlqPurger) (Job, error) {
	if repo == nil {
		return nil, fmt.Errorf("dlq repository required")
	}
	job, err := newRetentionJob("outbox-dlq-retention", params, defaultDLQRetentionDays, repo.DeleteFailedBefore)
	if err != nil {
		return nil, err
	}
	return job, nil
}

func newRetentionJob(name string, params RetentionJobParams, fallbackDays int, purge purgeFunc) (*retentionJob, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	days := params.RetentionDays
	if days <= 0 {
		days = fallbackDays
	}
	return &retentionJob{
		name:  name,
		logg:  params.Logger,
		db:    params.DB,
		purge: purge,
		days:  days,
		now:   time.Now,
	}, nil
}

type retentionJob struct {
	name  string
	logg  *logger.Logger
	db    txRunner
	purge purgeFunc
	days  int
	now   func() time.Time
}

func (j *retentionJob) Name() string { return j.name }

func (j *retentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-time.Duration(j.days) * 24 * time.Hour)
	var deleted int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := j.purge(ctx, tx, cutoff)
		if err != nil {
			return err
		}
		deleted = rows
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", j.name, err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":         cutoff,
		"retention_days": j.days,
		"rows_deleted":   deleted,
	})
	j.logg.Info(logCtx, "retention cleanup complete")
	return nil
}
