package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kartly/storefront-backend/pkg/logger"
	"github.com/kartly/storefront-backend/pkg/metrics"
	"github.com/kartly/storefront-backend/pkg/redis/redistest"
)

const testLockKey = "kartly:cron-worker:lock:test"

type testJob struct {
	name string
	err  error
	runs int
}

func (j *testJob) Name() string { return j.name }

func (j *testJob) Run(context.Context) error {
	j.runs++
	return j.err
}

func newTestService(t *testing.T, store *redistest.Store, reg *prometheus.Registry, jobs ...Job) *Service {
	t.Helper()
	lock, err := NewRedisLock(store, testLockKey, 0)
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	registry, err := NewRegistry(jobs...)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	svc, err := NewService(ServiceParams{
		Logger:   logger.Nop(),
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(reg),
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	return svc
}

func TestRunCycleRunsEveryJobAndReleasesLock(t *testing.T) {
	store := redistest.New()
	reg := prometheus.NewRegistry()
	ok := &testJob{name: "outbox-retention"}
	failing := &testJob{name: "outbox-dlq-retention", err: errors.New("boom")}
	svc := newTestService(t, store, reg, ok, failing)

	if err := svc.runCycle(context.Background()); err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if ok.runs != 1 || failing.runs != 1 {
		t.Fatalf("expected each job once, got %d and %d", ok.runs, failing.runs)
	}
	if store.Has(testLockKey) {
		t.Fatalf("expected lock released after cycle")
	}
	if got := counterValue(t, reg, "kartly_cron_job_success_total", "outbox-retention"); got != 1 {
		t.Fatalf("expected 1 success, got %f", got)
	}
	if got := counterValue(t, reg, "kartly_cron_job_failure_total", "outbox-dlq-retention"); got != 1 {
		t.Fatalf("expected 1 failure, got %f", got)
	}
}

func TestRunCycleSkipsWhenLockHeld(t *testing.T) {
	store := redistest.New()
	job := &testJob{name: "outbox-retention"}
	svc := newTestService(t, store, prometheus.NewRegistry(), job)

	if _, err := store.AcquireLock(context.Background(), testLockKey, "other-worker", 0); err != nil {
		t.Fatalf("seed lock: %v", err)
	}
	if err := svc.runCycle(context.Background()); err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if job.runs != 0 {
		t.Fatalf("expected job skipped, ran %d", job.runs)
	}
	if !store.Has(testLockKey) {
		t.Fatalf("foreign lock must not be released")
	}
}

func TestRunCycleSurfacesLockErrors(t *testing.T) {
	store := redistest.New()
	store.Err = errors.New("redis down")
	svc := newTestService(t, store, prometheus.NewRegistry(), &testJob{name: "outbox-retention"})

	if err := svc.runCycle(context.Background()); err == nil {
		t.Fatalf("expected lock error")
	}
}

func counterValue(t *testing.T, reg *prometheus.Registry, name, job string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, label := range m.GetLabel() {
				if label.GetName() == "job" && label.GetValue() == job {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}
