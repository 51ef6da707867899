package session

import (
	"context"
	"sync"
	"time"

	"github.com/SigNoz/storefront-go-app/internal/metrics"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Janitor periodically prunes expired sessions and records the active session gauge
type Janitor struct {
	store    Store
	interval time.Duration
	metrics  *metrics.AppMetrics
	logger   *zap.Logger

	stopChan chan struct{}
	wg       sync.WaitGroup
	once     sync.Once
}

// StartJanitor starts pruning store every interval
func StartJanitor(store Store, interval time.Duration, m *metrics.AppMetrics, logger *zap.Logger) *Janitor {
	j := &Janitor{
		store:    store,
		interval: interval,
		metrics:  m,
		logger:   logger,
		stopChan: make(chan struct{}),
	}

	j.wg.Add(1)
	go j.run()
	return j
}

func (j *Janitor) run() {
	defer j.wg.Done()
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-j.stopChan:
			return
		case <-ticker.C:
			j.sweep()
		}
	}
}

func (j *Janitor) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	removed, err := j.store.Prune(ctx)
	if err != nil {
		j.logger.Warn("session prune failed", zap.Error(err))
	} else if removed > 0 {
		j.logger.Debug("pruned expired sessions", zap.Int64("removed", removed))
	}

	count, err := j.store.Count(ctx)
	if err != nil {
		j.logger.Warn("session count failed", zap.Error(err))
		return
	}
	j.metrics.ActiveSessionsCount.Record(ctx, count, metric.WithAttributes(j.metrics.WithServiceName(nil)...))
}

// Stop stops the janitor and waits for the running sweep to finish
func (j *Janitor) Stop() {
	j.once.Do(func() {
		close(j.stopChan)
		j.wg.Wait()
	})
}
