package services

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"alfredoptarigan/ats-scanner/internal/logger"
)

const (
	DefaultSessionTTL    = 30 * time.Minute
	DefaultSweepInterval = time.Minute
)

// SessionJanitor periodically evicts idle sessions from a registry.
type SessionJanitor interface {
	Start(ctx context.Context)
	Stop()
}

type sessionJanitor struct {
	registry SessionRegistry
	ttl      time.Duration
	interval time.Duration
	clock    Clock
	logger   *zap.Logger

	wg       sync.WaitGroup
	stopOnce sync.Once
	stopChan chan struct{}
}

func NewSessionJanitor(registry SessionRegistry, ttl, interval time.Duration, clock Clock, log *zap.Logger) SessionJanitor {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if clock == nil {
		clock = NewRealClock()
	}

	return &sessionJanitor{
		registry: registry,
		ttl:      ttl,
		interval: interval,
		clock:    clock,
		logger:   logger.WithFields(log, zap.String("component", "janitor")),
		stopChan: make(chan struct{}),
	}
}

// Start implements SessionJanitor.
func (j *sessionJanitor) Start(ctx context.Context) {
	j.logger.Info("starting session janitor",
		zap.Duration("ttl", j.ttl),
		zap.Duration("interval", j.interval),
	)

	j.wg.Add(1)
	go j.run(ctx)
}

// Stop implements SessionJanitor.
func (j *sessionJanitor) Stop() {
	j.stopOnce.Do(func() {
		close(j.stopChan)
	})
	j.wg.Wait()
	j.logger.Info("session janitor stopped")
}

func (j *sessionJanitor) run(ctx context.Context) {
	defer j.wg.Done()
	ticker := j.clock.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-j.stopChan:
			return
		case <-ticker.C():
			evicted := j.registry.Sweep(j.clock.Now(), j.ttl)
			if len(evicted) > 0 {
				j.logger.Info("evicted idle sessions",
					zap.Int("count", len(evicted)),
					zap.Strings("session_ids", evicted),
				)
			}
		}
	}
}
