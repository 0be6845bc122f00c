package srv

import (
	"context"
	"sync"
	"time"

	"github.com/sandevgo/voicebot/pkg/log"
)

type cleanupService struct {
	cleanup func() error
}

// NewCleanup wraps a close function as a service that does nothing until
// shutdown.
func NewCleanup(fn func() error) Service {
	return &cleanupService{cleanup: fn}
}

func (c *cleanupService) Start(context.Context) error {
	return nil
}

func (c *cleanupService) Shutdown(context.Context) error {
	if c.cleanup == nil {
		return nil
	}
	return c.cleanup()
}

// periodicService runs a job on a fixed interval until shut down.
type periodicService struct {
	name     string
	interval time.Duration
	job      func(ctx context.Context) error

	stop chan struct{}
	once sync.Once
	done chan struct{}
}

func NewPeriodic(name string, interval time.Duration, job func(ctx context.Context) error) Service {
	return &periodicService{
		name:     name,
		interval: interval,
		job:      job,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (p *periodicService) Start(ctx context.Context) error {
	defer close(p.done)

	logger := log.FromCtx(ctx).With().Str("job", p.name).Logger()
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-p.stop:
			return nil
		case <-ticker.C:
			if err := p.job(ctx); err != nil {
				logger.Warn().Err(err).Msg("periodic job failed")
			}
		}
	}
}

func (p *periodicService) Shutdown(ctx context.Context) error {
	p.once.Do(func() { close(p.stop) })

	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
