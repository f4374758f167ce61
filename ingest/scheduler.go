package ingest

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"newsroom/models"

	log "github.com/sirupsen/logrus"
)

const (
	DefaultInterval    = 2 * time.Hour
	MinInterval        = time.Hour
	DefaultPassTimeout = 30 * time.Minute
)

// Runner runs a single ingestion pass
type Runner interface {
	CollectOnce(ctx context.Context) (models.PassResult, error)
}

type SchedulerConfig struct {
	Enabled     bool
	Interval    time.Duration
	PassTimeout time.Duration
}

// Scheduler runs ingestion passes on a recurring timer. It is armed at most
// once per value, by the first call to Activate.
type Scheduler struct {
	runner Runner
	config SchedulerConfig

	once    sync.Once
	started atomic.Bool
	running sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu   sync.RWMutex
	last *models.PassResult

	newTicker func(time.Duration) (<-chan time.Time, func())
}

// ClampInterval applies the default to non-positive intervals and raises
// anything shorter than MinInterval to MinInterval.
func ClampInterval(interval time.Duration) time.Duration {
	if interval <= 0 {
		return DefaultInterval
	}
	if interval < MinInterval {
		return MinInterval
	}
	return interval
}

func NewScheduler(runner Runner, config SchedulerConfig) *Scheduler {
	config.Interval = ClampInterval(config.Interval)
	if config.PassTimeout <= 0 {
		config.PassTimeout = DefaultPassTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		runner: runner,
		config: config,
		ctx:    ctx,
		cancel: cancel,
		newTicker: func(d time.Duration) (<-chan time.Time, func()) {
			t := time.NewTicker(d)
			return t.C, t.Stop
		},
	}
}

// Activate arms the scheduler on first call and does nothing afterwards. When
// enabled it starts one pass right away in the background and then one pass
// per interval. It is safe to call from any number of goroutines.
func (s *Scheduler) Activate() {
	s.once.Do(func() {
		if !s.config.Enabled {
			log.Info("Scheduler disabled, no recurring ingestion")
			return
		}

		s.started.Store(true)
		ticks, stop := s.newTicker(s.config.Interval)

		log.WithFields(log.Fields{
			"interval":    s.config.Interval.String(),
			"passTimeout": s.config.PassTimeout.String(),
		}).Info("Scheduler started")

		s.wg.Add(1)
		go s.loop(ticks, stop)
	})
}

func (s *Scheduler) loop(ticks <-chan time.Time, stop func()) {
	defer s.wg.Done()
	defer stop()

	s.wg.Add(1)
	go s.tryRun()

	for {
		select {
		case <-s.ctx.Done():
			log.Info("Scheduler stopped")
			return
		case <-ticks:
			s.wg.Add(1)
			go s.tryRun()
		}
	}
}

// tryRun runs a pass unless one is already in progress
func (s *Scheduler) tryRun() {
	defer s.wg.Done()

	if !s.running.TryLock() {
		ticksSkipped.Inc()
		log.Warn("Previous ingestion pass still running, skipping tick")
		return
	}
	defer s.running.Unlock()

	if s.ctx.Err() != nil {
		return
	}

	ctx, cancel := context.WithTimeout(s.ctx, s.config.PassTimeout)
	defer cancel()

	result, err := s.runner.CollectOnce(ctx)
	if err != nil {
		log.WithError(err).Error("Scheduled ingestion pass failed")
	}

	s.mu.Lock()
	s.last = &result
	s.mu.Unlock()
}

// Shutdown stops the timer, cancels a running pass and waits for it to
// return. Activate has no effect after Shutdown.
func (s *Scheduler) Shutdown() {
	s.once.Do(func() {})
	s.cancel()
	s.wg.Wait()
}

// Started reports whether the recurring timer was armed
func (s *Scheduler) Started() bool {
	return s.started.Load()
}

func (s *Scheduler) Interval() time.Duration {
	return s.config.Interval
}

// LastResult returns the outcome of the most recent finished pass, if any
func (s *Scheduler) LastResult() (models.PassResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return models.PassResult{}, false
	}
	return *s.last, true
}
