package loop

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/safarnama/safarnama/internal/core/observability/log"
)

// StepFunc runs one frame. tick starts at 1 and increases by one per call.
type StepFunc func(tick uint64) error

// Config holds loop configuration
type Config struct {
	FrameRate int // frames per second
}

// DefaultConfig returns a 60 Hz loop configuration
func DefaultConfig() Config {
	return Config{FrameRate: 60}
}

// Interval is the time between two frames.
func (c Config) Interval() time.Duration {
	if c.FrameRate <= 0 {
		return DefaultConfig().Interval()
	}
	return time.Second / time.Duration(c.FrameRate)
}

// Metrics provides runtime metrics for a loop
type Metrics struct {
	Ticks               uint64
	Errors              uint64
	LastError           error
	LastStepDuration    time.Duration
	AverageStepDuration time.Duration
	MaxStepDuration     time.Duration
	TotalStepDuration   time.Duration
	LastTickAt          time.Time
}

// Loop drives a StepFunc at a fixed cadence on a single goroutine. Frames
// never overlap and run in tick order. Once Stop returns no further frame
// runs; the pending timer is stopped rather than drained. A loop runs at most
// once: after it ends, by Stop or by its context, Start returns ErrClosed.
type Loop struct {
	config Config
	step   StepFunc
	logger log.Log

	started int32 // atomic bool
	running int32 // atomic bool
	closed  int32 // atomic bool

	stopChan chan struct{}
	done     chan struct{}

	tick      uint64
	metricsMu sync.Mutex
	metrics   Metrics
}

func New(config Config, step StepFunc, logger log.Log) *Loop {
	return &Loop{
		config:   config,
		step:     step,
		logger:   logger.With(log.String("component", "loop")),
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the frame goroutine. It returns immediately.
func (l *Loop) Start(ctx context.Context) error {
	if atomic.LoadInt32(&l.closed) == 1 {
		return ErrClosed
	}
	if !atomic.CompareAndSwapInt32(&l.started, 0, 1) {
		if l.IsRunning() {
			return ErrAlreadyRunning
		}
		return ErrClosed
	}
	atomic.StoreInt32(&l.running, 1)

	l.logger.Debug("Loop started", log.Duration("interval", l.config.Interval()))

	go l.run(ctx)
	return nil
}

// Stop cancels the loop and waits for an in-flight frame to finish. Calling
// it more than once, or on a loop that never started, is safe.
func (l *Loop) Stop() error {
	stopping := atomic.CompareAndSwapInt32(&l.closed, 0, 1)
	if stopping {
		close(l.stopChan)
	}

	if atomic.LoadInt32(&l.started) == 1 {
		<-l.done
	}
	if stopping {
		l.logger.Debug("Loop stopped", log.Uint64("ticks", l.Metrics().Ticks))
	}
	return nil
}

// Done is closed when the frame goroutine exits.
func (l *Loop) Done() <-chan struct{} { return l.done }

func (l *Loop) IsRunning() bool { return atomic.LoadInt32(&l.running) == 1 }

func (l *Loop) Metrics() Metrics {
	l.metricsMu.Lock()
	defer l.metricsMu.Unlock()
	return l.metrics
}

func (l *Loop) run(ctx context.Context) {
	defer func() {
		atomic.StoreInt32(&l.closed, 1)
		atomic.StoreInt32(&l.running, 0)
		close(l.done)
	}()

	ticker := time.NewTicker(l.config.Interval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-l.stopChan:
			return
		case <-ticker.C:
		}

		// A tick and a stop can be ready together; stop wins.
		select {
		case <-l.stopChan:
			return
		case <-ctx.Done():
			return
		default:
		}

		l.frame()
	}
}

func (l *Loop) frame() {
	l.tick++
	started := time.Now()
	err := l.step(l.tick)
	elapsed := time.Since(started)

	l.metricsMu.Lock()
	m := &l.metrics
	m.Ticks++
	m.LastTickAt = started
	m.LastStepDuration = elapsed
	m.TotalStepDuration += elapsed
	m.AverageStepDuration = m.TotalStepDuration / time.Duration(m.Ticks)
	if elapsed > m.MaxStepDuration {
		m.MaxStepDuration = elapsed
	}
	if err != nil {
		m.Errors++
		m.LastError = err
	}
	l.metricsMu.Unlock()

	if err != nil {
		l.logger.Warn("Frame step failed", log.Uint64("tick", l.tick), log.Error(err))
	}
}
