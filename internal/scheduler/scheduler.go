// Package scheduler fires the trading cycle on an interval or once a day,
// gated on market hours, with at most one cycle in flight.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rxtech-lab/kis-autotrader/internal/logger"
	"github.com/rxtech-lab/kis-autotrader/internal/market"
	"github.com/rxtech-lab/kis-autotrader/internal/types"
	"github.com/rxtech-lab/kis-autotrader/pkg/errors"
	"go.uber.org/zap"
)

// Mode selects between interval and daily scheduling.
type Mode string

const (
	ModeInterval Mode = "interval"
	ModeDaily    Mode = "daily"

	// MinInterval is the shortest accepted interval.
	MinInterval = 10 * time.Second
	// DefaultDailyTime is the Seoul wall-clock time of the daily run.
	DefaultDailyTime = "09:05"
)

// Cycle results reported to the recorder.
const (
	ResultCompleted = "completed"
	ResultFailed    = "failed"
	ResultSkipped   = "skipped"
	ResultPanicked  = "panicked"
)

// Job is one trading cycle.
type Job interface {
	RunCycle(ctx context.Context) error
}

// CycleRecorder observes cycle outcomes.
type CycleRecorder interface {
	RecordCycle(result string, elapsed time.Duration)
}

// Settings selects the schedule.
type Settings struct {
	Mode Mode `yaml:"mode" json:"mode" default:"interval" validate:"oneof=interval daily"`
	// IntervalSeconds is used in interval mode
	IntervalSeconds int `yaml:"interval_seconds" json:"interval_seconds" default:"60"`
	// DailyTime is HH:MM Seoul time, used in daily mode
	DailyTime string `yaml:"daily_time" json:"daily_time" default:"09:05"`
}

// spec returns the cron expression for the settings.
func (s Settings) spec() (string, error) {
	switch s.Mode {
	case ModeInterval:
		interval := time.Duration(s.IntervalSeconds) * time.Second
		if interval < MinInterval {
			return "", errors.Newf(errors.ErrCodeInvalidSchedule, "interval must be at least %d seconds, got %d", int(MinInterval.Seconds()), s.IntervalSeconds)
		}

		return fmt.Sprintf("@every %ds", s.IntervalSeconds), nil
	case ModeDaily:
		dailyTime := s.DailyTime
		if dailyTime == "" {
			dailyTime = DefaultDailyTime
		}

		at, err := time.Parse("15:04", dailyTime)
		if err != nil {
			return "", errors.Wrapf(errors.ErrCodeInvalidSchedule, err, "invalid daily time %q", s.DailyTime)
		}

		return fmt.Sprintf("%d %d * * *", at.Minute(), at.Hour()), nil
	default:
		return "", errors.Newf(errors.ErrCodeInvalidSchedule, "unknown schedule mode %q", s.Mode)
	}
}

// Status is a point-in-time view of the scheduler.
type Status struct {
	Running         bool               `json:"is_running"`
	Mode            Mode               `json:"mode,omitempty"`
	IntervalSeconds int                `json:"interval_seconds,omitempty"`
	DailyTime       string             `json:"daily_time,omitempty"`
	NextRun         *time.Time         `json:"next_run,omitempty"`
	Market          types.MarketStatus `json:"market"`
}

// Scheduler owns the cron runner and the single cycle job.
type Scheduler struct {
	job      Job
	hours    market.Hours
	logger   *logger.Logger
	recorder CycleRecorder
	now      func() time.Time

	// cycle is the job wrapped with the skip-if-still-running cap; it is
	// shared by scheduled fires and manual triggers
	cycle cron.Job
	// inflight is read-held by manual triggers; Stop takes the write lock
	// to wait for them
	inflight sync.RWMutex

	mu       sync.Mutex
	cron     *cron.Cron
	entryID  cron.EntryID
	settings Settings
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewScheduler creates a stopped scheduler for job.
func NewScheduler(job Job, hours market.Hours, log *logger.Logger) *Scheduler {
	if log == nil {
		log = logger.NewNop()
	}

	if hours == nil {
		hours = market.NewRegularHours()
	}

	s := &Scheduler{
		job:    job,
		hours:  hours,
		logger: log,
		now:    time.Now,
	}

	s.cycle = cron.NewChain(cron.SkipIfStillRunning(newCronLogger(log))).Then(cron.FuncJob(s.fire))

	return s
}

// SetRecorder attaches a cycle observer.
func (s *Scheduler) SetRecorder(recorder CycleRecorder) {
	s.recorder = recorder
}

// Start installs the cycle job and starts firing. It fails when already
// running, leaving the current schedule untouched.
func (s *Scheduler) Start(settings Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		return errors.New(errors.ErrCodeSchedulerRunning, "scheduler is already running")
	}

	spec, err := settings.spec()
	if err != nil {
		return err
	}

	runner := cron.New(
		cron.WithLocation(market.Seoul),
		cron.WithLogger(newCronLogger(s.logger)),
		cron.WithChain(cron.Recover(newCronLogger(s.logger))),
	)

	entryID, err := runner.AddJob(spec, s.cycle)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidSchedule, err, "failed to schedule %q", spec)
	}

	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.cron = runner
	s.entryID = entryID
	s.settings = settings

	runner.Start()

	s.logger.Info("Scheduler started",
		zap.String("mode", string(settings.Mode)),
		zap.String("schedule", spec),
		zap.Time("next_run", runner.Entry(entryID).Next),
	)

	return nil
}

// Update reschedules the running job in place.
func (s *Scheduler) Update(settings Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron == nil {
		return errors.New(errors.ErrCodeSchedulerNotRunning, "scheduler is not running")
	}

	spec, err := settings.spec()
	if err != nil {
		return err
	}

	entryID, err := s.cron.AddJob(spec, s.cycle)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidSchedule, err, "failed to schedule %q", spec)
	}

	s.cron.Remove(s.entryID)
	s.entryID = entryID
	s.settings = settings

	s.logger.Info("Scheduler updated",
		zap.String("mode", string(settings.Mode)),
		zap.String("schedule", spec),
	)

	return nil
}

// Stop halts scheduling and waits for any in-flight cycle to finish.
func (s *Scheduler) Stop() error {
	s.mu.Lock()

	if s.cron == nil {
		s.mu.Unlock()

		return errors.New(errors.ErrCodeSchedulerNotRunning, "scheduler is not running")
	}

	runner := s.cron
	cancel := s.cancel
	s.cron = nil
	s.entryID = 0
	s.ctx = nil
	s.mu.Unlock()

	<-runner.Stop().Done()
	s.inflight.Lock()
	cancel()
	s.inflight.Unlock()

	s.logger.Info("Scheduler stopped")

	return nil
}

// Running reports whether the scheduler is started.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.cron != nil
}

// Status reports the schedule, its next fire time and the market state.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := Status{Market: s.hours.Status(s.now())}

	if s.cron == nil {
		return status
	}

	status.Running = true
	status.Mode = s.settings.Mode

	switch s.settings.Mode {
	case ModeInterval:
		status.IntervalSeconds = s.settings.IntervalSeconds
	case ModeDaily:
		status.DailyTime = s.settings.DailyTime
		if status.DailyTime == "" {
			status.DailyTime = DefaultDailyTime
		}
	}

	if next := s.cron.Entry(s.entryID).Next; !next.IsZero() {
		status.NextRun = &next
	}

	return status
}

// Trigger runs one gated cycle now on the caller's goroutine. It returns
// immediately when a cycle is already in flight.
func (s *Scheduler) Trigger() {
	s.inflight.RLock()
	defer s.inflight.RUnlock()

	s.cycle.Run()
}

func (s *Scheduler) runContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx == nil {
		return context.Background()
	}

	return s.ctx
}

// fire runs one cycle if the market is open.
func (s *Scheduler) fire() {
	start := time.Now()
	now := s.now()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Trading cycle panicked", zap.Any("panic", r))
			s.record(ResultPanicked, start)
		}
	}()

	if !s.hours.IsOpen(now) {
		s.logger.Info("Market closed, skipping trading cycle",
			zap.Time("now", now.In(market.Seoul)),
			zap.Time("next_open", s.hours.NextOpen(now)),
		)
		s.record(ResultSkipped, start)

		return
	}

	if err := s.job.RunCycle(s.runContext()); err != nil {
		s.logger.Error("Trading cycle failed", zap.String("error", logger.Redact(err.Error())))
		s.record(ResultFailed, start)

		return
	}

	s.record(ResultCompleted, start)
}

func (s *Scheduler) record(result string, start time.Time) {
	if s.recorder != nil {
		s.recorder.RecordCycle(result, time.Since(start))
	}
}

// cronLogger adapts the zap logger to cron.Logger.
type cronLogger struct {
	sugar *zap.SugaredLogger
}

func newCronLogger(log *logger.Logger) cron.Logger {
	return cronLogger{sugar: log.Sugar()}
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.sugar.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.sugar.Errorw(msg, append(keysAndValues, "error", err)...)
}
