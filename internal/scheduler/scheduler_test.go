package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rxtech-lab/kis-autotrader/internal/market"
	"github.com/rxtech-lab/kis-autotrader/internal/types"
	"github.com/rxtech-lab/kis-autotrader/mocks"
	"github.com/rxtech-lab/kis-autotrader/pkg/errors"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type fakeHours struct {
	open bool
}

func (h fakeHours) IsOpen(time.Time) bool {
	return h.open
}

func (h fakeHours) NextOpen(t time.Time) time.Time {
	return t.Add(time.Hour)
}

func (h fakeHours) Status(t time.Time) types.MarketStatus {
	return types.MarketStatus{IsOpen: h.open, CurrentTime: t, MarketHours: market.HoursLabel}
}

type cycleLog struct {
	mu      sync.Mutex
	results []string
}

func (l *cycleLog) RecordCycle(result string, _ time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.results = append(l.results, result)
}

func (l *cycleLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	return append([]string(nil), l.results...)
}

type SchedulerTestSuite struct {
	suite.Suite
	ctrl   *gomock.Controller
	job    *mocks.MockJob
	cycles *cycleLog
	sched  *Scheduler
}

func TestSchedulerSuite(t *testing.T) {
	suite.Run(t, new(SchedulerTestSuite))
}

func (suite *SchedulerTestSuite) SetupTest() {
	suite.ctrl = gomock.NewController(suite.T())
	suite.job = mocks.NewMockJob(suite.ctrl)
	suite.cycles = &cycleLog{}
	suite.newScheduler(true)
}

func (suite *SchedulerTestSuite) TearDownTest() {
	if suite.sched.Running() {
		suite.NoError(suite.sched.Stop())
	}

	suite.ctrl.Finish()
}

func (suite *SchedulerTestSuite) newScheduler(open bool) {
	suite.sched = NewScheduler(suite.job, fakeHours{open: open}, nil)
	suite.sched.SetRecorder(suite.cycles)
}

func (suite *SchedulerTestSuite) TestSettingsSpec() {
	testCases := []struct {
		name     string
		settings Settings
		expected string
		code     errors.ErrorCode
	}{
		{"interval", Settings{Mode: ModeInterval, IntervalSeconds: 60}, "@every 60s", 0},
		{"minimum interval", Settings{Mode: ModeInterval, IntervalSeconds: 10}, "@every 10s", 0},
		{"interval too short", Settings{Mode: ModeInterval, IntervalSeconds: 9}, "", errors.ErrCodeInvalidSchedule},
		{"daily", Settings{Mode: ModeDaily, DailyTime: "14:30"}, "30 14 * * *", 0},
		{"daily default", Settings{Mode: ModeDaily}, "5 9 * * *", 0},
		{"daily malformed", Settings{Mode: ModeDaily, DailyTime: "25:00"}, "", errors.ErrCodeInvalidSchedule},
		{"unknown mode", Settings{Mode: "weekly"}, "", errors.ErrCodeInvalidSchedule},
	}

	for _, tc := range testCases {
		suite.Run(tc.name, func() {
			spec, err := tc.settings.spec()
			if tc.code != 0 {
				suite.Error(err)
				suite.Equal(tc.code, errors.GetCode(err))

				return
			}

			suite.NoError(err)
			suite.Equal(tc.expected, spec)
		})
	}
}

func (suite *SchedulerTestSuite) TestStartWhileRunningKeepsSchedule() {
	suite.Require().NoError(suite.sched.Start(Settings{Mode: ModeInterval, IntervalSeconds: 60}))

	err := suite.sched.Start(Settings{Mode: ModeDaily, DailyTime: "10:00"})
	suite.Error(err)
	suite.Equal(errors.ErrCodeSchedulerRunning, errors.GetCode(err))

	status := suite.sched.Status()
	suite.True(status.Running)
	suite.Equal(ModeInterval, status.Mode)
	suite.Equal(60, status.IntervalSeconds)
	suite.Require().NotNil(status.NextRun)
	suite.True(status.NextRun.After(time.Now()))
}

func (suite *SchedulerTestSuite) TestStartRejectsInvalidSettings() {
	err := suite.sched.Start(Settings{Mode: ModeInterval, IntervalSeconds: 5})
	suite.Equal(errors.ErrCodeInvalidSchedule, errors.GetCode(err))
	suite.False(suite.sched.Running())
}

func (suite *SchedulerTestSuite) TestStopThenStart() {
	suite.Require().NoError(suite.sched.Start(Settings{Mode: ModeInterval, IntervalSeconds: 30}))
	suite.Require().NoError(suite.sched.Stop())
	suite.False(suite.sched.Running())
	suite.False(suite.sched.Status().Running)

	suite.Require().NoError(suite.sched.Start(Settings{Mode: ModeDaily}))
	suite.True(suite.sched.Running())
	suite.Equal(DefaultDailyTime, suite.sched.Status().DailyTime)
}

func (suite *SchedulerTestSuite) TestStopWhenStopped() {
	err := suite.sched.Stop()
	suite.Equal(errors.ErrCodeSchedulerNotRunning, errors.GetCode(err))
}

func (suite *SchedulerTestSuite) TestUpdate() {
	err := suite.sched.Update(Settings{Mode: ModeInterval, IntervalSeconds: 30})
	suite.Equal(errors.ErrCodeSchedulerNotRunning, errors.GetCode(err))

	suite.Require().NoError(suite.sched.Start(Settings{Mode: ModeInterval, IntervalSeconds: 30}))
	suite.Require().NoError(suite.sched.Update(Settings{Mode: ModeDaily, DailyTime: "14:30"}))

	status := suite.sched.Status()
	suite.Equal(ModeDaily, status.Mode)
	suite.Equal("14:30", status.DailyTime)
	suite.Require().NotNil(status.NextRun)

	next := status.NextRun.In(market.Seoul)
	suite.Equal(14, next.Hour())
	suite.Equal(30, next.Minute())

	err = suite.sched.Update(Settings{Mode: ModeInterval, IntervalSeconds: 1})
	suite.Equal(errors.ErrCodeInvalidSchedule, errors.GetCode(err))
	suite.Equal(ModeDaily, suite.sched.Status().Mode)
}

func (suite *SchedulerTestSuite) TestStatusReportsMarket() {
	status := suite.sched.Status()
	suite.False(status.Running)
	suite.True(status.Market.IsOpen)
	suite.Equal(market.HoursLabel, status.Market.MarketHours)
	suite.Nil(status.NextRun)
}

func (suite *SchedulerTestSuite) TestClosedMarketSkipsCycle() {
	suite.newScheduler(false)
	suite.job.EXPECT().RunCycle(gomock.Any()).Times(0)

	suite.sched.Trigger()

	suite.Equal([]string{ResultSkipped}, suite.cycles.snapshot())
}

func (suite *SchedulerTestSuite) TestDailyModeClosedMarketSkipsCycle() {
	suite.newScheduler(false)
	suite.job.EXPECT().RunCycle(gomock.Any()).Times(0)

	suite.Require().NoError(suite.sched.Start(Settings{Mode: ModeDaily, DailyTime: "09:05"}))

	status := suite.sched.Status()
	suite.True(status.Running)
	suite.Equal(ModeDaily, status.Mode)
	suite.False(status.Market.IsOpen)

	suite.sched.Trigger()

	suite.Equal([]string{ResultSkipped}, suite.cycles.snapshot())
}

func (suite *SchedulerTestSuite) TestTriggerDuringStartStop() {
	suite.newScheduler(false)
	suite.job.EXPECT().RunCycle(gomock.Any()).Times(0)

	done := make(chan struct{})
	finished := make(chan struct{})

	go func() {
		defer close(finished)

		for {
			select {
			case <-done:
				return
			default:
				suite.sched.Trigger()
			}
		}
	}()

	for i := 0; i < 200; i++ {
		suite.Require().NoError(suite.sched.Start(Settings{Mode: ModeInterval, IntervalSeconds: 3600}))
		suite.Require().NoError(suite.sched.Stop())
	}

	close(done)
	<-finished

	suite.False(suite.sched.Running())
}

func (suite *SchedulerTestSuite) TestOpenMarketRunsCycle() {
	suite.job.EXPECT().RunCycle(gomock.Any()).Return(nil)
	suite.sched.Trigger()

	suite.job.EXPECT().RunCycle(gomock.Any()).Return(errors.New(errors.ErrCodeConnectivity, "refused"))
	suite.sched.Trigger()

	suite.Equal([]string{ResultCompleted, ResultFailed}, suite.cycles.snapshot())
}

func (suite *SchedulerTestSuite) TestPanicIsRecovered() {
	suite.job.EXPECT().RunCycle(gomock.Any()).DoAndReturn(func(context.Context) error {
		panic("boom")
	})

	suite.NotPanics(suite.sched.Trigger)
	suite.Equal([]string{ResultPanicked}, suite.cycles.snapshot())

	suite.job.EXPECT().RunCycle(gomock.Any()).Return(nil)
	suite.sched.Trigger()
	suite.Equal([]string{ResultPanicked, ResultCompleted}, suite.cycles.snapshot())
}

func (suite *SchedulerTestSuite) TestAtMostOneCycleInFlight() {
	started := make(chan struct{})
	release := make(chan struct{})

	suite.job.EXPECT().RunCycle(gomock.Any()).DoAndReturn(func(context.Context) error {
		close(started)
		<-release

		return nil
	}).Times(1)

	done := make(chan struct{})

	go func() {
		suite.sched.Trigger()
		close(done)
	}()

	<-started
	suite.sched.Trigger()
	close(release)
	<-done

	suite.Equal([]string{ResultCompleted}, suite.cycles.snapshot())
}

func (suite *SchedulerTestSuite) TestStopWaitsForInFlightCycle() {
	suite.Require().NoError(suite.sched.Start(Settings{Mode: ModeInterval, IntervalSeconds: 3600}))

	started := make(chan struct{})
	release := make(chan struct{})

	suite.job.EXPECT().RunCycle(gomock.Any()).DoAndReturn(func(ctx context.Context) error {
		close(started)
		<-release

		return ctx.Err()
	})

	go suite.sched.Trigger()
	<-started

	stopped := make(chan struct{})

	go func() {
		suite.NoError(suite.sched.Stop())
		close(stopped)
	}()

	select {
	case <-stopped:
		suite.Fail("stop returned while a cycle was in flight")
	case <-time.After(100 * time.Millisecond):
	}

	close(release)

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		suite.Fail("stop did not return after the cycle finished")
	}

	suite.False(suite.sched.Running())
	suite.Equal([]string{ResultCompleted}, suite.cycles.snapshot())
}
