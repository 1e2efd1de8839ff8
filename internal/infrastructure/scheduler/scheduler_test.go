package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	name string
	runs atomic.Int64
	err  error
}

func (j *countingJob) Name() string        { return j.name }
func (j *countingJob) Description() string { return "counts runs" }
func (j *countingJob) Run(context.Context) error {
	j.runs.Add(1)
	return j.err
}

func TestIntervalSchedule_Next(t *testing.T) {
	s := NewIntervalSchedule(15 * time.Minute)
	base := time.Date(2026, 8, 28, 19, 0, 0, 0, time.UTC)

	assert.Equal(t, base.Add(15*time.Minute), s.Next(base))
	assert.Equal(t, "@every 15m0s", s.String())
}

func TestDailyAtSchedule_Next(t *testing.T) {
	s, err := NewDailyAtSchedule(19, 30, time.UTC)
	require.NoError(t, err)

	// Before the wall time: fires the same day.
	before := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 8, 28, 19, 30, 0, 0, time.UTC), s.Next(before))

	// Exactly at the wall time: fires the next day.
	at := time.Date(2026, 8, 28, 19, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 8, 29, 19, 30, 0, 0, time.UTC), s.Next(at))

	// After the wall time: fires the next day.
	after := time.Date(2026, 8, 28, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 8, 29, 19, 30, 0, 0, time.UTC), s.Next(after))
}

func TestDailyAtSchedule_Validation(t *testing.T) {
	_, err := NewDailyAtSchedule(24, 0, nil)
	assert.Error(t, err)

	_, err = NewDailyAtSchedule(19, 60, nil)
	assert.Error(t, err)

	s, err := NewDailyAtSchedule(0, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, time.UTC, s.Location)
}

func TestScheduler_RegisterDuplicate(t *testing.T) {
	s := New(Config{})
	job := &countingJob{name: "nightly"}

	require.NoError(t, s.Register(job, NewIntervalSchedule(time.Hour)))

	err := s.Register(job, NewIntervalSchedule(time.Hour))
	assert.ErrorIs(t, err, ErrJobAlreadyExists)
}

func TestScheduler_RegisterNil(t *testing.T) {
	s := New(Config{})

	assert.ErrorIs(t, s.Register(nil, NewIntervalSchedule(time.Hour)), ErrNilJob)
	assert.ErrorIs(t, s.Register(&countingJob{name: "j"}, nil), ErrNilSchedule)
}

func TestScheduler_RunNow(t *testing.T) {
	s := New(Config{Metrics: NewMetrics(nil)})
	job := &countingJob{name: "sweep"}
	require.NoError(t, s.Register(job, NewIntervalSchedule(time.Hour)))

	res, err := s.RunNow(context.Background(), "sweep")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, int64(1), job.runs.Load())

	infos := s.ListJobs()
	require.Len(t, infos, 1)
	assert.Equal(t, "sweep", infos[0].LastResult.JobName)
}

func TestScheduler_RunNowUnknown(t *testing.T) {
	s := New(Config{})

	_, err := s.RunNow(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestScheduler_RunNowPropagatesJobError(t *testing.T) {
	s := New(Config{})
	boom := errors.New("boom")
	job := &countingJob{name: "flaky", err: boom}
	require.NoError(t, s.Register(job, NewIntervalSchedule(time.Hour)))

	res, err := s.RunNow(context.Background(), "flaky")
	assert.ErrorIs(t, err, boom)
	assert.False(t, res.Success)
}

func TestScheduler_Lifecycle(t *testing.T) {
	s := New(Config{})

	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.IsRunning())
	assert.ErrorIs(t, s.Start(context.Background()), ErrSchedulerAlreadyRunning)

	require.NoError(t, s.Stop())
	assert.False(t, s.IsRunning())
	assert.ErrorIs(t, s.Stop(), ErrSchedulerNotRunning)
}

func TestScheduler_DisableEnable(t *testing.T) {
	s := New(Config{})
	job := &countingJob{name: "nightly"}
	require.NoError(t, s.Register(job, NewIntervalSchedule(time.Hour)))

	require.NoError(t, s.DisableJob("nightly"))
	infos := s.ListJobs()
	require.Len(t, infos, 1)
	assert.False(t, infos[0].Enabled)

	require.NoError(t, s.EnableJob("nightly"))
	assert.True(t, s.ListJobs()[0].Enabled)

	assert.ErrorIs(t, s.DisableJob("missing"), ErrJobNotFound)
}
