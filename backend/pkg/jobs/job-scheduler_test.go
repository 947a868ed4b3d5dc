package jobs

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	runs atomic.Int32
}

func (j *countingJob) Run() {
	j.runs.Add(1)
}

func testLogger() *logrus.Entry {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	return logger.WithField("test", "jobs")
}

func TestNewJobSchedulerWithoutJob(t *testing.T) {
	js, err := NewJobScheduler(testLogger(), "0 0 * * *", nil)
	require.NoError(t, err)

	js.Start()
	t.Cleanup(js.Stop)

	assert.Empty(t, js.scheduler.Entries())
	assert.True(t, js.NextRun().IsZero())
}

func TestNewJobSchedulerInvalidExpression(t *testing.T) {
	_, err := NewJobScheduler(testLogger(), "every minute", &countingJob{})
	assert.Error(t, err)
}

func TestNewJobScheduler(t *testing.T) {
	logger := testLogger()
	job := &countingJob{}

	js, err := NewJobScheduler(logger, "0 0 * * *", job)
	require.NoError(t, err)

	assert.Equal(t, logger, js.logger)
	assert.Equal(t, job, js.job)
	assert.NotZero(t, js.jobId)
}

func TestJobSchedulerNextRun(t *testing.T) {
	js, err := NewJobScheduler(testLogger(), "0 0 * * *", &countingJob{})
	require.NoError(t, err)

	js.Start()
	t.Cleanup(js.Stop)

	assert.Eventually(t, func() bool {
		return !js.NextRun().IsZero()
	}, time.Second, 10*time.Millisecond)
}

func TestJobSchedulerInSeconds(t *testing.T) {
	job := &countingJob{}
	js, err := NewJobScheduler(testLogger(), "* * * * * *", job)
	require.NoError(t, err)

	js.Start()
	t.Cleanup(js.Stop)

	assert.Eventually(t, func() bool {
		return job.runs.Load() > 0
	}, 3*time.Second, 50*time.Millisecond)
}

func TestJobSchedulerStop(t *testing.T) {
	js, err := NewJobScheduler(testLogger(), "@every 1h", &countingJob{})
	require.NoError(t, err)

	js.Start()
	js.Stop()

	assert.True(t, js.NextRun().IsZero())
}
