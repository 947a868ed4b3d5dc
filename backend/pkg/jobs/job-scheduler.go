package jobs

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

type JobScheduler struct {
	scheduler *cron.Cron
	logger    *logrus.Entry
	job       cron.Job
	jobId     cron.EntryID
}

// NewJobScheduler accepts standard five field expressions, descriptors such as
// "@every 5s", and six field expressions with a leading seconds field.
func NewJobScheduler(logger *logrus.Entry, frequency string, job cron.Job) (*JobScheduler, error) {
	scheduler := cron.New()

	logger.Infof("scheduling periodic job with cron expression: '%s'", frequency)
	if strings.Count(strings.TrimSpace(frequency), " ") == 5 {
		logger.Warn("periodic job uses 'second level' scheduling. This may cause performance issues with large ledgers")
		scheduler = cron.New(cron.WithSeconds())
	}

	var jobId cron.EntryID
	if job != nil {
		var err error
		jobId, err = scheduler.AddJob(frequency, cron.NewChain(cron.SkipIfStillRunning(cronLogger{logger})).Then(job))
		if err != nil {
			logger.Errorf("could not add scheduled run for job: %v", err)
			return nil, fmt.Errorf("invalid cron expression '%s': %w", frequency, err)
		}
	}

	return &JobScheduler{
		scheduler: scheduler,
		logger:    logger,
		job:       job,
		jobId:     jobId,
	}, nil
}

func (js *JobScheduler) Start() {
	js.scheduler.Start()
}

// NextRun is zero until the scheduler has been started.
func (js *JobScheduler) NextRun() time.Time {
	return js.scheduler.Entry(js.jobId).Next
}

func (js *JobScheduler) Stop() {
	js.scheduler.Remove(js.jobId)
	<-js.scheduler.Stop().Done()
}

// cronLogger adapts logrus to the cron.Logger interface.
type cronLogger struct {
	logger *logrus.Entry
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.WithFields(kvFields(keysAndValues)).Debug(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.WithFields(kvFields(keysAndValues)).WithError(err).Error(msg)
}

func kvFields(keysAndValues []interface{}) logrus.Fields {
	fields := logrus.Fields{}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return fields
}
