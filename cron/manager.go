package cron

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/saiset-co/sai-travel/types"
)

type State int32

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
)

var jobDurationBuckets = []float64{0.001, 0.01, 0.1, 1, 10, 60}

// Manager schedules background jobs with second-resolution specs. A job
// still running when its next tick fires is skipped, and a panicking job
// is logged and counted without stopping the scheduler.
type Manager struct {
	ctx             context.Context
	cancel          context.CancelFunc
	logger          types.Logger
	metrics         types.MetricsManager
	cron            *cron.Cron
	timezone        *time.Location
	jobs            map[string]*types.JobEntry
	mu              sync.RWMutex
	state           atomic.Int32
	shutdownTimeout time.Duration
}

func NewManager(ctx context.Context, config *types.CronConfig, logger types.Logger, metrics types.MetricsManager) (*Manager, error) {
	if config == nil {
		return nil, types.ErrConfigIsNil
	}

	timezone := time.UTC
	if config.Timezone != "" {
		loc, err := time.LoadLocation(config.Timezone)
		if err != nil {
			logger.Warn("Unknown cron timezone, using UTC", zap.String("timezone", config.Timezone), zap.Error(err))
		} else {
			timezone = loc
		}
	}

	cronLogger := safeCronLogger{logger: logger}

	managerCtx, cancel := context.WithCancel(ctx)

	m := &Manager{
		ctx:     managerCtx,
		cancel:  cancel,
		logger:  logger,
		metrics: metrics,
		cron: cron.New(
			cron.WithLocation(timezone),
			cron.WithSeconds(),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		timezone:        timezone,
		jobs:            make(map[string]*types.JobEntry),
		shutdownTimeout: 10 * time.Second,
	}
	m.state.Store(int32(StateStopped))

	return m, nil
}

// Add registers a named job. Names are unique; specs use six fields
// (seconds first) or descriptors such as "@every 6h".
func (m *Manager) Add(jobName, spec string, job func()) error {
	if jobName == "" {
		return types.ErrCronJobNameIsEmpty
	}
	if spec == "" {
		return types.Errorf(types.ErrCronExpressionInvalid, "empty spec for %s", jobName)
	}
	if job == nil {
		return types.ErrCronJobIsNil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.jobs[jobName]; exists {
		return types.Errorf(types.ErrCronJobExists, "%s", jobName)
	}

	entry := &types.JobEntry{
		Name:    jobName,
		Spec:    spec,
		Job:     job,
		AddedAt: time.Now(),
	}

	id, err := m.cron.AddFunc(spec, m.wrapJob(entry))
	if err != nil {
		return types.Errorf(types.ErrCronExpressionInvalid, "%s: %v", spec, err)
	}
	entry.ID = id
	m.jobs[jobName] = entry

	m.logger.Info("Cron job added",
		zap.String("job_name", jobName),
		zap.String("spec", spec))

	return nil
}

func (m *Manager) wrapJob(entry *types.JobEntry) func() {
	return func() {
		if m.ctx.Err() != nil {
			return
		}

		start := time.Now()
		result := "success"

		defer func() {
			duration := time.Since(start)

			if r := recover(); r != nil {
				result = "panic"
				m.logger.Error("Cron job panicked",
					zap.String("job_name", entry.Name),
					zap.Any("panic", r))
			}

			m.mu.Lock()
			entry.LastRun = start
			entry.LastDuration = duration
			entry.RunCount++
			m.mu.Unlock()

			m.metrics.Counter("cron_job_executions_total", map[string]string{
				"job":    entry.Name,
				"result": result,
			}).Inc()
			m.metrics.Histogram("cron_job_duration_seconds", jobDurationBuckets, map[string]string{
				"job": entry.Name,
			}).Observe(duration.Seconds())

			m.logger.Debug("Cron job finished",
				zap.String("job_name", entry.Name),
				zap.String("result", result),
				zap.Duration("duration", duration))
		}()

		entry.Job()
	}
}

// Jobs returns a copy of every registered entry, ordered by name.
func (m *Manager) Jobs() []types.JobEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	jobs := make([]types.JobEntry, 0, len(m.jobs))
	for _, entry := range m.jobs {
		jobs = append(jobs, *entry)
	}

	sort.Slice(jobs, func(i, j int) bool { return jobs[i].Name < jobs[j].Name })
	return jobs
}

// Next reports when the job fires next.
func (m *Manager) Next(jobName string) (time.Time, bool) {
	m.mu.RLock()
	entry, ok := m.jobs[jobName]
	m.mu.RUnlock()
	if !ok {
		return time.Time{}, false
	}

	return m.cron.Entry(entry.ID).Next, true
}

// Checker reports the scheduler state and every job's run count.
func (m *Manager) Checker() types.HealthChecker {
	return func(_ context.Context) types.HealthCheck {
		details := make(map[string]interface{})
		for _, job := range m.Jobs() {
			details[job.Name] = map[string]interface{}{
				"spec":      job.Spec,
				"run_count": job.RunCount,
				"last_run":  job.LastRun,
			}
		}

		status := types.StatusHealthy
		message := ""
		if !m.IsRunning() {
			status = types.StatusUnknown
			message = "scheduler not running"
		}

		return types.HealthCheck{
			Status:  status,
			Message: message,
			Details: details,
		}
	}
}

func (m *Manager) Start() error {
	if !m.transitionState(StateStopped, StateStarting) {
		return types.ErrCronIsRunning
	}

	m.cron.Start()
	m.setState(StateRunning)

	m.logger.Info("Cron manager started",
		zap.Int("jobs", len(m.Jobs())),
		zap.String("timezone", m.timezone.String()))
	return nil
}

func (m *Manager) Stop() error {
	if !m.transitionState(StateRunning, StateStopping) {
		return types.ErrServerNotRunning
	}

	defer func() {
		m.setState(StateStopped)
		m.cancel()
	}()

	stopped := m.cron.Stop()

	select {
	case <-stopped.Done():
		m.logger.Info("Cron manager stopped")
		return nil
	case <-time.After(m.shutdownTimeout):
		m.logger.Warn("Cron manager stop timeout, jobs still running")
		return types.Errorf(types.ErrCronJobTimeout, "jobs still running after %v", m.shutdownTimeout)
	}
}

func (m *Manager) IsRunning() bool {
	return m.getState() == StateRunning
}

func (m *Manager) getState() State {
	return State(m.state.Load())
}

func (m *Manager) setState(newState State) {
	m.state.Store(int32(newState))
}

func (m *Manager) transitionState(from, to State) bool {
	return m.state.CompareAndSwap(int32(from), int32(to))
}

// safeCronLogger adapts the service logger to cron.Logger.
type safeCronLogger struct {
	logger types.Logger
}

func (l safeCronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, fields(keysAndValues)...)
}

func (l safeCronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append(fields(keysAndValues), zap.Error(err))...)
}

func fields(keysAndValues []interface{}) []zap.Field {
	out := make([]zap.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", keysAndValues[i])
		}
		out = append(out, zap.Any(key, keysAndValues[i+1]))
	}
	return out
}
