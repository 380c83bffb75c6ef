package sync

import (
	"context"
	"errors"
	"fmt"
	"sort"
	gosync "sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"

	"github.com/nhle/smsexpert/internal/metrics"
)

// JobState represents the current state of a background job.
type JobState int

const (
	JobIdle JobState = iota
	JobRunning
	JobError
)

func (s JobState) String() string {
	switch s {
	case JobRunning:
		return "running"
	case JobError:
		return "error"
	default:
		return "idle"
	}
}

// JobStatus holds the state of a single job.
type JobStatus struct {
	Name     string
	State    JobState
	LastRun  time.Time
	LastSync time.Time
	Error    error
}

// RunFunc is the body of a polled job.
type RunFunc func(ctx context.Context) error

var (
	ErrUnknownJob = errors.New("unknown job")
	ErrNotRunning = errors.New("poller not running")
	ErrDuplicate  = errors.New("job already registered")
)

// runTimeout is the maximum time allowed for a single run.
const runTimeout = 30 * time.Second

// defaultInterval applies when a job is registered without one.
const defaultInterval = 60 * time.Second

type jobEntry struct {
	name     string
	interval time.Duration
	run      RunFunc
	handle   gocron.Job
}

// Poller runs registered jobs immediately on Start and then at a fixed
// interval until Stop. A run never overlaps a previous run of the same job.
type Poller struct {
	log     *zap.Logger
	metrics *metrics.Metrics

	mu        gosync.Mutex
	jobs      map[string]*jobEntry
	statuses  map[string]*JobStatus
	scheduler gocron.Scheduler
	cancel    context.CancelFunc
}

// New creates a new Poller.
func New(logger *zap.Logger, m *metrics.Metrics) *Poller {
	return &Poller{
		log:      logger,
		metrics:  m,
		jobs:     make(map[string]*jobEntry),
		statuses: make(map[string]*JobStatus),
	}
}

// Register adds a job. Jobs registered while the poller is running are
// picked up on the next Start.
func (p *Poller) Register(name string, interval time.Duration, run RunFunc) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.jobs[name]; ok {
		return fmt.Errorf("registering %s: %w", name, ErrDuplicate)
	}
	if interval <= 0 {
		interval = defaultInterval
	}
	p.jobs[name] = &jobEntry{name: name, interval: interval, run: run}
	p.statuses[name] = &JobStatus{Name: name, State: JobIdle}
	return nil
}

// Running reports whether the scheduler is active.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.scheduler != nil
}

// Start schedules every registered job and runs each once immediately.
// Starting a running poller is a no-op. ctx bounds every run until Stop.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.scheduler != nil {
		return nil
	}

	s, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("creating scheduler: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	for _, entry := range p.jobs {
		entry := entry
		handle, err := s.NewJob(
			gocron.DurationJob(entry.interval),
			gocron.NewTask(func() { p.execute(runCtx, entry) }),
			gocron.WithName(entry.name),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
			gocron.WithStartAt(gocron.WithStartImmediately()),
		)
		if err != nil {
			cancel()
			_ = s.Shutdown()
			return fmt.Errorf("scheduling %s: %w", entry.name, err)
		}
		entry.handle = handle
	}

	p.scheduler = s
	p.cancel = cancel
	s.Start()

	p.log.Debug("poller started", zap.Int("jobs", len(p.jobs)))
	return nil
}

// Stop halts all jobs and waits for in-flight runs to return.
func (p *Poller) Stop() error {
	p.mu.Lock()
	s, cancel := p.scheduler, p.cancel
	p.scheduler, p.cancel = nil, nil
	for _, entry := range p.jobs {
		entry.handle = nil
	}
	p.mu.Unlock()

	if s == nil {
		return nil
	}
	cancel()
	if err := s.Shutdown(); err != nil {
		return fmt.Errorf("stopping scheduler: %w", err)
	}
	p.log.Debug("poller stopped")
	return nil
}

// RefreshNow triggers an immediate run of the named job. The regular
// schedule is unaffected.
func (p *Poller) RefreshNow(name string) error {
	p.mu.Lock()
	entry, ok := p.jobs[name]
	running := p.scheduler != nil
	var handle gocron.Job
	if ok {
		handle = entry.handle
	}
	p.mu.Unlock()

	if !ok {
		return fmt.Errorf("refreshing %s: %w", name, ErrUnknownJob)
	}
	if !running || handle == nil {
		return fmt.Errorf("refreshing %s: %w", name, ErrNotRunning)
	}
	if err := handle.RunNow(); err != nil {
		return fmt.Errorf("refreshing %s: %w", name, err)
	}
	return nil
}

// Statuses returns the current status of every job, sorted by name.
func (p *Poller) Statuses() []JobStatus {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]JobStatus, 0, len(p.statuses))
	for _, s := range p.statuses {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Status returns the status of one job.
func (p *Poller) Status(name string) (JobStatus, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, ok := p.statuses[name]
	if !ok {
		return JobStatus{}, false
	}
	return *s, true
}

// execute performs one run. Failures are recorded and logged, never
// propagated: the next tick simply tries again.
func (p *Poller) execute(parent context.Context, entry *jobEntry) {
	if parent.Err() != nil {
		return
	}
	p.setStatus(entry.name, JobRunning, nil)

	ctx, cancel := context.WithTimeout(parent, runTimeout)
	defer cancel()

	err := entry.run(ctx)
	p.metrics.ObservePoll(entry.name, err)
	if err != nil {
		p.log.Warn("poll run failed", zap.String("job", entry.name), zap.Error(err))
		p.setStatus(entry.name, JobError, err)
		return
	}
	p.setStatus(entry.name, JobIdle, nil)
}

// setStatus updates the status of a job.
func (p *Poller) setStatus(name string, state JobState, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	status, ok := p.statuses[name]
	if !ok {
		return
	}

	status.State = state
	status.Error = err
	if state == JobRunning {
		status.LastRun = time.Now()
	}
	if state == JobIdle && err == nil {
		status.LastSync = time.Now()
	}
}
