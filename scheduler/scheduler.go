// Package scheduler runs named, cancellable one-shot and interval jobs.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Job is a handle to a scheduled function. A nil Job is valid and inert.
type Job struct {
	id        string
	scheduler *Scheduler
	period    time.Duration
	next      time.Time
	timer     *time.Timer
	stop      chan struct{}
	cancelled bool
	tracked   bool
}

type Scheduler struct {
	mu     sync.Mutex
	jobs   map[string]*Job
	active int
	idle   chan struct{}
	closed bool
	log    *logrus.Entry
}

func New(log *logrus.Entry) *Scheduler {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Scheduler{
		jobs: make(map[string]*Job),
		log:  log.WithField("message", "scheduler"),
	}
}

// Once runs fn after delay. An existing job with the same id is replaced. An empty id gets a
// generated one. Drain waits for jobs scheduled with Once.
func (s *Scheduler) Once(id string, delay time.Duration, fn func()) *Job {
	return s.once(id, delay, fn, true)
}

// At runs fn once at the given time, or immediately if it already passed.
func (s *Scheduler) At(id string, at time.Time, fn func()) *Job {
	return s.once(id, time.Until(at), fn, true)
}

// Timer is Once for deadlines that Drain must not wait for, such as watchdogs.
func (s *Scheduler) Timer(id string, delay time.Duration, fn func()) *Job {
	return s.once(id, delay, fn, false)
}

func (s *Scheduler) TimerAt(id string, at time.Time, fn func()) *Job {
	return s.once(id, time.Until(at), fn, false)
}

func (s *Scheduler) once(id string, delay time.Duration, fn func(), tracked bool) *Job {
	if delay < 0 {
		delay = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	job := s.register(id, 0, delay)
	job.tracked = tracked
	if tracked {
		s.active++
	}
	job.timer = time.AfterFunc(delay, func() {
		if !s.claim(job) {
			return
		}
		if tracked {
			defer s.release()
		}
		s.run(job, fn)
	})
	return job
}

// Every runs fn each period until cancelled. Runs never overlap.
func (s *Scheduler) Every(id string, period time.Duration, fn func()) *Job {
	if period <= 0 {
		s.log.Warnf("refusing interval job %q with period %v", id, period)
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	job := s.register(id, period, period)
	job.stop = make(chan struct{})
	go func() {
		ticker := time.NewTicker(period)
		defer ticker.Stop()
		for {
			select {
			case <-job.stop:
				return
			case <-ticker.C:
				s.mu.Lock()
				if job.cancelled {
					s.mu.Unlock()
					return
				}
				job.next = time.Now().Add(period)
				s.mu.Unlock()
				s.run(job, fn)
			}
		}
	}()
	return job
}

func (s *Scheduler) register(id string, period, delay time.Duration) *Job {
	if id == "" {
		id = uuid.NewString()
	}
	if previous, ok := s.jobs[id]; ok {
		s.cancelLocked(previous)
	}
	job := &Job{id: id, scheduler: s, period: period, next: time.Now().Add(delay)}
	s.jobs[id] = job
	return job
}

// claim marks a one-shot job as fired. It reports false if the job was cancelled meanwhile.
func (s *Scheduler) claim(job *Job) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job.cancelled {
		return false
	}
	job.cancelled = true
	if s.jobs[job.id] == job {
		delete(s.jobs, job.id)
	}
	return true
}

func (s *Scheduler) release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active--
	if s.active == 0 && s.idle != nil {
		close(s.idle)
		s.idle = nil
	}
}

func (s *Scheduler) run(job *Job, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Errorf("job %s panicked: %v", job.id, r)
		}
	}()
	fn()
}

func (s *Scheduler) cancelLocked(job *Job) {
	if job.cancelled {
		return
	}
	job.cancelled = true
	if s.jobs[job.id] == job {
		delete(s.jobs, job.id)
	}
	if job.stop != nil {
		close(job.stop)
		return
	}
	if job.timer != nil && job.timer.Stop() && job.tracked {
		s.active--
		if s.active == 0 && s.idle != nil {
			close(s.idle)
			s.idle = nil
		}
	}
}

// Cancel removes the job with the given id. Unknown ids are ignored.
func (s *Scheduler) Cancel(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.jobs[id]; ok {
		s.cancelLocked(job)
	}
}

func (s *Scheduler) NextRun(id string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return time.Time{}, false
	}
	return job.next, true
}

func (s *Scheduler) Has(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.jobs[id]
	return ok
}

// Drain blocks until no job scheduled with Once or At is pending or running.
func (s *Scheduler) Drain(ctx context.Context) error {
	for {
		s.mu.Lock()
		if s.active == 0 {
			s.mu.Unlock()
			return nil
		}
		if s.idle == nil {
			s.idle = make(chan struct{})
		}
		idle := s.idle
		s.mu.Unlock()

		select {
		case <-idle:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Shutdown cancels every job. Later scheduling calls return nil jobs.
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, job := range s.jobs {
		s.cancelLocked(job)
	}
	s.closed = true
}

func (j *Job) ID() string {
	if j == nil {
		return ""
	}
	return j.id
}

// Cancel stops the job. It is safe on nil, fired and already cancelled jobs.
func (j *Job) Cancel() {
	if j == nil {
		return
	}
	j.scheduler.mu.Lock()
	defer j.scheduler.mu.Unlock()
	j.scheduler.cancelLocked(j)
}

// NextRun reports when the job fires next. ok is false once it is cancelled or has fired.
func (j *Job) NextRun() (next time.Time, ok bool) {
	if j == nil {
		return time.Time{}, false
	}
	j.scheduler.mu.Lock()
	defer j.scheduler.mu.Unlock()
	if j.cancelled {
		return time.Time{}, false
	}
	return j.next, true
}
