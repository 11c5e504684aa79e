// Package jobmgr runs named background jobs, at most one per name, and waits
// for them on shutdown.
//
//	jm := jobmgr.NewManager(ctx, nil)
//	err := jm.StartAsync("join:"+guildID, func(ctx context.Context) error {
//	    return play(ctx)
//	})
//	...
//	jm.StopAll()
//	jm.Wait()
package jobmgr

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
)

var (
	ErrRunning    = errors.New("job already running")
	ErrNotRunning = errors.New("job not running")
	ErrClosed     = errors.New("job manager closed")
)

// Event is a job lifecycle notification. Err is set on failed jobs.
type Event struct {
	Name  string
	State string // running, done or error
	Err   error
}

// Reporter receives lifecycle events. It may be called from job goroutines.
type Reporter func(Event)

// Manager tracks running jobs. It is safe for concurrent use.
type Manager struct {
	ctx      context.Context
	reporter Reporter

	mu     sync.Mutex
	jobs   map[string]context.CancelFunc
	closed bool
	wg     sync.WaitGroup
}

// NewManager derives every job context from parent. reporter may be nil.
func NewManager(parent context.Context, reporter Reporter) *Manager {
	return &Manager{
		ctx:      parent,
		reporter: reporter,
		jobs:     make(map[string]context.CancelFunc),
	}
}

// StartAsync runs runner in its own goroutine. A second job with the same
// name is refused with ErrRunning until the first finishes.
func (m *Manager) StartAsync(name string, runner func(ctx context.Context) error) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	if _, exists := m.jobs[name]; exists {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrRunning, name)
	}
	ctx, cancel := context.WithCancel(m.ctx)
	m.jobs[name] = cancel
	m.wg.Add(1)
	m.mu.Unlock()

	go func() {
		defer m.wg.Done()
		defer func() {
			cancel()
			m.mu.Lock()
			delete(m.jobs, name)
			m.mu.Unlock()
		}()

		m.report(Event{Name: name, State: "running"})
		if err := runner(ctx); err != nil {
			m.report(Event{Name: name, State: "error", Err: err})
			return
		}
		m.report(Event{Name: name, State: "done"})
	}()
	return nil
}

// Stop cancels a running job. The job is forgotten once its runner returns.
func (m *Manager) Stop(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cancel, ok := m.jobs[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotRunning, name)
	}
	cancel()
	return nil
}

// StopAll cancels every job and refuses new ones.
func (m *Manager) StopAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	for _, cancel := range m.jobs {
		cancel()
	}
}

// Wait blocks until all started jobs have returned or ctx is done.
func (m *Manager) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// List returns the running job names, sorted.
func (m *Manager) List() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.jobs))
	for k := range m.jobs {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// Status returns a one-line summary of the running jobs.
func (m *Manager) Status() string {
	active := m.List()
	if len(active) == 0 {
		return "No jobs are running."
	}
	return "Running jobs: " + strings.Join(active, ", ")
}

func (m *Manager) report(e Event) {
	if m.reporter != nil {
		m.reporter(e)
	}
}
