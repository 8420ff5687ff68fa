package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/minotaur-io/minotaur/component"
	"github.com/minotaur-io/minotaur/logger"
)

// fakeReporter records captured failures.
type fakeReporter struct {
	mu     sync.Mutex
	errs   []error
	panics []any
}

func (f *fakeReporter) CaptureError(err error, _ map[string]string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs = append(f.errs, err)
}

func (f *fakeReporter) CapturePanic(recovered any, _ string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.panics = append(f.panics, recovered)
}

func newTestScheduler(t *testing.T, reporter Reporter) *Scheduler {
	t.Helper()
	s, err := New(Config{Interval: time.Second, Grace: 5 * time.Second}, reporter, logger.NewDefault("test"))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return s
}

func TestConfigDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	if cfg.Interval != 3*time.Second {
		t.Errorf("expected 3s default interval, got %v", cfg.Interval)
	}
	if cfg.Grace != 15*time.Second {
		t.Errorf("expected 15s default grace, got %v", cfg.Grace)
	}
}

func TestAddJob(t *testing.T) {
	s := newTestScheduler(t, nil)

	t.Run("missing run function", func(t *testing.T) {
		if _, err := s.AddJob(Job{Name: "noop"}); err == nil {
			t.Error("expected error for job without run function")
		}
	})

	t.Run("assigns id and default trigger", func(t *testing.T) {
		id, err := s.AddJob(Job{Name: "tick", Run: func(context.Context) error { return nil }})
		if err != nil {
			t.Fatalf("AddJob failed: %v", err)
		}
		if id == "" {
			t.Error("expected assigned job id")
		}

		jobs := s.Jobs()
		if len(jobs) != 1 {
			t.Fatalf("expected 1 job, got %d", len(jobs))
		}
		if jobs[0].Trigger.IsZero() {
			t.Error("expected default trigger applied")
		}
	})

	t.Run("duplicate id", func(t *testing.T) {
		job := Job{ID: "dup", Run: func(context.Context) error { return nil }}
		if _, err := s.AddJob(job); err != nil {
			t.Fatalf("AddJob failed: %v", err)
		}
		if _, err := s.AddJob(job); err == nil {
			t.Error("expected error for duplicate job id")
		}
	})

	t.Run("invalid trigger", func(t *testing.T) {
		_, err := s.AddJob(Job{
			Name:    "bad",
			Trigger: Cron("bogus"),
			Run:     func(context.Context) error { return nil },
		})
		if err == nil {
			t.Error("expected error for invalid trigger")
		}
	})
}

func TestRemoveJob(t *testing.T) {
	s := newTestScheduler(t, nil)

	id, err := s.AddJob(Job{Name: "tick", Run: func(context.Context) error { return nil }})
	if err != nil {
		t.Fatalf("AddJob failed: %v", err)
	}
	if err := s.RemoveJob(id); err != nil {
		t.Fatalf("RemoveJob failed: %v", err)
	}
	if len(s.Jobs()) != 0 {
		t.Error("expected no jobs after removal")
	}
	if err := s.RemoveJob(id); err == nil {
		t.Error("expected error removing unknown job")
	}
}

func TestHealth(t *testing.T) {
	s := newTestScheduler(t, nil)
	ctx := context.Background()

	if h := s.Health(ctx); h.Status != component.StatusUnhealthy {
		t.Errorf("expected unhealthy before start, got %+v", h)
	}

	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer s.Stop(ctx)

	if h := s.Health(ctx); h.Status != component.StatusHealthy {
		t.Errorf("expected healthy after start, got %+v", h)
	}
}

func TestRunJobCapturesError(t *testing.T) {
	reporter := &fakeReporter{}
	s := newTestScheduler(t, reporter)

	wantErr := errors.New("tick failed")
	if _, err := s.AddJob(Job{ID: "failing", Run: func(context.Context) error { return wantErr }}); err != nil {
		t.Fatalf("AddJob failed: %v", err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer s.Stop(context.Background())

	s.runJob(s.jobs["failing"])

	reporter.mu.Lock()
	defer reporter.mu.Unlock()
	if len(reporter.errs) != 1 || !errors.Is(reporter.errs[0], wantErr) {
		t.Errorf("expected captured job error, got %v", reporter.errs)
	}
}

func TestRunJobRecoversPanic(t *testing.T) {
	reporter := &fakeReporter{}
	s := newTestScheduler(t, reporter)

	if _, err := s.AddJob(Job{ID: "panicking", Run: func(context.Context) error { panic("argh") }}); err != nil {
		t.Fatalf("AddJob failed: %v", err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer s.Stop(context.Background())

	// Must not propagate the panic.
	s.runJob(s.jobs["panicking"])

	reporter.mu.Lock()
	defer reporter.mu.Unlock()
	if len(reporter.panics) != 1 || reporter.panics[0] != "argh" {
		t.Errorf("expected captured panic, got %v", reporter.panics)
	}
}

func TestRunJobSkipsOverlap(t *testing.T) {
	s := newTestScheduler(t, nil)

	block := make(chan struct{})
	var runs int
	var mu sync.Mutex
	if _, err := s.AddJob(Job{ID: "slow", Run: func(context.Context) error {
		mu.Lock()
		runs++
		mu.Unlock()
		<-block
		return nil
	}}); err != nil {
		t.Fatalf("AddJob failed: %v", err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer s.Stop(context.Background())

	mj := s.jobs["slow"]

	done := make(chan struct{})
	go func() {
		s.runJob(mj)
		close(done)
	}()

	// Wait for the first run to be in flight.
	deadline := time.After(2 * time.Second)
	for {
		mu.Lock()
		started := runs == 1
		mu.Unlock()
		if started {
			break
		}
		select {
		case <-deadline:
			t.Fatal("first run never started")
		case <-time.After(10 * time.Millisecond):
		}
	}

	// Overlapping tick returns immediately without running the job again.
	s.runJob(mj)
	mu.Lock()
	if runs != 1 {
		t.Errorf("expected overlap skip, got %d runs", runs)
	}
	mu.Unlock()

	close(block)
	<-done
}

func TestScheduledRunFires(t *testing.T) {
	s := newTestScheduler(t, nil)

	fired := make(chan struct{}, 4)
	if _, err := s.AddJob(Job{
		Name:    "tick",
		Trigger: Interval(time.Second),
		Run: func(context.Context) error {
			select {
			case fired <- struct{}{}:
			default:
			}
			return nil
		},
	}); err != nil {
		t.Fatalf("AddJob failed: %v", err)
	}

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer s.Stop(context.Background())

	select {
	case <-fired:
	case <-time.After(3 * time.Second):
		t.Fatal("job never fired")
	}
}

func TestStopCancelsJobContext(t *testing.T) {
	s := newTestScheduler(t, nil)

	canceled := make(chan struct{})
	if _, err := s.AddJob(Job{ID: "waiting", Run: func(ctx context.Context) error {
		<-ctx.Done()
		close(canceled)
		return ctx.Err()
	}}); err != nil {
		t.Fatalf("AddJob failed: %v", err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	go s.runJob(s.jobs["waiting"])
	time.Sleep(50 * time.Millisecond)

	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	select {
	case <-canceled:
	case <-time.After(2 * time.Second):
		t.Fatal("job context was never canceled")
	}
}
