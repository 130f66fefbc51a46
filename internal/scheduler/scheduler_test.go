package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestRegister_Validation(t *testing.T) {
	s := New()
	if err := s.Register(Job{Name: "bad", Interval: 0, Run: func(context.Context) {}}); err == nil {
		t.Error("expected error for zero interval")
	}
	if err := s.Register(Job{Name: "bad", Interval: time.Second}); err == nil {
		t.Error("expected error for nil run function")
	}
	if err := s.Register(Job{Name: "ok", Interval: time.Second, Run: func(context.Context) {}}); err != nil {
		t.Errorf("Register: %v", err)
	}
	if s.Jobs() != 1 {
		t.Errorf("got %d jobs, want 1", s.Jobs())
	}
}

func TestRegister_AfterStart(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	if err := s.Register(Job{Name: "late", Interval: time.Second, Run: func(context.Context) {}}); err == nil {
		t.Error("expected error for registration after start")
	}
}

func TestStart_RunsJobsUntilCanceled(t *testing.T) {
	s := New()
	var runs atomic.Int64
	err := s.Register(Job{
		Name:     "tick",
		Interval: 5 * time.Millisecond,
		Run:      func(context.Context) { runs.Add(1) },
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)

	deadline := time.After(2 * time.Second)
	for runs.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("job ran %d times, want at least 3", runs.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	s.Wait()
}
