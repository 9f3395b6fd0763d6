package resilience

import (
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

func newBreaker(threshold int, openTimeout time.Duration) *Breaker {
	return New(Config{
		Name:             "test",
		FailureThreshold: threshold,
		OpenTimeout:      openTimeout,
		HalfOpenMax:      1,
	}, zap.NewNop())
}

func TestBreaker_StartsClosed(t *testing.T) {
	b := newBreaker(3, time.Minute)

	if b.State() != StateClosed {
		t.Errorf("initial state = %s, want closed", b.State())
	}
	if err := b.Allow(); err != nil {
		t.Errorf("Allow() error = %v, want nil", err)
	}
}

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	b := newBreaker(3, time.Minute)

	for i := 0; i < 3; i++ {
		if err := b.Allow(); err != nil {
			t.Fatalf("Allow() before threshold error = %v", err)
		}
		b.ReportFailure()
	}

	if b.State() != StateOpen {
		t.Fatalf("state = %s, want open", b.State())
	}
	if err := b.Allow(); !errors.Is(err, ErrOpen) {
		t.Errorf("Allow() while open = %v, want ErrOpen", err)
	}
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	b := newBreaker(3, time.Minute)

	b.ReportFailure()
	b.ReportFailure()
	b.ReportSuccess()
	b.ReportFailure()
	b.ReportFailure()

	if b.State() != StateClosed {
		t.Errorf("state = %s, want closed (failures not consecutive)", b.State())
	}
}

func TestBreaker_HalfOpenAfterTimeout(t *testing.T) {
	b := newBreaker(1, 10*time.Millisecond)

	b.ReportFailure()
	if b.State() != StateOpen {
		t.Fatalf("state = %s, want open", b.State())
	}

	time.Sleep(20 * time.Millisecond)

	// First probe allowed, second rejected.
	if err := b.Allow(); err != nil {
		t.Fatalf("probe Allow() error = %v", err)
	}
	if b.State() != StateHalfOpen {
		t.Errorf("state = %s, want half-open", b.State())
	}
	if err := b.Allow(); !errors.Is(err, ErrOpen) {
		t.Errorf("second probe = %v, want ErrOpen", err)
	}
}

func TestBreaker_ProbeSuccessCloses(t *testing.T) {
	b := newBreaker(1, 10*time.Millisecond)

	b.ReportFailure()
	time.Sleep(20 * time.Millisecond)

	if err := b.Allow(); err != nil {
		t.Fatalf("probe Allow() error = %v", err)
	}
	b.ReportSuccess()

	if b.State() != StateClosed {
		t.Errorf("state = %s, want closed after probe success", b.State())
	}
	if err := b.Allow(); err != nil {
		t.Errorf("Allow() after recovery error = %v", err)
	}
}

func TestBreaker_ProbeFailureReopens(t *testing.T) {
	b := newBreaker(1, 10*time.Millisecond)

	b.ReportFailure()
	time.Sleep(20 * time.Millisecond)

	if err := b.Allow(); err != nil {
		t.Fatalf("probe Allow() error = %v", err)
	}
	b.ReportFailure()

	if b.State() != StateOpen {
		t.Errorf("state = %s, want open after probe failure", b.State())
	}
	if err := b.Allow(); !errors.Is(err, ErrOpen) {
		t.Errorf("Allow() after reopen = %v, want ErrOpen", err)
	}
}
