package notify

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

type scriptedSink struct {
	mu       sync.Mutex
	results  []error
	attempts int
	name     string
}

func (s *scriptedSink) Dispatch(_ context.Context, _ *Notification) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var err error
	if s.attempts < len(s.results) {
		err = s.results[s.attempts]
	}
	s.attempts++
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("ok-%d", s.attempts), nil
}

func (s *scriptedSink) Name() string {
	return s.name
}

func TestNotification_Validate(t *testing.T) {
	tests := []struct {
		name    string
		n       *Notification
		wantErr bool
	}{
		{"valid", &Notification{Title: "t", Body: "b"}, false},
		{"nil", nil, true},
		{"no title", &Notification{Body: "b"}, true},
		{"no body", &Notification{Title: "t"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.n.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRetrySink_SucceedsAfterRetry(t *testing.T) {
	inner := &scriptedSink{name: "flaky", results: []error{fmt.Errorf("transient"), nil}}
	rs := NewRetrySink(inner, 3, time.Millisecond)

	id, err := rs.Dispatch(context.Background(), testNotification())
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if id == "" {
		t.Error("expected a notification id after retry")
	}
	if inner.attempts != 2 {
		t.Errorf("attempts = %d, want 2", inner.attempts)
	}
}

func TestRetrySink_ExhaustsRetries(t *testing.T) {
	inner := &scriptedSink{name: "down", results: []error{
		fmt.Errorf("e1"), fmt.Errorf("e2"), fmt.Errorf("e3"),
	}}
	rs := NewRetrySink(inner, 2, time.Millisecond)

	if _, err := rs.Dispatch(context.Background(), testNotification()); err == nil {
		t.Error("Dispatch should fail after exhausting retries")
	}
	if inner.attempts != 3 {
		t.Errorf("attempts = %d, want 3 (initial + 2 retries)", inner.attempts)
	}
}

func TestRetrySink_ContextCancelledStops(t *testing.T) {
	inner := &scriptedSink{name: "down", results: []error{context.Canceled}}
	rs := NewRetrySink(inner, 5, time.Millisecond)

	if _, err := rs.Dispatch(context.Background(), testNotification()); err != context.Canceled {
		t.Errorf("Dispatch error = %v, want context.Canceled without retries", err)
	}
	if inner.attempts != 1 {
		t.Errorf("attempts = %d, want 1", inner.attempts)
	}
}

func TestRetrySink_InvalidNotification(t *testing.T) {
	inner := &scriptedSink{name: "ok"}
	rs := NewRetrySink(inner, 2, time.Millisecond)

	if _, err := rs.Dispatch(context.Background(), &Notification{}); err == nil {
		t.Error("Dispatch should reject an invalid notification")
	}
	if inner.attempts != 0 {
		t.Errorf("inner sink attempted %d times for invalid input, want 0", inner.attempts)
	}
}

func TestRetrySink_Name(t *testing.T) {
	rs := NewRetrySink(&scriptedSink{name: "inner"}, 1, time.Millisecond)
	if rs.Name() != "inner" {
		t.Errorf("Name() = %q, want inner", rs.Name())
	}
}

func TestGateFunc(t *testing.T) {
	called := false
	gate := GateFunc(func(context.Context) bool {
		called = true
		return true
	})
	if !gate.RequestCapability(context.Background()) {
		t.Error("RequestCapability should return the function's answer")
	}
	if !called {
		t.Error("gate function was not invoked")
	}
}

func TestLogSink_Dispatch(t *testing.T) {
	sink := NewLogSink(zap.NewNop())

	id1, err := sink.Dispatch(context.Background(), testNotification())
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	id2, err := sink.Dispatch(context.Background(), testNotification())
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if id1 == "" || id2 == "" {
		t.Error("log sink should always return a notification id")
	}
	if id1 == id2 {
		t.Errorf("ids should be unique, got %q twice", id1)
	}
}

func TestLogSink_Dispatch_Nil(t *testing.T) {
	sink := NewLogSink(nil)
	if _, err := sink.Dispatch(context.Background(), nil); err == nil {
		t.Error("Dispatch(nil) should fail")
	}
}

func TestLogSink_Name(t *testing.T) {
	if NewLogSink(nil).Name() != "log" {
		t.Error("Name() should be log")
	}
}
