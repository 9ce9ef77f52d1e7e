package notify

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Notification is the payload handed to a sink. Delay lets a sink schedule
// delivery instead of firing immediately; sinks that cannot schedule ignore it.
type Notification struct {
	Title   string
	Body    string
	Delay   time.Duration
	Payload map[string]string
}

func (n *Notification) Validate() error {
	if n == nil {
		return fmt.Errorf("notification is nil")
	}
	if n.Title == "" {
		return fmt.Errorf("notification title is required")
	}
	if n.Body == "" {
		return fmt.Errorf("notification body is required")
	}
	return nil
}

// Sink delivers a notification to the user. Dispatch returns the sink's
// identifier for the delivered notification, or "" when the sink currently
// lacks the capability to deliver (not an error). Implementations must be safe
// for concurrent use.
type Sink interface {
	Dispatch(ctx context.Context, n *Notification) (string, error)
	Name() string
}

// Gate is consulted once at manager initialization. Dispatch is attempted
// regardless of the answer; sinks signal unavailability by returning "".
type Gate interface {
	RequestCapability(ctx context.Context) bool
}

// GateFunc adapts a function to the Gate interface.
type GateFunc func(ctx context.Context) bool

func (f GateFunc) RequestCapability(ctx context.Context) bool {
	return f(ctx)
}

type RetrySink struct {
	sink        Sink
	maxRetries  int
	backoffBase time.Duration
}

func NewRetrySink(sink Sink, maxRetries int, backoffBase time.Duration) *RetrySink {
	return &RetrySink{
		sink:        sink,
		maxRetries:  maxRetries,
		backoffBase: backoffBase,
	}
}

func (rs *RetrySink) Dispatch(ctx context.Context, n *Notification) (string, error) {
	if err := n.Validate(); err != nil {
		return "", fmt.Errorf("invalid notification: %w", err)
	}
	var lastErr error
	for attempt := 0; attempt <= rs.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := rs.backoffBase * time.Duration(1<<uint(attempt-1))
			if backoff > 30*time.Second {
				backoff = 30 * time.Second
			}
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}
		id, err := rs.sink.Dispatch(ctx, n)
		if err == nil {
			return id, nil
		}
		lastErr = err
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
	}
	return "", fmt.Errorf("failed after %d attempts: %w", rs.maxRetries+1, lastErr)
}

func (rs *RetrySink) Name() string {
	return rs.sink.Name()
}
