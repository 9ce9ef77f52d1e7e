package notify

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// LogSink writes notifications to the structured log. It always has the
// capability to deliver and never fails, which makes it the fallback sink when
// no external sink is configured.
type LogSink struct {
	log *zap.Logger
	seq atomic.Uint64
}

func NewLogSink(log *zap.Logger) *LogSink {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogSink{log: log}
}

func (l *LogSink) Dispatch(_ context.Context, n *Notification) (string, error) {
	if n == nil {
		return "", fmt.Errorf("notification is nil")
	}
	fields := []zap.Field{
		zap.String("title", n.Title),
		zap.String("body", n.Body),
	}
	if n.Delay > 0 {
		fields = append(fields, zap.Duration("delay", n.Delay))
	}
	for k, v := range n.Payload {
		fields = append(fields, zap.String("payload."+k, v))
	}
	l.log.Info("Notification", fields...)
	return fmt.Sprintf("log-%d-%d", time.Now().Unix(), l.seq.Add(1)), nil
}

func (l *LogSink) Name() string {
	return "log"
}
