package source

import (
	"context"
	"sync"

	"github.com/stormwatch/stormwatch/internal/alert"
)

// Source supplies the current set of known alerts. The lifecycle manager does
// not care whether the alerts come from a remote feed, locally evaluated
// observations, or a fixture.
type Source interface {
	FetchAlerts(ctx context.Context) ([]alert.Alert, error)
}

// StaticSource serves a fixed list of alerts. Useful for demos and tests.
type StaticSource struct {
	mu     sync.RWMutex
	alerts []alert.Alert
}

func NewStaticSource(alerts []alert.Alert) *StaticSource {
	return &StaticSource{alerts: alerts}
}

func (s *StaticSource) FetchAlerts(_ context.Context) ([]alert.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]alert.Alert, len(s.alerts))
	copy(out, s.alerts)
	return out, nil
}

func (s *StaticSource) SetAlerts(alerts []alert.Alert) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = alerts
}
