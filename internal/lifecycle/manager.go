package lifecycle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/stormwatch/stormwatch/internal/alert"
	"github.com/stormwatch/stormwatch/internal/config"
	"github.com/stormwatch/stormwatch/internal/metricsexporter"
	"github.com/stormwatch/stormwatch/internal/notify"
	"github.com/stormwatch/stormwatch/internal/source"
)

const tracerName = "stormwatch/lifecycle"

// Manager owns the alert lifecycle: the known alerts replaced wholesale on each
// refresh, the monotonically growing dismissed set, and the active-id snapshot
// from the previous reconciliation. All three are guarded by mu; external
// callers mutate state only through Refresh and Dismiss.
type Manager struct {
	src     source.Source
	sinks   []notify.Sink
	limiter *rate.Limiter
	log     *zap.Logger
	now     func() time.Time
	delay   time.Duration

	mu         sync.Mutex
	known      []alert.Alert
	dismissed  map[string]struct{}
	prevActive map[string]struct{}
	loading    bool
	lastErr    error

	// reconcileMu serializes reconciliations end to end, from reading the
	// prevActive snapshot through writing it back. mu alone is not enough:
	// it is released while dispatches run, and overlapping reconciliations
	// (ticker refresh vs the dismiss endpoint) would both read the stale
	// snapshot and double-dispatch the same alert.
	reconcileMu sync.Mutex
}

type Option func(*Manager)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func WithLogger(log *zap.Logger) Option {
	return func(m *Manager) { m.log = log }
}

// WithDispatchDelay sets the scheduling delay passed to sinks.
func WithDispatchDelay(d time.Duration) Option {
	return func(m *Manager) { m.delay = d }
}

// WithDispatchRate bounds notification dispatches to perMinute with the given
// burst. A zero perMinute disables the limit.
func WithDispatchRate(perMinute, burst int) Option {
	return func(m *Manager) {
		if perMinute <= 0 {
			m.limiter = nil
			return
		}
		m.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), burst)
	}
}

// NewManager builds a manager over the given source and sinks. The gate is
// consulted exactly once here; dispatch is attempted regardless of its answer,
// sinks signal unavailability by returning an empty notification id.
func NewManager(ctx context.Context, src source.Source, sinks []notify.Sink, gate notify.Gate, opts ...Option) (*Manager, error) {
	if src == nil {
		return nil, fmt.Errorf("alert source is required")
	}
	m := &Manager{
		src:        src,
		sinks:      sinks,
		log:        zap.NewNop(),
		now:        time.Now,
		dismissed:  make(map[string]struct{}),
		prevActive: make(map[string]struct{}),
		loading:    true,
	}
	m.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(config.DispatchRatePerMin)), config.DispatchBurst)
	for _, opt := range opts {
		opt(m)
	}
	if gate != nil {
		granted := gate.RequestCapability(ctx)
		m.log.Info("Notification capability requested", zap.Bool("granted", granted))
	}
	return m, nil
}

// Refresh pulls the current alert set from the source. On success the known
// list is replaced atomically; on failure the previous list is kept and the
// error is retained for callers of LastError. loading clears on every exit
// path. Concurrent calls proceed independently; the last to complete wins.
func (m *Manager) Refresh(ctx context.Context) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "refresh")
	defer span.End()

	m.mu.Lock()
	m.loading = true
	m.lastErr = nil
	m.mu.Unlock()

	start := m.now()
	alerts, err := m.src.FetchAlerts(ctx)

	m.mu.Lock()
	if err != nil {
		m.lastErr = fmt.Errorf("alert refresh failed: %w", err)
		m.log.Warn("Alert refresh failed, keeping previous alerts",
			zap.Error(err), zap.Int("known", len(m.known)))
		metricsexporter.RecordRefresh("error", m.now().Sub(start))
	} else {
		m.known = alert.Dedupe(alerts)
		metricsexporter.RecordRefresh("success", m.now().Sub(start))
		metricsexporter.SetKnownAlerts(len(m.known))
	}
	known := len(m.known)
	m.loading = false
	m.mu.Unlock()

	span.SetAttributes(attribute.Int("alerts.known", known))
	m.reconcile(ctx)
}

// Dismiss marks an alert id as dismissed for the lifetime of the manager. The
// id need not exist in the known list, and re-dismissing is a no-op. Already
// scheduled notifications for the id are not recalled.
func (m *Manager) Dismiss(id string) {
	m.mu.Lock()
	m.dismissed[id] = struct{}{}
	m.mu.Unlock()
	metricsexporter.RecordDismissal()
	m.reconcile(context.Background())
}

// Active returns the known alerts that are neither dismissed nor past their
// expiry. Before the first refresh it returns an empty slice.
func (m *Manager) Active() []alert.Alert {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeLocked(now)
}

func (m *Manager) activeLocked(now time.Time) []alert.Alert {
	active := make([]alert.Alert, 0, len(m.known))
	for _, a := range m.known {
		if _, ok := m.dismissed[a.ID]; ok {
			continue
		}
		if a.Expired(now) {
			continue
		}
		active = append(active, a)
	}
	return active
}

func (m *Manager) Loading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loading
}

func (m *Manager) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

func (m *Manager) KnownCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.known)
}

// reconcile recomputes the active set and dispatches one notification per
// alert that was not active in the previous reconciliation. Dispatches run in
// parallel and failures are isolated per alert; the snapshot advances after
// all attempts regardless of their outcome. Alerts dropped by the rate
// limiter are left out of the snapshot so the next reconciliation retries
// them. Reconciliations are serialized: a trigger arriving mid-dispatch
// waits for the snapshot to advance before computing its own diff.
func (m *Manager) reconcile(ctx context.Context) {
	m.reconcileMu.Lock()
	defer m.reconcileMu.Unlock()

	ctx, span := otel.Tracer(tracerName).Start(ctx, "reconcile")
	defer span.End()

	now := m.now()
	m.mu.Lock()
	active := m.activeLocked(now)
	fresh := make([]alert.Alert, 0, len(active))
	activeIDs := make(map[string]struct{}, len(active))
	for _, a := range active {
		activeIDs[a.ID] = struct{}{}
		if _, seen := m.prevActive[a.ID]; !seen {
			fresh = append(fresh, a)
		}
	}
	m.mu.Unlock()

	metricsexporter.SetActiveAlerts(len(active))
	span.SetAttributes(
		attribute.Int("alerts.active", len(active)),
		attribute.Int("alerts.new", len(fresh)),
	)

	var wg sync.WaitGroup
	for i := range fresh {
		a := fresh[i]
		if !alert.MeetsMinSeverity(a.Severity) {
			continue
		}
		if m.limiter != nil && !m.limiter.Allow() {
			m.log.Warn("Notification deferred by rate limit", zap.String("alert_id", a.ID))
			metricsexporter.RecordRateLimited()
			delete(activeIDs, a.ID)
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.dispatch(ctx, &a)
		}()
	}
	wg.Wait()

	m.mu.Lock()
	m.prevActive = activeIDs
	m.mu.Unlock()
}

func (m *Manager) dispatch(ctx context.Context, a *alert.Alert) {
	n := &notify.Notification{
		Title: a.Title,
		Body:  a.Description,
		Delay: m.delay,
		Payload: map[string]string{
			"alert_id":   a.ID,
			"severity":   string(a.Severity),
			"category":   string(a.Category),
			"area":       a.Area,
			"urgency":    string(a.Urgency),
			"expires_at": a.ExpiresAt.Format(time.RFC3339),
			"tag":        a.Key(),
		},
	}
	if n.Body == "" {
		n.Body = fmt.Sprintf("Weather alert for %s", a.Area)
	}
	for _, sink := range m.sinks {
		id, err := sink.Dispatch(ctx, n)
		if err != nil {
			m.log.Warn("Notification dispatch failed",
				zap.String("sink", sink.Name()),
				zap.String("alert_id", a.ID),
				zap.Error(err))
			metricsexporter.RecordDispatch(sink.Name(), "error")
			continue
		}
		if id == "" {
			m.log.Debug("Sink has no notification capability",
				zap.String("sink", sink.Name()),
				zap.String("alert_id", a.ID))
			metricsexporter.RecordDispatch(sink.Name(), "unavailable")
			continue
		}
		m.log.Info("Notification dispatched",
			zap.String("sink", sink.Name()),
			zap.String("alert_id", a.ID),
			zap.String("notification_id", id))
		metricsexporter.RecordDispatch(sink.Name(), "success")
	}
}
