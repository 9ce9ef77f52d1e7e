package source

import (
	"context"
	"fmt"
	"time"

	"github.com/stormwatch/stormwatch/internal/alert"
	"github.com/stormwatch/stormwatch/internal/hazard"
)

// ObservationProvider supplies the latest weather observation for the watched
// area, for example from a local station or an hourly snapshot cache.
type ObservationProvider interface {
	LatestObservation(ctx context.Context) (hazard.Observation, error)
}

// HazardSource derives alerts locally by running the hazard rules over the
// latest observation. It stands in for the remote feed when none is available.
type HazardSource struct {
	provider ObservationProvider
	area     string
	ttl      time.Duration
	now      func() time.Time
}

func NewHazardSource(provider ObservationProvider, area string, ttl time.Duration) *HazardSource {
	return &HazardSource{
		provider: provider,
		area:     area,
		ttl:      ttl,
		now:      time.Now,
	}
}

func (h *HazardSource) FetchAlerts(ctx context.Context) ([]alert.Alert, error) {
	obs, err := h.provider.LatestObservation(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read observation: %w", err)
	}
	hazards := hazard.Evaluate(obs)
	// IDs are anchored to the evaluation hour so the same hazard re-derived
	// within the hour keeps its identity across refreshes.
	hour := h.now().Truncate(time.Hour)
	alerts := make([]alert.Alert, 0, len(hazards))
	for _, hz := range hazards {
		alerts = append(alerts, alert.Alert{
			ID:          fmt.Sprintf("%s-%s-%s", h.area, hz.Type, hour.UTC().Format("2006010215")),
			Title:       hz.Headline,
			Description: hz.Description,
			Severity:    mapLevelToSeverity(hz.Level),
			Category:    mapTypeToCategory(hz.Type),
			Area:        h.area,
			Urgency:     mapLevelToUrgency(hz.Level),
			OnsetAt:     hour,
			ExpiresAt:   hour.Add(h.ttl),
		})
	}
	return alerts, nil
}

func mapLevelToSeverity(l hazard.Level) alert.Severity {
	switch l {
	case hazard.LevelDanger:
		return alert.SeverityExtreme
	case hazard.LevelWarning:
		return alert.SeveritySevere
	case hazard.LevelWatch:
		return alert.SeverityModerate
	default:
		return alert.SeverityMinor
	}
}

func mapTypeToCategory(t hazard.Type) alert.Category {
	switch t {
	case hazard.TypeRain:
		return alert.CategoryRain
	case hazard.TypeWind:
		return alert.CategoryWind
	case hazard.TypeHeat:
		return alert.CategoryHeat
	case hazard.TypeCold:
		return alert.CategoryCold
	default:
		return alert.CategoryRain
	}
}

func mapLevelToUrgency(l hazard.Level) alert.Urgency {
	if hazard.Rank(l) >= hazard.Rank(hazard.LevelWarning) {
		return alert.UrgencyImmediate
	}
	return alert.UrgencyExpected
}
