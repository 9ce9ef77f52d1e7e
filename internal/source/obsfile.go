package source

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/stormwatch/stormwatch/internal/hazard"
)

// FileObservationProvider reads the latest observation from a JSON file on
// every call, so an external process may keep the file current.
type FileObservationProvider struct {
	path string
}

func NewFileObservationProvider(path string) (*FileObservationProvider, error) {
	if path == "" {
		return nil, fmt.Errorf("observation file path is required")
	}
	return &FileObservationProvider{path: path}, nil
}

type observationFile struct {
	TempC          *float64 `json:"temp_c"`
	WindMS         *float64 `json:"wind_ms"`
	PrecipMM       *float64 `json:"precip_mm"`
	CloudCoverPct  *float64 `json:"cloudcover_pct"`
	RelHumidityPct *float64 `json:"rel_humidity_pct"`
	Rain1h         float64  `json:"rain_1h"`
	Rain3h         float64  `json:"rain_3h"`
	Rain6h         float64  `json:"rain_6h"`
}

func (f *FileObservationProvider) LatestObservation(_ context.Context) (hazard.Observation, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return hazard.Observation{}, fmt.Errorf("failed to read observation file: %w", err)
	}
	var obs observationFile
	if err := json.Unmarshal(data, &obs); err != nil {
		return hazard.Observation{}, fmt.Errorf("failed to parse observation file: %w", err)
	}
	return hazard.Observation{
		TempC:          obs.TempC,
		WindMS:         obs.WindMS,
		PrecipMM:       obs.PrecipMM,
		CloudCoverPct:  obs.CloudCoverPct,
		RelHumidityPct: obs.RelHumidityPct,
		Rain1h:         obs.Rain1h,
		Rain3h:         obs.Rain3h,
		Rain6h:         obs.Rain6h,
	}, nil
}
