package hazard

import (
	"math"
	"testing"
)

func fp(v float64) *float64 {
	return &v
}

func TestHeatIndex(t *testing.T) {
	// Below the polynomial's range the plain temperature comes back.
	if got := HeatIndex(25, fp(80)); got != 25 {
		t.Errorf("HeatIndex(25, 80) = %v, want 25", got)
	}
	if got := HeatIndex(35, fp(30)); got != 35 {
		t.Errorf("HeatIndex(35, 30%% RH) = %v, want 35 (below RH floor)", got)
	}
	if got := HeatIndex(35, nil); got != 35 {
		t.Errorf("HeatIndex(35, nil) = %v, want 35", got)
	}
	// 35°C at 70% humidity feels well above 45°C.
	got := HeatIndex(35, fp(70))
	if got < 45 {
		t.Errorf("HeatIndex(35, 70) = %v, want > 45", got)
	}
	// Humidity clamps into [0, 100].
	if got := HeatIndex(35, fp(150)); math.IsNaN(got) || got < 35 {
		t.Errorf("HeatIndex with clamped humidity = %v", got)
	}
}

func TestWindChill(t *testing.T) {
	if _, ok := WindChill(5, nil); ok {
		t.Error("WindChill without wind data should not apply")
	}
	if _, ok := WindChill(15, fp(10)); ok {
		t.Error("WindChill above 10°C should not apply")
	}
	if _, ok := WindChill(5, fp(1)); ok {
		t.Error("WindChill below 5 km/h wind should not apply")
	}
	wc, ok := WindChill(5, fp(10))
	if !ok {
		t.Fatal("WindChill(5°C, 10 m/s) should apply")
	}
	if wc >= 5 {
		t.Errorf("WindChill = %v, want below the air temperature", wc)
	}
}

func TestEvaluate_Cold(t *testing.T) {
	tests := []struct {
		name  string
		tempC float64
		want  Level
	}{
		{"bitter cold", 2, LevelWarning},
		{"cold", 8, LevelWatch},
		{"chilly", 14, LevelInfo},
		{"mild", 22, LevelNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hazards := Evaluate(Observation{TempC: fp(tt.tempC)})
			got := LevelNone
			for _, h := range hazards {
				if h.Type == TypeCold {
					got = h.Level
				}
			}
			if got != tt.want {
				t.Errorf("cold hazard at %.0f°C = %v, want %v", tt.tempC, got, tt.want)
			}
		})
	}
}

func TestEvaluate_Heat(t *testing.T) {
	tests := []struct {
		name     string
		tempC    float64
		humidity *float64
		want     Level
	}{
		{"no heat below 32", 30, nil, LevelNone},
		{"sultry", 33, nil, LevelInfo},
		{"hot humid", 36, fp(70), LevelWatch},
		{"extreme humid heat", 40, fp(80), LevelWarning},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hazards := Evaluate(Observation{TempC: fp(tt.tempC), RelHumidityPct: tt.humidity})
			got := LevelNone
			for _, h := range hazards {
				if h.Type == TypeHeat {
					got = h.Level
				}
			}
			if got != tt.want {
				t.Errorf("heat hazard = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluate_Wind(t *testing.T) {
	tests := []struct {
		name   string
		windMS float64
		want   Level
	}{
		{"calm", 4, LevelNone},     // ~14 km/h
		{"moderate", 7, LevelInfo}, // ~25 km/h
		{"strong", 11, LevelWatch}, // ~40 km/h
		{"gale", 16, LevelWarning}, // ~58 km/h
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hazards := Evaluate(Observation{WindMS: fp(tt.windMS)})
			got := LevelNone
			for _, h := range hazards {
				if h.Type == TypeWind {
					got = h.Level
				}
			}
			if got != tt.want {
				t.Errorf("wind hazard at %.0f m/s = %v, want %v", tt.windMS, got, tt.want)
			}
		})
	}
}

func TestEvaluate_Rain(t *testing.T) {
	tests := []struct {
		name string
		obs  Observation
		want Level
	}{
		{"dry", Observation{}, LevelNone},
		{"drizzle now", Observation{PrecipMM: fp(0.2)}, LevelInfo},
		{"light accumulation", Observation{Rain1h: 2, Rain3h: 3, Rain6h: 4}, LevelInfo},
		{"moderate", Observation{Rain1h: 8, Rain3h: 10, Rain6h: 12}, LevelWatch},
		{"heavy", Observation{Rain1h: 20, Rain3h: 25, Rain6h: 28}, LevelWarning},
		{"torrential", Observation{Rain1h: 40, Rain3h: 60, Rain6h: 80}, LevelDanger},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hazards := Evaluate(tt.obs)
			got := LevelNone
			for _, h := range hazards {
				if h.Type == TypeRain {
					got = h.Level
				}
			}
			if got != tt.want {
				t.Errorf("rain hazard = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluate_EffectiveAccumulationWeighting(t *testing.T) {
	// eff = r1 + 0.6*(r3-r1) + 0.4*(r6-r3) = 10 + 0.6*5 + 0.4*10 = 17
	hazards := Evaluate(Observation{Rain1h: 10, Rain3h: 15, Rain6h: 25})
	if len(hazards) != 1 || hazards[0].Level != LevelWarning {
		t.Errorf("hazards = %+v, want one warning-level rain hazard (eff=17)", hazards)
	}
}

func TestEvaluate_SortedBySeverity(t *testing.T) {
	obs := Observation{
		TempC:          fp(38),
		WindMS:         fp(15),
		Rain1h:         1,
		RelHumidityPct: fp(75),
	}
	hazards := Evaluate(obs)
	if len(hazards) < 2 {
		t.Fatalf("expected multiple hazards, got %d", len(hazards))
	}
	for i := 1; i < len(hazards); i++ {
		if Rank(hazards[i-1].Level) < Rank(hazards[i].Level) {
			t.Errorf("hazards not sorted by descending level: %+v", hazards)
		}
	}
}

func TestOverallLevel(t *testing.T) {
	tests := []struct {
		name    string
		hazards []Hazard
		want    Level
	}{
		{"no hazards", nil, LevelNone},
		{"single info", []Hazard{{Level: LevelInfo}}, LevelInfo},
		{"single warning", []Hazard{{Level: LevelWarning}}, LevelWarning},
		{
			"two watch hazards bump one step",
			[]Hazard{{Level: LevelWatch}, {Level: LevelWatch}},
			LevelWarning,
		},
		{
			"bump is capped at danger",
			[]Hazard{{Level: LevelDanger}, {Level: LevelWarning}},
			LevelDanger,
		},
		{
			"info does not count toward bump",
			[]Hazard{{Level: LevelWarning}, {Level: LevelInfo}},
			LevelWarning,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := OverallLevel(tt.hazards); got != tt.want {
				t.Errorf("OverallLevel() = %v, want %v", got, tt.want)
			}
		})
	}
}
