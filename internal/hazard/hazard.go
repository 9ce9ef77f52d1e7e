package hazard

import (
	"fmt"
	"math"
	"sort"
)

// Level ranks hazards from benign to dangerous. The ordering mirrors the
// upstream forecast service so derived alerts stay comparable with feed alerts.
type Level string

const (
	LevelNone    Level = "none"
	LevelInfo    Level = "info"
	LevelWatch   Level = "watch"
	LevelWarning Level = "warning"
	LevelDanger  Level = "danger"
)

var levelRank = map[Level]int{
	LevelNone:    0,
	LevelInfo:    1,
	LevelWatch:   2,
	LevelWarning: 3,
	LevelDanger:  4,
}

var levelOrder = []Level{LevelNone, LevelInfo, LevelWatch, LevelWarning, LevelDanger}

func Rank(l Level) int {
	return levelRank[l]
}

type Type string

const (
	TypeRain Type = "rain"
	TypeHeat Type = "heat"
	TypeCold Type = "cold"
	TypeWind Type = "strong_wind"
)

type Hazard struct {
	Type        Type
	Level       Level
	Score       int
	Headline    string
	Description string
	Advices     []string
}

// Observation is one hourly weather snapshot. Optional sensor fields are
// pointers; a nil field means the measurement is unavailable, and each rule
// documents how it degrades without it.
type Observation struct {
	TempC          *float64
	WindMS         *float64
	PrecipMM       *float64
	CloudCoverPct  *float64
	RelHumidityPct *float64

	// Rain accumulations over trailing windows ending at the observation hour.
	Rain1h float64
	Rain3h float64
	Rain6h float64
}

// HeatIndex computes apparent temperature in °C from the Rothfusz polynomial.
// Below 27°C or 40% humidity the plain temperature is returned; the polynomial
// is not meaningful there.
func HeatIndex(tempC float64, relHumidity *float64) float64 {
	t := tempC
	if relHumidity == nil {
		return t
	}
	rh := math.Max(0, math.Min(100, *relHumidity))
	if t < 27 || rh < 40 {
		return t
	}
	return -8.784695 +
		1.61139411*t +
		2.338549*rh -
		0.14611605*t*rh -
		0.012308094*t*t -
		0.016424828*rh*rh +
		0.002211732*t*t*rh +
		0.00072546*t*rh*rh -
		0.000003582*t*t*rh*rh
}

// WindChill computes felt temperature in °C. It applies only at or below 10°C
// with wind of at least 5 km/h; otherwise ok is false.
func WindChill(tempC float64, windMS *float64) (float64, bool) {
	if windMS == nil {
		return 0, false
	}
	vKmh := *windMS * 3.6
	if tempC > 10 || vKmh < 5 {
		return 0, false
	}
	wc := 13.12 + 0.6215*tempC - 11.37*math.Pow(vKmh, 0.16) + 0.3965*tempC*math.Pow(vKmh, 0.16)
	return wc, true
}

func buildHeatColdHazard(obs Observation) *Hazard {
	if obs.TempC == nil {
		return nil
	}
	t := *obs.TempC
	effectiveCold := t
	if wc, ok := WindChill(t, obs.WindMS); ok {
		effectiveCold = wc
	}

	if effectiveCold <= 15 {
		var level Level
		var score int
		var headline, desc string
		switch {
		case effectiveCold <= 5:
			level, score = LevelWarning, 3
			headline = "Bitter cold with wind"
			desc = fmt.Sprintf("Felt temperature is dropping to around %.1f°C (temperature combined with wind), with a risk of severe chill at night and in the early morning.", effectiveCold)
		case effectiveCold <= 10:
			level, score = LevelWatch, 2
			headline = "Cold weather"
			desc = fmt.Sprintf("Felt temperature is around %.1f°C. Keep children and the elderly warm.", effectiveCold)
		default:
			level, score = LevelInfo, 1
			headline = "Chilly conditions"
			desc = fmt.Sprintf("Temperature is around %.1f°C, fairly cool or slightly cold at night and in the early morning.", t)
		}
		return &Hazard{
			Type: TypeCold, Level: level, Score: score,
			Headline: headline, Description: desc,
			Advices: []string{
				"Bring warm clothing when going out, especially in the evening and early morning.",
				"Keep young children and the elderly warm.",
			},
		}
	}

	if t < 32 {
		return nil
	}
	effectiveHeat := HeatIndex(t, obs.RelHumidityPct)
	if effectiveHeat < 32 {
		return nil
	}
	cloudy := obs.CloudCoverPct != nil && *obs.CloudCoverPct >= 60

	var level Level
	var score int
	var headline, desc string
	switch {
	case effectiveHeat < 41:
		level, score = LevelInfo, 1
		headline = "Hot and humid"
		desc = fmt.Sprintf("Felt temperature is around %.1f°C; sultry conditions, tiring for prolonged outdoor activity.", effectiveHeat)
	case effectiveHeat < 54:
		level, score = LevelWatch, 2
		headline = "Hot weather, caution advised"
		desc = fmt.Sprintf("Felt temperature is around %.1f°C. Extended outdoor work raises the risk of dehydration and exhaustion.", effectiveHeat)
	default:
		level, score = LevelWarning, 3
		headline = "Severe heat, high risk"
		desc = fmt.Sprintf("Felt temperature above %.1f°C, with a risk of sunstroke or heatstroke during prolonged exposure.", effectiveHeat)
	}
	if cloudy {
		desc += " Heavy cloud cover may reduce direct sun but does little against the mugginess."
	}
	return &Hazard{
		Type: TypeHeat, Level: level, Score: score,
		Headline: headline, Description: desc,
		Advices: []string{
			"Avoid prolonged sun exposure around midday and early afternoon.",
			"Drink plenty of water and wear light clothing.",
			"Prefer resting in the shade or under cover.",
		},
	}
}

func buildWindHazard(obs Observation) *Hazard {
	if obs.WindMS == nil {
		return nil
	}
	windKmh := *obs.WindMS * 3.6
	if windKmh < 20 {
		return nil
	}
	var level Level
	var score int
	var headline, desc string
	switch {
	case windKmh < 30:
		level, score = LevelInfo, 1
		headline = "Moderate wind"
		desc = fmt.Sprintf("Wind speed around %.0f km/h (roughly Beaufort 4), potentially uncomfortable for motorbikes and pedestrians.", windKmh)
	case windKmh < 50:
		level, score = LevelWatch, 2
		headline = "Strong wind"
		desc = fmt.Sprintf("Strong wind around %.0f km/h (roughly Beaufort 5-6); take care outdoors, especially in open areas.", windKmh)
	default:
		level, score = LevelWarning, 3
		headline = "Very strong wind"
		desc = fmt.Sprintf("Very strong wind around %.0f km/h (Beaufort 7 and above); trees and billboards may fall, dangerous for traffic.", windKmh)
	}
	return &Hazard{
		Type: TypeWind, Level: level, Score: score,
		Headline: headline, Description: desc,
		Advices: []string{
			"Avoid standing near large trees, billboards, or unstable structures.",
			"Keep a firm grip on the handlebars when riding a motorbike.",
		},
	}
}

func buildRainHazard(obs Observation) *Hazard {
	r1 := obs.Rain1h
	r3 := obs.Rain3h
	r6 := obs.Rain6h

	extra3h := math.Max(0, r3-r1)
	extra6h := math.Max(0, r6-r3)

	// The most recent hour dominates the effective accumulation.
	eff := r1 + 0.6*extra3h + 0.4*extra6h

	if obs.PrecipMM != nil && *obs.PrecipMM >= 0.1 && eff < 0.5 {
		return &Hazard{
			Type: TypeRain, Level: LevelInfo, Score: 1,
			Headline:    "Light rain",
			Description: "Light rain in the past hour; roads may be slippery.",
			Advices:     []string{"Travel carefully and carry a raincoat if needed."},
		}
	}
	if eff < 0.5 {
		return nil
	}
	switch {
	case eff < 5:
		return &Hazard{
			Type: TypeRain, Level: LevelInfo, Score: 1,
			Headline:    "Light scattered rain",
			Description: fmt.Sprintf("Accumulated rainfall around %.1fmm over the past 1-6 hours. Mainly slippery roads and travel inconvenience.", eff),
			Advices:     []string{"Carry a raincoat if travelling outdoors."},
		}
	case eff < 15:
		return &Hazard{
			Type: TypeRain, Level: LevelWatch, Score: 2,
			Headline:    "Moderate rain, minor flooding possible",
			Description: fmt.Sprintf("Accumulated rainfall around %.1fmm over the past few hours; low-lying, poorly drained areas may flood lightly.", eff),
			Advices: []string{
				"Avoid speeding on wet roads.",
				"Watch low-lying spots and flood-prone neighbourhoods.",
			},
		}
	case eff < 30:
		return &Hazard{
			Type: TypeRain, Level: LevelWarning, Score: 3,
			Headline:    "Heavy rain, risk of local flooding",
			Description: fmt.Sprintf("Accumulated rainfall around %.1fmm; risk of local flooding in residential and urban areas and low-lying spots.", eff),
			Advices: []string{
				"Avoid driving through flooded or poorly drained areas.",
				"Move belongings off the floor in low-lying buildings.",
			},
		}
	default:
		return &Hazard{
			Type: TypeRain, Level: LevelDanger, Score: 4,
			Headline:    "Very heavy rain, risk of flash flooding",
			Description: fmt.Sprintf("Accumulated rainfall above %.1fmm within 6 hours; risk of deep flooding, flash floods, or landslides, especially in hilly terrain.", eff),
			Advices: []string{
				"Avoid crossing deeply flooded areas, rivers, and streams.",
				"Follow hydrometeorological warnings closely.",
			},
		}
	}
}

// Evaluate applies every hazard rule to the observation and returns the
// triggered hazards ordered by descending level.
func Evaluate(obs Observation) []Hazard {
	hazards := make([]Hazard, 0, 3)
	if h := buildRainHazard(obs); h != nil {
		hazards = append(hazards, *h)
	}
	if h := buildHeatColdHazard(obs); h != nil {
		hazards = append(hazards, *h)
	}
	if h := buildWindHazard(obs); h != nil {
		hazards = append(hazards, *h)
	}
	sort.SliceStable(hazards, func(i, j int) bool {
		return Rank(hazards[i].Level) > Rank(hazards[j].Level)
	})
	return hazards
}

// OverallLevel aggregates hazards into a single level: the worst hazard, bumped
// one step when two or more hazards are at watch or above.
func OverallLevel(hazards []Hazard) Level {
	if len(hazards) == 0 {
		return LevelNone
	}
	maxRank := 0
	watchOrMore := 0
	for _, h := range hazards {
		r := Rank(h.Level)
		if r > maxRank {
			maxRank = r
		}
		if r >= levelRank[LevelWatch] {
			watchOrMore++
		}
	}
	if watchOrMore >= 2 && maxRank < len(levelOrder)-1 {
		maxRank++
	}
	return levelOrder[maxRank]
}
