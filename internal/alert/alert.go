package alert

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/stormwatch/stormwatch/internal/config"
)

type Severity string

const (
	SeverityMinor    Severity = "minor"
	SeverityModerate Severity = "moderate"
	SeveritySevere   Severity = "severe"
	SeverityExtreme  Severity = "extreme"
)

type Category string

const (
	CategoryRain  Category = "rain"
	CategoryWind  Category = "wind"
	CategoryHeat  Category = "heat"
	CategoryCold  Category = "cold"
	CategoryFlood Category = "flood"
)

type Urgency string

const (
	UrgencyImmediate Urgency = "immediate"
	UrgencyExpected  Urgency = "expected"
	UrgencyFuture    Urgency = "future"
	UrgencyPast      Urgency = "past"
)

// Alert is a single weather hazard warning for an area. ExpiresAt bounds
// activeness; OnsetAt is informational only and never gates it.
type Alert struct {
	ID          string
	Title       string
	Description string
	Severity    Severity
	Category    Category
	Area        string
	Urgency     Urgency
	OnsetAt     time.Time
	ExpiresAt   time.Time
}

// Expired reports whether the alert's validity window has closed at now.
func (a *Alert) Expired(now time.Time) bool {
	return !now.Before(a.ExpiresAt)
}

func (a *Alert) Key() string {
	if a == nil {
		return ""
	}
	h := sha256.New()
	h.Write([]byte(a.ID))
	h.Write([]byte(a.Severity))
	h.Write([]byte(a.Category))
	h.Write([]byte(a.Area))
	h.Write([]byte(a.Title))
	return hex.EncodeToString(h.Sum(nil))[:16]
}

func (a *Alert) Validate() error {
	if a == nil {
		return fmt.Errorf("alert is nil")
	}
	if a.ID == "" {
		return fmt.Errorf("alert id is required")
	}
	if a.Title == "" {
		return fmt.Errorf("alert title is required")
	}
	if a.Severity == "" {
		return fmt.Errorf("alert severity is required")
	}
	if a.ExpiresAt.IsZero() {
		return fmt.Errorf("alert expiry is required")
	}
	return nil
}

func (a *Alert) Sanitize() {
	if a == nil {
		return
	}
	if len(a.ID) > 128 {
		a.ID = a.ID[:128]
	}
	if len(a.Title) > 256 {
		a.Title = a.Title[:253] + "..."
	}
	if len(a.Description) > 1024 {
		a.Description = a.Description[:1021] + "..."
	}
	if len(a.Area) > 256 {
		a.Area = a.Area[:253] + "..."
	}
}

func ParseSeverity(severity string) Severity {
	switch severity {
	case "extreme":
		return SeverityExtreme
	case "severe":
		return SeveritySevere
	case "moderate":
		return SeverityModerate
	case "minor":
		return SeverityMinor
	default:
		return SeverityMinor
	}
}

func SeverityLevel(severity Severity) int {
	switch severity {
	case SeverityExtreme:
		return 4
	case SeveritySevere:
		return 3
	case SeverityModerate:
		return 2
	case SeverityMinor:
		return 1
	default:
		return 0
	}
}

func ParseUrgency(urgency string) Urgency {
	switch urgency {
	case "immediate":
		return UrgencyImmediate
	case "expected":
		return UrgencyExpected
	case "future":
		return UrgencyFuture
	case "past":
		return UrgencyPast
	default:
		return UrgencyExpected
	}
}

// MeetsMinSeverity reports whether the alert clears the configured severity
// floor for notification dispatch.
func MeetsMinSeverity(severity Severity) bool {
	minSeverity := ParseSeverity(config.GetMinSeverity())
	return SeverityLevel(severity) >= SeverityLevel(minSeverity)
}

// Dedupe collapses alerts with duplicate IDs, keeping the first occurrence.
// Order is otherwise preserved.
func Dedupe(alerts []Alert) []Alert {
	if len(alerts) < 2 {
		return alerts
	}
	seen := make(map[string]struct{}, len(alerts))
	out := alerts[:0:0]
	for _, a := range alerts {
		if _, ok := seen[a.ID]; ok {
			continue
		}
		seen[a.ID] = struct{}{}
		out = append(out, a)
	}
	return out
}
