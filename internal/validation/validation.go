package validation

import (
	"fmt"
	"regexp"
	"time"

	"github.com/stormwatch/stormwatch/internal/config"
)

var (
	provinceRegex     = regexp.MustCompile(`^[a-z0-9]([-a-z0-9]*[a-z0-9])?$`)
	alertIDRegex      = regexp.MustCompile(`^[A-Za-z0-9]([-_.A-Za-z0-9]*[A-Za-z0-9])?$`)
	maxProvinceLength = 63
	maxAlertIDLength  = 128
	maxURLLength      = 2048
)

func ValidateProvince(name string) error {
	if len(name) == 0 {
		return fmt.Errorf("province cannot be empty")
	}
	if len(name) > maxProvinceLength {
		return fmt.Errorf("province exceeds maximum length of %d characters", maxProvinceLength)
	}
	if !provinceRegex.MatchString(name) {
		return fmt.Errorf("province must be a lowercase slug (alphanumeric and hyphens)")
	}
	return nil
}

func ValidateAlertID(id string) error {
	if len(id) == 0 {
		return fmt.Errorf("alert id cannot be empty")
	}
	if len(id) > maxAlertIDLength {
		return fmt.Errorf("alert id exceeds maximum length of %d characters", maxAlertIDLength)
	}
	if !alertIDRegex.MatchString(id) {
		return fmt.Errorf("alert id contains invalid characters")
	}
	return nil
}

func ValidateRefreshInterval(interval time.Duration) error {
	if interval < config.MinRefreshInterval {
		return fmt.Errorf("refresh interval must be at least %s", config.MinRefreshInterval)
	}
	if interval > config.MaxRefreshInterval {
		return fmt.Errorf("refresh interval must be at most %s", config.MaxRefreshInterval)
	}
	return nil
}

func ValidateSinkURL(rawURL string) error {
	if rawURL == "" {
		return nil
	}
	if len(rawURL) > maxURLLength {
		return fmt.Errorf("URL exceeds maximum length of %d characters", maxURLLength)
	}
	return nil
}
