package enhance

import (
	"fmt"
	"strings"
)

// Quality is the requested output resolution class.
type Quality string

const (
	QualityStandard Quality = "standard"
	QualityHigh     Quality = "high"
	QualityUltra    Quality = "ultra"
)

// ParseQuality accepts tier names and their resolution labels (1K, 2K, 4K),
// case-insensitively. Empty input selects the highest tier, which is what
// the product offers by default.
func ParseQuality(s string) (Quality, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "standard", "1k":
		return QualityStandard, nil
	case "high", "2k":
		return QualityHigh, nil
	case "ultra", "4k", "":
		return QualityUltra, nil
	default:
		return "", fmt.Errorf("unknown quality tier %q", s)
	}
}

// Resolution returns the provider's resolution label for q.
func (q Quality) Resolution() string {
	switch q {
	case QualityStandard:
		return "1K"
	case QualityHigh:
		return "2K"
	default:
		return "4K"
	}
}
