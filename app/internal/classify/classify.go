package classify

import (
	"fmt"
	"time"

	"github.com/guregu/null/v5"
)

// DefaultThreshold is the uptime percentage at or above which a day counts as operational.
const DefaultThreshold = 95.0

// Bar colors.
const (
	ColorNoData   = "#e9ecef"
	ColorDown     = "#dc3545"
	ColorDegraded = "#ffc107"
	ColorUp       = "#3bd671"
)

// Category is the visual bucket a day value falls into
type Category string

const (
	NoData   Category = "nodata"
	Down     Category = "down"
	Degraded Category = "degraded"
	Up       Category = "up"
)

// Classifier maps day values to categories.
// DegradedBelow enables a degraded band [Threshold, DegradedBelow); zero disables it.
type Classifier struct {
	Threshold     float64
	DegradedBelow float64
}

// New returns a classifier for the given threshold, falling back to DefaultThreshold.
func New(threshold float64) Classifier {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return Classifier{Threshold: threshold}
}

// Classify returns the category of a day value
func (c Classifier) Classify(v null.Float) Category {
	if !v.Valid {
		return NoData
	}
	if v.Float64 < c.Threshold {
		return Down
	}
	if c.DegradedBelow > c.Threshold && v.Float64 < c.DegradedBelow {
		return Degraded
	}
	return Up
}

// Palette holds one color per category
type Palette struct {
	NoData   string `yaml:"no_data" json:"no_data"`
	Down     string `yaml:"down" json:"down"`
	Degraded string `yaml:"degraded" json:"degraded"`
	Up       string `yaml:"up" json:"up"`
}

// DefaultPalette returns the stock bar colors
func DefaultPalette() Palette {
	return Palette{
		NoData:   ColorNoData,
		Down:     ColorDown,
		Degraded: ColorDegraded,
		Up:       ColorUp,
	}
}

// Merge fills empty entries from the defaults
func (p Palette) Merge(def Palette) Palette {
	if p.NoData == "" {
		p.NoData = def.NoData
	}
	if p.Down == "" {
		p.Down = def.Down
	}
	if p.Degraded == "" {
		p.Degraded = def.Degraded
	}
	if p.Up == "" {
		p.Up = def.Up
	}
	return p
}

// Color returns the color of a category
func (p Palette) Color(c Category) string {
	switch c {
	case Down:
		return p.Down
	case Degraded:
		return p.Degraded
	case Up:
		return p.Up
	default:
		return p.NoData
	}
}

// Tooltip is the hover text of one bar
type Tooltip struct {
	Title string `json:"title"`
	Label string `json:"label"`
}

// FormatTooltip renders the tooltip for a day
func FormatTooltip(date time.Time, v null.Float) Tooltip {
	t := Tooltip{Title: date.Format("1/2/2006")}
	if !v.Valid {
		t.Label = "No data"
		return t
	}
	t.Label = fmt.Sprintf("Uptime: %.3f%%", v.Float64)
	return t
}
