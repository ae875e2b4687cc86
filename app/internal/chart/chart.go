// Package chart turns a day series into the declarative bar chart the page renders.
package chart

import (
	"github.com/guregu/null/v5"

	"statusboard/app/internal/classify"
	"statusboard/app/internal/series"
)

// Bar is one rendered day.
type Bar struct {
	Label    string            `json:"label"`
	Value    null.Float        `json:"value"`
	Category classify.Category `json:"category"`
	Color    string            `json:"color"`
	Tooltip  classify.Tooltip  `json:"tooltip"`
}

// Chart is a monitor's history bars, oldest first.
type Chart struct {
	Bars []Bar `json:"bars"`
}

// Renderer holds the classification policy and colors shared by every chart.
type Renderer struct {
	Classifier classify.Classifier
	Palette    classify.Palette
}

// NewRenderer returns a renderer with defaults filled in.
func NewRenderer(c classify.Classifier, p classify.Palette) Renderer {
	if c.Threshold <= 0 {
		c.Threshold = classify.DefaultThreshold
	}
	return Renderer{Classifier: c, Palette: p.Merge(classify.DefaultPalette())}
}

// Bar renders a single day point.
func (r Renderer) Bar(p series.DayPoint) Bar {
	cat := r.Classifier.Classify(p.Value)
	return Bar{
		Label:    p.Key(),
		Value:    p.Value,
		Category: cat,
		Color:    r.Palette.Color(cat),
		Tooltip:  classify.FormatTooltip(p.Date, p.Value),
	}
}

// Build renders every point.
func (r Renderer) Build(points []series.DayPoint) Chart {
	bars := make([]Bar, len(points))
	for i, p := range points {
		bars[i] = r.Bar(p)
	}
	return Chart{Bars: bars}
}

// PatchLast re-renders the final bar from the final point. A chart whose
// length no longer matches points is rebuilt.
func (r Renderer) PatchLast(c *Chart, points []series.DayPoint) {
	n := len(points)
	if len(c.Bars) != n {
		*c = r.Build(points)
		return
	}
	if n > 0 {
		c.Bars[n-1] = r.Bar(points[n-1])
	}
}

// Counts tallies bars per category.
func (c Chart) Counts() map[classify.Category]int {
	out := make(map[classify.Category]int, 4)
	for _, b := range c.Bars {
		out[b.Category]++
	}
	return out
}
