// Package classify infers an item's modification level from a price
// observation and per-level windows of recently observed prices.
//
// Each level with history gets a band around the window mean, sized by the
// item's tolerance. The classifier is a pure function of its inputs: same
// observation, same windows, same result.
package classify

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/vmelnik/bazaar-data/internal/model"
)

// Band is the inferred acceptable price interval for one modification level.
type Band struct {
	Level  int
	Center float64
	Low    float64
	High   float64
}

// Result is the outcome of classifying one observation.
//
// The zero Result means unclassifiable: no label is assigned and the
// observation does not feed any rolling buffer.
type Result struct {
	// Label is the assigned classification: "3", "3-5", "<3", ">5", "Set".
	Label string

	// Level and Exact are set only for a definite single-level match; such
	// results are the only ones that feed the level's rolling buffer.
	Level int
	Exact bool
}

// OverrideRule may claim a label for an observation whose price fell outside
// every computed band. Rules run in order before the default boundary
// policy; the first rule with an opinion wins.
type OverrideRule func(obs model.PriceObservation, item model.Item, bands []Band) (label string, ok bool)

// Classifier applies the banding heuristic plus an ordered override list.
type Classifier struct {
	overrides []OverrideRule
}

// New creates a Classifier with the given override rules.
func New(overrides ...OverrideRule) *Classifier {
	return &Classifier{overrides: overrides}
}

// Bands computes per-level bands from the given sample windows. Levels with
// empty windows contribute no band. The returned slice is sorted by level.
func Bands(item model.Item, windows map[int][]int64) []Band {
	bands := make([]Band, 0, len(windows))
	for _, level := range item.Levels {
		window := windows[level]
		if len(window) == 0 {
			continue
		}

		var sum int64
		for _, p := range window {
			sum += p
		}
		center := float64(sum) / float64(len(window))
		delta := center * item.Tolerance

		bands = append(bands, Band{
			Level:  level,
			Center: center,
			Low:    center - delta,
			High:   center + delta,
		})
	}

	sort.Slice(bands, func(i, j int) bool { return bands[i].Level < bands[j].Level })
	return bands
}

// Classify assigns a modification label to the observation.
//
// Items with at most one valid level are never classified here; the caller
// assigns the sole level directly. Band containment is inclusive at both
// endpoints; the gap check between adjacent bands is strict.
func (c *Classifier) Classify(obs model.PriceObservation, item model.Item, windows map[int][]int64) Result {
	if len(item.Levels) <= 1 {
		return Result{}
	}

	bands := Bands(item, windows)
	if len(bands) == 0 {
		return Result{}
	}

	price := float64(obs.Price)

	var matched []Band
	for _, b := range bands {
		if b.Low <= price && price <= b.High {
			matched = append(matched, b)
		}
	}

	switch {
	case len(matched) == 1:
		return Result{
			Label: strconv.Itoa(matched[0].Level),
			Level: matched[0].Level,
			Exact: true,
		}
	case len(matched) > 1:
		// Overlapping bands: report the span, lowest to highest.
		return Result{Label: rangeLabel(matched[0].Level, matched[len(matched)-1].Level)}
	}

	// No band contains the price. Look for a gap between adjacent bands.
	for i := 0; i < len(bands)-1; i++ {
		if bands[i].High < price && price < bands[i+1].Low {
			return Result{Label: rangeLabel(bands[i].Level, bands[i+1].Level)}
		}
	}

	// Override rules get a say before the boundary policy.
	for _, rule := range c.overrides {
		if label, ok := rule(obs, item, bands); ok {
			return Result{Label: label}
		}
	}

	// Boundary policy: sentinel naming the nearest extreme level.
	minLow, maxHigh := bands[0].Low, bands[0].High
	for _, b := range bands[1:] {
		if b.Low < minLow {
			minLow = b.Low
		}
		if b.High > maxHigh {
			maxHigh = b.High
		}
	}
	if price < minLow {
		return Result{Label: "<" + strconv.Itoa(bands[0].Level)}
	}
	if price > maxHigh {
		return Result{Label: ">" + strconv.Itoa(bands[len(bands)-1].Level)}
	}

	// Bands are not monotonic in price and nothing claimed the observation.
	return Result{}
}

func rangeLabel(low, high int) string {
	return fmt.Sprintf("%d-%d", low, high)
}
