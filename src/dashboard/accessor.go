// Package dashboard renders the portfolio race and drives playback and GIF
// capture on a single timeline.
package dashboard

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"cheese-stick/src/helpers"
	"cheese-stick/src/models"
)

// boundsPadding is the share of the span added above and below race bounds.
const boundsPadding = 0.05

// ValueAt reads the plotted value of one sample.
func ValueAt(sample models.MHistorySample, includeShort bool) float64 {
	if includeShort {
		return sample.ValueWithShort
	}
	return sample.Value
}

// -----------------------------------------------------------------------------

// ActiveSet is the set of player indices included in rendering.
type ActiveSet map[int]bool

// AllPlayers returns a set holding every index below n.
func AllPlayers(n int) ActiveSet {
	s := make(ActiveSet, n)
	for i := 0; i < n; i++ {
		s[i] = true
	}
	return s
}

// ParsePlayers reads a comma separated list of player indices below n. An
// empty list selects everyone.
func ParsePlayers(s string, n int) (ActiveSet, error) {
	if strings.TrimSpace(s) == "" {
		return AllPlayers(n), nil
	}
	set := ActiveSet{}
	for _, part := range strings.Split(s, ",") {
		idx, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || idx < 0 || idx >= n {
			return nil, helpers.NewValidationError("invalid player index %q", part)
		}
		set[idx] = true
	}
	return set, nil
}

// Has reports whether index is active.
func (s ActiveSet) Has(index int) bool { return s[index] }

// Toggle flips index and returns its new state.
func (s ActiveSet) Toggle(index int) bool {
	if s[index] {
		delete(s, index)
		return false
	}
	s[index] = true
	return true
}

// Indices returns the active indices in ascending order.
func (s ActiveSet) Indices() []int {
	out := make([]int, 0, len(s))
	for i, on := range s {
		if on {
			out = append(out, i)
		}
	}
	sort.Ints(out)
	return out
}

// Clone copies the set.
func (s ActiveSet) Clone() ActiveSet {
	out := make(ActiveSet, len(s))
	for i, on := range s {
		if on {
			out[i] = true
		}
	}
	return out
}

// -----------------------------------------------------------------------------

// Range is a closed value interval on the Y axis.
type Range struct {
	Min float64
	Max float64
}

// Span is Max - Min.
func (r Range) Span() float64 { return r.Max - r.Min }

// widened returns r, or r grown around its centre when it has no width.
func (r Range) widened() Range {
	if r.Span() > 0 {
		return r
	}
	pad := math.Abs(r.Min) * 0.01
	if pad == 0 {
		pad = 1
	}
	return Range{Min: r.Min - pad, Max: r.Max + pad}
}

// -----------------------------------------------------------------------------

// Bounds scans every sample of every active player and pads the extremes by
// 5% of the span. ok is false when there is nothing to scan.
func Bounds(perf *models.MPerformance, active ActiveSet, includeShort bool) (min, max float64, ok bool) {
	if perf == nil {
		return 0, 0, false
	}
	min, max = math.Inf(1), math.Inf(-1)
	for _, idx := range active.Indices() {
		if idx < 0 || idx >= len(perf.Players) {
			continue
		}
		for _, s := range perf.Players[idx].History {
			v := ValueAt(s, includeShort)
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
			ok = true
		}
	}
	if !ok {
		return 0, 0, false
	}
	pad := (max - min) * boundsPadding
	return min - pad, max + pad, true
}

// rangeOf is Bounds as a Range.
func rangeOf(perf *models.MPerformance, active ActiveSet, includeShort bool) (Range, bool) {
	min, max, ok := Bounds(perf, active, includeShort)
	return Range{Min: min, Max: max}, ok
}
