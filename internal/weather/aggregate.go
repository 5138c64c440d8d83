package weather

import (
	"math"
	"strings"
)

// SnapshotRange selects which part of a daily forecast a snapshot summarizes.
type SnapshotRange struct {
	Key    string
	Offset int // day index; negative means the whole week
}

var (
	RangeToday    = SnapshotRange{Key: "today", Offset: 0}
	RangeTomorrow = SnapshotRange{Key: "tomorrow", Offset: 1}
	RangePlus2    = SnapshotRange{Key: "+2", Offset: 2}
	RangeWeek     = SnapshotRange{Key: "week", Offset: -1}
)

// ParseRange maps a range label to a SnapshotRange. Unknown labels mean today.
func ParseRange(label string) SnapshotRange {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "tomorrow":
		return RangeTomorrow
	case "plus2", "+2", "day2":
		return RangePlus2
	case "week", "7d":
		return RangeWeek
	default:
		return RangeToday
	}
}

// SummarizeDaily reduces a daily forecast to one tmax and one precipitation
// probability for the given range.
func SummarizeDaily(daily DailySeries, r SnapshotRange) (*float64, *int) {
	if len(daily.Dates) == 0 {
		return nil, nil
	}
	if r.Offset < 0 {
		return meanFinite(daily.TempMax), maxInt(daily.PrecipitationProbability)
	}
	idx := min(r.Offset, len(daily.Dates)-1)
	return pick(daily.TempMax, idx), pick(daily.PrecipitationProbability, idx)
}

func pick[T any](values []*T, i int) *T {
	if len(values) == 0 {
		return nil
	}
	i = max(0, min(i, len(values)-1))
	return values[i]
}

func meanFinite(values []*float64) *float64 {
	var (
		sum float64
		n   int
	)
	for _, v := range values {
		if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
			continue
		}
		sum += *v
		n++
	}
	if n == 0 {
		return nil
	}
	avg := sum / float64(n)
	return &avg
}

func maxInt(values []*int) *int {
	var best *int
	for _, v := range values {
		if v != nil && (best == nil || *v > *best) {
			best = v
		}
	}
	return best
}
