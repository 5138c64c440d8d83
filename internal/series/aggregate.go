package series

import (
	"strings"
	"time"
)

// DefaultInterval is used for empty or unknown interval labels.
const DefaultInterval = "1h"

var intervals = map[string]time.Duration{
	"1h":  time.Hour,
	"3h":  3 * time.Hour,
	"6h":  6 * time.Hour,
	"12h": 12 * time.Hour,
	"1d":  24 * time.Hour,
	"24h": 24 * time.Hour,
}

// ParseInterval maps an interval label to its bucket size, defaulting to 1h.
func ParseInterval(label string) time.Duration {
	return intervals[NormalizeInterval(label)]
}

// NormalizeInterval returns the canonical form of a known label, or
// DefaultInterval for anything else.
func NormalizeInterval(label string) string {
	label = strings.ToLower(strings.TrimSpace(label))
	if _, ok := intervals[label]; ok {
		return label
	}
	return DefaultInterval
}

type bucket struct {
	start  int64
	sums   [fieldCount]float64
	counts [fieldCount]int
}

// Aggregate re-buckets s into fixed windows aligned on the Unix epoch.
//
// Every field is the plain mean of its non-null samples in the bucket, or null
// when it has none. Precipitation is accumulated and reported as the bucket
// sum. Wind direction is averaged linearly like any other field.
func Aggregate(s Series, step time.Duration) Series {
	stepSec := int64(step / time.Second)
	if stepSec <= 0 {
		stepSec = int64(time.Hour / time.Second)
	}

	buckets := make(map[int64]*bucket)
	for _, p := range s {
		key := floorDiv(p.Time.Unix(), stepSec) * stepSec
		b, ok := buckets[key]
		if !ok {
			b = &bucket{start: key}
			buckets[key] = b
		}
		for f := Field(0); f < fieldCount; f++ {
			if v := p.Get(f); v != nil {
				b.sums[f] += *v
				b.counts[f]++
			}
		}
	}

	out := make(map[int64]Point, len(buckets))
	for key, b := range buckets {
		p := NewPoint(time.Unix(key, 0))
		for f := Field(0); f < fieldCount; f++ {
			switch {
			case f == Precipitation:
				sum := b.sums[f]
				p.Set(f, &sum)
			case b.counts[f] > 0:
				mean := b.sums[f] / float64(max(b.counts[f], 1))
				p.Set(f, &mean)
			}
		}
		out[key] = p
	}
	return fromMap(out)
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
