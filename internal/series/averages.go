package series

import (
	"math"

	"github.com/shopspring/decimal"
)

// Averages computes one mean per field over the finite, non-null values of s,
// rounded half-up to one decimal. Fields without samples stay null.
func Averages(s Series, fields []Field) Point {
	var avg Point
	for _, f := range fields {
		var (
			sum float64
			n   int
		)
		for _, p := range s {
			v := p.Get(f)
			if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
				continue
			}
			sum += *v
			n++
		}
		if n == 0 {
			continue
		}
		rounded := Round1(sum / float64(n))
		avg.Set(f, &rounded)
	}
	return avg
}

// Round1 rounds v half away from zero to one decimal place.
func Round1(v float64) float64 {
	r, _ := decimal.NewFromFloat(v).Round(1).Float64()
	return r
}
