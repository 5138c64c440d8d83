package series

import (
	"math"
	"sort"
	"time"
)

// Field identifies one optional numeric measurement carried by a Point.
type Field int

const (
	Temperature Field = iota
	Humidity
	Pressure
	WindSpeed
	WindDirection
	Precipitation
	CloudCover
	PM10
	PM25
	CO
	CO2
	NO2
	SO2
	O3
	CH4
	UV

	fieldCount
)

var fieldNames = [fieldCount]string{
	"temperature", "humidity", "pressure", "windSpeed", "windDirection",
	"precipitation", "cloudCover", "pm10", "pm2_5", "co", "co2", "no2",
	"so2", "o3", "ch4", "uv",
}

// String returns the JSON name of the field.
func (f Field) String() string {
	if f < 0 || f >= fieldCount {
		return "unknown"
	}
	return fieldNames[f]
}

// WeatherFields are the measurements tracked for the weather dataset.
var WeatherFields = []Field{Temperature, Humidity, Pressure, WindSpeed, WindDirection, Precipitation, CloudCover}

// AirQualityFields are the measurements tracked for the air-quality dataset.
var AirQualityFields = []Field{PM10, PM25, CO, CO2, NO2, SO2, O3, CH4, UV}

// AllFields lists every field a Point can carry.
func AllFields() []Field {
	out := make([]Field, 0, fieldCount)
	for f := Field(0); f < fieldCount; f++ {
		out = append(out, f)
	}
	return out
}

// Point is one timestamped set of optional measurements for a location.
// A nil value means "no data", never zero.
type Point struct {
	Time   time.Time
	values [fieldCount]*float64
}

// NewPoint returns an all-null point at t (normalized to UTC).
func NewPoint(t time.Time) Point {
	return Point{Time: t.UTC()}
}

// Get returns the value of f, or nil when absent.
func (p Point) Get(f Field) *float64 {
	if f < 0 || f >= fieldCount {
		return nil
	}
	return p.values[f]
}

// Set stores v for f. NaN and infinities are stored as nil.
func (p *Point) Set(f Field, v *float64) {
	if f < 0 || f >= fieldCount {
		return
	}
	p.values[f] = finite(v)
}

// With is a chaining helper used mostly by tests and fixtures.
func (p Point) With(f Field, v float64) Point {
	p.Set(f, &v)
	return p
}

// IsEmpty reports whether every field is null.
func (p Point) IsEmpty() bool {
	for _, v := range p.values {
		if v != nil {
			return false
		}
	}
	return true
}

// Series is an ascending, timestamp-unique sequence of points.
type Series []Point

// Len, Less and Swap implement sort.Interface.
func (s Series) Len() int           { return len(s) }
func (s Series) Less(i, j int) bool { return s.Time(i).Before(s.Time(j)) }
func (s Series) Swap(i, j int)      { s[i], s[j] = s[j], s[i] }

// Time returns the timestamp of the i-th point.
func (s Series) Time(i int) time.Time { return s[i].Time }

// Latest returns the last point and true, or false for an empty series.
func (s Series) Latest() (Point, bool) {
	if len(s) == 0 {
		return Point{}, false
	}
	return s[len(s)-1], true
}

// fromMap builds an ascending series out of a timestamp-keyed map.
func fromMap(m map[int64]Point) Series {
	out := make(Series, 0, len(m))
	for _, p := range m {
		out = append(out, p)
	}
	sort.Sort(out)
	return out
}

func finite(v *float64) *float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return nil
	}
	c := *v
	return &c
}

// Float returns a pointer to v; handy for building points.
func Float(v float64) *float64 {
	return &v
}
