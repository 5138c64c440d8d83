package series

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseError reports a provider document that could not be decoded into the
// expected parallel-array shape.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse provider response: %s: %v", e.Reason, e.Err)
	}
	return "parse provider response: " + e.Reason
}

func (e *ParseError) Unwrap() error { return e.Err }

// Mapping binds one provider array name to a Field.
type Mapping struct {
	Key   string
	Field Field
}

// FieldSpec describes which arrays to read from an hourly block.
type FieldSpec struct {
	Mappings []Mapping

	// DerivePrecipitation fills a null precipitation with rain + showers.
	DerivePrecipitation bool
}

// Keys returns the provider array names, auxiliaries included, in request order.
func (s FieldSpec) Keys() []string {
	keys := make([]string, 0, len(s.Mappings)+2)
	for _, m := range s.Mappings {
		keys = append(keys, m.Key)
	}
	if s.DerivePrecipitation {
		keys = append(keys, "rain", "showers")
	}
	return keys
}

// WeatherHourly is the Open-Meteo hourly weather field set.
var WeatherHourly = FieldSpec{
	Mappings: []Mapping{
		{"temperature_2m", Temperature},
		{"relative_humidity_2m", Humidity},
		{"pressure_msl", Pressure},
		{"wind_speed_10m", WindSpeed},
		{"wind_direction_10m", WindDirection},
		{"precipitation", Precipitation},
		{"cloud_cover", CloudCover},
	},
	DerivePrecipitation: true,
}

// AirQualityHourly is the Open-Meteo hourly air-quality field set.
var AirQualityHourly = FieldSpec{
	Mappings: []Mapping{
		{"pm10", PM10},
		{"pm2_5", PM25},
		{"carbon_monoxide", CO},
		{"carbon_dioxide", CO2},
		{"nitrogen_dioxide", NO2},
		{"sulphur_dioxide", SO2},
		{"ozone", O3},
		{"uv_index", UV},
		{"methane", CH4},
	},
}

// CurrentWeather maps the Open-Meteo "current" block.
var CurrentWeather = FieldSpec{
	Mappings: []Mapping{
		{"temperature_2m", Temperature},
		{"relative_humidity_2m", Humidity},
		{"pressure_msl", Pressure},
		{"wind_speed_10m", WindSpeed},
		{"wind_direction_10m", WindDirection},
		{"precipitation", Precipitation},
		{"cloud_cover", CloudCover},
	},
}

var timeLayouts = []string{
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
}

// ParseTimestamp accepts minute or second precision with an optional Z or
// numeric offset. Values without an offset are taken as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported timestamp %q", s)
}

type block map[string]json.RawMessage

func decodeBlock(raw []byte, name string) (block, error) {
	var root map[string]json.RawMessage
	if err := json.NewDecoder(bytes.NewReader(raw)).Decode(&root); err != nil {
		return nil, &ParseError{Reason: "invalid json", Err: err}
	}
	msg, ok := root[name]
	if !ok || isNull(msg) {
		return nil, &ParseError{Reason: fmt.Sprintf("missing %q container", name)}
	}
	var b block
	if err := json.Unmarshal(msg, &b); err != nil {
		return nil, &ParseError{Reason: fmt.Sprintf("%q is not an object", name), Err: err}
	}
	return b, nil
}

// numbers decodes an array of numbers into nullable floats. Anything that is
// not an array yields nil, which reads as "all null".
func (b block) numbers(key string) []*float64 {
	msg, ok := b[key]
	if !ok {
		return nil
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(msg, &elems); err != nil {
		return nil
	}
	out := make([]*float64, len(elems))
	for i, e := range elems {
		out[i] = number(e)
	}
	return out
}

func (b block) number(key string) *float64 {
	msg, ok := b[key]
	if !ok {
		return nil
	}
	return number(msg)
}

// strings decodes a string array. A missing or null key reports ok=false; a
// present value of any other shape is an error.
func (b block) strings(key string) (out []string, ok bool, err error) {
	msg, present := b[key]
	if !present || isNull(msg) {
		return nil, false, nil
	}
	if err := json.Unmarshal(msg, &out); err != nil {
		return nil, false, err
	}
	return out, true, nil
}

func number(msg json.RawMessage) *float64 {
	if isNull(msg) {
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(msg, &n); err == nil {
		if v, err := n.Float64(); err == nil {
			return finite(&v)
		}
		return nil
	}
	var s string
	if err := json.Unmarshal(msg, &s); err == nil {
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			return finite(&v)
		}
	}
	return nil
}

func isNull(msg json.RawMessage) bool {
	return len(bytes.TrimSpace(msg)) == 0 || string(bytes.TrimSpace(msg)) == "null"
}

func at(values []*float64, i int) *float64 {
	if i < 0 || i >= len(values) {
		return nil
	}
	return values[i]
}

// Parse converts an hourly parallel-array document into a Series, keeping only
// points inside [validFrom, validTo].
func Parse(raw []byte, spec FieldSpec, validFrom, validTo time.Time) (Series, error) {
	hourly, err := decodeBlock(raw, "hourly")
	if err != nil {
		return nil, err
	}
	times, ok, err := hourly.strings("time")
	if err != nil {
		return nil, &ParseError{Reason: "time is not a string array", Err: err}
	}
	if !ok {
		return Series{}, nil
	}

	columns := make([][]*float64, len(spec.Mappings))
	for i, m := range spec.Mappings {
		columns[i] = hourly.numbers(m.Key)
	}
	var rain, showers []*float64
	if spec.DerivePrecipitation {
		rain = hourly.numbers("rain")
		showers = hourly.numbers("showers")
	}

	byTime := make(map[int64]Point, len(times))
	for i, stamp := range times {
		ts, err := ParseTimestamp(stamp)
		if err != nil {
			return nil, &ParseError{Reason: fmt.Sprintf("time[%d]", i), Err: err}
		}
		if ts.Before(validFrom) || ts.After(validTo) {
			continue
		}

		p := NewPoint(ts)
		for c, m := range spec.Mappings {
			p.Set(m.Field, at(columns[c], i))
		}
		if spec.DerivePrecipitation && p.Get(Precipitation) == nil {
			p.Set(Precipitation, sumPresent(at(rain, i), at(showers, i)))
		}
		byTime[ts.Unix()] = p
	}
	return fromMap(byTime), nil
}

// ParseCurrent reads the "current" block of a forecast document. Missing
// precipitation or cloud cover fall back to the hourly value of the same hour.
func ParseCurrent(raw []byte) (Point, error) {
	current, err := decodeBlock(raw, "current")
	if err != nil {
		return Point{}, err
	}
	var stamp string
	if err := json.Unmarshal(current["time"], &stamp); err != nil {
		return Point{}, &ParseError{Reason: "current.time", Err: err}
	}
	ts, err := ParseTimestamp(stamp)
	if err != nil {
		return Point{}, &ParseError{Reason: "current.time", Err: err}
	}

	p := NewPoint(ts)
	for _, m := range CurrentWeather.Mappings {
		p.Set(m.Field, current.number(m.Key))
	}

	if p.Get(Precipitation) != nil && p.Get(CloudCover) != nil {
		return p, nil
	}
	hour := ts.Truncate(time.Hour)
	hs, err := Parse(raw, FieldSpec{Mappings: []Mapping{
		{"precipitation", Precipitation},
		{"cloud_cover", CloudCover},
	}}, hour, hour.Add(time.Hour-time.Nanosecond))
	if err != nil {
		// no usable hourly block; keep what "current" had
		return p, nil
	}
	for _, h := range hs {
		if !h.Time.Truncate(time.Hour).Equal(hour) {
			continue
		}
		if p.Get(Precipitation) == nil {
			p.Set(Precipitation, h.Get(Precipitation))
		}
		if p.Get(CloudCover) == nil {
			p.Set(CloudCover, h.Get(CloudCover))
		}
		break
	}
	return p, nil
}

func sumPresent(a, b *float64) *float64 {
	if a == nil && b == nil {
		return nil
	}
	var sum float64
	if a != nil {
		sum += *a
	}
	if b != nil {
		sum += *b
	}
	return &sum
}
