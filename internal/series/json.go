package series

import (
	"bytes"
	"encoding/json"
	"time"
)

// View renders a point restricted to a field set. A zero Time is omitted.
type View struct {
	Point  Point
	Fields []Field
}

// MarshalJSON writes "time" first, then each field in order, null when absent.
func (v View) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	sep := false
	if !v.Point.Time.IsZero() {
		buf.WriteString(`"time":"`)
		buf.WriteString(v.Point.Time.UTC().Format(time.RFC3339))
		buf.WriteByte('"')
		sep = true
	}
	for _, f := range v.Fields {
		if sep {
			buf.WriteByte(',')
		}
		sep = true
		name, err := json.Marshal(f.String())
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		val := v.Point.Get(f)
		if val == nil {
			buf.WriteString("null")
			continue
		}
		b, err := json.Marshal(*val)
		if err != nil {
			return nil, err
		}
		buf.Write(b)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Views renders every point of s with the same field set. The result is never nil.
func (s Series) Views(fields []Field) []View {
	out := make([]View, len(s))
	for i, p := range s {
		out[i] = View{Point: p, Fields: fields}
	}
	return out
}
