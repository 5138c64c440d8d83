package series

import "time"

// Merge folds stored points and then each fetched series, in the given order,
// into one timeline. A later point replaces an earlier one at the same
// timestamp as a whole; fields are never combined.
func Merge(stored Series, fetched ...Series) Series {
	size := len(stored)
	for _, f := range fetched {
		size += len(f)
	}
	byTime := make(map[int64]Point, size)

	put := func(s Series) {
		for _, p := range s {
			byTime[p.Time.UnixNano()] = p
		}
	}
	put(stored)
	for _, f := range fetched {
		put(f)
	}
	return fromMap(byTime)
}

// FillGaps returns one point per whole hour from floor(from) to floor(to),
// inclusive, using all-null points where s has no entry.
func FillGaps(s Series, from, to time.Time) Series {
	start := from.UTC().Truncate(time.Hour)
	end := to.UTC().Truncate(time.Hour)
	if end.Before(start) {
		return Series{}
	}

	byHour := make(map[int64]Point, len(s))
	for _, p := range s {
		byHour[p.Time.Unix()] = p
	}

	out := make(Series, 0, int(end.Sub(start)/time.Hour)+1)
	for t := start; !t.After(end); t = t.Add(time.Hour) {
		if p, ok := byHour[t.Unix()]; ok {
			out = append(out, p)
			continue
		}
		out = append(out, NewPoint(t))
	}
	return out
}
