package series

import (
	"fmt"
	"time"
)

// RecentDays is the default distance of the archive cutoff from today.
const RecentDays = 7

// Mode selects which upstream flavour serves a chunk.
type Mode int

const (
	ModeArchive Mode = iota
	ModeCurrent
)

func (m Mode) String() string {
	if m == ModeArchive {
		return "archive"
	}
	return "current"
}

// Chunk is a calendar-date range bound to one provider mode.
// Start and End are midnight UTC and inclusive.
type Chunk struct {
	Start time.Time
	End   time.Time
	Mode  Mode
}

func (c Chunk) String() string {
	return fmt.Sprintf("%s[%s..%s]", c.Mode, c.Start.Format(time.DateOnly), c.End.Format(time.DateOnly))
}

// Planner splits request windows around a cutoff that moves with the clock.
type Planner struct {
	Now        func() time.Time
	RecentDays int
}

// NewPlanner returns a planner on the wall clock.
func NewPlanner(recentDays int) Planner {
	if recentDays <= 0 {
		recentDays = RecentDays
	}
	return Planner{Now: time.Now, RecentDays: recentDays}
}

// Cutoff returns the first date served by the current mode.
func (p Planner) Cutoff() time.Time {
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	days := p.RecentDays
	if days <= 0 {
		days = RecentDays
	}
	return dateOf(now()).AddDate(0, 0, -days)
}

// Plan returns the ordered chunks covering the calendar span of [from, to].
func (p Planner) Plan(from, to time.Time) []Chunk {
	start, end := dateOf(from), dateOf(to)
	if end.Before(start) {
		start, end = end, start
	}
	cut := p.Cutoff()

	switch {
	case end.Before(cut):
		return []Chunk{{Start: start, End: end, Mode: ModeArchive}}
	case !start.Before(cut):
		return []Chunk{{Start: start, End: end, Mode: ModeCurrent}}
	}

	chunks := make([]Chunk, 0, 2)
	if archiveEnd := cut.AddDate(0, 0, -1); !archiveEnd.Before(start) {
		chunks = append(chunks, Chunk{Start: start, End: archiveEnd, Mode: ModeArchive})
	}
	return append(chunks, Chunk{Start: cut, End: end, Mode: ModeCurrent})
}

func dateOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
