// Package cuepoint models ad break windows on the stream timeline.
package cuepoint

import (
	"fmt"
	"sort"

	"github.com/samber/lo"
	"github.com/samber/mo"
)

// Kind is the position of an ad break relative to the content.
type Kind int

const (
	PreRoll Kind = iota
	MidRoll
	PostRoll
)

func (k Kind) String() string {
	switch k {
	case PreRoll:
		return "preroll"
	case MidRoll:
		return "midroll"
	case PostRoll:
		return "postroll"
	default:
		return "unknown"
	}
}

// CuePoint is an ad break window in stream time, in seconds.
type CuePoint struct {
	Start  float64 `json:"start"`
	End    float64 `json:"end"`
	Played bool    `json:"played"`
}

// New returns a cue point with End clamped to be no earlier than Start.
func New(start, end float64, played bool) CuePoint {
	if end < start {
		end = start
	}
	return CuePoint{Start: start, End: end, Played: played}
}

// Duration of the break.
func (c CuePoint) Duration() float64 {
	return c.End - c.Start
}

// Kind follows the offset sign convention: 0 preroll, negative postroll, positive midroll.
func (c CuePoint) Kind() Kind {
	switch {
	case c.Start == 0:
		return PreRoll
	case c.Start < 0:
		return PostRoll
	default:
		return MidRoll
	}
}

// Contains reports whether t falls inside [Start, End).
func (c CuePoint) Contains(t float64) bool {
	return t >= c.Start && t < c.End
}

func (c CuePoint) String() string {
	return fmt.Sprintf("%s [%.3f, %.3f) played=%t", c.Kind(), c.Start, c.End, c.Played)
}

// Set is an immutable collection of cue points ordered by Start.
// Mutating helpers return a new Set.
type Set struct {
	points []CuePoint
}

// NewSet copies and sorts points.
func NewSet(points ...CuePoint) Set {
	sorted := make([]CuePoint, len(points))
	copy(sorted, points)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start < sorted[j].Start
	})
	return Set{points: sorted}
}

// Len returns the number of cue points.
func (s Set) Len() int {
	return len(s.points)
}

// All returns a copy of the cue points in order.
func (s Set) All() []CuePoint {
	out := make([]CuePoint, len(s.points))
	copy(out, s.points)
	return out
}

// HasPreRoll reports whether any cue point starts at 0.
func (s Set) HasPreRoll() bool {
	return lo.ContainsBy(s.points, func(c CuePoint) bool { return c.Kind() == PreRoll })
}

func (s Set) HasMidRoll() bool {
	return lo.ContainsBy(s.points, func(c CuePoint) bool { return c.Kind() == MidRoll })
}

func (s Set) HasPostRoll() bool {
	return lo.ContainsBy(s.points, func(c CuePoint) bool { return c.Kind() == PostRoll })
}

// Previous returns the cue point with the greatest Start not after streamTime.
// It is absent when there is no such cue point or when that cue point was already played.
// Postrolls are not positioned on the timeline and never match.
func (s Set) Previous(streamTime float64) mo.Option[CuePoint] {
	for i := len(s.points) - 1; i >= 0; i-- {
		c := s.points[i]
		if c.Kind() == PostRoll || c.Start > streamTime {
			continue
		}
		if c.Played {
			return mo.None[CuePoint]()
		}
		return mo.Some(c)
	}
	return mo.None[CuePoint]()
}

// NextUnplayed returns the first unplayed cue point starting at or after streamTime.
func (s Set) NextUnplayed(streamTime float64) mo.Option[CuePoint] {
	c, ok := lo.Find(s.points, func(c CuePoint) bool {
		return !c.Played && c.Kind() != PostRoll && c.Start >= streamTime
	})
	if !ok {
		return mo.None[CuePoint]()
	}
	return mo.Some(c)
}

// Containing returns the cue point whose window contains streamTime.
func (s Set) Containing(streamTime float64) mo.Option[CuePoint] {
	c, ok := lo.Find(s.points, func(c CuePoint) bool {
		return c.Kind() != PostRoll && c.Contains(streamTime)
	})
	if !ok {
		return mo.None[CuePoint]()
	}
	return mo.Some(c)
}

// MarkPlayed returns a copy of the set with the cue point starting at start marked played.
func (s Set) MarkPlayed(start float64) Set {
	points := lo.Map(s.points, func(c CuePoint, _ int) CuePoint {
		if c.Start == start {
			c.Played = true
		}
		return c
	})
	return Set{points: points}
}
