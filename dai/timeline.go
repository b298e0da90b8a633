package dai

import "github.com/anisan-cli/adplay/cuepoint"

// Timeline converts between content time and the stream time of a stitched
// stream. The zero value has no breaks and maps every time to itself.
type Timeline struct {
	breaks []cuepoint.CuePoint
}

// NewTimeline builds a timeline from ad breaks in stream time.
// Postrolls are not positioned on the stream and are ignored.
func NewTimeline(set cuepoint.Set) Timeline {
	var breaks []cuepoint.CuePoint
	for _, c := range set.All() {
		if c.Kind() != cuepoint.PostRoll && c.Duration() > 0 {
			breaks = append(breaks, c)
		}
	}
	return Timeline{breaks: breaks}
}

// ContentTime removes the ads played before streamTime. A position inside a
// break maps to the content position the break interrupts.
func (t Timeline) ContentTime(streamTime float64) float64 {
	var ads float64
	for _, b := range t.breaks {
		if streamTime >= b.End {
			ads += b.Duration()
			continue
		}
		if streamTime > b.Start {
			ads += streamTime - b.Start
		}
		break
	}
	return streamTime - ads
}

// StreamTime adds the breaks that start strictly before contentTime.
func (t Timeline) StreamTime(contentTime float64) float64 {
	var ads float64
	for _, b := range t.breaks {
		if b.Start-ads >= contentTime {
			break
		}
		ads += b.Duration()
	}
	return contentTime + ads
}
