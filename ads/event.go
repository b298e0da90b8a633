package ads

import (
	"fmt"

	"github.com/anisan-cli/adplay/cuepoint"
)

// EventKind identifies an ad lifecycle event.
type EventKind int

const (
	// AdsLoaded is sent by client-side plugins once the ad manager is ready.
	AdsLoaded EventKind = iota + 1
	// StreamLoaded is sent by stitching plugins with the stream URL to play.
	StreamLoaded
	CuePointsUpdate
	AdBreakReady
	AdBreakStarted
	AdBreakEnded
	AdStarted
	AdPaused
	AdResumed
	AdCompleted
	AllAdsCompleted
	StreamStarted
	TimedMetadata
)

var eventNames = map[EventKind]string{
	AdsLoaded:       "ads_loaded",
	StreamLoaded:    "stream_loaded",
	CuePointsUpdate: "cue_points_update",
	AdBreakReady:    "ad_break_ready",
	AdBreakStarted:  "ad_break_started",
	AdBreakEnded:    "ad_break_ended",
	AdStarted:       "ad_started",
	AdPaused:        "ad_paused",
	AdResumed:       "ad_resumed",
	AdCompleted:     "ad_completed",
	AllAdsCompleted: "all_ads_completed",
	StreamStarted:   "stream_started",
	TimedMetadata:   "timed_metadata",
}

func (k EventKind) String() string {
	if name, ok := eventNames[k]; ok {
		return name
	}
	return fmt.Sprintf("event(%d)", int(k))
}

// Event carries an ad lifecycle change. Only the fields relevant to Kind are set.
type Event struct {
	Kind      EventKind
	CuePoints cuepoint.Set
	StreamURL string
	StartTime float64
	Duration  float64
	Metadata  map[string]string
}

// NewCuePointsUpdate wraps a full replacement cue point list.
func NewCuePointsUpdate(points cuepoint.Set) Event {
	return Event{Kind: CuePointsUpdate, CuePoints: points}
}

// NewStreamLoaded announces the stitched stream URL.
func NewStreamLoaded(url string) Event {
	return Event{Kind: StreamLoaded, StreamURL: url}
}

// NewAdStarted announces an ad occupying [start, start+duration).
func NewAdStarted(start, duration float64) Event {
	return Event{Kind: AdStarted, StartTime: start, Duration: duration}
}
