// Package ads defines the contract between the ad-aware player and an ads plugin.
//
// A plugin decides when ads play, owns the mapping between content time and
// stream time, and reports ad lifecycle changes back through a Delegate.
package ads

import (
	"errors"

	"github.com/anisan-cli/adplay/cuepoint"
	"github.com/samber/mo"
)

var (
	// ErrNoAdSource is returned by RequestAds when there is nothing to request.
	ErrNoAdSource = errors.New("no ad source configured")

	// ErrRequestTimedOut is reported when an ad request misses its deadline.
	ErrRequestTimedOut = errors.New("ad request timed out")

	// ErrManagerUnavailable is reported when the ad manager was torn down mid-request.
	ErrManagerUnavailable = errors.New("ad manager unavailable")
)

// PlayType distinguishes a first play from resuming after a pause.
type PlayType int

const (
	PlayTypePlay PlayType = iota
	PlayTypeResume
)

func (p PlayType) String() string {
	if p == PlayTypeResume {
		return "resume"
	}
	return "play"
}

// Playability answers whether an ad can play at a stream position.
type Playability struct {
	CanPlay  bool
	Duration float64
	EndTime  float64
}

// Translator maps between content time and stream time.
// With client-side ads both are the same; with stitched streams the stream
// timeline also contains the ad breaks.
type Translator interface {
	ContentTime(streamTime float64) float64
	StreamTime(contentTime float64) float64
}

// Plugin is an ads SDK as seen by the player.
type Plugin interface {
	Translator

	// RequestAds starts loading ads. Results arrive through the Delegate.
	// An error means nothing was requested and no callback will follow.
	RequestAds() error

	// DidRequestPlay asks the plugin to start playback; it either plays an ad
	// or calls Delegate.PlayContent.
	DidRequestPlay(PlayType)

	Pause()
	Resume()
	DestroyManager()
	DidPlay()
	DidEnterBackground()
	WillEnterForeground()

	IsAdPlaying() bool
	PreviousCuePoint(streamTime float64) mo.Option[cuepoint.CuePoint]
	CanPlayAd(streamTime float64) mo.Option[Playability]
	StartWithPreroll() bool

	SetDelegate(Delegate)
	Destroy()
}

// Delegate receives plugin callbacks. Methods may be called from any goroutine.
type Delegate interface {
	OnAdEvent(Event)
	OnLoaderFailed(err error)
	OnManagerFailed(err error)
	OnRequestTimedOut()
	OnContentPauseRequested()
	OnContentResumeRequested()
	PlayContent(PlayType)
}
