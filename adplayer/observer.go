package adplayer

// Observer receives the events a host application cares about.
// Calls are made without any player lock held and may come from any goroutine.
type Observer interface {
	StreamStarted()
	AdPlaying(startTime, duration float64)
	AdPaused()
	AdResumed()
	AdCompleted()
	TimedMetadataReceived(metadata map[string]string)

	// PlaybackError reports engine failures that happened outside of a host call.
	PlaybackError(err error)
}

// NopObserver ignores every event. Embed it to implement only some methods.
type NopObserver struct{}

func (NopObserver) StreamStarted()                          {}
func (NopObserver) AdPlaying(float64, float64)              {}
func (NopObserver) AdPaused()                               {}
func (NopObserver) AdResumed()                              {}
func (NopObserver) AdCompleted()                            {}
func (NopObserver) TimedMetadataReceived(map[string]string) {}
func (NopObserver) PlaybackError(error)                     {}
