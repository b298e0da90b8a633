// Package player defines a unified abstraction layer for media playback engines.
// The primary implementation drives 'mpv' through its JSON-IPC interface.
package player

import "github.com/samber/lo"

// MediaConfig describes what the engine should load.
type MediaConfig struct {
	Source    string
	Title     string
	StartTime float64
	Headers   map[string]string
}

// Clone returns a deep copy, so later changes by the caller do not leak into a prepared session.
func (c MediaConfig) Clone() MediaConfig {
	if c.Headers != nil {
		c.Headers = lo.Assign(c.Headers)
	}
	return c
}

// Engine encapsulates the capabilities required from a content playback backend.
type Engine interface {
	// Prepare loads the media paused at cfg.StartTime.
	Prepare(cfg MediaConfig) error

	Play() error
	Pause() error
	Resume() error
	Stop() error

	// Seek moves playback to an absolute position in seconds.
	Seek(seconds float64) error

	// Replay restarts the media from the beginning.
	Replay() error

	// CurrentPosition is the playback position in seconds, or the last known one.
	CurrentPosition() float64

	// Duration of the loaded media in seconds, 0 when unknown.
	Duration() float64

	IsPlaying() bool

	// Destroy releases the engine and all associated system resources.
	Destroy() error
}
