package adplayer

import (
	"github.com/anisan-cli/adplay/lifecycle"
	"github.com/anisan-cli/adplay/log"
)

// appObserver pauses playback when the application goes to the background.
// Coming back to the foreground never resumes on its own.
type appObserver struct {
	p *Player
}

var _ lifecycle.Observer = (*appObserver)(nil)

func (o *appObserver) AppDidEnterBackground() {
	if o.p.IsPlaying() {
		if err := o.p.Pause(); err != nil {
			log.Warnf("pause on background: %v", err)
		}
	}
	o.p.plugin.DidEnterBackground()
}

func (o *appObserver) AppWillEnterForeground() {
	o.p.plugin.WillEnterForeground()
}
