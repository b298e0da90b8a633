package adplayer

import (
	"github.com/anisan-cli/adplay/ads"
	"github.com/anisan-cli/adplay/log"
	"github.com/anisan-cli/adplay/metrics"
)

// delegate receives plugin callbacks on behalf of a Player.
type delegate struct {
	p *Player
}

var _ ads.Delegate = (*delegate)(nil)

func (d *delegate) OnAdEvent(e ads.Event) {
	p := d.p
	gen, ok := p.liveCycle()
	if !ok {
		return
	}

	log.WithFields(log.Fields{
		"event": e.Kind,
	}).Debugf("ad event")

	switch e.Kind {
	case ads.CuePointsUpdate:
		p.cuePoints.Replace(e.CuePoints)
	case ads.AdsLoaded:
		p.prepareAndReplay(gen)
	case ads.StreamLoaded:
		if p.dai && e.StreamURL != "" {
			p.mu.Lock()
			if p.cycle == gen {
				p.config.Source = e.StreamURL
			}
			p.mu.Unlock()
		}
		p.prepareAndReplay(gen)
	case ads.AdStarted:
		p.announceStarted(gen, e.StartTime, e.Duration)
	case ads.AdPaused:
		p.observer.AdPaused()
	case ads.AdResumed:
		p.observer.AdResumed()
	case ads.AdCompleted:
		p.observer.AdCompleted()
	case ads.AdBreakEnded:
		p.fireSnapback()
	case ads.StreamStarted:
		p.mu.Lock()
		first := p.cycle == gen && !p.streamStarted
		if first {
			p.streamStarted = true
		}
		p.mu.Unlock()
		if first {
			p.observer.StreamStarted()
		}
	case ads.TimedMetadata:
		p.observer.TimedMetadataReceived(e.Metadata)
	case ads.AdBreakReady, ads.AdBreakStarted, ads.AllAdsCompleted:
	}
}

func (d *delegate) OnLoaderFailed(err error) {
	if gen, ok := d.p.liveCycle(); ok {
		d.p.fallback(gen, metrics.ReasonLoaderFailed, err)
	}
}

func (d *delegate) OnManagerFailed(err error) {
	if gen, ok := d.p.liveCycle(); ok {
		d.p.fallback(gen, metrics.ReasonManagerFailed, err)
	}
}

func (d *delegate) OnRequestTimedOut() {
	d.p.onRequestTimedOut()
}

func (d *delegate) OnContentPauseRequested() {
	p := d.p
	p.mu.Lock()
	prepared := p.state == StatePrepared && !p.destroyed
	p.mu.Unlock()

	if prepared {
		p.reportErr(p.engineCall("pause", p.engine.Pause))
	}
}

func (d *delegate) OnContentResumeRequested() {
	if gen, ok := d.p.liveCycle(); ok {
		d.p.continueContent(gen)
	}
}

func (d *delegate) PlayContent(pt ads.PlayType) {
	p := d.p
	gen, ok := p.liveCycle()
	if !ok || !p.preparePlayerIfNeeded(gen) {
		return
	}

	p.mu.Lock()
	p.pendingPlay = false
	p.mu.Unlock()

	p.reportErr(p.startContent(gen, pt))
}

// continueContent resumes the content of cycle gen after an ad, preparing the
// engine first when needed.
func (p *Player) continueContent(gen uint64) {
	if !p.preparePlayerIfNeeded(gen) {
		return
	}

	p.mu.Lock()
	p.pendingPlay = false
	p.mu.Unlock()

	p.reportErr(p.startContent(gen, ads.PlayTypeResume))
}

// liveCycle returns the current cycle unless the player is destroyed.
func (p *Player) liveCycle() (uint64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cycle, !p.destroyed
}
