package adplayer

import (
	"github.com/anisan-cli/adplay/log"
	"github.com/anisan-cli/adplay/metrics"
	"github.com/samber/mo"
)

// overridePreroll starts the first play of a cycle at 0 when the plugin
// requires the preroll and one exists, and arms a snap-back to the configured
// start. It waits for the first cue points, so it also runs before the engine
// is prepared.
func (p *Player) overridePreroll(gen uint64) {
	p.mu.Lock()
	if p.cycle != gen || !p.prerollPending || p.adsDisabled {
		p.mu.Unlock()
		return
	}
	set := p.cuePoints.Load()
	if set.Len() == 0 {
		p.mu.Unlock()
		return
	}
	p.prerollPending = false
	start := p.config.StartTime
	p.mu.Unlock()

	if start <= 0 || !set.HasPreRoll() || !p.plugin.StartWithPreroll() {
		return
	}

	destination := p.plugin.StreamTime(start)

	p.mu.Lock()
	if p.cycle != gen {
		p.mu.Unlock()
		return
	}
	p.config.StartTime = 0
	p.armSnapbackLocked(destination)
	prepared := p.state == StatePrepared
	p.mu.Unlock()

	metrics.RecordSnapback(metrics.SnapbackPreroll)
	log.Infof("starting with preroll, resuming at %.2f afterwards", start)

	if prepared {
		p.reportErr(p.seekEngine(0))
	}
}

// armSnapback arms a snap-back to streamTime for cycle gen.
func (p *Player) armSnapback(gen uint64, streamTime float64, kind string) {
	p.mu.Lock()
	if p.cycle != gen {
		p.mu.Unlock()
		return
	}
	p.armSnapbackLocked(streamTime)
	p.mu.Unlock()

	metrics.RecordSnapback(kind)
	log.Infof("seek redirected to an unplayed ad break, resuming at %.2f afterwards", streamTime)
}

// armSnapbackLocked keeps only the latest destination.
func (p *Player) armSnapbackLocked(streamTime float64) {
	if previous, ok := p.snapback.Get(); ok && previous != streamTime {
		log.Warnf("pending snap-back to %.2f replaced by %.2f", previous, streamTime)
	}
	p.snapback = mo.Some(streamTime)
}

// fireSnapback seeks to the armed destination once an ad break has ended and
// forgets the ad announced for the break.
func (p *Player) fireSnapback() {
	p.mu.Lock()
	destination, ok := p.snapback.Get()
	p.snapback = mo.None[float64]()
	p.announced = mo.None[float64]()
	prepared := p.state == StatePrepared
	p.mu.Unlock()

	if !ok || !prepared {
		return
	}

	log.Debugf("ad break ended, snapping back to %.2f", destination)
	p.reportErr(p.seekEngine(destination))
}
