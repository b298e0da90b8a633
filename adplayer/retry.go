package adplayer

import (
	"time"

	"github.com/anisan-cli/adplay/ads"
	"github.com/anisan-cli/adplay/log"
	"github.com/anisan-cli/adplay/metrics"
)

// onRequestTimedOut retries the ad request of the current cycle until the
// retry limit is reached, then falls back to the content.
func (p *Player) onRequestTimedOut() {
	p.mu.Lock()
	if p.destroyed {
		p.mu.Unlock()
		return
	}
	gen := p.cycle

	switch {
	case p.state == StatePrepared:
		intended := p.playPerformed
		p.mu.Unlock()
		log.Warnf("ad request timed out during playback, continuing content")
		if intended {
			p.continueContent(gen)
		}
		return
	case p.state != StateWaitingForPrepare || p.adsDisabled:
		p.mu.Unlock()
		return
	case p.retryTimer != nil:
		p.mu.Unlock()
		log.Debugf("ad request timed out with a retry already scheduled")
		return
	case p.retries >= p.opts.retryLimit():
		p.mu.Unlock()
		p.fallback(gen, metrics.ReasonRetryExceeded, ads.ErrRequestTimedOut)
		return
	}

	p.retries++
	attempt := p.retries
	delay := p.backoff.NextBackOff()
	if delay > 0 {
		p.retryTimer = time.AfterFunc(delay, func() { p.retry(gen) })
	}
	p.mu.Unlock()

	metrics.RecordRetry()
	log.WithFields(log.Fields{
		"attempt": attempt,
		"limit":   p.opts.retryLimit(),
		"delay":   delay,
	}).Warnf("ad request timed out, retrying")

	if delay <= 0 {
		p.retry(gen)
	}
}

// retry starts a new cycle for the stored configuration. Play intent, the
// retry count and an armed snap-back are kept. Cue points are requested again.
func (p *Player) retry(gen uint64) {
	p.mu.Lock()
	if p.cycle != gen || p.destroyed {
		p.mu.Unlock()
		return
	}
	p.retryTimer = nil
	p.cycle++
	next := p.cycle
	p.cuePoints.Clear()
	transitions := []transition{
		p.setStateLocked(StateStart),
		p.setStateLocked(StateWaitingForPrepare),
	}
	p.mu.Unlock()

	p.report(transitions...)

	p.plugin.DestroyManager()
	p.requestAds(next)
}

func (p *Player) stopRetryTimerLocked() {
	if p.retryTimer != nil {
		p.retryTimer.Stop()
		p.retryTimer = nil
	}
}
