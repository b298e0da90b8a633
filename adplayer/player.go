// Package adplayer coordinates an ads plugin with a content engine.
//
// A Player decorates a player.Engine. It holds engine commands back until the
// engine is prepared, lets the plugin decide whether an ad or the content plays,
// snaps seeks back to unwatched ad breaks and retries timed out ad requests
// before falling back to content-only playback.
package adplayer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/anisan-cli/adplay/ads"
	"github.com/anisan-cli/adplay/cuepoint"
	"github.com/anisan-cli/adplay/log"
	"github.com/anisan-cli/adplay/metrics"
	"github.com/anisan-cli/adplay/player"
	"github.com/cenkalti/backoff/v5"
	"github.com/samber/mo"
	"golang.org/x/sync/semaphore"
)

// ErrDestroyed is returned by host calls made after Destroy.
var ErrDestroyed = errors.New("player destroyed")

var _ player.Engine = (*Player)(nil)

// Player is an ad-aware player.Engine.
type Player struct {
	engine   player.Engine
	plugin   ads.Plugin
	observer Observer
	opts     Options
	dai      bool

	// prepareSem serialises preparePlayerIfNeeded.
	prepareSem *semaphore.Weighted
	cuePoints  *cuepoint.Table

	mu    sync.Mutex
	state State
	// cycle increases on every Prepare, Stop, retry and Destroy.
	// Deferred work captured under an older cycle is dropped.
	cycle  uint64
	config player.MediaConfig

	playPerformed  bool
	pendingPlay    bool
	firstPlay      bool
	prerollPending bool
	streamStarted  bool
	adsDisabled    bool

	retries    int
	backoff    *backoff.ExponentialBackOff
	retryTimer *time.Timer

	// snapback is the stream time to return to when the current ad break ends.
	snapback mo.Option[float64]
	// announced is the stream time of an ad reported before the plugin started it.
	announced mo.Option[float64]

	unsubscribe func()
	destroyed   bool
}

// New wraps engine with a client-side ads plugin.
func New(engine player.Engine, plugin ads.Plugin, opts Options) *Player {
	return newPlayer(engine, plugin, opts, false)
}

// NewDAI wraps engine with a plugin that stitches ads into the stream.
// The stream URL announced by the plugin replaces the configured source and
// the start position is translated to stream time before the engine is prepared.
func NewDAI(engine player.Engine, plugin ads.Plugin, opts Options) *Player {
	return newPlayer(engine, plugin, opts, true)
}

func newPlayer(engine player.Engine, plugin ads.Plugin, opts Options, dai bool) *Player {
	if opts.Observer == nil {
		opts.Observer = NopObserver{}
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = opts.RetryBackoff
	if opts.RetryBackoff <= 0 {
		b.RandomizationFactor = 0
	}
	b.Reset()

	p := &Player{
		engine:     engine,
		plugin:     plugin,
		observer:   opts.Observer,
		opts:       opts,
		dai:        dai,
		prepareSem: semaphore.NewWeighted(1),
		cuePoints:  cuepoint.NewTable(),
		backoff:    b,
		firstPlay:  true,
	}

	plugin.SetDelegate(&delegate{p: p})

	if opts.Lifecycle != nil {
		p.unsubscribe = opts.Lifecycle.Subscribe(&appObserver{p: p})
	}

	return p
}

// Prepare starts a new prepare cycle for cfg and requests ads.
// The engine is prepared once the plugin has loaded or failed.
// Later changes to cfg by the caller have no effect.
func (p *Player) Prepare(cfg player.MediaConfig) error {
	p.mu.Lock()
	if p.destroyed {
		p.mu.Unlock()
		return ErrDestroyed
	}

	active := p.state != StateStart
	loaded := p.state == StatePreparing || p.state == StatePrepared
	p.cycle++
	gen := p.cycle
	p.config = cfg.Clone()
	p.resetLocked()
	p.retries = 0
	p.backoff.Reset()
	p.adsDisabled = false

	var transitions []transition
	if active {
		transitions = append(transitions, p.setStateLocked(StateStart))
	}
	transitions = append(transitions, p.setStateLocked(StateWaitingForPrepare))
	p.mu.Unlock()

	p.report(transitions...)

	log.WithFields(log.Fields{
		"source": cfg.Source,
		"start":  cfg.StartTime,
		"dai":    p.dai,
	}).Infof("preparing media")

	if loaded {
		if err := p.engine.Stop(); err != nil {
			log.Warnf("stop before prepare: %v", err)
		}
	}
	if active {
		p.plugin.DestroyManager()
	}

	p.requestAds(gen)
	return nil
}

// resetLocked clears everything that belongs to one playback session.
func (p *Player) resetLocked() {
	p.playPerformed = false
	p.pendingPlay = false
	p.firstPlay = true
	p.prerollPending = false
	p.streamStarted = false
	p.snapback = mo.None[float64]()
	p.announced = mo.None[float64]()
	p.cuePoints.Clear()
	p.stopRetryTimerLocked()
}

func (p *Player) requestAds(gen uint64) {
	metrics.RecordAdRequest()

	if err := p.plugin.RequestAds(); err != nil {
		log.Warnf("ad request failed: %v", err)
		p.fallback(gen, metrics.ReasonRequestError, err)
	}
}

// Play starts or queues playback. Before the engine is prepared the intent is
// remembered and replayed once preparation completes.
func (p *Player) Play() error {
	p.mu.Lock()
	if p.destroyed {
		p.mu.Unlock()
		return ErrDestroyed
	}

	gen := p.cycle
	first := p.firstPlay
	p.firstPlay = false
	p.playPerformed = true
	if first {
		p.prerollPending = true
	}
	prepared := p.state == StatePrepared
	if !prepared {
		p.pendingPlay = true
	}
	disabled := p.adsDisabled
	p.mu.Unlock()

	if first && !disabled {
		p.overridePreroll(gen)
		p.announcePreroll(gen)
	}

	if !prepared {
		log.Debugf("play queued until the engine is prepared")
		return nil
	}

	if disabled {
		return p.startContent(gen, ads.PlayTypePlay)
	}

	p.plugin.DidRequestPlay(ads.PlayTypePlay)
	return nil
}

// announcePreroll tells the observer about an ad that will play at the start position.
func (p *Player) announcePreroll(gen uint64) {
	p.mu.Lock()
	if p.cycle != gen {
		p.mu.Unlock()
		return
	}
	start := p.config.StartTime
	p.mu.Unlock()

	streamStart := p.plugin.StreamTime(start)
	if playable, ok := p.plugin.CanPlayAd(streamStart).Get(); ok && playable.CanPlay {
		p.announceAhead(gen, streamStart, playable.Duration)
	}
}

// announceAhead reports an ad the engine is about to reach. The plugin's
// AdStarted for the same break is then not reported again.
func (p *Player) announceAhead(gen uint64, streamTime, duration float64) {
	p.mu.Lock()
	if p.cycle != gen {
		p.mu.Unlock()
		return
	}
	repeated := p.announced.IsPresent() && p.announced.MustGet() == streamTime
	p.announced = mo.Some(streamTime)
	p.mu.Unlock()

	if !repeated {
		p.observer.AdPlaying(streamTime, duration)
	}
}

// announceStarted reports an ad started by the plugin unless it was already
// announced ahead of playback.
func (p *Player) announceStarted(gen uint64, start, duration float64) {
	p.mu.Lock()
	if p.cycle != gen {
		p.mu.Unlock()
		return
	}
	at, ok := p.announced.Get()
	seen := ok && at >= start && (at < start+duration || at == start)
	if seen {
		p.announced = mo.None[float64]()
	}
	p.mu.Unlock()

	if !seen {
		p.observer.AdPlaying(start, duration)
	}
}

// Pause pauses the ad while one is playing, the content otherwise.
func (p *Player) Pause() error {
	p.mu.Lock()
	if p.destroyed {
		p.mu.Unlock()
		return ErrDestroyed
	}
	p.playPerformed = false
	p.pendingPlay = false
	prepared := p.state == StatePrepared
	disabled := p.adsDisabled
	p.mu.Unlock()

	if !prepared {
		return nil
	}

	if !disabled && p.plugin.IsAdPlaying() {
		p.plugin.Pause()
		return nil
	}

	return p.engineCall("pause", p.engine.Pause)
}

// Resume resumes the ad while one is playing, the content otherwise.
func (p *Player) Resume() error {
	p.mu.Lock()
	if p.destroyed {
		p.mu.Unlock()
		return ErrDestroyed
	}
	p.playPerformed = true
	prepared := p.state == StatePrepared
	if !prepared {
		p.pendingPlay = true
	}
	disabled := p.adsDisabled
	p.mu.Unlock()

	if !prepared {
		return nil
	}

	if !disabled && p.plugin.IsAdPlaying() {
		p.plugin.Resume()
		return nil
	}

	return p.engineCall("resume", p.engine.Resume)
}

// Stop returns to StateStart, stops the engine and drops the ad manager.
// Deferred work of the stopped cycle never runs.
func (p *Player) Stop() error {
	p.mu.Lock()
	if p.destroyed {
		p.mu.Unlock()
		return ErrDestroyed
	}
	p.cycle++
	p.resetLocked()
	t := p.setStateLocked(StateStart)
	p.mu.Unlock()

	p.report(t)

	err := p.engineCall("stop", p.engine.Stop)
	p.plugin.DestroyManager()
	return err
}

// Seek moves to a content time. Seeks are ignored while an ad plays and are
// redirected to an unplayed ad break lying before the target.
func (p *Player) Seek(contentTime float64) error {
	p.mu.Lock()
	if p.destroyed {
		p.mu.Unlock()
		return ErrDestroyed
	}
	if p.state != StatePrepared {
		p.config.StartTime = contentTime
		p.mu.Unlock()
		log.Debugf("engine not prepared, start position set to %.2f", contentTime)
		return nil
	}
	gen := p.cycle
	first := p.firstPlay
	disabled := p.adsDisabled
	p.mu.Unlock()

	if disabled {
		return p.seekEngine(contentTime)
	}

	if p.plugin.IsAdPlaying() {
		log.Infof("seek to %.2f ignored while an ad is playing", contentTime)
		return nil
	}

	target := p.plugin.StreamTime(contentTime)

	if !first {
		if cue, ok := p.plugin.PreviousCuePoint(target).Get(); ok && !cue.Played {
			p.armSnapback(gen, math.Max(target, cue.End), metrics.SnapbackSeek)
			p.announceAhead(gen, cue.Start, cue.Duration())
			return p.seekEngine(cue.Start)
		}
	}

	return p.seekEngine(target)
}

func (p *Player) seekEngine(streamTime float64) error {
	return p.engineCall("seek", func() error {
		return p.engine.Seek(streamTime)
	})
}

// Replay restarts the stream from the beginning.
func (p *Player) Replay() error {
	p.mu.Lock()
	if p.destroyed {
		p.mu.Unlock()
		return ErrDestroyed
	}
	prepared := p.state == StatePrepared
	if prepared {
		p.snapback = mo.None[float64]()
		p.playPerformed = true
	}
	p.mu.Unlock()

	if !prepared {
		return nil
	}

	return p.engineCall("replay", p.engine.Replay)
}

// CurrentPosition is the playback position in content time.
// Before the engine is prepared it is the configured start position.
func (p *Player) CurrentPosition() float64 {
	p.mu.Lock()
	prepared := p.state == StatePrepared
	start := p.config.StartTime
	disabled := p.adsDisabled
	p.mu.Unlock()

	if !prepared {
		return start
	}

	pos := p.engine.CurrentPosition()
	if disabled {
		return pos
	}
	return p.plugin.ContentTime(pos)
}

// SetCurrentPosition is Seek.
func (p *Player) SetCurrentPosition(contentTime float64) error {
	return p.Seek(contentTime)
}

// CurrentTime is CurrentPosition.
func (p *Player) CurrentTime() float64 {
	return p.CurrentPosition()
}

// SetCurrentTime is Seek.
func (p *Player) SetCurrentTime(contentTime float64) error {
	return p.Seek(contentTime)
}

// Duration is the content duration, without stitched ads.
func (p *Player) Duration() float64 {
	p.mu.Lock()
	prepared := p.state == StatePrepared
	disabled := p.adsDisabled
	p.mu.Unlock()

	if !prepared {
		return 0
	}

	d := p.engine.Duration()
	if disabled {
		return d
	}
	return p.plugin.ContentTime(d)
}

// IsPlaying reports whether an ad or the content is playing.
func (p *Player) IsPlaying() bool {
	p.mu.Lock()
	prepared := p.state == StatePrepared
	disabled := p.adsDisabled
	p.mu.Unlock()

	if !prepared {
		return false
	}

	if !disabled && p.plugin.IsAdPlaying() {
		return true
	}
	return p.engine.IsPlaying()
}

// State returns the current preparation state.
func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// PendingSnapback returns the content time playback returns to when the
// current ad break ends, if a snap-back is armed.
func (p *Player) PendingSnapback() mo.Option[float64] {
	p.mu.Lock()
	armed := p.snapback
	disabled := p.adsDisabled
	p.mu.Unlock()

	t, ok := armed.Get()
	if !ok {
		return mo.None[float64]()
	}
	if disabled {
		return mo.Some(t)
	}
	return mo.Some(p.plugin.ContentTime(t))
}

// CuePoints returns the latest cue points reported by the plugin.
func (p *Player) CuePoints() cuepoint.Set {
	return p.cuePoints.Load()
}

// AdsDisabled reports whether this session fell back to content-only playback.
func (p *Player) AdsDisabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.adsDisabled
}

// Destroy releases the plugin, the engine and the lifecycle subscription.
// Calling it again does nothing.
func (p *Player) Destroy() error {
	p.mu.Lock()
	if p.destroyed {
		p.mu.Unlock()
		return nil
	}
	p.destroyed = true
	p.cycle++
	p.resetLocked()
	t := p.setStateLocked(StateStart)
	unsubscribe := p.unsubscribe
	p.unsubscribe = nil
	p.mu.Unlock()

	p.report(t)

	if unsubscribe != nil {
		unsubscribe()
	}

	p.plugin.Destroy()

	if err := p.engine.Destroy(); err != nil {
		return fmt.Errorf("destroy engine: %w", err)
	}

	log.Debugf("player destroyed")
	return nil
}

// preparePlayerIfNeeded moves the cycle gen from waiting to prepared and
// prepares the engine. The body runs at most once per cycle. It reports
// whether the engine is prepared for gen.
func (p *Player) preparePlayerIfNeeded(gen uint64) bool {
	if err := p.prepareSem.Acquire(context.Background(), 1); err != nil {
		return false
	}
	defer p.prepareSem.Release(1)

	p.overridePreroll(gen)

	p.mu.Lock()
	if p.cycle != gen {
		p.mu.Unlock()
		return false
	}
	switch p.state {
	case StatePrepared:
		p.mu.Unlock()
		return true
	case StateWaitingForPrepare:
	default:
		p.mu.Unlock()
		return false
	}
	t := p.setStateLocked(StatePreparing)
	cfg := p.config.Clone()
	translate := p.dai && !p.adsDisabled
	p.mu.Unlock()

	p.report(t)

	if translate {
		cfg.StartTime = p.plugin.StreamTime(cfg.StartTime)
	}

	err := p.engine.Prepare(cfg)

	p.mu.Lock()
	if p.cycle != gen {
		p.mu.Unlock()
		return false
	}
	if err != nil {
		t = p.setStateLocked(StateStart)
	} else {
		t = p.setStateLocked(StatePrepared)
	}
	p.mu.Unlock()

	p.report(t)

	if err != nil {
		log.Errorf("prepare engine: %v", err)
		p.observer.PlaybackError(fmt.Errorf("prepare engine: %w", err))
		return false
	}

	return true
}

// prepareAndReplay prepares the engine and replays a play queued before preparation.
func (p *Player) prepareAndReplay(gen uint64) {
	if !p.preparePlayerIfNeeded(gen) {
		return
	}

	p.mu.Lock()
	if p.cycle != gen || !p.pendingPlay {
		p.mu.Unlock()
		return
	}
	p.pendingPlay = false
	disabled := p.adsDisabled
	p.mu.Unlock()

	if disabled {
		p.reportErr(p.startContent(gen, ads.PlayTypePlay))
		return
	}
	p.plugin.DidRequestPlay(ads.PlayTypePlay)
}

// startContent plays the content of cycle gen. The first start in a cycle
// is reported as StreamStarted.
func (p *Player) startContent(gen uint64, pt ads.PlayType) error {
	p.mu.Lock()
	if p.cycle != gen || p.state != StatePrepared {
		p.mu.Unlock()
		return nil
	}
	first := !p.streamStarted
	p.streamStarted = true
	p.playPerformed = true
	p.mu.Unlock()

	op, fn := "play", p.engine.Play
	if pt == ads.PlayTypeResume && !first {
		op, fn = "resume", p.engine.Resume
	}

	if err := p.engineCall(op, fn); err != nil {
		return err
	}

	if first {
		p.observer.StreamStarted()
	}
	p.plugin.DidPlay()
	return nil
}

// fallback disables ads for the rest of the session and plays the content.
func (p *Player) fallback(gen uint64, reason string, cause error) {
	p.mu.Lock()
	if p.cycle != gen || p.destroyed || p.state == StateStart {
		p.mu.Unlock()
		return
	}
	p.adsDisabled = true
	p.snapback = mo.None[float64]()
	p.stopRetryTimerLocked()
	prepared := p.state == StatePrepared
	wantPlay := p.pendingPlay || (prepared && p.playPerformed)
	p.pendingPlay = false
	p.mu.Unlock()

	metrics.RecordFallback(reason)
	log.WithFields(log.Fields{
		"reason": reason,
		"cause":  cause,
	}).Warnf("playing content without ads")

	if !prepared && !p.preparePlayerIfNeeded(gen) {
		return
	}

	if wantPlay {
		p.reportErr(p.startContent(gen, ads.PlayTypeResume))
	}
}

func (p *Player) engineCall(op string, fn func() error) error {
	if err := fn(); err != nil {
		log.Errorf("engine %s: %v", op, err)
		return fmt.Errorf("engine %s: %w", op, err)
	}
	return nil
}

// reportErr forwards errors of deferred engine commands to the observer.
func (p *Player) reportErr(err error) {
	if err != nil {
		p.observer.PlaybackError(err)
	}
}
