package dai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/anisan-cli/adplay/ads"
	"github.com/anisan-cli/adplay/cuepoint"
	"github.com/anisan-cli/adplay/filesystem"
	"github.com/anisan-cli/adplay/key"
	"github.com/anisan-cli/adplay/log"
	"github.com/anisan-cli/adplay/network"
	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/spf13/viper"
)

// completionSlack lets a break count as watched when time-pos stops just short of its end.
const completionSlack = 0.5

// Config describes where the stitched stream comes from.
type Config struct {
	// Source is the media playlist, an http(s) URL or a local path.
	Source  string
	Headers map[string]string

	// Timeout bounds one manifest request.
	Timeout time.Duration

	StartWithPreroll bool
}

// ConfigFromViper fills Config from the ads.* settings.
func ConfigFromViper(source string) Config {
	return Config{
		Source:           source,
		Timeout:          viper.GetDuration(key.AdsRequestTimeout),
		StartWithPreroll: viper.GetBool(key.AdsStartWithPreroll),
	}
}

var _ ads.Plugin = (*Plugin)(nil)

// Plugin implements ads.Plugin for stitched HLS streams.
type Plugin struct {
	cfg Config

	// load fetches the manifest. Replaced in tests.
	load func(ctx context.Context) (io.ReadCloser, error)

	mu       sync.Mutex
	delegate ads.Delegate
	request  uint64
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	cues     cuepoint.Set
	markers  map[float64]Marker
	timeline Timeline
	current  mo.Option[cuepoint.CuePoint]
	paused   bool
}

// New creates a plugin for cfg.
func New(cfg Config) *Plugin {
	p := &Plugin{cfg: cfg}
	p.load = p.fetch
	return p
}

func (p *Plugin) fetch(ctx context.Context) (io.ReadCloser, error) {
	if strings.HasPrefix(p.cfg.Source, "http://") || strings.HasPrefix(p.cfg.Source, "https://") {
		return network.Get(ctx, p.cfg.Source, p.cfg.Headers)
	}
	return filesystem.Open(p.cfg.Source)
}

func (p *Plugin) SetDelegate(d ads.Delegate) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.delegate = d
}

// RequestAds loads the manifest in the background. Cue points are delivered
// before the stream URL.
func (p *Plugin) RequestAds() error {
	if p.cfg.Source == "" {
		return ads.ErrNoAdSource
	}

	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
	}
	p.request++
	id := p.request

	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if p.cfg.Timeout > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), p.cfg.Timeout)
	} else {
		ctx, cancel = context.WithCancel(context.Background())
	}
	p.cancel = cancel
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()
		defer cancel()
		p.runRequest(ctx, id)
	}()

	return nil
}

func (p *Plugin) runRequest(ctx context.Context, id uint64) {
	manifest, err := p.loadManifest(ctx)

	p.mu.Lock()
	if id != p.request {
		p.mu.Unlock()
		return
	}
	d := p.delegate
	if err == nil {
		p.cues = manifest.CuePoints
		p.markers = lo.SliceToMap(manifest.Markers, func(m Marker) (float64, Marker) { return m.Start, m })
		p.timeline = NewTimeline(manifest.CuePoints)
		p.current = mo.None[cuepoint.CuePoint]()
	}
	p.mu.Unlock()

	if d == nil {
		return
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		log.Warnf("manifest request timed out after %s", p.cfg.Timeout)
		d.OnRequestTimedOut()
	case errors.Is(err, context.Canceled):
	case err != nil:
		d.OnLoaderFailed(err)
	default:
		log.WithFields(log.Fields{
			"breaks":   manifest.CuePoints.Len(),
			"duration": manifest.Duration,
		}).Infof("manifest loaded")
		d.OnAdEvent(ads.NewCuePointsUpdate(manifest.CuePoints))
		d.OnAdEvent(ads.NewStreamLoaded(p.cfg.Source))
	}
}

func (p *Plugin) loadManifest(ctx context.Context) (Manifest, error) {
	type result struct {
		manifest Manifest
		err      error
	}

	if err := ctx.Err(); err != nil {
		return Manifest{}, err
	}

	done := make(chan result, 1)
	go func() {
		body, err := p.load(ctx)
		if err != nil {
			done <- result{err: fmt.Errorf("load manifest: %w", err)}
			return
		}
		defer body.Close()

		m, err := ParseManifest(body)
		done <- result{manifest: m, err: err}
	}()

	select {
	case <-ctx.Done():
		return Manifest{}, ctx.Err()
	case r := <-done:
		if r.err != nil && ctx.Err() != nil {
			return Manifest{}, ctx.Err()
		}
		return r.manifest, r.err
	}
}

// Load fetches and parses the manifest at cfg.Source without a delegate.
func Load(ctx context.Context, cfg Config) (Manifest, error) {
	if cfg.Source == "" {
		return Manifest{}, ads.ErrNoAdSource
	}
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}
	return New(cfg).loadManifest(ctx)
}

// DidRequestPlay hands playback to the content engine. Ads are part of the
// stream and start when playback reaches them.
func (p *Plugin) DidRequestPlay(pt ads.PlayType) {
	if d := p.currentDelegate(); d != nil {
		d.PlayContent(pt)
	}
}

// Pause pauses the stream while an ad plays in it.
func (p *Plugin) Pause() {
	p.mu.Lock()
	inAd := p.current.IsPresent() && !p.paused
	if inAd {
		p.paused = true
	}
	d := p.delegate
	p.mu.Unlock()

	if inAd && d != nil {
		d.OnContentPauseRequested()
		d.OnAdEvent(ads.Event{Kind: ads.AdPaused})
	}
}

// Resume resumes the stream while an ad plays in it.
func (p *Plugin) Resume() {
	p.mu.Lock()
	inAd := p.current.IsPresent() && p.paused
	if inAd {
		p.paused = false
	}
	d := p.delegate
	p.mu.Unlock()

	if inAd && d != nil {
		d.OnContentResumeRequested()
		d.OnAdEvent(ads.Event{Kind: ads.AdResumed})
	}
}

// DestroyManager cancels an in-flight request and forgets the loaded breaks.
func (p *Plugin) DestroyManager() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.request++
	p.cues = cuepoint.Set{}
	p.markers = nil
	p.timeline = Timeline{}
	p.current = mo.None[cuepoint.CuePoint]()
	p.paused = false
}

func (p *Plugin) DidPlay() {
	log.Debugf("stitched stream playing")
}

func (p *Plugin) DidEnterBackground() {
	log.Debugf("stitched stream backgrounded")
}

func (p *Plugin) WillEnterForeground() {
	log.Debugf("stitched stream foregrounded")
}

// IsAdPlaying reports whether playback is inside an unplayed break.
func (p *Plugin) IsAdPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current.IsPresent()
}

func (p *Plugin) PreviousCuePoint(streamTime float64) mo.Option[cuepoint.CuePoint] {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cues.Previous(streamTime)
}

func (p *Plugin) CanPlayAd(streamTime float64) mo.Option[ads.Playability] {
	p.mu.Lock()
	defer p.mu.Unlock()

	cue, ok := p.cues.Containing(streamTime).Get()
	if !ok || cue.Played {
		return mo.None[ads.Playability]()
	}
	return mo.Some(ads.Playability{CanPlay: true, Duration: cue.End - streamTime, EndTime: cue.End})
}

func (p *Plugin) StartWithPreroll() bool {
	return p.cfg.StartWithPreroll
}

func (p *Plugin) ContentTime(streamTime float64) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.timeline.ContentTime(streamTime)
}

func (p *Plugin) StreamTime(contentTime float64) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.timeline.StreamTime(contentTime)
}

// CuePoints returns the breaks of the loaded manifest.
func (p *Plugin) CuePoints() cuepoint.Set {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cues
}

// Observe feeds the engine position in stream time. Entering an unplayed
// break starts an ad; leaving it completes the ad and marks the break played.
func (p *Plugin) Observe(streamTime float64) {
	p.mu.Lock()
	var events []ads.Event

	if cur, ok := p.current.Get(); ok && !cur.Contains(streamTime) {
		p.current = mo.None[cuepoint.CuePoint]()
		p.paused = false
		if streamTime >= cur.End-completionSlack {
			p.cues = p.cues.MarkPlayed(cur.Start)
		}
		events = append(events,
			ads.Event{Kind: ads.AdCompleted},
			ads.Event{Kind: ads.AdBreakEnded, StartTime: cur.Start, Duration: cur.Duration()},
			ads.NewCuePointsUpdate(p.cues),
		)
		if allPlayed(p.cues) {
			events = append(events, ads.Event{Kind: ads.AllAdsCompleted})
		}
	}

	if p.current.IsAbsent() {
		if cue, ok := p.cues.Containing(streamTime).Get(); ok && !cue.Played {
			p.current = mo.Some(cue)
			events = append(events,
				ads.Event{Kind: ads.AdBreakStarted, StartTime: cue.Start, Duration: cue.Duration()},
				ads.NewAdStarted(cue.Start, cue.Duration()),
			)
			if marker, ok := p.markers[cue.Start]; ok && (marker.ID != "" || marker.Cue != "") {
				events = append(events, ads.Event{
					Kind:     ads.TimedMetadata,
					Metadata: map[string]string{"id": marker.ID, "cue": marker.Cue},
				})
			}
		}
	}

	d := p.delegate
	p.mu.Unlock()

	if d == nil {
		return
	}
	for _, e := range events {
		d.OnAdEvent(e)
	}
}

// Destroy cancels pending work and waits for it to finish.
// It must not be called from a delegate callback.
func (p *Plugin) Destroy() {
	p.DestroyManager()
	p.wg.Wait()

	p.mu.Lock()
	p.delegate = nil
	p.mu.Unlock()
}

func (p *Plugin) currentDelegate() ads.Delegate {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.delegate
}

func allPlayed(set cuepoint.Set) bool {
	return set.Len() > 0 && lo.EveryBy(set.All(), func(c cuepoint.CuePoint) bool { return c.Played })
}
