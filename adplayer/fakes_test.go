package adplayer

import (
	"errors"
	"fmt"
	"sync"

	"github.com/anisan-cli/adplay/ads"
	"github.com/anisan-cli/adplay/cuepoint"
	"github.com/anisan-cli/adplay/player"
	"github.com/samber/lo"
	"github.com/samber/mo"
)

// engineCall is one command received by fakeEngine together with the player
// state observed while it ran.
type engineCall struct {
	Name  string
	Arg   float64
	State State
}

type fakeEngine struct {
	mu         sync.Mutex
	calls      []engineCall
	configs    []player.MediaConfig
	playing    bool
	position   float64
	duration   float64
	prepareErr error

	// state is read on every call; set it once the Player exists.
	state func() State
}

var _ player.Engine = (*fakeEngine)(nil)

func (e *fakeEngine) record(name string, arg float64) {
	st := StateStart
	if e.state != nil {
		st = e.state()
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, engineCall{Name: name, Arg: arg, State: st})
}

func (e *fakeEngine) Prepare(cfg player.MediaConfig) error {
	e.record("prepare", cfg.StartTime)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.configs = append(e.configs, cfg)
	return e.prepareErr
}

func (e *fakeEngine) Play() error {
	e.record("play", 0)
	e.mu.Lock()
	e.playing = true
	e.mu.Unlock()
	return nil
}

func (e *fakeEngine) Pause() error {
	e.record("pause", 0)
	e.mu.Lock()
	e.playing = false
	e.mu.Unlock()
	return nil
}

func (e *fakeEngine) Resume() error {
	e.record("resume", 0)
	e.mu.Lock()
	e.playing = true
	e.mu.Unlock()
	return nil
}

func (e *fakeEngine) Stop() error {
	e.record("stop", 0)
	e.mu.Lock()
	e.playing = false
	e.mu.Unlock()
	return nil
}

func (e *fakeEngine) Seek(seconds float64) error {
	e.record("seek", seconds)
	e.mu.Lock()
	e.position = seconds
	e.mu.Unlock()
	return nil
}

func (e *fakeEngine) Replay() error {
	e.record("replay", 0)
	return nil
}

func (e *fakeEngine) CurrentPosition() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.position
}

func (e *fakeEngine) Duration() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.duration
}

func (e *fakeEngine) IsPlaying() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.playing
}

func (e *fakeEngine) Destroy() error {
	e.record("destroy", 0)
	return nil
}

func (e *fakeEngine) Calls() []engineCall {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]engineCall(nil), e.calls...)
}

func (e *fakeEngine) Names() []string {
	return lo.Map(e.Calls(), func(c engineCall, _ int) string { return c.Name })
}

func (e *fakeEngine) Count(name string) int {
	return lo.CountBy(e.Calls(), func(c engineCall) bool { return c.Name == name })
}

func (e *fakeEngine) Seeks() []float64 {
	seeks := lo.Filter(e.Calls(), func(c engineCall, _ int) bool { return c.Name == "seek" })
	return lo.Map(seeks, func(c engineCall, _ int) float64 { return c.Arg })
}

func (e *fakeEngine) Configs() []player.MediaConfig {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]player.MediaConfig(nil), e.configs...)
}

// fakePlugin is a scripted ads plugin. Stream time is content time plus shift.
type fakePlugin struct {
	mu       sync.Mutex
	delegate ads.Delegate
	calls    []string

	requestErr       error
	adPlaying        bool
	startWithPreroll bool
	cues             cuepoint.Set
	shift            float64

	// playContent makes DidRequestPlay hand playback straight to the content.
	playContent bool
	// onRequest runs after each RequestAds, outside the plugin lock.
	onRequest func(d ads.Delegate)
}

var _ ads.Plugin = (*fakePlugin)(nil)

func (f *fakePlugin) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakePlugin) Delegate() ads.Delegate {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.delegate
}

func (f *fakePlugin) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakePlugin) Count(call string) int {
	return lo.Count(f.Calls(), call)
}

func (f *fakePlugin) SetAdPlaying(playing bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.adPlaying = playing
}

func (f *fakePlugin) SetCues(cues cuepoint.Set) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cues = cues
}

func (f *fakePlugin) ContentTime(streamTime float64) float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return streamTime - f.shift
}

func (f *fakePlugin) StreamTime(contentTime float64) float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return contentTime + f.shift
}

func (f *fakePlugin) RequestAds() error {
	f.record("request_ads")
	f.mu.Lock()
	err, hook, d := f.requestErr, f.onRequest, f.delegate
	f.mu.Unlock()
	if err != nil {
		return err
	}
	if hook != nil {
		hook(d)
	}
	return nil
}

func (f *fakePlugin) DidRequestPlay(pt ads.PlayType) {
	f.record("did_request_play:" + pt.String())
	f.mu.Lock()
	playContent, d := f.playContent, f.delegate
	f.mu.Unlock()
	if playContent {
		d.PlayContent(pt)
	}
}

func (f *fakePlugin) Pause()               { f.record("pause") }
func (f *fakePlugin) Resume()              { f.record("resume") }
func (f *fakePlugin) DestroyManager()      { f.record("destroy_manager") }
func (f *fakePlugin) DidPlay()             { f.record("did_play") }
func (f *fakePlugin) DidEnterBackground()  { f.record("did_enter_background") }
func (f *fakePlugin) WillEnterForeground() { f.record("will_enter_foreground") }

func (f *fakePlugin) IsAdPlaying() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.adPlaying
}

func (f *fakePlugin) PreviousCuePoint(streamTime float64) mo.Option[cuepoint.CuePoint] {
	f.record(fmt.Sprintf("previous_cue_point:%g", streamTime))
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cues.Previous(streamTime)
}

func (f *fakePlugin) CanPlayAd(streamTime float64) mo.Option[ads.Playability] {
	f.record(fmt.Sprintf("can_play_ad:%g", streamTime))
	f.mu.Lock()
	defer f.mu.Unlock()
	cue, ok := f.cues.Containing(streamTime).Get()
	if !ok || cue.Played {
		return mo.None[ads.Playability]()
	}
	return mo.Some(ads.Playability{CanPlay: true, Duration: cue.Duration(), EndTime: cue.End})
}

func (f *fakePlugin) StartWithPreroll() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.startWithPreroll
}

func (f *fakePlugin) SetDelegate(d ads.Delegate) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delegate = d
}

func (f *fakePlugin) Destroy() { f.record("destroy") }

type fakeObserver struct {
	mu     sync.Mutex
	events []string
	errs   []error
}

var _ Observer = (*fakeObserver)(nil)

func (o *fakeObserver) add(event string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, event)
}

func (o *fakeObserver) StreamStarted() { o.add("stream_started") }

func (o *fakeObserver) AdPlaying(start, duration float64) {
	o.add(fmt.Sprintf("ad_playing:%g:%g", start, duration))
}

func (o *fakeObserver) AdPaused()    { o.add("ad_paused") }
func (o *fakeObserver) AdResumed()   { o.add("ad_resumed") }
func (o *fakeObserver) AdCompleted() { o.add("ad_completed") }

func (o *fakeObserver) TimedMetadataReceived(metadata map[string]string) {
	o.add("timed_metadata:" + metadata["id"])
}

func (o *fakeObserver) PlaybackError(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.errs = append(o.errs, err)
}

func (o *fakeObserver) Events() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.events...)
}

func (o *fakeObserver) Errors() []error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]error(nil), o.errs...)
}

type transitionLog struct {
	mu  sync.Mutex
	all []transition
}

func (l *transitionLog) record(from, to State) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.all = append(l.all, transition{from: from, to: to})
}

func (l *transitionLog) Strings() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return lo.Map(l.all, func(t transition, _ int) string { return t.from.String() + ">" + t.to.String() })
}

func (l *transitionLog) Transitions() []transition {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]transition(nil), l.all...)
}

var errFake = errors.New("fake failure")

type fixture struct {
	engine      *fakeEngine
	plugin      *fakePlugin
	observer    *fakeObserver
	transitions *transitionLog
	player      *Player
}

func newFixture(dai bool, opts Options) *fixture {
	f := &fixture{
		engine:      &fakeEngine{duration: 100},
		plugin:      &fakePlugin{playContent: true},
		observer:    &fakeObserver{},
		transitions: &transitionLog{},
	}

	opts.Observer = f.observer
	opts.OnTransition = f.transitions.record

	if dai {
		f.player = NewDAI(f.engine, f.plugin, opts)
	} else {
		f.player = New(f.engine, f.plugin, opts)
	}
	f.engine.state = f.player.State

	return f
}

// emit delivers an event the way the plugin would.
func (f *fixture) emit(e ads.Event) {
	f.plugin.Delegate().OnAdEvent(e)
}

func (f *fixture) loaded() {
	f.emit(ads.Event{Kind: ads.AdsLoaded})
}

func cueSet(points ...[2]float64) cuepoint.Set {
	return cuepoint.NewSet(lo.Map(points, func(p [2]float64, _ int) cuepoint.CuePoint {
		return cuepoint.New(p[0], p[1], false)
	})...)
}
