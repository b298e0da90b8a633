package adplayer

import (
	"testing"

	"github.com/anisan-cli/adplay/ads"
	"github.com/anisan-cli/adplay/cuepoint"
	"github.com/anisan-cli/adplay/player"
	"github.com/samber/lo"
	. "github.com/smartystreets/goconvey/convey"
)

func TestSeekSnapback(t *testing.T) {
	Convey("Given playing content with an unplayed midroll at [10, 15)", t, func() {
		f := newFixture(false, Options{})
		cues := cueSet([2]float64{10, 15})
		f.plugin.SetCues(cues)

		So(f.player.Prepare(player.MediaConfig{Source: contentURL}), ShouldBeNil)
		f.emit(ads.NewCuePointsUpdate(cues))
		f.loaded()
		So(f.player.Play(), ShouldBeNil)

		Convey("Seeking past it should play the break first", func() {
			So(f.player.Seek(20), ShouldBeNil)

			So(f.engine.Seeks(), ShouldResemble, []float64{10})
			So(f.player.PendingSnapback().OrEmpty(), ShouldEqual, 20)
			So(f.observer.Events(), ShouldContain, "ad_playing:10:5")

			Convey("And return to the destination when the break ends", func() {
				f.emit(ads.Event{Kind: ads.AdBreakEnded})

				So(f.engine.Seeks(), ShouldResemble, []float64{10, 20})
				So(f.player.PendingSnapback().IsPresent(), ShouldBeFalse)

				f.emit(ads.Event{Kind: ads.AdBreakEnded})
				So(f.engine.Seeks(), ShouldHaveLength, 2)
			})
		})

		Convey("Seeking into the break should resume after its end", func() {
			So(f.player.Seek(12), ShouldBeNil)
			So(f.engine.Seeks(), ShouldResemble, []float64{10})
			So(f.player.PendingSnapback().OrEmpty(), ShouldEqual, 15)
		})

		Convey("Seeking before the break should go straight there", func() {
			So(f.player.Seek(5), ShouldBeNil)
			So(f.engine.Seeks(), ShouldResemble, []float64{5})
			So(f.player.PendingSnapback().IsPresent(), ShouldBeFalse)
		})

		Convey("A second seek should replace the pending destination", func() {
			So(f.player.Seek(20), ShouldBeNil)
			So(f.player.Seek(30), ShouldBeNil)

			So(f.engine.Seeks(), ShouldResemble, []float64{10, 10})
			So(f.player.PendingSnapback().OrEmpty(), ShouldEqual, 30)

			f.emit(ads.Event{Kind: ads.AdBreakEnded})
			So(f.engine.Seeks(), ShouldResemble, []float64{10, 10, 30})
		})

		Convey("The break should be announced once per visit", func() {
			So(f.player.Seek(20), ShouldBeNil)
			So(f.player.Seek(30), ShouldBeNil)
			f.emit(ads.NewAdStarted(10, 5))
			So(lo.Count(f.observer.Events(), "ad_playing:10:5"), ShouldEqual, 1)

			f.emit(ads.Event{Kind: ads.AdBreakEnded})
			So(f.player.Seek(20), ShouldBeNil)
			So(lo.Count(f.observer.Events(), "ad_playing:10:5"), ShouldEqual, 2)
		})

		Convey("A played break should not be enforced", func() {
			f.plugin.SetCues(cuepoint.NewSet(cuepoint.New(10, 15, true)))
			So(f.player.Seek(20), ShouldBeNil)
			So(f.engine.Seeks(), ShouldResemble, []float64{20})
		})

		Convey("Stop should disarm a pending snap-back", func() {
			So(f.player.Seek(20), ShouldBeNil)
			So(f.player.Stop(), ShouldBeNil)
			So(f.player.PendingSnapback().IsPresent(), ShouldBeFalse)
		})
	})

	Convey("Seeking before the first play should not be redirected", t, func() {
		f := newFixture(false, Options{})
		f.plugin.SetCues(cueSet([2]float64{10, 15}))

		So(f.player.Prepare(player.MediaConfig{Source: contentURL}), ShouldBeNil)
		f.loaded()
		So(f.player.Seek(20), ShouldBeNil)

		So(f.engine.Seeks(), ShouldResemble, []float64{20})
	})
}

func TestPrerollSnapback(t *testing.T) {
	Convey("Given a preroll that must be watched and a start at 30", t, func() {
		f := newFixture(false, Options{})
		f.plugin.playContent = false
		f.plugin.startWithPreroll = true
		cues := cueSet([2]float64{0, 5}, [2]float64{60, 90})
		f.plugin.SetCues(cues)

		cfg := player.MediaConfig{Source: contentURL, StartTime: 30}

		Convey("When cue points arrive before play", func() {
			So(f.player.Prepare(cfg), ShouldBeNil)
			f.emit(ads.NewCuePointsUpdate(cues))
			So(f.player.Play(), ShouldBeNil)

			Convey("The first play should start at 0 and arm a return to 30", func() {
				So(f.player.PendingSnapback().OrEmpty(), ShouldEqual, 30)
				So(f.player.CurrentPosition(), ShouldEqual, 0)
				So(f.plugin.Calls(), ShouldContain, "can_play_ad:0")
				So(f.observer.Events(), ShouldContain, "ad_playing:0:5")

				f.loaded()
				So(f.engine.Configs()[0].StartTime, ShouldEqual, 0)

				f.emit(ads.Event{Kind: ads.AdBreakEnded})
				So(f.engine.Seeks(), ShouldResemble, []float64{30})
			})
		})

		Convey("When cue points arrive after play", func() {
			So(f.player.Prepare(cfg), ShouldBeNil)
			So(f.player.Play(), ShouldBeNil)
			So(f.player.PendingSnapback().IsPresent(), ShouldBeFalse)

			f.emit(ads.NewCuePointsUpdate(cues))
			f.loaded()

			So(f.engine.Configs()[0].StartTime, ShouldEqual, 0)
			So(f.player.PendingSnapback().OrEmpty(), ShouldEqual, 30)
		})

		Convey("When the engine is prepared before play", func() {
			So(f.player.Prepare(cfg), ShouldBeNil)
			f.emit(ads.NewCuePointsUpdate(cues))
			f.loaded()
			So(f.engine.Configs()[0].StartTime, ShouldEqual, 30)

			So(f.player.Play(), ShouldBeNil)
			So(f.engine.Seeks(), ShouldResemble, []float64{0})
			So(f.player.PendingSnapback().OrEmpty(), ShouldEqual, 30)
		})

		Convey("When the plugin does not require the preroll", func() {
			f.plugin.startWithPreroll = false
			So(f.player.Prepare(cfg), ShouldBeNil)
			f.emit(ads.NewCuePointsUpdate(cues))
			So(f.player.Play(), ShouldBeNil)
			f.loaded()

			So(f.engine.Configs()[0].StartTime, ShouldEqual, 30)
			So(f.player.PendingSnapback().IsPresent(), ShouldBeFalse)
		})
	})

	Convey("Given a stitched stream whose preroll shifts content by 5 seconds", t, func() {
		f := newFixture(true, Options{})
		f.plugin.playContent = false
		f.plugin.startWithPreroll = true
		f.plugin.shift = 5
		cues := cueSet([2]float64{0, 5})
		f.plugin.SetCues(cues)

		So(f.player.Prepare(player.MediaConfig{Source: contentURL, StartTime: 30}), ShouldBeNil)
		f.emit(ads.NewCuePointsUpdate(cues))
		So(f.player.Play(), ShouldBeNil)

		Convey("The snap-back should target the stream time of the start", func() {
			So(f.player.PendingSnapback().OrEmpty(), ShouldEqual, 30)

			f.emit(ads.NewStreamLoaded("https://stitch.example.com/master.m3u8"))
			f.emit(ads.Event{Kind: ads.AdBreakEnded})
			So(f.engine.Seeks(), ShouldResemble, []float64{35})
		})
	})
}
