package adplayer

import (
	"testing"
	"time"

	"github.com/anisan-cli/adplay/ads"
	"github.com/anisan-cli/adplay/player"
	"github.com/samber/lo"
	. "github.com/smartystreets/goconvey/convey"
	"go.uber.org/goleak"
)

// eventually polls cond until it holds or the timeout passes.
func eventually(cond func() bool, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func timeouts(f *fixture, n int) {
	for i := 0; i < n; i++ {
		f.plugin.Delegate().OnRequestTimedOut()
	}
}

func TestRetry(t *testing.T) {
	Convey("Given a player waiting for ads with play requested", t, func() {
		f := newFixture(false, Options{})
		So(f.player.Prepare(player.MediaConfig{Source: contentURL}), ShouldBeNil)
		So(f.player.Play(), ShouldBeNil)

		Convey("Five timeouts should each request ads again", func() {
			timeouts(f, 5)

			So(f.plugin.Count("request_ads"), ShouldEqual, 6)
			So(f.plugin.Count("destroy_manager"), ShouldEqual, 5)
			So(f.engine.Names(), ShouldBeEmpty)
			So(f.player.State(), ShouldEqual, StateWaitingForPrepare)

			Convey("And the sixth should play the content instead", func() {
				timeouts(f, 1)

				So(f.plugin.Count("request_ads"), ShouldEqual, 6)
				So(f.engine.Names(), ShouldResemble, []string{"prepare", "play"})
				So(f.player.AdsDisabled(), ShouldBeTrue)
				So(f.observer.Events(), ShouldContain, "stream_started")

				timeouts(f, 1)
				So(f.plugin.Count("request_ads"), ShouldEqual, 6)
			})
		})

		Convey("A retried request that loads should replay the play", func() {
			timeouts(f, 2)
			f.loaded()

			So(f.plugin.Count("request_ads"), ShouldEqual, 3)
			So(f.engine.Names(), ShouldResemble, []string{"prepare", "play"})
			So(f.player.AdsDisabled(), ShouldBeFalse)
		})

		Convey("A new prepare should reset the retry count", func() {
			timeouts(f, 3)
			So(f.player.Prepare(player.MediaConfig{Source: contentURL}), ShouldBeNil)
			timeouts(f, 5)

			So(f.plugin.Count("request_ads"), ShouldEqual, 10)
			So(f.engine.Names(), ShouldBeEmpty)

			timeouts(f, 1)
			So(f.engine.Names(), ShouldResemble, []string{"prepare"})
		})

		Convey("Retries should cycle through waiting for prepare", func() {
			timeouts(f, 1)
			So(lo.Count(f.transitions.Strings(), "waiting_for_prepare>start"), ShouldEqual, 1)
			So(lo.Count(f.transitions.Strings(), "start>waiting_for_prepare"), ShouldEqual, 2)
		})
	})

	Convey("Given a custom retry limit", t, func() {
		Convey("Two retries should be allowed", func() {
			f := newFixture(false, Options{RetryLimit: 2})
			So(f.player.Prepare(player.MediaConfig{Source: contentURL}), ShouldBeNil)
			timeouts(f, 3)

			So(f.plugin.Count("request_ads"), ShouldEqual, 3)
			So(f.player.AdsDisabled(), ShouldBeTrue)
		})

		Convey("A negative limit should disable retries", func() {
			f := newFixture(false, Options{RetryLimit: -1})
			So(f.player.Prepare(player.MediaConfig{Source: contentURL}), ShouldBeNil)
			timeouts(f, 1)

			So(f.plugin.Count("request_ads"), ShouldEqual, 1)
			So(f.player.State(), ShouldEqual, StatePrepared)
		})
	})

	Convey("A plugin that times out synchronously should fall back after the limit", t, func() {
		f := newFixture(false, Options{})
		f.plugin.onRequest = func(d ads.Delegate) { d.OnRequestTimedOut() }

		So(f.player.Prepare(player.MediaConfig{Source: contentURL}), ShouldBeNil)

		So(f.plugin.Count("request_ads"), ShouldEqual, DefaultRetryLimit+1)
		So(f.player.State(), ShouldEqual, StatePrepared)
		So(f.player.AdsDisabled(), ShouldBeTrue)
	})

	Convey("A timeout after preparation should continue the content", t, func() {
		f := newFixture(false, Options{})
		So(f.player.Prepare(player.MediaConfig{Source: contentURL}), ShouldBeNil)
		f.loaded()
		So(f.player.Play(), ShouldBeNil)
		f.plugin.Delegate().OnContentPauseRequested()
		f.plugin.Delegate().OnRequestTimedOut()

		So(f.engine.Names(), ShouldResemble, []string{"prepare", "play", "pause", "resume"})
		So(f.plugin.Count("request_ads"), ShouldEqual, 1)
	})
}

func TestRetryBackoff(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	Convey("Given a retry backoff", t, func() {
		f := newFixture(false, Options{RetryBackoff: 20 * time.Millisecond})
		So(f.player.Prepare(player.MediaConfig{Source: contentURL}), ShouldBeNil)
		So(f.player.Play(), ShouldBeNil)

		Convey("The retry should wait for the delay", func() {
			timeouts(f, 1)
			So(f.plugin.Count("request_ads"), ShouldEqual, 1)

			So(eventually(func() bool { return f.plugin.Count("request_ads") == 2 }, time.Second), ShouldBeTrue)

			f.loaded()
			So(f.engine.Names(), ShouldResemble, []string{"prepare", "play"})
		})

		Convey("Stop should cancel a scheduled retry", func() {
			timeouts(f, 1)
			So(f.player.Stop(), ShouldBeNil)

			time.Sleep(80 * time.Millisecond)
			So(f.plugin.Count("request_ads"), ShouldEqual, 1)
		})

		Convey("Destroy should cancel a scheduled retry", func() {
			timeouts(f, 1)
			So(f.player.Destroy(), ShouldBeNil)

			time.Sleep(80 * time.Millisecond)
			So(f.plugin.Count("request_ads"), ShouldEqual, 1)
		})
	})

	Convey("Given one retry with a backoff", t, func() {
		f := newFixture(false, Options{RetryLimit: 1, RetryBackoff: 20 * time.Millisecond})
		So(f.player.Prepare(player.MediaConfig{Source: contentURL}), ShouldBeNil)
		So(f.player.Play(), ShouldBeNil)
		defer func() { _ = f.player.Destroy() }()

		Convey("A timeout while the retry is scheduled should not use it up", func() {
			timeouts(f, 2)
			So(f.player.State(), ShouldEqual, StateWaitingForPrepare)
			So(eventually(func() bool { return f.plugin.Count("request_ads") == 2 }, time.Second), ShouldBeTrue)

			time.Sleep(60 * time.Millisecond)
			So(f.plugin.Count("request_ads"), ShouldEqual, 2)
			So(f.player.State(), ShouldEqual, StateWaitingForPrepare)

			Convey("And the next timeout should fall back", func() {
				timeouts(f, 1)
				So(f.player.State(), ShouldEqual, StatePrepared)
				So(f.engine.Names(), ShouldResemble, []string{"prepare", "play"})
			})
		})
	})
}
