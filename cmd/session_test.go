package cmd

import (
	"bytes"
	"errors"
	"testing"

	"github.com/anisan-cli/adplay/key"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/spf13/viper"
)

func TestSessionObserver(t *testing.T) {
	Convey("Given a session observer", t, func() {
		viper.Set(key.IconsVariant, "plain")
		var out bytes.Buffer
		o := newSessionObserver()
		o.out = &out

		Convey("StreamStarted should signal once", func() {
			o.StreamStarted()
			o.StreamStarted()

			_, open := <-o.started
			So(open, ShouldBeFalse)
			So(bytes.Count(out.Bytes(), []byte("stream started")), ShouldEqual, 1)
		})

		Convey("AdPlaying should print the break position", func() {
			o.AdPlaying(600, 30)
			So(out.String(), ShouldContainSubstring, "ad break at 10:00 (0:30)")
		})

		Convey("PlaybackError should not block on repeated errors", func() {
			first := errors.New("engine gone")
			o.PlaybackError(first)
			o.PlaybackError(errors.New("second"))

			So(<-o.errs, ShouldEqual, first)
			So(out.String(), ShouldContainSubstring, "engine gone")
		})
	})
}
