package config

import (
	"testing"
	"time"

	"github.com/anisan-cli/adplay/filesystem"
	"github.com/anisan-cli/adplay/key"
	"github.com/samber/lo"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/spf13/viper"
)

func init() {
	filesystem.SetMemMapFs()
}

func TestSetup(t *testing.T) {
	Convey("Config Setup", t, func() {
		Convey("Should initialize without error", func() {
			So(Setup(), ShouldBeNil)
		})

		Convey("Should have default values populated", func() {
			_ = Setup()
			for name := range Default {
				So(viper.Get(name), ShouldNotBeNil)
			}
		})

		Convey("Should expose ad retry defaults", func() {
			_ = Setup()
			So(viper.GetInt(key.AdsRetryLimit), ShouldEqual, 5)
			So(viper.GetDuration(key.AdsRetryBackoff), ShouldEqual, time.Duration(0))
			So(viper.GetDuration(key.AdsRequestTimeout), ShouldEqual, 8*time.Second)
			So(viper.GetBool(key.AdsStartWithPreroll), ShouldBeTrue)
		})

		Convey("EnvKeyReplacer should convert dots to underscores", func() {
			So(EnvKeyReplacer.Replace("ads.retry_limit"), ShouldEqual, "ads_retry_limit")
		})
	})
}

func TestField(t *testing.T) {
	Convey("Given a registered field", t, func() {
		field := Default[key.AdsRetryLimit]

		Convey("Env should carry the application prefix", func() {
			So(field.Env(), ShouldEqual, "ADPLAY_ADS_RETRY_LIMIT")
		})

		Convey("MarshalJSON should report the value type", func() {
			b, err := field.MarshalJSON()
			So(err, ShouldBeNil)
			So(string(b), ShouldContainSubstring, `"type":"int"`)
		})
	})
}

func TestParse(t *testing.T) {
	Convey("Given fields of each type", t, func() {
		limit := Default[key.AdsRetryLimit]
		backoff := Default[key.AdsRetryBackoff]
		preroll := Default[key.AdsStartWithPreroll]
		level := Default[key.LogsLevel]

		Convey("Valid values should be converted", func() {
			So(lo.Must(limit.Parse([]string{"3"})), ShouldEqual, 3)
			So(lo.Must(backoff.Parse([]string{"250ms"})), ShouldEqual, 250*time.Millisecond)
			So(lo.Must(preroll.Parse([]string{"false"})), ShouldEqual, false)
			So(lo.Must(level.Parse([]string{"debug"})), ShouldEqual, "debug")
		})

		Convey("Invalid values should be rejected", func() {
			_, err := limit.Parse([]string{"three"})
			So(err, ShouldNotBeNil)

			_, err = backoff.Parse([]string{"-1s"})
			So(err, ShouldNotBeNil)

			_, err = preroll.Parse(nil)
			So(err, ShouldNotBeNil)
		})

		Convey("Durations should report their type", func() {
			b, err := backoff.MarshalJSON()
			So(err, ShouldBeNil)
			So(string(b), ShouldContainSubstring, `"type":"duration"`)
		})
	})
}
