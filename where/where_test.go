package where

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/anisan-cli/adplay/filesystem"
	"github.com/samber/lo"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	filesystem.SetMemMapFs()
}

func TestPaths(t *testing.T) {
	Convey("Path functions", t, func() {
		Convey("Config() should create the directory", func() {
			path := Config()
			So(path, ShouldNotBeEmpty)
			So(lo.Must(filesystem.API().IsDir(path)), ShouldBeTrue)
		})

		Convey("Config() should honour the override", func() {
			custom := filepath.Join(os.TempDir(), "adplay-where-test")
			t.Setenv(EnvConfigPath, custom)
			So(Config(), ShouldEqual, custom)
		})

		Convey("Logs() should live under the config directory", func() {
			path := Logs()
			So(filepath.Dir(path), ShouldEqual, Config())
			So(lo.Must(filesystem.API().IsDir(path)), ShouldBeTrue)
		})

		Convey("History() should be a file under the cache directory", func() {
			So(filepath.Dir(History()), ShouldEqual, Cache())
		})
	})
}
