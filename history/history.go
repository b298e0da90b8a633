// Package history persists content positions so playback can resume where it stopped.
package history

import (
	"time"

	"github.com/anisan-cli/adplay/filesystem"
	"github.com/anisan-cli/adplay/key"
	"github.com/anisan-cli/adplay/where"
	"github.com/metafates/gache"
	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/spf13/viper"
)

// TTL is how long an untouched entry is kept.
const TTL = 30 * 24 * time.Hour

// Entry is the saved state of one source. Positions are content time.
type Entry struct {
	Source   string    `json:"source"`
	Position float64   `json:"position"`
	Duration float64   `json:"duration"`
	Updated  time.Time `json:"updated"`
}

// Finished reports whether the entry was watched to the end.
func (e Entry) Finished() bool {
	return e.Duration > 0 && e.Duration-e.Position < viper.GetFloat64(key.PlayerResumeThreshold)
}

var cacher = gache.New[map[string]Entry](
	&gache.Options{
		Path:       where.History(),
		FileSystem: &filesystem.GacheFs{},
	},
)

// All returns every saved entry keyed by source.
func All() (map[string]Entry, error) {
	cached, expired, err := cacher.Get()
	if err != nil {
		return nil, err
	}
	if expired || cached == nil {
		return make(map[string]Entry), nil
	}
	return cached, nil
}

// Save records the content position reached for source.
func Save(source string, position, duration float64) error {
	saved, err := All()
	if err != nil {
		return err
	}

	saved[source] = Entry{
		Source:   source,
		Position: position,
		Duration: duration,
		Updated:  time.Now(),
	}
	return cacher.Set(saved)
}

// Get returns the position playback of source should resume from.
// Positions under player.resume_threshold and finished entries are not resumed.
func Get(source string) (mo.Option[float64], error) {
	saved, err := All()
	if err != nil {
		return mo.None[float64](), err
	}

	entry, ok := saved[source]
	if !ok || entry.Finished() || entry.Position < viper.GetFloat64(key.PlayerResumeThreshold) {
		return mo.None[float64](), nil
	}
	return mo.Some(entry.Position), nil
}

// Remove forgets source.
func Remove(source string) error {
	saved, err := All()
	if err != nil {
		return err
	}

	delete(saved, source)
	return cacher.Set(saved)
}

// Prune drops entries not updated within TTL and returns how many were removed.
func Prune() (int, error) {
	saved, err := All()
	if err != nil {
		return 0, err
	}

	stale := lo.PickBy(saved, func(_ string, e Entry) bool { return time.Since(e.Updated) > TTL })
	if len(stale) == 0 {
		return 0, nil
	}

	return len(stale), cacher.Set(lo.OmitByKeys(saved, lo.Keys(stale)))
}
