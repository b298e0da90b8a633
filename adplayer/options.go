package adplayer

import (
	"time"

	"github.com/anisan-cli/adplay/key"
	"github.com/anisan-cli/adplay/lifecycle"
	"github.com/spf13/viper"
)

// DefaultRetryLimit is the number of times a timed out ad request is retried.
const DefaultRetryLimit = 5

// Options configure a Player.
type Options struct {
	// Observer receives host-facing playback events. Nil means NopObserver.
	Observer Observer

	// Lifecycle, when set, is subscribed to at construction and released by Destroy.
	Lifecycle *lifecycle.Notifier

	// RetryLimit bounds retries of timed out ad requests per Prepare.
	// Zero means DefaultRetryLimit, a negative value disables retries.
	RetryLimit int

	// RetryBackoff is the initial delay before a retry. Zero retries immediately.
	RetryBackoff time.Duration

	// OnTransition is called after every state change, outside of any lock.
	OnTransition func(from, to State)
}

// OptionsFromConfig reads the retry settings from the configuration.
func OptionsFromConfig() Options {
	return Options{
		RetryLimit:   viper.GetInt(key.AdsRetryLimit),
		RetryBackoff: viper.GetDuration(key.AdsRetryBackoff),
	}
}

func (o Options) retryLimit() int {
	switch {
	case o.RetryLimit == 0:
		return DefaultRetryLimit
	case o.RetryLimit < 0:
		return 0
	default:
		return o.RetryLimit
	}
}
