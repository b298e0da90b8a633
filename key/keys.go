// Package key defines the canonical set of configuration identifiers used for centralized settings management.
package key

// Ad Insertion - these keys tune ad requests and the retry supervisor.
const (
	AdsRetryLimit       = "ads.retry_limit"
	AdsRetryBackoff     = "ads.retry_backoff"
	AdsRequestTimeout   = "ads.request_timeout"
	AdsStartWithPreroll = "ads.start_with_preroll"
)

// Media Playback - these keys configure the content engine.
const (
	Player                = "player.default"
	PlayerResumeThreshold = "player.resume_threshold"
)

// History Tracking - these keys configure the persistence of resume positions.
const (
	HistorySaveOnExit = "history.save_on_exit"
)

// Logging Infrastructure - these keys manage the application's internal diagnostics.
const (
	LogsWrite = "logs.write"
	LogsLevel = "logs.level"
	LogsJson  = "logs.json"
)

// CLI Execution Environment.
const (
	CliColored   = "cli.colored"
	IconsVariant = "icons.variant"
)

// Metrics exposition.
const (
	MetricsAddr = "metrics.addr"
)
