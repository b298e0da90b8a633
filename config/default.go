// Package config provides centralized management for application settings, defaults, and the Viper-based configuration engine.
package config

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/anisan-cli/adplay/color"
	"github.com/anisan-cli/adplay/constant"
	"github.com/anisan-cli/adplay/key"
	"github.com/anisan-cli/adplay/style"
	"github.com/samber/lo"
	"github.com/spf13/viper"
)

// Field represents a configuration field definition.
type Field struct {
	Key         string
	Value       any
	Description string
}

// Pretty returns a colored string representation of the field for display.
func (f *Field) Pretty() string {
	var b strings.Builder
	lo.Must0(prettyTemplate.Execute(&b, f))
	return b.String()
}

// Env returns the environment variable name for this field.
func (f *Field) Env() string {
	env := strings.ToUpper(EnvKeyReplacer.Replace(f.Key))
	prefix := strings.ToUpper(constant.Adplay + "_")
	if strings.HasPrefix(env, prefix) {
		return env
	}
	return prefix + env
}

// MarshalJSON customizes JSON output to include current and default values.
func (f *Field) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Key         string `json:"key"`
		Value       any    `json:"value"`
		Default     any    `json:"default"`
		Description string `json:"description"`
		Type        string `json:"type"`
	}{
		Key:         f.Key,
		Value:       viper.Get(f.Key),
		Default:     f.Value,
		Description: f.Description,
		Type:        f.typeName(),
	})
}

// typeName returns the string representation of the field's underlying value type.
func (f *Field) typeName() string {
	switch f.Value.(type) {
	case string:
		return "string"
	case int:
		return "int"
	case bool:
		return "bool"
	case []string:
		return "[]string"
	case []int:
		return "[]int"
	case time.Duration:
		return "duration"
	default:
		return "unknown"
	}
}

// Parse converts command line values into the type of the field's default.
func (f *Field) Parse(values []string) (any, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("%s: value is required", f.Key)
	}

	switch f.Value.(type) {
	case string:
		return values[0], nil
	case int:
		n, err := strconv.Atoi(values[0])
		if err != nil {
			return nil, fmt.Errorf("%s: invalid integer value %q", f.Key, values[0])
		}
		return n, nil
	case bool:
		b, err := strconv.ParseBool(values[0])
		if err != nil {
			return nil, fmt.Errorf("%s: invalid boolean value %q", f.Key, values[0])
		}
		return b, nil
	case time.Duration:
		d, err := time.ParseDuration(values[0])
		if err != nil {
			return nil, fmt.Errorf("%s: invalid duration %q", f.Key, values[0])
		}
		if d < 0 {
			return nil, fmt.Errorf("%s: duration must not be negative", f.Key)
		}
		return d, nil
	case []string:
		return values, nil
	default:
		return nil, fmt.Errorf("%s: unsupported type %s", f.Key, f.typeName())
	}
}

// Default holds the map of all configuration fields.
var Default = make(map[string]Field)

// EnvExposed holds keys that are bound to environment variables.
var EnvExposed []string

func init() {
	register := func(k string, v any, desc string) {
		if _, exists := Default[k]; exists {
			panic("Duplicate config key: " + k)
		}
		Default[k] = Field{Key: k, Value: v, Description: desc}
		EnvExposed = append(EnvExposed, k)
	}

	register(key.AdsRetryLimit, 5, "How many times a timed out ad request is retried\nbefore playback falls back to content only")
	register(key.AdsRetryBackoff, time.Duration(0), "Initial delay between ad request retries (e.g. 500ms, 2s).\nGrows exponentially, 0s retries immediately")
	register(key.AdsRequestTimeout, 8*time.Second, "Deadline for loading the stitched stream manifest")
	register(key.AdsStartWithPreroll, true, "Always show the preroll, even when starting from a saved position")
	register(key.Player, "mpv", "Content engine to use. Only mpv is supported")
	register(key.PlayerResumeThreshold, 5, "Saved positions below this many seconds are not resumed")
	register(key.HistorySaveOnExit, true, "Save the content position when playback ends")
	register(key.LogsWrite, false, "Write logs")
	register(key.LogsLevel, "info", "Available options are: (from less to most verbose)\npanic, fatal, error, warn, info, debug, trace")
	register(key.LogsJson, false, "Use json format for logs")
	register(key.CliColored, true, "Enable colored CLI output")
	register(key.IconsVariant, "plain", "Icons variant.\nAvailable options are: emoji, kaomoji, plain, squares, nerd (nerd-font required)")
	register(key.MetricsAddr, "", "Address to serve Prometheus metrics on while playing (e.g. :9090).\nEmpty disables the endpoint")
}

var prettyTemplate = lo.Must(template.New("pretty").Funcs(template.FuncMap{
	"faint":    style.Faint,
	"bold":     style.Bold,
	"purple":   style.Fg(color.Purple),
	"blue":     style.Fg(color.Blue),
	"cyan":     style.Fg(color.Cyan),
	"value":    func(k string) any { return viper.Get(k) },
	"typename": func(v any) string { return reflect.TypeOf(v).String() },
	"hl": func(v any) string {
		switch value := v.(type) {
		case bool:
			b := strconv.FormatBool(value)
			if value {
				return style.Fg(color.Green)(b)
			}
			return style.Fg(color.Red)(b)
		case string:
			return style.Fg(color.Yellow)(value)
		case time.Duration:
			return style.Fg(color.Cyan)(value.String())
		default:
			return fmt.Sprint(value)
		}
	},
}).Parse(`{{ faint .Description }}
{{ blue "Key:" }}     {{ purple .Key }}
{{ blue "Env:" }}     {{ .Env }}
{{ blue "Value:" }}   {{ hl (value .Key) }}
{{ blue "Default:" }} {{ hl (.Value) }}
{{ blue "Type:" }}    {{ typename .Value }}`))
