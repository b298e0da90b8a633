// Package icon renders the status symbols printed by the CLI.
//
// Icons can be displayed as emoji, nerd-font glyphs, plain ASCII, kaomoji,
// or Unicode squares depending on user preference.
package icon

import (
	"github.com/anisan-cli/adplay/key"
	"github.com/spf13/viper"
)

const (
	emoji   = "emoji"
	nerd    = "nerd"
	plain   = "plain"
	kaomoji = "kaomoji"
	squares = "squares"
)

// AvailableVariants returns every supported icons.variant value.
func AvailableVariants() []string {
	return []string{emoji, nerd, plain, kaomoji, squares}
}

// Icon identifies a symbol.
type Icon int

const (
	Success Icon = iota
	Fail
	Ad
	Content
	Snapback
	Retry
)

type iconDef struct {
	emoji   string
	nerd    string
	plain   string
	kaomoji string
	squares string
}

func (d *iconDef) Get() string {
	switch viper.GetString(key.IconsVariant) {
	case emoji:
		return d.emoji
	case nerd:
		return d.nerd
	case plain:
		return d.plain
	case kaomoji:
		return d.kaomoji
	case squares:
		return d.squares
	default:
		return ""
	}
}

var icons = map[Icon]*iconDef{
	Success:  {emoji: "🎉", nerd: "", plain: "+", kaomoji: "(ᵔ◡ᵔ)", squares: "🟩"},
	Fail:     {emoji: "💀", nerd: "", plain: "x", kaomoji: "(×﹏×)", squares: "🟥"},
	Ad:       {emoji: "📺", nerd: "", plain: "AD", kaomoji: "(◕‿◕)", squares: "🟨"},
	Content:  {emoji: "🎬", nerd: "", plain: ">", kaomoji: "(•̀ᴗ•́)", squares: "🟦"},
	Snapback: {emoji: "⏪", nerd: "", plain: "<<", kaomoji: "(¬‿¬)", squares: "🟪"},
	Retry:    {emoji: "🔁", nerd: "", plain: "~", kaomoji: "(・_・;)", squares: "🟧"},
}

// Get returns i rendered in the configured variant.
func Get(i Icon) string {
	return icons[i].Get()
}
