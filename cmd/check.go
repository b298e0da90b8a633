package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"github.com/anisan-cli/adplay/icon"
	"github.com/anisan-cli/adplay/key"
	"github.com/anisan-cli/adplay/style"
	"github.com/anisan-cli/adplay/util"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wrap"
	"github.com/spf13/viper"
)

// CheckDependencies exits when the configured content engine is not in PATH.
func CheckDependencies() {
	engine := viper.GetString(key.Player)
	if _, err := exec.LookPath(engine); err != nil {
		printMissingDependencyError(engine)
		os.Exit(1)
	}
}

// boxChrome is the horizontal space taken by the border and padding of the error box.
const boxChrome = 6

func printMissingDependencyError(dep string) {
	var installCmd string
	switch runtime.GOOS {
	case "darwin":
		installCmd = "brew install " + dep
	case "linux":
		installCmd = "sudo apt install " + dep
	case "windows":
		installCmd = "scoop install " + dep
	}

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(style.HiRed).
		Padding(1, 2).
		Margin(1, 0)

	title := style.New().Bold(true).Foreground(style.HiRed).Render(fmt.Sprintf("%s Error: Missing Dependency", icon.Get(icon.Fail)))
	message := fmt.Sprintf("The content engine '%s' was not found in your PATH. Install it or change %s.", dep, key.Player)
	if width := util.TerminalWidth(); width > boxChrome {
		message = wrap.String(message, width-boxChrome)
	}
	body := style.New().Foreground(style.Text).Render(message)

	suggestion := ""
	if installCmd != "" {
		suggestion = fmt.Sprintf("\n\nTo install it, try running:\n  %s", style.New().Foreground(style.AccentColor).Bold(true).Render(installCmd))
	}

	fmt.Println(box.Render(
		lipgloss.JoinVertical(lipgloss.Left,
			title,
			"\n",
			body,
			suggestion,
		),
	))
}
