package cmd

import (
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/anisan-cli/adplay/filesystem"
	"github.com/anisan-cli/adplay/icon"
	"github.com/anisan-cli/adplay/util"
	"github.com/anisan-cli/adplay/where"
	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/spf13/cobra"
)

// clearTarget is a file or directory the clear command can remove.
type clearTarget struct {
	name     string
	argLong  string
	argShort mo.Option[string]
	location func() string
}

var clearTargets = []clearTarget{
	{"cache directory", "cache", mo.Some("c"), where.Cache},
	{"history file", "history", mo.Some("s"), where.History},
	{"logs directory", "logs", mo.Some("l"), where.Logs},
}

func init() {
	rootCmd.AddCommand(clearCmd)
	clearCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")

	for _, target := range clearTargets {
		help := fmt.Sprintf("clear %s", target.name)
		if target.argShort.IsPresent() {
			clearCmd.Flags().BoolP(target.argLong, target.argShort.MustGet(), false, help)
		} else {
			clearCmd.Flags().Bool(target.argLong, false, help)
		}
	}
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear cached and saved application files",
	Run: func(cmd *cobra.Command, args []string) {
		var anyCleared bool

		for _, target := range clearTargets {
			if !lo.Must(cmd.Flags().GetBool(target.argLong)) {
				continue
			}

			anyCleared = true

			if !lo.Must(cmd.Flags().GetBool("yes")) {
				var confirmed bool
				handleErr(survey.AskOne(&survey.Confirm{
					Message: fmt.Sprintf("Clear %s?", target.name),
					Default: false,
				}, &confirmed))
				if !confirmed {
					continue
				}
			}

			erase := util.PrintErasable(fmt.Sprintf("Clearing %s...", target.name))
			err := util.Delete(target.location())
			erase()

			if err != nil {
				exists, _ := filesystem.API().Exists(target.location())
				if exists {
					handleErr(err)
				}
			}
			fmt.Printf("%s %s cleared\n", icon.Get(icon.Success), util.Capitalize(target.name))
		}

		if !anyCleared {
			handleErr(cmd.Help())
		}
	},
}
