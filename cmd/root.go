// Package cmd implements the command-line interface for adplay.
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/anisan-cli/adplay/color"
	"github.com/anisan-cli/adplay/constant"
	"github.com/anisan-cli/adplay/icon"
	"github.com/anisan-cli/adplay/key"
	"github.com/anisan-cli/adplay/log"
	"github.com/anisan-cli/adplay/style"
	"github.com/anisan-cli/adplay/util"
	"github.com/anisan-cli/adplay/where"
	cc "github.com/ivanpirog/coloredcobra"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.Flags().BoolP("version", "v", false, "Print the application version")

	rootCmd.PersistentFlags().StringP("icons", "I", "", "Set the visual icon variant (e.g., nerd, emoji, squares)")
	lo.Must0(rootCmd.RegisterFlagCompletionFunc("icons", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return icon.AvailableVariants(), cobra.ShellCompDirectiveDefault
	}))
	lo.Must0(viper.BindPFlag(key.IconsVariant, rootCmd.PersistentFlags().Lookup("icons")))

	rootCmd.PersistentFlags().BoolP("write-history", "H", true, "Save the content position when playback ends")
	lo.Must0(viper.BindPFlag(key.HistorySaveOnExit, rootCmd.PersistentFlags().Lookup("write-history")))

	// Sockets left behind by an mpv that did not exit cleanly.
	go func() {
		_ = util.Delete(where.Temp())
	}()
}

var rootCmd = &cobra.Command{
	Use:   constant.Adplay,
	Short: "Play stitched HLS streams with ad break aware seeking",
	Long: constant.AsciiArtLogo + "\n" +
		style.New().Italic(true).Foreground(color.HiRed).Render("    - Play stitched HLS streams with ad break aware seeking"),
	Run: func(cmd *cobra.Command, args []string) {
		if cmd.Flags().Changed("version") {
			versionCmd.Run(versionCmd, args)
			return
		}

		handleErr(cmd.Help())
	},
}

// Execute initializes child command routing and processes the CLI entry point.
func Execute() {
	if viper.GetBool(key.CliColored) {
		cc.Init(&cc.Config{
			RootCmd:       rootCmd,
			Headings:      cc.HiCyan + cc.Bold + cc.Underline,
			Commands:      cc.HiYellow + cc.Bold,
			Example:       cc.Italic,
			ExecName:      cc.Bold,
			Flags:         cc.Bold,
			FlagsDataType: cc.Italic + cc.HiBlue,
		})
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func handleErr(err error) {
	if err != nil {
		log.Error(err)
		_, _ = fmt.Fprintf(os.Stderr, "%s %s\n", icon.Get(icon.Fail), strings.Trim(err.Error(), " \n"))
		os.Exit(1)
	}
}
