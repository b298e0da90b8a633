package cmd

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/anisan-cli/adplay/color"
	"github.com/anisan-cli/adplay/history"
	"github.com/anisan-cli/adplay/icon"
	"github.com/anisan-cli/adplay/style"
	"github.com/anisan-cli/adplay/util"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().StringP("remove", "r", "", "Forget the saved position of a stream")
	historyCmd.Flags().Bool("prune", false, "Drop entries that have not been played for a month")
	historyCmd.MarkFlagsMutuallyExclusive("remove", "prune")
	historyCmd.SetOut(os.Stdout)
}

// matchEntries returns the entries whose source fuzzily matches query, most recent first.
func matchEntries(saved map[string]history.Entry, query string) []history.Entry {
	entries := lo.Filter(lo.Values(saved), func(e history.Entry, _ int) bool {
		return query == "" || fuzzy.MatchFold(query, e.Source)
	})
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Updated.After(entries[j].Updated)
	})
	return entries
}

var historyCmd = &cobra.Command{
	Use:   "history [query]",
	Short: "List saved playback positions",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if source := lo.Must(cmd.Flags().GetString("remove")); source != "" {
			handleErr(history.Remove(source))
			cmd.Printf("%s forgot %s\n", style.Fg(color.Green)(icon.Get(icon.Success)), style.Fg(color.Purple)(source))
			return
		}

		if lo.Must(cmd.Flags().GetBool("prune")) {
			removed, err := history.Prune()
			handleErr(err)
			cmd.Printf("%s pruned %s\n", style.Fg(color.Green)(icon.Get(icon.Success)), util.Quantify(removed, "entry", "entries"))
			return
		}

		saved, err := history.All()
		handleErr(err)

		entries := matchEntries(saved, strings.Join(args, " "))

		if len(entries) == 0 {
			cmd.Println(style.Faint("no saved positions"))
			return
		}

		for _, e := range entries {
			progress := util.FormatSeconds(e.Position)
			if e.Duration > 0 {
				progress = fmt.Sprintf("%s / %s", progress, util.FormatSeconds(e.Duration))
			}
			if e.Finished() {
				progress += style.Faint(" finished")
			}

			cmd.Printf("%s %s\n", style.Fg(color.Purple)(e.Source), progress)
		}
	},
}
