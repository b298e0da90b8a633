package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/anisan-cli/adplay/color"
	"github.com/anisan-cli/adplay/cuepoint"
	"github.com/anisan-cli/adplay/dai"
	"github.com/anisan-cli/adplay/style"
	"github.com/anisan-cli/adplay/util"
	"github.com/invopop/jsonschema"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(cuesCmd)
	cuesCmd.Flags().BoolP("json", "j", false, "Format the output as JSON")
	cuesCmd.Flags().Bool("schema", false, "Print the JSON Schema of the --json output and exit")
	cuesCmd.Flags().StringToString("header", nil, "HTTP header sent with the manifest request (key=value)")
	cuesCmd.SetOut(os.Stdout)
}

// cueRow is one break as printed by the cues command.
type cueRow struct {
	Position float64 `json:"position" jsonschema:"description=Content position of the break in seconds."`
	Start    float64 `json:"start" jsonschema:"description=Stream time the break starts at."`
	End      float64 `json:"end" jsonschema:"description=Stream time the break ends at."`
	Duration float64 `json:"duration"`
	Kind     string  `json:"kind" jsonschema:"enum=preroll,enum=midroll,enum=postroll"`
	ID       string  `json:"id,omitempty" jsonschema:"description=SCTE-35 event id when the manifest declares one."`
}

func cueRows(m dai.Manifest) []cueRow {
	timeline := dai.NewTimeline(m.CuePoints)
	ids := lo.SliceToMap(m.Markers, func(mk dai.Marker) (float64, string) { return mk.Start, mk.ID })

	return lo.Map(m.CuePoints.All(), func(c cuepoint.CuePoint, _ int) cueRow {
		return cueRow{
			Position: timeline.ContentTime(c.Start),
			Start:    c.Start,
			End:      c.End,
			Duration: c.Duration(),
			Kind:     c.Kind().String(),
			ID:       ids[c.Start],
		}
	})
}

func cueSchema() *jsonschema.Schema {
	reflector := new(jsonschema.Reflector)
	reflector.Anonymous = true
	return reflector.Reflect([]cueRow{})
}

func printCues(w io.Writer, m dai.Manifest) {
	rows := cueRows(m)

	fmt.Fprintf(w, "%s %s of ads in %s of content\n",
		style.Fg(color.Purple)(util.Quantify(len(rows), "break", "breaks")),
		util.FormatSeconds(m.Duration-m.ContentDuration()),
		util.FormatSeconds(m.ContentDuration()),
	)

	for _, r := range rows {
		id := ""
		if r.ID != "" {
			id = style.Faint(" " + r.ID)
		}
		fmt.Fprintf(w, "  %s %s %s%s\n",
			style.Fg(color.Yellow)(fmt.Sprintf("%-8s", r.Kind)),
			style.Bold(util.FormatSeconds(r.Position)),
			style.Faint(fmt.Sprintf("stream %s-%s", util.FormatSeconds(r.Start), util.FormatSeconds(r.End))),
			id,
		)
	}
}

var cuesCmd = &cobra.Command{
	Use:   "cues <manifest>",
	Short: "List the ad breaks of a stitched stream",
	Long:  "Load a stitched HLS media playlist and list its ad breaks with their content and stream positions.",
	Args: func(cmd *cobra.Command, args []string) error {
		if lo.Must(cmd.Flags().GetBool("schema")) {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.ExactArgs(1)(cmd, args)
	},
	Run: func(cmd *cobra.Command, args []string) {
		if lo.Must(cmd.Flags().GetBool("schema")) {
			handleErr(json.NewEncoder(cmd.OutOrStdout()).Encode(cueSchema()))
			return
		}

		cfg := dai.ConfigFromViper(args[0])
		cfg.Headers = lo.Must(cmd.Flags().GetStringToString("header"))

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		manifest, err := dai.Load(ctx, cfg)
		handleErr(err)

		if lo.Must(cmd.Flags().GetBool("json")) {
			encoder := json.NewEncoder(cmd.OutOrStdout())
			lo.Must0(encoder.Encode(cueRows(manifest)))
			return
		}

		printCues(cmd.OutOrStdout(), manifest)
	},
}
