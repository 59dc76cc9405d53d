package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/lazypower/chronoscope/internal/epoch"
)

func (a *app) newEpochsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "epochs [key]",
		Short: "List registered epochs, or show one in detail",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := a.engine()
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()

			if len(args) == 1 {
				e, err := eng.Registry().Lookup(args[0])
				if err != nil {
					return err
				}
				s := epoch.SoundscapeFor(e)
				heading(w, fmt.Sprintf("%s (%s)", e.Label, e.Key))
				if e.Period != "" {
					fmt.Fprintf(w, "  period     %s\n", e.Period)
				}
				if e.Description != "" {
					fmt.Fprintf(w, "  %s\n", dimStyle.Render(e.Description))
				}
				fmt.Fprintf(w, "  distance   %s years\n", humanize.Commaf(e.Distance))
				fmt.Fprintf(w, "  intensity  %.2f\n", e.Intensity)
				fmt.Fprintf(w, "  weight     %.6g\n", eng.Weight(e))
				fmt.Fprintf(w, "  depth      %d/%d\n", e.Depth(), epoch.MaxDepth)
				if len(e.Tags) > 0 {
					fmt.Fprintf(w, "  tags       %s\n", strings.Join(e.Tags, ", "))
				}
				fmt.Fprintf(w, "  audio      lowpass %s Hz, reverb %d%%\n", humanize.Comma(int64(s.LowpassHz)), s.ReverbPct)
				if s.Prompt != "" {
					fmt.Fprintf(w, "  prompt     %s\n", s.Prompt)
				}
				return nil
			}

			tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "KEY\tLABEL\tDISTANCE\tINTENSITY\tWEIGHT\tDEPTH")
			for e := range eng.Registry().All() {
				fmt.Fprintf(tw, "%s\t%s\t%s y\t%.2f\t%.4g\t%d\n",
					e.Key, e.Label, humanize.Commaf(e.Distance), e.Intensity, eng.Weight(e), e.Depth())
			}
			return tw.Flush()
		},
	}
	return cmd
}
