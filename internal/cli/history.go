package cli

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/lazypower/chronoscope/internal/engine"
)

func (a *app) newHistoryCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recently recorded echoes",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			records, err := db.ListArtifacts(limit)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(w, "No echoes recorded yet. Try: chronoscope echo -e present")
				return nil
			}

			heading(w, "## Recent echoes")
			for _, r := range records {
				flag := ""
				if r.Meta.Unresolved {
					flag = " " + warnStyle.Render("unresolved")
				}
				fmt.Fprintf(w, "  %s  %-5s seed %-20d %s%s  %s\n",
					r.Meta.ID, r.Meta.Kind, r.Meta.Seed,
					strings.Join(r.Meta.Keys(), "+"), flag,
					dimStyle.Render(humanize.Time(r.Meta.CreatedAt)))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of echoes")
	return cmd
}

func (a *app) newReplayCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "replay <id>",
		Short: "Regenerate a recorded echo from its provenance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			rec, err := db.GetArtifact(args[0])
			if err != nil {
				return err
			}
			if rec == nil {
				return fmt.Errorf("echo %s not found", args[0])
			}

			eng, err := a.engine()
			if err != nil {
				return err
			}
			art, err := eng.Replay(cmd.Context(), rec.Meta)
			if err != nil {
				return fmt.Errorf("%s: %w", engine.ErrorKind(err), err)
			}
			if art.Digest() != rec.Digest {
				return fmt.Errorf("%s: replayed buffers differ from the recorded digest", engine.KindProvenance)
			}

			files, err := writeArtifact(out, art)
			if err != nil {
				return err
			}
			printEcho(cmd.OutOrStdout(), art.Meta, files)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", ".", "Directory for the PNG and WAV files")
	return cmd
}

func (a *app) newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show how often each epoch has been tuned into",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			total, err := db.CountArtifacts()
			if err != nil {
				return err
			}
			usage, err := db.EpochUsageStats()
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			heading(w, fmt.Sprintf("%s echoes recorded", humanize.Comma(int64(total))))
			for _, u := range usage {
				fmt.Fprintf(w, "  %-22s %5s  avg weight %.4g\n", u.Key, humanize.Comma(int64(u.Count)), u.AvgWeight)
			}
			return nil
		},
	}
}
