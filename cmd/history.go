package cmd

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"mirdata/model"

	"github.com/spf13/cobra"
)

var (
	historyLimit int
	historyRun   string
)

var historyCmd = &cobra.Command{
	Use:   "history <dataset>",
	Short: "Show recorded validation runs of a dataset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		runs, err := openHistory()
		if err != nil {
			return err
		}
		if historyRun != "" {
			run, err := runs.GetByID(context.Background(), historyRun)
			if err != nil {
				return err
			}
			if run == nil || run.Dataset != args[0] {
				return fmt.Errorf("no validation run %s for %s", historyRun, args[0])
			}
			return printRun(cmd.OutOrStdout(), run)
		}

		list, err := runs.ListByDataset(context.Background(), args[0], historyLimit)
		if err != nil {
			return err
		}
		if len(list) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "no validation runs recorded for %s\n", args[0])
			return nil
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "RUN\tSTARTED\tVERSION\tMISSING\tINVALID\tOK")
		for _, r := range list {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%v\n",
				r.ID, r.StartedAt.Format("2006-01-02 15:04:05"), r.Version, r.Missing, r.InvalidChecksums, r.OK)
		}
		return tw.Flush()
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "number of runs to show")
	historyCmd.Flags().StringVar(&historyRun, "run", "", "show the files reported by this run")
	rootCmd.AddCommand(historyCmd)
}

func printRun(out io.Writer, run *model.ValidationRun) error {
	fmt.Fprintf(out, "Run %s of %s %s at %s\n", run.ID, run.Dataset, run.Version, run.StartedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(out, "Data home: %s\n", run.DataHome)
	if len(run.Issues) == 0 {
		fmt.Fprintln(out, "No missing or invalid files.")
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tTRACK\tROLE\tPATH")
	for _, is := range run.Issues {
		track := is.TrackID
		if track == "" {
			track = "(metadata)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", is.Kind, track, is.Role, is.Path)
	}
	return tw.Flush()
}
