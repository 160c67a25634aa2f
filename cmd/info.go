package cmd

import (
	"fmt"

	"mirdata/datasets"

	"github.com/spf13/cobra"
)

var showCitation bool

var infoCmd = &cobra.Command{
	Use:   "info [dataset]",
	Short: "List the available datasets or describe one",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if len(args) == 0 {
			for _, name := range datasets.Names() {
				fmt.Fprintln(out, name)
			}
			return nil
		}

		d, err := openDataset(args[0])
		if err != nil {
			return err
		}
		fmt.Fprint(out, d)
		if ids, err := d.TrackIDs(); err == nil {
			fmt.Fprintf(out, "Tracks: %d\n", len(ids))
		} else {
			fmt.Fprintf(out, "Tracks: index unavailable (%v)\n", err)
		}
		if showCitation {
			fmt.Fprintf(out, "\n%s\n", d.Cite())
		}
		return nil
	},
}

func init() {
	infoCmd.Flags().BoolVar(&showCitation, "cite", false, "print the BibTeX citation")
	rootCmd.AddCommand(infoCmd)
}
