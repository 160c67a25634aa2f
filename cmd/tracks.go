package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var randomTrack bool

var tracksCmd = &cobra.Command{
	Use:   "tracks <dataset> [track-id]",
	Short: "List track ids, or show the files of one track",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		d, err := openDataset(args[0])
		if err != nil {
			return err
		}

		if len(args) == 1 && !randomTrack {
			ids, err := d.TrackIDs()
			if err != nil {
				return err
			}
			for _, id := range ids {
				fmt.Fprintln(out, id)
			}
			return nil
		}

		var id string
		if len(args) == 2 {
			id = args[1]
		} else {
			t, err := d.ChooseTrack(nil)
			if err != nil {
				return err
			}
			id = t.ID
		}
		t, err := d.Track(id)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, t)
		for _, role := range t.Roles() {
			fmt.Fprintf(out, "  %-10s %s\n", role, t.Path(role))
		}
		if md, err := t.Metadata(); err != nil {
			fmt.Fprintf(out, "  metadata unavailable: %v\n", err)
		} else if md != nil {
			fmt.Fprintf(out, "  metadata: %+v\n", md)
		}
		return nil
	},
}

func init() {
	tracksCmd.Flags().BoolVar(&randomTrack, "random", false, "show a randomly chosen track")
	rootCmd.AddCommand(tracksCmd)
}
