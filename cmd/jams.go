package cmd

import (
	"github.com/spf13/cobra"
)

var jamsOutput string

var jamsCmd = &cobra.Command{
	Use:   "jams <dataset> <track-id>",
	Short: "Convert the annotations of a track to JAMS",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDataset(args[0])
		if err != nil {
			return err
		}
		doc, err := d.JAMS(args[1])
		if err != nil {
			return err
		}
		if jamsOutput == "" {
			return doc.Encode(cmd.OutOrStdout())
		}
		return doc.Save(jamsOutput)
	},
}

func init() {
	jamsCmd.Flags().StringVarP(&jamsOutput, "output", "o", "", "write to this file instead of stdout")
	rootCmd.AddCommand(jamsCmd)
}
