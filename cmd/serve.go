package cmd

import (
	"mirdata/logger"
	"mirdata/repository"
	"mirdata/server"

	"github.com/spf13/cobra"
)

var serveHistory bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dataset browsing API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var runs repository.ValidationRepository
		if serveHistory {
			var err error
			if runs, err = openHistory(); err != nil {
				return err
			}
		} else {
			logger.Info("validation history disabled, start with --history to enable it")
		}
		return server.Start(":"+cfg.ServerPort, server.NewHandler(openDataset, runs))
	},
}

func init() {
	serveCmd.Flags().BoolVar(&serveHistory, "history", false, "record and serve validation runs from the database")
	rootCmd.AddCommand(serveCmd)
}
