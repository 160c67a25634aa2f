package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"mirdata/core/dataset"

	"github.com/spf13/cobra"
)

var (
	partialRemotes  []string
	forceDownload   bool
	cleanupArchives bool
)

var downloadCmd = &cobra.Command{
	Use:   "download <dataset>",
	Short: "Download and unpack the dataset into the data home",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDataset(args[0])
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return d.Download(ctx, dataset.DownloadOptions{
			Partial: partialRemotes,
			Force:   forceDownload,
			Cleanup: cleanupArchives,
		})
	},
}

func init() {
	downloadCmd.Flags().StringSliceVar(&partialRemotes, "partial", nil, "only download these remotes")
	downloadCmd.Flags().BoolVar(&forceDownload, "force", false, "download files again even if they exist")
	downloadCmd.Flags().BoolVar(&cleanupArchives, "cleanup", false, "remove archives after unpacking")
	rootCmd.AddCommand(downloadCmd)
}
