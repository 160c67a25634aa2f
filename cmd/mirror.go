package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mirdata/core/download"

	"github.com/spf13/cobra"
)

var mirrorPrefix string

var mirrorCmd = &cobra.Command{
	Use:   "mirror <bucket>",
	Short: "List the files held by the S3 mirror",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := download.NewMinioClient(cfg)
		if err != nil {
			return err
		}
		if client == nil {
			return errors.New("MINIO_ENDPOINT is not set")
		}

		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		objects, stats, err := download.ListMirror(ctx, client, args[0], mirrorPrefix)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, obj := range objects {
			fmt.Fprintf(out, "%10s  %s  %s\n", download.FormatSize(obj.Size), obj.LastModified.Format("2006-01-02 15:04"), obj.Key)
		}
		fmt.Fprintf(out, "%d objects, %s", stats.Objects, download.FormatSize(stats.Size))
		if stats.Objects > 0 {
			fmt.Fprintf(out, ", last modified %s", stats.LastModified.Format("2006-01-02 15:04:05"))
		}
		fmt.Fprintln(out)
		return nil
	},
}

func init() {
	mirrorCmd.Flags().StringVar(&mirrorPrefix, "prefix", "", "only list keys under this prefix")
	rootCmd.AddCommand(mirrorCmd)
}
