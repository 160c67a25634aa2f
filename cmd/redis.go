package cmd

import (
	"fmt"

	"mirdata/cache"

	"github.com/spf13/cobra"
)

var redisCmd = &cobra.Command{
	Use:   "redis",
	Short: "Test the Redis checksum cache connection",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Redis: %s:%s, DB: %d\n", cfg.RedisHost, cfg.RedisPort, cfg.RedisDB)

		if err := cache.ConnectRedis(cfg); err != nil {
			return err
		}
		fmt.Fprintln(out, "Connected.")

		if err := cache.TestRedis(); err != nil {
			return err
		}
		fmt.Fprintln(out, "Read/write test passed.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(redisCmd)
}
