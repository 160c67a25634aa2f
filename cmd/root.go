package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"mirdata/cache"
	"mirdata/config"
	"mirdata/core/audio"
	"mirdata/core/dataset"
	"mirdata/core/download"
	"mirdata/datasets"
	"mirdata/db"
	"mirdata/logger"

	"github.com/spf13/cobra"
)

var (
	cfg *config.Config

	dataHome     string
	indexVersion string
	logLevel     string
	showProgress bool
	redisCache   bool
)

var rootCmd = &cobra.Command{
	Use:   "mirdata",
	Short: "mirdata loads, validates and converts music information retrieval datasets.",
	Long: `mirdata gives uniform access to MIR datasets: it resolves each dataset's
track index, checks the files on disk against it, downloads what can be
downloaded and converts annotations to JAMS.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg = config.Load()
		if logLevel != "" {
			cfg.LogLevel = logLevel
		}
		logger.InitLogger(logger.Config{
			Level:      logger.LogLevel(cfg.LogLevel),
			OutputPath: cfg.LogFile,
			MaxSize:    cfg.LogMaxSizeMB,
			MaxBackups: cfg.LogMaxBackups,
			MaxAge:     cfg.LogMaxAgeDays,
			Compress:   true,
		})
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dataHome, "data-home", "", "dataset directory (default $MIRDATA_HOME/<dataset>)")
	rootCmd.PersistentFlags().StringVar(&indexVersion, "index-version", "", "index version to use (default: the dataset default)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error (default $LOG_LEVEL)")
	rootCmd.PersistentFlags().BoolVar(&showProgress, "progress", false, "draw progress bars on stderr")
	rootCmd.PersistentFlags().BoolVar(&redisCache, "redis-cache", false, "cache file checksums in Redis")
}

// openDataset builds the named dataset from the command line flags and the
// environment configuration.
func openDataset(name string) (*dataset.Dataset, error) {
	home := dataHome
	if home == "" {
		home = filepath.Join(cfg.DataHome, name)
	}
	opts := []dataset.Option{
		dataset.WithDataHome(home),
		dataset.WithAudioLoader(audio.NewFFmpegLoader(cfg.FFmpegPath)),
	}
	if indexVersion != "" {
		opts = append(opts, dataset.WithVersion(indexVersion))
	}
	if showProgress {
		opts = append(opts, dataset.WithProgress(os.Stderr))
	}

	s3, err := download.NewMinioClient(cfg)
	if err != nil {
		logger.Warn("S3 mirror unavailable, s3:// remotes are disabled", logger.ErrorField(err))
	}
	opts = append(opts, dataset.WithDownloader(download.New(s3)))

	if redisCache {
		if cache.RedisClient == nil {
			if err := cache.ConnectRedis(cfg); err != nil {
				return nil, err
			}
		}
		opts = append(opts, dataset.WithChecksumCache(cache.NewChecksumCache(cache.RedisClient, 0)))
	}

	return datasets.Load(name, opts...)
}

// Execute executes the root command.
func Execute() {
	err := rootCmd.Execute()
	cache.CloseRedis()
	db.CloseGormDB()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
