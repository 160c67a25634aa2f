package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"mirdata/core/dataset"
	"mirdata/core/watch"
	"mirdata/db"
	"mirdata/logger"
	"mirdata/model"
	"mirdata/repository"

	"github.com/spf13/cobra"
)

var (
	watchDataHome bool
	recordRun     bool
	verbose       bool
)

var validateCmd = &cobra.Command{
	Use:   "validate <dataset>",
	Short: "Check the files under the data home against the dataset index",
	Long: `validate reports indexed files that are missing from the data home and
files whose md5 checksum does not match the index. With --watch it keeps
running and re-validates whenever files under the data home change.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDataset(args[0])
		if err != nil {
			return err
		}

		var runs repository.ValidationRepository
		if recordRun {
			if runs, err = openHistory(); err != nil {
				return err
			}
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		check := func() error {
			report, err := runValidation(ctx, d, runs)
			if err != nil {
				return err
			}
			printReport(cmd.OutOrStdout(), report, verbose)
			return nil
		}
		if err := check(); err != nil {
			return err
		}
		if !watchDataHome {
			return nil
		}

		w := watch.New(d.DataHome(), 0)
		return w.Run(ctx, func(paths []string) {
			logger.Info("data home changed, validating again", logger.Int("changed", len(paths)))
			if err := check(); err != nil {
				logger.Error("validation failed", logger.ErrorField(err))
			}
		})
	},
}

func init() {
	validateCmd.Flags().BoolVar(&watchDataHome, "watch", false, "re-validate when files under the data home change")
	validateCmd.Flags().BoolVar(&recordRun, "record", false, "store the result in the validation history database")
	validateCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "list every missing or invalid file")
	rootCmd.AddCommand(validateCmd)
}

// openHistory connects the validation history database and migrates it.
func openHistory() (repository.ValidationRepository, error) {
	if db.GormDB == nil {
		if err := db.ConnectGormDB(cfg); err != nil {
			return nil, err
		}
		if err := db.AutoMigrate(); err != nil {
			return nil, err
		}
	}
	return repository.NewGormValidationRepository(db.GormDB), nil
}

func runValidation(ctx context.Context, d *dataset.Dataset, runs repository.ValidationRepository) (*dataset.Report, error) {
	started := time.Now()
	report, err := d.Validate(ctx)
	if err != nil {
		return nil, err
	}
	if runs != nil {
		run := model.NewValidationRun(d, report, started, time.Now())
		if err := runs.Save(ctx, run); err != nil {
			return nil, fmt.Errorf("failed to record validation run: %w", err)
		}
		logger.Info("validation run recorded", logger.String("run", run.ID))
	}
	return report, nil
}

func printReport(out io.Writer, report *dataset.Report, verbose bool) {
	if report.OK() {
		fmt.Fprintln(out, "Success: the dataset is complete and all files are valid.")
		return
	}
	fmt.Fprintf(out, "%d missing files, %d invalid checksums\n", len(report.Missing), len(report.InvalidChecksums))
	if !verbose {
		fmt.Fprintln(out, "Run with --verbose to list them.")
		return
	}

	byTrack := report.ByTrack()
	ids := make([]string, 0, len(byTrack))
	for id := range byTrack {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		name := id
		if name == "" {
			name = "(metadata)"
		}
		issues := byTrack[id]
		for _, role := range sortedKeys(issues.Missing) {
			fmt.Fprintf(out, "missing  %s %s: %s\n", name, role, issues.Missing[role])
		}
		for _, role := range sortedKeys(issues.InvalidChecksums) {
			fmt.Fprintf(out, "invalid  %s %s: %s\n", name, role, issues.InvalidChecksums[role])
		}
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
