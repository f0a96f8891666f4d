package flakeratecomputer

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"k8s.io/utils/clock"

	"github.com/kubernetes/minikube/pkg/flakechart/flakechartlib"
)

type computeFlakeRatesFlags struct {
	DataSource *flakechartlib.DataSourceFlags

	DateRange int
	Output    string
}

func newComputeFlakeRatesFlags() *computeFlakeRatesFlags {
	return &computeFlakeRatesFlags{
		DataSource: flakechartlib.NewDataSourceFlags(),
		DateRange:  flakechartlib.DefaultFlakeRateDateRange,
	}
}

func (f *computeFlakeRatesFlags) BindFlags(fs *pflag.FlagSet) {
	f.DataSource.BindFlags(fs)

	fs.IntVar(&f.DateRange, "date-range", f.DateRange, "number of most recent test dates considered per environment and test")
	fs.StringVar(&f.Output, "output", f.Output, "where to write the flake rate CSV: - for stdout, a gs://bucket/object location or a local path")
}

func NewComputeFlakeRatesCommand() *cobra.Command {
	f := newComputeFlakeRatesFlags()

	cmd := &cobra.Command{
		Use:          "compute-flake-rates",
		Long:         `Compute the recent flake rate and average duration of every test of every environment`,
		SilenceUsage: true,

		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			if err := f.Validate(); err != nil {
				logrus.WithError(err).Fatal("Flags are invalid")
			}
			o, err := f.ToOptions(ctx)
			if err != nil {
				logrus.WithError(err).Fatal("Failed to build runtime options")
			}

			if err := o.Run(ctx); err != nil {
				logrus.WithError(err).Fatal("Command failed")
			}

			return nil
		},

		Args: flakechartlib.NoArgs,
	}

	f.BindFlags(cmd.Flags())

	return cmd
}

// Validate checks to see if the user-input is likely to produce functional runtime options
func (f *computeFlakeRatesFlags) Validate() error {
	if err := f.DataSource.Validate(); err != nil {
		return err
	}
	if f.DateRange <= 0 {
		return fmt.Errorf("--date-range must be positive")
	}
	return nil
}

func (f *computeFlakeRatesFlags) ToOptions(ctx context.Context) (*ComputeFlakeRatesOptions, error) {
	fs := afero.NewOsFs()
	logger := logrus.WithField("component", "compute-flake-rates")
	load, err := f.DataSource.NewLoader(ctx, fs, clock.RealClock{}, logger)
	if err != nil {
		return nil, err
	}
	sink, err := flakechartlib.NewDataSink(ctx, f.Output, os.Stdout, fs, "text/csv", f.DataSource.Authentication.NewGCSClient)
	if err != nil {
		return nil, err
	}
	return &ComputeFlakeRatesOptions{
		load:      load,
		sink:      sink,
		dateRange: f.DateRange,
		logger:    logger,
	}, nil
}

type ComputeFlakeRatesOptions struct {
	load      flakechartlib.Loader
	sink      flakechartlib.DataSink
	dateRange int
	logger    logrus.FieldLogger
}

func (o *ComputeFlakeRatesOptions) Run(ctx context.Context) error {
	runs, err := o.load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load test runs: %w", err)
	}
	rates := flakechartlib.RecentFlakeRates(runs, o.dateRange)
	if err := flakechartlib.WriteTo(ctx, o.sink, func(w io.Writer) error {
		return flakechartlib.WriteFlakeRatesCSV(w, rates)
	}); err != nil {
		return err
	}
	o.logger.WithFields(logrus.Fields{"tests": len(rates), "output": o.sink.String()}).Info("Wrote flake rates.")
	return nil
}
