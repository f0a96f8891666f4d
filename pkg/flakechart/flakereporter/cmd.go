package flakereporter

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/kubernetes/minikube/pkg/flakechart/flakechartlib"
)

type reportFlakesFlags struct {
	Authentication *flakechartlib.GoogleAuthenticationFlags

	EnvironmentList   string
	PR                string
	RootJob           string
	MaxItems          int
	SummaryLocation   string
	FlakeRateLocation string
	ChartURL          string
	LogsURL           string
	Output            string
}

func newReportFlakesFlags() *reportFlakesFlags {
	return &reportFlakesFlags{
		Authentication:    flakechartlib.NewGoogleAuthenticationFlags(),
		MaxItems:          DefaultMaxItems,
		SummaryLocation:   DefaultSummaryLocation,
		FlakeRateLocation: DefaultFlakeRateLocation,
		ChartURL:          DefaultChartURL,
		LogsURL:           DefaultLogsURL,
	}
}

func (f *reportFlakesFlags) BindFlags(fs *pflag.FlagSet) {
	f.Authentication.BindFlags(fs)

	fs.StringVar(&f.EnvironmentList, "env-list", f.EnvironmentList, "file listing one environment per line")
	fs.StringVar(&f.PR, "pr", f.PR, "pull request number the tests ran for")
	fs.StringVar(&f.RootJob, "root-job", f.RootJob, "root job id the tests ran under")
	fs.IntVar(&f.MaxItems, "max-items", f.MaxItems, "environments with more failed tests than this are only named")
	fs.StringVar(&f.SummaryLocation, "summary-location", f.SummaryLocation, "location of the test summary of an environment, {pr}, {rootJob} and {env} are replaced")
	fs.StringVar(&f.FlakeRateLocation, "flake-rates", f.FlakeRateLocation, "location of the flake rate CSV written by compute-flake-rates")
	fs.StringVar(&f.ChartURL, "chart-url", f.ChartURL, "base URL of the flake chart dashboard")
	fs.StringVar(&f.LogsURL, "logs-url", f.LogsURL, "base URL of the gopogh test reports")
	fs.StringVar(&f.Output, "output", f.Output, "where to write the markdown comment: - for stdout, a gs://bucket/object location or a local path")
}

func NewReportFlakesCommand() *cobra.Command {
	f := newReportFlakesFlags()

	cmd := &cobra.Command{
		Use:          "report-flakes",
		Long:         `Generate a markdown pull request comment listing the failed tests with the lowest flake rates`,
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
func (f *reportFlakesFlags) Validate() error {
	if len(f.EnvironmentList) == 0 {
		return fmt.Errorf("--env-list must be specified")
	}
	if len(f.PR) == 0 || len(f.RootJob) == 0 {
		return fmt.Errorf("--pr and --root-job must be specified")
	}
	if f.MaxItems <= 0 {
		return fmt.Errorf("--max-items must be positive")
	}
	if len(f.SummaryLocation) == 0 || len(f.FlakeRateLocation) == 0 {
		return fmt.Errorf("--summary-location and --flake-rates must be specified")
	}
	return nil
}

func (f *reportFlakesFlags) ToOptions(ctx context.Context) (*ReportFlakesOptions, error) {
	fs := afero.NewOsFs()
	sink, err := flakechartlib.NewDataSink(ctx, f.Output, os.Stdout, fs, "text/markdown", f.Authentication.NewGCSClient)
	if err != nil {
		return nil, err
	}
	logger := logrus.WithField("component", "report-flakes")
	return &ReportFlakesOptions{
		fs:                fs,
		resolver:          flakechartlib.NewLocationResolver(fs, f.Authentication.NewGCSClient, logger),
		sink:              sink,
		environmentList:   f.EnvironmentList,
		pr:                f.PR,
		rootJob:           f.RootJob,
		maxItems:          f.MaxItems,
		summaryLocation:   f.SummaryLocation,
		flakeRateLocation: f.FlakeRateLocation,
		links:             Links{ChartURL: f.ChartURL, LogsURL: f.LogsURL},
		logger:            logger,
	}, nil
}

type ReportFlakesOptions struct {
	fs       afero.Fs
	resolver Resolver
	sink     flakechartlib.DataSink

	environmentList   string
	pr                string
	rootJob           string
	maxItems          int
	summaryLocation   string
	flakeRateLocation string
	links             Links

	logger logrus.FieldLogger
}

func (o *ReportFlakesOptions) Run(ctx context.Context) error {
	envs, err := ReadEnvironmentList(o.fs, o.environmentList)
	if err != nil {
		return err
	}
	summaries, err := FetchSummaries(ctx, o.resolver, o.summaryLocation, o.pr, o.rootJob, envs, o.logger)
	if err != nil {
		return err
	}
	rates, err := FetchFlakeRates(ctx, o.resolver, o.flakeRateLocation)
	if err != nil {
		return err
	}

	message := CommentMessage(summaries, rates, o.pr, o.rootJob, o.maxItems, o.links)
	if err := flakechartlib.WriteTo(ctx, o.sink, func(w io.Writer) error {
		_, err := io.WriteString(w, message)
		return err
	}); err != nil {
		return err
	}
	o.logger.WithFields(logrus.Fields{"environments": len(envs), "summaries": len(summaries)}).Info("Wrote flake report.")
	return nil
}
