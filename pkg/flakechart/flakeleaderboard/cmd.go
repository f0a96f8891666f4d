package flakeleaderboard

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"k8s.io/apimachinery/pkg/util/sets"
	"k8s.io/utils/clock"

	"github.com/kubernetes/minikube/pkg/flakechart/flakechartlib"
)

var formats = sets.New[string]("table", "markdown", "csv", "json")

type leaderboardFlags struct {
	DataSource *flakechartlib.DataSourceFlags

	RemoteURL   string
	Environment string
	Period      string
	DateRange   int
	TopFlakes   int
	Limit       int
	Format      string
}

func newLeaderboardFlags() *leaderboardFlags {
	return &leaderboardFlags{
		DataSource: flakechartlib.NewDataSourceFlags(),
		DateRange:  flakechartlib.DefaultDateRange,
		TopFlakes:  flakechartlib.DefaultTopFlakes,
		Format:     "table",
	}
}

func (f *leaderboardFlags) BindFlags(fs *pflag.FlagSet) {
	f.DataSource.BindFlags(fs)

	fs.StringVar(&f.RemoteURL, "remote-url", f.RemoteURL, "read the leaderboard from a flake aggregation service instead of aggregating test runs locally")
	fs.StringVar(&f.Environment, "env", f.Environment, "environment to rank the tests of, when empty every environment is ranked by its recent number of failed tests")
	fs.StringVar(&f.Period, "period", f.Period, "restrict test runs to a period: empty for every run or last90")
	fs.IntVar(&f.DateRange, "date-range", f.DateRange, "number of dates per ranking window")
	fs.IntVar(&f.TopFlakes, "top-flakes", f.TopFlakes, "number of tests marked as top flakes")
	fs.IntVar(&f.Limit, "limit", f.Limit, "print at most this many tests, 0 prints all of them")
	fs.StringVar(&f.Format, "format", f.Format, fmt.Sprintf("output format, one of %v", sets.List(formats)))
}

func NewLeaderboardCommand() *cobra.Command {
	f := newLeaderboardFlags()

	cmd := &cobra.Command{
		Use:          "leaderboard",
		Long:         `Print the tests of an environment ranked by recent flake rate, or every environment ranked by recent failed tests`,
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
func (f *leaderboardFlags) Validate() error {
	if _, err := flakechartlib.ParsePeriod(f.Period); err != nil {
		return err
	}
	if f.DateRange <= 0 || f.TopFlakes <= 0 {
		return fmt.Errorf("--date-range and --top-flakes must be positive")
	}
	if f.Limit < 0 {
		return fmt.Errorf("--limit must not be negative")
	}
	if !formats.Has(f.Format) {
		return fmt.Errorf("--format must be one of %v", sets.List(formats))
	}
	if len(f.RemoteURL) > 0 {
		return nil
	}
	return f.DataSource.Validate()
}

func (f *leaderboardFlags) ToOptions(ctx context.Context) (*LeaderboardOptions, error) {
	logger := logrus.WithField("component", "leaderboard")
	period, err := flakechartlib.ParsePeriod(f.Period)
	if err != nil {
		return nil, err
	}
	rankOptions := flakechartlib.RankOptions{DateRange: f.DateRange, TopFlakes: f.TopFlakes}

	o := &LeaderboardOptions{
		environment: f.Environment,
		limit:       f.Limit,
		format:      f.Format,
		out:         os.Stdout,
	}
	if len(f.RemoteURL) > 0 {
		client := flakechartlib.NewRemoteClient(f.RemoteURL, flakechartlib.NewHTTPClient(logger))
		if len(f.Environment) == 0 {
			o.summarySource = RemoteSummarySource(client, period)
		} else {
			o.source = RemoteSource(client, f.Environment, f.TopFlakes, period)
		}
		return o, nil
	}
	load, err := f.DataSource.NewLoader(ctx, afero.NewOsFs(), clock.RealClock{}, logger)
	if err != nil {
		return nil, err
	}
	if len(f.Environment) == 0 {
		o.summarySource = LocalSummarySource(load, clock.RealClock{}, period, f.DateRange)
	} else {
		o.source = LocalSource(load, clock.RealClock{}, f.Environment, period, rankOptions)
	}
	return o, nil
}

// Source produces the leaderboard to print.
type Source func(ctx context.Context) (flakechartlib.Leaderboard, error)

// LocalSource ranks the tests of environment from a full dataset.
func LocalSource(load flakechartlib.Loader, c clock.PassiveClock, environment string, period flakechartlib.Period, opts flakechartlib.RankOptions) Source {
	return func(ctx context.Context) (flakechartlib.Leaderboard, error) {
		runs, err := load(ctx)
		if err != nil {
			return flakechartlib.Leaderboard{}, fmt.Errorf("failed to load test runs: %w", err)
		}
		filtered := flakechartlib.FilterRuns(period.Filter(runs, c), flakechartlib.RunFilter{Environment: environment})
		return flakechartlib.RankFlakes(flakechartlib.BucketsByTest(filtered), opts), nil
	}
}

// RemoteSource reads the leaderboard of environment from an aggregation service.
func RemoteSource(client *flakechartlib.RemoteClient, environment string, topFlakes int, period flakechartlib.Period) Source {
	return func(ctx context.Context) (flakechartlib.Leaderboard, error) {
		resp, err := client.GetEnvironment(ctx, environment, topFlakes, period)
		if err != nil {
			return flakechartlib.Leaderboard{}, err
		}
		return flakechartlib.LeaderboardFromEnvResponse(*resp, topFlakes)
	}
}

// SummarySource produces the environments to print.
type SummarySource func(ctx context.Context) (flakechartlib.EnvironmentSummaries, error)

// LocalSummarySource compares the failed tests of every environment over the last window dates
// against the window before.
func LocalSummarySource(load flakechartlib.Loader, c clock.PassiveClock, period flakechartlib.Period, window int) SummarySource {
	return func(ctx context.Context) (flakechartlib.EnvironmentSummaries, error) {
		runs, err := load(ctx)
		if err != nil {
			return flakechartlib.EnvironmentSummaries{}, fmt.Errorf("failed to load test runs: %w", err)
		}
		return flakechartlib.SummarizeEnvironments(period.Filter(runs, c), window), nil
	}
}

// RemoteSummarySource reads the environment summary from an aggregation service.
func RemoteSummarySource(client *flakechartlib.RemoteClient, period flakechartlib.Period) SummarySource {
	return func(ctx context.Context) (flakechartlib.EnvironmentSummaries, error) {
		resp, err := client.GetSummary(ctx, period)
		if err != nil {
			return flakechartlib.EnvironmentSummaries{}, err
		}
		return flakechartlib.SummariesFromRemote(*resp), nil
	}
}

// LeaderboardOptions prints the tests of environment from source, or every environment from
// summarySource when no environment is selected.
type LeaderboardOptions struct {
	source        Source
	summarySource SummarySource
	environment   string
	limit         int
	format        string
	out           io.Writer
}

func (o *LeaderboardOptions) Run(ctx context.Context) error {
	if o.summarySource != nil {
		summaries, err := o.summarySource(ctx)
		if err != nil {
			return err
		}
		if len(summaries.Table) == 0 {
			return fmt.Errorf("no test runs")
		}
		return RenderSummary(o.out, summaries.Table, o.format, o.limit)
	}
	board, err := o.source(ctx)
	if err != nil {
		return err
	}
	if len(board.Ranked) == 0 {
		return fmt.Errorf("no test runs of environment %s", o.environment)
	}
	return Render(o.out, board, o.format, o.limit)
}
