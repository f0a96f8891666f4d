package flakechartserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"k8s.io/utils/clock"
	"sigs.k8s.io/prow/pkg/interrupts"
	"sigs.k8s.io/prow/pkg/logrusutil"

	"github.com/kubernetes/minikube/pkg/flakechart/flakechartlib"
	"github.com/kubernetes/minikube/pkg/httphelper"
)

type serveFlags struct {
	DataSource *flakechartlib.DataSourceFlags

	ConfigPath       string
	ListenAddr       string
	GracePeriod      time.Duration
	DateRange        int
	TopFlakes        int
	HashLinkTemplate string
}

func newServeFlags() *serveFlags {
	return &serveFlags{
		DataSource:  flakechartlib.NewDataSourceFlags(),
		ListenAddr:  ":8080",
		GracePeriod: 10 * time.Second,
	}
}

func (f *serveFlags) BindFlags(fs *pflag.FlagSet) {
	f.DataSource.BindFlags(fs)

	fs.StringVar(&f.ConfigPath, "config", f.ConfigPath, "optional YAML dashboard config")
	fs.StringVar(&f.ListenAddr, "listen", f.ListenAddr, "address to serve on")
	fs.DurationVar(&f.GracePeriod, "grace-period", f.GracePeriod, "grace period for server shutdown")
	fs.IntVar(&f.DateRange, "date-range", f.DateRange, "number of dates per ranking window, overrides the config")
	fs.IntVar(&f.TopFlakes, "top-flakes", f.TopFlakes, "number of tests charted per environment, overrides the config")
	fs.StringVar(&f.HashLinkTemplate, "hash-link-template", f.HashLinkTemplate, "commit link template with {hash}, {shortHash} and {env} placeholders, overrides the config")
}

func NewServeCommand() *cobra.Command {
	f := newServeFlags()

	cmd := &cobra.Command{
		Use:          "serve",
		Long:         `Serve the flake rate dashboard and its JSON aggregations`,
		SilenceUsage: true,

		RunE: func(cmd *cobra.Command, args []string) error {
			logrusutil.ComponentInit()
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
func (f *serveFlags) Validate() error {
	if err := f.DataSource.Validate(); err != nil {
		return err
	}
	if len(f.ListenAddr) == 0 {
		return fmt.Errorf("--listen must be specified")
	}
	if f.DateRange < 0 || f.TopFlakes < 0 {
		return fmt.Errorf("--date-range and --top-flakes must not be negative")
	}
	return nil
}

// config merges the config file with the flags that override it.
func (f *serveFlags) config(fs afero.Fs) (Config, error) {
	config := Config{}
	if len(f.ConfigPath) > 0 {
		loaded, err := LoadConfig(fs, f.ConfigPath)
		if err != nil {
			return Config{}, err
		}
		config = *loaded
	}
	if f.DateRange > 0 {
		config.DateRange = f.DateRange
	}
	if f.TopFlakes > 0 {
		config.TopFlakes = f.TopFlakes
	}
	if len(f.HashLinkTemplate) > 0 {
		config.HashLinkTemplate = f.HashLinkTemplate
	}
	return config, nil
}

// ToOptions loads the dataset. A dataset that cannot be loaded stops the command.
func (f *serveFlags) ToOptions(ctx context.Context) (*ServeOptions, error) {
	fs := afero.NewOsFs()
	config, err := f.config(fs)
	if err != nil {
		return nil, err
	}

	logger := logrus.WithField("component", "flake-chart-server")
	load, err := f.DataSource.NewLoader(ctx, fs, clock.RealClock{}, logger)
	if err != nil {
		return nil, err
	}
	runs, err := load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load test runs: %w", err)
	}
	logger.WithField("runs", len(runs)).Info("Dataset loaded.")

	return &ServeOptions{
		server:      NewServer(runs, config, clock.RealClock{}, httphelper.NewMetrics("flakechart", prometheus.DefaultRegisterer), logger),
		listenAddr:  f.ListenAddr,
		gracePeriod: f.GracePeriod,
	}, nil
}

type ServeOptions struct {
	server      *Server
	listenAddr  string
	gracePeriod time.Duration
}

func (o *ServeOptions) Run(ctx context.Context) error {
	handler, err := o.server.Handler()
	if err != nil {
		return err
	}
	logrus.WithField("address", o.listenAddr).Info("Serving the flake dashboard.")
	interrupts.ListenAndServe(&http.Server{Addr: o.listenAddr, Handler: handler}, o.gracePeriod)
	interrupts.WaitForGracefulShutdown()
	return nil
}
