package flakechartlib

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"k8s.io/utils/clock"

	"github.com/kubernetes/minikube/pkg/flakechart/flakechartapi"
)

const DefaultDataSource = "gs://minikube-flake-rate/data.csv"

// Loader reads a complete test run dataset.
type Loader func(ctx context.Context) ([]flakechartapi.TestRun, error)

// DataSourceFlags selects where test runs are read from: a CSV export reachable by URL,
// gs:// location or local path, or the BigQuery test run table.
type DataSourceFlags struct {
	Location     string
	SchemaWidth  int
	FromBigQuery bool
	BigQueryDays int

	Authentication  *GoogleAuthenticationFlags
	DataCoordinates *BigQueryDataCoordinates
}

func NewDataSourceFlags() *DataSourceFlags {
	return &DataSourceFlags{
		Location:        DefaultDataSource,
		SchemaWidth:     int(flakechartapi.SchemaWithDuration),
		BigQueryDays:    90,
		Authentication:  NewGoogleAuthenticationFlags(),
		DataCoordinates: NewBigQueryDataCoordinates(),
	}
}

func (f *DataSourceFlags) BindFlags(fs *pflag.FlagSet) {
	fs.StringVar(&f.Location, "data-source", f.Location, "CSV test run export to read: an http(s) URL, a gs://bucket/object location or a local path. Gzip compressed data is detected.")
	fs.IntVar(&f.SchemaWidth, "schema-width", f.SchemaWidth, "number of columns of the CSV export: 5, 6 or 9")
	fs.BoolVar(&f.FromBigQuery, "from-bigquery", f.FromBigQuery, "read test runs from the BigQuery test run table instead of a CSV export")
	fs.IntVar(&f.BigQueryDays, "bigquery-days", f.BigQueryDays, "number of days of test runs to read from BigQuery")
	f.Authentication.BindFlags(fs)
	f.DataCoordinates.BindFlags(fs)
}

func (f *DataSourceFlags) Validate() error {
	if f.FromBigQuery {
		if f.BigQueryDays <= 0 {
			return fmt.Errorf("--bigquery-days must be positive")
		}
		if err := f.Authentication.Validate(); err != nil {
			return err
		}
		return f.DataCoordinates.Validate()
	}
	if len(f.Location) == 0 {
		return fmt.Errorf("--data-source must be specified")
	}
	if strings.HasPrefix(f.Location, "gs://") {
		if _, _, err := ParseGCSLocation(f.Location); err != nil {
			return err
		}
	}
	return flakechartapi.SchemaWidth(f.SchemaWidth).Validate()
}

// NewDataSource returns the CSV source named by --data-source. Local paths are resolved against fs.
func (f *DataSourceFlags) NewDataSource(ctx context.Context, fs afero.Fs, logger logrus.FieldLogger) (DataSource, error) {
	return NewLocationResolver(fs, f.Authentication.NewGCSClient, logger).Resolve(ctx, f.Location)
}

// NewLoader returns a Loader for the configured source.
func (f *DataSourceFlags) NewLoader(ctx context.Context, fs afero.Fs, c clock.PassiveClock, logger logrus.FieldLogger) (Loader, error) {
	if f.FromBigQuery {
		bigQueryClient, err := f.Authentication.NewBigQueryClient(ctx, f.DataCoordinates.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("failed to create BigQuery client: %w", err)
		}
		ciDataClient := NewRetryingCIDataClient(NewCIDataClient(*f.DataCoordinates, bigQueryClient, logger))
		days := f.BigQueryDays
		return func(ctx context.Context) ([]flakechartapi.TestRun, error) {
			return ciDataClient.ListTestRuns(ctx, "", c.Now().UTC().Add(-time.Duration(days)*24*time.Hour))
		}, nil
	}

	source, err := f.NewDataSource(ctx, fs, logger)
	if err != nil {
		return nil, err
	}
	schema := flakechartapi.SchemaWidth(f.SchemaWidth)
	return func(ctx context.Context) ([]flakechartapi.TestRun, error) {
		runs, _, err := LoadTestRuns(ctx, source, LoadOptions{Decoder: DecoderOptions{Schema: schema, Logger: logger}})
		return runs, err
	}, nil
}
