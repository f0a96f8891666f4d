package flakechartlib

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/iterator"

	"github.com/kubernetes/minikube/pkg/flakechart/flakechartapi"
)

// TestRunRow is the BigQuery representation of a test run. It carries the columns of the
// 9 column CSV layout.
type TestRunRow struct {
	Commit        string               `bigquery:"commit"`
	Date          civil.Date           `bigquery:"date"`
	Environment   string               `bigquery:"environment"`
	Name          string               `bigquery:"name"`
	Status        string               `bigquery:"status"`
	Duration      bigquery.NullFloat64 `bigquery:"duration"`
	RootJob       bigquery.NullString  `bigquery:"rootJob"`
	TestCount     bigquery.NullInt64   `bigquery:"testCount"`
	TotalDuration bigquery.NullFloat64 `bigquery:"totalDuration"`
}

func (r TestRunRow) ToTestRun() flakechartapi.TestRun {
	return flakechartapi.TestRun{
		Commit:        r.Commit,
		Date:          r.Date.In(time.UTC),
		Environment:   r.Environment,
		Name:          r.Name,
		Status:        flakechartapi.Status(r.Status),
		Duration:      r.Duration.Float64,
		RootJob:       r.RootJob.StringVal,
		TestCount:     int(r.TestCount.Int64),
		TotalDuration: r.TotalDuration.Float64,
	}
}

type CIDataClient interface {
	// ListTestRuns returns the test runs dated on or after since, of a single environment when
	// environment is not empty. Rows failing validation are dropped like in the CSV decoder.
	ListTestRuns(ctx context.Context, environment string, since time.Time) ([]flakechartapi.TestRun, error)
}

type ciDataClient struct {
	dataCoordinates BigQueryDataCoordinates
	client          *bigquery.Client
	logger          logrus.FieldLogger
}

func NewCIDataClient(dataCoordinates BigQueryDataCoordinates, client *bigquery.Client, logger logrus.FieldLogger) CIDataClient {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &ciDataClient{
		dataCoordinates: dataCoordinates,
		client:          client,
		logger:          logger,
	}
}

func (c *ciDataClient) ListTestRuns(ctx context.Context, environment string, since time.Time) ([]flakechartapi.TestRun, error) {
	queryString := c.dataCoordinates.SubstituteDataSetLocation(
		`SELECT commit, date, environment, name, status, duration, rootJob, testCount, totalDuration
FROM DATA_SET_LOCATION.` + TestRunTableName + `
WHERE (@Environment = "" OR environment = @Environment) AND date >= @Since
ORDER BY date ASC, environment ASC, name ASC
`)

	query := c.client.Query(queryString)
	query.QueryConfig.Parameters = []bigquery.QueryParameter{
		{Name: "Environment", Value: environment},
		{Name: "Since", Value: civil.DateOf(since)},
	}
	rows, err := query.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query test run table with %q: %w", queryString, err)
	}

	runs := []flakechartapi.TestRun{}
	for rowNumber := 1; ; rowNumber++ {
		row := &TestRunRow{}
		err = rows.Next(row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		run := row.ToTestRun()
		if reason, err := ValidateRun(run); err != nil {
			rowsSkipped.WithLabelValues(string(reason)).Inc()
			c.logger.WithFields(logrus.Fields{"line": rowNumber, "reason": reason}).Warn(err.Error())
			continue
		}
		rowsDecoded.Inc()
		runs = append(runs, run)
	}
	if len(runs) == 0 {
		return nil, flakechartapi.ErrEmptyDataset
	}

	return runs, nil
}
