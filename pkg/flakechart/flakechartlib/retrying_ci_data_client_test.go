package flakechartlib

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/apimachinery/pkg/util/wait"

	"github.com/kubernetes/minikube/pkg/flakechart/flakechartapi"
)

type fakeCIDataClient struct {
	errs  []error
	runs  []flakechartapi.TestRun
	calls int
}

func (f *fakeCIDataClient) ListTestRuns(_ context.Context, _ string, _ time.Time) ([]flakechartapi.TestRun, error) {
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return nil, err
	}
	return f.runs, nil
}

func fastRetrying(delegate CIDataClient) CIDataClient {
	return &retryingCIDataClient{delegate: delegate, backoff: wait.Backoff{Steps: 3, Duration: time.Millisecond}}
}

func TestRetryingCIDataClient(t *testing.T) {
	quota := errors.New("googleapi: Error 403: Exceeded rate limits: exceeded quota for concurrent queries")
	runs := []flakechartapi.TestRun{{Name: "T1", Environment: "envA", Status: flakechartapi.StatusPassed}}

	testCases := []struct {
		name          string
		errs          []error
		expectedCalls int
		expectedError bool
	}{
		{name: "success", expectedCalls: 1},
		{name: "quota error is retried", errs: []error{quota, quota}, expectedCalls: 3},
		{name: "quota errors exhaust the backoff", errs: []error{quota, quota, quota, quota}, expectedCalls: 3, expectedError: true},
		{name: "other errors are returned", errs: []error{flakechartapi.ErrEmptyDataset}, expectedCalls: 1, expectedError: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			delegate := &fakeCIDataClient{errs: tc.errs, runs: runs}
			actual, err := fastRetrying(delegate).ListTestRuns(context.Background(), "envA", time.Time{})
			assert.Equal(t, tc.expectedCalls, delegate.calls)
			if tc.expectedError {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, runs, actual)
		})
	}
}

func TestDataSourceFlagsValidate(t *testing.T) {
	testCases := []struct {
		name          string
		mutate        func(*DataSourceFlags)
		expectedError string
	}{
		{name: "defaults", mutate: func(*DataSourceFlags) {}},
		{
			name:   "local path",
			mutate: func(f *DataSourceFlags) { f.Location = "./data.csv"; f.SchemaWidth = 9 },
		},
		{
			name:          "empty location",
			mutate:        func(f *DataSourceFlags) { f.Location = "" },
			expectedError: "--data-source must be specified",
		},
		{
			name:          "bad gcs location",
			mutate:        func(f *DataSourceFlags) { f.Location = "gs://bucket" },
			expectedError: "gs://bucket",
		},
		{
			name:          "bad schema",
			mutate:        func(f *DataSourceFlags) { f.SchemaWidth = 7 },
			expectedError: "unsupported schema width 7",
		},
		{
			name:          "bigquery needs credentials",
			mutate:        func(f *DataSourceFlags) { f.FromBigQuery = true },
			expectedError: "must be specified",
		},
		{
			name: "bigquery needs days",
			mutate: func(f *DataSourceFlags) {
				f.FromBigQuery = true
				f.BigQueryDays = 0
			},
			expectedError: "--bigquery-days must be positive",
		},
		{
			name: "bigquery",
			mutate: func(f *DataSourceFlags) {
				f.FromBigQuery = true
				f.Authentication.GoogleServiceAccountCredentialFile = "/creds.json"
			},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			flags := NewDataSourceFlags()
			tc.mutate(flags)
			err := flags.Validate()
			if len(tc.expectedError) == 0 {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tc.expectedError)
		})
	}
}
