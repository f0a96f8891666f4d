package flakechartlib

import (
	"bytes"
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kubernetes/minikube/pkg/flakechart/flakechartapi"
)

const sampleCSV = "commit,date,environment,name,status,duration\n" +
	"c1,2024-01-01,envA,T1,Failed,1.0\n" +
	"c2,2024-01-01,envA,T1,Passed,2.0\n"

func gzipped(t *testing.T, s string) []byte {
	t.Helper()
	buf := &bytes.Buffer{}
	w := gzip.NewWriter(buf)
	if _, err := w.Write([]byte(s)); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func loadOptions() LoadOptions {
	logger, _ := test.NewNullLogger()
	return LoadOptions{Decoder: DecoderOptions{Schema: flakechartapi.SchemaWithDuration, Logger: logger}}
}

func TestLoadTestRunsFromFile(t *testing.T) {
	testCases := []struct {
		name    string
		content []byte
	}{
		{name: "plain", content: []byte(sampleCSV)},
		{name: "gzip", content: gzipped(t, sampleCSV)},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			require.NoError(t, afero.WriteFile(fs, "/data/data.csv", tc.content, 0644))

			var progress int
			opts := loadOptions()
			opts.Progress = func(n int) { progress += n }
			runs, stats, err := LoadTestRuns(context.Background(), NewFileDataSource(fs, "/data/data.csv"), opts)
			require.NoError(t, err)
			assert.Len(t, runs, 2)
			assert.Equal(t, 2, stats.Admitted)
			assert.Equal(t, len(tc.content), progress, "progress must count raw bytes")
		})
	}
}

func TestLoadTestRunsMissingFile(t *testing.T) {
	_, _, err := LoadTestRuns(context.Background(), NewFileDataSource(afero.NewMemMapFs(), "/nope.csv"), loadOptions())
	assert.ErrorContains(t, err, "failed to open /nope.csv")
}

func TestLoadTestRunsOverHTTP(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		switch r.URL.Path {
		case "/data.csv":
			_, _ = w.Write([]byte(sampleCSV))
		case "/broken.csv":
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte("bucket is on fire"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	logger, _ := test.NewNullLogger()
	client := NewHTTPClient(logger)

	runs, _, err := LoadTestRuns(context.Background(), NewHTTPDataSource(server.URL+"/data.csv", client), loadOptions())
	require.NoError(t, err)
	assert.Len(t, runs, 2)

	requests.Store(0)
	runs, _, err = LoadTestRuns(context.Background(), NewHTTPDataSource(server.URL+"/broken.csv", client), loadOptions())
	var fetchFailure *flakechartapi.FetchFailureError
	require.ErrorAs(t, err, &fetchFailure)
	assert.Nil(t, runs)
	assert.Equal(t, http.StatusInternalServerError, fetchFailure.StatusCode)
	assert.Equal(t, "bucket is on fire", fetchFailure.Body)
	assert.Equal(t, int32(1), requests.Load(), "failed responses must not be retried")
}

func TestLoadTestRunsSchemaMismatch(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "data.csv", []byte("commit,date,environment,name,status\n"), 0644))
	_, _, err := LoadTestRuns(context.Background(), NewFileDataSource(fs, "data.csv"), loadOptions())
	var mismatch *flakechartapi.SchemaMismatchError
	assert.ErrorAs(t, err, &mismatch)
}

func TestParseGCSLocation(t *testing.T) {
	bucket, object, err := ParseGCSLocation("gs://minikube-flake-rate/nested/data.csv")
	require.NoError(t, err)
	assert.Equal(t, "minikube-flake-rate", bucket)
	assert.Equal(t, "nested/data.csv", object)

	for _, bad := range []string{"https://example.com/data.csv", "gs://bucket-only", "gs:///object"} {
		_, _, err := ParseGCSLocation(bad)
		assert.Error(t, err, bad)
	}
}

func TestNewProgressLogger(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	progress := NewProgressLogger(logger, 100)
	for i := 0; i < 10; i++ {
		progress(5)
	}
	// every 10 of 50 bytes
	assert.Len(t, hook.AllEntries(), 5)
}
