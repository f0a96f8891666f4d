package flakechartlib

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kubernetes/minikube/pkg/flakechart/flakechartapi"
)

func TestLocationResolver(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, "remote")
	}))
	defer server.Close()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/data/local.csv", []byte("local"), 0644))
	logger, _ := test.NewNullLogger()
	resolver := NewLocationResolver(fs, noGCS, logger)

	read := func(location string) (string, error) {
		source, err := resolver.Resolve(context.Background(), location)
		if err != nil {
			return "", err
		}
		r, _, err := source.Open(context.Background())
		if err != nil {
			return "", err
		}
		defer r.Close()
		b, err := io.ReadAll(r)
		return string(b), err
	}

	content, err := read("/data/local.csv")
	require.NoError(t, err)
	assert.Equal(t, "local", content)

	content, err = read(server.URL + "/present")
	require.NoError(t, err)
	assert.Equal(t, "remote", content)

	_, err = read(server.URL + "/missing")
	assert.True(t, IsNotFound(err))
	_, err = read("/data/missing.csv")
	assert.True(t, IsNotFound(err))

	_, err = read("gs://bucket/object")
	assert.ErrorContains(t, err, "failed to create GCS client: no GCS in tests")
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(&flakechartapi.FetchFailureError{StatusCode: http.StatusNotFound}))
	assert.False(t, IsNotFound(&flakechartapi.FetchFailureError{StatusCode: http.StatusInternalServerError}))
	assert.False(t, IsNotFound(errors.New("boom")))
}
