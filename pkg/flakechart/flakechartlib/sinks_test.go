package flakechartlib

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"cloud.google.com/go/storage"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noGCS(context.Context) (*storage.Client, error) {
	return nil, errors.New("no GCS in tests")
}

func TestNewDataSink(t *testing.T) {
	stdout := &bytes.Buffer{}
	fs := afero.NewMemMapFs()

	for _, location := range []string{"", "-"} {
		sink, err := NewDataSink(context.Background(), location, stdout, fs, "text/csv", noGCS)
		require.NoError(t, err)
		assert.Equal(t, "stdout", sink.String())
	}

	sink, err := NewDataSink(context.Background(), "/out/rates.csv", stdout, fs, "text/csv", noGCS)
	require.NoError(t, err)
	require.NoError(t, WriteTo(context.Background(), sink, func(w io.Writer) error {
		_, err := w.Write([]byte("a,b\n"))
		return err
	}))
	content, err := afero.ReadFile(fs, "/out/rates.csv")
	require.NoError(t, err)
	assert.Equal(t, "a,b\n", string(content))

	_, err = NewDataSink(context.Background(), "gs://bucket/object", stdout, fs, "text/csv", noGCS)
	assert.ErrorContains(t, err, "no GCS in tests")
	_, err = NewDataSink(context.Background(), "gs://bucket", stdout, fs, "text/csv", noGCS)
	assert.Error(t, err)
}

func TestWriteToReportsWriteErrors(t *testing.T) {
	stdout := &bytes.Buffer{}
	err := WriteTo(context.Background(), NewWriterDataSink(stdout), func(w io.Writer) error {
		return errors.New("boom")
	})
	assert.EqualError(t, err, "failed to write stdout: boom")
}
