package flakechartlib

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"

	"cloud.google.com/go/storage"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/kubernetes/minikube/pkg/flakechart/flakechartapi"
)

// DataSource is where a CSV test run export is read from.
type DataSource interface {
	// Open returns the raw stream and its size in bytes, -1 when unknown.
	Open(ctx context.Context) (io.ReadCloser, int64, error)
	String() string
}

type httpDataSource struct {
	url    string
	client *retryablehttp.Client
}

func NewHTTPDataSource(url string, client *retryablehttp.Client) DataSource {
	return &httpDataSource{url: url, client: client}
}

func (s *httpDataSource) Open(ctx context.Context) (io.ReadCloser, int64, error) {
	resp, err := get(ctx, s.client, s.url)
	if err != nil {
		return nil, 0, err
	}
	return resp.Body, resp.ContentLength, nil
}

func (s *httpDataSource) String() string { return s.url }

type gcsDataSource struct {
	client *storage.Client
	bucket string
	object string
}

func NewGCSDataSource(client *storage.Client, bucket, object string) DataSource {
	return &gcsDataSource{client: client, bucket: bucket, object: object}
}

func (s *gcsDataSource) Open(ctx context.Context) (io.ReadCloser, int64, error) {
	reader, err := s.client.Bucket(s.bucket).Object(s.object).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, 0, &flakechartapi.FetchFailureError{Source: s.String(), StatusCode: http.StatusNotFound, Body: err.Error()}
	}
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read %s: %w", s, err)
	}
	return reader, reader.Attrs.Size, nil
}

func (s *gcsDataSource) String() string { return "gs://" + s.bucket + "/" + s.object }

type fileDataSource struct {
	fs   afero.Fs
	path string
}

func NewFileDataSource(fs afero.Fs, path string) DataSource {
	return &fileDataSource{fs: fs, path: path}
}

func (s *fileDataSource) Open(ctx context.Context) (io.ReadCloser, int64, error) {
	f, err := s.fs.Open(s.path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open %s: %w", s.path, err)
	}
	size := int64(-1)
	if info, err := f.Stat(); err == nil {
		size = info.Size()
	}
	return f, size, nil
}

func (s *fileDataSource) String() string { return s.path }

// ParseGCSLocation splits gs://bucket/object into its bucket and object.
func ParseGCSLocation(location string) (string, string, error) {
	trimmed, ok := strings.CutPrefix(location, "gs://")
	if !ok {
		return "", "", fmt.Errorf("%q is not a gs:// location", location)
	}
	bucket, object, _ := strings.Cut(trimmed, "/")
	if len(bucket) == 0 || len(object) == 0 {
		return "", "", fmt.Errorf("%q must name a bucket and an object", location)
	}
	return bucket, object, nil
}

// IsNotFound reports whether err was returned by a source whose data does not exist.
func IsNotFound(err error) bool {
	var fetchErr *flakechartapi.FetchFailureError
	if errors.As(err, &fetchErr) {
		return fetchErr.StatusCode == http.StatusNotFound
	}
	return errors.Is(err, os.ErrNotExist)
}

// LocationResolver turns http(s) URLs, gs:// locations and local paths into data sources.
// Every gs:// source shares one GCS client, created on first use.
type LocationResolver struct {
	fs           afero.Fs
	logger       logrus.FieldLogger
	newGCSClient func(ctx context.Context) (*storage.Client, error)

	lock       sync.Mutex
	gcsClient  *storage.Client
	httpClient *retryablehttp.Client
}

func NewLocationResolver(fs afero.Fs, newGCSClient func(ctx context.Context) (*storage.Client, error), logger logrus.FieldLogger) *LocationResolver {
	return &LocationResolver{fs: fs, logger: logger, newGCSClient: newGCSClient}
}

func (r *LocationResolver) Resolve(ctx context.Context, location string) (DataSource, error) {
	switch {
	case strings.HasPrefix(location, "http://"), strings.HasPrefix(location, "https://"):
		r.lock.Lock()
		defer r.lock.Unlock()
		if r.httpClient == nil {
			r.httpClient = NewHTTPClient(r.logger)
		}
		return NewHTTPDataSource(location, r.httpClient), nil
	case strings.HasPrefix(location, "gs://"):
		bucket, object, err := ParseGCSLocation(location)
		if err != nil {
			return nil, err
		}
		r.lock.Lock()
		defer r.lock.Unlock()
		if r.gcsClient == nil {
			client, err := r.newGCSClient(ctx)
			if err != nil {
				return nil, fmt.Errorf("failed to create GCS client: %w", err)
			}
			r.gcsClient = client
		}
		return NewGCSDataSource(r.gcsClient, bucket, object), nil
	default:
		return NewFileDataSource(r.fs, location), nil
	}
}
