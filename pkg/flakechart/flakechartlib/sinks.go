package flakechartlib

import (
	"context"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/spf13/afero"
)

// DataSink is where a generated report is written. The content is only complete once the
// returned writer is closed without error.
type DataSink interface {
	Create(ctx context.Context) (io.WriteCloser, error)
	String() string
}

type gcsDataSink struct {
	client      *storage.Client
	bucket      string
	object      string
	contentType string
}

func NewGCSDataSink(client *storage.Client, bucket, object, contentType string) DataSink {
	return &gcsDataSink{client: client, bucket: bucket, object: object, contentType: contentType}
}

func (s *gcsDataSink) Create(ctx context.Context) (io.WriteCloser, error) {
	w := s.client.Bucket(s.bucket).Object(s.object).NewWriter(ctx)
	w.ContentType = s.contentType
	return w, nil
}

func (s *gcsDataSink) String() string { return "gs://" + s.bucket + "/" + s.object }

type fileDataSink struct {
	fs   afero.Fs
	path string
}

func NewFileDataSink(fs afero.Fs, path string) DataSink {
	return &fileDataSink{fs: fs, path: path}
}

func (s *fileDataSink) Create(_ context.Context) (io.WriteCloser, error) {
	f, err := s.fs.Create(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", s.path, err)
	}
	return f, nil
}

func (s *fileDataSink) String() string { return s.path }

type writerDataSink struct {
	w io.Writer
}

// NewWriterDataSink writes to w, which is never closed.
func NewWriterDataSink(w io.Writer) DataSink {
	return writerDataSink{w: w}
}

func (s writerDataSink) Create(_ context.Context) (io.WriteCloser, error) {
	return nopWriteCloser{s.w}, nil
}

func (s writerDataSink) String() string { return "stdout" }

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

// NewDataSink picks the sink of location: standard output for "" or "-", a GCS object for
// gs://bucket/object and a path of fs otherwise. newGCSClient is only called for GCS locations.
func NewDataSink(ctx context.Context, location string, stdout io.Writer, fs afero.Fs, contentType string, newGCSClient func(context.Context) (*storage.Client, error)) (DataSink, error) {
	switch {
	case len(location) == 0 || location == "-":
		return NewWriterDataSink(stdout), nil
	case strings.HasPrefix(location, "gs://"):
		bucket, object, err := ParseGCSLocation(location)
		if err != nil {
			return nil, err
		}
		client, err := newGCSClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create GCS client: %w", err)
		}
		return NewGCSDataSink(client, bucket, object, contentType), nil
	default:
		return NewFileDataSink(fs, location), nil
	}
}

// WriteTo creates the sink and writes through write, closing it afterwards.
func WriteTo(ctx context.Context, sink DataSink, write func(io.Writer) error) error {
	w, err := sink.Create(ctx)
	if err != nil {
		return err
	}
	if err := write(w); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write %s: %w", sink, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", sink, err)
	}
	return nil
}
