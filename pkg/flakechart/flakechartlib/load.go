package flakechartlib

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/kubernetes/minikube/pkg/flakechart/flakechartapi"
)

type LoadOptions struct {
	Decoder DecoderOptions
	// Progress receives the number of raw bytes of every chunk read from the source.
	Progress func(n int)
}

// LoadTestRuns reads and decodes every test run of source. Either the whole dataset is
// returned or an error, never a part of it.
func LoadTestRuns(ctx context.Context, source DataSource, opts LoadOptions) ([]flakechartapi.TestRun, DecodeStats, error) {
	logger := opts.Decoder.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	logger = logger.WithField("source", source.String())
	opts.Decoder.Logger = logger

	body, size, err := source.Open(ctx)
	if err != nil {
		return nil, DecodeStats{}, err
	}
	defer body.Close()

	progress := opts.Progress
	if progress == nil {
		progress = NewProgressLogger(logger, size)
	}
	lines, err := newMaybeGZIPLineReader(body, progress)
	if err != nil {
		return nil, DecodeStats{}, fmt.Errorf("failed to read %s: %w", source, err)
	}

	decoder := NewDecoder(opts.Decoder)
	runs, err := decoder.Decode(ctx, lines)
	stats := decoder.Stats()
	if err != nil {
		return nil, stats, err
	}
	logger.WithFields(logrus.Fields{"admitted": stats.Admitted, "skipped": stats.TotalSkipped()}).Info("Loaded test runs.")
	return runs, stats, nil
}

// NewProgressLogger returns a progress callback that logs every tenth of total bytes, or
// every 10MiB when the total is unknown.
func NewProgressLogger(logger logrus.FieldLogger, total int64) func(n int) {
	step := total / 10
	if total <= 0 {
		step = 10 * 1024 * 1024
	}
	step = max(step, 1)
	var read, next int64 = 0, step
	return func(n int) {
		read += int64(n)
		if read < next {
			return
		}
		next = (read/step + 1) * step
		if total > 0 {
			logger.Debugf("Read %d of %d bytes (%d%%).", read, total, read*100/total)
		} else {
			logger.Debugf("Read %d bytes.", read)
		}
	}
}
