package flakechartlib

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kubernetes/minikube/pkg/flakechart/flakechartapi"
)

const DefaultDecodeBatchSize = 5000

// LineSource yields lines until io.EOF. *LineReader is the usual implementation.
type LineSource interface {
	Next() (string, error)
}

// CheckpointFunc is called every DecoderOptions.BatchSize admitted rows with the number of rows
// admitted so far. It is the point where a long decode hands control back, for example to
// report progress. Returning an error aborts the decode.
type CheckpointFunc func(ctx context.Context, decoded int) error

type DecoderOptions struct {
	Schema     flakechartapi.SchemaWidth
	BatchSize  int
	Checkpoint CheckpointFunc
	Logger     logrus.FieldLogger
}

// DecodeStats counts what happened to the body rows of a decode.
type DecodeStats struct {
	Admitted int
	Skipped  map[flakechartapi.RowSkipReason]int
}

func (s DecodeStats) TotalSkipped() int {
	total := 0
	for _, count := range s.Skipped {
		total += count
	}
	return total
}

// Decoder turns CSV lines into test runs. Blank fields take the value of the same column in
// the last row that was admitted, which undoes the run-length encoding of the exported data.
// Rows that fail validation are dropped and never become the fill source.
type Decoder struct {
	schema     flakechartapi.SchemaWidth
	batchSize  int
	checkpoint CheckpointFunc
	logger     logrus.FieldLogger

	lastValid []string
	line      int
	stats     DecodeStats
}

func NewDecoder(opts DecoderOptions) *Decoder {
	d := &Decoder{
		schema:     opts.Schema,
		batchSize:  opts.BatchSize,
		checkpoint: opts.Checkpoint,
		logger:     opts.Logger,
		lastValid:  make([]string, int(opts.Schema)),
		stats:      DecodeStats{Skipped: map[flakechartapi.RowSkipReason]int{}},
	}
	if d.batchSize <= 0 {
		d.batchSize = DefaultDecodeBatchSize
	}
	if d.checkpoint == nil {
		d.checkpoint = func(ctx context.Context, _ int) error { return ctx.Err() }
	}
	if d.logger == nil {
		d.logger = logrus.StandardLogger()
	}
	return d
}

func (d *Decoder) Stats() DecodeStats {
	return d.stats
}

// ReadHeader consumes the header line and checks its width.
func (d *Decoder) ReadHeader(lines LineSource) error {
	header, err := lines.Next()
	if errors.Is(err, io.EOF) {
		return flakechartapi.ErrEmptyDataset
	}
	if err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}
	d.line++
	if actual := len(strings.Split(header, ",")); actual != int(d.schema) {
		return &flakechartapi.SchemaMismatchError{Expected: d.schema, Actual: actual, Header: header}
	}
	return nil
}

// Decode reads the header and every body line of lines.
func (d *Decoder) Decode(ctx context.Context, lines LineSource) ([]flakechartapi.TestRun, error) {
	if err := d.schema.Validate(); err != nil {
		return nil, err
	}
	if err := d.ReadHeader(lines); err != nil {
		return nil, err
	}

	var runs []flakechartapi.TestRun
	for {
		line, err := lines.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read line %d: %w", d.line+1, err)
		}
		run, ok := d.DecodeLine(line)
		if !ok {
			continue
		}
		runs = append(runs, run)
		if len(runs)%d.batchSize == 0 {
			if err := d.checkpoint(ctx, len(runs)); err != nil {
				return nil, err
			}
		}
	}

	if len(runs) == 0 {
		return nil, flakechartapi.ErrEmptyDataset
	}
	return runs, nil
}

// DecodeLine decodes a single body line. The second return value is false when the line was skipped.
func (d *Decoder) DecodeLine(line string) (flakechartapi.TestRun, bool) {
	d.line++
	fields := strings.Split(line, ",")
	if len(fields) != int(d.schema) {
		d.skip(flakechartapi.SkipWrongFieldCount, fmt.Sprintf("found line with wrong number of fields. Actual: %d Expected: %d. Line: %q", len(fields), int(d.schema), line))
		return flakechartapi.TestRun{}, false
	}
	for i, field := range fields {
		if field == "" {
			fields[i] = d.lastValid[i]
		}
	}

	run, reason, err := parseFields(fields, d.schema)
	if err != nil {
		d.skip(reason, err.Error())
		return flakechartapi.TestRun{}, false
	}

	d.lastValid = fields
	d.stats.Admitted++
	rowsDecoded.Inc()
	return run, true
}

func (d *Decoder) skip(reason flakechartapi.RowSkipReason, message string) {
	d.stats.Skipped[reason]++
	rowsSkipped.WithLabelValues(string(reason)).Inc()
	d.logger.WithFields(logrus.Fields{"line": d.line, "reason": reason}).Warn(message)
}

func parseFields(fields []string, schema flakechartapi.SchemaWidth) (flakechartapi.TestRun, flakechartapi.RowSkipReason, error) {
	status, err := flakechartapi.ParseStatus(fields[flakechartapi.ColumnStatus])
	if err != nil {
		return flakechartapi.TestRun{}, flakechartapi.SkipInvalidStatus, err
	}
	date, reason, err := parseRunDate(fields[flakechartapi.ColumnDate])
	if err != nil {
		return flakechartapi.TestRun{}, reason, err
	}

	run := flakechartapi.TestRun{
		Commit:      fields[flakechartapi.ColumnCommit],
		Date:        date,
		Environment: fields[flakechartapi.ColumnEnvironment],
		Name:        fields[flakechartapi.ColumnName],
		Status:      status,
	}
	if schema.HasDuration() {
		if run.Duration, err = parseNonNegativeFloat(fields[flakechartapi.ColumnDuration]); err != nil {
			return flakechartapi.TestRun{}, flakechartapi.SkipInvalidNumber, fmt.Errorf("invalid duration: %w", err)
		}
	}
	if schema.HasJob() {
		run.RootJob = fields[flakechartapi.ColumnRootJob]
		if run.TestCount, err = parseNonNegativeInt(fields[flakechartapi.ColumnTestCount]); err != nil {
			return flakechartapi.TestRun{}, flakechartapi.SkipInvalidNumber, fmt.Errorf("invalid test count: %w", err)
		}
		if run.TotalDuration, err = parseNonNegativeFloat(fields[flakechartapi.ColumnTotalDuration]); err != nil {
			return flakechartapi.TestRun{}, flakechartapi.SkipInvalidNumber, fmt.Errorf("invalid total duration: %w", err)
		}
	}
	return run, "", nil
}

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05 -0700 MST",
}

// ParseDate parses the date formats found in exported test data. The result is in UTC.
func ParseDate(value string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("failed to parse date %q", value)
}

// IsUnsetDate reports whether t is the year 1 (or earlier) value exported for dates that were never set.
func IsUnsetDate(t time.Time) bool {
	return t.Year() <= 1
}

func parseRunDate(value string) (time.Time, flakechartapi.RowSkipReason, error) {
	date, err := ParseDate(value)
	if err != nil {
		return time.Time{}, flakechartapi.SkipInvalidDate, err
	}
	if IsUnsetDate(date) {
		return time.Time{}, flakechartapi.SkipUnsetDate, fmt.Errorf("date %q is unset", value)
	}
	return date, "", nil
}

func parseNonNegativeFloat(value string) (float64, error) {
	if value == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0, fmt.Errorf("%q is not a non-negative number", value)
	}
	return f, nil
}

func parseNonNegativeInt(value string) (int, error) {
	if value == "" {
		return 0, nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	if i < 0 {
		return 0, fmt.Errorf("%q is negative", value)
	}
	return i, nil
}

// ValidateRun applies the row rules of the CSV decoder to a run that came from another source.
func ValidateRun(run flakechartapi.TestRun) (flakechartapi.RowSkipReason, error) {
	if _, err := flakechartapi.ParseStatus(string(run.Status)); err != nil {
		return flakechartapi.SkipInvalidStatus, err
	}
	if IsUnsetDate(run.Date) {
		return flakechartapi.SkipUnsetDate, fmt.Errorf("run %s on %s has no date", run.Name, run.Environment)
	}
	if run.Duration < 0 || run.TotalDuration < 0 || run.TestCount < 0 {
		return flakechartapi.SkipInvalidNumber, fmt.Errorf("run %s on %s has a negative number", run.Name, run.Environment)
	}
	return "", nil
}
