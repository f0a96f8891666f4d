package flakechartapi

import (
	"errors"
	"fmt"
)

// ErrEmptyDataset is returned when no valid row remains after decoding.
var ErrEmptyDataset = errors.New("fetched CSV data is empty or poorly formatted")

// FetchFailureError is returned when the data source answers with a non-success status.
// Body holds the response text so it can be shown to the user as is.
type FetchFailureError struct {
	Source     string
	StatusCode int
	Body       string
}

func (e *FetchFailureError) Error() string {
	return fmt.Sprintf("failed to fetch data from %s (status %d): %s", e.Source, e.StatusCode, e.Body)
}

// SchemaMismatchError is returned when the header does not have the expected number of fields.
type SchemaMismatchError struct {
	Expected SchemaWidth
	Actual   int
	Header   string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("fetched CSV data contains wrong number of fields. Expected: %d. Actual: %d. Header: %q", int(e.Expected), e.Actual, e.Header)
}

// RowSkipReason names why a body row was dropped. Skipped rows never fail a load.
type RowSkipReason string

const (
	SkipWrongFieldCount RowSkipReason = "wrong-field-count"
	SkipInvalidStatus   RowSkipReason = "invalid-status"
	SkipUnsetDate       RowSkipReason = "unset-date"
	SkipInvalidDate     RowSkipReason = "invalid-date"
	SkipInvalidNumber   RowSkipReason = "invalid-number"
)

// AllRowSkipReasons lists every skip reason, in a stable order.
var AllRowSkipReasons = []RowSkipReason{SkipWrongFieldCount, SkipInvalidStatus, SkipUnsetDate, SkipInvalidDate, SkipInvalidNumber}
