package flakechartapi

import (
	"fmt"
	"time"

	"k8s.io/apimachinery/pkg/util/sets"
)

type Status string

const (
	StatusPassed  Status = "Passed"
	StatusFailed  Status = "Failed"
	StatusSkipped Status = "Skipped"
)

var knownStatuses = sets.New[Status](StatusPassed, StatusFailed, StatusSkipped)

// ParseStatus returns the status named by s, or an error if s is not one of Passed, Failed or Skipped.
func ParseStatus(s string) (Status, error) {
	status := Status(s)
	if !knownStatuses.Has(status) {
		return "", fmt.Errorf("invalid test status %q, expected one of %v", s, sets.List(knownStatuses))
	}
	return status, nil
}

// SchemaWidth is the number of columns of one of the supported CSV layouts.
type SchemaWidth int

const (
	// commit,date,environment,name,status
	SchemaBasic SchemaWidth = 5
	// commit,date,environment,name,status,duration
	SchemaWithDuration SchemaWidth = 6
	// commit,date,environment,name,status,duration,rootJob,testCount,totalDuration
	SchemaWithJob SchemaWidth = 9
)

// Column positions, shared by every layout.
const (
	ColumnCommit = iota
	ColumnDate
	ColumnEnvironment
	ColumnName
	ColumnStatus
	ColumnDuration
	ColumnRootJob
	ColumnTestCount
	ColumnTotalDuration
)

var schemaColumns = []string{"commit", "date", "environment", "name", "status", "duration", "rootJob", "testCount", "totalDuration"}

func (w SchemaWidth) Validate() error {
	switch w {
	case SchemaBasic, SchemaWithDuration, SchemaWithJob:
		return nil
	default:
		return fmt.Errorf("unsupported schema width %d, must be one of 5, 6 or 9", int(w))
	}
}

// Columns returns the column names of the layout, in order.
func (w SchemaWidth) Columns() []string {
	if w.Validate() != nil {
		return nil
	}
	return append([]string(nil), schemaColumns[:w]...)
}

func (w SchemaWidth) HasDuration() bool { return w >= SchemaWithDuration }
func (w SchemaWidth) HasJob() bool      { return w >= SchemaWithJob }

// TestRun is a single row of the test-run dataset. It is never mutated after decoding.
type TestRun struct {
	Commit      string
	Date        time.Time
	Environment string
	Name        string
	Status      Status
	// Duration is in seconds, zero when the layout has no duration column.
	Duration float64

	// Only present in the 9 column layout.
	RootJob       string
	TestCount     int
	TotalDuration float64
}

func (r TestRun) Failed() bool { return r.Status == StatusFailed }

// Breakdown rolls up the runs of a single commit (or root job) inside a bucket.
type Breakdown struct {
	Key         string  `json:"key"`
	Runs        int     `json:"runs"`
	Failures    int     `json:"failures"`
	AvgDuration float64 `json:"avgDuration"`
}

// DateBucket is the aggregate of all runs that fall on one date, or in one week when Date is a week start.
type DateBucket struct {
	Date        time.Time   `json:"date"`
	FlakeRate   float64     `json:"flakeRate"`
	AvgDuration float64     `json:"avgDuration"`
	RunCount    int         `json:"runCount"`
	Breakdown   []Breakdown `json:"breakdown"`
}

// RankedTest is one entry of the recent flakiness leaderboard.
type RankedTest struct {
	TestName          string  `json:"testName"`
	FlakeRate         float64 `json:"flakeRate"`
	PreviousFlakeRate float64 `json:"previousFlakeRate"`
	HasPrevious       bool    `json:"hasPrevious"`
	Growth            float64 `json:"growth"`
}

// CommitCounts is the per-commit part of a CountsBucket.
type CommitCounts struct {
	Commit       string `json:"commit"`
	SumTestCount int    `json:"sumTestCount"`
	SumFailCount int    `json:"sumFailCount"`
	// MaxRunCount is the most times any single test ran for the commit, a proxy for the number of jobs triggered.
	MaxRunCount int `json:"maxRunCount"`
}

func (c CommitCounts) AvgTestCount() float64 {
	if c.MaxRunCount == 0 {
		return 0
	}
	return float64(c.SumTestCount) / float64(c.MaxRunCount)
}

func (c CommitCounts) AvgFailCount() float64 {
	if c.MaxRunCount == 0 {
		return 0
	}
	return float64(c.SumFailCount) / float64(c.MaxRunCount)
}

// CountsBucket is the number of tests that ran and failed on a date, averaged over commits.
type CountsBucket struct {
	Date      time.Time      `json:"date"`
	TestCount float64        `json:"testCount"`
	FailCount float64        `json:"failCount"`
	Commits   []CommitCounts `json:"commits"`
}

// JobCounts is the job level information attached to rows of the 9 column layout.
type JobCounts struct {
	RootJob       string  `json:"rootJob"`
	Commit        string  `json:"commit"`
	TestCount     int     `json:"testCount"`
	TotalDuration float64 `json:"totalDuration"`
}

type JobCountsBucket struct {
	Date             time.Time   `json:"date"`
	AvgTestCount     float64     `json:"avgTestCount"`
	AvgTotalDuration float64     `json:"avgTotalDuration"`
	Jobs             []JobCounts `json:"jobs"`
}

// EnvironmentDay is the average number of failed tests of an environment on one date.
type EnvironmentDay struct {
	Environment    string    `json:"environment"`
	Date           time.Time `json:"date"`
	AvgFailedTests float64   `json:"avgFailedTests"`
	AvgDuration    float64   `json:"avgDuration"`
}

type EnvironmentSummary struct {
	Environment       string  `json:"environment"`
	RecentFailCount   float64 `json:"recentFailCount"`
	PreviousFailCount float64 `json:"previousFailCount"`
	HasPrevious       bool    `json:"hasPrevious"`
	Growth            float64 `json:"growth"`
}
