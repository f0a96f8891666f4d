package flakechartlib

import (
	"sort"
	"time"

	"github.com/kubernetes/minikube/pkg/flakechart/flakechartapi"
)

// BreakdownBy selects the key of the per bucket rollup.
type BreakdownBy string

const (
	ByCommit BreakdownBy = "commit"
	// ByRootJob keys runs by their root job, falling back to the commit for runs without one.
	ByRootJob BreakdownBy = "rootJob"
)

func (b BreakdownBy) key(run flakechartapi.TestRun) string {
	if b == ByRootJob && len(run.RootJob) > 0 {
		return run.RootJob
	}
	return run.Commit
}

// RunFilter selects the runs of one test and/or environment. Empty fields match everything.
type RunFilter struct {
	Test        string
	Environment string
}

// FilterRuns returns the runs matching filter, excluding skipped runs. The aggregation
// functions below expect their input to have been filtered this way.
func FilterRuns(runs []flakechartapi.TestRun, filter RunFilter) []flakechartapi.TestRun {
	var ret []flakechartapi.TestRun
	for _, run := range runs {
		if run.Status == flakechartapi.StatusSkipped {
			continue
		}
		if len(filter.Test) > 0 && run.Name != filter.Test {
			continue
		}
		if len(filter.Environment) > 0 && run.Environment != filter.Environment {
			continue
		}
		ret = append(ret, run)
	}
	return ret
}

func flakeValue(run flakechartapi.TestRun) float64 {
	if run.Failed() {
		return 100
	}
	return 0
}

func runDuration(run flakechartapi.TestRun) float64 { return run.Duration }

func runDate(run flakechartapi.TestRun) time.Time { return run.Date }

func dateKey(run flakechartapi.TestRun) int64 { return run.Date.Unix() }

// NewDateBucket computes the statistics of runs under date.
func NewDateBucket(date time.Time, runs []flakechartapi.TestRun, by BreakdownBy) flakechartapi.DateBucket {
	bucket := flakechartapi.DateBucket{
		Date:        date,
		FlakeRate:   Average(runs, flakeValue),
		AvgDuration: Average(runs, runDuration),
		RunCount:    len(runs),
	}
	for _, group := range GroupBy(runs, by.key) {
		breakdown := flakechartapi.Breakdown{
			Key:         group.Key,
			Runs:        len(group.Items),
			AvgDuration: Average(group.Items, runDuration),
		}
		for _, run := range group.Items {
			if run.Failed() {
				breakdown.Failures++
			}
		}
		bucket.Breakdown = append(bucket.Breakdown, breakdown)
	}
	return bucket
}

// AggregateByDate buckets runs by exact date, sorted ascending.
func AggregateByDate(runs []flakechartapi.TestRun, by BreakdownBy) []flakechartapi.DateBucket {
	var buckets []flakechartapi.DateBucket
	for _, group := range GroupBy(runs, dateKey) {
		buckets = append(buckets, NewDateBucket(group.Items[0].Date, group.Items, by))
	}
	sortBuckets(buckets)
	return buckets
}

// WeekBoundaries walks from the earliest run date to the latest in 7 day strides. When the
// last stride ends before the latest date one more boundary is added for the remainder.
func WeekBoundaries(runs []flakechartapi.TestRun) []time.Time {
	if len(runs) == 0 {
		return nil
	}
	earliest, latest := runs[0].Date, runs[0].Date
	for _, run := range runs[1:] {
		if run.Date.Before(earliest) {
			earliest = run.Date
		}
		if run.Date.After(latest) {
			latest = run.Date
		}
	}

	var boundaries []time.Time
	for d := earliest; !d.After(latest); d = d.AddDate(0, 0, 7) {
		boundaries = append(boundaries, d)
	}
	if last := boundaries[len(boundaries)-1]; last.Before(latest) {
		boundaries = append(boundaries, last.AddDate(0, 0, 7))
	}
	return boundaries
}

// AssignWeek returns the latest boundary that is not after date. Dates before the first
// boundary belong to the first. boundaries must be sorted ascending and not empty.
func AssignWeek(boundaries []time.Time, date time.Time) time.Time {
	i := sort.Search(len(boundaries), func(i int) bool { return boundaries[i].After(date) })
	if i == 0 {
		return boundaries[0]
	}
	return boundaries[i-1]
}

// AggregateByWeek buckets runs by the week boundary they fall in. Boundaries without runs are omitted.
func AggregateByWeek(runs []flakechartapi.TestRun, boundaries []time.Time, by BreakdownBy) []flakechartapi.DateBucket {
	if len(boundaries) == 0 {
		return nil
	}
	groups := GroupBy(runs, func(run flakechartapi.TestRun) int64 {
		return AssignWeek(boundaries, run.Date).Unix()
	})
	var buckets []flakechartapi.DateBucket
	for _, group := range groups {
		buckets = append(buckets, NewDateBucket(AssignWeek(boundaries, group.Items[0].Date), group.Items, by))
	}
	sortBuckets(buckets)
	return buckets
}

func sortBuckets(buckets []flakechartapi.DateBucket) {
	sortByDate(buckets, func(b flakechartapi.DateBucket) time.Time { return b.Date })
}
