package flakechartlib

import (
	"time"

	"github.com/kubernetes/minikube/pkg/flakechart/flakechartapi"
)

// TestCountsByDate computes, for every date, how many tests ran and failed per commit. The
// most runs of any single test of a commit approximates the number of jobs triggered for it,
// so the per commit counts are divided by it before averaging across commits.
func TestCountsByDate(runs []flakechartapi.TestRun) []flakechartapi.CountsBucket {
	return testCounts(runs, runDate)
}

// TestCountsByWeek is TestCountsByDate with dates floored to boundaries.
func TestCountsByWeek(runs []flakechartapi.TestRun, boundaries []time.Time) []flakechartapi.CountsBucket {
	if len(boundaries) == 0 {
		return nil
	}
	return testCounts(runs, func(run flakechartapi.TestRun) time.Time { return AssignWeek(boundaries, run.Date) })
}

func testCounts(runs []flakechartapi.TestRun, bucketOf func(flakechartapi.TestRun) time.Time) []flakechartapi.CountsBucket {
	var buckets []flakechartapi.CountsBucket
	for _, dateGroup := range GroupBy(runs, func(run flakechartapi.TestRun) int64 { return bucketOf(run).Unix() }) {
		bucket := flakechartapi.CountsBucket{Date: bucketOf(dateGroup.Items[0])}
		for _, commitGroup := range GroupBy(dateGroup.Items, func(run flakechartapi.TestRun) string { return run.Commit }) {
			counts := flakechartapi.CommitCounts{Commit: commitGroup.Key}
			for _, nameGroup := range GroupBy(commitGroup.Items, func(run flakechartapi.TestRun) string { return run.Name }) {
				counts.SumTestCount += len(nameGroup.Items)
				for _, run := range nameGroup.Items {
					if run.Failed() {
						counts.SumFailCount++
					}
				}
				counts.MaxRunCount = max(counts.MaxRunCount, len(nameGroup.Items))
			}
			bucket.Commits = append(bucket.Commits, counts)
		}
		bucket.TestCount = Average(bucket.Commits, flakechartapi.CommitCounts.AvgTestCount)
		bucket.FailCount = Average(bucket.Commits, flakechartapi.CommitCounts.AvgFailCount)
		buckets = append(buckets, bucket)
	}
	sortCountsBuckets(buckets)
	return buckets
}

// JobCountsByDate reports the test count and total duration attached to every root job, per
// date. Runs without a root job are ignored.
func JobCountsByDate(runs []flakechartapi.TestRun) []flakechartapi.JobCountsBucket {
	return jobCounts(runs, runDate)
}

// JobCountsByWeek is JobCountsByDate with dates floored to boundaries.
func JobCountsByWeek(runs []flakechartapi.TestRun, boundaries []time.Time) []flakechartapi.JobCountsBucket {
	if len(boundaries) == 0 {
		return nil
	}
	return jobCounts(runs, func(run flakechartapi.TestRun) time.Time { return AssignWeek(boundaries, run.Date) })
}

func jobCounts(runs []flakechartapi.TestRun, bucketOf func(flakechartapi.TestRun) time.Time) []flakechartapi.JobCountsBucket {
	var withJob []flakechartapi.TestRun
	for _, run := range runs {
		if len(run.RootJob) > 0 {
			withJob = append(withJob, run)
		}
	}

	var buckets []flakechartapi.JobCountsBucket
	for _, dateGroup := range GroupBy(withJob, func(run flakechartapi.TestRun) int64 { return bucketOf(run).Unix() }) {
		bucket := flakechartapi.JobCountsBucket{Date: bucketOf(dateGroup.Items[0])}
		for _, jobGroup := range GroupBy(dateGroup.Items, func(run flakechartapi.TestRun) string { return run.RootJob }) {
			first := jobGroup.Items[0]
			bucket.Jobs = append(bucket.Jobs, flakechartapi.JobCounts{
				RootJob:       first.RootJob,
				Commit:        first.Commit,
				TestCount:     first.TestCount,
				TotalDuration: first.TotalDuration,
			})
		}
		bucket.AvgTestCount = Average(bucket.Jobs, func(j flakechartapi.JobCounts) float64 { return float64(j.TestCount) })
		bucket.AvgTotalDuration = Average(bucket.Jobs, func(j flakechartapi.JobCounts) float64 { return j.TotalDuration })
		buckets = append(buckets, bucket)
	}
	sortJobCountsBuckets(buckets)
	return buckets
}

func sortCountsBuckets(buckets []flakechartapi.CountsBucket) {
	sortByDate(buckets, func(b flakechartapi.CountsBucket) time.Time { return b.Date })
}

func sortJobCountsBuckets(buckets []flakechartapi.JobCountsBucket) {
	sortByDate(buckets, func(b flakechartapi.JobCountsBucket) time.Time { return b.Date })
}
