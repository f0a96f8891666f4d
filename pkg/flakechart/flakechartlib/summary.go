package flakechartlib

import (
	"sort"
	"time"

	"github.com/kubernetes/minikube/pkg/flakechart/flakechartapi"
)

// EnvironmentSummaries is the cross environment view of a dataset.
type EnvironmentSummaries struct {
	// Days holds one entry per environment and date, grouped by environment in first appearance order.
	Days []flakechartapi.EnvironmentDay
	// Table is sorted by recent fail count, highest first.
	Table []flakechartapi.EnvironmentSummary
}

// SummarizeEnvironments computes the average number of failed tests of every environment per
// day and compares the recent window of dates against the one before it. Skipped runs are ignored.
func SummarizeEnvironments(runs []flakechartapi.TestRun, window int) EnvironmentSummaries {
	if window <= 0 {
		window = DefaultDateRange
	}
	runs = FilterRuns(runs, RunFilter{})

	var ret EnvironmentSummaries
	dateSet := map[int64]time.Time{}
	perEnvironment := map[string][]flakechartapi.EnvironmentDay{}
	environments := GroupBy(runs, func(run flakechartapi.TestRun) string { return run.Environment })
	for _, environment := range environments {
		durations := averageJobDuration(environment.Items, runDate)
		for _, counts := range TestCountsByDate(environment.Items) {
			envDay := flakechartapi.EnvironmentDay{
				Environment:    environment.Key,
				Date:           counts.Date,
				AvgFailedTests: counts.FailCount,
				AvgDuration:    durations[counts.Date.Unix()],
			}
			dateSet[counts.Date.Unix()] = counts.Date
			perEnvironment[environment.Key] = append(perEnvironment[environment.Key], envDay)
			ret.Days = append(ret.Days, envDay)
		}
	}

	dates := make([]time.Time, 0, len(dateSet))
	for _, date := range dateSet {
		dates = append(dates, date)
	}
	SortDates(dates)
	recent, previous := SplitWindows(dates, window)

	for _, environment := range environments {
		days := perEnvironment[environment.Key]
		recentDays, previousDays := daysIn(days, recent), daysIn(days, previous)
		summary := flakechartapi.EnvironmentSummary{
			Environment:       environment.Key,
			RecentFailCount:   Average(recentDays, envDayFailures),
			PreviousFailCount: Average(previousDays, envDayFailures),
			HasPrevious:       len(previousDays) > 0,
		}
		if summary.HasPrevious {
			summary.Growth = summary.RecentFailCount - summary.PreviousFailCount
		}
		ret.Table = append(ret.Table, summary)
	}
	sort.SliceStable(ret.Table, func(i, j int) bool { return ret.Table[i].RecentFailCount > ret.Table[j].RecentFailCount })
	return ret
}

func envDayFailures(d flakechartapi.EnvironmentDay) float64 { return d.AvgFailedTests }

func daysIn(days []flakechartapi.EnvironmentDay, dates []time.Time) []flakechartapi.EnvironmentDay {
	wanted := make(map[int64]bool, len(dates))
	for _, date := range dates {
		wanted[date.Unix()] = true
	}
	var ret []flakechartapi.EnvironmentDay
	for _, d := range days {
		if wanted[d.Date.Unix()] {
			ret = append(ret, d)
		}
	}
	return ret
}

// averageJobDuration estimates how long a job ran in each bucket: the summed duration of every
// run of a commit divided by the number of jobs of that commit, averaged over commits. The
// result is keyed by the Unix time of the bucket.
func averageJobDuration(runs []flakechartapi.TestRun, bucketOf func(flakechartapi.TestRun) time.Time) map[int64]float64 {
	ret := map[int64]float64{}
	for _, dateGroup := range GroupBy(runs, func(run flakechartapi.TestRun) int64 { return bucketOf(run).Unix() }) {
		type commitDuration struct {
			total float64
			jobs  int
		}
		var commits []commitDuration
		for _, commitGroup := range GroupBy(dateGroup.Items, func(run flakechartapi.TestRun) string { return run.Commit }) {
			c := commitDuration{total: Sum(commitGroup.Items, runDuration)}
			for _, nameGroup := range GroupBy(commitGroup.Items, func(run flakechartapi.TestRun) string { return run.Name }) {
				c.jobs = max(c.jobs, len(nameGroup.Items))
			}
			commits = append(commits, c)
		}
		ret[dateGroup.Key] = Average(commits, func(c commitDuration) float64 { return c.total / float64(c.jobs) })
	}
	return ret
}
