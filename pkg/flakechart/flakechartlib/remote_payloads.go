package flakechartlib

import (
	"fmt"
	"time"

	"github.com/kubernetes/minikube/pkg/flakechart/flakechartapi"
)

// The functions below build the /test, /env and /summary payloads from test runs, and turn
// payloads received from an aggregation service back into buckets.

// flakePoints turns buckets aggregated ByRootJob into points. The compound field of a point
// lists the runs bucketOf assigned to its bucket.
func flakePoints(buckets []flakechartapi.DateBucket, runs []flakechartapi.TestRun, bucketOf func(flakechartapi.TestRun) time.Time) []flakechartapi.FlakePoint {
	runsOf := make(map[int64][]flakechartapi.TestRun, len(buckets))
	for _, run := range runs {
		key := bucketOf(run).Unix()
		runsOf[key] = append(runsOf[key], run)
	}
	points := make([]flakechartapi.FlakePoint, 0, len(buckets))
	for _, bucket := range buckets {
		points = append(points, flakechartapi.FlakePoint{
			StartOfDate:               bucket.Date,
			FlakePercentage:           bucket.FlakeRate,
			AvgDuration:               bucket.AvgDuration,
			CommitResultsAndDurations: FormatJobEntries(JobEntriesFromRuns(runsOf[bucket.Date.Unix()])),
		})
	}
	return points
}

func dailyFlakePoints(runs []flakechartapi.TestRun) []flakechartapi.FlakePoint {
	return flakePoints(AggregateByDate(runs, ByRootJob), runs, runDate)
}

func weeklyFlakePoints(runs []flakechartapi.TestRun, boundaries []time.Time) []flakechartapi.FlakePoint {
	if len(boundaries) == 0 {
		return []flakechartapi.FlakePoint{}
	}
	return flakePoints(AggregateByWeek(runs, boundaries, ByRootJob), runs, weekOf(boundaries))
}

func weekOf(boundaries []time.Time) func(flakechartapi.TestRun) time.Time {
	return func(run flakechartapi.TestRun) time.Time { return AssignWeek(boundaries, run.Date) }
}

// BuildTestResponse aggregates the runs of test on environment by day and by week.
func BuildTestResponse(runs []flakechartapi.TestRun, environment, test string) flakechartapi.TestResponse {
	filtered := FilterRuns(runs, RunFilter{Test: test, Environment: environment})
	return flakechartapi.TestResponse{
		FlakeByDay:  dailyFlakePoints(filtered),
		FlakeByWeek: weeklyFlakePoints(filtered, WeekBoundaries(filtered)),
	}
}

// BuildEnvResponse ranks the tests of environment and aggregates the top ones.
func BuildEnvResponse(runs []flakechartapi.TestRun, environment string, opts RankOptions) flakechartapi.EnvResponse {
	filtered := FilterRuns(runs, RunFilter{Environment: environment})
	board := RankFlakes(BucketsByTest(filtered), opts)
	boundaries := WeekBoundaries(filtered)

	resp := flakechartapi.EnvResponse{
		RecentFlakePercentTable:  []flakechartapi.RecentFlake{},
		FlakeRateByDay:           []flakechartapi.TestFlakePoint{},
		FlakeRateByWeek:          []flakechartapi.TestFlakePoint{},
		CountsAndDurations:       countsAndDurations(TestCountsByDate(filtered), JobCountsByDate(filtered), averageJobDuration(filtered, runDate)),
		CountsAndDurationsByWeek: []flakechartapi.CountsAndDurations{},
	}
	for _, ranked := range board.Ranked {
		resp.RecentFlakePercentTable = append(resp.RecentFlakePercentTable, flakechartapi.RecentFlake{
			TestName:              ranked.TestName,
			RecentFlakePercentage: ranked.FlakeRate,
			GrowthRate:            ranked.Growth,
		})
	}
	for _, name := range board.Top {
		testRuns := FilterRuns(filtered, RunFilter{Test: name})
		for _, point := range dailyFlakePoints(testRuns) {
			resp.FlakeRateByDay = append(resp.FlakeRateByDay, flakechartapi.TestFlakePoint{TestName: name, FlakePoint: point})
		}
		for _, point := range weeklyFlakePoints(testRuns, boundaries) {
			resp.FlakeRateByWeek = append(resp.FlakeRateByWeek, flakechartapi.TestFlakePoint{TestName: name, FlakePoint: point})
		}
	}
	if len(boundaries) > 0 {
		resp.CountsAndDurationsByWeek = countsAndDurations(
			TestCountsByWeek(filtered, boundaries),
			JobCountsByWeek(filtered, boundaries),
			averageJobDuration(filtered, weekOf(boundaries)),
		)
	}
	return resp
}

// countsAndDurations pairs the test counts of every bucket with the duration of a job. Buckets
// whose root jobs report a total duration use its mean, the others the estimate.
func countsAndDurations(counts []flakechartapi.CountsBucket, jobs []flakechartapi.JobCountsBucket, estimated map[int64]float64) []flakechartapi.CountsAndDurations {
	jobDurations := make(map[int64]float64, len(jobs))
	for _, bucket := range jobs {
		jobDurations[bucket.Date.Unix()] = bucket.AvgTotalDuration
	}
	ret := []flakechartapi.CountsAndDurations{}
	for _, c := range counts {
		duration := jobDurations[c.Date.Unix()]
		if duration <= 0 {
			duration = estimated[c.Date.Unix()]
		}
		ret = append(ret, flakechartapi.CountsAndDurations{
			StartOfDate: c.Date,
			TestCount:   c.TestCount,
			FailCount:   c.FailCount,
			Duration:    duration,
		})
	}
	return ret
}

// BuildSummaryResponse summarizes every environment.
func BuildSummaryResponse(runs []flakechartapi.TestRun, window int) flakechartapi.SummaryResponse {
	summaries := SummarizeEnvironments(runs, window)
	resp := flakechartapi.SummaryResponse{
		SummaryAvgFail: []flakechartapi.SummaryAvgFail{},
		SummaryTable:   []flakechartapi.SummaryTableRow{},
	}
	for _, day := range summaries.Days {
		resp.SummaryAvgFail = append(resp.SummaryAvgFail, flakechartapi.SummaryAvgFail{
			StartOfDate:    day.Date,
			EnvName:        day.Environment,
			AvgFailedTests: day.AvgFailedTests,
			AvgDuration:    day.AvgDuration,
		})
	}
	for _, row := range summaries.Table {
		resp.SummaryTable = append(resp.SummaryTable, flakechartapi.SummaryTableRow{
			EnvName:            row.Environment,
			RecentNumberOfFail: row.RecentFailCount,
			GrowthNumberOfFail: row.Growth,
		})
	}
	return resp
}

// BucketFromFlakePoint converts a point received from an aggregation service into a bucket
// broken down by root job.
func BucketFromFlakePoint(point flakechartapi.FlakePoint) (flakechartapi.DateBucket, error) {
	entries, err := ParseJobEntries(point.CommitResultsAndDurations)
	if err != nil {
		return flakechartapi.DateBucket{}, fmt.Errorf("point of %s: %w", point.StartOfDate.Format(time.DateOnly), err)
	}
	return flakechartapi.DateBucket{
		Date:        point.StartOfDate,
		FlakeRate:   point.FlakePercentage,
		AvgDuration: point.AvgDuration,
		RunCount:    len(entries),
		Breakdown:   BreakdownFromJobEntries(entries),
	}, nil
}

func BucketsFromFlakePoints(points []flakechartapi.FlakePoint) ([]flakechartapi.DateBucket, error) {
	var buckets []flakechartapi.DateBucket
	for _, point := range points {
		bucket, err := BucketFromFlakePoint(point)
		if err != nil {
			return nil, err
		}
		buckets = append(buckets, bucket)
	}
	sortBuckets(buckets)
	return buckets, nil
}

// TestBucketsFromFlakePoints groups per test points, in the order tests first appear.
func TestBucketsFromFlakePoints(points []flakechartapi.TestFlakePoint) ([]TestDateBuckets, error) {
	var ret []TestDateBuckets
	for _, group := range GroupBy(points, func(p flakechartapi.TestFlakePoint) string { return p.TestName }) {
		flat := make([]flakechartapi.FlakePoint, 0, len(group.Items))
		for _, p := range group.Items {
			flat = append(flat, p.FlakePoint)
		}
		buckets, err := BucketsFromFlakePoints(flat)
		if err != nil {
			return nil, fmt.Errorf("test %s: %w", group.Key, err)
		}
		ret = append(ret, NewTestDateBuckets(group.Key, buckets))
	}
	return ret, nil
}

// previousFromGrowth derives the previous value from the recent one and its growth. Payloads do
// not say whether the previous window had data, so a zero growth is read as no previous data
// and an unchanged value is reported without a previous one.
func previousFromGrowth(recent, growth float64) (float64, bool) {
	if growth == 0 {
		return 0, false
	}
	return recent - growth, true
}

// LeaderboardFromEnvResponse rebuilds the leaderboard served by an aggregation service. The
// service only reports growth, so the previous rate is derived from it.
func LeaderboardFromEnvResponse(resp flakechartapi.EnvResponse, topFlakes int) (Leaderboard, error) {
	if topFlakes <= 0 {
		topFlakes = DefaultTopFlakes
	}
	tests, err := TestBucketsFromFlakePoints(resp.FlakeRateByDay)
	if err != nil {
		return Leaderboard{}, err
	}
	board := Leaderboard{Dates: OrderedDates(tests)}
	for _, recent := range resp.RecentFlakePercentTable {
		previous, hasPrevious := previousFromGrowth(recent.RecentFlakePercentage, recent.GrowthRate)
		board.Ranked = append(board.Ranked, flakechartapi.RankedTest{
			TestName:          recent.TestName,
			FlakeRate:         recent.RecentFlakePercentage,
			PreviousFlakeRate: previous,
			HasPrevious:       hasPrevious,
			Growth:            recent.GrowthRate,
		})
	}
	for _, ranked := range board.Ranked[:min(topFlakes, len(board.Ranked))] {
		board.Top = append(board.Top, ranked.TestName)
	}
	return board, nil
}

// SummariesFromRemote converts a received summary into the local summary model. Previous fail
// counts are derived from growth as LeaderboardFromEnvResponse derives previous rates.
func SummariesFromRemote(resp flakechartapi.SummaryResponse) EnvironmentSummaries {
	var ret EnvironmentSummaries
	for _, day := range resp.SummaryAvgFail {
		ret.Days = append(ret.Days, flakechartapi.EnvironmentDay{
			Environment:    day.EnvName,
			Date:           day.StartOfDate,
			AvgFailedTests: day.AvgFailedTests,
			AvgDuration:    day.AvgDuration,
		})
	}
	for _, row := range resp.SummaryTable {
		previous, hasPrevious := previousFromGrowth(row.RecentNumberOfFail, row.GrowthNumberOfFail)
		ret.Table = append(ret.Table, flakechartapi.EnvironmentSummary{
			Environment:       row.EnvName,
			RecentFailCount:   row.RecentNumberOfFail,
			PreviousFailCount: previous,
			HasPrevious:       hasPrevious,
			Growth:            row.GrowthNumberOfFail,
		})
	}
	return ret
}
