package flakechartlib

import (
	"sort"
	"time"

	"github.com/kubernetes/minikube/pkg/flakechart/flakechartapi"
)

const (
	DefaultDateRange = 15
	DefaultTopFlakes = 10
)

// TestDateBuckets holds the daily buckets of a single test.
type TestDateBuckets struct {
	TestName string
	byDate   map[int64]flakechartapi.DateBucket
}

func NewTestDateBuckets(testName string, buckets []flakechartapi.DateBucket) TestDateBuckets {
	t := TestDateBuckets{TestName: testName, byDate: make(map[int64]flakechartapi.DateBucket, len(buckets))}
	for _, bucket := range buckets {
		t.byDate[bucket.Date.Unix()] = bucket
	}
	return t
}

// Bucket returns the bucket of date, if the test ran that day.
func (t TestDateBuckets) Bucket(date time.Time) (flakechartapi.DateBucket, bool) {
	bucket, ok := t.byDate[date.Unix()]
	return bucket, ok
}

// BucketsByTest aggregates runs by date for every test, in the order the tests first appear.
// runs are expected to be filtered to one environment.
func BucketsByTest(runs []flakechartapi.TestRun) []TestDateBuckets {
	var ret []TestDateBuckets
	for _, group := range GroupBy(runs, func(run flakechartapi.TestRun) string { return run.Name }) {
		ret = append(ret, NewTestDateBuckets(group.Key, AggregateByDate(group.Items, ByCommit)))
	}
	return ret
}

// OrderedDates returns every date any test has a bucket for, ascending and without duplicates.
func OrderedDates(tests []TestDateBuckets) []time.Time {
	seen := map[int64]time.Time{}
	for _, test := range tests {
		for key, bucket := range test.byDate {
			seen[key] = bucket.Date
		}
	}
	dates := make([]time.Time, 0, len(seen))
	for _, date := range seen {
		dates = append(dates, date)
	}
	SortDates(dates)
	return dates
}

// SplitWindows returns the last n dates and the n dates before them. Either may be shorter
// than n, or empty, when there are not enough dates.
func SplitWindows(dates []time.Time, n int) (recent, previous []time.Time) {
	if n <= 0 {
		return nil, nil
	}
	recentStart := max(len(dates)-n, 0)
	previousStart := max(recentStart-n, 0)
	return dates[recentStart:], dates[previousStart:recentStart]
}

// WeightedFlakeRate averages the flake rate of the test over dates, weighting each date by the
// number of runs on it. Dates the test did not run on carry no weight. The second return value
// is the total number of runs, 0 meaning the test has no data in dates.
func WeightedFlakeRate(test TestDateBuckets, dates []time.Time) (float64, int) {
	weighted, runs := 0.0, 0
	for _, date := range dates {
		bucket, ok := test.Bucket(date)
		if !ok {
			continue
		}
		weighted += bucket.FlakeRate * float64(bucket.RunCount)
		runs += bucket.RunCount
	}
	if runs == 0 {
		return 0, 0
	}
	return weighted / float64(runs), runs
}

type RankOptions struct {
	// DateRange is the number of dates in each of the recent and previous windows.
	DateRange int
	// TopFlakes is the number of tests selected for charting.
	TopFlakes int
}

// WithDefaults replaces unset fields by DefaultDateRange and DefaultTopFlakes.
func (o RankOptions) WithDefaults() RankOptions {
	if o.DateRange <= 0 {
		o.DateRange = DefaultDateRange
	}
	if o.TopFlakes <= 0 {
		o.TopFlakes = DefaultTopFlakes
	}
	return o
}

type Leaderboard struct {
	// Ranked holds every test, most flaky first.
	Ranked []flakechartapi.RankedTest
	// Top is the names of the first TopFlakes entries of Ranked.
	Top           []string
	Dates         []time.Time
	RecentDates   []time.Time
	PreviousDates []time.Time
}

// RankFlakes orders tests by their weighted flake rate over the recent window and computes the
// growth against the previous window. Tests with equal rates keep their input order.
func RankFlakes(tests []TestDateBuckets, opts RankOptions) Leaderboard {
	opts = opts.WithDefaults()
	board := Leaderboard{Dates: OrderedDates(tests)}
	board.RecentDates, board.PreviousDates = SplitWindows(board.Dates, opts.DateRange)

	for _, test := range tests {
		recent, _ := WeightedFlakeRate(test, board.RecentDates)
		previous, previousRuns := WeightedFlakeRate(test, board.PreviousDates)
		ranked := flakechartapi.RankedTest{
			TestName:          test.TestName,
			FlakeRate:         recent,
			PreviousFlakeRate: previous,
			HasPrevious:       previousRuns > 0,
		}
		if ranked.HasPrevious {
			ranked.Growth = recent - previous
		}
		board.Ranked = append(board.Ranked, ranked)
	}
	sort.SliceStable(board.Ranked, func(i, j int) bool { return board.Ranked[i].FlakeRate > board.Ranked[j].FlakeRate })

	for _, ranked := range board.Ranked[:min(opts.TopFlakes, len(board.Ranked))] {
		board.Top = append(board.Top, ranked.TestName)
	}
	return board
}
