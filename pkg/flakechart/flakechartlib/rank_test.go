package flakechartlib

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/kubernetes/minikube/pkg/flakechart/flakechartapi"
)

func bucketsOf(name string, buckets ...flakechartapi.DateBucket) TestDateBuckets {
	return NewTestDateBuckets(name, buckets)
}

func bucket(date string, flakeRate float64, runs int) flakechartapi.DateBucket {
	return flakechartapi.DateBucket{Date: day(date), FlakeRate: flakeRate, RunCount: runs}
}

func TestSplitWindows(t *testing.T) {
	var dates []time.Time
	for i := 0; i < 5; i++ {
		dates = append(dates, day("2024-01-01").AddDate(0, 0, i))
	}
	testCases := []struct {
		name             string
		n                int
		expectedRecent   []time.Time
		expectedPrevious []time.Time
	}{
		{name: "both windows full", n: 2, expectedRecent: dates[3:], expectedPrevious: dates[1:3]},
		{name: "previous window short", n: 3, expectedRecent: dates[2:], expectedPrevious: dates[:2]},
		{name: "not enough for recent", n: 10, expectedRecent: dates, expectedPrevious: []time.Time{}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			recent, previous := SplitWindows(dates, tc.n)
			if diff := cmp.Diff(tc.expectedRecent, recent); diff != "" {
				t.Errorf("unexpected recent window (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tc.expectedPrevious, previous); diff != "" {
				t.Errorf("unexpected previous window (-want +got):\n%s", diff)
			}
		})
	}
}

func TestWeightedFlakeRate(t *testing.T) {
	test := bucketsOf("T", bucket("2024-01-01", 100, 1), bucket("2024-01-02", 0, 3))
	rate, runs := WeightedFlakeRate(test, []time.Time{day("2024-01-01"), day("2024-01-02"), day("2024-01-03")})
	assert.Equal(t, 25.0, rate)
	assert.Equal(t, 4, runs)

	rate, runs = WeightedFlakeRate(test, []time.Time{day("2024-02-01")})
	assert.Zero(t, rate)
	assert.Zero(t, runs)
}

func TestRankFlakes(t *testing.T) {
	var dates []string
	for i := 0; i < 4; i++ {
		dates = append(dates, day("2024-01-01").AddDate(0, 0, i).Format(time.DateOnly))
	}
	tests := []TestDateBuckets{
		bucketsOf("steady", bucket(dates[0], 20, 1), bucket(dates[2], 20, 1)),
		bucketsOf("new", bucket(dates[3], 40, 2)),
		bucketsOf("tieA", bucket(dates[1], 10, 1), bucket(dates[2], 30, 1)),
		bucketsOf("tieB", bucket(dates[3], 30, 1)),
		bucketsOf("improving", bucket(dates[0], 80, 1), bucket(dates[3], 0, 1)),
	}
	board := RankFlakes(tests, RankOptions{DateRange: 2, TopFlakes: 3})

	expected := []flakechartapi.RankedTest{
		{TestName: "new", FlakeRate: 40},
		{TestName: "tieA", FlakeRate: 30, PreviousFlakeRate: 10, HasPrevious: true, Growth: 20},
		{TestName: "tieB", FlakeRate: 30},
		{TestName: "steady", FlakeRate: 20, PreviousFlakeRate: 20, HasPrevious: true, Growth: 0},
		{TestName: "improving", FlakeRate: 0, PreviousFlakeRate: 80, HasPrevious: true, Growth: -80},
	}
	if diff := cmp.Diff(expected, board.Ranked); diff != "" {
		t.Errorf("unexpected ranking (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"new", "tieA", "tieB"}, board.Top)
	assert.Equal(t, []time.Time{day(dates[2]), day(dates[3])}, board.RecentDates)
	assert.Equal(t, []time.Time{day(dates[0]), day(dates[1])}, board.PreviousDates)
}

func TestRankFlakesDefaults(t *testing.T) {
	var tests []TestDateBuckets
	for i := 0; i < 12; i++ {
		tests = append(tests, bucketsOf(string(rune('a'+i)), bucket("2024-01-01", float64(i), 1)))
	}
	board := RankFlakes(tests, RankOptions{})
	assert.Len(t, board.Top, DefaultTopFlakes)
	assert.Equal(t, "l", board.Top[0])
	assert.Empty(t, RankFlakes(nil, RankOptions{}).Top)
}

func TestBucketsByTest(t *testing.T) {
	runs := []flakechartapi.TestRun{
		run("c1", "2024-01-02", "e", "T2", flakechartapi.StatusFailed, 1),
		run("c1", "2024-01-01", "e", "T1", flakechartapi.StatusPassed, 1),
		run("c2", "2024-01-02", "e", "T2", flakechartapi.StatusPassed, 1),
	}
	tests := BucketsByTest(runs)
	if len(tests) != 2 || tests[0].TestName != "T2" || tests[1].TestName != "T1" {
		t.Fatalf("unexpected tests: %+v", tests)
	}
	b, ok := tests[0].Bucket(day("2024-01-02"))
	assert.True(t, ok)
	assert.Equal(t, 50.0, b.FlakeRate)
	_, ok = tests[0].Bucket(day("2024-01-01"))
	assert.False(t, ok)
	assert.Equal(t, []time.Time{day("2024-01-01"), day("2024-01-02")}, OrderedDates(tests))
}
