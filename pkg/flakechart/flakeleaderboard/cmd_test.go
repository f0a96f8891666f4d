package flakeleaderboard

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	clocktesting "k8s.io/utils/clock/testing"

	"github.com/kubernetes/minikube/pkg/flakechart/flakechartapi"
	"github.com/kubernetes/minikube/pkg/flakechart/flakechartlib"
)

func day(d int) time.Time {
	return time.Date(2024, time.January, d, 0, 0, 0, 0, time.UTC)
}

var sampleRuns = []flakechartapi.TestRun{
	{Commit: "c1", Date: day(1), Environment: "Docker_Linux", Name: "TestA", Status: flakechartapi.StatusFailed},
	{Commit: "c2", Date: day(2), Environment: "Docker_Linux", Name: "TestA", Status: flakechartapi.StatusPassed},
	{Commit: "c2", Date: day(2), Environment: "Docker_Linux", Name: "TestB", Status: flakechartapi.StatusFailed},
	{Commit: "c2", Date: day(2), Environment: "KVM_Linux", Name: "TestC", Status: flakechartapi.StatusFailed},
}

func staticLoader(runs []flakechartapi.TestRun) flakechartlib.Loader {
	return func(context.Context) ([]flakechartapi.TestRun, error) { return runs, nil }
}

func localOptions(format string, limit int) (*LeaderboardOptions, *bytes.Buffer) {
	out := &bytes.Buffer{}
	fakeClock := clocktesting.NewFakePassiveClock(day(3))
	return &LeaderboardOptions{
		source:      LocalSource(staticLoader(sampleRuns), fakeClock, "Docker_Linux", flakechartlib.PeriodAll, flakechartlib.RankOptions{DateRange: 1, TopFlakes: 1}),
		environment: "Docker_Linux",
		limit:       limit,
		format:      format,
		out:         out,
	}, out
}

func TestLocalSource(t *testing.T) {
	o, _ := localOptions("table", 0)
	board, err := o.source(context.Background())
	require.NoError(t, err)

	expected := []flakechartapi.RankedTest{
		{TestName: "TestB", FlakeRate: 100},
		{TestName: "TestA", FlakeRate: 0, PreviousFlakeRate: 100, HasPrevious: true, Growth: -100},
	}
	if diff := cmp.Diff(expected, board.Ranked); diff != "" {
		t.Errorf("unexpected ranking (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"TestB"}, board.Top)
}

func TestRunFormats(t *testing.T) {
	testCases := []struct {
		name     string
		format   string
		limit    int
		contains []string
		excludes []string
	}{
		{
			name:     "markdown",
			format:   "markdown",
			contains: []string{"| Rank | Test | Recent Flake % | Previous Flake % | Growth |", "| 1 | TestB | 100.00% | - | 0.00% |", "| 2 | TestA | 0.00% | 100.00% | -100.00% |"},
		},
		{
			name:     "csv",
			format:   "csv",
			contains: []string{"Rank,Test,Recent Flake %,Previous Flake %,Growth", "1,TestB,100.00%,-,0.00%", "2,TestA,0.00%,100.00%,-100.00%"},
		},
		{
			name:     "limit",
			format:   "csv",
			limit:    1,
			contains: []string{"1,TestB,100.00%,-,0.00%"},
			excludes: []string{"TestA"},
		},
		{
			name:     "table",
			format:   "table",
			contains: []string{"Recent Flake %", "TestB", "-100.00%"},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			o, out := localOptions(tc.format, tc.limit)
			require.NoError(t, o.Run(context.Background()))
			for _, s := range tc.contains {
				assert.Contains(t, out.String(), s)
			}
			for _, s := range tc.excludes {
				assert.NotContains(t, out.String(), s)
			}
			assert.NotContains(t, out.String(), "TestC")
		})
	}
}

func TestRunJSON(t *testing.T) {
	o, out := localOptions("json", 1)
	require.NoError(t, o.Run(context.Background()))

	var ranked []flakechartapi.RankedTest
	require.NoError(t, json.Unmarshal(out.Bytes(), &ranked))
	assert.Equal(t, []flakechartapi.RankedTest{{TestName: "TestB", FlakeRate: 100}}, ranked)
}

func TestRunErrors(t *testing.T) {
	o, _ := localOptions("table", 0)
	o.environment = "None"
	o.source = LocalSource(staticLoader(sampleRuns), clocktesting.NewFakePassiveClock(day(3)), "None", flakechartlib.PeriodAll, flakechartlib.RankOptions{})
	assert.EqualError(t, o.Run(context.Background()), "no test runs of environment None")

	o.source = LocalSource(func(context.Context) ([]flakechartapi.TestRun, error) {
		return nil, flakechartapi.ErrEmptyDataset
	}, clocktesting.NewFakePassiveClock(day(3)), "None", flakechartlib.PeriodAll, flakechartlib.RankOptions{})
	assert.True(t, errors.Is(o.Run(context.Background()), flakechartapi.ErrEmptyDataset))
}

func TestRemoteSource(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/env", r.URL.Path)
		assert.Equal(t, "Docker_Linux", r.URL.Query().Get("env"))
		assert.NoError(t, json.NewEncoder(w).Encode(flakechartapi.EnvResponse{
			RecentFlakePercentTable: []flakechartapi.RecentFlake{
				{TestName: "TestB", RecentFlakePercentage: 50, GrowthRate: 10},
				{TestName: "TestA", RecentFlakePercentage: 20},
			},
		}))
	}))
	defer server.Close()

	client := flakechartlib.NewRemoteClient(server.URL, flakechartlib.NewHTTPClient(logrus.New()))
	board, err := RemoteSource(client, "Docker_Linux", 1, flakechartlib.PeriodAll)(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"TestB"}, board.Top)
	require.Len(t, board.Ranked, 2)
	assert.Equal(t, 40.0, board.Ranked[0].PreviousFlakeRate)
}

func TestLocalSummarySource(t *testing.T) {
	out := &bytes.Buffer{}
	o := &LeaderboardOptions{
		summarySource: LocalSummarySource(staticLoader(sampleRuns), clocktesting.NewFakePassiveClock(day(3)), flakechartlib.PeriodAll, 1),
		format:        "csv",
		out:           out,
	}
	require.NoError(t, o.Run(context.Background()))
	assert.Contains(t, out.String(), "Rank,Environment,Recent Failed Tests,Previous Failed Tests,Growth")
	assert.Contains(t, out.String(), "1,Docker_Linux,1,1.00,0.00")
	assert.Contains(t, out.String(), "2,KVM_Linux,1,-,0.00")

	o.summarySource = LocalSummarySource(staticLoader(nil), clocktesting.NewFakePassiveClock(day(3)), flakechartlib.PeriodAll, 1)
	assert.EqualError(t, o.Run(context.Background()), "no test runs")
}

func TestRemoteSummarySource(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/summary", r.URL.Path)
		assert.NoError(t, json.NewEncoder(w).Encode(flakechartlib.BuildSummaryResponse(sampleRuns, 1)))
	}))
	defer server.Close()

	client := flakechartlib.NewRemoteClient(server.URL, flakechartlib.NewHTTPClient(logrus.New()))
	summaries, err := RemoteSummarySource(client, flakechartlib.PeriodAll)(context.Background())
	require.NoError(t, err)
	require.Len(t, summaries.Table, 2)
	assert.Equal(t, "Docker_Linux", summaries.Table[0].Environment)
	assert.Equal(t, 1.0, summaries.Table[0].RecentFailCount)
	assert.Equal(t, "KVM_Linux", summaries.Table[1].Environment)

	out := &bytes.Buffer{}
	require.NoError(t, RenderSummary(out, summaries.Table, "markdown", 1))
	assert.Contains(t, out.String(), "| 1 | Docker_Linux | 1 | - | 0.00 |")
	assert.NotContains(t, out.String(), "KVM_Linux")
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name     string
		mutate   func(f *leaderboardFlags)
		expected string
	}{
		{
			name:   "remote",
			mutate: func(f *leaderboardFlags) {},
		},
		{
			name:   "every environment",
			mutate: func(f *leaderboardFlags) { f.Environment = "" },
		},
		{
			name:     "bad period",
			mutate:   func(f *leaderboardFlags) { f.Period = "last7" },
			expected: `unknown period "last7", must be empty or "last90"`,
		},
		{
			name:     "bad format",
			mutate:   func(f *leaderboardFlags) { f.Format = "xml" },
			expected: "--format must be one of [csv json markdown table]",
		},
		{
			name:     "negative limit",
			mutate:   func(f *leaderboardFlags) { f.Limit = -1 },
			expected: "--limit must not be negative",
		},
		{
			name:     "zero date range",
			mutate:   func(f *leaderboardFlags) { f.DateRange = 0 },
			expected: "--date-range and --top-flakes must be positive",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newLeaderboardFlags()
			f.Environment = "Docker_Linux"
			f.RemoteURL = "http://localhost"
			tc.mutate(f)
			err := f.Validate()
			if tc.expected == "" {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tc.expected)
		})
	}
}
