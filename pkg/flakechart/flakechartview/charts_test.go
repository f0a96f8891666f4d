package flakechartview

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kubernetes/minikube/pkg/flakechart/flakechartapi"
	"github.com/kubernetes/minikube/pkg/flakechart/flakechartlib"
)

func day(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestHashLink(t *testing.T) {
	testCases := []struct {
		name     string
		template string
		hash     string
		expected string
	}{
		{
			name:     "default shortens the hash",
			hash:     "0123456789abcdef",
			expected: "https://storage.googleapis.com/minikube-builds/logs/master/0123456/Docker_Linux.html",
		},
		{
			name:     "short hash is kept",
			hash:     "abc",
			expected: "https://storage.googleapis.com/minikube-builds/logs/master/abc/Docker_Linux.html",
		},
		{
			name:     "custom template",
			template: "https://ci.example.com/{env}/jobs/{hash}",
			hash:     "0123456789abcdef",
			expected: "https://ci.example.com/Docker_Linux/jobs/0123456789abcdef",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, NewHashLinker(tc.template)(tc.hash, "Docker_Linux"))
		})
	}
	assert.Equal(t, testCases[0].expected, HashLink("0123456789abcdef", "Docker_Linux"))
}

func TestTestChart(t *testing.T) {
	buckets := []flakechartapi.DateBucket{
		{
			Date:        day("2024-01-05"),
			FlakeRate:   50,
			AvgDuration: 1.5,
			RunCount:    2,
			Breakdown: []flakechartapi.Breakdown{
				{Key: "c1", Runs: 1, Failures: 1, AvgDuration: 1},
				{Key: "c2", Runs: 1, AvgDuration: 2},
			},
		},
	}
	chart := TestChart(buckets, "TestFunctional", "KVM_Linux", HashLink)

	expectedCols := []Column{
		{Type: ColumnDate, Label: "Date"},
		{Type: ColumnNumber, Label: "Flake Percentage"},
		{Type: ColumnString, Role: RoleTooltip, P: &ColumnProperties{HTML: true}},
		{Type: ColumnNumber, Label: "Duration"},
		{Type: ColumnString, Role: RoleTooltip, P: &ColumnProperties{HTML: true}},
	}
	if diff := cmp.Diff(expectedCols, chart.Data.Cols); diff != "" {
		t.Errorf("unexpected columns (-want +got):\n%s", diff)
	}
	require.Len(t, chart.Data.Rows, 1)
	row := chart.Data.Rows[0].C
	assert.Equal(t, "Date(2024, 0, 5)", row[0].V)
	assert.Equal(t, 50.0, row[1].V)
	assert.Equal(t, 1.5, row[3].V)

	flakeTooltip := row[2].V.(string)
	assert.True(t, strings.HasPrefix(flakeTooltip, tooltipStart))
	assert.Contains(t, flakeTooltip, "<b>Fri Jan 05 2024</b><br>")
	assert.Contains(t, flakeTooltip, "<b>Flake Percentage:</b> 50.00%<br>")
	assert.Contains(t, flakeTooltip, `  - <a href="https://storage.googleapis.com/minikube-builds/logs/master/c1/KVM_Linux.html">c1</a> (Failures: 1/1)<br>  - <a`)
	assert.Contains(t, row[4].V.(string), "(Average of 1: 2.00s)")

	assert.Equal(t, "Flake rate and duration by day of TestFunctional on KVM_Linux", chart.Options.Title)
	assert.Equal(t, 1, chart.Options.Series[1].TargetAxisIndex)
}

func TestEnvironmentCharts(t *testing.T) {
	tests := []flakechartlib.TestDateBuckets{
		flakechartlib.NewTestDateBuckets("T1", []flakechartapi.DateBucket{
			{Date: day("2024-01-01"), FlakeRate: 100, AvgDuration: 3, RunCount: 1, Breakdown: []flakechartapi.Breakdown{{Key: "c1", Runs: 1, Failures: 1, AvgDuration: 3}}},
			{Date: day("2024-01-02"), FlakeRate: 50, AvgDuration: 4, RunCount: 2, Breakdown: []flakechartapi.Breakdown{{Key: "c2", Runs: 2, Failures: 1, AvgDuration: 4}}},
		}),
		flakechartlib.NewTestDateBuckets("T2<script>", []flakechartapi.DateBucket{
			{Date: day("2024-01-02"), RunCount: 1, AvgDuration: 1, Breakdown: []flakechartapi.Breakdown{{Key: "c2", Runs: 1, AvgDuration: 1}}},
		}),
	}
	opts := flakechartlib.RankOptions{DateRange: 15, TopFlakes: 10}
	board := flakechartlib.RankFlakes(tests, opts)

	flake := EnvironmentFlakeChart(board, tests, "envA", opts, HashLink)
	assert.Equal(t, "Flake rate by day of top 10 of recent test flakiness (past 15 days) on envA", flake.Options.Title)
	require.Len(t, flake.Data.Cols, 5)
	assert.Equal(t, "Flake Percentage - T1", flake.Data.Cols[1].Label)
	require.Len(t, flake.Data.Rows, 2)
	first := flake.Data.Rows[0].C
	assert.Equal(t, 100.0, first[1].V)
	assert.Nil(t, first[3].V, "T2 did not run on the first date")
	assert.Nil(t, first[4].V)
	assert.Contains(t, flake.Data.Rows[1].C[4].V.(string), `<b style="display: block">T2&lt;script&gt;</b>`)

	duration := EnvironmentDurationChart(board, tests, "envA", opts, HashLink)
	assert.Equal(t, "Duration - T1", duration.Data.Cols[1].Label)
	assert.Equal(t, 4.0, duration.Data.Rows[1].C[1].V)
	assert.Contains(t, duration.Data.Rows[1].C[2].V.(string), "(Average Duration: 4.00s [2 runs])")
}

func TestTestCountChart(t *testing.T) {
	counts := []flakechartapi.CountsBucket{
		{
			Date:      day("2024-01-01"),
			TestCount: 4.0 / 3,
			FailCount: 0.5,
			Commits: []flakechartapi.CommitCounts{
				{Commit: "c1", SumTestCount: 4, SumFailCount: 1, MaxRunCount: 3},
				{Commit: "c2", SumTestCount: 2, SumFailCount: 0, MaxRunCount: 2},
			},
		},
	}
	chart := TestCountChart(counts, "envA", HashLink)
	require.Len(t, chart.Data.Rows, 1)
	row := chart.Data.Rows[0].C
	assert.Contains(t, row[2].V.(string), "<b>Test Count (averaged): </b> 1.33<br>")
	assert.Contains(t, row[2].V.(string), "(Test count (averaged): 1.33 [4 tests / 3 runs])")
	assert.Contains(t, row[4].V.(string), "<b>Fail Count (averaged): </b> 0.5<br>")
	assert.Contains(t, row[4].V.(string), "(Fail count (averaged): 0 [0 fails / 2 runs])")
	assert.Equal(t, "Test count by day on envA", chart.Options.Title)
}

func TestSummaryChart(t *testing.T) {
	summaries := flakechartlib.EnvironmentSummaries{
		Days: []flakechartapi.EnvironmentDay{
			{Environment: "envA", Date: day("2024-01-02"), AvgFailedTests: 2},
			{Environment: "envA", Date: day("2024-01-01"), AvgFailedTests: 1},
			{Environment: "envB", Date: day("2024-01-02"), AvgFailedTests: 3},
		},
	}
	chart := SummaryChart(summaries)
	require.Len(t, chart.Data.Cols, 5)
	require.Len(t, chart.Data.Rows, 2)
	assert.Equal(t, "Date(2024, 0, 1)", chart.Data.Rows[0].C[0].V)
	assert.Equal(t, 1.0, chart.Data.Rows[0].C[1].V)
	assert.Nil(t, chart.Data.Rows[0].C[3].V)
	assert.Equal(t, 3.0, chart.Data.Rows[1].C[3].V)
}

func TestDataTableJSON(t *testing.T) {
	data := DataTable{}
	data.addColumn(ColumnDate, "Date")
	data.addTooltipColumn()
	data.addRow("Date(2024, 0, 1)", nil)
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"cols": [{"type": "date", "label": "Date"}, {"type": "string", "role": "tooltip", "p": {"html": true}}],
		"rows": [{"c": [{"v": "Date(2024, 0, 1)"}, {"v": null}]}]
	}`, string(raw))
}
