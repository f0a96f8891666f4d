package flakechartserver

import (
	"fmt"
	"net/http"

	"github.com/kubernetes/minikube/pkg/flakechart/flakechartapi"
	"github.com/kubernetes/minikube/pkg/flakechart/flakechartlib"
	"github.com/kubernetes/minikube/pkg/flakechart/flakechartview"
	pagehtml "github.com/kubernetes/minikube/pkg/html"
)

const dashboardTemplate = `{{if .Message}}<p class="error">{{.Message}}</p>
{{end}}{{range .Charts}}<div class="chart" id="{{.ID}}"></div>
{{end}}<script id="chart-data" type="application/json">{{.Charts}}</script>
{{if .Leaderboard}}<table class="flakes">
<tr><th>Rank</th><th class="name">Test Name</th><th>Recent Flake Percentage</th><th>{{.GrowthHeader}}</th></tr>
{{range .Leaderboard}}<tr><td class="rank">{{.Rank}}</td><td class="name"><a href="{{.Link}}">{{.TestName}}</a></td><td class="rate">{{.FlakeRate}}</td><td><span style="color: {{.GrowthColor}}">{{.Growth}}</span></td></tr>
{{end}}</table>
{{end}}{{if .Summary}}<table class="flakes">
<tr><th>Rank</th><th class="name">Environment</th><th>Recent Failed Tests</th><th>{{.GrowthHeader}}</th></tr>
{{range .Summary}}<tr><td class="rank">{{.Rank}}</td><td class="name"><a href="{{.Link}}">{{.Environment}}</a></td><td class="rate">{{.RecentFailCount}}</td><td><span style="color: {{.GrowthColor}}">{{.Growth}}</span></td></tr>
{{end}}</table>
{{end}}`

type dashboardPage struct {
	Title        string
	Message      string
	Charts       []flakechartview.Chart
	GrowthHeader string
	Leaderboard  []flakechartview.LeaderboardRow
	Summary      []flakechartview.SummaryRow
}

// serveDashboard renders the test view when a test is requested, the environment view when
// only an environment is, and the summary of every environment otherwise.
func (s *Server) serveDashboard(w http.ResponseWriter, r *http.Request) {
	query, runs, err := s.query(r)
	if err != nil {
		s.badRequest(w, err)
		return
	}

	var page dashboardPage
	switch {
	case query.HasTest:
		page = s.testPage(runs, query)
	case len(query.Environment) > 0:
		page = s.environmentPage(runs, query, r.URL.Path)
	default:
		page = s.summaryPage(runs, r.URL.Path)
	}
	if err := pagehtml.WritePage(w, page.Title, s.dashboard, page); err != nil {
		s.metrics.RecordError("render")
		s.logger.WithError(err).Error("Failed to write page.")
	}
}

func (s *Server) testPage(runs []flakechartapi.TestRun, query flakechartlib.ChartQuery) dashboardPage {
	filtered := flakechartlib.FilterRuns(runs, flakechartlib.RunFilter{Test: query.Test, Environment: query.Environment})
	page := dashboardPage{Title: fmt.Sprintf("%s on %s", query.Test, query.Environment)}
	if len(filtered) == 0 {
		page.Message = fmt.Sprintf("No runs of %s on %s.", query.Test, query.Environment)
		return page
	}
	buckets := flakechartlib.AggregateByDate(filtered, flakechartlib.ByCommit)
	page.Charts = []flakechartview.Chart{flakechartview.TestChart(buckets, query.Test, query.Environment, s.link)}
	return page
}

func (s *Server) environmentPage(runs []flakechartapi.TestRun, query flakechartlib.ChartQuery, path string) dashboardPage {
	opts := query.RankOptions(s.config.RankOptions())
	filtered := flakechartlib.FilterRuns(runs, flakechartlib.RunFilter{Environment: query.Environment})
	page := dashboardPage{
		Title:        "Flake rates on " + query.Environment,
		GrowthHeader: fmt.Sprintf("Growth (since last %d days)", opts.DateRange),
	}
	if len(filtered) == 0 {
		page.Message = fmt.Sprintf("No runs on %s.", query.Environment)
		return page
	}
	tests := flakechartlib.BucketsByTest(filtered)
	board := flakechartlib.RankFlakes(tests, opts)
	page.Charts = []flakechartview.Chart{
		flakechartview.EnvironmentFlakeChart(board, tests, query.Environment, opts, s.link),
		flakechartview.EnvironmentDurationChart(board, tests, query.Environment, opts, s.link),
		flakechartview.TestCountChart(flakechartlib.TestCountsByDate(filtered), query.Environment, s.link),
	}
	page.Leaderboard = flakechartview.LeaderboardRows(board, query.Environment, path)
	return page
}

func (s *Server) summaryPage(runs []flakechartapi.TestRun, path string) dashboardPage {
	window := s.config.RankOptions().DateRange
	summaries := flakechartlib.SummarizeEnvironments(runs, window)
	page := dashboardPage{
		Title:        "Flake rates by environment",
		GrowthHeader: fmt.Sprintf("Growth (since last %d days)", window),
	}
	if len(summaries.Days) == 0 {
		page.Message = "No test runs."
		return page
	}
	page.Charts = []flakechartview.Chart{flakechartview.SummaryChart(summaries)}
	page.Summary = s.config.orderRows(flakechartview.SummaryRows(summaries.Table, path))
	return page
}
