package flakechartview

import (
	"fmt"
	"net/url"

	"github.com/kubernetes/minikube/pkg/flakechart/flakechartapi"
	"github.com/kubernetes/minikube/pkg/flakechart/flakechartlib"
)

// LeaderboardRow is one line of the recent flakiness table.
type LeaderboardRow struct {
	Rank     int
	TestName string
	// Link opens the test view of the test on the same environment.
	Link        string
	FlakeRate   string
	Growth      string
	GrowthColor string
}

// LeaderboardRows formats every ranked test of board. basePath is the path of the dashboard page.
func LeaderboardRows(board flakechartlib.Leaderboard, environment, basePath string) []LeaderboardRow {
	rows := make([]LeaderboardRow, 0, len(board.Ranked))
	for i, ranked := range board.Ranked {
		rows = append(rows, LeaderboardRow{
			Rank:        i + 1,
			TestName:    ranked.TestName,
			Link:        basePath + "?" + url.Values{"env": {environment}, "test": {ranked.TestName}}.Encode(),
			FlakeRate:   fmt.Sprintf("%.2f%%", ranked.FlakeRate),
			Growth:      GrowthText(ranked.Growth),
			GrowthColor: GrowthColor(ranked.Growth),
		})
	}
	return rows
}

// GrowthText renders a growth in percentage points, with an explicit sign when positive.
func GrowthText(growth float64) string {
	if growth > 0 {
		return fmt.Sprintf("+%.2f%%", growth)
	}
	return fmt.Sprintf("%.2f%%", growth)
}

// GrowthColor is red for more flakiness, green for less.
func GrowthColor(growth float64) string {
	switch {
	case growth > 0:
		return "red"
	case growth < 0:
		return "green"
	default:
		return "black"
	}
}

// SummaryRow is one line of the per environment failure table.
type SummaryRow struct {
	Rank            int
	Environment     string
	Link            string
	RecentFailCount string
	Growth          string
	GrowthColor     string
}

// SummaryRows formats the environment summary table, linking each environment to its view.
func SummaryRows(table []flakechartapi.EnvironmentSummary, basePath string) []SummaryRow {
	rows := make([]SummaryRow, 0, len(table))
	for i, summary := range table {
		growth := fmt.Sprintf("%.2f", summary.Growth)
		if summary.Growth > 0 {
			growth = "+" + growth
		}
		rows = append(rows, SummaryRow{
			Rank:            i + 1,
			Environment:     summary.Environment,
			Link:            basePath + "?" + url.Values{"env": {summary.Environment}}.Encode(),
			RecentFailCount: rounded(summary.RecentFailCount),
			Growth:          growth,
			GrowthColor:     GrowthColor(summary.Growth),
		})
	}
	return rows
}
