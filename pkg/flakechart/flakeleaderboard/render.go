package flakeleaderboard

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/kubernetes/minikube/pkg/flakechart/flakechartapi"
	"github.com/kubernetes/minikube/pkg/flakechart/flakechartlib"
	"github.com/kubernetes/minikube/pkg/flakechart/flakechartview"
)

// Render prints the first limit ranked tests of board, all of them when limit is 0.
func Render(w io.Writer, board flakechartlib.Leaderboard, format string, limit int) error {
	ranked := board.Ranked
	if limit > 0 && limit < len(ranked) {
		ranked = ranked[:limit]
	}
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(ranked)
	}

	top := make(map[string]bool, len(board.Top))
	for _, name := range board.Top {
		top[name] = true
	}

	t := newTable(w)
	t.AppendHeader(table.Row{"Rank", "Test", "Recent Flake %", "Previous Flake %", "Growth"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
	})
	for i, test := range ranked {
		name := test.TestName
		if top[name] && format == "table" {
			name = text.Bold.Sprint(name)
		}
		previous := "-"
		if test.HasPrevious {
			previous = fmt.Sprintf("%.2f%%", test.PreviousFlakeRate)
		}
		t.AppendRow(table.Row{i + 1, name, fmt.Sprintf("%.2f%%", test.FlakeRate), previous, flakechartview.GrowthText(test.Growth)})
	}
	renderTable(t, format)
	return nil
}

// RenderSummary prints the first limit environments of summaries, all of them when limit is 0.
func RenderSummary(w io.Writer, summaries []flakechartapi.EnvironmentSummary, format string, limit int) error {
	if limit > 0 && limit < len(summaries) {
		summaries = summaries[:limit]
	}
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(summaries)
	}

	t := newTable(w)
	t.AppendHeader(table.Row{"Rank", "Environment", "Recent Failed Tests", "Previous Failed Tests", "Growth"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
	})
	for i, row := range flakechartview.SummaryRows(summaries, "") {
		previous := "-"
		if summaries[i].HasPrevious {
			previous = fmt.Sprintf("%.2f", summaries[i].PreviousFailCount)
		}
		t.AppendRow(table.Row{row.Rank, row.Environment, row.RecentFailCount, previous, row.Growth})
	}
	renderTable(t, format)
	return nil
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}

func renderTable(t table.Writer, format string) {
	switch format {
	case "markdown":
		t.RenderMarkdown()
	case "csv":
		t.RenderCSV()
	default:
		t.Render()
	}
}
