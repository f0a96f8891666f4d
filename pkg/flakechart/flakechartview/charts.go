package flakechartview

import (
	"fmt"
	"html"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/kubernetes/minikube/pkg/flakechart/flakechartapi"
	"github.com/kubernetes/minikube/pkg/flakechart/flakechartlib"
)

const tooltipStart = `<div style="padding: 1rem; font-family: 'Arial'; font-size: 14">`

func tooltip(lines ...string) string {
	return tooltipStart + "\n" + strings.Join(lines, "\n") + "\n</div>"
}

func tooltipDate(date time.Time) string {
	return "<b>" + date.Format("Mon Jan 02 2006") + "</b><br>"
}

func tooltipName(name string) string {
	return `<b style="display: block">` + html.EscapeString(name) + "</b><br>"
}

func hashLinks(breakdown []flakechartapi.Breakdown, environment string, link HashLinker, detail func(flakechartapi.Breakdown) string) string {
	lines := make([]string, 0, len(breakdown))
	for _, b := range breakdown {
		lines = append(lines, fmt.Sprintf(`  - <a href="%s">%s</a> (%s)`, html.EscapeString(link(b.Key, environment)), html.EscapeString(b.Key), detail(b)))
	}
	return "<b>Hashes:</b><br>\n" + strings.Join(lines, "<br>")
}

func failureDetail(b flakechartapi.Breakdown) string {
	return fmt.Sprintf("Failures: %d/%d", b.Failures, b.Runs)
}

// rounded formats x with at most two decimals and no trailing zeros.
func rounded(x float64) string {
	return strconv.FormatFloat(math.Round(x*100)/100, 'f', -1, 64)
}

// TestChart draws the flake rate and average duration of a single test on environment.
func TestChart(buckets []flakechartapi.DateBucket, test, environment string, link HashLinker) Chart {
	data := DataTable{}
	data.addColumn(ColumnDate, "Date")
	data.addColumn(ColumnNumber, "Flake Percentage")
	data.addTooltipColumn()
	data.addColumn(ColumnNumber, "Duration")
	data.addTooltipColumn()

	for _, bucket := range buckets {
		data.addRow(
			dateValue(bucket.Date),
			bucket.FlakeRate,
			tooltip(
				tooltipDate(bucket.Date),
				fmt.Sprintf("<b>Flake Percentage:</b> %.2f%%<br>", bucket.FlakeRate),
				hashLinks(bucket.Breakdown, environment, link, failureDetail),
			),
			bucket.AvgDuration,
			tooltip(
				tooltipDate(bucket.Date),
				fmt.Sprintf("<b>Average Duration:</b> %.2fs<br>", bucket.AvgDuration),
				hashLinks(bucket.Breakdown, environment, link, func(b flakechartapi.Breakdown) string {
					return fmt.Sprintf("Average of %d: %.2fs", b.Runs, b.AvgDuration)
				}),
			),
		)
	}

	options := newOptions(fmt.Sprintf("Flake rate and duration by day of %s on %s", test, environment),
		percentAxis("Flake rate"), Axis{Title: "Duration (seconds)"})
	options.Series = map[int]Series{0: {TargetAxisIndex: 0}, 1: {TargetAxisIndex: 1}}
	options.Colors = []string{"#dc3912", "#3366cc"}
	return Chart{ID: "test", Data: data, Options: options}
}

// topTestSeries adds one value and tooltip column per top test and one row per date of the
// leaderboard. Dates a test did not run on are left empty.
func topTestSeries(board flakechartlib.Leaderboard, tests []flakechartlib.TestDateBuckets, label string, cell func(name string, bucket flakechartapi.DateBucket) (float64, string)) DataTable {
	byName := make(map[string]flakechartlib.TestDateBuckets, len(tests))
	for _, test := range tests {
		byName[test.TestName] = test
	}

	data := DataTable{}
	data.addColumn(ColumnDate, "Date")
	for _, name := range board.Top {
		data.addColumn(ColumnNumber, label+" - "+name)
		data.addTooltipColumn()
	}
	for _, date := range board.Dates {
		values := []interface{}{dateValue(date)}
		for _, name := range board.Top {
			bucket, ok := byName[name].Bucket(date)
			if !ok {
				values = append(values, nil, nil)
				continue
			}
			value, text := cell(name, bucket)
			values = append(values, value, text)
		}
		data.addRow(values...)
	}
	return data
}

// EnvironmentFlakeChart draws the daily flake rate of the top tests of board.
func EnvironmentFlakeChart(board flakechartlib.Leaderboard, tests []flakechartlib.TestDateBuckets, environment string, opts flakechartlib.RankOptions, link HashLinker) Chart {
	data := topTestSeries(board, tests, "Flake Percentage", func(name string, bucket flakechartapi.DateBucket) (float64, string) {
		return bucket.FlakeRate, tooltip(
			tooltipName(name),
			tooltipDate(bucket.Date),
			fmt.Sprintf("<b>Flake Percentage:</b> %.2f%%<br>", bucket.FlakeRate),
			hashLinks(bucket.Breakdown, environment, link, failureDetail),
		)
	})
	title := fmt.Sprintf("Flake rate by day of top %d of recent test flakiness (past %d days) on %s", opts.TopFlakes, opts.DateRange, environment)
	return Chart{ID: "flake_rate", Data: data, Options: newOptions(title, percentAxis("Flake rate"))}
}

// EnvironmentDurationChart draws the daily average duration of the top tests of board.
func EnvironmentDurationChart(board flakechartlib.Leaderboard, tests []flakechartlib.TestDateBuckets, environment string, opts flakechartlib.RankOptions, link HashLinker) Chart {
	data := topTestSeries(board, tests, "Duration", func(name string, bucket flakechartapi.DateBucket) (float64, string) {
		return bucket.AvgDuration, tooltip(
			tooltipName(name),
			tooltipDate(bucket.Date),
			fmt.Sprintf("<b>Average Duration:</b> %.2fs<br>", bucket.AvgDuration),
			hashLinks(bucket.Breakdown, environment, link, func(b flakechartapi.Breakdown) string {
				return fmt.Sprintf("Average Duration: %.2fs [%d runs]", b.AvgDuration, b.Runs)
			}),
		)
	})
	title := fmt.Sprintf("Average duration by day of top %d of recent test flakiness (past %d days) on %s", opts.TopFlakes, opts.DateRange, environment)
	return Chart{ID: "duration", Data: data, Options: newOptions(title, Axis{Title: "Average Duration (s)"})}
}

func commitLinks(commits []flakechartapi.CommitCounts, environment string, link HashLinker, detail func(flakechartapi.CommitCounts) string) string {
	lines := make([]string, 0, len(commits))
	for _, c := range commits {
		lines = append(lines, fmt.Sprintf(`  - <a href="%s">%s</a> (%s)`, html.EscapeString(link(c.Commit, environment)), html.EscapeString(c.Commit), detail(c)))
	}
	return "<b>Hashes:</b><br>\n" + strings.Join(lines, "<br>")
}

// TestCountChart draws how many tests ran and failed per day on environment.
func TestCountChart(counts []flakechartapi.CountsBucket, environment string, link HashLinker) Chart {
	data := DataTable{}
	data.addColumn(ColumnDate, "Date")
	data.addColumn(ColumnNumber, "Test Count")
	data.addTooltipColumn()
	data.addColumn(ColumnNumber, "Failed Tests")
	data.addTooltipColumn()

	for _, bucket := range counts {
		data.addRow(
			dateValue(bucket.Date),
			bucket.TestCount,
			tooltip(
				tooltipDate(bucket.Date),
				fmt.Sprintf("<b>Test Count (averaged): </b> %s<br>", rounded(bucket.TestCount)),
				commitLinks(bucket.Commits, environment, link, func(c flakechartapi.CommitCounts) string {
					return fmt.Sprintf("Test count (averaged): %s [%d tests / %d runs]", rounded(c.AvgTestCount()), c.SumTestCount, c.MaxRunCount)
				}),
			),
			bucket.FailCount,
			tooltip(
				tooltipDate(bucket.Date),
				fmt.Sprintf("<b>Fail Count (averaged): </b> %s<br>", rounded(bucket.FailCount)),
				commitLinks(bucket.Commits, environment, link, func(c flakechartapi.CommitCounts) string {
					return fmt.Sprintf("Fail count (averaged): %s [%d fails / %d runs]", rounded(c.AvgFailCount()), c.SumFailCount, c.MaxRunCount)
				}),
			),
		)
	}

	options := newOptions("Test count by day on "+environment, Axis{Title: "Test Count"}, Axis{Title: "Failed Tests"})
	options.Series = map[int]Series{0: {TargetAxisIndex: 0}, 1: {TargetAxisIndex: 1}}
	return Chart{ID: "test_count", Data: data, Options: options}
}

// SummaryChart draws the average number of failed tests per day of every environment.
func SummaryChart(summaries flakechartlib.EnvironmentSummaries) Chart {
	var environments []string
	dateSet := map[int64]time.Time{}
	days := map[string]map[int64]flakechartapi.EnvironmentDay{}
	for _, day := range summaries.Days {
		if _, ok := days[day.Environment]; !ok {
			environments = append(environments, day.Environment)
			days[day.Environment] = map[int64]flakechartapi.EnvironmentDay{}
		}
		days[day.Environment][day.Date.Unix()] = day
		dateSet[day.Date.Unix()] = day.Date
	}
	dates := make([]time.Time, 0, len(dateSet))
	for _, date := range dateSet {
		dates = append(dates, date)
	}
	flakechartlib.SortDates(dates)

	data := DataTable{}
	data.addColumn(ColumnDate, "Date")
	for _, environment := range environments {
		data.addColumn(ColumnNumber, environment)
		data.addTooltipColumn()
	}
	for _, date := range dates {
		values := []interface{}{dateValue(date)}
		for _, environment := range environments {
			day, ok := days[environment][date.Unix()]
			if !ok {
				values = append(values, nil, nil)
				continue
			}
			values = append(values, day.AvgFailedTests, tooltip(
				tooltipName(environment),
				tooltipDate(date),
				fmt.Sprintf("<b>Average Failed Tests:</b> %s<br>", rounded(day.AvgFailedTests)),
				fmt.Sprintf("<b>Average Duration:</b> %.2fs", day.AvgDuration),
			))
		}
		data.addRow(values...)
	}
	return Chart{ID: "summary", Data: data, Options: newOptions("Average failed tests by day per environment", Axis{Title: "Failed Tests"})}
}
