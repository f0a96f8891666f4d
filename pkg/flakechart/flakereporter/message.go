package flakereporter

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kubernetes/minikube/pkg/flakechart/flakechartlib"
)

const (
	DefaultChartURL = "https://gopogh-server-tts3vkcpgq-uc.a.run.app/"
	DefaultLogsURL  = "https://storage.googleapis.com/minikube-builds/logs/"
	DefaultMaxItems = 10

	unknownFlakeRate = -1.0
	// Environments whose least flaky failure is above this rate are folded.
	flakyThreshold = 50.0
)

// Links are the base URLs of the flake chart service and of the gopogh reports.
type Links struct {
	ChartURL string
	LogsURL  string
}

func (l Links) environmentChart(env string, failed int) string {
	return fmt.Sprintf("[%s (%d failed)](%s?env=%s)", env, failed, l.ChartURL, env)
}

func (l Links) testChart(env, test string) string {
	return fmt.Sprintf("[(chart)](%s?env=%s&test=%s)", l.ChartURL, env, test)
}

func (l Links) gopogh(pr, rootJob, env, test string) string {
	return fmt.Sprintf("[(gopogh)](%s%s/%s/%s.html#%s)", l.LogsURL, pr, rootJob, env, test)
}

type failedTest struct {
	name      string
	flakeRate float64
}

// failedTests returns the failures of summary, least flaky first. Tests without a known
// flake rate come first.
func failedTests(env string, summary *ShortSummary, rates flakechartlib.FlakeRateIndex) []failedTest {
	var ret []failedTest
	for _, name := range summary.FailedTests {
		rate, ok := rates.Lookup(env, name)
		if !ok {
			rate = unknownFlakeRate
		}
		ret = append(ret, failedTest{name: name, flakeRate: rate})
	}
	sort.SliceStable(ret, func(i, j int) bool { return ret[i].flakeRate < ret[j].flakeRate })
	return ret
}

// CommentMessage renders the markdown PR comment listing, per environment, the failed tests
// with the lowest flake rates on master. Environments with more than maxItems failures, or whose
// failures are all flakier than 50%, are only named after the table.
func CommentMessage(summaries map[string]*ShortSummary, rates flakechartlib.FlakeRateIndex, pr, rootJob string, maxItems int, links Links) string {
	envs := make([]string, 0, len(summaries))
	for env := range summaries {
		envs = append(envs, env)
	}
	sort.Strings(envs)

	table := [][]string{{"Environment", "Test Name", "Flake Rate"}}
	var folded []string
	failures := map[string]int{}
	for _, env := range envs {
		tests := failedTests(env, summaries[env], rates)
		failures[env] = len(tests)
		if len(tests) > maxItems {
			folded = append(folded, env)
			continue
		}
		for i, test := range tests {
			if test.flakeRate > flakyThreshold {
				if i == 0 {
					folded = append(folded, env)
				}
				break
			}
			rate := fmt.Sprintf("%.2f%% %s", test.flakeRate, links.testChart(env, test.name))
			if test.flakeRate == unknownFlakeRate {
				rate = "Unknown"
			}
			table = append(table, []string{
				links.environmentChart(env, len(tests)),
				test.name + links.gopogh(pr, rootJob, env, test.name),
				rate,
			})
		}
	}

	b := strings.Builder{}
	fmt.Fprintf(&b, "Here are the number of top %d failed tests in each environments with lowest flake rate.\n\n", maxItems)
	b.WriteString(markdownTable(table))
	if len(folded) > 0 {
		b.WriteString("\n\n Besides the following environments also have failed tests:")
		for _, env := range folded {
			fmt.Fprintf(&b, "\n\n - %s: %d failed %s ", env, failures[env], links.gopogh(pr, rootJob, env, ""))
		}
	}
	b.WriteString("\n\nTo see the flake rates of all tests by environment, click [here](https://minikube.sigs.k8s.io/docs/contrib/test_flakes/).")
	return b.String()
}

// markdownTable renders rows as a markdown table whose header is the first row.
func markdownTable(rows [][]string) string {
	b := strings.Builder{}
	for i, row := range rows {
		b.WriteString("|")
		for _, cell := range row {
			b.WriteString(cell)
			b.WriteString("|")
		}
		b.WriteString("\n")
		if i == 0 {
			b.WriteString("|")
			b.WriteString(strings.Repeat(" ---- |", len(row)))
			b.WriteString("\n")
		}
	}
	b.WriteString("\n\n")
	return b.String()
}
