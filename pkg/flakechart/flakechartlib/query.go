package flakechartlib

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"k8s.io/utils/clock"

	"github.com/kubernetes/minikube/pkg/flakechart/flakechartapi"
)

type Period string

const (
	PeriodAll    Period = ""
	PeriodLast90 Period = "last90"
)

func ParsePeriod(value string) (Period, error) {
	switch p := Period(value); p {
	case PeriodAll, PeriodLast90:
		return p, nil
	default:
		return "", fmt.Errorf("unknown period %q, must be empty or %q", value, PeriodLast90)
	}
}

// Since returns the earliest date included in the period, or the zero time when every date is.
func (p Period) Since(c clock.PassiveClock) time.Time {
	if p == PeriodLast90 {
		return c.Now().UTC().AddDate(0, 0, -90)
	}
	return time.Time{}
}

// Filter returns the runs dated inside the period.
func (p Period) Filter(runs []flakechartapi.TestRun, c clock.PassiveClock) []flakechartapi.TestRun {
	since := p.Since(c)
	if since.IsZero() {
		return runs
	}
	var ret []flakechartapi.TestRun
	for _, run := range runs {
		if !run.Date.Before(since) {
			ret = append(ret, run)
		}
	}
	return ret
}

// ChartQuery holds the query parameters of a chart page or endpoint.
type ChartQuery struct {
	// Test is only meaningful when HasTest is set; its absence selects the environment view.
	Test        string
	HasTest     bool
	Environment string
	Period      Period
	// TestsInTop overrides the number of top flakes when positive.
	TestsInTop int
}

func ParseChartQuery(values url.Values) (ChartQuery, error) {
	q := ChartQuery{
		Test:        values.Get("test"),
		HasTest:     values.Has("test"),
		Environment: values.Get("env"),
	}

	period, err := ParsePeriod(values.Get("period"))
	if err != nil {
		return ChartQuery{}, err
	}
	q.Period = period

	if raw := values.Get("tests_in_top"); len(raw) > 0 {
		top, err := strconv.Atoi(raw)
		if err != nil || top <= 0 {
			return ChartQuery{}, fmt.Errorf("tests_in_top must be a positive integer, got %q", raw)
		}
		q.TestsInTop = top
	}
	return q, nil
}

// RankOptions applies the query's top override to defaults.
func (q ChartQuery) RankOptions(defaults RankOptions) RankOptions {
	if q.TestsInTop > 0 {
		defaults.TopFlakes = q.TestsInTop
	}
	return defaults
}
