package flakechartlib

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/kubernetes/minikube/pkg/flakechart/flakechartapi"
)

const DefaultFlakeRateDateRange = 5

var flakeRatesHeader = []string{"Environment", "Test", "Flake Rate", "Duration"}

// TestFlakeRate is the recent flakiness of one test on one environment.
type TestFlakeRate struct {
	Environment string
	Test        string
	// FlakeRate is a percentage.
	FlakeRate   float64
	AvgDuration float64
}

// RecentFlakeRates computes, for every environment and test, the flake rate and average
// duration over the dateRange most recent distinct dates that test ran on. Skipped runs are
// ignored. The result is sorted by environment, then test.
func RecentFlakeRates(runs []flakechartapi.TestRun, dateRange int) []TestFlakeRate {
	if dateRange <= 0 {
		dateRange = DefaultFlakeRateDateRange
	}
	type key struct{ environment, test string }

	var ret []TestFlakeRate
	groups := GroupBy(FilterRuns(runs, RunFilter{}), func(run flakechartapi.TestRun) key { return key{run.Environment, run.Name} })
	for _, group := range groups {
		recent := recentRuns(group.Items, dateRange)
		ret = append(ret, TestFlakeRate{
			Environment: group.Key.environment,
			Test:        group.Key.test,
			FlakeRate:   Average(recent, flakeValue),
			AvgDuration: Average(recent, runDuration),
		})
	}
	sort.Slice(ret, func(i, j int) bool {
		if ret[i].Environment != ret[j].Environment {
			return ret[i].Environment < ret[j].Environment
		}
		return ret[i].Test < ret[j].Test
	})
	return ret
}

// recentRuns keeps the runs dated on one of the dateRange latest distinct dates.
func recentRuns(runs []flakechartapi.TestRun, dateRange int) []flakechartapi.TestRun {
	dates := map[int64]time.Time{}
	for _, run := range runs {
		dates[run.Date.Unix()] = run.Date
	}
	ordered := make([]time.Time, 0, len(dates))
	for _, date := range dates {
		ordered = append(ordered, date)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].After(ordered[j]) })
	cutoff := ordered[min(dateRange, len(ordered))-1]

	var ret []flakechartapi.TestRun
	for _, run := range runs {
		if !run.Date.Before(cutoff) {
			ret = append(ret, run)
		}
	}
	return ret
}

// WriteFlakeRatesCSV writes rates as Environment,Test,Flake Rate,Duration.
func WriteFlakeRatesCSV(w io.Writer, rates []TestFlakeRate) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(flakeRatesHeader); err != nil {
		return err
	}
	for _, rate := range rates {
		record := []string{
			rate.Environment,
			rate.Test,
			strconv.FormatFloat(rate.FlakeRate, 'f', 2, 64),
			strconv.FormatFloat(rate.AvgDuration, 'f', 3, 64),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// FlakeRateIndex maps environment, then test, to a flake rate percentage.
type FlakeRateIndex map[string]map[string]float64

func (i FlakeRateIndex) Lookup(environment, test string) (float64, bool) {
	rate, ok := i[environment][test]
	return rate, ok
}

// ReadFlakeRatesCSV reads a file written by WriteFlakeRatesCSV. Records with fewer than three
// fields are ignored.
func ReadFlakeRatesCSV(r io.Reader) (FlakeRateIndex, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	index := FlakeRateIndex{}
	for line := 1; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse the flake rate file: %w", err)
		}
		if line == 1 || len(record) < 3 {
			continue
		}
		rate, err := strconv.ParseFloat(record[2], 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse the flake rate file at line %d: %w", line, err)
		}
		if _, ok := index[record[0]]; !ok {
			index[record[0]] = map[string]float64{}
		}
		index[record[0]][record[1]] = rate
	}
	return index, nil
}
