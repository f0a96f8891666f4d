package flakechartlib

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kubernetes/minikube/pkg/flakechart/flakechartapi"
)

// JobEntry is one element of the commitResultsAndDurations field served by an aggregation service.
type JobEntry struct {
	// Key is the root job id, or the commit hash of runs without a root job.
	Key      string
	Status   flakechartapi.Status
	Duration float64
}

// ParseJobEntries parses a comma separated list of rootJob:status:duration entries. The
// status and duration are the last two colon separated fields, everything before them is the
// job id. An empty string has no entries.
func ParseJobEntries(value string) ([]JobEntry, error) {
	if len(value) == 0 {
		return nil, nil
	}
	var entries []JobEntry
	for _, raw := range strings.Split(value, ",") {
		durationSep := strings.LastIndex(raw, ":")
		if durationSep < 0 {
			return nil, fmt.Errorf("malformed job entry %q: expected rootJob:status:duration", raw)
		}
		statusSep := strings.LastIndex(raw[:durationSep], ":")
		if statusSep < 0 {
			return nil, fmt.Errorf("malformed job entry %q: expected rootJob:status:duration", raw)
		}

		status, err := flakechartapi.ParseStatus(raw[statusSep+1 : durationSep])
		if err != nil {
			return nil, fmt.Errorf("malformed job entry %q: %w", raw, err)
		}
		duration, err := strconv.ParseFloat(raw[durationSep+1:], 64)
		if err != nil {
			return nil, fmt.Errorf("malformed job entry %q: invalid duration: %w", raw, err)
		}
		entries = append(entries, JobEntry{Key: raw[:statusSep], Status: status, Duration: duration})
	}
	return entries, nil
}

// FormatJobEntries is the inverse of ParseJobEntries.
func FormatJobEntries(entries []JobEntry) string {
	parts := make([]string, 0, len(entries))
	for _, entry := range entries {
		parts = append(parts, fmt.Sprintf("%s:%s:%s", entry.Key, entry.Status, strconv.FormatFloat(entry.Duration, 'f', -1, 64)))
	}
	return strings.Join(parts, ",")
}

// JobEntriesFromRuns lists the key, status and duration of every run, keyed as ByRootJob keys
// the breakdown of a bucket.
func JobEntriesFromRuns(runs []flakechartapi.TestRun) []JobEntry {
	entries := make([]JobEntry, 0, len(runs))
	for _, run := range runs {
		entries = append(entries, JobEntry{Key: ByRootJob.key(run), Status: run.Status, Duration: run.Duration})
	}
	return entries
}

// BreakdownFromJobEntries rolls entries up per key, as NewDateBucket does with ByRootJob.
func BreakdownFromJobEntries(entries []JobEntry) []flakechartapi.Breakdown {
	var ret []flakechartapi.Breakdown
	for _, group := range GroupBy(entries, func(e JobEntry) string { return e.Key }) {
		breakdown := flakechartapi.Breakdown{
			Key:         group.Key,
			Runs:        len(group.Items),
			AvgDuration: Average(group.Items, func(e JobEntry) float64 { return e.Duration }),
		}
		for _, entry := range group.Items {
			if entry.Status == flakechartapi.StatusFailed {
				breakdown.Failures++
			}
		}
		ret = append(ret, breakdown)
	}
	return ret
}
