package flakechartlib

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/kubernetes/minikube/pkg/flakechart/flakechartapi"
)

func TestParseJobEntries(t *testing.T) {
	testCases := []struct {
		name          string
		value         string
		expected      []JobEntry
		expectedError string
	}{
		{
			name: "empty",
		},
		{
			name:  "single entry",
			value: "1234:Failed:12.5",
			expected: []JobEntry{
				{Key: "1234", Status: flakechartapi.StatusFailed, Duration: 12.5},
			},
		},
		{
			name:  "job id containing colons",
			value: "a:b:c:Passed:3,d:Skipped:0",
			expected: []JobEntry{
				{Key: "a:b:c", Status: flakechartapi.StatusPassed, Duration: 3},
				{Key: "d", Status: flakechartapi.StatusSkipped, Duration: 0},
			},
		},
		{
			name:  "empty job id",
			value: ":Passed:1",
			expected: []JobEntry{
				{Key: "", Status: flakechartapi.StatusPassed, Duration: 1},
			},
		},
		{
			name:          "missing duration",
			value:         "1234:Failed",
			expectedError: `malformed job entry "1234:Failed": expected rootJob:status:duration`,
		},
		{
			name:          "invalid duration",
			value:         "1234:Failed:soon",
			expectedError: `malformed job entry "1234:Failed:soon": invalid duration: strconv.ParseFloat: parsing "soon": invalid syntax`,
		},
		{
			name:          "no separators",
			value:         "1234",
			expectedError: `malformed job entry "1234": expected rootJob:status:duration`,
		},
		{
			name:          "bad status",
			value:         "1234:Broken:1",
			expectedError: `malformed job entry "1234:Broken:1": invalid test status "Broken", expected one of [Failed Passed Skipped]`,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			entries, err := ParseJobEntries(tc.value)
			var actualError string
			if err != nil {
				actualError = err.Error()
			}
			if diff := cmp.Diff(tc.expectedError, actualError); diff != "" {
				t.Fatalf("unexpected error (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tc.expected, entries); diff != "" {
				t.Errorf("unexpected entries (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFormatJobEntriesRoundTrip(t *testing.T) {
	entries := []JobEntry{
		{Key: "job:1", Status: flakechartapi.StatusFailed, Duration: 1.25},
		{Key: "job:1", Status: flakechartapi.StatusPassed, Duration: 2.75},
		{Key: "job2", Status: flakechartapi.StatusPassed, Duration: 3},
	}
	formatted := FormatJobEntries(entries)
	if formatted != "job:1:Failed:1.25,job:1:Passed:2.75,job2:Passed:3" {
		t.Fatalf("unexpected formatting: %s", formatted)
	}
	parsed, err := ParseJobEntries(formatted)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(entries, parsed); diff != "" {
		t.Errorf("unexpected entries (-want +got):\n%s", diff)
	}

	expected := []flakechartapi.Breakdown{
		{Key: "job:1", Runs: 2, Failures: 1, AvgDuration: 2},
		{Key: "job2", Runs: 1, AvgDuration: 3},
	}
	if diff := cmp.Diff(expected, BreakdownFromJobEntries(parsed)); diff != "" {
		t.Errorf("unexpected breakdown (-want +got):\n%s", diff)
	}
}
