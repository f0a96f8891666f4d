package flakechartapi

import "time"

// The types below are the payloads of the /test, /env and /summary endpoints of a
// flake aggregation service. Field names are part of the wire contract.

// FlakePoint is the aggregate of one test on one date or week.
type FlakePoint struct {
	StartOfDate     time.Time `json:"startOfDate"`
	FlakePercentage float64   `json:"flakePercentage"`
	AvgDuration     float64   `json:"avgDuration"`
	// CommitResultsAndDurations is a comma separated list of rootJob:status:duration entries.
	CommitResultsAndDurations string `json:"commitResultsAndDurations"`
}

type TestFlakePoint struct {
	TestName string `json:"testName"`
	FlakePoint
}

type RecentFlake struct {
	TestName              string  `json:"testName"`
	RecentFlakePercentage float64 `json:"recentFlakePercentage"`
	GrowthRate            float64 `json:"growthRate"`
}

type CountsAndDurations struct {
	StartOfDate time.Time `json:"startOfDate"`
	TestCount   float64   `json:"testCount"`
	FailCount   float64   `json:"failCount"`
	Duration    float64   `json:"duration"`
}

type SummaryAvgFail struct {
	StartOfDate    time.Time `json:"startOfDate"`
	EnvName        string    `json:"envName"`
	AvgFailedTests float64   `json:"avgFailedTests"`
	AvgDuration    float64   `json:"avgDuration"`
}

type SummaryTableRow struct {
	EnvName            string  `json:"envName"`
	RecentNumberOfFail float64 `json:"recentNumberOfFail"`
	GrowthNumberOfFail float64 `json:"growthNumberOfFail"`
}

// TestResponse is served by /test?env=<env>&test=<test>.
type TestResponse struct {
	FlakeByDay  []FlakePoint `json:"flakeByDay"`
	FlakeByWeek []FlakePoint `json:"flakeByWeek"`
}

// EnvResponse is served by /env?env=<env>&tests_in_top=<k>&period=<period>.
type EnvResponse struct {
	RecentFlakePercentTable  []RecentFlake        `json:"recentFlakePercentTable"`
	FlakeRateByDay           []TestFlakePoint     `json:"flakeRateByDay"`
	FlakeRateByWeek          []TestFlakePoint     `json:"flakeRateByWeek"`
	CountsAndDurations       []CountsAndDurations `json:"countsAndDurations"`
	CountsAndDurationsByWeek []CountsAndDurations `json:"countsAndDurationsByWeek"`
}

// SummaryResponse is served by /summary?period=<period>.
type SummaryResponse struct {
	SummaryAvgFail []SummaryAvgFail  `json:"summaryAvgFail"`
	SummaryTable   []SummaryTableRow `json:"summaryTable"`
}
