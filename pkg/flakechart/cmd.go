package flakechart

import (
	"github.com/spf13/cobra"

	"github.com/kubernetes/minikube/pkg/flakechart/flakechartlib"
	"github.com/kubernetes/minikube/pkg/flakechart/flakechartserver"
	"github.com/kubernetes/minikube/pkg/flakechart/flakeleaderboard"
	"github.com/kubernetes/minikube/pkg/flakechart/flakeratecomputer"
	"github.com/kubernetes/minikube/pkg/flakechart/flakereporter"
)

// Overall usage
// 1. test runs of every environment are exported as CSV (or read from the BigQuery test run table)
// 2. compute-flake-rates reduces them to the recent flake rate of every test
// 3. report-flakes comments on a PR with its failed tests, least flaky first
// 4. serve charts flakiness per test and environment, leaderboard prints the ranking

func NewFlakeChartCommand() *cobra.Command {
	logLevel := &flakechartlib.LogLevelFlag{}
	cmd := &cobra.Command{
		Use:  "flake-chart",
		Long: `Commands associated with test flakiness aggregation and charting`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return logLevel.Apply()
		},
	}
	logLevel.BindFlags(cmd.PersistentFlags())

	cmd.AddCommand(flakechartserver.NewServeCommand())
	cmd.AddCommand(flakeratecomputer.NewComputeFlakeRatesCommand())
	cmd.AddCommand(flakeleaderboard.NewLeaderboardCommand())
	cmd.AddCommand(flakereporter.NewReportFlakesCommand())

	return cmd
}
