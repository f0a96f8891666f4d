// flake-chart aggregates test runs into flake rates, serves them as charts and reports the
// failures of a pull request.
package main

import (
	goflag "flag"
	"os"

	"github.com/spf13/pflag"

	"github.com/kubernetes/minikube/pkg/flakechart"
)

func main() {
	cmd := flakechart.NewFlakeChartCommand()
	pflag.CommandLine.AddGoFlagSet(goflag.CommandLine)

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
