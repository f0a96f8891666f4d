package flakechartlib

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
)

const (
	BigQueryProjectID = "k8s-minikube"
	FlakeRateDataSet  = "flake_rate"
	TestRunTableName  = "TestRuns"
)

type BigQueryDataCoordinates struct {
	ProjectID string
	DataSetID string
}

func NewBigQueryDataCoordinates() *BigQueryDataCoordinates {
	return &BigQueryDataCoordinates{
		ProjectID: BigQueryProjectID,
		DataSetID: FlakeRateDataSet,
	}
}

func (f *BigQueryDataCoordinates) BindFlags(fs *pflag.FlagSet) {
	fs.StringVar(&f.ProjectID, "google-project-id", f.ProjectID, "project ID where data is stored")
	fs.StringVar(&f.DataSetID, "bigquery-dataset", f.DataSetID, "bigquery dataset where data is stored")
}

func (f *BigQueryDataCoordinates) Validate() error {
	if len(f.ProjectID) == 0 {
		return fmt.Errorf("--google-project-id must be specified")
	}
	if len(f.DataSetID) == 0 {
		return fmt.Errorf("--bigquery-dataset must be specified")
	}

	return nil
}

func (f *BigQueryDataCoordinates) SubstituteDataSetLocation(query string) string {
	return strings.Replace(
		query,
		"DATA_SET_LOCATION",
		f.ProjectID+"."+f.DataSetID,
		-1)
}
