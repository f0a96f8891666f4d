package flakechartlib

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	rowsDecoded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "flakechart_rows_decoded_total",
			Help: "number of test run rows admitted by the decoder",
		},
	)
	rowsSkipped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flakechart_rows_skipped_total",
			Help: "number of test run rows dropped by the decoder, by reason",
		},
		[]string{"reason"},
	)
)

func init() {
	prometheus.MustRegister(rowsDecoded)
	prometheus.MustRegister(rowsSkipped)
}
