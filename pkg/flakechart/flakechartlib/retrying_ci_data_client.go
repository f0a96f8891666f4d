package flakechartlib

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/client-go/util/retry"

	"github.com/kubernetes/minikube/pkg/flakechart/flakechartapi"
)

type retryingCIDataClient struct {
	delegate CIDataClient
	backoff  wait.Backoff
}

var _ CIDataClient = &retryingCIDataClient{}

func NewRetryingCIDataClient(delegate CIDataClient) CIDataClient {
	return &retryingCIDataClient{
		delegate: delegate,
		backoff:  slowBackoff,
	}
}

func (c *retryingCIDataClient) ListTestRuns(ctx context.Context, environment string, since time.Time) ([]flakechartapi.TestRun, error) {
	var ret []flakechartapi.TestRun
	err := retry.OnError(c.backoff, isReadQuotaError, func() error {
		var innerErr error
		ret, innerErr = c.delegate.ListTestRuns(ctx, environment, since)
		return innerErr
	})
	return ret, err
}

var slowBackoff = wait.Backoff{
	Steps:    4,
	Duration: 10 * time.Second,
	Factor:   2.0,
	Jitter:   0.1,
	Cap:      200 * time.Second,
}

func isReadQuotaError(err error) bool {
	if err == nil {
		return false
	}
	if strings.Contains(err.Error(), "exceeded quota for concurrent queries") {
		logrus.WithError(err).Warn("hit a read quota error")
		return true
	}
	return false
}
