package flakechartlib

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"

	"github.com/kubernetes/minikube/pkg/flakechart/flakechartapi"
)

type retryLogger struct {
	logger logrus.FieldLogger
}

func (a retryLogger) format(s string, i ...interface{}) string {
	builder := strings.Builder{}
	builder.WriteString(s)
	for _, x := range i {
		builder.WriteString(" ")
		builder.WriteString(fmt.Sprintf("%v", x))
	}
	return builder.String()
}

func (a retryLogger) Error(s string, i ...interface{}) { a.logger.Error(a.format(s, i...)) }
func (a retryLogger) Info(s string, i ...interface{})  { a.logger.Debug(a.format(s, i...)) }
func (a retryLogger) Debug(s string, i ...interface{}) { a.logger.Debug(a.format(s, i...)) }
func (a retryLogger) Warn(s string, i ...interface{})  { a.logger.Warn(a.format(s, i...)) }

var _ retryablehttp.LeveledLogger = retryLogger{}

// NewHTTPClient returns a client that retries requests that failed to get any response.
// Responses are never retried, whatever their status.
func NewHTTPClient(logger logrus.FieldLogger) *retryablehttp.Client {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	client := retryablehttp.NewClient()
	client.RetryMax = 5
	client.Logger = retryLogger{logger: logger}
	client.CheckRetry = func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if err == nil {
			return false, nil
		}
		return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	}
	return client
}

// loggerOf returns the logger client was built with by NewHTTPClient.
func loggerOf(client *retryablehttp.Client) logrus.FieldLogger {
	if l, ok := client.Logger.(retryLogger); ok {
		return l.logger
	}
	return logrus.StandardLogger()
}

// get performs a GET of url. A response outside of 2xx is closed and returned as a
// *FetchFailureError carrying its body.
func get(ctx context.Context, client *retryablehttp.Client, url string) (*http.Response, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to construct request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to GET %s: %w", url, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			loggerOf(client).WithError(err).WithField("url", url).Warn("Failed to read response body.")
		}
		return nil, &flakechartapi.FetchFailureError{Source: url, StatusCode: resp.StatusCode, Body: string(body)}
	}
	return resp, nil
}
