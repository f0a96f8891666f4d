package flakechartlib

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/kubernetes/minikube/pkg/flakechart/flakechartapi"
)

// RemoteClient reads pre-aggregated data from a flake aggregation service.
type RemoteClient struct {
	baseURL string
	client  *retryablehttp.Client
}

func NewRemoteClient(baseURL string, client *retryablehttp.Client) *RemoteClient {
	return &RemoteClient{baseURL: strings.TrimSuffix(baseURL, "/"), client: client}
}

func (c *RemoteClient) GetTest(ctx context.Context, environment, test string) (*flakechartapi.TestResponse, error) {
	resp := &flakechartapi.TestResponse{}
	if err := c.getJSON(ctx, "/test", url.Values{"env": {environment}, "test": {test}}, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *RemoteClient) GetEnvironment(ctx context.Context, environment string, testsInTop int, period Period) (*flakechartapi.EnvResponse, error) {
	query := url.Values{"env": {environment}}
	if testsInTop > 0 {
		query.Set("tests_in_top", strconv.Itoa(testsInTop))
	}
	if period != PeriodAll {
		query.Set("period", string(period))
	}
	resp := &flakechartapi.EnvResponse{}
	if err := c.getJSON(ctx, "/env", query, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *RemoteClient) GetSummary(ctx context.Context, period Period) (*flakechartapi.SummaryResponse, error) {
	query := url.Values{}
	if period != PeriodAll {
		query.Set("period", string(period))
	}
	resp := &flakechartapi.SummaryResponse{}
	if err := c.getJSON(ctx, "/summary", query, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *RemoteClient) getJSON(ctx context.Context, path string, query url.Values, out interface{}) error {
	target := c.baseURL + path
	if encoded := query.Encode(); len(encoded) > 0 {
		target += "?" + encoded
	}
	resp, err := get(ctx, c.client, target)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response of %s: %w", target, err)
	}
	return nil
}
