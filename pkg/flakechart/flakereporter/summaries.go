package flakereporter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/kubernetes/minikube/pkg/flakechart/flakechartlib"
)

const (
	DefaultSummaryLocation   = "gs://minikube-builds/logs/{pr}/{rootJob}/{env}_summary.json"
	DefaultFlakeRateLocation = "gs://minikube-flake-rate/flake_rates.csv"

	maxConcurrentFetches = 8
)

// ShortSummary is the gopogh summary written next to the logs of each environment.
type ShortSummary struct {
	NumberOfTests int                `json:"NumberOfTests"`
	NumberOfFail  int                `json:"NumberOfFail"`
	NumberOfPass  int                `json:"NumberOfPass"`
	NumberOfSkip  int                `json:"NumberOfSkip"`
	FailedTests   []string           `json:"FailedTests"`
	PassedTests   []string           `json:"PassedTests"`
	SkippedTests  []string           `json:"SkippedTests"`
	Durations     map[string]float64 `json:"Durations"`
	TotalDuration float64            `json:"TotalDuration"`
	GopoghVersion string             `json:"GopoghVersion"`
	GopoghBuild   string             `json:"GopoghBuild"`
	Detail        struct {
		Name     string `json:"Name"`
		Details  string `json:"Details"`
		PR       string `json:"PR"`
		RepoName string `json:"RepoName"`
	} `json:"Detail"`
}

type Resolver interface {
	Resolve(ctx context.Context, location string) (flakechartlib.DataSource, error)
}

// ReadEnvironmentList reads one environment name per line.
func ReadEnvironmentList(fs afero.Fs, path string) ([]string, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read environment list: %w", err)
	}
	var envs []string
	for _, line := range strings.Split(string(data), "\n") {
		if env := strings.TrimSpace(line); len(env) > 0 {
			envs = append(envs, env)
		}
	}
	return envs, nil
}

// SummaryLocation fills the {pr}, {rootJob} and {env} placeholders of template.
func SummaryLocation(template, pr, rootJob, env string) string {
	return strings.NewReplacer("{pr}", pr, "{rootJob}", rootJob, "{env}", env).Replace(template)
}

// FetchSummaries downloads the summary of every environment. Environments without a summary
// are left out of the result.
func FetchSummaries(ctx context.Context, resolver Resolver, template, pr, rootJob string, envs []string, logger logrus.FieldLogger) (map[string]*ShortSummary, error) {
	var lock sync.Mutex
	summaries := map[string]*ShortSummary{}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentFetches)
	for _, env := range envs {
		g.Go(func() error {
			location := SummaryLocation(template, pr, rootJob, env)
			summary, err := fetchSummary(ctx, resolver, location)
			if flakechartlib.IsNotFound(err) {
				logger.WithField("env", env).Debug("No test summary, skipping environment.")
				return nil
			}
			if err != nil {
				return fmt.Errorf("failed to fetch %s test summary: %w", env, err)
			}
			lock.Lock()
			defer lock.Unlock()
			summaries[env] = summary
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return summaries, nil
}

func fetchSummary(ctx context.Context, resolver Resolver, location string) (*ShortSummary, error) {
	source, err := resolver.Resolve(ctx, location)
	if err != nil {
		return nil, err
	}
	r, _, err := source.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	summary := &ShortSummary{}
	if err := json.NewDecoder(r).Decode(summary); err != nil {
		return nil, fmt.Errorf("failed to deserialize %s: %w", source, err)
	}
	return summary, nil
}

// FetchFlakeRates reads the flake rate CSV written by compute-flake-rates.
func FetchFlakeRates(ctx context.Context, resolver Resolver, location string) (flakechartlib.FlakeRateIndex, error) {
	source, err := resolver.Resolve(ctx, location)
	if err != nil {
		return nil, err
	}
	r, _, err := source.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read the flake rate file: %w", err)
	}
	defer r.Close()
	return flakechartlib.ReadFlakeRatesCSV(r)
}
