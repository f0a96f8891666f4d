package flakechartserver

import (
	"fmt"

	"github.com/spf13/afero"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	"sigs.k8s.io/yaml"

	"github.com/kubernetes/minikube/pkg/flakechart/flakechartlib"
	"github.com/kubernetes/minikube/pkg/flakechart/flakechartview"
)

// Config tunes the dashboard. Zero values select the defaults.
type Config struct {
	// DateRange is the number of dates of each ranking window.
	DateRange int `json:"dateRange,omitempty"`
	// TopFlakes is the number of tests charted on the environment view.
	TopFlakes int `json:"topFlakes,omitempty"`
	// HashLinkTemplate builds commit links, see flakechartview.NewHashLinker.
	HashLinkTemplate string `json:"hashLinkTemplate,omitempty"`
	// Environments lists the environments of the summary view, in display order. Empty shows
	// every environment, most failing first.
	Environments []string `json:"environments,omitempty"`
}

// LoadConfig reads a YAML config. Unknown fields are rejected.
func LoadConfig(fs afero.Fs, path string) (*Config, error) {
	raw, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	config := &Config{}
	if err := yaml.UnmarshalStrict(raw, config); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return config, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.DateRange < 0 {
		errs = append(errs, fmt.Errorf("dateRange must not be negative"))
	}
	if c.TopFlakes < 0 {
		errs = append(errs, fmt.Errorf("topFlakes must not be negative"))
	}
	seen := map[string]bool{}
	for _, environment := range c.Environments {
		if len(environment) == 0 {
			errs = append(errs, fmt.Errorf("environments must not contain empty names"))
			continue
		}
		if seen[environment] {
			errs = append(errs, fmt.Errorf("environment %s is listed twice", environment))
		}
		seen[environment] = true
	}
	return utilerrors.NewAggregate(errs)
}

func (c Config) RankOptions() flakechartlib.RankOptions {
	return flakechartlib.RankOptions{DateRange: c.DateRange, TopFlakes: c.TopFlakes}.WithDefaults()
}

func (c Config) HashLinker() flakechartview.HashLinker {
	return flakechartview.NewHashLinker(c.HashLinkTemplate)
}

// orderRows keeps the rows of the configured environments, in configured order.
func (c Config) orderRows(rows []flakechartview.SummaryRow) []flakechartview.SummaryRow {
	if len(c.Environments) == 0 {
		return rows
	}
	byEnvironment := make(map[string]flakechartview.SummaryRow, len(rows))
	for _, row := range rows {
		byEnvironment[row.Environment] = row
	}
	ordered := make([]flakechartview.SummaryRow, 0, len(c.Environments))
	for _, environment := range c.Environments {
		row, ok := byEnvironment[environment]
		if !ok {
			continue
		}
		row.Rank = len(ordered) + 1
		ordered = append(ordered, row)
	}
	return ordered
}
