package plan

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// yamlSource loads plans from a YAML file. The file is read once per Load
// call so a catalog rebuild picks up edits without a process restart.
type yamlSource struct {
	path string
}

// NewYAMLSource returns a Source backed by a YAML plan file.
//
// File format:
//
//	plans:
//	  free:
//	    name: Free
//	    daily_limit: 10
//	    monthly_limit: 100
//	    features: [chat, hints]
//	    public: true
//	    upgrade_to: basic
//
// A limit of -1 means unlimited; 0 blocks the period entirely.
func NewYAMLSource(path string) Source {
	return &yamlSource{path: path}
}

type yamlPlanFile struct {
	Plans map[string]yamlPlan `yaml:"plans"`
}

type yamlPlan struct {
	Name         string   `yaml:"name"`
	Description  string   `yaml:"description"`
	DailyLimit   int64    `yaml:"daily_limit"`
	MonthlyLimit int64    `yaml:"monthly_limit"`
	Features     []string `yaml:"features"`
	Public       bool     `yaml:"public"`
	UpgradeTo    string   `yaml:"upgrade_to"`
}

// Load reads and decodes the plan file.
func (s *yamlSource) Load(ctx context.Context) (map[string]Plan, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, errors.Join(ErrFailedToLoadPlans, err)
	}

	var file yamlPlanFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, errors.Join(ErrFailedToLoadPlans, err)
	}

	if len(file.Plans) == 0 {
		return nil, errors.Join(ErrFailedToLoadPlans,
			fmt.Errorf("no plans defined in %s", s.path))
	}

	plans := make(map[string]Plan, len(file.Plans))
	for id, yp := range file.Plans {
		features := make([]Feature, 0, len(yp.Features))
		for _, f := range yp.Features {
			features = append(features, Feature(f))
		}

		plans[id] = Plan{
			ID:           id,
			Name:         yp.Name,
			Description:  yp.Description,
			DailyLimit:   Limit(yp.DailyLimit),
			MonthlyLimit: Limit(yp.MonthlyLimit),
			Features:     features,
			Public:       yp.Public,
			UpgradeTo:    yp.UpgradeTo,
		}
	}
	return plans, nil
}
