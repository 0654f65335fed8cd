package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DashboardScope declares one refresh-coordinator subscription context.
// Each scope gets its own coordinator instance so cooldown state is never
// shared between dashboards.
type DashboardScope struct {
	Name     string        `yaml:"name"`
	Entities []string      `yaml:"entities"`
	Project  string        `yaml:"project,omitempty"` // restrict to one project ID
	Cooldown time.Duration `yaml:"cooldown,omitempty"`
}

type dashboardsFile struct {
	Dashboards []DashboardScope `yaml:"dashboards"`
}

// LoadDashboards reads dashboard scopes from a YAML file.
func LoadDashboards(path string) ([]DashboardScope, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading dashboards file: %w", err)
	}
	var f dashboardsFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parsing dashboards file: %w", err)
	}
	for i, d := range f.Dashboards {
		if d.Name == "" {
			return nil, fmt.Errorf("dashboard %d has no name", i)
		}
		if len(d.Entities) == 0 {
			return nil, fmt.Errorf("dashboard %q has no entities", d.Name)
		}
	}
	return f.Dashboards, nil
}
