package targeting

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed options.yaml
var optionsYAML []byte

// Options is the catalog of selectable values for structured mode.
type Options struct {
	JobTitles    []string `yaml:"job_titles" json:"job_titles"`
	Industries   []string `yaml:"industries" json:"industries"`
	Locations    []string `yaml:"locations" json:"locations"`
	CompanySizes []string `yaml:"company_sizes" json:"company_sizes"`
}

// LoadOptions parses the embedded catalog. Company sizes always match the
// buckets Validate accepts.
func LoadOptions() (*Options, error) {
	return parseOptions(optionsYAML)
}

func parseOptions(data []byte) (*Options, error) {
	var o Options
	if err := yaml.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("parse targeting options: %w", err)
	}
	if len(o.JobTitles) == 0 || len(o.Industries) == 0 || len(o.Locations) == 0 {
		return nil, fmt.Errorf("targeting options: job_titles, industries and locations must be non-empty")
	}
	o.CompanySizes = append([]string(nil), CompanySizes...)
	return &o, nil
}
