package targets

import (
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

/* Loader manages relay targets from targets.yaml
 * Provides in-memory lookup for fast access
 */

// Config represents the structure of targets.yaml
type Config struct {
	Targets []TargetConfig `yaml:"targets"`
}

// TargetConfig represents a single target in the YAML file
type TargetConfig struct {
	Label   string   `yaml:"label"`
	URL     string   `yaml:"url"`
	Timeout string   `yaml:"timeout"` // Go duration, e.g. "5s"; optional
	Events  []string `yaml:"events"`  // Optional kind filter
}

// Loader holds the loaded targets
type Loader struct {
	targets map[string]*Target
}

// NewLoader creates a new target loader
func NewLoader() *Loader {
	return &Loader{
		targets: make(map[string]*Target),
	}
}

// Load reads and parses the targets file
func (l *Loader) Load(filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("reading targets file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return fmt.Errorf("parsing targets YAML: %w", err)
	}

	loaded := make(map[string]*Target, len(config.Targets))
	for _, tc := range config.Targets {
		var timeout time.Duration
		if tc.Timeout != "" {
			timeout, err = time.ParseDuration(tc.Timeout)
			if err != nil {
				return fmt.Errorf("parsing timeout for target %s: %w", tc.Label, err)
			}
		}

		target := &Target{
			Label:   tc.Label,
			URL:     tc.URL,
			Timeout: timeout,
			Events:  tc.Events,
		}

		if err := target.Validate(); err != nil {
			return fmt.Errorf("validating target: %w", err)
		}
		if _, dup := loaded[target.Label]; dup {
			return fmt.Errorf("duplicate target label: %s", target.Label)
		}

		loaded[target.Label] = target
	}

	l.targets = loaded
	return nil
}

// Add registers a target programmatically
func (l *Loader) Add(target *Target) error {
	if err := target.Validate(); err != nil {
		return fmt.Errorf("validating target: %w", err)
	}
	l.targets[target.Label] = target
	return nil
}

// Get retrieves a target by its label
func (l *Loader) Get(label string) (*Target, error) {
	target, exists := l.targets[label]
	if !exists {
		return nil, fmt.Errorf("target not found: %s", label)
	}
	return target, nil
}

// List returns all loaded targets ordered by label
func (l *Loader) List() []*Target {
	targets := make([]*Target, 0, len(l.targets))
	for _, target := range l.targets {
		targets = append(targets, target)
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i].Label < targets[j].Label })
	return targets
}

// Exists checks if a target label exists
func (l *Loader) Exists(label string) bool {
	_, exists := l.targets[label]
	return exists
}
