package directory

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/marcelsud/vendor-relay/dispatch"
	"gopkg.in/yaml.v3"
)

/* File serves the vendor directory from vendors.yaml
 * Used when vendors are not kept in PostgreSQL
 */

// Config represents the structure of vendors.yaml
type Config struct {
	Vendors []VendorConfig `yaml:"vendors"`
}

// VendorConfig represents a single vendor in the YAML file
type VendorConfig struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Phone    string `yaml:"phone"`
	OpenTime string `yaml:"open_time"`
	Timezone string `yaml:"timezone"` // optional
}

type File struct {
	mu      sync.RWMutex
	path    string
	vendors []dispatch.Vendor
}

var _ dispatch.Directory = (*File)(nil)

// Load reads and validates the vendors file
func Load(path string) (*File, error) {
	f := &File{path: path}
	if err := f.Reload(); err != nil {
		return nil, err
	}
	return f, nil
}

// Empty returns a directory with no vendors
func Empty() *File {
	return &File{}
}

// Reload re-reads the file; the previous list is kept when the new one is invalid
func (f *File) Reload() error {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return fmt.Errorf("reading vendors file: %w", err)
	}

	vendors, err := Parse(data)
	if err != nil {
		return err
	}

	f.mu.Lock()
	f.vendors = vendors
	f.mu.Unlock()
	return nil
}

// Parse decodes and validates vendors YAML
func Parse(data []byte) ([]dispatch.Vendor, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parsing vendors YAML: %w", err)
	}

	seen := make(map[string]bool, len(config.Vendors))
	vendors := make([]dispatch.Vendor, 0, len(config.Vendors))
	for _, vc := range config.Vendors {
		v := dispatch.Vendor{
			ID:       strings.TrimSpace(vc.ID),
			Name:     vc.Name,
			Phone:    strings.TrimSpace(vc.Phone),
			OpenTime: vc.OpenTime,
			Timezone: vc.Timezone,
		}
		if v.ID == "" {
			return nil, fmt.Errorf("validating vendor: vendor id cannot be empty")
		}
		if seen[v.ID] {
			return nil, fmt.Errorf("duplicate vendor id: %s", v.ID)
		}
		seen[v.ID] = true

		// vendors without a phone stay in the file but are never listed
		if v.Phone == "" {
			continue
		}
		if err := v.Validate(); err != nil {
			return nil, fmt.Errorf("validating vendor: %w", err)
		}
		vendors = append(vendors, v)
	}

	sort.Slice(vendors, func(i, j int) bool { return vendors[i].ID < vendors[j].ID })
	return vendors, nil
}

// ListVendorsWithContactNumber returns a copy of the loaded vendors
func (f *File) ListVendorsWithContactNumber(_ context.Context) ([]dispatch.Vendor, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]dispatch.Vendor, len(f.vendors))
	copy(out, f.vendors)
	return out, nil
}
