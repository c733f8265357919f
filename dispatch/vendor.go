package dispatch

import (
	"fmt"
	"strings"
	"time"
)

// Vendor is a reminder recipient as listed by the directory
type Vendor struct {
	ID       string
	Name     string
	Phone    string
	OpenTime string // "HH:MM", vendor local time
	Timezone string // IANA name; empty uses the scheduler default
}

// Validate checks the fields the scheduler depends on
func (v Vendor) Validate() error {
	if strings.TrimSpace(v.ID) == "" {
		return fmt.Errorf("vendor id cannot be empty")
	}
	if strings.TrimSpace(v.Phone) == "" {
		return fmt.Errorf("phone cannot be empty for vendor %s", v.ID)
	}
	if _, _, err := v.openClock(); err != nil {
		return err
	}
	if v.Timezone != "" {
		if _, err := time.LoadLocation(v.Timezone); err != nil {
			return fmt.Errorf("invalid timezone %q for vendor %s: %w", v.Timezone, v.ID, err)
		}
	}
	return nil
}

// Location resolves the vendor time zone, falling back to def
func (v Vendor) Location(def *time.Location) (*time.Location, error) {
	if v.Timezone == "" {
		if def == nil {
			return time.UTC, nil
		}
		return def, nil
	}
	loc, err := time.LoadLocation(v.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", v.Timezone, err)
	}
	return loc, nil
}

func (v Vendor) openClock() (hour, minute int, err error) {
	t, err := time.Parse("15:04", strings.TrimSpace(v.OpenTime))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid open time %q for vendor %s", v.OpenTime, v.ID)
	}
	return t.Hour(), t.Minute(), nil
}
