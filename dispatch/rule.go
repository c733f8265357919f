package dispatch

import (
	"fmt"
	"time"
)

// DateLayout is the calendar date format used in dispatch keys and logs
const DateLayout = "2006-01-02"

// Rule triggers Slot at the vendor's opening time minus Offset
type Rule struct {
	Slot     Slot
	Offset   time.Duration
	Template string
}

// DefaultRules returns the preOpen and open rules
func DefaultRules(preOpenLead time.Duration, preOpenTemplate, openTemplate string) []Rule {
	return []Rule{
		{Slot: PreOpen, Offset: preOpenLead, Template: preOpenTemplate},
		{Slot: Open, Offset: 0, Template: openTemplate},
	}
}

func (r Rule) Validate() error {
	if err := r.Slot.Validate(); err != nil {
		return err
	}
	if r.Offset < 0 {
		return fmt.Errorf("offset cannot be negative for slot %s", r.Slot)
	}
	if r.Template == "" {
		return fmt.Errorf("template cannot be empty for slot %s", r.Slot)
	}
	return nil
}

/* Due reports whether now falls on the rule's trigger minute for the vendor.
 * The trigger is open time minus Offset in the vendor zone; now matches when
 * its minute is the trigger minute or up to tolerance after it.
 * date is the vendor-local day of the opening the reminder refers to, so a
 * preOpen trigger before midnight belongs to the next day.
 */
func (r Rule) Due(v Vendor, loc *time.Location, now time.Time, tolerance time.Duration) (date string, due bool, err error) {
	hour, minute, err := v.openClock()
	if err != nil {
		return "", false, err
	}
	if tolerance < 0 {
		tolerance = 0
	}

	local := now.In(loc)
	nowMinute := time.Date(local.Year(), local.Month(), local.Day(), local.Hour(), local.Minute(), 0, 0, loc)

	for _, dayOffset := range []int{-1, 0, 1} {
		open := time.Date(local.Year(), local.Month(), local.Day()+dayOffset, hour, minute, 0, 0, loc)
		trigger := open.Add(-r.Offset)
		delta := nowMinute.Sub(trigger)
		if delta >= 0 && delta <= tolerance {
			return open.Format(DateLayout), true, nil
		}
	}
	return "", false, nil
}
