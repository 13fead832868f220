package calendar

import (
	"fmt"
	"strings"
	"time"

	"calstore/src-server/model"

	"github.com/google/uuid"
	"github.com/xyedo/rrule"
)

// Hard ceiling on how many occurrences one series may expand to.
const maxSeriesLength = 366

var dateLayouts = []string{"2006-01-02", time.RFC3339, "2006-01-02T15:04:05"}

// Best-effort parse of an event's date field; returns the matched layout so
// callers can format derived dates the same way.
func ParseEventDate(s string) (time.Time, string, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, layout, true
		}
	}
	return time.Time{}, "", false
}

// Expand a base event into a recurring series: one event per RRULE
// occurrence, all sharing a recurringGroup tag so the whole series can be
// removed in one group delete. The rule must be bounded (COUNT or UNTIL).
// Ids are left blank for the insert cycle to allocate.
func ExpandSeries(base model.Event, rule string) ([]model.Event, string, error) {
	rule = strings.TrimSpace(rule)
	upper := strings.ToUpper(rule)
	if rule == "" {
		return nil, "", fmt.Errorf("%w: blank rrule", ErrInvalidInput)
	}
	if !strings.Contains(upper, "COUNT=") && !strings.Contains(upper, "UNTIL=") {
		return nil, "", fmt.Errorf("%w: unbounded rrule, needs COUNT or UNTIL", ErrInvalidInput)
	}

	start, layout, ok := ParseEventDate(base.Date)
	if !ok {
		return nil, "", fmt.Errorf("%w: unparseable series start date %q", ErrInvalidInput, base.Date)
	}

	set, err := rrule.StrToRRuleSet(
		"DTSTART:" + start.UTC().Format("20060102T150405Z") + "\nRRULE:" + upper,
	)
	if err != nil {
		return nil, "", fmt.Errorf("%w: bad rrule: %v", ErrInvalidInput, err)
	}
	dates := set.All()
	if len(dates) == 0 {
		return nil, "", fmt.Errorf("%w: rrule yields no occurrences", ErrInvalidInput)
	}
	if len(dates) > maxSeriesLength {
		return nil, "", fmt.Errorf("%w: rrule yields more than %d occurrences", ErrInvalidInput, maxSeriesLength)
	}

	group := base.RecurringGroup
	if group == "" {
		group = uuid.Must(uuid.NewV7()).String()
	}

	events := make([]model.Event, 0, len(dates))
	for _, date := range dates {
		member := base.Clone()
		member.ID = ""
		member.Date = date.Format(layout)
		member.RecurringGroup = group
		events = append(events, member)
	}
	return events, group, nil
}
