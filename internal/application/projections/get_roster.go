package projections

import (
	"context"

	"frontporch/internal/domain/slot"
)

// RosterSlot lists the volunteers booked into one hour.
type RosterSlot struct {
	Hour  int
	Label string
	Names []string
}

// RosterDay groups the booked slots of one weekday.
type RosterDay struct {
	Day   string
	Slots []RosterSlot
	Count int
}

// GetRosterResult is the printable roster.
type GetRosterResult struct {
	Days  []RosterDay
	Total int
}

// GetRosterDeps holds dependencies for GetRoster.
type GetRosterDeps struct {
	SignupStore SignupStore
}

// QueryGetRoster groups signups by day and hour, skipping empty slots and days.
// PRE: none
// POST: Days in weekday order, slots ascending by hour, names in signup order
func QueryGetRoster(ctx context.Context, deps GetRosterDeps) (GetRosterResult, error) {
	all, err := deps.SignupStore.ListAll(ctx)
	if err != nil {
		return GetRosterResult{}, err
	}

	byDay := make(map[string]map[int][]string)
	for _, s := range all {
		if byDay[s.Day] == nil {
			byDay[s.Day] = make(map[int][]string)
		}
		byDay[s.Day][s.Hour] = append(byDay[s.Day][s.Hour], s.Name)
	}

	result := GetRosterResult{Total: len(all)}
	for _, day := range slot.Days {
		hours, ok := byDay[day]
		if !ok {
			continue
		}
		rd := RosterDay{Day: day}
		for _, h := range slot.Hours() {
			names := hours[h]
			if len(names) == 0 {
				continue
			}
			rd.Slots = append(rd.Slots, RosterSlot{Hour: h, Label: slot.FormatHourLong(h), Names: names})
			rd.Count += len(names)
		}
		result.Days = append(result.Days, rd)
	}
	return result, nil
}
