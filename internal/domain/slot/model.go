package slot

import (
	"errors"
	"fmt"
	"strconv"
)

// Day of week constants. The capitalised form is what the grid renders and stores.
const (
	Monday    = "Monday"
	Tuesday   = "Tuesday"
	Wednesday = "Wednesday"
	Thursday  = "Thursday"
	Friday    = "Friday"
	Saturday  = "Saturday"
	Sunday    = "Sunday"
)

// Days lists the weekdays in grid order.
var Days = []string{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// Grid bounds (inclusive).
const (
	FirstHour = 7
	LastHour  = 23
)

// Capacity is the maximum number of signups in one available slot.
const Capacity = 4

// Domain errors
var (
	ErrInvalidSlot     = errors.New("invalid slot")
	ErrSlotUnavailable = errors.New("this slot is not available")
	ErrSlotFull        = errors.New("this slot is full")
)

// closedDay is unavailable for every hour.
const closedDay = Saturday

// restrictedHours holds the days that only open for part of the grid.
var restrictedHours = map[string]hourRange{
	Friday: {from: 7, to: 16},
	Sunday: {from: 9, to: 17},
}

type hourRange struct {
	from, to int
}

func (r hourRange) contains(hour int) bool {
	return hour >= r.from && hour <= r.to
}

// Slot is a (day, hour) position on the weekly grid.
type Slot struct {
	Day  string
	Hour int
}

// Key returns a stable string identifier such as "Monday@9".
func (s Slot) Key() string {
	return s.Day + "@" + strconv.Itoa(s.Hour)
}

// String implements fmt.Stringer.
func (s Slot) String() string {
	return fmt.Sprintf("%s %s", s.Day, FormatHour(s.Hour))
}

// Hours returns the grid hours in ascending order.
func Hours() []int {
	hours := make([]int, 0, LastHour-FirstHour+1)
	for h := FirstHour; h <= LastHour; h++ {
		hours = append(hours, h)
	}
	return hours
}

// InGrid reports whether (day, hour) is a position on the weekly grid.
func InGrid(day string, hour int) bool {
	return DayIndex(day) >= 0 && hour >= FirstHour && hour <= LastHour
}

// IsAvailable reports whether volunteers may sign up for (day, hour).
// Pure function of its arguments; off-grid positions are never available.
func IsAvailable(day string, hour int) bool {
	if !InGrid(day, hour) {
		return false
	}
	if day == closedDay {
		return false
	}
	if r, ok := restrictedHours[day]; ok {
		return r.contains(hour)
	}
	return true
}

// Validate checks that (day, hour) is on the grid and open.
// PRE: none
// POST: Returns ErrInvalidSlot for off-grid input, ErrSlotUnavailable for closed slots
func Validate(day string, hour int) error {
	if !InGrid(day, hour) {
		return ErrInvalidSlot
	}
	if !IsAvailable(day, hour) {
		return ErrSlotUnavailable
	}
	return nil
}

// DayIndex returns the position of day in Days, or -1.
func DayIndex(day string) int {
	for i, d := range Days {
		if d == day {
			return i
		}
	}
	return -1
}

// FormatHour renders an hour of the day as "9 AM" / "12 PM".
func FormatHour(hour int) string {
	display, period := twelveHour(hour)
	return fmt.Sprintf("%d %s", display, period)
}

// FormatHourLong renders an hour of the day as "9:00 AM".
func FormatHourLong(hour int) string {
	display, period := twelveHour(hour)
	return fmt.Sprintf("%d:00 %s", display, period)
}

func twelveHour(hour int) (int, string) {
	period := "AM"
	if hour >= 12 {
		period = "PM"
	}
	display := hour % 12
	if display == 0 {
		display = 12
	}
	return display, period
}
