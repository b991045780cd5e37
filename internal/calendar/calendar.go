package calendar

import (
	"time"

	"cloud.google.com/go/civil"
)

// DefaultWorkWeek is used when an organization configures no work days.
var DefaultWorkWeek = []time.Weekday{
	time.Monday,
	time.Tuesday,
	time.Wednesday,
	time.Thursday,
	time.Friday,
}

// DefaultBuildDays is the build length used when an organization configures none.
const DefaultBuildDays = 120

// WorkCalendar answers workday questions for one organization.
// It is immutable after construction and safe for concurrent use.
type WorkCalendar struct {
	workDays  [7]bool
	holidays  map[civil.Date]struct{}
	buildDays int
}

// New creates a WorkCalendar. An empty work week falls back to DefaultWorkWeek
// and a non-positive buildDays falls back to DefaultBuildDays.
func New(workWeek []time.Weekday, holidays []civil.Date, buildDays int) *WorkCalendar {
	c := &WorkCalendar{
		holidays:  make(map[civil.Date]struct{}, len(holidays)),
		buildDays: buildDays,
	}

	if len(workWeek) == 0 {
		workWeek = DefaultWorkWeek
	}
	for _, wd := range workWeek {
		if wd >= time.Sunday && wd <= time.Saturday {
			c.workDays[wd] = true
		}
	}

	// A week with no valid days would make every stepping function spin.
	if !c.hasWorkDay() {
		for _, wd := range DefaultWorkWeek {
			c.workDays[wd] = true
		}
	}

	for _, h := range holidays {
		c.holidays[h] = struct{}{}
	}

	if c.buildDays <= 0 {
		c.buildDays = DefaultBuildDays
	}

	return c
}

// Standard returns a Monday-Friday calendar with no holidays.
func Standard() *WorkCalendar {
	return New(nil, nil, 0)
}

func (c *WorkCalendar) hasWorkDay() bool {
	for _, ok := range c.workDays {
		if ok {
			return true
		}
	}
	return false
}

// BuildDays returns the organization's default build length in workdays.
func (c *WorkCalendar) BuildDays() int {
	return c.buildDays
}

// WorkWeek returns the configured work days in Sunday-first order.
func (c *WorkCalendar) WorkWeek() []time.Weekday {
	days := make([]time.Weekday, 0, 7)
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		if c.workDays[wd] {
			days = append(days, wd)
		}
	}
	return days
}

// IsHoliday reports whether d is a configured holiday.
func (c *WorkCalendar) IsHoliday(d civil.Date) bool {
	_, ok := c.holidays[d]
	return ok
}

// IsWorkDay reports whether work is permitted on d.
func (c *WorkCalendar) IsWorkDay(d civil.Date) bool {
	if !c.workDays[Weekday(d)] {
		return false
	}
	return !c.IsHoliday(d)
}

// NextWorkDay returns d if it is a workday, otherwise the first workday after it.
func (c *WorkCalendar) NextWorkDay(d civil.Date) civil.Date {
	for !c.IsWorkDay(d) {
		d = d.AddDays(1)
	}
	return d
}

// PrevWorkDay returns d if it is a workday, otherwise the last workday before it.
func (c *WorkCalendar) PrevWorkDay(d civil.Date) civil.Date {
	for !c.IsWorkDay(d) {
		d = d.AddDays(-1)
	}
	return d
}

// AddWorkDays normalizes d forward onto a workday and then steps n workdays
// forward. Negative n is treated as zero.
func (c *WorkCalendar) AddWorkDays(d civil.Date, n int) civil.Date {
	d = c.NextWorkDay(d)
	for i := 0; i < n; i++ {
		d = c.NextWorkDay(d.AddDays(1))
	}
	return d
}

// SubtractWorkDays normalizes d backward onto a workday and then steps n
// workdays backward. Negative n is treated as zero.
func (c *WorkCalendar) SubtractWorkDays(d civil.Date, n int) civil.Date {
	d = c.PrevWorkDay(d)
	for i := 0; i < n; i++ {
		d = c.PrevWorkDay(d.AddDays(-1))
	}
	return d
}

// ShiftWorkDays moves d by a signed number of workdays.
func (c *WorkCalendar) ShiftWorkDays(d civil.Date, n int) civil.Date {
	if n < 0 {
		return c.SubtractWorkDays(d, -n)
	}
	return c.AddWorkDays(d, n)
}

// WorkdaysBetweenInclusive counts the workdays in [a, b]. It returns 0 when b
// is before a.
func (c *WorkCalendar) WorkdaysBetweenInclusive(a, b civil.Date) int {
	if b.Before(a) {
		return 0
	}
	count := 0
	for d := a; !d.After(b); d = d.AddDays(1) {
		if c.IsWorkDay(d) {
			count++
		}
	}
	return count
}

// WorkdayOffset returns the signed number of workday steps from a to b after
// normalizing both forward onto workdays. WorkdayOffset(a, AddWorkDays(a, n))
// is n for any workday a.
func (c *WorkCalendar) WorkdayOffset(a, b civil.Date) int {
	a = c.NextWorkDay(a)
	b = c.NextWorkDay(b)
	switch {
	case a == b:
		return 0
	case a.Before(b):
		return c.WorkdaysBetweenInclusive(a, b) - 1
	default:
		return -(c.WorkdaysBetweenInclusive(b, a) - 1)
	}
}

// WorkDaysIn returns every workday in [from, to] in ascending order.
func (c *WorkCalendar) WorkDaysIn(from, to civil.Date) []civil.Date {
	var days []civil.Date
	for d := from; !d.After(to); d = d.AddDays(1) {
		if c.IsWorkDay(d) {
			days = append(days, d)
		}
	}
	return days
}

// Weekday returns the day of the week for a civil date.
func Weekday(d civil.Date) time.Weekday {
	return d.In(time.UTC).Weekday()
}

// Max returns the later of two dates.
func Max(a, b civil.Date) civil.Date {
	if b.After(a) {
		return b
	}
	return a
}

// Min returns the earlier of two dates.
func Min(a, b civil.Date) civil.Date {
	if b.Before(a) {
		return b
	}
	return a
}

// IsSet reports whether d carries a value. The zero civil.Date marks an
// unset (nullable) date throughout the scheduler.
func IsSet(d civil.Date) bool {
	return d != civil.Date{}
}
