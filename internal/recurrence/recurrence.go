// Package recurrence computes the forever-calendar month grid and the next
// annual occurrence of MMDD-keyed events. It is pure: no I/O, no globals
// beyond the product's fixed timezone.
package recurrence

import (
	"fmt"
	"sort"
	"time"

	"github.com/QwerTayu/anniversary-calendar/internal/models"
)

// Zone is the fixed offset the product operates in. Today's key and the
// notification cutover both follow it; per-user timezones are not supported.
var Zone = time.FixedZone("UTC+9", 9*60*60)

// LeapDayKey is the recurrence key of February 29 events.
const LeapDayKey = "0229"

// Day is one cell of the month grid.
type Day struct {
	Month   int    `json:"month"`
	Day     int    `json:"day"`
	Weekday int    `json:"weekday"` // 0 = Sunday
	IsToday bool   `json:"is_today"`
	Key     string `json:"key"`
}

// Upcoming pairs a memory with its next annual occurrence.
type Upcoming struct {
	Memory   *models.Memory `json:"memory"`
	NextDate time.Time      `json:"next_date"`
	DaysLeft int            `json:"days_left"`
}

// DateKey derives the zero-padded MMDD key for a date. All writes of
// Memory.RecurrenceKey go through this function.
func DateKey(t time.Time) string {
	return fmt.Sprintf("%02d%02d", int(t.Month()), t.Day())
}

// ParseKey splits an MMDD key into month and day. Only four-digit keys
// naming a real calendar day pass; "0229" is valid, day 29 exists in the
// forever calendar.
func ParseKey(key string) (month, day int, err error) {
	if len(key) != 4 {
		return 0, 0, fmt.Errorf("invalid recurrence key %q", key)
	}
	for _, c := range key {
		if c < '0' || c > '9' {
			return 0, 0, fmt.Errorf("invalid recurrence key %q", key)
		}
	}
	month = int(key[0]-'0')*10 + int(key[1]-'0')
	day = int(key[2]-'0')*10 + int(key[3]-'0')
	if month < 1 || month > 12 {
		return 0, 0, fmt.Errorf("invalid recurrence key %q", key)
	}
	// 2024 is a leap year, so February admits day 29 here.
	daysInMonth := time.Date(2024, time.Month(month)+1, 0, 0, 0, 0, 0, Zone).Day()
	if day < 1 || day > daysInMonth {
		return 0, 0, fmt.Errorf("invalid recurrence key %q", key)
	}
	return month, day, nil
}

// IsLeapYear reports whether year has a real February 29.
func IsLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// MonthGrid generates the day cells for a month. February always yields 29
// entries: the calendar is year-agnostic, so Feb 29 must stay selectable even
// when the displayed year has no real one. In that case the synthetic 29th
// takes the weekday right after Feb 28 and is never "today".
func MonthGrid(year, month int, today time.Time) []Day {
	daysInMonth := time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, Zone).Day()
	if month == 2 {
		daysInMonth = 29
	}

	days := make([]Day, 0, daysInMonth)
	for d := 1; d <= daysInMonth; d++ {
		if month == 2 && d == 29 && !IsLeapYear(year) {
			feb28 := time.Date(year, time.February, 28, 0, 0, 0, 0, Zone)
			days = append(days, Day{
				Month:   2,
				Day:     29,
				Weekday: (int(feb28.Weekday()) + 1) % 7,
				IsToday: false,
				Key:     LeapDayKey,
			})
			continue
		}

		t := time.Date(year, time.Month(month), d, 0, 0, 0, 0, Zone)
		days = append(days, Day{
			Month:   month,
			Day:     d,
			Weekday: int(t.Weekday()),
			IsToday: sameDate(t, today),
			Key:     DateKey(t),
		})
	}
	return days
}

// Next returns the next annual occurrence of key on or after today, and the
// number of whole days until it (0 when it is today). For "0229" in a
// candidate year without a real Feb 29 the occurrence collapses to Feb 28;
// constructing the date naively would roll over to Mar 1 silently.
func Next(key string, today time.Time) (time.Time, int, error) {
	month, day, err := ParseKey(key)
	if err != nil {
		return time.Time{}, 0, err
	}

	start := StartOfDay(today)
	candidate := occurrenceIn(start.Year(), month, day, start.Location())
	if candidate.Before(start) {
		candidate = occurrenceIn(start.Year()+1, month, day, start.Location())
	}

	daysLeft := int(candidate.Sub(start) / (24 * time.Hour))
	return candidate, daysLeft, nil
}

// occurrenceIn places an MMDD key in a concrete year, collapsing Feb 29 to
// Feb 28 when year is not a leap year.
func occurrenceIn(year, month, day int, loc *time.Location) time.Time {
	if month == 2 && day == 29 && !IsLeapYear(year) {
		day = 28
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
}

// TodayKeys returns the recurrence keys that count as "today". On Feb 28 of a
// non-leap year this includes "0229", so leap-day anniversaries follow the
// same collapse rule the occurrence computation uses.
func TodayKeys(now time.Time) []string {
	keys := []string{DateKey(now)}
	if now.Month() == time.February && now.Day() == 28 && !IsLeapYear(now.Year()) {
		keys = append(keys, LeapDayKey)
	}
	return keys
}

// UpcomingList computes next occurrences for memories and returns the nearest
// ones, soonest first. Events occurring today (daysLeft 0) are excluded; they
// belong to the separate today list. The sort is stable, so ties keep the
// input order. limit <= 0 means no truncation.
func UpcomingList(memories []*models.Memory, today time.Time, limit int) []Upcoming {
	upcoming := make([]Upcoming, 0, len(memories))
	for _, m := range memories {
		next, daysLeft, err := Next(m.RecurrenceKey, today)
		if err != nil || daysLeft == 0 {
			continue
		}
		upcoming = append(upcoming, Upcoming{Memory: m, NextDate: next, DaysLeft: daysLeft})
	}

	sort.SliceStable(upcoming, func(i, j int) bool {
		return upcoming[i].DaysLeft < upcoming[j].DaysLeft
	})

	if limit > 0 && len(upcoming) > limit {
		upcoming = upcoming[:limit]
	}
	return upcoming
}

// DaysSince returns the whole days elapsed from eventDate to today,
// date-only. Negative when eventDate is in the future.
func DaysSince(eventDate, today time.Time) int {
	return int(StartOfDay(today).Sub(StartOfDay(eventDate)) / (24 * time.Hour))
}

// StartOfDay truncates t to midnight in the fixed zone.
func StartOfDay(t time.Time) time.Time {
	t = t.In(Zone)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, Zone)
}

func sameDate(a, b time.Time) bool {
	a, b = a.In(Zone), b.In(Zone)
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}
