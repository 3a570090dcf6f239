package cron

import (
	"fmt"
	"strings"
	"time"
)

// Schedule yields the next activation strictly after a given instant.
type Schedule interface {
	Next(after time.Time) time.Time
}

type every time.Duration

// Every fires at a fixed interval.
func Every(d time.Duration) Schedule { return every(d) }

func (e every) Next(after time.Time) time.Time { return after.Add(time.Duration(e)) }

type daily struct {
	hour, minute int
	loc          *time.Location
}

// DailyAt fires once a day at hour:minute in loc.
func DailyAt(hour, minute int, loc *time.Location) Schedule {
	if loc == nil {
		loc = time.UTC
	}
	return daily{hour: hour, minute: minute, loc: loc}
}

func (d daily) Next(after time.Time) time.Time {
	t := after.In(d.loc)
	next := time.Date(t.Year(), t.Month(), t.Day(), d.hour, d.minute, 0, 0, d.loc)
	if !next.After(t) {
		next = time.Date(t.Year(), t.Month(), t.Day()+1, d.hour, d.minute, 0, 0, d.loc)
	}
	return next
}

type weekly struct {
	day time.Weekday
	daily
}

// WeeklyAt fires once a week on day at hour:minute in loc.
func WeeklyAt(day time.Weekday, hour, minute int, loc *time.Location) Schedule {
	return weekly{day: day, daily: DailyAt(hour, minute, loc).(daily)}
}

func (w weekly) Next(after time.Time) time.Time {
	next := w.daily.Next(after)
	for next.Weekday() != w.day {
		next = time.Date(next.Year(), next.Month(), next.Day()+1, w.hour, w.minute, 0, 0, w.loc)
	}
	return next
}

var weekdays = map[string]time.Weekday{
	"sun": time.Sunday, "dom": time.Sunday,
	"mon": time.Monday, "lun": time.Monday,
	"tue": time.Tuesday, "mar": time.Tuesday,
	"wed": time.Wednesday, "mie": time.Wednesday,
	"thu": time.Thursday, "jue": time.Thursday,
	"fri": time.Friday, "vie": time.Friday,
	"sat": time.Saturday, "sab": time.Saturday,
}

// Parse reads "HH:MM" as a daily schedule and "<day> HH:MM" as a weekly
// one. Day names are three-letter English or Spanish abbreviations.
func Parse(spec string, loc *time.Location) (Schedule, error) {
	fields := strings.Fields(strings.ToLower(spec))
	var day string
	switch len(fields) {
	case 1:
	case 2:
		day = fields[0]
		fields = fields[1:]
	default:
		return nil, fmt.Errorf("invalid schedule %q", spec)
	}
	hm, err := time.Parse("15:04", fields[0])
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	if day == "" {
		return DailyAt(hm.Hour(), hm.Minute(), loc), nil
	}
	wd, ok := weekdays[day]
	if !ok {
		return nil, fmt.Errorf("invalid schedule %q: unknown day %q", spec, day)
	}
	return WeeklyAt(wd, hm.Hour(), hm.Minute(), loc), nil
}
