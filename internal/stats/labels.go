package stats

import (
	"fmt"
	"time"
)

var frenchMonths = [...]string{
	"janv.", "févr.", "mars", "avr.", "mai", "juin",
	"juil.", "août", "sept.", "oct.", "nov.", "déc.",
}

// dayLabel renders t as dd/MM.
func dayLabel(t time.Time) string {
	return t.Format("02/01")
}

// monthLabel renders t the way fr-FR short month plus 2-digit year does,
// e.g. "janv. 26".
func monthLabel(t time.Time) string {
	return fmt.Sprintf("%s %02d", frenchMonths[t.Month()-1], t.Year()%100)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// startOfWeek returns the Monday of t's ISO week.
func startOfWeek(t time.Time) time.Time {
	d := startOfDay(t)
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}

func startOfMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
}
