package repository

import (
	"strings"
	"time"

	"github.com/abelzeko/flood-alert/internal/entities"
)

// thaiMonths lists the full Thai month names in calendar order
var thaiMonths = [...]string{
	"มกราคม",
	"กุมภาพันธ์",
	"มีนาคม",
	"เมษายน",
	"พฤษภาคม",
	"มิถุนายน",
	"กรกฎาคม",
	"สิงหาคม",
	"กันยายน",
	"ตุลาคม",
	"พฤศจิกายน",
	"ธันวาคม",
}

// ThaiMonth returns the month number 1..12 for a full Thai month name
func ThaiMonth(name string) (int, bool) {
	name = strings.TrimSpace(name)
	for i, m := range thaiMonths {
		if m == name {
			return i + 1, true
		}
	}
	return 0, false
}

// composeDate builds the Gregorian date of a Buddhist (year, month, day) triple.
// It fails for dates that do not exist, e.g. 30 February.
func composeDate(buddhistYear, month, day int) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	d := time.Date(entities.BuddhistToGregorian(buddhistYear), time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if d.Month() != time.Month(month) || d.Day() != day {
		return time.Time{}, false
	}
	return d, true
}
