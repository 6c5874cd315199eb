package pipeline

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"roverstatus/internal/util"
)

var months = []string{"JAN", "FEB", "MAR", "APR", "MAY", "JUN", "JUL", "AUG", "SEP", "OCT", "NOV", "DEC"}

var monthNames = []string{
	"january", "february", "march", "april", "may", "june",
	"july", "august", "september", "october", "november", "december",
}

var (
	reMonthDayYear = regexp.MustCompile(`^([A-Za-z]+)\s+(\d{1,2})(?:,\s*|\s+)(\d{4})$`)
	reDayMonthYear = regexp.MustCompile(`^(\d{1,2})\s+([A-Za-z]+),?\s+(\d{4})$`)
	reCanonical    = regexp.MustCompile(`^(\d{1,2})-([A-Za-z]+)-(\d{4})$`)
)

// NormalizeDate renders a hand-written date such as "Jan. 5, 2009" as
// "5-JAN-2009". Absent, yearless or otherwise unparseable fragments give "".
func NormalizeDate(fragment *string) string {
	if fragment == nil {
		return ""
	}
	cleaned := util.NormalizeSpaces(strings.ReplaceAll(*fragment, ".", ""))
	if cleaned == "" {
		return ""
	}

	var dayRaw, monthRaw, yearRaw string
	if m := reMonthDayYear.FindStringSubmatch(cleaned); m != nil {
		monthRaw, dayRaw, yearRaw = m[1], m[2], m[3]
	} else if m := reDayMonthYear.FindStringSubmatch(cleaned); m != nil {
		dayRaw, monthRaw, yearRaw = m[1], m[2], m[3]
	} else if m := reCanonical.FindStringSubmatch(cleaned); m != nil {
		dayRaw, monthRaw, yearRaw = m[1], m[2], m[3]
	} else {
		return ""
	}

	month := lookupMonth(monthRaw)
	if month < 0 {
		return ""
	}
	day, err := strconv.Atoi(dayRaw)
	if err != nil {
		return ""
	}
	year, err := strconv.Atoi(yearRaw)
	if err != nil {
		return ""
	}

	t := time.Date(year, time.Month(month+1), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || int(t.Month()) != month+1 {
		return ""
	}
	return fmt.Sprintf("%d-%s-%04d", t.Day(), months[month], t.Year())
}

// lookupMonth returns the zero-based month, or -1. A word names a month when it
// has at least three letters and is a prefix of the full English name, so "Sept"
// and "SEPTEMBER" both resolve while "Janx" does not.
func lookupMonth(word string) int {
	w := strings.ToLower(word)
	if len(w) < 3 {
		return -1
	}
	for i, name := range monthNames {
		if strings.HasPrefix(name, w) {
			return i
		}
	}
	return -1
}
