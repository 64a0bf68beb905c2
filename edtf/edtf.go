// Package edtf validates strings against the Extended Date/Time Format,
// levels 0, 1 and 2.
//
// Level 0 covers calendar dates (1985, 1985-04, 1985-04-12), date and time
// values (1985-04-12T23:20:30Z), and intervals between dates (1964/2008).
// Level 1 adds qualifiers (1984?, 2004-06~, 2004-06-11%), unspecified digits
// (201X, 20XX, 2004-XX, 1985-04-XX, 1985-XX-XX), seasons (2001-21 through
// 2001-24), long years (Y170000002), negative years, and open or unknown
// interval ends (../1985, 1985/.., /1985, 1985/).
//
// Level 2 adds sub-year groupings (2001-25 through 2001-41), qualifiers on
// individual components (2004-06~-11, ?2004-06-~11), unspecified digits in
// any component (156X-12-25, 1985-XX-12), exponential years (Y-17E7),
// significant digits (1950S2), and sets ([1667,1668,1670..1672], {1960,1961}).
package edtf

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	dateTimeRE = regexp.MustCompile(`^(-?\d{4})-(\d{2})-(\d{2})T(\d{2}):(\d{2}):(\d{2})(Z|[+-]\d{2}(?::\d{2})?)?$`)
	longYearRE = regexp.MustCompile(`^Y-?[1-9]\d{4,}(S\d+)?$`)
	expYearRE  = regexp.MustCompile(`^Y-?\d+E\d+(S\d+)?$`)
	sigYearRE  = regexp.MustCompile(`^-?\d{4}S\d+$`)
)

const qualifiers = "?~%"

// Valid reports whether s is an EDTF value of level 0, 1 or 2.
func Valid(s string) bool {
	if n := len(s); n >= 2 && (s[0] == '[' && s[n-1] == ']' || s[0] == '{' && s[n-1] == '}') {
		return validSet(s[1:n-1], s[0] == '[')
	}
	if strings.Count(s, "/") == 1 {
		return validInterval(s)
	}
	return validDate(s) || validDateTime(s) || validYear(s)
}

func validYear(s string) bool {
	return longYearRE.MatchString(s) || expYearRE.MatchString(s) || sigYearRE.MatchString(s)
}

func validInterval(s string) bool {
	i := strings.IndexByte(s, '/')
	start, end := s[:i], s[i+1:]
	startOpen := start == "" || start == ".."
	endOpen := end == "" || end == ".."
	switch {
	case startOpen && endOpen:
		return false
	case startOpen:
		return validDate(end)
	case endOpen:
		return validDate(start)
	}
	return validDate(start) && validDate(end)
}

// validSet checks the members of a set or list. Open ranges ("..1760",
// "1760..") are only allowed at the ends of a one-of set.
func validSet(s string, oneOf bool) bool {
	members := strings.Split(s, ",")
	for i, m := range members {
		m = strings.TrimSpace(m)
		j := strings.Index(m, "..")
		if j < 0 {
			if !validDate(m) && !validYear(m) {
				return false
			}
			continue
		}
		lo, hi := m[:j], m[j+2:]
		switch {
		case lo == "" && hi == "":
			return false
		case lo == "":
			if !oneOf || i != 0 || !validDate(hi) {
				return false
			}
		case hi == "":
			if !oneOf || i != len(members)-1 || !validDate(lo) {
				return false
			}
		default:
			if !validDate(lo) || !validDate(hi) {
				return false
			}
		}
	}
	return true
}

// component strips one leading and one trailing qualifier from s.
func component(s string) string {
	if s != "" && strings.IndexByte(qualifiers, s[0]) >= 0 {
		s = s[1:]
	}
	if s != "" && strings.IndexByte(qualifiers, s[len(s)-1]) >= 0 {
		s = s[:len(s)-1]
	}
	return s
}

// digitsOrX reports whether s has length n and holds only digits and X.
func digitsOrX(s string, n int) bool {
	if len(s) != n {
		return false
	}
	for i := 0; i < n; i++ {
		if s[i] != 'X' && (s[i] < '0' || s[i] > '9') {
			return false
		}
	}
	return true
}

func validDate(s string) bool {
	if s == "" {
		return false
	}
	neg := false
	if s[0] == '-' {
		neg = true
		s = s[1:]
	}
	parts := strings.Split(s, "-")
	if len(parts) > 3 {
		return false
	}
	var fields [3]string
	for i, p := range parts {
		fields[i] = component(p)
		if fields[i] == "" || strings.IndexAny(fields[i], qualifiers) >= 0 {
			return false
		}
	}
	year, month, day := fields[0], fields[1], fields[2]
	if !digitsOrX(year, 4) || neg && strings.Contains(year, "X") {
		return false
	}
	if month == "" {
		return true
	}
	if !digitsOrX(month, 2) {
		return false
	}
	if strings.Contains(month, "X") {
		if month != "XX" && month[0] != '0' && month[0] != '1' && month[0] != 'X' {
			return false
		}
		return day == "" || digitsOrX(day, 2) && validDayDigits(day)
	}
	mo, _ := strconv.Atoi(month)
	if mo >= 21 && mo <= 41 {
		// season or sub-year grouping
		return day == ""
	}
	if mo < 1 || mo > 12 {
		return false
	}
	if day == "" {
		return true
	}
	if !digitsOrX(day, 2) || !validDayDigits(day) {
		return false
	}
	if strings.Contains(day, "X") || strings.Contains(year, "X") {
		return true
	}
	y, _ := strconv.Atoi(year)
	d, _ := strconv.Atoi(day)
	return d >= 1 && d <= daysIn(mo, y)
}

// validDayDigits rejects days that cannot exist whatever the X digits are.
func validDayDigits(day string) bool {
	if day[0] != 'X' && day[0] > '3' {
		return false
	}
	if strings.Contains(day, "X") {
		return true
	}
	d, _ := strconv.Atoi(day)
	return d >= 1 && d <= 31
}

func validDateTime(s string) bool {
	m := dateTimeRE.FindStringSubmatch(s)
	if m == nil {
		return false
	}
	if !validDate(m[1] + "-" + m[2] + "-" + m[3]) {
		return false
	}
	h, _ := strconv.Atoi(m[4])
	min, _ := strconv.Atoi(m[5])
	sec, _ := strconv.Atoi(m[6])
	if h > 23 || min > 59 || sec > 59 {
		return false
	}
	if z := m[7]; len(z) >= 3 {
		zh, _ := strconv.Atoi(z[1:3])
		if zh > 14 {
			return false
		}
		if len(z) == 6 {
			zm, _ := strconv.Atoi(z[4:6])
			if zm > 59 {
				return false
			}
		}
	}
	return true
}

func daysIn(month, year int) int {
	switch month {
	case 2:
		if year%4 == 0 && (year%100 != 0 || year%400 == 0) {
			return 29
		}
		return 28
	case 4, 6, 9, 11:
		return 30
	}
	return 31
}
