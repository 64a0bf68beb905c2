package mods

import (
	"regexp"
	"strings"
	"time"

	"github.com/ndlib/fedharvest/edtf"
)

var (
	yearSuffixRE = regexp.MustCompile(`^\b(18|19|20)\d{2}-(\d{2})\b`)
	monthDateRE  = regexp.MustCompile(`^(January|February|March|April|May|June|July|August|September|October|November|December) \d{1,2},\s?\d{4}$`)
	commaRE      = regexp.MustCompile(`,(\S+)`)
	yearRangeRE  = regexp.MustCompile(`^\d{4}-\d{4}`)
)

// FixDate rewrites a date into EDTF. Valid EDTF is returned unchanged.
// Otherwise these rewrites are tried in order:
//
//	1995-96         1995/1996   (year and two digit end year; 1999-00 gives 1999/2000)
//	March 5, 1990   1990-03-05
//	1990-1995       1990/1995
//	ca. 1920        1920~
//
// If none applies the value is returned unchanged and ok is false.
func FixDate(s string) (result string, ok bool) {
	if edtf.Valid(s) {
		return s, true
	}
	if yearSuffixRE.MatchString(s) {
		years := strings.Split(s, "-")
		century := years[0][:2]
		if years[0] == "1999" {
			century = "20"
		}
		return years[0] + "/" + century + years[1], true
	}
	if monthDateRE.MatchString(s) {
		t, err := time.Parse("January 2, 2006", commaRE.ReplaceAllString(s, ", $1"))
		if err == nil {
			return t.Format("2006-01-02"), true
		}
	}
	if yearRangeRE.MatchString(s) {
		return strings.ReplaceAll(s, "-", "/"), true
	}
	if strings.Contains(s, "ca.") {
		f := strings.Fields(s)
		return f[len(f)-1] + "~", true
	}
	return s, false
}
