package edtf

import (
	"testing"
)

func TestValid(t *testing.T) {
	var table = []struct {
		input  string
		output bool
	}{
		// level 0
		{"1985", true},
		{"1985-04", true},
		{"1985-04-12", true},
		{"2016-01", true},
		{"1995-03", true},
		{"1985-04-12T23:20:30", true},
		{"1985-04-12T23:20:30Z", true},
		{"1985-04-12T23:20:30-04", true},
		{"1985-04-12T10:10:10+05:30", true},
		{"1964/2008", true},
		{"2004-06/2006-08", true},
		{"2004-02-01/2005-02-08", true},
		{"2000-02-29", true},
		// level 1
		{"1984?", true},
		{"2004-06~", true},
		{"2004-06-11%", true},
		{"201X", true},
		{"20XX", true},
		{"2004-XX", true},
		{"1985-04-XX", true},
		{"1985-XX-XX", true},
		{"2001-21", true},
		{"2001-24", true},
		{"Y170000002", true},
		{"Y-170000002", true},
		{"-1985", true},
		{"../1985-04-12", true},
		{"1985-04-12/..", true},
		{"/1985", true},
		{"1985/", true},
		{"1984~/2004-06", true},
		// level 2
		{"2001-25", true},
		{"2001-41", true},
		{"2004-06~-11", true},
		{"?2004-06-~11", true},
		{"2004?-~06-~04", true},
		{"156X-12-25", true},
		{"15XX-12-XX", true},
		{"1985-XX-12", true},
		{"201X-05", true},
		{"1984-1X", true},
		{"Y-17E7", true},
		{"Y17101E4S3", true},
		{"1950S2", true},
		{"[1667,1668,1670..1672]", true},
		{"[..1760-12-03]", true},
		{"[1760-12..]", true},
		{"{1667,1668,1670..1672}", true},
		{"{1960, 1961-12}", true},
		{"2004-06~/2006-08?", true},
		// invalid
		{"", false},
		{"1999-00", false},
		{"1995-96", false},
		{"1985-13", false},
		{"1985-04-31", false},
		{"1900-02-29", false},
		{"2001-42", false},
		{"2001-25-03", false},
		{"2001-21-03", false},
		{"1985-XX-42", false},
		{"1984-2X", false},
		{"-19X5", false},
		{"{..1760}", false},
		{"[1667,..1668]", false},
		{"[1667,ca. 1668]", false},
		{"[]", false},
		{"2004-06~~-11", false},
		{"85", false},
		{"ca. 1920", false},
		{"January 5, 1920", false},
		{"1920s", false},
		{"1985-04-12T25:00:00", false},
		{"1985-04-12T23:20:30+15", false},
		{"../..", false},
		{"/", false},
		{"1964/2008/2010", false},
		{"Y1234", false},
		{"1985??", false},
	}
	for _, tab := range table {
		if r := Valid(tab.input); r != tab.output {
			t.Errorf("%q: Received %v, expected %v", tab.input, r, tab.output)
		}
	}
}
