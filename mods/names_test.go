package mods

import (
	"testing"
)

func TestNameRoundTrip(t *testing.T) {
	var table = []struct {
		entry   NameEntry
		encoded string
	}{
		{NameEntry{"relators:edt", "person", "Jane Doe"}, "relators:edt:person:Jane Doe"},
		{NameEntry{"relators:att", "corporate_body", "Acme: a company"}, "relators:att:corporate_body:Acme: a company"},
		{NameEntry{"relators:aut", "person", ""}, "relators:aut:person:"},
	}
	for _, tab := range table {
		s := EncodeName(tab.entry)
		if s != tab.encoded {
			t.Errorf("Received %q, expected %q", s, tab.encoded)
		}
		back, err := DecodeName(s)
		if err != nil {
			t.Errorf("%q: %s", s, err)
		}
		if back != tab.entry {
			t.Errorf("Received %+v, expected %+v", back, tab.entry)
		}
	}
}

func TestDecodeNameErrors(t *testing.T) {
	for _, s := range []string{"", "edt:person:Jane", "relators:edt", "relators:edt:person"} {
		if _, err := DecodeName(s); err != ErrBadName {
			t.Errorf("%q: Received %v, expected ErrBadName", s, err)
		}
	}
}

func TestCapitalize(t *testing.T) {
	var table = []struct {
		input  string
		output string
	}{
		{"editor", "Editor"},
		{"EDITOR", "Editor"},
		{"thesis ADVISOR", "Thesis advisor"},
		{"", ""},
		{"élan", "Élan"},
	}
	for _, tab := range table {
		if r := capitalize(tab.input); r != tab.output {
			t.Errorf("%q: Received %q, expected %q", tab.input, r, tab.output)
		}
	}
}
