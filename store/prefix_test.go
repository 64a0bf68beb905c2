package store

import (
	"sort"
	"testing"
)

func TestPrefixSmoke(t *testing.T) {
	var prefixlists = []struct {
		input  string
		result []string
	}{
		{"", []string{"ab/one", "cd/two"}},
		{"a", []string{"ab/one"}},
		{"b", nil},
		{"cd/", []string{"cd/two"}},
	}
	m := NewMemory()
	m.Put("objectStore/ab/one", []byte("text 1"))
	m.Put("objectStore/cd/two", []byte("text 2"))
	m.Put("datastreamStore/ab/three", []byte("text 3"))
	ps := NewWithPrefix(m, "objectStore/")

	for _, test := range prefixlists {
		t.Logf("doing prefix '%s'", test.input)
		ids, err := ps.ListPrefix(test.input)
		if err != nil {
			t.Errorf("Received error %s", err.Error())
		}
		sort.Strings(ids)
		if !equal(ids, test.result) {
			t.Errorf("Received ids %v", ids)
		}
	}

	var listed []string
	for key := range ps.List() {
		listed = append(listed, key)
	}
	if !equal(listed, []string{"ab/one", "cd/two"}) {
		t.Errorf("Received list %v", listed)
	}

	data, err := ReadAll(ps, "cd/two")
	if err != nil || string(data) != "text 2" {
		t.Errorf("Received %q, %v", data, err)
	}
	if _, _, err := ps.Open("ab/three"); err != ErrNotExist {
		t.Errorf("Received %v, expected %v", err, ErrNotExist)
	}
}

func TestMemoryReadAt(t *testing.T) {
	m := NewMemory()
	m.Put("k", []byte("hello world"))
	r, size, err := m.Open("k")
	if err != nil {
		t.Fatal(err)
	}
	if size != 11 {
		t.Errorf("Received size %d, expected 11", size)
	}
	p := make([]byte, 5)
	n, err := r.ReadAt(p, 6)
	if n != 5 || err != nil || string(p) != "world" {
		t.Errorf("Received %d, %v, %q", n, err, p[:n])
	}
	n, err = r.ReadAt(p, 9)
	if n != 2 || err == nil {
		t.Errorf("Received %d, %v, expected short read with EOF", n, err)
	}
}
