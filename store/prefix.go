package store

import (
	"log"
	"strings"
)

// NewWithPrefix wraps the store s by one which prefixes all its keys by
// prefix. A Fedora data directory holds both the object store and the
// datastream store, so one FileSystem rooted at the data directory can be
// shared by prefixing with "objectStore/" and "datastreamStore/".
func NewWithPrefix(s Store, prefix string) Store {
	return prefixstore{s: s, p: prefix}
}

type prefixstore struct {
	s Store  // the store being wrapped
	p string // the prefix for our keys
}

func (ps prefixstore) List() <-chan string {
	out := make(chan string)
	in := ps.s.ListPrefix
	go func() {
		defer close(out)
		keys, err := in(ps.p)
		if err != nil {
			log.Println("List", ps.p, err)
		}
		var plen = len(ps.p)
		for _, key := range keys {
			if strings.HasPrefix(key, ps.p) {
				out <- key[plen:]
			}
		}
	}()
	return out
}

func (ps prefixstore) ListPrefix(prefix string) ([]string, error) {
	var plen = len(ps.p)
	var result []string
	keys, err := ps.s.ListPrefix(ps.p + prefix)
	for _, key := range keys {
		if strings.HasPrefix(key, ps.p) {
			result = append(result, key[plen:])
		}
	}
	return result, err
}

func (ps prefixstore) Open(key string) (ReadAtCloser, int64, error) {
	return ps.s.Open(ps.p + key)
}
