// Package store provides a simple, goroutine safe, read-only key-value
// interface over the files of a Fedora repository. Values are streams, so
// large datastreams can be read without loading them into memory.
//
// Keys are relative slash separated paths, e.g. "d2/info%3Afedora%2Fdemo%3A123",
// which is exactly the form returned by address.Address.String().
//
// The FileSystem store is the one used against a live Fedora data directory.
// The S3 store reads a copy of the data directory kept in a bucket. The
// Memory store is for tests.
package store

import (
	"errors"
	"io"
	"strings"
	"unicode/utf8"
)

// ReadAtCloser combines the io.ReaderAt and io.Closer interfaces.
type ReadAtCloser interface {
	io.ReaderAt
	io.Closer
}

// Store is the read-only interface used to access an object store or a
// datastream store. Nothing in this package ever writes into a source
// repository.
type Store interface {
	// List returns every key in the store. The channel is closed when the
	// listing is finished.
	List() <-chan string
	// ListPrefix returns the keys which begin with prefix.
	ListPrefix(prefix string) ([]string, error)
	// Open returns a reader for the given key along with its size.
	Open(key string) (ReadAtCloser, int64, error)
}

var (
	// ErrNotExist means the requested key is not in the store.
	ErrNotExist = errors.New("key does not exist")

	// ErrKeyInvalid means the key is empty, absolute, not UTF-8, or has
	// a ".." path element.
	ErrKeyInvalid = errors.New("invalid key")
)

// checkKey validates that key is a clean relative path.
func checkKey(key string) error {
	if key == "" || !utf8.ValidString(key) || strings.HasPrefix(key, "/") {
		return ErrKeyInvalid
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." || part == "." || part == "" {
			return ErrKeyInvalid
		}
	}
	return nil
}

// ReadAll returns the entire contents stored under key.
func ReadAll(s Store, key string) ([]byte, error) {
	r, size, err := s.Open(key)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	buf := make([]byte, size)
	n, err := r.ReadAt(buf, 0)
	if err == io.EOF && int64(n) == size {
		err = nil
	}
	return buf[:n], err
}

// NewReader converts a ReaderAt into a io.Reader. It is here as a utility to
// help work with the ReadAtCloser returned by Open.
func NewReader(r io.ReaderAt) io.Reader {
	return &reader{r: r}
}

type reader struct {
	r   io.ReaderAt
	off int64
}

func (r *reader) Read(p []byte) (n int, err error) {
	n, err = r.r.ReadAt(p, r.off)
	r.off += int64(n)
	if err == io.EOF && n > 0 {
		// reading less than a full buffer is not an error for
		// an io.Reader
		err = nil
	}
	return
}
