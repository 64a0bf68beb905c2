package store

import (
	"io"
	"log"
	"os"
	"path"
	"path/filepath"
	"strings"

	raven "github.com/getsentry/raven-go"
)

// FileSystem implements a read-only store over a directory tree, such as a
// Fedora objectStore or datastreamStore. It only opens files when asked, and
// otherwise only reads directories, so it could be backed by a tape system.
//
// Keys are the slash separated paths of files relative to the root.
type FileSystem struct {
	root string
}

var (
	// make sure it implements the Store interface
	_ Store = &FileSystem{}
)

// NewFileSystem creates a new FileSystem store based at the given root path.
func NewFileSystem(root string) *FileSystem {
	return &FileSystem{root}
}

// Root returns the directory this store reads from.
func (s *FileSystem) Root() string {
	return s.root
}

// List returns a channel listing all the keys in this store.
func (s *FileSystem) List() <-chan string {
	c := make(chan string)
	go func() {
		walkTree(s.root, "", func(key string) { c <- key })
		close(c)
	}()
	return c
}

// walkTree performs a depth first walk of the file tree at dir, calling emit
// with the key of every file found. rel is the key prefix for dir. Be careful
// to only open directories and stat files, otherwise we might trigger a
// blocking request on the tape system.
func walkTree(dir string, rel string, emit func(string)) {
	f, err := os.Open(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Println(err)
			raven.CaptureError(err, map[string]string{"Dir": dir})
		}
		return
	}
	defer f.Close()
	for {
		entries, err := f.Readdir(1000)
		if err == io.EOF {
			return
		} else if err != nil {
			// we have no other way of passing this error back
			log.Println(err)
			raven.CaptureError(err, map[string]string{"Dir": dir})
			return
		}
		for _, e := range entries {
			key := path.Join(rel, e.Name())
			if e.IsDir() {
				walkTree(filepath.Join(dir, e.Name()), key, emit)
				continue
			}
			emit(key)
		}
	}
}

// ListPrefix returns a list of all the keys beginning with the given prefix.
// Only the directory named by the part of prefix before its last slash is
// walked.
func (s *FileSystem) ListPrefix(prefix string) ([]string, error) {
	var rel string
	if i := strings.LastIndex(prefix, "/"); i >= 0 {
		rel = prefix[:i]
		if rel != "" {
			if err := checkKey(rel); err != nil {
				return nil, err
			}
		}
	}
	var result []string
	walkTree(filepath.Join(s.root, filepath.FromSlash(rel)), rel, func(key string) {
		if strings.HasPrefix(key, prefix) {
			result = append(result, key)
		}
	})
	return result, nil
}

// Open returns a reader for the given object along with its size.
func (s *FileSystem) Open(key string) (ReadAtCloser, int64, error) {
	if err := checkKey(key); err != nil {
		return nil, 0, err
	}
	fname := filepath.Join(s.root, filepath.FromSlash(key))
	f, err := os.Open(fname)
	if os.IsNotExist(err) {
		return nil, 0, ErrNotExist
	} else if err != nil {
		return nil, 0, err
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, err
	}
	if fi.IsDir() {
		f.Close()
		return nil, 0, ErrNotExist
	}
	return f, fi.Size(), nil
}
