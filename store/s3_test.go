package store

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"sort"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

// fakeS3 serves a fixed set of objects. Only the calls the S3 store makes
// are implemented.
type fakeS3 struct {
	s3iface.S3API
	objects map[string][]byte
	listErr error
	heads   int
	gets    int
}

func (f *fakeS3) HeadObject(in *s3.HeadObjectInput) (*s3.HeadObjectOutput, error) {
	f.heads++
	data, ok := f.objects[aws.StringValue(in.Key)]
	if !ok {
		return nil, awserr.NewRequestFailure(awserr.New("NotFound", "Not Found", nil), http.StatusNotFound, "")
	}
	return &s3.HeadObjectOutput{ContentLength: aws.Int64(int64(len(data)))}, nil
}

func (f *fakeS3) GetObject(in *s3.GetObjectInput) (*s3.GetObjectOutput, error) {
	f.gets++
	data := f.objects[aws.StringValue(in.Key)]
	var lo, hi int
	fmt.Sscanf(aws.StringValue(in.Range), "bytes=%d-%d", &lo, &hi)
	if hi >= len(data) {
		hi = len(data) - 1
	}
	return &s3.GetObjectOutput{Body: ioutil.NopCloser(bytes.NewReader(data[lo : hi+1]))}, nil
}

func (f *fakeS3) ListObjectsV2Pages(in *s3.ListObjectsV2Input, fn func(*s3.ListObjectsV2Output, bool) bool) error {
	if f.listErr != nil {
		return f.listErr
	}
	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, aws.StringValue(in.Prefix)) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	// two keys to a page
	for i := 0; i < len(keys) || i == 0; i += 2 {
		page := &s3.ListObjectsV2Output{}
		for _, k := range keys[i:min(i+2, len(keys))] {
			page.Contents = append(page.Contents, &s3.Object{
				Key:  aws.String(k),
				Size: aws.Int64(int64(len(f.objects[k]))),
			})
		}
		if !fn(page, i+2 >= len(keys)) {
			break
		}
	}
	return nil
}

func newFakeS3() *fakeS3 {
	data := make([]byte, 100)
	for i := range data {
		data[i] = byte(i)
	}
	return &fakeS3{objects: map[string][]byte{
		"objectStore/d2/one":   data,
		"objectStore/d2/two":   []byte("hello"),
		"objectStore/e3/three": {},
		"other/d2/one":         []byte("not in the store"),
	}}
}

func TestS3ReadAt(t *testing.T) {
	fake := newFakeS3()
	s := newS3(fake, "fedora", "objectStore/")
	s.chunk = 16
	r, size, err := s.Open("d2/one")
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	if size != 100 {
		t.Fatalf("Received size %d, expected 100", size)
	}
	var table = []struct {
		offset int64
		length int
		n      int
		err    error
		gets   int // total GETs after the read
	}{
		{0, 10, 10, nil, 1},
		{10, 6, 6, nil, 1},   // still inside the first chunk
		{12, 10, 10, nil, 2}, // crosses into a new chunk
		{90, 20, 10, io.EOF, 3},
		{95, 5, 5, nil, 3},
		{100, 5, 0, io.EOF, 3},
		{0, 100, 100, nil, 4},
		{-1, 5, 0, errNegativeOffset, 4},
	}
	for _, tab := range table {
		p := make([]byte, tab.length)
		n, err := r.ReadAt(p, tab.offset)
		if n != tab.n || err != tab.err {
			t.Errorf("ReadAt(%d, %d): Received %d, %v, expected %d, %v", tab.length, tab.offset, n, err, tab.n, tab.err)
		}
		for i := 0; i < n; i++ {
			if p[i] != byte(tab.offset)+byte(i) {
				t.Errorf("ReadAt(%d, %d): byte %d is %d", tab.length, tab.offset, i, p[i])
				break
			}
		}
		if fake.gets != tab.gets {
			t.Errorf("ReadAt(%d, %d): Received %d GETs, expected %d", tab.length, tab.offset, fake.gets, tab.gets)
		}
	}
}

func TestS3ReadAll(t *testing.T) {
	s := newS3(newFakeS3(), "fedora", "objectStore/")
	s.chunk = 7
	var table = []struct {
		key  string
		size int
	}{
		{"d2/one", 100},
		{"d2/two", 5},
		{"e3/three", 0},
	}
	for _, tab := range table {
		data, err := ReadAll(s, tab.key)
		if err != nil || len(data) != tab.size {
			t.Errorf("%s: Received %d bytes, %v, expected %d", tab.key, len(data), err, tab.size)
		}
		r, _, _ := s.Open(tab.key)
		streamed, err := ioutil.ReadAll(NewReader(r))
		r.Close()
		if err != nil || !bytes.Equal(streamed, data) {
			t.Errorf("%s: streamed read differs: %v", tab.key, err)
		}
	}
}

func TestS3Sizes(t *testing.T) {
	fake := newFakeS3()
	s := newS3(fake, "fedora", "objectStore/")
	for i := 0; i < 2; i++ {
		if _, _, err := s.Open("zz/missing"); err != ErrNotExist {
			t.Errorf("Received %v, expected %v", err, ErrNotExist)
		}
	}
	if _, _, err := s.Open("../d2/one"); err != ErrKeyInvalid {
		t.Errorf("Received %v, expected %v", err, ErrKeyInvalid)
	}
	if fake.heads != 1 {
		t.Errorf("Received %d HEADs, expected 1", fake.heads)
	}
	keys, err := s.ListPrefix("")
	if err != nil {
		t.Fatal(err)
	}
	expected := []string{"d2/one", "d2/two", "e3/three"}
	if strings.Join(keys, " ") != strings.Join(expected, " ") {
		t.Errorf("Received %v, expected %v", keys, expected)
	}
	// listed keys are opened without a HEAD
	for _, key := range keys {
		if _, _, err := s.Open(key); err != nil {
			t.Errorf("%s: Received %v", key, err)
		}
	}
	if fake.heads != 1 {
		t.Errorf("Received %d HEADs, expected 1", fake.heads)
	}
}

func TestS3List(t *testing.T) {
	fake := newFakeS3()
	s := newS3(fake, "fedora", "objectStore/")
	var keys []string
	for key := range s.List() {
		keys = append(keys, key)
	}
	if len(keys) != 3 {
		t.Errorf("Received %v", keys)
	}
	fake.listErr = errors.New("access denied")
	if _, err := s.ListPrefix("d2/"); err == nil {
		t.Errorf("Expected listing error")
	}
	keys = nil
	for key := range s.List() {
		keys = append(keys, key)
	}
	if len(keys) != 0 {
		t.Errorf("Received %v, expected nothing", keys)
	}
}
