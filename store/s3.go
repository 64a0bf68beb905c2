package store

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	raven "github.com/getsentry/raven-go"
	"github.com/pkg/errors"
)

// A S3 store reads a copy of a Fedora data directory kept in an S3 bucket.
// Keys are the object keys with Prefix removed.
// Do not change Bucket or Prefix concurrently with calls using the structure.
type S3 struct {
	svc    s3iface.S3API
	Bucket string
	Prefix string
	sizes  sizeTable
	chunk  int64 // smallest range requested by a read
}

var _ Store = &S3{}

// defaultChunk is the smallest range fetched by one GET. Most FOXML files
// and metadata datastreams fit in one.
const defaultChunk = 4 * 1024 * 1024

// NewS3 creates a new S3 store. It will use the given bucket and will prepend
// prefix to all keys. For example if prefix were "objectStore/" then an
// Open("d2/info%3Afedora%2Fdemo%3A123") would read the object key
// "objectStore/d2/info%3Afedora%2Fdemo%3A123". The authorization method and
// credentials in the session are used for all accesses.
func NewS3(bucket, prefix string, awsSession *session.Session) *S3 {
	return newS3(s3.New(awsSession), bucket, prefix)
}

func newS3(svc s3iface.S3API, bucket, prefix string) *S3 {
	return &S3{
		svc:    svc,
		Bucket: bucket,
		Prefix: prefix,
		chunk:  defaultChunk,
	}
}

// List returns every key under the store's Prefix, so it is safe to use on a
// bucket holding other items. A listing error ends the list early and is
// logged; use ListPrefix("") to see it.
func (s *S3) List() <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		err := s.list("", func(key string, size int64) { out <- key })
		if err != nil {
			log.Println("S3 List:", s.Prefix, err)
			raven.CaptureError(err, map[string]string{"Bucket": s.Bucket, "Prefix": s.Prefix})
		}
	}()
	return out
}

// ListPrefix returns the keys in this store that have the given prefix.
// The argument prefix is added to the store's Prefix. The sizes seen are
// remembered, so opening a listed key needs no HEAD request.
func (s *S3) ListPrefix(prefix string) ([]string, error) {
	var result []string
	err := s.list(prefix, func(key string, size int64) {
		result = append(result, key)
	})
	if err != nil {
		log.Println("S3 ListPrefix:", s.Prefix, prefix, err)
		raven.CaptureError(err, map[string]string{"Bucket": s.Bucket, "Prefix": s.Prefix, "Pattern": prefix})
	}
	return result, err
}

func (s *S3) list(prefix string, emit func(key string, size int64)) error {
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(s.Bucket),
		Prefix: aws.String(s.Prefix + prefix),
	}
	err := s.svc.ListObjectsV2Pages(input,
		func(page *s3.ListObjectsV2Output, lastpage bool) bool {
			for _, item := range page.Contents {
				key := strings.TrimPrefix(aws.StringValue(item.Key), s.Prefix)
				size := aws.Int64Value(item.Size)
				s.sizes.record(key, size)
				emit(key, size)
			}
			return !lastpage
		})
	return errors.Wrapf(err, "listing s3://%s/%s%s", s.Bucket, s.Prefix, prefix)
}

// Open returns a reader for key along with its size. Data is fetched with
// ranged GETs as it is read.
func (s *S3) Open(key string) (ReadAtCloser, int64, error) {
	if err := checkKey(key); err != nil {
		return nil, 0, err
	}
	size, err := s.sizes.lookup(key, s.head)
	if err != nil {
		return nil, 0, err
	}
	result := &s3Object{
		svc:    s.svc,
		bucket: s.Bucket,
		key:    s.Prefix + key,
		size:   size,
		chunk:  s.chunk,
	}
	return result, size, nil
}

// head asks S3 for the size of key. A missing key gives ErrNotExist.
func (s *S3) head(key string) (int64, error) {
	info, err := s.svc.HeadObject(&s3.HeadObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.Prefix + key),
	})
	if e, ok := err.(awserr.RequestFailure); ok && e.StatusCode() == http.StatusNotFound {
		return 0, ErrNotExist
	} else if err != nil {
		return 0, errors.Wrapf(err, "head %s", key)
	}
	return aws.Int64Value(info.ContentLength), nil
}

// sizeTable remembers object sizes from listings and HEAD requests. The
// repository does not change during a harvest, so entries never expire.
type sizeTable struct {
	m     sync.Mutex
	sizes map[string]int64 // sizeMissing for keys known to be absent
}

const sizeMissing int64 = -1

// lookup returns the size of key, calling head if it is not known. The lock
// is not held during head, so concurrent opens of one key may both ask.
func (t *sizeTable) lookup(key string, head func(string) (int64, error)) (int64, error) {
	t.m.Lock()
	size, ok := t.sizes[key]
	t.m.Unlock()
	if !ok {
		var err error
		size, err = head(key)
		if err == ErrNotExist {
			size = sizeMissing
		} else if err != nil {
			return 0, err
		}
		t.record(key, size)
	}
	if size == sizeMissing {
		return 0, ErrNotExist
	}
	return size, nil
}

func (t *sizeTable) record(key string, size int64) {
	t.m.Lock()
	if t.sizes == nil {
		t.sizes = make(map[string]int64)
	}
	t.sizes[key] = size
	t.m.Unlock()
}

// s3Object reads one S3 object of known size. Each GET asks for at least
// chunk bytes and the last range fetched is kept, so reading through the
// object in small pieces costs one request per chunk. It is safe for
// concurrent use.
type s3Object struct {
	svc    s3iface.S3API
	bucket string
	key    string
	size   int64
	chunk  int64

	m      sync.Mutex
	buf    []byte // the last range fetched
	bufOff int64  // offset of buf[0] in the object
}

var errNegativeOffset = errors.New("negative offset")

// ReadAt implements io.ReaderAt. Reads that stop at the end of the object
// return io.EOF.
func (o *s3Object) ReadAt(p []byte, offset int64) (int, error) {
	if offset < 0 {
		return 0, errNegativeOffset
	}
	if offset >= o.size {
		return 0, io.EOF
	}
	want := p
	if rest := o.size - offset; int64(len(want)) > rest {
		want = want[:rest]
	}
	o.m.Lock()
	defer o.m.Unlock()
	var n int
	for n < len(want) {
		pos := offset + int64(n)
		if pos < o.bufOff || pos >= o.bufOff+int64(len(o.buf)) {
			if err := o.fetch(pos, int64(len(want)-n)); err != nil {
				return n, err
			}
		}
		n += copy(want[n:], o.buf[pos-o.bufOff:])
	}
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// fetch replaces buf with the range starting at pos, at least need bytes
// long unless the object ends first.
func (o *s3Object) fetch(pos, need int64) error {
	length := need
	if length < o.chunk {
		length = o.chunk
	}
	if pos+length > o.size {
		length = o.size - pos
	}
	output, err := o.svc.GetObject(&s3.GetObjectInput{
		Bucket: aws.String(o.bucket),
		Key:    aws.String(o.key),
		Range:  aws.String(fmt.Sprintf("bytes=%d-%d", pos, pos+length-1)),
	})
	if err != nil {
		return errors.Wrapf(err, "get %s at %d", o.key, pos)
	}
	defer output.Body.Close()
	buf := make([]byte, length)
	if _, err := io.ReadFull(output.Body, buf); err != nil {
		// a short body means the object changed size since it was listed
		return errors.Wrapf(err, "get %s at %d", o.key, pos)
	}
	o.buf, o.bufOff = buf, pos
	return nil
}

// Close releases the buffered range.
func (o *s3Object) Close() error {
	o.m.Lock()
	o.buf = nil
	o.m.Unlock()
	return nil
}
