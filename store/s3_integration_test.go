//go:build s3
// +build s3

package store

// tests the S3 store with an external service. Can use amazon s3, or can run
// a local service with the same API (e.g. Minio) holding a copy of a Fedora
// data directory.
//
// To run from the command line
//
//    env "AWS_ACCESS_KEY_ID=XXXXX" "AWS_SECRET_ACCESS_KEY=YYYY" go test -tags=s3 -run S3

import (
	"io/ioutil"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
)

func getSession(t *testing.T) *session.Session {
	s3Config := &aws.Config{
		Endpoint:         aws.String("http://localhost:9000"),
		Region:           aws.String("us-east-1"),
		DisableSSL:       aws.Bool(true),
		S3ForcePathStyle: aws.Bool(true),
	}
	sess, err := session.NewSession(s3Config)
	if err != nil {
		t.Fatal(err)
	}
	return sess
}

func TestS3Open(t *testing.T) {
	s := NewS3("fedora", "objectStore/", getSession(t))
	keys, err := s.ListPrefix("")
	t.Log(err)
	t.Log(len(keys))
	if len(keys) == 0 {
		return
	}
	r, size, err := s.Open(keys[0])
	if err != nil {
		t.Fatal(err)
	}
	data, err := ioutil.ReadAll(NewReader(r))
	r.Close()
	if err != nil {
		t.Fatal(err)
	}
	if int64(len(data)) != size {
		t.Errorf("Received %d bytes, expected %d", len(data), size)
	}
}

func TestS3Missing(t *testing.T) {
	s := NewS3("fedora", "objectStore/", getSession(t))
	_, _, err := s.Open("zz/no-such-key")
	if err != ErrNotExist {
		t.Errorf("Received %v, expected %v", err, ErrNotExist)
	}
	// the second time comes from the size cache
	_, _, err = s.Open("zz/no-such-key")
	if err != ErrNotExist {
		t.Errorf("Received %v, expected %v", err, ErrNotExist)
	}
}
