package util

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"hash"
	"io"
	"strings"
)

// ErrUnknownDigest means the digest algorithm is not supported.
var ErrUnknownDigest = errors.New("unknown digest algorithm")

// digests maps Fedora's digest type names to hash constructors.
var digests = map[string]func() hash.Hash{
	"MD5":     md5.New,
	"SHA-1":   sha1.New,
	"SHA-256": sha256.New,
	"SHA-384": sha512.New384,
	"SHA-512": sha512.New,
}

// VerifyStreamHash checksums the given io.Reader with the named algorithm
// and compares the result with the hex encoded goal. The comparison ignores
// case. The reader is not closed when finished.
func VerifyStreamHash(r io.Reader, algorithm string, goal string) (bool, error) {
	hw, err := NewHashWriter(algorithm)
	if err != nil {
		return false, err
	}
	if _, err := io.Copy(hw, r); err != nil {
		return false, err
	}
	return hw.Check(goal), nil
}

// A HashWriter computes a checksum of the bytes written to it.
type HashWriter struct {
	hash.Hash
}

// NewHashWriter returns a HashWriter for the named algorithm, which is one
// of MD5, SHA-1, SHA-256, SHA-384, or SHA-512.
func NewHashWriter(algorithm string) (*HashWriter, error) {
	f, ok := digests[strings.ToUpper(algorithm)]
	if !ok {
		return nil, ErrUnknownDigest
	}
	return &HashWriter{Hash: f()}, nil
}

// Hex returns the hex encoded checksum of everything written so far.
func (hw *HashWriter) Hex() string {
	return hex.EncodeToString(hw.Sum(nil))
}

// Check compares the checksum with the hex encoded goal.
func (hw *HashWriter) Check(goal string) bool {
	return strings.EqualFold(hw.Hex(), goal)
}
