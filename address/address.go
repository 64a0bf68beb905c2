// Package address maps Fedora object identifiers to their location inside a
// Fedora 3 Akubra store.
//
// Akubra shards every object and datastream file into a bucket directory
// named from the MD5 digest of the file's URI. The layout used here is the
// default "##" pattern, i.e. one directory level named by the first two hex
// digits of the digest. The file name inside the bucket is the percent
// encoded URI.
//
// For example, the identifier "demo:123" is stored at
//
//	d2/info%3Afedora%2Fdemo%3A123
//
// Resolving is a pure function. Nothing here touches the disk.
package address

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"net/url"
	"strings"
	"unicode/utf8"
)

const (
	// Scheme is prepended to every identifier before hashing and encoding.
	Scheme = "info:fedora/"

	// pattern is the bucket template. Each '#' is replaced in order by
	// successive hex digits of the digest.
	pattern = "##"
)

// ErrInvalidIdentifier means an identifier could not be resolved since it
// is not valid UTF-8.
var ErrInvalidIdentifier = errors.New("identifier is not valid UTF-8")

// An Address is the location of an object or datastream file relative to
// the root of a store.
type Address struct {
	Bucket string // the hash bucket directory, e.g. "d2"
	Name   string // the encoded file name inside the bucket
}

// String returns the address as a slash separated relative path.
func (a Address) String() string {
	return a.Bucket + "/" + a.Name
}

// Resolve returns the storage address for the given identifier. Identifiers
// may use "+" as an escaped form of "/" (datastream references look like
// "demo:123+MODS+MODS.0"); these are turned back into slashes before
// hashing.
func Resolve(id string) (Address, error) {
	if !utf8.ValidString(id) {
		return Address{}, ErrInvalidIdentifier
	}
	full := Scheme + strings.Replace(id, "+", "/", -1)
	sum := md5.Sum([]byte(full))
	return Address{
		Bucket: fillPattern(pattern, hex.EncodeToString(sum[:])),
		Name:   encode(full),
	}, nil
}

// fillPattern replaces each '#' in p by the next unused character of digest.
func fillPattern(p string, digest string) string {
	result := []byte(p)
	var j int
	for i := range result {
		if j >= len(digest) {
			break
		}
		if result[i] == '#' {
			result[i] = digest[j]
			j++
		}
	}
	return string(result)
}

const upperhex = "0123456789ABCDEF"

// encode percent-encodes every byte of s except the RFC 3986 unreserved
// characters, and then also encodes '_' as "%5F". Neither url.PathEscape nor
// url.QueryEscape produce this exact encoding.
func encode(s string) string {
	var b strings.Builder
	b.Grow(len(s) * 2)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperhex[c>>4])
		b.WriteByte(upperhex[c&15])
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	case c == '-', c == '.', c == '~':
		return true
	}
	return false
}

// Decode reverses the file name part of an address back into an identifier.
// It undoes the percent encoding, strips the scheme, and escapes any "/"
// as "+", so that Resolve(Decode(a.Name)) == a.
func Decode(name string) (string, error) {
	s, err := url.PathUnescape(name)
	if err != nil {
		return "", err
	}
	if !utf8.ValidString(s) {
		return "", ErrInvalidIdentifier
	}
	s = strings.TrimPrefix(s, Scheme)
	return strings.Replace(s, "/", "+", -1), nil
}

// Namespace returns the namespace part of an identifier, that is everything
// before the first colon. It returns "" if there is no colon.
func Namespace(id string) string {
	i := strings.IndexByte(id, ':')
	if i < 0 {
		return ""
	}
	return id[:i]
}
