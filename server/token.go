package server

import (
	"bufio"
	"io"
	"os"
	"strings"
)

// A TokenDecoder validates and decodes user tokens passed to the status server. If
// the given token is not valid, for whatever reason, the user "" with a role of
// RoleUnknown is returned. An error is returned only if there is some kind of error doing
// the lookup and the ultimate status of the token is unknown.
type TokenDecoder interface {
	TokenDecode(token string) (user string, role Role, err error)
}

type Role int

// RoleRead may see records and reports. RoleAdmin may also see the
// process variables.
const (
	RoleUnknown Role = iota
	RoleRead
	RoleAdmin
)

func atoRole(s string) Role {
	switch strings.ToLower(s) {
	case "read":
		return RoleRead
	case "admin":
		return RoleAdmin
	default:
		return RoleUnknown
	}
}

// NewNobodyDecoder creates a TokenDecoder that for every possible token
// returns a user named "nobody" with the Admin role.
func NewNobodyDecoder() TokenDecoder {
	return new(nobodyDecoder)
}

type nobodyDecoder struct{}

func (nobodyDecoder) TokenDecode(token string) (user string, role Role, err error) {
	return "nobody", RoleAdmin, nil
}

// NewListDecoder returns a TokenDecoder for the users listed in r, one per
// line:
//
//	<user name>  <role>  <token>
//
// Fields are separated by whitespace, so neither names nor tokens may
// contain spaces. The role is "Read" or "Admin", in any case. Blank lines,
// lines starting with '#', and lines without exactly three fields are
// skipped. A token listed twice keeps its last entry.
func NewListDecoder(r io.Reader) (TokenDecoder, error) {
	users := make(listDecoder)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		pieces := strings.Fields(scanner.Text())
		if len(pieces) != 3 || strings.HasPrefix(pieces[0], "#") {
			continue
		}
		users[pieces[2]] = userEntry{
			user: pieces[0],
			role: atoRole(pieces[1]),
		}
	}
	return users, scanner.Err()
}

// NewListDecoderFile reads the users for a ListDecoder from the named file.
func NewListDecoderFile(fname string) (TokenDecoder, error) {
	f, err := os.Open(fname)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return NewListDecoder(f)
}

// NewListDecoderString passes data to NewListDecoder.
func NewListDecoderString(data string) (TokenDecoder, error) {
	return NewListDecoder(strings.NewReader(data))
}

type userEntry struct {
	user string
	role Role
}

// listDecoder maps tokens to users.
type listDecoder map[string]userEntry

func (ld listDecoder) TokenDecode(token string) (string, Role, error) {
	if u, ok := ld[token]; ok && token != "" {
		return u.user, u.role, nil
	}
	return "", RoleUnknown, nil
}
