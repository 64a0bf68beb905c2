package server

import (
	"strings"
	"testing"
)

func TestAtoRole(t *testing.T) {
	var table = []struct {
		input  string
		output Role
	}{
		{"read", RoleRead},
		{"Read", RoleRead},
		{"admin", RoleAdmin},
		{"ADMIN", RoleAdmin},
		{"write", RoleUnknown},
		{"other", RoleUnknown},
	}

	for _, row := range table {
		result := atoRole(row.input)
		if result != row.output {
			t.Errorf("For %v received %v, expected %v", row.input, result, row.output)
		}
	}
}

const tokenList = `
# user role token
alice	read	abc123
bob admin xyz789
broken line
carol read
`

func TestListDecoder(t *testing.T) {
	d, err := NewListDecoder(strings.NewReader(tokenList))
	if err != nil {
		t.Fatal(err)
	}
	var table = []struct {
		token string
		user  string
		role  Role
	}{
		{"abc123", "alice", RoleRead},
		{"xyz789", "bob", RoleAdmin},
		{"token", "", RoleUnknown},
		{"", "", RoleUnknown},
	}
	for _, row := range table {
		user, role, err := d.TokenDecode(row.token)
		if err != nil {
			t.Errorf("%s: %s", row.token, err)
		}
		if user != row.user || role != row.role {
			t.Errorf("For %s received (%v, %v), expected (%v, %v)", row.token, user, role, row.user, row.role)
		}
	}
}
