package mods

import (
	"errors"
	"strings"
	"unicode"

	"github.com/ndlib/fedharvest/xmlnode"
)

const relatorScheme = "relators:"

// ErrBadName means an encoded name does not have three parts.
var ErrBadName = errors.New("malformed name entry")

// NameEntry is a named agent and its role.
type NameEntry struct {
	Relator    string // e.g. "relators:edt"
	EntityType string // "person" or "corporate_body"
	Display    string
}

// EncodeName gives the form stored in field_linked_agent,
// e.g. "relators:edt:person:Jane Doe".
func EncodeName(n NameEntry) string {
	return n.Relator + ":" + n.EntityType + ":" + n.Display
}

// DecodeName reverses EncodeName. The display name may contain colons.
func DecodeName(s string) (NameEntry, error) {
	if !strings.HasPrefix(s, relatorScheme) {
		return NameEntry{}, ErrBadName
	}
	parts := strings.SplitN(s[len(relatorScheme):], ":", 3)
	if len(parts) != 3 {
		return NameEntry{}, ErrBadName
	}
	return NameEntry{
		Relator:    relatorScheme + parts[0],
		EntityType: parts[1],
		Display:    parts[2],
	}, nil
}

// parseName builds the entry for one MODS name element. Problems are
// reported as warnings and the defaults are used.
func (n *Normalizer) parseName(node *xmlnode.Node) (NameEntry, []Warning) {
	var warnings []Warning
	entity, ok := n.vocab.EntityType(node.AttrValue("type"))
	if !ok {
		warnings = append(warnings, Warning{Kind: MalformedName, Element: "name/@type", Value: node.AttrValue("type")})
	}
	display := displayName(node)
	if display == "" {
		warnings = append(warnings, Warning{Kind: MalformedName, Element: "name/namePart"})
	}
	relator, w := n.role(node.Child("role"))
	if w != nil {
		warnings = append(warnings, *w)
	}
	return NameEntry{Relator: relator, EntityType: entity, Display: display}, warnings
}

// displayName combines the name parts: untyped parts with spaces, then
// "Family, Given", then terms of address and dates after commas. A
// displayForm is used if there are no parts.
func displayName(node *xmlnode.Node) string {
	var plain, family, given, extra []string
	for _, part := range node.ChildrenNamed("namePart") {
		text := part.DeepText()
		if text == "" {
			continue
		}
		switch part.AttrValue("type") {
		case "family":
			family = append(family, text)
		case "given":
			given = append(given, text)
		case "termsOfAddress", "date":
			extra = append(extra, text)
		default:
			plain = append(plain, text)
		}
	}
	name := strings.Join(plain, " ")
	if fg := joinNonEmpty(", ", strings.Join(family, " "), strings.Join(given, " ")); fg != "" {
		name = joinNonEmpty(" ", name, fg)
	}
	if name == "" {
		name = node.Child("displayForm").DeepText()
	}
	if name == "" {
		return ""
	}
	return joinNonEmpty(", ", append([]string{name}, extra...)...)
}

// role resolves the relator code of a name. A text term is preferred over a
// code term. Unknown terms give the default code and a warning.
func (n *Normalizer) role(node *xmlnode.Node) (string, *Warning) {
	if node == nil {
		code, _ := n.vocab.Relator("")
		return code, nil
	}
	var text, code string
	for _, term := range node.ChildrenNamed("roleTerm") {
		v := term.DeepText()
		if term.AttrValue("type") == "code" {
			if code == "" {
				code = v
			}
		} else if text == "" {
			text = v
		}
	}
	if text == "" && code != "" {
		if c := relatorScheme + strings.ToLower(code); n.relatorCodes[c] {
			return c, nil
		}
		def, _ := n.vocab.Relator("")
		return def, &Warning{Kind: MalformedName, Element: "name/role/roleTerm", Value: code}
	}
	label := capitalize(text)
	rel, ok := n.vocab.Relator(label)
	if !ok {
		return rel, &Warning{Kind: MalformedName, Element: "name/role/roleTerm", Value: text}
	}
	return rel, nil
}

// capitalize upper cases the first letter and lower cases the rest.
func capitalize(s string) string {
	r := []rune(strings.ToLower(s))
	if len(r) > 0 {
		r[0] = unicode.ToUpper(r[0])
	}
	return string(r)
}

func joinNonEmpty(sep string, parts ...string) string {
	var keep []string
	for _, p := range parts {
		if p != "" {
			keep = append(keep, p)
		}
	}
	return strings.Join(keep, sep)
}
