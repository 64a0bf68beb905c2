package dc

import (
	"strings"

	"github.com/ndlib/fedharvest/xmlnode"
)

// A rule copies the text found at a path below a top level MODS element to
// a Dublin Core element.
type rule struct {
	path  []string // local names, starting with the top level element
	label string
	when  func(*xmlnode.Node) bool   // nil accepts every node
	value func(*xmlnode.Node) string // nil uses the deep text
}

// modsToDC is applied to each top level element in document order. Within
// one element the rules apply in table order.
var modsToDC = []rule{
	{path: []string{"titleInfo"}, label: "title", value: titleText},
	{path: []string{"name"}, label: "creator", when: isCreator, value: nameText},
	{path: []string{"name"}, label: "contributor", when: not(isCreator), value: nameText},
	{path: []string{"classification"}, label: "subject"},
	{path: []string{"subject", "topic"}, label: "subject"},
	{path: []string{"subject", "name"}, label: "subject", value: nameText},
	{path: []string{"subject", "occupation"}, label: "subject"},
	{path: []string{"subject", "geographic"}, label: "coverage"},
	{path: []string{"subject", "temporal"}, label: "coverage"},
	{path: []string{"subject", "hierarchicalGeographic"}, label: "coverage", value: hierarchyText},
	{path: []string{"abstract"}, label: "description"},
	{path: []string{"tableOfContents"}, label: "description"},
	{path: []string{"note"}, label: "description"},
	{path: []string{"originInfo", "dateIssued"}, label: "date"},
	{path: []string{"originInfo", "dateCreated"}, label: "date"},
	{path: []string{"originInfo", "dateCaptured"}, label: "date"},
	{path: []string{"originInfo", "dateOther"}, label: "date"},
	{path: []string{"originInfo", "copyrightDate"}, label: "date"},
	{path: []string{"originInfo", "publisher"}, label: "publisher"},
	{path: []string{"genre"}, label: "type"},
	{path: []string{"typeOfResource"}, label: "type"},
	{path: []string{"physicalDescription", "form"}, label: "format"},
	{path: []string{"physicalDescription", "extent"}, label: "format"},
	{path: []string{"physicalDescription", "internetMediaType"}, label: "format"},
	{path: []string{"identifier"}, label: "identifier"},
	{path: []string{"location", "url"}, label: "identifier"},
	{path: []string{"language", "languageTerm"}, label: "language", when: isTextTerm},
	{path: []string{"relatedItem", "titleInfo"}, label: "relation", value: titleText},
	{path: []string{"accessCondition"}, label: "rights"},
}

// FromMODS converts a MODS document to Dublin Core pairs.
func FromMODS(data []byte) ([]Pair, error) {
	root, err := xmlnode.ParseBytes(data)
	if err != nil {
		return nil, err
	}
	if root.Local() == "modsCollection" {
		if m := root.Child("mods"); m != nil {
			root = m
		}
	}
	var result []Pair
	for _, top := range root.Children {
		for _, r := range modsToDC {
			if r.path[0] != top.Local() {
				continue
			}
			for _, n := range descend(top, r.path[1:]) {
				if r.when != nil && !r.when(n) {
					continue
				}
				var v string
				if r.value != nil {
					v = r.value(n)
				} else {
					v = n.DeepText()
				}
				if v != "" {
					result = append(result, Pair{Label: r.label, Value: v})
				}
			}
		}
	}
	return result, nil
}

// descend returns every node reached from n by following path, in document
// order.
func descend(n *xmlnode.Node, path []string) []*xmlnode.Node {
	if len(path) == 0 {
		return []*xmlnode.Node{n}
	}
	var result []*xmlnode.Node
	for _, c := range n.ChildrenNamed(path[0]) {
		result = append(result, descend(c, path[1:])...)
	}
	return result
}

// titleText gives "nonSort title: subTitle. partNumber, partName".
func titleText(n *xmlnode.Node) string {
	s := strings.TrimSpace(n.Child("nonSort").DeepText() + " " + n.Child("title").DeepText())
	if sub := n.Child("subTitle").DeepText(); sub != "" {
		s += ": " + sub
	}
	part := joinNonEmpty(", ", n.Child("partNumber").DeepText(), n.Child("partName").DeepText())
	if part != "" {
		s += ". " + part
	}
	return s
}

func nameText(n *xmlnode.Node) string {
	var parts []string
	for _, p := range n.ChildrenNamed("namePart") {
		parts = append(parts, p.DeepText())
	}
	s := joinNonEmpty(", ", parts...)
	if s == "" {
		s = n.Child("displayForm").DeepText()
	}
	return s
}

func hierarchyText(n *xmlnode.Node) string {
	var parts []string
	for _, c := range n.Children {
		parts = append(parts, c.DeepText())
	}
	return joinNonEmpty("--", parts...)
}

// isCreator reports whether a name has the creator or author role.
func isCreator(n *xmlnode.Node) bool {
	for _, role := range n.ChildrenNamed("role") {
		for _, term := range role.ChildrenNamed("roleTerm") {
			switch strings.ToLower(term.DeepText()) {
			case "creator", "cre", "author", "aut":
				return true
			}
		}
	}
	return false
}

func isTextTerm(n *xmlnode.Node) bool {
	return n.AttrValue("type") != "code"
}

func not(f func(*xmlnode.Node) bool) func(*xmlnode.Node) bool {
	return func(n *xmlnode.Node) bool { return !f(n) }
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
