// Package xmlnode reads an XML document into a small element tree. The
// metadata records handled here (MODS, RELS-EXT, DC) are walked by local
// element name, in document order, which is awkward with struct based
// unmarshaling.
package xmlnode

import (
	"bytes"
	"encoding/xml"
	"io"
	"strings"
)

// A Node is one XML element.
type Node struct {
	Name     xml.Name
	Attr     []xml.Attr
	Children []*Node
	Parent   *Node

	// Text is the character data directly inside this element, not
	// counting the text of any children.
	Text string

	head string // direct text before the first child
	tail string // text following this element inside its parent
}

// Parse reads the first element of r, along with everything it contains.
// Namespace prefixes which are never declared are tolerated; their prefix is
// kept in Name.Space.
func Parse(r io.Reader) (*Node, error) {
	dec := xml.NewDecoder(r)
	dec.Strict = true
	var root, current *Node
	var text []*bytes.Buffer
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			n := &Node{Name: t.Name, Attr: t.Copy().Attr, Parent: current}
			if current != nil {
				current.Children = append(current.Children, n)
			} else if root == nil {
				root = n
			}
			current = n
			text = append(text, new(bytes.Buffer))
		case xml.EndElement:
			if current == nil {
				continue
			}
			current.Text = text[len(text)-1].String()
			text = text[:len(text)-1]
			current = current.Parent
			if current == nil {
				// finished the document element
				return root, nil
			}
		case xml.CharData:
			if current == nil {
				continue
			}
			text[len(text)-1].Write(t)
			if k := len(current.Children); k > 0 {
				current.Children[k-1].tail += string(t)
			} else {
				current.head += string(t)
			}
		}
	}
	if root == nil {
		return nil, io.ErrUnexpectedEOF
	}
	return root, nil
}

// ParseBytes is a convenience wrapper around Parse.
func ParseBytes(data []byte) (*Node, error) {
	return Parse(bytes.NewReader(data))
}

// Local returns the local part of the element name.
func (n *Node) Local() string {
	return n.Name.Local
}

// AttrValue returns the value of the attribute with the given local name,
// ignoring its namespace. It returns "" if there is no such attribute.
func (n *Node) AttrValue(local string) string {
	v, _ := n.LookupAttr(local)
	return v
}

// LookupAttr is like AttrValue but also reports whether the attribute was
// present.
func (n *Node) LookupAttr(local string) (string, bool) {
	for _, a := range n.Attr {
		if a.Name.Local == local {
			return a.Value, true
		}
	}
	return "", false
}

// Child returns the first child element with the given local name, or nil.
func (n *Node) Child(local string) *Node {
	for _, c := range n.Children {
		if c.Name.Local == local {
			return c
		}
	}
	return nil
}

// ChildrenNamed returns every child element with the given local name.
func (n *Node) ChildrenNamed(local string) []*Node {
	var result []*Node
	for _, c := range n.Children {
		if c.Name.Local == local {
			result = append(result, c)
		}
	}
	return result
}

// Find follows a path of local names from n, taking the first match at each
// step. It returns nil if any step is missing.
func (n *Node) Find(path ...string) *Node {
	for _, p := range path {
		if n == nil {
			return nil
		}
		n = n.Child(p)
	}
	return n
}

// Walk calls fn for n and then every descendant, in document order.
func (n *Node) Walk(fn func(*Node)) {
	fn(n)
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// TrimmedText returns the direct text of n with whitespace collapsed.
func (n *Node) TrimmedText() string {
	if n == nil {
		return ""
	}
	return Collapse(n.Text)
}

// DeepText returns the text of n and all its descendants, in document order,
// with whitespace collapsed.
func (n *Node) DeepText() string {
	if n == nil {
		return ""
	}
	var parts []string
	n.deepText(&parts)
	return strings.Join(parts, " ")
}

func (n *Node) deepText(parts *[]string) {
	if s := Collapse(n.head); s != "" {
		*parts = append(*parts, s)
	}
	for _, c := range n.Children {
		c.deepText(parts)
		if s := Collapse(c.tail); s != "" {
			*parts = append(*parts, s)
		}
	}
}

// Collapse removes leading and trailing whitespace and replaces every
// internal run of whitespace, including newlines, by a single space.
func Collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
