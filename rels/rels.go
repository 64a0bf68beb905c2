// Package rels reads the RELS-EXT relationship graph of an object.
//
// Every leaf element of the RDF document is a relationship. The predicate is
// the element's local name and the value is the element text or its
// rdf:resource attribute, with the "info:fedora/" prefix removed. A
// predicate may repeat; its values are kept in the order they appear.
package rels

import (
	"strings"

	"github.com/ndlib/fedharvest/foxml"
	"github.com/ndlib/fedharvest/record"
	"github.com/ndlib/fedharvest/vocabulary"
	"github.com/ndlib/fedharvest/xmlnode"
)

// DatastreamID is the datastream holding the relationship graph.
const DatastreamID = "RELS-EXT"

const fedoraPrefix = "info:fedora/"

// Relation is one predicate and value.
type Relation struct {
	Predicate string
	Value     string
}

// Relations is the ordered list of relationships of one object.
type Relations struct {
	list []Relation
}

// Extract reads the inline RELS-EXT datastream of obj. It returns
// foxml.ErrNoDatastream if the object has none.
func Extract(obj *foxml.Object) (*Relations, error) {
	data, err := obj.InlineXML(DatastreamID)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse reads a RELS-EXT document.
func Parse(data []byte) (*Relations, error) {
	root, err := xmlnode.ParseBytes(data)
	if err != nil {
		return nil, err
	}
	r := &Relations{}
	root.Walk(func(n *xmlnode.Node) {
		if n == root || len(n.Children) > 0 {
			return
		}
		pred := n.Local()
		if text := clean(n.Text); text != "" {
			r.list = append(r.list, Relation{Predicate: pred, Value: text})
		}
		if res := resource(n); res != "" {
			r.list = append(r.list, Relation{Predicate: pred, Value: clean(res)})
		}
	})
	return r, nil
}

// resource returns the rdf:resource attribute of n.
func resource(n *xmlnode.Node) string {
	for _, a := range n.Attr {
		if a.Name.Local == "resource" {
			return a.Value
		}
	}
	return ""
}

func clean(s string) string {
	return xmlnode.Collapse(strings.ReplaceAll(s, fedoraPrefix, ""))
}

// List returns every relation in document order.
func (r *Relations) List() []Relation {
	return append([]Relation(nil), r.list...)
}

// Values returns the values of a predicate in document order.
func (r *Relations) Values(predicate string) []string {
	var result []string
	for _, rel := range r.list {
		if rel.Predicate == predicate {
			result = append(result, rel.Value)
		}
	}
	return result
}

// Get returns the values of a predicate combined with record.Join, or "".
func (r *Relations) Get(predicate string) string {
	return record.Join(r.Values(predicate))
}

// Predicates returns each distinct predicate in order of first appearance.
func (r *Relations) Predicates() []string {
	var result []string
	seen := make(map[string]bool)
	for _, rel := range r.list {
		if !seen[rel.Predicate] {
			seen[rel.Predicate] = true
			result = append(result, rel.Predicate)
		}
	}
	return result
}

// Project maps the relations through the vocabulary's predicate table.
// Predicates without a column are left out. Several predicates may share a
// column, in which case their values are kept in document order.
func (r *Relations) Project(v *vocabulary.Vocabulary) *record.Record {
	result := record.New()
	for _, rel := range r.list {
		if col, ok := v.Predicate(rel.Predicate); ok {
			result.Add(col, rel.Value)
		}
	}
	return result
}
