// Package dc builds the simple Dublin Core view of an object.
//
// The view is an ordered list of (element, value) pairs. It comes from the
// object's DC datastream when there is one, and otherwise from its MODS
// record through a fixed crosswalk. Marshal writes the pairs in the
// dublin_core/dcvalue format used by DSpace imports.
package dc

import (
	"encoding/xml"
	"strings"

	"github.com/ndlib/fedharvest/foxml"
	"github.com/ndlib/fedharvest/xmlnode"
)

// DatastreamID is the datastream holding embedded Dublin Core.
const DatastreamID = "DC"

// Pair is one Dublin Core value and the local name of its element.
type Pair struct {
	Label string
	Value string
}

// A Fetcher returns the contents of a datastream file given its content
// location reference.
type Fetcher func(ref string) ([]byte, error)

// FromDC collects every element of an oai_dc document that has text, in
// document order. Repeated elements give repeated pairs.
func FromDC(data []byte) ([]Pair, error) {
	root, err := xmlnode.ParseBytes(data)
	if err != nil {
		return nil, err
	}
	var result []Pair
	root.Walk(func(n *xmlnode.Node) {
		if text := n.TrimmedText(); text != "" {
			result = append(result, Pair{Label: n.Local(), Value: text})
		}
	})
	return result, nil
}

// Project returns the Dublin Core view of obj. Embedded DC is used if
// present. Otherwise the MODS record is converted, reading it with fetch if
// it is not inline. It returns foxml.ErrNoDatastream if the object has
// neither.
func Project(obj *foxml.Object, fetch Fetcher) ([]Pair, error) {
	if data, err := obj.InlineXML(DatastreamID); err == nil {
		return FromDC(data)
	}
	src, err := obj.Bibliographic()
	if err != nil {
		return nil, err
	}
	data := src.Inline
	if data == nil {
		data, err = fetch(src.Ref)
		if err != nil {
			return nil, err
		}
	}
	return FromMODS(data)
}

// placeholder stands in for an escaped comma while a value is serialized.
const placeholder = "\uE000"

type dublinCore struct {
	XMLName xml.Name  `xml:"dublin_core"`
	Values  []dcValue `xml:"dcvalue"`
}

type dcValue struct {
	Element   string `xml:"element,attr"`
	Qualifier string `xml:"qualifier,attr"`
	Value     string `xml:",chardata"`
}

// Marshal writes pairs as a dublin_core document. Values are grouped by
// label, with labels in order of first appearance. An escaped comma ("\,")
// in a value is written as a plain comma.
func Marshal(pairs []Pair) ([]byte, error) {
	var (
		order  []string
		groups = make(map[string][]string)
	)
	for _, p := range pairs {
		if _, ok := groups[p.Label]; !ok {
			order = append(order, p.Label)
		}
		groups[p.Label] = append(groups[p.Label], strings.ReplaceAll(p.Value, `\,`, placeholder))
	}
	doc := dublinCore{}
	for _, label := range order {
		for _, v := range groups[label] {
			doc.Values = append(doc.Values, dcValue{Element: label, Qualifier: "none", Value: v})
		}
	}
	out, err := xml.MarshalIndent(doc, "", "\t")
	if err != nil {
		return nil, err
	}
	return []byte(strings.ReplaceAll(string(out), placeholder, ",")), nil
}
