// Package mods flattens a MODS bibliographic record into a record.Record
// keyed by the destination vocabulary.
//
// Only the top level elements named in the vocabulary's harvest list are
// read; any other top level element is reported with an Ignored warning.
// Elements with a field mapping are copied as text. The structured elements
// have their own rules:
//
//	originInfo           each child goes through the field mapping; later values replace earlier ones
//	subject              topic to field_subject; geographic or hierarchicalGeographic to field_geographic_subject
//	relatedItem          the title of each item, empty titles included, to field_related_item
//	titleInfo            first title is the title, first subTitle is field_subtitle, type="alternative" adds field_alternative_title
//	physicalDescription  form to field_physical_description and extent to field_extent, last one wins
//	location             physicalLocation to field_location
//	name                 an encoded NameEntry to field_linked_agent
//
// Values stored under date keys are then rewritten by FixDate.
package mods

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ndlib/fedharvest/record"
	"github.com/ndlib/fedharvest/vocabulary"
	"github.com/ndlib/fedharvest/xmlnode"
)

// Destination keys filled by the structured rules.
const (
	FieldTitle               = "title"
	FieldSubtitle            = "field_subtitle"
	FieldAlternativeTitle    = "field_alternative_title"
	FieldSubject             = "field_subject"
	FieldGeographicSubject   = "field_geographic_subject"
	FieldRelatedItem         = "field_related_item"
	FieldPhysicalDescription = "field_physical_description"
	FieldExtent              = "field_extent"
	FieldLocation            = "field_location"
	FieldLinkedAgent         = "field_linked_agent"
	FieldPID                 = "field_pid"
)

// ErrNotMODS means the document root is not a mods element.
var ErrNotMODS = errors.New("document is not a MODS record")

// Kind classifies a Warning.
type Kind int

const (
	// Ignored is a top level element that is not harvested.
	Ignored Kind = iota
	// Unmapped is a child of a harvested element with no destination.
	Unmapped
	// NonConformantDate is a date FixDate could not rewrite.
	NonConformantDate
	// MalformedName is a name with a missing part or an unknown role or type.
	MalformedName
)

var kindNames = []string{"ignored", "unmapped", "date", "name"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Warning is a problem found while normalizing. It never stops
// normalization.
type Warning struct {
	Kind    Kind
	Element string // element path or destination key
	Value   string
}

func (w Warning) String() string {
	if w.Value == "" {
		return w.Kind.String() + " " + w.Element
	}
	return fmt.Sprintf("%s %s %q", w.Kind, w.Element, w.Value)
}

// Normalizer turns MODS documents into records. It has no mutable state and
// may be used from several goroutines.
type Normalizer struct {
	vocab        *vocabulary.Vocabulary
	relatorCodes map[string]bool
}

// New returns a Normalizer using the vocabulary v.
func New(v *vocabulary.Vocabulary) *Normalizer {
	codes := make(map[string]bool)
	for _, c := range v.Relators {
		codes[c] = true
	}
	codes[v.DefaultRelator] = true
	return &Normalizer{vocab: v, relatorCodes: codes}
}

// state for one call of Normalize
type run struct {
	*Normalizer
	rec      *record.Record
	warnings []Warning
}

// Normalize flattens one MODS document. An error is returned only if the
// document cannot be parsed or is not MODS. The same input always gives the
// same record and warnings.
func (n *Normalizer) Normalize(data []byte) (*record.Record, []Warning, error) {
	root, err := xmlnode.ParseBytes(data)
	if err != nil {
		return nil, nil, err
	}
	if root.Local() == "modsCollection" {
		root = root.Child("mods")
	}
	if root == nil || root.Local() != "mods" {
		return nil, nil, ErrNotMODS
	}
	r := &run{Normalizer: n, rec: record.New()}
	r.ignored(root)
	r.scalars(root)
	for _, c := range root.ChildrenNamed("originInfo") {
		r.originInfo(c)
	}
	for _, c := range root.ChildrenNamed("subject") {
		r.subject(c)
	}
	r.relatedItems(root.ChildrenNamed("relatedItem"))
	for _, c := range root.ChildrenNamed("titleInfo") {
		r.titleInfo(c)
	}
	for _, c := range root.ChildrenNamed("physicalDescription") {
		r.physicalDescription(c)
	}
	for _, c := range root.ChildrenNamed("location") {
		r.location(c)
	}
	for _, c := range root.ChildrenNamed("name") {
		r.name(c)
	}
	r.fixDates()
	return r.rec, r.warnings, nil
}

func (r *run) warn(k Kind, element, value string) {
	r.warnings = append(r.warnings, Warning{Kind: k, Element: element, Value: value})
}

// add appends a non-empty value. Keys outside the vocabulary are reported
// and dropped.
func (r *run) add(key, value string) {
	if value == "" {
		return
	}
	if !r.vocab.IsDestination(key) {
		r.warn(Unmapped, key, value)
		return
	}
	r.rec.Add(key, value)
}

// set replaces the values under key with a non-empty value.
func (r *run) set(key, value string) {
	if value == "" {
		return
	}
	if !r.vocab.IsDestination(key) {
		r.warn(Unmapped, key, value)
		return
	}
	r.rec.Set(key, value)
}

func (r *run) ignored(root *xmlnode.Node) {
	seen := make(map[string]bool)
	for _, c := range root.Children {
		name := c.Local()
		if r.vocab.Harvested(name) || seen[name] {
			continue
		}
		seen[name] = true
		r.warn(Ignored, name, "")
	}
}

func (r *run) scalars(root *xmlnode.Node) {
	for _, c := range root.Children {
		name := c.Local()
		if !r.vocab.Harvested(name) {
			continue
		}
		key, ok := r.vocab.Field(name)
		if !ok {
			continue
		}
		r.add(key, c.DeepText())
	}
}

func (r *run) originInfo(node *xmlnode.Node) {
	for _, c := range node.Children {
		key, ok := r.vocab.Field(c.Local())
		if !ok {
			r.warn(Unmapped, "originInfo/"+c.Local(), c.DeepText())
			continue
		}
		r.set(key, c.DeepText())
	}
}

func (r *run) subject(node *xmlnode.Node) {
	var geographic string
	for _, c := range node.Children {
		switch c.Local() {
		case "topic":
			r.add(FieldSubject, c.DeepText())
		case "geographic":
			geographic = c.DeepText()
		case "hierarchicalGeographic":
			var parts []string
			for _, p := range c.Children {
				if t := p.DeepText(); t != "" {
					parts = append(parts, t)
				}
			}
			geographic = strings.Join(parts, ",")
		default:
			r.warn(Unmapped, "subject/"+c.Local(), c.DeepText())
		}
	}
	r.add(FieldGeographicSubject, geographic)
}

func (r *run) relatedItems(items []*xmlnode.Node) {
	if len(items) == 0 {
		return
	}
	titles := make([]string, len(items))
	for i, item := range items {
		titles[i] = item.Find("titleInfo", "title").DeepText()
	}
	if !r.vocab.IsDestination(FieldRelatedItem) {
		r.warn(Unmapped, FieldRelatedItem, record.Join(titles))
		return
	}
	r.rec.Set(FieldRelatedItem, titles...)
}

func (r *run) titleInfo(node *xmlnode.Node) {
	title := node.Child("title").DeepText()
	if !r.rec.Has(FieldTitle) {
		r.set(FieldTitle, title)
	}
	if !r.rec.Has(FieldSubtitle) {
		r.set(FieldSubtitle, node.Child("subTitle").DeepText())
	}
	if node.AttrValue("type") == "alternative" {
		r.add(FieldAlternativeTitle, title)
	}
}

func (r *run) physicalDescription(node *xmlnode.Node) {
	for _, c := range node.Children {
		switch c.Local() {
		case "form":
			r.set(FieldPhysicalDescription, c.DeepText())
		case "extent":
			r.set(FieldExtent, c.DeepText())
		default:
			r.warn(Unmapped, "physicalDescription/"+c.Local(), c.DeepText())
		}
	}
}

func (r *run) location(node *xmlnode.Node) {
	for _, c := range node.Children {
		if c.Local() == "physicalLocation" {
			r.add(FieldLocation, c.DeepText())
			continue
		}
		r.warn(Unmapped, "location/"+c.Local(), c.DeepText())
	}
}

func (r *run) name(node *xmlnode.Node) {
	entry, warnings := r.parseName(node)
	r.warnings = append(r.warnings, warnings...)
	r.add(FieldLinkedAgent, EncodeName(entry))
}

func (r *run) fixDates() {
	for _, key := range r.rec.Keys() {
		if !r.vocab.IsDate(key) {
			continue
		}
		values := r.rec.Values(key)
		fixed := make([]string, len(values))
		for i, v := range values {
			var ok bool
			fixed[i], ok = FixDate(v)
			if !ok {
				r.warn(NonConformantDate, key, v)
			}
		}
		r.rec.Set(key, fixed...)
	}
}
