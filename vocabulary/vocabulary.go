// Package vocabulary holds the closed set of destination field keys and the
// lookup tables used to fill them: source element to field, relator role to
// code, name type to entity type, and RELS-EXT predicate to column.
//
// The default vocabulary is embedded in the binary and is parsed and checked
// once, the first time Load is called.
package vocabulary

import (
	_ "embed"
	"fmt"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed vocabulary.yaml
var embedded []byte

// Structured lists the source elements that have their own flattening rules
// instead of a one to one field mapping.
var Structured = []string{
	"subject",
	"titleInfo",
	"originInfo",
	"physicalDescription",
	"name",
	"relatedItem",
	"location",
}

// Vocabulary is a parsed and validated vocabulary document. It is not
// modified after Parse returns and may be shared between goroutines.
type Vocabulary struct {
	Version           int               `yaml:"version"`
	Fields            map[string]string `yaml:"fields"`
	StructuredNames   []string          `yaml:"structured"`
	Harvest           []string          `yaml:"harvest"`
	Destinations      []string          `yaml:"destinations"`
	Dates             []string          `yaml:"dates"`
	EntityTypes       map[string]string `yaml:"entity_types"`
	DefaultEntityType string            `yaml:"default_entity_type"`
	Predicates        map[string]string `yaml:"predicates"`
	Containers        []string          `yaml:"containers"`
	DefaultRelator    string            `yaml:"default_relator"`
	Relators          map[string]string `yaml:"relators"`

	harvest      map[string]bool
	structured   map[string]bool
	destinations map[string]bool
	dates        map[string]bool
	containers   map[string]bool
}

// Error describes an inconsistency inside a vocabulary document. It is a
// configuration problem and should stop the program.
type Error struct {
	Key     string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("vocabulary: %s: %s", e.Key, e.Message)
}

var (
	loadOnce sync.Once
	loaded   *Vocabulary
	loadErr  error
)

// Load returns the embedded vocabulary.
func Load() (*Vocabulary, error) {
	loadOnce.Do(func() {
		loaded, loadErr = Parse(embedded)
	})
	return loaded, loadErr
}

// Parse decodes and validates a vocabulary document.
func Parse(data []byte) (*Vocabulary, error) {
	v := new(Vocabulary)
	if err := yaml.Unmarshal(data, v); err != nil {
		return nil, &Error{Key: "document", Message: err.Error()}
	}
	if err := v.Validate(); err != nil {
		return nil, err
	}
	return v, nil
}

// Validate checks that the tables agree with each other and builds the
// lookup sets. Every harvested element must either be structured or have a
// field mapping, and every key a table produces must be a destination.
func (v *Vocabulary) Validate() error {
	v.destinations = toSet(v.Destinations)
	v.harvest = toSet(v.Harvest)
	v.dates = toSet(v.Dates)
	v.containers = toSet(v.Containers)
	v.structured = make(map[string]bool)
	known := toSet(Structured)
	for _, s := range v.StructuredNames {
		if !known[s] {
			return &Error{Key: s, Message: "no flattening rule for structured element"}
		}
		v.structured[s] = true
	}
	if len(v.Harvest) == 0 {
		return &Error{Key: "harvest", Message: "empty"}
	}
	for _, h := range v.Harvest {
		if v.structured[h] {
			continue
		}
		if _, ok := v.Fields[h]; !ok {
			return &Error{Key: h, Message: "harvested but has no destination field"}
		}
	}
	for _, src := range sortedKeys(v.Fields) {
		if !v.destinations[v.Fields[src]] {
			return &Error{Key: src, Message: "maps to unknown destination " + v.Fields[src]}
		}
	}
	for _, d := range v.Dates {
		if !v.destinations[d] {
			return &Error{Key: d, Message: "date key is not a destination"}
		}
	}
	if v.DefaultRelator == "" {
		return &Error{Key: "default_relator", Message: "empty"}
	}
	if v.DefaultEntityType == "" {
		return &Error{Key: "default_entity_type", Message: "empty"}
	}
	for _, p := range sortedKeys(v.Predicates) {
		if v.Predicates[p] == "" {
			return &Error{Key: p, Message: "predicate has no column"}
		}
	}
	return nil
}

// Harvested reports whether the top level element is processed.
func (v *Vocabulary) Harvested(element string) bool { return v.harvest[element] }

// Field returns the destination key for a source element.
func (v *Vocabulary) Field(element string) (string, bool) {
	f, ok := v.Fields[element]
	return f, ok
}

// IsDestination reports whether key belongs to the vocabulary.
func (v *Vocabulary) IsDestination(key string) bool { return v.destinations[key] }

// IsDate reports whether values stored under key are EDTF dates.
func (v *Vocabulary) IsDate(key string) bool { return v.dates[key] }

// Relator returns the relator code for a capitalized role label. Unknown
// labels get the default code and ok is false.
func (v *Vocabulary) Relator(label string) (code string, ok bool) {
	if label == "" {
		return v.DefaultRelator, true
	}
	code, ok = v.Relators[label]
	if !ok {
		return v.DefaultRelator, false
	}
	return code, true
}

// EntityType returns the entity type for a MODS name type attribute. An
// empty attribute gives the default type; an unknown one gives the default
// with ok false.
func (v *Vocabulary) EntityType(nameType string) (string, bool) {
	if nameType == "" {
		return v.DefaultEntityType, true
	}
	t, ok := v.EntityTypes[nameType]
	if !ok {
		return v.DefaultEntityType, false
	}
	return t, true
}

// Predicate returns the column a RELS-EXT predicate is stored in.
func (v *Vocabulary) Predicate(name string) (string, bool) {
	c, ok := v.Predicates[name]
	return c, ok
}

// IsContainer reports whether objects with the content model hold other
// objects.
func (v *Vocabulary) IsContainer(model string) bool { return v.containers[model] }

func toSet(list []string) map[string]bool {
	m := make(map[string]bool, len(list))
	for _, s := range list {
		m[s] = true
	}
	return m
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
