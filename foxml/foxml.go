package foxml

import (
	"bytes"
	"encoding/xml"
	"io"
	"strconv"
	"strings"
)

// Object is a decoded FOXML envelope.
type Object struct {
	PID         string
	Properties  []Property
	Datastreams []*Datastream
}

// Property is one object property. Name is the part of the property URI
// after the '#', e.g. "state" or "createdDate".
type Property struct {
	Name  string
	Value string
}

// Datastream is one named datastream and its versions, oldest first.
type Datastream struct {
	ID           string
	State        State
	ControlGroup string
	Versions     []*Version
}

// Version is a single datastream version.
type Version struct {
	ID       string
	Label    string
	Created  string
	MIMEType string
	Size     int64
	Digest   Digest
	// XML is the raw content of the xmlContent element. It is nil if the
	// version has no inline content.
	XML []byte
	// Location is the REF of the contentLocation element, if any.
	Location     string
	LocationType string
}

// Digest is the checksum Fedora recorded for a version.
type Digest struct {
	Type  string // e.g. "MD5", "SHA-256", or "DISABLED"
	Value string // hex encoded
}

// Inline reports whether the version carries non-empty inline XML.
func (v *Version) Inline() bool {
	return len(bytes.TrimSpace(v.XML)) > 0
}

// the wire shape of an envelope

type xmlObject struct {
	XMLName     xml.Name
	PID         *string         `xml:"PID,attr"`
	Properties  []xmlProperty   `xml:"objectProperties>property"`
	Datastreams []xmlDatastream `xml:"datastream"`
}

type xmlProperty struct {
	Name  *string `xml:"NAME,attr"`
	Value string  `xml:"VALUE,attr"`
}

type xmlDatastream struct {
	ID           *string      `xml:"ID,attr"`
	State        string       `xml:"STATE,attr"`
	ControlGroup string       `xml:"CONTROL_GROUP,attr"`
	Versions     []xmlVersion `xml:"datastreamVersion"`
}

type xmlVersion struct {
	ID       string `xml:"ID,attr"`
	Label    string `xml:"LABEL,attr"`
	Created  string `xml:"CREATED,attr"`
	MIMEType string `xml:"MIMETYPE,attr"`
	Size     string `xml:"SIZE,attr"`
	Digest   *struct {
		Type   string `xml:"TYPE,attr"`
		Digest string `xml:"DIGEST,attr"`
	} `xml:"contentDigest"`
	Content *struct {
		Inner []byte `xml:",innerxml"`
	} `xml:"xmlContent"`
	Location *struct {
		Type string `xml:"TYPE,attr"`
		Ref  string `xml:"REF,attr"`
	} `xml:"contentLocation"`
}

// Read decodes an envelope. It returns a *ParseError if the input is not
// well formed and a *SchemaError if a required element or attribute is
// missing.
func Read(r io.Reader) (*Object, error) {
	var raw xmlObject
	dec := xml.NewDecoder(r)
	if err := dec.Decode(&raw); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, wrapXMLError(err)
	}
	if raw.XMLName.Local != "digitalObject" {
		return nil, &SchemaError{Element: raw.XMLName.Local, Message: "root element is not digitalObject"}
	}
	if raw.PID == nil || *raw.PID == "" {
		return nil, &SchemaError{Element: "digitalObject", Attr: "PID"}
	}
	obj := &Object{PID: *raw.PID}
	for _, p := range raw.Properties {
		if p.Name == nil {
			return nil, &SchemaError{Element: "property", Attr: "NAME"}
		}
		obj.Properties = append(obj.Properties, Property{
			Name:  localName(*p.Name),
			Value: p.Value,
		})
	}
	if _, ok := obj.Property("state"); !ok {
		return nil, &SchemaError{Element: "objectProperties", Message: "no state property"}
	}
	if obj.State() == StateUnknown {
		v, _ := obj.Property("state")
		return nil, &SchemaError{Element: "objectProperties", Message: "unknown state " + strconv.Quote(v)}
	}
	for _, d := range raw.Datastreams {
		if d.ID == nil || *d.ID == "" {
			return nil, &SchemaError{Element: "datastream", Attr: "ID"}
		}
		if len(d.Versions) == 0 {
			return nil, &SchemaError{Element: "datastream " + *d.ID, Message: "no datastreamVersion"}
		}
		ds := &Datastream{
			ID:           *d.ID,
			State:        ParseState(d.State),
			ControlGroup: d.ControlGroup,
		}
		for _, v := range d.Versions {
			ds.Versions = append(ds.Versions, convertVersion(v))
		}
		obj.Datastreams = append(obj.Datastreams, ds)
	}
	return obj, nil
}

func convertVersion(v xmlVersion) *Version {
	result := &Version{
		ID:       v.ID,
		Label:    v.Label,
		Created:  v.Created,
		MIMEType: v.MIMEType,
	}
	result.Size, _ = strconv.ParseInt(v.Size, 10, 64)
	if v.Digest != nil {
		result.Digest = Digest{Type: v.Digest.Type, Value: strings.ToLower(v.Digest.Digest)}
	}
	if v.Content != nil {
		result.XML = v.Content.Inner
		if result.XML == nil {
			result.XML = []byte{}
		}
	}
	if v.Location != nil {
		result.Location = v.Location.Ref
		result.LocationType = v.Location.Type
	}
	return result
}

// localName returns the part of a property URI after the last '#'.
func localName(uri string) string {
	if i := strings.LastIndexByte(uri, '#'); i >= 0 {
		return uri[i+1:]
	}
	return uri
}

// Property returns the value of the named object property.
func (o *Object) Property(name string) (string, bool) {
	for _, p := range o.Properties {
		if p.Name == name {
			return p.Value, true
		}
	}
	return "", false
}

// State returns the lifecycle state of the object.
func (o *Object) State() State {
	v, _ := o.Property("state")
	return ParseState(v)
}

// Datastream returns the datastream with the given ID, or nil.
func (o *Object) Datastream(id string) *Datastream {
	for _, d := range o.Datastreams {
		if d.ID == id {
			return d
		}
	}
	return nil
}

// Current returns the live version of the datastream, which is the last one
// listed.
func (d *Datastream) Current() *Version {
	return d.Versions[len(d.Versions)-1]
}

// MIMEType returns the MIME type of the live version.
func (d *Datastream) MIMEType() string {
	return d.Current().MIMEType
}
