package foxml

// File is a datastream whose content lives in the datastream store.
type File struct {
	DatastreamID string
	Ref          string // content location reference, e.g. "demo:1+OBJ+OBJ.0"
	MIMEType     string // MIME type of the live version
	Digest       Digest
}

// MIMETypes maps each datastream ID to the MIME type of its live version.
func (o *Object) MIMETypes() map[string]string {
	result := make(map[string]string, len(o.Datastreams))
	for _, d := range o.Datastreams {
		result[d.ID] = d.MIMEType()
	}
	return result
}

// Files lists every datastream that refers to external content, in envelope
// order. The reference is taken from the last version that has one.
func (o *Object) Files() []File {
	var result []File
	for _, d := range o.Datastreams {
		v := d.lastLocated()
		if v == nil {
			continue
		}
		result = append(result, File{
			DatastreamID: d.ID,
			Ref:          v.Location,
			MIMEType:     d.MIMEType(),
			Digest:       v.Digest,
		})
	}
	return result
}

// InlineXML returns the inline content of the last version of the
// datastream that has any. It returns ErrNoDatastream if there is none.
func (o *Object) InlineXML(id string) ([]byte, error) {
	d := o.Datastream(id)
	if d == nil {
		return nil, ErrNoDatastream
	}
	v := d.lastInline()
	if v == nil {
		return nil, ErrNoDatastream
	}
	return v.XML, nil
}

func (d *Datastream) lastInline() *Version {
	for i := len(d.Versions) - 1; i >= 0; i-- {
		if d.Versions[i].Inline() {
			return d.Versions[i]
		}
	}
	return nil
}

func (d *Datastream) lastLocated() *Version {
	for i := len(d.Versions) - 1; i >= 0; i-- {
		if d.Versions[i].Location != "" {
			return d.Versions[i]
		}
	}
	return nil
}

// Source says where the content of an XML datastream is.
type Source struct {
	// Inline is the inline content. If it is nil then Ref names the file
	// in the datastream store.
	Inline []byte
	Ref    string
	Digest Digest
	// Anomaly is set when the datastream has both inline and external
	// content. The inline content wins.
	Anomaly bool
}

// Locate finds the content of the datastream id. Inline content is preferred
// and external content is used otherwise. It returns ErrNoDatastream if the
// datastream is missing or has no content at all.
func (o *Object) Locate(id string) (Source, error) {
	d := o.Datastream(id)
	if d == nil {
		return Source{}, ErrNoDatastream
	}
	inline := d.lastInline()
	located := d.lastLocated()
	switch {
	case inline != nil:
		return Source{
			Inline:  inline.XML,
			Digest:  inline.Digest,
			Anomaly: located != nil,
		}, nil
	case located != nil:
		return Source{Ref: located.Location, Digest: located.Digest}, nil
	}
	return Source{}, ErrNoDatastream
}

// Bibliographic locates the object's MODS datastream.
func (o *Object) Bibliographic() (Source, error) {
	return o.Locate("MODS")
}
