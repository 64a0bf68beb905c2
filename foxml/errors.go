package foxml

import (
	"encoding/xml"
	"errors"
	"fmt"
)

// ErrNoDatastream means an envelope has no datastream with the requested ID,
// or the datastream has neither inline nor external content.
var ErrNoDatastream = errors.New("no such datastream")

// A ParseError means the envelope is not well formed XML.
type ParseError struct {
	Line int // line number, 0 if unknown
	Err  error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("foxml: malformed envelope (line %d): %s", e.Line, e.Err)
	}
	return fmt.Sprintf("foxml: malformed envelope: %s", e.Err)
}

// Cause returns the underlying decoder error.
func (e *ParseError) Cause() error { return e.Err }

// A SchemaError means the envelope is well formed but is missing something
// every envelope must have.
type SchemaError struct {
	Element string // the element with the problem
	Attr    string // the missing attribute, if any
	Message string
}

func (e *SchemaError) Error() string {
	if e.Attr != "" {
		return fmt.Sprintf("foxml: %s missing attribute %s", e.Element, e.Attr)
	}
	return fmt.Sprintf("foxml: %s: %s", e.Element, e.Message)
}

func wrapXMLError(err error) error {
	if se, ok := err.(*xml.SyntaxError); ok {
		return &ParseError{Line: se.Line, Err: errors.New(se.Msg)}
	}
	return &ParseError{Err: err}
}
