package harvest

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// Status is the outcome of processing one object.
type Status int

const (
	// OK means a record was written and nothing was wrong.
	OK Status = iota
	// Degraded means a record was written but there were diagnostics.
	Degraded
	// Skipped means the object was passed over: it is not active, or its
	// envelope could not be read.
	Skipped
	// Failed means the object could not be addressed or its record could
	// not be stored.
	Failed
)

var statusNames = []string{"ok", "degraded", "skipped", "failed"}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return "unknown"
}

// MarshalText writes the status name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText reads a status name.
func (s *Status) UnmarshalText(text []byte) error {
	for i, name := range statusNames {
		if name == string(text) {
			*s = Status(i)
			return nil
		}
	}
	return fmt.Errorf("unknown status %q", text)
}

// Kind classifies a Diagnostic.
type Kind string

const (
	KindAddressing        Kind = "addressing"
	KindEnvelope          Kind = "envelope"
	KindInactive          Kind = "inactive"
	KindMissingDatastream Kind = "missing-datastream"
	KindNormalization     Kind = "normalization"
	KindAnomaly           Kind = "anomaly"
	KindStore             Kind = "store"
	KindCanceled          Kind = "canceled"
)

// Diagnostic is one problem found while processing an object.
type Diagnostic struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

// Result is the outcome of processing one object.
type Result struct {
	PID         string        `json:"pid"`
	Status      Status        `json:"status"`
	Diagnostics []Diagnostic  `json:"diagnostics,omitempty"`
	Duration    time.Duration `json:"duration_ns"`
}

func (r *Result) add(k Kind, msg string) {
	r.Diagnostics = append(r.Diagnostics, Diagnostic{Kind: k, Message: msg})
}

// Report collects the results of a batch run, in the order the PIDs were
// given.
type Report struct {
	RunID    string         `json:"run_id"`
	Started  time.Time      `json:"started"`
	Finished time.Time      `json:"finished"`
	Counts   map[string]int `json:"counts"`
	Results  []Result       `json:"results"`
}

// tally fills in Counts.
func (r *Report) tally() {
	r.Counts = make(map[string]int)
	for _, s := range statusNames {
		r.Counts[s] = 0
	}
	for _, res := range r.Results {
		r.Counts[res.Status.String()]++
	}
}

// Remediation returns the results needing manual attention: everything not
// OK, except objects skipped only for being inactive.
func (r *Report) Remediation() []Result {
	var result []Result
	for _, res := range r.Results {
		if res.Status == OK {
			continue
		}
		if res.Status == Skipped && len(res.Diagnostics) == 1 && res.Diagnostics[0].Kind == KindInactive {
			continue
		}
		result = append(result, res)
	}
	return result
}

// ReadReport reads a report written by WriteJSON.
func ReadReport(r io.Reader) (*Report, error) {
	report := new(Report)
	if err := json.NewDecoder(r).Decode(report); err != nil {
		return nil, err
	}
	return report, nil
}

// WriteJSON writes the report as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
