package harvest

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/facebookgo/clock"

	"github.com/ndlib/fedharvest/address"
	"github.com/ndlib/fedharvest/recordstore"
	"github.com/ndlib/fedharvest/store"
	"github.com/ndlib/fedharvest/vocabulary"
)

const modsRecord = `<mods xmlns="http://www.loc.gov/mods/v3">
  <titleInfo><title>A letter</title></titleInfo>
  <genre>letters</genre>
  <originInfo><dateIssued>1995-96</dateIssued></originInfo>
</mods>`

const relsExt = `
  <foxml:datastream ID="RELS-EXT" STATE="A" CONTROL_GROUP="X">
    <foxml:datastreamVersion ID="RELS-EXT.0" MIMETYPE="application/rdf+xml">
      <foxml:xmlContent>
        <rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#"
            xmlns:fedora="info:fedora/fedora-system:def/relations-external#"
            xmlns:fedora-model="info:fedora/fedora-system:def/model#">
          <rdf:Description rdf:about="info:fedora/%[1]s">
            <fedora:isMemberOfCollection rdf:resource="info:fedora/demo:collection"/>
            <fedora-model:hasModel rdf:resource="info:fedora/islandora:sp_basic_image"/>
          </rdf:Description>
        </rdf:RDF>
      </foxml:xmlContent>
    </foxml:datastreamVersion>
  </foxml:datastream>`

const externalMODS = `
  <foxml:datastream ID="MODS" STATE="A" CONTROL_GROUP="M">
    <foxml:datastreamVersion ID="MODS.0" MIMETYPE="text/xml">
      <foxml:contentDigest TYPE="%[2]s" DIGEST="%[3]s"/>
      <foxml:contentLocation TYPE="INTERNAL_ID" REF="%[1]s+MODS+MODS.0"/>
    </foxml:datastreamVersion>
  </foxml:datastream>`

const inlineMODS = `
  <foxml:datastream ID="MODS" STATE="A" CONTROL_GROUP="X">
    <foxml:datastreamVersion ID="MODS.0" MIMETYPE="text/xml">
      <foxml:contentLocation TYPE="INTERNAL_ID" REF="%[1]s+MODS+MODS.0"/>
    </foxml:datastreamVersion>
    <foxml:datastreamVersion ID="MODS.1" MIMETYPE="text/xml">
      <foxml:xmlContent>` + modsRecord + `</foxml:xmlContent>
    </foxml:datastreamVersion>
  </foxml:datastream>`

const objFile = `
  <foxml:datastream ID="OBJ" STATE="A" CONTROL_GROUP="M">
    <foxml:datastreamVersion ID="OBJ.0" MIMETYPE="image/tiff">
      <foxml:contentLocation TYPE="INTERNAL_ID" REF="%[1]s+OBJ+OBJ.0"/>
    </foxml:datastreamVersion>
  </foxml:datastream>`

// envelope builds a FOXML document. The datastream fragments are formatted
// with the pid, digest type, and digest value as arguments.
func envelope(pid, state, digestType, digest string, datastreams ...string) string {
	var body strings.Builder
	for _, ds := range datastreams {
		fmt.Fprintf(&body, ds, pid, digestType, digest)
	}
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<foxml:digitalObject VERSION="1.1" PID="%s" xmlns:foxml="info:fedora/fedora-system:def/foxml#">
  <foxml:objectProperties>
    <foxml:property NAME="info:fedora/fedora-system:def/model#state" VALUE="%s"/>
  </foxml:objectProperties>%s
</foxml:digitalObject>`, pid, state, body.String())
}

func put(t *testing.T, s *store.Memory, id string, data string) {
	t.Helper()
	addr, err := address.Resolve(id)
	if err != nil {
		t.Fatal(err)
	}
	s.Put(addr.String(), []byte(data))
}

type fixture struct {
	objects     *store.Memory
	datastreams *store.Memory
	records     recordstore.Store
	clock       *clock.Mock
	h           *Harvester
}

func newFixture(t *testing.T, table string) *fixture {
	t.Helper()
	v, err := vocabulary.Load()
	if err != nil {
		t.Fatal(err)
	}
	records, err := recordstore.Open("ql", "memory", table)
	if err != nil {
		t.Fatal(err)
	}
	f := &fixture{
		objects:     store.NewMemory(),
		datastreams: store.NewMemory(),
		records:     records,
		clock:       clock.NewMock(),
	}
	f.clock.Add(time.Hour)
	f.h = New(Options{
		Objects:     f.objects,
		Datastreams: f.datastreams,
		Records:     records,
		Vocabulary:  v,
		Clock:       f.clock,
		Workers:     3,
	})

	sum := md5.Sum([]byte(modsRecord))
	goodDigest := hex.EncodeToString(sum[:])

	put(t, f.objects, "demo:1", envelope("demo:1", "Active", "MD5", goodDigest, relsExt, externalMODS, objFile))
	put(t, f.datastreams, "demo:1+MODS+MODS.0", modsRecord)

	put(t, f.objects, "demo:2", envelope("demo:2", "Inactive", "", ""))

	put(t, f.objects, "demo:3", `<foxml:digitalObject PID="demo:3"><foxml:objectProperties>`)

	put(t, f.objects, "demo:4", envelope("demo:4", "Active", "", "", relsExt))

	put(t, f.objects, "demo:5", envelope("demo:5", "Active", "MD5", "00000000000000000000000000000000", relsExt, externalMODS))
	put(t, f.datastreams, "demo:5+MODS+MODS.0", modsRecord)

	put(t, f.objects, "demo:6", envelope("demo:6", "Active", "", "", relsExt, inlineMODS))

	put(t, f.objects, "demo:7", envelope("demo:7", "Active", "DISABLED", "none", relsExt, externalMODS))

	put(t, f.objects, "demo:8", envelope("demo:other", "Active", "DISABLED", "none", relsExt, externalMODS))
	put(t, f.datastreams, "demo:other+MODS+MODS.0", modsRecord)
	return f
}

func kinds(r Result) []Kind {
	var result []Kind
	for _, d := range r.Diagnostics {
		result = append(result, d.Kind)
	}
	return result
}

func hasKind(r Result, k Kind) bool {
	for _, d := range r.Diagnostics {
		if d.Kind == k {
			return true
		}
	}
	return false
}

func TestProcess(t *testing.T) {
	f := newFixture(t, "process_test")
	defer f.records.Close()

	var table = []struct {
		pid    string
		status Status
		kind   Kind // a diagnostic kind expected in the result, if any
	}{
		{"demo:1", OK, ""},
		{"demo:2", Skipped, KindInactive},
		{"demo:3", Skipped, KindEnvelope},
		{"demo:4", Degraded, KindMissingDatastream},
		{"demo:5", Degraded, KindNormalization},
		{"demo:6", Degraded, KindAnomaly},
		{"demo:7", Degraded, KindMissingDatastream},
		{"demo:8", Degraded, KindAnomaly},
		{"demo:missing", Skipped, KindEnvelope},
	}
	for _, tab := range table {
		result := f.h.Process(context.Background(), tab.pid)
		if result.Status != tab.status {
			t.Errorf("%s: Received %v, expected %v (%v)", tab.pid, result.Status, tab.status, result.Diagnostics)
		}
		if tab.kind == "" && len(result.Diagnostics) > 0 {
			t.Errorf("%s: Received %v, expected no diagnostics", tab.pid, kinds(result))
		}
		if tab.kind != "" && !hasKind(result, tab.kind) {
			t.Errorf("%s: Received %v, expected %v", tab.pid, kinds(result), tab.kind)
		}
		if result.PID != tab.pid {
			t.Errorf("Received %v, expected %v", result.PID, tab.pid)
		}
	}
}

func TestProcessRow(t *testing.T) {
	f := newFixture(t, "row_test")
	defer f.records.Close()

	result := f.h.Process(context.Background(), "demo:1")
	if result.Status != OK {
		t.Fatalf("Received %v, expected %v (%v)", result.Status, OK, result.Diagnostics)
	}
	row, err := f.records.Get("demo:1")
	if err != nil {
		t.Fatal(err)
	}
	objAddr, _ := address.Resolve("demo:1+OBJ+OBJ.0")
	var table = []struct {
		name, got, expected string
	}{
		{"state", row.State, "Active"},
		{"content model", row.ContentModel, "islandora:sp_basic_image"},
		{"collection", row.CollectionPID, "demo:collection"},
		{"page of", row.PageOf, ""},
		{"primary file", row.PrimaryFile, objAddr.String()},
		{"title", row.Fields.Get("title"), "A letter"},
		{"genre", row.Fields.Get("field_genre"), "letters"},
		{"date issued", row.Fields.Get("field_edtf_date_issued"), "1995/1996"},
		{"pid", row.Fields.Get("field_pid"), "demo:1"},
	}
	for _, tab := range table {
		if tab.got != tab.expected {
			t.Errorf("%s: Received %q, expected %q", tab.name, tab.got, tab.expected)
		}
	}
	if !strings.Contains(row.DublinCore, `<dcvalue element="title" qualifier="none">A letter</dcvalue>`) {
		t.Errorf("Received %s, expected a title", row.DublinCore)
	}
	if !row.Harvested.Equal(f.clock.Now()) {
		t.Errorf("Received %v, expected %v", row.Harvested, f.clock.Now())
	}

	// skipped objects are not written
	f.h.Process(context.Background(), "demo:2")
	if _, err := f.records.Get("demo:2"); err != recordstore.ErrNotFound {
		t.Errorf("Received %v, expected %v", err, recordstore.ErrNotFound)
	}
}

func TestRun(t *testing.T) {
	f := newFixture(t, "run_test")
	defer f.records.Close()

	pids, bad, err := ListPIDs(f.objects, "demo:")
	if err != nil {
		t.Fatal(err)
	}
	if len(bad) > 0 {
		t.Errorf("Received %v, expected no bad keys", bad)
	}
	report := f.h.Run(context.Background(), pids)
	if len(report.Results) != len(pids) {
		t.Fatalf("Received %d results, expected %d", len(report.Results), len(pids))
	}
	for i, r := range report.Results {
		if r.PID != pids[i] {
			t.Errorf("Received %v, expected %v", r.PID, pids[i])
		}
	}
	expected := map[string]int{"ok": 1, "degraded": 5, "skipped": 2, "failed": 0}
	for k, v := range expected {
		if report.Counts[k] != v {
			t.Errorf("%s: Received %d, expected %d", k, report.Counts[k], v)
		}
	}
	if report.RunID == "" {
		t.Errorf("Received empty run id")
	}
	// everything except demo:1 and the inactive demo:2
	if n := len(report.Remediation()); n != 6 {
		t.Errorf("Received %d, expected 6", n)
	}
	var buf strings.Builder
	if err := report.WriteJSON(&buf); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"status": "degraded"`) {
		t.Errorf("Received %s", buf.String())
	}
}

func TestRunCanceled(t *testing.T) {
	f := newFixture(t, "cancel_test")
	defer f.records.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report := f.h.Run(ctx, []string{"demo:1", "demo:4"})
	for _, r := range report.Results {
		if r.Status != Skipped || !hasKind(r, KindCanceled) {
			t.Errorf("%s: Received %v %v, expected skipped", r.PID, r.Status, kinds(r))
		}
	}
}

// stallingStore blocks opening one key until release is closed.
type stallingStore struct {
	store.Store
	key     string
	opened  chan struct{}
	release chan struct{}
}

func (s *stallingStore) Open(key string) (store.ReadAtCloser, int64, error) {
	if key == s.key {
		close(s.opened)
		<-s.release
	}
	return s.Store.Open(key)
}

func TestProgress(t *testing.T) {
	f := newFixture(t, "progress_test")
	defer f.records.Close()
	v, err := vocabulary.Load()
	if err != nil {
		t.Fatal(err)
	}
	addr, _ := address.Resolve("demo:4")
	stall := &stallingStore{
		Store:   f.objects,
		key:     addr.String(),
		opened:  make(chan struct{}),
		release: make(chan struct{}),
	}
	h := New(Options{
		Objects:     stall,
		Datastreams: f.datastreams,
		Records:     f.records,
		Vocabulary:  v,
		Clock:       f.clock,
		Workers:     1,
	})
	if r := h.Progress(); r != nil {
		t.Errorf("Received %v before any run", r)
	}

	done := make(chan *Report)
	go func() {
		done <- h.Run(context.Background(), []string{"demo:1", "demo:4", "demo:2"})
	}()
	<-stall.opened
	// with one worker demo:1 is finished before demo:4 is started
	r := h.Progress()
	if r == nil {
		t.Fatal("Received nil during a run")
	}
	if len(r.Results) != 1 || r.Results[0].PID != "demo:1" {
		t.Errorf("Received %v, expected only demo:1", r.Results)
	}
	if r.Counts["ok"] != 1 || !r.Finished.IsZero() {
		t.Errorf("Received %v %v", r.Counts, r.Finished)
	}
	close(stall.release)
	report := <-done
	if r.RunID != report.RunID {
		t.Errorf("Received %v, expected %v", r.RunID, report.RunID)
	}
	if len(report.Results) != 3 {
		t.Errorf("Received %d results, expected 3", len(report.Results))
	}
	if r := h.Progress(); r != nil {
		t.Errorf("Received %v after the run", r)
	}
}

func TestListPIDs(t *testing.T) {
	s := store.NewMemory()
	put(t, s, "demo:1", "")
	put(t, s, "other:2", "")
	put(t, s, "demo:10", "")
	s.Put("ab/not%ZZvalid", nil)

	pids, bad, err := ListPIDs(s, "demo:")
	if err != nil {
		t.Fatal(err)
	}
	expected := []string{"demo:1", "demo:10"}
	if strings.Join(pids, " ") != strings.Join(expected, " ") {
		t.Errorf("Received %v, expected %v", pids, expected)
	}
	if len(bad) != 1 {
		t.Errorf("Received %v, expected one bad key", bad)
	}
	all, _, _ := ListPIDs(s, "")
	if len(all) != 3 {
		t.Errorf("Received %v, expected 3 pids", all)
	}

	failing := store.NewWithPrefix(unlistable{s}, "objectStore/")
	if _, _, err := ListPIDs(failing, ""); err != errUnlistable {
		t.Errorf("Received %v, expected %v", err, errUnlistable)
	}
}

var errUnlistable = errors.New("listing failed")

// unlistable is a store whose listings fail.
type unlistable struct {
	store.Store
}

func (unlistable) ListPrefix(prefix string) ([]string, error) {
	return nil, errUnlistable
}

func TestExtension(t *testing.T) {
	var table = []struct{ mime, ext string }{
		{"image/tiff", ".tif"},
		{"application/pdf", ".pdf"},
		{"application/x-unknown", ".bin"},
		{"", ".bin"},
	}
	for _, tab := range table {
		if got := Extension(tab.mime); got != tab.ext {
			t.Errorf("%s: Received %v, expected %v", tab.mime, got, tab.ext)
		}
	}
}

func TestReportRoundTrip(t *testing.T) {
	report := &Report{
		RunID: "abc",
		Results: []Result{
			{PID: "demo:1", Status: OK},
			{PID: "demo:2", Status: Skipped, Diagnostics: []Diagnostic{{Kind: KindInactive, Message: "Inactive"}}},
			{PID: "demo:3", Status: Failed, Diagnostics: []Diagnostic{{Kind: KindStore, Message: "disk full"}}},
		},
	}
	report.tally()
	var buf strings.Builder
	if err := report.WriteJSON(&buf); err != nil {
		t.Fatal(err)
	}
	got, err := ReadReport(strings.NewReader(buf.String()))
	if err != nil {
		t.Fatal(err)
	}
	rem := got.Remediation()
	if len(rem) != 1 || rem[0].PID != "demo:3" || rem[0].Status != Failed {
		t.Errorf("Received %v, expected demo:3 failed", rem)
	}
	if got.Counts["skipped"] != 1 {
		t.Errorf("Received %v, expected 1", got.Counts["skipped"])
	}

	var s Status
	if err := s.UnmarshalText([]byte("bogus")); err == nil {
		t.Errorf("Received nil, expected an error")
	}
}
