// Package harvest runs the extraction pipeline over a Fedora 3 repository.
//
// For each PID the object's envelope is located in the object store and
// read. Inactive objects are skipped. For active objects the relationship
// columns, the normalized MODS record, the Dublin Core view, and the primary
// file are gathered into a recordstore.Row and written to the record store.
//
// Problems with one object never stop a run. Each object gets a Result with
// a status and any diagnostics, and Run collects them into a Report.
package harvest

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/facebookgo/clock"
	raven "github.com/getsentry/raven-go"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/ndlib/fedharvest/address"
	"github.com/ndlib/fedharvest/dc"
	"github.com/ndlib/fedharvest/foxml"
	"github.com/ndlib/fedharvest/mods"
	"github.com/ndlib/fedharvest/record"
	"github.com/ndlib/fedharvest/recordstore"
	"github.com/ndlib/fedharvest/rels"
	"github.com/ndlib/fedharvest/store"
	"github.com/ndlib/fedharvest/util"
	"github.com/ndlib/fedharvest/vocabulary"
)

// Options configures a Harvester.
type Options struct {
	Objects     store.Store       // the Fedora object store
	Datastreams store.Store       // the Fedora datastream store
	Records     recordstore.Store // where rows are written; nil to write nothing
	Vocabulary  *vocabulary.Vocabulary
	Clock       clock.Clock // nil for the real clock
	Workers     int         // objects processed at once; less than 1 means 1
}

// Harvester processes objects. It is safe for concurrent use.
type Harvester struct {
	objects     store.Store
	datastreams store.Store
	records     recordstore.Store
	vocab       *vocabulary.Vocabulary
	normalizer  *mods.Normalizer
	clock       clock.Clock
	workers     int

	m    sync.Mutex // protects live
	live *liveRun   // the run most recently started, until it finishes
}

// liveRun tracks which results of a run in progress are filled in.
type liveRun struct {
	report *Report
	done   []bool
}

// New returns a Harvester.
func New(opts Options) *Harvester {
	h := &Harvester{
		objects:     opts.Objects,
		datastreams: opts.Datastreams,
		records:     opts.Records,
		vocab:       opts.Vocabulary,
		normalizer:  mods.New(opts.Vocabulary),
		clock:       opts.Clock,
		workers:     opts.Workers,
	}
	if h.clock == nil {
		h.clock = clock.New()
	}
	if h.workers < 1 {
		h.workers = 1
	}
	return h
}

// Run processes every pid, up to the configured number at once, and
// returns the report. If ctx is canceled the objects not yet started are
// marked skipped.
func (h *Harvester) Run(ctx context.Context, pids []string) *Report {
	report := &Report{
		RunID:   uuid.New().String(),
		Started: h.clock.Now(),
		Results: make([]Result, len(pids)),
	}
	log.Printf("run %s: %d objects, %d workers", report.RunID, len(pids), h.workers)
	live := &liveRun{report: report, done: make([]bool, len(pids))}
	h.m.Lock()
	h.live = live
	h.m.Unlock()
	finish := func(i int, r Result) {
		h.m.Lock()
		report.Results[i] = r
		live.done[i] = true
		h.m.Unlock()
	}

	gate := util.NewGate(h.workers)
	var wg sync.WaitGroup
	for i, pid := range pids {
		if !gate.Enter(ctx) {
			r := Result{PID: pid, Status: Skipped}
			r.add(KindCanceled, ctx.Err().Error())
			finish(i, r)
			continue
		}
		wg.Add(1)
		go func(i int, pid string) {
			defer wg.Done()
			defer gate.Leave()
			finish(i, h.Process(ctx, pid))
		}(i, pid)
	}
	wg.Wait()

	h.m.Lock()
	if h.live == live {
		h.live = nil
	}
	h.m.Unlock()
	report.Finished = h.clock.Now()
	report.tally()
	log.Printf("run %s: %v", report.RunID, report.Counts)
	return report
}

// Progress returns a report of the objects finished so far by the run in
// progress, or nil if no run is in progress. Its Finished time is zero. If
// several runs are in progress the most recently started one is used.
func (h *Harvester) Progress() *Report {
	h.m.Lock()
	defer h.m.Unlock()
	if h.live == nil {
		return nil
	}
	r := &Report{
		RunID:   h.live.report.RunID,
		Started: h.live.report.Started,
	}
	for i, res := range h.live.report.Results {
		if h.live.done[i] {
			r.Results = append(r.Results, res)
		}
	}
	r.tally()
	return r
}

// Process runs the pipeline for one object.
func (h *Harvester) Process(ctx context.Context, pid string) Result {
	start := h.clock.Now()
	result := Result{PID: pid}
	if err := ctx.Err(); err != nil {
		result.Status = Skipped
		result.add(KindCanceled, err.Error())
		return result
	}
	h.process(pid, &result)
	result.Duration = h.clock.Now().Sub(start)
	switch result.Status {
	case Failed:
		log.Printf("harvest %s: failed: %v", pid, result.Diagnostics)
	case Skipped:
		log.Printf("harvest %s: skipped: %v", pid, result.Diagnostics)
	}
	return result
}

func (h *Harvester) process(pid string, result *Result) {
	obj, err := h.readEnvelope(pid)
	if err != nil {
		if errors.Cause(err) == address.ErrInvalidIdentifier {
			result.Status = Failed
			result.add(KindAddressing, err.Error())
		} else {
			result.Status = Skipped
			result.add(KindEnvelope, err.Error())
		}
		return
	}
	if obj.PID != pid {
		result.add(KindAnomaly, fmt.Sprintf("envelope PID is %s", obj.PID))
	}
	if obj.State() != foxml.Active {
		result.Status = Skipped
		result.add(KindInactive, obj.State().String())
		return
	}

	row := &recordstore.Row{
		PID:       pid,
		State:     obj.State().String(),
		Harvested: h.clock.Now(),
	}
	h.relationships(obj, row, result)
	modsData := h.bibliographic(pid, obj, row, result)
	h.dublinCore(obj, modsData, row, result)
	if p, ok := PrimaryFile(obj); ok {
		row.PrimaryFile = p.Address.String()
	}

	if h.records != nil {
		if err := h.records.Put(row); err != nil {
			raven.CaptureError(err, map[string]string{"PID": pid})
			result.Status = Failed
			result.add(KindStore, err.Error())
			return
		}
	}
	if len(result.Diagnostics) > 0 {
		result.Status = Degraded
	}
}

// readEnvelope finds and decodes the envelope of pid.
func (h *Harvester) readEnvelope(pid string) (*foxml.Object, error) {
	addr, err := address.Resolve(pid)
	if err != nil {
		return nil, errors.Wrap(err, pid)
	}
	data, err := store.ReadAll(h.objects, addr.String())
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", addr)
	}
	return foxml.Read(bytes.NewReader(data))
}

// fetch reads a datastream file given its content location reference.
func (h *Harvester) fetch(ref string) ([]byte, error) {
	addr, err := address.Resolve(ref)
	if err != nil {
		return nil, err
	}
	data, err := store.ReadAll(h.datastreams, addr.String())
	if err != nil {
		return nil, errors.Wrapf(err, "datastream %s at %s", ref, addr)
	}
	return data, nil
}

// content returns the bytes of the datastream id, inline or fetched, and
// checks the digest of fetched content.
func (h *Harvester) content(obj *foxml.Object, id string, result *Result) ([]byte, error) {
	src, err := obj.Locate(id)
	if err != nil {
		return nil, err
	}
	if src.Anomaly {
		result.add(KindAnomaly, id+" has both inline and external content; using inline")
	}
	if src.Inline != nil {
		return src.Inline, nil
	}
	data, err := h.fetch(src.Ref)
	if err != nil {
		return nil, err
	}
	if d := src.Digest; d.Value != "" && d.Type != "" && d.Type != "DISABLED" {
		ok, err := util.VerifyStreamHash(bytes.NewReader(data), d.Type, d.Value)
		switch {
		case err != nil:
			result.add(KindNormalization, fmt.Sprintf("%s digest %s: %s", id, d.Type, err))
		case !ok:
			result.add(KindNormalization, fmt.Sprintf("%s %s digest mismatch", id, d.Type))
		}
	}
	return data, nil
}

func (h *Harvester) relationships(obj *foxml.Object, row *recordstore.Row, result *Result) {
	data, err := h.content(obj, rels.DatastreamID, result)
	if err != nil {
		result.add(KindMissingDatastream, rels.DatastreamID+": "+err.Error())
		return
	}
	rs, err := rels.Parse(data)
	if err != nil {
		result.add(KindNormalization, rels.DatastreamID+": "+err.Error())
		return
	}
	cols := rs.Project(h.vocab)
	row.ContentModel = record.Join(cols.Values("content_model"))
	row.CollectionPID = record.Join(cols.Values("collection_pid"))
	row.PageOf = record.Join(cols.Values("page_of"))
	row.Sequence = record.Join(cols.Values("sequence"))
	row.ConstituentOf = record.Join(cols.Values("constituent_of"))
}

// bibliographic normalizes the MODS record into row.Fields and returns the
// MODS bytes, or nil if there are none.
func (h *Harvester) bibliographic(pid string, obj *foxml.Object, row *recordstore.Row, result *Result) []byte {
	row.Fields = record.New()
	data, err := h.content(obj, "MODS", result)
	if err != nil {
		result.add(KindMissingDatastream, "MODS: "+err.Error())
	} else {
		fields, warnings, err := h.normalizer.Normalize(data)
		if err != nil {
			result.add(KindNormalization, "MODS: "+err.Error())
			data = nil
		} else {
			row.Fields = fields
		}
		for _, w := range warnings {
			result.add(KindNormalization, w.String())
		}
	}
	if h.vocab.IsDestination(mods.FieldPID) {
		row.Fields.Set(mods.FieldPID, pid)
	}
	return data
}

// dublinCore fills row.DublinCore. modsData is the MODS record already
// read, if any, so it is not fetched twice.
func (h *Harvester) dublinCore(obj *foxml.Object, modsData []byte, row *recordstore.Row, result *Result) {
	fetch := func(ref string) ([]byte, error) {
		if modsData != nil {
			return modsData, nil
		}
		return h.fetch(ref)
	}
	pairs, err := dc.Project(obj, fetch)
	if err == foxml.ErrNoDatastream {
		result.add(KindMissingDatastream, "DC: no DC or MODS datastream")
		return
	} else if err != nil {
		result.add(KindNormalization, "DC: "+err.Error())
		return
	}
	out, err := dc.Marshal(pairs)
	if err != nil {
		result.add(KindNormalization, "DC: "+err.Error())
		return
	}
	row.DublinCore = string(out)
}
