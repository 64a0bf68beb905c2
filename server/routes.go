// Package server is a read-only HTTP view of a harvest: the stored records
// and the report of the most recent run.
package server

import (
	"encoding/json"
	"expvar"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/facebookgo/httpdown"
	"github.com/julienschmidt/httprouter"

	"github.com/ndlib/fedharvest/harvest"
	"github.com/ndlib/fedharvest/record"
	"github.com/ndlib/fedharvest/recordstore"
)

// Server holds the configuration for a status server.
//
// Set the public fields and then call Run. Do not change any fields after
// calling Run.
type Server struct {
	// Port number to listen on. Defaults to 14001.
	PortNumber string

	// Records is where harvested rows are read from. Run will panic if
	// Records is nil.
	Records recordstore.Store

	// Reports returns the report of the most recent run, or nil if no run
	// has finished.
	Reports func() *harvest.Report

	// Containers are the content models listed by /structure when the
	// request gives none.
	Containers []string

	// Validator checks the X-Api-Key header of each request. If this is
	// nil every request is allowed.
	Validator TokenDecoder

	server httpdown.Server
}

// New returns a Server reading from records and reports.
func New(records recordstore.Store, reports func() *harvest.Report) *Server {
	return &Server{
		Records: records,
		Reports: reports,
	}
}

// Run starts the server. It blocks listening for and handling http
// requests until Stop is called.
func (s *Server) Run() error {
	if s.Records == nil {
		panic("No record store given. Records is nil.")
	}
	if s.PortNumber == "" {
		s.PortNumber = "14001"
	}
	log.Println("Status server listening on", s.PortNumber)

	h := httpdown.HTTP{
		StopTimeout: 10 * time.Second,
		KillTimeout: 1 * time.Second,
	}
	var err error
	s.server, err = h.ListenAndServe(&http.Server{
		Addr:    ":" + s.PortNumber,
		Handler: s.Handler(),
	})
	if err != nil {
		log.Println(err)
		return err
	}
	return s.server.Wait()
}

// Stop closes the listening socket and returns when the open requests have
// finished.
func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}
	return s.server.Stop()
}

// Handler returns the routes of the server.
func (s *Server) Handler() http.Handler {
	if s.Validator == nil {
		s.Validator = NewNobodyDecoder()
	}
	var routes = []struct {
		method  string
		route   string
		role    Role // RoleUnknown means no API key is needed to access
		handler httprouter.Handle
	}{
		{"GET", "/record/:pid", RoleRead, s.RecordHandler},
		{"GET", "/record/:pid/dc", RoleRead, s.DublinCoreHandler},
		{"GET", "/structure", RoleRead, s.StructureHandler},
		{"GET", "/report", RoleRead, s.ReportHandler},
		{"GET", "/report/remediation", RoleRead, s.RemediationHandler},

		// other
		{"GET", "/", RoleUnknown, WelcomeHandler},
		{"GET", "/debug/vars", RoleAdmin, VarHandler}, // standard route for expvars data
	}

	r := httprouter.New()
	for _, route := range routes {
		r.Handle(route.method,
			route.route,
			logWrapper(s.authzWrapper(route.handler, route.role)))
	}
	return r
}

// rowView is the JSON form of a stored row.
type rowView struct {
	PID           string         `json:"pid"`
	State         string         `json:"state"`
	ContentModel  []string       `json:"content_model"`
	CollectionPID []string       `json:"collection_pid"`
	PageOf        []string       `json:"page_of"`
	Sequence      []string       `json:"sequence"`
	ConstituentOf []string       `json:"constituent_of"`
	PrimaryFile   string         `json:"primary_file,omitempty"`
	Harvested     time.Time      `json:"harvested"`
	Fields        *record.Record `json:"fields"`
}

func newRowView(row *recordstore.Row) rowView {
	return rowView{
		PID:           row.PID,
		State:         row.State,
		ContentModel:  column(row.ContentModel),
		CollectionPID: column(row.CollectionPID),
		PageOf:        column(row.PageOf),
		Sequence:      column(row.Sequence),
		ConstituentOf: column(row.ConstituentOf),
		PrimaryFile:   row.PrimaryFile,
		Harvested:     row.Harvested,
		Fields:        row.Fields,
	}
}

// column splits a multi-valued column. An empty column has no values.
func column(s string) []string {
	if s == "" {
		return []string{}
	}
	return record.Split(s)
}

// RecordHandler returns the stored row for a PID as JSON.
func (s *Server) RecordHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	row, ok := s.getRow(w, ps.ByName("pid"))
	if !ok {
		return
	}
	writeJSON(w, newRowView(row))
}

// DublinCoreHandler returns the dublin_core document stored for a PID.
func (s *Server) DublinCoreHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	row, ok := s.getRow(w, ps.ByName("pid"))
	if !ok {
		return
	}
	if row.DublinCore == "" {
		w.WriteHeader(404)
		fmt.Fprintln(w, "No Dublin Core for", row.PID)
		return
	}
	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	fmt.Fprint(w, row.DublinCore)
}

func (s *Server) getRow(w http.ResponseWriter, pid string) (*recordstore.Row, bool) {
	row, err := s.Records.Get(pid)
	if err == recordstore.ErrNotFound {
		w.WriteHeader(404)
		fmt.Fprintln(w, err)
		return nil, false
	} else if err != nil {
		w.WriteHeader(500)
		fmt.Fprintln(w, err)
		return nil, false
	}
	return row, true
}

// StructureHandler lists the rows having one of the content models given by
// the "model" query parameters, or one of the container models if none are
// given.
func (s *Server) StructureHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	models := r.URL.Query()["model"]
	if len(models) == 0 {
		models = s.Containers
	}
	if len(models) == 0 {
		w.WriteHeader(400)
		fmt.Fprintln(w, "No content model given")
		return
	}
	rows, err := s.Records.ListByModel(models...)
	if err != nil {
		w.WriteHeader(500)
		fmt.Fprintln(w, err)
		return
	}
	views := make([]rowView, 0, len(rows))
	for _, row := range rows {
		views = append(views, newRowView(row))
	}
	writeJSON(w, views)
}

// ReportHandler returns the report of the most recent run.
func (s *Server) ReportHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	report := s.report(w)
	if report == nil {
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	report.WriteJSON(w)
}

// RemediationHandler returns the results of the most recent run that need
// attention.
func (s *Server) RemediationHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	report := s.report(w)
	if report == nil {
		return
	}
	results := report.Remediation()
	if results == nil {
		results = []harvest.Result{}
	}
	writeJSON(w, results)
}

func (s *Server) report(w http.ResponseWriter) *harvest.Report {
	var report *harvest.Report
	if s.Reports != nil {
		report = s.Reports()
	}
	if report == nil {
		w.WriteHeader(404)
		fmt.Fprintln(w, "No run has finished")
	}
	return report
}

// General route handlers and convenience functions

// VarHandler adapts the expvar default handler to the httprouter three parameter handler.
func VarHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	expvar.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, val interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	json.NewEncoder(w).Encode(val)
}

// authzWrapper returns a Handler which will first verify the user token as
// having at least the given Role. The user name is added as a parameter
// "username".
func (s *Server) authzWrapper(handler httprouter.Handle, leastRole Role) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		token := r.Header.Get("X-Api-Key")
		user, role, err := s.Validator.TokenDecode(token)
		if err != nil {
			w.WriteHeader(500)
			fmt.Fprintln(w, err.Error())
			return
		}
		if role < leastRole {
			w.WriteHeader(401)
			fmt.Fprintln(w, "Forbidden")
			return
		}
		ps = append(ps, httprouter.Param{Key: "username", Value: user})
		handler(w, r, ps)
	}
}

// logWrapper takes a handler and returns a handler which does the same thing,
// after first logging the request URL.
func logWrapper(handler httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		log.Println(r.Method, r.URL)
		handler(w, r, ps)
	}
}
