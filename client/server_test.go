package client

import (
	"net/http"
	"sync"
)

// A faultServer wraps a handler and answers the next requests with the
// queued statuses instead of passing them on. Once the queue is empty every
// request reaches the wrapped handler.
type faultServer struct {
	h http.Handler

	m      sync.Mutex
	faults []int
}

func (s *faultServer) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	s.m.Lock()
	if len(s.faults) > 0 {
		status := s.faults[0]
		s.faults = s.faults[1:]
		s.m.Unlock()
		w.WriteHeader(status)
		return
	}
	s.m.Unlock()
	s.h.ServeHTTP(w, req)
}

// Reset replaces the queued faults.
func (s *faultServer) Reset(statuses ...int) {
	s.m.Lock()
	s.faults = append([]int(nil), statuses...)
	s.m.Unlock()
}
