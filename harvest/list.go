package harvest

import (
	"path"
	"sort"
	"strings"

	"github.com/ndlib/fedharvest/address"
	"github.com/ndlib/fedharvest/store"
)

// ListPIDs returns the PIDs of every object in an object store whose PID
// contains namespace, sorted. An empty namespace matches everything. Keys
// that do not decode are returned in bad. A listing error is returned along
// with whatever was listed before it.
func ListPIDs(s store.Store, namespace string) (pids []string, bad []string, err error) {
	keys, err := s.ListPrefix("")
	for _, key := range keys {
		pid, err := address.Decode(path.Base(key))
		if err != nil || pid == "" {
			bad = append(bad, key)
			continue
		}
		if strings.Contains(pid, namespace) {
			pids = append(pids, pid)
		}
	}
	sort.Strings(pids)
	sort.Strings(bad)
	return pids, bad, err
}
