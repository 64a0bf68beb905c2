// Package recordstore keeps one row per harvested object, keyed by PID.
//
// Three backends are available: the embedded QL database (for development
// and tests, and the default), MySQL, and SQLite. Every backend writes with
// parameterized statements and upserts by PID. Writes for the same PID are
// serialized; writes for different PIDs proceed in parallel.
package recordstore

import (
	"encoding/json"
	"errors"
	"regexp"
	"time"

	"github.com/ndlib/fedharvest/record"
	"github.com/ndlib/fedharvest/util"
)

var (
	// ErrNotFound means there is no row for the PID.
	ErrNotFound = errors.New("record not found")

	// ErrBadTable means the table name is not a plain SQL identifier.
	ErrBadTable = errors.New("invalid table name")

	// ErrUnknownDriver means Open was given a driver it does not know.
	ErrUnknownDriver = errors.New("unknown database driver")
)

// Row is everything stored about one object.
type Row struct {
	PID   string
	State string

	// RELS-EXT columns
	ContentModel  string
	CollectionPID string
	PageOf        string
	Sequence      string
	ConstituentOf string

	Fields      *record.Record // the normalized MODS record
	DublinCore  string         // dublin_core document
	PrimaryFile string         // datastream store address of the main file
	Harvested   time.Time
}

// Store is the interface every backend provides.
type Store interface {
	// Get returns the row for pid, or ErrNotFound.
	Get(pid string) (*Row, error)
	// Put inserts the row or replaces the existing row with the same PID.
	Put(row *Row) error
	// ListByModel returns the rows whose content model is one of models,
	// ordered by PID.
	ListByModel(models ...string) ([]*Row, error)
	Close() error
}

// Open connects to a backend. driver is one of "ql", "mysql", or "sqlite".
// For ql and sqlite dial is a file name or "memory"; for mysql it is a DSN.
// Rows are kept in the table named table, which is created if needed.
func Open(driver, dial, table string) (Store, error) {
	if !tableRE.MatchString(table) {
		return nil, ErrBadTable
	}
	var (
		s   Store
		err error
	)
	switch driver {
	case "ql", "":
		s, err = NewQl(dial, table)
	case "mysql":
		s, err = NewMysql(dial, table)
	case "sqlite":
		s, err = NewSqlite(dial, table)
	default:
		return nil, ErrUnknownDriver
	}
	if err != nil {
		return nil, err
	}
	return &serialized{Store: s}, nil
}

var tableRE = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,63}$`)

// serialized holds a per PID lock around Put.
type serialized struct {
	Store
	km util.KeyedMutex
}

func (s *serialized) Put(row *Row) error {
	s.km.Lock(row.PID)
	defer s.km.Unlock(row.PID)
	return s.Store.Put(row)
}

// encodeFields returns the JSON text stored in the fields column.
func encodeFields(r *record.Record) (string, error) {
	if r == nil {
		r = record.New()
	}
	b, err := json.Marshal(r)
	return string(b), err
}

func decodeFields(s string) (*record.Record, error) {
	r := record.New()
	if s == "" {
		return r, nil
	}
	err := json.Unmarshal([]byte(s), r)
	return r, err
}
