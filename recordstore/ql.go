package recordstore

import (
	"database/sql"
	"log"
	"strconv"
	"strings"

	_ "github.com/cznic/ql/driver"
	"github.com/pkg/errors"
)

// The QL backend uses the embedded QL database. It is intended for
// development, tests, and small runs.

type qlStore struct {
	db    *sql.DB
	table string
}

const qlInit = `
	CREATE TABLE IF NOT EXISTS {T} (
		pid string,
		state string,
		content_model string,
		collection_pid string,
		page_of string,
		sequence string,
		constituent_of string,
		fields string,
		dublin_core string,
		primary_file string,
		harvested time
	);
	CREATE INDEX IF NOT EXISTS {T}_pid ON {T} (pid);
	CREATE INDEX IF NOT EXISTS {T}_model ON {T} (content_model);
`

// NewQl opens a QL database. filename is the name of the file to save the
// database to. The filename "memory" means to keep everything in memory.
func NewQl(filename string, table string) (*qlStore, error) {
	if !tableRE.MatchString(table) {
		return nil, ErrBadTable
	}
	var db *sql.DB
	var err error
	if filename == "memory" {
		db, err = sql.Open("ql-mem", "mem.db")
	} else {
		db, err = sql.Open("ql", filename)
	}
	if err == nil {
		_, err = performExec(db, strings.Replace(qlInit, "{T}", table, -1))
	}
	if err != nil {
		log.Printf("Open QL: %s", err.Error())
		return nil, errors.Wrap(err, "open ql")
	}
	return &qlStore{db: db, table: table}, nil
}

func (qs *qlStore) Get(pid string) (*Row, error) {
	query := `SELECT ` + columns + ` FROM ` + qs.table + ` WHERE pid == ?1 LIMIT 1`
	return scanRow(qs.db.QueryRow(query, pid))
}

func (qs *qlStore) Put(row *Row) error {
	update := `UPDATE ` + qs.table + `
		SET state = ?2, content_model = ?3, collection_pid = ?4, page_of = ?5,
			sequence = ?6, constituent_of = ?7, fields = ?8, dublin_core = ?9,
			primary_file = ?10, harvested = ?11
		WHERE pid == ?1`
	insert := `INSERT INTO ` + qs.table + ` (` + columns + `)
		VALUES (?1, ?2, ?3, ?4, ?5, ?6, ?7, ?8, ?9, ?10, ?11)`

	args, err := values(row)
	if err != nil {
		return err
	}
	tx, err := qs.db.Begin()
	if err != nil {
		return err
	}
	result, err := tx.Exec(update, args...)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	nrows, err := result.RowsAffected()
	if err == nil && nrows == 0 {
		// record didn't exist. create it
		_, err = tx.Exec(insert, args...)
	}
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (qs *qlStore) ListByModel(models ...string) ([]*Row, error) {
	if len(models) == 0 {
		return nil, nil
	}
	marks := make([]string, len(models))
	args := make([]interface{}, len(models))
	for i, m := range models {
		marks[i] = "?" + strconv.Itoa(i+1)
		args[i] = m
	}
	query := `SELECT ` + columns + ` FROM ` + qs.table +
		` WHERE content_model IN (` + strings.Join(marks, ", ") + `) ORDER BY pid`
	rows, err := qs.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	return collectRows(rows)
}

func (qs *qlStore) Close() error {
	return qs.db.Close()
}
