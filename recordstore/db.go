package recordstore

import (
	"database/sql"
	"log"

	"github.com/BurntSushi/migration"
)

// we need to adapt the migration version functions to work with a version
// table per record table.

type dbVersion struct {
	// SQL to get the version of this db, returns one row and one column
	GetSQL string
	// SQL to insert a new version of this db. takes one parameter, the new
	// version
	SetSQL string
	// the SQL to create the version table for this db
	CreateSQL string
}

func (d dbVersion) Get(tx migration.LimitedTx) (int, error) {
	v, err := d.get(tx)
	if err != nil {
		// we assume error means there is no migration table
		log.Println(err.Error())
		return 0, nil
	}
	return v, nil
}

func (d dbVersion) Set(tx migration.LimitedTx, version int) error {
	if err := d.set(tx, version); err != nil {
		if err := d.createTable(tx); err != nil {
			return err
		}
		return d.set(tx, version)
	}
	return nil
}

func (d dbVersion) get(tx migration.LimitedTx) (int, error) {
	var version sql.NullInt64
	r := tx.QueryRow(d.GetSQL)
	if err := r.Scan(&version); err != nil {
		return 0, err
	}
	return int(version.Int64), nil
}

func (d dbVersion) set(tx migration.LimitedTx, version int) error {
	_, err := tx.Exec(d.SetSQL, version)
	return err
}

func (d dbVersion) createTable(tx migration.LimitedTx) error {
	_, err := tx.Exec(d.CreateSQL)
	if err == nil {
		err = d.set(tx, 0)
	}
	return err
}

// performExec runs one statement in its own transaction.
func performExec(db *sql.DB, query string, args ...interface{}) (sql.Result, error) {
	tx, err := db.Begin()
	if err != nil {
		return nil, err
	}
	var result sql.Result
	result, err = tx.Exec(query, args...)
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	err = tx.Commit()
	return result, err
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

// the column list shared by the SQL backends, in scan order
const columns = `pid, state, content_model, collection_pid, page_of, sequence, constituent_of, fields, dublin_core, primary_file, harvested`

func scanRow(s scanner) (*Row, error) {
	var row Row
	var fields string
	err := s.Scan(&row.PID, &row.State, &row.ContentModel, &row.CollectionPID,
		&row.PageOf, &row.Sequence, &row.ConstituentOf, &fields,
		&row.DublinCore, &row.PrimaryFile, &row.Harvested)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, err
	}
	row.Fields, err = decodeFields(fields)
	return &row, err
}

// values returns the row in column order.
func values(row *Row) ([]interface{}, error) {
	fields, err := encodeFields(row.Fields)
	if err != nil {
		return nil, err
	}
	return []interface{}{row.PID, row.State, row.ContentModel,
		row.CollectionPID, row.PageOf, row.Sequence, row.ConstituentOf,
		fields, row.DublinCore, row.PrimaryFile, row.Harvested}, nil
}

func collectRows(rows *sql.Rows) ([]*Row, error) {
	defer rows.Close()
	var result []*Row
	for rows.Next() {
		row, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}
