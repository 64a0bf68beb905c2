package recordstore

import (
	"database/sql"
	"log"
	"strings"

	"github.com/BurntSushi/migration"
	"github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
)

// The MySQL backend. The schema is versioned with migrations kept per
// table, so several institutions can share one database.

type mysqlStore struct {
	db    *sql.DB
	table string
}

// mysqlMigrations returns the list of migrations to perform on table. Add
// new ones to the end. DO NOT change the order of items already in this
// list.
func mysqlMigrations(table string) []migration.Migrator {
	return []migration.Migrator{
		func(tx migration.LimitedTx) error {
			return execlist(tx, []string{
				`CREATE TABLE IF NOT EXISTS ` + table + ` (
				id int PRIMARY KEY AUTO_INCREMENT,
				pid varchar(255) NOT NULL,
				state varchar(32),
				content_model varchar(255),
				collection_pid text,
				page_of varchar(255),
				sequence varchar(32),
				constituent_of text,
				fields LONGTEXT,
				dublin_core LONGTEXT,
				primary_file text,
				harvested datetime,
				UNIQUE INDEX ` + table + `_pid (pid),
				INDEX ` + table + `_model (content_model))`,
			})
		},
	}
}

func mysqlVersioning(table string) dbVersion {
	v := table + `_version`
	return dbVersion{
		GetSQL:    `SELECT max(version) FROM ` + v,
		SetSQL:    `INSERT INTO ` + v + ` (version, applied) VALUES (?, now())`,
		CreateSQL: `CREATE TABLE ` + v + ` (version INTEGER, applied datetime)`,
	}
}

// NewMysql connects to a MySQL database and migrates table to the current
// schema. The DSN should set parseTime=true.
func NewMysql(dial string, table string) (*mysqlStore, error) {
	if !tableRE.MatchString(table) {
		return nil, ErrBadTable
	}
	dial = withParseTime(dial)
	versioning := mysqlVersioning(table)
	db, err := migration.OpenWith(
		"mysql",
		dial,
		mysqlMigrations(table),
		versioning.Get,
		versioning.Set)
	if err != nil {
		log.Printf("Open Mysql: %s", err.Error())
		return nil, errors.Wrap(err, "open mysql")
	}
	return &mysqlStore{db: db, table: table}, nil
}

// withParseTime makes sure datetime columns scan into time.Time.
func withParseTime(dial string) string {
	cfg, err := mysql.ParseDSN(dial)
	if err != nil {
		return dial
	}
	cfg.ParseTime = true
	return cfg.FormatDSN()
}

func (ms *mysqlStore) Get(pid string) (*Row, error) {
	query := `SELECT ` + columns + ` FROM ` + ms.table + ` WHERE pid = ? LIMIT 1`
	return scanRow(ms.db.QueryRow(query, pid))
}

func (ms *mysqlStore) Put(row *Row) error {
	stmt := `INSERT INTO ` + ms.table + ` (` + columns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			state = VALUES(state),
			content_model = VALUES(content_model),
			collection_pid = VALUES(collection_pid),
			page_of = VALUES(page_of),
			sequence = VALUES(sequence),
			constituent_of = VALUES(constituent_of),
			fields = VALUES(fields),
			dublin_core = VALUES(dublin_core),
			primary_file = VALUES(primary_file),
			harvested = VALUES(harvested)`
	args, err := values(row)
	if err != nil {
		return err
	}
	_, err = ms.db.Exec(stmt, args...)
	return err
}

func (ms *mysqlStore) ListByModel(models ...string) ([]*Row, error) {
	if len(models) == 0 {
		return nil, nil
	}
	args := make([]interface{}, len(models))
	for i, m := range models {
		args[i] = m
	}
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(models)), ", ")
	query := `SELECT ` + columns + ` FROM ` + ms.table +
		` WHERE content_model IN (` + marks + `) ORDER BY pid`
	rows, err := ms.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	return collectRows(rows)
}

func (ms *mysqlStore) Close() error {
	return ms.db.Close()
}

// execlist exec's each item in the list, return if there is an error.
// Used to work around mysql driver not handling compound exec statements.
func execlist(tx migration.LimitedTx, stms []string) error {
	var err error
	for _, s := range stms {
		_, err = tx.Exec(s)
		if err != nil {
			break
		}
	}
	return err
}
