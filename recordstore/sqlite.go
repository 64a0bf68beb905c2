package recordstore

import (
	"log"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// The SQLite backend, through gorm. This matches the bookkeeping database
// the migration scripts used.

type sqliteStore struct {
	db    *gorm.DB
	table string
}

// sqliteRow is the gorm model of a row.
type sqliteRow struct {
	ID            uint   `gorm:"primaryKey"`
	PID           string `gorm:"column:pid;not null"`
	State         string
	ContentModel  string
	CollectionPID string `gorm:"column:collection_pid"`
	PageOf        string
	Sequence      string
	ConstituentOf string
	Fields        string
	DublinCore    string
	PrimaryFile   string
	Harvested     time.Time
}

// NewSqlite opens a SQLite database file. The filename "memory" means to
// keep everything in memory. Table names beginning with "sqlite_" are
// reserved by SQLite and give ErrBadTable.
func NewSqlite(filename string, table string) (*sqliteStore, error) {
	if !tableRE.MatchString(table) || strings.HasPrefix(strings.ToLower(table), "sqlite_") {
		return nil, ErrBadTable
	}
	dsn := filename
	if filename == "memory" {
		dsn = "file::memory:?cache=shared"
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err == nil {
		err = db.Table(table).AutoMigrate(&sqliteRow{})
	}
	if err == nil {
		err = db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS ` + table + `_pid ON ` + table + ` (pid)`).Error
	}
	if err == nil {
		err = db.Exec(`CREATE INDEX IF NOT EXISTS ` + table + `_model ON ` + table + ` (content_model)`).Error
	}
	if err != nil {
		log.Printf("Open SQLite: %s", err.Error())
		return nil, errors.Wrap(err, "open sqlite")
	}
	return &sqliteStore{db: db, table: table}, nil
}

func (ss *sqliteStore) Get(pid string) (*Row, error) {
	var r sqliteRow
	err := ss.db.Table(ss.table).Where("pid = ?", pid).First(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, err
	}
	return r.row()
}

func (ss *sqliteStore) Put(row *Row) error {
	fields, err := encodeFields(row.Fields)
	if err != nil {
		return err
	}
	r := sqliteRow{
		PID:           row.PID,
		State:         row.State,
		ContentModel:  row.ContentModel,
		CollectionPID: row.CollectionPID,
		PageOf:        row.PageOf,
		Sequence:      row.Sequence,
		ConstituentOf: row.ConstituentOf,
		Fields:        fields,
		DublinCore:    row.DublinCore,
		PrimaryFile:   row.PrimaryFile,
		Harvested:     row.Harvested,
	}
	return ss.db.Table(ss.table).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "pid"}},
		UpdateAll: true,
	}).Create(&r).Error
}

func (ss *sqliteStore) ListByModel(models ...string) ([]*Row, error) {
	if len(models) == 0 {
		return nil, nil
	}
	var list []sqliteRow
	err := ss.db.Table(ss.table).Where("content_model IN ?", models).Order("pid").Find(&list).Error
	if err != nil {
		return nil, err
	}
	result := make([]*Row, 0, len(list))
	for i := range list {
		row, err := list[i].row()
		if err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, nil
}

func (ss *sqliteStore) Close() error {
	db, err := ss.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}

func (r *sqliteRow) row() (*Row, error) {
	fields, err := decodeFields(r.Fields)
	if err != nil {
		return nil, err
	}
	return &Row{
		PID:           r.PID,
		State:         r.State,
		ContentModel:  r.ContentModel,
		CollectionPID: r.CollectionPID,
		PageOf:        r.PageOf,
		Sequence:      r.Sequence,
		ConstituentOf: r.ConstituentOf,
		Fields:        fields,
		DublinCore:    r.DublinCore,
		PrimaryFile:   r.PrimaryFile,
		Harvested:     r.Harvested,
	}, nil
}
