// Package sqldb implements storage.Database on top of a SQL database through
// gorm. Postgres is used in deployments; SQLite backs single-node setups and
// tests.
package sqldb

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"tierstake/storage"
)

// Record is the persisted form of one versioned key.
type Record struct {
	Key     string `gorm:"column:record_key;primaryKey;size:256"`
	Value   []byte `gorm:"not null"`
	Version uint64 `gorm:"not null"`
}

// TableName pins the table name independent of gorm's pluralisation rules.
func (Record) TableName() string { return "kv_records" }

// DB is a storage.Database backed by gorm.
type DB struct {
	db *gorm.DB
}

// OpenSQLite opens (or creates) a SQLite database using the pure-Go driver.
func OpenSQLite(dsn string) (*DB, error) {
	return open(sqlite.Open(dsn))
}

// OpenPostgres connects to a Postgres database using the supplied DSN.
func OpenPostgres(dsn string) (*DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("sqldb: postgres dsn required")
	}
	return open(postgres.Open(dsn))
}

func open(dialector gorm.Dialector) (*DB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("sqldb: open: %w", err)
	}
	return New(db)
}

// New wraps an existing gorm handle and migrates the record table.
func New(db *gorm.DB) (*DB, error) {
	if db == nil {
		return nil, errors.New("sqldb: nil gorm handle")
	}
	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, fmt.Errorf("sqldb: migrate: %w", err)
	}
	return &DB{db: db}, nil
}

func encodeKey(key []byte) string { return hex.EncodeToString(key) }

// Get returns the value and version stored under key.
func (d *DB) Get(key []byte) (storage.Entry, error) {
	var rec Record
	err := d.db.First(&rec, "record_key = ?", encodeKey(key)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return storage.Entry{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.Entry{}, err
	}
	return storage.Entry{Value: rec.Value, Version: rec.Version}, nil
}

func lockedVersion(tx *gorm.DB, key string) (uint64, error) {
	var rec Record
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&rec, "record_key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return rec.Version, nil
}

// Commit validates every read and write version and applies the writes in one
// SQL transaction. Version mismatches abort the transaction with
// storage.ErrConflict.
func (d *DB) Commit(reads []storage.Read, writes []storage.Write) error {
	return d.db.Transaction(func(tx *gorm.DB) error {
		for _, r := range reads {
			version, err := lockedVersion(tx, encodeKey(r.Key))
			if err != nil {
				return err
			}
			if version != r.Version {
				return fmt.Errorf("%w: key %x read at v%d now v%d", storage.ErrConflict, r.Key, r.Version, version)
			}
		}
		for _, w := range writes {
			key := encodeKey(w.Key)
			if w.ExpectedVersion == 0 {
				version, err := lockedVersion(tx, key)
				if err != nil {
					return err
				}
				if version != 0 {
					return fmt.Errorf("%w: key %x already exists", storage.ErrConflict, w.Key)
				}
				if err := tx.Create(&Record{Key: key, Value: w.Value, Version: 1}).Error; err != nil {
					return fmt.Errorf("%w: insert %x: %v", storage.ErrConflict, w.Key, err)
				}
				continue
			}
			res := tx.Model(&Record{}).
				Where("record_key = ? AND version = ?", key, w.ExpectedVersion).
				Updates(map[string]any{"value": w.Value, "version": w.ExpectedVersion + 1})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected != 1 {
				return fmt.Errorf("%w: key %x expected v%d", storage.ErrConflict, w.Key, w.ExpectedVersion)
			}
		}
		return nil
	})
}

// Iterate visits every record whose key starts with prefix, in key order.
func (d *DB) Iterate(prefix []byte, fn func(key []byte, entry storage.Entry) error) error {
	var records []Record
	if err := d.db.Where("record_key LIKE ?", encodeKey(prefix)+"%").Order("record_key").Find(&records).Error; err != nil {
		return err
	}
	for _, rec := range records {
		key, err := hex.DecodeString(rec.Key)
		if err != nil {
			return fmt.Errorf("sqldb: corrupt key %q: %w", rec.Key, err)
		}
		if err := fn(key, storage.Entry{Value: rec.Value, Version: rec.Version}); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying connection pool.
func (d *DB) Close() {
	if sqlDB, err := d.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

var _ storage.Database = (*DB)(nil)
