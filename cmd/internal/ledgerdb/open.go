package ledgerdb

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"tierstake/config"
	"tierstake/storage"
	"tierstake/storage/sqldb"
)

// Open opens the ledger store selected by cfg.Backend. LevelDB and SQLite
// files live under cfg.DataDir unless a DSN is configured.
func Open(cfg *config.Config) (storage.Database, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return storage.NewMemDB(), nil
	case config.BackendLevelDB, "":
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return nil, fmt.Errorf("prepare data dir: %w", err)
		}
		db, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "ledger"))
		if err != nil {
			return nil, err
		}
		return db, nil
	case config.BackendSQLite:
		dsn := strings.TrimSpace(cfg.DatabaseURL)
		if dsn == "" {
			if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
				return nil, fmt.Errorf("prepare data dir: %w", err)
			}
			dsn = filepath.Join(cfg.DataDir, "ledger.db")
		}
		db, err := sqldb.OpenSQLite(dsn)
		if err != nil {
			return nil, err
		}
		return db, nil
	case config.BackendPostgres:
		db, err := sqldb.OpenPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}
