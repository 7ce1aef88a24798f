package ledgerdb

import (
	"testing"

	"tierstake/config"
	"tierstake/storage"
)

func TestOpenBackends(t *testing.T) {
	dir := t.TempDir()
	for _, backend := range []string{config.BackendMemory, config.BackendLevelDB, config.BackendSQLite} {
		t.Run(backend, func(t *testing.T) {
			db, err := Open(&config.Config{Backend: backend, DataDir: dir})
			if err != nil {
				t.Fatalf("open %s: %v", backend, err)
			}
			defer db.Close()
			if err := db.Commit(nil, []storage.Write{{Key: []byte("k"), Value: []byte("v")}}); err != nil {
				t.Fatalf("commit: %v", err)
			}
			entry, err := db.Get([]byte("k"))
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if string(entry.Value) != "v" {
				t.Fatalf("unexpected value %q", entry.Value)
			}
		})
	}
}

func TestOpenRejectsUnknownBackend(t *testing.T) {
	if _, err := Open(&config.Config{Backend: "etcd"}); err == nil {
		t.Fatalf("expected unknown backend error")
	}
}
