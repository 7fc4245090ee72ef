package repositories

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func storesUnderTest(t *testing.T) map[string]KeyValueStore {
	t.Helper()
	return map[string]KeyValueStore{
		"memory": NewMemoryStore(),
		"file":   NewFileStore(filepath.Join(t.TempDir(), "nested", "store.json")),
	}
}

func TestStoreGetMissingKey(t *testing.T) {
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Get(context.Background(), "missing")
			if !errors.Is(err, ErrKeyNotFound) {
				t.Fatalf("Get() error = %v, want ErrKeyNotFound", err)
			}
		})
	}
}

func TestStoreSetGetDelete(t *testing.T) {
	ctx := context.Background()
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			if err := store.Set(ctx, "savedResumeAnalysis", `{"atsScore":70}`); err != nil {
				t.Fatalf("Set() error = %v", err)
			}
			if err := store.Set(ctx, "savedResumeAnalysis", `{"atsScore":82}`); err != nil {
				t.Fatalf("Set() overwrite error = %v", err)
			}

			got, err := store.Get(ctx, "savedResumeAnalysis")
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if got != `{"atsScore":82}` {
				t.Fatalf("Get() = %q", got)
			}

			if err := store.Delete(ctx, "savedResumeAnalysis"); err != nil {
				t.Fatalf("Delete() error = %v", err)
			}
			if _, err := store.Get(ctx, "savedResumeAnalysis"); !errors.Is(err, ErrKeyNotFound) {
				t.Fatalf("Get() after delete error = %v", err)
			}
			if err := store.Delete(ctx, "savedResumeAnalysis"); err != nil {
				t.Fatalf("Delete() of missing key error = %v", err)
			}
		})
	}
}

func TestFileStorePersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "store.json")

	if err := NewFileStore(path).Set(ctx, "k", "ünïcode ✓"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, err := NewFileStore(path).Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != "ünïcode ✓" {
		t.Fatalf("Get() = %q", got)
	}
}

func TestFileStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := NewFileStore(path).Get(context.Background(), "k"); err == nil || errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("Get() error = %v, want decode error", err)
	}
}

func TestScopedStoreIsolatesClients(t *testing.T) {
	ctx := context.Background()
	shared := NewMemoryStore()
	alice := NewScopedStore(shared, "alice")
	bob := NewScopedStore(shared, "bob")

	if err := alice.Set(ctx, "savedResumeAnalysis", "a"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	if _, err := bob.Get(ctx, "savedResumeAnalysis"); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("bob Get() error = %v, want ErrKeyNotFound", err)
	}
	raw, err := shared.Get(ctx, "alice:savedResumeAnalysis")
	if err != nil || raw != "a" {
		t.Fatalf("shared Get() = %q, %v", raw, err)
	}
	if NewScopedStore(shared, "  ") != shared {
		t.Fatal("blank scope should return the inner store")
	}
}
