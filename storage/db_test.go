package storage

import (
	"testing"
)

func newTestStorage(t *testing.T) Storage {
	t.Helper()

	db, err := NewWithPath(t.TempDir())
	if err != nil {
		t.Fatalf("cannot open storage: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})
	return db
}

func TestSetGetDelete(t *testing.T) {
	db := newTestStorage(t)

	if err := db.Set([]byte("k1"), []byte("v1")); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	ok, err := db.Exist([]byte("k1"))
	if err != nil || !ok {
		t.Fatalf("key must exist after set: %v", err)
	}

	v, err := db.GetKey([]byte("k1"))
	if err != nil || string(v) != "v1" {
		t.Fatalf("expect v1, got %q (%v)", v, err)
	}

	if err := db.Delete([]byte("k1")); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	ok, err = db.Exist([]byte("k1"))
	if err != nil || ok {
		t.Fatalf("key must be gone after delete: %v", err)
	}
}

func TestFirstKVHasPrefix(t *testing.T) {
	db := newTestStorage(t)

	db.Set([]byte("q:b"), []byte("2"))
	db.Set([]byte("q:a"), []byte("1"))
	db.Set([]byte("x:z"), []byte("3"))

	k, v, err := db.FirstKVHasPrefix([]byte("q:"))
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if string(k) != "q:a" || string(v) != "1" {
		t.Errorf("expect smallest prefixed key q:a, got %q=%q", k, v)
	}

	k, _, err = db.FirstKVHasPrefix([]byte("none:"))
	if err != nil || k != nil {
		t.Errorf("missing prefix must return nils, got %q (%v)", k, err)
	}
}

func TestCountKeysByPrefix(t *testing.T) {
	db := newTestStorage(t)

	db.Set([]byte("c:1"), []byte("a"))
	db.Set([]byte("c:2"), []byte("b"))
	db.Set([]byte("d:1"), []byte("c"))

	n, err := db.CountKeysByPrefix([]byte("c:"))
	if err != nil || n != 2 {
		t.Errorf("expect 2 keys, got %d (%v)", n, err)
	}

	if _, err := db.CountKeysByPrefix(nil); err == nil {
		t.Errorf("empty prefix must be rejected")
	}
}

func TestCounters(t *testing.T) {
	db := newTestStorage(t)

	n, err := db.GetCounter([]byte("cnt"), 7)
	if err != nil || n != 7 {
		t.Fatalf("missing counter must return the default, got %d (%v)", n, err)
	}

	if err := db.SetCounter([]byte("cnt"), 42); err != nil {
		t.Fatalf("set counter failed: %v", err)
	}
	n, err = db.GetCounter([]byte("cnt"), 0)
	if err != nil || n != 42 {
		t.Fatalf("expect 42, got %d (%v)", n, err)
	}
}
