package store

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"
)

func TestMemoryRoundTrip(t *testing.T) {
	s := NewMemory()

	if _, ok := s.Get("token"); ok {
		t.Fatal("expected empty store")
	}
	if !s.Set("token", "abc") {
		t.Fatal("set failed")
	}
	v, ok := s.Get("token")
	if !ok || v != "abc" {
		t.Fatalf("expected abc, got %q ok=%v", v, ok)
	}
	if !s.Remove("token") {
		t.Fatal("remove failed")
	}
	if _, ok := s.Get("token"); ok {
		t.Fatal("expected key removed")
	}
}

func TestMemoryRemoveAbsentKey(t *testing.T) {
	s := NewMemory()
	if !s.Remove("never-set") {
		t.Fatal("removing an absent key must report success")
	}
}

func TestMemoryConcurrentAccess(t *testing.T) {
	s := NewMemory()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Set("token", "abc")
			s.Get("token")
			s.Remove("refresh_token")
		}()
	}
	wg.Wait()
}

func TestFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	s := NewFile(path, zerolog.Nop())

	if !s.Set("token", "abc") {
		t.Fatal("set failed")
	}
	if !s.Set("auth", `{"id":"u-1"}`) {
		t.Fatal("second set failed")
	}

	// A fresh store over the same path must see persisted state.
	reopened := NewFile(path, zerolog.Nop())
	v, ok := reopened.Get("token")
	if !ok || v != "abc" {
		t.Fatalf("expected persisted token, got %q ok=%v", v, ok)
	}

	if !reopened.Remove("token") {
		t.Fatal("remove failed")
	}
	if _, ok := reopened.Get("token"); ok {
		t.Fatal("expected token removed")
	}
	if _, ok := reopened.Get("auth"); !ok {
		t.Fatal("unrelated key must survive remove")
	}
}

func TestFileCorruptDegradesToEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	s := NewFile(path, zerolog.Nop())
	if _, ok := s.Get("token"); ok {
		t.Fatal("corrupt file must read as empty")
	}
	if !s.Set("token", "abc") {
		t.Fatal("set over corrupt file must succeed")
	}
	if v, _ := s.Get("token"); v != "abc" {
		t.Fatalf("expected abc after rewrite, got %q", v)
	}
}

func TestFileMissingDirectoryCreated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "session.json")
	s := NewFile(path, zerolog.Nop())

	if !s.Set("token", "abc") {
		t.Fatal("set with missing parent directory failed")
	}
	if v, ok := s.Get("token"); !ok || v != "abc" {
		t.Fatalf("expected abc, got %q ok=%v", v, ok)
	}
}
