package codecache

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/chazu/serpent/compiler"
	"github.com/chazu/serpent/pkg/bytecode"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "cache.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestKeyDependsOnInputs(t *testing.T) {
	base := Key("x = 1\n", bytecode.ModeExec, "a.py")
	if base != Key("x = 1\n", bytecode.ModeExec, "a.py") {
		t.Error("key is not stable")
	}
	others := []string{
		Key("x = 2\n", bytecode.ModeExec, "a.py"),
		Key("x = 1\n", bytecode.ModeSingle, "a.py"),
		Key("x = 1\n", bytecode.ModeExec, "b.py"),
		Key("\n", bytecode.ModeExec, "a.pyx = 1"),
	}
	for i, k := range others {
		if k == base {
			t.Errorf("variant %d collides with base key", i)
		}
	}
	if len(base) != 64 {
		t.Errorf("key length = %d", len(base))
	}
}

func TestPutGet(t *testing.T) {
	s := openTestStore(t)
	code, err := compiler.Compile("def f(a):\n    return a + 1\nprint(f(1))\n", bytecode.ModeExec, "m.py")
	if err != nil {
		t.Fatal(err)
	}
	key := Key("src", bytecode.ModeExec, "m.py")

	if _, ok, err := s.Get(key); ok || err != nil {
		t.Fatalf("empty store Get = %v, %v", ok, err)
	}
	if err := s.Put(key, code); err != nil {
		t.Fatal(err)
	}
	got, ok, err := s.Get(key)
	if err != nil || !ok {
		t.Fatalf("Get = %v, %v", ok, err)
	}
	if got.Filename != "m.py" || len(got.Code) != len(code.Code) || len(got.Constants) != len(code.Constants) {
		t.Errorf("round trip mismatch: %+v", got)
	}

	if err := s.Put(key, code); err != nil {
		t.Fatal(err)
	}
	if n, err := s.Len(); err != nil || n != 1 {
		t.Errorf("Len = %d, %v", n, err)
	}
	if hits, misses := s.Stats(); hits != 1 || misses != 1 {
		t.Errorf("stats = %d hits, %d misses", hits, misses)
	}
}

func TestUnreadableEntryIsDropped(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.db.Exec("INSERT INTO code (key, path, version, data) VALUES (?, ?, ?, ?)",
		"bad", "x.py", 1, []byte{0xff, 0x00}); err != nil {
		t.Fatal(err)
	}
	if _, ok, err := s.Get("bad"); ok || err != nil {
		t.Fatalf("Get = %v, %v", ok, err)
	}
	if n, _ := s.Len(); n != 0 {
		t.Errorf("entry not removed, Len = %d", n)
	}
}

func TestWrapCachesCompilations(t *testing.T) {
	s := openTestStore(t)
	calls := 0
	front := s.Wrap(func(src string, mode bytecode.Mode, path string) (*bytecode.CodeObject, error) {
		calls++
		return compiler.Compile(src, mode, path)
	})

	for i := 0; i < 3; i++ {
		code, err := front("print(1)\n", bytecode.ModeExec, "p.py")
		if err != nil || code == nil {
			t.Fatalf("compile %d: %v", i, err)
		}
	}
	if calls != 1 {
		t.Errorf("front end called %d times, want 1", calls)
	}

	if _, err := front("print(2)\n", bytecode.ModeExec, "p.py"); err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Errorf("changed source should recompile, calls = %d", calls)
	}
}

func TestWrapDoesNotCacheErrors(t *testing.T) {
	s := openTestStore(t)
	calls := 0
	front := s.Wrap(func(src string, mode bytecode.Mode, path string) (*bytecode.CodeObject, error) {
		calls++
		return compiler.Compile(src, mode, path)
	})
	for i := 0; i < 2; i++ {
		_, err := front("x = = 1\n", bytecode.ModeExec, "bad.py")
		var cerr *compiler.Error
		if !errors.As(err, &cerr) {
			t.Fatalf("expected compiler error, got %v", err)
		}
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
	if n, _ := s.Len(); n != 0 {
		t.Errorf("Len = %d, want 0", n)
	}
}

func TestReopenKeepsEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	code, err := compiler.Compile("1\n", bytecode.ModeExec, "r.py")
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Put("k", code); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if _, ok, err := s.Get("k"); !ok || err != nil {
		t.Errorf("Get after reopen = %v, %v", ok, err)
	}
}
