// Package codecache stores compiled code objects in SQLite so unchanged
// scripts and modules skip the front end on later runs.
package codecache

import (
	"crypto/sha256"
	"database/sql"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite"

	"github.com/chazu/serpent/pkg/bytecode"
)

var log = commonlog.GetLogger("serpent.codecache")

// Store is a compiled-code cache backed by a SQLite database.
type Store struct {
	db     *sql.DB
	path   string
	mu     sync.Mutex
	hits   int
	misses int
}

// Open opens (creating if needed) the cache database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS code (
		key     TEXT PRIMARY KEY,
		path    TEXT NOT NULL,
		version INTEGER NOT NULL,
		data    BLOB NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Key derives the cache key of a compilation: a SHA-256 over the code
// format version, the mode, the path and the source text.
func Key(source string, mode bytecode.Mode, path string) string {
	h := sha256.New()
	var hdr [3]byte
	binary.BigEndian.PutUint16(hdr[:2], bytecode.FormatVersion)
	hdr[2] = byte(mode)
	h.Write(hdr[:])
	fmt.Fprintf(h, "%d:%s", len(path), path)
	h.Write([]byte(source))
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached code object for key. A missing entry reports
// ok == false. Entries that no longer decode are dropped and reported as
// missing.
func (s *Store) Get(key string) (code *bytecode.CodeObject, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var data []byte
	err = s.db.QueryRow("SELECT data FROM code WHERE key = ?", key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		s.misses++
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("querying code: %w", err)
	}

	code, err = bytecode.Unmarshal(data)
	if err != nil {
		log.Warningf("dropping unreadable cache entry %s: %v", key, err)
		if _, derr := s.db.Exec("DELETE FROM code WHERE key = ?", key); derr != nil {
			return nil, false, fmt.Errorf("deleting code: %w", derr)
		}
		s.misses++
		return nil, false, nil
	}
	s.hits++
	return code, true, nil
}

// Put stores a code object under key.
func (s *Store) Put(key string, code *bytecode.CodeObject) error {
	data, err := bytecode.Marshal(code)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.Exec(
		"INSERT OR REPLACE INTO code (key, path, version, data) VALUES (?, ?, ?, ?)",
		key, code.Filename, int(bytecode.FormatVersion), data,
	)
	if err != nil {
		return fmt.Errorf("saving code: %w", err)
	}
	return nil
}

// Len returns the number of cached entries.
func (s *Store) Len() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM code").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting code: %w", err)
	}
	return n, nil
}

// Stats returns the hit and miss counts since the store was opened.
func (s *Store) Stats() (hits, misses int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits, s.misses
}

// Wrap returns a front end that consults the cache before calling next
// and stores what next produces. Cache failures are logged and never
// fail a compilation; compile errors are not cached.
func (s *Store) Wrap(next func(string, bytecode.Mode, string) (*bytecode.CodeObject, error)) func(string, bytecode.Mode, string) (*bytecode.CodeObject, error) {
	return func(source string, mode bytecode.Mode, path string) (*bytecode.CodeObject, error) {
		key := Key(source, mode, path)
		code, ok, err := s.Get(key)
		if err != nil {
			log.Warningf("code cache read: %v", err)
		}
		if ok {
			log.Debugf("code cache hit for %s", path)
			return code, nil
		}

		code, err = next(source, mode, path)
		if err != nil {
			return nil, err
		}
		if err := s.Put(key, code); err != nil {
			log.Warningf("code cache write: %v", err)
		}
		return code, nil
	}
}
