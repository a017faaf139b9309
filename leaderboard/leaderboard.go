// Package leaderboard persists cumulative clip of the week results.
package leaderboard

import (
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/lmittmann/tint"
	"github.com/schollz/jsonstore"
)

// Entry holds one submitter's statistics. UserID is the store key and is
// not part of the stored value.
type Entry struct {
	UserID      string     `json:"-"`
	DisplayName string     `json:"username"`
	Wins        int        `json:"wins"`
	TotalVotes  int        `json:"totalVotes"`
	LastWin     *time.Time `json:"lastWin"`
}

// AvgVotes is the mean number of votes per win.
func (e Entry) AvgVotes() float64 {
	if e.Wins == 0 {
		return 0
	}
	return float64(e.TotalVotes) / float64(e.Wins)
}

// Winner is a vote winner to be credited.
type Winner struct {
	UserID      string
	DisplayName string
	Votes       int
}

type PersistenceError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("leaderboard %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Store keeps the leaderboard in a single JSON file. Every write loads the
// whole file, applies the change and replaces the file.
type Store struct {
	path string
	now  func() time.Time
	log  *slog.Logger

	mu sync.Mutex
}

// Open prepares a store at path, creating its directory if needed. The file
// itself is created on the first write.
func Open(path string, log *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, &PersistenceError{Op: "mkdir", Path: path, Err: err}
	}
	return &Store{path: path, now: time.Now, log: log}, nil
}

func (s *Store) Path() string {
	return s.path
}

// read opens the store file. A file in plain JSON object form is imported;
// anything else that cannot be decoded is renamed to <path>.corrupt-<unix>
// and the leaderboard starts over empty.
func (s *Store) read() (*jsonstore.JSONStore, error) {
	ks, err := jsonstore.Open(s.path)
	if err == nil {
		return ks, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return new(jsonstore.JSONStore), nil
	}

	if ks, ierr := s.importPlain(); ierr == nil {
		s.log.Info("imported plain leaderboard file", "path", s.path, "entries", len(ks.Keys()))
		return ks, nil
	}

	aside := fmt.Sprintf("%s.corrupt-%d", s.path, s.now().Unix())
	if rerr := os.Rename(s.path, aside); rerr != nil {
		return nil, &PersistenceError{Op: "read", Path: s.path, Err: errors.Join(err, rerr)}
	}
	s.log.Warn("unreadable leaderboard set aside, starting empty", "path", s.path, "moved", aside, tint.Err(err))
	return new(jsonstore.JSONStore), nil
}

// importPlain decodes a file holding entries as plain objects keyed by user id.
func (s *Store) importPlain() (*jsonstore.JSONStore, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}
	var plain map[string]Entry
	if err := json.Unmarshal(data, &plain); err != nil {
		return nil, err
	}
	if plain == nil {
		return nil, errors.New("no leaderboard object")
	}
	ks := new(jsonstore.JSONStore)
	for id, e := range plain {
		if err := ks.Set(id, e); err != nil {
			return nil, err
		}
	}
	return ks, nil
}

func (s *Store) write(ks *jsonstore.JSONStore) error {
	// keep the base name suffix so jsonstore still detects .gz
	tmp := filepath.Join(filepath.Dir(s.path), ".tmp-"+filepath.Base(s.path))
	if err := jsonstore.Save(ks, tmp); err != nil {
		os.Remove(tmp)
		return &PersistenceError{Op: "write", Path: s.path, Err: err}
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return &PersistenceError{Op: "write", Path: s.path, Err: err}
	}
	return nil
}

// RecordWinners credits each winner with one win and their votes.
func (s *Store) RecordWinners(winners []Winner) error {
	if len(winners) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ks, err := s.read()
	if err != nil {
		return err
	}

	now := s.now()
	for _, w := range winners {
		var e Entry
		if err := ks.Get(w.UserID, &e); err != nil {
			var noSuchKey jsonstore.NoSuchKeyError
			if !errors.As(err, &noSuchKey) {
				return &PersistenceError{Op: "decode", Path: s.path, Err: err}
			}
		}
		if w.DisplayName != "" {
			e.DisplayName = w.DisplayName
		}
		e.Wins++
		e.TotalVotes += max(0, w.Votes)
		e.LastWin = &now
		if err := ks.Set(w.UserID, e); err != nil {
			return &PersistenceError{Op: "encode", Path: s.path, Err: err}
		}
	}

	if err := s.write(ks); err != nil {
		return err
	}
	s.log.Info("leaderboard updated", "winners", len(winners), "entries", len(ks.Keys()))
	return nil
}

// Load returns every entry keyed by user id. Missing or unreadable data
// yields an empty map.
func (s *Store) Load() map[string]Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := make(map[string]Entry)
	ks, err := s.read()
	if err != nil {
		s.log.Warn("failed to load leaderboard, treating as empty", tint.Err(err))
		return entries
	}
	for _, id := range ks.Keys() {
		var e Entry
		if err := ks.Get(id, &e); err != nil {
			s.log.Warn("skipping unreadable leaderboard entry", "user", id, tint.Err(err))
			continue
		}
		e.UserID = id
		entries[id] = e
	}
	return entries
}

// Top returns up to n entries ranked by wins, then total votes. n <= 0
// returns everything.
func (s *Store) Top(n int) []Entry {
	entries := make([]Entry, 0)
	for _, e := range s.Load() {
		entries = append(entries, e)
	}
	Rank(entries)
	if n > 0 && len(entries) > n {
		entries = entries[:n]
	}
	return entries
}

// Rank sorts entries in leaderboard order.
func Rank(entries []Entry) {
	slices.SortFunc(entries, func(a, b Entry) int {
		if c := cmp.Compare(b.Wins, a.Wins); c != 0 {
			return c
		}
		if c := cmp.Compare(b.TotalVotes, a.TotalVotes); c != 0 {
			return c
		}
		return cmp.Compare(a.UserID, b.UserID)
	})
}
