// Package status persists per-recipient send outcomes between runs.
//
// The status file is the only shared state of reachout. It is read once when
// a run starts and rewritten atomically after every recorded outcome, so an
// interrupted run never loses an already recorded success.
package status

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/renameio/v2"

	"github.com/xrsl/reachout/pkg/recipient"
)

// FileVersion is the current status file format.
const FileVersion = 1

// State is the outcome of the latest attempt for a recipient.
type State string

const (
	Sent    State = "sent"
	Failed  State = "failed"
	Skipped State = "skipped"
)

// Valid reports whether s is a known state.
func (s State) Valid() bool {
	switch s {
	case Sent, Failed, Skipped:
		return true
	}
	return false
}

// ErrPersist wraps every failure to write the status file.
var ErrPersist = errors.New("persist status")

// Entry is the recorded outcome for one recipient.
type Entry struct {
	Email        string    `json:"email"`
	Name         string    `json:"name,omitempty"`
	Organization string    `json:"organization,omitempty"`
	State        State     `json:"state"`
	Attempts     int       `json:"attempts"`
	UpdatedAt    time.Time `json:"updated_at"`
	Error        string    `json:"error,omitempty"`
	RunID        string    `json:"run_id,omitempty"`
}

type file struct {
	Version   int               `json:"version"`
	UpdatedAt time.Time         `json:"updated_at"`
	Entries   map[string]*Entry `json:"entries"`
}

// legacyFile is the cursor-based layout written by the first version of the
// outreach script: a sheet offset plus the addresses already mailed.
type legacyFile struct {
	LastIndex  *int     `json:"last_index"`
	SentEmails []string `json:"sent_emails"`
}

// Store is an in-memory view of the status file.
type Store struct {
	path    string
	entries map[string]*Entry
	dirty   bool
	now     func() time.Time
}

// Load reads the status file at path. A missing file yields an empty store.
func Load(path string) (*Store, error) {
	s := &Store{
		path:    path,
		entries: make(map[string]*Entry),
		now:     time.Now,
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read status file: %w", err)
	}
	if len(data) == 0 {
		return s, nil
	}

	if err := s.decode(data); err != nil {
		return nil, fmt.Errorf("parse status file %s: %w", path, err)
	}
	return s, nil
}

func (s *Store) decode(data []byte) error {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}

	if _, ok := probe["entries"]; !ok {
		if _, legacy := probe["sent_emails"]; legacy {
			return s.migrateLegacy(data)
		}
	}

	var f file
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	if f.Version > FileVersion {
		return fmt.Errorf("unsupported status file version %d", f.Version)
	}
	for key, e := range f.Entries {
		if e == nil {
			continue
		}
		if !e.State.Valid() {
			return fmt.Errorf("entry %q: unknown state %q", key, e.State)
		}
		s.entries[recipient.Key(key)] = e
	}
	return nil
}

func (s *Store) migrateLegacy(data []byte) error {
	var lf legacyFile
	if err := json.Unmarshal(data, &lf); err != nil {
		return err
	}
	// The legacy file has no timestamps; the file's mtime is the best we have.
	at := s.now().UTC()
	if info, err := os.Stat(s.path); err == nil {
		at = info.ModTime().UTC()
	}
	for _, addr := range lf.SentEmails {
		key := recipient.Key(addr)
		if key == "" {
			continue
		}
		s.entries[key] = &Entry{
			Email:     addr,
			State:     Sent,
			Attempts:  1,
			UpdatedAt: at,
		}
	}
	s.dirty = len(s.entries) > 0
	return nil
}

// Path returns the status file location.
func (s *Store) Path() string {
	return s.path
}

// Get returns a copy of the entry for key.
func (s *Store) Get(key string) (Entry, bool) {
	e, ok := s.entries[recipient.Key(key)]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// IsSent reports whether the recipient already has a recorded successful send.
func (s *Store) IsSent(key string) bool {
	e, ok := s.entries[recipient.Key(key)]
	return ok && e.State == Sent
}

// Record stores the outcome of an attempt. A recipient already marked sent is
// never downgraded; recording on it returns an error.
func (s *Store) Record(r recipient.Recipient, state State, cause error, runID string) (Entry, error) {
	if !state.Valid() {
		return Entry{}, fmt.Errorf("unknown state %q", state)
	}
	key := r.Key()
	if key == "" {
		return Entry{}, errors.New("recipient has no email address")
	}

	e, ok := s.entries[key]
	if ok && e.State == Sent {
		return *e, fmt.Errorf("%s already marked sent", key)
	}
	if !ok {
		e = &Entry{}
		s.entries[key] = e
	}

	e.Email = r.Email
	e.Name = r.Name
	e.Organization = r.Organization
	e.State = state
	e.UpdatedAt = s.now().UTC()
	e.RunID = runID
	e.Error = ""
	if cause != nil {
		e.Error = cause.Error()
	}
	if state != Skipped {
		e.Attempts++
	}

	s.dirty = true
	return *e, nil
}

// Reset removes the entry for key so the recipient is attempted again.
func (s *Store) Reset(key string) bool {
	key = recipient.Key(key)
	if _, ok := s.entries[key]; !ok {
		return false
	}
	delete(s.entries, key)
	s.dirty = true
	return true
}

// Entries returns all entries ordered by email.
func (s *Store) Entries() []Entry {
	out := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool {
		return recipient.Key(out[i].Email) < recipient.Key(out[j].Email)
	})
	return out
}

// Counts tallies entries per state.
func (s *Store) Counts() map[State]int {
	counts := map[State]int{Sent: 0, Failed: 0, Skipped: 0}
	for _, e := range s.entries {
		counts[e.State]++
	}
	return counts
}

// Len returns the number of recipients with an entry.
func (s *Store) Len() int {
	return len(s.entries)
}

// Dirty reports whether there are unsaved changes.
func (s *Store) Dirty() bool {
	return s.dirty
}

// Save atomically replaces the status file. It does nothing when no entry
// changed since the last load or save.
func (s *Store) Save() error {
	if !s.dirty {
		return nil
	}

	f := file{
		Version:   FileVersion,
		UpdatedAt: s.now().UTC(),
		Entries:   s.entries,
	}
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}
	data = append(data, '\n')

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("%w: %v", ErrPersist, err)
		}
	}
	if err := renameio.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}

	s.dirty = false
	return nil
}
