// Package persist keeps the small amount of session state that survives a
// reload: whether results were showing, and for which file. Image data is
// never written.
package persist

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/neuropathx/neuropathx/internal/session"
)

// State is the persisted record for one session key
type State struct {
	ResultsVisible bool      `json:"results_visible"`
	FileName       string    `json:"file_name,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Store keeps one JSON file per session key under Dir
type Store struct {
	Dir string
}

func NewStore(dir string) *Store {
	return &Store{Dir: dir}
}

var validKey = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

func (s *Store) path(key string) (string, error) {
	if !validKey.MatchString(key) {
		return "", fmt.Errorf("invalid session key %q", key)
	}
	return filepath.Join(s.Dir, "sessions", key+".json"), nil
}

// Load returns the stored state; ok is false when nothing was stored.
func (s *Store) Load(key string) (State, bool, error) {
	path, err := s.path(key)
	if err != nil {
		return State{}, false, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return State{}, false, nil
	}
	if err != nil {
		return State{}, false, fmt.Errorf("failed to read session state: %w", err)
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return State{}, false, fmt.Errorf("failed to parse session state: %w", err)
	}
	return st, true, nil
}

// Save replaces the record for key atomically.
func (s *Store) Save(key string, st State) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session state: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), key+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write session state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close session state: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to save session state: %w", err)
	}
	return nil
}

// Delete removes the stored state; deleting a missing key is not an error.
func (s *Store) Delete(key string) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete session state: %w", err)
	}
	return nil
}

// Bind restores the layout flag for key into sess and keeps the store in
// step with the session's events from then on. Store failures are logged.
func Bind(sess *session.Session, store *Store, key string) error {
	st, ok, err := store.Load(key)
	if err != nil {
		return err
	}
	if ok {
		sess.RestoreLayout(st.ResultsVisible)
		slog.Debug("Restored session layout", "key", key, "results_visible", st.ResultsVisible, "file", st.FileName)
	}

	save := func(any) {
		record := State{ResultsVisible: sess.ResultsVisible(), UpdatedAt: sess.UpdatedAt().UTC()}
		if info, ok := sess.Info(); ok {
			record.FileName = info.FileName
		}
		if err := store.Save(key, record); err != nil {
			slog.Error("Failed to persist session state", "key", key, "err", err)
		}
	}
	sess.On(session.EventImageLoaded, save)
	sess.On(session.EventResultReady, save)
	sess.On(session.EventReset, func(any) {
		if err := store.Delete(key); err != nil {
			slog.Error("Failed to clear session state", "key", key, "err", err)
		}
	})
	return nil
}
