package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"jansarthi-be/models"
)

// Session is what a client keeps between runs: the token pair and the
// cached user.
type Session struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	User         *models.User `json:"user,omitempty"`
}

func (s Session) LoggedIn() bool { return s.AccessToken != "" }

// TokenStore persists the session. Load on an empty store returns a zero
// Session and no error.
type TokenStore interface {
	Load() (Session, error)
	Save(Session) error
	Clear() error
}

type MemoryStore struct {
	mu sync.Mutex
	s  Session
}

func (m *MemoryStore) Load() (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.s, nil
}

func (m *MemoryStore) Save(s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.s = s
	return nil
}

func (m *MemoryStore) Clear() error {
	return m.Save(Session{})
}

// FileStore keeps the session as JSON in a file readable only by the
// owner.
type FileStore struct {
	Path string
	mu   sync.Mutex
}

// DefaultSessionPath is ~/.jansarthi/session.json.
func DefaultSessionPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not find the user's home directory: %w", err)
	}
	return filepath.Join(home, ".jansarthi", "session.json"), nil
}

func (f *FileStore) Load() (Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return Session{}, nil
	}
	if err != nil {
		return Session{}, fmt.Errorf("read session: %w", err)
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return Session{}, fmt.Errorf("decode session %s: %w", f.Path, err)
	}
	return s, nil
}

func (f *FileStore) Save(s Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	tmp := f.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return os.Rename(tmp, f.Path)
}

func (f *FileStore) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.Remove(f.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}
