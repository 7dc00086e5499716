// Package storage persists the session triple and per-device settings on the local disk.
package storage

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/smartsecurity/cli/internal/models"
)

const credentialsFile = "credentials.yaml"

// Credentials is the persisted session triple. Any field may be empty.
type Credentials struct {
	AccessToken  string       `yaml:"access_token,omitempty"`
	RefreshToken string       `yaml:"refresh_token,omitempty"`
	User         *models.User `yaml:"user,omitempty"`
}

// CredentialStore is the key/value contract for the session triple.
// LoadAll never fails: unreadable state reads as empty.
type CredentialStore interface {
	SaveAll(accessToken, refreshToken string, user *models.User) error
	SaveUser(user *models.User) error
	LoadAll() Credentials
	ClearAll() error
}

// FileStore keeps credentials in a single YAML file, replaced atomically on every write.
type FileStore struct {
	log  *slog.Logger
	path string

	mu sync.RWMutex
}

// NewFileStore creates the storage directory if needed.
func NewFileStore(log *slog.Logger, dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &FileStore{log: log, path: filepath.Join(dir, credentialsFile)}, nil
}

// SaveAll replaces the whole triple.
func (s *FileStore) SaveAll(accessToken, refreshToken string, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.log.Debug("storage.save", "key", "auth_data")
	return writeYAML(s.path, Credentials{AccessToken: accessToken, RefreshToken: refreshToken, User: user})
}

// SaveUser replaces the stored user and keeps the tokens.
func (s *FileStore) SaveUser(user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	creds := s.read()
	creds.User = user
	return writeYAML(s.path, creds)
}

// LoadAll reads the triple; errors are logged and reported as empty.
func (s *FileStore) LoadAll() Credentials {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.read()
}

// ClearAll removes the file. Clearing an empty store is not an error.
func (s *FileStore) ClearAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.log.Debug("storage.clear", "key", "auth_data")
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("clear credentials: %w", err)
	}
	return nil
}

func (s *FileStore) read() Credentials {
	var creds Credentials
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.log.Warn("storage.read.fail", "path", s.path, "err", err)
		}
		return Credentials{}
	}
	if err := yaml.Unmarshal(data, &creds); err != nil {
		s.log.Warn("storage.decode.fail", "path", s.path, "err", err)
		return Credentials{}
	}
	return creds
}

// writeYAML writes to a sibling temp file and renames it over path,
// so readers only ever see the old or the new content.
func writeYAML(path string, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

// MemoryStore is an in-process CredentialStore.
type MemoryStore struct {
	mu    sync.RWMutex
	creds Credentials

	// SaveErr, when set, is returned by every write.
	SaveErr error
}

// NewMemoryStore returns a store preloaded with creds.
func NewMemoryStore(creds Credentials) *MemoryStore {
	return &MemoryStore{creds: creds}
}

func (m *MemoryStore) SaveAll(accessToken, refreshToken string, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.creds = Credentials{AccessToken: accessToken, RefreshToken: refreshToken, User: cloneUser(user)}
	return nil
}

func (m *MemoryStore) SaveUser(user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.creds.User = cloneUser(user)
	return nil
}

func (m *MemoryStore) LoadAll() Credentials {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c := m.creds
	c.User = cloneUser(c.User)
	return c
}

func (m *MemoryStore) ClearAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creds = Credentials{}
	return nil
}

func cloneUser(u *models.User) *models.User {
	if u == nil {
		return nil
	}
	cp := *u
	return &cp
}
