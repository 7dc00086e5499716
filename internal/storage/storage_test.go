package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/smartsecurity/cli/internal/logging"
	"github.com/smartsecurity/cli/internal/models"
)

func testUser() *models.User {
	ts := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	return &models.User{
		ID:        "u-1",
		Username:  "ana",
		Email:     "ana@example.com",
		FirstName: "Ana",
		LastName:  "Lopez",
		CreatedAt: ts,
		UpdatedAt: ts,
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	s, err := NewFileStore(logging.Discard(), t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	u := testUser()
	if err := s.SaveAll("access-1", "refresh-1", u); err != nil {
		t.Fatalf("SaveAll: %v", err)
	}

	got := s.LoadAll()
	if got.AccessToken != "access-1" || got.RefreshToken != "refresh-1" {
		t.Fatalf("tokens mismatch: %+v", got)
	}
	if got.User == nil || got.User.ID != u.ID || got.User.Username != u.Username || !got.User.CreatedAt.Equal(u.CreatedAt) {
		t.Fatalf("user mismatch: %+v", got.User)
	}
}

func TestFileStoreEmptyAndClear(t *testing.T) {
	s, err := NewFileStore(logging.Discard(), t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	if got := s.LoadAll(); got.AccessToken != "" || got.User != nil {
		t.Fatalf("expected empty store, got %+v", got)
	}
	if err := s.ClearAll(); err != nil {
		t.Fatalf("ClearAll on empty store: %v", err)
	}

	if err := s.SaveAll("a", "r", testUser()); err != nil {
		t.Fatalf("SaveAll: %v", err)
	}
	if err := s.ClearAll(); err != nil {
		t.Fatalf("ClearAll: %v", err)
	}
	if got := s.LoadAll(); got.AccessToken != "" || got.RefreshToken != "" || got.User != nil {
		t.Fatalf("expected cleared store, got %+v", got)
	}
}

func TestFileStoreCorruptFileReadsEmpty(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, credentialsFile), []byte("access_token: [unterminated"), 0o600); err != nil {
		t.Fatalf("seed: %v", err)
	}
	s, err := NewFileStore(logging.Discard(), dir)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if got := s.LoadAll(); got.AccessToken != "" {
		t.Fatalf("expected fail-open empty read, got %+v", got)
	}
}

func TestFileStoreSaveUserKeepsTokens(t *testing.T) {
	s, err := NewFileStore(logging.Discard(), t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if err := s.SaveAll("a", "r", testUser()); err != nil {
		t.Fatalf("SaveAll: %v", err)
	}

	u := testUser()
	u.FirstName = "Anabel"
	if err := s.SaveUser(u); err != nil {
		t.Fatalf("SaveUser: %v", err)
	}

	got := s.LoadAll()
	if got.AccessToken != "a" || got.RefreshToken != "r" || got.User.FirstName != "Anabel" {
		t.Fatalf("unexpected: %+v", got)
	}
}

func TestFileStoreWriteFailurePropagates(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(logging.Discard(), dir)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	// A directory in place of the file makes the rename fail.
	if err := os.Mkdir(filepath.Join(dir, credentialsFile), 0o700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, credentialsFile, "x"), []byte("x"), 0o600); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := s.SaveAll("a", "r", testUser()); err == nil {
		t.Fatalf("expected write error")
	}
}

func TestMemoryStoreSaveErr(t *testing.T) {
	m := NewMemoryStore(Credentials{AccessToken: "old"})
	m.SaveErr = errors.New("disk full")
	if err := m.SaveAll("new", "r", nil); err == nil {
		t.Fatalf("expected error")
	}
	if got := m.LoadAll(); got.AccessToken != "old" {
		t.Fatalf("store changed on failed write: %+v", got)
	}
}

func TestDeviceModesDefaultAndSet(t *testing.T) {
	d, err := NewDeviceModes(logging.Discard(), t.TempDir())
	if err != nil {
		t.Fatalf("NewDeviceModes: %v", err)
	}

	if got := d.Get("AA:BB:CC:DD:EE:FF"); got != models.DeviceModeAutomatic {
		t.Fatalf("default mode=%q", got)
	}
	if err := d.Set("AA:BB:CC:DD:EE:FF", models.DeviceModeDisabled); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := d.Set("11:22:33:44:55:66", models.DeviceModeActive); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got := d.Get("AA:BB:CC:DD:EE:FF"); got != models.DeviceModeDisabled {
		t.Fatalf("mode=%q", got)
	}
	if all := d.All(); len(all) != 2 {
		t.Fatalf("All=%v", all)
	}

	if err := d.Clear("AA:BB:CC:DD:EE:FF"); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if got := d.Get("AA:BB:CC:DD:EE:FF"); got != models.DeviceModeAutomatic {
		t.Fatalf("mode after clear=%q", got)
	}
}

func TestDeviceModesCorruptFileIsNotOverwritten(t *testing.T) {
	dir := t.TempDir()
	d, err := NewDeviceModes(logging.Discard(), dir)
	if err != nil {
		t.Fatalf("NewDeviceModes: %v", err)
	}
	path := filepath.Join(dir, deviceModesFile)
	corrupt := []byte("AA:BB:CC:DD:EE:FF: [disabled\n")
	if err := os.WriteFile(path, corrupt, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	if got := d.Get("AA:BB:CC:DD:EE:FF"); got != models.DeviceModeAutomatic {
		t.Fatalf("mode from corrupt file=%q", got)
	}
	if err := d.Set("11:22:33:44:55:66", models.DeviceModeActive); err == nil {
		t.Fatalf("Set over corrupt file succeeded")
	}
	if err := d.Clear("AA:BB:CC:DD:EE:FF"); err == nil {
		t.Fatalf("Clear over corrupt file succeeded")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != string(corrupt) {
		t.Fatalf("corrupt file rewritten: %q", data)
	}
}
