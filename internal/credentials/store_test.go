package credentials

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/zalando/go-keyring"
)

// fakeKeyring is an in-memory keyring; failing=true simulates a host
// without a usable secret service.
type fakeKeyring struct {
	store   map[string]string
	failing bool
}

func (f *fakeKeyring) Set(service, user, password string) error {
	if f.failing {
		return errors.New("keyring unavailable")
	}
	if f.store == nil {
		f.store = map[string]string{}
	}
	f.store[service+":"+user] = password
	return nil
}

func (f *fakeKeyring) Get(service, user string) (string, error) {
	if f.failing {
		return "", errors.New("keyring unavailable")
	}
	v, ok := f.store[service+":"+user]
	if !ok {
		return "", keyring.ErrNotFound
	}
	return v, nil
}

func newTestStore(t *testing.T, ring systemKeyring) *Store {
	t.Helper()
	vault, err := newFileVault(t.TempDir())
	if err != nil {
		t.Fatalf("newFileVault: %v", err)
	}
	return &Store{ring: ring, vault: vault}
}

func TestStoreKeyringRoundTrip(t *testing.T) {
	s := newTestStore(t, &fakeKeyring{})
	if err := s.Set("test_user", "secret123"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	value, found, err := s.Get("test_user")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !found || value != "secret123" {
		t.Errorf("expected secret123, got %q (found=%v)", value, found)
	}
}

func TestStoreUnknownCredential(t *testing.T) {
	s := newTestStore(t, &fakeKeyring{})
	_, found, err := s.Get("unknown")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if found {
		t.Error("unknown id should not be found")
	}
}

func TestStoreFallsBackWhenKeyringFails(t *testing.T) {
	s := newTestStore(t, &fakeKeyring{failing: true})
	if err := s.Set("fallback_user", "fallback_pass"); err != nil {
		t.Fatalf("Set should fall back to the vault: %v", err)
	}
	value, found, err := s.Get("fallback_user")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !found || value != "fallback_pass" {
		t.Errorf("expected fallback_pass from vault, got %q (found=%v)", value, found)
	}
}

func TestStoreRequiresID(t *testing.T) {
	s := newTestStore(t, &fakeKeyring{})
	if err := s.Set("", "x"); err == nil {
		t.Error("empty id should be rejected by Set")
	}
	if _, _, err := s.Get(""); err == nil {
		t.Error("empty id should be rejected by Get")
	}
}

func TestVaultPersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	v1, err := newFileVault(dir)
	if err != nil {
		t.Fatalf("newFileVault: %v", err)
	}
	if err := v1.set("id", "value"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := v1.set("other", "second"); err != nil {
		t.Fatalf("set: %v", err)
	}

	v2, err := newFileVault(dir)
	if err != nil {
		t.Fatalf("newFileVault: %v", err)
	}
	value, found, err := v2.get("id")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !found || value != "value" {
		t.Errorf("expected persisted value, got %q (found=%v)", value, found)
	}
}

func TestVaultFilesAreUserOnly(t *testing.T) {
	dir := t.TempDir()
	v, err := newFileVault(dir)
	if err != nil {
		t.Fatalf("newFileVault: %v", err)
	}
	if err := v.set("id", "value"); err != nil {
		t.Fatalf("set: %v", err)
	}
	for _, name := range []string{identityFile, dataFile} {
		info, err := os.Stat(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("stat %s: %v", name, err)
		}
		if perm := info.Mode().Perm(); perm != 0o600 {
			t.Errorf("%s permissions = %o, want 0600", name, perm)
		}
	}
}

func TestVaultFileIsEncrypted(t *testing.T) {
	dir := t.TempDir()
	v, err := newFileVault(dir)
	if err != nil {
		t.Fatalf("newFileVault: %v", err)
	}
	if err := v.set("id", "hunter2-plaintext-marker"); err != nil {
		t.Fatalf("set: %v", err)
	}
	raw, err := os.ReadFile(filepath.Join(dir, dataFile))
	if err != nil {
		t.Fatalf("read vault: %v", err)
	}
	if string(raw) == "" {
		t.Fatal("vault file is empty")
	}
	if containsSub(raw, []byte("hunter2-plaintext-marker")) {
		t.Error("secret stored in plaintext")
	}
}

func TestVaultRecoversFromCorruption(t *testing.T) {
	dir := t.TempDir()
	v, err := newFileVault(dir)
	if err != nil {
		t.Fatalf("newFileVault: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, dataFile), []byte("garbage"), 0o600); err != nil {
		t.Fatalf("corrupt vault: %v", err)
	}
	if err := v.set("id", "fresh"); err != nil {
		t.Fatalf("set should overwrite a corrupt vault: %v", err)
	}
	value, found, err := v.get("id")
	if err != nil || !found || value != "fresh" {
		t.Errorf("expected fresh value after recovery, got %q (found=%v, err=%v)", value, found, err)
	}
}

func containsSub(haystack, needle []byte) bool {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if string(haystack[i:i+len(needle)]) == string(needle) {
			return true
		}
	}
	return false
}
