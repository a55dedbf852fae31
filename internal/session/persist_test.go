package session

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFilePersisterRoundTrip(t *testing.T) {
	dir := t.TempDir()
	p, err := NewFilePersister(dir, "correct horse battery staple")
	if err != nil {
		t.Fatalf("NewFilePersister: %v", err)
	}

	record := []byte(`{"uid":"uid-1","rememberMe":true}`)
	if err := p.Store(record); err != nil {
		t.Fatalf("Store: %v", err)
	}

	got, ok, err := p.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !ok {
		t.Fatal("Load: expected a stored record")
	}
	if string(got) != string(record) {
		t.Errorf("Load = %q, want %q", got, record)
	}

	// The on-disk form must not leak the plaintext.
	onDisk, err := os.ReadFile(filepath.Join(dir, StorageKey+".enc"))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(onDisk), "uid-1") {
		t.Error("session file contains plaintext record")
	}
}

func TestFilePersisterWrongPassphrase(t *testing.T) {
	dir := t.TempDir()
	p, err := NewFilePersister(dir, "passphrase-one")
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Store([]byte(`{"uid":"uid-1"}`)); err != nil {
		t.Fatal(err)
	}

	q, err := NewFilePersister(dir, "passphrase-two")
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := q.Load(); err == nil {
		t.Fatal("Load with wrong passphrase should fail")
	}
}

func TestFilePersisterMissingFile(t *testing.T) {
	p, err := NewFilePersister(t.TempDir(), "pass")
	if err != nil {
		t.Fatal(err)
	}
	_, ok, err := p.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ok {
		t.Fatal("Load on empty dir should report no record")
	}
}

func TestFilePersisterDelete(t *testing.T) {
	p, err := NewFilePersister(t.TempDir(), "pass")
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Store([]byte("{}")); err != nil {
		t.Fatal(err)
	}
	if err := p.Delete(); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := p.Load(); ok {
		t.Fatal("record should be gone after Delete")
	}
	// Deleting again is a no-op, not an error.
	if err := p.Delete(); err != nil {
		t.Fatalf("second Delete: %v", err)
	}
}

func TestFilePersisterMalformedFile(t *testing.T) {
	dir := t.TempDir()
	p, err := NewFilePersister(dir, "pass")
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, StorageKey+".enc"), []byte("garbage without separator"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, _, err := p.Load(); err == nil {
		t.Fatal("Load of malformed file should fail")
	}
}

func TestNewFilePersisterValidation(t *testing.T) {
	if _, err := NewFilePersister("", "pass"); err == nil {
		t.Error("empty dir should be rejected")
	}
	if _, err := NewFilePersister(t.TempDir(), ""); err == nil {
		t.Error("empty passphrase should be rejected")
	}
}
