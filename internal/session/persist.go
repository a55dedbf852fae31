package session

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"readu-app-go/internal/crypto"
)

// StorageKey namespaces the persisted session record. It matches the key the
// mobile clients use so a record written by either side is recognizable.
const StorageKey = "readu-auth"

// Persister is the durable storage behind a Store. Implementations must be
// safe for concurrent use.
type Persister interface {
	// Load returns the stored record, or ok=false when none exists.
	Load() (raw []byte, ok bool, err error)
	Store(raw []byte) error
	Delete() error
}

// MemoryPersister keeps the record in memory. Used in tests and as a stand-in
// when no durable path is configured.
type MemoryPersister struct {
	mu  sync.Mutex
	raw []byte
	set bool
}

func (m *MemoryPersister) Load() ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.set {
		return nil, false, nil
	}
	cp := make([]byte, len(m.raw))
	copy(cp, m.raw)
	return cp, true, nil
}

func (m *MemoryPersister) Store(raw []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.raw = append([]byte(nil), raw...)
	m.set = true
	return nil
}

func (m *MemoryPersister) Delete() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.raw = nil
	m.set = false
	return nil
}

// FilePersister stores the session record in a single encrypted file,
// AES-256-CBC with a key derived from a passphrase via scrypt. The file
// holds the hex salt and the ciphertext separated by a colon, so the key can
// be re-derived on the next launch.
type FilePersister struct {
	mu         sync.Mutex
	path       string
	passphrase string
}

// NewFilePersister creates a FilePersister writing to dir/<StorageKey>.enc.
func NewFilePersister(dir, passphrase string) (*FilePersister, error) {
	if dir == "" {
		return nil, errors.New("storage directory cannot be empty")
	}
	if passphrase == "" {
		return nil, errors.New("storage passphrase cannot be empty")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &FilePersister{
		path:       filepath.Join(dir, StorageKey+".enc"),
		passphrase: passphrase,
	}, nil
}

func (f *FilePersister) Load() ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	content, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read session file: %w", err)
	}

	saltHex, cipherText, found := strings.Cut(string(content), ":")
	if !found {
		return nil, false, errors.New("malformed session file")
	}
	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return nil, false, fmt.Errorf("malformed session file salt: %w", err)
	}
	key, err := crypto.DeriveKey(f.passphrase, salt)
	if err != nil {
		return nil, false, err
	}
	plain, err := crypto.Decrypt(cipherText, key)
	if err != nil {
		return nil, false, fmt.Errorf("failed to decrypt session file: %w", err)
	}
	return []byte(plain), true, nil
}

func (f *FilePersister) Store(raw []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	salt, err := crypto.NewSalt()
	if err != nil {
		return err
	}
	key, err := crypto.DeriveKey(f.passphrase, salt)
	if err != nil {
		return err
	}
	cipherText, err := crypto.Encrypt(string(raw), key)
	if err != nil {
		return fmt.Errorf("failed to encrypt session record: %w", err)
	}

	content := hex.EncodeToString(salt) + ":" + cipherText

	// Write-then-rename so a crash mid-write cannot corrupt the record.
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(content), 0o600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("failed to replace session file: %w", err)
	}
	return nil
}

func (f *FilePersister) Delete() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete session file: %w", err)
	}
	return nil
}
