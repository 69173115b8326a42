package keystore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"eppie-mail/go-core/internal/keys"
)

var (
	ErrPassphraseRequired = errors.New("passphrase is required")
	ErrNotInitialized     = errors.New("keystore is not initialized")
	ErrLocked             = errors.New("keystore is temporarily locked after failed attempts")
)

// FileStore persists the sealed master secret in one file. It is the
// key-capable storage collaborator: callers get the derivation root,
// never the secret itself.
type FileStore struct {
	path       string
	passphrase string

	mu             sync.Mutex
	failedAttempts int
	lockedUntil    time.Time
	now            func() time.Time
}

func NewFileStore(path, passphrase string) (*FileStore, error) {
	if strings.TrimSpace(passphrase) == "" {
		return nil, ErrPassphraseRequired
	}
	return &FileStore{path: path, passphrase: passphrase, now: time.Now}, nil
}

// Initialize seals the mnemonic to disk. Generate a mnemonic first
// with keys.NewMnemonic when restoring is not intended.
func (s *FileStore) Initialize(mnemonic string) error {
	if !keys.ValidateMnemonic(mnemonic) {
		return keys.ErrInvalidMnemonic
	}
	sealed, err := sealSecret(s.passphrase, []byte(strings.TrimSpace(mnemonic)))
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(s.path, sealed, 0o600)
}

// Initialized reports whether a sealed secret exists on disk.
func (s *FileStore) Initialized() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// MasterKey opens the sealed secret and rebuilds the derivation root.
// Repeated passphrase failures lock the store with growing backoff.
func (s *FileStore) MasterKey(ctx context.Context) (*keys.MasterKey, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.lockedUntil.IsZero() && s.now().Before(s.lockedUntil) {
		return nil, ErrLocked
	}

	sealed, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotInitialized
		}
		return nil, err
	}
	plaintext, err := openSecret(s.passphrase, sealed)
	if err != nil {
		if errors.Is(err, ErrAuthFailed) {
			s.onFailedAttempt()
		}
		return nil, err
	}
	defer zeroBytes(plaintext)

	s.failedAttempts = 0
	s.lockedUntil = time.Time{}
	return keys.FromMnemonic(string(plaintext), "")
}

// ChangePassphrase reseals the secret under a new passphrase.
func (s *FileStore) ChangePassphrase(newPassphrase string) error {
	if strings.TrimSpace(newPassphrase) == "" {
		return ErrPassphraseRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	sealed, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotInitialized
		}
		return err
	}
	plaintext, err := openSecret(s.passphrase, sealed)
	if err != nil {
		return err
	}
	defer zeroBytes(plaintext)

	resealed, err := sealSecret(newPassphrase, plaintext)
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.path, resealed, 0o600); err != nil {
		return err
	}
	s.passphrase = newPassphrase
	return nil
}

func (s *FileStore) onFailedAttempt() {
	s.failedAttempts++
	// 1s, 2s, 4s... capped at 32s.
	shift := s.failedAttempts - 1
	if shift > 5 {
		shift = 5
	}
	s.lockedUntil = s.now().Add(time.Second * time.Duration(1<<shift))
}
