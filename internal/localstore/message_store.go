// Package localstore is the local dedup and persistence layer for
// received and sent mail. It keys messages by (account, folder,
// content hash), keeps them append-only and snapshots to one file,
// optionally sealed with the keystore envelope.
package localstore

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"eppie-mail/go-core/internal/keystore"
	"eppie-mail/go-core/pkg/models"
)

var ErrDuplicateMessage = errors.New("message already stored for this folder")

type snapshot struct {
	Version  int                             `json:"version"`
	Accounts map[string][]models.DecMessage `json:"accounts"`
}

// MessageStore satisfies the mailbox's dedup-store contract. The
// zero-path constructor keeps everything in memory for tests and the
// mock transport.
type MessageStore struct {
	mu         sync.RWMutex
	byAccount  map[string][]models.DecMessage
	path       string
	passphrase string
}

func NewMessageStore() *MessageStore {
	return &MessageStore{byAccount: make(map[string][]models.DecMessage)}
}

// NewPersistentMessageStore loads (or creates) a snapshot file. An
// empty passphrase stores the snapshot in the clear.
func NewPersistentMessageStore(path, passphrase string) (*MessageStore, error) {
	s := &MessageStore{
		byAccount:  make(map[string][]models.DecMessage),
		path:       path,
		passphrase: passphrase,
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *MessageStore) Exists(ctx context.Context, accountAddress, folder, hash string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.byAccount[accountAddress] {
		if m.Folder == folder && m.ContentHash == hash {
			return true, nil
		}
	}
	return false, nil
}

func (s *MessageStore) Add(ctx context.Context, accountAddress string, msg models.DecMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.byAccount[accountAddress] {
		if m.Folder == msg.Folder && m.ContentHash == msg.ContentHash {
			return ErrDuplicateMessage
		}
	}
	next := append(append([]models.DecMessage(nil), s.byAccount[accountAddress]...), msg)
	if err := s.persistLocked(accountAddress, next); err != nil {
		return err
	}
	s.byAccount[accountAddress] = next
	return nil
}

func (s *MessageStore) List(ctx context.Context, accountAddress, folder string, limit int) ([]models.DecMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.DecMessage
	for _, m := range s.byAccount[accountAddress] {
		if m.Folder == folder {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ReceivedAt.After(out[j].ReceivedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MessageStore) load() error {
	if s.path == "" {
		return nil
	}
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if s.passphrase != "" {
		raw, err = keystore.Open(s.passphrase, raw)
		if err != nil {
			return err
		}
	}
	var snap snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return err
	}
	if snap.Accounts != nil {
		s.byAccount = snap.Accounts
	}
	return nil
}

// persistLocked writes the would-be state before it becomes visible,
// so a write failure leaves memory and disk consistent.
func (s *MessageStore) persistLocked(accountAddress string, next []models.DecMessage) error {
	if s.path == "" {
		return nil
	}
	accounts := make(map[string][]models.DecMessage, len(s.byAccount)+1)
	for k, v := range s.byAccount {
		accounts[k] = v
	}
	accounts[accountAddress] = next

	raw, err := json.Marshal(snapshot{Version: 1, Accounts: accounts})
	if err != nil {
		return err
	}
	if s.passphrase != "" {
		raw, err = keystore.Seal(s.passphrase, raw)
		if err != nil {
			return err
		}
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
