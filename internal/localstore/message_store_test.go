package localstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"eppie-mail/go-core/pkg/models"
)

func decMsg(folder, hash string, at time.Time) models.DecMessage {
	return models.DecMessage{
		Folder:      folder,
		ContentHash: hash,
		ReceivedAt:  at,
		Message:     models.Message{Subject: hash, Body: []byte("body-" + hash)},
	}
}

func TestAddExistsList(t *testing.T) {
	s := NewMessageStore()
	ctx := context.Background()
	addr := "someone@eppie"
	base := time.Unix(1700000000, 0)

	if ok, err := s.Exists(ctx, addr, models.FolderInbox, "h1"); err != nil || ok {
		t.Fatalf("fresh store: ok=%v err=%v", ok, err)
	}
	if err := s.Add(ctx, addr, decMsg(models.FolderInbox, "h1", base)); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if err := s.Add(ctx, addr, decMsg(models.FolderInbox, "h2", base.Add(time.Minute))); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if ok, err := s.Exists(ctx, addr, models.FolderInbox, "h1"); err != nil || !ok {
		t.Fatalf("h1 should exist: ok=%v err=%v", ok, err)
	}
	if ok, _ := s.Exists(ctx, addr, models.FolderSent, "h1"); ok {
		t.Fatal("dedup must be per folder")
	}

	msgs, err := s.List(ctx, addr, models.FolderInbox, 0)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].ContentHash != "h2" {
		t.Fatal("list must order newest first")
	}

	limited, err := s.List(ctx, addr, models.FolderInbox, 1)
	if err != nil {
		t.Fatalf("limited list failed: %v", err)
	}
	if len(limited) != 1 {
		t.Fatalf("expected 1 message with limit, got %d", len(limited))
	}
}

func TestAddRejectsDuplicate(t *testing.T) {
	s := NewMessageStore()
	ctx := context.Background()
	msg := decMsg(models.FolderInbox, "h1", time.Now())

	if err := s.Add(ctx, "a@eppie", msg); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if err := s.Add(ctx, "a@eppie", msg); !errors.Is(err, ErrDuplicateMessage) {
		t.Fatalf("expected ErrDuplicateMessage, got %v", err)
	}
	// Same hash under a different account is a different message.
	if err := s.Add(ctx, "b@eppie", msg); err != nil {
		t.Fatalf("add for other account failed: %v", err)
	}
}

func TestPersistentRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "messages.json")
	ctx := context.Background()

	s1, err := NewPersistentMessageStore(path, "")
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if err := s1.Add(ctx, "a@eppie", decMsg(models.FolderInbox, "h1", time.Now())); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	s2, err := NewPersistentMessageStore(path, "")
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	if ok, err := s2.Exists(ctx, "a@eppie", models.FolderInbox, "h1"); err != nil || !ok {
		t.Fatalf("reloaded store lost the message: ok=%v err=%v", ok, err)
	}
}

func TestEncryptedPersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "messages.enc")
	ctx := context.Background()

	s1, err := NewPersistentMessageStore(path, "store-passphrase")
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if err := s1.Add(ctx, "a@eppie", decMsg(models.FolderInbox, "h1", time.Now())); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	if _, err := NewPersistentMessageStore(path, "wrong-passphrase"); err == nil {
		t.Fatal("wrong passphrase must not open the snapshot")
	}

	s2, err := NewPersistentMessageStore(path, "store-passphrase")
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	if ok, err := s2.Exists(ctx, "a@eppie", models.FolderInbox, "h1"); err != nil || !ok {
		t.Fatalf("reloaded store lost the message: ok=%v err=%v", ok, err)
	}
}

func TestCancelledContext(t *testing.T) {
	s := NewMessageStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.Exists(ctx, "a@eppie", models.FolderInbox, "h"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if err := s.Add(ctx, "a@eppie", decMsg(models.FolderInbox, "h", time.Now())); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
