// Package mailbox fans mail operations out across independent storage
// backends. It presents a virtual two-folder mailbox (Inbox and Sent)
// on top of content-addressed blobs and routing entries: a send
// succeeds when at least one backend accepted it, a receive succeeds
// when at least one backend answered.
package mailbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"eppie-mail/go-core/internal/backend"
	"eppie-mail/go-core/internal/keys"
	"eppie-mail/go-core/internal/protector"
	"eppie-mail/go-core/internal/pubkey"
	"eppie-mail/go-core/internal/routing"
	"eppie-mail/go-core/pkg/models"
)

var (
	ErrNoBackends        = errors.New("mailbox requires at least one backend client")
	ErrNoRecipients      = errors.New("message has no recipients")
	ErrAllBackendsFailed = errors.New("all backends failed")
	ErrNoLocalAddress    = errors.New("account has no address and no key to derive one")
)

// MessageStore is the local dedup and persistence collaborator. Its
// Exists check keyed by (address, folder, hash) is what keeps a hash
// reported by several backends from landing twice.
type MessageStore interface {
	Exists(ctx context.Context, accountAddress, folder, hash string) (bool, error)
	Add(ctx context.Context, accountAddress string, msg models.DecMessage) error
	List(ctx context.Context, accountAddress, folder string, limit int) ([]models.DecMessage, error)
}

// Mailbox is the transport orchestrator for one account.
type Mailbox struct {
	account   models.Account
	keyStore  protector.KeyStorage
	clients   []backend.Client
	protector *protector.Protector
	service   *pubkey.Service
	store     MessageStore
	logger    *slog.Logger
	now       func() time.Time
}

func New(account models.Account, keyStore protector.KeyStorage, clients []backend.Client, prot *protector.Protector, service *pubkey.Service, store MessageStore, logger *slog.Logger) (*Mailbox, error) {
	if len(clients) == 0 {
		return nil, ErrNoBackends
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Mailbox{
		account:   account,
		keyStore:  keyStore,
		clients:   clients,
		protector: prot,
		service:   service,
		store:     store,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// Folders is the fixed synthetic folder set. There is no server-side
// folder concept behind it.
func (m *Mailbox) Folders() []string {
	return []string{models.FolderInbox, models.FolderSent}
}

// SendMessage encrypts the message per recipient and publishes blob
// and route entry to every backend. A recipient is delivered when at
// least one backend accepted both steps; recipients already delivered
// are not rolled back when a later one fails.
func (m *Mailbox) SendMessage(ctx context.Context, msg models.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(msg.To) == 0 {
		return ErrNoRecipients
	}

	var firstHash string
	for _, recipient := range msg.To {
		hash, err := m.sendToRecipient(ctx, recipient, msg)
		if err != nil {
			return fmt.Errorf("deliver to %q: %w", recipient, err)
		}
		if firstHash == "" {
			firstHash = hash
		}
	}

	// Sending never implies the sender has read the message.
	sent := models.DecMessage{
		Folder:         models.FolderSent,
		ContentHash:    firstHash,
		IsMarkedAsRead: false,
		ReceivedAt:     m.now(),
		Message:        msg,
	}
	localAddr, err := m.localAddress(ctx)
	if err != nil {
		return err
	}
	if err := m.store.Add(ctx, localAddr, sent); err != nil {
		return fmt.Errorf("store sent copy: %w", err)
	}
	return nil
}

func (m *Mailbox) sendToRecipient(ctx context.Context, recipient string, msg models.Message) (string, error) {
	addr, err := pubkey.ParseEmail(recipient)
	if err != nil {
		return "", err
	}
	ciphertext, err := m.protector.SignAndEncrypt(ctx, m.account, addr, msg)
	if err != nil {
		return "", err
	}
	hash := backend.ContentHash(ciphertext)

	encodedKey, err := m.service.GetEncodedByEmail(ctx, addr)
	if err != nil {
		return "", err
	}
	routingID, err := routing.ID(encodedKey)
	if err != nil {
		return "", err
	}

	if err := m.fanout(ctx, "put", func(c backend.Client) error {
		_, putErr := c.Put(ctx, ciphertext)
		return putErr
	}); err != nil {
		return "", err
	}
	if err := m.fanout(ctx, "send", func(c backend.Client) error {
		return c.Send(ctx, routingID, hash)
	}); err != nil {
		return "", err
	}
	return hash, nil
}

// GetMessages returns the folder contents, pulling new Inbox messages
// from the backends first. All backends failing the list step is a
// transport error; a single hash no backend can serve is skipped with
// a warning and the batch continues.
func (m *Mailbox) GetMessages(ctx context.Context, folder string, limit int) ([]models.DecMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	folder = models.NormalizeFolder(folder)
	localAddr, err := m.localAddress(ctx)
	if err != nil {
		return nil, err
	}
	if folder == models.FolderInbox {
		if err := m.fetchInbox(ctx, localAddr); err != nil {
			return nil, err
		}
	}
	return m.store.List(ctx, localAddr, folder, limit)
}

func (m *Mailbox) fetchInbox(ctx context.Context, localAddr string) error {
	routingID, err := m.localRoutingID(ctx, localAddr)
	if err != nil {
		return err
	}

	hashes, err := m.listUnion(ctx, routingID)
	if err != nil {
		return err
	}

	for _, hash := range hashes {
		known, err := m.store.Exists(ctx, localAddr, models.FolderInbox, hash)
		if err != nil {
			return err
		}
		if known {
			continue
		}
		blob, getErr := m.getFromAny(ctx, hash)
		if getErr != nil {
			// Known to the network but currently unreachable: skip this
			// one message, keep the batch going.
			m.logger.Warn("no backend could serve a listed hash",
				"content_hash", hash, "reason", getErr.Error())
			skippedHashes.Inc()
			continue
		}
		msg, verified, decErr := m.protector.TryVerifyAndDecrypt(ctx, m.account, blob)
		if decErr != nil {
			m.logger.Warn("listed blob does not decrypt for this account",
				"content_hash", hash, "reason", decErr.Error())
			continue
		}
		dec := models.DecMessage{
			Folder:      models.FolderInbox,
			ContentHash: hash,
			Verified:    verified,
			ReceivedAt:  m.now(),
			Message:     msg,
		}
		if err := m.store.Add(ctx, localAddr, dec); err != nil {
			return fmt.Errorf("store received message: %w", err)
		}
	}
	return nil
}

// listUnion lists every backend concurrently and merges the results,
// deduplicated, in first-seen order. It fails only when no backend
// answered at all.
func (m *Mailbox) listUnion(ctx context.Context, routingID string) ([]string, error) {
	results := make([][]string, len(m.clients))
	errs := make([]error, len(m.clients))

	var wg sync.WaitGroup
	for i, c := range m.clients {
		wg.Add(1)
		go func(i int, c backend.Client) {
			defer wg.Done()
			hashes, err := c.List(ctx, routingID)
			backend.RecordOp(c.Name(), "list", err)
			results[i], errs[i] = hashes, err
		}(i, c)
	}
	wg.Wait()

	var lastErr error
	answered := false
	seen := make(map[string]struct{})
	var union []string
	for i := range m.clients {
		if errs[i] != nil {
			lastErr = errs[i]
			continue
		}
		answered = true
		for _, h := range results[i] {
			if _, ok := seen[h]; ok {
				continue
			}
			seen[h] = struct{}{}
			union = append(union, h)
		}
	}
	if !answered {
		return nil, fmt.Errorf("%w: list: %w", ErrAllBackendsFailed, lastErr)
	}
	return union, nil
}

// getFromAny tries backends in order; one success is enough.
func (m *Mailbox) getFromAny(ctx context.Context, hash string) ([]byte, error) {
	var lastErr error
	for _, c := range m.clients {
		blob, err := c.Get(ctx, hash)
		backend.RecordOp(c.Name(), "get", err)
		if err == nil {
			return blob, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("%w: get %s: %w", ErrAllBackendsFailed, hash, lastErr)
}

// fanout runs the operation on every backend concurrently and applies
// the at-least-one-success rule.
func (m *Mailbox) fanout(ctx context.Context, op string, call func(backend.Client) error) error {
	errs := make([]error, len(m.clients))

	var wg sync.WaitGroup
	for i, c := range m.clients {
		wg.Add(1)
		go func(i int, c backend.Client) {
			defer wg.Done()
			err := call(c)
			backend.RecordOp(c.Name(), op, err)
			errs[i] = err
		}(i, c)
	}
	wg.Wait()

	var lastErr error
	for i, c := range m.clients {
		if errs[i] == nil {
			continue
		}
		lastErr = errs[i]
		m.logger.Warn("backend rejected operation",
			"backend", c.Name(), "op", op, "reason", errs[i].Error())
	}
	if lastErr != nil && !anySucceeded(errs) {
		return fmt.Errorf("%w: %s: %w", ErrAllBackendsFailed, op, lastErr)
	}
	return nil
}

func anySucceeded(errs []error) bool {
	for _, err := range errs {
		if err == nil {
			return true
		}
	}
	return false
}

// localAddress is the full email of the local account; derived from
// the master key when the account does not carry it.
func (m *Mailbox) localAddress(ctx context.Context) (string, error) {
	if strings.TrimSpace(m.account.Address) != "" {
		return m.account.Address, nil
	}
	if !m.account.HasLocalKey() {
		return "", ErrNoLocalAddress
	}
	master, err := m.keyStore.MasterKey(ctx)
	if err != nil {
		return "", err
	}
	var encoded string
	if m.account.KeyTag != "" {
		encoded, err = m.service.DeriveEncodedByTag(master, m.account.KeyTag)
	} else {
		encoded, err = m.service.DeriveEncoded(master, keys.PathForAccount(m.account.DecentralizedAccountIndex))
	}
	if err != nil {
		return "", err
	}
	return encoded + "@eppie", nil
}

func (m *Mailbox) localRoutingID(ctx context.Context, localAddr string) (string, error) {
	addr, err := pubkey.ParseEmail(localAddr)
	if err != nil {
		return "", err
	}
	encodedKey, err := m.service.GetEncodedByEmail(ctx, addr)
	if err != nil {
		return "", err
	}
	return routing.ID(encodedKey)
}
