package models

import (
	"strings"
	"time"
)

// Network identifies the key network an account or address belongs to.
type Network string

const (
	NetworkEppie    Network = "eppie"
	NetworkBitcoin  Network = "bitcoin"
	NetworkEthereum Network = "ethereum"
)

// Folder names are a local convention; backends have no folder concept.
const (
	FolderInbox = "Inbox"
	FolderSent  = "Sent"
)

// Account is the local identity a mailbox operates on behalf of.
// DecentralizedAccountIndex selects the derivation path for pure
// decentralized accounts; KeyTag selects tag derivation for hybrid
// accounts. A negative index with an empty tag means the account has
// no local key material.
type Account struct {
	Address                   string  `json:"address"`
	Network                   Network `json:"network"`
	DecentralizedAccountIndex int     `json:"decentralized_account_index"`
	KeyTag                    string  `json:"key_tag,omitempty"`
}

// HasLocalKey reports whether the account can derive a secret key.
func (a Account) HasLocalKey() bool {
	return a.DecentralizedAccountIndex >= 0 || strings.TrimSpace(a.KeyTag) != ""
}

// Message is the decoded form of a mail message as the rest of the
// client sees it. Body and attachments travel encrypted end to end;
// this struct only ever holds the decrypted copy.
type Message struct {
	From        string       `json:"from"`
	To          []string     `json:"to"`
	Subject     string       `json:"subject"`
	Body        []byte       `json:"body"`
	Attachments []Attachment `json:"attachments,omitempty"`
	Date        time.Time    `json:"date"`
}

type Attachment struct {
	Name string `json:"name"`
	Data []byte `json:"data"`
}

// DecMessage is a message as stored locally: the decoded message plus
// the folder attributes and the content hash it is deduplicated by.
// Instances are append-only; they are created on successful send or on
// first receive and never mutated afterwards.
type DecMessage struct {
	Folder         string    `json:"folder"`
	ContentHash    string    `json:"content_hash"`
	IsMarkedAsRead bool      `json:"is_marked_as_read"`
	Verified       bool      `json:"verified"`
	ReceivedAt     time.Time `json:"received_at"`
	Message        Message   `json:"message"`
}

func NormalizeFolder(raw string) string {
	switch strings.TrimSpace(raw) {
	case FolderSent:
		return FolderSent
	default:
		return FolderInbox
	}
}
