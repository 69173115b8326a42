// Package protector encrypts, decrypts and signs mail payloads bound
// to derived keys. Raw payloads use an ECIES construction over
// secp256k1 with XChaCha20-Poly1305; structured messages add an
// optional detached signature.
package protector

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"eppie-mail/go-core/internal/keys"
	"eppie-mail/go-core/internal/pubkey"
	"eppie-mail/go-core/pkg/models"
)

const (
	wireVersion = 0x01

	hkdfInfoECIES = "eppie/protector/ecies/v1"

	ephemeralKeyLength = 33
	// version byte + ephemeral key + XChaCha20 nonce + Poly1305 tag
	minCiphertextLength = 1 + ephemeralKeyLength + chacha20poly1305.NonceSizeX + 16
)

var (
	ErrEmptyPlaintext     = errors.New("plaintext is empty")
	ErrCiphertextTooShort = errors.New("ciphertext is truncated")
	ErrUnsupportedVersion = errors.New("unsupported ciphertext version")
)

// KeyStorage hands out the master key on demand. The secret itself is
// owned by the storage layer; the protector only derives from it.
type KeyStorage interface {
	MasterKey(ctx context.Context) (*keys.MasterKey, error)
}

// Protector binds encryption to the public key service and the local
// key storage. It holds no mutable state; every call is pure given its
// inputs.
type Protector struct {
	service *pubkey.Service
	store   KeyStorage
}

func New(service *pubkey.Service, store KeyStorage) *Protector {
	return &Protector{service: service, store: store}
}

// Encrypt resolves the recipient's key and seals the plaintext to it.
func (p *Protector) Encrypt(ctx context.Context, recipient *pubkey.Address, plaintext []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(plaintext) == 0 {
		return nil, ErrEmptyPlaintext
	}
	recipientKey, err := p.service.GetByEmail(ctx, recipient)
	if err != nil {
		return nil, err
	}
	return sealTo(recipientKey, plaintext)
}

// Decrypt derives the account's secret key and opens the ciphertext.
func (p *Protector) Decrypt(ctx context.Context, account models.Account, ciphertext []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	priv, err := p.accountKey(ctx, account)
	if err != nil {
		return nil, err
	}
	return openWith(priv, ciphertext)
}

func (p *Protector) accountKey(ctx context.Context, account models.Account) (*btcec.PrivateKey, error) {
	master, err := p.store.MasterKey(ctx)
	if err != nil {
		return nil, err
	}
	return master.KeyForAccount(account)
}

func sealTo(recipientKey *btcec.PublicKey, plaintext []byte) ([]byte, error) {
	eph, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, err
	}
	ephPub := eph.PubKey().SerializeCompressed()

	key, err := sharedEncryptionKey(eph, recipientKey)
	if err != nil {
		return nil, err
	}
	defer zeroBytes(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}

	out := make([]byte, 0, minCiphertextLength+len(plaintext))
	out = append(out, wireVersion)
	out = append(out, ephPub...)
	out = append(out, nonce...)
	// The ephemeral key doubles as associated data so it cannot be
	// swapped without breaking the tag.
	out = aead.Seal(out, nonce, plaintext, ephPub)
	return out, nil
}

func openWith(priv *btcec.PrivateKey, ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < minCiphertextLength {
		return nil, ErrCiphertextTooShort
	}
	if ciphertext[0] != wireVersion {
		return nil, fmt.Errorf("%w: 0x%02x", ErrUnsupportedVersion, ciphertext[0])
	}
	ephRaw := ciphertext[1 : 1+ephemeralKeyLength]
	nonce := ciphertext[1+ephemeralKeyLength : 1+ephemeralKeyLength+chacha20poly1305.NonceSizeX]
	box := ciphertext[1+ephemeralKeyLength+chacha20poly1305.NonceSizeX:]

	ephPub, err := btcec.ParsePubKey(ephRaw)
	if err != nil {
		return nil, fmt.Errorf("parse ephemeral key: %w", err)
	}
	key, err := sharedEncryptionKey(priv, ephPub)
	if err != nil {
		return nil, err
	}
	defer zeroBytes(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	plaintext, err := aead.Open(nil, nonce, box, ephRaw)
	if err != nil {
		return nil, fmt.Errorf("open ciphertext: %w", err)
	}
	return plaintext, nil
}

func sharedEncryptionKey(priv *btcec.PrivateKey, pub *btcec.PublicKey) ([]byte, error) {
	shared := secp256k1.GenerateSharedSecret(priv, pub)
	defer zeroBytes(shared)

	reader := hkdf.New(sha256.New, shared, nil, []byte(hkdfInfoECIES))
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, err
	}
	return key, nil
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
