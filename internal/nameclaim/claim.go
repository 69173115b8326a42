// Package nameclaim canonicalizes, signs and verifies "this alias
// belongs to this key" assertions.
package nameclaim

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/btcsuite/btcd/btcec/v2/ecdsa"

	"eppie-mail/go-core/internal/address"
	"eppie-mail/go-core/internal/keys"
	"eppie-mail/go-core/pkg/models"
)

const signingPrefix = "tuvi.name.claim.v1|"

var (
	ErrEmptyName    = errors.New("claim name is empty")
	ErrNotSupported = errors.New("name claims require a decentralized account")
)

// Canonicalize folds a display name into its claim form: lower case,
// no whitespace, join punctuation stripped. "Alice" and "  a l+i ce "
// canonicalize identically.
func Canonicalize(name string) (string, error) {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if unicode.IsSpace(r) || r == '+' || r == '.' {
			continue
		}
		b.WriteRune(r)
	}
	canonical := b.String()
	if canonical == "" {
		return "", ErrEmptyName
	}
	return canonical, nil
}

// Sign produces the deterministic claim signature binding name to the
// account's derived key. Only decentralized accounts with an
// initialized account index can claim names.
func Sign(name string, account models.Account, master *keys.MasterKey) ([]byte, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrEmptyName
	}
	if account.Network != models.NetworkEppie {
		return nil, fmt.Errorf("%w: network %q", ErrNotSupported, account.Network)
	}
	if account.DecentralizedAccountIndex < 0 {
		return nil, fmt.Errorf("%w: account index is uninitialized", ErrNotSupported)
	}

	canonical, err := Canonicalize(name)
	if err != nil {
		return nil, err
	}
	priv, err := master.DeriveByPath(keys.PathForAccount(account.DecentralizedAccountIndex))
	if err != nil {
		return nil, err
	}
	sig := ecdsa.Sign(priv, claimDigest(canonical))
	return sig.Serialize(), nil
}

// VerifyV1 checks a version-1 claim signature against the key a
// Base32E address decodes to. Any malformed input verifies false; it
// never panics or errors.
func VerifyV1(name, publicKeyAddress string, signature []byte) bool {
	canonical, err := Canonicalize(name)
	if err != nil {
		return false
	}
	pub, err := address.Decode(publicKeyAddress)
	if err != nil {
		return false
	}
	sig, err := ecdsa.ParseDERSignature(signature)
	if err != nil {
		return false
	}
	return sig.Verify(claimDigest(canonical), pub)
}

func claimDigest(canonical string) []byte {
	sum := sha256.Sum256([]byte(signingPrefix + canonical))
	return sum[:]
}
