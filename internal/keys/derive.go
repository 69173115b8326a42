// Package keys turns one master secret into per-purpose secp256k1 key
// pairs, either by a hierarchical index path or by an opaque tag.
package keys

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"golang.org/x/crypto/hkdf"

	"eppie-mail/go-core/pkg/models"
)

const (
	// CoinTypeEppie is the default coin type for decentralized mail
	// accounts. Channel 0 carries the account's mail keys.
	CoinTypeEppie = 3630

	hkdfInfoTag = "eppie/keys/tag/v1|"
)

var (
	ErrNilSeed      = errors.New("seed is nil or empty")
	ErrNilMaster    = errors.New("master key is nil")
	ErrEmptyTag     = errors.New("derivation tag is empty")
	ErrNegativePath = errors.New("derivation path components must be non-negative")
	ErrNoLocalKey   = errors.New("account has no local key material")
)

// Path addresses a key inside the hierarchy. CoinType and Account are
// derived hardened, Channel and Index are not.
type Path struct {
	CoinType int
	Account  int
	Channel  int
	Index    int
}

// PathForAccount is the conventional mail-key path for a decentralized
// account index.
func PathForAccount(accountIndex int) Path {
	return Path{CoinType: CoinTypeEppie, Account: accountIndex, Channel: 0, Index: 0}
}

// MasterKey is the root of the derivation hierarchy. It is recomputed
// from the stored seed on demand and never serialized by this package.
type MasterKey struct {
	root *hdkeychain.ExtendedKey
}

// FromSeed builds the master key from raw seed bytes.
func FromSeed(seed []byte) (*MasterKey, error) {
	if len(seed) == 0 {
		return nil, ErrNilSeed
	}
	root, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, fmt.Errorf("build master key: %w", err)
	}
	return &MasterKey{root: root}, nil
}

// DeriveByPath derives a key pair for the given path. Same path, same
// key, for the lifetime of the scheme version.
func (m *MasterKey) DeriveByPath(path Path) (*btcec.PrivateKey, error) {
	if m == nil || m.root == nil {
		return nil, ErrNilMaster
	}
	if path.CoinType < 0 || path.Account < 0 || path.Channel < 0 || path.Index < 0 {
		return nil, ErrNegativePath
	}

	steps := []uint32{
		hdkeychain.HardenedKeyStart + uint32(path.CoinType),
		hdkeychain.HardenedKeyStart + uint32(path.Account),
		uint32(path.Channel),
		uint32(path.Index),
	}
	node := m.root
	for _, step := range steps {
		child, err := node.Derive(step)
		if err != nil {
			return nil, fmt.Errorf("derive step %d: %w", step, err)
		}
		node = child
	}
	priv, err := node.ECPrivKey()
	if err != nil {
		return nil, fmt.Errorf("extract private key: %w", err)
	}
	return priv, nil
}

// DeriveByTag derives a key pair from an opaque tag via HKDF-SHA256
// over the master's key material. Distinct tags yield unrelated keys.
func (m *MasterKey) DeriveByTag(tag string) (*btcec.PrivateKey, error) {
	if m == nil || m.root == nil {
		return nil, ErrNilMaster
	}
	if strings.TrimSpace(tag) == "" {
		return nil, ErrEmptyTag
	}

	rootPriv, err := m.root.ECPrivKey()
	if err != nil {
		return nil, fmt.Errorf("extract master key material: %w", err)
	}
	secret := rootPriv.Serialize()
	defer zeroBytes(secret)

	reader := hkdf.New(sha256.New, secret, nil, []byte(hkdfInfoTag+tag))
	scalar := make([]byte, 32)
	if _, err := io.ReadFull(reader, scalar); err != nil {
		return nil, err
	}
	defer zeroBytes(scalar)

	priv, _ := btcec.PrivKeyFromBytes(scalar)
	return priv, nil
}

// KeyForAccount picks the account's derivation: the stored account
// index for pure decentralized accounts, the tag for hybrid ones.
func (m *MasterKey) KeyForAccount(account models.Account) (*btcec.PrivateKey, error) {
	if tag := strings.TrimSpace(account.KeyTag); tag != "" {
		return m.DeriveByTag(tag)
	}
	if account.DecentralizedAccountIndex >= 0 {
		return m.DeriveByPath(PathForAccount(account.DecentralizedAccountIndex))
	}
	return nil, ErrNoLocalKey
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
