package pubkey

import (
	"crypto/sha256"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/mr-tron/base58/base58"
	"golang.org/x/crypto/sha3"

	"eppie-mail/go-core/internal/address"
)

// Rules validates an address segment for one network. Syntactic
// validation is cheap and must never touch cryptography; semantic
// validation may decode curve points or verify checksums. TryValidate
// callers rely on the syntax check gating the semantic one.
type Rules interface {
	IsSyntacticallyValid(segment string) bool
	TrySemanticValidate(segment string) bool
}

// TryValidate is the short-circuit combination of both checks. The
// semantic check is never invoked on syntactically invalid input.
func TryValidate(r Rules, segment string) bool {
	return r.IsSyntacticallyValid(segment) && r.TrySemanticValidate(segment)
}

// EppieRules validates Base32E public key addresses. The decode hook
// exists so tests can assert the syntax path never reaches the curve.
type EppieRules struct {
	decode func(string) (*btcec.PublicKey, error)
}

func NewEppieRules() *EppieRules {
	return &EppieRules{decode: address.Decode}
}

func (r *EppieRules) IsSyntacticallyValid(segment string) bool {
	return address.IsWellFormed(segment)
}

func (r *EppieRules) TrySemanticValidate(segment string) bool {
	_, err := r.decode(segment)
	return err == nil
}

// BitcoinRules validates legacy base58check addresses. Bitcoin
// addresses are key hashes, not keys, so they are never decoded
// directly; a remote fetcher resolves them instead.
type BitcoinRules struct{}

func NewBitcoinRules() *BitcoinRules { return &BitcoinRules{} }

const base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

func (r *BitcoinRules) IsSyntacticallyValid(segment string) bool {
	if len(segment) < 26 || len(segment) > 35 {
		return false
	}
	for i := 0; i < len(segment); i++ {
		if !strings.ContainsRune(base58Alphabet, rune(segment[i])) {
			return false
		}
	}
	return true
}

func (r *BitcoinRules) TrySemanticValidate(segment string) bool {
	raw, err := base58.Decode(segment)
	if err != nil || len(raw) != 25 {
		return false
	}
	payload, checksum := raw[:21], raw[21:]
	first := sha256.Sum256(payload)
	second := sha256.Sum256(first[:])
	for i := 0; i < 4; i++ {
		if checksum[i] != second[i] {
			return false
		}
	}
	return true
}

// EthereumRules validates 0x-prefixed account addresses with the
// EIP-55 mixed-case checksum.
type EthereumRules struct{}

func NewEthereumRules() *EthereumRules { return &EthereumRules{} }

func (r *EthereumRules) IsSyntacticallyValid(segment string) bool {
	if len(segment) != 42 || segment[0] != '0' || segment[1] != 'x' {
		return false
	}
	for i := 2; i < len(segment); i++ {
		c := segment[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') && (c < 'A' || c > 'F') {
			return false
		}
	}
	return true
}

func (r *EthereumRules) TrySemanticValidate(segment string) bool {
	if len(segment) < 2 {
		return false
	}
	hexPart := segment[2:]
	lower := strings.ToLower(hexPart)
	if hexPart == lower || hexPart == strings.ToUpper(hexPart) {
		// No checksum encoded; nothing further to verify.
		return true
	}

	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(lower))
	sum := h.Sum(nil)
	for i := 0; i < len(hexPart); i++ {
		c := hexPart[i]
		if c >= '0' && c <= '9' {
			continue
		}
		nibble := sum[i/2]
		if i%2 == 0 {
			nibble >>= 4
		}
		nibble &= 0x0f
		if nibble >= 8 {
			if c < 'A' || c > 'F' {
				return false
			}
		} else {
			if c < 'a' || c > 'f' {
				return false
			}
		}
	}
	return true
}
