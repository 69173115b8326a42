// Package address implements Base32E, the text form of a compressed
// secp256k1 public key used as a decentralized mail address.
package address

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
)

// Base32E maps a 33-byte compressed curve point to exactly 53 characters:
// 265 bits, the leading bit a zero pad. The alphabet drops 'l', 'o', '0'
// and '1' to keep addresses unambiguous when read aloud or retyped.
const (
	EncodedLength = 53
	alphabet      = "abcdefghijkmnpqrstuvwxyz23456789"

	compressedKeyLength = 33
)

var (
	ErrNilKey          = errors.New("public key is nil")
	ErrInvalidLength   = errors.New("address must be exactly 53 characters")
	ErrInvalidAlphabet = errors.New("address contains a character outside the Base32E alphabet")
	ErrInvalidPrefix   = errors.New("address does not decode to a compressed public key")
)

var decodeTable = buildDecodeTable()

func buildDecodeTable() [256]int8 {
	var t [256]int8
	for i := range t {
		t[i] = -1
	}
	for i := 0; i < len(alphabet); i++ {
		c := alphabet[i]
		t[c] = int8(i)
		// Decoding is case-insensitive; encoding is canonical lowercase.
		if c >= 'a' && c <= 'z' {
			t[c-'a'+'A'] = int8(i)
		}
	}
	return t
}

// Encode renders the compressed form of pub as a Base32E address.
func Encode(pub *btcec.PublicKey) (string, error) {
	if pub == nil {
		return "", ErrNilKey
	}
	raw := pub.SerializeCompressed()
	if len(raw) != compressedKeyLength {
		return "", fmt.Errorf("%w: unexpected point size %d", ErrInvalidPrefix, len(raw))
	}

	out := make([]byte, 0, EncodedLength)
	acc := uint32(0)
	nbits := 1 // leading zero pad bit
	for _, b := range raw {
		acc = acc<<8 | uint32(b)
		nbits += 8
		for nbits >= 5 {
			nbits -= 5
			out = append(out, alphabet[(acc>>nbits)&31])
		}
	}
	return string(out), nil
}

// Decode parses a Base32E address back into a public key. It accepts
// either letter case and fails on anything that is not a well-formed
// compressed point on the curve.
func Decode(s string) (*btcec.PublicKey, error) {
	if len(s) != EncodedLength {
		return nil, ErrInvalidLength
	}

	raw := make([]byte, 0, compressedKeyLength)
	var acc uint32
	var nbits int
	for i := 0; i < len(s); i++ {
		v := decodeTable[s[i]]
		if v < 0 {
			return nil, ErrInvalidAlphabet
		}
		if i == 0 {
			if v>>4 != 0 {
				return nil, ErrInvalidPrefix
			}
			acc = uint32(v & 15)
			nbits = 4
			continue
		}
		acc = acc<<5 | uint32(v)
		nbits += 5
		for nbits >= 8 {
			nbits -= 8
			raw = append(raw, byte(acc>>nbits))
		}
	}

	if raw[0] != 0x02 && raw[0] != 0x03 {
		return nil, ErrInvalidPrefix
	}
	pub, err := btcec.ParsePubKey(raw)
	if err != nil {
		return nil, fmt.Errorf("parse curve point: %w", err)
	}
	return pub, nil
}

// IsWellFormed reports whether s has the length and alphabet of a
// Base32E address. It never touches the curve; semantic validation is
// Decode's job.
func IsWellFormed(s string) bool {
	if len(s) != EncodedLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		if decodeTable[s[i]] < 0 {
			return false
		}
	}
	return true
}
