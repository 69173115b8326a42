// Package routing derives the backend-visible routing identifier for a
// mail address. Backends only ever see this one-way hash, never the
// public key itself.
package routing

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

// Format version prefix. Bumping it changes every routing id, so it is
// part of the wire compatibility surface.
const versionPrefix = "tuvi.dec.route.v1|"

var ErrEmptyAddress = errors.New("address is empty")

// ID hashes a Base32E address into its routing id: 64 hex characters,
// case-insensitive in the input.
func ID(publicKeyAddress string) (string, error) {
	if strings.TrimSpace(publicKeyAddress) == "" {
		return "", ErrEmptyAddress
	}
	sum := sha256.Sum256([]byte(versionPrefix + strings.ToUpper(publicKeyAddress)))
	return hex.EncodeToString(sum[:]), nil
}
