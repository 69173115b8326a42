// Package pubkey resolves decentralized email addresses to public keys:
// per-network validation rules, pluggable alias/key resolvers, and the
// service facade the rest of the client goes through.
package pubkey

import (
	"errors"
	"fmt"
	"strings"

	"eppie-mail/go-core/pkg/models"
)

var (
	ErrNilEmail     = errors.New("email address is nil")
	ErrMalformed    = errors.New("malformed email address")
	ErrNoPublicKey  = errors.New("no public key found for address")
	ErrNotSupported = errors.New("network is not supported")
)

// Well-known network domains. An unknown domain still parses; the
// composite resolver rejects it as unsupported.
var networkDomains = map[string]models.Network{
	"eppie":    models.NetworkEppie,
	"bitcoin":  models.NetworkBitcoin,
	"ethereum": models.NetworkEthereum,
}

// Address is a parsed decentralized email address. Name is the alias
// or account part, KeyPart the optional embedded public key address of
// a hybrid form <name>+<key>@<domain>. A pure direct address carries
// its key in Name with an empty KeyPart.
type Address struct {
	Network models.Network
	Domain  string
	Name    string
	KeyPart string
}

// ParseEmail splits <local>@<domain> into its parts. It is purely
// syntactic; whether the local part is a key or an alias is decided at
// resolution time by the network rules.
func ParseEmail(raw string) (*Address, error) {
	raw = strings.TrimSpace(raw)
	at := strings.LastIndex(raw, "@")
	if at <= 0 || at == len(raw)-1 {
		return nil, fmt.Errorf("%w: %q", ErrMalformed, raw)
	}
	local, domain := raw[:at], strings.ToLower(raw[at+1:])

	addr := &Address{Domain: domain}
	if network, ok := networkDomains[domain]; ok {
		addr.Network = network
	} else {
		addr.Network = models.Network(domain)
	}

	if plus := strings.LastIndex(local, "+"); plus >= 0 {
		addr.Name = local[:plus]
		addr.KeyPart = local[plus+1:]
		if addr.KeyPart == "" {
			return nil, fmt.Errorf("%w: empty key segment in %q", ErrMalformed, raw)
		}
	} else {
		addr.Name = local
	}
	if addr.Name == "" && addr.KeyPart == "" {
		return nil, fmt.Errorf("%w: empty local part in %q", ErrMalformed, raw)
	}
	return addr, nil
}

// ResolutionSegment is the part of the address that resolution starts
// from: the embedded key of a hybrid address when present, otherwise
// the plain local part.
func (a *Address) ResolutionSegment() string {
	if a.KeyPart != "" {
		return a.KeyPart
	}
	return a.Name
}

// IsHybrid reports whether the address embeds a key next to an alias.
func (a *Address) IsHybrid() bool {
	return a.KeyPart != "" && a.Name != ""
}

func (a *Address) String() string {
	local := a.Name
	if a.KeyPart != "" {
		local = a.Name + "+" + a.KeyPart
	}
	return local + "@" + a.Domain
}
