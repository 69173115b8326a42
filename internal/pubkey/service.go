package pubkey

import (
	"context"

	"github.com/btcsuite/btcd/btcec/v2"

	"eppie-mail/go-core/internal/address"
	"eppie-mail/go-core/internal/keys"
	"eppie-mail/go-core/pkg/models"
)

// Service is the single entry point the rest of the client uses for
// key material: derivation plus encoding on the local side, composite
// resolution on the remote side.
type Service struct {
	composite *Composite
}

// NewService wires a composite resolver. aliasResolver serves Eppie
// name lookups; bitcoinFetcher/ethereumFetcher fetch keys from their
// networks. Any of them may be the NopResolver value.
func NewService(aliasResolver, bitcoinFetcher, ethereumFetcher Resolver) *Service {
	c := NewComposite()
	c.Register(models.NetworkEppie, NewEppieRules(), address.Decode, aliasResolver)
	c.Register(models.NetworkBitcoin, NewBitcoinRules(), nil, bitcoinFetcher)
	c.Register(models.NetworkEthereum, NewEthereumRules(), nil, ethereumFetcher)
	return &Service{composite: c}
}

// NewServiceWithComposite exists for callers that register their own
// network set.
func NewServiceWithComposite(c *Composite) *Service {
	return &Service{composite: c}
}

// DeriveEncoded derives the key for a path and encodes it in one step.
func (s *Service) DeriveEncoded(master *keys.MasterKey, path keys.Path) (string, error) {
	priv, err := master.DeriveByPath(path)
	if err != nil {
		return "", err
	}
	return address.Encode(priv.PubKey())
}

// DeriveEncodedByTag is DeriveEncoded for tag derivation.
func (s *Service) DeriveEncodedByTag(master *keys.MasterKey, tag string) (string, error) {
	priv, err := master.DeriveByTag(tag)
	if err != nil {
		return "", err
	}
	return address.Encode(priv.PubKey())
}

// GetByEmail resolves an address to its public key.
func (s *Service) GetByEmail(ctx context.Context, addr *Address) (*btcec.PublicKey, error) {
	if addr == nil {
		return nil, ErrNilEmail
	}
	return s.composite.Resolve(ctx, addr)
}

// GetEncodedByEmail resolves an address and returns the Base32E form
// of the key.
func (s *Service) GetEncodedByEmail(ctx context.Context, addr *Address) (string, error) {
	pub, err := s.GetByEmail(ctx, addr)
	if err != nil {
		return "", err
	}
	return address.Encode(pub)
}
