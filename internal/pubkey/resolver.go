package pubkey

import (
	"context"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"

	"eppie-mail/go-core/internal/platform/ratelimiter"
	"eppie-mail/go-core/pkg/models"
)

// Resolver looks a name or foreign-network address up and returns the
// raw compressed public key. found=false with a nil error is the
// normal "nobody registered this" outcome, distinct from a transport
// or lookup failure.
type Resolver interface {
	Resolve(ctx context.Context, name string) (key []byte, found bool, err error)
}

// NopResolver is the explicit null object for networks with direct
// keys only. It is a value, not a shared singleton, so each composite
// owns its own construction path.
type NopResolver struct{}

func (NopResolver) Resolve(context.Context, string) ([]byte, bool, error) {
	return nil, false, nil
}

// RateLimitedResolver bounds how often a given name is looked up.
// Over-limit lookups report absent rather than erroring so a hot loop
// degrades to "not found" instead of hammering the name service.
type RateLimitedResolver struct {
	next    Resolver
	limiter *ratelimiter.MapLimiter
	now     func() time.Time
}

func NewRateLimitedResolver(next Resolver, rps float64, burst int) *RateLimitedResolver {
	return &RateLimitedResolver{
		next:    next,
		limiter: ratelimiter.New(rps, burst, 10*time.Minute),
		now:     time.Now,
	}
}

func (r *RateLimitedResolver) Resolve(ctx context.Context, name string) ([]byte, bool, error) {
	if !r.limiter.Allow(name, r.now()) {
		return nil, false, nil
	}
	return r.next.Resolve(ctx, name)
}

// networkSupport binds one network's rules, optional direct decoding
// and resolver together.
type networkSupport struct {
	rules Rules
	// decodeDirect is set only for networks whose address form is the
	// key itself (Eppie). Hash-based networks leave it nil and always
	// go through their resolver.
	decodeDirect func(string) (*btcec.PublicKey, error)
	resolver     Resolver
}

// Composite dispatches resolution by network type. The orchestration
// is fixed: cheap syntax check, direct decode when possible, alias
// resolution otherwise, semantic validation of whatever came back.
type Composite struct {
	networks map[models.Network]networkSupport
}

func NewComposite() *Composite {
	return &Composite{networks: make(map[models.Network]networkSupport)}
}

// Register adds or replaces a network. decodeDirect may be nil.
func (c *Composite) Register(network models.Network, rules Rules, decodeDirect func(string) (*btcec.PublicKey, error), resolver Resolver) {
	if resolver == nil {
		resolver = NopResolver{}
	}
	c.networks[network] = networkSupport{rules: rules, decodeDirect: decodeDirect, resolver: resolver}
}

// Resolve turns a parsed address into a public key.
//
// Order is a hard contract: an unsupported network fails before any
// resolver runs; a syntactically valid key segment decodes directly
// without a resolver call; only then is the name treated as an alias.
func (c *Composite) Resolve(ctx context.Context, addr *Address) (*btcec.PublicKey, error) {
	if addr == nil {
		return nil, ErrNilEmail
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	support, ok := c.networks[addr.Network]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotSupported, addr.Network)
	}

	segment := addr.ResolutionSegment()
	if support.decodeDirect != nil && support.rules.IsSyntacticallyValid(segment) {
		pub, err := support.decodeDirect(segment)
		if err != nil {
			return nil, fmt.Errorf("decode %q: %w", addr.Network, err)
		}
		return pub, nil
	}

	raw, found, err := support.resolver.Resolve(ctx, addr.Name)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %q", ErrNoPublicKey, addr.String())
	}
	pub, err := btcec.ParsePubKey(raw)
	if err != nil {
		// Resolved to something, but not to a usable key. Absence and
		// garbage look the same to the caller.
		return nil, fmt.Errorf("%w: resolved value is not a valid key for %q", ErrNoPublicKey, addr.String())
	}
	return pub, nil
}
