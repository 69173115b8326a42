package protector

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2/ecdsa"

	"eppie-mail/go-core/internal/pubkey"
	"eppie-mail/go-core/pkg/models"
)

const signingPrefix = "tuvi.dec.msg.v1|"

// envelope is the structured wire form: the decoded message plus an
// optional detached signature by the sender's key. Signature presence
// is per message; an envelope without one is still a valid message.
type envelope struct {
	Message   models.Message `json:"message"`
	Signature []byte         `json:"signature,omitempty"`
}

// Sign wraps the message in a signed envelope without encrypting it.
// The signature is deterministic for a given message and key.
func (p *Protector) Sign(ctx context.Context, sender models.Account, msg models.Message) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	env, err := p.signedEnvelope(ctx, sender, msg)
	if err != nil {
		return nil, err
	}
	return json.Marshal(env)
}

// SignAndEncrypt signs the message with the sender's derived key and
// seals the envelope to the recipient.
func (p *Protector) SignAndEncrypt(ctx context.Context, sender models.Account, recipient *pubkey.Address, msg models.Message) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	env, err := p.signedEnvelope(ctx, sender, msg)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return nil, err
	}
	return p.Encrypt(ctx, recipient, raw)
}

// TryVerifyAndDecrypt decrypts a structured message and checks its
// signature against the sender's resolved key. A missing or
// unverifiable signature is reported as verified=false, never as an
// error; the decrypted message is returned either way.
func (p *Protector) TryVerifyAndDecrypt(ctx context.Context, account models.Account, ciphertext []byte) (models.Message, bool, error) {
	raw, err := p.Decrypt(ctx, account, ciphertext)
	if err != nil {
		return models.Message{}, false, err
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return models.Message{}, false, fmt.Errorf("decode message envelope: %w", err)
	}
	return env.Message, p.verifySignature(ctx, env), nil
}

func (p *Protector) signedEnvelope(ctx context.Context, sender models.Account, msg models.Message) (envelope, error) {
	priv, err := p.accountKey(ctx, sender)
	if err != nil {
		return envelope{}, err
	}
	digest, err := signingDigest(msg)
	if err != nil {
		return envelope{}, err
	}
	sig := ecdsa.Sign(priv, digest)
	return envelope{Message: msg, Signature: sig.Serialize()}, nil
}

func (p *Protector) verifySignature(ctx context.Context, env envelope) bool {
	if len(env.Signature) == 0 {
		return false
	}
	senderAddr, err := pubkey.ParseEmail(env.Message.From)
	if err != nil {
		return false
	}
	senderKey, err := p.service.GetByEmail(ctx, senderAddr)
	if err != nil {
		return false
	}
	sig, err := ecdsa.ParseDERSignature(env.Signature)
	if err != nil {
		return false
	}
	digest, err := signingDigest(env.Message)
	if err != nil {
		return false
	}
	return sig.Verify(digest, senderKey)
}

// signingDigest hashes the canonical JSON form of the message. Struct
// fields marshal in declaration order, so the bytes are stable.
func signingDigest(msg models.Message) ([]byte, error) {
	raw, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(append([]byte(signingPrefix), raw...))
	return sum[:], nil
}
