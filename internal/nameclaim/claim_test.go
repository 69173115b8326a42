package nameclaim

import (
	"bytes"
	"errors"
	"testing"

	"eppie-mail/go-core/internal/address"
	"eppie-mail/go-core/internal/keys"
	"eppie-mail/go-core/pkg/models"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon art"

func testMaster(t *testing.T) *keys.MasterKey {
	t.Helper()
	m, err := keys.FromMnemonic(testMnemonic, "")
	if err != nil {
		t.Fatalf("master failed: %v", err)
	}
	return m
}

func eppieAccount(index int) models.Account {
	return models.Account{Network: models.NetworkEppie, DecentralizedAccountIndex: index}
}

func TestCanonicalize(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Alice", "alice"},
		{"  a l+i ce ", "alice"},
		{"BOB.smith", "bobsmith"},
		{"x\ty\nz", "xyz"},
	}
	for _, tc := range cases {
		got, err := Canonicalize(tc.in)
		if err != nil {
			t.Fatalf("%q: canonicalize failed: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("%q: got %q, want %q", tc.in, got, tc.want)
		}
	}
	for _, bad := range []string{"", "   ", "+ + ."} {
		if _, err := Canonicalize(bad); !errors.Is(err, ErrEmptyName) {
			t.Fatalf("%q: expected ErrEmptyName, got %v", bad, err)
		}
	}
}

func TestSignEquivalentNamesMatch(t *testing.T) {
	master := testMaster(t)
	account := eppieAccount(1)

	s1, err := Sign("Alice", account, master)
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	s2, err := Sign("  a l+i ce ", account, master)
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	if !bytes.Equal(s1, s2) {
		t.Fatal("canonically equal names must sign identically")
	}

	other, err := Sign("bob", account, master)
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	if bytes.Equal(s1, other) {
		t.Fatal("different names must not share a signature")
	}
}

func TestSignRejectsInvalidInput(t *testing.T) {
	master := testMaster(t)

	if _, err := Sign("   ", eppieAccount(1), master); !errors.Is(err, ErrEmptyName) {
		t.Fatalf("expected ErrEmptyName, got %v", err)
	}
	bitcoinAcct := models.Account{Network: models.NetworkBitcoin, DecentralizedAccountIndex: 1}
	if _, err := Sign("alice", bitcoinAcct, master); !errors.Is(err, ErrNotSupported) {
		t.Fatalf("expected ErrNotSupported for a foreign network, got %v", err)
	}
	if _, err := Sign("alice", eppieAccount(-1), master); !errors.Is(err, ErrNotSupported) {
		t.Fatalf("expected ErrNotSupported for an uninitialized index, got %v", err)
	}
}

func TestVerifyV1RoundTrip(t *testing.T) {
	master := testMaster(t)
	account := eppieAccount(1)

	sig, err := Sign("Alice", account, master)
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	priv, err := master.DeriveByPath(keys.PathForAccount(1))
	if err != nil {
		t.Fatalf("derive failed: %v", err)
	}
	encoded, err := address.Encode(priv.PubKey())
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	if !VerifyV1("alice", encoded, sig) {
		t.Fatal("valid claim failed to verify")
	}
	if !VerifyV1("  A L I C E ", encoded, sig) {
		t.Fatal("canonically equal name failed to verify")
	}
	if VerifyV1("bob", encoded, sig) {
		t.Fatal("claim verified for the wrong name")
	}

	otherPriv, err := master.DeriveByPath(keys.PathForAccount(2))
	if err != nil {
		t.Fatalf("derive failed: %v", err)
	}
	otherAddr, err := address.Encode(otherPriv.PubKey())
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if VerifyV1("alice", otherAddr, sig) {
		t.Fatal("claim verified for the wrong key")
	}
}

func TestVerifyV1MalformedInputs(t *testing.T) {
	if VerifyV1("alice", "not-an-address", []byte{0x30}) {
		t.Fatal("malformed address verified")
	}
	master := testMaster(t)
	priv, err := master.DeriveByPath(keys.PathForAccount(1))
	if err != nil {
		t.Fatalf("derive failed: %v", err)
	}
	encoded, err := address.Encode(priv.PubKey())
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if VerifyV1("alice", encoded, []byte("garbage")) {
		t.Fatal("garbage signature verified")
	}
	if VerifyV1("", encoded, nil) {
		t.Fatal("empty name verified")
	}
}
