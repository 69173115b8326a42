package pubkey

import (
	"errors"
	"testing"

	"eppie-mail/go-core/pkg/models"
)

func TestParseEmailVariants(t *testing.T) {
	cases := []struct {
		in      string
		network models.Network
		name    string
		keyPart string
		hybrid  bool
	}{
		{"alice@eppie", models.NetworkEppie, "alice", "", false},
		{"alice+abc123@eppie", models.NetworkEppie, "alice", "abc123", true},
		{"1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa@bitcoin", models.NetworkBitcoin, "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa", "", false},
		{"someone@Ethereum", models.NetworkEthereum, "someone", "", false},
		{"bob@unknownnet", models.Network("unknownnet"), "bob", "", false},
	}
	for _, tc := range cases {
		addr, err := ParseEmail(tc.in)
		if err != nil {
			t.Fatalf("%q: parse failed: %v", tc.in, err)
		}
		if addr.Network != tc.network {
			t.Fatalf("%q: network %q, want %q", tc.in, addr.Network, tc.network)
		}
		if addr.Name != tc.name || addr.KeyPart != tc.keyPart {
			t.Fatalf("%q: parsed (%q,%q), want (%q,%q)", tc.in, addr.Name, addr.KeyPart, tc.name, tc.keyPart)
		}
		if addr.IsHybrid() != tc.hybrid {
			t.Fatalf("%q: hybrid=%v, want %v", tc.in, addr.IsHybrid(), tc.hybrid)
		}
	}
}

func TestParseEmailRejectsMalformed(t *testing.T) {
	for _, bad := range []string{"", "alice", "@eppie", "alice@", "+@eppie", "alice+@eppie"} {
		if _, err := ParseEmail(bad); !errors.Is(err, ErrMalformed) {
			t.Fatalf("%q: expected ErrMalformed, got %v", bad, err)
		}
	}
}

func TestAddressStringRoundTrip(t *testing.T) {
	for _, in := range []string{"alice@eppie", "alice+abc@eppie"} {
		addr, err := ParseEmail(in)
		if err != nil {
			t.Fatalf("parse failed: %v", err)
		}
		if got := addr.String(); got != in {
			t.Fatalf("round trip gave %q, want %q", got, in)
		}
	}
}

func TestResolutionSegment(t *testing.T) {
	direct, _ := ParseEmail("abc@eppie")
	if direct.ResolutionSegment() != "abc" {
		t.Fatal("direct segment must be the local part")
	}
	hybrid, _ := ParseEmail("alice+xyz@eppie")
	if hybrid.ResolutionSegment() != "xyz" {
		t.Fatal("hybrid segment must be the key part")
	}
}
