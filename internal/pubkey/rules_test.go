package pubkey

import (
	"strings"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"

	"eppie-mail/go-core/internal/address"
)

func encodedTestKey(t *testing.T, fill byte) string {
	t.Helper()
	seed := make([]byte, 32)
	for i := range seed {
		seed[i] = fill
	}
	priv, _ := btcec.PrivKeyFromBytes(seed)
	encoded, err := address.Encode(priv.PubKey())
	if err != nil {
		t.Fatalf("encode test key failed: %v", err)
	}
	return encoded
}

func TestEppieRulesSyntaxNeverDecodes(t *testing.T) {
	rules := NewEppieRules()
	rules.decode = func(string) (*btcec.PublicKey, error) {
		panic("semantic decode invoked during syntax validation")
	}

	valid := encodedTestKey(t, 0x51)
	if !rules.IsSyntacticallyValid(valid) {
		t.Fatal("valid address reported syntactically invalid")
	}
	if rules.IsSyntacticallyValid(valid[:10]) {
		t.Fatal("short segment reported syntactically valid")
	}
	if rules.IsSyntacticallyValid(strings.Repeat("0", 53)) {
		t.Fatal("foreign alphabet reported syntactically valid")
	}
}

func TestTryValidateShortCircuits(t *testing.T) {
	rules := NewEppieRules()
	rules.decode = func(string) (*btcec.PublicKey, error) {
		panic("semantic validation must not run on syntactically invalid input")
	}
	if TryValidate(rules, "definitely-not-an-address") {
		t.Fatal("invalid input validated")
	}
}

func TestEppieRulesFullValidation(t *testing.T) {
	rules := NewEppieRules()
	valid := encodedTestKey(t, 0x52)
	if !TryValidate(rules, valid) {
		t.Fatal("valid address failed validation")
	}
	// Well-formed but the x coordinate overflows the field prime.
	offCurve := "ah" + strings.Repeat("9", 51)
	if !rules.IsSyntacticallyValid(offCurve) {
		t.Fatal("off-curve probe should pass the syntax check")
	}
	if TryValidate(rules, offCurve) {
		t.Fatal("off-curve payload passed semantic validation")
	}
}

func TestBitcoinRules(t *testing.T) {
	rules := NewBitcoinRules()
	valid := "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa"

	if !rules.IsSyntacticallyValid(valid) {
		t.Fatal("genesis address reported syntactically invalid")
	}
	if !TryValidate(rules, valid) {
		t.Fatal("genesis address failed checksum validation")
	}
	if rules.IsSyntacticallyValid("0OIl" + valid[4:]) {
		t.Fatal("base58-foreign characters accepted")
	}
	if rules.IsSyntacticallyValid("1A1z") {
		t.Fatal("too-short address accepted")
	}
	// Flip the last character: syntax survives, the checksum must not.
	corrupted := valid[:len(valid)-1] + "b"
	if !rules.IsSyntacticallyValid(corrupted) {
		t.Fatal("corrupted address should still be syntactically valid")
	}
	if rules.TrySemanticValidate(corrupted) {
		t.Fatal("corrupted checksum accepted")
	}
}

func TestEthereumRules(t *testing.T) {
	rules := NewEthereumRules()

	checksummed := "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
	if !TryValidate(rules, checksummed) {
		t.Fatal("EIP-55 reference address rejected")
	}
	lower := "0x" + strings.ToLower(checksummed[2:])
	if !TryValidate(rules, lower) {
		t.Fatal("all-lowercase address rejected")
	}

	badChecksum := "0x5aaeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
	if !rules.IsSyntacticallyValid(badChecksum) {
		t.Fatal("bad-checksum address should still be syntactically valid")
	}
	if rules.TrySemanticValidate(badChecksum) {
		t.Fatal("broken EIP-55 checksum accepted")
	}

	for _, bad := range []string{"", "0x1234", "5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed42", "0xzzzeb6053F3E94C9b9A09f33669435E7Ef1BeAed"} {
		if rules.IsSyntacticallyValid(bad) {
			t.Fatalf("%q reported syntactically valid", bad)
		}
	}
}
